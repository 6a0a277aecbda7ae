package handlers

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/expressdiff/expressdiff/internal/common"
	"github.com/expressdiff/expressdiff/internal/services/results"
)

// ResultsHandler serves parsed stage results and result file downloads.
type ResultsHandler struct {
	results *results.Service
	logger  arbor.ILogger
}

func NewResultsHandler(resultsService *results.Service) *ResultsHandler {
	return &ResultsHandler{
		results: resultsService,
		logger:  common.GetLogger(),
	}
}

// FeatureCountsSummaryHandler handles GET /runs/{run_id}/featurecounts-summary.
func (h *ResultsHandler) FeatureCountsSummaryHandler(w http.ResponseWriter, r *http.Request, runID string) {
	summary, err := h.results.FeatureCountsSummary(runID)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, summary)
}

// DESeq2ResultsHandler handles GET /runs/{run_id}/deseq2-results.
func (h *ResultsHandler) DESeq2ResultsHandler(w http.ResponseWriter, r *http.Request, runID string) {
	result, err := h.results.DESeq2Results(runID)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// DESeq2DownloadHandler handles GET /runs/{run_id}/deseq2-download/{file_type}.
func (h *ResultsHandler) DESeq2DownloadHandler(w http.ResponseWriter, r *http.Request, runID, fileType string) {
	path, err := h.results.DESeq2FilePath(runID, fileType)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	serveDownload(w, r, path)
}

// QCListHandler handles GET /runs/{run_id}/qc/list.
func (h *ResultsHandler) QCListHandler(w http.ResponseWriter, r *http.Request, runID string) {
	reports, err := h.results.ListQC(runID)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, reports)
}

// QCFileHandler handles GET /runs/{run_id}/qc/{stage}/{path...}. HTML
// reports render inline; everything else downloads.
func (h *ResultsHandler) QCFileHandler(w http.ResponseWriter, r *http.Request, runID, stage, relPath string) {
	path, err := h.results.QCFilePath(runID, stage, relPath)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".png", ".jpg", ".jpeg", ".css", ".js", ".svg":
		http.ServeFile(w, r, path)
	default:
		serveDownload(w, r, path)
	}
}

// ResultDownloadHandler handles GET /runs/{run_id}/results/{result_type}.
func (h *ResultsHandler) ResultDownloadHandler(w http.ResponseWriter, r *http.Request, runID, resultType string) {
	path, err := h.results.ResultFilePath(runID, resultType)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	serveDownload(w, r, path)
}

// serveDownload sends a file as an attachment.
func serveDownload(w http.ResponseWriter, r *http.Request, path string) {
	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(path)+`"`)
	http.ServeFile(w, r, path)
}
