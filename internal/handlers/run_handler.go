package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/expressdiff/expressdiff/internal/common"
	"github.com/expressdiff/expressdiff/internal/interfaces"
	"github.com/expressdiff/expressdiff/internal/models"
)

// RunHandler serves the run lifecycle endpoints.
type RunHandler struct {
	runs   interfaces.RunService
	logger arbor.ILogger
}

func NewRunHandler(runs interfaces.RunService) *RunHandler {
	return &RunHandler{
		runs:   runs,
		logger: common.GetLogger(),
	}
}

// CreateHandler handles POST /runs.
func (h *RunHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var req models.RunCreateRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}

	run, err := h.runs.CreateRun(r.Context(), &req)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, run)
}

// ListHandler handles GET /runs.
func (h *RunHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	runs, err := h.runs.ListRuns(r.Context())
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, runs)
}

// GetHandler handles GET /runs/{run_id}.
func (h *RunHandler) GetHandler(w http.ResponseWriter, r *http.Request, runID string) {
	run, err := h.runs.GetRun(r.Context(), runID)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, run)
}

// DeleteHandler handles DELETE /runs/{run_id}.
func (h *RunHandler) DeleteHandler(w http.ResponseWriter, r *http.Request, runID string) {
	if err := h.runs.DeleteRun(r.Context(), runID); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	WriteSuccess(w, "Run "+runID+" deleted successfully")
}

// UpdateAdapterHandler handles PUT /runs/{run_id}/adapter.
func (h *RunHandler) UpdateAdapterHandler(w http.ResponseWriter, r *http.Request, runID string) {
	var req models.AdapterUpdateRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}

	if err := h.runs.UpdateAdapter(r.Context(), runID, req.AdapterType); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	WriteSuccess(w, "Adapter type updated to "+req.AdapterType)
}

// SamplesHandler handles GET /runs/{run_id}/samples.
func (h *RunHandler) SamplesHandler(w http.ResponseWriter, r *http.Request, runID string) {
	result, err := h.runs.ValidateSamples(r.Context(), runID)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}
