package handlers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/expressdiff/expressdiff/internal/common"
	"github.com/expressdiff/expressdiff/internal/models"
)

// uploadRoutes maps accepted upload extensions to run subdirectories and a
// display type. Extensions outside this table are rejected per file.
var uploadRoutes = []struct {
	suffix  string
	destDir string
	kind    string
}{
	{".fq.gz", "raw", "fastq"},
	{".fastq.gz", "raw", "fastq"},
	{".fa", "reference", "reference"},
	{".fasta", "reference", "reference"},
	{".gtf", "reference", "annotation"},
	{".csv", "metadata", "metadata"},
	{".tsv", "metadata", "metadata"},
}

// UploadHandler streams multipart uploads into run subdirectories.
type UploadHandler struct {
	paths   *common.Paths
	maxSize int64
	logger  arbor.ILogger
}

func NewUploadHandler(paths *common.Paths, config common.UploadConfig) *UploadHandler {
	return &UploadHandler{
		paths:   paths,
		maxSize: config.MaxSize,
		logger:  common.GetLogger(),
	}
}

// UploadHandler handles POST /runs/{run_id}/upload. Files route by
// extension; a bad file is reported per file and does not fail the batch.
func (h *UploadHandler) UploadHandler(w http.ResponseWriter, r *http.Request, runID string) {
	runDir := h.paths.RunDir(runID)
	if _, err := os.Stat(runDir); err != nil {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("Run %s not found", runID))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize)
	reader, err := r.MultipartReader()
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Expected multipart form data: "+err.Error())
		return
	}

	response := models.UploadResponse{Files: []models.UploadedFile{}, Errors: []string{}}

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			WriteError(w, http.StatusBadRequest, "Malformed multipart body: "+err.Error())
			return
		}

		filename := filepath.Base(part.FileName())
		if filename == "" || filename == "." {
			part.Close()
			continue
		}

		if uploadErr := h.storeFile(runDir, filename, part, &response); uploadErr != nil {
			response.Errors = append(response.Errors, uploadErr.Error())
		}
		part.Close()
	}

	response.Message = fmt.Sprintf("Uploaded %d file(s)", len(response.Files))
	h.logger.Info().
		Str("run_id", runID).
		Int("files", len(response.Files)).
		Int("errors", len(response.Errors)).
		Msg("Processed upload")
	WriteJSON(w, http.StatusOK, response)
}

// storeFile routes one uploaded file by extension and streams it to disk.
func (h *UploadHandler) storeFile(runDir, filename string, src io.Reader, response *models.UploadResponse) error {
	lower := strings.ToLower(filename)
	for _, route := range uploadRoutes {
		if !strings.HasSuffix(lower, route.suffix) {
			continue
		}

		destDir := filepath.Join(runDir, route.destDir)
		if err := os.MkdirAll(destDir, 0o755); err != nil {
			return fmt.Errorf("%s: cannot create destination directory: %v", filename, err)
		}

		destPath := filepath.Join(destDir, filename)
		f, err := os.Create(destPath)
		if err != nil {
			return fmt.Errorf("%s: cannot create file: %v", filename, err)
		}

		size, err := io.Copy(f, src)
		closeErr := f.Close()
		if err != nil || closeErr != nil {
			os.Remove(destPath)
			if err == nil {
				err = closeErr
			}
			return fmt.Errorf("%s: write failed: %v", filename, err)
		}

		response.Files = append(response.Files, models.UploadedFile{
			Filename: filename,
			Size:     size,
			Type:     route.kind,
		})
		return nil
	}

	return fmt.Errorf("%s: unsupported file type; accepted: .fq.gz, .fastq.gz, .fa, .fasta, .gtf, .csv, .tsv", filename)
}
