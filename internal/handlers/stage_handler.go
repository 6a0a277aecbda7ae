package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/expressdiff/expressdiff/internal/common"
	"github.com/expressdiff/expressdiff/internal/interfaces"
	"github.com/expressdiff/expressdiff/internal/models"
)

// StageHandler serves the per-stage endpoints: submission, status,
// cancellation, preflight validation, and job logs.
type StageHandler struct {
	runs   interfaces.RunService
	logger arbor.ILogger
}

func NewStageHandler(runs interfaces.RunService) *StageHandler {
	return &StageHandler{
		runs:   runs,
		logger: common.GetLogger(),
	}
}

// SubmitHandler handles POST /runs/{run_id}/stages/{stage}.
func (h *StageHandler) SubmitHandler(w http.ResponseWriter, r *http.Request, runID, stage string) {
	var req models.StageSubmitRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}

	status, err := h.runs.SubmitStage(r.Context(), runID, stage, &req)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, status)
}

// StatusHandler handles GET /runs/{run_id}/stages/{stage}/status.
func (h *StageHandler) StatusHandler(w http.ResponseWriter, r *http.Request, runID, stage string) {
	status, err := h.runs.StageStatus(r.Context(), runID, stage)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, status)
}

// CancelHandler handles POST /runs/{run_id}/stages/{stage}/cancel.
func (h *StageHandler) CancelHandler(w http.ResponseWriter, r *http.Request, runID, stage string) {
	if err := h.runs.CancelStage(r.Context(), runID, stage); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	WriteSuccess(w, "Cancellation requested for stage "+stage)
}

// ValidateHandler handles GET /runs/{run_id}/stages/{stage}/validate.
func (h *StageHandler) ValidateHandler(w http.ResponseWriter, r *http.Request, runID, stage string) {
	result, err := h.runs.ValidateStage(r.Context(), runID, stage)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// LogsHandler handles GET /runs/{run_id}/stages/{stage}/logs.
func (h *StageHandler) LogsHandler(w http.ResponseWriter, r *http.Request, runID, stage string) {
	logs, err := h.runs.StageLogs(r.Context(), runID, stage)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, logs)
}
