package handlers

import (
	"net/http"
	"os/user"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/expressdiff/expressdiff/internal/common"
	"github.com/expressdiff/expressdiff/internal/interfaces"
	"github.com/expressdiff/expressdiff/internal/models"
)

// APIHandler serves the system endpoints: health, version, user and
// storage discovery, scheduler accounts, and the stage list.
type APIHandler struct {
	scheduler interfaces.Scheduler
	paths     *common.Paths
	logger    arbor.ILogger
}

func NewAPIHandler(scheduler interfaces.Scheduler, paths *common.Paths) *APIHandler {
	return &APIHandler{
		scheduler: scheduler,
		paths:     paths,
		logger:    common.GetLogger(),
	}
}

// HealthHandler returns service liveness plus the build version.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   common.GetVersion(),
	})
}

// VersionHandler returns version information
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version":    common.GetVersion(),
		"build":      common.GetBuild(),
		"git_commit": common.GetGitCommit(),
	})
}

// UserHandler identifies the account the controller runs as. On the
// cluster this is the user's computing id.
func (h *APIHandler) UserHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	current, err := user.Current()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Cannot determine current user: "+err.Error())
		return
	}

	uid, _ := strconv.Atoi(current.Uid)
	WriteJSON(w, http.StatusOK, models.UserInfo{
		Username:    current.Username,
		UID:         uid,
		ComputingID: current.Username,
	})
}

// StorageInfoHandler reports the resolved directory layout.
func (h *APIHandler) StorageInfoHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	username := ""
	if current, err := user.Current(); err == nil {
		username = current.Username
	}

	WriteJSON(w, http.StatusOK, models.StorageInfo{
		InstallDirectory: h.paths.InstallDir,
		DataDirectory:    h.paths.WorkDir,
		RunsDirectory:    h.paths.RunsDir,
		StorageType:      h.paths.StorageType(),
		User:             username,
	})
}

// AccountsHandler lists the scheduler charge accounts available to the
// caller. Discovery shells out and can be slow on first call.
func (h *APIHandler) AccountsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, h.scheduler.Accounts(r.Context()))
}

// StagesHandler returns the pipeline stages in canonical order.
func (h *APIHandler) StagesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string][]string{
		"stages": models.StageNames(),
	})
}

// NotFoundHandler handles 404 errors with JSON response
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, map[string]interface{}{
		"error":   "Not Found",
		"path":    r.URL.Path,
		"message": "The requested endpoint does not exist",
	})
}
