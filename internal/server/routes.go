package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// System endpoints
	mux.HandleFunc("/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/user", s.app.APIHandler.UserHandler)
	mux.HandleFunc("/storage-info", s.app.APIHandler.StorageInfoHandler)
	mux.HandleFunc("/accounts", s.app.APIHandler.AccountsHandler)
	mux.HandleFunc("/stages", s.app.APIHandler.StagesHandler)

	// Run collection and per-run routes
	mux.HandleFunc("/runs", s.handleRunsCollection) // GET (list), POST (create)
	mux.HandleFunc("/runs/", s.handleRunRoutes)     // Everything under /runs/{run_id}

	mux.HandleFunc("/", s.handleRoot)

	return mux
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}
	http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
}

// handleRunsCollection dispatches /runs by method.
func (s *Server) handleRunsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.app.RunHandler.ListHandler(w, r)
	case http.MethodPost:
		s.app.RunHandler.CreateHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleRunRoutes dispatches everything under /runs/{run_id}. The mux
// cannot route nested path parameters, so segments are parsed here.
func (s *Server) handleRunRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/runs/")
	segments := strings.SplitN(rest, "/", 4)
	runID := segments[0]
	if runID == "" {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}

	// /runs/{run_id}
	if len(segments) == 1 || segments[1] == "" {
		switch r.Method {
		case http.MethodGet:
			s.app.RunHandler.GetHandler(w, r, runID)
		case http.MethodDelete:
			s.app.RunHandler.DeleteHandler(w, r, runID)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	switch segments[1] {
	case "adapter":
		if r.Method != http.MethodPut {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.app.RunHandler.UpdateAdapterHandler(w, r, runID)

	case "samples":
		s.app.RunHandler.SamplesHandler(w, r, runID)

	case "upload":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.app.UploadHandler.UploadHandler(w, r, runID)

	case "featurecounts-summary":
		s.app.ResultsHandler.FeatureCountsSummaryHandler(w, r, runID)

	case "deseq2-results":
		s.app.ResultsHandler.DESeq2ResultsHandler(w, r, runID)

	case "deseq2-download":
		if len(segments) < 3 || segments[2] == "" {
			s.app.APIHandler.NotFoundHandler(w, r)
			return
		}
		s.app.ResultsHandler.DESeq2DownloadHandler(w, r, runID, segments[2])

	case "results":
		if len(segments) < 3 || segments[2] == "" {
			s.app.APIHandler.NotFoundHandler(w, r)
			return
		}
		s.app.ResultsHandler.ResultDownloadHandler(w, r, runID, segments[2])

	case "qc":
		s.handleQCRoutes(w, r, runID, segments)

	case "stages":
		s.handleStageRoutes(w, r, runID, segments)

	default:
		s.app.APIHandler.NotFoundHandler(w, r)
	}
}

// handleQCRoutes dispatches /runs/{run_id}/qc/list and
// /runs/{run_id}/qc/{stage}/{file_path...}.
func (s *Server) handleQCRoutes(w http.ResponseWriter, r *http.Request, runID string, segments []string) {
	if len(segments) < 3 || segments[2] == "" {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}

	if segments[2] == "list" {
		s.app.ResultsHandler.QCListHandler(w, r, runID)
		return
	}

	if len(segments) < 4 || segments[3] == "" {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}
	s.app.ResultsHandler.QCFileHandler(w, r, runID, segments[2], segments[3])
}

// handleStageRoutes dispatches /runs/{run_id}/stages/{stage} and its
// status/cancel/validate/logs subroutes.
func (s *Server) handleStageRoutes(w http.ResponseWriter, r *http.Request, runID string, segments []string) {
	if len(segments) < 3 || segments[2] == "" {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}
	stage := segments[2]

	// POST /runs/{run_id}/stages/{stage}
	if len(segments) == 3 || segments[3] == "" {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.app.StageHandler.SubmitHandler(w, r, runID, stage)
		return
	}

	switch segments[3] {
	case "status":
		s.app.StageHandler.StatusHandler(w, r, runID, stage)
	case "cancel":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.app.StageHandler.CancelHandler(w, r, runID, stage)
	case "validate":
		s.app.StageHandler.ValidateHandler(w, r, runID, stage)
	case "logs":
		s.app.StageHandler.LogsHandler(w, r, runID, stage)
	default:
		s.app.APIHandler.NotFoundHandler(w, r)
	}
}
