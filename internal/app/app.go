// Package app assembles the application: configuration, resolved paths,
// services, and HTTP handlers.
package app

import (
	"github.com/ternarybob/arbor"

	"github.com/expressdiff/expressdiff/internal/common"
	"github.com/expressdiff/expressdiff/internal/handlers"
	"github.com/expressdiff/expressdiff/internal/interfaces"
	"github.com/expressdiff/expressdiff/internal/services/janitor"
	"github.com/expressdiff/expressdiff/internal/services/results"
	"github.com/expressdiff/expressdiff/internal/services/runs"
	"github.com/expressdiff/expressdiff/internal/services/scripts"
	"github.com/expressdiff/expressdiff/internal/services/slurm"
	"github.com/expressdiff/expressdiff/internal/services/state"
	"github.com/expressdiff/expressdiff/internal/services/validation"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Paths  *common.Paths
	Logger arbor.ILogger

	// Core services
	Scheduler      interfaces.Scheduler
	StateStore     *state.Store
	Generator      *scripts.Generator
	Validator      *validation.StageValidator
	RunService     interfaces.RunService
	ResultsService *results.Service
	Janitor        *janitor.Janitor

	// HTTP handlers
	APIHandler     *handlers.APIHandler
	RunHandler     *handlers.RunHandler
	StageHandler   *handlers.StageHandler
	UploadHandler  *handlers.UploadHandler
	ResultsHandler *handlers.ResultsHandler
}

// New wires the application from configuration. Path resolution failures
// refuse startup; a controller without a work directory cannot run.
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	paths, err := common.ResolvePaths(config)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("install_dir", paths.InstallDir).
		Str("work_dir", paths.WorkDir).
		Str("storage_type", paths.StorageType()).
		Msg("Resolved directory layout")

	scheduler := slurm.NewClient(config.Slurm, logger)
	store := state.NewStore(paths, logger)
	generator := scripts.NewGenerator(paths, logger)
	validator := validation.NewStageValidator(paths, logger)
	runService := runs.NewService(store, validator, generator, scheduler, paths, logger)
	resultsService := results.NewService(paths, logger)

	a := &App{
		Config:         config,
		Paths:          paths,
		Logger:         logger,
		Scheduler:      scheduler,
		StateStore:     store,
		Generator:      generator,
		Validator:      validator,
		RunService:     runService,
		ResultsService: resultsService,
		Janitor:        janitor.New(generator, config.Janitor, logger),

		APIHandler:     handlers.NewAPIHandler(scheduler, paths),
		RunHandler:     handlers.NewRunHandler(runService),
		StageHandler:   handlers.NewStageHandler(runService),
		UploadHandler:  handlers.NewUploadHandler(paths, config.Upload),
		ResultsHandler: handlers.NewResultsHandler(resultsService),
	}

	if err := a.Janitor.Start(); err != nil {
		logger.Warn().Err(err).Msg("Script janitor failed to start")
	}

	return a, nil
}

// Close stops background components.
func (a *App) Close() {
	a.Janitor.Stop()
}
