// Package runs implements the run/stage controller: lifecycle operations,
// dependency and rerun safety rules, scheduler reconciliation, and state
// persistence. All state-mutating operations on a run are serialized by a
// per-run lock held across the read-reconcile-decide-submit-persist
// sequence.
package runs

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/expressdiff/expressdiff/internal/common"
	"github.com/expressdiff/expressdiff/internal/interfaces"
	"github.com/expressdiff/expressdiff/internal/models"
	"github.com/expressdiff/expressdiff/internal/pipeline"
	"github.com/expressdiff/expressdiff/internal/services/scripts"
	"github.com/expressdiff/expressdiff/internal/services/state"
	"github.com/expressdiff/expressdiff/internal/services/validation"
)

// Service is the run/stage controller.
type Service struct {
	store     *state.Store
	validator *validation.StageValidator
	generator *scripts.Generator
	scheduler interfaces.Scheduler
	paths     *common.Paths
	logger    arbor.ILogger

	// now is swappable in tests; production uses UTC truncated to whole
	// seconds so state files stay byte-stable across load/save cycles.
	now func() time.Time
}

// NewService wires the controller from its collaborators.
func NewService(store *state.Store, validator *validation.StageValidator, generator *scripts.Generator,
	scheduler interfaces.Scheduler, paths *common.Paths, logger arbor.ILogger) *Service {
	return &Service{
		store:     store,
		validator: validator,
		generator: generator,
		scheduler: scheduler,
		paths:     paths,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	}
}

// CreateRun allocates a run id, creates the directory skeleton, and writes
// the initial state with every stage pending.
func (s *Service) CreateRun(ctx context.Context, req *models.RunCreateRequest) (*models.Run, error) {
	run := models.NewRun(common.NewRunID(), req.Name, req.Description, req.Account, req.AdapterType, s.now())

	if err := s.store.Create(run); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("run_id", run.RunID).
		Str("name", run.Name).
		Str("account", run.Account).
		Msg("Created run")
	return run, nil
}

// ListRuns enumerates runs newest first. Listing reconciles done-flags only;
// it never shells out to the scheduler, so a large run list stays cheap.
func (s *Service) ListRuns(ctx context.Context) ([]*models.Run, error) {
	runs, err := s.store.List()
	if err != nil {
		return nil, err
	}
	for _, run := range runs {
		if run.CreatedAt.IsZero() {
			// Diagnostic placeholder for an unreadable state file.
			continue
		}
		s.reconcile(ctx, run, false)
	}
	return runs, nil
}

// GetRun loads a run and fully reconciles it, including live scheduler
// status for stages with recorded job ids.
func (s *Service) GetRun(ctx context.Context, runID string) (*models.Run, error) {
	lock := s.store.Lock(runID)
	lock.Lock()
	defer lock.Unlock()

	run, err := s.store.Load(runID)
	if err != nil {
		return nil, err
	}
	if s.reconcile(ctx, run, true) {
		if err := s.store.Save(run); err != nil {
			s.logger.Warn().Err(err).Str("run_id", runID).Msg("Failed to persist reconciled state")
		}
	}
	return run, nil
}

// DeleteRun cancels any running jobs best-effort, removes generated
// scripts, and deletes the run directory. Deleting a missing run succeeds;
// the operation is idempotent.
func (s *Service) DeleteRun(ctx context.Context, runID string) error {
	lock := s.store.Lock(runID)
	lock.Lock()
	defer lock.Unlock()

	if run, err := s.store.Load(runID); err == nil {
		for name, stage := range run.Stages {
			if stage.Status == models.StageStatusRunning && stage.JobID != "" {
				if err := s.scheduler.Cancel(ctx, stage.JobID); err != nil {
					s.logger.Warn().Err(err).
						Str("run_id", runID).
						Str("stage", string(name)).
						Str("job_id", stage.JobID).
						Msg("Failed to cancel job during run deletion")
				}
			}
		}
	}

	s.generator.CleanupRunScripts(runID)

	if err := s.store.Delete(runID); err != nil {
		return err
	}
	s.logger.Info().Str("run_id", runID).Msg("Deleted run")
	return nil
}

// SubmitStage drives the full submission sequence under the per-run lock:
// reconcile, dependency check, preflight validation, rerun guard, cleanup
// on confirmed rerun, script generation, scheduler submission, persist.
// Any failure before submission leaves state unchanged.
func (s *Service) SubmitStage(ctx context.Context, runID string, stageName string, req *models.StageSubmitRequest) (*models.StageStatusResponse, error) {
	stage, ok := pipeline.Lookup(stageName)
	if !ok {
		return nil, fmt.Errorf("%w: unknown stage %s", models.ErrNotFound, stageName)
	}

	lock := s.store.Lock(runID)
	lock.Lock()
	defer lock.Unlock()

	run, err := s.store.Load(runID)
	if err != nil {
		return nil, err
	}
	s.reconcile(ctx, run, true)

	// One live job per run: a new submission while any stage's job is in
	// flight would race it for the run directory.
	for _, other := range pipeline.All() {
		if run.Stage(other.Name).Status == models.StageStatusRunning {
			return nil, fmt.Errorf("%w: stage %s already has a running job for this run", models.ErrConflict, other.Name)
		}
	}

	if !req.Force {
		for _, dep := range stage.DependsOn {
			if run.Stage(dep).Status != models.StageStatusCompleted {
				return nil, fmt.Errorf("%w: stage %s requires %s to complete first", models.ErrDependency, stage.Name, dep)
			}
		}
	}

	if result := s.validator.Validate(run, stage); !result.Valid {
		if !req.Force {
			return nil, &models.ValidationError{Result: result}
		}
		s.logger.Warn().
			Str("run_id", runID).
			Str("stage", string(stage.Name)).
			Str("errors", fmt.Sprintf("%v", result.Errors)).
			Msg("Submitting despite validation errors (force)")
	}

	runDir := s.paths.RunDir(runID)
	flagPresent := false
	if _, err := os.Stat(stage.DoneFlagPath(runDir)); err == nil {
		flagPresent = true
	}

	if flagPresent && !req.ConfirmRerun {
		return nil, fmt.Errorf("%w: stage %s has already completed; set confirm_rerun to resubmit", models.ErrRerunRequired, stage.Name)
	}

	if s.cleanupPending(runDir, stage.Name) && !req.ConfirmRerun {
		return nil, fmt.Errorf("%w: stage %s has an incomplete cleanup; confirm rerun to retry it", models.ErrConflict, stage.Name)
	}

	if req.ConfirmRerun {
		if err := s.cleanupStage(runDir, stage); err != nil {
			return nil, err
		}
	}

	account := req.Account
	if account == "" {
		account = run.Account
	}
	scriptPath, err := s.generator.Generate(stage, runID, account, map[string]string{
		"ADAPTER_TYPE": run.AdapterType(),
	})
	if err != nil {
		return nil, err
	}

	jobID, err := s.scheduler.Submit(ctx, scriptPath)
	if err != nil {
		return nil, err
	}

	now := s.now()
	st := run.Stage(stage.Name)
	st.Status = models.StageStatusRunning
	st.JobID = jobID
	st.UpdatedAt = now
	run.UpdatedAt = now
	deriveRunStatus(run)

	if err := s.store.Save(run); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("run_id", runID).
		Str("stage", string(stage.Name)).
		Str("job_id", jobID).
		Msg("Submitted stage")

	return &models.StageStatusResponse{
		Stage:     string(stage.Name),
		Status:    st.Status,
		JobID:     st.JobID,
		UpdatedAt: st.UpdatedAt,
	}, nil
}

// StageStatus reconciles and returns the stage's current state.
func (s *Service) StageStatus(ctx context.Context, runID string, stageName string) (*models.StageStatusResponse, error) {
	stage, ok := pipeline.Lookup(stageName)
	if !ok {
		return nil, fmt.Errorf("%w: unknown stage %s", models.ErrNotFound, stageName)
	}

	lock := s.store.Lock(runID)
	lock.Lock()
	defer lock.Unlock()

	run, err := s.store.Load(runID)
	if err != nil {
		return nil, err
	}
	if s.reconcile(ctx, run, true) {
		if err := s.store.Save(run); err != nil {
			s.logger.Warn().Err(err).Str("run_id", runID).Msg("Failed to persist reconciled state")
		}
	}

	st := run.Stage(stage.Name)
	return &models.StageStatusResponse{
		Stage:     string(stage.Name),
		Status:    st.Status,
		JobID:     st.JobID,
		UpdatedAt: st.UpdatedAt,
	}, nil
}

// CancelStage requests cancellation of a running stage's job. The resulting
// status is left to the next reconciliation; the scheduler is the source of
// truth for whether the cancel took effect.
func (s *Service) CancelStage(ctx context.Context, runID string, stageName string) error {
	stage, ok := pipeline.Lookup(stageName)
	if !ok {
		return fmt.Errorf("%w: unknown stage %s", models.ErrNotFound, stageName)
	}

	lock := s.store.Lock(runID)
	lock.Lock()
	defer lock.Unlock()

	run, err := s.store.Load(runID)
	if err != nil {
		return err
	}

	st := run.Stage(stage.Name)
	if st.Status != models.StageStatusRunning || st.JobID == "" {
		return fmt.Errorf("%w: stage %s has no running job", models.ErrConflict, stage.Name)
	}

	if err := s.scheduler.Cancel(ctx, st.JobID); err != nil {
		return err
	}
	s.logger.Info().
		Str("run_id", runID).
		Str("stage", string(stage.Name)).
		Str("job_id", st.JobID).
		Msg("Requested job cancellation")
	return nil
}

// ValidateStage runs the stage preflight without submitting.
func (s *Service) ValidateStage(ctx context.Context, runID string, stageName string) (*models.StageValidation, error) {
	stage, ok := pipeline.Lookup(stageName)
	if !ok {
		return nil, fmt.Errorf("%w: unknown stage %s", models.ErrNotFound, stageName)
	}

	run, err := s.store.Load(runID)
	if err != nil {
		return nil, err
	}
	return s.validator.Validate(run, stage), nil
}

// UpdateAdapter changes the run's adapter type. Refused while trimming is
// in flight since the running job already captured the old value.
func (s *Service) UpdateAdapter(ctx context.Context, runID string, adapterType string) error {
	lock := s.store.Lock(runID)
	lock.Lock()
	defer lock.Unlock()

	run, err := s.store.Load(runID)
	if err != nil {
		return err
	}
	s.reconcile(ctx, run, true)

	if run.Stage(models.StageTrim).Status == models.StageStatusRunning {
		return fmt.Errorf("%w: cannot change adapter type while trimming is running", models.ErrConflict)
	}

	if run.Parameters == nil {
		run.Parameters = map[string]string{}
	}
	run.Parameters["adapter_type"] = adapterType
	run.UpdatedAt = s.now()

	if err := s.store.Save(run); err != nil {
		return err
	}
	s.logger.Info().
		Str("run_id", runID).
		Str("adapter_type", adapterType).
		Msg("Updated adapter type")
	return nil
}
