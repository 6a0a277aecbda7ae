package runs

import (
	"context"
	"os"

	"github.com/expressdiff/expressdiff/internal/interfaces"
	"github.com/expressdiff/expressdiff/internal/models"
	"github.com/expressdiff/expressdiff/internal/pipeline"
)

// reconcile refreshes stage statuses from the filesystem and, when
// queryScheduler is set, the batch scheduler. Done-flags are authoritative
// for completion in both directions: a stage is completed iff its flag
// exists, so a completed stage whose flag has gone missing is demoted.
// It is idempotent and returns whether anything changed.
//
// Mapping for stages with a recorded job id and no done-flag:
// RUNNING/PENDING stay running, COMPLETED without a flag is failed (a job
// that exits zero without writing its flag did not do its work), FAILED is
// failed, CANCELLED is cancelled, UNKNOWN keeps the stored status.
func (s *Service) reconcile(ctx context.Context, run *models.Run, queryScheduler bool) bool {
	runDir := s.paths.RunDir(run.RunID)
	changed := false

	for _, stage := range pipeline.All() {
		st := run.Stage(stage.Name)

		if _, err := os.Stat(stage.DoneFlagPath(runDir)); err == nil {
			if st.Status != models.StageStatusCompleted {
				st.Status = models.StageStatusCompleted
				st.UpdatedAt = s.now()
				changed = true
			}
			continue
		}

		if st.Status == models.StageStatusCompleted {
			// The flag has disappeared, so completion no longer holds.
			// With a recorded job the outcome is a silent failure; without
			// one nothing is known to have run.
			if st.JobID != "" {
				st.Status = models.StageStatusFailed
			} else {
				st.Status = models.StageStatusPending
			}
			st.UpdatedAt = s.now()
			changed = true
			continue
		}

		if st.JobID == "" || !queryScheduler {
			continue
		}
		if st.Status != models.StageStatusRunning {
			// Failed or cancelled without a flag; nothing new to learn.
			continue
		}

		jobState, err := s.scheduler.Status(ctx, st.JobID)
		if err != nil {
			s.logger.Warn().Err(err).
				Str("run_id", run.RunID).
				Str("stage", string(stage.Name)).
				Str("job_id", st.JobID).
				Msg("Scheduler status query failed during reconciliation")
			continue
		}

		var next models.StageStatus
		switch jobState {
		case interfaces.JobStateRunning, interfaces.JobStatePending:
			next = models.StageStatusRunning
		case interfaces.JobStateCompleted:
			// Completed job, no done-flag: the stage did not finish its work.
			next = models.StageStatusFailed
		case interfaces.JobStateFailed:
			next = models.StageStatusFailed
		case interfaces.JobStateCancelled:
			next = models.StageStatusCancelled
		default:
			// UNKNOWN keeps the stored status.
			continue
		}

		if st.Status != next {
			st.Status = next
			st.UpdatedAt = s.now()
			changed = true
		}
	}

	if deriveRunStatus(run) {
		run.UpdatedAt = s.now()
		changed = true
	}
	return changed
}

// deriveRunStatus folds stage statuses into the run status: any failure
// wins, then all-completed, then any-running, else created. Returns whether
// the status changed.
func deriveRunStatus(run *models.Run) bool {
	failed, running := false, false
	completed := 0
	for _, name := range models.StageOrder {
		switch run.Stage(name).Status {
		case models.StageStatusFailed:
			failed = true
		case models.StageStatusRunning:
			running = true
		case models.StageStatusCompleted:
			completed++
		}
	}

	next := models.RunStatusCreated
	switch {
	case failed:
		next = models.RunStatusFailed
	case completed == len(models.StageOrder):
		next = models.RunStatusCompleted
	case running:
		next = models.RunStatusRunning
	}

	if run.Status == next {
		return false
	}
	run.Status = next
	return true
}
