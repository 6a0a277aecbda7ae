package interfaces

import "context"

// JobState is the canonical scheduler vocabulary. Whatever the batch
// system reports natively, the gateway maps into these six states.
type JobState string

const (
	JobStatePending   JobState = "PENDING"
	JobStateRunning   JobState = "RUNNING"
	JobStateCompleted JobState = "COMPLETED"
	JobStateFailed    JobState = "FAILED"
	JobStateCancelled JobState = "CANCELLED"
	JobStateUnknown   JobState = "UNKNOWN"
)

// Scheduler is the narrow gateway to the external batch system. All calls
// shell out to cluster tools and must be invoked outside any shared lock.
type Scheduler interface {
	// Submit submits a generated script and returns the scheduler job id.
	Submit(ctx context.Context, scriptPath string) (string, error)

	// Status resolves a job id against the live queue first, then the
	// accounting history. Unresolvable jobs report JobStateUnknown.
	Status(ctx context.Context, jobID string) (JobState, error)

	// Cancel is best-effort; failures are logged by callers, not surfaced.
	Cancel(ctx context.Context, jobID string) error

	// Accounts discovers the charge accounts available to the caller,
	// falling back to a deterministic default list.
	Accounts(ctx context.Context) []string
}
