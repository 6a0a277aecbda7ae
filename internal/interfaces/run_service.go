package interfaces

import (
	"context"

	"github.com/expressdiff/expressdiff/internal/models"
)

// RunService defines the run/stage controller operations consumed by the
// HTTP handlers.
type RunService interface {
	CreateRun(ctx context.Context, req *models.RunCreateRequest) (*models.Run, error)
	ListRuns(ctx context.Context) ([]*models.Run, error)
	GetRun(ctx context.Context, runID string) (*models.Run, error)
	DeleteRun(ctx context.Context, runID string) error

	SubmitStage(ctx context.Context, runID string, stage string, req *models.StageSubmitRequest) (*models.StageStatusResponse, error)
	StageStatus(ctx context.Context, runID string, stage string) (*models.StageStatusResponse, error)
	CancelStage(ctx context.Context, runID string, stage string) error
	ValidateStage(ctx context.Context, runID string, stage string) (*models.StageValidation, error)
	StageLogs(ctx context.Context, runID string, stage string) (*models.StageLogs, error)

	UpdateAdapter(ctx context.Context, runID string, adapterType string) error
	ValidateSamples(ctx context.Context, runID string) (*models.SampleValidation, error)
}
