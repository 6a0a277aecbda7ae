package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expressdiff/expressdiff/internal/common"
	"github.com/expressdiff/expressdiff/internal/models"
)

func TestWriteServiceErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("%w: run x", models.ErrNotFound), 404},
		{"rerun required", fmt.Errorf("%w: stage done", models.ErrRerunRequired), 409},
		{"conflict", fmt.Errorf("%w: already running", models.ErrConflict), 409},
		{"dependency", fmt.Errorf("%w: trim needs qc_raw", models.ErrDependency), 400},
		{"validation", fmt.Errorf("%w: bad input", models.ErrValidation), 400},
		{"scheduler", fmt.Errorf("%w: sbatch failed", models.ErrScheduler), 502},
		{"template", fmt.Errorf("%w: unknown placeholder", models.ErrTemplate), 500},
		{"config", fmt.Errorf("%w: templates dir missing", models.ErrConfig), 500},
		{"unexpected", errors.New("disk on fire"), 500},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteServiceError(rec, common.GetLogger(), tc.err)
			assert.Equal(t, tc.want, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "error", body["status"])
		})
	}
}

func TestWriteServiceErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteServiceError(rec, common.GetLogger(), errors.New("disk on fire"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Internal server error", body["error"])
}

func TestWriteServiceErrorValidationPayload(t *testing.T) {
	err := &models.ValidationError{
		Result: &models.StageValidation{
			Valid:    false,
			Errors:   []string{"no FASTQ files found in raw/"},
			Warnings: []string{"adapter type not set"},
		},
	}

	rec := httptest.NewRecorder()
	WriteServiceError(rec, common.GetLogger(), err)
	require.Equal(t, 400, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, []any{"no FASTQ files found in raw/"}, body["errors"])
	assert.Equal(t, []any{"adapter type not set"}, body["warnings"])
}
