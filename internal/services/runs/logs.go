package runs

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/expressdiff/expressdiff/internal/models"
	"github.com/expressdiff/expressdiff/internal/pipeline"
)

// StageLogs locates and reads the scheduler stdout/stderr files for the
// stage's most recent job. Batch scripts write their logs under the run
// directory with the job id in the filename; the exact subdirectory varies
// per stage, so the lookup walks the run tree.
func (s *Service) StageLogs(ctx context.Context, runID string, stageName string) (*models.StageLogs, error) {
	stage, ok := pipeline.Lookup(stageName)
	if !ok {
		return nil, fmt.Errorf("%w: unknown stage %s", models.ErrNotFound, stageName)
	}

	run, err := s.store.Load(runID)
	if err != nil {
		return nil, err
	}

	jobID := run.Stage(stage.Name).JobID
	if jobID == "" {
		return nil, fmt.Errorf("%w: stage %s has no recorded job", models.ErrNotFound, stage.Name)
	}

	runDir := s.paths.RunDir(runID)
	outFile := findJobLog(runDir, jobID, ".out")
	errFile := findJobLog(runDir, jobID, ".err")

	logs := &models.StageLogs{
		Stage:      string(stage.Name),
		JobID:      jobID,
		StdoutFile: outFile,
		StderrFile: errFile,
		Stdout:     readLogFile(outFile, jobID, "stdout"),
		Stderr:     readLogFile(errFile, jobID, "stderr"),
	}
	return logs, nil
}

// findJobLog walks the run directory for the first file ending in
// <jobID><ext>. Returns empty when no log has appeared yet.
func findJobLog(runDir, jobID, ext string) string {
	suffix := jobID + ext
	var found string
	filepath.WalkDir(runDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || found != "" {
			return fs.SkipAll
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), suffix) {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	return found
}

// readLogFile returns the file contents, or a friendly placeholder when the
// log has not been written yet.
func readLogFile(path, jobID, kind string) string {
	if path == "" {
		return fmt.Sprintf("No %s log found for job %s. The job may still be pending.", kind, jobID)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Sprintf("Error reading %s log: %v", kind, err)
	}
	return string(data)
}
