package runs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/expressdiff/expressdiff/internal/models"
	"github.com/expressdiff/expressdiff/internal/pipeline"
)

// cleanupStage removes the stage's primary outputs and done-flag ahead of a
// confirmed rerun. Paths listed in the stage's KeepPaths survive, and logs
// subdirectories are never touched. A partial failure leaves a marker file
// that blocks further submission of the stage until a retry completes.
func (s *Service) cleanupStage(runDir string, stage *pipeline.Stage) error {
	marker := cleanupMarkerPath(runDir, stage.Name)
	var failures []string

	for _, pattern := range stage.CleanupGlobs {
		matches, err := filepath.Glob(filepath.Join(runDir, filepath.FromSlash(pattern)))
		if err != nil {
			continue
		}
		for _, path := range matches {
			if s.preserved(runDir, stage, path) {
				continue
			}
			if err := os.RemoveAll(path); err != nil {
				failures = append(failures, fmt.Sprintf("%s: %v", path, err))
			}
		}
	}

	if err := os.Remove(stage.DoneFlagPath(runDir)); err != nil && !os.IsNotExist(err) {
		failures = append(failures, fmt.Sprintf("%s: %v", stage.DoneFlagPath(runDir), err))
	}

	if len(failures) > 0 {
		s.logger.Error().
			Str("stage", string(stage.Name)).
			Str("failures", strings.Join(failures, "; ")).
			Msg("Stage cleanup is incomplete")
		if err := os.WriteFile(marker, []byte(strings.Join(failures, "\n")+"\n"), 0o644); err != nil {
			s.logger.Warn().Err(err).Str("marker", marker).Msg("Failed to record cleanup marker")
		}
		return fmt.Errorf("%w: cleanup of stage %s is incomplete: %s",
			models.ErrConflict, stage.Name, strings.Join(failures, "; "))
	}

	if err := os.Remove(marker); err != nil && !os.IsNotExist(err) {
		s.logger.Warn().Err(err).Str("marker", marker).Msg("Failed to clear cleanup marker")
	}

	s.logger.Info().Str("stage", string(stage.Name)).Msg("Cleaned stage outputs for rerun")
	return nil
}

// preserved reports whether path falls under a KeepPath subtree or a logs
// directory.
func (s *Service) preserved(runDir string, stage *pipeline.Stage, path string) bool {
	rel, err := filepath.Rel(runDir, path)
	if err != nil {
		return true
	}
	rel = filepath.ToSlash(rel)

	for _, keep := range stage.KeepPaths {
		if rel == keep || strings.HasPrefix(rel, keep+"/") {
			return true
		}
	}
	for _, part := range strings.Split(rel, "/") {
		if part == "logs" {
			return true
		}
	}
	return false
}

// cleanupPending reports whether a previous cleanup for the stage left an
// incomplete-cleanup marker.
func (s *Service) cleanupPending(runDir string, stage models.StageName) bool {
	_, err := os.Stat(cleanupMarkerPath(runDir, stage))
	return err == nil
}

func cleanupMarkerPath(runDir string, stage models.StageName) string {
	return filepath.Join(runDir, "logs", fmt.Sprintf("%s_cleanup_pending", stage))
}
