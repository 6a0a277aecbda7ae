// Package state persists run records as run_state.json documents inside
// per-run directories. One controller process owns the work directory;
// writers for a given run are serialized by a per-run in-process lock.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/expressdiff/expressdiff/internal/common"
	"github.com/expressdiff/expressdiff/internal/models"
	"github.com/expressdiff/expressdiff/internal/pipeline"
)

// StateFileName is the single machine-read file in a run directory.
const StateFileName = "run_state.json"

// Store manages run directories and their state documents.
type Store struct {
	paths  *common.Paths
	logger arbor.ILogger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a store rooted at the resolved work directory.
func NewStore(paths *common.Paths, logger arbor.ILogger) *Store {
	return &Store{
		paths:  paths,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

// Lock returns the per-run mutex, creating it on first use. The controller
// holds this across its read-reconcile-decide-submit-persist sequence.
func (s *Store) Lock(runID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.locks[runID]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.locks[runID] = l
	return l
}

// RunDir returns the directory for a run id.
func (s *Store) RunDir(runID string) string {
	return s.paths.RunDir(runID)
}

// statePath returns the state file path for a run id.
func (s *Store) statePath(runID string) string {
	return filepath.Join(s.paths.RunDir(runID), StateFileName)
}

// Create atomically creates the run directory skeleton and initial state.
// An existing directory is a Conflict.
func (s *Store) Create(run *models.Run) error {
	runDir := s.paths.RunDir(run.RunID)
	if err := os.Mkdir(runDir, 0o755); err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: run %s already exists", models.ErrConflict, run.RunID)
		}
		return fmt.Errorf("failed to create run directory %s: %w", runDir, err)
	}

	for _, subdir := range pipeline.RunSubdirs {
		if err := os.MkdirAll(filepath.Join(runDir, filepath.FromSlash(subdir)), 0o755); err != nil {
			return fmt.Errorf("failed to create run subdirectory %s: %w", subdir, err)
		}
	}

	return s.Save(run)
}

// Load reads and parses a run's state document.
func (s *Store) Load(runID string) (*models.Run, error) {
	data, err := os.ReadFile(s.statePath(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: run %s", models.ErrNotFound, runID)
		}
		return nil, fmt.Errorf("failed to read state for run %s: %w", runID, err)
	}

	var run models.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to parse state for run %s: %w", runID, err)
	}
	return &run, nil
}

// Save serializes the run and atomically replaces run_state.json via a
// fsynced temporary sibling and rename.
func (s *Store) Save(run *models.Run) error {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize state for run %s: %w", run.RunID, err)
	}
	data = append(data, '\n')

	target := s.statePath(run.RunID)
	tmp, err := os.CreateTemp(filepath.Dir(target), StateFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp state file for run %s: %w", run.RunID, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write state for run %s: %w", run.RunID, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync state for run %s: %w", run.RunID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp state file for run %s: %w", run.RunID, err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace state for run %s: %w", run.RunID, err)
	}
	return nil
}

// List enumerates run directories, newest first. A directory without a
// parseable state file is reported as failed with a diagnostic rather
// than hidden.
func (s *Store) List() ([]*models.Run, error) {
	entries, err := os.ReadDir(s.paths.RunsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*models.Run{}, nil
		}
		return nil, fmt.Errorf("failed to enumerate runs directory: %w", err)
	}

	runs := make([]*models.Run, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		run, err := s.Load(entry.Name())
		if err != nil {
			s.logger.Warn().Err(err).Str("run_id", entry.Name()).Msg("Run directory has no valid state file")
			runs = append(runs, &models.Run{
				RunID:       entry.Name(),
				Status:      models.RunStatusFailed,
				Description: fmt.Sprintf("state file unreadable: %v", err),
				Stages:      models.StageMap{},
			})
			continue
		}
		runs = append(runs, run)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	return runs, nil
}

// Exists reports whether the run directory is present.
func (s *Store) Exists(runID string) bool {
	_, err := os.Stat(s.paths.RunDir(runID))
	return err == nil
}

// Delete removes the run directory tree. Deleting a missing run is not an
// error; the operation is idempotent.
func (s *Store) Delete(runID string) error {
	if err := os.RemoveAll(s.paths.RunDir(runID)); err != nil {
		return fmt.Errorf("failed to delete run %s: %w", runID, err)
	}
	return nil
}
