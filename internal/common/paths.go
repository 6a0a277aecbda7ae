package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/expressdiff/expressdiff/internal/models"
)

const appDirName = "expressdiff"

// Paths holds the resolved directory layout for one controller instance.
// InstallDir is treated as read-only; WorkDir is the only mutable root.
type Paths struct {
	InstallDir   string // Read-only root containing slurm_templates/
	WorkDir      string // Writable per-user root
	RunsDir      string // <WorkDir>/runs
	ScriptsDir   string // <WorkDir>/generated_slurm
	TemplatesDir string // <InstallDir>/slurm_templates
	SharedRefDir string // <WorkDir>/mapping_in (shared reference data)
}

// ResolvePaths computes the install and work directories.
//
// Install dir precedence: explicit config/env override, then the parent of
// the running binary. Work dir precedence: explicit override, then
// $SCRATCH/expressdiff, then $HOME/expressdiff. Resolution happens once at
// startup; a resolution failure is a ConfigError and the process refuses
// to start.
func ResolvePaths(cfg *Config) (*Paths, error) {
	installDir := cfg.Paths.InstallDir
	if installDir == "" {
		exePath, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("%w: cannot locate install directory: %v", models.ErrConfig, err)
		}
		installDir = filepath.Dir(exePath)
	}

	workDir := cfg.Paths.WorkDir
	if workDir == "" {
		if scratch := os.Getenv("SCRATCH"); scratch != "" {
			workDir = filepath.Join(scratch, appDirName)
		} else if home, err := os.UserHomeDir(); err == nil {
			workDir = filepath.Join(home, appDirName)
		} else {
			return nil, fmt.Errorf("%w: work directory is not configured; set EXPRESSDIFF_WORKDIR or SCRATCH", models.ErrConfig)
		}
	}

	p := &Paths{
		InstallDir:   installDir,
		WorkDir:      workDir,
		RunsDir:      filepath.Join(workDir, "runs"),
		ScriptsDir:   filepath.Join(workDir, "generated_slurm"),
		TemplatesDir: filepath.Join(installDir, "slurm_templates"),
		SharedRefDir: filepath.Join(workDir, "mapping_in"),
	}

	if err := p.ensureWorkDirs(); err != nil {
		return nil, err
	}
	return p, nil
}

// ensureWorkDirs creates the writable skeleton on first use.
func (p *Paths) ensureWorkDirs() error {
	for _, dir := range []string{p.RunsDir, p.ScriptsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: cannot create %s: %v", models.ErrConfig, dir, err)
		}
	}
	return nil
}

// RunDir returns the directory for a run id.
func (p *Paths) RunDir(runID string) string {
	return filepath.Join(p.RunsDir, runID)
}

// StorageType classifies the work directory for the storage-info endpoint.
func (p *Paths) StorageType() string {
	home, err := os.UserHomeDir()
	switch {
	case strings.Contains(strings.ToLower(p.WorkDir), "scratch"):
		return "scratch"
	case err == nil && strings.HasPrefix(p.WorkDir, home):
		return "home"
	default:
		return "custom"
	}
}
