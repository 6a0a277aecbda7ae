package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePathsExplicitOverrides(t *testing.T) {
	work := t.TempDir()
	install := t.TempDir()

	config := NewDefaultConfig()
	config.Paths.InstallDir = install
	config.Paths.WorkDir = work

	paths, err := ResolvePaths(config)
	require.NoError(t, err)

	assert.Equal(t, install, paths.InstallDir)
	assert.Equal(t, filepath.Join(work, "runs"), paths.RunsDir)
	assert.Equal(t, filepath.Join(work, "generated_slurm"), paths.ScriptsDir)
	assert.Equal(t, filepath.Join(install, "slurm_templates"), paths.TemplatesDir)
	assert.Equal(t, filepath.Join(work, "mapping_in"), paths.SharedRefDir)

	// Writable skeleton is created on resolution.
	assert.DirExists(t, paths.RunsDir)
	assert.DirExists(t, paths.ScriptsDir)
}

func TestResolvePathsScratchFallback(t *testing.T) {
	scratch := t.TempDir()
	t.Setenv("SCRATCH", scratch)

	config := NewDefaultConfig()
	config.Paths.InstallDir = t.TempDir()

	paths, err := ResolvePaths(config)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(scratch, "expressdiff"), paths.WorkDir)
}

func TestRunDir(t *testing.T) {
	config := NewDefaultConfig()
	config.Paths.InstallDir = t.TempDir()
	config.Paths.WorkDir = t.TempDir()

	paths, err := ResolvePaths(config)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(paths.RunsDir, "abc"), paths.RunDir("abc"))
}

func TestStorageType(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	scratchPaths := &Paths{WorkDir: "/scratch/user/expressdiff"}
	assert.Equal(t, "scratch", scratchPaths.StorageType())

	homePaths := &Paths{WorkDir: filepath.Join(home, "expressdiff")}
	assert.Equal(t, "home", homePaths.StorageType())

	customPaths := &Paths{WorkDir: "/mnt/shared/expressdiff"}
	assert.Equal(t, "custom", customPaths.StorageType())
}
