package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	assert.Equal(t, 8000, config.Server.Port)
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, 30*time.Second, config.Slurm.CommandTimeout)
	assert.Equal(t, 90*time.Second, config.Slurm.AccountsTimeout)
	assert.NotEmpty(t, config.Slurm.DefaultAccounts)
	assert.True(t, config.Janitor.Enabled)
}

func TestLoadFromFilesOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "expressdiff.toml")
	content := `
environment = "production"

[server]
port = 9090

[slurm]
command_timeout = "45s"
default_accounts = ["bio-lab"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	config, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, "production", config.Environment)
	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, "localhost", config.Server.Host) // untouched default
	assert.Equal(t, 45*time.Second, config.Slurm.CommandTimeout)
	assert.Equal(t, []string{"bio-lab"}, config.Slurm.DefaultAccounts)
}

func TestLoadFromFilesMissingFile(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("EXPRESSDIFF_SERVER_PORT", "7070")
	t.Setenv("EXPRESSDIFF_WORKDIR", "/tmp/ed-work")
	t.Setenv("EXPRESSDIFF_LOG_LEVEL", "debug")

	config, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, 7070, config.Server.Port)
	assert.Equal(t, "/tmp/ed-work", config.Paths.WorkDir)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestFlagOverridesWin(t *testing.T) {
	t.Setenv("EXPRESSDIFF_SERVER_PORT", "7070")

	config, err := LoadFromFiles()
	require.NoError(t, err)
	ApplyFlagOverrides(config, 6060, "0.0.0.0", "/custom/work")

	assert.Equal(t, 6060, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)
	assert.Equal(t, "/custom/work", config.Paths.WorkDir)
}
