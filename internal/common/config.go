package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string        `toml:"environment"` // "development" or "production"
	Server      ServerConfig  `toml:"server"`
	Paths       PathsConfig   `toml:"paths"`
	Slurm       SlurmConfig   `toml:"slurm"`
	Logging     LoggingConfig `toml:"logging"`
	Janitor     JanitorConfig `toml:"janitor"`
	Upload      UploadConfig  `toml:"upload"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// PathsConfig carries explicit directory overrides. Empty values are
// resolved from the environment at startup (see paths.go).
type PathsConfig struct {
	InstallDir string `toml:"install_dir"` // Read-only install root holding slurm_templates/
	WorkDir    string `toml:"work_dir"`    // Writable root holding runs/ and generated_slurm/
}

// SlurmConfig controls how the scheduler gateway invokes the batch tools.
type SlurmConfig struct {
	CommandTimeout  time.Duration `toml:"command_timeout"`  // Timeout for sbatch/squeue/sacct/scancel
	AccountsTimeout time.Duration `toml:"accounts_timeout"` // Timeout for account discovery (site command can be slow)
	DefaultAccounts []string      `toml:"default_accounts"` // Fallback when no accounts command is available
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// JanitorConfig controls the background prune of generated scripts.
type JanitorConfig struct {
	Enabled     bool   `toml:"enabled"`
	Schedule    string `toml:"schedule"`     // Cron schedule format
	KeepScripts int    `toml:"keep_scripts"` // Most recent generated scripts to retain
}

type UploadConfig struct {
	MaxSize int64 `toml:"max_size"` // Max upload size in bytes
}

// NewDefaultConfig creates a configuration with default values.
// Only user-facing settings are expected in expressdiff.toml; operational
// parameters default here.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8000,
			Host: "localhost",
		},
		Slurm: SlurmConfig{
			CommandTimeout:  30 * time.Second,
			AccountsTimeout: 90 * time.Second,
			DefaultAccounts: []string{"default", "general", "standard"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Janitor: JanitorConfig{
			Enabled:     true,
			Schedule:    "0 0 * * * *", // hourly
			KeepScripts: 50,
		},
		Upload: UploadConfig{
			MaxSize: 1000 * 1024 * 1024, // 1GB
		},
	}
}

// LoadFromFiles loads configuration with priority:
// defaults -> config files (later files override earlier) -> env -> CLI.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)
	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("EXPRESSDIFF_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("EXPRESSDIFF_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("EXPRESSDIFF_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Directory overrides; SCRATCH/HOME fallbacks are handled at resolution.
	if installDir := os.Getenv("EBROOTEXPRESSDIFF"); installDir != "" {
		config.Paths.InstallDir = installDir
	} else if installDir := os.Getenv("EXPRESSDIFF_HOME"); installDir != "" {
		config.Paths.InstallDir = installDir
	}
	if workDir := os.Getenv("EXPRESSDIFF_WORKDIR"); workDir != "" {
		config.Paths.WorkDir = workDir
	}

	if level := os.Getenv("EXPRESSDIFF_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if timeout := os.Getenv("EXPRESSDIFF_SLURM_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Slurm.CommandTimeout = d
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host, workDir string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
	if workDir != "" {
		config.Paths.WorkDir = workDir
	}
}
