package scripts

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expressdiff/expressdiff/internal/common"
	"github.com/expressdiff/expressdiff/internal/models"
	"github.com/expressdiff/expressdiff/internal/pipeline"
)

func newTestGenerator(t *testing.T) (*Generator, *common.Paths) {
	t.Helper()
	config := common.NewDefaultConfig()
	config.Paths.InstallDir = t.TempDir()
	config.Paths.WorkDir = t.TempDir()

	paths, err := common.ResolvePaths(config)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(paths.TemplatesDir, 0o755))
	return NewGenerator(paths, common.GetLogger()), paths
}

func writeTemplate(t *testing.T, paths *common.Paths, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(paths.TemplatesDir, name), []byte(content), 0o644))
}

func TestGenerateSubstitutesTokens(t *testing.T) {
	gen, paths := newTestGenerator(t)
	writeTemplate(t, paths, "qc_raw.slurm.template",
		"#!/bin/bash\n#SBATCH --account={ACCOUNT}\nRUN={RUN_ID}\nDIR={RUN_DIR}\nBASE={BASE_DIR}\nADAPTER={ADAPTER_TYPE}\n")

	stage := pipeline.Get(models.StageQCRaw)
	scriptPath, err := gen.Generate(stage, "run-1", "acct-a", nil)
	require.NoError(t, err)

	data, err := os.ReadFile(scriptPath)
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "--account=acct-a")
	assert.Contains(t, content, "RUN=run-1")
	assert.Contains(t, content, "DIR="+paths.RunDir("run-1"))
	assert.Contains(t, content, "BASE="+paths.WorkDir)
	assert.Contains(t, content, "ADAPTER="+models.DefaultAdapterType)
	assert.NotContains(t, content, "{RUN_ID}")

	info, err := os.Stat(scriptPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestGenerateExtrasOverrideKnownTokensOnly(t *testing.T) {
	gen, paths := newTestGenerator(t)
	writeTemplate(t, paths, "trim.slurm.template", "ADAPTER={ADAPTER_TYPE}\n")

	stage := pipeline.Get(models.StageTrim)
	scriptPath, err := gen.Generate(stage, "run-1", "acct-a", map[string]string{
		"ADAPTER_TYPE": "TruSeq3-PE",
		"EVIL_TOKEN":   "ignored",
	})
	require.NoError(t, err)

	data, err := os.ReadFile(scriptPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ADAPTER=TruSeq3-PE")
}

func TestGenerateLeavesShellExpansionsAlone(t *testing.T) {
	gen, paths := newTestGenerator(t)
	writeTemplate(t, paths, "qc_raw.slurm.template",
		"echo ${SLURM_JOB_ID}\nRUN={RUN_ID}\n")

	stage := pipeline.Get(models.StageQCRaw)
	scriptPath, err := gen.Generate(stage, "run-1", "acct-a", nil)
	require.NoError(t, err)

	data, err := os.ReadFile(scriptPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "${SLURM_JOB_ID}")
	assert.Contains(t, string(data), "RUN=run-1")
}

func TestGenerateRejectsUnknownPlaceholders(t *testing.T) {
	gen, paths := newTestGenerator(t)
	writeTemplate(t, paths, "qc_raw.slurm.template", "X={MYSTERY_TOKEN} Y={OTHER_ONE}\n")

	stage := pipeline.Get(models.StageQCRaw)
	_, err := gen.Generate(stage, "run-1", "acct-a", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrTemplate))
	assert.Contains(t, err.Error(), "MYSTERY_TOKEN")
	assert.Contains(t, err.Error(), "OTHER_ONE")
}

func TestGenerateMissingTemplate(t *testing.T) {
	gen, _ := newTestGenerator(t)
	stage := pipeline.Get(models.StageDESeq2)
	_, err := gen.Generate(stage, "run-1", "acct-a", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrTemplate))
}

func TestGenerateMissingTemplatesDir(t *testing.T) {
	gen, paths := newTestGenerator(t)
	require.NoError(t, os.RemoveAll(paths.TemplatesDir))

	stage := pipeline.Get(models.StageQCRaw)
	_, err := gen.Generate(stage, "run-1", "acct-a", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrConfig))
}

func TestCleanupRunScripts(t *testing.T) {
	gen, paths := newTestGenerator(t)
	writeTemplate(t, paths, "qc_raw.slurm.template", "RUN={RUN_ID}\n")
	writeTemplate(t, paths, "trim.slurm.template", "RUN={RUN_ID}\n")

	for _, stage := range []models.StageName{models.StageQCRaw, models.StageTrim} {
		_, err := gen.Generate(pipeline.Get(stage), "run-1", "acct-a", nil)
		require.NoError(t, err)
	}
	_, err := gen.Generate(pipeline.Get(models.StageQCRaw), "run-2", "acct-a", nil)
	require.NoError(t, err)

	gen.CleanupRunScripts("run-1")

	remaining, err := filepath.Glob(filepath.Join(paths.ScriptsDir, "*.script"))
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Contains(t, remaining[0], "run-2")
}

func TestPruneOldScripts(t *testing.T) {
	gen, paths := newTestGenerator(t)
	writeTemplate(t, paths, "qc_raw.slurm.template", "RUN={RUN_ID}\n")

	for _, id := range []string{"a", "b", "c", "d"} {
		_, err := gen.Generate(pipeline.Get(models.StageQCRaw), id, "acct-a", nil)
		require.NoError(t, err)
	}

	removed := gen.PruneOldScripts(2)
	assert.Equal(t, 2, removed)

	remaining, err := filepath.Glob(filepath.Join(paths.ScriptsDir, "*.script"))
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
}
