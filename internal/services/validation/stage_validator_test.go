package validation

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expressdiff/expressdiff/internal/common"
	"github.com/expressdiff/expressdiff/internal/models"
	"github.com/expressdiff/expressdiff/internal/pipeline"
)

type fixture struct {
	validator *StageValidator
	paths     *common.Paths
	run       *models.Run
	runDir    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	config := common.NewDefaultConfig()
	config.Paths.InstallDir = t.TempDir()
	config.Paths.WorkDir = t.TempDir()

	paths, err := common.ResolvePaths(config)
	require.NoError(t, err)

	run := models.NewRun("r1", "test", "", "acct-a", "", time.Now().UTC())
	runDir := paths.RunDir("r1")
	for _, subdir := range pipeline.RunSubdirs {
		require.NoError(t, os.MkdirAll(filepath.Join(runDir, filepath.FromSlash(subdir)), 0o755))
	}

	return &fixture{
		validator: NewStageValidator(paths, common.GetLogger()),
		paths:     paths,
		run:       run,
		runDir:    runDir,
	}
}

func (f *fixture) touch(t *testing.T, rel string) {
	t.Helper()
	path := filepath.Join(f.runDir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func (f *fixture) write(t *testing.T, rel, content string) {
	t.Helper()
	path := filepath.Join(f.runDir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func (f *fixture) validate(stage models.StageName) *models.StageValidation {
	return f.validator.Validate(f.run, pipeline.Get(stage))
}

func TestQCRawNeedsFastq(t *testing.T) {
	f := newFixture(t)

	result := f.validate(models.StageQCRaw)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors, "no FASTQ files found in raw/")

	f.touch(t, "raw/sampleA_1.fq.gz")
	f.touch(t, "raw/sampleA_2.fq.gz")
	result = f.validate(models.StageQCRaw)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Warnings)
}

func TestQCRawWarnsOnOddFileCount(t *testing.T) {
	f := newFixture(t)
	f.touch(t, "raw/sampleA_1.fq.gz")
	f.touch(t, "raw/sampleA_2.fq.gz")
	f.touch(t, "raw/orphan_1.fastq.gz")

	result := f.validate(models.StageQCRaw)
	assert.True(t, result.Valid)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "expected pairs")
}

func TestTrimRequiresQCRawDependency(t *testing.T) {
	f := newFixture(t)
	f.touch(t, "raw/sampleA_1.fq.gz")
	f.touch(t, "raw/sampleA_2.fq.gz")

	result := f.validate(models.StageTrim)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors, "dependency qc_raw not completed")

	f.touch(t, "qc_raw/qc_raw_done.flag")
	result = f.validate(models.StageTrim)
	assert.True(t, result.Valid)
}

func TestTrimWarnsWithoutAdapter(t *testing.T) {
	f := newFixture(t)
	f.touch(t, "raw/sampleA_1.fq.gz")
	f.touch(t, "raw/sampleA_2.fq.gz")
	f.touch(t, "qc_raw/qc_raw_done.flag")
	f.run.Parameters = map[string]string{}

	result := f.validate(models.StageTrim)
	assert.True(t, result.Valid)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "adapter")
}

func TestStarChecksPairsAndReferences(t *testing.T) {
	f := newFixture(t)
	f.touch(t, "trimmed/trimming_done.flag")
	f.touch(t, "trimmed/sampleA_forward_paired.fq.gz")
	f.touch(t, "trimmed/sampleA_reverse_paired.fq.gz")
	f.touch(t, "trimmed/sampleB_forward_paired.fq.gz")

	result := f.validate(models.StageStar)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors, "mismatch: 2 forward files vs 1 reverse files")

	f.touch(t, "trimmed/sampleB_reverse_paired.fq.gz")
	result = f.validate(models.StageStar)
	assert.False(t, result.Valid)
	// Still failing: no references anywhere.
	require.Len(t, result.Errors, 2)

	f.touch(t, "reference/genome.fa")
	f.touch(t, "reference/genes.gtf")
	result = f.validate(models.StageStar)
	assert.True(t, result.Valid)
}

func TestStarFindsSharedReferences(t *testing.T) {
	f := newFixture(t)
	f.touch(t, "trimmed/trimming_done.flag")
	f.touch(t, "trimmed/sampleA_forward_paired.fq.gz")
	f.touch(t, "trimmed/sampleA_reverse_paired.fq.gz")

	require.NoError(t, os.MkdirAll(f.paths.SharedRefDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(f.paths.SharedRefDir, "genome.fasta"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(f.paths.SharedRefDir, "genes.gtf"), []byte("x"), 0o644))

	result := f.validate(models.StageStar)
	assert.True(t, result.Valid)
}

func TestFeatureCountsNeedsBamAndGTF(t *testing.T) {
	f := newFixture(t)
	f.touch(t, "star/star_alignment_done.flag")

	result := f.validate(models.StageFeatureCounts)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors, "no alignment BAM files found in star/")

	f.touch(t, "star/sampleA_Aligned.sortedByCoord.out.bam")
	f.touch(t, "reference/genes.gtf")
	result = f.validate(models.StageFeatureCounts)
	assert.True(t, result.Valid)
}

func TestDESeq2MetadataRules(t *testing.T) {
	f := newFixture(t)
	f.touch(t, "featurecounts/featurecounts_done.flag")
	f.touch(t, "featurecounts/counts.txt")

	result := f.validate(models.StageDESeq2)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors, "metadata/metadata.csv not found")

	// Single condition: rejected.
	f.write(t, "metadata/metadata.csv", "sample_name,condition\ns1,control\ns2,control\n")
	result = f.validate(models.StageDESeq2)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors, "metadata must define at least 2 distinct condition values")

	// Two conditions but one replicate each: valid with warnings.
	f.write(t, "metadata/metadata.csv", "sample_name,condition\ns1,control\ns2,treated\n")
	result = f.validate(models.StageDESeq2)
	assert.True(t, result.Valid)
	assert.Len(t, result.Warnings, 2)

	// Proper design: clean.
	f.write(t, "metadata/metadata.csv",
		"sample_name,condition\ns1,control\ns2,control\ns3,treated\ns4,treated\n")
	result = f.validate(models.StageDESeq2)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Warnings)
}

func TestCompletedStageStillValidatesClean(t *testing.T) {
	f := newFixture(t)
	f.touch(t, "raw/sampleA_1.fq.gz")
	f.touch(t, "raw/sampleA_2.fq.gz")
	f.touch(t, "qc_raw/qc_raw_done.flag")

	// The rerun guard is not validation's concern.
	result := f.validate(models.StageQCRaw)
	assert.True(t, result.Valid)
}
