package results

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expressdiff/expressdiff/internal/common"
	"github.com/expressdiff/expressdiff/internal/models"
)

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	config := common.NewDefaultConfig()
	config.Paths.InstallDir = t.TempDir()
	config.Paths.WorkDir = t.TempDir()

	paths, err := common.ResolvePaths(config)
	require.NoError(t, err)

	runDir := paths.RunDir("r1")
	require.NoError(t, os.MkdirAll(runDir, 0o755))
	return NewService(paths, common.GetLogger()), runDir
}

func write(t *testing.T, runDir, rel, content string) {
	t.Helper()
	path := filepath.Join(runDir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFeatureCountsSummaryParsing(t *testing.T) {
	svc, runDir := newTestService(t)
	summary := "Status\t/work/runs/r1/star/liver_Aligned.sortedByCoord.out.bam\t/work/runs/r1/star/kidney_Aligned.sortedByCoord.out.bam\n" +
		"Assigned\t1200\t1100\n" +
		"Unassigned_NoFeatures\t30\t45\n"
	write(t, runDir, "featurecounts/counts.txt.summary", summary)

	parsed, err := svc.FeatureCountsSummary("r1")
	require.NoError(t, err)

	assert.Equal(t, []string{"liver", "kidney"}, parsed.SampleNames)
	require.Len(t, parsed.Summary, 2)
	assert.Equal(t, "Assigned", parsed.Summary[0].Category)
	assert.Equal(t, int64(1200), parsed.Summary[0].Samples["liver"])
	assert.Equal(t, int64(1100), parsed.Summary[0].Samples["kidney"])
	assert.Equal(t, int64(45), parsed.Summary[1].Samples["kidney"])
}

func TestFeatureCountsSummaryMissing(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.FeatureCountsSummary("r1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrNotFound))

	_, err = svc.FeatureCountsSummary("ghost")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestDESeq2ResultsParsing(t *testing.T) {
	svc, runDir := newTestService(t)
	write(t, runDir, "deseq2/summary.txt",
		"DESeq2 Analysis Summary\n"+
			"Total genes tested: 18423\n"+
			"Significant genes (padj < 0.05): 342\n"+
			"design = ~condition\n")
	write(t, runDir, "deseq2/significant_degs.csv",
		"gene_id,baseMean,log2FoldChange,lfcSE,stat,pvalue,padj\n"+
			"ENSG0001,1234.56789,2.345678,0.123456,18.999999,0.00001,0.0004\n")
	write(t, runDir, "deseq2/full_results.csv", "gene_id\n")

	result, err := svc.DESeq2Results("r1")
	require.NoError(t, err)

	assert.Equal(t, "18423", result.Summary["Total genes tested"])
	assert.Equal(t, "342", result.Summary["Significant genes (padj < 0.05)"])
	assert.NotContains(t, result.Summary, "design = ~condition")

	require.Equal(t, 1, result.NumSignificant)
	deg := result.SignificantDEGs[0]
	assert.Equal(t, "ENSG0001", deg["gene_id"])
	assert.Equal(t, 1234.5679, deg["baseMean"])
	assert.Equal(t, 2.3457, deg["log2FoldChange"])
	assert.Equal(t, 0.1235, deg["lfcSE"])
	assert.Equal(t, 19.0, deg["stat"])
	assert.Equal(t, 0.00001, deg["pvalue"])
	assert.Equal(t, 0.0004, deg["padj"])

	assert.Contains(t, result.AvailableFiles, "summary")
	assert.Contains(t, result.AvailableFiles, "significant_degs")
	assert.Contains(t, result.AvailableFiles, "full_results")
	assert.NotContains(t, result.AvailableFiles, "top_degs")
}

func TestDESeq2ResultsWithoutDEGsFile(t *testing.T) {
	svc, runDir := newTestService(t)
	write(t, runDir, "deseq2/summary.txt", "Total genes tested: 10\n")

	result, err := svc.DESeq2Results("r1")
	require.NoError(t, err)
	assert.Equal(t, 0, result.NumSignificant)
	assert.Empty(t, result.SignificantDEGs)
}

func TestDESeq2ResultsMissingDirectory(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.DESeq2Results("r1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestDESeq2FilePath(t *testing.T) {
	svc, runDir := newTestService(t)
	write(t, runDir, "deseq2/summary.txt", "x\n")

	path, err := svc.DESeq2FilePath("r1", "summary")
	require.NoError(t, err)
	assert.FileExists(t, path)

	// Known type, missing file.
	_, err = svc.DESeq2FilePath("r1", "top_degs")
	assert.True(t, errors.Is(err, models.ErrNotFound))

	// Unknown type is a validation failure, not a 404.
	_, err = svc.DESeq2FilePath("r1", "raw_reads")
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestListQCReports(t *testing.T) {
	svc, runDir := newTestService(t)
	write(t, runDir, "qc_raw/qc_raw_done.flag", "")
	write(t, runDir, "qc_raw/multiqc_out/multiqc_report.html", "<html>")
	write(t, runDir, "qc_raw/multiqc_out/multiqc_report_1.html", "<html>")
	write(t, runDir, "qc_raw/fastqc_out/liver_1_fastqc.html", "<html>")

	reports, err := svc.ListQC("r1")
	require.NoError(t, err)

	require.Contains(t, reports, "qc_raw")
	report := reports["qc_raw"]
	assert.True(t, report.Completed)
	assert.True(t, report.MultiQCAvailable)
	assert.True(t, report.FastQCAvailable)
	assert.Len(t, report.Files, 3)

	// qc_trimmed directory absent, so it is not reported.
	assert.NotContains(t, reports, "qc_trimmed")
}

func TestQCFilePathTraversalRejected(t *testing.T) {
	svc, runDir := newTestService(t)
	write(t, runDir, "qc_raw/multiqc_out/multiqc_report.html", "<html>")

	path, err := svc.QCFilePath("r1", "qc_raw", "multiqc_out/multiqc_report.html")
	require.NoError(t, err)
	assert.FileExists(t, path)

	_, err = svc.QCFilePath("r1", "qc_raw", "../run_state.json")
	assert.True(t, errors.Is(err, models.ErrValidation))

	_, err = svc.QCFilePath("r1", "star", "something.html")
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestResultFilePath(t *testing.T) {
	svc, runDir := newTestService(t)
	write(t, runDir, "counts/deseq_counts_matrix.csv", "gene\n")

	path, err := svc.ResultFilePath("r1", "counts_matrix")
	require.NoError(t, err)
	assert.FileExists(t, path)

	write(t, runDir, "deseq2/summary.txt", "Total genes tested: 10\n")
	path, err = svc.ResultFilePath("r1", "summary_stats")
	require.NoError(t, err)
	assert.FileExists(t, path)

	_, err = svc.ResultFilePath("r1", "de_results")
	assert.True(t, errors.Is(err, models.ErrNotFound))

	_, err = svc.ResultFilePath("r1", "everything")
	assert.True(t, errors.Is(err, models.ErrValidation))
}
