package results

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/expressdiff/expressdiff/internal/models"
	"github.com/expressdiff/expressdiff/internal/pipeline"
)

// qcStages are the two stages whose artifacts the QC endpoints expose.
var qcStages = []models.StageName{models.StageQCRaw, models.StageQCTrimmed}

// ListQC reports the available QC artifacts per QC stage. Stages whose
// directory is missing are omitted.
func (s *Service) ListQC(runID string) (map[string]*models.QCStageReport, error) {
	if !s.runExists(runID) {
		return nil, fmt.Errorf("%w: run %s", models.ErrNotFound, runID)
	}

	runDir := s.paths.RunDir(runID)
	reports := map[string]*models.QCStageReport{}

	for _, stageName := range qcStages {
		stageDir := filepath.Join(runDir, string(stageName))
		if _, err := os.Stat(stageDir); err != nil {
			continue
		}

		stage := pipeline.Get(stageName)
		multiqcMain := filepath.Join(stageDir, "multiqc_out", "multiqc_report.html")
		fastqcReports, _ := filepath.Glob(filepath.Join(stageDir, "fastqc_out", "*.html"))

		report := &models.QCStageReport{
			Completed:       flagExists(stage.DoneFlagPath(runDir)),
			FastQCAvailable: len(fastqcReports) > 0,
			Files:           []models.QCFile{},
		}

		if flagExists(multiqcMain) {
			report.MultiQCAvailable = true
			report.Files = append(report.Files, models.QCFile{
				Name:        "MultiQC Report",
				Path:        "multiqc_out/multiqc_report.html",
				Type:        "html",
				Description: "Aggregated quality control report",
			})
		}

		extras, _ := filepath.Glob(filepath.Join(stageDir, "multiqc_out", "multiqc_report*.html"))
		for _, path := range extras {
			name := filepath.Base(path)
			if name == "multiqc_report.html" {
				continue
			}
			report.Files = append(report.Files, models.QCFile{
				Name:        fmt.Sprintf("MultiQC Report (%s)", strings.TrimSuffix(name, ".html")),
				Path:        "multiqc_out/" + name,
				Type:        "html",
				Description: "Additional MultiQC report: " + name,
			})
		}

		for _, path := range fastqcReports {
			name := filepath.Base(path)
			stem := strings.TrimSuffix(name, ".html")
			report.Files = append(report.Files, models.QCFile{
				Name:        "FastQC - " + stem,
				Path:        "fastqc_out/" + name,
				Type:        "html",
				Description: "Individual FastQC report for " + stem,
			})
		}

		reports[string(stageName)] = report
	}

	return reports, nil
}

// QCFilePath resolves a QC artifact for serving. The relative path must
// stay inside the stage's QC directory; traversal outside it is rejected.
func (s *Service) QCFilePath(runID, stage, relPath string) (string, error) {
	if !s.runExists(runID) {
		return "", fmt.Errorf("%w: run %s", models.ErrNotFound, runID)
	}

	isQCStage := false
	for _, qc := range qcStages {
		if string(qc) == stage {
			isQCStage = true
			break
		}
	}
	if !isQCStage {
		return "", fmt.Errorf("%w: invalid QC stage %s", models.ErrValidation, stage)
	}

	qcDir := filepath.Join(s.paths.RunDir(runID), stage)
	full := filepath.Join(qcDir, filepath.FromSlash(relPath))

	rel, err := filepath.Rel(qcDir, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: invalid file path", models.ErrValidation)
	}

	if _, err := os.Stat(full); err != nil {
		return "", fmt.Errorf("%w: file not found: %s", models.ErrNotFound, relPath)
	}
	return full, nil
}

// ResultFilePath maps a named result type to its canonical artifact for
// the bulk download endpoint.
func (s *Service) ResultFilePath(runID, resultType string) (string, error) {
	if !s.runExists(runID) {
		return "", fmt.Errorf("%w: run %s", models.ErrNotFound, runID)
	}

	runDir := s.paths.RunDir(runID)
	resultFiles := map[string]string{
		"counts_matrix": filepath.Join(runDir, "counts", "deseq_counts_matrix.csv"),
		"de_results":    filepath.Join(runDir, "deseq2", "full_results.csv"),
		"top_degs":      filepath.Join(runDir, "deseq2", "top_degs.csv"),
		"summary_stats": filepath.Join(runDir, "deseq2", "summary.txt"),
		"qc_raw":        filepath.Join(runDir, "qc_raw", "multiqc_out", "multiqc_report.html"),
		"qc_trimmed":    filepath.Join(runDir, "qc_trimmed", "multiqc_out", "multiqc_report.html"),
	}

	path, ok := resultFiles[resultType]
	if !ok {
		return "", fmt.Errorf("%w: invalid result type %s", models.ErrValidation, resultType)
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: result file not found: %s", models.ErrNotFound, resultType)
	}
	return path, nil
}

func flagExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
