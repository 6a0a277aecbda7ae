// Package validation performs stage preflight checks against the on-disk
// run directory: inputs present, dependencies satisfied, references
// resolvable. The rerun guard itself lives in the controller; a completed
// stage still validates clean here.
package validation

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/expressdiff/expressdiff/internal/common"
	"github.com/expressdiff/expressdiff/internal/models"
	"github.com/expressdiff/expressdiff/internal/pipeline"
)

// StageValidator checks stage prerequisites from disk artifacts.
type StageValidator struct {
	paths  *common.Paths
	logger arbor.ILogger
}

// NewStageValidator creates a validator rooted at the resolved paths.
func NewStageValidator(paths *common.Paths, logger arbor.ILogger) *StageValidator {
	return &StageValidator{paths: paths, logger: logger}
}

// Validate runs the general dependency rule plus the stage-specific input
// checks and returns the combined result.
func (v *StageValidator) Validate(run *models.Run, stage *pipeline.Stage) *models.StageValidation {
	result := &models.StageValidation{
		Errors:   []string{},
		Warnings: []string{},
		Stage:    string(stage.Name),
		RunID:    run.RunID,
	}
	runDir := v.paths.RunDir(run.RunID)

	for _, dep := range stage.DependsOn {
		depStage := pipeline.Get(dep)
		if _, err := os.Stat(depStage.DoneFlagPath(runDir)); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("dependency %s not completed", dep))
		}
	}

	switch stage.Name {
	case models.StageQCRaw:
		v.checkRawFastq(runDir, result)
	case models.StageTrim:
		v.checkRawFastq(runDir, result)
		if run.Parameters["adapter_type"] == "" {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("no adapter type specified, default %s will be used", models.DefaultAdapterType))
		}
	case models.StageQCTrimmed:
		paired := glob(runDir, "trimmed/*_paired.fq.gz")
		if len(paired) == 0 {
			result.Errors = append(result.Errors, "no trimmed paired FASTQ files found in trimmed/")
		}
	case models.StageStar:
		v.checkTrimmedPairs(runDir, result)
		v.checkReference(runDir, true, result)
	case models.StageFeatureCounts:
		if len(glob(runDir, "star/*.bam")) == 0 {
			result.Errors = append(result.Errors, "no alignment BAM files found in star/")
		}
		v.checkReference(runDir, false, result)
	case models.StageDESeq2:
		v.checkDESeq2Inputs(runDir, result)
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// checkRawFastq verifies raw/ holds at least one FASTQ pair and warns on
// odd file counts.
func (v *StageValidator) checkRawFastq(runDir string, result *models.StageValidation) {
	fastq := append(glob(runDir, "raw/*.fq.gz"), glob(runDir, "raw/*.fastq.gz")...)
	if len(fastq) == 0 {
		result.Errors = append(result.Errors, "no FASTQ files found in raw/")
		return
	}
	if len(fastq)%2 != 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("found %d FASTQ files, expected pairs (even number)", len(fastq)))
	}
}

// checkTrimmedPairs verifies equal counts of forward and reverse trimmed
// read files.
func (v *StageValidator) checkTrimmedPairs(runDir string, result *models.StageValidation) {
	forward := glob(runDir, "trimmed/*_forward_paired.fq.gz")
	reverse := glob(runDir, "trimmed/*_reverse_paired.fq.gz")
	if len(forward) == 0 {
		result.Errors = append(result.Errors, "no forward paired FASTQ files found in trimmed/")
	}
	if len(reverse) == 0 {
		result.Errors = append(result.Errors, "no reverse paired FASTQ files found in trimmed/")
	}
	if len(forward) > 0 && len(reverse) > 0 && len(forward) != len(reverse) {
		result.Errors = append(result.Errors,
			fmt.Sprintf("mismatch: %d forward files vs %d reverse files", len(forward), len(reverse)))
	}
}

// checkReference resolves FASTA/GTF references. Run-local reference/ takes
// precedence over the shared mapping_in/ directory.
func (v *StageValidator) checkReference(runDir string, needFasta bool, result *models.StageValidation) {
	if needFasta {
		fasta := append(glob(runDir, "reference/*.fa"), glob(runDir, "reference/*.fasta")...)
		if len(fasta) == 0 {
			fasta = append(glob(v.paths.SharedRefDir, "*.fa"), glob(v.paths.SharedRefDir, "*.fasta")...)
		}
		if len(fasta) == 0 {
			result.Errors = append(result.Errors,
				"no reference genome FASTA file (.fa or .fasta) found in reference/ or mapping_in/")
		}
	}

	gtf := glob(runDir, "reference/*.gtf")
	if len(gtf) == 0 {
		gtf = glob(v.paths.SharedRefDir, "*.gtf")
	}
	if len(gtf) == 0 {
		result.Errors = append(result.Errors,
			"no gene annotation GTF file (.gtf) found in reference/ or mapping_in/")
	}
}

// checkDESeq2Inputs verifies the counts matrix and a usable metadata sheet
// with at least two distinct conditions.
func (v *StageValidator) checkDESeq2Inputs(runDir string, result *models.StageValidation) {
	if _, err := os.Stat(filepath.Join(runDir, "featurecounts", "counts.txt")); err != nil {
		result.Errors = append(result.Errors, "featurecounts/counts.txt not found")
	}

	metadataPath := filepath.Join(runDir, "metadata", "metadata.csv")
	f, err := os.Open(metadataPath)
	if err != nil {
		result.Errors = append(result.Errors, "metadata/metadata.csv not found")
		return
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil || len(records) == 0 {
		result.Errors = append(result.Errors, "metadata/metadata.csv is not parseable CSV")
		return
	}

	header := records[0]
	sampleCol, conditionCol := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "sample_name":
			sampleCol = i
		case "condition":
			conditionCol = i
		}
	}
	if sampleCol < 0 || conditionCol < 0 {
		result.Errors = append(result.Errors, "metadata header must contain sample_name and condition columns")
		return
	}

	replicates := map[string]int{}
	for _, row := range records[1:] {
		if conditionCol >= len(row) {
			continue
		}
		condition := strings.TrimSpace(row[conditionCol])
		if condition != "" {
			replicates[condition]++
		}
	}
	if len(replicates) < 2 {
		result.Errors = append(result.Errors, "metadata must define at least 2 distinct condition values")
		return
	}
	for condition, count := range replicates {
		if count < 2 {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("condition %s has fewer than 2 replicates", condition))
		}
	}
}

func glob(dir, pattern string) []string {
	matches, err := filepath.Glob(filepath.Join(dir, filepath.FromSlash(pattern)))
	if err != nil {
		return nil
	}
	return matches
}
