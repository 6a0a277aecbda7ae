// Package pipeline defines the fixed RNA-seq stage graph: dependencies,
// done-flags, templates, and rerun cleanup rules. The registry is closed;
// lookups outside it are programming errors surfaced as unknown-stage.
package pipeline

import (
	"path/filepath"

	"github.com/expressdiff/expressdiff/internal/models"
)

// Stage describes one pipeline step. All paths and globs are relative to
// the run directory.
type Stage struct {
	Name         models.StageName
	DependsOn    []models.StageName
	DoneFlag     string   // Presence authoritatively marks completion
	TemplateName string   // File under <install>/slurm_templates/
	CleanupGlobs []string // Primary outputs removed on confirmed rerun
	KeepPaths    []string // Subtrees preserved during cleanup (e.g. genome index)
}

// registry holds the closed stage set, built once at program start.
var registry = map[models.StageName]*Stage{
	models.StageQCRaw: {
		Name:         models.StageQCRaw,
		DoneFlag:     "qc_raw/qc_raw_done.flag",
		TemplateName: "qc_raw.slurm.template",
		CleanupGlobs: []string{
			"qc_raw/fastqc_out",
			"qc_raw/multiqc_out",
		},
	},
	models.StageTrim: {
		Name:         models.StageTrim,
		DependsOn:    []models.StageName{models.StageQCRaw},
		DoneFlag:     "trimmed/trimming_done.flag",
		TemplateName: "trim.slurm.template",
		CleanupGlobs: []string{
			"trimmed/*_paired.fq.gz",
			"trimmed/*_unpaired.fq.gz",
		},
	},
	models.StageQCTrimmed: {
		Name:         models.StageQCTrimmed,
		DependsOn:    []models.StageName{models.StageTrim},
		DoneFlag:     "qc_trimmed/qc_trimmed_done.flag",
		TemplateName: "qc_trimmed.slurm.template",
		CleanupGlobs: []string{
			"qc_trimmed/fastqc_out",
			"qc_trimmed/multiqc_out",
		},
	},
	models.StageStar: {
		Name:         models.StageStar,
		DependsOn:    []models.StageName{models.StageTrim},
		DoneFlag:     "star/star_alignment_done.flag",
		TemplateName: "star.slurm.template",
		CleanupGlobs: []string{
			"star/*.bam",
			"star/*_Log.final.out",
			"star/*_Log.out",
			"star/*_Log.progress.out",
			"star/*_SJ.out.tab",
		},
		KeepPaths: []string{"star/genome_index"},
	},
	models.StageFeatureCounts: {
		Name:         models.StageFeatureCounts,
		DependsOn:    []models.StageName{models.StageStar},
		DoneFlag:     "featurecounts/featurecounts_done.flag",
		TemplateName: "featurecounts.slurm.template",
		CleanupGlobs: []string{
			"featurecounts/counts.txt",
			"featurecounts/counts.txt.summary",
		},
	},
	models.StageDESeq2: {
		Name:         models.StageDESeq2,
		DependsOn:    []models.StageName{models.StageFeatureCounts},
		DoneFlag:     "logs/deseq2_done.flag",
		TemplateName: "deseq2.slurm.template",
		CleanupGlobs: []string{
			"deseq2/*.csv",
			"deseq2/summary.txt",
		},
	},
}

// Get returns the stage descriptor, or nil if the name is not canonical.
func Get(name models.StageName) *Stage {
	return registry[name]
}

// Lookup resolves a stage by its string name.
func Lookup(name string) (*Stage, bool) {
	s, ok := registry[models.StageName(name)]
	return s, ok
}

// All returns the stages in canonical order.
func All() []*Stage {
	stages := make([]*Stage, 0, len(models.StageOrder))
	for _, name := range models.StageOrder {
		stages = append(stages, registry[name])
	}
	return stages
}

// DoneFlagPath returns the absolute done-flag path for a stage inside a
// run directory.
func (s *Stage) DoneFlagPath(runDir string) string {
	return filepath.Join(runDir, filepath.FromSlash(s.DoneFlag))
}

// RunSubdirs is the directory skeleton created for every new run. All
// stage I/O lives under these.
var RunSubdirs = []string{
	"raw",
	"reference",
	"metadata",
	"trimmed",
	"trimmed/logs",
	"qc_raw",
	"qc_trimmed",
	"star",
	"star/logs",
	"featurecounts",
	"featurecounts/logs",
	"counts",
	"deseq2",
	"logs",
}
