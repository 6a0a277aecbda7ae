package models

// FeatureCountsStat is one row of the counts summary table, keyed by the
// sample names taken from the header.
type FeatureCountsStat struct {
	Category string           `json:"category"`
	Samples  map[string]int64 `json:"samples"`
}

// FeatureCountsSummary is the parsed counts.txt.summary.
type FeatureCountsSummary struct {
	Summary     []FeatureCountsStat `json:"summary"`
	SampleNames []string            `json:"sample_names"`
	FilePath    string              `json:"file_path"`
}

// DESeq2Results bundles the parsed differential-expression outputs. Keys in
// AvailableFiles are the fixed download types; only files present on disk
// appear.
type DESeq2Results struct {
	Summary         map[string]string `json:"summary"`
	SignificantDEGs []map[string]any  `json:"significant_degs"`
	NumSignificant  int               `json:"num_significant"`
	AvailableFiles  map[string]string `json:"available_files"`
}

// QCFile is one downloadable quality-control artifact.
type QCFile struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// QCStageReport summarizes the QC artifacts of one QC stage.
type QCStageReport struct {
	Completed        bool     `json:"completed"`
	MultiQCAvailable bool     `json:"multiqc_available"`
	FastQCAvailable  bool     `json:"fastqc_available"`
	Files            []QCFile `json:"files"`
}
