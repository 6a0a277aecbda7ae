package models

// StageName identifies a step in the fixed pipeline.
type StageName string

const (
	StageQCRaw         StageName = "qc_raw"
	StageTrim          StageName = "trim"
	StageQCTrimmed     StageName = "qc_trimmed"
	StageStar          StageName = "star"
	StageFeatureCounts StageName = "featurecounts"
	StageDESeq2        StageName = "deseq2"
)

// StageOrder is the canonical pipeline order. Stage maps are serialized in
// this order and the /stages endpoint returns it verbatim.
var StageOrder = []StageName{
	StageQCRaw,
	StageTrim,
	StageQCTrimmed,
	StageStar,
	StageFeatureCounts,
	StageDESeq2,
}

// IsValidStage reports whether name is one of the canonical stages.
func IsValidStage(name string) bool {
	for _, s := range StageOrder {
		if string(s) == name {
			return true
		}
	}
	return false
}

// StageNames returns the canonical order as plain strings.
func StageNames() []string {
	names := make([]string, len(StageOrder))
	for i, s := range StageOrder {
		names[i] = string(s)
	}
	return names
}

// AdapterTypes lists the Trimmomatic adapter sets offered by the UI. The
// pipeline core passes adapter_type through to the template as an opaque
// string; this list is enforced only at the HTTP layer.
var AdapterTypes = []string{
	"NexteraPE-PE",
	"TruSeq2-PE",
	"TruSeq2-SE",
	"TruSeq3-PE",
	"TruSeq3-PE-2",
	"TruSeq3-SE",
}

// DefaultAdapterType is used when a run does not specify one.
const DefaultAdapterType = "NexteraPE-PE"

// IsValidAdapterType reports whether the adapter type is in the UI set.
func IsValidAdapterType(adapter string) bool {
	for _, a := range AdapterTypes {
		if a == adapter {
			return true
		}
	}
	return false
}
