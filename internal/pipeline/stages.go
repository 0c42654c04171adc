// Package pipeline orchestrates the RNA-seq QC pipeline: FastQC on the raw
// reads, fastp trimming, FastQC on the trimmed reads, STAR alignment, and
// featureCounts quantification, with every stage recorded in the store.
package pipeline

// Stage categories group related stages for display purposes.
const (
	CategoryQC        = "qc"
	CategoryTrimming  = "trimming"
	CategoryAlignment = "alignment"
	CategoryCounting  = "counting"
	CategorySummary   = "summary"
)

// Stage names as they appear in job snapshots.
const (
	StagePreFastQC     = "pre_fastqc"
	StageTrimFastp     = "trim_fastp"
	StagePostFastQC    = "post_fastqc"
	StageAlignSTAR     = "align_star"
	StageFeatureCounts = "featurecounts"
	StageSummary       = "summary"
)

// StageDefinition defines metadata for a pipeline stage.
type StageDefinition struct {
	Name string
	// Category groups the stage for rendering.
	Category string
	// Checkpoint is the overall job progress reached when the stage
	// completes.
	Checkpoint float64
	// Dependencies are the stages that must have completed first.
	Dependencies []string
}

// StageOrder lists all pipeline stages in execution order.
var StageOrder = []string{
	StagePreFastQC,
	StageTrimFastp,
	StagePostFastQC,
	StageAlignSTAR,
	StageFeatureCounts,
	StageSummary,
}

// StageRegistry holds all stage definitions keyed by name.
var StageRegistry = map[string]StageDefinition{
	StagePreFastQC: {
		Name:       StagePreFastQC,
		Category:   CategoryQC,
		Checkpoint: 15,
	},
	StageTrimFastp: {
		Name:         StageTrimFastp,
		Category:     CategoryTrimming,
		Checkpoint:   45,
		Dependencies: []string{StagePreFastQC},
	},
	StagePostFastQC: {
		Name:         StagePostFastQC,
		Category:     CategoryQC,
		Checkpoint:   65,
		Dependencies: []string{StageTrimFastp},
	},
	StageAlignSTAR: {
		Name:         StageAlignSTAR,
		Category:     CategoryAlignment,
		Checkpoint:   85,
		Dependencies: []string{StageTrimFastp},
	},
	StageFeatureCounts: {
		Name:         StageFeatureCounts,
		Category:     CategoryCounting,
		Checkpoint:   95,
		Dependencies: []string{StageAlignSTAR},
	},
	StageSummary: {
		Name:         StageSummary,
		Category:     CategorySummary,
		Checkpoint:   100,
		Dependencies: []string{StageFeatureCounts},
	},
}

// Checkpoint returns the progress checkpoint for a stage name, or 0 for an
// unknown stage.
func Checkpoint(name string) float64 {
	return StageRegistry[name].Checkpoint
}
