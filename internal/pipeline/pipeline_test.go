package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/rnaseq-qc/internal/types"
)

func TestStageRegistryCheckpoints(t *testing.T) {
	want := map[string]float64{
		StagePreFastQC:     15,
		StageTrimFastp:     45,
		StagePostFastQC:    65,
		StageAlignSTAR:     85,
		StageFeatureCounts: 95,
		StageSummary:       100,
	}
	for name, checkpoint := range want {
		assert.Equal(t, checkpoint, Checkpoint(name), name)
	}
	assert.Equal(t, float64(0), Checkpoint("nonexistent"))
}

func TestStageOrderMonotonic(t *testing.T) {
	assert.Len(t, StageOrder, len(StageRegistry))

	last := float64(-1)
	for _, name := range StageOrder {
		def, ok := StageRegistry[name]
		assert.True(t, ok, "stage %s missing from registry", name)
		assert.Greater(t, def.Checkpoint, last, "checkpoints must increase along StageOrder")
		last = def.Checkpoint
	}
}

func TestStageDependenciesDeclared(t *testing.T) {
	for name, def := range StageRegistry {
		for _, dep := range def.Dependencies {
			_, ok := StageRegistry[dep]
			assert.True(t, ok, "stage %s depends on unknown stage %s", name, dep)
		}
	}
}

func TestReadPrefix(t *testing.T) {
	cases := map[string]string{
		"/data/storage/s1/R1.fastq.gz":  "R1",
		"R1.fastq":                      "R1",
		"sample_R2.fq.gz":               "sample_R2",
		"reads":                         "reads",
		"/data/qc/j/trim/R1_trimmed.fastq.gz": "R1_trimmed",
	}
	for in, want := range cases {
		assert.Equal(t, want, readPrefix(in), in)
	}
}

func TestStageStatus(t *testing.T) {
	assert.Equal(t, types.StatusFinished, stageStatus(StageSummary))
	assert.Equal(t, types.StatusRunning, stageStatus(StagePreFastQC))
	assert.Equal(t, types.StatusRunning, stageStatus(StageAlignSTAR))
}

func TestStringMetrics(t *testing.T) {
	got := stringMetrics(map[string]string{"Basic Statistics": "PASS"})
	assert.Equal(t, map[string]any{"Basic Statistics": "PASS"}, got)
	assert.Empty(t, stringMetrics(nil))
}
