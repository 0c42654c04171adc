package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusFinished.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, StatusQueued.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.False(t, StatusUnknown.Terminal())
}

func TestStatusNormalize(t *testing.T) {
	assert.Equal(t, StatusRunning, StatusRunning.Normalize())
	assert.Equal(t, StatusUnknown, Status("exploded").Normalize())
	assert.Equal(t, StatusUnknown, Status("").Normalize())
}

func TestParseArtifactKind(t *testing.T) {
	tests := []struct {
		name  string
		kind  string
		tag   string
		label string
	}{
		{
			name:  "tag with sublabel",
			kind:  "fastqc_plot_raw:per_base_quality",
			tag:   "fastqc_plot_raw",
			label: "per_base_quality",
		},
		{
			name:  "no delimiter falls back to full kind",
			kind:  "star_bam",
			tag:   "star_bam",
			label: "star_bam",
		},
		{
			name:  "empty sublabel",
			kind:  "fastqc_plot_post:",
			tag:   "fastqc_plot_post",
			label: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tag, label := ParseArtifactKind(tt.kind)
			assert.Equal(t, tt.tag, tag)
			assert.Equal(t, tt.label, label)
		})
	}
}

func TestJobDone(t *testing.T) {
	assert.False(t, (&Job{Status: StatusRunning, Progress: 45}).Done())
	assert.True(t, (&Job{Status: StatusRunning, Progress: 100}).Done())
	assert.True(t, (&Job{Status: StatusFailed, Progress: 60}).Done())
	assert.True(t, (&Job{Status: StatusFinished, Progress: 100}).Done())
}

func TestJobStage(t *testing.T) {
	job := &Job{Stages: []Stage{
		{Name: "pre_fastqc", Progress: 15},
		{Name: "trim_fastp", Progress: 45},
	}}

	st := job.Stage("trim_fastp")
	assert.NotNil(t, st)
	assert.Equal(t, 45.0, st.Progress)
	assert.Nil(t, job.Stage("align_star"))
}

func TestArtifactsByKind(t *testing.T) {
	job := &Job{Artifacts: []Artifact{
		{Kind: "fastqc_plot_raw:per_base_quality", Path: "/a.png"},
		{Kind: "fastqc_plot_raw:adapter_content", Path: "/b.png"},
		{Kind: "fastqc_plot_post:per_base_quality", Path: "/c.png"},
		{Kind: "star_bam", Path: "/d.bam"},
	}}

	raw := job.ArtifactsByKind("fastqc_plot_raw")
	assert.Len(t, raw, 2)
	assert.Len(t, job.ArtifactsByKind("star_bam"), 1)
	assert.Empty(t, job.ArtifactsByKind("counts_table"))
}
