package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/rnaseq-qc/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndGetRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sample := types.Sample{Name: "patient1", Files: []string{"/data/storage/patient1/R1.fastq.gz", "/data/storage/patient1/R2.fastq.gz"}}
	params := types.RunParams{Threads: 4, Adapter: "AGATCGGAAGAGC"}
	require.NoError(t, s.CreateRun(ctx, "abc123", sample, params))

	job, err := s.GetRun(ctx, "abc123")
	require.NoError(t, err)
	require.NotNil(t, job)

	assert.Equal(t, "abc123", job.ID)
	assert.Equal(t, types.StatusQueued, job.Status)
	assert.Equal(t, float64(0), job.Progress)
	assert.Equal(t, sample.Name, job.Sample.Name)
	assert.Equal(t, sample.Files, job.Sample.Files)
	assert.Equal(t, float64(4), job.Params["threads"])
	assert.Equal(t, "AGATCGGAAGAGC", job.Params["adapter"])
	assert.Empty(t, job.Stages)
	assert.Empty(t, job.Artifacts)
	assert.NotEmpty(t, job.CreatedAt)
}

func TestGetRun_Unknown(t *testing.T) {
	s := newTestStore(t)

	job, err := s.GetRun(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestAppendStage_AdvancesRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateRun(ctx, "run1", types.Sample{Name: "s1", Files: []string{"r1.fq"}}, types.RunParams{}))

	require.NoError(t, s.AppendStage(ctx, "run1", types.Stage{
		Name:     "pre_fastqc",
		Status:   types.StatusRunning,
		Progress: 15,
		Metrics:  map[string]any{"R1": map[string]string{"Basic Statistics": "PASS"}},
	}))

	job, err := s.GetRun(ctx, "run1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusRunning, job.Status)
	assert.Equal(t, float64(15), job.Progress)
	require.Len(t, job.Stages, 1)
	assert.Equal(t, "pre_fastqc", job.Stages[0].Name)
	assert.NotEmpty(t, job.Stages[0].Time)
	assert.Contains(t, job.Stages[0].Metrics, "R1")

	require.NoError(t, s.AppendStage(ctx, "run1", types.Stage{
		Name:     "summary",
		Status:   types.StatusFinished,
		Progress: 100,
	}))

	job, err = s.GetRun(ctx, "run1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusFinished, job.Status)
	assert.Equal(t, float64(100), job.Progress)
	require.Len(t, job.Stages, 2)
	// Nil metrics are stored as an empty object.
	assert.Equal(t, map[string]any{}, job.Stages[1].Metrics)
}

func TestAppendStage_FailedStageFailsRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateRun(ctx, "run1", types.Sample{Name: "s1", Files: []string{"r1.fq"}}, types.RunParams{}))
	require.NoError(t, s.AppendStage(ctx, "run1", types.Stage{
		Name:     "align_star",
		Status:   types.StatusFailed,
		Progress: 100,
		Metrics:  map[string]any{"error": "STAR exited with code 1"},
	}))

	job, err := s.GetRun(ctx, "run1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailed, job.Status)
	assert.True(t, job.Done())
}

func TestAddArtifact(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateRun(ctx, "run1", types.Sample{Name: "s1", Files: []string{"r1.fq"}}, types.RunParams{}))
	require.NoError(t, s.AddArtifact(ctx, "run1", "star_bam", "/data/qc/run1/Aligned.sortedByCoord.out.bam"))
	require.NoError(t, s.AddArtifact(ctx, "run1", "fastqc_plot_raw:per_base_quality", "/data/qc/run1/fastqc_raw/Images/per_base_quality.png"))

	job, err := s.GetRun(ctx, "run1")
	require.NoError(t, err)
	require.Len(t, job.Artifacts, 2)
	assert.Equal(t, "star_bam", job.Artifacts[0].Kind)
	assert.Equal(t, "fastqc_plot_raw:per_base_quality", job.Artifacts[1].Kind)
}

func TestListRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	assert.Empty(t, runs)

	require.NoError(t, s.CreateRun(ctx, "run1", types.Sample{Name: "s1", Files: []string{"a"}}, types.RunParams{}))
	require.NoError(t, s.CreateRun(ctx, "run2", types.Sample{Name: "s2", Files: []string{"b"}}, types.RunParams{}))

	runs, err = s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	ids := []string{runs[0].ID, runs[1].ID}
	assert.ElementsMatch(t, []string{"run1", "run2"}, ids)
}

func TestUpdateRunStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateRun(ctx, "run1", types.Sample{Name: "s1", Files: []string{"a"}}, types.RunParams{}))
	require.NoError(t, s.UpdateRunStatus(ctx, "run1", types.StatusRunning))

	job, err := s.GetRun(ctx, "run1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusRunning, job.Status)
}
