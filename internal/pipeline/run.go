package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/rnaseq-qc/internal/config"
	"github.com/jonathan/rnaseq-qc/internal/qcparse"
	"github.com/jonathan/rnaseq-qc/internal/render"
	"github.com/jonathan/rnaseq-qc/internal/store"
	"github.com/jonathan/rnaseq-qc/internal/types"
)

// Runner executes the QC pipeline for queued runs.
type Runner struct {
	cfg   *config.Config
	store *store.Store
}

// NewRunner creates a Runner backed by the given config and store.
func NewRunner(cfg *config.Config, st *store.Store) *Runner {
	return &Runner{cfg: cfg, store: st}
}

// Run executes the full pipeline for the given job. Stage results and
// artifacts are written to the store as each stage completes; a tool
// failure emits a failed stage at progress 100 and stops the run. The
// returned error reports store-level problems only.
func (r *Runner) Run(ctx context.Context, jobID string) error {
	job, err := r.store.GetRun(ctx, jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("run %s not found", jobID)
	}

	if len(job.Sample.Files) == 0 {
		return r.failStage(ctx, jobID, "error", map[string]any{"error": "no FASTQ files"}, "")
	}

	threads := r.cfg.Threads
	if job.Params != nil {
		if t, ok := job.Params["threads"].(float64); ok && t > 0 {
			threads = int(t)
		}
	}

	r1 := job.Sample.Files[0]
	r2 := ""
	if len(job.Sample.Files) > 1 {
		r2 = job.Sample.Files[1]
	}

	work := filepath.Join(r.cfg.QCRoot, jobID)
	if err := os.MkdirAll(work, 0o755); err != nil {
		return fmt.Errorf("failed to create work directory: %w", err)
	}

	prefix := readPrefix(r1)

	// 1) FastQC on the raw reads
	rawDir := filepath.Join(work, "fastqc_raw")
	if err := os.MkdirAll(rawDir, 0o755); err != nil {
		return fmt.Errorf("failed to create fastqc_raw directory: %w", err)
	}
	r.runFastQC(ctx, rawDir, r1, r2)

	rawHTML := filepath.Join(rawDir, prefix+"_fastqc.html")
	rawExtract := filepath.Join(rawDir, prefix+"_fastqc")
	rawMetrics, err := qcparse.FastQCMetrics(filepath.Join(rawExtract, "summary.txt"), rawHTML)
	if err != nil {
		log.Printf("pipeline %s: fastqc summary parse: %v", jobID, err)
	}
	if err := r.emitStage(ctx, jobID, StagePreFastQC, stringMetrics(rawMetrics), rawHTML); err != nil {
		return err
	}
	if err := r.addFastQCPlots(ctx, jobID, filepath.Join(rawExtract, "Images"), "raw"); err != nil {
		return err
	}

	// 2) fastp trimming
	trimDir := filepath.Join(work, "trim")
	if err := os.MkdirAll(trimDir, 0o755); err != nil {
		return fmt.Errorf("failed to create trim directory: %w", err)
	}
	trimmedR1 := filepath.Join(trimDir, prefix+"_trimmed.fastq.gz")
	trimmedR2 := ""
	fastpHTML := filepath.Join(work, prefix+"_fastp.html")
	fastpJSON := filepath.Join(work, prefix+"_fastp.json")

	fastpArgs := []string{
		"-i", r1,
		"-o", trimmedR1,
		"-h", fastpHTML,
		"-j", fastpJSON,
		"-w", strconv.Itoa(threads),
	}
	if r2 != "" {
		trimmedR2 = filepath.Join(trimDir, prefix+"_trimmed_R2.fastq.gz")
		fastpArgs = append(fastpArgs, "-I", r2, "-O", trimmedR2)
	}
	if job.Params != nil {
		if adapter, ok := job.Params["adapter"].(string); ok && adapter != "" {
			fastpArgs = append(fastpArgs, "--adapter_sequence", adapter)
		}
		if minLen, ok := job.Params["min_read_length"].(float64); ok && minLen > 0 {
			fastpArgs = append(fastpArgs, "-l", strconv.Itoa(int(minLen)))
		}
	}
	if _, stderr, err := r.sh(ctx, "", "fastp", fastpArgs...); err != nil {
		log.Printf("pipeline %s: fastp: %v: %s", jobID, err, stderr)
	}

	if err := r.emitStage(ctx, jobID, StageTrimFastp, qcparse.FastpSummary(fastpJSON), fastpHTML); err != nil {
		return err
	}

	// 3) FastQC on the trimmed reads
	postDir := filepath.Join(work, "fastqc_post")
	if err := os.MkdirAll(postDir, 0o755); err != nil {
		return fmt.Errorf("failed to create fastqc_post directory: %w", err)
	}
	r.runFastQC(ctx, postDir, trimmedR1, "")

	postPrefix := readPrefix(trimmedR1)
	postHTML := filepath.Join(postDir, postPrefix+"_fastqc.html")
	postExtract := filepath.Join(postDir, postPrefix+"_fastqc")
	postMetrics, err := qcparse.FastQCMetrics(filepath.Join(postExtract, "summary.txt"), postHTML)
	if err != nil {
		log.Printf("pipeline %s: fastqc summary parse: %v", jobID, err)
	}
	if err := r.emitStage(ctx, jobID, StagePostFastQC, stringMetrics(postMetrics), postHTML); err != nil {
		return err
	}
	if err := r.addFastQCPlots(ctx, jobID, filepath.Join(postExtract, "Images"), "post"); err != nil {
		return err
	}

	// 4) STAR alignment
	starDir := filepath.Join(work, "star")
	if err := os.MkdirAll(starDir, 0o755); err != nil {
		return fmt.Errorf("failed to create star directory: %w", err)
	}
	starPrefix := filepath.Join(starDir, prefix)

	readFiles := []string{trimmedR1}
	if trimmedR2 != "" {
		readFiles = append(readFiles, trimmedR2)
	}
	starArgs := []string{
		"--runThreadN", strconv.Itoa(threads),
		"--genomeDir", r.cfg.STARGenomeDir,
		"--readFilesIn",
	}
	starArgs = append(starArgs, readFiles...)
	starArgs = append(starArgs,
		"--readFilesCommand", "gunzip", "-c",
		"--outSAMtype", "BAM", "SortedByCoordinate",
		"--outFileNamePrefix", starPrefix,
	)
	if _, stderr, err := r.sh(ctx, starDir, "STAR", starArgs...); err != nil {
		return r.failStage(ctx, jobID, StageAlignSTAR, map[string]any{"error": stderr}, starDir)
	}

	bam := starPrefix + "Aligned.sortedByCoord.out.bam"
	starMetrics, err := qcparse.ParseSTARLog(starPrefix + "Log.final.out")
	if err != nil {
		log.Printf("pipeline %s: STAR log parse: %v", jobID, err)
	}

	starReport := filepath.Join(starDir, "star_report.html")
	if err := render.WriteSTARReport(starReport, filepath.Base(bam), starMetrics); err != nil {
		log.Printf("pipeline %s: STAR report: %v", jobID, err)
	}

	if err := r.store.AddArtifact(ctx, jobID, "star_bam", bam); err != nil {
		return err
	}
	if err := r.store.AddArtifact(ctx, jobID, "star_report", starReport); err != nil {
		return err
	}
	if err := r.emitStage(ctx, jobID, StageAlignSTAR, stringMetrics(starMetrics), starReport); err != nil {
		return err
	}

	// 5) featureCounts quantification
	countsDir := filepath.Join(work, "counts")
	if err := os.MkdirAll(countsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create counts directory: %w", err)
	}
	countsOut := filepath.Join(countsDir, prefix+"_featurecounts.txt")

	fcArgs := []string{
		"-T", strconv.Itoa(threads),
		"-a", r.cfg.GTFPath,
		"-o", countsOut,
		bam,
	}
	if _, stderr, err := r.sh(ctx, countsDir, "featureCounts", fcArgs...); err != nil {
		return r.failStage(ctx, jobID, StageFeatureCounts, map[string]any{"error": stderr}, countsDir)
	}

	if err := r.store.AddArtifact(ctx, jobID, "counts_table", countsOut); err != nil {
		return err
	}
	if err := r.emitStage(ctx, jobID, StageFeatureCounts, map[string]any{"note": "featureCounts complete"}, countsOut); err != nil {
		return err
	}

	// 6) summary
	return r.emitStage(ctx, jobID, StageSummary, map[string]any{"status": "complete"}, work)
}

// runFastQC runs FastQC over one or two read files, the pair concurrently.
// FastQC failures are logged, not fatal: the stage still completes with
// whatever output exists.
func (r *Runner) runFastQC(ctx context.Context, outDir, r1, r2 string) {
	g, gctx := errgroup.WithContext(ctx)
	for _, reads := range []string{r1, r2} {
		if reads == "" {
			continue
		}
		g.Go(func() error {
			_, stderr, err := r.sh(gctx, "", "fastqc", reads, "-o", outDir, "--extract", "--quiet")
			if err != nil {
				log.Printf("pipeline: fastqc %s: %v: %s", filepath.Base(reads), err, stderr)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// sh runs an external tool, capturing stdout and stderr.
func (r *Runner) sh(ctx context.Context, dir, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// emitStage records a successfully completed stage at its registry
// checkpoint.
func (r *Runner) emitStage(ctx context.Context, jobID, name string, metrics map[string]any, artifact string) error {
	return r.store.AppendStage(ctx, jobID, types.Stage{
		Name:     name,
		Status:   stageStatus(name),
		Progress: Checkpoint(name),
		Metrics:  metrics,
		Artifact: artifact,
	})
}

// failStage records a failed stage at progress 100, ending the run.
func (r *Runner) failStage(ctx context.Context, jobID, name string, metrics map[string]any, artifact string) error {
	return r.store.AppendStage(ctx, jobID, types.Stage{
		Name:     name,
		Status:   types.StatusFailed,
		Progress: 100,
		Metrics:  metrics,
		Artifact: artifact,
	})
}

// addFastQCPlots records one artifact per FastQC plot image, tagged with
// the invocation ("raw" or "post") and the image stem as the sublabel.
func (r *Runner) addFastQCPlots(ctx context.Context, jobID, imagesDir, tag string) error {
	entries, err := os.ReadDir(imagesDir)
	if err != nil {
		// No extracted images; nothing to record.
		return nil
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".png") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		stem := strings.TrimSuffix(name, ".png")
		kind := fmt.Sprintf("fastqc_plot_%s:%s", tag, stem)
		if err := r.store.AddArtifact(ctx, jobID, kind, filepath.Join(imagesDir, name)); err != nil {
			return err
		}
	}
	return nil
}

// stageStatus returns the stage status recorded for a cleanly completed
// stage: the terminal summary stage finishes the run, everything else
// leaves it running.
func stageStatus(name string) types.Status {
	if name == StageSummary {
		return types.StatusFinished
	}
	return types.StatusRunning
}

// readPrefix strips up to two extensions from a read file name, so
// "R1.fastq.gz" and "R1.fastq" both yield "R1".
func readPrefix(path string) string {
	name := filepath.Base(path)
	for range 2 {
		ext := filepath.Ext(name)
		if ext == "" {
			break
		}
		name = strings.TrimSuffix(name, ext)
	}
	return name
}

// stringMetrics widens a string map into the metrics shape stored on a
// stage.
func stringMetrics(in map[string]string) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
