// Package observability provides formatted terminal output for the CLI's
// status and watch views.
package observability

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/jonathan/rnaseq-qc/internal/render"
	"github.com/jonathan/rnaseq-qc/internal/types"
)

const (
	// progressBarWidth is the character width of the progress bar.
	progressBarWidth = 40
)

// Printer handles formatted output for the status and watch commands.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// PrintJob renders a full job snapshot: header, progress bar, one metric
// table per pipeline stage, plot galleries, and download links. Each call
// rewrites the whole view; the watch command prints a fresh snapshot per
// poll.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintJob(job *types.Job, buildURL render.URLBuilder) {
	fmt.Fprintf(p.out, "Job %s  sample=%s  status=%s\n", job.ID, job.Sample.Name, job.Status.Normalize())
	p.printProgressBar(job.Progress)
	fmt.Fprintln(p.out)

	for _, ds := range render.DisplayStages {
		fmt.Fprintf(p.out, "%s\n", ds.Title)
		p.printStage(job.Stage(ds.Name))
		fmt.Fprintln(p.out)
	}

	for _, gallery := range render.Galleries(job, buildURL) {
		fmt.Fprintf(p.out, "Plots (%s):\n", gallery.Tag)
		for _, item := range gallery.Items {
			fmt.Fprintf(p.out, "  %-28s %s\n", item.Label, item.URL)
		}
		fmt.Fprintln(p.out)
	}

	links := render.DownloadLinks(job, buildURL)
	if len(links) > 0 {
		fmt.Fprintln(p.out, "Downloads:")
		for _, link := range links {
			fmt.Fprintf(p.out, "  %-28s %s\n", link.Label, link.URL)
		}
	}
}

// PrintRunList renders the summary table for the run listing.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintRunList(runs []types.Job) {
	if len(runs) == 0 {
		fmt.Fprintln(p.out, render.PlaceholderNoData)
		return
	}
	tw := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSAMPLE\tSTATUS\tPROGRESS\tCREATED")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.0f%%\t%s\n",
			run.ID, run.Sample.Name, run.Status.Normalize(), run.Progress, run.CreatedAt)
	}
	tw.Flush()
}

// printStage renders one stage's metric table, or the no-data placeholder
// when the stage is missing or has no metrics.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printStage(stage *types.Stage) {
	if stage == nil || len(stage.Metrics) == 0 {
		fmt.Fprintf(p.out, "  %s\n", render.PlaceholderNoData)
		return
	}

	tw := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
	for _, key := range render.SortedMetricKeys(stage.Metrics) {
		fmt.Fprintf(tw, "  %s\t%v\n", key, stage.Metrics[key])
	}
	tw.Flush()
}

//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printProgressBar(progress float64) {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	filled := int(progress / 100 * progressBarWidth)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", progressBarWidth-filled)
	fmt.Fprintf(p.out, "[%s] %3.0f%%\n", bar, progress)
}
