// Package render builds the visual representations of a job snapshot: the
// HTML report pages and the gallery/download-link groupings shared with
// the terminal status view.
package render

import (
	"sort"

	"github.com/jonathan/rnaseq-qc/internal/types"
)

// PlaceholderNoData is rendered wherever a stage or artifact has no
// recorded data. Missing data is an expected state, never an error.
const PlaceholderNoData = "no data recorded"

// URLBuilder maps an opaque artifact path to a retrievable URL. The
// builder is responsible for percent-encoding the path.
type URLBuilder func(path string) string

// DisplayStage pairs a stage name with its human-readable section title,
// in report order.
type DisplayStage struct {
	Name  string
	Title string
}

// DisplayStages lists the stages the report renders, in order. A job that
// has not reached a stage gets a placeholder section.
var DisplayStages = []DisplayStage{
	{Name: "pre_fastqc", Title: "Raw read QC (FastQC)"},
	{Name: "trim_fastp", Title: "Trimming (fastp)"},
	{Name: "post_fastqc", Title: "Post-trim QC (FastQC)"},
	{Name: "align_star", Title: "Alignment (STAR)"},
	{Name: "featurecounts", Title: "Counting (featureCounts)"},
}

// galleryTags are the artifact kind tags rendered as image galleries.
var galleryTags = []string{"fastqc_plot_raw", "fastqc_plot_post"}

// downloadKinds are the artifact kinds rendered as direct download links.
var downloadKinds = map[string]string{
	"star_bam":     "Aligned BAM",
	"star_report":  "STAR report",
	"counts_table": "Counts table",
}

// GalleryItem is one image in a gallery: its sublabel and retrievable URL.
type GalleryItem struct {
	Label string
	URL   string
}

// Gallery groups the image artifacts sharing one kind tag.
type Gallery struct {
	Tag   string
	Items []GalleryItem
}

// Link is a labelled direct download.
type Link struct {
	Label string
	URL   string
}

// Galleries groups a job's image artifacts by kind tag. Tags without any
// artifacts are omitted.
func Galleries(job *types.Job, buildURL URLBuilder) []Gallery {
	var out []Gallery
	for _, tag := range galleryTags {
		artifacts := job.ArtifactsByKind(tag)
		if len(artifacts) == 0 {
			continue
		}
		g := Gallery{Tag: tag}
		for _, a := range artifacts {
			_, label := types.ParseArtifactKind(a.Kind)
			g.Items = append(g.Items, GalleryItem{Label: label, URL: buildURL(a.Path)})
		}
		out = append(out, g)
	}
	return out
}

// DownloadLinks returns the direct download links for a job's single-file
// artifacts (BAM, counts table, HTML reports).
func DownloadLinks(job *types.Job, buildURL URLBuilder) []Link {
	var out []Link
	for _, a := range job.Artifacts {
		tag, _ := types.ParseArtifactKind(a.Kind)
		label, ok := downloadKinds[tag]
		if !ok {
			continue
		}
		out = append(out, Link{Label: label, URL: buildURL(a.Path)})
	}
	return out
}

// SortedMetricKeys returns the metric names of a stage in stable order.
func SortedMetricKeys(metrics map[string]any) []string {
	keys := make([]string, 0, len(metrics))
	for k := range metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
