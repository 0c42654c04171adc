package render

import (
	"fmt"
	"html/template"
	"io"
	"os"

	"github.com/jonathan/rnaseq-qc/internal/types"
)

// starReportTemplate is the standalone report written next to the STAR
// output during the alignment stage.
var starReportTemplate = template.Must(template.New("star_report").Parse(`<html><head><title>STAR Report</title>
<style>table{border-collapse:collapse}td,th{border:1px solid #ccc;padding:4px}</style>
</head><body>
<h2>STAR Alignment</h2><p>BAM: {{.BAM}}</p>
<table><tr><th>Metric</th><th>Value</th></tr>
{{- range .Rows}}
<tr><td>{{.Key}}</td><td>{{.Value}}</td></tr>
{{- end}}
</table></body></html>
`))

type metricRow struct {
	Key   string
	Value any
}

// WriteSTARReport writes the static STAR alignment report to path.
func WriteSTARReport(path, bamName string, metrics map[string]string) error {
	widened := make(map[string]any, len(metrics))
	for k, v := range metrics {
		widened[k] = v
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create STAR report: %w", err)
	}
	defer f.Close()

	data := struct {
		BAM  string
		Rows []metricRow
	}{BAM: bamName, Rows: metricRows(widened)}

	if err := starReportTemplate.Execute(f, data); err != nil {
		return fmt.Errorf("failed to render STAR report: %w", err)
	}
	return nil
}

// jobReportTemplate renders a full job record as a self-contained HTML
// page: status header, one section per pipeline stage, plot galleries,
// and download links.
var jobReportTemplate = template.Must(template.New("job_report").Parse(`<!DOCTYPE html>
<html><head><title>QC Report — {{.Job.Sample.Name}}</title>
<style>
body{font-family:sans-serif;margin:2em;max-width:64em}
table{border-collapse:collapse;margin:0.5em 0}
td,th{border:1px solid #ccc;padding:4px 8px;text-align:left}
.placeholder{color:#777;font-style:italic}
.badge{display:inline-block;padding:2px 8px;border-radius:4px;color:#fff}
.badge.finished{background:#2a7d2a}.badge.failed{background:#b03030}
.badge.running,.badge.queued{background:#b08030}.badge.unknown{background:#666}
.progress{background:#eee;width:24em;height:1em;border-radius:4px}
.progress>div{background:#4a7db0;height:100%;border-radius:4px}
.gallery img{max-width:20em;margin:0.5em}
</style></head><body>
<h1>RNA-seq QC report</h1>
<p>Sample: <strong>{{.Job.Sample.Name}}</strong>
&nbsp; Status: <span class="badge {{.Status}}">{{.Status}}</span></p>
<div class="progress"><div style="width:{{printf "%.0f" .Job.Progress}}%"></div></div>
{{range .Sections}}
<h2>{{.Title}}</h2>
{{- if .Rows}}
<table><tr><th>Metric</th><th>Value</th></tr>
{{- range .Rows}}
<tr><td>{{.Key}}</td><td>{{.Value}}</td></tr>
{{- end}}
</table>
{{- else}}
<p class="placeholder">{{$.Placeholder}}</p>
{{- end}}
{{end}}
{{range .Galleries}}
<h2>Plots: {{.Tag}}</h2>
<div class="gallery">
{{- range .Items}}
<figure style="display:inline-block"><img src="{{.URL}}" alt="{{.Label}}"><figcaption>{{.Label}}</figcaption></figure>
{{- end}}
</div>
{{end}}
{{if .Links}}
<h2>Downloads</h2>
<ul>
{{- range .Links}}
<li><a href="{{.URL}}">{{.Label}}</a></li>
{{- end}}
</ul>
{{else}}
<p class="placeholder">{{.Placeholder}}</p>
{{end}}
</body></html>
`))

type reportSection struct {
	Title string
	Rows  []metricRow
}

// JobReport renders the full HTML report for a job snapshot. buildURL
// turns artifact paths into retrievable URLs for images and downloads.
func JobReport(w io.Writer, job *types.Job, buildURL URLBuilder) error {
	sections := make([]reportSection, 0, len(DisplayStages))
	for _, ds := range DisplayStages {
		section := reportSection{Title: ds.Title}
		if st := job.Stage(ds.Name); st != nil {
			section.Rows = metricRows(st.Metrics)
		}
		sections = append(sections, section)
	}

	data := struct {
		Job         *types.Job
		Status      types.Status
		Sections    []reportSection
		Galleries   []Gallery
		Links       []Link
		Placeholder string
	}{
		Job:         job,
		Status:      job.Status.Normalize(),
		Sections:    sections,
		Galleries:   Galleries(job, buildURL),
		Links:       DownloadLinks(job, buildURL),
		Placeholder: PlaceholderNoData,
	}

	if err := jobReportTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render job report: %w", err)
	}
	return nil
}

// metricRows flattens a metrics map into sorted key/value rows. Nested
// values render with %v; their semantics are opaque here.
func metricRows(metrics map[string]any) []metricRow {
	rows := make([]metricRow, 0, len(metrics))
	for _, k := range SortedMetricKeys(metrics) {
		rows = append(rows, metricRow{Key: k, Value: fmt.Sprintf("%v", metrics[k])})
	}
	return rows
}
