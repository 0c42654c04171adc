// Package types provides type definitions for jobs, stages, and artifacts
// shared between the server, the pipeline, and the polling client.
package types

import "strings"

// Status represents the lifecycle state of a job or stage.
type Status string

const (
	StatusQueued   Status = "queued"
	StatusRunning  Status = "running"
	StatusFinished Status = "finished"
	StatusFailed   Status = "failed"
	StatusUnknown  Status = "unknown"
)

// Terminal reports whether the status is an end state; a terminal job
// receives no further stage updates.
func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusFailed
}

// Normalize maps unrecognized status strings to StatusUnknown so renderers
// never have to deal with free-form values.
func (s Status) Normalize() Status {
	switch s {
	case StatusQueued, StatusRunning, StatusFinished, StatusFailed:
		return s
	default:
		return StatusUnknown
	}
}

// Sample is a named set of uploaded FASTQ files.
type Sample struct {
	Name  string   `json:"name"`
	Files []string `json:"files"`
}

// Stage is one named step of the pipeline with its metrics and an optional
// artifact reference. Metric values are either strings or nested mappings;
// their semantics are opaque to everything but the renderer.
type Stage struct {
	Name     string         `json:"name"`
	Status   Status         `json:"status"`
	Progress float64        `json:"progress"`
	Time     string         `json:"time"`
	Metrics  map[string]any `json:"metrics"`
	Artifact string         `json:"artifact,omitempty"`
}

// Artifact is an output file produced by the pipeline, retrievable through
// the artifact endpoint by its opaque path.
type Artifact struct {
	Kind string `json:"kind"`
	Path string `json:"path"`
}

// Job is a server-tracked pipeline execution. Clients never mutate a Job;
// each successful status poll replaces the whole snapshot.
type Job struct {
	ID        string         `json:"id"`
	CreatedAt string         `json:"created_at"`
	Status    Status         `json:"status"`
	Progress  float64        `json:"progress"`
	Sample    Sample         `json:"sample"`
	Params    map[string]any `json:"params,omitempty"`
	Stages    []Stage        `json:"stages"`
	Artifacts []Artifact     `json:"artifacts"`
}

// Done reports whether polling for this job should stop.
func (j *Job) Done() bool {
	return j.Progress >= 100 || j.Status.Terminal()
}

// Stage returns the stage with the given name, or nil if the job has not
// reached it. Stage names are unique within a job.
func (j *Job) Stage(name string) *Stage {
	for i := range j.Stages {
		if j.Stages[i].Name == name {
			return &j.Stages[i]
		}
	}
	return nil
}

// ArtifactsByKind returns all artifacts whose kind starts with the given tag.
func (j *Job) ArtifactsByKind(tag string) []Artifact {
	var out []Artifact
	for _, a := range j.Artifacts {
		if t, _ := ParseArtifactKind(a.Kind); t == tag {
			out = append(out, a)
		}
	}
	return out
}

// ParseArtifactKind splits an artifact kind into its tag and sublabel,
// e.g. "fastqc_plot_raw:per_base_quality" -> ("fastqc_plot_raw",
// "per_base_quality"). A kind without a delimiter yields the full kind
// string as the label.
func ParseArtifactKind(kind string) (tag, label string) {
	tag, label, found := strings.Cut(kind, ":")
	if !found {
		return kind, kind
	}
	return tag, label
}
