// Package store provides sqlite persistence for runs, stages, and artifacts.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jonathan/rnaseq-qc/internal/types"
)

// Store wraps the sqlite database holding run state.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'queued',
	progress REAL NOT NULL DEFAULT 0,
	sample_name TEXT NOT NULL,
	sample_files_json TEXT NOT NULL,
	params_json TEXT NOT NULL DEFAULT '{}'
);
CREATE TABLE IF NOT EXISTS stages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'running',
	progress REAL NOT NULL DEFAULT 0,
	time_iso TEXT NOT NULL,
	metrics_json TEXT NOT NULL DEFAULT '{}',
	artifact_path TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS artifacts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	kind TEXT NOT NULL,
	path TEXT NOT NULL
);
`

// Open opens (and if necessary initializes) the sqlite database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// NowISO returns the current UTC time in the ISO8601 format stored with
// every run and stage record.
func NowISO() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000000") + "Z"
}

// CreateRun inserts a new queued run for the given sample and parameters.
func (s *Store) CreateRun(ctx context.Context, id string, sample types.Sample, params types.RunParams) error {
	filesJSON, err := json.Marshal(sample.Files)
	if err != nil {
		return fmt.Errorf("failed to marshal sample files: %w", err)
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, status, progress, sample_name, sample_files_json, params_json)
		 VALUES (?, ?, 'queued', 0, ?, ?, ?)`,
		id, NowISO(), sample.Name, string(filesJSON), string(paramsJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// GetRun assembles the full job snapshot for a run, including its ordered
// stages and artifacts. Returns nil without error when the run does not
// exist.
func (s *Store) GetRun(ctx context.Context, id string) (*types.Job, error) {
	var (
		job       types.Job
		status    string
		filesJSON string
		parJSON   string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, status, progress, sample_name, sample_files_json, params_json
		 FROM runs WHERE id = ?`, id,
	).Scan(&job.ID, &job.CreatedAt, &status, &job.Progress, &job.Sample.Name, &filesJSON, &parJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}

	job.Status = types.Status(status)
	if err := json.Unmarshal([]byte(filesJSON), &job.Sample.Files); err != nil {
		return nil, fmt.Errorf("failed to decode sample files for run %s: %w", id, err)
	}
	if parJSON != "" {
		if err := json.Unmarshal([]byte(parJSON), &job.Params); err != nil {
			return nil, fmt.Errorf("failed to decode params for run %s: %w", id, err)
		}
	}

	job.Stages, err = s.runStages(ctx, id)
	if err != nil {
		return nil, err
	}
	job.Artifacts, err = s.runArtifacts(ctx, id)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *Store) runStages(ctx context.Context, runID string) ([]types.Stage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, status, progress, time_iso, metrics_json, artifact_path
		 FROM stages WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stages for run %s: %w", runID, err)
	}
	defer rows.Close()

	stages := []types.Stage{}
	for rows.Next() {
		var (
			st          types.Stage
			status      string
			metricsJSON string
		)
		if err := rows.Scan(&st.Name, &status, &st.Progress, &st.Time, &metricsJSON, &st.Artifact); err != nil {
			return nil, fmt.Errorf("failed to scan stage: %w", err)
		}
		st.Status = types.Status(status)
		if err := json.Unmarshal([]byte(metricsJSON), &st.Metrics); err != nil {
			return nil, fmt.Errorf("failed to decode metrics for stage %s: %w", st.Name, err)
		}
		stages = append(stages, st)
	}
	return stages, rows.Err()
}

func (s *Store) runArtifacts(ctx context.Context, runID string) ([]types.Artifact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, path FROM artifacts WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load artifacts for run %s: %w", runID, err)
	}
	defer rows.Close()

	artifacts := []types.Artifact{}
	for rows.Next() {
		var a types.Artifact
		if err := rows.Scan(&a.Kind, &a.Path); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}

// ListRuns returns id, status, progress, and sample name for all runs,
// newest first.
func (s *Store) ListRuns(ctx context.Context) ([]types.Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, status, progress, sample_name
		 FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var jobs []types.Job
	for rows.Next() {
		var (
			job    types.Job
			status string
		)
		if err := rows.Scan(&job.ID, &job.CreatedAt, &status, &job.Progress, &job.Sample.Name); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		job.Status = types.Status(status)
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// AppendStage records a completed pipeline stage and advances the parent
// run's progress and status in the same transaction. A failed stage marks
// the run failed; progress 100 on a healthy stage marks it finished.
func (s *Store) AppendStage(ctx context.Context, runID string, stage types.Stage) error {
	metricsJSON := []byte("{}")
	if stage.Metrics != nil {
		var err error
		metricsJSON, err = json.Marshal(stage.Metrics)
		if err != nil {
			return fmt.Errorf("failed to marshal stage metrics: %w", err)
		}
	}

	runStatus := types.StatusRunning
	switch {
	case stage.Status == types.StatusFailed:
		runStatus = types.StatusFailed
	case stage.Progress >= 100:
		runStatus = types.StatusFinished
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO stages (run_id, name, status, progress, time_iso, metrics_json, artifact_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, stage.Name, string(stage.Status), stage.Progress, NowISO(), string(metricsJSON), stage.Artifact,
	)
	if err != nil {
		return fmt.Errorf("failed to insert stage %s: %w", stage.Name, err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE runs SET progress = ?, status = ? WHERE id = ?`,
		stage.Progress, string(runStatus), runID,
	)
	if err != nil {
		return fmt.Errorf("failed to advance run %s: %w", runID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit stage %s: %w", stage.Name, err)
	}
	return nil
}

// AddArtifact records an output file for a run.
func (s *Store) AddArtifact(ctx context.Context, runID, kind, path string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO artifacts (run_id, kind, path) VALUES (?, ?, ?)`,
		runID, kind, path)
	if err != nil {
		return fmt.Errorf("failed to add artifact %s: %w", kind, err)
	}
	return nil
}

// UpdateRunStatus sets the status of a run without touching its progress.
func (s *Store) UpdateRunStatus(ctx context.Context, runID string, status types.Status) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ? WHERE id = ?`, string(status), runID)
	if err != nil {
		return fmt.Errorf("failed to update run %s status: %w", runID, err)
	}
	return nil
}
