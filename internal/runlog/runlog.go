// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package runlog persists a diagnostic ledger of each pipeline run in a
// SQLite database inside the run's intermediate directory. The ledger is
// write-only during execution and exists for post-mortem inspection; no
// stage reads it to locate artifacts.
package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/protquant/pkg/types"
)

// Stage outcome values stored in the ledger.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Store manages the run ledger database.
type Store struct {
	db    *sql.DB
	runID string
}

// StageRecord is one executed stage as stored in the ledger.
type StageRecord struct {
	Position int
	Name     string
	Tool     string
	Status   string
	Duration time.Duration
	Error    string
}

// RunRecord is the run row of a ledger.
type RunRecord struct {
	ID         string
	Experiment string
	Mode       string
	Approach   string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string
}

// Open creates or opens the ledger database at path and ensures the schema
// exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening run ledger: %w", err)
	}
	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating ledger schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			experiment TEXT NOT NULL,
			mode TEXT NOT NULL,
			approach TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			status TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS stages (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id),
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			tool TEXT,
			status TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			error TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS artifacts (
			run_id TEXT NOT NULL REFERENCES runs(id),
			name TEXT NOT NULL,
			path TEXT NOT NULL,
			PRIMARY KEY (run_id, name)
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// BeginRun inserts the run row and returns its generated identifier.
func (s *Store) BeginRun(ctx context.Context, cfg types.RunConfiguration, started time.Time) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, experiment, mode, approach, started_at, status)
		 VALUES (?, ?, ?, ?, ?, 'running')`,
		id, cfg.ExperimentName, string(cfg.Mode), string(cfg.Approach),
		started.UTC().Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("recording run start: %w", err)
	}
	s.runID = id
	return id, nil
}

// RecordStage appends one executed stage to the ledger.
func (s *Store) RecordStage(ctx context.Context, rec StageRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stages (run_id, position, name, tool, status, duration_ms, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.runID, rec.Position, rec.Name, rec.Tool, rec.Status,
		rec.Duration.Milliseconds(), rec.Error)
	if err != nil {
		return fmt.Errorf("recording stage %s: %w", rec.Name, err)
	}
	return nil
}

// RecordArtifacts stores the final logical-name-to-path mapping of the run.
func (s *Store) RecordArtifacts(ctx context.Context, artifacts map[string]string) error {
	for name, path := range artifacts {
		if _, err := s.db.ExecContext(ctx,
			`INSERT OR REPLACE INTO artifacts (run_id, name, path) VALUES (?, ?, ?)`,
			s.runID, name, path); err != nil {
			return fmt.Errorf("recording artifact %s: %w", name, err)
		}
	}
	return nil
}

// FinishRun stamps the run row with its final status.
func (s *Store) FinishRun(ctx context.Context, status string, finished time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ? WHERE id = ?`,
		status, finished.UTC().Format(time.RFC3339), s.runID)
	if err != nil {
		return fmt.Errorf("recording run finish: %w", err)
	}
	return nil
}

// Runs lists the run rows of a ledger, newest first.
func (s *Store) Runs(ctx context.Context) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, experiment, mode, approach, started_at,
		        COALESCE(finished_at, ''), status
		 FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		var started, finished string
		if err := rows.Scan(&r.ID, &r.Experiment, &r.Mode, &r.Approach,
			&started, &finished, &r.Status); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(time.RFC3339, started)
		if finished != "" {
			r.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Stages lists the stage rows of one run in execution order.
func (s *Store) Stages(ctx context.Context, runID string) ([]StageRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT position, name, COALESCE(tool, ''), status, duration_ms, COALESCE(error, '')
		 FROM stages WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying stages: %w", err)
	}
	defer rows.Close()

	var out []StageRecord
	for rows.Next() {
		var rec StageRecord
		var ms int64
		if err := rows.Scan(&rec.Position, &rec.Name, &rec.Tool,
			&rec.Status, &ms, &rec.Error); err != nil {
			return nil, err
		}
		rec.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}
