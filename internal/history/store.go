// Package history persists completed run reports to a local SQLite file.
// The store is an audit sidecar: stages never read it, and skip decisions
// come from the artifact tree alone.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/pagemeta/internal/artifact"
	"github.com/joseph-ayodele/pagemeta/internal/pipeline"
)

// Run is one persisted run row. Document is the path as given on the run;
// Stem is the artifact-tree identity derived from it, which is what lookups
// key on.
type Run struct {
	ID          string  `json:"id"`
	Document    string  `json:"document"`
	Stem        string  `json:"stem"`
	Model       string  `json:"model"`
	StartedAt   string  `json:"started_at"`
	FinishedAt  string  `json:"finished_at"`
	Stages      string  `json:"stages,omitempty"` // JSON array of stage results
	TotalCost   float64 `json:"total_cost"`
	TotalTokens int     `json:"total_tokens"`
	CallCount   int     `json:"call_count"`
}

// ParsedStages returns the per-stage results parsed from the stages column.
// Returns nil if the column is empty or invalid.
func (r *Run) ParsedStages() []pipeline.StageResult {
	if r.Stages == "" {
		return nil
	}
	var stages []pipeline.StageResult
	if err := json.Unmarshal([]byte(r.Stages), &stages); err != nil {
		return nil
	}
	return stages
}

// StageSummary renders the stage results as "extract:success, context:partial".
func (r *Run) StageSummary() string {
	stages := r.ParsedStages()
	if len(stages) == 0 {
		return ""
	}
	parts := make([]string, 0, len(stages))
	for _, st := range stages {
		parts = append(parts, string(st.Stage)+":"+string(st.Status))
	}
	return strings.Join(parts, ", ")
}

// Store wraps the SQLite run-history database.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the database at path and runs migrations.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS runs (
    id              TEXT PRIMARY KEY,
    document        TEXT NOT NULL,
    stem            TEXT NOT NULL,
    model           TEXT,
    started_at      TEXT NOT NULL,
    finished_at     TEXT NOT NULL,
    stages          TEXT,
    total_cost      REAL DEFAULT 0,
    total_tokens    INTEGER DEFAULT 0,
    call_count      INTEGER DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_runs_stem    ON runs(stem);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`
	_, err := s.db.Exec(ddl)
	return err
}

// RecordRun inserts the report as a new run row.
func (s *Store) RecordRun(rep pipeline.Report) error {
	stagesJSON, err := json.Marshal(rep.Stages)
	if err != nil {
		return fmt.Errorf("marshal stages: %w", err)
	}
	finished := rep.StartedAt.Add(time.Duration(rep.ElapsedMS) * time.Millisecond)
	_, err = s.db.Exec(
		`INSERT INTO runs (id, document, stem, model, started_at, finished_at, stages, total_cost, total_tokens, call_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rep.RunID, rep.Document, artifact.DocumentStem(rep.Document), rep.Model,
		rep.StartedAt.UTC().Format(time.RFC3339),
		finished.UTC().Format(time.RFC3339),
		string(stagesJSON),
		rep.Cost.TotalCost, rep.Cost.TotalTokens, rep.Cost.CallCount,
	)
	return err
}

// GetRun returns a run by ID. Returns nil, nil if not found.
func (s *Store) GetRun(id string) (*Run, error) {
	r := &Run{}
	err := s.db.QueryRow(
		`SELECT id, document, stem, model, started_at, finished_at, stages, total_cost, total_tokens, call_count
		 FROM runs WHERE id = ?`, id,
	).Scan(&r.ID, &r.Document, &r.Stem, &r.Model, &r.StartedAt, &r.FinishedAt, &r.Stages,
		&r.TotalCost, &r.TotalTokens, &r.CallCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListRuns returns the most recent runs, newest first. limit <= 0 means all.
func (s *Store) ListRuns(limit int) ([]*Run, error) {
	return s.listRuns(
		`SELECT id, document, stem, model, started_at, finished_at, stages, total_cost, total_tokens, call_count
		 FROM runs ORDER BY started_at DESC, id LIMIT ?`, normalizeLimit(limit))
}

// ListRunsForStem returns the most recent runs for one document stem,
// newest first. limit <= 0 means all.
func (s *Store) ListRunsForStem(stem string, limit int) ([]*Run, error) {
	return s.listRuns(
		`SELECT id, document, stem, model, started_at, finished_at, stages, total_cost, total_tokens, call_count
		 FROM runs WHERE stem = ? ORDER BY started_at DESC, id LIMIT ?`, stem, normalizeLimit(limit))
}

func (s *Store) listRuns(query string, args ...any) ([]*Run, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r := &Run{}
		if err := rows.Scan(&r.ID, &r.Document, &r.Stem, &r.Model, &r.StartedAt, &r.FinishedAt, &r.Stages,
			&r.TotalCost, &r.TotalTokens, &r.CallCount); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// normalizeLimit maps "no limit" onto SQLite's negative-limit convention.
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
