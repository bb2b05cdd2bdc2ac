// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	flowerrors "github.com/NVIDIA/flowd/pkg/errors"
	"github.com/NVIDIA/flowd/pkg/pipeline"
	"github.com/NVIDIA/flowd/pkg/plugin"
	"github.com/NVIDIA/flowd/pkg/worker"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	pipeline    TEXT NOT NULL,
	succeeded   INTEGER NOT NULL,
	aborted     INTEGER NOT NULL,
	started     DATETIME NOT NULL,
	duration_ms INTEGER NOT NULL,
	journal     TEXT
);
CREATE TABLE IF NOT EXISTS components (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id       TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	stage        TEXT NOT NULL,
	component_id TEXT NOT NULL,
	type         TEXT NOT NULL,
	status       TEXT NOT NULL,
	duration_ms  INTEGER NOT NULL,
	error        TEXT
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started);
CREATE INDEX IF NOT EXISTS idx_components_run ON components(run_id);
`

// RunRecord is one row of the runs table.
type RunRecord struct {
	RunID     string          `json:"runId"`
	Pipeline  string          `json:"pipeline"`
	Succeeded bool            `json:"succeeded"`
	Aborted   bool            `json:"aborted"`
	Started   time.Time       `json:"started"`
	Duration  time.Duration   `json:"duration"`
	Journal   json.RawMessage `json:"journal,omitempty"`
}

// SQLiteStore records runs in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ pipeline.JournalStore = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database at path and ensures
// the tables exist. Use ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, flowerrors.New(flowerrors.ErrCodeInvalidRequest, "database path is required")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, flowerrors.Wrap(flowerrors.ErrCodeInternal,
			fmt.Sprintf("failed to open database %s", path), err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, flowerrors.Wrap(flowerrors.ErrCodeInternal,
			fmt.Sprintf("failed to initialize database %s", path), err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save inserts the run and its component outcomes in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, res *pipeline.RunResult) error {
	if res == nil {
		return flowerrors.New(flowerrors.ErrCodeInvalidRequest, "run result is nil")
	}

	journalJSON, err := json.Marshal(res.Journal)
	if err != nil {
		return fmt.Errorf("failed to serialize journal of run %s: %w", res.RunID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, pipeline, succeeded, aborted, started, duration_ms, journal) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		res.RunID, res.Pipeline, res.Succeeded, res.Aborted, res.Started.UTC(), res.Duration.Milliseconds(), string(journalJSON))
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", res.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO components (run_id, stage, component_id, type, status, duration_ms, error) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare component insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range res.Ordered() {
		if _, err := stmt.ExecContext(ctx, res.RunID, string(c.Stage), c.ID, c.Type, string(c.Status),
			c.Duration.Milliseconds(), c.Error); err != nil {
			return fmt.Errorf("failed to insert component %s/%s of run %s: %w", c.Stage, c.ID, res.RunID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", res.RunID, err)
	}
	return nil
}

// Recent returns up to limit runs, newest first. A limit of zero returns all runs.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `SELECT run_id, pipeline, succeeded, aborted, started, duration_ms, journal FROM runs ORDER BY started DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			r          RunRecord
			durationMS int64
			journal    sql.NullString
		)
		if err := rows.Scan(&r.RunID, &r.Pipeline, &r.Succeeded, &r.Aborted, &r.Started, &durationMS, &journal); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		if journal.Valid {
			r.Journal = json.RawMessage(journal.String)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Components returns the recorded component outcomes of a run in execution order.
func (s *SQLiteStore) Components(ctx context.Context, runID string) ([]pipeline.ComponentResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT stage, component_id, type, status, duration_ms, error FROM components WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query components of run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []pipeline.ComponentResult
	for rows.Next() {
		var (
			c          pipeline.ComponentResult
			stage      string
			status     string
			durationMS int64
			errText    sql.NullString
		)
		if err := rows.Scan(&stage, &c.ID, &c.Type, &status, &durationMS, &errText); err != nil {
			return nil, fmt.Errorf("failed to scan component: %w", err)
		}
		c.Stage = plugin.Stage(stage)
		c.Status = worker.Status(status)
		c.Duration = time.Duration(durationMS) * time.Millisecond
		c.Error = errText.String
		out = append(out, c)
	}
	return out, rows.Err()
}

// Count returns the number of stored runs.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return n, nil
}
