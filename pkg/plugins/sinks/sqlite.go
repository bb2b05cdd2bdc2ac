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

package sinks

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/NVIDIA/flowd/pkg/config"
	"github.com/NVIDIA/flowd/pkg/journal"
	"github.com/NVIDIA/flowd/pkg/plugin"
)

// SQLite appends the journal to a table. By default each run is one row
// holding the JSON document; with flatten set each leaf becomes a row
// keyed by its dotted path.
type SQLite struct {
	plugin.Base
	now func() time.Time
}

// NewSQLite returns an unconfigured sqlite sink.
func NewSQLite(typeName, id string) *SQLite {
	return &SQLite{Base: plugin.NewBase(typeName, id), now: time.Now}
}

// DeclareConfig implements plugin.Component.
func (s *SQLite) DeclareConfig(c *config.Configurator) {
	declareFilter(c)
	c.MustAddOption("database", config.WithSchema(map[string]any{"type": "string", "minLength": 1}))
	c.MustAddOption("table", config.Optional(), config.WithDefault("journal"),
		config.WithSchema(map[string]any{"type": "string", "pattern": "^[A-Za-z_][A-Za-z0-9_]*$"}))
	c.MustAddOption("flatten", config.Optional(), config.WithDefault(false),
		config.WithSchema(map[string]any{"type": "boolean", "coerce": true}))
}

// Distribute implements plugin.Sink.
func (s *SQLite) Distribute(ctx context.Context, v journal.View) (err error) {
	cfg := s.Config()
	table, flat := cfg.String("table"), cfg.Bool("flatten")
	data := selectData(cfg, v)

	db, err := sql.Open("sqlite3", cfg.String("database"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if _, err = db.ExecContext(ctx, createTableSQL(table, flat)); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	created := s.now().UTC()
	rows := 0
	if flat {
		rows, err = insertFlat(ctx, tx, table, created, data)
	} else {
		rows, err = insertDocument(ctx, tx, table, created, data)
	}
	if err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	slog.Debug("journal stored",
		slog.String("id", s.ID()),
		slog.String("table", table),
		slog.Int("rows", rows))
	return nil
}

// createTableSQL interpolates table, which the option schema restricts to
// an identifier.
func createTableSQL(table string, flat bool) string {
	if flat {
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	created DATETIME NOT NULL,
	path    TEXT NOT NULL,
	value   TEXT
)`, table)
	}
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	created DATETIME NOT NULL,
	data    TEXT NOT NULL
)`, table)
}

func insertDocument(ctx context.Context, tx *sql.Tx, table string, created time.Time, data map[string]any) (int, error) {
	doc, err := json.Marshal(data)
	if err != nil {
		return 0, fmt.Errorf("failed to encode journal: %w", err)
	}
	query := fmt.Sprintf("INSERT INTO %s (created, data) VALUES (?, ?)", table)
	if _, err := tx.ExecContext(ctx, query, created, string(doc)); err != nil {
		return 0, fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return 1, nil
}

func insertFlat(ctx context.Context, tx *sql.Tx, table string, created time.Time, data map[string]any) (int, error) {
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (created, path, value) VALUES (?, ?, ?)", table))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	leaves := journal.Flatten(data)
	paths := make([]string, 0, len(leaves))
	for p := range leaves {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		val, err := json.Marshal(leaves[p])
		if err != nil {
			return 0, fmt.Errorf("failed to encode %s: %w", p, err)
		}
		if _, err := stmt.ExecContext(ctx, created, p, string(val)); err != nil {
			return 0, fmt.Errorf("failed to insert %s: %w", p, err)
		}
	}
	return len(paths), nil
}
