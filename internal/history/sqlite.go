// Copyright 2025 Tom Barlow
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

package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tombee/flowctl/pkg/errors"
	"github.com/tombee/flowctl/pkg/flow"
)

// SQLiteStore keeps run history in a local SQLite database, which makes
// history queryable without a server process.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (and if needed creates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &errors.PersistenceError{Op: "open database", Key: path, Cause: err}
	}

	// SQLite serializes writes, so only 1 connection
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &errors.PersistenceError{Op: "open database", Key: path, Cause: err}
	}

	s := &SQLiteStore{db: db}

	if err := s.configurePragmas(ctx); err != nil {
		db.Close()
		return nil, &errors.PersistenceError{Op: "configure database", Key: path, Cause: err}
	}

	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, &errors.PersistenceError{Op: "migrate database", Key: path, Cause: err}
	}

	return s, nil
}

// configurePragmas sets SQLite configuration options.
func (s *SQLiteStore) configurePragmas(ctx context.Context) error {
	pragmas := []string{
		"PRAGMA busy_timeout=5000",  // 5 second timeout for lock contention
		"PRAGMA synchronous=NORMAL", // Balance between performance and durability
		"PRAGMA journal_mode=WAL",   // Enable WAL mode for concurrent reads
	}

	for _, pragma := range pragmas {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	return nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			flow_id TEXT NOT NULL,
			flow_name TEXT,
			status TEXT NOT NULL,
			model TEXT,
			provider TEXT,
			goal TEXT,
			final_answer TEXT,
			error TEXT,
			steps TEXT,
			total_duration_ms INTEGER DEFAULT 0,
			started_at TEXT NOT NULL,
			completed_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_flow_id ON runs(flow_id)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// Save persists a history entry, replacing any previous record for the
// same run.
func (s *SQLiteStore) Save(ctx context.Context, entry *flow.HistoryEntry) error {
	if entry == nil || entry.RunID == "" {
		return &errors.PersistenceError{Op: "save run", Cause: errors.New("entry must have a run ID")}
	}

	stepsJSON, err := json.Marshal(entry.Steps)
	if err != nil {
		return &errors.PersistenceError{Op: "save run", Key: entry.RunID, Cause: err}
	}

	query := `
		INSERT INTO runs (run_id, flow_id, flow_name, status, model, provider, goal,
			final_answer, error, steps, total_duration_ms, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id) DO UPDATE SET
			flow_id = excluded.flow_id,
			flow_name = excluded.flow_name,
			status = excluded.status,
			model = excluded.model,
			provider = excluded.provider,
			goal = excluded.goal,
			final_answer = excluded.final_answer,
			error = excluded.error,
			steps = excluded.steps,
			total_duration_ms = excluded.total_duration_ms,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at
	`

	_, err = s.db.ExecContext(ctx, query,
		entry.RunID, entry.FlowID, nullString(entry.FlowName), string(entry.Status),
		nullString(entry.Model), nullString(entry.Provider), nullString(entry.Goal),
		nullString(entry.FinalAnswer), nullString(entry.Error), string(stepsJSON),
		entry.TotalDurationMS,
		entry.StartedAt.Format(time.RFC3339Nano), formatTime(entry.CompletedAt),
	)
	if err != nil {
		return &errors.PersistenceError{Op: "save run", Key: entry.RunID, Cause: err}
	}
	return nil
}

const selectColumns = `run_id, flow_id, flow_name, status, model, provider, goal,
	final_answer, error, steps, total_duration_ms, started_at, completed_at`

// ListForFlow returns all entries for a flow, most recent first.
func (s *SQLiteStore) ListForFlow(ctx context.Context, flowID string) ([]*flow.HistoryEntry, error) {
	query := `SELECT ` + selectColumns + ` FROM runs WHERE flow_id = ? ORDER BY started_at DESC`

	rows, err := s.db.QueryContext(ctx, query, flowID)
	if err != nil {
		return nil, &errors.PersistenceError{Op: "list runs", Key: flowID, Cause: err}
	}
	defer rows.Close()

	var entries []*flow.HistoryEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, &errors.PersistenceError{Op: "list runs", Key: flowID, Cause: err}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, &errors.PersistenceError{Op: "list runs", Key: flowID, Cause: err}
	}
	return entries, nil
}

// GetRun retrieves an entry by run ID.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*flow.HistoryEntry, error) {
	query := `SELECT ` + selectColumns + ` FROM runs WHERE run_id = ?`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, &errors.PersistenceError{Op: "get run", Key: runID, Cause: err}
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, &errors.PersistenceError{Op: "get run", Key: runID, Cause: err}
		}
		return nil, &errors.NotFoundError{Resource: "run", ID: runID}
	}

	entry, err := scanEntry(rows)
	if err != nil {
		return nil, &errors.PersistenceError{Op: "get run", Key: runID, Cause: err}
	}
	return entry, nil
}

// DeleteRun removes an entry by run ID.
func (s *SQLiteStore) DeleteRun(ctx context.Context, runID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE run_id = ?", runID)
	if err != nil {
		return false, &errors.PersistenceError{Op: "delete run", Key: runID, Cause: err}
	}
	affected, _ := result.RowsAffected()
	return affected > 0, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scanEntry reads one row into a history entry.
func scanEntry(rows *sql.Rows) (*flow.HistoryEntry, error) {
	var entry flow.HistoryEntry
	var flowName, model, provider, goal, finalAnswer, errorStr sql.NullString
	var stepsJSON sql.NullString
	var startedAt string
	var completedAt sql.NullString
	var status string

	err := rows.Scan(
		&entry.RunID, &entry.FlowID, &flowName, &status, &model, &provider, &goal,
		&finalAnswer, &errorStr, &stepsJSON, &entry.TotalDurationMS,
		&startedAt, &completedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	entry.Status = flow.RunStatus(status)
	entry.FlowName = flowName.String
	entry.Model = model.String
	entry.Provider = provider.String
	entry.Goal = goal.String
	entry.FinalAnswer = finalAnswer.String
	entry.Error = errorStr.String

	if stepsJSON.Valid && stepsJSON.String != "" {
		if err := json.Unmarshal([]byte(stepsJSON.String), &entry.Steps); err != nil {
			return nil, fmt.Errorf("failed to unmarshal steps: %w", err)
		}
	}

	entry.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
	if completedAt.Valid {
		entry.CompletedAt, _ = time.Parse(time.RFC3339Nano, completedAt.String)
	}

	return &entry, nil
}

// Helper functions

// formatTime converts a time to RFC3339 string or nil when zero.
func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(time.RFC3339Nano)
}

// nullString returns nil if string is empty, otherwise the string.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
