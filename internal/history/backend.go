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

// Package history provides storage backends for run history.
//
// Four backends are available: memory (tests, single process), file
// (default, one JSON document per run), sqlite (queryable local
// history), and redis (shared history across machines). All of them
// implement the same Store interface, and all failures surface as
// *errors.PersistenceError except missing runs, which are
// *errors.NotFoundError.
package history

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/tombee/flowctl/pkg/errors"
	"github.com/tombee/flowctl/pkg/flow"
)

// Store persists completed run history entries.
type Store interface {
	// Save persists a history entry. Entries are written once, at the
	// run's terminal state.
	Save(ctx context.Context, entry *flow.HistoryEntry) error

	// ListForFlow returns all entries for a flow, most recent first.
	// An unknown flow yields an empty list, not an error.
	ListForFlow(ctx context.Context, flowID string) ([]*flow.HistoryEntry, error)

	// GetRun retrieves a single entry by run ID, searching across
	// flows. Returns *errors.NotFoundError when absent.
	GetRun(ctx context.Context, runID string) (*flow.HistoryEntry, error)

	// DeleteRun removes an entry. The bool reports whether anything
	// was deleted.
	DeleteRun(ctx context.Context, runID string) (bool, error)
}

// Backend names accepted by Open and FLOWCTL_HISTORY_BACKEND.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config selects and configures a history backend.
type Config struct {
	// Backend is one of memory, file, sqlite, redis. Default: file.
	Backend string

	// Dir is the root directory for the file backend.
	Dir string

	// DBPath is the database file path for the sqlite backend.
	DBPath string

	// RedisAddr is the host:port for the redis backend.
	RedisAddr string

	// Logger receives warnings about skipped corrupt records.
	Logger *slog.Logger
}

// Open creates the store selected by cfg.Backend. The caller should
// close the returned store if it implements io.Closer.
func Open(cfg Config) (Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendFile, "":
		if cfg.Dir == "" {
			return nil, &errors.ConfigError{Key: "FLOWCTL_HISTORY_DIR", Reason: "file backend requires a history directory"}
		}
		return NewFileStore(cfg.Dir, logger), nil
	case BackendSQLite:
		if cfg.DBPath == "" {
			return nil, &errors.ConfigError{Key: "FLOWCTL_HISTORY_DB", Reason: "sqlite backend requires a database path"}
		}
		return NewSQLiteStore(cfg.DBPath)
	case BackendRedis:
		if cfg.RedisAddr == "" {
			return nil, &errors.ConfigError{Key: "FLOWCTL_REDIS_ADDR", Reason: "redis backend requires an address"}
		}
		return NewRedisStore(cfg.RedisAddr, logger)
	default:
		return nil, &errors.ConfigError{
			Key:     "FLOWCTL_HISTORY_BACKEND",
			Reason: fmt.Sprintf("unknown backend %q (expected memory, file, sqlite, or redis)", cfg.Backend),
		}
	}
}

// Close closes the store if it holds external resources.
func Close(s Store) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
