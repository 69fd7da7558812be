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
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/tombee/flowctl/pkg/errors"
	"github.com/tombee/flowctl/pkg/flow"
)

// FileStore stores one JSON document per run under
// <root>/<flowID>/<runID>.json. It is the default backend: no daemon,
// no database, history survives across invocations, and the files are
// greppable. A missing root or flow directory reads as empty history.
// Corrupt files are skipped with a warning, never an error.
type FileStore struct {
	root   string
	logger *slog.Logger
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a file-backed history store rooted at dir.
func NewFileStore(dir string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{root: dir, logger: logger}
}

// unknownFlowDir holds runs whose entry carries no flow ID.
const unknownFlowDir = "_unassigned"

func (s *FileStore) runPath(flowID, runID string) string {
	if flowID == "" {
		flowID = unknownFlowDir
	}
	return filepath.Join(s.root, flowID, runID+".json")
}

// Save persists a history entry.
func (s *FileStore) Save(ctx context.Context, entry *flow.HistoryEntry) error {
	if entry == nil || entry.RunID == "" {
		return &errors.PersistenceError{Op: "save run", Cause: errors.New("entry must have a run ID")}
	}

	path := s.runPath(entry.FlowID, entry.RunID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &errors.PersistenceError{Op: "save run", Key: entry.RunID, Cause: err}
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return &errors.PersistenceError{Op: "save run", Key: entry.RunID, Cause: err}
	}

	// Write to a temp file first so a crash never leaves a truncated
	// record behind.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return &errors.PersistenceError{Op: "save run", Key: entry.RunID, Cause: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		return &errors.PersistenceError{Op: "save run", Key: entry.RunID, Cause: err}
	}
	return nil
}

// ListForFlow returns all entries for a flow, most recent first.
func (s *FileStore) ListForFlow(ctx context.Context, flowID string) ([]*flow.HistoryEntry, error) {
	if flowID == "" {
		flowID = unknownFlowDir
	}

	paths, err := doublestar.FilepathGlob(filepath.Join(s.root, flowID, "*.json"))
	if err != nil {
		return nil, &errors.PersistenceError{Op: "list runs", Key: flowID, Cause: err}
	}

	var entries []*flow.HistoryEntry
	for _, path := range paths {
		entry, ok := s.readEntry(path)
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].StartedAt.After(entries[j].StartedAt)
	})
	return entries, nil
}

// GetRun retrieves an entry by run ID, scanning every flow directory.
func (s *FileStore) GetRun(ctx context.Context, runID string) (*flow.HistoryEntry, error) {
	path, err := s.findRun(runID)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, &errors.NotFoundError{Resource: "run", ID: runID}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &errors.PersistenceError{Op: "get run", Key: runID, Cause: err}
	}
	var entry flow.HistoryEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, &errors.PersistenceError{Op: "get run", Key: runID, Cause: err}
	}
	return &entry, nil
}

// DeleteRun removes an entry by run ID.
func (s *FileStore) DeleteRun(ctx context.Context, runID string) (bool, error) {
	path, err := s.findRun(runID)
	if err != nil {
		return false, err
	}
	if path == "" {
		return false, nil
	}
	if err := os.Remove(path); err != nil {
		return false, &errors.PersistenceError{Op: "delete run", Key: runID, Cause: err}
	}
	return true, nil
}

// findRun returns the path of the run's file, or "" when absent.
func (s *FileStore) findRun(runID string) (string, error) {
	matches, err := doublestar.FilepathGlob(filepath.Join(s.root, "**", runID+".json"))
	if err != nil {
		return "", &errors.PersistenceError{Op: "find run", Key: runID, Cause: err}
	}
	if len(matches) == 0 {
		return "", nil
	}
	return matches[0], nil
}

// readEntry loads one record, reporting ok=false for unreadable or
// corrupt files.
func (s *FileStore) readEntry(path string) (*flow.HistoryEntry, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Warn("skipping unreadable history file",
			slog.String("path", path),
			slog.Any("error", err))
		return nil, false
	}

	var entry flow.HistoryEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		s.logger.Warn("skipping corrupt history file",
			slog.String("path", path),
			slog.Any("error", err))
		return nil, false
	}
	if entry.RunID == "" {
		s.logger.Warn("skipping history file with no run ID", slog.String("path", path))
		return nil, false
	}
	return &entry, true
}
