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
	"sort"
	"sync"

	"github.com/tombee/flowctl/pkg/errors"
	"github.com/tombee/flowctl/pkg/flow"
)

// MemoryStore is an in-memory history store, thread-safe and suitable
// for tests and single-process use. Entries are deep-copied on both
// save and read so callers can never mutate stored state.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*flow.HistoryEntry // keyed by run ID
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory history store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs: make(map[string]*flow.HistoryEntry),
	}
}

// Save persists a history entry.
func (s *MemoryStore) Save(ctx context.Context, entry *flow.HistoryEntry) error {
	if entry == nil || entry.RunID == "" {
		return &errors.PersistenceError{Op: "save run", Cause: errors.New("entry must have a run ID")}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[entry.RunID] = entry.Clone()
	return nil
}

// ListForFlow returns all entries for a flow, most recent first.
func (s *MemoryStore) ListForFlow(ctx context.Context, flowID string) ([]*flow.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []*flow.HistoryEntry
	for _, entry := range s.runs {
		if entry.FlowID == flowID {
			entries = append(entries, entry.Clone())
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].StartedAt.After(entries[j].StartedAt)
	})
	return entries, nil
}

// GetRun retrieves an entry by run ID.
func (s *MemoryStore) GetRun(ctx context.Context, runID string) (*flow.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.runs[runID]
	if !ok {
		return nil, &errors.NotFoundError{Resource: "run", ID: runID}
	}
	return entry.Clone(), nil
}

// DeleteRun removes an entry by run ID.
func (s *MemoryStore) DeleteRun(ctx context.Context, runID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[runID]; !ok {
		return false, nil
	}
	delete(s.runs, runID)
	return true, nil
}
