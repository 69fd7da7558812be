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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	flowerrors "github.com/tombee/flowctl/pkg/errors"
	"github.com/tombee/flowctl/pkg/flow"
)

func sampleEntry(runID, flowID string, startedAt time.Time) *flow.HistoryEntry {
	return &flow.HistoryEntry{
		RunID:       runID,
		FlowID:      flowID,
		FlowName:    "summarizer",
		StartedAt:   startedAt,
		CompletedAt: startedAt.Add(2 * time.Second),
		Status:      flow.RunSuccess,
		Model:       "claude-sonnet-4-5",
		Provider:    "anthropic",
		Steps: []flow.StepRecord{
			{StepID: "ag", Description: "agent call ag", Status: flow.StepSuccess, StartMS: 0, DurationMS: 1500, ToolCalls: 2},
			{StepID: "tpl", Description: "template render tpl", Status: flow.StepSuccess, StartMS: 1500, DurationMS: 10},
		},
		TotalDurationMS: 2000,
		Goal:            "summarize the report",
		FinalAnswer:     "done",
	}
}

// newStoreFuncs builds each backend against per-test resources.
func newStoreFuncs(t *testing.T) map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store {
			return NewMemoryStore()
		},
		"file": func(t *testing.T) Store {
			return NewFileStore(t.TempDir(), nil)
		},
		"sqlite": func(t *testing.T) Store {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
		"redis": func(t *testing.T) Store {
			mr := miniredis.RunT(t)
			s, err := NewRedisStore(mr.Addr(), nil)
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func TestStoreSaveAndGetRun(t *testing.T) {
	for name, newStore := range newStoreFuncs(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			ctx := context.Background()
			started := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

			entry := sampleEntry("run-1", "flow-a", started)
			require.NoError(t, store.Save(ctx, entry))

			got, err := store.GetRun(ctx, "run-1")
			require.NoError(t, err)

			assert.Equal(t, "run-1", got.RunID)
			assert.Equal(t, "flow-a", got.FlowID)
			assert.Equal(t, flow.RunSuccess, got.Status)
			assert.Equal(t, "summarize the report", got.Goal)
			assert.Equal(t, "done", got.FinalAnswer)
			assert.Equal(t, int64(2000), got.TotalDurationMS)
			require.Len(t, got.Steps, 2)
			assert.Equal(t, "ag", got.Steps[0].StepID)
			assert.Equal(t, 2, got.Steps[0].ToolCalls)
			assert.True(t, got.StartedAt.Equal(started), "started at round-trips")
		})
	}
}

func TestStoreGetRunNotFound(t *testing.T) {
	for name, newStore := range newStoreFuncs(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)

			_, err := store.GetRun(context.Background(), "no-such-run")
			require.Error(t, err)
			assert.True(t, flowerrors.IsNotFound(err), "expected NotFoundError, got %v", err)
		})
	}
}

func TestStoreListForFlowSortedDescending(t *testing.T) {
	for name, newStore := range newStoreFuncs(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			ctx := context.Background()
			base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

			require.NoError(t, store.Save(ctx, sampleEntry("run-old", "flow-a", base)))
			require.NoError(t, store.Save(ctx, sampleEntry("run-new", "flow-a", base.Add(time.Hour))))
			require.NoError(t, store.Save(ctx, sampleEntry("run-mid", "flow-a", base.Add(time.Minute))))
			require.NoError(t, store.Save(ctx, sampleEntry("run-other", "flow-b", base)))

			entries, err := store.ListForFlow(ctx, "flow-a")
			require.NoError(t, err)
			require.Len(t, entries, 3)

			assert.Equal(t, "run-new", entries[0].RunID)
			assert.Equal(t, "run-mid", entries[1].RunID)
			assert.Equal(t, "run-old", entries[2].RunID)
		})
	}
}

func TestStoreListForFlowUnknownFlowEmpty(t *testing.T) {
	for name, newStore := range newStoreFuncs(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)

			entries, err := store.ListForFlow(context.Background(), "never-ran")
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestStoreDeleteRun(t *testing.T) {
	for name, newStore := range newStoreFuncs(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			ctx := context.Background()

			entry := sampleEntry("run-1", "flow-a", time.Now().UTC())
			require.NoError(t, store.Save(ctx, entry))

			deleted, err := store.DeleteRun(ctx, "run-1")
			require.NoError(t, err)
			assert.True(t, deleted)

			_, err = store.GetRun(ctx, "run-1")
			assert.True(t, flowerrors.IsNotFound(err))

			// Second delete is a no-op, not an error.
			deleted, err = store.DeleteRun(ctx, "run-1")
			require.NoError(t, err)
			assert.False(t, deleted)

			entries, err := store.ListForFlow(ctx, "flow-a")
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestStoreSaveOverwritesSameRun(t *testing.T) {
	for name, newStore := range newStoreFuncs(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			ctx := context.Background()
			started := time.Now().UTC()

			first := sampleEntry("run-1", "flow-a", started)
			first.Status = flow.RunRunning
			require.NoError(t, store.Save(ctx, first))

			second := sampleEntry("run-1", "flow-a", started)
			second.Status = flow.RunError
			second.Error = "step ag failed"
			require.NoError(t, store.Save(ctx, second))

			got, err := store.GetRun(ctx, "run-1")
			require.NoError(t, err)
			assert.Equal(t, flow.RunError, got.Status)
			assert.Equal(t, "step ag failed", got.Error)

			entries, err := store.ListForFlow(ctx, "flow-a")
			require.NoError(t, err)
			assert.Len(t, entries, 1)
		})
	}
}

func TestStoreRejectsEntryWithoutRunID(t *testing.T) {
	for name, newStore := range newStoreFuncs(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)

			err := store.Save(context.Background(), &flow.HistoryEntry{FlowID: "flow-a"})
			require.Error(t, err)
			assert.True(t, flowerrors.IsPersistence(err), "expected PersistenceError, got %v", err)
		})
	}
}

func TestFileStoreSkipsCorruptRecords(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir, nil)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleEntry("run-good", "flow-a", time.Now().UTC())))

	// Drop a broken record next to it.
	corrupt := filepath.Join(dir, "flow-a", "run-bad.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{not json"), 0o644))

	entries, err := store.ListForFlow(ctx, "flow-a")
	require.NoError(t, err)
	require.Len(t, entries, 1, "corrupt record must be skipped, not fatal")
	assert.Equal(t, "run-good", entries[0].RunID)

	// GetRun on the corrupt record reports the failure explicitly.
	_, err = store.GetRun(ctx, "run-bad")
	require.Error(t, err)
	assert.True(t, flowerrors.IsPersistence(err))
}

func TestFileStoreMissingRootReadsEmpty(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "never-created"), nil)

	entries, err := store.ListForFlow(context.Background(), "flow-a")
	require.NoError(t, err)
	assert.Empty(t, entries)

	deleted, err := store.DeleteRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestFileStoreEntryWithoutFlowID(t *testing.T) {
	store := NewFileStore(t.TempDir(), nil)
	ctx := context.Background()

	entry := sampleEntry("run-1", "", time.Now().UTC())
	require.NoError(t, store.Save(ctx, entry))

	got, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.RunID)
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, sampleEntry("run-1", "flow-a", time.Now().UTC())))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "flow-a", got.FlowID)
}

func TestRedisStoreCleansFlowSetOnDelete(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := NewRedisStore(mr.Addr(), nil)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, sampleEntry("run-1", "flow-a", time.Now().UTC())))

	deleted, err := store.DeleteRun(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, deleted)

	// The per-flow index no longer references the run.
	members, err := mr.SMembers(redisFlowKeyPrefix + "flow-a")
	if err == nil {
		assert.Empty(t, members)
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "memory", cfg: Config{Backend: BackendMemory}},
		{name: "file", cfg: Config{Backend: BackendFile, Dir: t.TempDir()}},
		{name: "default is file", cfg: Config{Dir: t.TempDir()}},
		{name: "file without dir", cfg: Config{Backend: BackendFile}, wantErr: true},
		{name: "sqlite without path", cfg: Config{Backend: BackendSQLite}, wantErr: true},
		{name: "redis without addr", cfg: Config{Backend: BackendRedis}, wantErr: true},
		{name: "unknown backend", cfg: Config{Backend: "etcd"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := Open(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				var cfgErr *flowerrors.ConfigError
				assert.ErrorAs(t, err, &cfgErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, store)
			assert.NoError(t, Close(store))
		})
	}
}
