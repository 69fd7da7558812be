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
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tombee/flowctl/pkg/errors"
	"github.com/tombee/flowctl/pkg/flow"
)

// Redis key layout: one JSON value per run plus a per-flow set of run
// IDs so ListForFlow never scans the keyspace.
const (
	redisRunKeyPrefix  = "flowhist:run:"
	redisFlowKeyPrefix = "flowhist:flow:"
)

// RedisStore keeps run history in Redis, letting several machines share
// one history.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to the Redis server at addr.
func NewRedisStore(addr string, logger *slog.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, &errors.PersistenceError{Op: "connect redis", Key: addr, Cause: err}
	}

	return &RedisStore{client: client, logger: logger}, nil
}

func runKey(runID string) string   { return redisRunKeyPrefix + runID }
func flowKey(flowID string) string { return redisFlowKeyPrefix + flowID }

// Save persists a history entry.
func (s *RedisStore) Save(ctx context.Context, entry *flow.HistoryEntry) error {
	if entry == nil || entry.RunID == "" {
		return &errors.PersistenceError{Op: "save run", Cause: errors.New("entry must have a run ID")}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return &errors.PersistenceError{Op: "save run", Key: entry.RunID, Cause: err}
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, runKey(entry.RunID), data, 0)
	pipe.SAdd(ctx, flowKey(entry.FlowID), entry.RunID)
	if _, err := pipe.Exec(ctx); err != nil {
		return &errors.PersistenceError{Op: "save run", Key: entry.RunID, Cause: err}
	}
	return nil
}

// ListForFlow returns all entries for a flow, most recent first.
func (s *RedisStore) ListForFlow(ctx context.Context, flowID string) ([]*flow.HistoryEntry, error) {
	runIDs, err := s.client.SMembers(ctx, flowKey(flowID)).Result()
	if err != nil {
		return nil, &errors.PersistenceError{Op: "list runs", Key: flowID, Cause: err}
	}
	if len(runIDs) == 0 {
		return nil, nil
	}

	keys := make([]string, len(runIDs))
	for i, id := range runIDs {
		keys[i] = runKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, &errors.PersistenceError{Op: "list runs", Key: flowID, Cause: err}
	}

	var entries []*flow.HistoryEntry
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Run key expired or was deleted out from under the set.
			continue
		}
		var entry flow.HistoryEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			s.logger.Warn("skipping corrupt history record",
				slog.String("key", keys[i]),
				slog.Any("error", err))
			continue
		}
		entries = append(entries, &entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].StartedAt.After(entries[j].StartedAt)
	})
	return entries, nil
}

// GetRun retrieves an entry by run ID.
func (s *RedisStore) GetRun(ctx context.Context, runID string) (*flow.HistoryEntry, error) {
	raw, err := s.client.Get(ctx, runKey(runID)).Result()
	if err == redis.Nil {
		return nil, &errors.NotFoundError{Resource: "run", ID: runID}
	}
	if err != nil {
		return nil, &errors.PersistenceError{Op: "get run", Key: runID, Cause: err}
	}

	var entry flow.HistoryEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, &errors.PersistenceError{Op: "get run", Key: runID, Cause: err}
	}
	return &entry, nil
}

// DeleteRun removes an entry by run ID.
func (s *RedisStore) DeleteRun(ctx context.Context, runID string) (bool, error) {
	// Read the entry first so the per-flow set can be cleaned up too.
	entry, err := s.GetRun(ctx, runID)
	if errors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, runKey(runID))
	pipe.SRem(ctx, flowKey(entry.FlowID), runID)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, &errors.PersistenceError{Op: "delete run", Key: runID, Cause: err}
	}
	return true, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
