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

package templates

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	flowerrors "github.com/tombee/flowctl/pkg/errors"
	"github.com/tombee/flowctl/pkg/flow"
)

func sampleGraph() flow.Workflow {
	return flow.Workflow{
		Metadata: flow.Metadata{Name: "summarizer"},
		Nodes: []flow.Node{
			{ID: "in", Kind: flow.KindInput, Config: flow.NodeConfig{Text: "hello"}},
			{ID: "ag", Kind: flow.KindAgent, Config: flow.NodeConfig{Model: "m", Prompt: "summarize {{in}}"}},
			{ID: "out", Kind: flow.KindOutput},
		},
		Edges: []flow.Edge{
			{ID: "e1", Source: "in", Target: "ag"},
			{ID: "e2", Source: "ag", Target: "out"},
		},
	}
}

func TestFileStoreSaveMintsIDAndRoundTrips(t *testing.T) {
	store := NewFileStore(t.TempDir(), nil)
	ctx := context.Background()

	saved, err := store.SaveTemplate(ctx, &flow.FlowTemplate{
		Name:        "summarizer",
		Description: "summarize anything",
		Graph:       sampleGraph(),
	})
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())
	assert.False(t, saved.UpdatedAt.IsZero())

	got, err := store.GetTemplate(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "summarizer", got.Name)
	assert.Equal(t, "summarize anything", got.Description)
	require.Len(t, got.Graph.Nodes, 3)
	assert.Equal(t, "ag", got.Graph.Nodes[1].ID)
}

func TestFileStoreSaveStripsRuntime(t *testing.T) {
	store := NewFileStore(t.TempDir(), nil)
	ctx := context.Background()

	g := sampleGraph()
	g.Nodes[1].Runtime.Status = flow.StatusError
	g.Nodes[1].Config.Result = "stale"

	saved, err := store.SaveTemplate(ctx, &flow.FlowTemplate{Name: "dirty", Graph: g})
	require.NoError(t, err)

	got, err := store.GetTemplate(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, flow.StatusIdle, got.Graph.Nodes[1].Runtime.Status)
	assert.Empty(t, got.Graph.Nodes[1].Config.Result)
}

func TestFileStoreOverwriteKeepsCreatedAt(t *testing.T) {
	store := NewFileStore(t.TempDir(), nil)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	store.now = func() time.Time { return clock }
	ctx := context.Background()

	saved, err := store.SaveTemplate(ctx, &flow.FlowTemplate{Name: "v1", Graph: sampleGraph()})
	require.NoError(t, err)

	clock = base.Add(time.Hour)
	saved.Name = "v2"
	updated, err := store.SaveTemplate(ctx, saved)
	require.NoError(t, err)

	assert.Equal(t, saved.ID, updated.ID)
	assert.True(t, updated.CreatedAt.Equal(base), "CreatedAt survives overwrite")
	assert.True(t, updated.UpdatedAt.Equal(base.Add(time.Hour)), "UpdatedAt bumped")

	list, err := store.ListTemplates(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, "v2", list[0].Name)
}

func TestFileStoreListSortedAndSkipsCorrupt(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir, nil)
	ctx := context.Background()

	for _, name := range []string{"zeta", "alpha", "mid"} {
		_, err := store.SaveTemplate(ctx, &flow.FlowTemplate{Name: name, Graph: sampleGraph()})
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{nope"), 0o644))

	list, err := store.ListTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3, "corrupt file skipped")
	assert.Equal(t, "alpha", list[0].Name)
	assert.Equal(t, "mid", list[1].Name)
	assert.Equal(t, "zeta", list[2].Name)
}

func TestFileStoreMissingRootListsEmpty(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "nowhere"), nil)

	list, err := store.ListTemplates(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestFileStoreDelete(t *testing.T) {
	store := NewFileStore(t.TempDir(), nil)
	ctx := context.Background()

	saved, err := store.SaveTemplate(ctx, &flow.FlowTemplate{Name: "doomed", Graph: sampleGraph()})
	require.NoError(t, err)

	require.NoError(t, store.DeleteTemplate(ctx, saved.ID))

	_, err = store.GetTemplate(ctx, saved.ID)
	assert.True(t, flowerrors.IsNotFound(err))

	err = store.DeleteTemplate(ctx, saved.ID)
	assert.True(t, flowerrors.IsNotFound(err))
}

func TestFileStoreRejectsTraversalIDs(t *testing.T) {
	store := NewFileStore(t.TempDir(), nil)
	ctx := context.Background()

	for _, id := range []string{"", "../escape", "a/b", `a\b`} {
		_, err := store.GetTemplate(ctx, id)
		assert.True(t, flowerrors.IsNotFound(err), "GetTemplate(%q)", id)

		err = store.DeleteTemplate(ctx, id)
		assert.True(t, flowerrors.IsNotFound(err), "DeleteTemplate(%q)", id)
	}
}
