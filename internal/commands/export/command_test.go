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

package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/flowctl/pkg/flow"
)

const dirtyFlowJSON = `{
  "nodes": [
    {"id": "in", "kind": "input", "config": {"text": "hello"}},
    {"id": "ag", "kind": "agent", "config": {"model": "m", "prompt": "p", "result": "stale"},
     "runtime": {"status": "error", "error": "old failure"}},
    {"id": "out", "kind": "output"}
  ],
  "edges": [
    {"id": "e1", "source": "in", "target": "ag"},
    {"id": "e2", "source": "ag", "target": "out"}
  ],
  "metadata": {"name": "dirty"}
}`

func writeFlow(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flow.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestExportStripsRuntime(t *testing.T) {
	path := writeFlow(t, dirtyFlowJSON)

	cmd := NewCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{path})

	require.NoError(t, cmd.Execute())

	var w flow.Workflow
	require.NoError(t, json.Unmarshal(out.Bytes(), &w))
	require.Len(t, w.Nodes, 3)
	assert.Equal(t, flow.StatusIdle, w.Nodes[1].Runtime.Status)
	assert.Empty(t, w.Nodes[1].Runtime.Error)
	assert.Empty(t, w.Nodes[1].Config.Result)
}

func TestExportYAMLRoundTrips(t *testing.T) {
	path := writeFlow(t, dirtyFlowJSON)

	cmd := NewCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{path, "--format", "yaml"})

	require.NoError(t, cmd.Execute())

	res := flow.ImportYAML(out.String())
	require.True(t, res.Valid, "exported YAML re-imports: %v", res.Errors)
	assert.Len(t, res.Workflow.Nodes, 3)
	assert.Len(t, res.Workflow.Edges, 2)
	assert.Equal(t, "dirty", res.Workflow.Metadata.Name)
}

func TestExportToFile(t *testing.T) {
	path := writeFlow(t, dirtyFlowJSON)
	outPath := filepath.Join(t.TempDir(), "out.json")

	cmd := NewCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{path, "-o", outPath})

	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	res := flow.ImportJSON(string(data))
	assert.True(t, res.Valid)
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	path := writeFlow(t, dirtyFlowJSON)

	cmd := NewCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{path, "--format", "toml"})

	assert.Error(t, cmd.Execute())
}
