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

package run

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalhistory "github.com/tombee/flowctl/internal/history"
)

const chainFlowJSON = `{
  "nodes": [
    {"id": "in", "kind": "input", "config": {"text": "hello"}},
    {"id": "ag", "kind": "agent", "config": {"model": "test-model", "prompt": "summarize {{in}}"}},
    {"id": "tpl", "kind": "template", "config": {"template": "result: {{ag}}"}},
    {"id": "out", "kind": "output"}
  ],
  "edges": [
    {"id": "e1", "source": "in", "target": "ag"},
    {"id": "e2", "source": "ag", "target": "tpl"},
    {"id": "e3", "source": "tpl", "target": "out"}
  ],
  "metadata": {"name": "chain"}
}`

const invalidFlowJSON = `{"nodes": [{"id": "in", "kind": "input"}], "edges": []}`

const cyclicFlowJSON = `{
  "nodes": [
    {"id": "in", "kind": "input", "config": {"text": "x"}},
    {"id": "a", "kind": "agent", "config": {"model": "m", "prompt": "p"}},
    {"id": "b", "kind": "template", "config": {"template": "t"}},
    {"id": "out", "kind": "output"}
  ],
  "edges": [
    {"id": "e1", "source": "in", "target": "a"},
    {"id": "e2", "source": "a", "target": "b"},
    {"id": "e3", "source": "b", "target": "a"},
    {"id": "e4", "source": "b", "target": "out"}
  ],
  "metadata": {"name": "cyclic"}
}`

func writeFlow(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flow.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func setupHistory(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("FLOWCTL_HISTORY_BACKEND", internalhistory.BackendFile)
	t.Setenv("FLOWCTL_HISTORY_DIR", dir)
	return dir
}

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := NewCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRunChainFlow(t *testing.T) {
	dir := setupHistory(t)
	path := writeFlow(t, chainFlowJSON)

	stdout, stderr, err := execute(t, path)
	require.NoError(t, err)

	// The dry-run agent echoes its model and prompt, and the template
	// step wraps the agent's answer.
	assert.Contains(t, stdout, "result: [dry-run test-model] summarize hello")
	assert.Contains(t, stdout, "success")

	// Events streamed to stderr.
	assert.Contains(t, stderr, "run running")

	// History persisted.
	store, err := internalhistory.Open(internalhistory.Config{
		Backend: internalhistory.BackendFile,
		Dir:     dir,
	})
	require.NoError(t, err)
	entries, err := store.ListForFlow(context.Background(), "chain")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Len(t, entries[0].Steps, 2)
}

func TestRunNoSaveSkipsHistory(t *testing.T) {
	dir := setupHistory(t)
	path := writeFlow(t, chainFlowJSON)

	_, _, err := execute(t, path, "--no-save")
	require.NoError(t, err)

	store, err := internalhistory.Open(internalhistory.Config{
		Backend: internalhistory.BackendFile,
		Dir:     dir,
	})
	require.NoError(t, err)
	entries, err := store.ListForFlow(context.Background(), "chain")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunRejectsInvalidFlow(t *testing.T) {
	setupHistory(t)
	path := writeFlow(t, invalidFlowJSON)

	_, _, err := execute(t, path)
	assert.Error(t, err)
}

func TestRunRejectsCyclicFlow(t *testing.T) {
	setupHistory(t)
	path := writeFlow(t, cyclicFlowJSON)

	_, _, err := execute(t, path)
	assert.Error(t, err)
}

func TestRunWithoutDryRunFails(t *testing.T) {
	setupHistory(t)
	path := writeFlow(t, chainFlowJSON)

	_, _, err := execute(t, path, "--dry-run=false")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider")
}

func TestRunMissingFileFails(t *testing.T) {
	setupHistory(t)

	_, _, err := execute(t, filepath.Join(t.TempDir(), "nowhere.json"))
	assert.Error(t, err)
}
