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

// Package agent provides flow.Agent implementations: a deterministic
// dry-run agent for local runs without provider credentials, and a
// scripted agent for tests.
package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/tombee/flowctl/pkg/flow"
)

// DryRun is a flow.Agent that never calls a provider. It produces a
// deterministic response derived from the prompt, so the same flow
// always yields the same history. Used by `flowctl run --dry-run`.
type DryRun struct{}

var _ flow.Agent = (*DryRun)(nil)

// Invoke returns a canned response describing what would have been
// sent. ToolCalls is the prompt's word count, giving runs a stable,
// nonzero number to render in history output.
func (DryRun) Invoke(ctx context.Context, prompt string, cfg flow.AgentConfig) (*flow.AgentResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	model := cfg.Model
	if model == "" {
		model = "unspecified-model"
	}

	return &flow.AgentResult{
		Text:      fmt.Sprintf("[dry-run %s] %s", model, prompt),
		ToolCalls: len(strings.Fields(prompt)),
	}, nil
}
