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

package agent

import (
	"context"
	"strings"
	"sync"

	"github.com/tombee/flowctl/pkg/flow"
)

// Scripted is a flow.Agent for tests. Responses and failures are keyed
// by prompt substring, and every invocation is recorded for assertion.
type Scripted struct {
	mu        sync.Mutex
	responses map[string]*flow.AgentResult
	failures  map[string]error
	fallback  string
	invoked   []string
}

var _ flow.Agent = (*Scripted)(nil)

// NewScripted creates a scripted agent. Prompts matching no script
// entry answer with fallback.
func NewScripted(fallback string) *Scripted {
	return &Scripted{
		responses: make(map[string]*flow.AgentResult),
		failures:  make(map[string]error),
		fallback:  fallback,
	}
}

// Respond registers a response for prompts containing the substring.
func (s *Scripted) Respond(substring, text string) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[substring] = &flow.AgentResult{Text: text}
	return s
}

// Fail registers a failure for prompts containing the substring.
func (s *Scripted) Fail(substring string, err error) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[substring] = err
	return s
}

// Invoke answers from the script. Failures take precedence over
// responses when both match.
func (s *Scripted) Invoke(ctx context.Context, prompt string, cfg flow.AgentConfig) (*flow.AgentResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoked = append(s.invoked, prompt)

	for substring, err := range s.failures {
		if substring != "" && strings.Contains(prompt, substring) {
			return nil, err
		}
	}
	for substring, res := range s.responses {
		if substring != "" && strings.Contains(prompt, substring) {
			out := *res
			return &out, nil
		}
	}
	return &flow.AgentResult{Text: s.fallback}, nil
}

// Invocations returns the prompts seen so far, in order.
func (s *Scripted) Invocations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.invoked))
	copy(out, s.invoked)
	return out
}
