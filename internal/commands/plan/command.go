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

// Package plan implements the plan command.
package plan

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/flowctl/internal/commands/shared"
	"github.com/tombee/flowctl/pkg/flow"
)

// NewCommand creates the plan command
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <flow>",
		Short: "Compile a flow and print its execution plan",
		Annotations: map[string]string{
			"group": "authoring",
		},
		Long: `Plan compiles a flow document into its dependency-ordered execution
plan without running it: the step order, what each step waits on, which
output node receives the final answer, and any compile warnings.`,
		Example: `  # Inspect execution order
  flowctl plan flow.json

  # Machine-readable plan
  flowctl plan flow.yaml --json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runPlan,
	}

	return cmd
}

func runPlan(cmd *cobra.Command, args []string) error {
	w, imported, err := shared.LoadFlow(args[0])
	if err != nil {
		return err
	}

	p, err := flow.Compile(w)
	if err != nil {
		return err
	}

	warnings := append(imported.Warnings, p.Warnings...)

	if shared.GetJSON() {
		type response struct {
			shared.JSONResponse
			Plan     *flow.Plan `json:"plan"`
			Warnings []string   `json:"warnings,omitempty"`
		}
		return shared.EmitJSON(response{
			JSONResponse: shared.JSONResponse{Version: "1.0", Command: "plan", Success: true},
			Plan:         p,
			Warnings:     warnings,
		})
	}

	name := w.Metadata.Name
	if name == "" {
		name = args[0]
	}
	cmd.Printf("Plan for %s (%d steps)\n", name, p.MaxSteps)
	for i, step := range p.Steps {
		deps := "-"
		if len(step.DependsOn) > 0 {
			deps = strings.Join(step.DependsOn, ", ")
		}
		cmd.Printf("  %d. %s (%s)  after: %s\n", i+1, step.ID, step.Kind, deps)
	}
	cmd.Printf("Output node: %s\n", p.OutputNodeID)
	for _, warning := range warnings {
		cmd.Println(shared.RenderWarn(warning))
	}

	return nil
}
