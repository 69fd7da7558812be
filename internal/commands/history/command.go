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

// Package history implements the history command group.
package history

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/flowctl/internal/cli/timeline"
	"github.com/tombee/flowctl/internal/commands/shared"
	internalhistory "github.com/tombee/flowctl/internal/history"
	"github.com/tombee/flowctl/pkg/flow"
)

// NewCommand creates the history command group
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded flow runs",
		Annotations: map[string]string{
			"group": "runs",
		},
		Long: `History lists, shows, and deletes run records from the configured
backend. Select the backend with FLOWCTL_HISTORY_BACKEND (memory, file,
sqlite, or redis); the default is per-run JSON files.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newListCommand())
	cmd.AddCommand(newShowCommand())
	cmd.AddCommand(newDeleteCommand())

	return cmd
}

func newListCommand() *cobra.Command {
	var flowID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs for a flow, newest first",
		Example: `  flowctl history list --flow summarizer
  flowctl history list --flow summarizer --json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := shared.OpenHistory(shared.NewLogger())
			if err != nil {
				return err
			}
			defer internalhistory.Close(store)

			entries, err := store.ListForFlow(cmd.Context(), flowID)
			if err != nil {
				return err
			}

			if shared.GetJSON() {
				type response struct {
					shared.JSONResponse
					Runs []*flow.HistoryEntry `json:"runs"`
				}
				return shared.EmitJSON(response{
					JSONResponse: shared.JSONResponse{Version: "1.0", Command: "history list", Success: true},
					Runs:         entries,
				})
			}

			if len(entries) == 0 {
				cmd.Println("no runs recorded")
				return nil
			}
			for _, e := range entries {
				cmd.Printf("%s  %s  %-9s  %6s  %s\n",
					e.RunID,
					e.StartedAt.Format(time.RFC3339),
					e.Status,
					formatMS(e.TotalDurationMS),
					e.FlowName)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flowID, "flow", "", "Flow id to list runs for")
	_ = cmd.MarkFlagRequired("flow")

	return cmd
}

func newShowCommand() *cobra.Command {
	var showTimeline bool

	cmd := &cobra.Command{
		Use:   "show <runId>",
		Short: "Show one run in full",
		Example: `  flowctl history show 4f7c...
  flowctl history show 4f7c... --timeline`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := shared.OpenHistory(shared.NewLogger())
			if err != nil {
				return err
			}
			defer internalhistory.Close(store)

			entry, err := store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if shared.GetJSON() {
				type response struct {
					shared.JSONResponse
					Run *flow.HistoryEntry `json:"run"`
				}
				return shared.EmitJSON(response{
					JSONResponse: shared.JSONResponse{Version: "1.0", Command: "history show", Success: true},
					Run:          entry,
				})
			}

			printEntry(cmd, entry)

			if showTimeline {
				spans := flow.BuildTimeline(entry)
				if len(spans) > 0 {
					r, err := timeline.NewRenderer()
					if err != nil {
						return err
					}
					r.ShowLanes = true
					rendered, err := r.Render(entry.FlowName, spans)
					if err != nil {
						return err
					}
					cmd.Print(rendered)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showTimeline, "timeline", false, "Render the run timeline")

	return cmd
}

func newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "delete <runId>",
		Short:         "Delete one run record",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := shared.OpenHistory(shared.NewLogger())
			if err != nil {
				return err
			}
			defer internalhistory.Close(store)

			deleted, err := store.DeleteRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !deleted {
				cmd.Printf("run %s not found\n", args[0])
				return nil
			}
			if !shared.GetQuiet() {
				cmd.Println(shared.RenderOK("deleted " + args[0]))
			}
			return nil
		},
	}
}

func printEntry(cmd *cobra.Command, e *flow.HistoryEntry) {
	cmd.Printf("Run:      %s\n", e.RunID)
	cmd.Printf("Flow:     %s (%s)\n", e.FlowName, e.FlowID)
	cmd.Printf("Status:   %s\n", shared.RenderStepStatus(string(e.Status)))
	cmd.Printf("Started:  %s\n", e.StartedAt.Format(time.RFC3339))
	cmd.Printf("Duration: %s\n", formatMS(e.TotalDurationMS))
	if e.Goal != "" {
		cmd.Printf("Goal:     %s\n", e.Goal)
	}
	if e.Error != "" {
		cmd.Printf("Error:    %s\n", e.Error)
	}

	cmd.Println("\nSteps:")
	for _, s := range e.Steps {
		cmd.Printf("  %-12s %-24s %s  %s\n",
			s.StepID, s.Description, shared.RenderStepStatus(s.Status), formatMS(s.DurationMS))
		if s.Error != "" {
			cmd.Printf("    %s\n", s.Error)
		}
	}

	if e.FinalAnswer != "" {
		cmd.Printf("\nFinal answer:\n%s\n", e.FinalAnswer)
	}
}

func formatMS(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	if d < time.Second {
		return fmt.Sprintf("%dms", ms)
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
