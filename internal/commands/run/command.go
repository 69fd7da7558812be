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

// Package run implements the run command: import, validate, compile,
// and execute a flow document, streaming events and recording history.
package run

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/tombee/flowctl/internal/agent"
	"github.com/tombee/flowctl/internal/cli/timeline"
	"github.com/tombee/flowctl/internal/commands/shared"
	internalhistory "github.com/tombee/flowctl/internal/history"
	"github.com/tombee/flowctl/internal/log"
	"github.com/tombee/flowctl/internal/tracing"
	"github.com/tombee/flowctl/pkg/flow"
)

type options struct {
	dryRun        bool
	goal          string
	maxConcurrent int
	dispatchRate  float64
	showTimeline  bool
	noSave        bool
}

// NewCommand creates the run command
func NewCommand() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "run <flow>",
		Short: "Execute a flow and record the run",
		Annotations: map[string]string{
			"group": "runs",
		},
		Long: `Run imports a flow document, validates and compiles it, then executes
the plan: independent steps dispatch concurrently, a step whose upstream
fails is skipped, and ctrl-c drains in-flight steps instead of killing
them. Progress events stream to stderr as they happen and the finished
run is written to the configured history backend.

Without provider credentials the dry-run agent answers every prompt
deterministically, which makes runs reproducible and free.`,
		Example: `  # Execute with the dry-run agent
  flowctl run flow.json

  # Limit concurrency and pace dispatches
  flowctl run flow.json --max-concurrent 2 --rate 5

  # Render the lane timeline after the run
  flowctl run flow.json --timeline`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlow(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", true, "Use the deterministic dry-run agent")
	cmd.Flags().StringVar(&opts.goal, "goal", "", "Goal recorded with the run")
	cmd.Flags().IntVar(&opts.maxConcurrent, "max-concurrent", 0, "Maximum steps in flight (0 = unlimited)")
	cmd.Flags().Float64Var(&opts.dispatchRate, "rate", 0, "Step dispatches per second (0 = unpaced)")
	cmd.Flags().BoolVar(&opts.showTimeline, "timeline", false, "Render the lane timeline after the run")
	cmd.Flags().BoolVar(&opts.noSave, "no-save", false, "Do not record the run in history")

	return cmd
}

func runFlow(cmd *cobra.Command, path string, opts options) error {
	if !opts.dryRun {
		return fmt.Errorf("no provider is configured; re-run with --dry-run")
	}

	logger := shared.NewLogger()
	mw := log.NewMiddleware(logger)

	w, imported, err := shared.LoadFlow(path)
	if err != nil {
		return err
	}
	for _, warning := range imported.Warnings {
		cmd.PrintErrln(shared.RenderWarn(warning))
	}

	v := flow.Validate(w)
	if !v.Valid {
		return shared.NewInvalidFlowError(fmt.Sprintf("%s: %s", path, strings.Join(v.Errors, "; ")), nil)
	}
	for _, warning := range v.Warnings {
		cmd.PrintErrln(shared.RenderWarn(warning))
	}

	plan, err := flow.Compile(w)
	if err != nil {
		return err
	}
	for _, warning := range plan.Warnings {
		cmd.PrintErrln(shared.RenderWarn(warning))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, tracer, err := tracing.Init(ctx, shared.TraceEnabled(), versionString())
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("trace shutdown failed", log.Error(err))
		}
	}()

	exec := flow.NewExecutor(&agent.DryRun{}, flow.LiteralRenderer{}).
		WithLogger(logger).
		WithTracer(tracer).
		WithFlowID(w.Metadata.Name).
		WithGoal(opts.goal)
	if opts.maxConcurrent > 0 {
		exec = exec.WithMaxConcurrent(opts.maxConcurrent)
	}
	if opts.dispatchRate > 0 {
		exec = exec.WithDispatchLimiter(rate.NewLimiter(rate.Limit(opts.dispatchRate), 1))
	}

	events := flow.NewEventChannel[flow.Event]()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		// Consume with a fresh context so draining survives cancellation.
		streamEvents(context.Background(), cmd, events)
	}()

	var entry *flow.HistoryEntry
	err = mw.Handler(&log.Operation{Name: "run", FlowID: w.Metadata.Name}, func() error {
		var runErr error
		entry, runErr = exec.Run(ctx, plan, w, events)
		return runErr
	})
	wg.Wait()
	if err != nil {
		return err
	}

	if !opts.noSave {
		if err := saveHistory(cmd.Context(), logger, entry); err != nil {
			return err
		}
	}

	return reportRun(cmd, entry, opts)
}

// streamEvents prints each run event to stderr as it arrives. Log and
// status events render as lines; timeline events are skipped here
// because the final timeline view covers them.
func streamEvents(ctx context.Context, cmd *cobra.Command, events *flow.EventChannel[flow.Event]) {
	quiet := shared.GetQuiet()
	for ev := range events.All(ctx) {
		if quiet {
			continue
		}
		switch ev.Kind {
		case flow.EventLog:
			cmd.PrintErrf("%s  %-8s %s\n", ev.Timestamp.Format("15:04:05.000"), ev.Log.Level, ev.Log.Message)
		case flow.EventStatus:
			cmd.PrintErrf("%s  status   run %s\n", ev.Timestamp.Format("15:04:05.000"), ev.Status.Status)
		}
	}
}

func saveHistory(ctx context.Context, logger *slog.Logger, entry *flow.HistoryEntry) error {
	store, err := shared.OpenHistory(logger)
	if err != nil {
		return err
	}
	defer internalhistory.Close(store)

	return store.Save(ctx, entry)
}

func reportRun(cmd *cobra.Command, entry *flow.HistoryEntry, opts options) error {
	if shared.GetJSON() {
		type response struct {
			shared.JSONResponse
			Run *flow.HistoryEntry `json:"run"`
		}
		if err := shared.EmitJSON(response{
			JSONResponse: shared.JSONResponse{Version: "1.0", Command: "run", Success: entry.Status == flow.RunSuccess},
			Run:          entry,
		}); err != nil {
			return err
		}
	} else {
		if !shared.GetQuiet() {
			cmd.Printf("run %s %s in %dms\n", entry.RunID, entry.Status, entry.TotalDurationMS)
		}
		if entry.FinalAnswer != "" {
			cmd.Println(entry.FinalAnswer)
		}

		if opts.showTimeline {
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
				cmd.PrintErr(rendered)
			}
		}
	}

	switch entry.Status {
	case flow.RunError:
		return shared.NewRunFailedError(fmt.Sprintf("run %s failed: %s", entry.RunID, entry.Error), nil)
	case flow.RunCancelled:
		return &shared.ExitError{Code: shared.ExitCancelled, Message: fmt.Sprintf("run %s cancelled", entry.RunID)}
	}
	return nil
}

func versionString() string {
	v, _, _ := shared.GetVersion()
	return v
}
