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

// Package validate implements the validate command.
package validate

import (
	"fmt"
	"sort"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tombee/flowctl/internal/commands/shared"
	"github.com/tombee/flowctl/pkg/flow"
)

// FileResult is the validation outcome for one flow file.
type FileResult struct {
	Path     string   `json:"path"`
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// NewCommand creates the validate command
func NewCommand() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "validate <flow>...",
		Short: "Validate flow document structure",
		Annotations: map[string]string{
			"group": "authoring",
		},
		Long: `Validate checks that flow files parse and pass structural validation:
at least one agent or template node, an output node, an input node, no
orphans, no duplicate ids, and no dangling edge references. Warnings
cover missing names and agent nodes without a model.

Multiple files are validated concurrently. With --watch, validation
re-runs whenever a watched file changes.`,
		Example: `  # Validate one flow
  flowctl validate flow.json

  # Validate everything, machine-readable
  flowctl validate flows/*.yaml --json

  # Keep validating as you edit
  flowctl validate flow.yaml --watch`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch {
				return runWatch(cmd, args)
			}
			results := validateAll(args)
			return report(cmd, results)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Re-validate when watched files change")

	return cmd
}

// validateAll validates each file on its own goroutine and returns
// results in the original argument order.
func validateAll(paths []string) []FileResult {
	results := make([]FileResult, len(paths))

	var g errgroup.Group
	var mu sync.Mutex
	for i, path := range paths {
		g.Go(func() error {
			res := validateOne(path)
			mu.Lock()
			results[i] = res
			mu.Unlock()
			return nil
		})
	}
	// Workers never return errors; failures land in the result rows.
	_ = g.Wait()

	return results
}

func validateOne(path string) FileResult {
	w, imported, err := shared.LoadFlow(path)
	if err != nil {
		errs := imported.Errors
		if len(errs) == 0 {
			errs = []string{err.Error()}
		}
		return FileResult{Path: path, Errors: errs, Warnings: imported.Warnings}
	}

	v := flow.Validate(w)
	return FileResult{
		Path:     path,
		Valid:    v.Valid,
		Errors:   v.Errors,
		Warnings: append(imported.Warnings, v.Warnings...),
	}
}

// report prints results and returns a non-nil error when any file is
// invalid, so the process exits with the invalid-flow code.
func report(cmd *cobra.Command, results []FileResult) error {
	invalid := 0
	for _, r := range results {
		if !r.Valid {
			invalid++
		}
	}

	if shared.GetJSON() {
		type response struct {
			shared.JSONResponse
			Files []FileResult `json:"files"`
		}
		if err := shared.EmitJSON(response{
			JSONResponse: shared.JSONResponse{Version: "1.0", Command: "validate", Success: invalid == 0},
			Files:        results,
		}); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if r.Valid {
				if !shared.GetQuiet() {
					cmd.Println(shared.RenderOK(r.Path))
				}
			} else {
				cmd.Println(shared.RenderError(r.Path))
			}
			for _, e := range r.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s: error: %s\n", r.Path, e)
			}
			for _, w := range r.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s: warning: %s\n", r.Path, w)
			}
		}
	}

	if invalid > 0 {
		return shared.NewInvalidFlowError(fmt.Sprintf("%d of %d files invalid", invalid, len(results)), nil)
	}
	return nil
}

// dedupe returns paths with duplicates removed, sorted for stable
// watcher registration.
func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	var out []string
	for _, p := range paths {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}
