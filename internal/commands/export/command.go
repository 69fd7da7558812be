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

// Package export implements the export command.
package export

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tombee/flowctl/internal/commands/shared"
	"github.com/tombee/flowctl/pkg/flow"
)

// NewCommand creates the export command
func NewCommand() *cobra.Command {
	var (
		format  string
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "export <flow>",
		Short: "Export a flow as normalized interchange text",
		Annotations: map[string]string{
			"group": "authoring",
		},
		Long: `Export reads a flow document, strips all runtime state, and writes it
back out in canonical interchange form. Use it to normalize hand-edited
files or to convert between JSON and YAML.`,
		Example: `  # Convert to YAML
  flowctl export flow.json --format yaml

  # Normalize in place
  flowctl export flow.json -o flow.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, args[0], format, outPath)
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "Output format: json or yaml")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Write to file instead of stdout")

	return cmd
}

func runExport(cmd *cobra.Command, path, format, outPath string) error {
	w, _, err := shared.LoadFlow(path)
	if err != nil {
		return err
	}

	var text string
	switch format {
	case "json":
		text, err = flow.ExportJSON(w)
	case "yaml", "yml":
		text, err = flow.ExportYAML(w)
	default:
		return shared.NewInvalidFlowError(fmt.Sprintf("unknown export format %q (expected json or yaml)", format), nil)
	}
	if err != nil {
		return err
	}

	if outPath != "" {
		if err := os.WriteFile(outPath, []byte(text), 0o644); err != nil {
			return shared.NewStorageError(fmt.Sprintf("failed to write %s", outPath), err)
		}
		if !shared.GetQuiet() {
			cmd.Println(shared.RenderOK("wrote " + outPath))
		}
		return nil
	}

	cmd.Print(text)
	if len(text) > 0 && text[len(text)-1] != '\n' {
		cmd.Println()
	}
	return nil
}
