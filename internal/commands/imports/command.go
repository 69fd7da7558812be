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

// Package imports implements the import command. The package is named
// imports because import is a Go keyword.
package imports

import (
	"github.com/spf13/cobra"

	"github.com/tombee/flowctl/internal/commands/shared"
	"github.com/tombee/flowctl/internal/templates"
	"github.com/tombee/flowctl/pkg/flow"
)

// NewCommand creates the import command
func NewCommand() *cobra.Command {
	var (
		save    bool
		saveDir string
	)

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a flow document and report problems",
		Annotations: map[string]string{
			"group": "authoring",
		},
		Long: `Import parses a flow document in either JSON or YAML, reporting parse
errors and permissive-import warnings (unknown node kinds, dangling edge
references). On success the canonical JSON form is printed, or with
--save the flow is stored as a reusable template.`,
		Example: `  # Check a file and print its canonical form
  flowctl import flow.yaml

  # Store as a saved template
  flowctl import flow.yaml --save`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0], save, saveDir)
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "Save the imported flow as a template")
	cmd.Flags().StringVar(&saveDir, "templates-dir", "", "Template directory for --save (default: configured store)")

	return cmd
}

func runImport(cmd *cobra.Command, path string, save bool, saveDir string) error {
	w, imported, err := shared.LoadFlow(path)
	if err != nil {
		return err
	}

	for _, warning := range imported.Warnings {
		cmd.PrintErrln(shared.RenderWarn(warning))
	}

	if save {
		store := shared.OpenTemplates(shared.NewLogger())
		if saveDir != "" {
			store = templates.NewFileStore(saveDir, shared.NewLogger())
		}
		saved, err := store.SaveTemplate(cmd.Context(), &flow.FlowTemplate{
			Name:        w.Metadata.Name,
			Description: w.Metadata.Description,
			Graph:       *w,
		})
		if err != nil {
			return err
		}
		cmd.Println(shared.RenderOK("saved template " + saved.ID))
		return nil
	}

	text, err := flow.ExportJSON(w)
	if err != nil {
		return err
	}
	cmd.Println(text)
	return nil
}
