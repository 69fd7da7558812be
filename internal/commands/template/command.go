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

// Package template implements the template command group for saved
// flow templates.
package template

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/flowctl/internal/commands/shared"
	"github.com/tombee/flowctl/pkg/flow"
)

// NewCommand creates the template command group
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Manage saved flow templates",
		Annotations: map[string]string{
			"group": "authoring",
		},
		Long: `Template manages the saved flow template store: reusable flow graphs
stored as JSON files under the configured templates directory
(FLOWCTL_TEMPLATES_DIR). Saving always strips runtime state, so a
template opens fresh no matter what run it was saved from.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newListCommand())
	cmd.AddCommand(newShowCommand())
	cmd.AddCommand(newSaveCommand())
	cmd.AddCommand(newDeleteCommand())

	return cmd
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List saved templates by name",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := shared.OpenTemplates(shared.NewLogger())

			list, err := store.ListTemplates(cmd.Context())
			if err != nil {
				return err
			}

			if shared.GetJSON() {
				type response struct {
					shared.JSONResponse
					Templates []*flow.FlowTemplate `json:"templates"`
				}
				return shared.EmitJSON(response{
					JSONResponse: shared.JSONResponse{Version: "1.0", Command: "template list", Success: true},
					Templates:    list,
				})
			}

			if len(list) == 0 {
				cmd.Println("no templates saved")
				return nil
			}
			for _, tpl := range list {
				cmd.Printf("%s  %-20s  %d nodes  updated %s\n",
					tpl.ID, tpl.Name, len(tpl.Graph.Nodes), tpl.UpdatedAt.Format(time.RFC3339))
			}
			return nil
		},
	}
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "show <id>",
		Short:             "Print one template as interchange JSON",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeTemplateIDs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := shared.OpenTemplates(shared.NewLogger())

			tpl, err := store.GetTemplate(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if shared.GetJSON() {
				type response struct {
					shared.JSONResponse
					Template *flow.FlowTemplate `json:"template"`
				}
				return shared.EmitJSON(response{
					JSONResponse: shared.JSONResponse{Version: "1.0", Command: "template show", Success: true},
					Template:     tpl,
				})
			}

			text, err := flow.ExportJSON(&tpl.Graph)
			if err != nil {
				return err
			}
			cmd.Println(text)
			return nil
		},
	}
}

// completeTemplateIDs offers saved template IDs for shell completion.
func completeTemplateIDs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) != 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	list, err := shared.OpenTemplates(shared.NewLogger()).ListTemplates(cmd.Context())
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	var ids []string
	for _, tpl := range list {
		if strings.HasPrefix(tpl.ID, toComplete) {
			ids = append(ids, tpl.ID+"\t"+tpl.Name)
		}
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}

func newSaveCommand() *cobra.Command {
	var name, description string

	cmd := &cobra.Command{
		Use:           "save <flow>",
		Short:         "Save a flow file as a template",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, _, err := shared.LoadFlow(args[0])
			if err != nil {
				return err
			}

			if name == "" {
				name = w.Metadata.Name
			}
			if description == "" {
				description = w.Metadata.Description
			}

			store := shared.OpenTemplates(shared.NewLogger())
			saved, err := store.SaveTemplate(cmd.Context(), &flow.FlowTemplate{
				Name:        name,
				Description: description,
				Graph:       *w,
			})
			if err != nil {
				return err
			}
			cmd.Println(shared.RenderOK("saved template " + saved.ID))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Template name (default: flow metadata name)")
	cmd.Flags().StringVar(&description, "description", "", "Template description")

	return cmd
}

func newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "delete <id>",
		Short:             "Delete a saved template",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeTemplateIDs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := shared.OpenTemplates(shared.NewLogger())

			if err := store.DeleteTemplate(cmd.Context(), args[0]); err != nil {
				return err
			}
			if !shared.GetQuiet() {
				cmd.Println(shared.RenderOK("deleted " + args[0]))
			}
			return nil
		},
	}
}
