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

// Package schema implements the schema command.
package schema

import (
	"github.com/spf13/cobra"

	"github.com/tombee/flowctl/schemas"
)

// NewCommand creates the schema command
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the flow interchange JSON Schema",
		Annotations: map[string]string{
			"group": "authoring",
		},
		Long: `Schema prints the embedded JSON Schema describing the flow interchange
document format. Point an editor or validator at it for autocompletion
and early feedback while authoring flow files.`,
		Example: `  # Write the schema next to your flow files
  flowctl schema > flow.schema.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.Println(schemas.GetFlowSchemaString())
			return nil
		},
	}
}
