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

package main

import (
	"github.com/tombee/flowctl/internal/cli"
	"github.com/tombee/flowctl/internal/commands/completion"
	"github.com/tombee/flowctl/internal/commands/export"
	"github.com/tombee/flowctl/internal/commands/history"
	"github.com/tombee/flowctl/internal/commands/imports"
	"github.com/tombee/flowctl/internal/commands/plan"
	"github.com/tombee/flowctl/internal/commands/run"
	"github.com/tombee/flowctl/internal/commands/schema"
	"github.com/tombee/flowctl/internal/commands/template"
	"github.com/tombee/flowctl/internal/commands/validate"
	versioncmd "github.com/tombee/flowctl/internal/commands/version"
)

// Version information (injected via ldflags at build time)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	// Set version information from build-time ldflags
	cli.SetVersion(version, commit, buildDate)

	// Create root command and add subcommands
	rootCmd := cli.NewRootCommand()

	// Execution commands
	rootCmd.AddCommand(run.NewCommand())
	rootCmd.AddCommand(plan.NewCommand())

	// Authoring commands
	rootCmd.AddCommand(validate.NewCommand())
	rootCmd.AddCommand(imports.NewCommand())
	rootCmd.AddCommand(export.NewCommand())
	rootCmd.AddCommand(schema.NewCommand())
	rootCmd.AddCommand(template.NewCommand())

	// Run inspection
	rootCmd.AddCommand(history.NewCommand())

	// Version and shell completion
	rootCmd.AddCommand(versioncmd.NewVersionCommand())
	rootCmd.AddCommand(completion.NewCommand())

	// Custom help command with JSON support
	rootCmd.SetHelpCommand(cli.NewHelpCommand(rootCmd))

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		cli.HandleExitError(err)
	}
}
