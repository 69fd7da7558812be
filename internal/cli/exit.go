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

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/tombee/flowctl/internal/commands/shared"
	pkgerrors "github.com/tombee/flowctl/pkg/errors"
)

// ExitCodeFor maps an error to the process exit code. Commands return
// plain typed errors from pkg/errors; the mapping to codes lives here
// so every command exits consistently.
func ExitCodeFor(err error) int {
	if err == nil {
		return shared.ExitSuccess
	}

	var exitErr *shared.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	switch {
	case errors.Is(err, context.Canceled):
		return shared.ExitCancelled
	case pkgerrors.IsValidation(err), pkgerrors.IsCompileError(err), isImportFormat(err):
		return shared.ExitInvalidFlow
	case pkgerrors.IsNotFound(err):
		return shared.ExitNotFound
	case pkgerrors.IsPersistence(err):
		return shared.ExitStorage
	default:
		return shared.ExitRunFailed
	}
}

func isImportFormat(err error) bool {
	var target *pkgerrors.ImportFormatError
	return errors.As(err, &target)
}

// HandleExitError prints the error and exits with the mapped code.
// A nil error is a no-op.
func HandleExitError(err error) {
	if err == nil {
		return
	}

	if msg := err.Error(); msg != "" {
		fmt.Fprintln(os.Stderr, "Error:", msg)
	}
	printUserVisibleSuggestion(err)

	os.Exit(ExitCodeFor(err))
}

// printUserVisibleSuggestion walks the error chain and prints the first
// actionable suggestion it finds.
func printUserVisibleSuggestion(err error) {
	for err != nil {
		if userErr, ok := err.(pkgerrors.UserVisibleError); ok {
			if userErr.IsUserVisible() {
				if suggestion := userErr.UserSuggestion(); suggestion != "" {
					fmt.Fprintf(os.Stderr, "\nSuggestion: %s\n", suggestion)
				}
			}
			return
		}
		err = errors.Unwrap(err)
	}
}
