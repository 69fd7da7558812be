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

package errors

import (
	"fmt"
	"strings"
)

// ValidationError represents a structural problem with user input.
// Use this for invalid flow documents, malformed identifiers, or
// constraint violations surfaced one at a time (batch validation of a
// whole graph returns a result list instead, see flow.Validate).
type ValidationError struct {
	// Field identifies which input field failed validation
	Field string

	// Message is the human-readable error description
	Message string

	// Suggestion provides actionable guidance for fixing the error
	Suggestion string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// CompileError represents a graph that cannot be turned into an
// execution plan: a dependency cycle, or a missing required node kind.
// Compilation is all-or-nothing, so a CompileError is always fatal to
// the compile call that raised it.
type CompileError struct {
	// Reason is the human-readable explanation of why compilation failed
	Reason string

	// Nodes lists the node ids involved, when known (e.g. the members
	// of a detected cycle)
	Nodes []string
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if len(e.Nodes) > 0 {
		return fmt.Sprintf("compile failed: %s (nodes: %s)", e.Reason, strings.Join(e.Nodes, ", "))
	}
	return fmt.Sprintf("compile failed: %s", e.Reason)
}

// StepExecutionError represents the failure of a single step's external
// action during a run. It is recovered locally: the step is marked
// failed, its dependents are skipped, and independent branches continue.
type StepExecutionError struct {
	// StepID is the id of the step whose action failed
	StepID string

	// Message is the human-readable error description
	Message string

	// Cause is the underlying error from the collaborator
	Cause error
}

// Error implements the error interface.
func (e *StepExecutionError) Error() string {
	if e.StepID != "" {
		return fmt.Sprintf("step %s failed: %s", e.StepID, e.Message)
	}
	return fmt.Sprintf("step failed: %s", e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *StepExecutionError) Unwrap() error {
	return e.Cause
}

// ImportFormatError represents malformed interchange text. An import
// that produces this error never mutates or partially applies anything.
type ImportFormatError struct {
	// Format is the interchange format being parsed ("JSON" or "YAML")
	Format string

	// Message is the human-readable parse failure description
	Message string
}

// Error implements the error interface.
func (e *ImportFormatError) Error() string {
	if e.Format != "" {
		return fmt.Sprintf("%s parse failure: %s", e.Format, e.Message)
	}
	return fmt.Sprintf("parse failure: %s", e.Message)
}

// PersistenceError represents a store read/write failure. It is
// surfaced to the caller of the history or template store and not
// retried automatically.
type PersistenceError struct {
	// Op describes the operation that failed (e.g. "save run", "list templates")
	Op string

	// Key identifies the record involved, when known
	Key string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("persistence error during %s (%s): %v", e.Op, e.Key, e.Cause)
	}
	return fmt.Sprintf("persistence error during %s: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *PersistenceError) Unwrap() error {
	return e.Cause
}

// NotFoundError represents a resource not found error.
// Use this when a requested resource does not exist.
type NotFoundError struct {
	// Resource is the type of resource (e.g., "run", "template", "node")
	Resource string

	// ID is the identifier that was not found
	ID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ConfigError represents configuration problems.
// Use this for environment or flag misconfiguration, such as an unknown
// history backend name or an unusable storage directory.
type ConfigError struct {
	// Key is the configuration key that has the problem (e.g., "FLOWCTL_HISTORY_BACKEND")
	Key string

	// Reason explains what's wrong with the configuration
	Reason string

	// Cause is the underlying error (e.g., file read error, parse error)
	Cause error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("config error at %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("config error: %s", e.Reason)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}
