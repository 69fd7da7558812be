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

package shared

import (
	"fmt"
)

// Exit codes for flowctl commands
const (
	ExitSuccess     = 0
	ExitRunFailed   = 1   // A step failed during execution
	ExitInvalidFlow = 2   // Validation, compile, or import errors
	ExitNotFound    = 3   // Run, template, or file not found
	ExitStorage     = 4   // History or template persistence failure
	ExitCancelled   = 130 // Run interrupted (128 + SIGINT)
)

// ExitError is an error that carries an exit code
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		if e.Message == "" {
			return e.Cause.Error()
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewInvalidFlowError creates an error for invalid flow documents
func NewInvalidFlowError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitInvalidFlow,
		Message: msg,
		Cause:   cause,
	}
}

// NewRunFailedError creates an error for flow execution failures
func NewRunFailedError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitRunFailed,
		Message: msg,
		Cause:   cause,
	}
}

// NewStorageError creates an error for persistence failures
func NewStorageError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitStorage,
		Message: msg,
		Cause:   cause,
	}
}
