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

// UserVisibleError defines errors that should be displayed to end users
// with user-friendly messages and actionable suggestions. The CLI error
// handler walks the error chain looking for this interface and prints
// the suggestion when present.
type UserVisibleError interface {
	error

	// IsUserVisible returns true if this error should be shown to users.
	// Internal errors or debugging details should return false.
	IsUserVisible() bool

	// UserSuggestion returns actionable guidance for resolving the
	// error. Returns empty string if no suggestion is available.
	UserSuggestion() string
}

// IsUserVisible marks validation errors as user-facing.
func (e *ValidationError) IsUserVisible() bool {
	return true
}

// UserSuggestion returns the attached suggestion, if any.
func (e *ValidationError) UserSuggestion() string {
	return e.Suggestion
}
