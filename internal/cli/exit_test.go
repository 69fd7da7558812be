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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tombee/flowctl/internal/commands/shared"
	pkgerrors "github.com/tombee/flowctl/pkg/errors"
)

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, shared.ExitSuccess},
		{"validation", &pkgerrors.ValidationError{Field: "nodes", Message: "empty"}, shared.ExitInvalidFlow},
		{"compile", &pkgerrors.CompileError{Reason: "cycle detected"}, shared.ExitInvalidFlow},
		{"import format", &pkgerrors.ImportFormatError{Format: "JSON", Message: "bad"}, shared.ExitInvalidFlow},
		{"not found", &pkgerrors.NotFoundError{Resource: "run", ID: "r1"}, shared.ExitNotFound},
		{"persistence", &pkgerrors.PersistenceError{Op: "save", Key: "r1", Cause: errors.New("disk")}, shared.ExitStorage},
		{"cancelled", context.Canceled, shared.ExitCancelled},
		{"wrapped cancelled", fmt.Errorf("run aborted: %w", context.Canceled), shared.ExitCancelled},
		{"wrapped not found", fmt.Errorf("lookup: %w", &pkgerrors.NotFoundError{Resource: "template", ID: "t"}), shared.ExitNotFound},
		{"explicit exit error", &shared.ExitError{Code: shared.ExitStorage, Message: "boom"}, shared.ExitStorage},
		{"generic", errors.New("something broke"), shared.ExitRunFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCodeFor(tt.err))
		})
	}
}
