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
	"os"
	"path/filepath"
	"strings"

	"github.com/tombee/flowctl/pkg/flow"
)

// ImportText parses flow document text. The format is chosen by file
// extension; unknown extensions sniff the first non-space byte, since
// every JSON document opens with '{' and YAML flows never do.
func ImportText(path, text string) flow.ImportResult {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return flow.ImportJSON(text)
	case ".yaml", ".yml":
		return flow.ImportYAML(text)
	}

	trimmed := strings.TrimLeft(text, " \t\r\n")
	if strings.HasPrefix(trimmed, "{") {
		return flow.ImportJSON(text)
	}
	return flow.ImportYAML(text)
}

// LoadFlow reads and imports a flow document from disk. The returned
// ImportResult carries non-fatal warnings; the error is set when the
// file cannot be read or the document does not parse.
func LoadFlow(path string) (*flow.Workflow, flow.ImportResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, flow.ImportResult{}, &ExitError{
			Code:    ExitNotFound,
			Message: fmt.Sprintf("failed to read flow file %s", path),
			Cause:   err,
		}
	}

	result := ImportText(path, string(data))
	if !result.Valid {
		return nil, result, &ExitError{
			Code:    ExitInvalidFlow,
			Message: fmt.Sprintf("%s: %s", path, strings.Join(result.Errors, "; ")),
		}
	}
	return result.Workflow, result, nil
}
