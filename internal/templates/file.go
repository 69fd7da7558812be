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

// Package templates provides the file-backed saved flow template store.
// Each template is one <id>.json document under a root directory, so
// templates can be inspected, copied between machines, and kept in
// version control.
package templates

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"github.com/tombee/flowctl/pkg/errors"
	"github.com/tombee/flowctl/pkg/flow"
)

// FileStore is a flow.TemplateStore backed by JSON files.
type FileStore struct {
	root   string
	logger *slog.Logger
	now    func() time.Time
}

var _ flow.TemplateStore = (*FileStore)(nil)

// NewFileStore creates a file-backed template store rooted at dir.
func NewFileStore(dir string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{root: dir, logger: logger, now: time.Now}
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.root, id+".json")
}

// SaveTemplate stores the template and returns the stored copy. An
// empty ID mints a new one; an existing ID overwrites in place, keeping
// CreatedAt and bumping UpdatedAt.
func (s *FileStore) SaveTemplate(ctx context.Context, tpl *flow.FlowTemplate) (*flow.FlowTemplate, error) {
	if tpl == nil {
		return nil, &errors.ValidationError{Field: "template", Message: "template cannot be nil"}
	}

	stored := *tpl
	stored.Graph = *tpl.Graph.Clone()
	stored.Graph.ResetRuntime()

	now := s.now()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
		stored.CreatedAt = now
	} else if existing, err := s.GetTemplate(ctx, stored.ID); err == nil {
		stored.CreatedAt = existing.CreatedAt
	} else if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return nil, &errors.PersistenceError{Op: "save template", Key: stored.ID, Cause: err}
	}

	data, err := json.MarshalIndent(&stored, "", "  ")
	if err != nil {
		return nil, &errors.PersistenceError{Op: "save template", Key: stored.ID, Cause: err}
	}

	tmp := s.path(stored.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return nil, &errors.PersistenceError{Op: "save template", Key: stored.ID, Cause: err}
	}
	if err := os.Rename(tmp, s.path(stored.ID)); err != nil {
		return nil, &errors.PersistenceError{Op: "save template", Key: stored.ID, Cause: err}
	}
	return &stored, nil
}

// GetTemplate retrieves a template by id.
func (s *FileStore) GetTemplate(ctx context.Context, id string) (*flow.FlowTemplate, error) {
	// Guard against path traversal through a crafted id.
	if id == "" || strings.ContainsAny(id, "/\\") || strings.Contains(id, "..") {
		return nil, &errors.NotFoundError{Resource: "template", ID: id}
	}

	data, err := os.ReadFile(s.path(id))
	if os.IsNotExist(err) {
		return nil, &errors.NotFoundError{Resource: "template", ID: id}
	}
	if err != nil {
		return nil, &errors.PersistenceError{Op: "get template", Key: id, Cause: err}
	}

	var tpl flow.FlowTemplate
	if err := json.Unmarshal(data, &tpl); err != nil {
		return nil, &errors.PersistenceError{Op: "get template", Key: id, Cause: err}
	}
	return &tpl, nil
}

// ListTemplates returns all templates sorted by name. A missing root
// directory reads as an empty list; corrupt files are skipped with a
// warning.
func (s *FileStore) ListTemplates(ctx context.Context) ([]*flow.FlowTemplate, error) {
	paths, err := doublestar.FilepathGlob(filepath.Join(s.root, "**", "*.json"))
	if err != nil {
		return nil, &errors.PersistenceError{Op: "list templates", Cause: err}
	}

	var result []*flow.FlowTemplate
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("skipping unreadable template file",
				slog.String("path", path),
				slog.Any("error", err))
			continue
		}
		var tpl flow.FlowTemplate
		if err := json.Unmarshal(data, &tpl); err != nil {
			s.logger.Warn("skipping corrupt template file",
				slog.String("path", path),
				slog.Any("error", err))
			continue
		}
		if tpl.ID == "" {
			s.logger.Warn("skipping template file with no id", slog.String("path", path))
			continue
		}
		result = append(result, &tpl)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result, nil
}

// DeleteTemplate removes a template by id.
func (s *FileStore) DeleteTemplate(ctx context.Context, id string) error {
	if id == "" || strings.ContainsAny(id, "/\\") || strings.Contains(id, "..") {
		return &errors.NotFoundError{Resource: "template", ID: id}
	}

	err := os.Remove(s.path(id))
	if os.IsNotExist(err) {
		return &errors.NotFoundError{Resource: "template", ID: id}
	}
	if err != nil {
		return &errors.PersistenceError{Op: "delete template", Key: id, Cause: err}
	}
	return nil
}
