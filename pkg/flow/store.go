package flow

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tombee/flowctl/pkg/errors"
)

// FlowTemplate is a saved, reusable workflow. The stored graph always
// has its runtime state stripped.
type FlowTemplate struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Graph       Workflow  `json:"graph"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TemplateStore persists saved flow templates. SaveTemplate with an
// existing id overwrites the graph in place, keeping id and CreatedAt
// and bumping UpdatedAt; an empty id mints a new one ("save as new").
type TemplateStore interface {
	SaveTemplate(ctx context.Context, tpl *FlowTemplate) (*FlowTemplate, error)
	GetTemplate(ctx context.Context, id string) (*FlowTemplate, error)
	ListTemplates(ctx context.Context) ([]*FlowTemplate, error)
	DeleteTemplate(ctx context.Context, id string) error
}

// MemoryTemplateStore is an in-memory TemplateStore, thread-safe and
// suitable for tests and single-process use.
type MemoryTemplateStore struct {
	mu        sync.RWMutex
	templates map[string]*FlowTemplate
	now       func() time.Time
}

var _ TemplateStore = (*MemoryTemplateStore)(nil)

// NewMemoryTemplateStore creates an empty in-memory template store.
func NewMemoryTemplateStore() *MemoryTemplateStore {
	return &MemoryTemplateStore{
		templates: make(map[string]*FlowTemplate),
		now:       time.Now,
	}
}

// SaveTemplate stores the template and returns the stored copy.
func (s *MemoryTemplateStore) SaveTemplate(ctx context.Context, tpl *FlowTemplate) (*FlowTemplate, error) {
	if tpl == nil {
		return nil, &errors.ValidationError{Field: "template", Message: "template cannot be nil"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := copyTemplate(tpl)
	stored.Graph.ResetRuntime()

	now := s.now()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
		stored.CreatedAt = now
	} else if existing, ok := s.templates[stored.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	s.templates[stored.ID] = stored
	return copyTemplate(stored), nil
}

// GetTemplate retrieves a template by id.
func (s *MemoryTemplateStore) GetTemplate(ctx context.Context, id string) (*FlowTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tpl, ok := s.templates[id]
	if !ok {
		return nil, &errors.NotFoundError{Resource: "template", ID: id}
	}
	return copyTemplate(tpl), nil
}

// ListTemplates returns all templates sorted by name.
func (s *MemoryTemplateStore) ListTemplates(ctx context.Context) ([]*FlowTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*FlowTemplate, 0, len(s.templates))
	for _, tpl := range s.templates {
		result = append(result, copyTemplate(tpl))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result, nil
}

// DeleteTemplate removes a template by id.
func (s *MemoryTemplateStore) DeleteTemplate(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.templates[id]; !ok {
		return &errors.NotFoundError{Resource: "template", ID: id}
	}
	delete(s.templates, id)
	return nil
}

// copyTemplate creates a deep copy so callers can never mutate stored state.
func copyTemplate(tpl *FlowTemplate) *FlowTemplate {
	if tpl == nil {
		return nil
	}
	c := *tpl
	c.Graph = *tpl.Graph.Clone()
	return &c
}
