package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/genforge-api/internal/domain"
	"github.com/phrazzld/genforge-api/internal/store"
)

// MockTemplateStore implements store.TemplateStore for testing
type MockTemplateStore struct {
	// GetByIDForUserFn allows test cases to mock the GetByIDForUser behavior
	GetByIDForUserFn func(ctx context.Context, id, userID uuid.UUID) (*domain.Template, error)

	// Err is returned by every lookup when set
	Err error

	mu        sync.Mutex
	templates map[uuid.UUID]*domain.Template
}

var _ store.TemplateStore = (*MockTemplateStore)(nil)

// NewMockTemplateStore creates a MockTemplateStore holding templates.
func NewMockTemplateStore(templates ...*domain.Template) *MockTemplateStore {
	m := &MockTemplateStore{templates: make(map[uuid.UUID]*domain.Template)}
	for _, t := range templates {
		m.Add(t)
	}
	return m
}

// Add stores a template.
func (m *MockTemplateStore) Add(t *domain.Template) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.templates == nil {
		m.templates = make(map[uuid.UUID]*domain.Template)
	}
	cp := *t
	m.templates[t.ID] = &cp
}

// GetByIDForUser implements the store.TemplateStore interface
func (m *MockTemplateStore) GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*domain.Template, error) {
	if m.GetByIDForUserFn != nil {
		return m.GetByIDForUserFn(ctx, id, userID)
	}
	if m.Err != nil {
		return nil, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[id]
	if !ok || t.UserID != userID {
		return nil, store.ErrTemplateNotFound
	}
	cp := *t
	return &cp, nil
}
