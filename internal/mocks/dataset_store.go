package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/genforge-api/internal/domain"
	"github.com/phrazzld/genforge-api/internal/store"
)

// MockDatasetStore implements store.DatasetStore for testing
type MockDatasetStore struct {
	// Err is returned by every lookup when set
	Err error

	mu       sync.Mutex
	datasets map[uuid.UUID]*domain.Dataset
}

var _ store.DatasetStore = (*MockDatasetStore)(nil)

// NewMockDatasetStore creates a MockDatasetStore holding datasets.
func NewMockDatasetStore(datasets ...*domain.Dataset) *MockDatasetStore {
	m := &MockDatasetStore{datasets: make(map[uuid.UUID]*domain.Dataset)}
	for _, d := range datasets {
		m.Add(d)
	}
	return m
}

// Add stores a dataset.
func (m *MockDatasetStore) Add(d *domain.Dataset) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.datasets == nil {
		m.datasets = make(map[uuid.UUID]*domain.Dataset)
	}
	cp := *d
	m.datasets[d.ID] = &cp
}

// GetByIDForUser implements the store.DatasetStore interface
func (m *MockDatasetStore) GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*domain.Dataset, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.datasets[id]
	if !ok || d.UserID != userID {
		return nil, store.ErrDatasetNotFound
	}
	cp := *d
	return &cp, nil
}
