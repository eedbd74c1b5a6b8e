package mocks

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/genforge-api/internal/domain"
	"github.com/phrazzld/genforge-api/internal/store"
)

// MemoryDB is an in-memory stand-in for the generation and analytics tables.
// It implements store.TxRunner with all-or-nothing semantics: when the
// function passed to RunInTx fails, every write it made is rolled back.
//
// The *Err fields inject failures; set them before the code under test runs.
type MemoryDB struct {
	// CreateErr is returned by Generations().Create.
	CreateErr error
	// UpdateTerminalErr is returned by Generations().UpdateTerminal.
	UpdateTerminalErr error
	// AnalyticsErr is returned by Analytics().Create.
	AnalyticsErr error
	// TxErr is returned by RunInTx without running the function.
	TxErr error

	mu          sync.Mutex
	txMu        sync.Mutex
	generations map[uuid.UUID]*domain.Generation
	events      []*domain.AnalyticsEvent
	txCount     int

	genStore       *MemoryGenerationStore
	analyticsStore *MemoryAnalyticsStore
}

// NewMemoryDB creates an empty MemoryDB.
func NewMemoryDB() *MemoryDB {
	db := &MemoryDB{generations: make(map[uuid.UUID]*domain.Generation)}
	db.genStore = &MemoryGenerationStore{db: db}
	db.analyticsStore = &MemoryAnalyticsStore{db: db}
	return db
}

var _ store.TxRunner = (*MemoryDB)(nil)

// Generations returns the generation store backed by this database.
func (db *MemoryDB) Generations() *MemoryGenerationStore {
	return db.genStore
}

// Analytics returns the analytics store backed by this database.
func (db *MemoryDB) Analytics() *MemoryAnalyticsStore {
	return db.analyticsStore
}

// RunInTx implements store.TxRunner.
func (db *MemoryDB) RunInTx(ctx context.Context, fn func(ctx context.Context, stores store.TxStores) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	db.mu.Lock()
	txErr := db.TxErr
	db.txCount++
	db.mu.Unlock()
	if txErr != nil {
		return txErr
	}

	gens, events := db.snapshot()
	err := fn(ctx, store.TxStores{Generations: db.genStore, Analytics: db.analyticsStore})
	if err != nil {
		db.restore(gens, events)
	}
	return err
}

// TxCount returns how many transactions were started.
func (db *MemoryDB) TxCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.txCount
}

// Seed stores gen as-is, bypassing validation. Useful for arranging state
// such as an old PENDING record.
func (db *MemoryDB) Seed(gen *domain.Generation) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.generations[gen.ID] = cloneGeneration(gen)
}

// Generation returns a copy of the stored generation, or nil.
func (db *MemoryDB) Generation(id uuid.UUID) *domain.Generation {
	db.mu.Lock()
	defer db.mu.Unlock()
	if gen, ok := db.generations[id]; ok {
		return cloneGeneration(gen)
	}
	return nil
}

// GenerationCount returns the number of stored generations.
func (db *MemoryDB) GenerationCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.generations)
}

// Events returns a copy of every stored analytics event in insertion order.
func (db *MemoryDB) Events() []*domain.AnalyticsEvent {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]*domain.AnalyticsEvent, len(db.events))
	for i, e := range db.events {
		cp := *e
		out[i] = &cp
	}
	return out
}

func (db *MemoryDB) snapshot() (map[uuid.UUID]*domain.Generation, []*domain.AnalyticsEvent) {
	db.mu.Lock()
	defer db.mu.Unlock()
	gens := make(map[uuid.UUID]*domain.Generation, len(db.generations))
	for id, gen := range db.generations {
		gens[id] = cloneGeneration(gen)
	}
	events := make([]*domain.AnalyticsEvent, len(db.events))
	copy(events, db.events)
	return gens, events
}

func (db *MemoryDB) restore(gens map[uuid.UUID]*domain.Generation, events []*domain.AnalyticsEvent) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.generations = gens
	db.events = events
}

// MemoryGenerationStore implements store.GenerationStore on a MemoryDB.
type MemoryGenerationStore struct {
	db *MemoryDB
}

var _ store.GenerationStore = (*MemoryGenerationStore)(nil)

// Create implements store.GenerationStore.
func (s *MemoryGenerationStore) Create(ctx context.Context, gen *domain.Generation) error {
	if err := gen.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.CreateErr != nil {
		return s.db.CreateErr
	}
	if _, exists := s.db.generations[gen.ID]; exists {
		return store.ErrDuplicate
	}
	s.db.generations[gen.ID] = cloneGeneration(gen)
	return nil
}

// GetByID implements store.GenerationStore.
func (s *MemoryGenerationStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Generation, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	gen, ok := s.db.generations[id]
	if !ok {
		return nil, store.ErrGenerationNotFound
	}
	return cloneGeneration(gen), nil
}

// GetByIDForUser implements store.GenerationStore.
func (s *MemoryGenerationStore) GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*domain.Generation, error) {
	gen, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if gen.UserID != userID {
		return nil, store.ErrGenerationNotFound
	}
	return gen, nil
}

// UpdateTerminal implements store.GenerationStore.
func (s *MemoryGenerationStore) UpdateTerminal(ctx context.Context, gen *domain.Generation) error {
	if !gen.IsTerminal() {
		return fmt.Errorf("%w: generation %s is still %s", store.ErrInvalidEntity, gen.ID, gen.Status)
	}
	if err := gen.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.UpdateTerminalErr != nil {
		return s.db.UpdateTerminalErr
	}
	current, ok := s.db.generations[gen.ID]
	if !ok || current.Status != domain.GenerationStatusPending {
		return fmt.Errorf("%w: %s", store.ErrNotPending, gen.ID)
	}
	s.db.generations[gen.ID] = cloneGeneration(gen)
	return nil
}

// ListByUser implements store.GenerationStore.
func (s *MemoryGenerationStore) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	limit, offset int,
) ([]*domain.Generation, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	owned := make([]*domain.Generation, 0)
	for _, gen := range s.db.generations {
		if gen.UserID == userID {
			owned = append(owned, gen)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		if !owned[i].StartTime.Equal(owned[j].StartTime) {
			return owned[i].StartTime.After(owned[j].StartTime)
		}
		return owned[i].ID.String() > owned[j].ID.String()
	})

	total := len(owned)
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}

	page := make([]*domain.Generation, 0, end-offset)
	for _, gen := range owned[offset:end] {
		page = append(page, cloneGeneration(gen))
	}
	return page, total, nil
}

// FindStalePending implements store.GenerationStore.
func (s *MemoryGenerationStore) FindStalePending(
	ctx context.Context,
	olderThan time.Time,
	limit int,
) ([]*domain.Generation, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	stale := make([]*domain.Generation, 0)
	for _, gen := range s.db.generations {
		if gen.Status == domain.GenerationStatusPending && gen.StartTime.Before(olderThan) {
			stale = append(stale, cloneGeneration(gen))
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].StartTime.Before(stale[j].StartTime) })
	if limit > 0 && len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}

// WithTx implements store.GenerationStore. The memory store has no
// transactions of its own; MemoryDB.RunInTx provides them.
func (s *MemoryGenerationStore) WithTx(tx *sql.Tx) store.GenerationStore {
	return s
}

// MemoryAnalyticsStore implements store.AnalyticsStore on a MemoryDB.
type MemoryAnalyticsStore struct {
	db *MemoryDB
}

var _ store.AnalyticsStore = (*MemoryAnalyticsStore)(nil)

// Create implements store.AnalyticsStore.
func (s *MemoryAnalyticsStore) Create(ctx context.Context, event *domain.AnalyticsEvent) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.AnalyticsErr != nil {
		return s.db.AnalyticsErr
	}
	cp := *event
	s.db.events = append(s.db.events, &cp)
	return nil
}

// ListByGeneration implements store.AnalyticsStore.
func (s *MemoryAnalyticsStore) ListByGeneration(
	ctx context.Context,
	generationID uuid.UUID,
) ([]*domain.AnalyticsEvent, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	out := make([]*domain.AnalyticsEvent, 0)
	for _, e := range s.db.events {
		if e.GenerationID == generationID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// WithTx implements store.AnalyticsStore.
func (s *MemoryAnalyticsStore) WithTx(tx *sql.Tx) store.AnalyticsStore {
	return s
}

func cloneGeneration(gen *domain.Generation) *domain.Generation {
	cp := *gen
	if gen.TemplateID != nil {
		id := *gen.TemplateID
		cp.TemplateID = &id
	}
	if gen.EndTime != nil {
		end := *gen.EndTime
		cp.EndTime = &end
	}
	if gen.Result != nil {
		cp.Result = append([]byte(nil), gen.Result...)
	}
	if gen.Metadata != nil {
		cp.Metadata = append([]byte(nil), gen.Metadata...)
	}
	return &cp
}
