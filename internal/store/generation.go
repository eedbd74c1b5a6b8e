package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/genforge-api/internal/domain"
)

// GenerationStore defines the interface for generation data persistence.
type GenerationStore interface {
	// Create saves a new PENDING generation.
	// Returns validation errors from the domain Generation if data is invalid.
	Create(ctx context.Context, gen *domain.Generation) error

	// GetByID retrieves a generation by id regardless of owner.
	// Returns ErrGenerationNotFound if the generation does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Generation, error)

	// GetByIDForUser retrieves a generation owned by userID. A generation
	// owned by someone else is reported exactly like a missing one,
	// with ErrGenerationNotFound.
	GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*domain.Generation, error)

	// UpdateTerminal writes the terminal state (status, model, output or
	// failure, end time) of gen. Only a PENDING row is updated; otherwise
	// ErrNotPending is returned and the stored row is unchanged.
	UpdateTerminal(ctx context.Context, gen *domain.Generation) error

	// ListByUser returns one page of userID's generations, newest first,
	// together with the total number the user owns.
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Generation, int, error)

	// FindStalePending returns up to limit PENDING generations that started
	// before olderThan, oldest first.
	FindStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*domain.Generation, error)

	// WithTx returns a new GenerationStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) GenerationStore
}

// AnalyticsStore defines the interface for the append-only analytics log.
type AnalyticsStore interface {
	// Create appends one event.
	Create(ctx context.Context, event *domain.AnalyticsEvent) error

	// ListByGeneration returns the events recorded for a generation, oldest first.
	ListByGeneration(ctx context.Context, generationID uuid.UUID) ([]*domain.AnalyticsEvent, error)

	// WithTx returns a new AnalyticsStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) AnalyticsStore
}

// TemplateStore reads user-owned templates.
type TemplateStore interface {
	// GetByIDForUser returns ErrTemplateNotFound for missing and foreign templates alike.
	GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*domain.Template, error)
}

// DatasetStore reads user-owned datasets.
type DatasetStore interface {
	// GetByIDForUser returns ErrDatasetNotFound for missing and foreign datasets alike.
	GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*domain.Dataset, error)
}

// TxStores are the stores bound to one transaction.
type TxStores struct {
	Generations GenerationStore
	Analytics   AnalyticsStore
}

// TxRunner runs fn with stores that share a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, stores TxStores) error) error
}
