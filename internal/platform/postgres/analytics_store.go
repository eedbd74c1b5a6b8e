package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/genforge-api/internal/domain"
	"github.com/phrazzld/genforge-api/internal/platform/logger"
	"github.com/phrazzld/genforge-api/internal/store"
)

// PostgresAnalyticsStore implements store.AnalyticsStore on the
// analytics_events table.
type PostgresAnalyticsStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresAnalyticsStore creates a new PostgreSQL analytics store.
// If logger is nil, a default logger will be used.
func NewPostgresAnalyticsStore(db store.DBTX, logger *slog.Logger) *PostgresAnalyticsStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresAnalyticsStore{
		db:     db,
		logger: logger.With(slog.String("component", "analytics_store")),
	}
}

var _ store.AnalyticsStore = (*PostgresAnalyticsStore)(nil)

// WithTx implements store.AnalyticsStore.WithTx
func (s *PostgresAnalyticsStore) WithTx(tx *sql.Tx) store.AnalyticsStore {
	return &PostgresAnalyticsStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.AnalyticsStore.Create
func (s *PostgresAnalyticsStore) Create(ctx context.Context, event *domain.AnalyticsEvent) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := event.Validate(); err != nil {
		log.Warn("analytics event validation failed",
			slog.String("error", err.Error()),
			slog.String("generation_id", event.GenerationID.String()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO analytics_events (id, type, action, user_id, generation_id, tokens_used, cost, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		event.ID,
		string(event.Type),
		string(event.Action),
		event.UserID,
		event.GenerationID,
		event.TokensUsed,
		event.Cost.String(),
		nullableJSON(event.Metadata),
		event.CreatedAt,
	)
	if err != nil {
		log.Error("failed to create analytics event",
			slog.String("error", err.Error()),
			slog.String("generation_id", event.GenerationID.String()))
		return MapError(err)
	}

	log.Debug("analytics event recorded",
		slog.String("event_id", event.ID.String()),
		slog.String("generation_id", event.GenerationID.String()),
		slog.Int("tokens_used", event.TokensUsed))
	return nil
}

// ListByGeneration implements store.AnalyticsStore.ListByGeneration
func (s *PostgresAnalyticsStore) ListByGeneration(
	ctx context.Context,
	generationID uuid.UUID,
) ([]*domain.AnalyticsEvent, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, type, action, user_id, generation_id, tokens_used, cost, metadata, created_at
		FROM analytics_events
		WHERE generation_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, generationID)
	if err != nil {
		log.Error("failed to list analytics events",
			slog.String("error", err.Error()),
			slog.String("generation_id", generationID.String()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	events := []*domain.AnalyticsEvent{}
	for rows.Next() {
		var (
			event      domain.AnalyticsEvent
			eventType  string
			action     string
			rawMetaRow []byte
		)
		if err := rows.Scan(
			&event.ID,
			&eventType,
			&action,
			&event.UserID,
			&event.GenerationID,
			&event.TokensUsed,
			&event.Cost,
			&rawMetaRow,
			&event.CreatedAt,
		); err != nil {
			return nil, err
		}
		event.Type = domain.AnalyticsEventType(eventType)
		event.Action = domain.AnalyticsAction(action)
		event.Metadata = rawOrNil(rawMetaRow)
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}
