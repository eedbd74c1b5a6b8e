package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/genforge-api/internal/domain"
	"github.com/phrazzld/genforge-api/internal/platform/logger"
	"github.com/phrazzld/genforge-api/internal/store"
)

// PostgresDatasetStore implements store.DatasetStore.
type PostgresDatasetStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresDatasetStore creates a new PostgreSQL dataset store.
func NewPostgresDatasetStore(db store.DBTX, logger *slog.Logger) *PostgresDatasetStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresDatasetStore{
		db:     db,
		logger: logger.With(slog.String("component", "dataset_store")),
	}
}

var _ store.DatasetStore = (*PostgresDatasetStore)(nil)

// GetByIDForUser implements store.DatasetStore.GetByIDForUser
func (s *PostgresDatasetStore) GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*domain.Dataset, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, user_id, name, description, content, type, created_at, updated_at
		FROM datasets
		WHERE id = $1 AND user_id = $2
	`
	var ds domain.Dataset
	var description sql.NullString
	err := s.db.QueryRowContext(ctx, query, id, userID).Scan(
		&ds.ID,
		&ds.UserID,
		&ds.Name,
		&description,
		&ds.Content,
		&ds.Type,
		&ds.CreatedAt,
		&ds.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("dataset not found",
				slog.String("dataset_id", id.String()),
				slog.String("user_id", userID.String()))
			return nil, store.ErrDatasetNotFound
		}
		log.Error("failed to get dataset",
			slog.String("error", err.Error()),
			slog.String("dataset_id", id.String()))
		return nil, MapError(err)
	}
	ds.Description = description.String

	return &ds, nil
}
