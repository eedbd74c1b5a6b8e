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

// PostgresTemplateStore implements store.TemplateStore.
type PostgresTemplateStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTemplateStore creates a new PostgreSQL template store.
func NewPostgresTemplateStore(db store.DBTX, logger *slog.Logger) *PostgresTemplateStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTemplateStore{
		db:     db,
		logger: logger.With(slog.String("component", "template_store")),
	}
}

var _ store.TemplateStore = (*PostgresTemplateStore)(nil)

// GetByIDForUser implements store.TemplateStore.GetByIDForUser
func (s *PostgresTemplateStore) GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*domain.Template, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, user_id, name, content, created_at, updated_at
		FROM templates
		WHERE id = $1 AND user_id = $2
	`
	var tpl domain.Template
	err := s.db.QueryRowContext(ctx, query, id, userID).Scan(
		&tpl.ID,
		&tpl.UserID,
		&tpl.Name,
		&tpl.Content,
		&tpl.CreatedAt,
		&tpl.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("template not found",
				slog.String("template_id", id.String()),
				slog.String("user_id", userID.String()))
			return nil, store.ErrTemplateNotFound
		}
		log.Error("failed to get template",
			slog.String("error", err.Error()),
			slog.String("template_id", id.String()))
		return nil, MapError(err)
	}

	return &tpl, nil
}
