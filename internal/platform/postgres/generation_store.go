package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/genforge-api/internal/domain"
	"github.com/phrazzld/genforge-api/internal/platform/logger"
	"github.com/phrazzld/genforge-api/internal/store"
)

const generationColumns = `id, user_id, template_id, prompt, model, parameters, status,
		content, result, metadata, error, start_time, end_time`

// PostgresGenerationStore implements the store.GenerationStore interface
// using a PostgreSQL database as the storage backend.
type PostgresGenerationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresGenerationStore creates a new PostgreSQL implementation of the GenerationStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresGenerationStore(db store.DBTX, logger *slog.Logger) *PostgresGenerationStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresGenerationStore{
		db:     db,
		logger: logger.With(slog.String("component", "generation_store")),
	}
}

// Ensure PostgresGenerationStore implements store.GenerationStore interface
var _ store.GenerationStore = (*PostgresGenerationStore)(nil)

// WithTx implements store.GenerationStore.WithTx
func (s *PostgresGenerationStore) WithTx(tx *sql.Tx) store.GenerationStore {
	return &PostgresGenerationStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.GenerationStore.Create
func (s *PostgresGenerationStore) Create(ctx context.Context, gen *domain.Generation) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := gen.Validate(); err != nil {
		log.Warn("generation validation failed during create",
			slog.String("error", err.Error()),
			slog.String("generation_id", gen.ID.String()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	params, err := json.Marshal(gen.Parameters)
	if err != nil {
		return fmt.Errorf("failed to encode generation parameters: %w", err)
	}

	query := `
		INSERT INTO generations (id, user_id, template_id, prompt, model, parameters, status, start_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		gen.ID,
		gen.UserID,
		nullableUUID(gen.TemplateID),
		gen.Prompt,
		gen.Model,
		string(params),
		string(gen.Status),
		gen.StartTime,
	)
	if err != nil {
		log.Error("failed to create generation",
			slog.String("error", err.Error()),
			slog.String("generation_id", gen.ID.String()),
			slog.String("user_id", gen.UserID.String()))
		return MapError(err)
	}

	log.Debug("generation created",
		slog.String("generation_id", gen.ID.String()),
		slog.String("user_id", gen.UserID.String()),
		slog.String("model", gen.Model))
	return nil
}

// GetByID implements store.GenerationStore.GetByID
func (s *PostgresGenerationStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Generation, error) {
	query := `SELECT ` + generationColumns + ` FROM generations WHERE id = $1`
	return s.getOne(ctx, query, id)
}

// GetByIDForUser implements store.GenerationStore.GetByIDForUser
func (s *PostgresGenerationStore) GetByIDForUser(
	ctx context.Context,
	id, userID uuid.UUID,
) (*domain.Generation, error) {
	query := `SELECT ` + generationColumns + ` FROM generations WHERE id = $1 AND user_id = $2`
	return s.getOne(ctx, query, id, userID)
}

func (s *PostgresGenerationStore) getOne(ctx context.Context, query string, args ...any) (*domain.Generation, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	gen, err := scanGeneration(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("generation not found", slog.Any("args", args[0]))
			return nil, store.ErrGenerationNotFound
		}
		log.Error("failed to get generation",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	return gen, nil
}

// UpdateTerminal implements store.GenerationStore.UpdateTerminal
func (s *PostgresGenerationStore) UpdateTerminal(ctx context.Context, gen *domain.Generation) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !gen.IsTerminal() {
		return fmt.Errorf("%w: generation %s is still %s", store.ErrInvalidEntity, gen.ID, gen.Status)
	}
	if err := gen.Validate(); err != nil {
		log.Warn("generation validation failed during terminal update",
			slog.String("error", err.Error()),
			slog.String("generation_id", gen.ID.String()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		UPDATE generations
		SET status = $1, model = $2, content = $3, result = $4, metadata = $5, error = $6, end_time = $7
		WHERE id = $8 AND status = 'PENDING'
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		string(gen.Status),
		gen.Model,
		nullableString(gen.Content),
		nullableJSON(gen.Result),
		nullableJSON(gen.Metadata),
		nullableString(gen.Error),
		gen.EndTime,
		gen.ID,
	)
	if err != nil {
		log.Error("failed to update generation",
			slog.String("error", err.Error()),
			slog.String("generation_id", gen.ID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "pending generation"); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("terminal update matched no pending generation",
				slog.String("generation_id", gen.ID.String()))
			return fmt.Errorf("%w: %s", store.ErrNotPending, gen.ID)
		}
		return err
	}

	log.Debug("generation reached terminal state",
		slog.String("generation_id", gen.ID.String()),
		slog.String("status", string(gen.Status)))
	return nil
}

// ListByUser implements store.GenerationStore.ListByUser
func (s *PostgresGenerationStore) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	limit, offset int,
) ([]*domain.Generation, int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM generations WHERE user_id = $1`, userID).Scan(&total)
	if err != nil {
		log.Error("failed to count generations",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, 0, MapError(err)
	}

	query := `SELECT ` + generationColumns + `
		FROM generations
		WHERE user_id = $1
		ORDER BY start_time DESC, id DESC
		LIMIT $2 OFFSET $3`

	gens, err := s.queryMany(ctx, query, userID, limit, offset)
	if err != nil {
		log.Error("failed to list generations",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, 0, err
	}

	log.Debug("listed generations",
		slog.String("user_id", userID.String()),
		slog.Int("count", len(gens)),
		slog.Int("total", total))
	return gens, total, nil
}

// FindStalePending implements store.GenerationStore.FindStalePending
func (s *PostgresGenerationStore) FindStalePending(
	ctx context.Context,
	olderThan time.Time,
	limit int,
) ([]*domain.Generation, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + generationColumns + `
		FROM generations
		WHERE status = 'PENDING' AND start_time < $1
		ORDER BY start_time ASC
		LIMIT $2`

	gens, err := s.queryMany(ctx, query, olderThan, limit)
	if err != nil {
		log.Error("failed to find stale pending generations",
			slog.String("error", err.Error()))
		return nil, err
	}
	return gens, nil
}

func (s *PostgresGenerationStore) queryMany(ctx context.Context, query string, args ...any) ([]*domain.Generation, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	gens := []*domain.Generation{}
	for rows.Next() {
		gen, err := scanGeneration(rows)
		if err != nil {
			return nil, err
		}
		gens = append(gens, gen)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return gens, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGeneration(row rowScanner) (*domain.Generation, error) {
	var (
		gen        domain.Generation
		templateID uuid.NullUUID
		params     []byte
		status     string
		content    sql.NullString
		result     []byte
		metadata   []byte
		errMsg     sql.NullString
		endTime    sql.NullTime
	)

	err := row.Scan(
		&gen.ID,
		&gen.UserID,
		&templateID,
		&gen.Prompt,
		&gen.Model,
		&params,
		&status,
		&content,
		&result,
		&metadata,
		&errMsg,
		&gen.StartTime,
		&endTime,
	)
	if err != nil {
		return nil, err
	}

	if templateID.Valid {
		id := templateID.UUID
		gen.TemplateID = &id
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &gen.Parameters); err != nil {
			return nil, fmt.Errorf("failed to decode parameters of generation %s: %w", gen.ID, err)
		}
	}
	gen.Status = domain.GenerationStatus(status)
	gen.Content = content.String
	gen.Result = rawOrNil(result)
	gen.Metadata = rawOrNil(metadata)
	gen.Error = errMsg.String
	if endTime.Valid {
		end := endTime.Time
		gen.EndTime = &end
	}
	return &gen, nil
}

func nullableUUID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return *id
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nullableJSON passes JSON as text so the driver lets Postgres parse it into jsonb.
func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func rawOrNil(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	out := make(json.RawMessage, len(b))
	copy(out, b)
	return out
}
