package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/genforge-api/internal/domain"
	"github.com/phrazzld/genforge-api/internal/platform/postgres"
	"github.com/phrazzld/genforge-api/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAnalyticsEvent(t *testing.T) *domain.AnalyticsEvent {
	t.Helper()
	gen := newPendingGeneration(t)
	require.NoError(t, gen.Fail("provider unavailable"))
	event, err := domain.NewGenerationAnalyticsEvent(gen, "openai",
		&domain.TokenUsage{PromptTokens: 10, CompletionTokens: 30}, decimal.RequireFromString("0.0012"))
	require.NoError(t, err)
	return event
}

func TestAnalyticsStoreCreate(t *testing.T) {
	t.Parallel()
	db, mock := newMockDB(t)
	s := postgres.NewPostgresAnalyticsStore(db, nil)
	event := newAnalyticsEvent(t)

	mock.ExpectExec("INSERT INTO analytics_events").
		WithArgs(event.ID, "GENERATION", "GENERATE", event.UserID, event.GenerationID, 40, "0.0012",
			sqlmock.AnyArg(), event.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Create(context.Background(), event))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyticsStoreCreateRejectsInvalidEvent(t *testing.T) {
	t.Parallel()
	db, mock := newMockDB(t)
	s := postgres.NewPostgresAnalyticsStore(db, nil)

	event := newAnalyticsEvent(t)
	event.TokensUsed = -1

	err := s.Create(context.Background(), event)
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
	assert.ErrorIs(t, err, domain.ErrNegativeTokensUsed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyticsStoreListByGeneration(t *testing.T) {
	t.Parallel()
	db, mock := newMockDB(t)
	s := postgres.NewPostgresAnalyticsStore(db, nil)

	generationID := uuid.New()
	userID := uuid.New()
	created := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	mock.ExpectQuery("FROM analytics_events WHERE generation_id = \\$1").
		WithArgs(generationID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "type", "action", "user_id", "generation_id", "tokens_used", "cost", "metadata", "created_at",
		}).AddRow(uuid.New().String(), "GENERATION", "GENERATE", userID.String(), generationID.String(),
			int64(250), "0.002500", []byte(`{"model":"gpt-4o","status":"COMPLETED"}`), created))

	events, err := s.ListByGeneration(context.Background(), generationID)
	require.NoError(t, err)
	require.Len(t, events, 1)

	got := events[0]
	assert.Equal(t, domain.AnalyticsEventTypeGeneration, got.Type)
	assert.Equal(t, domain.AnalyticsActionGenerate, got.Action)
	assert.Equal(t, 250, got.TokensUsed)
	assert.True(t, decimal.RequireFromString("0.0025").Equal(got.Cost))
	assert.JSONEq(t, `{"model":"gpt-4o","status":"COMPLETED"}`, string(got.Metadata))
	assert.Equal(t, created, got.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxRunnerBindsStoresToTransaction(t *testing.T) {
	t.Parallel()
	db, mock := newMockDB(t)
	gens := postgres.NewPostgresGenerationStore(db, nil)
	analytics := postgres.NewPostgresAnalyticsStore(db, nil)
	runner := postgres.NewTxRunner(db, gens, analytics)

	gen := newPendingGeneration(t)
	require.NoError(t, gen.Fail("rate limited"))
	event, err := domain.NewGenerationAnalyticsEvent(gen, "anthropic", nil, decimal.Zero)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE generations").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO analytics_events").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = runner.RunInTx(context.Background(), func(ctx context.Context, stores store.TxStores) error {
		if err := stores.Generations.UpdateTerminal(ctx, gen); err != nil {
			return err
		}
		return stores.Analytics.Create(ctx, event)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxRunnerRollsBackWhenAnalyticsFails(t *testing.T) {
	t.Parallel()
	db, mock := newMockDB(t)
	runner := postgres.NewTxRunner(db,
		postgres.NewPostgresGenerationStore(db, nil),
		postgres.NewPostgresAnalyticsStore(db, nil))

	gen := newPendingGeneration(t)
	require.NoError(t, gen.Fail("rate limited"))
	event, err := domain.NewGenerationAnalyticsEvent(gen, "anthropic", nil, decimal.Zero)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE generations").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO analytics_events").WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err = runner.RunInTx(context.Background(), func(ctx context.Context, stores store.TxStores) error {
		if err := stores.Generations.UpdateTerminal(ctx, gen); err != nil {
			return err
		}
		return stores.Analytics.Create(ctx, event)
	})
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTemplateStoreGetByIDForUser(t *testing.T) {
	t.Parallel()
	db, mock := newMockDB(t)
	s := postgres.NewPostgresTemplateStore(db, nil)

	id := uuid.New()
	userID := uuid.New()
	now := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM templates WHERE id = \\$1 AND user_id = \\$2").
		WithArgs(id, userID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "content", "created_at", "updated_at"}).
			AddRow(id.String(), userID.String(), "pirate", "Answer like a pirate.", now, now))

	tpl, err := s.GetByIDForUser(context.Background(), id, userID)
	require.NoError(t, err)
	assert.Equal(t, "Answer like a pirate.", tpl.Content)
	assert.Equal(t, userID, tpl.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTemplateStoreGetByIDForUserNotFound(t *testing.T) {
	t.Parallel()
	db, mock := newMockDB(t)
	s := postgres.NewPostgresTemplateStore(db, nil)

	mock.ExpectQuery("FROM templates").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "content", "created_at", "updated_at"}))

	tpl, err := s.GetByIDForUser(context.Background(), uuid.New(), uuid.New())
	assert.Nil(t, tpl)
	assert.ErrorIs(t, err, store.ErrTemplateNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
