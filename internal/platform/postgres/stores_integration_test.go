//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/genforge-api/internal/domain"
	"github.com/phrazzld/genforge-api/internal/platform/postgres"
	"github.com/phrazzld/genforge-api/internal/store"
	"github.com/phrazzld/genforge-api/internal/testdb"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createPending(t *testing.T, gens store.GenerationStore, userID uuid.UUID, prompt string) *domain.Generation {
	t.Helper()
	gen, err := domain.NewGeneration(userID, prompt, "gpt-4o", domain.Parameters{}, nil)
	require.NoError(t, err)
	require.NoError(t, gens.Create(context.Background(), gen))
	return gen
}

func TestGenerationStore_Integration(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()

	t.Run("create then complete", func(t *testing.T) {
		testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
			gens := postgres.NewPostgresGenerationStore(tx, slog.Default())
			gen := createPending(t, gens, uuid.New(), "hello")

			got, err := gens.GetByID(ctx, gen.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.GenerationStatusPending, got.Status)
			assert.Nil(t, got.EndTime)

			require.NoError(t, gen.Complete("hi there", json.RawMessage(`{"text":"hi there"}`), nil))
			require.NoError(t, gens.UpdateTerminal(ctx, gen))

			got, err = gens.GetByIDForUser(ctx, gen.ID, gen.UserID)
			require.NoError(t, err)
			assert.Equal(t, domain.GenerationStatusCompleted, got.Status)
			assert.Equal(t, "hi there", got.Content)
			require.NotNil(t, got.EndTime)

			// A terminal record is never overwritten.
			gen.Status = domain.GenerationStatusFailed
			gen.Content = ""
			gen.Result = nil
			gen.Error = "late failure"
			assert.ErrorIs(t, gens.UpdateTerminal(ctx, gen), store.ErrNotPending)
		})
	})

	t.Run("other users cannot read", func(t *testing.T) {
		testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
			gens := postgres.NewPostgresGenerationStore(tx, slog.Default())
			gen := createPending(t, gens, uuid.New(), "private")

			_, err := gens.GetByIDForUser(ctx, gen.ID, uuid.New())
			assert.ErrorIs(t, err, store.ErrGenerationNotFound)
		})
	})

	t.Run("list by user pages newest first", func(t *testing.T) {
		testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
			gens := postgres.NewPostgresGenerationStore(tx, slog.Default())
			userID := uuid.New()
			first := createPending(t, gens, userID, "first")
			second := createPending(t, gens, userID, "second")
			second.StartTime = first.StartTime.Add(time.Second)
			_, err := tx.ExecContext(ctx, `UPDATE generations SET start_time = $1 WHERE id = $2`,
				second.StartTime, second.ID)
			require.NoError(t, err)
			createPending(t, gens, uuid.New(), "someone else")

			page, total, err := gens.ListByUser(ctx, userID, 1, 0)
			require.NoError(t, err)
			assert.Equal(t, 2, total)
			require.Len(t, page, 1)
			assert.Equal(t, second.ID, page[0].ID)

			page, _, err = gens.ListByUser(ctx, userID, 1, 1)
			require.NoError(t, err)
			require.Len(t, page, 1)
			assert.Equal(t, first.ID, page[0].ID)
		})
	})

	t.Run("find stale pending", func(t *testing.T) {
		testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
			gens := postgres.NewPostgresGenerationStore(tx, slog.Default())
			stale := createPending(t, gens, uuid.New(), "stale")
			_, err := tx.ExecContext(ctx, `UPDATE generations SET start_time = $1 WHERE id = $2`,
				time.Now().Add(-time.Hour), stale.ID)
			require.NoError(t, err)
			fresh := createPending(t, gens, uuid.New(), "fresh")

			found, err := gens.FindStalePending(ctx, time.Now().Add(-10*time.Minute), 1000)
			require.NoError(t, err)

			ids := make(map[uuid.UUID]bool, len(found))
			for _, g := range found {
				ids[g.ID] = true
			}
			assert.True(t, ids[stale.ID])
			assert.False(t, ids[fresh.ID])
		})
	})
}

func TestAnalyticsStore_Integration(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		gens := postgres.NewPostgresGenerationStore(tx, slog.Default())
		events := postgres.NewPostgresAnalyticsStore(tx, slog.Default())

		gen := createPending(t, gens, uuid.New(), "count my tokens")
		require.NoError(t, gen.Complete("done", nil, nil))
		require.NoError(t, gens.UpdateTerminal(ctx, gen))

		usage := &domain.TokenUsage{PromptTokens: 10, CompletionTokens: 5}
		event, err := domain.NewGenerationAnalyticsEvent(gen, "openai", usage, decimal.RequireFromString("0.0125"))
		require.NoError(t, err)
		require.NoError(t, events.Create(ctx, event))

		got, err := events.ListByGeneration(ctx, gen.ID)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, 15, got[0].TokensUsed)
		assert.True(t, decimal.RequireFromString("0.0125").Equal(got[0].Cost))
		assert.Equal(t, gen.UserID, got[0].UserID)
	})
}

func TestDatasetStore_Integration(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		datasets := postgres.NewPostgresDatasetStore(tx, slog.Default())
		id, owner := uuid.New(), uuid.New()
		_, err := tx.ExecContext(ctx,
			`INSERT INTO datasets (id, user_id, name, content, type) VALUES ($1, $2, $3, $4, $5)`,
			id, owner, "tides", "high tide 06:12", domain.DatasetTypeResearch)
		require.NoError(t, err)

		got, err := datasets.GetByIDForUser(ctx, id, owner)
		require.NoError(t, err)
		assert.Equal(t, "high tide 06:12", got.Content)
		assert.Empty(t, got.Description)

		_, err = datasets.GetByIDForUser(ctx, id, uuid.New())
		assert.ErrorIs(t, err, store.ErrDatasetNotFound)
	})
}
