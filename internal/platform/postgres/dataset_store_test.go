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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var datasetRowColumns = []string{
	"id", "user_id", "name", "description", "content", "type", "created_at", "updated_at",
}

func TestDatasetStoreGetByIDForUser(t *testing.T) {
	t.Parallel()
	db, mock := newMockDB(t)
	s := postgres.NewPostgresDatasetStore(db, nil)

	id := uuid.New()
	userID := uuid.New()
	now := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM datasets WHERE id = \\$1 AND user_id = \\$2").
		WithArgs(id, userID).
		WillReturnRows(sqlmock.NewRows(datasetRowColumns).
			AddRow(id.String(), userID.String(), "tides", nil, "high tide 06:12", domain.DatasetTypeResearch, now, now))

	ds, err := s.GetByIDForUser(context.Background(), id, userID)
	require.NoError(t, err)
	assert.Equal(t, "high tide 06:12", ds.Content)
	assert.Equal(t, domain.DatasetTypeResearch, ds.Type)
	assert.Empty(t, ds.Description)
	assert.Equal(t, userID, ds.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatasetStoreGetByIDForUserNotFound(t *testing.T) {
	t.Parallel()
	db, mock := newMockDB(t)
	s := postgres.NewPostgresDatasetStore(db, nil)

	mock.ExpectQuery("FROM datasets").
		WillReturnRows(sqlmock.NewRows(datasetRowColumns))

	ds, err := s.GetByIDForUser(context.Background(), uuid.New(), uuid.New())
	assert.Nil(t, ds)
	assert.ErrorIs(t, err, store.ErrDatasetNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatasetStoreGetByIDForUserDatabaseError(t *testing.T) {
	t.Parallel()
	db, mock := newMockDB(t)
	s := postgres.NewPostgresDatasetStore(db, nil)

	mock.ExpectQuery("FROM datasets").WillReturnError(sql.ErrConnDone)

	ds, err := s.GetByIDForUser(context.Background(), uuid.New(), uuid.New())
	assert.Nil(t, ds)
	assert.Error(t, err)
	assert.False(t, store.IsNotFoundError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
