// Package testdb provides helpers for tests that run against a real
// PostgreSQL database.
//
// Tests call Open to obtain a migrated connection and WithTx to run each
// case inside a transaction that is always rolled back, so cases can run in
// parallel against the same schema without cleanup.
//
//	func TestSomething(t *testing.T) {
//	    db := testdb.Open(t)
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        store := postgres.NewPostgresGenerationStore(tx, logger)
//	        ...
//	    })
//	}
package testdb

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/phrazzld/genforge-api/internal/platform/postgres"
	"github.com/pressly/goose/v3"
)

const (
	// URLEnvVar is checked before DATABASE_URL.
	URLEnvVar = "GENFORGE_TEST_DATABASE_URL"

	fallbackURLEnvVar = "DATABASE_URL"
	setupTimeout      = 30 * time.Second
)

var (
	migrateOnce sync.Once
	migrateErr  error
)

// URL returns the test database URL, or "" when none is configured.
func URL() string {
	if u := os.Getenv(URLEnvVar); u != "" {
		return u
	}
	return os.Getenv(fallbackURLEnvVar)
}

// Open connects to the test database and applies the migrations once per
// test binary. The test is skipped when no database URL is configured.
func Open(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := URL()
	if dbURL == "" {
		t.Skipf("%s not set - skipping database test", URLEnvVar)
	}

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("failed to ping test database: %v", err)
	}

	migrateOnce.Do(func() {
		goose.SetBaseFS(postgres.Migrations)
		if migrateErr = goose.SetDialect("postgres"); migrateErr != nil {
			return
		}
		migrateErr = goose.UpContext(ctx, db, postgres.MigrationsDir)
	})
	if migrateErr != nil {
		t.Fatalf("failed to migrate test database: %v", migrateErr)
	}

	return db
}

// WithTx runs fn inside a transaction that is rolled back when fn returns.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			t.Errorf("failed to roll back transaction: %v", rbErr)
		}
	}()

	fn(t, tx)
}
