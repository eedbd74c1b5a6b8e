package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/genforge-api/internal/platform/postgres"
	"github.com/pressly/goose/v3"
)

// migrationsDir is the directory inside postgres.Migrations holding the
// SQL files.
const migrationsDir = "migrations"

// slogGooseLogger adapts goose's logger to slog. Fatalf deliberately does
// not exit; the error is returned to main instead.
type slogGooseLogger struct {
	logger *slog.Logger
}

func (l *slogGooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l *slogGooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// validMigrationCommand reports whether command is supported by runMigrations.
func validMigrationCommand(command string) bool {
	switch command {
	case "up", "down", "status", "version":
		return true
	default:
		return false
	}
}

// runMigrations applies the embedded migrations with goose.
func runMigrations(ctx context.Context, db *sql.DB, command string, logger *slog.Logger) error {
	if !validMigrationCommand(command) {
		return fmt.Errorf("unknown migration command %q (expected up, down, status or version)", command)
	}

	log := logger.With(slog.String("component", "migrations"), slog.String("command", command))
	goose.SetBaseFS(postgres.Migrations)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(&slogGooseLogger{logger: log})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	start := time.Now()
	var err error
	switch command {
	case "up":
		err = goose.UpContext(ctx, db, migrationsDir)
	case "down":
		err = goose.DownContext(ctx, db, migrationsDir)
	case "status":
		err = goose.StatusContext(ctx, db, migrationsDir)
	case "version":
		err = goose.VersionContext(ctx, db, migrationsDir)
	}
	if err != nil {
		log.Error("migration failed", slog.String("error", err.Error()))
		return fmt.Errorf("migration %s failed: %w", command, err)
	}

	log.Info("migration finished", slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	return nil
}
