package main

import (
	"context"
	"io/fs"
	"strings"
	"testing"

	"github.com/phrazzld/genforge-api/internal/platform/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidMigrationCommand(t *testing.T) {
	t.Parallel()

	for _, cmd := range []string{"up", "down", "status", "version"} {
		assert.True(t, validMigrationCommand(cmd), cmd)
	}
	for _, cmd := range []string{"", "redo", "UP", "create"} {
		assert.False(t, validMigrationCommand(cmd), cmd)
	}
}

func TestRunMigrationsRejectsUnknownCommand(t *testing.T) {
	t.Parallel()

	log, _ := newTestLogger()
	err := runMigrations(context.Background(), nil, "sideways", log)
	assert.ErrorContains(t, err, `unknown migration command "sideways"`)
}

func TestEmbeddedMigrationsHaveGooseSections(t *testing.T) {
	t.Parallel()

	entries, err := fs.ReadDir(postgres.Migrations, migrationsDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	for _, e := range entries {
		data, err := fs.ReadFile(postgres.Migrations, migrationsDir+"/"+e.Name())
		require.NoError(t, err)
		assert.True(t, strings.Contains(string(data), "-- +goose Up"), e.Name())
		assert.True(t, strings.Contains(string(data), "-- +goose Down"), e.Name())
	}
}

func TestSlogGooseLogger(t *testing.T) {
	t.Parallel()

	log, buf := newTestLogger()
	l := &slogGooseLogger{logger: log}
	l.Printf("OK   %s\n", "00001_create_templates.sql")
	l.Fatalf("failed: %v", "boom")

	out := buf.String()
	assert.Contains(t, out, `"msg":"OK   00001_create_templates.sql"`)
	assert.Contains(t, out, `"level":"ERROR"`)
}
