package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
)

func TestRunMigrations(t *testing.T) {
	database, _, err := sqlmock.New()
	require.NoError(t, err)
	defer database.Close()

	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	var gotDir string
	gooseUpContext = func(_ context.Context, _ *sql.DB, dir string, _ ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}
	require.NoError(t, RunMigrations(t.Context(), database))
	require.Equal(t, "migrations", gotDir)

	gooseUpContext = func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	require.ErrorContains(t, RunMigrations(t.Context(), database), "boom")
}

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := migrationFiles.ReadDir(migrationsDir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	for _, entry := range entries {
		body, err := migrationFiles.ReadFile(migrationsDir + "/" + entry.Name())
		require.NoError(t, err)
		require.Contains(t, string(body), "-- +goose Up", entry.Name())
		require.Contains(t, string(body), "-- +goose Down", entry.Name())
	}
}
