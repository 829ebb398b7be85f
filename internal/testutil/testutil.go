// Package testutil provides a migrated SQLite database for package tests.
package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/notesapp/apiserver/config"
	"github.com/notesapp/apiserver/internal/db"
)

// NewDB opens a fresh SQLite database under t.TempDir with all migrations
// applied. It is closed when the test ends.
func NewDB(t testing.TB) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "notes.db")
	conn, err := sql.Open(config.DriverSQLite, db.SQLiteDSN(path))
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, db.MigrateUp(conn, config.DriverSQLite))
	return conn
}

// Config returns a configuration pointing at a SQLite file under t.TempDir.
func Config(t testing.TB) config.Config {
	t.Helper()

	return config.Config{
		ServerPort:     8080,
		AllowedOrigins: []string{"http://localhost:3000"},
		Log:            config.LogConfig{Level: "error", Format: "json"},
		Database: config.DatabaseConfig{
			Driver:     config.DriverSQLite,
			SQLitePath: filepath.Join(t.TempDir(), "notes.db"),
		},
		Auth: config.AuthConfig{
			JWTSecret:                "test-secret",
			JWTAlgorithm:             "HS256",
			AccessTokenExpireMinutes: 30,
		},
		Events: config.EventsConfig{Backend: config.BackendNone, Channel: "notes-activity"},
		Export: config.ExportConfig{Backend: config.BackendNone},
	}
}
