package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notesapp/apiserver/config"
)

func TestPostgresURL(t *testing.T) {
	cfg := config.DatabaseConfig{
		Port:     5432,
		User:     "notes",
		Password: "p@ss word",
		DBName:   "notes_db",
	}
	assert.Equal(t, "postgres://notes:p%40ss%20word@db:5432/notes_db?sslmode=disable", PostgresURL(cfg, "db"))

	cfg.UseSSL = true
	assert.Contains(t, PostgresURL(cfg, "db"), "sslmode=require")
}

func TestOpenSQLiteSharesPool(t *testing.T) {
	cfg := config.Config{Database: config.DatabaseConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "notes.db"),
		ReaderHost: "replica",
	}}

	pools, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer pools.Close()

	assert.Same(t, pools.Writer, pools.Reader)
}

func TestMigrateUpAndDown(t *testing.T) {
	cfg := config.Config{Database: config.DatabaseConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "notes.db"),
	}}
	pools, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer pools.Close()

	require.NoError(t, MigrateUp(pools.Writer, config.DriverSQLite))
	require.NoError(t, MigrateUp(pools.Writer, config.DriverSQLite))

	_, err = pools.Writer.Exec(`SELECT COUNT(1) FROM notes`)
	require.NoError(t, err)

	require.NoError(t, MigrateDown(pools.Writer, config.DriverSQLite, 1))
	_, err = pools.Writer.Exec(`SELECT COUNT(1) FROM notes`)
	assert.Error(t, err)

	_, err = pools.Writer.Exec(`SELECT COUNT(1) FROM users`)
	assert.NoError(t, err)
}
