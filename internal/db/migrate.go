package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/notesapp/apiserver/config"
)

//go:embed migrations/postgres/*.sql migrations/sqlite3/*.sql
var migrationsFS embed.FS

// NewMigrator returns a migrator over an open connection using the embedded
// migrations for the configured driver.
func NewMigrator(conn *sql.DB, driver string) (*migrate.Migrate, error) {
	dir := "migrations/postgres"
	dbName := "postgres"
	var (
		target database.Driver
		err    error
	)
	if driver == config.DriverSQLite {
		dir = "migrations/sqlite3"
		dbName = "sqlite3"
		target, err = sqlite3.WithInstance(conn, &sqlite3.Config{})
	} else {
		target, err = postgres.WithInstance(conn, &postgres.Config{})
	}
	if err != nil {
		return nil, fmt.Errorf("init migrate driver failed: %w", err)
	}

	source, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return nil, fmt.Errorf("init migrate source failed: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, dbName, target)
	if err != nil {
		return nil, fmt.Errorf("init migrator failed: %w", err)
	}
	return migrator, nil
}

// MigrateUp applies all pending up migrations.
func MigrateUp(conn *sql.DB, driver string) error {
	migrator, err := NewMigrator(conn, driver)
	if err != nil {
		return err
	}

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("migrate up failed: %w", err)
	}
	return nil
}

// MigrateDown rolls back the given number of migrations.
func MigrateDown(conn *sql.DB, driver string, steps int) error {
	migrator, err := NewMigrator(conn, driver)
	if err != nil {
		return err
	}

	if err := migrator.Steps(-steps); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("migrate down failed: %w", err)
	}
	return nil
}
