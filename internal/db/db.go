package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/notesapp/apiserver/config"
)

const (
	defaultPingTimeout  = 5 * time.Second
	defaultConnMaxIdle  = 2 * time.Minute
	defaultConnMaxLife  = 30 * time.Minute
	defaultMaxIdleConns = 5
	defaultMaxOpenConns = 25
)

// Pools holds the writer pool and the pool used for read-only listing
// queries. Reader is the writer when no reader endpoint is configured.
type Pools struct {
	Writer *sql.DB
	Reader *sql.DB
}

// Close closes both pools.
func (p Pools) Close() error {
	if p.Reader != nil && p.Reader != p.Writer {
		_ = p.Reader.Close()
	}
	if p.Writer != nil {
		return p.Writer.Close()
	}
	return nil
}

// Open opens the writer pool and, when DB_READER_HOST is set, a separate
// reader pool.
func Open(ctx context.Context, cfg config.Config) (Pools, error) {
	writer, err := open(ctx, cfg.Database.Driver, DSN(cfg.Database, cfg.Database.Host))
	if err != nil {
		return Pools{}, fmt.Errorf("open writer: %w", err)
	}
	if cfg.Database.IsSQLite() {
		// SQLite serializes writers; a single connection avoids SQLITE_BUSY.
		writer.SetMaxOpenConns(1)
	}

	if cfg.Database.IsSQLite() || cfg.Database.ReaderHost == "" || cfg.Database.ReaderHost == cfg.Database.Host {
		return Pools{Writer: writer, Reader: writer}, nil
	}

	reader, err := open(ctx, cfg.Database.Driver, DSN(cfg.Database, cfg.Database.ReaderHost))
	if err != nil {
		_ = writer.Close()
		return Pools{}, fmt.Errorf("open reader: %w", err)
	}
	return Pools{Writer: writer, Reader: reader}, nil
}

// DSN builds the driver connection string for host.
func DSN(cfg config.DatabaseConfig, host string) string {
	if cfg.IsSQLite() {
		return SQLiteDSN(cfg.SQLitePath)
	}
	return PostgresURL(cfg, host)
}

// PostgresURL builds a postgres:// URL accepted by lib/pq, pgx and migrate.
func PostgresURL(cfg config.DatabaseConfig, host string) string {
	sslmode := "disable"
	if cfg.UseSSL {
		sslmode = "require"
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", host, cfg.Port),
		User:   url.UserPassword(cfg.User, cfg.Password),
		Path:   cfg.DBName,
	}

	q := u.Query()
	q.Set("sslmode", sslmode)
	u.RawQuery = q.Encode()

	return u.String()
}

// SQLiteDSN builds a go-sqlite3 DSN with foreign keys enforced.
func SQLiteDSN(path string) string {
	return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
}

func open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	db.SetConnMaxIdleTime(defaultConnMaxIdle)
	db.SetConnMaxLifetime(defaultConnMaxLife)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetMaxOpenConns(defaultMaxOpenConns)

	ctx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
