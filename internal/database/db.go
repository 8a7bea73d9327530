package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DB wraps the connection pool and remembers which engine it talks to.
type DB struct {
	*sql.DB
	Driver string
}

// New opens a database. For postgres dsn is a connection URL; for sqlite it
// is a file path (created if missing, WAL mode).
func New(ctx context.Context, driver, dsn string) (*DB, error) {
	var (
		sqlDB *sql.DB
		err   error
	)

	switch driver {
	case DriverPostgres:
		sqlDB, err = sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	case DriverSQLite:
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
		sqlDB, err = sql.Open("sqlite", dsn+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// SQLite serializes writers; one connection avoids SQLITE_BUSY churn.
		sqlDB.SetMaxOpenConns(1)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	return &DB{DB: sqlDB, Driver: driver}, nil
}

// NewFromSQL wraps an existing pool, for tests.
func NewFromSQL(sqlDB *sql.DB, driver string) *DB {
	return &DB{DB: sqlDB, Driver: driver}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS profile_store (
		profile_id TEXT NOT NULL,
		key        TEXT NOT NULL,
		value      TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (profile_id, key)
	)`,
	`CREATE TABLE IF NOT EXISTS cors_config (
		config_key        TEXT PRIMARY KEY,
		allowed_origins   TEXT NOT NULL,
		allow_credentials BOOLEAN NOT NULL DEFAULT FALSE,
		max_age           INTEGER NOT NULL DEFAULT 0,
		created_at        TIMESTAMP NOT NULL,
		updated_at        TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ratelimit_config (
		config_key TEXT PRIMARY KEY,
		rate       TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
}

// Migrate creates the tables if they do not exist. The statements are valid
// for both PostgreSQL and SQLite.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
