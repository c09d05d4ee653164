// Package database persists reconciliation runs in SQLite: the merged
// record set, per-run statistics and the manual review queue.
package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Config tunes the connection pool.
type Config struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store wraps the SQLite connection used for run persistence.
type Store struct {
	conn   *sql.DB
	logger *slog.Logger
}

// New opens (or creates) the database at dbPath and applies pending
// migrations.
func New(dbPath string) (*Store, error) {
	config := Config{}

	// In-memory SQLite must run on exactly one connection, otherwise
	// every new pool connection sees an empty schema.
	if isInMemory(dbPath) {
		config.MaxOpenConns = 1
		config.MaxIdleConns = 1
	}

	return NewWithConfig(dbPath, config)
}

// isInMemory reports whether the path addresses an in-memory SQLite
// database, either the bare ":memory:" form or the file: URI form.
func isInMemory(dbPath string) bool {
	if dbPath == ":memory:" {
		return true
	}
	return strings.HasPrefix(dbPath, "file:") && strings.Contains(dbPath, "mode=memory")
}

// NewWithConfig opens the database with an explicit pool configuration.
// Zero fields fall back to defaults suited to SQLite.
func NewWithConfig(dbPath string, config Config) (*Store, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite handles many concurrent connections poorly; keep the pool
	// small to avoid lock contention.
	if config.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(config.MaxOpenConns)
	} else {
		conn.SetMaxOpenConns(10)
	}
	if config.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(config.MaxIdleConns)
	} else {
		conn.SetMaxIdleConns(3)
	}
	if config.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(config.ConnMaxLifetime)
	} else {
		conn.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	logger := slog.Default().With("component", "database")

	// WAL lets concurrent readers proceed while a run is being written.
	// Not available for in-memory databases, so a failure is not fatal.
	if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logger.Warn("failed to enable WAL mode", "error", err)
	}

	store := &Store{conn: conn, logger: logger}

	if err := store.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return store, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.conn.Close()
}
