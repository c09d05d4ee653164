package database

import (
	"database/sql"
	"fmt"
	"time"
)

const migrationsTable = "schema_migrations"

// migrate applies every pending migration exactly once, in order.
func (s *Store) migrate() error {
	migrations := []struct {
		name string
		fn   func(*sql.DB) error
	}{
		{"create_runs", createRunsTable},
		{"create_plants", createPlantsTable},
		{"create_review_items", createReviewItemsTable},
	}

	for _, m := range migrations {
		if err := s.ensureApplied(m.name, m.fn); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ensureMigrationTable() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			name TEXT PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`, migrationsTable)

	if _, err := s.conn.Exec(query); err != nil {
		return fmt.Errorf("failed to ensure %s table: %w", migrationsTable, err)
	}
	return nil
}

func (s *Store) isApplied(name string) (bool, error) {
	if err := s.ensureMigrationTable(); err != nil {
		return false, err
	}

	var appliedAt sql.NullTime
	query := fmt.Sprintf(`SELECT applied_at FROM %s WHERE name = ?`, migrationsTable)
	err := s.conn.QueryRow(query, name).Scan(&appliedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to check migration %s: %w", name, err)
	}
	return appliedAt.Valid, nil
}

func (s *Store) markApplied(name string) error {
	query := fmt.Sprintf(`INSERT OR REPLACE INTO %s(name, applied_at) VALUES(?, ?)`, migrationsTable)
	if _, err := s.conn.Exec(query, name, time.Now()); err != nil {
		return fmt.Errorf("failed to mark migration %s as applied: %w", name, err)
	}
	return nil
}

// ensureApplied runs the migration only if it has not been recorded
// yet, then records it. Re-running against an existing database is a
// no-op.
func (s *Store) ensureApplied(name string, migration func(*sql.DB) error) error {
	applied, err := s.isApplied(name)
	if err != nil {
		return err
	}
	if applied {
		s.logger.Debug("skipping migration, already applied", "migration", name)
		return nil
	}

	if err := migration(s.conn); err != nil {
		return fmt.Errorf("migration %s failed: %w", name, err)
	}
	if err := s.markApplied(name); err != nil {
		return err
	}

	s.logger.Info("migration applied", "migration", name)
	return nil
}

func createRunsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP,
			total INTEGER NOT NULL DEFAULT 0,
			exact_matches INTEGER NOT NULL DEFAULT 0,
			fuzzy_matches INTEGER NOT NULL DEFAULT 0,
			unmatched INTEGER NOT NULL DEFAULT 0,
			classified INTEGER NOT NULL DEFAULT 0,
			review INTEGER NOT NULL DEFAULT 0
		)
	`)
	return err
}

func createPlantsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS plants (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			id TEXT NOT NULL,
			name TEXT NOT NULL,
			company TEXT,
			technology TEXT NOT NULL,
			subtype TEXT,
			subtype_confidence REAL NOT NULL DEFAULT 0,
			source TEXT,
			match_ref TEXT,
			match_method TEXT,
			match_score INTEGER NOT NULL DEFAULT 0,
			schema_code INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (run_id, id)
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_plants_technology ON plants(run_id, technology)`)
	return err
}

func createReviewItemsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS review_items (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			plant_id TEXT NOT NULL,
			plant_name TEXT NOT NULL,
			reason TEXT NOT NULL,
			confidence REAL NOT NULL DEFAULT 0,
			PRIMARY KEY (run_id, plant_id)
		)
	`)
	return err
}
