package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/sethvargo/go-retry"

	"plantregistry/reconcile"
	"plantregistry/registry"
	"plantregistry/schema"
)

// StoredRun is the persisted header of one reconciliation run.
type StoredRun struct {
	RunID      string             `json:"run_id"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Stats      reconcile.RunStats `json:"stats"`
}

// ErrRunNotFound is returned when the requested run does not exist.
var ErrRunNotFound = errors.New("run not found")

// SaveRun persists one finished run atomically: header, records and
// review queue in a single transaction. Saving the same run twice
// replaces it, so retrying a failed save is harmless. Writes hitting a
// busy database are retried with backoff.
func (s *Store) SaveRun(ctx context.Context, result *reconcile.RunResult, startedAt time.Time) error {
	backoff := retry.WithMaxRetries(5, retry.NewFibonacci(50*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := s.saveRunOnce(ctx, result, startedAt)
		if isBusy(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (s *Store) saveRunOnce(ctx context.Context, result *reconcile.RunResult, startedAt time.Time) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs
			(id, started_at, finished_at, total, exact_matches, fuzzy_matches, unmatched, classified, review)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.RunID, startedAt, time.Now(),
		result.Stats.Total, result.Stats.Exact, result.Stats.Fuzzy,
		result.Stats.Unmatched, result.Stats.Classified, result.Stats.Review)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", result.RunID, err)
	}

	// Replace wholesale so a re-save never leaves stale records behind.
	if _, err := tx.ExecContext(ctx, `DELETE FROM plants WHERE run_id = ?`, result.RunID); err != nil {
		return fmt.Errorf("failed to clear run records: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM review_items WHERE run_id = ?`, result.RunID); err != nil {
		return fmt.Errorf("failed to clear review items: %w", err)
	}

	insertPlant, err := tx.PrepareContext(ctx, `
		INSERT INTO plants
			(run_id, id, name, company, technology, subtype, subtype_confidence,
			 source, match_ref, match_method, match_score, schema_code)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare plant insert: %w", err)
	}
	defer insertPlant.Close()

	for _, r := range result.Records {
		_, err := insertPlant.ExecContext(ctx,
			result.RunID, r.ID, r.Name, r.Company, string(r.Technology),
			r.Subtype, r.SubtypeConfidence, r.Source, r.MatchRef,
			string(r.MatchMethod), r.MatchScore, schema.Map(r.Subtype, r.Technology))
		if err != nil {
			return fmt.Errorf("failed to insert plant %s: %w", r.ID, err)
		}
	}

	for _, item := range result.Review.Items() {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO review_items (run_id, plant_id, plant_name, reason, confidence)
			VALUES (?, ?, ?, ?, ?)`,
			result.RunID, item.PlantID, item.PlantName, string(item.Reason), item.Confidence)
		if err != nil {
			return fmt.Errorf("failed to insert review item %s: %w", item.PlantID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", result.RunID, err)
	}

	s.logger.Info("run saved",
		"run_id", result.RunID,
		"records", len(result.Records),
		"review", result.Stats.Review)
	return nil
}

// GetRun loads one run header.
func (s *Store) GetRun(ctx context.Context, runID string) (*StoredRun, error) {
	run := &StoredRun{RunID: runID}
	err := s.conn.QueryRowContext(ctx, `
		SELECT started_at, finished_at, total, exact_matches, fuzzy_matches, unmatched, classified, review
		FROM runs WHERE id = ?`, runID).
		Scan(&run.StartedAt, &run.FinishedAt,
			&run.Stats.Total, &run.Stats.Exact, &run.Stats.Fuzzy,
			&run.Stats.Unmatched, &run.Stats.Classified, &run.Stats.Review)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	return run, nil
}

// ListRuns returns run headers, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]StoredRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, started_at, finished_at, total, exact_matches, fuzzy_matches, unmatched, classified, review
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []StoredRun
	for rows.Next() {
		var run StoredRun
		err := rows.Scan(&run.RunID, &run.StartedAt, &run.FinishedAt,
			&run.Stats.Total, &run.Stats.Exact, &run.Stats.Fuzzy,
			&run.Stats.Unmatched, &run.Stats.Classified, &run.Stats.Review)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRecords loads the merged record set of a run.
func (s *Store) GetRecords(ctx context.Context, runID string) ([]registry.PlantRecord, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, name, company, technology, subtype, subtype_confidence,
		       source, match_ref, match_method, match_score
		FROM plants WHERE run_id = ? ORDER BY technology, id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load records for run %s: %w", runID, err)
	}
	defer rows.Close()

	var records []registry.PlantRecord
	for rows.Next() {
		var r registry.PlantRecord
		var company, subtype, source, matchRef, matchMethod sql.NullString
		var tech string
		err := rows.Scan(&r.ID, &r.Name, &company, &tech, &subtype,
			&r.SubtypeConfidence, &source, &matchRef, &matchMethod, &r.MatchScore)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plant row: %w", err)
		}
		r.Technology = registry.Technology(tech)
		r.Company = nullString(company)
		r.Subtype = nullString(subtype)
		r.Source = nullString(source)
		r.MatchRef = nullString(matchRef)
		r.MatchMethod = registry.MatchMethod(nullString(matchMethod))
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetReviewItems loads the review queue of a run.
func (s *Store) GetReviewItems(ctx context.Context, runID string) ([]reconcile.ReviewItem, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT plant_id, plant_name, reason, confidence
		FROM review_items WHERE run_id = ? ORDER BY plant_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load review items for run %s: %w", runID, err)
	}
	defer rows.Close()

	var items []reconcile.ReviewItem
	for rows.Next() {
		var item reconcile.ReviewItem
		var reason string
		if err := rows.Scan(&item.PlantID, &item.PlantName, &reason, &item.Confidence); err != nil {
			return nil, fmt.Errorf("failed to scan review row: %w", err)
		}
		item.Reason = reconcile.ReviewReason(reason)
		items = append(items, item)
	}
	return items, rows.Err()
}

func nullString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// isBusy reports whether the error is SQLite lock contention worth
// retrying.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}
