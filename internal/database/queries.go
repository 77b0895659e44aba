package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// querier is satisfied by both *sql.DB and *sql.Tx, so the same query code
// serves DB and Tx methods.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// Helper Functions
// =============================================================================

// parseTimestamp parses a timestamp from SQLite TEXT format.
// Tries multiple formats and returns nil if parsing fails.
func parseTimestamp(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}

	// Try RFC3339 format first (with timezone)
	t, err := time.Parse(time.RFC3339, ns.String)
	if err == nil {
		return &t
	}

	// Try SQLite datetime format (no timezone)
	t, err = time.Parse("2006-01-02 15:04:05", ns.String)
	if err == nil {
		return &t
	}

	return nil
}

// =============================================================================
// Reference Chart Queries
// =============================================================================

const referenceColumns = `
	id, label, solar_date, solar_time, zi_rule, expected, notes,
	created_at, updated_at
`

// scanner is the common part of *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanReference(s scanner) (*ReferenceChart, error) {
	var ref ReferenceChart
	var notes, createdAtStr, updatedAtStr sql.NullString

	err := s.Scan(
		&ref.ID,
		&ref.Label,
		&ref.SolarDate,
		&ref.SolarTime,
		&ref.ZiRule,
		&ref.Expected,
		&notes,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return nil, err
	}

	ref.Notes = NullString(notes)
	if t := parseTimestamp(createdAtStr); t != nil {
		ref.CreatedAt = *t
	}
	if t := parseTimestamp(updatedAtStr); t != nil {
		ref.UpdatedAt = *t
	}
	return &ref, nil
}

// CreateReference inserts a new reference chart and fills in its ID.
// Returns ErrDuplicate if the date, time and zi rule are already stored.
func (db *DB) CreateReference(ctx context.Context, ref *ReferenceChart) error {
	return createReference(ctx, db.DB, ref)
}

// CreateReference inserts a reference chart within the transaction.
func (tx *Tx) CreateReference(ctx context.Context, ref *ReferenceChart) error {
	return createReference(ctx, tx.Tx, ref)
}

func createReference(ctx context.Context, q querier, ref *ReferenceChart) error {
	if ref.ZiRule == "" {
		ref.ZiRule = ZiRuleKeep
	}

	query := `
		INSERT INTO reference_charts (label, solar_date, solar_time, zi_rule, expected, notes)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := q.ExecContext(ctx, query,
		ref.Label,
		ref.SolarDate,
		ref.SolarTime,
		ref.ZiRule,
		ref.Expected,
		StringToNull(ref.Notes),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert reference chart: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get reference chart id: %w", err)
	}
	ref.ID = id
	ref.CreatedAt = time.Now().UTC()
	ref.UpdatedAt = ref.CreatedAt

	return nil
}

// UpsertReference inserts a chart or, when the same date, time and zi rule
// already exist, updates its label, expected pillars and notes. It reports
// whether a new row was created.
//
// Used by the fixture importer so that re-running an import is safe.
func (tx *Tx) UpsertReference(ctx context.Context, ref *ReferenceChart) (bool, error) {
	if ref.ZiRule == "" {
		ref.ZiRule = ZiRuleKeep
	}

	var existingID int64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM reference_charts WHERE solar_date = ? AND solar_time = ? AND zi_rule = ?`,
		ref.SolarDate, ref.SolarTime, ref.ZiRule,
	).Scan(&existingID)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return true, createReference(ctx, tx.Tx, ref)
	case err != nil:
		return false, fmt.Errorf("look up reference chart: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE reference_charts
		SET label = ?, expected = ?, notes = ?, updated_at = datetime('now')
		WHERE id = ?
	`, ref.Label, ref.Expected, StringToNull(ref.Notes), existingID)
	if err != nil {
		return false, fmt.Errorf("update reference chart: %w", err)
	}

	ref.ID = existingID
	return false, nil
}

// GetReference retrieves a chart by ID.
// Returns ErrNotFound if it doesn't exist.
func (db *DB) GetReference(ctx context.Context, id int64) (*ReferenceChart, error) {
	query := `SELECT ` + referenceColumns + ` FROM reference_charts WHERE id = ?`

	ref, err := scanReference(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query reference chart: %w", err)
	}
	return ref, nil
}

// ListReferences returns all charts ordered by date and time.
// Returns an empty slice when none are stored.
func (db *DB) ListReferences(ctx context.Context) ([]ReferenceChart, error) {
	query := `SELECT ` + referenceColumns + `
		FROM reference_charts
		ORDER BY solar_date ASC, solar_time ASC, zi_rule ASC
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query reference charts: %w", err)
	}
	defer rows.Close()

	refs := []ReferenceChart{}
	for rows.Next() {
		ref, err := scanReference(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reference chart: %w", err)
		}
		refs = append(refs, *ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reference charts: %w", err)
	}

	return refs, nil
}

// CountReferences returns the number of stored charts.
func (db *DB) CountReferences(ctx context.Context) (int, error) {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reference_charts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count reference charts: %w", err)
	}
	return count, nil
}

// DeleteReference removes a chart by ID.
// Returns ErrNotFound if it doesn't exist.
func (db *DB) DeleteReference(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM reference_charts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reference chart: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// =============================================================================
// Validation Run Queries
// =============================================================================

// SaveRun stores a run and all of its results in one transaction, filling
// in the generated IDs. The run counters are recomputed from the results.
func (db *DB) SaveRun(ctx context.Context, summary *RunSummary) error {
	summary.Tally()
	if summary.Run.Source == "" {
		summary.Run.Source = "api"
	}

	return db.WithTx(ctx, func(tx *Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO validation_runs (source, total, passed, failed, errored)
			VALUES (?, ?, ?, ?, ?)
		`, summary.Run.Source, summary.Run.Total, summary.Run.Passed, summary.Run.Failed, summary.Run.Errored)
		if err != nil {
			return fmt.Errorf("insert validation run: %w", err)
		}

		runID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("get validation run id: %w", err)
		}
		summary.Run.ID = runID
		summary.Run.CreatedAt = time.Now().UTC()

		for i := range summary.Results {
			r := &summary.Results[i]
			r.RunID = runID

			mismatches, err := MarshalMismatches(r.Mismatches)
			if err != nil {
				return fmt.Errorf("marshal mismatches: %w", err)
			}

			var refID sql.NullInt64
			if r.ReferenceID != nil {
				refID = sql.NullInt64{Int64: *r.ReferenceID, Valid: true}
			}

			res, err := tx.ExecContext(ctx, `
				INSERT INTO validation_results (
					run_id, reference_id, label, expected, actual,
					is_match, mismatches, degraded, error_message
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, runID, refID, r.Label, r.Expected, r.Actual,
				r.Match, mismatches, r.Degraded, StringToNull(r.Error))
			if err != nil {
				return fmt.Errorf("insert validation result %d: %w", i+1, err)
			}

			if r.ID, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("get validation result id: %w", err)
			}
		}

		return nil
	})
}

// GetLatestRun returns the most recent run with its results.
// Returns ErrNotFound if no run has been saved yet.
func (db *DB) GetLatestRun(ctx context.Context) (*RunSummary, error) {
	var id int64
	err := db.QueryRowContext(ctx, `SELECT id FROM validation_runs ORDER BY id DESC LIMIT 1`).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query latest validation run: %w", err)
	}
	return db.GetRun(ctx, id)
}

// GetRun returns a run with its results.
// Returns ErrNotFound if it doesn't exist.
func (db *DB) GetRun(ctx context.Context, id int64) (*RunSummary, error) {
	var summary RunSummary
	var createdAtStr sql.NullString

	err := db.QueryRowContext(ctx, `
		SELECT id, source, total, passed, failed, errored, created_at
		FROM validation_runs
		WHERE id = ?
	`, id).Scan(
		&summary.Run.ID,
		&summary.Run.Source,
		&summary.Run.Total,
		&summary.Run.Passed,
		&summary.Run.Failed,
		&summary.Run.Errored,
		&createdAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query validation run: %w", err)
	}
	if t := parseTimestamp(createdAtStr); t != nil {
		summary.Run.CreatedAt = *t
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, run_id, reference_id, label, expected, actual,
			is_match, mismatches, degraded, error_message
		FROM validation_results
		WHERE run_id = ?
		ORDER BY id ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query validation results: %w", err)
	}
	defer rows.Close()

	summary.Results = []ValidationResult{}
	for rows.Next() {
		var r ValidationResult
		var refID sql.NullInt64
		var mismatchesJSON string
		var errMsg sql.NullString

		if err := rows.Scan(
			&r.ID,
			&r.RunID,
			&refID,
			&r.Label,
			&r.Expected,
			&r.Actual,
			&r.Match,
			&mismatchesJSON,
			&r.Degraded,
			&errMsg,
		); err != nil {
			return nil, fmt.Errorf("scan validation result: %w", err)
		}

		if refID.Valid {
			r.ReferenceID = &refID.Int64
		}
		r.Error = NullString(errMsg)
		if r.Mismatches, err = UnmarshalMismatches(mismatchesJSON); err != nil {
			return nil, fmt.Errorf("unmarshal mismatches: %w", err)
		}

		summary.Results = append(summary.Results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate validation results: %w", err)
	}

	return &summary, nil
}
