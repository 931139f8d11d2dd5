package state

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/DistributedCollective/sovryn-ops/internal/types"
)

// CheckStore persists verification results in check_results.
type CheckStore struct{}

// SaveCheckResults inserts a batch in one transaction and sets each CheckID.
func (CheckStore) SaveCheckResults(ctx context.Context, results []types.CheckResult) (err error) {
	if DB == nil {
		return ErrDBNotInitialized
	}

	tx, err := DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error().Err(rbErr).Msg("Failed to roll back check results")
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO check_results (
			batch_id, name, subject, expected, actual, tolerance, passed, skipped, message, check_timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING check_id;
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare check insert: %w", err)
	}
	defer stmt.Close()

	for i := range results {
		r := &results[i]
		err = stmt.QueryRowContext(ctx,
			r.BatchID, r.Name, r.Subject, numeric(r.Expected), numeric(r.Actual), numeric(r.Tolerance),
			r.Passed, r.Skipped, r.Message, r.Timestamp,
		).Scan(&r.CheckID)
		if err != nil {
			return fmt.Errorf("failed to save check %s/%s: %w", r.Name, r.Subject, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit check results: %w", err)
	}
	log.Debug().Int("count", len(results)).Msg("Check results saved")
	return nil
}

// ListCheckResults returns the results of batchID, or the latest results when batchID is empty.
func (CheckStore) ListCheckResults(ctx context.Context, batchID string, limit int) ([]types.CheckResult, error) {
	if DB == nil {
		return nil, ErrDBNotInitialized
	}

	query := `
		SELECT check_id, batch_id, name, subject, expected::TEXT, actual::TEXT, tolerance::TEXT,
			passed, skipped, message, check_timestamp
		FROM check_results `
	args := []interface{}{clampLimit(limit)}
	if batchID != "" {
		query += `WHERE batch_id = $2 `
		args = append(args, batchID)
	}
	query += `ORDER BY check_timestamp DESC, check_id ASC LIMIT $1`

	rows, err := DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query check results: %w", err)
	}
	defer rows.Close()

	var results []types.CheckResult
	for rows.Next() {
		var (
			r                           types.CheckResult
			expected, actual, tolerance sql.NullString
		)
		err := rows.Scan(&r.CheckID, &r.BatchID, &r.Name, &r.Subject, &expected, &actual, &tolerance,
			&r.Passed, &r.Skipped, &r.Message, &r.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to scan check result: %w", err)
		}
		if r.Expected, err = parseNumeric(expected); err != nil {
			return nil, err
		}
		if r.Actual, err = parseNumeric(actual); err != nil {
			return nil, err
		}
		if r.Tolerance, err = parseNumeric(tolerance); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating check results: %w", err)
	}
	return results, nil
}
