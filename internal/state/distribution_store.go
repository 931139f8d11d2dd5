package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lib/pq" // PostgreSQL driver for array support
	"github.com/rs/zerolog/log"

	"github.com/DistributedCollective/sovryn-ops/internal/types"
)

var ErrRunNotFound = errors.New("distribution run not found")

// DistributionStore persists distribution runs and their per-row entries.
type DistributionStore struct{}

const runColumns = `run_id, run_uuid, name, kind, network, csv_hash, token, row_count, total,
	started_at, finished_at, completed, submitted, failed, skipped`

// FindRun returns the latest run of name over the same CSV, or nil.
func (DistributionStore) FindRun(ctx context.Context, name, csvHash string) (*types.DistributionRun, error) {
	runs, err := queryRuns(ctx, `WHERE name = $1 AND csv_hash = $2 ORDER BY started_at DESC LIMIT 1`, name, csvHash)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return &runs[0], nil
}

// GetRun loads a run by id.
func (DistributionStore) GetRun(ctx context.Context, runID int64) (*types.DistributionRun, error) {
	runs, err := queryRuns(ctx, `WHERE run_id = $1`, runID)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	return &runs[0], nil
}

// ListRuns returns the most recent runs, newest first.
func (DistributionStore) ListRuns(ctx context.Context, limit int) ([]types.DistributionRun, error) {
	return queryRuns(ctx, `ORDER BY started_at DESC LIMIT $1`, clampLimit(limit))
}

// CreateRun inserts run and sets its RunID.
func (DistributionStore) CreateRun(ctx context.Context, run *types.DistributionRun) error {
	if DB == nil {
		return ErrDBNotInitialized
	}

	query := `
		INSERT INTO distribution_runs (run_uuid, name, kind, network, csv_hash, token, row_count, total, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING run_id;
	`
	err := DB.QueryRowContext(ctx, query,
		run.RunUUID, run.Name, string(run.Kind), run.Network, run.CSVHash, run.Token.Hex(), run.Rows, run.TotalText, run.StartedAt,
	).Scan(&run.RunID)
	if err != nil {
		return fmt.Errorf("failed to create distribution run: %w", err)
	}

	log.Info().
		Int64("run_id", run.RunID).
		Str("name", run.Name).
		Str("kind", string(run.Kind)).
		Int("rows", run.Rows).
		Msg("Distribution run created")
	return nil
}

// FinishRun stores the final counters of run.
func (DistributionStore) FinishRun(ctx context.Context, run *types.DistributionRun) error {
	if DB == nil {
		return ErrDBNotInitialized
	}

	query := `
		UPDATE distribution_runs
		SET finished_at = $2, completed = $3, submitted = $4, failed = $5, skipped = $6
		WHERE run_id = $1;
	`
	_, err := DB.ExecContext(ctx, query, run.RunID, run.FinishedAt, run.Completed, run.Submitted, run.Failed, run.Skipped)
	if err != nil {
		return fmt.Errorf("failed to finish distribution run %d: %w", run.RunID, err)
	}
	return nil
}

// SaveEntry upserts the outcome of one row; a retried row replaces its earlier entry.
func (DistributionStore) SaveEntry(ctx context.Context, entry *types.DistributionEntry) error {
	if DB == nil {
		return ErrDBNotInitialized
	}

	var multisigTxID sql.NullInt64
	if entry.MultisigTxID != nil {
		multisigTxID = sql.NullInt64{Int64: int64(*entry.MultisigTxID), Valid: true}
	}
	var vesting sql.NullString
	if entry.Vesting != nil {
		vesting = sql.NullString{String: entry.Vesting.Hex(), Valid: true}
	}
	hashes := entry.TxHashes
	if hashes == nil {
		hashes = []string{}
	}

	query := `
		INSERT INTO distribution_entries (
			run_id, line, address, amount, status, step, tx_hashes, multisig_tx_id, vesting, message, entry_timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (run_id, line) DO UPDATE SET
			status = EXCLUDED.status,
			step = EXCLUDED.step,
			tx_hashes = EXCLUDED.tx_hashes,
			multisig_tx_id = EXCLUDED.multisig_tx_id,
			vesting = EXCLUDED.vesting,
			message = EXCLUDED.message,
			entry_timestamp = EXCLUDED.entry_timestamp
		RETURNING entry_id;
	`
	err := DB.QueryRowContext(ctx, query,
		entry.RunID, entry.Line, entry.Address.Hex(), entry.AmountText, string(entry.Status), entry.Step,
		pq.Array(hashes), multisigTxID, vesting, entry.Message, entry.Timestamp,
	).Scan(&entry.EntryID)
	if err != nil {
		return fmt.Errorf("failed to save entry for line %d: %w", entry.Line, err)
	}
	return nil
}

// ListEntries returns the entries of a run in CSV order.
func (DistributionStore) ListEntries(ctx context.Context, runID int64) ([]types.DistributionEntry, error) {
	if DB == nil {
		return nil, ErrDBNotInitialized
	}

	query := `
		SELECT entry_id, run_id, line, address, amount, status, step, tx_hashes, multisig_tx_id, vesting, message, entry_timestamp
		FROM distribution_entries
		WHERE run_id = $1
		ORDER BY line ASC
	`
	rows, err := DB.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries of run %d: %w", runID, err)
	}
	defer rows.Close()

	var entries []types.DistributionEntry
	for rows.Next() {
		var (
			e            types.DistributionEntry
			address      string
			status       string
			multisigTxID sql.NullInt64
			vesting      sql.NullString
		)
		err := rows.Scan(&e.EntryID, &e.RunID, &e.Line, &address, &e.AmountText, &status, &e.Step,
			pq.Array(&e.TxHashes), &multisigTxID, &vesting, &e.Message, &e.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		e.Address = common.HexToAddress(address)
		e.Status = types.EntryStatus(status)
		if multisigTxID.Valid {
			id := uint64(multisigTxID.Int64)
			e.MultisigTxID = &id
		}
		if vesting.Valid {
			v := common.HexToAddress(vesting.String)
			e.Vesting = &v
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}
	return entries, nil
}

func queryRuns(ctx context.Context, clause string, args ...interface{}) ([]types.DistributionRun, error) {
	if DB == nil {
		return nil, ErrDBNotInitialized
	}

	rows, err := DB.QueryContext(ctx, `SELECT `+runColumns+` FROM distribution_runs `+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query distribution runs: %w", err)
	}
	defer rows.Close()

	var runs []types.DistributionRun
	for rows.Next() {
		var (
			run        types.DistributionRun
			kind       string
			token      string
			finishedAt sql.NullTime
		)
		err := rows.Scan(&run.RunID, &run.RunUUID, &run.Name, &kind, &run.Network, &run.CSVHash, &token,
			&run.Rows, &run.TotalText, &run.StartedAt, &finishedAt,
			&run.Completed, &run.Submitted, &run.Failed, &run.Skipped)
		if err != nil {
			return nil, fmt.Errorf("failed to scan distribution run: %w", err)
		}
		run.Kind = types.DistributionKind(kind)
		run.Token = common.HexToAddress(token)
		if finishedAt.Valid {
			t := finishedAt.Time
			run.FinishedAt = &t
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating distribution runs: %w", err)
	}
	return runs, nil
}
