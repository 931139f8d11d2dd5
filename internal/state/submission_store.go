package state

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/DistributedCollective/sovryn-ops/internal/types"
)

// SubmissionLedger records multisig submissions in multisig_submissions.
type SubmissionLedger struct{}

// RecordSubmission inserts sub. Re-recording the same wallet/tx id keeps the first row.
func (SubmissionLedger) RecordSubmission(ctx context.Context, sub types.Submission) error {
	if DB == nil {
		return ErrDBNotInitialized
	}

	query := `
		INSERT INTO multisig_submissions (
			network, wallet, tx_id, target, method, data_hex, value,
			submit_tx_hash, submitter, submitted_at, confirmations, executed
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (wallet, tx_id) DO NOTHING;
	`
	submittedAt := sub.SubmittedAt
	if submittedAt.IsZero() {
		submittedAt = time.Now().UTC()
	}
	_, err := DB.ExecContext(ctx, query,
		sub.Network, sub.Wallet.Hex(), sub.TxID, sub.Target.Hex(), sub.Method, sub.DataHex, numeric(sub.Value),
		sub.SubmitTxHash, sub.Submitter.Hex(), submittedAt, sub.Confirmations, sub.Executed,
	)
	if err != nil {
		return fmt.Errorf("failed to record submission %d: %w", sub.TxID, err)
	}

	log.Debug().
		Str("wallet", sub.Wallet.Hex()).
		Uint64("txID", sub.TxID).
		Str("method", sub.Method).
		Msg("Submission recorded")
	return nil
}

// UpdateSubmissionStatus stores the latest confirmation count. Transactions submitted
// outside the toolkit have no row and are ignored.
func (SubmissionLedger) UpdateSubmissionStatus(ctx context.Context, wallet common.Address, txID uint64, confirmations int, executed bool) error {
	if DB == nil {
		return ErrDBNotInitialized
	}

	query := `
		UPDATE multisig_submissions
		SET confirmations = $3, executed = $4, updated_at = CURRENT_TIMESTAMP
		WHERE wallet = $1 AND tx_id = $2;
	`
	if _, err := DB.ExecContext(ctx, query, wallet.Hex(), txID, confirmations, executed); err != nil {
		return fmt.Errorf("failed to update submission %d: %w", txID, err)
	}
	return nil
}

// ListSubmissions returns the most recent submissions, newest first.
func (SubmissionLedger) ListSubmissions(ctx context.Context, limit int) ([]types.Submission, error) {
	return querySubmissions(ctx, `ORDER BY submitted_at DESC LIMIT $1`, clampLimit(limit))
}

// PendingSubmissions returns every submission not yet executed, oldest first.
func (SubmissionLedger) PendingSubmissions(ctx context.Context, wallet common.Address) ([]types.Submission, error) {
	return querySubmissions(ctx, `WHERE executed = FALSE AND wallet = $1 ORDER BY tx_id ASC`, wallet.Hex())
}

func querySubmissions(ctx context.Context, clause string, args ...interface{}) ([]types.Submission, error) {
	if DB == nil {
		return nil, ErrDBNotInitialized
	}

	query := `
		SELECT submission_id, network, wallet, tx_id, target, method, data_hex, value::TEXT,
			submit_tx_hash, submitter, submitted_at, confirmations, executed, updated_at
		FROM multisig_submissions ` + clause

	rows, err := DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	var subs []types.Submission
	for rows.Next() {
		var (
			sub                       types.Submission
			wallet, target, submitter string
			value                     sql.NullString
		)
		err := rows.Scan(
			&sub.SubmissionID, &sub.Network, &wallet, &sub.TxID, &target, &sub.Method, &sub.DataHex, &value,
			&sub.SubmitTxHash, &submitter, &sub.SubmittedAt, &sub.Confirmations, &sub.Executed, &sub.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		sub.Wallet = common.HexToAddress(wallet)
		sub.Target = common.HexToAddress(target)
		sub.Submitter = common.HexToAddress(submitter)
		if sub.Value, err = parseNumeric(value); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating submissions: %w", err)
	}
	return subs, nil
}

// numeric renders v for a NUMERIC column; nil stays NULL.
func numeric(v *big.Int) interface{} {
	if v == nil {
		return nil
	}
	return v.String()
}

func parseNumeric(s sql.NullString) (*big.Int, error) {
	if !s.Valid {
		return nil, nil
	}
	// NUMERIC(78, 0) is rendered without a fractional part, but be lenient.
	text, _, _ := strings.Cut(s.String, ".")
	v, ok := new(big.Int).SetString(text, 10)
	if !ok {
		return nil, fmt.Errorf("invalid numeric value %q", s.String)
	}
	return v, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 50
	}
	return limit
}
