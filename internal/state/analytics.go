package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/DistributedCollective/sovryn-ops/internal/types"
)

// PendingSummary groups unexecuted submissions per wallet.
type PendingSummary struct {
	Network      string             `json:"network"`
	Wallet       string             `json:"wallet"`
	Count        int                `json:"count"`
	Ready        int                `json:"ready"` // confirmed by enough owners but not executed
	Submissions  []types.Submission `json:"submissions"`
	OldestTxID   uint64             `json:"oldest_tx_id"`
	LastActivity time.Time          `json:"last_activity"`
}

// DistributionSummary aggregates every recorded distribution run.
type DistributionSummary struct {
	TotalRuns      int    `json:"total_runs"`
	FinishedRuns   int    `json:"finished_runs"`
	RowsCompleted  int    `json:"rows_completed"`
	RowsSubmitted  int    `json:"rows_submitted"`
	RowsFailed     int    `json:"rows_failed"`
	RowsSkipped    int    `json:"rows_skipped"`
	AirdropRuns    int    `json:"airdrop_runs"`
	VestingRuns    int    `json:"vesting_runs"`
	LastRunStarted string `json:"last_run_started,omitempty"`
}

// GetPendingSubmissions returns every unexecuted submission grouped by wallet.
// required is the wallet's confirmation threshold; 0 leaves Ready at 0.
func GetPendingSubmissions(ctx context.Context, required int) ([]PendingSummary, error) {
	subs, err := querySubmissions(ctx, `WHERE executed = FALSE ORDER BY wallet, tx_id ASC`)
	if err != nil {
		return nil, err
	}

	var out []PendingSummary
	index := make(map[string]int)
	for _, sub := range subs {
		key := sub.Wallet.Hex()
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, PendingSummary{Network: sub.Network, Wallet: key, OldestTxID: sub.TxID})
		}
		p := &out[i]
		p.Count++
		p.Submissions = append(p.Submissions, sub)
		if required > 0 && sub.Confirmations >= required {
			p.Ready++
		}
		if sub.UpdatedAt.After(p.LastActivity) {
			p.LastActivity = sub.UpdatedAt
		}
	}

	log.Debug().Int("wallets", len(out)).Int("pending", len(subs)).Msg("Retrieved pending submissions")
	return out, nil
}

// GetDistributionSummary retrieves aggregated distribution statistics
func GetDistributionSummary(ctx context.Context) (*DistributionSummary, error) {
	if DB == nil {
		return nil, ErrDBNotInitialized
	}

	summary := &DistributionSummary{}
	query := `
		SELECT
			COUNT(*) as total_runs,
			COUNT(finished_at) as finished_runs,
			COALESCE(SUM(completed), 0) as rows_completed,
			COALESCE(SUM(submitted), 0) as rows_submitted,
			COALESCE(SUM(failed), 0) as rows_failed,
			COALESCE(SUM(skipped), 0) as rows_skipped,
			COUNT(CASE WHEN kind = 'airdrop' THEN 1 END) as airdrop_runs,
			COUNT(CASE WHEN kind = 'vesting' THEN 1 END) as vesting_runs
		FROM distribution_runs
	`
	err := DB.QueryRowContext(ctx, query).Scan(
		&summary.TotalRuns,
		&summary.FinishedRuns,
		&summary.RowsCompleted,
		&summary.RowsSubmitted,
		&summary.RowsFailed,
		&summary.RowsSkipped,
		&summary.AirdropRuns,
		&summary.VestingRuns,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get distribution summary: %w", err)
	}

	var lastStarted sql.NullString
	err = DB.QueryRowContext(ctx, `SELECT started_at::TEXT FROM distribution_runs ORDER BY started_at DESC LIMIT 1`).Scan(&lastStarted)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get latest distribution run: %w", err)
	}
	if lastStarted.Valid {
		summary.LastRunStarted = lastStarted.String
	}

	log.Info().
		Int("totalRuns", summary.TotalRuns).
		Int("rowsCompleted", summary.RowsCompleted).
		Int("rowsFailed", summary.RowsFailed).
		Msg("Retrieved distribution summary")
	return summary, nil
}
