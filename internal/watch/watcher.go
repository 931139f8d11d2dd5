package watch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/DistributedCollective/sovryn-ops/internal/logger"
	"github.com/DistributedCollective/sovryn-ops/internal/metrics"
	"github.com/DistributedCollective/sovryn-ops/internal/multisig"
	"github.com/DistributedCollective/sovryn-ops/internal/types"
)

var ErrNoWallet = errors.New("watcher needs a multisig wallet")

// Ledger is the part of the submission ledger the watcher reconciles against.
type Ledger interface {
	multisig.Recorder
	PendingSubmissions(ctx context.Context, wallet common.Address) ([]types.Submission, error)
}

// Config holds the configuration for creating a new Watcher.
type Config struct {
	Wallet *multisig.Wallet
	// Ledger may be nil; the watcher then only reports and exports metrics.
	Ledger Ledger
	// NextCycle returns the next persistent cycle number. A process-local counter is
	// used when nil.
	NextCycle func(ctx context.Context) (int, error)
	// ExecuteReady executes transactions that reached the confirmation threshold
	// but were not executed, e.g. because the last confirmation ran out of gas.
	ExecuteReady bool
}

// CycleReport summarizes one watcher cycle.
type CycleReport struct {
	Cycle    int      `json:"cycle"`
	Pending  []uint64 `json:"pending"`
	Ready    []uint64 `json:"ready"`
	Executed []uint64 `json:"executed"` // executed on chain since the previous cycle
}

// Watcher polls a multisig wallet and keeps the submission ledger in sync with it.
type Watcher struct {
	logger       zerolog.Logger
	wallet       *multisig.Wallet
	ledger       Ledger
	nextCycle    func(ctx context.Context) (int, error)
	executeReady bool

	cycleCount int
}

// New creates a Watcher from cfg.
func New(cfg Config) (*Watcher, error) {
	if cfg.Wallet == nil {
		return nil, ErrNoWallet
	}
	w := &Watcher{
		logger:       logger.GetForComponent("watch"),
		wallet:       cfg.Wallet,
		ledger:       cfg.Ledger,
		nextCycle:    cfg.NextCycle,
		executeReady: cfg.ExecuteReady,
	}
	w.logger.Info().
		Str("wallet", w.wallet.Address().Hex()).
		Bool("ledger", w.ledger != nil).
		Bool("executeReady", w.executeReady).
		Msg("Watcher created")
	return w, nil
}

// RunLoop runs a cycle immediately and then every interval until ctx is done.
func (w *Watcher) RunLoop(ctx context.Context, interval time.Duration) {
	w.logger.Info().
		Dur("interval", interval).
		Msg("Starting multisig watch loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.runLogged(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Watch loop stopped due to context cancellation")
			return
		case <-ticker.C:
			w.runLogged(ctx)
		}
	}
}

func (w *Watcher) runLogged(ctx context.Context) {
	if _, err := w.RunCycle(ctx); err != nil {
		w.logger.Error().Err(err).Msg("Watch cycle failed")
	}
}

// RunCycle refreshes every pending transaction once.
func (w *Watcher) RunCycle(ctx context.Context) (*CycleReport, error) {
	cycleLogger := w.logger.With().Str("cycle_id", uuid.New().String()).Logger()
	defer metrics.IncWatchCycle()

	cycle, err := w.cycleNumber(ctx)
	if err != nil {
		return nil, err
	}
	report := &CycleReport{Cycle: cycle}
	walletHex := w.wallet.Address().Hex()

	pending, err := w.wallet.PendingDetails(ctx)
	if err != nil {
		return nil, fmt.Errorf("read pending transactions: %w", err)
	}
	metrics.SetPending(walletHex, len(pending))

	onChain := make(map[uint64]bool, len(pending))
	for _, tx := range pending {
		onChain[tx.ID] = true
		report.Pending = append(report.Pending, tx.ID)
		metrics.SetConfirmations(walletHex, strconv.FormatUint(tx.ID, 10), len(tx.Confirmations))
		w.update(ctx, tx.ID, len(tx.Confirmations), false)

		if tx.Ready() {
			report.Ready = append(report.Ready, tx.ID)
			cycleLogger.Warn().
				Uint64("txID", tx.ID).
				Int("confirmations", len(tx.Confirmations)).
				Uint64("required", tx.Required).
				Msg("Transaction confirmed but not executed")
			if w.executeReady {
				if _, err := w.wallet.Execute(ctx, tx.ID); err != nil {
					cycleLogger.Error().Err(err).Uint64("txID", tx.ID).Msg("Failed to execute ready transaction")
				}
			}
		}
	}

	if err := w.reconcile(ctx, onChain, report); err != nil {
		return report, err
	}

	cycleLogger.Info().
		Int("cycle", report.Cycle).
		Int("pending", len(report.Pending)).
		Int("ready", len(report.Ready)).
		Int("executed", len(report.Executed)).
		Msg("Watch cycle completed")
	return report, nil
}

// reconcile closes ledger rows whose transaction is no longer pending on chain.
func (w *Watcher) reconcile(ctx context.Context, onChain map[uint64]bool, report *CycleReport) error {
	if w.ledger == nil {
		return nil
	}
	recorded, err := w.ledger.PendingSubmissions(ctx, w.wallet.Address())
	if err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}
	walletHex := w.wallet.Address().Hex()
	for _, sub := range recorded {
		if onChain[sub.TxID] {
			continue
		}
		status, err := w.wallet.Status(ctx, sub.TxID)
		if err != nil {
			w.logger.Error().Err(err).Uint64("txID", sub.TxID).Msg("Failed to read transaction status")
			continue
		}
		if !status.Executed {
			continue
		}
		w.update(ctx, sub.TxID, len(status.Confirmations), true)
		metrics.ClearConfirmations(walletHex, strconv.FormatUint(sub.TxID, 10))
		report.Executed = append(report.Executed, sub.TxID)
		w.logger.Info().Uint64("txID", sub.TxID).Str("method", sub.Method).Msg("Submission executed")
	}
	return nil
}

func (w *Watcher) update(ctx context.Context, txID uint64, confirmations int, executed bool) {
	if w.ledger == nil {
		return
	}
	if err := w.ledger.UpdateSubmissionStatus(ctx, w.wallet.Address(), txID, confirmations, executed); err != nil {
		w.logger.Error().Err(err).Uint64("txID", txID).Msg("Failed to update submission status")
	}
}

func (w *Watcher) cycleNumber(ctx context.Context) (int, error) {
	if w.nextCycle == nil {
		w.cycleCount++
		return w.cycleCount, nil
	}
	n, err := w.nextCycle(ctx)
	if err != nil {
		return 0, fmt.Errorf("next cycle number: %w", err)
	}
	w.cycleCount = n
	return n, nil
}
