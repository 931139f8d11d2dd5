/*

Runner executes a distribution plan row by row. Rows are throttled to stay under the
RPC provider's rate limit, and each outcome is stored so that an interrupted run can
be restarted with the same name and file: rows that completed (or were submitted to
the multisig) are skipped on the next attempt. Rows whose transaction was broadcast
without a receipt are checked on chain before anything is sent again.

*/

package distribution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/DistributedCollective/sovryn-ops/internal/chain"
	"github.com/DistributedCollective/sovryn-ops/internal/formulas"
	"github.com/DistributedCollective/sovryn-ops/internal/logger"
	"github.com/DistributedCollective/sovryn-ops/internal/metrics"
	"github.com/DistributedCollective/sovryn-ops/internal/ops"
	"github.com/DistributedCollective/sovryn-ops/internal/types"
)

var (
	ErrNoRegistry      = errors.New("vesting distribution needs a vesting registry address")
	ErrWrongKind       = errors.New("plan kind does not match the distribution")
	ErrRowsFailed      = errors.New("distribution finished with failed or unconfirmed rows")
	ErrVestingNotFound = errors.New("vesting contract not found after creation")

	errNoTxLookup = errors.New("sender cannot look up receipts")
)

const (
	stepTransfer = "transfer"
	stepCreate   = "create"
	stepApprove  = "approve"
	stepStake    = "stake"
)

// txLookup is implemented by *chain.SigningClient.
type txLookup interface {
	LookupTx(ctx context.Context, hash common.Hash) (chain.TxState, error)
}

// Store persists runs and their entries.
type Store interface {
	// FindRun returns the latest run with name and csvHash, or nil.
	FindRun(ctx context.Context, name, csvHash string) (*types.DistributionRun, error)
	CreateRun(ctx context.Context, run *types.DistributionRun) error
	ListEntries(ctx context.Context, runID int64) ([]types.DistributionEntry, error)
	SaveEntry(ctx context.Context, entry *types.DistributionEntry) error
	FinishRun(ctx context.Context, run *types.DistributionRun) error
}

type Options struct {
	Network     string
	Token       common.Address
	Registry    common.Address // vesting runs only
	ViaMultisig bool           // pay from the multisig instead of the signing key
	RPS         float64        // rows per second, 0 = unlimited
	Burst       int
}

// Report is the outcome of Run.
type Report struct {
	Run     types.DistributionRun
	Entries []types.DistributionEntry
}

type Runner struct {
	exec     *ops.Executor
	token    *ops.Token
	registry *ops.VestingRegistry
	store    Store
	limiter  *rate.Limiter
	opts     Options
	log      zerolog.Logger
}

// NewRunner binds exec to the distribution token. Transfers are always sent directly
// by the signer unless opts.ViaMultisig is set. store may be nil.
func NewRunner(exec *ops.Executor, store Store, opts Options) (*Runner, error) {
	route := types.RouteDirect
	if opts.ViaMultisig {
		if exec.Wallet() == nil {
			return nil, ops.ErrNoMultisig
		}
		route = types.RouteMultisig
	}
	exec = exec.Routed(route)

	limit := rate.Inf
	if opts.RPS > 0 {
		limit = rate.Limit(opts.RPS)
	}
	if opts.Burst < 1 {
		opts.Burst = 1
	}

	r := &Runner{
		exec:    exec,
		token:   ops.NewToken(exec, "token", opts.Token),
		store:   store,
		limiter: rate.NewLimiter(limit, opts.Burst),
		opts:    opts,
		log:     logger.GetForComponent("distribution"),
	}
	if opts.Registry != (common.Address{}) {
		r.registry = ops.NewVestingRegistry(exec, opts.Registry)
	}
	return r, nil
}

// Payer is the account whose tokens are distributed.
func (r *Runner) Payer() (common.Address, bool) {
	if r.opts.ViaMultisig {
		return r.exec.Wallet().Address(), true
	}
	if s := r.exec.Sender(); s != nil {
		return s.From(), true
	}
	return common.Address{}, false
}

// RunAirdrop transfers every row of an airdrop plan.
func (r *Runner) RunAirdrop(ctx context.Context, name string, plan *Plan) (*Report, error) {
	if plan.Kind != types.DistributionAirdrop {
		return nil, fmt.Errorf("%w: %s plan passed to airdrop", ErrWrongKind, plan.Kind)
	}
	return r.Run(ctx, name, plan)
}

// RunVesting creates and funds a vesting contract for every row of a vesting plan.
func (r *Runner) RunVesting(ctx context.Context, name string, plan *Plan) (*Report, error) {
	if plan.Kind != types.DistributionVesting {
		return nil, fmt.Errorf("%w: %s plan passed to vesting", ErrWrongKind, plan.Kind)
	}
	return r.Run(ctx, name, plan)
}

// Run executes plan under name.
func (r *Runner) Run(ctx context.Context, name string, plan *Plan) (*Report, error) {
	if plan.Kind == types.DistributionVesting && r.registry == nil {
		return nil, ErrNoRegistry
	}
	dryRun := r.exec.DryRun()

	run, previous, err := r.openRun(ctx, name, plan, dryRun)
	if err != nil {
		return nil, err
	}
	done := make(map[int]bool, len(previous))
	for line, e := range previous {
		if e.Status.Settled() {
			done[line] = true
		}
	}

	if payer, ok := r.Payer(); ok {
		balance, err := r.token.BalanceOf(ctx, payer)
		if err != nil {
			return nil, fmt.Errorf("read payer balance: %w", err)
		}
		if err := requireBalance(plan.Remaining(done), balance); err != nil {
			return nil, err
		}
	} else {
		r.log.Warn().Msg("No payer account configured, balance not checked")
	}

	r.log.Info().
		Str("run", run.RunUUID).
		Str("name", name).
		Str("kind", string(plan.Kind)).
		Int("rows", len(plan.Rows)).
		Int("alreadyDone", len(done)).
		Str("total", plan.TotalText()).
		Bool("dryRun", dryRun).
		Msg("Starting distribution")

	report := &Report{}
	for _, row := range plan.Rows {
		if done[row.Line] {
			run.Skipped++
			metrics.ObserveDistributionRow(string(plan.Kind), string(types.EntrySkipped))
			continue
		}
		if err := r.limiter.Wait(ctx); err != nil {
			return r.finish(ctx, run, report, err)
		}

		var prior *types.DistributionEntry
		if e, ok := previous[row.Line]; ok {
			prior = &e
		}
		entry := r.processRow(ctx, plan.Kind, row, prior)
		entry.RunID = run.RunID
		entry.Timestamp = time.Now().UTC()

		switch entry.Status {
		case types.EntryCompleted, types.EntryDryRun:
			run.Completed++
		case types.EntrySubmitted, types.EntryCreatePending:
			run.Submitted++
		case types.EntryFailed:
			run.Failed++
			r.log.Error().Int("line", row.Line).Str("address", row.Address.Hex()).Str("error", entry.Message).Msg("Row failed")
		case types.EntryUnconfirmed:
			run.Failed++
			r.log.Warn().Int("line", row.Line).Str("address", row.Address.Hex()).Strs("txHashes", entry.TxHashes).Msg("Row outcome unknown")
		}
		metrics.ObserveDistributionRow(string(plan.Kind), string(entry.Status))

		if r.store != nil && !dryRun {
			if err := r.store.SaveEntry(ctx, &entry); err != nil {
				return r.finish(ctx, run, report, fmt.Errorf("save entry for line %d: %w", row.Line, err))
			}
		}
		report.Entries = append(report.Entries, entry)

		if ctx.Err() != nil {
			return r.finish(ctx, run, report, ctx.Err())
		}
	}

	var runErr error
	if run.Failed > 0 {
		runErr = fmt.Errorf("%w: %d of %d", ErrRowsFailed, run.Failed, len(plan.Rows))
	}
	return r.finish(ctx, run, report, runErr)
}

// openRun resumes the latest run of name over the same file, or starts a new one.
// Dry runs read the stored run but never write.
func (r *Runner) openRun(ctx context.Context, name string, plan *Plan, dryRun bool) (*types.DistributionRun, map[int]types.DistributionEntry, error) {
	previous := make(map[int]types.DistributionEntry)
	if r.store != nil {
		existing, err := r.store.FindRun(ctx, name, plan.CSVHash)
		if err != nil {
			return nil, nil, err
		}
		if existing != nil {
			entries, err := r.store.ListEntries(ctx, existing.RunID)
			if err != nil {
				return nil, nil, err
			}
			for _, e := range entries {
				previous[e.Line] = e
			}
			r.log.Info().Str("run", existing.RunUUID).Int("entries", len(previous)).Bool("dryRun", dryRun).Msg("Resuming distribution run")
			existing.Completed, existing.Submitted, existing.Failed, existing.Skipped = 0, 0, 0, 0
			existing.FinishedAt = nil
			existing.DryRun = dryRun
			return existing, previous, nil
		}
	}

	run := &types.DistributionRun{
		RunUUID:   uuid.New().String(),
		Name:      name,
		Kind:      plan.Kind,
		Network:   r.opts.Network,
		CSVHash:   plan.CSVHash,
		Token:     r.opts.Token,
		Rows:      len(plan.Rows),
		TotalText: plan.TotalText(),
		StartedAt: time.Now().UTC(),
		DryRun:    dryRun,
	}
	if r.store != nil && !dryRun {
		if err := r.store.CreateRun(ctx, run); err != nil {
			return nil, nil, err
		}
	}
	return run, previous, nil
}

func (r *Runner) finish(ctx context.Context, run *types.DistributionRun, report *Report, runErr error) (*Report, error) {
	now := time.Now().UTC()
	run.FinishedAt = &now
	if r.store != nil && !run.DryRun {
		// Record the summary even when ctx was cancelled.
		if err := r.store.FinishRun(context.WithoutCancel(ctx), run); err != nil {
			runErr = errors.Join(runErr, err)
		}
	}
	report.Run = *run

	r.log.Info().
		Str("run", run.RunUUID).
		Int("completed", run.Completed).
		Int("submitted", run.Submitted).
		Int("failed", run.Failed).
		Int("skipped", run.Skipped).
		Msg("Distribution finished")
	return report, runErr
}

// processRow sends row, picking up where prior left off.
func (r *Runner) processRow(ctx context.Context, kind types.DistributionKind, row types.DistributionRow, prior *types.DistributionEntry) types.DistributionEntry {
	entry := newEntry(row)
	if prior != nil {
		entry.TxHashes = append(entry.TxHashes, prior.TxHashes...)
		entry.Vesting = prior.Vesting
		entry.MultisigTxID = prior.MultisigTxID
	}
	if prior != nil && prior.Status == types.EntryUnconfirmed && len(prior.TxHashes) > 0 {
		if r.settle(ctx, kind, &entry, prior) {
			return entry
		}
	}
	if kind == types.DistributionVesting {
		r.vestingRow(ctx, row, &entry, prior)
	} else {
		r.airdropRow(ctx, row, &entry)
	}
	return entry
}

// settle resolves a row whose last transaction was broadcast without a receipt. It
// returns true when the row must not be sent again in this run: the transaction
// finished the row, or its fate is still unknown.
func (r *Runner) settle(ctx context.Context, kind types.DistributionKind, entry, prior *types.DistributionEntry) bool {
	hash := common.HexToHash(prior.TxHashes[len(prior.TxHashes)-1])
	state := chain.TxNotFound
	var err error
	if lookup, ok := r.exec.Sender().(txLookup); ok {
		state, err = lookup.LookupTx(ctx, hash)
	} else {
		err = errNoTxLookup
	}

	switch {
	case err != nil || state == chain.TxNotFound:
		entry.Status = types.EntryUnconfirmed
		entry.Step = prior.Step
		entry.Message = fmt.Sprintf("%s tx %s has no receipt; check whether it was dropped before retrying under a new run name", prior.Step, hash.Hex())
		if err != nil {
			entry.Message += ": " + err.Error()
		}
		return true
	case state == chain.TxReverted:
		r.log.Info().Int("line", prior.Line).Str("txHash", hash.Hex()).Str("step", prior.Step).Msg("Unconfirmed transaction reverted, retrying row")
		return false
	case prior.Step == stepStake || (kind == types.DistributionAirdrop && prior.Step == stepTransfer):
		r.log.Info().Int("line", prior.Line).Str("txHash", hash.Hex()).Msg("Unconfirmed transaction was mined, row complete")
		entry.Status = types.EntryCompleted
		entry.Step = prior.Step
		return true
	}
	// Create or approve went through; the vesting row continues from the lookup.
	return false
}

func (r *Runner) airdropRow(ctx context.Context, row types.DistributionRow, entry *types.DistributionEntry) {
	res, err := r.token.Transfer(ctx, row.Address, row.Amount)
	record(entry, stepTransfer, res, err)
}

// vestingRow creates (or reuses) the holder's vesting contract and stakes the amount.
// Through the multisig the creation is submitted first and the row waits in
// create_pending until the owners execute it; a later run then submits approve and
// stake.
func (r *Runner) vestingRow(ctx context.Context, row types.DistributionRow, entry *types.DistributionEntry, prior *types.DistributionEntry) {
	cliff := row.CliffWeeks * formulas.SecondsPerWeek
	duration := row.DurationWeeks * formulas.SecondsPerWeek

	vesting, err := r.registry.Lookup(ctx, row.Kind, row.Address)
	if err != nil {
		record(entry, "", nil, err)
		return
	}
	switch {
	case vesting != (common.Address{}):
		r.log.Info().Str("holder", row.Address.Hex()).Str("vesting", vesting.Hex()).Msg("Vesting contract exists, staking only")
	case prior != nil && prior.Status == types.EntryCreatePending:
		entry.Status = types.EntryCreatePending
		entry.Step = stepCreate
		entry.Message = pendingCreateMessage(prior.MultisigTxID)
		return
	default:
		res, err := r.registry.Create(ctx, row.Kind, row.Address, row.Amount, cliff, duration)
		record(entry, stepCreate, res, err)
		if entry.Status == types.EntrySubmitted {
			entry.Status = types.EntryCreatePending
			entry.Message = pendingCreateMessage(entry.MultisigTxID)
			return
		}
		if entry.Status != types.EntryCompleted {
			return
		}
		if vesting, err = r.registry.Lookup(ctx, row.Kind, row.Address); err != nil {
			record(entry, "", nil, err)
			return
		}
		if vesting == (common.Address{}) {
			record(entry, "", nil, fmt.Errorf("%w for %s", ErrVestingNotFound, row.Address.Hex()))
			return
		}
	}
	entry.Vesting = &vesting

	res, err := r.token.Approve(ctx, vesting, row.Amount)
	record(entry, stepApprove, res, err)
	if entry.Status != types.EntryCompleted && entry.Status != types.EntrySubmitted {
		return
	}
	approveTxID := entry.MultisigTxID
	res, err = ops.NewVesting(r.exec, vesting).StakeTokens(ctx, row.Amount)
	record(entry, stepStake, res, err)
	if entry.Status == types.EntrySubmitted && approveTxID != nil && entry.MultisigTxID != nil {
		entry.Message = fmt.Sprintf("execute multisig tx %d (approve) before %d (stake)", *approveTxID, *entry.MultisigTxID)
	}
}

func pendingCreateMessage(txID *uint64) string {
	if txID == nil {
		return "waiting for the multisig to create the vesting contract"
	}
	return fmt.Sprintf("waiting for multisig tx %d to create the vesting contract", *txID)
}

func newEntry(row types.DistributionRow) types.DistributionEntry {
	return types.DistributionEntry{
		Line:       row.Line,
		Address:    row.Address,
		AmountText: row.AmountText,
		Status:     types.EntryCompleted,
	}
}

// record folds the outcome of one step into entry. A transaction that was
// broadcast but whose receipt did not arrive leaves the row unconfirmed.
func record(entry *types.DistributionEntry, step string, res *types.ExecutionResult, err error) {
	if step != "" {
		entry.Step = step
	}
	broadcast := res != nil && res.Tx != nil && res.Tx.TxHash != ""
	if broadcast {
		entry.TxHashes = append(entry.TxHashes, res.Tx.TxHash)
	}
	switch {
	case err != nil && broadcast && !errors.Is(err, chain.ErrTxReverted):
		entry.Status = types.EntryUnconfirmed
		entry.Message = err.Error()
	case err != nil:
		entry.Status = types.EntryFailed
		entry.Message = err.Error()
	case res == nil:
	case res.DryRun:
		entry.Status = types.EntryDryRun
	case res.MultisigTxID != nil:
		entry.Status = types.EntrySubmitted
		entry.MultisigTxID = res.MultisigTxID
	default:
		entry.Status = types.EntryCompleted
		entry.Message = ""
	}
}
