/*

MultiSigWallet helpers. Calls to contracts owned by the protocol multisig are not
sent directly: the encoded call is submitted with submitTransaction, other owners
confirm it, and the wallet executes it once the threshold is met.

*/

package multisig

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/DistributedCollective/sovryn-ops/internal/chain"
	"github.com/DistributedCollective/sovryn-ops/internal/contracts"
	"github.com/DistributedCollective/sovryn-ops/internal/logger"
	"github.com/DistributedCollective/sovryn-ops/internal/metrics"
	"github.com/DistributedCollective/sovryn-ops/internal/types"
)

// Error definitions for zero-tolerance error handling
var (
	ErrNoSigner                  = errors.New("multisig operation requires a signing key")
	ErrNotOwner                  = errors.New("sender is not a multisig owner")
	ErrAlreadyExecuted           = errors.New("multisig transaction already executed")
	ErrAlreadyConfirmed          = errors.New("multisig transaction already confirmed by sender")
	ErrNotConfirmed              = errors.New("multisig transaction not confirmed by sender")
	ErrInsufficientConfirmations = errors.New("multisig transaction does not have enough confirmations")
	ErrExecutionFailed           = errors.New("multisig transaction execution failed")
	ErrUnknownTransaction        = errors.New("multisig transaction does not exist")
	ErrSubmissionEventMissing    = errors.New("submission event not found in receipt")
)

// Recorder persists submissions. state.SubmissionLedger implements it.
type Recorder interface {
	RecordSubmission(ctx context.Context, sub types.Submission) error
	UpdateSubmissionStatus(ctx context.Context, wallet common.Address, txID uint64, confirmations int, executed bool) error
}

// Wallet drives a deployed MultiSigWallet.
type Wallet struct {
	contract *contracts.Contract
	caller   chain.Caller
	sender   chain.Sender
	network  string
	recorder Recorder
	log      zerolog.Logger
}

// NewWallet binds the wallet at address. sender may be nil for read-only use.
func NewWallet(address common.Address, caller chain.Caller, sender chain.Sender, network string) *Wallet {
	return &Wallet{
		contract: contracts.New("multisig", address, contracts.MultiSigWallet),
		caller:   caller,
		sender:   sender,
		network:  network,
		log:      logger.GetForComponent("multisig"),
	}
}

// WithRecorder attaches a ledger that receives every submission and status change.
func (w *Wallet) WithRecorder(r Recorder) *Wallet {
	w.recorder = r
	return w
}

// Address returns the wallet address.
func (w *Wallet) Address() common.Address {
	return w.contract.Address
}

// Owners returns the current owner set.
func (w *Wallet) Owners(ctx context.Context) ([]common.Address, error) {
	values, err := w.contract.Call(ctx, w.caller, "getOwners")
	if err != nil {
		return nil, err
	}
	owners, ok := values[0].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("%w: getOwners returned %T", contracts.ErrUnexpectedType, values[0])
	}
	return owners, nil
}

// Required returns the confirmation threshold.
func (w *Wallet) Required(ctx context.Context) (uint64, error) {
	required, err := w.contract.CallBig(ctx, w.caller, "required")
	if err != nil {
		return 0, err
	}
	return required.Uint64(), nil
}

// IsOwner reports whether account is an owner.
func (w *Wallet) IsOwner(ctx context.Context, account common.Address) (bool, error) {
	return w.contract.CallBool(ctx, w.caller, "isOwner", account)
}

// SendWithMultisig submits data for target through wallet and returns the multisig transaction id.
func SendWithMultisig(ctx context.Context, wallet *Wallet, target common.Address, data []byte, value *big.Int) (*types.Submission, error) {
	return wallet.Submit(ctx, target, value, data, "")
}

// SubmitCall encodes method on c and submits it.
func (w *Wallet) SubmitCall(ctx context.Context, c *contracts.Contract, method string, args ...interface{}) (*types.Submission, error) {
	data, err := c.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	return w.Submit(ctx, c.Address, nil, data, method)
}

// Submit wraps data in submitTransaction. The submitter's confirmation is added by the wallet itself.
func (w *Wallet) Submit(ctx context.Context, target common.Address, value *big.Int, data []byte, method string) (*types.Submission, error) {
	if w.sender == nil {
		return nil, ErrNoSigner
	}
	if value == nil {
		value = new(big.Int)
	}
	if err := w.requireOwner(ctx); err != nil {
		return nil, err
	}

	payload, err := w.contract.Pack("submitTransaction", target, value, data)
	if err != nil {
		return nil, err
	}

	w.log.Info().
		Str("wallet", w.Address().Hex()).
		Str("target", target.Hex()).
		Str("method", method).
		Str("value", value.String()).
		Int("dataBytes", len(data)).
		Msg("Submitting multisig transaction")

	receipt, result, err := w.sender.SendAndWait(ctx, w.Address(), nil, payload)
	if err != nil {
		return nil, fmt.Errorf("submitTransaction: %w", err)
	}

	txID, ok := findTxID(receipt, w.Address(), "Submission")
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSubmissionEventMissing, result.TxHash)
	}
	_, executed := findTxID(receipt, w.Address(), "Execution")
	if _, failed := findTxID(receipt, w.Address(), "ExecutionFailure"); failed {
		w.log.Warn().Uint64("txID", txID).Msg("Submission confirmed but execution failed; execute again once the cause is fixed")
	}

	sub := types.Submission{
		Network:       w.network,
		Wallet:        w.Address(),
		TxID:          txID,
		Target:        target,
		Method:        method,
		DataHex:       hexutil.Encode(data),
		Value:         value,
		SubmitTxHash:  result.TxHash,
		Submitter:     w.sender.From(),
		SubmittedAt:   time.Now().UTC(),
		Confirmations: 1,
		Executed:      executed,
	}

	w.log.Info().
		Uint64("txID", txID).
		Str("txHash", result.TxHash).
		Bool("executed", executed).
		Msg("Multisig transaction submitted")
	metrics.ObserveSubmission(w.network, method)

	if w.recorder != nil {
		if err := w.recorder.RecordSubmission(ctx, sub); err != nil {
			w.log.Error().Err(err).Uint64("txID", txID).Msg("Failed to record submission")
		}
	}
	return &sub, nil
}

// Confirm adds the sender's confirmation to txID.
func (w *Wallet) Confirm(ctx context.Context, txID uint64) (*types.TxResult, error) {
	if w.sender == nil {
		return nil, ErrNoSigner
	}
	if err := w.requireOwner(ctx); err != nil {
		return nil, err
	}
	status, err := w.Status(ctx, txID)
	if err != nil {
		return nil, err
	}
	if status.Executed {
		return nil, fmt.Errorf("%w: %d", ErrAlreadyExecuted, txID)
	}
	if slices.Contains(status.Confirmations, w.sender.From()) {
		return nil, fmt.Errorf("%w: %d", ErrAlreadyConfirmed, txID)
	}

	receipt, result, err := w.send(ctx, "confirmTransaction", txID)
	if err != nil {
		return result, err
	}
	_, executed := findTxID(receipt, w.Address(), "Execution")
	_, failed := findTxID(receipt, w.Address(), "ExecutionFailure")

	w.log.Info().Uint64("txID", txID).Str("txHash", result.TxHash).Bool("executed", executed).Msg("Multisig transaction confirmed")
	w.recordStatus(ctx, txID, len(status.Confirmations)+1, executed)

	if failed {
		return result, fmt.Errorf("%w: %d", ErrExecutionFailed, txID)
	}
	return result, nil
}

// Revoke withdraws the sender's confirmation from txID.
func (w *Wallet) Revoke(ctx context.Context, txID uint64) (*types.TxResult, error) {
	if w.sender == nil {
		return nil, ErrNoSigner
	}
	status, err := w.Status(ctx, txID)
	if err != nil {
		return nil, err
	}
	if status.Executed {
		return nil, fmt.Errorf("%w: %d", ErrAlreadyExecuted, txID)
	}
	if !slices.Contains(status.Confirmations, w.sender.From()) {
		return nil, fmt.Errorf("%w: %d", ErrNotConfirmed, txID)
	}

	_, result, err := w.send(ctx, "revokeConfirmation", txID)
	if err != nil {
		return result, err
	}
	w.log.Info().Uint64("txID", txID).Str("txHash", result.TxHash).Msg("Multisig confirmation revoked")
	w.recordStatus(ctx, txID, len(status.Confirmations)-1, false)
	return result, nil
}

// Execute runs a fully confirmed transaction whose earlier execution attempt failed.
func (w *Wallet) Execute(ctx context.Context, txID uint64) (*types.TxResult, error) {
	if w.sender == nil {
		return nil, ErrNoSigner
	}
	status, err := w.Status(ctx, txID)
	if err != nil {
		return nil, err
	}
	if status.Executed {
		return nil, fmt.Errorf("%w: %d", ErrAlreadyExecuted, txID)
	}
	if !status.Ready() {
		return nil, fmt.Errorf("%w: %d of %d", ErrInsufficientConfirmations, len(status.Confirmations), status.Required)
	}

	receipt, result, err := w.send(ctx, "executeTransaction", txID)
	if err != nil {
		return result, err
	}
	if _, failed := findTxID(receipt, w.Address(), "ExecutionFailure"); failed {
		return result, fmt.Errorf("%w: %d", ErrExecutionFailed, txID)
	}
	w.log.Info().Uint64("txID", txID).Str("txHash", result.TxHash).Msg("Multisig transaction executed")
	w.recordStatus(ctx, txID, len(status.Confirmations), true)
	return result, nil
}

// Status reads a transaction and its confirmations.
func (w *Wallet) Status(ctx context.Context, txID uint64) (*types.MultisigTransaction, error) {
	id := new(big.Int).SetUint64(txID)

	var (
		txValues      []interface{}
		confirmations []common.Address
		required      uint64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		values, err := w.contract.Call(gctx, w.caller, "transactions", id)
		txValues = values
		return err
	})
	g.Go(func() error {
		values, err := w.contract.Call(gctx, w.caller, "getConfirmations", id)
		if err != nil {
			return err
		}
		owners, ok := values[0].([]common.Address)
		if !ok {
			return fmt.Errorf("%w: getConfirmations returned %T", contracts.ErrUnexpectedType, values[0])
		}
		confirmations = owners
		return nil
	})
	g.Go(func() error {
		var err error
		required, err = w.Required(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	destination, err := contracts.AsAddress(txValues, 0)
	if err != nil {
		return nil, err
	}
	value, err := contracts.AsBig(txValues, 1)
	if err != nil {
		return nil, err
	}
	data, _ := txValues[2].([]byte)
	executed, _ := txValues[3].(bool)

	if destination == (common.Address{}) && len(data) == 0 && value.Sign() == 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTransaction, txID)
	}

	return &types.MultisigTransaction{
		ID:            txID,
		Destination:   destination,
		Value:         value,
		Data:          data,
		Executed:      executed,
		Confirmations: confirmations,
		Required:      required,
	}, nil
}

// Pending lists the ids of transactions that have not been executed.
func (w *Wallet) Pending(ctx context.Context) ([]uint64, error) {
	count, err := w.contract.CallBig(ctx, w.caller, "getTransactionCount", true, false)
	if err != nil {
		return nil, err
	}
	if count.Sign() == 0 {
		return nil, nil
	}
	values, err := w.contract.Call(ctx, w.caller, "getTransactionIds", big.NewInt(0), count, true, false)
	if err != nil {
		return nil, err
	}
	raw, ok := values[0].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: getTransactionIds returned %T", contracts.ErrUnexpectedType, values[0])
	}
	ids := make([]uint64, 0, len(raw))
	for _, id := range raw {
		ids = append(ids, id.Uint64())
	}
	return ids, nil
}

// PendingDetails returns the status of every pending transaction.
func (w *Wallet) PendingDetails(ctx context.Context) ([]*types.MultisigTransaction, error) {
	ids, err := w.Pending(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*types.MultisigTransaction, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, id := range ids {
		g.Go(func() error {
			status, err := w.Status(gctx, id)
			if err != nil {
				return err
			}
			out[i] = status
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (w *Wallet) requireOwner(ctx context.Context) error {
	owner, err := w.IsOwner(ctx, w.sender.From())
	if err != nil {
		return err
	}
	if !owner {
		return fmt.Errorf("%w: %s", ErrNotOwner, w.sender.From().Hex())
	}
	return nil
}

func (w *Wallet) send(ctx context.Context, method string, txID uint64) (*gethtypes.Receipt, *types.TxResult, error) {
	data, err := w.contract.Pack(method, new(big.Int).SetUint64(txID))
	if err != nil {
		return nil, nil, err
	}
	receipt, result, err := w.sender.SendAndWait(ctx, w.Address(), nil, data)
	if err != nil {
		return receipt, result, fmt.Errorf("%s(%d): %w", method, txID, err)
	}
	return receipt, result, nil
}

func (w *Wallet) recordStatus(ctx context.Context, txID uint64, confirmations int, executed bool) {
	if w.recorder == nil {
		return
	}
	if err := w.recorder.UpdateSubmissionStatus(ctx, w.Address(), txID, confirmations, executed); err != nil {
		w.log.Error().Err(err).Uint64("txID", txID).Msg("Failed to update submission status")
	}
}

// findTxID returns the transaction id carried by the first `event` log emitted by wallet.
// All wallet events index the id as their last topic.
func findTxID(receipt *gethtypes.Receipt, wallet common.Address, event string) (uint64, bool) {
	if receipt == nil {
		return 0, false
	}
	id := contracts.MultiSigWallet.Events[event].ID
	for _, l := range receipt.Logs {
		if l.Address != wallet || len(l.Topics) < 2 || l.Topics[0] != id {
			continue
		}
		return l.Topics[len(l.Topics)-1].Big().Uint64(), true
	}
	return 0, false
}
