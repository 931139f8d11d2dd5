package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/DistributedCollective/sovryn-ops/internal/types"
)

// Error definitions for zero-tolerance error handling
var (
	ErrTxBuildFailed     = errors.New("transaction build failed")
	ErrTxSignFailed      = errors.New("transaction signing failed")
	ErrTxBroadcastFailed = errors.New("transaction broadcast failed")
	ErrTxReverted        = errors.New("transaction reverted")
	ErrReceiptTimeout    = errors.New("timed out waiting for receipt")
	ErrGasEstimation     = errors.New("gas estimation failed")
)

// nonceTracker hands out consecutive nonces so several sends in one process do not collide.
type nonceTracker struct {
	mu      sync.Mutex
	backend Backend
	account common.Address
	next    uint64
	loaded  bool
}

func newNonceTracker(backend Backend, account common.Address) *nonceTracker {
	return &nonceTracker{backend: backend, account: account}
}

func (n *nonceTracker) acquire(ctx context.Context) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.loaded {
		pending, err := n.backend.PendingNonceAt(ctx, n.account)
		if err != nil {
			return 0, fmt.Errorf("failed to read pending nonce: %w", err)
		}
		n.next = pending
		n.loaded = true
	}
	nonce := n.next
	n.next++
	return nonce, nil
}

// reset forces a refetch after a failed broadcast left a gap.
func (n *nonceTracker) reset() {
	n.mu.Lock()
	n.loaded = false
	n.mu.Unlock()
}

// EstimateGas simulates the call and applies the configured adjustment and buffer.
func (s *SigningClient) EstimateGas(ctx context.Context, to common.Address, value *big.Int, data []byte) (uint64, error) {
	msg := ethereum.CallMsg{From: s.from, To: &to, Value: value, Data: data}
	simulated, err := s.backend.EstimateGas(ctx, msg)
	if err != nil {
		return 0, errors.Join(ErrGasEstimation, err)
	}
	if simulated == 0 {
		return 0, errors.Join(ErrGasEstimation, errors.New("estimated gas is zero"))
	}
	adjusted := uint64(s.opts.GasAdjustment*float64(simulated)) + s.opts.GasBuffer

	s.log.Debug().
		Uint64("simulatedGas", simulated).
		Float64("gasAdjustment", s.opts.GasAdjustment).
		Uint64("finalGas", adjusted).
		Msg("Gas estimation completed")

	return adjusted, nil
}

func (s *SigningClient) gasPrice(ctx context.Context) (*big.Int, error) {
	if s.opts.GasPrice != nil {
		return new(big.Int).Set(s.opts.GasPrice), nil
	}
	price, err := s.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest gas price: %w", err)
	}
	return price, nil
}

// Send signs and broadcasts a call to `to`. It does not wait for the receipt.
func (s *SigningClient) Send(ctx context.Context, to common.Address, value *big.Int, data []byte) (*types.TxResult, error) {
	if value == nil {
		value = new(big.Int)
	}
	if value.Sign() < 0 {
		return nil, errors.Join(ErrTxBuildFailed, errors.New("value cannot be negative"))
	}

	gasLimit, err := s.EstimateGas(ctx, to, value, data)
	if err != nil {
		// A failed estimate usually means the call reverts; sending anyway burns gas.
		if isRevert(err) {
			return nil, errors.Join(ErrTxReverted, err)
		}
		s.log.Warn().Err(err).Uint64("fallbackGas", s.opts.DefaultGasLimit).Msg("Gas estimation failed, using default gas limit")
		gasLimit = s.opts.DefaultGasLimit
	}

	gasPrice, err := s.gasPrice(ctx)
	if err != nil {
		return nil, errors.Join(ErrTxBuildFailed, err)
	}

	nonce, err := s.nonces.acquire(ctx)
	if err != nil {
		return nil, errors.Join(ErrTxBuildFailed, err)
	}

	tx := gethtypes.NewTx(&gethtypes.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       &to,
		Value:    value,
		Data:     data,
	})

	signed, err := gethtypes.SignTx(tx, gethtypes.NewEIP155Signer(s.chainID), s.key)
	if err != nil {
		s.nonces.reset()
		return nil, errors.Join(ErrTxSignFailed, err)
	}

	if err := s.backend.SendTransaction(ctx, signed); err != nil {
		s.nonces.reset()
		s.log.Error().Err(err).Str("to", to.Hex()).Uint64("nonce", nonce).Msg("Broadcast failed")
		return nil, errors.Join(ErrTxBroadcastFailed, err)
	}

	s.log.Info().
		Str("txHash", signed.Hash().Hex()).
		Str("to", to.Hex()).
		Uint64("nonce", nonce).
		Uint64("gas", gasLimit).
		Str("gasPrice", gasPrice.String()).
		Msg("Transaction broadcast")

	return &types.TxResult{
		TxHash:   signed.Hash().Hex(),
		Nonce:    nonce,
		GasLimit: gasLimit,
		GasPrice: gasPrice,
	}, nil
}

// SendAndWait broadcasts and blocks until the transaction is mined.
// A reverted receipt is returned together with ErrTxReverted.
func (s *SigningClient) SendAndWait(ctx context.Context, to common.Address, value *big.Int, data []byte) (*gethtypes.Receipt, *types.TxResult, error) {
	result, err := s.Send(ctx, to, value, data)
	if err != nil {
		return nil, nil, err
	}
	receipt, err := s.WaitReceipt(ctx, common.HexToHash(result.TxHash))
	if receipt != nil {
		result.GasUsed = receipt.GasUsed
		if receipt.BlockNumber != nil {
			result.BlockNumber = receipt.BlockNumber.Uint64()
		}
		result.Success = receipt.Status == gethtypes.ReceiptStatusSuccessful
	}
	if err != nil {
		result.ErrorMessage = err.Error()
		return receipt, result, err
	}
	return receipt, result, nil
}

// WaitReceipt polls for the receipt of hash until it is mined or the receipt timeout passes.
func (s *SigningClient) WaitReceipt(ctx context.Context, hash common.Hash) (*gethtypes.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.ReceiptTimeout)
	defer cancel()

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		receipt, err := s.backend.TransactionReceipt(ctx, hash)
		switch {
		case err == nil && receipt != nil:
			if receipt.Status != gethtypes.ReceiptStatusSuccessful {
				s.log.Error().Str("txHash", hash.Hex()).Msg("Transaction reverted")
				return receipt, fmt.Errorf("%w: %s", ErrTxReverted, hash.Hex())
			}
			s.log.Debug().Str("txHash", hash.Hex()).Uint64("gasUsed", receipt.GasUsed).Msg("Transaction mined")
			return receipt, nil
		case err != nil && !errors.Is(err, ethereum.NotFound):
			s.log.Warn().Err(err).Str("txHash", hash.Hex()).Msg("Receipt lookup failed, retrying")
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrReceiptTimeout, hash.Hex())
		case <-ticker.C:
		}
	}
}

// TxState is the outcome of a broadcast transaction as far as the node knows.
type TxState int

const (
	TxNotFound TxState = iota // pending, dropped or never broadcast
	TxSucceeded
	TxReverted
)

// LookupTx checks the receipt of hash once, without waiting.
func (s *SigningClient) LookupTx(ctx context.Context, hash common.Hash) (TxState, error) {
	receipt, err := s.backend.TransactionReceipt(ctx, hash)
	switch {
	case errors.Is(err, ethereum.NotFound), err == nil && receipt == nil:
		return TxNotFound, nil
	case err != nil:
		return TxNotFound, fmt.Errorf("receipt of %s: %w", hash.Hex(), err)
	case receipt.Status != gethtypes.ReceiptStatusSuccessful:
		return TxReverted, nil
	}
	return TxSucceeded, nil
}

// isRevert recognises node errors for calls that would revert.
func isRevert(err error) bool {
	var dataErr interface{ ErrorData() interface{} }
	if errors.As(err, &dataErr) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "revert")
}
