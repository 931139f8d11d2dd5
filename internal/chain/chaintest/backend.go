// Package chaintest provides an in-memory chain.Backend for tests.
//
// Contract behaviour is scripted per (address, method): view calls return packed
// outputs, transactions run a handler that may emit logs or revert.
package chaintest

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrRevert is what a scripted handler returns to make the call revert.
var ErrRevert = errors.New("execution reverted")

// CallFunc answers a view call with values matching the method outputs.
type CallFunc func(from common.Address, args []interface{}) ([]interface{}, error)

// TxFunc executes a transaction. Returned logs land in the receipt; an error reverts it.
type TxFunc func(from common.Address, value *big.Int, args []interface{}) ([]*types.Log, error)

type handlerKey struct {
	to       common.Address
	selector [4]byte
}

type callHandler struct {
	method abi.Method
	fn     CallFunc
}

type txHandler struct {
	method abi.Method
	fn     TxFunc
}

// SentTx is a broadcast transaction together with its recovered sender.
type SentTx struct {
	From common.Address
	Tx   *types.Transaction
}

// Backend is a scripted chain.Backend.
type Backend struct {
	mu sync.Mutex

	chainID  *big.Int
	gasPrice *big.Int
	block    uint64

	// GasEstimate is returned by EstimateGas when no error is configured.
	GasEstimate uint64
	EstimateErr error
	SendErr     error
	// ReceiptDelay is the number of TransactionReceipt lookups answered with NotFound first.
	ReceiptDelay int

	nonces   map[common.Address]uint64
	balances map[common.Address]*big.Int
	calls    map[handlerKey]callHandler
	txs      map[handlerKey]txHandler
	receipts map[common.Hash]*types.Receipt
	lookups  map[common.Hash]int
	sent     []SentTx
}

// NewBackend returns a backend reporting chainID.
func NewBackend(chainID uint64) *Backend {
	return &Backend{
		chainID:     new(big.Int).SetUint64(chainID),
		gasPrice:    big.NewInt(60_000_000),
		block:       100,
		GasEstimate: 50_000,
		nonces:      make(map[common.Address]uint64),
		balances:    make(map[common.Address]*big.Int),
		calls:       make(map[handlerKey]callHandler),
		txs:         make(map[handlerKey]txHandler),
		receipts:    make(map[common.Hash]*types.Receipt),
		lookups:     make(map[common.Hash]int),
	}
}

// NewKey returns a fresh signing key and its address.
func NewKey() (*ecdsa.PrivateKey, common.Address) {
	key, err := crypto.GenerateKey()
	if err != nil {
		panic(err)
	}
	return key, crypto.PubkeyToAddress(key.PublicKey)
}

// Address derives a deterministic address from a label.
func Address(label string) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte(label))[12:])
}

// SetNonce sets the pending nonce of account.
func (b *Backend) SetNonce(account common.Address, nonce uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nonces[account] = nonce
}

// SetBalance sets the native balance of account.
func (b *Backend) SetBalance(account common.Address, wei *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[account] = new(big.Int).Set(wei)
}

// HandleCall scripts a view method on the contract at `to`.
func (b *Backend) HandleCall(to common.Address, contractABI abi.ABI, method string, fn CallFunc) {
	m, ok := contractABI.Methods[method]
	if !ok {
		panic(fmt.Sprintf("chaintest: method %s not in ABI", method))
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[keyFor(to, m.ID)] = callHandler{method: m, fn: fn}
}

// Returns scripts a view method with constant outputs.
func (b *Backend) Returns(to common.Address, contractABI abi.ABI, method string, outputs ...interface{}) {
	b.HandleCall(to, contractABI, method, func(common.Address, []interface{}) ([]interface{}, error) {
		return outputs, nil
	})
}

// HandleTx scripts a state-changing method on the contract at `to`.
func (b *Backend) HandleTx(to common.Address, contractABI abi.ABI, method string, fn TxFunc) {
	m, ok := contractABI.Methods[method]
	if !ok {
		panic(fmt.Sprintf("chaintest: method %s not in ABI", method))
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.txs[keyFor(to, m.ID)] = txHandler{method: m, fn: fn}
}

// Sent returns the broadcast transactions in order.
func (b *Backend) Sent() []SentTx {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]SentTx, len(b.sent))
	copy(out, b.sent)
	return out
}

// Receipt returns the stored receipt for hash.
func (b *Backend) Receipt(hash common.Hash) *types.Receipt {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.receipts[hash]
}

// EventLog builds a log for event emitted by contract. Topics after the event id are given as hashes.
func EventLog(contract common.Address, contractABI abi.ABI, event string, topics []common.Hash, data []byte) *types.Log {
	ev, ok := contractABI.Events[event]
	if !ok {
		panic(fmt.Sprintf("chaintest: event %s not in ABI", event))
	}
	return &types.Log{
		Address: contract,
		Topics:  append([]common.Hash{ev.ID}, topics...),
		Data:    data,
	}
}

func keyFor(to common.Address, id []byte) handlerKey {
	var sel [4]byte
	copy(sel[:], id)
	return handlerKey{to: to, selector: sel}
}

func selectorOf(data []byte) ([4]byte, bool) {
	var sel [4]byte
	if len(data) < 4 {
		return sel, false
	}
	copy(sel[:], data[:4])
	return sel, true
}

func (b *Backend) ChainID(context.Context) (*big.Int, error) {
	return new(big.Int).Set(b.chainID), nil
}

func (b *Backend) BlockNumber(context.Context) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.block, nil
}

func (b *Backend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if msg.To == nil {
		return nil, errors.New("chaintest: contract creation not supported")
	}
	sel, ok := selectorOf(msg.Data)
	if !ok {
		return nil, ErrRevert
	}
	b.mu.Lock()
	h, found := b.calls[handlerKey{to: *msg.To, selector: sel}]
	b.mu.Unlock()
	if !found {
		return nil, fmt.Errorf("%w: no handler for %x on %s", ErrRevert, sel, msg.To.Hex())
	}
	args, err := h.method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, fmt.Errorf("chaintest: unpack %s: %w", h.method.Name, err)
	}
	outputs, err := h.fn(msg.From, args)
	if err != nil {
		return nil, err
	}
	return h.method.Outputs.Pack(outputs...)
}

func (b *Backend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.EstimateErr != nil {
		return 0, b.EstimateErr
	}
	return b.GasEstimate, nil
}

func (b *Backend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return new(big.Int).Set(b.gasPrice), nil
}

func (b *Backend) PendingNonceAt(_ context.Context, account common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nonces[account], nil
}

func (b *Backend) BalanceAt(_ context.Context, account common.Address, _ *big.Int) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if bal, ok := b.balances[account]; ok {
		return new(big.Int).Set(bal), nil
	}
	return new(big.Int), nil
}

// SendTransaction records the transaction and mines it immediately into a receipt.
func (b *Backend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	if b.SendErr != nil {
		return b.SendErr
	}
	from, err := types.Sender(types.NewEIP155Signer(b.chainID), tx)
	if err != nil {
		return fmt.Errorf("chaintest: recover sender: %w", err)
	}

	b.mu.Lock()
	if tx.Nonce() != b.nonces[from] {
		b.mu.Unlock()
		return fmt.Errorf("nonce too low: have %d want %d", tx.Nonce(), b.nonces[from])
	}
	b.nonces[from]++
	b.block++
	block := b.block
	var handler *txHandler
	if tx.To() != nil {
		if sel, ok := selectorOf(tx.Data()); ok {
			if h, found := b.txs[handlerKey{to: *tx.To(), selector: sel}]; found {
				handler = &h
			}
		}
	}
	b.sent = append(b.sent, SentTx{From: from, Tx: tx})
	b.mu.Unlock()

	receipt := &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      tx.Hash(),
		GasUsed:     tx.Gas() / 2,
		BlockNumber: new(big.Int).SetUint64(block),
	}
	if handler != nil {
		args, err := handler.method.Inputs.Unpack(tx.Data()[4:])
		if err != nil {
			return fmt.Errorf("chaintest: unpack %s: %w", handler.method.Name, err)
		}
		logs, err := handler.fn(from, tx.Value(), args)
		if err != nil {
			receipt.Status = types.ReceiptStatusFailed
		} else {
			for i, l := range logs {
				l.TxHash = tx.Hash()
				l.Index = uint(i)
				l.BlockNumber = block
			}
			receipt.Logs = logs
		}
	}

	b.mu.Lock()
	b.receipts[tx.Hash()] = receipt
	b.mu.Unlock()
	return nil
}

func (b *Backend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	receipt, ok := b.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	if b.lookups[hash] < b.ReceiptDelay {
		b.lookups[hash]++
		return nil, ethereum.NotFound
	}
	return receipt, nil
}
