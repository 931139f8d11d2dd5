// Package multisigtest scripts a MultiSigWallet on a chaintest.Backend.
package multisigtest

import (
	"math/big"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/DistributedCollective/sovryn-ops/internal/chain/chaintest"
	"github.com/DistributedCollective/sovryn-ops/internal/contracts"
)

// Tx is a wallet transaction as the fake stores it.
type Tx struct {
	Destination common.Address
	Value       *big.Int
	Data        []byte
	Executed    bool
	Confirmers  []common.Address
}

// Wallet follows the Gnosis MultiSigWallet rules closely enough for the toolkit's tests.
type Wallet struct {
	mu sync.Mutex

	Address  common.Address
	owners   []common.Address
	required uint64
	txs      []*Tx

	// FailExecution makes every execution attempt emit ExecutionFailure.
	FailExecution bool
}

// Install registers a wallet at address on backend.
func Install(backend *chaintest.Backend, address common.Address, required uint64, owners ...common.Address) *Wallet {
	w := &Wallet{Address: address, owners: owners, required: required}
	abi := contracts.MultiSigWallet

	backend.HandleCall(address, abi, "getOwners", func(common.Address, []interface{}) ([]interface{}, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		return []interface{}{slices.Clone(w.owners)}, nil
	})
	backend.HandleCall(address, abi, "required", func(common.Address, []interface{}) ([]interface{}, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		return []interface{}{new(big.Int).SetUint64(w.required)}, nil
	})
	backend.HandleCall(address, abi, "isOwner", func(_ common.Address, args []interface{}) ([]interface{}, error) {
		return []interface{}{w.isOwner(args[0].(common.Address))}, nil
	})
	backend.HandleCall(address, abi, "transactions", func(_ common.Address, args []interface{}) ([]interface{}, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		tx := w.get(args[0].(*big.Int))
		if tx == nil {
			return []interface{}{common.Address{}, new(big.Int), []byte{}, false}, nil
		}
		return []interface{}{tx.Destination, tx.Value, tx.Data, tx.Executed}, nil
	})
	backend.HandleCall(address, abi, "getConfirmations", func(_ common.Address, args []interface{}) ([]interface{}, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		tx := w.get(args[0].(*big.Int))
		if tx == nil {
			return []interface{}{[]common.Address{}}, nil
		}
		return []interface{}{slices.Clone(tx.Confirmers)}, nil
	})
	backend.HandleCall(address, abi, "getConfirmationCount", func(_ common.Address, args []interface{}) ([]interface{}, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		tx := w.get(args[0].(*big.Int))
		if tx == nil {
			return []interface{}{new(big.Int)}, nil
		}
		return []interface{}{big.NewInt(int64(len(tx.Confirmers)))}, nil
	})
	backend.HandleCall(address, abi, "getTransactionCount", func(_ common.Address, args []interface{}) ([]interface{}, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		ids := w.filter(args[0].(bool), args[1].(bool))
		return []interface{}{big.NewInt(int64(len(ids)))}, nil
	})
	backend.HandleCall(address, abi, "getTransactionIds", func(_ common.Address, args []interface{}) ([]interface{}, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		from, to := args[0].(*big.Int).Int64(), args[1].(*big.Int).Int64()
		ids := w.filter(args[2].(bool), args[3].(bool))
		if to > int64(len(ids)) {
			to = int64(len(ids))
		}
		if from > to {
			from = to
		}
		return []interface{}{ids[from:to]}, nil
	})

	backend.HandleTx(address, abi, "submitTransaction", func(from common.Address, _ *big.Int, args []interface{}) ([]*gethtypes.Log, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		if !slices.Contains(w.owners, from) {
			return nil, chaintest.ErrRevert
		}
		id := big.NewInt(int64(len(w.txs)))
		w.txs = append(w.txs, &Tx{
			Destination: args[0].(common.Address),
			Value:       args[1].(*big.Int),
			Data:        args[2].([]byte),
		})
		logs := []*gethtypes.Log{w.event("Submission", id)}
		return append(logs, w.confirm(from, id)...), nil
	})
	backend.HandleTx(address, abi, "confirmTransaction", func(from common.Address, _ *big.Int, args []interface{}) ([]*gethtypes.Log, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		id := args[0].(*big.Int)
		tx := w.get(id)
		if !slices.Contains(w.owners, from) || tx == nil || slices.Contains(tx.Confirmers, from) {
			return nil, chaintest.ErrRevert
		}
		return w.confirm(from, id), nil
	})
	backend.HandleTx(address, abi, "revokeConfirmation", func(from common.Address, _ *big.Int, args []interface{}) ([]*gethtypes.Log, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		id := args[0].(*big.Int)
		tx := w.get(id)
		if tx == nil || tx.Executed || !slices.Contains(tx.Confirmers, from) {
			return nil, chaintest.ErrRevert
		}
		tx.Confirmers = slices.DeleteFunc(tx.Confirmers, func(a common.Address) bool { return a == from })
		return []*gethtypes.Log{w.event("Revocation", id, from)}, nil
	})
	backend.HandleTx(address, abi, "executeTransaction", func(from common.Address, _ *big.Int, args []interface{}) ([]*gethtypes.Log, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		id := args[0].(*big.Int)
		tx := w.get(id)
		if tx == nil || tx.Executed {
			return nil, chaintest.ErrRevert
		}
		return w.execute(id), nil
	})
	return w
}

// Tx returns a copy of transaction id.
func (w *Wallet) Tx(id uint64) *Tx {
	w.mu.Lock()
	defer w.mu.Unlock()
	tx := w.get(new(big.Int).SetUint64(id))
	if tx == nil {
		return nil
	}
	cp := *tx
	cp.Confirmers = slices.Clone(tx.Confirmers)
	return &cp
}

// Count returns the number of submitted transactions.
func (w *Wallet) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.txs)
}

func (w *Wallet) isOwner(addr common.Address) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Contains(w.owners, addr)
}

func (w *Wallet) get(id *big.Int) *Tx {
	if !id.IsInt64() || id.Int64() >= int64(len(w.txs)) {
		return nil
	}
	return w.txs[id.Int64()]
}

func (w *Wallet) filter(pending, executed bool) []*big.Int {
	ids := make([]*big.Int, 0, len(w.txs))
	for i, tx := range w.txs {
		if (pending && !tx.Executed) || (executed && tx.Executed) {
			ids = append(ids, big.NewInt(int64(i)))
		}
	}
	return ids
}

func (w *Wallet) confirm(from common.Address, id *big.Int) []*gethtypes.Log {
	tx := w.get(id)
	tx.Confirmers = append(tx.Confirmers, from)
	logs := []*gethtypes.Log{w.event("Confirmation", id, from)}
	if uint64(len(tx.Confirmers)) >= w.required {
		logs = append(logs, w.execute(id)...)
	}
	return logs
}

func (w *Wallet) execute(id *big.Int) []*gethtypes.Log {
	tx := w.get(id)
	if uint64(len(tx.Confirmers)) < w.required {
		return nil
	}
	if w.FailExecution {
		return []*gethtypes.Log{w.event("ExecutionFailure", id)}
	}
	tx.Executed = true
	return []*gethtypes.Log{w.event("Execution", id)}
}

func (w *Wallet) event(name string, id *big.Int, sender ...common.Address) *gethtypes.Log {
	var topics []common.Hash
	for _, s := range sender {
		topics = append(topics, common.BytesToHash(s.Bytes()))
	}
	topics = append(topics, common.BigToHash(id))
	return chaintest.EventLog(w.Address, contracts.MultiSigWallet, name, topics, nil)
}
