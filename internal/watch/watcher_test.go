package watch

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DistributedCollective/sovryn-ops/internal/chain"
	"github.com/DistributedCollective/sovryn-ops/internal/chain/chaintest"
	"github.com/DistributedCollective/sovryn-ops/internal/contracts"
	"github.com/DistributedCollective/sovryn-ops/internal/multisig"
	"github.com/DistributedCollective/sovryn-ops/internal/multisig/multisigtest"
	"github.com/DistributedCollective/sovryn-ops/internal/types"
)

type memoryLedger struct {
	mu   sync.Mutex
	subs map[uint64]*types.Submission
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{subs: map[uint64]*types.Submission{}}
}

func (m *memoryLedger) RecordSubmission(_ context.Context, sub types.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[sub.TxID] = &sub
	return nil
}

func (m *memoryLedger) UpdateSubmissionStatus(_ context.Context, _ common.Address, txID uint64, confirmations int, executed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sub, ok := m.subs[txID]; ok {
		sub.Confirmations, sub.Executed = confirmations, executed
	}
	return nil
}

func (m *memoryLedger) PendingSubmissions(_ context.Context, _ common.Address) ([]types.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.Submission
	for _, sub := range m.subs {
		if !sub.Executed {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (m *memoryLedger) get(txID uint64) types.Submission {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.subs[txID]
}

type harness struct {
	backend *chaintest.Backend
	fake    *multisigtest.Wallet
	keys    []*ecdsa.PrivateKey
	target  *contracts.Contract
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{backend: chaintest.NewBackend(31)}
	var owners []common.Address
	for i := 0; i < 3; i++ {
		key, addr := chaintest.NewKey()
		h.keys = append(h.keys, key)
		owners = append(owners, addr)
	}
	h.fake = multisigtest.Install(h.backend, chaintest.Address("multisig"), 2, owners...)
	h.target = contracts.New("sovrynProtocol", chaintest.Address("protocol"), contracts.Protocol)
	return h
}

func (h *harness) wallet(t *testing.T, key *ecdsa.PrivateKey) *multisig.Wallet {
	t.Helper()
	client, err := chain.NewSigningClient(context.Background(), h.backend, key, chain.Options{
		ChainID:         31,
		DefaultGasLimit: 6_000_000,
		GasAdjustment:   1.3,
		ReceiptTimeout:  time.Second,
		PollInterval:    5 * time.Millisecond,
	})
	require.NoError(t, err)
	return multisig.NewWallet(h.fake.Address, client, client, "testnet")
}

func TestRunCycleReconcilesLedger(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ledger := newMemoryLedger()
	submitter := h.wallet(t, h.keys[0]).WithRecorder(ledger)

	_, err := submitter.SubmitCall(ctx, h.target, "setLendingFeePercent", big.NewInt(1e18))
	require.NoError(t, err)
	_, err = submitter.SubmitCall(ctx, h.target, "togglePaused", true)
	require.NoError(t, err)

	// A second owner confirms tx 1 outside the ledger, which executes it.
	_, err = h.wallet(t, h.keys[1]).Confirm(ctx, 1)
	require.NoError(t, err)
	require.False(t, ledger.get(1).Executed)

	w, err := New(Config{Wallet: submitter, Ledger: ledger})
	require.NoError(t, err)

	report, err := w.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Cycle)
	assert.Equal(t, []uint64{0}, report.Pending)
	assert.Empty(t, report.Ready)
	assert.Equal(t, []uint64{1}, report.Executed)

	assert.True(t, ledger.get(1).Executed)
	assert.Equal(t, 2, ledger.get(1).Confirmations)
	assert.Equal(t, 1, ledger.get(0).Confirmations)

	report, err = w.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Cycle)
	assert.Empty(t, report.Executed)
}

func TestRunCycleFlagsReadyTransactions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	submitter := h.wallet(t, h.keys[0])

	h.fake.FailExecution = true
	_, err := submitter.SubmitCall(ctx, h.target, "togglePaused", true)
	require.NoError(t, err)
	_, err = h.wallet(t, h.keys[1]).Confirm(ctx, 0)
	require.ErrorIs(t, err, multisig.ErrExecutionFailed)

	w, err := New(Config{
		Wallet: submitter,
		NextCycle: func(context.Context) (int, error) {
			return 41, nil
		},
	})
	require.NoError(t, err)

	report, err := w.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 41, report.Cycle)
	assert.Equal(t, []uint64{0}, report.Ready)
	assert.False(t, h.fake.Tx(0).Executed)

	h.fake.FailExecution = false
	executor, err := New(Config{Wallet: submitter, ExecuteReady: true})
	require.NoError(t, err)
	report, err = executor.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0}, report.Ready)
	assert.True(t, h.fake.Tx(0).Executed)
}

func TestRunCycleCounterError(t *testing.T) {
	h := newHarness(t)
	w, err := New(Config{
		Wallet:    h.wallet(t, h.keys[0]),
		NextCycle: func(context.Context) (int, error) { return 0, errors.New("db down") },
	})
	require.NoError(t, err)

	_, err = w.RunCycle(context.Background())
	assert.ErrorContains(t, err, "db down")
}

func TestNewRequiresWallet(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrNoWallet)
}

func TestRunLoopStopsOnCancel(t *testing.T) {
	h := newHarness(t)
	w, err := New(Config{Wallet: h.wallet(t, h.keys[0])})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.RunLoop(ctx, 10*time.Millisecond)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunLoop did not stop")
	}
}
