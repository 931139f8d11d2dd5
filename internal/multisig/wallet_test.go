package multisig

import (
	"context"
	"crypto/ecdsa"
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
	"github.com/DistributedCollective/sovryn-ops/internal/multisig/multisigtest"
	"github.com/DistributedCollective/sovryn-ops/internal/types"
)

type memoryRecorder struct {
	mu          sync.Mutex
	submissions []types.Submission
	updates     map[uint64]int
	executed    map[uint64]bool
}

func newMemoryRecorder() *memoryRecorder {
	return &memoryRecorder{updates: map[uint64]int{}, executed: map[uint64]bool{}}
}

func (m *memoryRecorder) RecordSubmission(_ context.Context, sub types.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submissions = append(m.submissions, sub)
	return nil
}

func (m *memoryRecorder) UpdateSubmissionStatus(_ context.Context, _ common.Address, txID uint64, confirmations int, executed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates[txID] = confirmations
	m.executed[txID] = executed
	return nil
}

type fixture struct {
	backend *chaintest.Backend
	fake    *multisigtest.Wallet
	keys    []*ecdsa.PrivateKey
	owners  []common.Address
	target  *contracts.Contract
}

func newFixture(t *testing.T, required uint64) *fixture {
	t.Helper()
	f := &fixture{backend: chaintest.NewBackend(31)}
	for i := 0; i < 3; i++ {
		key, addr := chaintest.NewKey()
		f.keys = append(f.keys, key)
		f.owners = append(f.owners, addr)
	}
	f.fake = multisigtest.Install(f.backend, chaintest.Address("multisig"), required, f.owners...)
	f.target = contracts.New("sovrynProtocol", chaintest.Address("protocol"), contracts.Protocol)
	return f
}

func (f *fixture) wallet(t *testing.T, key *ecdsa.PrivateKey) *Wallet {
	t.Helper()
	opts := chain.Options{
		ChainID:         31,
		DefaultGasLimit: 6_000_000,
		GasAdjustment:   1.3,
		GasBuffer:       10_000,
		ReceiptTimeout:  time.Second,
		PollInterval:    5 * time.Millisecond,
	}
	client, err := chain.NewSigningClient(context.Background(), f.backend, key, opts)
	require.NoError(t, err)
	return NewWallet(f.fake.Address, client, client, "testnet")
}

func TestSubmitRecordsTransactionID(t *testing.T) {
	f := newFixture(t, 2)
	rec := newMemoryRecorder()
	w := f.wallet(t, f.keys[0]).WithRecorder(rec)

	sub, err := w.SubmitCall(context.Background(), f.target, "setTradingFeePercent", big.NewInt(15e16))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), sub.TxID)
	assert.False(t, sub.Executed)
	assert.Equal(t, 1, sub.Confirmations)
	assert.Equal(t, "setTradingFeePercent", sub.Method)
	assert.Equal(t, f.owners[0], sub.Submitter)

	second, err := SendWithMultisig(context.Background(), w, f.target.Address, []byte{0xde, 0xad, 0xbe, 0xef}, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), second.TxID)

	require.Len(t, rec.submissions, 2)
	assert.Equal(t, "testnet", rec.submissions[0].Network)

	stored := f.fake.Tx(0)
	require.NotNil(t, stored)
	assert.Equal(t, f.target.Address, stored.Destination)
	assert.Equal(t, []common.Address{f.owners[0]}, stored.Confirmers)
}

func TestSubmitRejectsNonOwner(t *testing.T) {
	f := newFixture(t, 2)
	outsider, _ := chaintest.NewKey()
	w := f.wallet(t, outsider)

	_, err := w.Submit(context.Background(), f.target.Address, nil, []byte{1, 2, 3, 4}, "")
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.Equal(t, 0, f.fake.Count())
}

func TestSubmitExecutesWhenThresholdIsOne(t *testing.T) {
	f := newFixture(t, 1)
	w := f.wallet(t, f.keys[0])

	sub, err := w.SubmitCall(context.Background(), f.target, "togglePaused", true)
	require.NoError(t, err)
	assert.True(t, sub.Executed)
}

func TestConfirmFlow(t *testing.T) {
	f := newFixture(t, 2)
	rec := newMemoryRecorder()
	submitter := f.wallet(t, f.keys[0])
	confirmer := f.wallet(t, f.keys[1]).WithRecorder(rec)
	ctx := context.Background()

	sub, err := submitter.SubmitCall(ctx, f.target, "setLendingFeePercent", new(big.Int).Mul(big.NewInt(10), big.NewInt(1e18)))
	require.NoError(t, err)

	_, err = submitter.Confirm(ctx, sub.TxID)
	assert.ErrorIs(t, err, ErrAlreadyConfirmed)

	pending, err := confirmer.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint64{sub.TxID}, pending)

	_, err = confirmer.Confirm(ctx, sub.TxID)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.updates[sub.TxID])
	assert.True(t, rec.executed[sub.TxID])

	status, err := confirmer.Status(ctx, sub.TxID)
	require.NoError(t, err)
	assert.True(t, status.Executed)
	assert.Equal(t, uint64(2), status.Required)
	assert.Len(t, status.Confirmations, 2)

	_, err = f.wallet(t, f.keys[2]).Confirm(ctx, sub.TxID)
	assert.ErrorIs(t, err, ErrAlreadyExecuted)

	pending, err = confirmer.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRevoke(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	w := f.wallet(t, f.keys[0])
	other := f.wallet(t, f.keys[1])

	sub, err := w.SubmitCall(ctx, f.target, "togglePaused", false)
	require.NoError(t, err)

	_, err = other.Revoke(ctx, sub.TxID)
	assert.ErrorIs(t, err, ErrNotConfirmed)

	_, err = w.Revoke(ctx, sub.TxID)
	require.NoError(t, err)
	assert.Empty(t, f.fake.Tx(sub.TxID).Confirmers)
}

func TestExecuteAfterFailedExecution(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	f.fake.FailExecution = true

	sub, err := f.wallet(t, f.keys[0]).SubmitCall(ctx, f.target, "togglePaused", true)
	require.NoError(t, err)

	second := f.wallet(t, f.keys[1])
	_, err = second.Confirm(ctx, sub.TxID)
	assert.ErrorIs(t, err, ErrExecutionFailed)

	f.fake.FailExecution = false
	_, err = second.Execute(ctx, sub.TxID)
	require.NoError(t, err)
	assert.True(t, f.fake.Tx(sub.TxID).Executed)
}

func TestExecuteNeedsConfirmations(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	w := f.wallet(t, f.keys[0])

	sub, err := w.SubmitCall(ctx, f.target, "togglePaused", true)
	require.NoError(t, err)

	_, err = w.Execute(ctx, sub.TxID)
	assert.ErrorIs(t, err, ErrInsufficientConfirmations)
}

func TestStatusUnknownTransaction(t *testing.T) {
	f := newFixture(t, 2)
	_, err := f.wallet(t, f.keys[0]).Status(context.Background(), 42)
	assert.ErrorIs(t, err, ErrUnknownTransaction)
}

func TestReadOnlyWalletCannotSubmit(t *testing.T) {
	f := newFixture(t, 2)
	w := NewWallet(f.fake.Address, chain.NewReader(f.backend), nil, "testnet")

	owners, err := w.Owners(context.Background())
	require.NoError(t, err)
	assert.Equal(t, f.owners, owners)

	_, err = w.Submit(context.Background(), f.target.Address, nil, nil, "")
	assert.ErrorIs(t, err, ErrNoSigner)
}
