package distribution

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DistributedCollective/sovryn-ops/internal/chain"
	"github.com/DistributedCollective/sovryn-ops/internal/chain/chaintest"
	"github.com/DistributedCollective/sovryn-ops/internal/contracts"
	"github.com/DistributedCollective/sovryn-ops/internal/multisig"
	"github.com/DistributedCollective/sovryn-ops/internal/multisig/multisigtest"
	"github.com/DistributedCollective/sovryn-ops/internal/ops"
	"github.com/DistributedCollective/sovryn-ops/internal/types"
)

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

type memoryStore struct {
	mu      sync.Mutex
	runs    []*types.DistributionRun
	entries []types.DistributionEntry
}

func (m *memoryStore) FindRun(_ context.Context, name, csvHash string) (*types.DistributionRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.runs) - 1; i >= 0; i-- {
		if m.runs[i].Name == name && m.runs[i].CSVHash == csvHash {
			cp := *m.runs[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memoryStore) CreateRun(_ context.Context, run *types.DistributionRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run.RunID = int64(len(m.runs) + 1)
	cp := *run
	m.runs = append(m.runs, &cp)
	return nil
}

func (m *memoryStore) ListEntries(_ context.Context, runID int64) ([]types.DistributionEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.DistributionEntry
	for _, e := range m.entries {
		if e.RunID == runID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryStore) SaveEntry(_ context.Context, entry *types.DistributionEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.EntryID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memoryStore) FinishRun(_ context.Context, run *types.DistributionRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.runs {
		if r.RunID == run.RunID {
			cp := *run
			m.runs[i] = &cp
		}
	}
	return nil
}

type harness struct {
	backend  *chaintest.Backend
	signer   common.Address
	exec     *ops.Executor
	fake     *multisigtest.Wallet
	token    common.Address
	registry common.Address

	mu            sync.Mutex
	transfers     map[common.Address]*big.Int
	vestings      map[common.Address]common.Address
	failTransfers bool
	failStake     bool
}

func newHarness(t *testing.T, balance *big.Int) *harness {
	t.Helper()
	h := &harness{
		backend:   chaintest.NewBackend(31),
		token:     chaintest.Address("SOV"),
		registry:  chaintest.Address("vestingRegistry"),
		transfers: map[common.Address]*big.Int{},
		vestings:  map[common.Address]common.Address{},
	}
	key, signer := chaintest.NewKey()
	h.signer = signer
	h.fake = multisigtest.Install(h.backend, chaintest.Address("multisig"), 2, signer, chaintest.Address("owner-2"))

	h.backend.Returns(h.token, contracts.ERC20, "balanceOf", balance)
	h.backend.HandleTx(h.token, contracts.ERC20, "transfer", func(_ common.Address, _ *big.Int, args []interface{}) ([]*gethtypes.Log, error) {
		to := args[0].(common.Address)
		h.mu.Lock()
		defer h.mu.Unlock()
		if to == chaintest.Address("blocked") || h.failTransfers {
			return nil, chaintest.ErrRevert
		}
		h.transfers[to] = args[1].(*big.Int)
		return nil, nil
	})
	lookup := func(_ common.Address, args []interface{}) ([]interface{}, error) {
		h.mu.Lock()
		defer h.mu.Unlock()
		return []interface{}{h.vestings[args[0].(common.Address)]}, nil
	}
	h.backend.HandleCall(h.registry, contracts.VestingRegistry, "getVesting", lookup)
	h.backend.HandleCall(h.registry, contracts.VestingRegistry, "getTeamVesting", lookup)
	create := func(_ common.Address, _ *big.Int, args []interface{}) ([]*gethtypes.Log, error) {
		h.mu.Lock()
		defer h.mu.Unlock()
		owner := args[0].(common.Address)
		h.vestings[owner] = vestingOf(owner)
		return nil, nil
	}
	h.backend.HandleTx(h.registry, contracts.VestingRegistry, "createVesting", create)
	h.backend.HandleTx(h.registry, contracts.VestingRegistry, "createTeamVesting", create)
	for _, holder := range []common.Address{alice, bob, carol} {
		h.backend.HandleTx(vestingOf(holder), contracts.Vesting, "stakeTokens", func(common.Address, *big.Int, []interface{}) ([]*gethtypes.Log, error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			if h.failStake {
				return nil, chaintest.ErrRevert
			}
			return nil, nil
		})
	}

	client, err := chain.NewSigningClient(context.Background(), h.backend, key, chain.Options{
		ChainID:         31,
		DefaultGasLimit: 6_000_000,
		GasAdjustment:   1.2,
		ReceiptTimeout:  250 * time.Millisecond,
		PollInterval:    5 * time.Millisecond,
	})
	require.NoError(t, err)
	h.exec = ops.NewExecutor(client, client, multisig.NewWallet(h.fake.Address, client, client, "testnet"))
	return h
}

func vestingOf(holder common.Address) common.Address {
	return chaintest.Address("vesting-" + holder.Hex())
}

func (h *harness) failing(transfers, stake bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failTransfers, h.failStake = transfers, stake
}

func (h *harness) createVesting(holder common.Address) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.vestings[holder] = vestingOf(holder)
}

// sentCalls counts broadcast transactions calling method.
func (h *harness) sentCalls(contractABI abi.ABI, method string) int {
	id := contractABI.Methods[method].ID
	n := 0
	for _, s := range h.backend.Sent() {
		if bytes.HasPrefix(s.Tx.Data(), id) {
			n++
		}
	}
	return n
}

func (h *harness) runner(t *testing.T, store Store, viaMultisig bool) *Runner {
	t.Helper()
	r, err := NewRunner(h.exec, store, Options{
		Network:     "testnet",
		Token:       h.token,
		Registry:    h.registry,
		ViaMultisig: viaMultisig,
		RPS:         1000,
		Burst:       10,
	})
	require.NoError(t, err)
	return r
}

func vestingPlan(t *testing.T, lines ...string) *Plan {
	t.Helper()
	raw := ""
	for _, l := range lines {
		raw += l + "\n"
	}
	plan, err := NewPlan(types.DistributionVesting, []byte(raw), 18)
	require.NoError(t, err)
	return plan
}

func airdropPlan(t *testing.T, lines ...string) *Plan {
	t.Helper()
	raw := ""
	for _, l := range lines {
		raw += l + "\n"
	}
	plan, err := NewPlan(types.DistributionAirdrop, []byte(raw), 18)
	require.NoError(t, err)
	return plan
}

func TestAirdropDirect(t *testing.T) {
	h := newHarness(t, ether(1000))
	store := &memoryStore{}
	plan := airdropPlan(t, alice.Hex()+",100", bob.Hex()+",50", carol.Hex()+",0.5")

	report, err := h.runner(t, store, false).Run(context.Background(), "genesis-airdrop", plan)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Run.Completed)
	assert.Equal(t, 0, report.Run.Failed)
	assert.NotEmpty(t, report.Run.RunUUID)
	assert.NotNil(t, report.Run.FinishedAt)

	assert.Equal(t, ether(100), h.transfers[alice])
	assert.Equal(t, ether(50), h.transfers[bob])
	assert.Len(t, h.backend.Sent(), 3)

	require.Len(t, store.entries, 3)
	for _, e := range store.entries {
		assert.Equal(t, types.EntryCompleted, e.Status)
		assert.Len(t, e.TxHashes, 1)
		assert.Equal(t, int64(1), e.RunID)
	}
	assert.NotNil(t, store.runs[0].FinishedAt)
}

func TestAirdropResumesCompletedRows(t *testing.T) {
	h := newHarness(t, ether(1000))
	store := &memoryStore{}
	plan := airdropPlan(t, alice.Hex()+",100", bob.Hex()+",50")

	require.NoError(t, store.CreateRun(context.Background(), &types.DistributionRun{Name: "retry", CSVHash: plan.CSVHash, RunUUID: "previous"}))
	require.NoError(t, store.SaveEntry(context.Background(), &types.DistributionEntry{RunID: 1, Line: 1, Address: alice, Status: types.EntryCompleted}))
	require.NoError(t, store.SaveEntry(context.Background(), &types.DistributionEntry{RunID: 1, Line: 2, Address: bob, Status: types.EntryFailed}))

	report, err := h.runner(t, store, false).Run(context.Background(), "retry", plan)
	require.NoError(t, err)
	assert.Equal(t, "previous", report.Run.RunUUID)
	assert.Equal(t, 1, report.Run.Skipped)
	assert.Equal(t, 1, report.Run.Completed)
	assert.Len(t, h.backend.Sent(), 1)
	assert.NotContains(t, h.transfers, alice)
	assert.Equal(t, ether(50), h.transfers[bob])
}

func TestAirdropDryRun(t *testing.T) {
	h := newHarness(t, ether(1000))
	h.exec.WithDryRun(true)
	store := &memoryStore{}
	plan := airdropPlan(t, alice.Hex()+",100")

	report, err := h.runner(t, store, false).Run(context.Background(), "dry", plan)
	require.NoError(t, err)
	require.Len(t, report.Entries, 1)
	assert.Equal(t, types.EntryDryRun, report.Entries[0].Status)
	assert.True(t, report.Run.DryRun)
	assert.Empty(t, h.backend.Sent())
	assert.Empty(t, store.runs)
}

func TestAirdropInsufficientBalance(t *testing.T) {
	h := newHarness(t, ether(10))
	plan := airdropPlan(t, alice.Hex()+",100")

	_, err := h.runner(t, nil, false).Run(context.Background(), "short", plan)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Empty(t, h.backend.Sent())
}

func TestAirdropRecordsFailures(t *testing.T) {
	h := newHarness(t, ether(1000))
	store := &memoryStore{}
	blocked := chaintest.Address("blocked")
	plan := airdropPlan(t, alice.Hex()+",1", blocked.Hex()+",1", bob.Hex()+",1")

	report, err := h.runner(t, store, false).Run(context.Background(), "partial", plan)
	assert.ErrorIs(t, err, ErrRowsFailed)
	assert.Equal(t, 2, report.Run.Completed)
	assert.Equal(t, 1, report.Run.Failed)
	assert.Equal(t, types.EntryFailed, report.Entries[1].Status)
	assert.Contains(t, report.Entries[1].Message, "reverted")
	assert.Equal(t, ether(1), h.transfers[bob])
}

func TestAirdropViaMultisig(t *testing.T) {
	h := newHarness(t, ether(1000))
	plan := airdropPlan(t, alice.Hex()+",1", bob.Hex()+",2")

	report, err := h.runner(t, nil, true).Run(context.Background(), "treasury", plan)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Run.Submitted)
	require.NotNil(t, report.Entries[1].MultisigTxID)
	assert.Equal(t, uint64(1), *report.Entries[1].MultisigTxID)
	assert.Equal(t, 2, h.fake.Count())
	assert.Empty(t, h.transfers)
}

func TestVestingDirect(t *testing.T) {
	h := newHarness(t, ether(10_000))
	existing := chaintest.Address("bob-existing-vesting")
	h.vestings[bob] = existing

	raw := fmt.Sprintf("%s,1000,4,52,team\n%s,500,0,26\n", alice.Hex(), bob.Hex())
	plan, err := NewPlan(types.DistributionVesting, []byte(raw), 18)
	require.NoError(t, err)

	report, err := h.runner(t, &memoryStore{}, false).Run(context.Background(), "team-vesting", plan)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Run.Completed)

	aliceEntry := report.Entries[0]
	require.NotNil(t, aliceEntry.Vesting)
	assert.Equal(t, vestingOf(alice), *aliceEntry.Vesting)
	assert.Len(t, aliceEntry.TxHashes, 3, "create, approve, stake")

	bobEntry := report.Entries[1]
	assert.Equal(t, existing, *bobEntry.Vesting)
	assert.Len(t, bobEntry.TxHashes, 2, "approve, stake")

	sent := h.backend.Sent()
	require.Len(t, sent, 5)
	decoded, err := multisig.DecodeCall(contracts.VestingRegistry, sent[0].Tx.Data())
	require.NoError(t, err)
	assert.Equal(t, "createTeamVesting", decoded.Method)
	assert.Equal(t, existing, *sent[4].Tx.To())
}

func TestVestingNeedsRegistry(t *testing.T) {
	h := newHarness(t, ether(10))
	r, err := NewRunner(h.exec, nil, Options{Token: h.token})
	require.NoError(t, err)

	plan, err := NewPlan(types.DistributionVesting, []byte(alice.Hex()+",1,0,2\n"), 18)
	require.NoError(t, err)
	_, err = r.Run(context.Background(), "x", plan)
	assert.ErrorIs(t, err, ErrNoRegistry)
}

func TestRunChecksPlanKind(t *testing.T) {
	h := newHarness(t, ether(10))
	r := h.runner(t, nil, false)
	ctx := context.Background()

	airdrop := airdropPlan(t, alice.Hex()+",1")
	_, err := r.RunVesting(ctx, "x", airdrop)
	assert.ErrorIs(t, err, ErrWrongKind)

	vesting, err := NewPlan(types.DistributionVesting, []byte(alice.Hex()+",1,0,2\n"), 18)
	require.NoError(t, err)
	_, err = r.RunAirdrop(ctx, "x", vesting)
	assert.ErrorIs(t, err, ErrWrongKind)
	assert.Empty(t, h.backend.Sent())
}

func TestDryRunPreviewsResume(t *testing.T) {
	h := newHarness(t, ether(1000))
	h.exec.WithDryRun(true)
	store := &memoryStore{}
	plan := airdropPlan(t, alice.Hex()+",100", bob.Hex()+",50")

	require.NoError(t, store.CreateRun(context.Background(), &types.DistributionRun{Name: "preview", CSVHash: plan.CSVHash, RunUUID: "previous"}))
	require.NoError(t, store.SaveEntry(context.Background(), &types.DistributionEntry{RunID: 1, Line: 1, Address: alice, Status: types.EntryCompleted}))

	report, err := h.runner(t, store, false).RunAirdrop(context.Background(), "preview", plan)
	require.NoError(t, err)
	assert.Equal(t, "previous", report.Run.RunUUID)
	assert.True(t, report.Run.DryRun)
	assert.Equal(t, 1, report.Run.Skipped)
	require.Len(t, report.Entries, 1)
	assert.Equal(t, bob, report.Entries[0].Address)
	assert.Equal(t, types.EntryDryRun, report.Entries[0].Status)

	assert.Empty(t, h.backend.Sent())
	assert.Len(t, store.runs, 1)
	assert.Len(t, store.entries, 1)
	assert.Nil(t, store.runs[0].FinishedAt)
}

func TestAirdropResumeUnconfirmed(t *testing.T) {
	tests := []struct {
		name       string
		reverted   bool // the first transfer reverted on chain
		mined      bool // its receipt is visible when resuming
		wantStatus types.EntryStatus
		wantSent   int
		wantErr    bool
	}{
		{name: "mined transfer is not sent again", mined: true, wantStatus: types.EntryCompleted, wantSent: 1},
		{name: "reverted transfer is retried", reverted: true, mined: true, wantStatus: types.EntryCompleted, wantSent: 2},
		{name: "missing receipt stays unconfirmed", wantStatus: types.EntryUnconfirmed, wantSent: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, ether(1000))
			store := &memoryStore{}
			plan := airdropPlan(t, alice.Hex()+",100")
			ctx := context.Background()

			h.backend.ReceiptDelay = 1 << 30
			h.failing(tt.reverted, false)
			report, err := h.runner(t, store, false).RunAirdrop(ctx, "slow-node", plan)
			assert.ErrorIs(t, err, ErrRowsFailed)
			require.Len(t, report.Entries, 1)
			first := report.Entries[0]
			assert.Equal(t, types.EntryUnconfirmed, first.Status)
			assert.Equal(t, "transfer", first.Step)
			require.Len(t, first.TxHashes, 1)

			if tt.mined {
				h.backend.ReceiptDelay = 0
			}
			h.failing(false, false)
			report, err = h.runner(t, store, false).RunAirdrop(ctx, "slow-node", plan)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrRowsFailed)
			} else {
				require.NoError(t, err)
			}
			require.Len(t, report.Entries, 1)
			entry := report.Entries[0]
			assert.Equal(t, tt.wantStatus, entry.Status)
			assert.Equal(t, first.TxHashes[0], entry.TxHashes[0], "earlier hash kept")
			assert.Len(t, h.backend.Sent(), tt.wantSent)
			assert.Equal(t, tt.wantSent, h.sentCalls(contracts.ERC20, "transfer"))
			if tt.wantStatus == types.EntryUnconfirmed {
				assert.Contains(t, entry.Message, "has no receipt")
			}
		})
	}
}

func TestVestingResume(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(h *harness)
		wantFirst types.EntryStatus
		wantStep  string
		wantSent  int // both runs together
	}{
		{
			name:      "stake reverted, vesting reused",
			setup:     func(h *harness) { h.failing(false, true) },
			wantFirst: types.EntryFailed,
			wantStep:  "stake",
			wantSent:  5, // create, approve, stake, then approve, stake
		},
		{
			name:      "creation without receipt",
			setup:     func(h *harness) { h.backend.ReceiptDelay = 1 << 30 },
			wantFirst: types.EntryUnconfirmed,
			wantStep:  "create",
			wantSent:  3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, ether(10_000))
			store := &memoryStore{}
			plan := vestingPlan(t, alice.Hex()+",1000,4,52,team")
			ctx := context.Background()

			tt.setup(h)
			report, err := h.runner(t, store, false).RunVesting(ctx, "team", plan)
			assert.ErrorIs(t, err, ErrRowsFailed)
			require.Len(t, report.Entries, 1)
			assert.Equal(t, tt.wantFirst, report.Entries[0].Status)
			assert.Equal(t, tt.wantStep, report.Entries[0].Step)

			h.failing(false, false)
			h.backend.ReceiptDelay = 0
			report, err = h.runner(t, store, false).RunVesting(ctx, "team", plan)
			require.NoError(t, err)
			require.Len(t, report.Entries, 1)
			entry := report.Entries[0]
			assert.Equal(t, types.EntryCompleted, entry.Status)
			assert.Equal(t, "stake", entry.Step)
			require.NotNil(t, entry.Vesting)
			assert.Equal(t, vestingOf(alice), *entry.Vesting)

			assert.Len(t, h.backend.Sent(), tt.wantSent)
			assert.Equal(t, 1, h.sentCalls(contracts.VestingRegistry, "createTeamVesting"))
			assert.Len(t, entry.TxHashes, tt.wantSent)
		})
	}
}

func TestVestingUnconfirmedStakeNotRepeated(t *testing.T) {
	h := newHarness(t, ether(10_000))
	h.createVesting(alice)
	store := &memoryStore{}
	plan := vestingPlan(t, alice.Hex()+",1000,4,52,team")
	ctx := context.Background()

	mined, err := h.exec.Sender().Send(ctx, vestingOf(alice), nil, nil)
	require.NoError(t, err)
	vesting := vestingOf(alice)
	require.NoError(t, store.CreateRun(ctx, &types.DistributionRun{Name: "team", CSVHash: plan.CSVHash, RunUUID: "previous"}))
	require.NoError(t, store.SaveEntry(ctx, &types.DistributionEntry{
		RunID: 1, Line: 1, Address: alice, Status: types.EntryUnconfirmed, Step: "stake",
		TxHashes: []string{mined.TxHash}, Vesting: &vesting,
	}))

	report, err := h.runner(t, store, false).RunVesting(ctx, "team", plan)
	require.NoError(t, err)
	require.Len(t, report.Entries, 1)
	assert.Equal(t, types.EntryCompleted, report.Entries[0].Status)
	assert.Len(t, h.backend.Sent(), 1, "only the earlier stake")
}

func TestVestingViaMultisigStakesOnceCreated(t *testing.T) {
	h := newHarness(t, ether(10_000))
	store := &memoryStore{}
	plan := vestingPlan(t, alice.Hex()+",1000,4,52,team")
	ctx := context.Background()
	run := func() *Report {
		t.Helper()
		report, err := h.runner(t, store, true).RunVesting(ctx, "treasury-vesting", plan)
		require.NoError(t, err)
		return report
	}

	report := run()
	assert.Equal(t, 1, report.Run.Submitted)
	require.Len(t, report.Entries, 1)
	assert.Equal(t, types.EntryCreatePending, report.Entries[0].Status)
	require.NotNil(t, report.Entries[0].MultisigTxID)
	assert.Equal(t, uint64(0), *report.Entries[0].MultisigTxID)
	assert.Equal(t, 1, h.fake.Count())

	report = run()
	require.Len(t, report.Entries, 1)
	assert.Equal(t, types.EntryCreatePending, report.Entries[0].Status)
	assert.Contains(t, report.Entries[0].Message, "multisig tx 0")
	assert.Equal(t, 1, h.fake.Count(), "creation submitted once")

	// The owners execute the creation.
	h.createVesting(alice)

	report = run()
	require.Len(t, report.Entries, 1)
	entry := report.Entries[0]
	assert.Equal(t, types.EntrySubmitted, entry.Status)
	require.NotNil(t, entry.Vesting)
	assert.Equal(t, vestingOf(alice), *entry.Vesting)
	require.Equal(t, 3, h.fake.Count())
	assert.Equal(t, "execute multisig tx 1 (approve) before 2 (stake)", entry.Message)

	approve := h.fake.Tx(1)
	assert.Equal(t, h.token, approve.Destination)
	decoded, err := multisig.DecodeCall(contracts.ERC20, approve.Data)
	require.NoError(t, err)
	assert.Equal(t, "approve", decoded.Method)

	stake := h.fake.Tx(2)
	assert.Equal(t, vestingOf(alice), stake.Destination)
	decoded, err = multisig.DecodeCall(contracts.Vesting, stake.Data)
	require.NoError(t, err)
	assert.Equal(t, "stakeTokens", decoded.Method)

	report = run()
	assert.Equal(t, 1, report.Run.Skipped)
	assert.Empty(t, report.Entries)
	assert.Equal(t, 3, h.fake.Count())
}
