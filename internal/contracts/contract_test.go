package contracts

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DistributedCollective/sovryn-ops/internal/chain"
	"github.com/DistributedCollective/sovryn-ops/internal/chain/chaintest"
	"github.com/DistributedCollective/sovryn-ops/internal/types"
)

func TestEmbeddedABIsExposeExpectedMethods(t *testing.T) {
	cases := []struct {
		contract abi.ABI
		methods  []string
	}{
		{MultiSigWallet, []string{"submitTransaction", "confirmTransaction", "getTransactionIds", "transactions"}},
		{LoanToken, []string{"tokenPrice", "nextBorrowInterestRate", "setDemandCurve", "toggleFunctionPause"}},
		{Protocol, []string{"getLoan", "setLendingFeePercent", "togglePaused"}},
		{Converter, []string{"conversionFee", "setConversionFee", "acceptOwnership"}},
		{VestingRegistry, []string{"createVesting", "createTeamVesting", "getVesting", "stakeTokens"}},
	}
	for _, tc := range cases {
		for _, m := range tc.methods {
			assert.Contains(t, tc.contract.Methods, m)
		}
	}
	assert.Contains(t, MultiSigWallet.Events, "Submission")
	assert.Len(t, Protocol.Methods["getLoan"].Outputs, 15)
}

func TestParseABIAcceptsArtifact(t *testing.T) {
	artifact := `{"contractName":"Token","abi":` + ERC20ABI + `,"bytecode":"0x"}`
	parsed, err := ParseABI([]byte(artifact))
	require.NoError(t, err)
	assert.Contains(t, parsed.Methods, "transfer")

	_, err = ParseABI([]byte(`{"contractName":"Token"}`))
	assert.ErrorIs(t, err, ErrABILoad)

	_, err = ParseABI([]byte("  "))
	assert.ErrorIs(t, err, ErrABILoad)
}

func TestLoadABIFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Staking.json")
	require.NoError(t, os.WriteFile(path, []byte(StakingABI), 0o600))

	parsed, err := LoadABI(path)
	require.NoError(t, err)
	assert.Contains(t, parsed.Methods, "kickoffTS")

	_, err = LoadABI(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, ErrABILoad)
}

func TestContractCall(t *testing.T) {
	backend := chaintest.NewBackend(31)
	token := chaintest.Address("SOV")
	holder := chaintest.Address("holder")
	backend.HandleCall(token, ERC20, "balanceOf", func(_ common.Address, args []interface{}) ([]interface{}, error) {
		if args[0].(common.Address) == holder {
			return []interface{}{big.NewInt(1234)}, nil
		}
		return []interface{}{big.NewInt(0)}, nil
	})
	backend.Returns(token, ERC20, "decimals", uint8(18))

	c := New("SOV", token, ERC20)
	reader := chain.NewReader(backend)

	bal, err := c.CallBig(context.Background(), reader, "balanceOf", holder)
	require.NoError(t, err)
	assert.Equal(t, "1234", bal.String())

	dec, err := c.CallBig(context.Background(), reader, "decimals")
	require.NoError(t, err)
	assert.Equal(t, int64(18), dec.Int64())

	_, err = c.Pack("mint", holder)
	assert.ErrorIs(t, err, ErrUnknownMethod)
}

func TestRegistryResolve(t *testing.T) {
	addr := chaintest.Address("multisig")
	r := NewRegistry(types.ContractBook{Network: "testnet", Addresses: map[string]common.Address{"multisig": addr}})

	got, err := r.Resolve("multisig")
	require.NoError(t, err)
	assert.Equal(t, addr, got)

	raw := "0x00000000000000000000000000000000000000aa"
	got, err = r.Resolve(raw)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(raw), got)

	_, err = r.Handle("iDOC", LoanToken)
	assert.ErrorIs(t, err, types.ErrUnknownContract)
}
