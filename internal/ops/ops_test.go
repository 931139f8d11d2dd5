package ops

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DistributedCollective/sovryn-ops/internal/chain"
	"github.com/DistributedCollective/sovryn-ops/internal/chain/chaintest"
	"github.com/DistributedCollective/sovryn-ops/internal/config"
	"github.com/DistributedCollective/sovryn-ops/internal/contracts"
	"github.com/DistributedCollective/sovryn-ops/internal/multisig"
	"github.com/DistributedCollective/sovryn-ops/internal/multisig/multisigtest"
	"github.com/DistributedCollective/sovryn-ops/internal/types"
)

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

type env struct {
	backend *chaintest.Backend
	key     *ecdsa.PrivateKey
	signer  common.Address
	fake    *multisigtest.Wallet
	client  *chain.SigningClient
	exec    *Executor
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{backend: chaintest.NewBackend(31)}
	e.key, e.signer = chaintest.NewKey()
	e.fake = multisigtest.Install(e.backend, chaintest.Address("multisig"), 2, e.signer, chaintest.Address("owner-2"))

	client, err := chain.NewSigningClient(context.Background(), e.backend, e.key, chain.Options{
		ChainID:         31,
		DefaultGasLimit: 6_000_000,
		GasAdjustment:   1.2,
		ReceiptTimeout:  time.Second,
		PollInterval:    5 * time.Millisecond,
	})
	require.NoError(t, err)
	e.client = client
	wallet := multisig.NewWallet(e.fake.Address, client, client, "testnet")
	e.exec = NewExecutor(client, client, wallet)
	return e
}

func (e *env) ownedBy(target, owner common.Address) {
	e.backend.Returns(target, contracts.Ownable, "owner", owner)
}

func TestResolveRoute(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	protocol := chaintest.Address("protocol")
	e.ownedBy(protocol, e.fake.Address)
	token := chaintest.Address("token")
	e.ownedBy(token, e.signer)
	plain := chaintest.Address("no-owner")

	route, err := e.exec.Resolve(ctx, protocol)
	require.NoError(t, err)
	assert.Equal(t, types.RouteMultisig, route)

	route, err = e.exec.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, types.RouteDirect, route)

	route, err = e.exec.Resolve(ctx, plain)
	require.NoError(t, err)
	assert.Equal(t, types.RouteDirect, route)

	forced := NewExecutor(e.client, e.client, e.exec.Wallet()).WithRoute(types.RouteDirect)
	route, err = forced.Resolve(ctx, protocol)
	require.NoError(t, err)
	assert.Equal(t, types.RouteDirect, route)

	noWallet := NewExecutor(e.client, e.client, nil)
	route, err = noWallet.Resolve(ctx, protocol)
	require.NoError(t, err)
	assert.Equal(t, types.RouteDirect, route)

	_, err = noWallet.WithRoute(types.RouteMultisig).Resolve(ctx, protocol)
	assert.ErrorIs(t, err, ErrNoMultisig)

	_, err = NewExecutor(e.client, e.client, nil).WithRoute("carrier-pigeon").Resolve(ctx, protocol)
	assert.ErrorIs(t, err, ErrUnknownRoute)
}

func TestTokenTransferSendsDirectly(t *testing.T) {
	e := newEnv(t)
	addr := chaintest.Address("SOV")
	token := NewToken(e.exec, "SOV", addr)
	recipient := chaintest.Address("alice")

	res, err := token.Transfer(context.Background(), recipient, ether(5))
	require.NoError(t, err)
	assert.Equal(t, types.RouteDirect, res.Route)
	require.NotNil(t, res.Tx)
	assert.True(t, res.Tx.Success)

	sent := e.backend.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, addr, *sent[0].Tx.To())
	want, err := contracts.New("SOV", addr, contracts.ERC20).Pack("transfer", recipient, ether(5))
	require.NoError(t, err)
	assert.Equal(t, want, sent[0].Tx.Data())

	_, err = token.Transfer(context.Background(), recipient, big.NewInt(0))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestTokenReads(t *testing.T) {
	e := newEnv(t)
	addr := chaintest.Address("DoC")
	alice := chaintest.Address("alice")
	e.backend.Returns(addr, contracts.ERC20, "balanceOf", ether(42))
	e.backend.Returns(addr, contracts.ERC20, "decimals", uint8(18))
	e.backend.Returns(addr, contracts.ERC20, "symbol", "DOC")
	e.backend.Returns(addr, contracts.ERC20, "allowance", ether(1))

	token := NewToken(e.exec, "DoC", addr)
	ctx := context.Background()

	bal, err := token.BalanceOf(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, ether(42), bal)

	dec, err := token.Decimals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 18, dec)

	sym, err := token.Symbol(ctx)
	require.NoError(t, err)
	assert.Equal(t, "DOC", sym)

	allowance, err := token.Allowance(ctx, alice, e.signer)
	require.NoError(t, err)
	assert.Equal(t, ether(1), allowance)
}

func TestProtocolSetterGoesThroughMultisig(t *testing.T) {
	e := newEnv(t)
	addr := chaintest.Address("protocol")
	e.ownedBy(addr, e.fake.Address)
	protocol := NewProtocol(e.exec, addr)

	res, err := protocol.SetLendingFeePercent(context.Background(), ether(10))
	require.NoError(t, err)
	assert.Equal(t, types.RouteMultisig, res.Route)
	require.NotNil(t, res.MultisigTxID)
	assert.Equal(t, uint64(0), *res.MultisigTxID)

	stored := e.fake.Tx(0)
	require.NotNil(t, stored)
	assert.Equal(t, addr, stored.Destination)
	assert.False(t, stored.Executed)

	decoded, err := multisig.DecodeCall(contracts.Protocol, stored.Data)
	require.NoError(t, err)
	assert.Equal(t, "setLendingFeePercent", decoded.Method)

	_, err = protocol.SetTradingFeePercent(context.Background(), ether(101))
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, 1, e.fake.Count())
}

func TestDryRunDoesNotSend(t *testing.T) {
	e := newEnv(t)
	addr := chaintest.Address("protocol")
	e.ownedBy(addr, e.fake.Address)
	protocol := NewProtocol(e.exec.WithDryRun(true), addr)

	res, err := protocol.TogglePaused(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Equal(t, types.RouteMultisig, res.Route)
	assert.NotEmpty(t, res.DataHex)
	assert.Empty(t, e.backend.Sent())
	assert.Equal(t, 0, e.fake.Count())
}

func TestReadOnlyExecutorRefusesToSend(t *testing.T) {
	backend := chaintest.NewBackend(31)
	reader := chain.NewReader(backend)
	exec := NewExecutor(reader, nil, nil)

	_, err := NewToken(exec, "SOV", chaintest.Address("SOV")).Approve(context.Background(), chaintest.Address("bob"), ether(1))
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestReadFees(t *testing.T) {
	e := newEnv(t)
	addr := chaintest.Address("protocol")
	e.backend.Returns(addr, contracts.Protocol, "lendingFeePercent", ether(10))
	e.backend.Returns(addr, contracts.Protocol, "tradingFeePercent", big.NewInt(15e16))
	e.backend.Returns(addr, contracts.Protocol, "borrowingFeePercent", big.NewInt(9e16))
	e.backend.Returns(addr, contracts.Protocol, "liquidationIncentivePercent", ether(5))

	params, err := NewProtocol(e.exec, addr).ReadFees(context.Background(), config.DefaultProtocolParameters)
	require.NoError(t, err)
	assert.Equal(t, ether(10), params.LendingFeePercent)
	assert.Equal(t, big.NewInt(15e16), params.TradingFeePercent)
	assert.Equal(t, big.NewInt(9e16), params.BorrowingFeePercent)
	assert.Equal(t, ether(5), params.LiquidationIncentivePercent)
	assert.Equal(t, config.DefaultProtocolParameters.MaintenanceMargin, params.MaintenanceMargin)
}

func TestReadLoan(t *testing.T) {
	e := newEnv(t)
	addr := chaintest.Address("protocol")
	id := common.HexToHash("0x01")
	loanToken, collateral := chaintest.Address("iDOC"), chaintest.Address("WRBTC")
	e.backend.Returns(addr, contracts.Protocol, "getLoan",
		[32]byte(id), loanToken, collateral,
		ether(100), ether(1), big.NewInt(1e16), ether(2),
		ether(20000), ether(50), ether(15), ether(40),
		big.NewInt(2419200), big.NewInt(1_700_000_000), big.NewInt(0), big.NewInt(0))

	loan, err := NewProtocol(e.exec, addr).ReadLoan(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, loan.LoanID)
	assert.Equal(t, loanToken, loan.LoanToken)
	assert.Equal(t, collateral, loan.CollateralToken)
	assert.Equal(t, ether(100), loan.Principal)
	assert.Equal(t, ether(15), loan.MaintenanceMargin)
	assert.Equal(t, ether(40), loan.CurrentMargin)
	assert.Equal(t, big.NewInt(1_700_000_000), loan.EndTimestamp)
}

func TestLoanTokenInfo(t *testing.T) {
	e := newEnv(t)
	addr := chaintest.Address("iDOC")
	underlying := chaintest.Address("DOC")
	values := map[string]*big.Int{
		"tokenPrice":            big.NewInt(1_050_000_000_000_000_000),
		"totalSupply":           ether(1000),
		"totalAssetSupply":      ether(1050),
		"totalAssetBorrow":      ether(500),
		"marketLiquidity":       ether(550),
		"borrowInterestRate":    ether(12),
		"supplyInterestRate":    ether(5),
		"avgBorrowInterestRate": ether(11),
		"baseRate":              ether(1),
		"rateMultiplier":        ether(20),
		"lowUtilBaseRate":       ether(0),
		"lowUtilRateMultiplier": ether(0),
		"targetLevel":           ether(80),
		"kinkLevel":             ether(90),
		"maxScaleRate":          ether(100),
	}
	for method, v := range values {
		e.backend.Returns(addr, contracts.LoanToken, method, v)
	}
	e.backend.Returns(addr, contracts.LoanToken, "loanTokenAddress", underlying)

	info, err := NewLoanToken(e.exec, "iDOC", addr).Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, underlying, info.Underlying)
	assert.Equal(t, ether(1050), info.TotalAssetSupply)
	assert.Equal(t, ether(500), info.TotalAssetBorrow)
	assert.Equal(t, ether(90), info.KinkLevel)
	assert.Equal(t, ether(100), info.MaxScaleRate)
}

func TestLoanTokenArgumentChecks(t *testing.T) {
	e := newEnv(t)
	lt := NewLoanToken(e.exec, "iDOC", chaintest.Address("iDOC"))
	ctx := context.Background()

	_, err := lt.SetTransactionLimits(ctx, []common.Address{chaintest.Address("DOC")}, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = lt.ToggleFunctionPause(ctx, "", true)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = lt.SetDemandCurve(ctx, DemandCurve{
		BaseRate: ether(1), RateMultiplier: ether(20), LowUtilBaseRate: ether(0), LowUtilRateMultiplier: ether(0),
		TargetLevel: ether(95), KinkLevel: ether(90), MaxScaleRate: ether(100),
	})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	res, err := lt.SetTransactionLimits(ctx, []common.Address{chaintest.Address("DOC")}, []*big.Int{ether(1000)})
	require.NoError(t, err)
	assert.Equal(t, "setTransactionLimits", res.Method)
	assert.Len(t, e.backend.Sent(), 1)
}

func TestConverterInfoAndFee(t *testing.T) {
	e := newEnv(t)
	addr := chaintest.Address("converter")
	anchor := chaintest.Address("pool-token")
	rbtc, sov := chaintest.Address("WRBTC"), chaintest.Address("SOV")

	e.backend.Returns(addr, contracts.Converter, "anchor", anchor)
	e.backend.Returns(addr, contracts.Converter, "owner", e.signer)
	e.backend.Returns(addr, contracts.Converter, "converterType", uint16(1))
	e.backend.Returns(addr, contracts.Converter, "conversionFee", uint32(3000))
	e.backend.Returns(addr, contracts.Converter, "maxConversionFee", uint32(10000))
	e.backend.Returns(addr, contracts.Converter, "reserveTokenCount", uint16(2))
	e.backend.HandleCall(addr, contracts.Converter, "reserveTokens", func(_ common.Address, args []interface{}) ([]interface{}, error) {
		if args[0].(*big.Int).Int64() == 0 {
			return []interface{}{rbtc}, nil
		}
		return []interface{}{sov}, nil
	})
	e.backend.HandleCall(addr, contracts.Converter, "reserveBalance", func(_ common.Address, args []interface{}) ([]interface{}, error) {
		if args[0].(common.Address) == rbtc {
			return []interface{}{ether(10)}, nil
		}
		return []interface{}{ether(50000)}, nil
	})
	e.backend.Returns(addr, contracts.Converter, "reserveWeight", uint32(500000))

	conv := NewConverter(e.exec, "SOV/WRBTC", addr)
	info, err := conv.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, anchor, info.Anchor)
	assert.Equal(t, uint16(1), info.ConverterType)
	assert.Equal(t, uint32(3000), info.ConversionFee)
	require.Len(t, info.Reserves, 2)
	assert.Equal(t, rbtc, info.Reserves[0].Token)
	assert.Equal(t, ether(50000), info.Reserves[1].Balance)
	assert.Equal(t, uint32(500000), info.Reserves[1].Weight)

	_, err = conv.SetConversionFee(context.Background(), 20000)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	res, err := conv.SetConversionFee(context.Background(), 2000)
	require.NoError(t, err)
	assert.Equal(t, types.RouteDirect, res.Route)
}

func TestAcceptOwnershipByMultisig(t *testing.T) {
	e := newEnv(t)
	addr := chaintest.Address("converter")
	e.backend.Returns(addr, contracts.Converter, "newOwner", e.fake.Address)
	e.ownedBy(addr, e.signer)

	res, err := NewConverter(e.exec, "conv", addr).AcceptOwnership(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.RouteMultisig, res.Route)
	assert.Equal(t, 1, e.fake.Count())
}

func TestRateByPath(t *testing.T) {
	e := newEnv(t)
	addr := chaintest.Address("swap-network")
	path := []common.Address{chaintest.Address("SOV"), chaintest.Address("pool"), chaintest.Address("WRBTC")}
	e.backend.Returns(addr, contracts.SovrynSwapNetwork, "conversionPath", path)
	e.backend.Returns(addr, contracts.SovrynSwapNetwork, "rateByPath", ether(3))

	network := NewNetwork(e.exec, addr)
	got, err := network.ConversionPath(context.Background(), path[0], path[2])
	require.NoError(t, err)
	assert.Equal(t, path, got)

	rate, err := network.RateByPath(context.Background(), got, ether(1))
	require.NoError(t, err)
	assert.Equal(t, ether(3), rate)

	_, err = network.RateByPath(context.Background(), path[:2], ether(1))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestVestingRegistry(t *testing.T) {
	e := newEnv(t)
	addr := chaintest.Address("vestingRegistry")
	alice := chaintest.Address("alice")
	vestingAddr := chaintest.Address("alice-vesting")
	e.backend.Returns(addr, contracts.VestingRegistry, "getTeamVesting", vestingAddr)

	reg := NewVestingRegistry(e.exec, addr)
	ctx := context.Background()

	res, err := reg.CreateTeamVesting(ctx, alice, ether(1000), 4*604800, 52*604800)
	require.NoError(t, err)
	assert.Equal(t, "createTeamVesting", res.Method)

	got, err := reg.GetTeamVesting(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, vestingAddr, got)

	_, err = reg.CreateVesting(ctx, alice, ether(1000), 52*604800, 4*604800)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = reg.CreateVesting(ctx, alice, ether(1000), 604800, 52*604800)
	assert.ErrorIs(t, err, ErrInvalidArgument, "cliff must be a multiple of two weeks")
	_, err = reg.Create(ctx, "advisor", alice, ether(1000), 0, 52*604800)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = reg.StakeTokens(ctx, common.Address{}, ether(1))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	assert.Len(t, e.backend.Sent(), 1)
}
