package ops

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/DistributedCollective/sovryn-ops/internal/contracts"
	"github.com/DistributedCollective/sovryn-ops/internal/types"
)

// LoanToken administers and reads an iToken lending pool.
type LoanToken struct {
	exec     *Executor
	contract *contracts.Contract
}

func NewLoanToken(exec *Executor, name string, address common.Address) *LoanToken {
	return &LoanToken{exec: exec, contract: contracts.New(name, address, contracts.LoanToken)}
}

func (l *LoanToken) Contract() *contracts.Contract {
	return l.contract
}

// Info reads the pool state and interest curve parameters in parallel.
func (l *LoanToken) Info(ctx context.Context) (*types.LoanTokenInfo, error) {
	info := &types.LoanTokenInfo{Address: l.contract.Address}
	reads := []struct {
		method string
		dst    **big.Int
	}{
		{"tokenPrice", &info.TokenPrice},
		{"totalSupply", &info.TotalSupply},
		{"totalAssetSupply", &info.TotalAssetSupply},
		{"totalAssetBorrow", &info.TotalAssetBorrow},
		{"marketLiquidity", &info.MarketLiquidity},
		{"borrowInterestRate", &info.BorrowInterestRate},
		{"supplyInterestRate", &info.SupplyInterestRate},
		{"avgBorrowInterestRate", &info.AvgBorrowInterestRate},
		{"baseRate", &info.BaseRate},
		{"rateMultiplier", &info.RateMultiplier},
		{"lowUtilBaseRate", &info.LowUtilBaseRate},
		{"lowUtilRateMultiplier", &info.LowUtilRateMultiplier},
		{"targetLevel", &info.TargetLevel},
		{"kinkLevel", &info.KinkLevel},
		{"maxScaleRate", &info.MaxScaleRate},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	g.Go(func() error {
		underlying, err := l.contract.CallAddress(gctx, l.exec.Caller(), "loanTokenAddress")
		if err != nil {
			return err
		}
		info.Underlying = underlying
		return nil
	})
	for _, r := range reads {
		g.Go(func() error {
			v, err := l.contract.CallBig(gctx, l.exec.Caller(), r.method)
			if err != nil {
				return err
			}
			*r.dst = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return info, nil
}

func (l *LoanToken) NextBorrowInterestRate(ctx context.Context, borrowAmount *big.Int) (*big.Int, error) {
	return l.contract.CallBig(ctx, l.exec.Caller(), "nextBorrowInterestRate", borrowAmount)
}

func (l *LoanToken) IsPaused(ctx context.Context, funcID string) (bool, error) {
	return l.contract.CallBool(ctx, l.exec.Caller(), "checkPause", funcID)
}

// Mint deposits underlying into the pool. The pool must already be approved to pull amount.
func (l *LoanToken) Mint(ctx context.Context, receiver common.Address, amount *big.Int) (*types.ExecutionResult, error) {
	if err := requirePositive("deposit amount", amount); err != nil {
		return nil, err
	}
	return l.exec.Execute(ctx, l.contract, "mint", receiver, amount)
}

func (l *LoanToken) Burn(ctx context.Context, receiver common.Address, amount *big.Int) (*types.ExecutionResult, error) {
	if err := requirePositive("burn amount", amount); err != nil {
		return nil, err
	}
	return l.exec.Execute(ctx, l.contract, "burn", receiver, amount)
}

func (l *LoanToken) SetLiquidityMiningAddress(ctx context.Context, lm common.Address) (*types.ExecutionResult, error) {
	return l.exec.Execute(ctx, l.contract, "setLiquidityMiningAddress", lm)
}

// SetTransactionLimits caps deposits per asset. A zero limit removes the cap.
func (l *LoanToken) SetTransactionLimits(ctx context.Context, assets []common.Address, limits []*big.Int) (*types.ExecutionResult, error) {
	if len(assets) == 0 || len(assets) != len(limits) {
		return nil, fmt.Errorf("%w: %d assets for %d limits", ErrInvalidArgument, len(assets), len(limits))
	}
	return l.exec.Execute(ctx, l.contract, "setTransactionLimits", assets, limits)
}

// ToggleFunctionPause pauses or unpauses one function, named by its signature ("borrow(...)").
func (l *LoanToken) ToggleFunctionPause(ctx context.Context, funcID string, paused bool) (*types.ExecutionResult, error) {
	if funcID == "" {
		return nil, fmt.Errorf("%w: empty function id", ErrInvalidArgument)
	}
	return l.exec.Execute(ctx, l.contract, "toggleFunctionPause", funcID, paused)
}

// DemandCurve is the argument set of setDemandCurve.
type DemandCurve struct {
	BaseRate              *big.Int
	RateMultiplier        *big.Int
	LowUtilBaseRate       *big.Int
	LowUtilRateMultiplier *big.Int
	TargetLevel           *big.Int
	KinkLevel             *big.Int
	MaxScaleRate          *big.Int
}

func (l *LoanToken) SetDemandCurve(ctx context.Context, c DemandCurve) (*types.ExecutionResult, error) {
	for _, v := range []*big.Int{c.BaseRate, c.RateMultiplier, c.LowUtilBaseRate, c.LowUtilRateMultiplier, c.TargetLevel, c.KinkLevel, c.MaxScaleRate} {
		if v == nil || v.Sign() < 0 {
			return nil, fmt.Errorf("%w: demand curve values must be set and non-negative", ErrInvalidArgument)
		}
	}
	if c.KinkLevel.Cmp(maxFeePercent) > 0 || c.TargetLevel.Cmp(c.KinkLevel) > 0 {
		return nil, fmt.Errorf("%w: need targetLevel <= kinkLevel <= 100%%", ErrInvalidArgument)
	}
	return l.exec.Execute(ctx, l.contract, "setDemandCurve",
		c.BaseRate, c.RateMultiplier, c.LowUtilBaseRate, c.LowUtilRateMultiplier,
		c.TargetLevel, c.KinkLevel, c.MaxScaleRate)
}
