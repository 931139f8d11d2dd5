package verify

import (
	"context"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/DistributedCollective/sovryn-ops/internal/formulas"
	"github.com/DistributedCollective/sovryn-ops/internal/ops"
	"github.com/DistributedCollective/sovryn-ops/internal/types"
)

// LoanTokenChecks recomputes the pool's rates and token price from its own state.
// sampleBorrow, when positive, adds a nextBorrowInterestRate check for that amount.
func LoanTokenChecks(ctx context.Context, lt *ops.LoanToken, params types.ProtocolParameters, sampleBorrow, tolerance *big.Int) ([]types.CheckResult, error) {
	subject := lt.Contract().Name
	info, err := lt.Info(ctx)
	if err != nil {
		return nil, err
	}

	v, err := toU256(
		info.TotalAssetBorrow, info.TotalAssetSupply, info.TotalSupply, info.AvgBorrowInterestRate,
		info.BaseRate, info.RateMultiplier, info.TargetLevel, info.KinkLevel, info.MaxScaleRate,
		params.LendingFeePercent,
	)
	if err != nil {
		return nil, err
	}
	borrow, supply, totalSupply, avgBorrow := v[0], v[1], v[2], v[3]
	curve := formulas.RateParams{BaseRate: v[4], RateMultiplier: v[5], TargetLevel: v[6], KinkLevel: v[7], MaxScaleRate: v[8]}
	lendingFee := v[9]

	var results []types.CheckResult

	if rate, err := formulas.NextBorrowInterestRate(curve, borrow, new(uint256.Int), supply); err != nil {
		results = append(results, failed("borrow_rate", subject, err))
	} else {
		results = append(results, compare("borrow_rate", subject, rate, info.BorrowInterestRate, tolerance))
	}

	if rate, err := formulas.SupplyInterestRate(avgBorrow, borrow, supply, lendingFee); err != nil {
		results = append(results, failed("supply_rate", subject, err))
	} else {
		results = append(results, compare("supply_rate", subject, rate, info.SupplyInterestRate, tolerance))
	}

	if totalSupply.IsZero() {
		results = append(results, types.SkippedCheck("token_price", subject, "no iTokens minted"))
	} else {
		price := formulas.TokenPrice(supply, totalSupply, formulas.WeiPrecision)
		results = append(results, compare("token_price", subject, price, info.TokenPrice, tolerance))
	}

	liquidity := new(big.Int).Sub(info.TotalAssetSupply, info.TotalAssetBorrow)
	if liquidity.Sign() < 0 {
		liquidity.SetInt64(0)
	}
	results = append(results, types.NewCheckResult("market_liquidity", subject, liquidity, info.MarketLiquidity, tolerance))

	if sampleBorrow != nil && sampleBorrow.Sign() > 0 {
		results = append(results, nextBorrowCheck(ctx, lt, curve, borrow, supply, sampleBorrow, tolerance))
	}
	return results, nil
}

func nextBorrowCheck(ctx context.Context, lt *ops.LoanToken, curve formulas.RateParams, borrow, supply *uint256.Int, amount, tolerance *big.Int) types.CheckResult {
	const name = "next_borrow_rate"
	subject := lt.Contract().Name
	actual, err := lt.NextBorrowInterestRate(ctx, amount)
	if err != nil {
		return failed(name, subject, err)
	}
	extra, err := formulas.FromBig(amount)
	if err != nil {
		return failed(name, subject, err)
	}
	expected, err := formulas.NextBorrowInterestRate(curve, borrow, extra, supply)
	if err != nil {
		return failed(name, subject, err)
	}
	return compare(name, subject, expected, actual, tolerance)
}
