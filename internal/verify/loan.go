package verify

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/DistributedCollective/sovryn-ops/internal/formulas"
	"github.com/DistributedCollective/sovryn-ops/internal/ops"
	"github.com/DistributedCollective/sovryn-ops/internal/types"
)

// LoanChecks recomputes a live loan's current margin and liquidation amounts from its
// principal, collateral and the price feed rate.
func LoanChecks(ctx context.Context, protocol *ops.Protocol, loanID common.Hash, params types.ProtocolParameters, tolerance *big.Int) ([]types.CheckResult, error) {
	subject := loanID.Hex()
	loan, err := protocol.ReadLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.LoanID == (common.Hash{}) {
		return nil, fmt.Errorf("%w: %s", ErrLoanNotFound, subject)
	}
	if loan.Principal.Sign() == 0 {
		return []types.CheckResult{types.SkippedCheck("current_margin", subject, "loan is closed")}, nil
	}

	feeds, err := protocol.PriceFeeds(ctx)
	if err != nil {
		return nil, err
	}
	rate, precision, err := protocol.QueryRate(ctx, feeds, loan.CollateralToken, loan.LoanToken)
	if err != nil {
		return nil, err
	}
	if precision.Sign() == 0 {
		return []types.CheckResult{types.SkippedCheck("current_margin", subject, "price feed returned zero precision")}, nil
	}

	v, err := toU256(loan.Principal, loan.Collateral, rate, precision, loan.CurrentMargin, loan.MaintenanceMargin, params.LiquidationIncentivePercent)
	if err != nil {
		return nil, err
	}
	principal, collateral, rateU, precisionU, currentMargin, maintenance, incentive := v[0], v[1], v[2], v[3], v[4], v[5], v[6]

	var results []types.CheckResult
	margin, err := formulas.CurrentMargin(principal, collateral, rateU, precisionU)
	if err != nil {
		results = append(results, failed("current_margin", subject, err))
	} else {
		results = append(results, compare("current_margin", subject, margin, loan.CurrentMargin, tolerance))
	}

	normalized, err := formulas.NormalizeRate(rateU, precisionU)
	if err != nil {
		return append(results, failed("max_liquidatable", subject, err)), nil
	}
	// The protocol evaluates liquidation against its own margin reading.
	liquidatable, seizable, err := formulas.LiquidationAmounts(principal, collateral, currentMargin, maintenance, normalized, incentive)
	if err != nil {
		return append(results, failed("max_liquidatable", subject, err)), nil
	}
	results = append(results,
		compare("max_liquidatable", subject, liquidatable, loan.MaxLiquidatable, tolerance),
		compare("max_seizable", subject, seizable, loan.MaxSeizable, tolerance),
	)
	return results, nil
}
