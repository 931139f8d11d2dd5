package verify

import (
	"context"
	"math/big"

	"github.com/DistributedCollective/sovryn-ops/internal/ops"
	"github.com/DistributedCollective/sovryn-ops/internal/types"
)

// ProtocolParameterChecks compares the protocol's fee settings with expected. Fees are
// set by governance, so no tolerance applies.
func ProtocolParameterChecks(ctx context.Context, protocol *ops.Protocol, expected types.ProtocolParameters) ([]types.CheckResult, error) {
	actual, err := protocol.ReadFees(ctx, expected)
	if err != nil {
		return nil, err
	}
	subject := protocol.Contract().Name
	zero := new(big.Int)
	return []types.CheckResult{
		types.NewCheckResult("lending_fee_percent", subject, expected.LendingFeePercent, actual.LendingFeePercent, zero),
		types.NewCheckResult("trading_fee_percent", subject, expected.TradingFeePercent, actual.TradingFeePercent, zero),
		types.NewCheckResult("borrowing_fee_percent", subject, expected.BorrowingFeePercent, actual.BorrowingFeePercent, zero),
		types.NewCheckResult("liquidation_incentive_percent", subject, expected.LiquidationIncentivePercent, actual.LiquidationIncentivePercent, zero),
	}, nil
}
