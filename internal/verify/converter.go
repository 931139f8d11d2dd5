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

// ConverterChecks recomputes the return of converting amount of source into target on
// an equal-weight pool and compares it with the converter's own quote and, when a
// network is given, with rateByPath through the pool's anchor.
func ConverterChecks(ctx context.Context, conv *ops.Converter, network *ops.Network, source, target common.Address, amount, tolerance *big.Int) ([]types.CheckResult, error) {
	subject := conv.Contract().Name
	info, err := conv.Info(ctx)
	if err != nil {
		return nil, err
	}

	var src, dst *types.ReserveInfo
	for i := range info.Reserves {
		switch info.Reserves[i].Token {
		case source:
			src = &info.Reserves[i]
		case target:
			dst = &info.Reserves[i]
		}
	}
	if src == nil || dst == nil {
		return nil, fmt.Errorf("%s does not hold both %s and %s", subject, source.Hex(), target.Hex())
	}
	if src.Weight != dst.Weight {
		return []types.CheckResult{types.SkippedCheck("conversion_return", subject,
			fmt.Sprintf("reserve weights differ (%d/%d)", src.Weight, dst.Weight))}, nil
	}

	v, err := toU256(src.Balance, dst.Balance, amount)
	if err != nil {
		return nil, err
	}
	expected, fee, err := formulas.TargetAmountAndFee(v[0], v[1], v[2], info.ConversionFee)
	if err != nil {
		return []types.CheckResult{failed("conversion_return", subject, err)}, nil
	}

	var results []types.CheckResult
	quoted, quotedFee, err := conv.TargetAmountAndFee(ctx, source, target, amount)
	if err != nil {
		results = append(results, failed("conversion_return", subject, err))
	} else {
		results = append(results,
			compare("conversion_return", subject, expected, quoted, tolerance),
			compare("conversion_fee", subject, fee, quotedFee, tolerance),
		)
	}

	if network != nil {
		path := []common.Address{source, info.Anchor, target}
		rate, err := network.RateByPath(ctx, path, amount)
		if err != nil {
			results = append(results, failed("rate_by_path", subject, err))
		} else {
			results = append(results, compare("rate_by_path", subject, expected, rate, tolerance))
		}
	}
	return results, nil
}
