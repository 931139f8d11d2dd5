package formulas

import (
	"github.com/holiman/uint256"
)

// LiquidationMarginBuffer is how far above maintenance a partial liquidation restores the position.
var LiquidationMarginBuffer = Percent(5)

// LiquidationAmounts returns how much principal a liquidator may repay and how much
// collateral they seize in return. collateralToLoanRate is in 1e18 precision.
// A healthy loan (margin above maintenance) or a missing price yields zeros; a loan whose
// margin no longer covers the incentive is liquidated in full.
func LiquidationAmounts(principal, collateral, currentMargin, maintenanceMargin, collateralToLoanRate, incentivePercent *uint256.Int) (maxLiquidatable, maxSeizable *uint256.Int, err error) {
	zero := new(uint256.Int)
	if currentMargin.Gt(maintenanceMargin) || collateralToLoanRate.IsZero() {
		return zero, new(uint256.Int), nil
	}
	if !currentMargin.Gt(incentivePercent) {
		return new(uint256.Int).Set(principal), new(uint256.Int).Set(collateral), nil
	}

	var c calc
	desiredMargin := c.add(maintenanceMargin, LiquidationMarginBuffer)

	maxLiquidatable = c.div(c.mul(c.add(desiredMargin, WeiPercentPrecision), principal), WeiPercentPrecision)
	claimable := c.div(c.mul(collateralToLoanRate, collateral), WeiPrecision)
	if c.err != nil {
		return nil, nil, c.err
	}
	if maxLiquidatable.Lt(claimable) {
		return zero, new(uint256.Int), nil
	}
	maxLiquidatable = c.div(c.mul(c.sub(maxLiquidatable, claimable), WeiPercentPrecision), c.sub(desiredMargin, incentivePercent))
	maxLiquidatable = minU(maxLiquidatable, principal)

	maxSeizable = c.mul(maxLiquidatable, c.add(incentivePercent, WeiPercentPrecision))
	maxSeizable = c.div(c.div(maxSeizable, collateralToLoanRate), uint256.NewInt(100))
	maxSeizable = minU(maxSeizable, collateral)
	if c.err != nil {
		return nil, nil, c.err
	}
	return new(uint256.Int).Set(maxLiquidatable), new(uint256.Int).Set(maxSeizable), nil
}

// NormalizeRate rescales a price-feed rate given with precision to 1e18.
func NormalizeRate(rate, precision *uint256.Int) (*uint256.Int, error) {
	var c calc
	return c.result(c.div(c.mul(rate, WeiPrecision), precision))
}
