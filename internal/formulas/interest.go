package formulas

import (
	"github.com/holiman/uint256"
)

// RateParams is a loan token's demand curve as returned by its public getters.
type RateParams struct {
	BaseRate       *uint256.Int
	RateMultiplier *uint256.Int
	TargetLevel    *uint256.Int
	KinkLevel      *uint256.Int
	MaxScaleRate   *uint256.Int
}

// UtilizationRate is borrow/supply in 1e20 precision; zero when either side is zero.
func UtilizationRate(assetBorrow, assetSupply *uint256.Int) *uint256.Int {
	if assetBorrow.IsZero() || assetSupply.IsZero() {
		return new(uint256.Int)
	}
	var c calc
	out := c.div(c.mul(assetBorrow, WeiPercentPrecision), assetSupply)
	if c.err != nil {
		return new(uint256.Int)
	}
	return out
}

// NextBorrowInterestRate is the annual borrow rate after borrowing newBorrow more.
// Utilization below the target level is treated as the target level. Above the kink
// the rate scales linearly up to MaxScaleRate at full utilization.
func NextBorrowInterestRate(p RateParams, totalBorrow, newBorrow, assetSupply *uint256.Int) (*uint256.Int, error) {
	var c calc
	util := UtilizationRate(c.add(totalBorrow, newBorrow), assetSupply)
	if c.err != nil {
		return nil, c.err
	}
	if util.Lt(p.TargetLevel) {
		util = p.TargetLevel
	}

	if util.Gt(p.KinkLevel) {
		maxRange := c.sub(WeiPercentPrecision, p.KinkLevel)
		util = c.sub(util, p.KinkLevel)
		if util.Gt(maxRange) {
			util = maxRange
		}
		maxRate := c.div(c.mul(c.add(p.RateMultiplier, p.BaseRate), p.KinkLevel), WeiPercentPrecision)
		return c.result(c.add(c.div(c.mul(util, c.sub(p.MaxScaleRate, maxRate)), maxRange), maxRate))
	}

	rate := c.add(c.div(c.mul(util, p.RateMultiplier), WeiPercentPrecision), p.BaseRate)
	maxRate := c.add(p.RateMultiplier, p.BaseRate)
	if c.err != nil {
		return nil, c.err
	}
	switch {
	case rate.Lt(p.BaseRate):
		rate = p.BaseRate
	case rate.Gt(maxRate):
		rate = maxRate
	}
	return rate, nil
}

// SupplyInterestRate is what lenders earn: avgBorrowRate × utilization × (1 − lendingFee).
func SupplyInterestRate(avgBorrowRate, assetBorrow, assetSupply, lendingFeePercent *uint256.Int) (*uint256.Int, error) {
	if assetBorrow.IsZero() || assetSupply.Lt(assetBorrow) {
		return new(uint256.Int), nil
	}
	var c calc
	util := UtilizationRate(assetBorrow, assetSupply)
	return c.result(c.div(c.mul(c.mul(avgBorrowRate, util), c.sub(WeiPercentPrecision, lendingFeePercent)), weiPercentSquared))
}

// TokenPrice is the asset value of one iToken; initialPrice before the first mint.
func TokenPrice(assetSupply, totalTokenSupply, initialPrice *uint256.Int) *uint256.Int {
	if totalTokenSupply.IsZero() {
		return new(uint256.Int).Set(initialPrice)
	}
	var c calc
	price := c.div(c.mul(assetSupply, WeiPrecision), totalTokenSupply)
	if c.err != nil {
		return new(uint256.Int)
	}
	return price
}

// MintAmount is the number of iTokens received for deposit at price.
func MintAmount(deposit, price *uint256.Int) (*uint256.Int, error) {
	var c calc
	return c.result(c.div(c.mul(deposit, WeiPrecision), price))
}

// BurnAmount is the underlying returned for burning tokens at price.
func BurnAmount(tokens, price *uint256.Int) (*uint256.Int, error) {
	var c calc
	return c.result(c.div(c.mul(tokens, price), WeiPrecision))
}
