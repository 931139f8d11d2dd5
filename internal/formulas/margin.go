package formulas

import (
	"github.com/holiman/uint256"
)

const (
	SecondsPerYear = 31536000
	SecondsPerDay  = 86400
	// MaxMarginTradeDuration is the interest prepaid when a margin trade opens (28 days).
	MaxMarginTradeDuration = 2419200
)

var (
	e38 = uint256.MustFromDecimal("100000000000000000000000000000000000000")
	e40 = uint256.MustFromDecimal("10000000000000000000000000000000000000000")
)

// InitialMargin converts a leverage (2e18 = 2x) into the starting margin in 1e20 precision.
func InitialMargin(leverage *uint256.Int) (*uint256.Int, error) {
	var c calc
	return c.result(c.div(e38, leverage))
}

// adjustValue grosses up the principal for the interest deposit taken at open.
func adjustValue(c *calc, rate *uint256.Int, maxDuration uint64, margin *uint256.Int) *uint256.Int {
	if maxDuration == 0 {
		return new(uint256.Int).Set(WeiPercentPrecision)
	}
	v := c.div(c.mul(rate, WeiPercentPrecision), uint256.NewInt(SecondsPerYear))
	v = c.div(c.mul(v, uint256.NewInt(maxDuration)), margin)
	return c.add(v, WeiPercentPrecision)
}

// MarginBorrowAmountAndRate returns what a margin trade of deposit at leverage borrows
// from the pool and the rate it is charged. Loan, collateral and interest token are
// assumed to be the same asset, as in the loan token's own estimate.
func MarginBorrowAmountAndRate(p RateParams, totalBorrow, assetSupply, leverage, deposit *uint256.Int) (borrow, rate *uint256.Int, err error) {
	initialMargin, err := InitialMargin(leverage)
	if err != nil {
		return nil, nil, err
	}

	var c calc
	newBorrow := c.div(c.mul(deposit, WeiPercentPrecision), initialMargin)
	if c.err != nil {
		return nil, nil, c.err
	}
	rate, err = NextBorrowInterestRate(p, totalBorrow, newBorrow, assetSupply)
	if err != nil {
		return nil, nil, err
	}

	adjusted := adjustValue(&c, rate, MaxMarginTradeDuration, initialMargin)
	borrow = c.div(c.div(c.mul(deposit, e40), adjusted), initialMargin)
	if c.err != nil {
		return nil, nil, c.err
	}
	return borrow, rate, nil
}

// CurrentMargin is (collateral value − principal) / principal in 1e20 precision, or zero
// when the position is under water. rate/precision is the collateral-to-loan price.
func CurrentMargin(principal, collateral, rate, precision *uint256.Int) (*uint256.Int, error) {
	var c calc
	collateralValue := c.div(c.mul(collateral, rate), precision)
	if c.err != nil {
		return nil, c.err
	}
	if principal.IsZero() || collateralValue.Lt(principal) {
		return new(uint256.Int), nil
	}
	return c.result(c.div(c.mul(c.sub(collateralValue, principal), WeiPercentPrecision), principal))
}

// InterestOwedPerDay is principal × annual rate / 365.
func InterestOwedPerDay(principal, rate *uint256.Int) (*uint256.Int, error) {
	var c calc
	return c.result(c.div(c.mul(principal, rate), c.mul(uint256.NewInt(365), WeiPercentPrecision)))
}

// InterestForDuration is the interest accrued over seconds at owedPerDay.
func InterestForDuration(owedPerDay *uint256.Int, seconds uint64) (*uint256.Int, error) {
	var c calc
	return c.result(c.div(c.mul(owedPerDay, uint256.NewInt(seconds)), uint256.NewInt(SecondsPerDay)))
}

// TradingFee is the fee on a swapped amount, rounded up.
func TradingFee(amount, tradingFeePercent *uint256.Int) (*uint256.Int, error) {
	return feeCeil(amount, tradingFeePercent)
}

// BorrowingFee is the fee on borrowed principal, rounded up.
func BorrowingFee(amount, borrowingFeePercent *uint256.Int) (*uint256.Int, error) {
	return feeCeil(amount, borrowingFeePercent)
}

// LendingFee is the protocol's cut of interest paid, rounded up.
func LendingFee(interest, lendingFeePercent *uint256.Int) (*uint256.Int, error) {
	return feeCeil(interest, lendingFeePercent)
}

func feeCeil(amount, percent *uint256.Int) (*uint256.Int, error) {
	var c calc
	return c.result(c.divCeil(c.mul(amount, percent), WeiPercentPrecision))
}
