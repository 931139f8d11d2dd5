package formulas

import (
	"github.com/holiman/uint256"
)

// PPMResolution is the denominator of converter fees (parts per million).
const PPMResolution = 1_000_000

// CrossReserveReturn is the target amount for an equal-weight converter before fees.
func CrossReserveReturn(sourceBalance, targetBalance, amount *uint256.Int) (*uint256.Int, error) {
	var c calc
	return c.result(c.div(c.mul(targetBalance, amount), c.add(sourceBalance, amount)))
}

// ConversionFee is the converter's fee on amount.
func ConversionFee(amount *uint256.Int, feePPM uint32) (*uint256.Int, error) {
	var c calc
	return c.result(c.div(c.mul(amount, uint256.NewInt(uint64(feePPM))), uint256.NewInt(PPMResolution)))
}

// TargetAmountAndFee mirrors the converter's targetAmountAndFee for equal reserve weights.
func TargetAmountAndFee(sourceBalance, targetBalance, amount *uint256.Int, feePPM uint32) (target, fee *uint256.Int, err error) {
	gross, err := CrossReserveReturn(sourceBalance, targetBalance, amount)
	if err != nil {
		return nil, nil, err
	}
	fee, err = ConversionFee(gross, feePPM)
	if err != nil {
		return nil, nil, err
	}
	var c calc
	target = c.sub(gross, fee)
	if c.err != nil {
		return nil, nil, c.err
	}
	return target, fee, nil
}
