/*
This file contains common utility functions for converting between human-readable
token amounts ("1250.5") and on-chain base units.
*/

package utils

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	sdkmath "cosmossdk.io/math"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidPrecision = errors.New("precision is invalid")
	ErrAmountNil        = errors.New("amount is nil")
	ErrAmountNegative   = errors.New("amount is negative")
	ErrPrecisionLoss    = errors.New("amount has more decimals than the token supports")
	ErrConversionFailed = errors.New("conversion failed")
)

// MaxDecimals is the highest token precision the decimal type can represent exactly.
const MaxDecimals = 18

// ParseTokenAmount converts a decimal string into base units for a token with the given decimals.
func ParseTokenAmount(amount string, decimals int) (*big.Int, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return nil, fmt.Errorf("%w: %d (must be between 0 and %d)", ErrInvalidPrecision, decimals, MaxDecimals)
	}
	amount = strings.ReplaceAll(strings.TrimSpace(amount), "_", "")
	if amount == "" {
		return nil, ErrAmountNil
	}

	dec, err := sdkmath.LegacyNewDecFromStr(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrConversionFailed, amount, err)
	}
	if dec.IsNegative() {
		return nil, ErrAmountNegative
	}

	scaled := dec.Mul(sdkmath.LegacyNewDecFromInt(pow10(decimals)))
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("%w: %q with %d decimals", ErrPrecisionLoss, amount, decimals)
	}
	return scaled.TruncateInt().BigInt(), nil
}

// FormatTokenAmount renders base units as a decimal string without trailing zeros.
func FormatTokenAmount(amount *big.Int, decimals int) (string, error) {
	if amount == nil {
		return "", ErrAmountNil
	}
	if decimals < 0 || decimals > MaxDecimals {
		return "", fmt.Errorf("%w: %d (must be between 0 and %d)", ErrInvalidPrecision, decimals, MaxDecimals)
	}

	dec := sdkmath.LegacyNewDecFromBigIntWithPrec(amount, int64(decimals))
	s := dec.String()
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s, nil
}

// ParsePercent converts "0.15" (meaning 0.15%) into the protocol's 1e18 = 1% representation.
func ParsePercent(percent string) (*big.Int, error) {
	return ParseTokenAmount(percent, 18)
}

// FormatPercent is the inverse of ParsePercent.
func FormatPercent(value *big.Int) string {
	s, err := FormatTokenAmount(value, 18)
	if err != nil {
		return "<nil>"
	}
	return s + "%"
}

func pow10(n int) sdkmath.Int {
	return sdkmath.NewIntFromBigInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil))
}
