package utils

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTokenAmount(t *testing.T) {
	tests := []struct {
		in       string
		decimals int
		want     string
	}{
		{"1.5", 18, "1500000000000000000"},
		{"1250", 18, "1250000000000000000000"},
		{"0.000001", 6, "1"},
		{"1_000", 0, "1000"},
		{" 42.10 ", 2, "4210"},
	}
	for _, tt := range tests {
		got, err := ParseTokenAmount(tt.in, tt.decimals)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got.String(), tt.in)
	}
}

func TestParseTokenAmountErrors(t *testing.T) {
	_, err := ParseTokenAmount("0.0000001", 6)
	assert.ErrorIs(t, err, ErrPrecisionLoss)

	_, err = ParseTokenAmount("-1", 18)
	assert.ErrorIs(t, err, ErrAmountNegative)

	_, err = ParseTokenAmount("", 18)
	assert.ErrorIs(t, err, ErrAmountNil)

	_, err = ParseTokenAmount("ten", 18)
	assert.ErrorIs(t, err, ErrConversionFailed)

	_, err = ParseTokenAmount("1", 19)
	assert.ErrorIs(t, err, ErrInvalidPrecision)
}

func TestFormatTokenAmount(t *testing.T) {
	s, err := FormatTokenAmount(big.NewInt(1_500_000_000_000_000_000), 18)
	require.NoError(t, err)
	assert.Equal(t, "1.5", s)

	s, err = FormatTokenAmount(big.NewInt(0), 18)
	require.NoError(t, err)
	assert.Equal(t, "0", s)

	s, err = FormatTokenAmount(big.NewInt(4210), 2)
	require.NoError(t, err)
	assert.Equal(t, "42.1", s)

	s, err = FormatTokenAmount(big.NewInt(7), 0)
	require.NoError(t, err)
	assert.Equal(t, "7", s)
}

func TestPercentRoundTrip(t *testing.T) {
	fee, err := ParsePercent("0.15")
	require.NoError(t, err)
	assert.Equal(t, "150000000000000000", fee.String())
	assert.Equal(t, "0.15%", FormatPercent(fee))
}
