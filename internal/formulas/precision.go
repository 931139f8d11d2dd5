/*

Package formulas mirrors the integer arithmetic of the protocol contracts so that
live values can be checked against an independent computation. Every function
rounds exactly like the contract it mirrors; SafeMath reverts surface as errors.

*/

package formulas

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// Error definitions for zero-tolerance error handling
var (
	ErrUnderflow      = errors.New("subtraction underflow")
	ErrOverflow       = errors.New("uint256 overflow")
	ErrDivisionByZero = errors.New("division by zero")
)

var (
	// WeiPrecision is the 1e18 scale of token amounts and prices.
	WeiPrecision = uint256.NewInt(1e18)
	// WeiPercentPrecision is the 1e20 scale of percentages (1e18 = 1%).
	WeiPercentPrecision = uint256.MustFromDecimal("100000000000000000000")

	weiPercentSquared = new(uint256.Int).Mul(WeiPercentPrecision, WeiPercentPrecision)
)

// FromBig converts a contract return value into a uint256.
func FromBig(v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return new(uint256.Int), nil
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative value %s", ErrUnderflow, v)
	}
	u, overflow := uint256.FromBig(v)
	if overflow {
		return nil, fmt.Errorf("%w: %s", ErrOverflow, v)
	}
	return u, nil
}

// MustFromBig is FromBig for values known to fit.
func MustFromBig(v *big.Int) *uint256.Int {
	u, err := FromBig(v)
	if err != nil {
		panic(err)
	}
	return u
}

// Percent returns p percent in 1e18 = 1% units.
func Percent(p uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(p), WeiPrecision)
}

// calc chains SafeMath-style operations and keeps the first failure.
type calc struct {
	err error
}

func (c *calc) add(a, b *uint256.Int) *uint256.Int {
	if c.err != nil {
		return new(uint256.Int)
	}
	z, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		c.err = fmt.Errorf("%w: %s + %s", ErrOverflow, a.Dec(), b.Dec())
	}
	return z
}

func (c *calc) sub(a, b *uint256.Int) *uint256.Int {
	if c.err != nil {
		return new(uint256.Int)
	}
	z, underflow := new(uint256.Int).SubOverflow(a, b)
	if underflow {
		c.err = fmt.Errorf("%w: %s - %s", ErrUnderflow, a.Dec(), b.Dec())
	}
	return z
}

func (c *calc) mul(a, b *uint256.Int) *uint256.Int {
	if c.err != nil {
		return new(uint256.Int)
	}
	z, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		c.err = fmt.Errorf("%w: %s * %s", ErrOverflow, a.Dec(), b.Dec())
	}
	return z
}

func (c *calc) div(a, b *uint256.Int) *uint256.Int {
	if c.err != nil {
		return new(uint256.Int)
	}
	if b.IsZero() {
		c.err = ErrDivisionByZero
		return new(uint256.Int)
	}
	return new(uint256.Int).Div(a, b)
}

// divCeil rounds up, matching SafeMath.divCeil.
func (c *calc) divCeil(a, b *uint256.Int) *uint256.Int {
	q := c.div(a, b)
	if c.err != nil {
		return q
	}
	if !new(uint256.Int).Mod(a, b).IsZero() {
		q = c.add(q, uint256.NewInt(1))
	}
	return q
}

func (c *calc) result(v *uint256.Int) (*uint256.Int, error) {
	if c.err != nil {
		return nil, c.err
	}
	return v, nil
}

func minU(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return a
	}
	return b
}
