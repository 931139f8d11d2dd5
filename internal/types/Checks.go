/*

Verification results: an expected value recomputed off-chain next to the value a
live contract returned.

*/

package types

import (
	"math/big"
	"time"
)

type CheckResult struct {
	CheckID   int64     `json:"check_id,omitempty"`
	BatchID   string    `json:"batch_id"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject"` // contract name or loan id
	Expected  *big.Int  `json:"expected"`
	Actual    *big.Int  `json:"actual"`
	Tolerance *big.Int  `json:"tolerance"`
	Passed    bool      `json:"passed"`
	Skipped   bool      `json:"skipped,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewCheckResult compares expected with actual within tolerance.
func NewCheckResult(name, subject string, expected, actual, tolerance *big.Int) CheckResult {
	if tolerance == nil {
		tolerance = new(big.Int)
	}
	diff := new(big.Int).Sub(expected, actual)
	diff.Abs(diff)
	return CheckResult{
		Name:      name,
		Subject:   subject,
		Expected:  new(big.Int).Set(expected),
		Actual:    new(big.Int).Set(actual),
		Tolerance: new(big.Int).Set(tolerance),
		Passed:    diff.Cmp(tolerance) <= 0,
		Timestamp: time.Now(),
	}
}

// SkippedCheck records a check that could not be evaluated.
func SkippedCheck(name, subject, reason string) CheckResult {
	return CheckResult{
		Name:      name,
		Subject:   subject,
		Skipped:   true,
		Passed:    true,
		Message:   reason,
		Timestamp: time.Now(),
	}
}
