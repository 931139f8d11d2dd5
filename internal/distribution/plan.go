package distribution

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/DistributedCollective/sovryn-ops/internal/formulas"
	"github.com/DistributedCollective/sovryn-ops/internal/types"
	"github.com/DistributedCollective/sovryn-ops/internal/utils"
)

var (
	ErrInsufficientBalance = errors.New("sender balance does not cover the distribution")
	ErrInvalidTerms        = errors.New("invalid vesting terms")
)

// Plan is a parsed distribution file.
type Plan struct {
	Kind     types.DistributionKind
	Rows     []types.DistributionRow
	Total    *big.Int
	Decimals int
	CSVHash  string
}

// NewPlan parses raw and fingerprints it so an interrupted run can be resumed.
func NewPlan(kind types.DistributionKind, raw []byte, decimals int) (*Plan, error) {
	rows, err := ParseFile(raw, kind, decimals)
	if err != nil {
		return nil, err
	}
	plan := &Plan{
		Kind:     kind,
		Rows:     rows,
		Total:    Sum(rows),
		Decimals: decimals,
		CSVHash:  crypto.Keccak256Hash(raw).Hex(),
	}
	if kind == types.DistributionVesting {
		if err := plan.validateTerms(); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

// TotalText is Total in token units.
func (p *Plan) TotalText() string {
	s, err := utils.FormatTokenAmount(p.Total, p.Decimals)
	if err != nil {
		return p.Total.String()
	}
	return s
}

// Validate fails when balance cannot cover the whole plan.
func (p *Plan) Validate(balance *big.Int) error {
	return requireBalance(p.Total, balance)
}

func requireBalance(need, balance *big.Int) error {
	if balance == nil {
		balance = new(big.Int)
	}
	if balance.Cmp(need) < 0 {
		return fmt.Errorf("%w: need %s, have %s", ErrInsufficientBalance, need, balance)
	}
	return nil
}

// Sum adds row amounts.
func Sum(rows []types.DistributionRow) *big.Int {
	total := new(big.Int)
	for _, row := range rows {
		total.Add(total, row.Amount)
	}
	return total
}

// Remaining sums the rows not listed in done.
func (p *Plan) Remaining(done map[int]bool) *big.Int {
	var rows []types.DistributionRow
	for _, row := range p.Rows {
		if !done[row.Line] {
			rows = append(rows, row)
		}
	}
	return Sum(rows)
}

func (p *Plan) validateTerms() error {
	var errs []error
	const maxWeeks = formulas.MaxStakingDuration / formulas.SecondsPerWeek
	for _, row := range p.Rows {
		switch {
		case row.DurationWeeks == 0 || row.CliffWeeks > row.DurationWeeks:
			errs = append(errs, fmt.Errorf("line %d: %w: cliff %d weeks, duration %d weeks", row.Line, ErrInvalidTerms, row.CliffWeeks, row.DurationWeeks))
		case row.DurationWeeks > maxWeeks:
			errs = append(errs, fmt.Errorf("line %d: %w: duration %d weeks exceeds the staking maximum of %d", row.Line, ErrInvalidTerms, row.DurationWeeks, maxWeeks))
		case row.CliffWeeks%2 != 0 || row.DurationWeeks%2 != 0:
			errs = append(errs, fmt.Errorf("line %d: %w: cliff and duration must be an even number of weeks", row.Line, ErrInvalidTerms))
		}
	}
	return errors.Join(errs...)
}
