/*

CSV input for batch distributions.

	airdrop:  address,amount
	vesting:  address,amount,cliff_weeks,duration_weeks[,kind]

Amounts are decimal token units ("1250.5"). A header row is optional, blank lines and
lines starting with # are ignored. kind is "regular" (default) or "team".

*/

package distribution

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/DistributedCollective/sovryn-ops/internal/types"
	"github.com/DistributedCollective/sovryn-ops/internal/utils"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidRow       = errors.New("invalid distribution row")
	ErrDuplicateAddress = errors.New("duplicate address")
	ErrEmptyFile        = errors.New("distribution file has no rows")
)

// ParseRows reads a distribution CSV of the given kind. Every bad row is reported,
// each error carrying its line number.
func ParseRows(r io.Reader, kind types.DistributionKind, decimals int) ([]types.DistributionRow, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var (
		rows []types.DistributionRow
		errs []error
		seen = make(map[common.Address]int)
	)
	for first := true; ; first = false {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Join(ErrInvalidRow, err)
		}
		line, _ := reader.FieldPos(0)

		if first && isHeader(record) {
			continue
		}
		row, err := parseRecord(record, kind, decimals)
		if err != nil {
			errs = append(errs, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		if prev, dup := seen[row.Address]; dup {
			errs = append(errs, fmt.Errorf("line %d: %w %s (first seen on line %d)", line, ErrDuplicateAddress, row.Address.Hex(), prev))
			continue
		}
		seen[row.Address] = line
		row.Line = line
		rows = append(rows, row)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}
	return rows, nil
}

// ParseFile is ParseRows over an in-memory file.
func ParseFile(raw []byte, kind types.DistributionKind, decimals int) ([]types.DistributionRow, error) {
	return ParseRows(bytes.NewReader(raw), kind, decimals)
}

func isHeader(record []string) bool {
	return len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), "address")
}

func parseRecord(record []string, kind types.DistributionKind, decimals int) (types.DistributionRow, error) {
	var row types.DistributionRow
	for i := range record {
		record[i] = strings.TrimSpace(record[i])
	}

	switch kind {
	case types.DistributionAirdrop:
		if len(record) != 2 {
			return row, fmt.Errorf("%w: want 2 columns, got %d", ErrInvalidRow, len(record))
		}
	case types.DistributionVesting:
		if len(record) != 4 && len(record) != 5 {
			return row, fmt.Errorf("%w: want 4 or 5 columns, got %d", ErrInvalidRow, len(record))
		}
	default:
		return row, fmt.Errorf("%w: unknown distribution kind %q", ErrInvalidRow, kind)
	}

	if !common.IsHexAddress(record[0]) {
		return row, fmt.Errorf("%w: bad address %q", ErrInvalidRow, record[0])
	}
	row.Address = common.HexToAddress(record[0])
	if row.Address == (common.Address{}) {
		return row, fmt.Errorf("%w: zero address", ErrInvalidRow)
	}

	amount, err := utils.ParseTokenAmount(record[1], decimals)
	if err != nil {
		return row, errors.Join(ErrInvalidRow, err)
	}
	if amount.Sign() <= 0 {
		return row, fmt.Errorf("%w: amount must be positive", ErrInvalidRow)
	}
	row.Amount = amount
	row.AmountText = record[1]

	if kind == types.DistributionAirdrop {
		return row, nil
	}

	if row.CliffWeeks, err = strconv.ParseUint(record[2], 10, 64); err != nil {
		return row, fmt.Errorf("%w: cliff_weeks %q", ErrInvalidRow, record[2])
	}
	if row.DurationWeeks, err = strconv.ParseUint(record[3], 10, 64); err != nil {
		return row, fmt.Errorf("%w: duration_weeks %q", ErrInvalidRow, record[3])
	}
	row.Kind = types.VestingRegular
	if len(record) == 5 && record[4] != "" {
		switch k := types.VestingKind(strings.ToLower(record[4])); k {
		case types.VestingRegular, types.VestingTeam:
			row.Kind = k
		default:
			return row, fmt.Errorf("%w: kind %q (want regular or team)", ErrInvalidRow, record[4])
		}
	}
	return row, nil
}
