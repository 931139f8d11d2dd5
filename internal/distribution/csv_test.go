package distribution

import (
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DistributedCollective/sovryn-ops/internal/chain/chaintest"
	"github.com/DistributedCollective/sovryn-ops/internal/types"
)

var (
	alice = chaintest.Address("alice")
	bob   = chaintest.Address("bob")
	carol = chaintest.Address("carol")
)

func TestParseAirdrop(t *testing.T) {
	raw := fmt.Sprintf("address,amount\n# first batch\n%s,100\n\n%s, 2.5\n", alice.Hex(), bob.Hex())

	rows, err := ParseFile([]byte(raw), types.DistributionAirdrop, 18)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 3, rows[0].Line)
	assert.Equal(t, alice, rows[0].Address)
	assert.Equal(t, "100000000000000000000", rows[0].Amount.String())

	assert.Equal(t, 5, rows[1].Line)
	assert.Equal(t, "2.5", rows[1].AmountText)
	assert.Equal(t, big.NewInt(2_500_000_000_000_000_000), rows[1].Amount)
}

func TestParseReportsEveryBadLine(t *testing.T) {
	raw := strings.Join([]string{
		alice.Hex() + ",10",
		"0xnothex,10",
		bob.Hex() + ",-1",
		alice.Hex() + ",5",
		carol.Hex() + ",1.0000001",
	}, "\n")

	_, err := ParseFile([]byte(raw), types.DistributionAirdrop, 6)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRow)
	assert.ErrorIs(t, err, ErrDuplicateAddress)
	msg := err.Error()
	for _, line := range []string{"line 2", "line 3", "line 4", "line 5"} {
		assert.Contains(t, msg, line)
	}
	assert.NotContains(t, msg, "line 1:")
}

func TestParseVesting(t *testing.T) {
	raw := fmt.Sprintf("%s,1000,4,52,team\n%s,500,0,26\n%s,1,2,2,Regular\n", alice.Hex(), bob.Hex(), carol.Hex())

	rows, err := ParseFile([]byte(raw), types.DistributionVesting, 18)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, types.VestingTeam, rows[0].Kind)
	assert.Equal(t, uint64(4), rows[0].CliffWeeks)
	assert.Equal(t, uint64(52), rows[0].DurationWeeks)
	assert.Equal(t, types.VestingRegular, rows[1].Kind)
	assert.Equal(t, types.VestingRegular, rows[2].Kind)

	_, err = ParseFile([]byte(alice.Hex()+",1,4,52,advisor\n"), types.DistributionVesting, 18)
	assert.ErrorIs(t, err, ErrInvalidRow)

	_, err = ParseFile([]byte(alice.Hex()+",1\n"), types.DistributionVesting, 18)
	assert.ErrorIs(t, err, ErrInvalidRow)
}

func TestParseEmpty(t *testing.T) {
	_, err := ParseFile([]byte("address,amount\n# nothing yet\n"), types.DistributionAirdrop, 18)
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestPlan(t *testing.T) {
	raw := []byte(fmt.Sprintf("%s,100\n%s,50\n", alice.Hex(), bob.Hex()))
	plan, err := NewPlan(types.DistributionAirdrop, raw, 18)
	require.NoError(t, err)

	assert.Equal(t, "150", plan.TotalText())
	assert.Len(t, plan.CSVHash, 66)

	again, err := NewPlan(types.DistributionAirdrop, raw, 18)
	require.NoError(t, err)
	assert.Equal(t, plan.CSVHash, again.CSVHash)

	assert.ErrorIs(t, plan.Validate(ether(149)), ErrInsufficientBalance)
	assert.NoError(t, plan.Validate(ether(150)))
	assert.ErrorIs(t, plan.Validate(nil), ErrInsufficientBalance)

	assert.Equal(t, ether(50), plan.Remaining(map[int]bool{1: true}))
}

func TestPlanRejectsBadVestingTerms(t *testing.T) {
	raw := fmt.Sprintf("%s,1,60,52\n%s,1,4,200\n%s,1,3,52\n", alice.Hex(), bob.Hex(), carol.Hex())
	_, err := NewPlan(types.DistributionVesting, []byte(raw), 18)
	require.ErrorIs(t, err, ErrInvalidTerms)
	for _, line := range []string{"line 1", "line 2", "line 3"} {
		assert.Contains(t, err.Error(), line)
	}
}
