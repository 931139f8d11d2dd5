package formulas

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

const (
	SecondsPerWeek = 604800
	TwoWeeks       = 2 * SecondsPerWeek
	FourWeeks      = 4 * SecondsPerWeek
	// MaxStakingDuration is the longest lock the staking contract accepts.
	MaxStakingDuration = 1092 * SecondsPerDay
)

var ErrInvalidSchedule = errors.New("invalid staking schedule")

// StakeEntry is one checkpoint created by a staking schedule.
type StakeEntry struct {
	LockDate uint64
	Amount   *uint256.Int
}

// WeeksToSeconds converts the week counts used in distribution files.
func WeeksToSeconds(weeks uint64) uint64 {
	return weeks * SecondsPerWeek
}

// TimestampToLockDate rounds ts down to the two-week grid that starts at kickoff.
func TimestampToLockDate(kickoff, ts uint64) (uint64, error) {
	if ts < kickoff {
		return 0, fmt.Errorf("%w: timestamp %d before kickoff %d", ErrUnderflow, ts, kickoff)
	}
	periods := (ts - kickoff) / TwoWeeks
	return kickoff + periods*TwoWeeks, nil
}

// StakingSchedule lists the stakes a vesting contract creates when amount is staked at now.
// Rounding dust goes to the first lock date.
func StakingSchedule(amount *uint256.Int, cliff, duration, interval, now, kickoff uint64) ([]StakeEntry, error) {
	if amount == nil || amount.IsZero() {
		return nil, fmt.Errorf("%w: amount is zero", ErrInvalidSchedule)
	}
	if interval == 0 {
		return nil, fmt.Errorf("%w: interval is zero", ErrInvalidSchedule)
	}
	if duration < cliff {
		return nil, fmt.Errorf("%w: duration %d shorter than cliff %d", ErrInvalidSchedule, duration, cliff)
	}
	if duration > MaxStakingDuration {
		duration = MaxStakingDuration
	}

	start, err := TimestampToLockDate(kickoff, now+cliff)
	if err != nil {
		return nil, err
	}
	end, err := TimestampToLockDate(kickoff, now+duration)
	if err != nil {
		return nil, err
	}
	if end < start {
		return nil, fmt.Errorf("%w: end %d before start %d", ErrInvalidSchedule, end, start)
	}

	numIntervals := (end-start)/interval + 1
	perInterval := new(uint256.Int).Div(amount, uint256.NewInt(numIntervals))
	others := new(uint256.Int).Mul(perInterval, uint256.NewInt(numIntervals-1))

	entries := make([]StakeEntry, 0, numIntervals)
	entries = append(entries, StakeEntry{LockDate: start, Amount: new(uint256.Int).Sub(amount, others)})
	for date := start + interval; date <= end; date += interval {
		entries = append(entries, StakeEntry{LockDate: date, Amount: new(uint256.Int).Set(perInterval)})
	}
	return entries, nil
}
