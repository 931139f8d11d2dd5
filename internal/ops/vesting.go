package ops

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/DistributedCollective/sovryn-ops/internal/contracts"
	"github.com/DistributedCollective/sovryn-ops/internal/formulas"
	"github.com/DistributedCollective/sovryn-ops/internal/types"
)

// VestingRegistry creates and funds vesting contracts.
type VestingRegistry struct {
	exec     *Executor
	contract *contracts.Contract
}

func NewVestingRegistry(exec *Executor, address common.Address) *VestingRegistry {
	return &VestingRegistry{exec: exec, contract: contracts.New("vestingRegistry", address, contracts.VestingRegistry)}
}

func (v *VestingRegistry) Contract() *contracts.Contract {
	return v.contract
}

// Create deploys a regular or team vesting contract for owner. cliff and duration are
// in seconds and must be whole multiples of the staking period.
func (v *VestingRegistry) Create(ctx context.Context, kind types.VestingKind, owner common.Address, amount *big.Int, cliff, duration uint64) (*types.ExecutionResult, error) {
	if err := validateVestingTerms(amount, cliff, duration); err != nil {
		return nil, err
	}
	method := "createVesting"
	switch kind {
	case types.VestingRegular, "":
	case types.VestingTeam:
		method = "createTeamVesting"
	default:
		return nil, fmt.Errorf("%w: vesting kind %q", ErrInvalidArgument, kind)
	}
	return v.exec.Execute(ctx, v.contract, method, owner, amount,
		new(big.Int).SetUint64(cliff), new(big.Int).SetUint64(duration))
}

func (v *VestingRegistry) CreateVesting(ctx context.Context, owner common.Address, amount *big.Int, cliff, duration uint64) (*types.ExecutionResult, error) {
	return v.Create(ctx, types.VestingRegular, owner, amount, cliff, duration)
}

func (v *VestingRegistry) CreateTeamVesting(ctx context.Context, owner common.Address, amount *big.Int, cliff, duration uint64) (*types.ExecutionResult, error) {
	return v.Create(ctx, types.VestingTeam, owner, amount, cliff, duration)
}

// Lookup returns the vesting contract of owner, or the zero address when none exists.
func (v *VestingRegistry) Lookup(ctx context.Context, kind types.VestingKind, owner common.Address) (common.Address, error) {
	method := "getVesting"
	if kind == types.VestingTeam {
		method = "getTeamVesting"
	}
	return v.contract.CallAddress(ctx, v.exec.Caller(), method, owner)
}

func (v *VestingRegistry) GetVesting(ctx context.Context, owner common.Address) (common.Address, error) {
	return v.Lookup(ctx, types.VestingRegular, owner)
}

func (v *VestingRegistry) GetTeamVesting(ctx context.Context, owner common.Address) (common.Address, error) {
	return v.Lookup(ctx, types.VestingTeam, owner)
}

// StakeTokens has the registry fund vesting from its own SOV balance.
func (v *VestingRegistry) StakeTokens(ctx context.Context, vesting common.Address, amount *big.Int) (*types.ExecutionResult, error) {
	if vesting == (common.Address{}) {
		return nil, fmt.Errorf("%w: zero vesting address", ErrInvalidArgument)
	}
	if err := requirePositive("amount", amount); err != nil {
		return nil, err
	}
	return v.exec.Execute(ctx, v.contract, "stakeTokens", vesting, amount)
}

// Vesting is a deployed vesting contract.
type Vesting struct {
	exec     *Executor
	contract *contracts.Contract
}

func NewVesting(exec *Executor, address common.Address) *Vesting {
	return &Vesting{exec: exec, contract: contracts.New("vesting", address, contracts.Vesting)}
}

func (v *Vesting) Contract() *contracts.Contract {
	return v.contract
}

func (v *Vesting) Address() common.Address {
	return v.contract.Address
}

// StakeTokens pulls amount from the sender (approved beforehand) and stakes it on the
// vesting schedule.
func (v *Vesting) StakeTokens(ctx context.Context, amount *big.Int) (*types.ExecutionResult, error) {
	if err := requirePositive("amount", amount); err != nil {
		return nil, err
	}
	return v.exec.Execute(ctx, v.contract, "stakeTokens", amount)
}

func (v *Vesting) TokenOwner(ctx context.Context) (common.Address, error) {
	return v.contract.CallAddress(ctx, v.exec.Caller(), "tokenOwner")
}

// Terms returns cliff and duration in seconds.
func (v *Vesting) Terms(ctx context.Context) (cliff, duration *big.Int, err error) {
	if cliff, err = v.contract.CallBig(ctx, v.exec.Caller(), "cliff"); err != nil {
		return nil, nil, err
	}
	if duration, err = v.contract.CallBig(ctx, v.exec.Caller(), "duration"); err != nil {
		return nil, nil, err
	}
	return cliff, duration, nil
}

func validateVestingTerms(amount *big.Int, cliff, duration uint64) error {
	if err := requirePositive("amount", amount); err != nil {
		return err
	}
	if duration == 0 || cliff > duration {
		return fmt.Errorf("%w: need cliff <= duration and a non-zero duration, got cliff %d duration %d", ErrInvalidArgument, cliff, duration)
	}
	if duration > formulas.MaxStakingDuration {
		return fmt.Errorf("%w: duration %d exceeds maximum %d", ErrInvalidArgument, duration, formulas.MaxStakingDuration)
	}
	if cliff%formulas.TwoWeeks != 0 || duration%formulas.TwoWeeks != 0 {
		return fmt.Errorf("%w: cliff and duration must be multiples of two weeks", ErrInvalidArgument)
	}
	return nil
}
