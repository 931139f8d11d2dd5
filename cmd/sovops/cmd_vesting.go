package main

import (
	"fmt"
	"io"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"github.com/DistributedCollective/sovryn-ops/internal/contracts"
	"github.com/DistributedCollective/sovryn-ops/internal/formulas"
	"github.com/DistributedCollective/sovryn-ops/internal/types"
	"github.com/DistributedCollective/sovryn-ops/internal/utils"
)

var (
	vestingTeam          bool
	vestingCliffWeeks    uint64
	vestingDurationWeeks uint64
	vestingToken         string
)

var vestingCmd = &cobra.Command{
	Use:   "vesting",
	Short: "Create, look up and fund vesting contracts",
}

var vestingCreateCmd = &cobra.Command{
	Use:   "create [owner] [amount]",
	Short: "Create a vesting contract through the vesting registry",
	Args:  cobra.ExactArgs(2),
	RunE:  runVestingCreate,
}

var vestingLookupCmd = &cobra.Command{
	Use:   "lookup [owner]",
	Short: "Show the vesting contract of an owner",
	Args:  cobra.ExactArgs(1),
	RunE:  runVestingLookup,
}

var vestingStakeCmd = &cobra.Command{
	Use:   "stake [vesting] [amount]",
	Short: "Have the registry stake tokens into a vesting contract",
	Args:  cobra.ExactArgs(2),
	RunE:  runVestingStake,
}

var vestingScheduleCmd = &cobra.Command{
	Use:   "schedule [amount]",
	Short: "Preview the staking checkpoints a vesting of amount would create today",
	Args:  cobra.ExactArgs(1),
	RunE:  runVestingSchedule,
}

func init() {
	for _, c := range []*cobra.Command{vestingCreateCmd, vestingLookupCmd} {
		c.Flags().BoolVar(&vestingTeam, "team", false, "use the team vesting variant")
	}
	for _, c := range []*cobra.Command{vestingCreateCmd, vestingScheduleCmd} {
		c.Flags().Uint64Var(&vestingCliffWeeks, "cliff-weeks", 4, "cliff in weeks, a multiple of 2")
		c.Flags().Uint64Var(&vestingDurationWeeks, "duration-weeks", 52, "duration in weeks, a multiple of 2")
	}
	for _, c := range []*cobra.Command{vestingCreateCmd, vestingStakeCmd, vestingScheduleCmd} {
		c.Flags().StringVar(&vestingToken, "token", "SOV", "vested token, used for its decimals")
	}
	vestingCmd.AddCommand(vestingCreateCmd, vestingLookupCmd, vestingStakeCmd, vestingScheduleCmd)
}

func vestingKind() types.VestingKind {
	if vestingTeam {
		return types.VestingTeam
	}
	return types.VestingRegular
}

func runVestingCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := newEnv(ctx, !dryRun)
	if err != nil {
		return err
	}
	defer env.Close()

	owner, err := env.registry.Resolve(args[0])
	if err != nil {
		return err
	}
	token, err := env.token(vestingToken)
	if err != nil {
		return err
	}
	amount, _, err := tokenAmount(ctx, token, args[1])
	if err != nil {
		return err
	}
	registry, err := env.vestingRegistry()
	if err != nil {
		return err
	}
	res, err := registry.Create(ctx, vestingKind(), owner, amount,
		formulas.WeeksToSeconds(vestingCliffWeeks), formulas.WeeksToSeconds(vestingDurationWeeks))
	if err != nil {
		return err
	}
	return printExecution(res)
}

func runVestingLookup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := newEnv(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	owner, err := env.registry.Resolve(args[0])
	if err != nil {
		return err
	}
	registry, err := env.vestingRegistry()
	if err != nil {
		return err
	}
	addr, err := registry.Lookup(ctx, vestingKind(), owner)
	if err != nil {
		return err
	}
	out := map[string]string{"owner": owner.Hex(), "kind": string(vestingKind()), "vesting": addr.Hex()}
	return printResult(out, func(w io.Writer) {
		if addr == (common.Address{}) {
			fmt.Fprintf(w, "no %s vesting for %s\n", vestingKind(), owner.Hex())
			return
		}
		fmt.Fprintln(w, addr.Hex())
	})
}

func runVestingStake(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := newEnv(ctx, !dryRun)
	if err != nil {
		return err
	}
	defer env.Close()

	vesting, err := env.registry.Resolve(args[0])
	if err != nil {
		return err
	}
	token, err := env.token(vestingToken)
	if err != nil {
		return err
	}
	amount, _, err := tokenAmount(ctx, token, args[1])
	if err != nil {
		return err
	}
	registry, err := env.vestingRegistry()
	if err != nil {
		return err
	}
	res, err := registry.StakeTokens(ctx, vesting, amount)
	if err != nil {
		return err
	}
	return printExecution(res)
}

func runVestingSchedule(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := newEnv(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	token, err := env.token(vestingToken)
	if err != nil {
		return err
	}
	amount, decimals, err := tokenAmount(ctx, token, args[0])
	if err != nil {
		return err
	}
	staking, err := env.registry.Handle("staking", contracts.Staking)
	if err != nil {
		return err
	}
	kickoff, err := staking.CallBig(ctx, env.exec.Caller(), "kickoffTS")
	if err != nil {
		return err
	}
	amount256, overflow := uint256.FromBig(amount)
	if overflow {
		return fmt.Errorf("%w: amount overflows uint256", errBadArgument)
	}

	entries, err := formulas.StakingSchedule(amount256,
		formulas.WeeksToSeconds(vestingCliffWeeks), formulas.WeeksToSeconds(vestingDurationWeeks),
		formulas.FourWeeks, uint64(time.Now().Unix()), kickoff.Uint64())
	if err != nil {
		return err
	}

	type stake struct {
		LockDate time.Time `json:"lock_date"`
		Amount   string    `json:"amount"`
	}
	out := make([]stake, len(entries))
	for i, e := range entries {
		formatted, err := utils.FormatTokenAmount(e.Amount.ToBig(), decimals)
		if err != nil {
			return err
		}
		out[i] = stake{LockDate: time.Unix(int64(e.LockDate), 0).UTC(), Amount: formatted}
	}
	return printResult(out, func(w io.Writer) {
		for _, s := range out {
			fmt.Fprintf(w, "%s  %s\n", s.LockDate.Format("2006-01-02"), s.Amount)
		}
	})
}
