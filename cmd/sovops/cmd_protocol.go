package main

import (
	"context"
	"fmt"
	"io"
	"math/big"

	"github.com/spf13/cobra"

	"github.com/DistributedCollective/sovryn-ops/internal/config"
	"github.com/DistributedCollective/sovryn-ops/internal/ops"
	"github.com/DistributedCollective/sovryn-ops/internal/types"
	"github.com/DistributedCollective/sovryn-ops/internal/utils"
)

var protocolCmd = &cobra.Command{
	Use:   "protocol",
	Short: "sovrynProtocol fee settings and pause switch",
}

// feeSetters maps the fee sub-command names to their protocol setters.
var feeSetters = map[string]func(p *ops.Protocol, ctx context.Context, percent *big.Int) (*types.ExecutionResult, error){
	"lending":     (*ops.Protocol).SetLendingFeePercent,
	"trading":     (*ops.Protocol).SetTradingFeePercent,
	"borrowing":   (*ops.Protocol).SetBorrowingFeePercent,
	"liquidation": (*ops.Protocol).SetLiquidationIncentivePercent,
}

var protocolSetFeeCmd = &cobra.Command{
	Use:   "set-fee [lending|trading|borrowing|liquidation] [percent]",
	Short: "Set a fee percentage, e.g. set-fee trading 0.15",
	Args:  cobra.ExactArgs(2),
	RunE:  runProtocolSetFee,
}

var protocolFeesControllerCmd = &cobra.Command{
	Use:   "set-fees-controller [address]",
	Short: "Set the contract allowed to withdraw protocol fees",
	Args:  cobra.ExactArgs(1),
	RunE:  runProtocolFeesController,
}

var protocolPauseCmd = &cobra.Command{
	Use:   "pause [true|false]",
	Short: "Pause or unpause the protocol",
	Args:  cobra.ExactArgs(1),
	RunE:  runProtocolPause,
}

var protocolFeesCmd = &cobra.Command{
	Use:   "fees",
	Short: "Read the live fee settings and the pause flag",
	Args:  cobra.NoArgs,
	RunE:  runProtocolFees,
}

var protocolLoanCmd = &cobra.Command{
	Use:   "loan [loanID]",
	Short: "Show a loan as returned by getLoan",
	Args:  cobra.ExactArgs(1),
	RunE:  runProtocolLoan,
}

func init() {
	protocolCmd.AddCommand(
		protocolSetFeeCmd,
		protocolFeesControllerCmd,
		protocolPauseCmd,
		protocolFeesCmd,
		protocolLoanCmd,
	)
}

func runProtocolSetFee(cmd *cobra.Command, args []string) error {
	setter, ok := feeSetters[args[0]]
	if !ok {
		return fmt.Errorf("%w: unknown fee %q", errBadArgument, args[0])
	}
	percent, err := utils.ParsePercent(args[1])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	env, err := newEnv(ctx, !dryRun)
	if err != nil {
		return err
	}
	defer env.Close()

	protocol, err := env.protocol()
	if err != nil {
		return err
	}
	res, err := setter(protocol, ctx, percent)
	if err != nil {
		return err
	}
	return printExecution(res)
}

func runProtocolFeesController(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := newEnv(ctx, !dryRun)
	if err != nil {
		return err
	}
	defer env.Close()

	controller, err := env.registry.Resolve(args[0])
	if err != nil {
		return err
	}
	protocol, err := env.protocol()
	if err != nil {
		return err
	}
	res, err := protocol.SetFeesController(ctx, controller)
	if err != nil {
		return err
	}
	return printExecution(res)
}

func runProtocolPause(cmd *cobra.Command, args []string) error {
	paused, err := parseBool(args[0])
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	env, err := newEnv(ctx, !dryRun)
	if err != nil {
		return err
	}
	defer env.Close()

	protocol, err := env.protocol()
	if err != nil {
		return err
	}
	res, err := protocol.TogglePaused(ctx, paused)
	if err != nil {
		return err
	}
	return printExecution(res)
}

func runProtocolFees(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := newEnv(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	protocol, err := env.protocol()
	if err != nil {
		return err
	}
	fees, err := protocol.ReadFees(ctx, config.DefaultProtocolParameters)
	if err != nil {
		return err
	}
	paused, err := protocol.IsPaused(ctx)
	if err != nil {
		return err
	}

	out := struct {
		*types.ProtocolParameters
		Paused bool `json:"paused"`
	}{fees, paused}
	return printResult(out, func(w io.Writer) {
		fmt.Fprintf(w, "lending fee:           %s%%\n", utils.FormatPercent(fees.LendingFeePercent))
		fmt.Fprintf(w, "trading fee:           %s%%\n", utils.FormatPercent(fees.TradingFeePercent))
		fmt.Fprintf(w, "borrowing fee:         %s%%\n", utils.FormatPercent(fees.BorrowingFeePercent))
		fmt.Fprintf(w, "liquidation incentive: %s%%\n", utils.FormatPercent(fees.LiquidationIncentivePercent))
		fmt.Fprintf(w, "paused:                %t\n", paused)
	})
}

func runProtocolLoan(cmd *cobra.Command, args []string) error {
	loanID, err := parseHash(args[0])
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	env, err := newEnv(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	protocol, err := env.protocol()
	if err != nil {
		return err
	}
	loan, err := protocol.ReadLoan(ctx, loanID)
	if err != nil {
		return err
	}
	return printResult(loan, nil)
}
