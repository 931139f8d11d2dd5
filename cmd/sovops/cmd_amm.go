package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/DistributedCollective/sovryn-ops/internal/utils"
)

var ammCmd = &cobra.Command{
	Use:   "amm",
	Short: "AMM converters and the swap network",
}

var ammInfoCmd = &cobra.Command{
	Use:   "info [converter]",
	Short: "Show anchor, owner, fee and reserves of a converter",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmmInfo,
}

var ammSetFeeCmd = &cobra.Command{
	Use:   "set-fee [converter] [ppm]",
	Short: "Set the conversion fee in parts per million (3000 = 0.3%)",
	Args:  cobra.ExactArgs(2),
	RunE:  runAmmSetFee,
}

var ammTransferOwnershipCmd = &cobra.Command{
	Use:   "transfer-ownership [converter] [newOwner]",
	Short: "Start an ownership transfer; the new owner must accept it",
	Args:  cobra.ExactArgs(2),
	RunE:  runAmmTransferOwnership,
}

var ammAcceptOwnershipCmd = &cobra.Command{
	Use:   "accept-ownership [converter]",
	Short: "Accept a pending ownership transfer",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmmAcceptOwnership,
}

var ammRateCmd = &cobra.Command{
	Use:   "rate [source] [target] [amount]",
	Short: "Quote a conversion through the swap network; amount is in source token units",
	Args:  cobra.ExactArgs(3),
	RunE:  runAmmRate,
}

func init() {
	ammCmd.AddCommand(
		ammInfoCmd,
		ammSetFeeCmd,
		ammTransferOwnershipCmd,
		ammAcceptOwnershipCmd,
		ammRateCmd,
	)
}

func runAmmInfo(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := newEnv(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	conv, err := env.converter(args[0])
	if err != nil {
		return err
	}
	info, err := conv.Info(ctx)
	if err != nil {
		return err
	}
	return printResult(info, func(w io.Writer) {
		fmt.Fprintf(w, "%s type %d anchor %s owner %s\n", info.Address.Hex(), info.ConverterType, info.Anchor.Hex(), info.Owner.Hex())
		fmt.Fprintf(w, "  fee %d ppm (max %d)\n", info.ConversionFee, info.MaxConversionFee)
		for _, r := range info.Reserves {
			fmt.Fprintf(w, "  reserve %s balance %s weight %d\n", r.Token.Hex(), r.Balance, r.Weight)
		}
	})
}

func runAmmSetFee(cmd *cobra.Command, args []string) error {
	fee, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return fmt.Errorf("%w: fee %q: %v", errBadArgument, args[1], err)
	}
	ctx := cmd.Context()
	env, err := newEnv(ctx, !dryRun)
	if err != nil {
		return err
	}
	defer env.Close()

	conv, err := env.converter(args[0])
	if err != nil {
		return err
	}
	res, err := conv.SetConversionFee(ctx, uint32(fee))
	if err != nil {
		return err
	}
	return printExecution(res)
}

func runAmmTransferOwnership(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := newEnv(ctx, !dryRun)
	if err != nil {
		return err
	}
	defer env.Close()

	conv, err := env.converter(args[0])
	if err != nil {
		return err
	}
	owner, err := env.registry.Resolve(args[1])
	if err != nil {
		return err
	}
	res, err := conv.TransferOwnership(ctx, owner)
	if err != nil {
		return err
	}
	return printExecution(res)
}

func runAmmAcceptOwnership(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := newEnv(ctx, !dryRun)
	if err != nil {
		return err
	}
	defer env.Close()

	conv, err := env.converter(args[0])
	if err != nil {
		return err
	}
	res, err := conv.AcceptOwnership(ctx)
	if err != nil {
		return err
	}
	return printExecution(res)
}

func runAmmRate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := newEnv(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	source, err := env.token(args[0])
	if err != nil {
		return err
	}
	target, err := env.token(args[1])
	if err != nil {
		return err
	}
	amount, _, err := tokenAmount(ctx, source, args[2])
	if err != nil {
		return err
	}
	network, err := env.swapNetwork()
	if err != nil {
		return err
	}
	path, err := network.ConversionPath(ctx, source.Address(), target.Address())
	if err != nil {
		return err
	}
	out, err := network.RateByPath(ctx, path, amount)
	if err != nil {
		return err
	}
	targetDecimals, err := target.Decimals(ctx)
	if err != nil {
		return err
	}
	formatted, err := utils.FormatTokenAmount(out, targetDecimals)
	if err != nil {
		return err
	}

	hops := make([]string, len(path))
	for i, p := range path {
		hops[i] = p.Hex()
	}
	result := struct {
		Path   []string `json:"path"`
		Amount string   `json:"amount_in"`
		Return string   `json:"return"`
		Wei    string   `json:"return_wei"`
	}{hops, amount.String(), formatted, out.String()}
	return printResult(result, func(w io.Writer) {
		fmt.Fprintf(w, "%s %s -> %s %s\n", args[2], args[0], formatted, args[1])
		fmt.Fprintf(w, "  path: %s\n", strings.Join(hops, " > "))
	})
}
