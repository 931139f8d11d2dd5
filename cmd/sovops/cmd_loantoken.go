package main

import (
	"fmt"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/DistributedCollective/sovryn-ops/internal/ops"
	"github.com/DistributedCollective/sovryn-ops/internal/utils"
)

var (
	curveBase, curveMultiplier string
	curveLowBase, curveLowMult string
	curveTarget, curveKink     string
	curveMaxScale              string
	limitAssets                []string
	limitAmounts               []string
)

var loanTokenCmd = &cobra.Command{
	Use:     "loantoken",
	Aliases: []string{"itoken"},
	Short:   "Lending pool (iToken) state and settings",
}

var loanTokenInfoCmd = &cobra.Command{
	Use:   "info [iToken]",
	Short: "Show price, supply, borrow and the interest rate curve",
	Args:  cobra.ExactArgs(1),
	RunE:  runLoanTokenInfo,
}

var loanTokenNextRateCmd = &cobra.Command{
	Use:   "next-rate [iToken] [borrowAmount]",
	Short: "Borrow rate after borrowing an amount (in underlying token units)",
	Args:  cobra.ExactArgs(2),
	RunE:  runLoanTokenNextRate,
}

var loanTokenDemandCurveCmd = &cobra.Command{
	Use:   "set-demand-curve [iToken]",
	Short: "Set the interest rate curve; all values are percentages",
	Args:  cobra.ExactArgs(1),
	RunE:  runLoanTokenDemandCurve,
}

var loanTokenLimitsCmd = &cobra.Command{
	Use:   "set-limits [iToken]",
	Short: "Cap deposits per asset (--asset and --limit repeat in pairs)",
	Args:  cobra.ExactArgs(1),
	RunE:  runLoanTokenLimits,
}

var loanTokenPauseCmd = &cobra.Command{
	Use:   "pause-function [iToken] [signature] [true|false]",
	Short: `Pause a single function, e.g. pause-function iDOC "borrow(...)" true`,
	Args:  cobra.ExactArgs(3),
	RunE:  runLoanTokenPause,
}

var loanTokenLiquidityMiningCmd = &cobra.Command{
	Use:   "set-liquidity-mining [iToken] [address]",
	Short: "Point the pool at the liquidity mining contract",
	Args:  cobra.ExactArgs(2),
	RunE:  runLoanTokenLiquidityMining,
}

func init() {
	f := loanTokenDemandCurveCmd.Flags()
	f.StringVar(&curveBase, "base-rate", "", "base rate")
	f.StringVar(&curveMultiplier, "rate-multiplier", "", "rate multiplier")
	f.StringVar(&curveLowBase, "low-util-base-rate", "", "base rate below the target level")
	f.StringVar(&curveLowMult, "low-util-rate-multiplier", "", "rate multiplier below the target level")
	f.StringVar(&curveTarget, "target-level", "", "utilization floor")
	f.StringVar(&curveKink, "kink-level", "", "utilization at which the rate scales towards max-scale-rate")
	f.StringVar(&curveMaxScale, "max-scale-rate", "", "rate at 100% utilization")
	for _, name := range []string{"base-rate", "rate-multiplier", "low-util-base-rate", "low-util-rate-multiplier", "target-level", "kink-level", "max-scale-rate"} {
		_ = loanTokenDemandCurveCmd.MarkFlagRequired(name)
	}

	loanTokenLimitsCmd.Flags().StringSliceVar(&limitAssets, "asset", nil, "asset address or address-book name")
	loanTokenLimitsCmd.Flags().StringSliceVar(&limitAmounts, "limit", nil, "limit in asset token units, 0 removes the cap")

	loanTokenCmd.AddCommand(
		loanTokenInfoCmd,
		loanTokenNextRateCmd,
		loanTokenDemandCurveCmd,
		loanTokenLimitsCmd,
		loanTokenPauseCmd,
		loanTokenLiquidityMiningCmd,
	)
}

func runLoanTokenInfo(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := newEnv(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	lt, err := env.loanToken(args[0])
	if err != nil {
		return err
	}
	info, err := lt.Info(ctx)
	if err != nil {
		return err
	}
	return printResult(info, func(w io.Writer) {
		fmt.Fprintf(w, "%s (%s) underlying %s\n", args[0], info.Address.Hex(), info.Underlying.Hex())
		fmt.Fprintf(w, "  token price:        %s\n", info.TokenPrice)
		fmt.Fprintf(w, "  total asset supply: %s\n", info.TotalAssetSupply)
		fmt.Fprintf(w, "  total asset borrow: %s\n", info.TotalAssetBorrow)
		fmt.Fprintf(w, "  market liquidity:   %s\n", info.MarketLiquidity)
		fmt.Fprintf(w, "  borrow rate:        %s%%\n", utils.FormatPercent(info.BorrowInterestRate))
		fmt.Fprintf(w, "  supply rate:        %s%%\n", utils.FormatPercent(info.SupplyInterestRate))
		fmt.Fprintf(w, "  curve: base %s%% mult %s%% target %s%% kink %s%% max %s%%\n",
			utils.FormatPercent(info.BaseRate), utils.FormatPercent(info.RateMultiplier),
			utils.FormatPercent(info.TargetLevel), utils.FormatPercent(info.KinkLevel),
			utils.FormatPercent(info.MaxScaleRate))
	})
}

func runLoanTokenNextRate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := newEnv(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	lt, err := env.loanToken(args[0])
	if err != nil {
		return err
	}
	info, err := lt.Info(ctx)
	if err != nil {
		return err
	}
	underlying := ops.NewToken(env.exec, "underlying", info.Underlying)
	amount, _, err := tokenAmount(ctx, underlying, args[1])
	if err != nil {
		return err
	}
	rate, err := lt.NextBorrowInterestRate(ctx, amount)
	if err != nil {
		return err
	}
	return printResult(map[string]string{"rate": rate.String()}, func(w io.Writer) {
		fmt.Fprintf(w, "%s%%\n", utils.FormatPercent(rate))
	})
}

func runLoanTokenDemandCurve(cmd *cobra.Command, args []string) error {
	var curve ops.DemandCurve
	for _, v := range []struct {
		raw string
		dst **big.Int
	}{
		{curveBase, &curve.BaseRate},
		{curveMultiplier, &curve.RateMultiplier},
		{curveLowBase, &curve.LowUtilBaseRate},
		{curveLowMult, &curve.LowUtilRateMultiplier},
		{curveTarget, &curve.TargetLevel},
		{curveKink, &curve.KinkLevel},
		{curveMaxScale, &curve.MaxScaleRate},
	} {
		p, err := utils.ParsePercent(v.raw)
		if err != nil {
			return err
		}
		*v.dst = p
	}

	ctx := cmd.Context()
	env, err := newEnv(ctx, !dryRun)
	if err != nil {
		return err
	}
	defer env.Close()

	lt, err := env.loanToken(args[0])
	if err != nil {
		return err
	}
	res, err := lt.SetDemandCurve(ctx, curve)
	if err != nil {
		return err
	}
	return printExecution(res)
}

func runLoanTokenLimits(cmd *cobra.Command, args []string) error {
	if len(limitAssets) == 0 || len(limitAssets) != len(limitAmounts) {
		return fmt.Errorf("%w: need one --limit per --asset", errBadArgument)
	}
	ctx := cmd.Context()
	env, err := newEnv(ctx, !dryRun)
	if err != nil {
		return err
	}
	defer env.Close()

	assets := make([]common.Address, len(limitAssets))
	limits := make([]*big.Int, len(limitAssets))
	for i, name := range limitAssets {
		token, err := env.token(name)
		if err != nil {
			return err
		}
		assets[i] = token.Address()
		if limits[i], _, err = tokenAmount(ctx, token, limitAmounts[i]); err != nil {
			return err
		}
	}

	lt, err := env.loanToken(args[0])
	if err != nil {
		return err
	}
	res, err := lt.SetTransactionLimits(ctx, assets, limits)
	if err != nil {
		return err
	}
	return printExecution(res)
}

func runLoanTokenPause(cmd *cobra.Command, args []string) error {
	paused, err := parseBool(args[2])
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	env, err := newEnv(ctx, !dryRun)
	if err != nil {
		return err
	}
	defer env.Close()

	lt, err := env.loanToken(args[0])
	if err != nil {
		return err
	}
	res, err := lt.ToggleFunctionPause(ctx, args[1], paused)
	if err != nil {
		return err
	}
	return printExecution(res)
}

func runLoanTokenLiquidityMining(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := newEnv(ctx, !dryRun)
	if err != nil {
		return err
	}
	defer env.Close()

	lm, err := env.registry.Resolve(args[1])
	if err != nil {
		return err
	}
	lt, err := env.loanToken(args[0])
	if err != nil {
		return err
	}
	res, err := lt.SetLiquidityMiningAddress(ctx, lm)
	if err != nil {
		return err
	}
	return printExecution(res)
}
