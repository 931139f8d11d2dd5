package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/DistributedCollective/sovryn-ops/internal/config"
	"github.com/DistributedCollective/sovryn-ops/internal/distribution"
	"github.com/DistributedCollective/sovryn-ops/internal/state"
	"github.com/DistributedCollective/sovryn-ops/internal/types"
)

var (
	distToken       string
	distName        string
	distViaMultisig bool
)

var distributeCmd = &cobra.Command{
	Use:   "distribute",
	Short: "Batch token distributions from CSV files",
	Long: `Runs an airdrop or vesting distribution from a CSV file.

Airdrop rows are address,amount. Vesting rows are
address,amount,cliff_weeks,duration_weeks,kind with kind team or regular.
Amounts are in token units. With DB_HOST set, every row outcome is stored and
re-running the same file under the same --name skips rows that already went out.
Rows whose transaction never got a receipt are checked on chain before anything is
resent. Vesting rows created through the multisig are approved and staked by a
later run, once the owners have executed the creation.`,
}

var distributeAirdropCmd = &cobra.Command{
	Use:   "airdrop [file.csv]",
	Short: "Transfer tokens to every row of the file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDistribution(cmd, args[0], types.DistributionAirdrop)
	},
}

var distributeVestingCmd = &cobra.Command{
	Use:   "vesting [file.csv]",
	Short: "Create and fund a vesting contract for every row of the file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDistribution(cmd, args[0], types.DistributionVesting)
	},
}

func init() {
	distributeCmd.PersistentFlags().StringVar(&distToken, "token", "SOV", "distributed token, address-book name or address")
	distributeCmd.PersistentFlags().StringVar(&distName, "name", "", "run name used to resume, defaults to the file name")
	distributeCmd.PersistentFlags().BoolVar(&distViaMultisig, "via-multisig", false, "pay from the multisig instead of the signing key")
	distributeCmd.AddCommand(distributeAirdropCmd, distributeVestingCmd)
}

func runDistribution(cmd *cobra.Command, path string, kind types.DistributionKind) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	name := distName
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	ctx := cmd.Context()
	env, err := newEnv(ctx, !dryRun)
	if err != nil {
		return err
	}
	defer env.Close()

	token, err := env.token(distToken)
	if err != nil {
		return err
	}
	decimals, err := token.Decimals(ctx)
	if err != nil {
		return err
	}
	plan, err := distribution.NewPlan(kind, raw, decimals)
	if err != nil {
		return err
	}

	opts := distribution.Options{
		Network:     config.Network,
		Token:       token.Address(),
		ViaMultisig: distViaMultisig,
		RPS:         config.RPCRateLimit,
	}
	if kind == types.DistributionVesting {
		if opts.Registry, err = env.registry.Resolve("vestingRegistry"); err != nil {
			return err
		}
	}

	var store distribution.Store
	if state.Enabled() {
		store = state.DistributionStore{}
	} else if !dryRun {
		log.Warn().Msg("DB_HOST not set, this run cannot be resumed")
	}

	runner, err := distribution.NewRunner(env.exec, store, opts)
	if err != nil {
		return err
	}
	var report *distribution.Report
	var runErr error
	if kind == types.DistributionVesting {
		report, runErr = runner.RunVesting(ctx, name, plan)
	} else {
		report, runErr = runner.RunAirdrop(ctx, name, plan)
	}
	if report == nil {
		return runErr
	}
	if err := printResult(report, func(w io.Writer) {
		printRunSummary(w, report)
	}); err != nil {
		return err
	}
	return runErr
}

func printRunSummary(w io.Writer, report *distribution.Report) {
	run := report.Run
	prefix := ""
	if run.DryRun {
		prefix = "[dry run] "
	}
	fmt.Fprintf(w, "%s%s %q: %d rows, total %s\n", prefix, run.Kind, run.Name, run.Rows, run.TotalText)
	fmt.Fprintf(w, "  completed %d  submitted %d  failed %d  skipped %d\n", run.Completed, run.Submitted, run.Failed, run.Skipped)
	for _, e := range report.Entries {
		switch e.Status {
		case types.EntryFailed, types.EntryUnconfirmed, types.EntryCreatePending:
			fmt.Fprintf(w, "  line %d %s %s: %s\n", e.Line, e.Address.Hex(), e.Status, e.Message)
		}
	}
}
