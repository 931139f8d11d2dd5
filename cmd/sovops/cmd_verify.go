package main

import (
	"context"
	"fmt"
	"io"
	"math/big"

	"github.com/spf13/cobra"

	"github.com/DistributedCollective/sovryn-ops/internal/config"
	"github.com/DistributedCollective/sovryn-ops/internal/ops"
	"github.com/DistributedCollective/sovryn-ops/internal/state"
	"github.com/DistributedCollective/sovryn-ops/internal/types"
	"github.com/DistributedCollective/sovryn-ops/internal/verify"
)

var (
	verifyLoanTokens   []string
	verifyLoans        []string
	verifyConverters   []string
	verifyParams       bool
	verifySource       string
	verifyTarget       string
	verifyAmount       string
	verifySampleBorrow string
	verifyTolerance    string
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Recompute live values off-chain and compare them with the contracts",
	Long: `Runs assertion checks against the deployed contracts. Each check recomputes a
value with the on-chain formulas and compares it with what the contract returns,
within --tolerance wei. The command fails when any check fails.

Example:
  sovops verify --loantoken iDOC --loantoken iRBTC --params
  sovops verify --converter ConverterDOC --source WRBTC --target DoC --amount 1`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

func init() {
	f := verifyCmd.Flags()
	f.StringSliceVar(&verifyLoanTokens, "loantoken", nil, "iToken to check rates and price of (repeatable)")
	f.StringSliceVar(&verifyLoans, "loan", nil, "loan id to check margin and liquidation amounts of (repeatable)")
	f.StringSliceVar(&verifyConverters, "converter", nil, "converter to check conversion returns of (repeatable)")
	f.BoolVar(&verifyParams, "params", false, "compare protocol fees with the deployment defaults")
	f.StringVar(&verifySource, "source", "WRBTC", "converter check source token")
	f.StringVar(&verifyTarget, "target", "DoC", "converter check target token")
	f.StringVar(&verifyAmount, "amount", "1", "converter check amount in source token units")
	f.StringVar(&verifySampleBorrow, "sample-borrow", "0", "borrow amount in wei used for the next-borrow-rate check")
	f.StringVar(&verifyTolerance, "tolerance", "1000", "allowed difference in wei")
}

func parseWei(flag, s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("%w: --%s %q is not a wei amount", errBadArgument, flag, s)
	}
	return v, nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	if len(verifyLoanTokens)+len(verifyLoans)+len(verifyConverters) == 0 && !verifyParams {
		return fmt.Errorf("%w: nothing to verify, pass --loantoken, --loan, --converter or --params", errBadArgument)
	}
	tolerance, err := parseWei("tolerance", verifyTolerance)
	if err != nil {
		return err
	}
	sampleBorrow, err := parseWei("sample-borrow", verifySampleBorrow)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	env, err := newEnv(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	tasks, err := verifyTasks(ctx, env, sampleBorrow, tolerance)
	if err != nil {
		return err
	}

	var store verify.Store
	if state.Enabled() {
		store = state.CheckStore{}
	}
	results, summary, runErr := verify.NewSuite(store).Run(ctx, tasks)

	out := struct {
		verify.Summary
		Results []types.CheckResult `json:"results"`
	}{summary, results}
	if err := printResult(out, func(w io.Writer) {
		for _, r := range results {
			status := "ok  "
			switch {
			case r.Skipped:
				status = "skip"
			case !r.Passed:
				status = "FAIL"
			}
			fmt.Fprintf(w, "%s %-28s %-14s", status, r.Name, r.Subject)
			if r.Expected != nil && r.Actual != nil {
				fmt.Fprintf(w, " expected %s actual %s", r.Expected, r.Actual)
			}
			if r.Message != "" {
				fmt.Fprintf(w, " (%s)", r.Message)
			}
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "batch %s: %d passed, %d failed, %d skipped\n", summary.BatchID, summary.Passed, summary.Failed, summary.Skipped)
	}); err != nil {
		return err
	}
	return runErr
}

// verifyTasks builds one task per requested subject.
func verifyTasks(ctx context.Context, env *opsEnv, sampleBorrow, tolerance *big.Int) (map[string]verify.Task, error) {
	tasks := make(map[string]verify.Task)
	params := config.DefaultProtocolParameters

	var protocol *ops.Protocol
	if len(verifyLoanTokens) > 0 || len(verifyLoans) > 0 || verifyParams {
		p, err := env.protocol()
		if err != nil {
			return nil, err
		}
		protocol = p
		// Rates depend on the live lending fee, not the default.
		live, err := protocol.ReadFees(ctx, params)
		if err != nil {
			return nil, err
		}
		params = *live
	}

	for _, name := range verifyLoanTokens {
		lt, err := env.loanToken(name)
		if err != nil {
			return nil, err
		}
		tasks["loantoken:"+name] = func(ctx context.Context) ([]types.CheckResult, error) {
			return verify.LoanTokenChecks(ctx, lt, params, sampleBorrow, tolerance)
		}
	}

	for _, raw := range verifyLoans {
		loanID, err := parseHash(raw)
		if err != nil {
			return nil, err
		}
		tasks["loan:"+raw] = func(ctx context.Context) ([]types.CheckResult, error) {
			return verify.LoanChecks(ctx, protocol, loanID, params, tolerance)
		}
	}

	if len(verifyConverters) > 0 {
		network, err := env.swapNetwork()
		if err != nil {
			return nil, err
		}
		source, err := env.token(verifySource)
		if err != nil {
			return nil, err
		}
		target, err := env.token(verifyTarget)
		if err != nil {
			return nil, err
		}
		amount, _, err := tokenAmount(ctx, source, verifyAmount)
		if err != nil {
			return nil, err
		}
		for _, name := range verifyConverters {
			conv, err := env.converter(name)
			if err != nil {
				return nil, err
			}
			tasks["converter:"+name] = func(ctx context.Context) ([]types.CheckResult, error) {
				return verify.ConverterChecks(ctx, conv, network, source.Address(), target.Address(), amount, tolerance)
			}
		}
	}

	if verifyParams {
		tasks["params"] = func(ctx context.Context) ([]types.CheckResult, error) {
			return verify.ProtocolParameterChecks(ctx, protocol, config.DefaultProtocolParameters)
		}
	}
	return tasks, nil
}
