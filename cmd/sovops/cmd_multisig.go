package main

import (
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/DistributedCollective/sovryn-ops/internal/contracts"
	"github.com/DistributedCollective/sovryn-ops/internal/multisig"
	"github.com/DistributedCollective/sovryn-ops/internal/types"
)

var submitValue string

// multisigCmd groups MultiSigWallet administration
var multisigCmd = &cobra.Command{
	Use:   "multisig",
	Short: "Submit, confirm, revoke and inspect multisig transactions",
}

var multisigSubmitCmd = &cobra.Command{
	Use:   "submit [target] [calldata]",
	Short: "Submit raw call data to the multisig",
	Long: `Wraps calldata in submitTransaction(target, value, calldata) and sends it from the
configured owner key. The submitter's confirmation is implied.

Example:
  sovops multisig submit sovrynProtocol 0x9b6b9a4e...`,
	Args: cobra.ExactArgs(2),
	RunE: runMultisigSubmit,
}

var multisigConfirmCmd = &cobra.Command{
	Use:   "confirm [txID]",
	Short: "Confirm a pending transaction",
	Args:  cobra.ExactArgs(1),
	RunE:  runMultisigAction("confirm"),
}

var multisigRevokeCmd = &cobra.Command{
	Use:   "revoke [txID]",
	Short: "Revoke an earlier confirmation",
	Args:  cobra.ExactArgs(1),
	RunE:  runMultisigAction("revoke"),
}

var multisigExecuteCmd = &cobra.Command{
	Use:   "execute [txID]",
	Short: "Execute a transaction that has enough confirmations",
	Args:  cobra.ExactArgs(1),
	RunE:  runMultisigAction("execute"),
}

var multisigStatusCmd = &cobra.Command{
	Use:   "status [txID]",
	Short: "Show a transaction, its decoded call and its confirmations",
	Args:  cobra.ExactArgs(1),
	RunE:  runMultisigStatus,
}

var multisigPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List transactions that have not been executed",
	Args:  cobra.NoArgs,
	RunE:  runMultisigPending,
}

var multisigOwnersCmd = &cobra.Command{
	Use:   "owners",
	Short: "List owners and the confirmation threshold",
	Args:  cobra.NoArgs,
	RunE:  runMultisigOwners,
}

func init() {
	multisigSubmitCmd.Flags().StringVar(&submitValue, "value", "0", "RBTC value in wei sent with the call")
	multisigCmd.AddCommand(
		multisigSubmitCmd,
		multisigConfirmCmd,
		multisigRevokeCmd,
		multisigExecuteCmd,
		multisigStatusCmd,
		multisigPendingCmd,
		multisigOwnersCmd,
	)
}

// knownABIs are tried in order when decoding submission payloads.
var knownABIs = []abi.ABI{
	contracts.Protocol, contracts.LoanToken, contracts.Converter, contracts.ERC20,
	contracts.VestingRegistry, contracts.Vesting, contracts.Staking, contracts.MultiSigWallet, contracts.Ownable,
}

func decodePayload(data []byte) string {
	decoded, err := multisig.DecodeAny(data, knownABIs...)
	if err != nil {
		return err.Error()
	}
	return decoded.String()
}

func runMultisigSubmit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := newEnv(ctx, true)
	if err != nil {
		return err
	}
	defer env.Close()

	wallet, err := env.requireWallet()
	if err != nil {
		return err
	}
	target, err := env.registry.Resolve(args[0])
	if err != nil {
		return err
	}
	data, err := hexutil.Decode(args[1])
	if err != nil {
		return fmt.Errorf("%w: calldata: %v", errBadArgument, err)
	}
	value, ok := new(big.Int).SetString(submitValue, 10)
	if !ok || value.Sign() < 0 {
		return fmt.Errorf("%w: --value %q", errBadArgument, submitValue)
	}

	method := "raw"
	if decoded, err := multisig.DecodeAny(data, knownABIs...); err == nil {
		method = decoded.Method
	}
	if dryRun {
		return printResult(&types.ExecutionResult{
			Route: types.RouteMultisig, Target: target, Method: method, DataHex: args[1], DryRun: true,
		}, func(w io.Writer) {
			fmt.Fprintf(w, "[dry run] submit to %s: %s\n", target.Hex(), decodePayload(data))
		})
	}

	sub, err := wallet.Submit(ctx, target, value, data, method)
	if err != nil {
		return err
	}
	return printResult(sub, func(w io.Writer) {
		fmt.Fprintf(w, "submitted as tx %d (executed: %t)\n", sub.TxID, sub.Executed)
	})
}

func runMultisigAction(action string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		txID, err := parseTxID(args[0])
		if err != nil {
			return err
		}
		env, err := newEnv(ctx, true)
		if err != nil {
			return err
		}
		defer env.Close()

		wallet, err := env.requireWallet()
		if err != nil {
			return err
		}
		if dryRun {
			fmt.Fprintf(stdout, "[dry run] %s multisig tx %d\n", action, txID)
			return nil
		}

		var res *types.TxResult
		switch action {
		case "confirm":
			res, err = wallet.Confirm(ctx, txID)
		case "revoke":
			res, err = wallet.Revoke(ctx, txID)
		case "execute":
			res, err = wallet.Execute(ctx, txID)
		}
		if err != nil {
			return err
		}
		return printResult(res, func(w io.Writer) {
			fmt.Fprintf(w, "%s tx %d: %s\n", action, txID, res.TxHash)
		})
	}
}

func runMultisigStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	txID, err := parseTxID(args[0])
	if err != nil {
		return err
	}
	env, err := newEnv(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	wallet, err := env.requireWallet()
	if err != nil {
		return err
	}
	tx, err := wallet.Status(ctx, txID)
	if err != nil {
		return err
	}
	return printResult(tx, func(w io.Writer) {
		printTransaction(w, tx)
	})
}

func printTransaction(w io.Writer, tx *types.MultisigTransaction) {
	fmt.Fprintf(w, "tx %d -> %s value=%s executed=%t\n", tx.ID, tx.Destination.Hex(), tx.Value, tx.Executed)
	fmt.Fprintf(w, "  call: %s\n", decodePayload(tx.Data))
	confirmers := make([]string, len(tx.Confirmations))
	for i, c := range tx.Confirmations {
		confirmers[i] = c.Hex()
	}
	fmt.Fprintf(w, "  confirmations %d/%d: %s\n", len(tx.Confirmations), tx.Required, strings.Join(confirmers, ", "))
}

func runMultisigPending(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := newEnv(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	wallet, err := env.requireWallet()
	if err != nil {
		return err
	}
	pending, err := wallet.PendingDetails(ctx)
	if err != nil {
		return err
	}
	return printResult(pending, func(w io.Writer) {
		if len(pending) == 0 {
			fmt.Fprintln(w, "no pending transactions")
		}
		for _, tx := range pending {
			printTransaction(w, tx)
		}
	})
}

func runMultisigOwners(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := newEnv(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	wallet, err := env.requireWallet()
	if err != nil {
		return err
	}
	owners, err := wallet.Owners(ctx)
	if err != nil {
		return err
	}
	required, err := wallet.Required(ctx)
	if err != nil {
		return err
	}
	out := struct {
		Wallet   string   `json:"wallet"`
		Owners   []string `json:"owners"`
		Required uint64   `json:"required"`
	}{Wallet: wallet.Address().Hex(), Required: required}
	for _, o := range owners {
		out.Owners = append(out.Owners, o.Hex())
	}
	return printResult(out, func(w io.Writer) {
		fmt.Fprintf(w, "%s requires %d of %d owners\n", out.Wallet, out.Required, len(out.Owners))
		for _, o := range out.Owners {
			fmt.Fprintf(w, "  %s\n", o)
		}
	})
}
