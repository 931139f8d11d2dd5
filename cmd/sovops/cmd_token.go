package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/DistributedCollective/sovryn-ops/internal/utils"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "ERC20 transfers, approvals and balances",
}

var tokenTransferCmd = &cobra.Command{
	Use:   "transfer [token] [to] [amount]",
	Short: "Transfer tokens; amount is in token units, e.g. 1.5",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTokenWrite(cmd, args, "transfer")
	},
}

var tokenApproveCmd = &cobra.Command{
	Use:   "approve [token] [spender] [amount]",
	Short: "Approve a spender; amount is in token units",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTokenWrite(cmd, args, "approve")
	},
}

var tokenBalanceCmd = &cobra.Command{
	Use:   "balance [token] [account]",
	Short: "Show the token balance of an account",
	Args:  cobra.ExactArgs(2),
	RunE:  runTokenBalance,
}

func init() {
	tokenCmd.AddCommand(tokenTransferCmd, tokenApproveCmd, tokenBalanceCmd)
}

func runTokenWrite(cmd *cobra.Command, args []string, action string) error {
	ctx := cmd.Context()
	env, err := newEnv(ctx, !dryRun)
	if err != nil {
		return err
	}
	defer env.Close()

	token, err := env.token(args[0])
	if err != nil {
		return err
	}
	account, err := env.registry.Resolve(args[1])
	if err != nil {
		return err
	}
	amount, _, err := tokenAmount(ctx, token, args[2])
	if err != nil {
		return err
	}

	if action == "approve" {
		res, err := token.Approve(ctx, account, amount)
		if err != nil {
			return err
		}
		return printExecution(res)
	}
	res, err := token.Transfer(ctx, account, amount)
	if err != nil {
		return err
	}
	return printExecution(res)
}

func runTokenBalance(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := newEnv(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	token, err := env.token(args[0])
	if err != nil {
		return err
	}
	account, err := env.registry.Resolve(args[1])
	if err != nil {
		return err
	}
	decimals, err := token.Decimals(ctx)
	if err != nil {
		return err
	}
	balance, err := token.BalanceOf(ctx, account)
	if err != nil {
		return err
	}
	formatted, err := utils.FormatTokenAmount(balance, decimals)
	if err != nil {
		return err
	}

	out := struct {
		Token    string `json:"token"`
		Account  string `json:"account"`
		Balance  string `json:"balance"`
		Wei      string `json:"wei"`
		Decimals int    `json:"decimals"`
	}{token.Address().Hex(), account.Hex(), formatted, balance.String(), decimals}
	return printResult(out, func(w io.Writer) {
		fmt.Fprintf(w, "%s %s\n", formatted, args[0])
	})
}
