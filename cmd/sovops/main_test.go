package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DistributedCollective/sovryn-ops/internal/types"
)

func TestParseRoute(t *testing.T) {
	for in, want := range map[string]types.Route{
		"auto":     types.RouteAuto,
		" Direct ": types.RouteDirect,
		"MULTISIG": types.RouteMultisig,
	} {
		got, err := parseRoute(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := parseRoute("relayer")
	assert.ErrorIs(t, err, errBadArgument)
}

func TestParseArguments(t *testing.T) {
	id, err := parseTxID("42")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
	for _, bad := range []string{"-1", "abc", "18446744073709551616"} {
		_, err := parseTxID(bad)
		assert.ErrorIs(t, err, errBadArgument, bad)
	}

	on, err := parseBool("on")
	require.NoError(t, err)
	assert.True(t, on)
	off, err := parseBool("False")
	require.NoError(t, err)
	assert.False(t, off)
	_, err = parseBool("maybe")
	assert.ErrorIs(t, err, errBadArgument)

	hash, err := parseHash("0xab" + strings.Repeat("00", 31))
	require.NoError(t, err)
	assert.Equal(t, byte(0xab), hash[0])
	_, err = parseHash("0x1234")
	assert.ErrorIs(t, err, errBadArgument)

	addr, err := parseAddress("0x924f5ad34698Fd20c90Fe5D5A8A0abd3b42dc711")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x924f5ad34698Fd20c90Fe5D5A8A0abd3b42dc711"), addr)
	_, err = parseAddress("multisig")
	assert.ErrorIs(t, err, errBadArgument)

	wei, err := parseWei("tolerance", "1000")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), wei.Int64())
	_, err = parseWei("tolerance", "-5")
	assert.ErrorIs(t, err, errBadArgument)

	assert.Equal(t, 5432, mustAtoi("", 5432))
	assert.Equal(t, 6543, mustAtoi("6543", 5432))
}

func subcommands(c *cobra.Command) []string {
	var names []string
	for _, sub := range c.Commands() {
		names = append(names, sub.Name())
	}
	return names
}

func TestCommandTree(t *testing.T) {
	assert.Subset(t, subcommands(rootCmd), []string{
		"multisig", "token", "protocol", "loantoken", "amm", "vesting", "distribute", "verify", "serve", "watch", "db",
	})
	assert.ElementsMatch(t, []string{"submit", "confirm", "revoke", "execute", "status", "pending", "owners"}, subcommands(multisigCmd))
	assert.ElementsMatch(t, []string{"airdrop", "vesting"}, subcommands(distributeCmd))
	assert.Contains(t, subcommands(protocolCmd), "set-fee")
	assert.Contains(t, subcommands(ammCmd), "rate")

	for _, fee := range []string{"lending", "trading", "borrowing", "liquidation"} {
		assert.Contains(t, feeSetters, fee)
	}
	assert.NotNil(t, distributeAirdropCmd.InheritedFlags().Lookup("via-multisig"), "inherited from distribute")
}

func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := stdout
	stdout = buf
	t.Cleanup(func() { stdout = prev })
	return buf
}

func TestPrintExecution(t *testing.T) {
	buf := captureStdout(t)
	target := common.HexToAddress("0x25380305f223B32FDB844152abD2E82BC5Ad99c3")

	require.NoError(t, printExecution(&types.ExecutionResult{
		Route: types.RouteMultisig, Target: target, Method: "togglePaused", DataHex: "0x1234", DryRun: true,
	}))
	assert.Equal(t, "[dry run] multisig "+target.Hex()+".togglePaused data=0x1234\n", buf.String())

	buf.Reset()
	id := uint64(7)
	require.NoError(t, printExecution(&types.ExecutionResult{
		Route: types.RouteMultisig, Method: "setTradingFeePercent", MultisigTxID: &id,
		Tx: &types.TxResult{TxHash: "0xabc"},
	}))
	assert.Contains(t, buf.String(), "submitted to multisig as tx 7")

	buf.Reset()
	jsonOut = true
	t.Cleanup(func() { jsonOut = false })
	require.NoError(t, printExecution(&types.ExecutionResult{Route: types.RouteDirect, Method: "transfer"}))
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "direct", decoded["route"])
}

func TestVerifyRequiresSubject(t *testing.T) {
	t.Setenv("NETWORK", "testnet")
	t.Setenv("CHAIN_ID", "31")
	t.Setenv("RPC_URL", "http://127.0.0.1:1")
	t.Setenv("DB_HOST", "")

	rootCmd.SetArgs([]string{"verify"})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.ExecuteContext(context.Background())
	assert.ErrorIs(t, err, errBadArgument)
}

func TestDBReset(t *testing.T) {
	t.Setenv("NETWORK", "testnet")
	t.Setenv("CHAIN_ID", "31")
	t.Setenv("RPC_URL", "http://127.0.0.1:1")
	t.Setenv("DB_HOST", "")
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		dbResetConfirmed = false
	})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})

	rootCmd.SetArgs([]string{"db", "reset"})
	err := rootCmd.ExecuteContext(context.Background())
	assert.ErrorIs(t, err, errBadArgument, "needs --yes")

	rootCmd.SetArgs([]string{"db", "reset", "--yes"})
	err = rootCmd.ExecuteContext(context.Background())
	assert.ErrorIs(t, err, errNoLedger)
}

func TestBadRouteRejectedBeforeDialing(t *testing.T) {
	routeFlag = "sideways"
	t.Cleanup(func() { routeFlag = "auto" })

	_, err := newEnv(context.Background(), false)
	assert.ErrorIs(t, err, errBadArgument)
}
