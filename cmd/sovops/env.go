package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog/log"

	"github.com/DistributedCollective/sovryn-ops/internal/chain"
	"github.com/DistributedCollective/sovryn-ops/internal/config"
	"github.com/DistributedCollective/sovryn-ops/internal/contracts"
	"github.com/DistributedCollective/sovryn-ops/internal/multisig"
	"github.com/DistributedCollective/sovryn-ops/internal/ops"
	"github.com/DistributedCollective/sovryn-ops/internal/state"
	"github.com/DistributedCollective/sovryn-ops/internal/types"
	"github.com/DistributedCollective/sovryn-ops/internal/utils"
)

var errBadArgument = errors.New("bad argument")

// opsEnv is everything a command needs to talk to the chain.
type opsEnv struct {
	client   *ethclient.Client
	signer   *chain.SigningClient // nil for read-only commands
	registry *contracts.Registry
	wallet   *multisig.Wallet // nil when the address book has no multisig
	exec     *ops.Executor
}

// newEnv dials RPC_URL and loads the address book. With signing set, the key from
// KEYSTORE_PATH or PRIVATE_KEY is loaded as well.
func newEnv(ctx context.Context, signing bool) (*opsEnv, error) {
	route, err := parseRoute(routeFlag)
	if err != nil {
		return nil, err
	}

	client, err := chain.Dial(ctx, config.RPCURL)
	if err != nil {
		return nil, err
	}
	book, err := config.LoadContracts(config.Network, config.ContractsFile)
	if err != nil {
		client.Close()
		return nil, err
	}
	env := &opsEnv{client: client, registry: contracts.NewRegistry(book)}

	var (
		caller chain.Caller = chain.NewReader(client)
		sender chain.Sender
	)
	if signing {
		key, err := chain.KeyFromConfig()
		if err != nil {
			client.Close()
			return nil, err
		}
		signer, err := chain.NewSigningClient(ctx, client, key, chain.DefaultOptions())
		if err != nil {
			client.Close()
			return nil, err
		}
		env.signer = signer
		caller, sender = signer, signer
	}

	if addr, err := env.registry.Resolve(config.MultisigName); err == nil {
		env.wallet = multisig.NewWallet(addr, caller, sender, config.Network)
		if state.Enabled() {
			env.wallet = env.wallet.WithRecorder(state.SubmissionLedger{})
		}
	} else {
		log.Warn().Str("name", config.MultisigName).Msg("Multisig not in address book, multisig route unavailable")
	}

	env.exec = ops.NewExecutor(caller, sender, env.wallet).WithRoute(route).WithDryRun(dryRun)
	return env, nil
}

func (e *opsEnv) Close() {
	e.client.Close()
}

func (e *opsEnv) requireWallet() (*multisig.Wallet, error) {
	if e.wallet == nil {
		return nil, fmt.Errorf("%w: %q", ops.ErrNoMultisig, config.MultisigName)
	}
	return e.wallet, nil
}

// token binds an ERC20 by address-book name or address.
func (e *opsEnv) token(nameOrAddress string) (*ops.Token, error) {
	addr, err := e.registry.Resolve(nameOrAddress)
	if err != nil {
		return nil, err
	}
	return ops.NewToken(e.exec, nameOrAddress, addr), nil
}

func (e *opsEnv) protocol() (*ops.Protocol, error) {
	addr, err := e.registry.Resolve("sovrynProtocol")
	if err != nil {
		return nil, err
	}
	return ops.NewProtocol(e.exec, addr), nil
}

func (e *opsEnv) loanToken(nameOrAddress string) (*ops.LoanToken, error) {
	addr, err := e.registry.Resolve(nameOrAddress)
	if err != nil {
		return nil, err
	}
	return ops.NewLoanToken(e.exec, nameOrAddress, addr), nil
}

func (e *opsEnv) converter(nameOrAddress string) (*ops.Converter, error) {
	addr, err := e.registry.Resolve(nameOrAddress)
	if err != nil {
		return nil, err
	}
	return ops.NewConverter(e.exec, nameOrAddress, addr), nil
}

func (e *opsEnv) swapNetwork() (*ops.Network, error) {
	addr, err := e.registry.Resolve("swapNetwork")
	if err != nil {
		return nil, err
	}
	return ops.NewNetwork(e.exec, addr), nil
}

func (e *opsEnv) vestingRegistry() (*ops.VestingRegistry, error) {
	addr, err := e.registry.Resolve("vestingRegistry")
	if err != nil {
		return nil, err
	}
	return ops.NewVestingRegistry(e.exec, addr), nil
}

// tokenAmount reads the token's decimals and parses a decimal amount in token units.
func tokenAmount(ctx context.Context, token *ops.Token, amount string) (*big.Int, int, error) {
	decimals, err := token.Decimals(ctx)
	if err != nil {
		return nil, 0, err
	}
	wei, err := utils.ParseTokenAmount(amount, decimals)
	if err != nil {
		return nil, 0, err
	}
	return wei, decimals, nil
}

func parseRoute(s string) (types.Route, error) {
	switch route := types.Route(strings.ToLower(strings.TrimSpace(s))); route {
	case types.RouteAuto, types.RouteDirect, types.RouteMultisig:
		return route, nil
	default:
		return "", fmt.Errorf("%w: --route must be auto, direct or multisig, got %q", errBadArgument, s)
	}
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q is not an address", errBadArgument, s)
	}
	return common.HexToAddress(s), nil
}

func parseHash(s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("%w: %q is not a 32-byte hex id", errBadArgument, s)
	}
	return common.BytesToHash(b), nil
}

func parseTxID(s string) (uint64, error) {
	id, ok := new(big.Int).SetString(s, 10)
	if !ok || id.Sign() < 0 || !id.IsUint64() {
		return 0, fmt.Errorf("%w: %q is not a transaction id", errBadArgument, s)
	}
	return id.Uint64(), nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "on", "yes", "1":
		return true, nil
	case "false", "off", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("%w: %q is not a boolean", errBadArgument, s)
}

var stdout io.Writer = os.Stdout

// printResult writes v as indented JSON when --json is set, otherwise with text.
func printResult(v interface{}, text func(w io.Writer)) error {
	if jsonOut || text == nil {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(stdout)
	return nil
}

// printExecution reports where a state-changing call went.
func printExecution(res *types.ExecutionResult) error {
	return printResult(res, func(w io.Writer) {
		switch {
		case res.DryRun:
			fmt.Fprintf(w, "[dry run] %s %s.%s data=%s\n", res.Route, res.Target.Hex(), res.Method, res.DataHex)
		case res.MultisigTxID != nil:
			fmt.Fprintf(w, "%s submitted to multisig as tx %d (%s)\n", res.Method, *res.MultisigTxID, config.TxLink(res.Tx.TxHash))
		case res.Tx != nil:
			fmt.Fprintf(w, "%s sent: %s\n", res.Method, config.TxLink(res.Tx.TxHash))
		default:
			fmt.Fprintf(w, "%s done\n", res.Method)
		}
	})
}
