/*

Executor routes state-changing calls. Contracts owned by the protocol multisig are
reached through a multisig submission; everything else is signed and sent directly
by the configured key.

*/

package ops

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"

	"github.com/DistributedCollective/sovryn-ops/internal/chain"
	"github.com/DistributedCollective/sovryn-ops/internal/contracts"
	"github.com/DistributedCollective/sovryn-ops/internal/logger"
	"github.com/DistributedCollective/sovryn-ops/internal/multisig"
	"github.com/DistributedCollective/sovryn-ops/internal/types"
)

// Error definitions for zero-tolerance error handling
var (
	ErrReadOnly        = errors.New("operation requires a signing key")
	ErrNoMultisig      = errors.New("multisig route requested but no multisig wallet is configured")
	ErrUnknownRoute    = errors.New("unknown route")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Executor sends contract calls along the configured route.
type Executor struct {
	caller chain.Caller
	sender chain.Sender
	wallet *multisig.Wallet
	route  types.Route
	dryRun bool
	log    zerolog.Logger
}

// NewExecutor builds an executor. sender and wallet may be nil for read-only use.
func NewExecutor(caller chain.Caller, sender chain.Sender, wallet *multisig.Wallet) *Executor {
	return &Executor{
		caller: caller,
		sender: sender,
		wallet: wallet,
		route:  types.RouteAuto,
		log:    logger.GetForComponent("executor"),
	}
}

// WithRoute forces every call along route.
func (e *Executor) WithRoute(route types.Route) *Executor {
	e.route = route
	return e
}

// WithDryRun makes the executor encode and report calls without sending them.
func (e *Executor) WithDryRun(dryRun bool) *Executor {
	e.dryRun = dryRun
	return e
}

// Routed returns a copy of e forced onto route.
func (e *Executor) Routed(route types.Route) *Executor {
	cp := *e
	cp.route = route
	return &cp
}

// Caller exposes the read-only RPC handle.
func (e *Executor) Caller() chain.Caller {
	return e.caller
}

// Sender exposes the signing client, nil when read-only.
func (e *Executor) Sender() chain.Sender {
	return e.sender
}

// Wallet returns the multisig wallet, nil when not configured.
func (e *Executor) Wallet() *multisig.Wallet {
	return e.wallet
}

// DryRun reports whether calls are only encoded.
func (e *Executor) DryRun() bool {
	return e.dryRun
}

// Resolve decides how a call to target is sent.
func (e *Executor) Resolve(ctx context.Context, target common.Address) (types.Route, error) {
	switch e.route {
	case types.RouteDirect:
		return types.RouteDirect, nil
	case types.RouteMultisig:
		if e.wallet == nil {
			return "", ErrNoMultisig
		}
		return types.RouteMultisig, nil
	case types.RouteAuto, "":
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownRoute, e.route)
	}

	if e.wallet == nil {
		return types.RouteDirect, nil
	}
	owner, err := contracts.New("target", target, contracts.Ownable).CallAddress(ctx, e.caller, "owner")
	if err != nil {
		// Not Ownable; nothing for the multisig to administer.
		e.log.Debug().Err(err).Str("target", target.Hex()).Msg("owner() unavailable, sending directly")
		return types.RouteDirect, nil
	}
	if owner == e.wallet.Address() {
		return types.RouteMultisig, nil
	}
	return types.RouteDirect, nil
}

// Execute encodes method on c and sends it along the resolved route.
func (e *Executor) Execute(ctx context.Context, c *contracts.Contract, method string, args ...interface{}) (*types.ExecutionResult, error) {
	return e.ExecuteValue(ctx, c, nil, method, args...)
}

// ExecuteValue is Execute with native value attached.
func (e *Executor) ExecuteValue(ctx context.Context, c *contracts.Contract, value *big.Int, method string, args ...interface{}) (*types.ExecutionResult, error) {
	data, err := c.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	route, err := e.Resolve(ctx, c.Address)
	if err != nil {
		return nil, err
	}

	result := &types.ExecutionResult{
		Route:   route,
		Target:  c.Address,
		Method:  method,
		DataHex: hexutil.Encode(data),
		DryRun:  e.dryRun,
	}

	if e.dryRun {
		e.log.Info().
			Str("route", string(route)).
			Str("contract", c.Name).
			Str("target", c.Address.Hex()).
			Str("method", method).
			Str("data", result.DataHex).
			Msg("Dry run, not sending")
		return result, nil
	}
	if e.sender == nil {
		return nil, ErrReadOnly
	}

	switch route {
	case types.RouteMultisig:
		sub, err := e.wallet.Submit(ctx, c.Address, value, data, method)
		if err != nil {
			return nil, fmt.Errorf("%s.%s via multisig: %w", c.Name, method, err)
		}
		id := sub.TxID
		result.MultisigTxID = &id
		result.Tx = &types.TxResult{TxHash: sub.SubmitTxHash, Success: true}
		e.log.Info().
			Str("contract", c.Name).
			Str("method", method).
			Uint64("multisigTxID", id).
			Str("txHash", sub.SubmitTxHash).
			Msg("Call submitted to multisig")
	default:
		_, tx, err := e.sender.SendAndWait(ctx, c.Address, value, data)
		result.Tx = tx
		if err != nil {
			return result, fmt.Errorf("%s.%s: %w", c.Name, method, err)
		}
		e.log.Info().
			Str("contract", c.Name).
			Str("method", method).
			Str("txHash", tx.TxHash).
			Uint64("gasUsed", tx.GasUsed).
			Msg("Call executed")
	}
	return result, nil
}
