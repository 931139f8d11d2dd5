package ops

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/DistributedCollective/sovryn-ops/internal/contracts"
	"github.com/DistributedCollective/sovryn-ops/internal/types"
)

// Converter administers an AMM liquidity pool converter (V1 or V2).
type Converter struct {
	exec     *Executor
	contract *contracts.Contract
}

func NewConverter(exec *Executor, name string, address common.Address) *Converter {
	return &Converter{exec: exec, contract: contracts.New(name, address, contracts.Converter)}
}

func (c *Converter) Contract() *contracts.Contract {
	return c.contract
}

// Info reads the converter's anchor, owner, fees and reserves.
func (c *Converter) Info(ctx context.Context) (*types.ConverterInfo, error) {
	caller := c.exec.Caller()
	info := &types.ConverterInfo{Address: c.contract.Address}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		info.Anchor, err = c.contract.CallAddress(gctx, caller, "anchor")
		return err
	})
	g.Go(func() (err error) {
		info.Owner, err = c.contract.CallAddress(gctx, caller, "owner")
		return err
	})
	g.Go(func() error {
		v, err := c.contract.CallBig(gctx, caller, "converterType")
		if err != nil {
			return err
		}
		info.ConverterType = uint16(v.Uint64())
		return nil
	})
	g.Go(func() error {
		v, err := c.contract.CallBig(gctx, caller, "conversionFee")
		if err != nil {
			return err
		}
		info.ConversionFee = uint32(v.Uint64())
		return nil
	})
	g.Go(func() error {
		v, err := c.contract.CallBig(gctx, caller, "maxConversionFee")
		if err != nil {
			return err
		}
		info.MaxConversionFee = uint32(v.Uint64())
		return nil
	})
	g.Go(func() error {
		reserves, err := c.Reserves(gctx)
		if err != nil {
			return err
		}
		info.Reserves = reserves
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return info, nil
}

// Reserves lists every reserve token with its balance and weight.
func (c *Converter) Reserves(ctx context.Context) ([]types.ReserveInfo, error) {
	caller := c.exec.Caller()
	count, err := c.contract.CallBig(ctx, caller, "reserveTokenCount")
	if err != nil {
		return nil, err
	}
	reserves := make([]types.ReserveInfo, count.Uint64())
	for i := range reserves {
		token, err := c.contract.CallAddress(ctx, caller, "reserveTokens", big.NewInt(int64(i)))
		if err != nil {
			return nil, err
		}
		balance, err := c.contract.CallBig(ctx, caller, "reserveBalance", token)
		if err != nil {
			return nil, err
		}
		weight, err := c.contract.CallBig(ctx, caller, "reserveWeight", token)
		if err != nil {
			return nil, err
		}
		reserves[i] = types.ReserveInfo{Token: token, Balance: balance, Weight: uint32(weight.Uint64())}
	}
	return reserves, nil
}

// TargetAmountAndFee asks the converter for the return of a source→target conversion.
func (c *Converter) TargetAmountAndFee(ctx context.Context, source, target common.Address, amount *big.Int) (*big.Int, *big.Int, error) {
	values, err := c.contract.Call(ctx, c.exec.Caller(), "targetAmountAndFee", source, target, amount)
	if err != nil {
		return nil, nil, err
	}
	out, err := contracts.AsBig(values, 0)
	if err != nil {
		return nil, nil, err
	}
	fee, err := contracts.AsBig(values, 1)
	if err != nil {
		return nil, nil, err
	}
	return out, fee, nil
}

// SetConversionFee sets the fee in parts per million. It must not exceed maxConversionFee.
func (c *Converter) SetConversionFee(ctx context.Context, feePPM uint32) (*types.ExecutionResult, error) {
	maxFee, err := c.contract.CallBig(ctx, c.exec.Caller(), "maxConversionFee")
	if err != nil {
		return nil, err
	}
	if uint64(feePPM) > maxFee.Uint64() {
		return nil, fmt.Errorf("%w: fee %d ppm above maximum %s ppm", ErrInvalidArgument, feePPM, maxFee)
	}
	return c.exec.Execute(ctx, c.contract, "setConversionFee", feePPM)
}

func (c *Converter) TransferOwnership(ctx context.Context, newOwner common.Address) (*types.ExecutionResult, error) {
	return c.exec.Execute(ctx, c.contract, "transferOwnership", newOwner)
}

// AcceptOwnership completes a two-step ownership transfer. It is always sent by the
// pending owner, so the multisig route applies when newOwner() is the multisig.
func (c *Converter) AcceptOwnership(ctx context.Context) (*types.ExecutionResult, error) {
	pending, err := c.contract.CallAddress(ctx, c.exec.Caller(), "newOwner")
	if err != nil {
		return nil, err
	}
	exec := c.exec
	if w := exec.Wallet(); w != nil && pending == w.Address() && exec.route == types.RouteAuto {
		exec = exec.Routed(types.RouteMultisig)
	}
	return exec.Execute(ctx, c.contract, "acceptOwnership")
}

// Network is the SovrynSwapNetwork router.
type Network struct {
	exec     *Executor
	contract *contracts.Contract
}

func NewNetwork(exec *Executor, address common.Address) *Network {
	return &Network{exec: exec, contract: contracts.New("sovrynSwapNetwork", address, contracts.SovrynSwapNetwork)}
}

func (n *Network) ConversionPath(ctx context.Context, source, target common.Address) ([]common.Address, error) {
	values, err := n.contract.Call(ctx, n.exec.Caller(), "conversionPath", source, target)
	if err != nil {
		return nil, err
	}
	path, ok := values[0].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("%w: %T is not an address list", contracts.ErrUnexpectedType, values[0])
	}
	return path, nil
}

// RateByPath returns the expected output for amount along path, fees included.
func (n *Network) RateByPath(ctx context.Context, path []common.Address, amount *big.Int) (*big.Int, error) {
	if len(path) < 3 || len(path)%2 == 0 {
		return nil, fmt.Errorf("%w: conversion path must have an odd length of at least 3", ErrInvalidArgument)
	}
	return n.contract.CallBig(ctx, n.exec.Caller(), "rateByPath", path, amount)
}
