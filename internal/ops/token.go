package ops

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/DistributedCollective/sovryn-ops/internal/contracts"
	"github.com/DistributedCollective/sovryn-ops/internal/types"
)

// Token wraps an ERC20 contract.
type Token struct {
	exec     *Executor
	contract *contracts.Contract
}

func NewToken(exec *Executor, name string, address common.Address) *Token {
	return &Token{exec: exec, contract: contracts.New(name, address, contracts.ERC20)}
}

func (t *Token) Contract() *contracts.Contract {
	return t.contract
}

func (t *Token) Address() common.Address {
	return t.contract.Address
}

func (t *Token) Transfer(ctx context.Context, to common.Address, amount *big.Int) (*types.ExecutionResult, error) {
	if err := requirePositive("amount", amount); err != nil {
		return nil, err
	}
	return t.exec.Execute(ctx, t.contract, "transfer", to, amount)
}

func (t *Token) Approve(ctx context.Context, spender common.Address, amount *big.Int) (*types.ExecutionResult, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, fmt.Errorf("%w: approval amount must be non-negative", ErrInvalidArgument)
	}
	return t.exec.Execute(ctx, t.contract, "approve", spender, amount)
}

func (t *Token) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	return t.contract.CallBig(ctx, t.exec.Caller(), "balanceOf", account)
}

func (t *Token) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	return t.contract.CallBig(ctx, t.exec.Caller(), "allowance", owner, spender)
}

func (t *Token) TotalSupply(ctx context.Context) (*big.Int, error) {
	return t.contract.CallBig(ctx, t.exec.Caller(), "totalSupply")
}

// Decimals returns the token's decimals as an int for amount conversion.
func (t *Token) Decimals(ctx context.Context) (int, error) {
	d, err := t.contract.CallBig(ctx, t.exec.Caller(), "decimals")
	if err != nil {
		return 0, err
	}
	if !d.IsInt64() || d.Int64() > 77 {
		return 0, fmt.Errorf("%w: %s decimals %s", contracts.ErrUnexpectedType, t.contract.Name, d)
	}
	return int(d.Int64()), nil
}

func (t *Token) Symbol(ctx context.Context) (string, error) {
	values, err := t.contract.Call(ctx, t.exec.Caller(), "symbol")
	if err != nil {
		return "", err
	}
	s, ok := values[0].(string)
	if !ok {
		return "", fmt.Errorf("%w: %T is not a string", contracts.ErrUnexpectedType, values[0])
	}
	return s, nil
}

func requirePositive(name string, v *big.Int) error {
	if v == nil || v.Sign() <= 0 {
		return fmt.Errorf("%w: %s must be positive", ErrInvalidArgument, name)
	}
	return nil
}
