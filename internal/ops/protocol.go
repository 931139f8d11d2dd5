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

// maxFeePercent is 100% in the protocol's 1e18 = 1% convention.
var maxFeePercent = new(big.Int).Mul(big.NewInt(100), big.NewInt(1e18))

// Protocol administers the sovrynProtocol proxy.
type Protocol struct {
	exec     *Executor
	contract *contracts.Contract
}

func NewProtocol(exec *Executor, address common.Address) *Protocol {
	return &Protocol{exec: exec, contract: contracts.New("sovrynProtocol", address, contracts.Protocol)}
}

func (p *Protocol) Contract() *contracts.Contract {
	return p.contract
}

func (p *Protocol) SetLendingFeePercent(ctx context.Context, percent *big.Int) (*types.ExecutionResult, error) {
	return p.setPercent(ctx, "setLendingFeePercent", percent)
}

func (p *Protocol) SetTradingFeePercent(ctx context.Context, percent *big.Int) (*types.ExecutionResult, error) {
	return p.setPercent(ctx, "setTradingFeePercent", percent)
}

func (p *Protocol) SetBorrowingFeePercent(ctx context.Context, percent *big.Int) (*types.ExecutionResult, error) {
	return p.setPercent(ctx, "setBorrowingFeePercent", percent)
}

func (p *Protocol) SetLiquidationIncentivePercent(ctx context.Context, percent *big.Int) (*types.ExecutionResult, error) {
	return p.setPercent(ctx, "setLiquidationIncentivePercent", percent)
}

func (p *Protocol) setPercent(ctx context.Context, method string, percent *big.Int) (*types.ExecutionResult, error) {
	if percent == nil || percent.Sign() < 0 || percent.Cmp(maxFeePercent) > 0 {
		return nil, fmt.Errorf("%w: %s value must be within 0..100%%", ErrInvalidArgument, method)
	}
	return p.exec.Execute(ctx, p.contract, method, percent)
}

func (p *Protocol) SetFeesController(ctx context.Context, controller common.Address) (*types.ExecutionResult, error) {
	return p.exec.Execute(ctx, p.contract, "setFeesController", controller)
}

func (p *Protocol) TogglePaused(ctx context.Context, paused bool) (*types.ExecutionResult, error) {
	return p.exec.Execute(ctx, p.contract, "togglePaused", paused)
}

func (p *Protocol) IsPaused(ctx context.Context) (bool, error) {
	return p.contract.CallBool(ctx, p.exec.Caller(), "isProtocolPaused")
}

func (p *Protocol) PriceFeeds(ctx context.Context) (common.Address, error) {
	return p.contract.CallAddress(ctx, p.exec.Caller(), "priceFeeds")
}

// ReadFees reads the fee settings in parallel. The maintenance margin and trade duration
// are per loan params on chain and are filled from defaults.
func (p *Protocol) ReadFees(ctx context.Context, defaults types.ProtocolParameters) (*types.ProtocolParameters, error) {
	params := defaults
	targets := []struct {
		method string
		dst    **big.Int
	}{
		{"lendingFeePercent", &params.LendingFeePercent},
		{"tradingFeePercent", &params.TradingFeePercent},
		{"borrowingFeePercent", &params.BorrowingFeePercent},
		{"liquidationIncentivePercent", &params.LiquidationIncentivePercent},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, target := range targets {
		g.Go(func() error {
			v, err := p.contract.CallBig(gctx, p.exec.Caller(), target.method)
			if err != nil {
				return err
			}
			*target.dst = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &params, nil
}

// ReadLoan returns the getLoan view of loanID. An unknown id yields a zero loan id.
func (p *Protocol) ReadLoan(ctx context.Context, loanID common.Hash) (*types.Loan, error) {
	values, err := p.contract.Call(ctx, p.exec.Caller(), "getLoan", loanID)
	if err != nil {
		return nil, err
	}
	if len(values) != 15 {
		return nil, fmt.Errorf("%w: getLoan returned %d values", contracts.ErrUnexpectedType, len(values))
	}
	id, ok := values[0].([32]byte)
	if !ok {
		return nil, fmt.Errorf("%w: %T is not bytes32", contracts.ErrUnexpectedType, values[0])
	}
	loan := &types.Loan{LoanID: common.Hash(id)}
	if loan.LoanToken, err = contracts.AsAddress(values, 1); err != nil {
		return nil, err
	}
	if loan.CollateralToken, err = contracts.AsAddress(values, 2); err != nil {
		return nil, err
	}
	amounts := []**big.Int{
		&loan.Principal, &loan.Collateral, &loan.InterestOwedPerDay, &loan.InterestDepositRemaining,
		&loan.StartRate, &loan.StartMargin, &loan.MaintenanceMargin, &loan.CurrentMargin,
		&loan.MaxLoanTerm, &loan.EndTimestamp, &loan.MaxLiquidatable, &loan.MaxSeizable,
	}
	for i, dst := range amounts {
		if *dst, err = contracts.AsBig(values, i+3); err != nil {
			return nil, err
		}
	}
	return loan, nil
}

// QueryRate asks the price feeds for the source→dest rate and its precision.
func (p *Protocol) QueryRate(ctx context.Context, feeds, source, dest common.Address) (rate, precision *big.Int, err error) {
	c := contracts.New("priceFeeds", feeds, contracts.PriceFeeds)
	values, err := c.Call(ctx, p.exec.Caller(), "queryRate", source, dest)
	if err != nil {
		return nil, nil, err
	}
	if rate, err = contracts.AsBig(values, 0); err != nil {
		return nil, nil, err
	}
	if precision, err = contracts.AsBig(values, 1); err != nil {
		return nil, nil, err
	}
	return rate, precision, nil
}
