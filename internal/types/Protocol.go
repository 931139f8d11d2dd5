/*

Snapshots of protocol contract state read by the operations and checks.

*/

package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// LoanTokenInfo is the state of a lending pool (iToken).
type LoanTokenInfo struct {
	Address               common.Address `json:"address"`
	Underlying            common.Address `json:"underlying"`
	TokenPrice            *big.Int       `json:"token_price"`
	TotalSupply           *big.Int       `json:"total_supply"`
	TotalAssetSupply      *big.Int       `json:"total_asset_supply"`
	TotalAssetBorrow      *big.Int       `json:"total_asset_borrow"`
	MarketLiquidity       *big.Int       `json:"market_liquidity"`
	BorrowInterestRate    *big.Int       `json:"borrow_interest_rate"`
	SupplyInterestRate    *big.Int       `json:"supply_interest_rate"`
	AvgBorrowInterestRate *big.Int       `json:"avg_borrow_interest_rate"`
	BaseRate              *big.Int       `json:"base_rate"`
	RateMultiplier        *big.Int       `json:"rate_multiplier"`
	LowUtilBaseRate       *big.Int       `json:"low_util_base_rate"`
	LowUtilRateMultiplier *big.Int       `json:"low_util_rate_multiplier"`
	TargetLevel           *big.Int       `json:"target_level"`
	KinkLevel             *big.Int       `json:"kink_level"`
	MaxScaleRate          *big.Int       `json:"max_scale_rate"`
}

// Loan mirrors the protocol's getLoan return data.
type Loan struct {
	LoanID                   common.Hash    `json:"loan_id"`
	LoanToken                common.Address `json:"loan_token"`
	CollateralToken          common.Address `json:"collateral_token"`
	Principal                *big.Int       `json:"principal"`
	Collateral               *big.Int       `json:"collateral"`
	InterestOwedPerDay       *big.Int       `json:"interest_owed_per_day"`
	InterestDepositRemaining *big.Int       `json:"interest_deposit_remaining"`
	StartRate                *big.Int       `json:"start_rate"`
	StartMargin              *big.Int       `json:"start_margin"`
	MaintenanceMargin        *big.Int       `json:"maintenance_margin"`
	CurrentMargin            *big.Int       `json:"current_margin"`
	MaxLoanTerm              *big.Int       `json:"max_loan_term"`
	EndTimestamp             *big.Int       `json:"end_timestamp"`
	MaxLiquidatable          *big.Int       `json:"max_liquidatable"`
	MaxSeizable              *big.Int       `json:"max_seizable"`
}

// ReserveInfo is one reserve of an AMM converter.
type ReserveInfo struct {
	Token   common.Address `json:"token"`
	Balance *big.Int       `json:"balance"`
	Weight  uint32         `json:"weight"`
}

// ConverterInfo is the state of an AMM converter.
type ConverterInfo struct {
	Address          common.Address `json:"address"`
	Anchor           common.Address `json:"anchor"`
	Owner            common.Address `json:"owner"`
	ConverterType    uint16         `json:"converter_type"`
	ConversionFee    uint32         `json:"conversion_fee_ppm"`
	MaxConversionFee uint32         `json:"max_conversion_fee_ppm"`
	Reserves         []ReserveInfo  `json:"reserves"`
}
