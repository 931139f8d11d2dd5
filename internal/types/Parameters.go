/*

Protocol-level parameters that deployment checks compare against on-chain values.
All percentages use the protocol's 1e18 = 1% convention.

*/

package types

import "math/big"

type ProtocolParameters struct {
	LendingFeePercent           *big.Int `json:"lending_fee_percent"`           // Share of interest kept by the protocol.
	TradingFeePercent           *big.Int `json:"trading_fee_percent"`           // Fee on swaps done while opening/closing positions.
	BorrowingFeePercent         *big.Int `json:"borrowing_fee_percent"`         // Fee on borrowed principal.
	LiquidationIncentivePercent *big.Int `json:"liquidation_incentive_percent"` // Bonus paid to liquidators.
	MaintenanceMargin           *big.Int `json:"maintenance_margin"`            // Margin at which a loan becomes liquidatable.
	MaxMarginTradeDuration      uint64   `json:"max_margin_trade_duration"`     // Seconds of interest pre-paid on margin trades.
}
