/*

This file contains the protocol parameters a deployment is expected to carry.

The deployment checks compare live values against these; a mismatch usually means a
governance proposal is still pending or a network was configured by hand.

*/

package config

import (
	"math/big"

	"github.com/DistributedCollective/sovryn-ops/internal/types"
)

// DefaultProtocolParameters are the values set by the protocol deployment scripts.
// Percentages use 1e18 = 1%.
var DefaultProtocolParameters = types.ProtocolParameters{
	LendingFeePercent: mustBig("10000000000000000000"), // 10% of interest paid by borrowers.
	// Rationale: the protocol share of lender revenue, routed to the fee sharing proxy.

	TradingFeePercent: mustBig("150000000000000000"), // 0.15% of the swapped amount.

	BorrowingFeePercent: mustBig("90000000000000000"), // 0.09% of borrowed principal.

	LiquidationIncentivePercent: mustBig("5000000000000000000"), // 5% bonus in collateral for liquidators.

	MaintenanceMargin: mustBig("15000000000000000000"), // 15% margin before a position can be liquidated.
	// Rationale: matches the loan params registered for every iToken/collateral pair.

	MaxMarginTradeDuration: 2419200, // 28 days of interest deposited when a margin trade opens.
}

func mustBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("config: bad integer literal " + s)
	}
	return v
}
