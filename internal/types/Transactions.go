/*

Types describing transactions sent by the toolkit and multisig wallet state.

*/

package types

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// TxResult contains the execution details of a broadcast transaction.
type TxResult struct {
	TxHash       string   `json:"tx_hash"`
	Nonce        uint64   `json:"nonce"`
	GasLimit     uint64   `json:"gas_limit"`
	GasUsed      uint64   `json:"gas_used,omitempty"`
	GasPrice     *big.Int `json:"gas_price"`
	BlockNumber  uint64   `json:"block_number,omitempty"`
	Success      bool     `json:"success"`
	ErrorMessage string   `json:"error_message,omitempty"`
}

// Route selects how a contract call reaches the chain.
type Route string

const (
	RouteAuto     Route = "auto"     // multisig when the target is owned by the multisig, direct otherwise
	RouteDirect   Route = "direct"   // signed and sent by the configured key
	RouteMultisig Route = "multisig" // wrapped in MultiSigWallet.submitTransaction
)

// ExecutionResult is what an operation reports after routing a call.
type ExecutionResult struct {
	Route        Route          `json:"route"`
	Target       common.Address `json:"target"`
	Method       string         `json:"method"`
	DataHex      string         `json:"data"`
	Tx           *TxResult      `json:"tx,omitempty"`
	MultisigTxID *uint64        `json:"multisig_tx_id,omitempty"`
	DryRun       bool           `json:"dry_run,omitempty"`
}

// MultisigTransaction mirrors MultiSigWallet.transactions(id) plus confirmation data.
type MultisigTransaction struct {
	ID            uint64           `json:"id"`
	Destination   common.Address   `json:"destination"`
	Value         *big.Int         `json:"value"`
	Data          []byte           `json:"data"`
	Executed      bool             `json:"executed"`
	Confirmations []common.Address `json:"confirmations"`
	Required      uint64           `json:"required"`
}

// Ready reports whether enough owners confirmed for execution.
func (t MultisigTransaction) Ready() bool {
	return !t.Executed && uint64(len(t.Confirmations)) >= t.Required
}

// Submission is a multisig submission recorded in the ledger.
type Submission struct {
	SubmissionID  int64          `json:"submission_id,omitempty"` // Auto-incremented by DB
	Network       string         `json:"network"`
	Wallet        common.Address `json:"wallet"`
	TxID          uint64         `json:"tx_id"`
	Target        common.Address `json:"target"`
	Method        string         `json:"method,omitempty"`
	DataHex       string         `json:"data"`
	Value         *big.Int       `json:"value"`
	SubmitTxHash  string         `json:"submit_tx_hash"`
	Submitter     common.Address `json:"submitter"`
	SubmittedAt   time.Time      `json:"submitted_at"`
	Confirmations int            `json:"confirmations"`
	Executed      bool           `json:"executed"`
	UpdatedAt     time.Time      `json:"updated_at,omitempty"`
}
