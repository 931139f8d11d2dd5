/*

Types for CSV-driven token distributions (airdrops and vesting creation).

*/

package types

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type DistributionKind string

const (
	DistributionAirdrop DistributionKind = "airdrop"
	DistributionVesting DistributionKind = "vesting"
)

// VestingKind selects between VestingRegistry.createVesting and createTeamVesting.
type VestingKind string

const (
	VestingRegular VestingKind = "regular"
	VestingTeam    VestingKind = "team"
)

// DistributionRow is one parsed CSV line.
type DistributionRow struct {
	Line          int            `json:"line"`
	Address       common.Address `json:"address"`
	Amount        *big.Int       `json:"amount"`      // base units
	AmountText    string         `json:"amount_text"` // as written in the CSV
	CliffWeeks    uint64         `json:"cliff_weeks,omitempty"`
	DurationWeeks uint64         `json:"duration_weeks,omitempty"`
	Kind          VestingKind    `json:"kind,omitempty"`
}

type EntryStatus string

const (
	EntryCompleted EntryStatus = "completed"
	EntrySubmitted EntryStatus = "submitted" // waiting on multisig confirmations
	EntryFailed    EntryStatus = "failed"
	EntrySkipped   EntryStatus = "skipped"
	EntryDryRun    EntryStatus = "dry_run"

	// EntryCreatePending: the vesting contract creation is waiting on the multisig,
	// approve and stake still have to follow.
	EntryCreatePending EntryStatus = "create_pending"
	// EntryUnconfirmed: a transaction was broadcast but its receipt never arrived.
	EntryUnconfirmed EntryStatus = "unconfirmed"
)

// Settled reports whether a row in this status must not be sent again.
func (s EntryStatus) Settled() bool {
	return s == EntryCompleted || s == EntrySubmitted
}

// DistributionRun describes one execution of a CSV file.
type DistributionRun struct {
	RunID      int64            `json:"run_id,omitempty"`
	RunUUID    string           `json:"run_uuid"`
	Name       string           `json:"name"`
	Kind       DistributionKind `json:"kind"`
	Network    string           `json:"network"`
	CSVHash    string           `json:"csv_hash"`
	Token      common.Address   `json:"token"`
	Rows       int              `json:"rows"`
	TotalText  string           `json:"total"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
	Completed  int              `json:"completed"`
	Submitted  int              `json:"submitted"`
	Failed     int              `json:"failed"`
	Skipped    int              `json:"skipped"`
	DryRun     bool             `json:"dry_run"`
}

// DistributionEntry is the outcome of one row.
type DistributionEntry struct {
	EntryID      int64           `json:"entry_id,omitempty"`
	RunID        int64           `json:"run_id"`
	Line         int             `json:"line"`
	Address      common.Address  `json:"address"`
	AmountText   string          `json:"amount"`
	Status       EntryStatus     `json:"status"`
	Step         string          `json:"step,omitempty"` // last call attempted: transfer, create, approve or stake
	TxHashes     []string        `json:"tx_hashes"`
	MultisigTxID *uint64         `json:"multisig_tx_id,omitempty"`
	Vesting      *common.Address `json:"vesting,omitempty"`
	Message      string          `json:"message,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
}
