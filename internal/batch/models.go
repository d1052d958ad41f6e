package batch

import (
	"time"

	"bindery/internal/repo"
)

// Status tracks a ledger record through its lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Record is one submission ledger row. A record is created pending when a
// locator enters a run and resolves to succeeded or failed exactly once per
// attempt; retries bump Attempts and may flip a failed record to succeeded.
type Record struct {
	ID           int64
	RunID        string
	Locator      string
	Checksum     string
	CollectionID int64
	Status       Status
	FailureKind  repo.FailureKind
	ErrorMessage string
	Location     string
	ResponseJSON string
	Attempts     int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Terminal reports whether the record has resolved.
func (r *Record) Terminal() bool {
	return r.Status == StatusSucceeded || r.Status == StatusFailed
}

// LedgerSummary aggregates ledger state for diagnostic output.
type LedgerSummary struct {
	Total     int
	Pending   int
	Succeeded int
	Failed    int
}
