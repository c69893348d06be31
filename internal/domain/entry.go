package domain

import "time"

// EntryDirection marks which side of a movement an entry records.
type EntryDirection string

const (
	EntryDebit  EntryDirection = "DEBIT"
	EntryCredit EntryDirection = "CREDIT"
)

// EntryStatus is the settlement state of a ledger entry.
type EntryStatus string

const (
	EntrySuccess EntryStatus = "SUCCESS"
	EntryFailed  EntryStatus = "FAILED"
	EntryPending EntryStatus = "PENDING"
)

// LedgerEntry is one side of a recorded transaction. A transfer produces
// exactly two entries sharing a TransferID; a single-sided credit or debit
// produces one. Entries are append-only: after creation only the status
// moves (PENDING to SUCCESS or FAILED once the wallet call settles).
type LedgerEntry struct {
	ID          string
	UserID      int64
	Amount      int64
	Direction   EntryDirection
	Status      EntryStatus
	TransferID  string
	RequestID   string
	ReferenceID string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
