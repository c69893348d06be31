package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawEvent is the durable record of every ingested envelope, keyed
// uniquely by EventID. Row existence is the sole de-duplication signal
// for the aggregation pipeline.
type RawEvent struct {
	ID         string
	EventType  string
	EventID    string
	UserID     *int64
	Payload    []byte
	ReceivedAt time.Time
}

// DailyUserSummary accumulates per-user movement for one UTC date.
// Counters only ever move by increments; they are never recomputed.
type DailyUserSummary struct {
	UserID       int64
	Date         time.Time
	TotalCredits decimal.Decimal
	TotalDebits  decimal.Decimal
	NetChange    decimal.Decimal
	FailedTxns   int64
	LastUpdated  time.Time
}

// DailySystemSummary accumulates system-wide activity for one UTC date.
type DailySystemSummary struct {
	Date        time.Time
	TotalUsers  int64
	NewUsers    int64
	TotalTxns   int64
	FailedTxns  int64
	TotalVolume decimal.Decimal
	LastUpdated time.Time
}

// AuthSummary accumulates per-user authentication activity for one UTC date.
type AuthSummary struct {
	UserID         int64
	Date           time.Time
	Logins         int64
	Logouts        int64
	FailedLogins   int64
	TokenRefreshes int64
	LastUpdated    time.Time
}
