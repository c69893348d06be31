package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pw/paywallet/internal/domain"
)

// WalletRepository defines data access for wallets.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByUserID(ctx context.Context, userID int64) (*domain.Wallet, error)
	GetByUserIDTx(ctx context.Context, tx Transaction, userID int64) (*domain.Wallet, error)
	GetByRequestID(ctx context.Context, tx Transaction, requestID string) (*domain.Wallet, error)
	// UpdateBalance persists a new balance conditioned on the version the
	// caller read. Zero rows affected means the read was stale and the
	// write is rejected with domain.ErrVersionConflict.
	UpdateBalance(ctx context.Context, tx Transaction, id string, balance int64, expectedVersion int64, requestID string, updatedAt time.Time) error
}

// EntryRepository defines data access for ledger entries.
type EntryRepository interface {
	Create(ctx context.Context, tx Transaction, entry *domain.LedgerEntry) error
	UpdateStatusByTransfer(ctx context.Context, tx Transaction, transferID string, status domain.EntryStatus, updatedAt time.Time) error
	GetByID(ctx context.Context, id string) (*domain.LedgerEntry, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*domain.LedgerEntry, error)
	List(ctx context.Context, limit, offset int) ([]*domain.LedgerEntry, error)
	ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]*domain.LedgerEntry, error)
}

// OutboxRepository defines data access for staged domain events.
type OutboxRepository interface {
	Create(ctx context.Context, event *domain.OutboxEvent) error
	CreateTx(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// RawEventRepository defines data access for ingested event records.
type RawEventRepository interface {
	// Insert stores the record keyed by its event ID. It reports false
	// without error when a record with the same event ID already exists.
	Insert(ctx context.Context, event *domain.RawEvent) (bool, error)
}

// SummaryRepository defines the atomic insert-or-increment operations
// behind the daily aggregate tables, plus their read paths.
type SummaryRepository interface {
	IncrementUserCredits(ctx context.Context, userID int64, date time.Time, amount decimal.Decimal) error
	IncrementUserDebits(ctx context.Context, userID int64, date time.Time, amount decimal.Decimal) error
	IncrementUserFailed(ctx context.Context, userID int64, date time.Time) error

	IncrementSystemTxn(ctx context.Context, date time.Time, amount decimal.Decimal) error
	IncrementSystemFailed(ctx context.Context, date time.Time) error
	IncrementUserCreated(ctx context.Context, date time.Time) error

	IncrementLogin(ctx context.Context, userID int64, date time.Time) error
	IncrementLogout(ctx context.Context, userID int64, date time.Time) error
	IncrementFailedLogin(ctx context.Context, userID int64, date time.Time) error
	IncrementTokenRefresh(ctx context.Context, userID int64, date time.Time) error

	ListUserDaily(ctx context.Context, userID int64, from, to time.Time) ([]*domain.DailyUserSummary, error)
	ListSystemDaily(ctx context.Context, from, to time.Time) ([]*domain.DailySystemSummary, error)
	ListAuthDaily(ctx context.Context, userID int64, from, to time.Time) ([]*domain.AuthSummary, error)
}

// WalletService is the remote wallet ledger surface consumed by the
// transfer orchestrator. Implementations must bound every call with a
// deadline and surface transport faults as domain.ErrWalletUnavailable.
type WalletService interface {
	Transfer(ctx context.Context, fromUserID, toUserID, amount int64, requestID string) (*WalletResult, error)
	Credit(ctx context.Context, userID, amount int64, requestID string) (*WalletResult, error)
	Debit(ctx context.Context, userID, amount int64, requestID string) (*WalletResult, error)
}

// WalletResult is the outcome of a wallet ledger operation. Success=false
// with a nil error is a normal business outcome (insufficient balance,
// duplicate request), not a fault.
type WalletResult struct {
	Success   bool
	Message   string
	Balance   int64
	RequestID string
	UpdatedAt time.Time
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation that failed with a transient storage
// error. Implementations must not retry permanent errors.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique row IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles request idempotency snapshots.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}
