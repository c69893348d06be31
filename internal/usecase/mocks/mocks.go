package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pw/paywallet/internal/domain"
	"github.com/pw/paywallet/internal/usecase"
)

// MockTransaction is a no-op usecase.Transaction.
type MockTransaction struct {
	Committed  bool
	RolledBack bool

	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

func (t *MockTransaction) Commit(ctx context.Context) error {
	if t.CommitFunc != nil {
		return t.CommitFunc(ctx)
	}
	t.Committed = true
	return nil
}

func (t *MockTransaction) Rollback(ctx context.Context) error {
	if t.RollbackFunc != nil {
		return t.RollbackFunc(ctx)
	}
	if !t.Committed {
		t.RolledBack = true
	}
	return nil
}

// MockTxManager is a mock implementation of TransactionManager.
type MockTxManager struct {
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

func (m *MockTxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return &MockTransaction{}, nil
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	mu   sync.Mutex
	next int

	GenerateFunc func() string
}

func NewMockIDGenerator() *MockIDGenerator { return &MockIDGenerator{} }

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	return fmt.Sprintf("id-%04d", m.next)
}

// MockWalletRepository is a mock implementation of WalletRepository with
// an in-memory default behavior, including the version check.
type MockWalletRepository struct {
	mu      sync.RWMutex
	wallets map[int64]*domain.Wallet

	CreateFunc         func(ctx context.Context, wallet *domain.Wallet) error
	GetByUserIDFunc    func(ctx context.Context, userID int64) (*domain.Wallet, error)
	GetByUserIDTxFunc  func(ctx context.Context, tx usecase.Transaction, userID int64) (*domain.Wallet, error)
	GetByRequestIDFunc func(ctx context.Context, tx usecase.Transaction, requestID string) (*domain.Wallet, error)
	UpdateBalanceFunc  func(ctx context.Context, tx usecase.Transaction, id string, balance int64, expectedVersion int64, requestID string, updatedAt time.Time) error
}

func NewMockWalletRepository() *MockWalletRepository {
	return &MockWalletRepository{wallets: make(map[int64]*domain.Wallet)}
}

// Seed stores a wallet directly, bypassing uniqueness checks.
func (m *MockWalletRepository) Seed(wallet *domain.Wallet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wallets[wallet.UserID] = wallet
}

func (m *MockWalletRepository) Create(ctx context.Context, wallet *domain.Wallet) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, wallet)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.wallets[wallet.UserID]; ok {
		return domain.ErrWalletExists
	}
	for _, w := range m.wallets {
		if w.LastRequestID != "" && w.LastRequestID == wallet.LastRequestID {
			return domain.ErrWalletExists
		}
	}
	cp := *wallet
	m.wallets[wallet.UserID] = &cp
	return nil
}

func (m *MockWalletRepository) GetByUserID(ctx context.Context, userID int64) (*domain.Wallet, error) {
	if m.GetByUserIDFunc != nil {
		return m.GetByUserIDFunc(ctx, userID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if w, ok := m.wallets[userID]; ok {
		cp := *w
		return &cp, nil
	}
	return nil, domain.ErrWalletNotFound
}

func (m *MockWalletRepository) GetByUserIDTx(ctx context.Context, tx usecase.Transaction, userID int64) (*domain.Wallet, error) {
	if m.GetByUserIDTxFunc != nil {
		return m.GetByUserIDTxFunc(ctx, tx, userID)
	}
	return m.GetByUserID(ctx, userID)
}

func (m *MockWalletRepository) GetByRequestID(ctx context.Context, tx usecase.Transaction, requestID string) (*domain.Wallet, error) {
	if m.GetByRequestIDFunc != nil {
		return m.GetByRequestIDFunc(ctx, tx, requestID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, w := range m.wallets {
		if w.LastRequestID == requestID {
			cp := *w
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MockWalletRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, id string, balance int64, expectedVersion int64, requestID string, updatedAt time.Time) error {
	if m.UpdateBalanceFunc != nil {
		return m.UpdateBalanceFunc(ctx, tx, id, balance, expectedVersion, requestID, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.wallets {
		if w.ID == id {
			if w.Version != expectedVersion {
				return domain.ErrVersionConflict
			}
			w.Balance = balance
			w.Version++
			w.LastRequestID = requestID
			w.UpdatedAt = updatedAt
			return nil
		}
	}
	return domain.ErrWalletNotFound
}

// MockEntryRepository is a mock implementation of EntryRepository.
type MockEntryRepository struct {
	mu      sync.RWMutex
	entries []*domain.LedgerEntry

	CreateFunc                 func(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error
	UpdateStatusByTransferFunc func(ctx context.Context, tx usecase.Transaction, transferID string, status domain.EntryStatus, updatedAt time.Time) error
	GetByIDFunc                func(ctx context.Context, id string) (*domain.LedgerEntry, error)
	ListByUserFunc             func(ctx context.Context, userID int64, limit, offset int) ([]*domain.LedgerEntry, error)
	ListFunc                   func(ctx context.Context, limit, offset int) ([]*domain.LedgerEntry, error)
	ListPendingBeforeFunc      func(ctx context.Context, cutoff time.Time, limit int) ([]*domain.LedgerEntry, error)
}

func NewMockEntryRepository() *MockEntryRepository { return &MockEntryRepository{} }

// Entries returns a snapshot of all stored entries.
func (m *MockEntryRepository) Entries() []*domain.LedgerEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.LedgerEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

func (m *MockEntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *entry
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *MockEntryRepository) UpdateStatusByTransfer(ctx context.Context, tx usecase.Transaction, transferID string, status domain.EntryStatus, updatedAt time.Time) error {
	if m.UpdateStatusByTransferFunc != nil {
		return m.UpdateStatusByTransferFunc(ctx, tx, transferID, status, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.TransferID == transferID {
			e.Status = status
			e.UpdatedAt = updatedAt
		}
	}
	return nil
}

func (m *MockEntryRepository) GetByID(ctx context.Context, id string) (*domain.LedgerEntry, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.entries {
		if e.ID == id {
			cp := *e
			return &cp, nil
		}
	}
	return nil, domain.ErrTransactionNotFound
}

func (m *MockEntryRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*domain.LedgerEntry, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.LedgerEntry
	for _, e := range m.entries {
		if e.UserID == userID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockEntryRepository) List(ctx context.Context, limit, offset int) ([]*domain.LedgerEntry, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return m.Entries(), nil
}

func (m *MockEntryRepository) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]*domain.LedgerEntry, error) {
	if m.ListPendingBeforeFunc != nil {
		return m.ListPendingBeforeFunc(ctx, cutoff, limit)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.LedgerEntry
	for _, e := range m.entries {
		if e.Status == domain.EntryPending && e.CreatedAt.Before(cutoff) {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// MockOutboxRepository is a mock implementation of OutboxRepository.
type MockOutboxRepository struct {
	mu     sync.RWMutex
	events []*domain.OutboxEvent

	CreateFunc          func(ctx context.Context, event *domain.OutboxEvent) error
	CreateTxFunc        func(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error
	GetUnpublishedFunc  func(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublishedFunc   func(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublishedFunc func(ctx context.Context, before time.Time) error
}

func NewMockOutboxRepository() *MockOutboxRepository { return &MockOutboxRepository{} }

// Events returns a snapshot of all staged events.
func (m *MockOutboxRepository) Events() []*domain.OutboxEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.OutboxEvent, len(m.events))
	copy(out, m.events)
	return out
}

func (m *MockOutboxRepository) Create(ctx context.Context, event *domain.OutboxEvent) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *MockOutboxRepository) CreateTx(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	if m.CreateTxFunc != nil {
		return m.CreateTxFunc(ctx, tx, event)
	}
	return m.Create(ctx, event)
}

func (m *MockOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	if m.GetUnpublishedFunc != nil {
		return m.GetUnpublishedFunc(ctx, limit)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.OutboxEvent
	for _, e := range m.events {
		if !e.Published {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	if m.MarkPublishedFunc != nil {
		return m.MarkPublishedFunc(ctx, id, publishedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.ID == id {
			e.Published = true
			e.PublishedAt = &publishedAt
		}
	}
	return nil
}

func (m *MockOutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	if m.DeletePublishedFunc != nil {
		return m.DeletePublishedFunc(ctx, before)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.events[:0]
	for _, e := range m.events {
		if !e.Published || e.PublishedAt == nil || !e.PublishedAt.Before(before) {
			kept = append(kept, e)
		}
	}
	m.events = kept
	return nil
}

// MockRawEventRepository is a mock implementation of RawEventRepository.
type MockRawEventRepository struct {
	mu   sync.Mutex
	seen map[string]*domain.RawEvent

	InsertFunc func(ctx context.Context, event *domain.RawEvent) (bool, error)
}

func NewMockRawEventRepository() *MockRawEventRepository {
	return &MockRawEventRepository{seen: make(map[string]*domain.RawEvent)}
}

func (m *MockRawEventRepository) Insert(ctx context.Context, event *domain.RawEvent) (bool, error) {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seen[event.EventID]; ok {
		return false, nil
	}
	m.seen[event.EventID] = event
	return true, nil
}

// Stored returns the raw event recorded for an event ID, if any.
func (m *MockRawEventRepository) Stored(eventID string) *domain.RawEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seen[eventID]
}

// MockSummaryRepository accumulates counters in memory, mirroring the
// insert-or-increment semantics of the real store.
type MockSummaryRepository struct {
	mu sync.Mutex

	Users  map[string]*domain.DailyUserSummary
	System map[string]*domain.DailySystemSummary
	Auth   map[string]*domain.AuthSummary

	Err error // when set, every increment fails with this error
}

func NewMockSummaryRepository() *MockSummaryRepository {
	return &MockSummaryRepository{
		Users:  make(map[string]*domain.DailyUserSummary),
		System: make(map[string]*domain.DailySystemSummary),
		Auth:   make(map[string]*domain.AuthSummary),
	}
}

func userKey(userID int64, date time.Time) string {
	return fmt.Sprintf("%d/%s", userID, date.Format("2006-01-02"))
}

func (m *MockSummaryRepository) user(userID int64, date time.Time) *domain.DailyUserSummary {
	key := userKey(userID, date)
	if m.Users[key] == nil {
		m.Users[key] = &domain.DailyUserSummary{
			UserID:       userID,
			Date:         date,
			TotalCredits: decimal.Zero,
			TotalDebits:  decimal.Zero,
			NetChange:    decimal.Zero,
		}
	}
	return m.Users[key]
}

func (m *MockSummaryRepository) system(date time.Time) *domain.DailySystemSummary {
	key := date.Format("2006-01-02")
	if m.System[key] == nil {
		m.System[key] = &domain.DailySystemSummary{Date: date, TotalVolume: decimal.Zero}
	}
	return m.System[key]
}

func (m *MockSummaryRepository) auth(userID int64, date time.Time) *domain.AuthSummary {
	key := userKey(userID, date)
	if m.Auth[key] == nil {
		m.Auth[key] = &domain.AuthSummary{UserID: userID, Date: date}
	}
	return m.Auth[key]
}

func (m *MockSummaryRepository) IncrementUserCredits(ctx context.Context, userID int64, date time.Time, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	u := m.user(userID, date)
	u.TotalCredits = u.TotalCredits.Add(amount)
	u.NetChange = u.NetChange.Add(amount)
	return nil
}

func (m *MockSummaryRepository) IncrementUserDebits(ctx context.Context, userID int64, date time.Time, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	u := m.user(userID, date)
	u.TotalDebits = u.TotalDebits.Add(amount)
	u.NetChange = u.NetChange.Sub(amount)
	return nil
}

func (m *MockSummaryRepository) IncrementUserFailed(ctx context.Context, userID int64, date time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.user(userID, date).FailedTxns++
	return nil
}

func (m *MockSummaryRepository) IncrementSystemTxn(ctx context.Context, date time.Time, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	s := m.system(date)
	s.TotalTxns++
	s.TotalVolume = s.TotalVolume.Add(amount)
	return nil
}

func (m *MockSummaryRepository) IncrementSystemFailed(ctx context.Context, date time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.system(date).FailedTxns++
	return nil
}

func (m *MockSummaryRepository) IncrementUserCreated(ctx context.Context, date time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	s := m.system(date)
	s.NewUsers++
	s.TotalUsers++
	return nil
}

func (m *MockSummaryRepository) IncrementLogin(ctx context.Context, userID int64, date time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.auth(userID, date).Logins++
	return nil
}

func (m *MockSummaryRepository) IncrementLogout(ctx context.Context, userID int64, date time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.auth(userID, date).Logouts++
	return nil
}

func (m *MockSummaryRepository) IncrementFailedLogin(ctx context.Context, userID int64, date time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.auth(userID, date).FailedLogins++
	return nil
}

func (m *MockSummaryRepository) IncrementTokenRefresh(ctx context.Context, userID int64, date time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.auth(userID, date).TokenRefreshes++
	return nil
}

func (m *MockSummaryRepository) ListUserDaily(ctx context.Context, userID int64, from, to time.Time) ([]*domain.DailyUserSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.DailyUserSummary
	for _, u := range m.Users {
		if u.UserID == userID && !u.Date.Before(from) && !u.Date.After(to) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *MockSummaryRepository) ListSystemDaily(ctx context.Context, from, to time.Time) ([]*domain.DailySystemSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.DailySystemSummary
	for _, s := range m.System {
		if !s.Date.Before(from) && !s.Date.After(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MockSummaryRepository) ListAuthDaily(ctx context.Context, userID int64, from, to time.Time) ([]*domain.AuthSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.AuthSummary
	for _, a := range m.Auth {
		if a.UserID == userID && !a.Date.Before(from) && !a.Date.After(to) {
			out = append(out, a)
		}
	}
	return out, nil
}

// MockWalletService is a mock implementation of WalletService.
type MockWalletService struct {
	mu    sync.Mutex
	Calls []string

	TransferFunc func(ctx context.Context, fromUserID, toUserID, amount int64, requestID string) (*usecase.WalletResult, error)
	CreditFunc   func(ctx context.Context, userID, amount int64, requestID string) (*usecase.WalletResult, error)
	DebitFunc    func(ctx context.Context, userID, amount int64, requestID string) (*usecase.WalletResult, error)
}

func NewMockWalletService() *MockWalletService { return &MockWalletService{} }

func (m *MockWalletService) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}

func (m *MockWalletService) Transfer(ctx context.Context, fromUserID, toUserID, amount int64, requestID string) (*usecase.WalletResult, error) {
	m.record("transfer")
	if m.TransferFunc != nil {
		return m.TransferFunc(ctx, fromUserID, toUserID, amount, requestID)
	}
	return &usecase.WalletResult{Success: true, RequestID: requestID}, nil
}

func (m *MockWalletService) Credit(ctx context.Context, userID, amount int64, requestID string) (*usecase.WalletResult, error) {
	m.record("credit")
	if m.CreditFunc != nil {
		return m.CreditFunc(ctx, userID, amount, requestID)
	}
	return &usecase.WalletResult{Success: true, RequestID: requestID}, nil
}

func (m *MockWalletService) Debit(ctx context.Context, userID, amount int64, requestID string) (*usecase.WalletResult, error) {
	m.record("debit")
	if m.DebitFunc != nil {
		return m.DebitFunc(ctx, userID, amount, requestID)
	}
	return &usecase.WalletResult{Success: true, RequestID: requestID}, nil
}
