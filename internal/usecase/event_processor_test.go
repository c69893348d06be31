package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/pw/paywallet/internal/domain"
	"github.com/pw/paywallet/internal/usecase"
	"github.com/pw/paywallet/internal/usecase/mocks"
)

func newEventProcessor(rawRepo *mocks.MockRawEventRepository, summaryRepo *mocks.MockSummaryRepository) *usecase.EventProcessorUseCase {
	return usecase.NewEventProcessorUseCase(rawRepo, summaryRepo, mocks.NewMockIDGenerator(), zerolog.Nop())
}

func ptr(v int64) *int64 { return &v }

func envelope(eventType, eventID string, userID *int64, payload map[string]any) *domain.EventEnvelope {
	return &domain.EventEnvelope{
		EventType: eventType,
		EventID:   eventID,
		Timestamp: time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC),
		UserID:    userID,
		Payload:   payload,
	}
}

func TestEventProcessor_Routing(t *testing.T) {
	date := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		env    *domain.EventEnvelope
		verify func(t *testing.T, repo *mocks.MockSummaryRepository)
	}{
		{
			name: "USER_CREATED bumps system new users",
			env:  envelope(domain.EventTypeUserCreated, "ev-1", ptr(1), nil),
			verify: func(t *testing.T, repo *mocks.MockSummaryRepository) {
				s := repo.System[date.Format("2006-01-02")]
				if s == nil || s.NewUsers != 1 {
					t.Errorf("expected 1 new user, got %+v", s)
				}
			},
		},
		{
			name: "WALLET_CREDITED adds to user credits and system volume",
			env:  envelope(domain.EventTypeWalletCredited, "ev-1", ptr(7), map[string]any{"amount": "250.50"}),
			verify: func(t *testing.T, repo *mocks.MockSummaryRepository) {
				u := repo.Users["7/2026-03-15"]
				if u == nil || !u.TotalCredits.Equal(decimal.RequireFromString("250.50")) {
					t.Fatalf("expected credits 250.50, got %+v", u)
				}
				if !u.NetChange.Equal(decimal.RequireFromString("250.50")) {
					t.Errorf("expected net change 250.50, got %s", u.NetChange)
				}
				s := repo.System[date.Format("2006-01-02")]
				if s == nil || s.TotalTxns != 1 || !s.TotalVolume.Equal(decimal.RequireFromString("250.50")) {
					t.Errorf("expected system txn recorded, got %+v", s)
				}
			},
		},
		{
			name: "WALLET_DEBITED adds to user debits",
			env:  envelope(domain.EventTypeWalletDebited, "ev-1", ptr(7), map[string]any{"amount": "100"}),
			verify: func(t *testing.T, repo *mocks.MockSummaryRepository) {
				u := repo.Users["7/2026-03-15"]
				if u == nil || !u.TotalDebits.Equal(decimal.NewFromInt(100)) {
					t.Fatalf("expected debits 100, got %+v", u)
				}
				if !u.NetChange.Equal(decimal.NewFromInt(-100)) {
					t.Errorf("expected net change -100, got %s", u.NetChange)
				}
			},
		},
		{
			name: "successful WALLET_TRANSFER debits sender and credits receiver",
			env: envelope(domain.EventTypeWalletTransfer, "ev-1", ptr(1), map[string]any{
				"amount": "300", "fromUserId": "1", "toUserId": "2", "success": true,
			}),
			verify: func(t *testing.T, repo *mocks.MockSummaryRepository) {
				from := repo.Users["1/2026-03-15"]
				to := repo.Users["2/2026-03-15"]
				if from == nil || !from.TotalDebits.Equal(decimal.NewFromInt(300)) {
					t.Errorf("expected sender debits 300, got %+v", from)
				}
				if to == nil || !to.TotalCredits.Equal(decimal.NewFromInt(300)) {
					t.Errorf("expected receiver credits 300, got %+v", to)
				}
				s := repo.System[date.Format("2006-01-02")]
				if s == nil || s.TotalTxns != 1 {
					t.Errorf("expected one system txn, got %+v", s)
				}
			},
		},
		{
			name: "failed WALLET_TRANSFER counts one system failure only",
			env: envelope(domain.EventTypeWalletTransfer, "ev-1", ptr(1), map[string]any{
				"amount": "300", "fromUserId": "1", "toUserId": "2", "success": false,
			}),
			verify: func(t *testing.T, repo *mocks.MockSummaryRepository) {
				if len(repo.Users) != 0 {
					t.Errorf("expected no user rows, got %v", repo.Users)
				}
				s := repo.System[date.Format("2006-01-02")]
				if s == nil || s.FailedTxns != 1 || s.TotalTxns != 0 {
					t.Errorf("expected one failed system txn, got %+v", s)
				}
			},
		},
		{
			name: "WALLET_FAILED counts user and system failures",
			env:  envelope(domain.EventTypeWalletFailed, "ev-1", ptr(7), map[string]any{"amount": "100"}),
			verify: func(t *testing.T, repo *mocks.MockSummaryRepository) {
				u := repo.Users["7/2026-03-15"]
				if u == nil || u.FailedTxns != 1 {
					t.Errorf("expected user failed txn, got %+v", u)
				}
				s := repo.System[date.Format("2006-01-02")]
				if s == nil || s.FailedTxns != 1 {
					t.Errorf("expected system failed txn, got %+v", s)
				}
			},
		},
		{
			name: "TRANSACTION_RECORDED credit routes like a credit",
			env: envelope(domain.EventTypeTxnRecorded, "ev-1", ptr(3), map[string]any{
				"type": "CREDIT", "status": "SUCCESS", "amount": "42",
			}),
			verify: func(t *testing.T, repo *mocks.MockSummaryRepository) {
				u := repo.Users["3/2026-03-15"]
				if u == nil || !u.TotalCredits.Equal(decimal.NewFromInt(42)) {
					t.Errorf("expected credits 42, got %+v", u)
				}
			},
		},
		{
			name: "TRANSACTION_RECORDED failure routes to failure counters",
			env: envelope(domain.EventTypeTxnRecorded, "ev-1", ptr(3), map[string]any{
				"type": "DEBIT", "status": "FAILED", "amount": "42",
			}),
			verify: func(t *testing.T, repo *mocks.MockSummaryRepository) {
				u := repo.Users["3/2026-03-15"]
				if u == nil || u.FailedTxns != 1 || !u.TotalDebits.IsZero() {
					t.Errorf("expected only failure counted, got %+v", u)
				}
			},
		},
		{
			name: "USER_LOGGED_IN bumps logins",
			env:  envelope(domain.EventTypeUserLoggedIn, "ev-1", ptr(5), nil),
			verify: func(t *testing.T, repo *mocks.MockSummaryRepository) {
				a := repo.Auth["5/2026-03-15"]
				if a == nil || a.Logins != 1 {
					t.Errorf("expected 1 login, got %+v", a)
				}
			},
		},
		{
			name: "TOKEN_REFRESHED bumps refreshes",
			env:  envelope(domain.EventTypeTokenRefreshed, "ev-1", ptr(5), nil),
			verify: func(t *testing.T, repo *mocks.MockSummaryRepository) {
				a := repo.Auth["5/2026-03-15"]
				if a == nil || a.TokenRefreshes != 1 {
					t.Errorf("expected 1 token refresh, got %+v", a)
				}
			},
		},
		{
			name: "AUTH_FAILED without user counts anonymously",
			env:  envelope(domain.EventTypeAuthFailed, "ev-1", nil, map[string]any{"email": "ghost@example.com"}),
			verify: func(t *testing.T, repo *mocks.MockSummaryRepository) {
				if len(repo.Auth) != 0 {
					t.Errorf("expected no per-user auth row, got %v", repo.Auth)
				}
				s := repo.System[date.Format("2006-01-02")]
				if s == nil || s.FailedTxns != 1 {
					t.Errorf("expected anonymous failure counted, got %+v", s)
				}
			},
		},
		{
			name: "unknown event type is acknowledged without effect",
			env:  envelope("SOMETHING_NEW", "ev-1", ptr(1), nil),
			verify: func(t *testing.T, repo *mocks.MockSummaryRepository) {
				if len(repo.Users) != 0 || len(repo.System) != 0 || len(repo.Auth) != 0 {
					t.Error("expected no aggregates touched")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rawRepo := mocks.NewMockRawEventRepository()
			summaryRepo := mocks.NewMockSummaryRepository()

			uc := newEventProcessor(rawRepo, summaryRepo)
			if err := uc.Process(context.Background(), tt.env); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rawRepo.Stored(tt.env.EventID) == nil {
				t.Error("expected raw event recorded")
			}
			tt.verify(t, summaryRepo)
		})
	}
}

func TestEventProcessor_DuplicateDelivery(t *testing.T) {
	rawRepo := mocks.NewMockRawEventRepository()
	summaryRepo := mocks.NewMockSummaryRepository()
	uc := newEventProcessor(rawRepo, summaryRepo)

	env := envelope(domain.EventTypeWalletCredited, "ev-dup", ptr(7), map[string]any{"amount": "100"})

	for i := 0; i < 3; i++ {
		if err := uc.Process(context.Background(), env); err != nil {
			t.Fatalf("delivery %d: %v", i, err)
		}
	}

	u := summaryRepo.Users["7/2026-03-15"]
	if u == nil || !u.TotalCredits.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected credits counted exactly once, got %+v", u)
	}
}

func TestEventProcessor_FailureWithholdsAck(t *testing.T) {
	rawRepo := mocks.NewMockRawEventRepository()
	summaryRepo := mocks.NewMockSummaryRepository()
	summaryRepo.Err = errors.New("db down")
	uc := newEventProcessor(rawRepo, summaryRepo)

	env := envelope(domain.EventTypeWalletCredited, "ev-1", ptr(7), map[string]any{"amount": "100"})
	if err := uc.Process(context.Background(), env); err == nil {
		t.Fatal("expected error so the delivery is redelivered")
	}
}

func TestEventProcessor_MissingTimestampUsesIngestionDate(t *testing.T) {
	rawRepo := mocks.NewMockRawEventRepository()
	summaryRepo := mocks.NewMockSummaryRepository()
	uc := newEventProcessor(rawRepo, summaryRepo)

	env := &domain.EventEnvelope{
		EventType: domain.EventTypeUserLoggedIn,
		EventID:   "ev-nots",
		UserID:    ptr(5),
	}
	if err := uc.Process(context.Background(), env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	today := time.Now().UTC().Format("2006-01-02")
	if a := summaryRepo.Auth["5/"+today]; a == nil || a.Logins != 1 {
		t.Errorf("expected login aggregated under today's date, got %v", summaryRepo.Auth)
	}
}
