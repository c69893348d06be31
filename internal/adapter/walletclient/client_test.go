package walletclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pw/paywallet/internal/domain"
)

func TestClientTransferSuccess(t *testing.T) {
	var gotPath string
	var gotBody transferRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(walletResponse{
			Success:   true,
			Message:   "Transfer successful",
			Balance:   700,
			RequestID: gotBody.RequestID,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, zerolog.Nop())
	result, err := client.Transfer(context.Background(), 1, 2, 300, "req-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/api/v1/wallets/transfer" {
		t.Errorf("unexpected path %s", gotPath)
	}
	if gotBody.FromUserID != 1 || gotBody.ToUserID != 2 || gotBody.Amount != 300 {
		t.Errorf("unexpected body %+v", gotBody)
	}
	if !result.Success || result.Balance != 700 || result.RequestID != "req-1" {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(walletResponse{Success: true, Balance: 500})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, zerolog.Nop())
	result, err := client.Credit(context.Background(), 1, 500, "req-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
	if !result.Success {
		t.Error("expected success after retry")
	}
}

func TestClientSendsIdempotencyKeyOnEveryAttempt(t *testing.T) {
	var keys []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		if len(keys) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(walletResponse{Success: true, Balance: 700, RequestID: "req-7"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, zerolog.Nop())
	if _, err := client.Credit(context.Background(), 1, 200, "req-7"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(keys) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(keys))
	}
	for i, key := range keys {
		if key != "req-7" {
			t.Errorf("attempt %d: expected Idempotency-Key req-7, got %q", i+1, key)
		}
	}
}

func TestClientMapsMissingWalletToNotFound(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "failed to get wallet"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, zerolog.Nop())
	_, err := client.Credit(context.Background(), 99, 200, "req-1")
	if !errors.Is(err, domain.ErrWalletNotFound) {
		t.Fatalf("expected ErrWalletNotFound, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected no retries for a missing wallet, got %d calls", calls.Load())
	}
}

func TestClientBusinessRejectionIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(walletResponse{
			Success: false,
			Message: "Insufficient balance",
			Balance: 50,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, zerolog.Nop())
	result, err := client.Debit(context.Background(), 1, 100, "req-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Success {
		t.Error("expected success=false")
	}
	if result.Message != "Insufficient balance" {
		t.Errorf("unexpected message %q", result.Message)
	}
}

func TestClientGivesUpWhenUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing is listening anymore

	client := NewClient(srv.URL, 50*time.Millisecond, zerolog.Nop())
	if _, err := client.Transfer(context.Background(), 1, 2, 300, "req-1"); err == nil {
		t.Fatal("expected transport error")
	}
}
