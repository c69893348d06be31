package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/pw/paywallet/internal/adapter/http/dto"
	"github.com/pw/paywallet/internal/domain"
	"github.com/pw/paywallet/internal/usecase"
)

type walletServiceStub struct {
	createFn   func(ctx context.Context, input usecase.CreateWalletInput) (*usecase.WalletResult, error)
	getFn      func(ctx context.Context, userID int64) (*domain.Wallet, error)
	creditFn   func(ctx context.Context, input usecase.OperationInput) (*usecase.WalletResult, error)
	debitFn    func(ctx context.Context, input usecase.OperationInput) (*usecase.WalletResult, error)
	transferFn func(ctx context.Context, input usecase.TransferInput) (*usecase.WalletResult, error)
}

func (s *walletServiceStub) CreateWallet(ctx context.Context, input usecase.CreateWalletInput) (*usecase.WalletResult, error) {
	return s.createFn(ctx, input)
}

func (s *walletServiceStub) GetWallet(ctx context.Context, userID int64) (*domain.Wallet, error) {
	return s.getFn(ctx, userID)
}

func (s *walletServiceStub) Credit(ctx context.Context, input usecase.OperationInput) (*usecase.WalletResult, error) {
	return s.creditFn(ctx, input)
}

func (s *walletServiceStub) Debit(ctx context.Context, input usecase.OperationInput) (*usecase.WalletResult, error) {
	return s.debitFn(ctx, input)
}

func (s *walletServiceStub) Transfer(ctx context.Context, input usecase.TransferInput) (*usecase.WalletResult, error) {
	return s.transferFn(ctx, input)
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestWalletHandler_Create_Success(t *testing.T) {
	var captured usecase.CreateWalletInput
	handler := NewWalletHandler(&walletServiceStub{
		createFn: func(ctx context.Context, input usecase.CreateWalletInput) (*usecase.WalletResult, error) {
			captured = input
			return &usecase.WalletResult{Success: true, Message: "Wallet created successfully"}, nil
		},
	})

	body, _ := json.Marshal(dto.CreateWalletRequest{
		UserID:     42,
		WalletType: "CUSTOMER",
		RequestID:  "req-1",
	})

	req := httptest.NewRequest(http.MethodPost, "/wallets", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.UserID != 42 || captured.WalletType != domain.WalletTypeCustomer {
		t.Fatalf("expected input to match request, got %+v", captured)
	}
}

func TestWalletHandler_Create_Duplicate(t *testing.T) {
	handler := NewWalletHandler(&walletServiceStub{
		createFn: func(ctx context.Context, input usecase.CreateWalletInput) (*usecase.WalletResult, error) {
			return nil, domain.ErrWalletExists
		},
	})

	body, _ := json.Marshal(dto.CreateWalletRequest{UserID: 42, WalletType: "CUSTOMER"})
	req := httptest.NewRequest(http.MethodPost, "/wallets", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestWalletHandler_Get(t *testing.T) {
	handler := NewWalletHandler(&walletServiceStub{
		getFn: func(ctx context.Context, userID int64) (*domain.Wallet, error) {
			if userID != 42 {
				return nil, domain.ErrWalletNotFound
			}
			return &domain.Wallet{ID: "w-1", UserID: 42, Balance: 700, Currency: "INR"}, nil
		},
	})

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/wallets/42", nil), "userId", "42")
	rec := httptest.NewRecorder()
	handler.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp dto.WalletResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Balance != 700 {
		t.Fatalf("expected balance 700, got %d", resp.Balance)
	}

	req = withURLParam(httptest.NewRequest(http.MethodGet, "/wallets/99", nil), "userId", "99")
	rec = httptest.NewRecorder()
	handler.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestWalletHandler_Debit_InsufficientBalance(t *testing.T) {
	handler := NewWalletHandler(&walletServiceStub{
		debitFn: func(ctx context.Context, input usecase.OperationInput) (*usecase.WalletResult, error) {
			return &usecase.WalletResult{Success: false, Message: "Insufficient balance", Balance: 50}, nil
		},
	})

	body, _ := json.Marshal(dto.WalletOperationRequest{Amount: 100})
	req := withURLParam(httptest.NewRequest(http.MethodPost, "/wallets/42/debit", bytes.NewReader(body)), "userId", "42")
	rec := httptest.NewRecorder()

	handler.Debit(rec, req)

	// Business rejection is a 200 carrying success=false.
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp dto.WalletResultResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Success || resp.Balance != 50 {
		t.Fatalf("expected success=false balance=50, got %+v", resp)
	}
}

func TestWalletHandler_Transfer(t *testing.T) {
	t.Run("missing request id rejected", func(t *testing.T) {
		handler := NewWalletHandler(&walletServiceStub{
			transferFn: func(ctx context.Context, input usecase.TransferInput) (*usecase.WalletResult, error) {
				t.Fatal("Transfer should not be called without requestId")
				return nil, nil
			},
		})

		body, _ := json.Marshal(dto.WalletTransferRequest{FromUserID: 1, ToUserID: 2, Amount: 100})
		req := httptest.NewRequest(http.MethodPost, "/wallets/transfer", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		handler.Transfer(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("version conflict maps to 409", func(t *testing.T) {
		handler := NewWalletHandler(&walletServiceStub{
			transferFn: func(ctx context.Context, input usecase.TransferInput) (*usecase.WalletResult, error) {
				return nil, domain.ErrVersionConflict
			},
		})

		body, _ := json.Marshal(dto.WalletTransferRequest{FromUserID: 1, ToUserID: 2, Amount: 100, RequestID: "req-1"})
		req := httptest.NewRequest(http.MethodPost, "/wallets/transfer", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		handler.Transfer(rec, req)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		handler := NewWalletHandler(&walletServiceStub{
			transferFn: func(ctx context.Context, input usecase.TransferInput) (*usecase.WalletResult, error) {
				return &usecase.WalletResult{Success: true, Message: "Transfer successful", Balance: 700, RequestID: input.RequestID}, nil
			},
		})

		body, _ := json.Marshal(dto.WalletTransferRequest{FromUserID: 1, ToUserID: 2, Amount: 300, RequestID: "req-1"})
		req := httptest.NewRequest(http.MethodPost, "/wallets/transfer", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		handler.Transfer(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var resp dto.WalletResultResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if !resp.Success || resp.RequestID != "req-1" {
			t.Fatalf("unexpected response: %+v", resp)
		}
	})
}
