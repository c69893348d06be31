package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pw/paywallet/internal/adapter/http/dto"
	"github.com/pw/paywallet/internal/domain"
	"github.com/pw/paywallet/internal/usecase"
)

// WalletService defines the behavior needed by WalletHandler.
type WalletService interface {
	CreateWallet(ctx context.Context, input usecase.CreateWalletInput) (*usecase.WalletResult, error)
	GetWallet(ctx context.Context, userID int64) (*domain.Wallet, error)
	Credit(ctx context.Context, input usecase.OperationInput) (*usecase.WalletResult, error)
	Debit(ctx context.Context, input usecase.OperationInput) (*usecase.WalletResult, error)
	Transfer(ctx context.Context, input usecase.TransferInput) (*usecase.WalletResult, error)
}

// WalletHandler handles wallet-related HTTP requests.
type WalletHandler struct {
	walletUC WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletUC WalletService) *WalletHandler {
	return &WalletHandler{walletUC: walletUC}
}

// Create creates a new wallet.
func (h *WalletHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := h.walletUC.CreateWallet(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to create wallet", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.WalletResultFromUseCase(result))
}

// Get retrieves a wallet by user ID.
func (h *WalletHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user ID", err.Error())
		return
	}

	wallet, err := h.walletUC.GetWallet(r.Context(), userID)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get wallet", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.WalletFromDomain(wallet))
}

// Credit credits a wallet.
func (h *WalletHandler) Credit(w http.ResponseWriter, r *http.Request) {
	h.operation(w, r, h.walletUC.Credit)
}

// Debit debits a wallet. An insufficient balance is a 200 with
// success=false, not an error status.
func (h *WalletHandler) Debit(w http.ResponseWriter, r *http.Request) {
	h.operation(w, r, h.walletUC.Debit)
}

func (h *WalletHandler) operation(w http.ResponseWriter, r *http.Request, op func(context.Context, usecase.OperationInput) (*usecase.WalletResult, error)) {
	userID, err := parseUserID(chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user ID", err.Error())
		return
	}

	var req dto.WalletOperationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := op(r.Context(), req.ToUseCaseInput(userID))
	if err != nil {
		writeError(w, mapDomainError(err), "wallet operation failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.WalletResultFromUseCase(result))
}

// Transfer moves balance between two wallets.
func (h *WalletHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req dto.WalletTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.RequestID == "" {
		writeError(w, http.StatusBadRequest, "missing requestId", "")
		return
	}

	result, err := h.walletUC.Transfer(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeError(w, mapDomainError(err), "transfer failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.WalletResultFromUseCase(result))
}
