package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pw/paywallet/internal/adapter/http/dto"
	"github.com/pw/paywallet/internal/domain"
	"github.com/pw/paywallet/internal/usecase"
)

// TransactionService defines the behavior needed by TransactionHandler.
type TransactionService interface {
	Transfer(ctx context.Context, senderID, receiverID, amount int64) (*usecase.WalletResult, error)
	Credit(ctx context.Context, userID, amount int64, referenceID string) (*domain.LedgerEntry, error)
	Debit(ctx context.Context, userID, amount int64, referenceID string) (*domain.LedgerEntry, error)
	GetTransactionsByUser(ctx context.Context, userID int64, limit, offset int) ([]*domain.LedgerEntry, error)
	GetTransactionByID(ctx context.Context, id string) (*domain.LedgerEntry, error)
	GetAllTransactions(ctx context.Context, limit, offset int) ([]*domain.LedgerEntry, error)
}

// ReconcileService settles stranded PENDING transfers on demand.
type ReconcileService interface {
	Run(ctx context.Context, cutoff time.Time, limit int) (*usecase.ReconcileResult, error)
}

// TransactionHandler handles transaction-related HTTP requests.
type TransactionHandler struct {
	txnUC       TransactionService
	reconcileUC ReconcileService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(txnUC TransactionService, reconcileUC ReconcileService) *TransactionHandler {
	return &TransactionHandler{txnUC: txnUC, reconcileUC: reconcileUC}
}

// Transfer orchestrates a transfer between two users.
func (h *TransactionHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req dto.TransactionTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := h.txnUC.Transfer(r.Context(), req.SenderID, req.ReceiverID, req.Amount)
	if err != nil {
		writeError(w, mapDomainError(err), "transfer failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.WalletResultFromUseCase(result))
}

// Credit records a single-sided credit, e.g. a top-up.
func (h *TransactionHandler) Credit(w http.ResponseWriter, r *http.Request) {
	h.operation(w, r, h.txnUC.Credit)
}

// Debit records a single-sided debit, e.g. a payout.
func (h *TransactionHandler) Debit(w http.ResponseWriter, r *http.Request) {
	h.operation(w, r, h.txnUC.Debit)
}

func (h *TransactionHandler) operation(w http.ResponseWriter, r *http.Request, op func(context.Context, int64, int64, string) (*domain.LedgerEntry, error)) {
	var req dto.TransactionOperationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	entry, err := op(r.Context(), req.UserID, req.Amount, req.ReferenceID)
	if err != nil {
		writeError(w, mapDomainError(err), "transaction failed", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.TransactionFromDomain(entry))
}

// Get retrieves one transaction by ID.
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing transaction ID", "")
		return
	}

	entry, err := h.txnUC.GetTransactionByID(r.Context(), id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get transaction", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(entry))
}

// ListByUser lists one user's transactions.
func (h *TransactionHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user ID", err.Error())
		return
	}

	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	entries, err := h.txnUC.GetTransactionsByUser(r.Context(), userID, limit, offset)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list transactions", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ListTransactionsResponse{
		Transactions: dto.TransactionsFromDomain(entries),
		Total:        int64(len(entries)),
	})
}

// Reconcile runs one reconciliation pass immediately. The optional lag
// query parameter excludes entries newer than the given duration.
func (h *TransactionHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	lag := time.Duration(0)
	if raw := r.URL.Query().Get("lag"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid lag duration", err.Error())
			return
		}
		lag = parsed
	}
	limit := parseIntQuery(r, "limit", 100)

	result, err := h.reconcileUC.Run(r.Context(), time.Now().UTC().Add(-lag), limit)
	if err != nil {
		writeError(w, mapDomainError(err), "reconciliation failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ReconcileFromUseCase(result))
}

// List lists transactions across all users.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	entries, err := h.txnUC.GetAllTransactions(r.Context(), limit, offset)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list transactions", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ListTransactionsResponse{
		Transactions: dto.TransactionsFromDomain(entries),
		Total:        int64(len(entries)),
	})
}
