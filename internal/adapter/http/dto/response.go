package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pw/paywallet/internal/domain"
	"github.com/pw/paywallet/internal/usecase"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WalletResultResponse is the outcome of a wallet mutation.
type WalletResultResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Balance   int64     `json:"balance"`
	RequestID string    `json:"requestId,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// WalletResultFromUseCase converts a use case result to a response.
func WalletResultFromUseCase(r *usecase.WalletResult) WalletResultResponse {
	return WalletResultResponse{
		Success:   r.Success,
		Message:   r.Message,
		Balance:   r.Balance,
		RequestID: r.RequestID,
		UpdatedAt: r.UpdatedAt,
	}
}

// ReconcileResponse summarizes a reconciliation pass.
type ReconcileResponse struct {
	Scanned   int       `json:"scanned"`
	Settled   int       `json:"settled"`
	Failed    int       `json:"failed"`
	Deferred  int       `json:"deferred"`
	CheckedAt time.Time `json:"checkedAt"`
}

// ReconcileFromUseCase converts a reconciliation result to a response.
func ReconcileFromUseCase(r *usecase.ReconcileResult) ReconcileResponse {
	return ReconcileResponse{
		Scanned:   r.Scanned,
		Settled:   r.Settled,
		Failed:    r.Failed,
		Deferred:  r.Deferred,
		CheckedAt: r.CheckedAt,
	}
}

// WalletResponse represents a wallet snapshot.
type WalletResponse struct {
	ID         string    `json:"id"`
	UserID     int64     `json:"userId"`
	WalletType string    `json:"walletType"`
	Balance    int64     `json:"balance"`
	Currency   string    `json:"currency"`
	Version    int64     `json:"version"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// WalletFromDomain converts a domain wallet to a response.
func WalletFromDomain(w *domain.Wallet) WalletResponse {
	return WalletResponse{
		ID:         w.ID,
		UserID:     w.UserID,
		WalletType: string(w.WalletType),
		Balance:    w.Balance,
		Currency:   w.Currency,
		Version:    w.Version,
		CreatedAt:  w.CreatedAt,
		UpdatedAt:  w.UpdatedAt,
	}
}

// TransactionResponse represents a ledger entry.
type TransactionResponse struct {
	ID          string    `json:"id"`
	UserID      int64     `json:"userId"`
	Amount      int64     `json:"amount"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	TransferID  string    `json:"transferId"`
	ReferenceID string    `json:"referenceId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TransactionFromDomain converts a domain ledger entry to a response.
func TransactionFromDomain(e *domain.LedgerEntry) TransactionResponse {
	return TransactionResponse{
		ID:          e.ID,
		UserID:      e.UserID,
		Amount:      e.Amount,
		Type:        string(e.Direction),
		Status:      string(e.Status),
		TransferID:  e.TransferID,
		ReferenceID: e.ReferenceID,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

// TransactionsFromDomain converts a slice of ledger entries.
func TransactionsFromDomain(entries []*domain.LedgerEntry) []TransactionResponse {
	out := make([]TransactionResponse, len(entries))
	for i, e := range entries {
		out[i] = TransactionFromDomain(e)
	}
	return out
}

// ListTransactionsResponse wraps a page of ledger entries.
type ListTransactionsResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	Total        int64                 `json:"total"`
}

// UserDailySummaryResponse represents one user-day aggregate row.
type UserDailySummaryResponse struct {
	UserID       int64           `json:"userId"`
	Date         string          `json:"date"`
	TotalCredits decimal.Decimal `json:"totalCredits"`
	TotalDebits  decimal.Decimal `json:"totalDebits"`
	NetChange    decimal.Decimal `json:"netChange"`
	FailedTxns   int64           `json:"failedTxnCount"`
	LastUpdated  time.Time       `json:"lastUpdated"`
}

// UserDailyFromDomain converts user daily summaries to responses.
func UserDailyFromDomain(summaries []*domain.DailyUserSummary) []UserDailySummaryResponse {
	out := make([]UserDailySummaryResponse, len(summaries))
	for i, s := range summaries {
		out[i] = UserDailySummaryResponse{
			UserID:       s.UserID,
			Date:         s.Date.Format("2006-01-02"),
			TotalCredits: s.TotalCredits,
			TotalDebits:  s.TotalDebits,
			NetChange:    s.NetChange,
			FailedTxns:   s.FailedTxns,
			LastUpdated:  s.LastUpdated,
		}
	}
	return out
}

// SystemDailySummaryResponse represents one system-day aggregate row.
type SystemDailySummaryResponse struct {
	Date        string          `json:"date"`
	TotalUsers  int64           `json:"totalUsers"`
	NewUsers    int64           `json:"newUsers"`
	TotalTxns   int64           `json:"totalTxnCount"`
	FailedTxns  int64           `json:"failedTxnCount"`
	TotalVolume decimal.Decimal `json:"totalVolume"`
	LastUpdated time.Time       `json:"lastUpdated"`
}

// SystemDailyFromDomain converts system daily summaries to responses.
func SystemDailyFromDomain(summaries []*domain.DailySystemSummary) []SystemDailySummaryResponse {
	out := make([]SystemDailySummaryResponse, len(summaries))
	for i, s := range summaries {
		out[i] = SystemDailySummaryResponse{
			Date:        s.Date.Format("2006-01-02"),
			TotalUsers:  s.TotalUsers,
			NewUsers:    s.NewUsers,
			TotalTxns:   s.TotalTxns,
			FailedTxns:  s.FailedTxns,
			TotalVolume: s.TotalVolume,
			LastUpdated: s.LastUpdated,
		}
	}
	return out
}

// AuthSummaryResponse represents one auth-day aggregate row.
type AuthSummaryResponse struct {
	UserID         int64     `json:"userId"`
	Date           string    `json:"date"`
	Logins         int64     `json:"loginCount"`
	Logouts        int64     `json:"logoutCount"`
	FailedLogins   int64     `json:"failedLoginCount"`
	TokenRefreshes int64     `json:"tokenRefreshCount"`
	LastUpdated    time.Time `json:"lastUpdated"`
}

// AuthDailyFromDomain converts auth summaries to responses.
func AuthDailyFromDomain(summaries []*domain.AuthSummary) []AuthSummaryResponse {
	out := make([]AuthSummaryResponse, len(summaries))
	for i, s := range summaries {
		out[i] = AuthSummaryResponse{
			UserID:         s.UserID,
			Date:           s.Date.Format("2006-01-02"),
			Logins:         s.Logins,
			Logouts:        s.Logouts,
			FailedLogins:   s.FailedLogins,
			TokenRefreshes: s.TokenRefreshes,
			LastUpdated:    s.LastUpdated,
		}
	}
	return out
}
