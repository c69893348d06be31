package dto

import (
	"github.com/pw/paywallet/internal/domain"
	"github.com/pw/paywallet/internal/usecase"
)

// CreateWalletRequest represents a request to create a wallet.
type CreateWalletRequest struct {
	UserID     int64  `json:"userId"`
	WalletType string `json:"walletType"`
	RequestID  string `json:"requestId,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateWalletRequest) ToUseCaseInput() usecase.CreateWalletInput {
	return usecase.CreateWalletInput{
		UserID:     r.UserID,
		WalletType: domain.WalletType(r.WalletType),
		RequestID:  r.RequestID,
	}
}

// WalletOperationRequest represents a single-sided credit or debit
// against a wallet. Amount is in minor currency units.
type WalletOperationRequest struct {
	Amount    int64  `json:"amount"`
	RequestID string `json:"requestId,omitempty"`
}

// ToUseCaseInput converts to use case input for the given user.
func (r *WalletOperationRequest) ToUseCaseInput(userID int64) usecase.OperationInput {
	return usecase.OperationInput{
		UserID:    userID,
		Amount:    r.Amount,
		RequestID: r.RequestID,
	}
}

// WalletTransferRequest represents a wallet-to-wallet transfer.
type WalletTransferRequest struct {
	FromUserID int64  `json:"fromUserId"`
	ToUserID   int64  `json:"toUserId"`
	Amount     int64  `json:"amount"`
	RequestID  string `json:"requestId"`
}

// ToUseCaseInput converts to use case input.
func (r *WalletTransferRequest) ToUseCaseInput() usecase.TransferInput {
	return usecase.TransferInput{
		FromUserID: r.FromUserID,
		ToUserID:   r.ToUserID,
		Amount:     r.Amount,
		RequestID:  r.RequestID,
	}
}

// TransactionTransferRequest represents an orchestrated transfer
// between two users.
type TransactionTransferRequest struct {
	SenderID   int64 `json:"senderId"`
	ReceiverID int64 `json:"receiverId"`
	Amount     int64 `json:"amount"`
}

// TransactionOperationRequest represents an orchestrated single-sided
// credit or debit, e.g. a top-up or a payout.
type TransactionOperationRequest struct {
	UserID      int64  `json:"userId"`
	Amount      int64  `json:"amount"`
	ReferenceID string `json:"referenceId,omitempty"`
}
