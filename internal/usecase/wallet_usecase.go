package usecase

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pw/paywallet/internal/domain"
)

// DefaultCurrency is stamped on new wallets.
const DefaultCurrency = "INR"

// WalletUseCase owns wallet balance mutation. Every mutation is a single
// database transaction covering the balance write and the outbox insert,
// so a published event always corresponds to a committed state change.
type WalletUseCase struct {
	txManager  TransactionManager
	walletRepo WalletRepository
	outboxRepo OutboxRepository
	idGen      IDGenerator
	retrier    Retrier
	logger     zerolog.Logger
}

// NewWalletUseCase creates a new WalletUseCase.
func NewWalletUseCase(
	txManager TransactionManager,
	walletRepo WalletRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	logger zerolog.Logger,
) *WalletUseCase {
	return &WalletUseCase{
		txManager:  txManager,
		walletRepo: walletRepo,
		outboxRepo: outboxRepo,
		idGen:      idGen,
		logger:     logger,
	}
}

// WithRetrier makes the balance mutations retry on transient storage
// errors such as deadlocks. Version conflicts stay permanent.
func (uc *WalletUseCase) WithRetrier(r Retrier) *WalletUseCase {
	uc.retrier = r
	return uc
}

func (uc *WalletUseCase) withRetry(ctx context.Context, op func() error) error {
	if uc.retrier == nil {
		return op()
	}
	return uc.retrier.Retry(ctx, op)
}

// replayed reports the recorded outcome of an already-applied request.
// The request ID lands on the mutated wallet only when its transaction
// commits, so a hit means the mutation already happened.
func (uc *WalletUseCase) replayed(ctx context.Context, tx Transaction, requestID string) (*WalletResult, error) {
	if requestID == "" {
		return nil, nil
	}
	prior, err := uc.walletRepo.GetByRequestID(ctx, tx, requestID)
	if err != nil || prior == nil {
		return nil, err
	}
	return &WalletResult{
		Success:   true,
		Message:   "Request already applied",
		Balance:   prior.Balance,
		RequestID: requestID,
		UpdatedAt: prior.UpdatedAt,
	}, nil
}

// CreateWalletInput represents input for creating a wallet.
type CreateWalletInput struct {
	UserID     int64
	WalletType domain.WalletType
	RequestID  string
}

// CreateWallet creates a zero-balance wallet for a user. A second wallet
// for the same user, or a reused request ID, fails with ErrWalletExists.
func (uc *WalletUseCase) CreateWallet(ctx context.Context, input CreateWalletInput) (*WalletResult, error) {
	if !input.WalletType.Valid() {
		return nil, domain.ErrInvalidWalletType
	}

	now := time.Now().UTC()
	wallet := &domain.Wallet{
		ID:            uc.idGen.Generate(),
		UserID:        input.UserID,
		WalletType:    input.WalletType,
		Balance:       0,
		Currency:      DefaultCurrency,
		LastRequestID: input.RequestID,
		Version:       0,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := uc.walletRepo.Create(ctx, wallet); err != nil {
		return nil, err
	}

	return &WalletResult{
		Success:   true,
		Message:   "Wallet created successfully",
		Balance:   0,
		RequestID: input.RequestID,
		UpdatedAt: now,
	}, nil
}

// GetWallet retrieves the current wallet snapshot for a user.
func (uc *WalletUseCase) GetWallet(ctx context.Context, userID int64) (*domain.Wallet, error) {
	return uc.walletRepo.GetByUserID(ctx, userID)
}

// OperationInput represents input for a single-sided credit or debit.
type OperationInput struct {
	UserID    int64
	Amount    int64
	RequestID string
}

// Credit adds amount to a user's wallet and stages a WALLET_CREDITED
// event. A version conflict is surfaced for the caller to retry.
func (uc *WalletUseCase) Credit(ctx context.Context, input OperationInput) (*WalletResult, error) {
	if input.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	var result *WalletResult
	err := uc.withRetry(ctx, func() error {
		var err error
		result, err = uc.credit(ctx, input)
		return err
	})
	if err != nil {
		if !errors.Is(err, domain.ErrWalletNotFound) {
			uc.emitFailure(ctx, input.UserID, input.Amount, err)
		}
		return nil, err
	}
	return result, nil
}

func (uc *WalletUseCase) credit(ctx context.Context, input OperationInput) (*WalletResult, error) {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if prior, err := uc.replayed(ctx, tx, input.RequestID); err != nil || prior != nil {
		return prior, err
	}

	wallet, err := uc.walletRepo.GetByUserIDTx(ctx, tx, input.UserID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	newBalance := wallet.ApplyCredit(input.Amount)

	err = uc.walletRepo.UpdateBalance(ctx, tx, wallet.ID, newBalance, wallet.Version, input.RequestID, now)
	if err != nil {
		return nil, err
	}

	event := uc.newEvent(domain.EventTypeWalletCredited, &input.UserID, map[string]any{
		"amount": strconv.FormatInt(input.Amount, 10),
	})
	if err := uc.outboxRepo.CreateTx(ctx, tx, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &WalletResult{
		Success:   true,
		Message:   "Amount credited successfully",
		Balance:   newBalance,
		RequestID: input.RequestID,
		UpdatedAt: now,
	}, nil
}

// Debit subtracts amount from a user's wallet. Insufficient balance is a
// successful call carrying Success=false; the balance is left untouched.
func (uc *WalletUseCase) Debit(ctx context.Context, input OperationInput) (*WalletResult, error) {
	if input.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	var result *WalletResult
	err := uc.withRetry(ctx, func() error {
		var err error
		result, err = uc.debit(ctx, input)
		return err
	})
	if err != nil {
		if !errors.Is(err, domain.ErrWalletNotFound) {
			uc.emitFailure(ctx, input.UserID, input.Amount, err)
		}
		return nil, err
	}
	return result, nil
}

func (uc *WalletUseCase) debit(ctx context.Context, input OperationInput) (*WalletResult, error) {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if prior, err := uc.replayed(ctx, tx, input.RequestID); err != nil || prior != nil {
		return prior, err
	}

	wallet, err := uc.walletRepo.GetByUserIDTx(ctx, tx, input.UserID)
	if err != nil {
		return nil, err
	}

	if err := wallet.ValidateDebit(input.Amount); err != nil {
		return &WalletResult{
			Success:   false,
			Message:   "Insufficient balance",
			Balance:   wallet.Balance,
			RequestID: input.RequestID,
			UpdatedAt: wallet.UpdatedAt,
		}, nil
	}

	now := time.Now().UTC()
	newBalance := wallet.ApplyDebit(input.Amount)

	err = uc.walletRepo.UpdateBalance(ctx, tx, wallet.ID, newBalance, wallet.Version, input.RequestID, now)
	if err != nil {
		return nil, err
	}

	event := uc.newEvent(domain.EventTypeWalletDebited, &input.UserID, map[string]any{
		"amount": strconv.FormatInt(input.Amount, 10),
	})
	if err := uc.outboxRepo.CreateTx(ctx, tx, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &WalletResult{
		Success:   true,
		Message:   "Amount debited successfully",
		Balance:   newBalance,
		RequestID: input.RequestID,
		UpdatedAt: now,
	}, nil
}

// TransferInput represents input for a wallet-to-wallet transfer.
type TransferInput struct {
	FromUserID int64
	ToUserID   int64
	Amount     int64
	RequestID  string
}

// Transfer moves amount between two wallets as one atomic unit: both
// balance writes and the staged event commit together or not at all.
// The request ID is stamped on the source wallet; a replay with the same
// request ID returns the recorded outcome without touching balances.
func (uc *WalletUseCase) Transfer(ctx context.Context, input TransferInput) (*WalletResult, error) {
	if input.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if input.FromUserID == input.ToUserID {
		return nil, domain.ErrSameUser
	}

	var result *WalletResult
	err := uc.withRetry(ctx, func() error {
		var err error
		result, err = uc.transfer(ctx, input)
		return err
	})
	if err != nil {
		if !errors.Is(err, domain.ErrWalletNotFound) {
			uc.emitFailure(ctx, input.FromUserID, input.Amount, err)
		}
		return nil, err
	}
	return result, nil
}

func (uc *WalletUseCase) transfer(ctx context.Context, input TransferInput) (*WalletResult, error) {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if prior, err := uc.replayed(ctx, tx, input.RequestID); err != nil || prior != nil {
		return prior, err
	}

	from, err := uc.walletRepo.GetByUserIDTx(ctx, tx, input.FromUserID)
	if err != nil {
		return nil, err
	}
	to, err := uc.walletRepo.GetByUserIDTx(ctx, tx, input.ToUserID)
	if err != nil {
		return nil, err
	}

	if err := from.ValidateDebit(input.Amount); err != nil {
		tx.Rollback(ctx)
		uc.emitTransferResult(ctx, nil, input, false)
		return &WalletResult{
			Success:   false,
			Message:   "Insufficient balance for transfer",
			Balance:   from.Balance,
			RequestID: input.RequestID,
			UpdatedAt: from.UpdatedAt,
		}, nil
	}

	now := time.Now().UTC()
	fromBalance := from.ApplyDebit(input.Amount)
	toBalance := to.ApplyCredit(input.Amount)

	// Apply in userID order so concurrent opposite transfers cannot
	// deadlock on row locks.
	writes := []struct {
		wallet    *domain.Wallet
		balance   int64
		requestID string
	}{
		{from, fromBalance, input.RequestID},
		{to, toBalance, to.LastRequestID},
	}
	if to.UserID < from.UserID {
		writes[0], writes[1] = writes[1], writes[0]
	}

	for _, w := range writes {
		err = uc.walletRepo.UpdateBalance(ctx, tx, w.wallet.ID, w.balance, w.wallet.Version, w.requestID, now)
		if err != nil {
			return nil, err
		}
	}

	if err := uc.emitTransferResult(ctx, tx, input, true); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &WalletResult{
		Success:   true,
		Message:   "Transfer successful",
		Balance:   fromBalance,
		RequestID: input.RequestID,
		UpdatedAt: now,
	}, nil
}

func (uc *WalletUseCase) newEvent(eventType string, userID *int64, payload map[string]any) *domain.OutboxEvent {
	return &domain.OutboxEvent{
		ID:        uuid.NewString(),
		Topic:     domain.TopicWalletEvents,
		EventType: eventType,
		UserID:    userID,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
}

// emitTransferResult stages a WALLET_TRANSFER event. With a transaction it
// joins the mutating commit; without one it is written standalone, which
// is how failed transfers get recorded despite the rolled-back mutation.
func (uc *WalletUseCase) emitTransferResult(ctx context.Context, tx Transaction, input TransferInput, success bool) error {
	event := uc.newEvent(domain.EventTypeWalletTransfer, &input.FromUserID, map[string]any{
		"amount":     strconv.FormatInt(input.Amount, 10),
		"fromUserId": strconv.FormatInt(input.FromUserID, 10),
		"toUserId":   strconv.FormatInt(input.ToUserID, 10),
		"success":    success,
	})

	if tx != nil {
		return uc.outboxRepo.CreateTx(ctx, tx, event)
	}

	if err := uc.outboxRepo.Create(ctx, event); err != nil {
		uc.logger.Error().Err(err).Str("event_id", event.ID).Msg("failed to stage transfer event")
		return err
	}
	return nil
}

// emitFailure stages a WALLET_FAILED event outside the (rolled back)
// mutating transaction. Emission is best effort; the original error is
// what the caller sees.
func (uc *WalletUseCase) emitFailure(ctx context.Context, userID, amount int64, cause error) {
	event := uc.newEvent(domain.EventTypeWalletFailed, &userID, map[string]any{
		"amount":  strconv.FormatInt(amount, 10),
		"userId":  strconv.FormatInt(userID, 10),
		"success": false,
	})

	if err := uc.outboxRepo.Create(ctx, event); err != nil {
		uc.logger.Error().Err(err).Str("event_id", event.ID).Msg("failed to stage failure event")
		return
	}

	uc.logger.Warn().Err(cause).Int64("user_id", userID).Msg("wallet mutation failed, staged WALLET_FAILED")
}
