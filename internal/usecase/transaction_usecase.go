package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pw/paywallet/internal/domain"
)

// TransactionUseCase drives wallet mutations remotely and records the
// resulting ledger entries locally. For transfers the entry pair is
// persisted PENDING before the remote call, so a crash between the two
// steps leaves a durable intent the reconciler can settle later.
type TransactionUseCase struct {
	txManager  TransactionManager
	entryRepo  EntryRepository
	outboxRepo OutboxRepository
	walletSvc  WalletService
	idGen      IDGenerator
	logger     zerolog.Logger
}

// NewTransactionUseCase creates a new TransactionUseCase.
func NewTransactionUseCase(
	txManager TransactionManager,
	entryRepo EntryRepository,
	outboxRepo OutboxRepository,
	walletSvc WalletService,
	idGen IDGenerator,
	logger zerolog.Logger,
) *TransactionUseCase {
	return &TransactionUseCase{
		txManager:  txManager,
		entryRepo:  entryRepo,
		outboxRepo: outboxRepo,
		walletSvc:  walletSvc,
		idGen:      idGen,
		logger:     logger,
	}
}

// Transfer orchestrates a wallet-to-wallet move: persist the PENDING
// debit+credit pair, invoke the wallet ledger, then settle the pair.
func (uc *TransactionUseCase) Transfer(ctx context.Context, senderID, receiverID, amount int64) (*WalletResult, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if senderID == receiverID {
		return nil, domain.ErrSameUser
	}

	transferID := uuid.NewString()
	requestID := uuid.NewString()
	now := time.Now().UTC()

	debit := &domain.LedgerEntry{
		ID:         uc.idGen.Generate(),
		UserID:     senderID,
		Amount:     amount,
		Direction:  domain.EntryDebit,
		Status:     domain.EntryPending,
		TransferID: transferID,
		RequestID:  requestID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	credit := &domain.LedgerEntry{
		ID:         uc.idGen.Generate(),
		UserID:     receiverID,
		Amount:     amount,
		Direction:  domain.EntryCredit,
		Status:     domain.EntryPending,
		TransferID: transferID,
		RequestID:  requestID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := uc.createPair(ctx, debit, credit); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransactionFailed, err)
	}

	uc.logger.Info().
		Str("transfer_id", transferID).
		Int64("sender_id", senderID).
		Int64("receiver_id", receiverID).
		Int64("amount", amount).
		Msg("calling wallet service transfer")

	result, err := uc.walletSvc.Transfer(ctx, senderID, receiverID, amount, requestID)
	if err != nil {
		// A missing wallet is terminal: re-driving can never succeed.
		if errors.Is(err, domain.ErrWalletNotFound) {
			if serr := uc.settle(ctx, transferID, domain.EntryFailed, senderID, receiverID, amount); serr != nil {
				return nil, serr
			}
			return nil, err
		}
		// Intent stays PENDING; the reconciler re-drives it with the
		// same request ID, which the wallet ledger deduplicates.
		return nil, fmt.Errorf("%w: %v", domain.ErrWalletUnavailable, err)
	}

	if !result.Success {
		if err := uc.settle(ctx, transferID, domain.EntryFailed, senderID, receiverID, amount); err != nil {
			return nil, err
		}
		return nil, domain.ErrInsufficientBalance
	}

	if err := uc.settle(ctx, transferID, domain.EntrySuccess, senderID, receiverID, amount); err != nil {
		return nil, err
	}

	return result, nil
}

// Credit records a single-sided credit backed by a remote wallet call.
func (uc *TransactionUseCase) Credit(ctx context.Context, userID, amount int64, referenceID string) (*domain.LedgerEntry, error) {
	return uc.singleSided(ctx, userID, amount, referenceID, domain.EntryCredit)
}

// Debit records a single-sided debit backed by a remote wallet call.
func (uc *TransactionUseCase) Debit(ctx context.Context, userID, amount int64, referenceID string) (*domain.LedgerEntry, error) {
	return uc.singleSided(ctx, userID, amount, referenceID, domain.EntryDebit)
}

func (uc *TransactionUseCase) singleSided(ctx context.Context, userID, amount int64, referenceID string, direction domain.EntryDirection) (*domain.LedgerEntry, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	requestID := uuid.NewString()

	var (
		result *WalletResult
		err    error
	)
	if direction == domain.EntryCredit {
		result, err = uc.walletSvc.Credit(ctx, userID, amount, requestID)
	} else {
		result, err = uc.walletSvc.Debit(ctx, userID, amount, requestID)
	}
	if err != nil {
		if errors.Is(err, domain.ErrWalletNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrWalletUnavailable, err)
	}
	if !result.Success {
		return nil, domain.ErrInsufficientBalance
	}

	now := time.Now().UTC()
	entry := &domain.LedgerEntry{
		ID:          uc.idGen.Generate(),
		UserID:      userID,
		Amount:      amount,
		Direction:   direction,
		Status:      domain.EntrySuccess,
		TransferID:  uuid.NewString(),
		RequestID:   requestID,
		ReferenceID: referenceID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransactionFailed, err)
	}
	defer tx.Rollback(ctx)

	if err := uc.entryRepo.Create(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransactionFailed, err)
	}
	if err := uc.outboxRepo.CreateTx(ctx, tx, recordedEvent(entry)); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransactionFailed, err)
	}
	if err := tx.Commit(ctx); err != nil {
		// The wallet mutation already stands; the entry is lost. Known
		// consistency gap for single-sided operations.
		return nil, fmt.Errorf("%w: %v", domain.ErrTransactionFailed, err)
	}

	return entry, nil
}

// GetTransactionsByUser lists ledger entries for one user.
func (uc *TransactionUseCase) GetTransactionsByUser(ctx context.Context, userID int64, limit, offset int) ([]*domain.LedgerEntry, error) {
	return uc.entryRepo.ListByUser(ctx, userID, clampLimit(limit), offset)
}

// GetTransactionByID retrieves one ledger entry.
func (uc *TransactionUseCase) GetTransactionByID(ctx context.Context, id string) (*domain.LedgerEntry, error) {
	return uc.entryRepo.GetByID(ctx, id)
}

// GetAllTransactions lists ledger entries across all users.
func (uc *TransactionUseCase) GetAllTransactions(ctx context.Context, limit, offset int) ([]*domain.LedgerEntry, error) {
	return uc.entryRepo.List(ctx, clampLimit(limit), offset)
}

func (uc *TransactionUseCase) createPair(ctx context.Context, debit, credit *domain.LedgerEntry) error {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := uc.entryRepo.Create(ctx, tx, debit); err != nil {
		return err
	}
	if err := uc.entryRepo.Create(ctx, tx, credit); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// settle finalizes both entries of a transfer and stages one
// TRANSACTION_RECORDED event per side.
func (uc *TransactionUseCase) settle(ctx context.Context, transferID string, status domain.EntryStatus, senderID, receiverID, amount int64) error {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransactionFailed, err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	if err := uc.entryRepo.UpdateStatusByTransfer(ctx, tx, transferID, status, now); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransactionFailed, err)
	}

	sides := []struct {
		userID    int64
		direction domain.EntryDirection
	}{
		{senderID, domain.EntryDebit},
		{receiverID, domain.EntryCredit},
	}
	for _, s := range sides {
		event := &domain.OutboxEvent{
			ID:        uuid.NewString(),
			Topic:     domain.TopicTransactionEvents,
			EventType: domain.EventTypeTxnRecorded,
			UserID:    &s.userID,
			Payload: map[string]any{
				"type":   string(s.direction),
				"status": string(status),
				"amount": strconv.FormatInt(amount, 10),
			},
			CreatedAt: now,
		}
		if err := uc.outboxRepo.CreateTx(ctx, tx, event); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrTransactionFailed, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransactionFailed, err)
	}

	return nil
}

func recordedEvent(entry *domain.LedgerEntry) *domain.OutboxEvent {
	userID := entry.UserID
	return &domain.OutboxEvent{
		ID:        uuid.NewString(),
		Topic:     domain.TopicTransactionEvents,
		EventType: domain.EventTypeTxnRecorded,
		UserID:    &userID,
		Payload: map[string]any{
			"type":   string(entry.Direction),
			"status": string(entry.Status),
			"amount": strconv.FormatInt(entry.Amount, 10),
		},
		CreatedAt: entry.CreatedAt,
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}
