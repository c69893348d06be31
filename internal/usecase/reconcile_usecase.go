package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/pw/paywallet/internal/domain"
	"github.com/pw/paywallet/internal/infrastructure/metrics"
)

// ReconcileUseCase settles transfer intents stranded PENDING by a crash
// or a wallet outage between the intent write and the settle write. It
// re-drives the wallet call with the stored request ID; the wallet
// ledger deduplicates by request ID, so a transfer that already applied
// is reported as applied rather than applied twice.
type ReconcileUseCase struct {
	entryRepo EntryRepository
	walletSvc WalletService
	settler   settler
	logger    zerolog.Logger
}

// settler finalizes a transfer's entries; satisfied by TransactionUseCase.
type settler interface {
	settle(ctx context.Context, transferID string, status domain.EntryStatus, senderID, receiverID, amount int64) error
}

// NewReconcileUseCase creates a new ReconcileUseCase.
func NewReconcileUseCase(
	entryRepo EntryRepository,
	walletSvc WalletService,
	txnUC *TransactionUseCase,
	logger zerolog.Logger,
) *ReconcileUseCase {
	return &ReconcileUseCase{
		entryRepo: entryRepo,
		walletSvc: walletSvc,
		settler:   txnUC,
		logger:    logger,
	}
}

// ReconcileResult summarizes one reconciliation pass.
type ReconcileResult struct {
	Scanned   int
	Settled   int
	Failed    int
	Deferred  int
	CheckedAt time.Time
}

// Run settles PENDING transfer pairs older than the cutoff. Pairs whose
// wallet call still fails are left PENDING for the next pass.
func (uc *ReconcileUseCase) Run(ctx context.Context, cutoff time.Time, limit int) (*ReconcileResult, error) {
	metrics.ReconcileRuns.Inc()

	entries, err := uc.entryRepo.ListPendingBefore(ctx, cutoff, limit)
	if err != nil {
		return nil, err
	}

	result := &ReconcileResult{Scanned: len(entries), CheckedAt: time.Now().UTC()}

	for transferID, pair := range groupByTransfer(entries) {
		debit, credit := pair[domain.EntryDebit], pair[domain.EntryCredit]
		if debit == nil || credit == nil {
			uc.logger.Warn().Str("transfer_id", transferID).Msg("pending transfer missing one side, skipping")
			result.Deferred++
			continue
		}

		walletRes, err := uc.walletSvc.Transfer(ctx, debit.UserID, credit.UserID, debit.Amount, debit.RequestID)
		if err != nil && !errors.Is(err, domain.ErrWalletNotFound) {
			uc.logger.Warn().Err(err).Str("transfer_id", transferID).Msg("wallet still unavailable, deferring")
			result.Deferred++
			continue
		}

		// A missing wallet can never settle; finalize as FAILED rather
		// than re-driving on every pass.
		status := domain.EntrySuccess
		if err != nil || !walletRes.Success {
			status = domain.EntryFailed
		}

		if err := uc.settler.settle(ctx, transferID, status, debit.UserID, credit.UserID, debit.Amount); err != nil {
			uc.logger.Error().Err(err).Str("transfer_id", transferID).Msg("failed to settle reconciled transfer")
			result.Deferred++
			continue
		}

		if status == domain.EntrySuccess {
			result.Settled++
			metrics.ReconciledEntries.WithLabelValues("settled").Inc()
		} else {
			result.Failed++
			metrics.ReconciledEntries.WithLabelValues("failed").Inc()
		}

		uc.logger.Info().
			Str("transfer_id", transferID).
			Str("status", string(status)).
			Msg("reconciled pending transfer")
	}

	return result, nil
}

// Start runs reconciliation passes until the context is cancelled.
func (uc *ReconcileUseCase) Start(ctx context.Context, interval, lag time.Duration, batch int) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	uc.logger.Info().Dur("interval", interval).Dur("lag", lag).Msg("reconciler started")

	for {
		select {
		case <-ctx.Done():
			uc.logger.Info().Msg("reconciler shutting down")
			return ctx.Err()
		case <-ticker.C:
			res, err := uc.Run(ctx, time.Now().UTC().Add(-lag), batch)
			if err != nil {
				uc.logger.Error().Err(err).Msg("reconciliation pass failed")
				continue
			}
			if res.Scanned > 0 {
				uc.logger.Info().
					Int("scanned", res.Scanned).
					Int("settled", res.Settled).
					Int("failed", res.Failed).
					Int("deferred", res.Deferred).
					Msg("reconciliation pass completed")
			}
		}
	}
}

func groupByTransfer(entries []*domain.LedgerEntry) map[string]map[domain.EntryDirection]*domain.LedgerEntry {
	groups := make(map[string]map[domain.EntryDirection]*domain.LedgerEntry)
	for _, e := range entries {
		if groups[e.TransferID] == nil {
			groups[e.TransferID] = make(map[domain.EntryDirection]*domain.LedgerEntry)
		}
		groups[e.TransferID][e.Direction] = e
	}
	return groups
}
