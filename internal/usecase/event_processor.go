package usecase

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pw/paywallet/internal/domain"
)

// EventProcessorUseCase turns delivered envelopes into daily aggregates.
// De-duplication hangs entirely on the raw event insert: the event ID is
// unique in storage, so a redelivered envelope inserts nothing and the
// routing step is skipped.
type EventProcessorUseCase struct {
	rawEventRepo RawEventRepository
	summaryRepo  SummaryRepository
	idGen        IDGenerator
	logger       zerolog.Logger
}

// NewEventProcessorUseCase creates a new EventProcessorUseCase.
func NewEventProcessorUseCase(
	rawEventRepo RawEventRepository,
	summaryRepo SummaryRepository,
	idGen IDGenerator,
	logger zerolog.Logger,
) *EventProcessorUseCase {
	return &EventProcessorUseCase{
		rawEventRepo: rawEventRepo,
		summaryRepo:  summaryRepo,
		idGen:        idGen,
		logger:       logger,
	}
}

// Process ingests one envelope. A nil return acknowledges the delivery;
// any error withholds the ack so the transport redelivers.
func (uc *EventProcessorUseCase) Process(ctx context.Context, env *domain.EventEnvelope) error {
	now := time.Now().UTC()

	payload, err := json.Marshal(env.Payload)
	if err != nil {
		return err
	}

	inserted, err := uc.rawEventRepo.Insert(ctx, &domain.RawEvent{
		ID:         uc.idGen.Generate(),
		EventType:  env.EventType,
		EventID:    env.EventID,
		UserID:     env.UserID,
		Payload:    payload,
		ReceivedAt: now,
	})
	if err != nil {
		return err
	}
	if !inserted {
		uc.logger.Info().Str("event_id", env.EventID).Msg("duplicate event, skipping")
		return nil
	}

	date := env.EventDate(now)

	switch env.EventType {
	case domain.EventTypeUserCreated:
		return uc.summaryRepo.IncrementUserCreated(ctx, date)
	case domain.EventTypeWalletCredited:
		return uc.handleWalletCredit(ctx, env, date)
	case domain.EventTypeWalletDebited:
		return uc.handleWalletDebit(ctx, env, date)
	case domain.EventTypeWalletTransfer:
		return uc.handleWalletTransfer(ctx, env, date)
	case domain.EventTypeWalletFailed:
		return uc.handleWalletFailed(ctx, env, date)
	case domain.EventTypeTxnRecorded:
		return uc.handleTxnRecorded(ctx, env, date)
	case domain.EventTypeUserLoggedIn:
		return uc.handleAuth(ctx, env, date, uc.summaryRepo.IncrementLogin)
	case domain.EventTypeUserLoggedOut:
		return uc.handleAuth(ctx, env, date, uc.summaryRepo.IncrementLogout)
	case domain.EventTypeTokenRefreshed:
		return uc.handleAuth(ctx, env, date, uc.summaryRepo.IncrementTokenRefresh)
	case domain.EventTypeAuthFailed:
		return uc.handleAuthFailed(ctx, env, date)
	default:
		// Unknown producers must not wedge the pipeline.
		uc.logger.Warn().Str("event_type", env.EventType).Str("event_id", env.EventID).Msg("unhandled event type")
		return nil
	}
}

func (uc *EventProcessorUseCase) handleWalletCredit(ctx context.Context, env *domain.EventEnvelope, date time.Time) error {
	if env.UserID == nil {
		return nil
	}
	amount := env.Amount()
	if err := uc.summaryRepo.IncrementUserCredits(ctx, *env.UserID, date, amount); err != nil {
		return err
	}
	return uc.summaryRepo.IncrementSystemTxn(ctx, date, amount)
}

func (uc *EventProcessorUseCase) handleWalletDebit(ctx context.Context, env *domain.EventEnvelope, date time.Time) error {
	if env.UserID == nil {
		return nil
	}
	amount := env.Amount()
	if err := uc.summaryRepo.IncrementUserDebits(ctx, *env.UserID, date, amount); err != nil {
		return err
	}
	return uc.summaryRepo.IncrementSystemTxn(ctx, date, amount)
}

func (uc *EventProcessorUseCase) handleWalletTransfer(ctx context.Context, env *domain.EventEnvelope, date time.Time) error {
	if env.Payload == nil {
		return nil
	}
	amount := env.Amount()

	if !env.PayloadBool("success", true) {
		return uc.summaryRepo.IncrementSystemFailed(ctx, date)
	}

	if fromID, ok := env.PayloadUserID("fromUserId"); ok {
		if err := uc.summaryRepo.IncrementUserDebits(ctx, fromID, date, amount); err != nil {
			return err
		}
	}
	if toID, ok := env.PayloadUserID("toUserId"); ok {
		if err := uc.summaryRepo.IncrementUserCredits(ctx, toID, date, amount); err != nil {
			return err
		}
	}
	return uc.summaryRepo.IncrementSystemTxn(ctx, date, amount)
}

func (uc *EventProcessorUseCase) handleWalletFailed(ctx context.Context, env *domain.EventEnvelope, date time.Time) error {
	if env.UserID != nil {
		if err := uc.summaryRepo.IncrementUserFailed(ctx, *env.UserID, date); err != nil {
			return err
		}
	}
	return uc.summaryRepo.IncrementSystemFailed(ctx, date)
}

func (uc *EventProcessorUseCase) handleTxnRecorded(ctx context.Context, env *domain.EventEnvelope, date time.Time) error {
	if env.Payload == nil {
		return nil
	}

	status := env.PayloadString("status")
	if status == "" {
		status = string(domain.EntrySuccess)
	}
	amount := env.Amount()

	if strings.EqualFold(status, string(domain.EntryFailed)) {
		if env.UserID != nil {
			if err := uc.summaryRepo.IncrementUserFailed(ctx, *env.UserID, date); err != nil {
				return err
			}
		}
		return uc.summaryRepo.IncrementSystemFailed(ctx, date)
	}

	if env.UserID == nil {
		return nil
	}

	switch strings.ToUpper(env.PayloadString("type")) {
	case string(domain.EntryCredit):
		if err := uc.summaryRepo.IncrementUserCredits(ctx, *env.UserID, date, amount); err != nil {
			return err
		}
		return uc.summaryRepo.IncrementSystemTxn(ctx, date, amount)
	case string(domain.EntryDebit):
		if err := uc.summaryRepo.IncrementUserDebits(ctx, *env.UserID, date, amount); err != nil {
			return err
		}
		return uc.summaryRepo.IncrementSystemTxn(ctx, date, amount)
	default:
		return nil
	}
}

func (uc *EventProcessorUseCase) handleAuth(ctx context.Context, env *domain.EventEnvelope, date time.Time, inc func(context.Context, int64, time.Time) error) error {
	if env.UserID == nil {
		return nil
	}
	return inc(ctx, *env.UserID, date)
}

func (uc *EventProcessorUseCase) handleAuthFailed(ctx context.Context, env *domain.EventEnvelope, date time.Time) error {
	if env.UserID != nil {
		return uc.summaryRepo.IncrementFailedLogin(ctx, *env.UserID, date)
	}
	// Anonymous failure (unknown email): no per-user row, still counted.
	return uc.summaryRepo.IncrementSystemFailed(ctx, date)
}
