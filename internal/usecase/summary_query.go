package usecase

import (
	"context"
	"time"

	"github.com/pw/paywallet/internal/domain"
)

// SummaryQueryUseCase serves the analytics read paths.
type SummaryQueryUseCase struct {
	summaryRepo SummaryRepository
}

// NewSummaryQueryUseCase creates a new SummaryQueryUseCase.
func NewSummaryQueryUseCase(summaryRepo SummaryRepository) *SummaryQueryUseCase {
	return &SummaryQueryUseCase{summaryRepo: summaryRepo}
}

// UserDaily lists a user's daily summaries for a date range, ascending.
func (uc *SummaryQueryUseCase) UserDaily(ctx context.Context, userID int64, from, to time.Time) ([]*domain.DailyUserSummary, error) {
	return uc.summaryRepo.ListUserDaily(ctx, userID, from, to)
}

// SystemDaily lists system-wide daily summaries for a date range, ascending.
func (uc *SummaryQueryUseCase) SystemDaily(ctx context.Context, from, to time.Time) ([]*domain.DailySystemSummary, error) {
	return uc.summaryRepo.ListSystemDaily(ctx, from, to)
}

// AuthDaily lists a user's daily auth summaries for a date range, ascending.
func (uc *SummaryQueryUseCase) AuthDaily(ctx context.Context, userID int64, from, to time.Time) ([]*domain.AuthSummary, error) {
	return uc.summaryRepo.ListAuthDaily(ctx, userID, from, to)
}
