package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pw/paywallet/internal/domain"
)

// RawEventRepository implements usecase.RawEventRepository.
type RawEventRepository struct {
	pool *pgxpool.Pool
}

// NewRawEventRepository creates a new RawEventRepository.
func NewRawEventRepository(pool *pgxpool.Pool) *RawEventRepository {
	return &RawEventRepository{pool: pool}
}

// Insert records an ingested event keyed by its producer-assigned event
// ID. It reports false when the event ID was already recorded, which is
// the consumer's duplicate-delivery signal.
func (r *RawEventRepository) Insert(ctx context.Context, event *domain.RawEvent) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO raw_events (id, event_type, event_id, user_id, payload, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_id) DO NOTHING`,
		event.ID,
		event.EventType,
		event.EventID,
		event.UserID,
		event.Payload,
		timeToPgTimestamptz(event.ReceivedAt),
	)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() == 1, nil
}
