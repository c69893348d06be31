package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/pw/paywallet/internal/domain"
)

// SummaryRepository implements usecase.SummaryRepository. Every
// increment is a single INSERT ... ON CONFLICT DO UPDATE, so concurrent
// consumers never lose updates and need no read-modify-write cycle.
type SummaryRepository struct {
	pool *pgxpool.Pool
}

// NewSummaryRepository creates a new SummaryRepository.
func NewSummaryRepository(pool *pgxpool.Pool) *SummaryRepository {
	return &SummaryRepository{pool: pool}
}

// IncrementUserCredits adds a credited amount to a user's daily row.
func (r *SummaryRepository) IncrementUserCredits(ctx context.Context, userID int64, date time.Time, amount decimal.Decimal) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO daily_user_summaries (user_id, date, total_credits, total_debits, net_change, failed_txn_count, last_updated)
		VALUES ($1, $2, $3, 0, $3, 0, now())
		ON CONFLICT (user_id, date) DO UPDATE
		SET total_credits = daily_user_summaries.total_credits + EXCLUDED.total_credits,
		    net_change = daily_user_summaries.net_change + EXCLUDED.total_credits,
		    last_updated = now()`,
		userID, dateToPgDate(date), amount)

	return err
}

// IncrementUserDebits adds a debited amount to a user's daily row.
func (r *SummaryRepository) IncrementUserDebits(ctx context.Context, userID int64, date time.Time, amount decimal.Decimal) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO daily_user_summaries (user_id, date, total_credits, total_debits, net_change, failed_txn_count, last_updated)
		VALUES ($1, $2, 0, $3, -$3::numeric, 0, now())
		ON CONFLICT (user_id, date) DO UPDATE
		SET total_debits = daily_user_summaries.total_debits + EXCLUDED.total_debits,
		    net_change = daily_user_summaries.net_change - EXCLUDED.total_debits,
		    last_updated = now()`,
		userID, dateToPgDate(date), amount)

	return err
}

// IncrementUserFailed bumps a user's daily failed transaction count.
func (r *SummaryRepository) IncrementUserFailed(ctx context.Context, userID int64, date time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO daily_user_summaries (user_id, date, total_credits, total_debits, net_change, failed_txn_count, last_updated)
		VALUES ($1, $2, 0, 0, 0, 1, now())
		ON CONFLICT (user_id, date) DO UPDATE
		SET failed_txn_count = daily_user_summaries.failed_txn_count + 1,
		    last_updated = now()`,
		userID, dateToPgDate(date))

	return err
}

// IncrementSystemTxn counts one successful transaction in the system row.
func (r *SummaryRepository) IncrementSystemTxn(ctx context.Context, date time.Time, amount decimal.Decimal) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO daily_system_summaries (date, total_users, new_users, total_txn_count, failed_txn_count, total_volume, last_updated)
		VALUES ($1, 0, 0, 1, 0, $2, now())
		ON CONFLICT (date) DO UPDATE
		SET total_txn_count = daily_system_summaries.total_txn_count + 1,
		    total_volume = daily_system_summaries.total_volume + EXCLUDED.total_volume,
		    last_updated = now()`,
		dateToPgDate(date), amount)

	return err
}

// IncrementSystemFailed counts one failed transaction in the system row.
func (r *SummaryRepository) IncrementSystemFailed(ctx context.Context, date time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO daily_system_summaries (date, total_users, new_users, total_txn_count, failed_txn_count, total_volume, last_updated)
		VALUES ($1, 0, 0, 0, 1, 0, now())
		ON CONFLICT (date) DO UPDATE
		SET failed_txn_count = daily_system_summaries.failed_txn_count + 1,
		    last_updated = now()`,
		dateToPgDate(date))

	return err
}

// IncrementUserCreated counts one registration in the system row.
func (r *SummaryRepository) IncrementUserCreated(ctx context.Context, date time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO daily_system_summaries (date, total_users, new_users, total_txn_count, failed_txn_count, total_volume, last_updated)
		VALUES ($1, 1, 1, 0, 0, 0, now())
		ON CONFLICT (date) DO UPDATE
		SET total_users = daily_system_summaries.total_users + 1,
		    new_users = daily_system_summaries.new_users + 1,
		    last_updated = now()`,
		dateToPgDate(date))

	return err
}

// IncrementLogin bumps a user's daily login count.
func (r *SummaryRepository) IncrementLogin(ctx context.Context, userID int64, date time.Time) error {
	return r.incrementAuth(ctx, userID, date, "login_count")
}

// IncrementLogout bumps a user's daily logout count.
func (r *SummaryRepository) IncrementLogout(ctx context.Context, userID int64, date time.Time) error {
	return r.incrementAuth(ctx, userID, date, "logout_count")
}

// IncrementFailedLogin bumps a user's daily failed login count.
func (r *SummaryRepository) IncrementFailedLogin(ctx context.Context, userID int64, date time.Time) error {
	return r.incrementAuth(ctx, userID, date, "failed_login_count")
}

// IncrementTokenRefresh bumps a user's daily token refresh count.
func (r *SummaryRepository) IncrementTokenRefresh(ctx context.Context, userID int64, date time.Time) error {
	return r.incrementAuth(ctx, userID, date, "token_refresh_count")
}

// incrementAuth bumps one counter column of the auth summary row. The
// column name is one of four fixed identifiers, never caller input.
func (r *SummaryRepository) incrementAuth(ctx context.Context, userID int64, date time.Time, column string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO auth_summaries (user_id, date, login_count, logout_count, failed_login_count, token_refresh_count, last_updated)
		VALUES ($1, $2,
			CASE WHEN '`+column+`' = 'login_count' THEN 1 ELSE 0 END,
			CASE WHEN '`+column+`' = 'logout_count' THEN 1 ELSE 0 END,
			CASE WHEN '`+column+`' = 'failed_login_count' THEN 1 ELSE 0 END,
			CASE WHEN '`+column+`' = 'token_refresh_count' THEN 1 ELSE 0 END,
			now())
		ON CONFLICT (user_id, date) DO UPDATE
		SET `+column+` = auth_summaries.`+column+` + 1,
		    last_updated = now()`,
		userID, dateToPgDate(date))

	return err
}

// ListUserDaily lists a user's daily rows in a date range, ascending.
func (r *SummaryRepository) ListUserDaily(ctx context.Context, userID int64, from, to time.Time) ([]*domain.DailyUserSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, date, total_credits, total_debits, net_change, failed_txn_count, last_updated
		FROM daily_user_summaries
		WHERE user_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date ASC`,
		userID, dateToPgDate(from), dateToPgDate(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]*domain.DailyUserSummary, 0)
	for rows.Next() {
		var (
			s           domain.DailyUserSummary
			date        pgtype.Date
			credits     pgtype.Numeric
			debits      pgtype.Numeric
			net         pgtype.Numeric
			lastUpdated pgtype.Timestamptz
		)
		if err := rows.Scan(&s.UserID, &date, &credits, &debits, &net, &s.FailedTxns, &lastUpdated); err != nil {
			return nil, err
		}
		s.Date = date.Time
		s.TotalCredits = numericToDecimal(credits)
		s.TotalDebits = numericToDecimal(debits)
		s.NetChange = numericToDecimal(net)
		s.LastUpdated = lastUpdated.Time
		summaries = append(summaries, &s)
	}

	return summaries, rows.Err()
}

// ListSystemDaily lists system-wide daily rows in a date range, ascending.
func (r *SummaryRepository) ListSystemDaily(ctx context.Context, from, to time.Time) ([]*domain.DailySystemSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT date, total_users, new_users, total_txn_count, failed_txn_count, total_volume, last_updated
		FROM daily_system_summaries
		WHERE date BETWEEN $1 AND $2
		ORDER BY date ASC`,
		dateToPgDate(from), dateToPgDate(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]*domain.DailySystemSummary, 0)
	for rows.Next() {
		var (
			s           domain.DailySystemSummary
			date        pgtype.Date
			volume      pgtype.Numeric
			lastUpdated pgtype.Timestamptz
		)
		if err := rows.Scan(&date, &s.TotalUsers, &s.NewUsers, &s.TotalTxns, &s.FailedTxns, &volume, &lastUpdated); err != nil {
			return nil, err
		}
		s.Date = date.Time
		s.TotalVolume = numericToDecimal(volume)
		s.LastUpdated = lastUpdated.Time
		summaries = append(summaries, &s)
	}

	return summaries, rows.Err()
}

// ListAuthDaily lists a user's daily auth rows in a date range, ascending.
func (r *SummaryRepository) ListAuthDaily(ctx context.Context, userID int64, from, to time.Time) ([]*domain.AuthSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, date, login_count, logout_count, failed_login_count, token_refresh_count, last_updated
		FROM auth_summaries
		WHERE user_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date ASC`,
		userID, dateToPgDate(from), dateToPgDate(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]*domain.AuthSummary, 0)
	for rows.Next() {
		var (
			s           domain.AuthSummary
			date        pgtype.Date
			lastUpdated pgtype.Timestamptz
		)
		if err := rows.Scan(&s.UserID, &date, &s.Logins, &s.Logouts, &s.FailedLogins, &s.TokenRefreshes, &lastUpdated); err != nil {
			return nil, err
		}
		s.Date = date.Time
		s.LastUpdated = lastUpdated.Time
		summaries = append(summaries, &s)
	}

	return summaries, rows.Err()
}

func dateToPgDate(t time.Time) pgtype.Date {
	return pgtype.Date{Time: t, Valid: true}
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}

	d, _ := decimal.NewFromString(n.Int.String())
	if n.Exp != 0 {
		d = d.Shift(n.Exp)
	}

	return d
}
