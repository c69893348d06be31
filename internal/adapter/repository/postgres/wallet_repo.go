package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pw/paywallet/internal/domain"
	"github.com/pw/paywallet/internal/usecase"
)

const pgErrUniqueViolation = "23505"

const walletColumns = `id, user_id, wallet_type, balance, currency, last_request_id, version, created_at, updated_at`

// WalletRepository implements usecase.WalletRepository.
type WalletRepository struct {
	pool *pgxpool.Pool
}

// NewWalletRepository creates a new WalletRepository.
func NewWalletRepository(pool *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{pool: pool}
}

// Create creates a new wallet. One wallet per user and one wallet per
// request ID are both enforced by unique indexes.
func (r *WalletRepository) Create(ctx context.Context, wallet *domain.Wallet) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO wallets (`+walletColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		wallet.ID,
		wallet.UserID,
		string(wallet.WalletType),
		wallet.Balance,
		wallet.Currency,
		nullString(wallet.LastRequestID),
		wallet.Version,
		timeToPgTimestamptz(wallet.CreatedAt),
		timeToPgTimestamptz(wallet.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return domain.ErrWalletExists
	}

	return err
}

// GetByUserID retrieves a wallet by user ID.
func (r *WalletRepository) GetByUserID(ctx context.Context, userID int64) (*domain.Wallet, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+walletColumns+`
		FROM wallets
		WHERE user_id = $1`, userID)

	return scanWallet(row)
}

// GetByUserIDTx retrieves a wallet by user ID inside a transaction.
func (r *WalletRepository) GetByUserIDTx(ctx context.Context, tx usecase.Transaction, userID int64) (*domain.Wallet, error) {
	pgxTx := tx.(*Tx).PgxTx()

	row := pgxTx.QueryRow(ctx, `
		SELECT `+walletColumns+`
		FROM wallets
		WHERE user_id = $1`, userID)

	return scanWallet(row)
}

// GetByRequestID retrieves the wallet stamped with a request ID. A miss
// is (nil, nil): absence means the request has not applied yet.
func (r *WalletRepository) GetByRequestID(ctx context.Context, tx usecase.Transaction, requestID string) (*domain.Wallet, error) {
	pgxTx := tx.(*Tx).PgxTx()

	row := pgxTx.QueryRow(ctx, `
		SELECT `+walletColumns+`
		FROM wallets
		WHERE last_request_id = $1`, requestID)

	wallet, err := scanWallet(row)
	if errors.Is(err, domain.ErrWalletNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return wallet, nil
}

// UpdateBalance persists a new balance conditioned on the version the
// caller read. Zero rows affected means another writer got there first.
func (r *WalletRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, id string, balance int64, expectedVersion int64, requestID string, updatedAt time.Time) error {
	pgxTx := tx.(*Tx).PgxTx()

	tag, err := pgxTx.Exec(ctx, `
		UPDATE wallets
		SET balance = $2, version = version + 1, last_request_id = $3, updated_at = $4
		WHERE id = $1 AND version = $5`,
		id,
		balance,
		nullString(requestID),
		timeToPgTimestamptz(updatedAt),
		expectedVersion,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVersionConflict
	}

	return nil
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	var (
		wallet        domain.Wallet
		walletType    string
		lastRequestID pgtype.Text
		createdAt     pgtype.Timestamptz
		updatedAt     pgtype.Timestamptz
	)

	err := row.Scan(
		&wallet.ID,
		&wallet.UserID,
		&walletType,
		&wallet.Balance,
		&wallet.Currency,
		&lastRequestID,
		&wallet.Version,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWalletNotFound
		}

		return nil, err
	}

	wallet.WalletType = domain.WalletType(walletType)
	wallet.LastRequestID = lastRequestID.String
	wallet.CreatedAt = createdAt.Time
	wallet.UpdatedAt = updatedAt.Time

	return &wallet, nil
}

// Type conversion helpers.
func timeToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func nullString(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation
}
