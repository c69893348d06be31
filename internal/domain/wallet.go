package domain

import "time"

// WalletType distinguishes customer wallets from merchant wallets.
type WalletType string

const (
	WalletTypeCustomer WalletType = "CUSTOMER"
	WalletTypeMerchant WalletType = "MERCHANT"
)

// Valid reports whether the wallet type is a known value.
func (t WalletType) Valid() bool {
	return t == WalletTypeCustomer || t == WalletTypeMerchant
}

// Wallet holds the authoritative balance for one user. Balances are
// integer minor units and never go negative. Version is the optimistic
// concurrency token: every persisted mutation increments it, and a write
// conditioned on a stale version must be rejected by the store.
type Wallet struct {
	ID            string
	UserID        int64
	WalletType    WalletType
	Balance       int64
	Currency      string
	LastRequestID string
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ValidateDebit checks whether the wallet can cover a debit of amount.
func (w *Wallet) ValidateDebit(amount int64) error {
	if w.Balance < amount {
		return ErrInsufficientBalance
	}
	return nil
}

// ApplyDebit returns the balance after a debit.
func (w *Wallet) ApplyDebit(amount int64) int64 {
	return w.Balance - amount
}

// ApplyCredit returns the balance after a credit.
func (w *Wallet) ApplyCredit(amount int64) int64 {
	return w.Balance + amount
}
