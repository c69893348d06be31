package domain

import "errors"

var (
	// Wallet errors
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrWalletExists        = errors.New("wallet already exists")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInvalidWalletType   = errors.New("invalid wallet type")
	ErrSameUser            = errors.New("cannot transfer to same user")
	ErrVersionConflict     = errors.New("wallet modified concurrently")
	ErrInsufficientBalance = errors.New("insufficient balance")

	// Transaction errors
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrTransactionFailed   = errors.New("failed to record transaction")
	ErrWalletUnavailable   = errors.New("wallet service unavailable")
)
