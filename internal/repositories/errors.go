package repositories

import "errors"

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrBalanceNotFound     = errors.New("balance not found")
	ErrBalanceConflict     = errors.New("balance was modified concurrently")
	ErrTransactionNotFound = errors.New("transaction not found")
)
