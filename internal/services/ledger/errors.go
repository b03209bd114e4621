package ledger

import "errors"

// Service errors
var (
	ErrInvalidAmount     = errors.New("amount must be a positive number")
	ErrInvalidRequest    = errors.New("invalid exchange request")
	ErrUnknownCurrency   = errors.New("unknown currency code")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrConflict          = errors.New("concurrent balance update, please retry")
)
