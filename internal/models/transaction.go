package models

import (
	"time"
)

// Transaction types
const (
	TransactionTypeTopUp = "TOP_UP"
	TransactionTypeBuy   = "BUY"
	TransactionTypeSell  = "SELL"
)

// Transaction is an immutable ledger record. Rate is the rate actually
// applied when the operation executed and is never recomputed.
type Transaction struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	Reference     string    `gorm:"uniqueIndex;not null" json:"reference"`
	UserID        uint      `gorm:"index;not null" json:"-"`
	Type          string    `gorm:"not null" json:"type"`
	CurrencyCode  string    `gorm:"not null;size:3" json:"currencyCode"`
	Amount        float64   `gorm:"not null" json:"amount"`
	BaseAmountPLN float64   `gorm:"not null" json:"baseAmountPln"`
	Rate          float64   `gorm:"not null" json:"rate"`
	CreatedAt     time.Time `json:"createdAt"`
}
