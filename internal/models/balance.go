package models

import "time"

// Balance is a per-user, per-currency holding. The (UserID, CurrencyCode)
// pair is unique; rows are created lazily with a zero amount and are never
// deleted.
type Balance struct {
	ID           uint      `gorm:"primarykey" json:"-"`
	UserID       uint      `gorm:"uniqueIndex:idx_user_currency;not null" json:"-"`
	CurrencyCode string    `gorm:"uniqueIndex:idx_user_currency;not null;size:3" json:"currencyCode"`
	Amount       float64   `gorm:"not null;default:0" json:"amount"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}
