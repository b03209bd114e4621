package repositories

import (
	"errors"
	"fmt"

	"kantor/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type balanceRepository struct {
	db *gorm.DB
}

func NewBalanceRepository(db *gorm.DB) BalanceRepository {
	return &balanceRepository{db: db}
}

func (r *balanceRepository) GetOrCreate(userID uint, currencyCode string) (*models.Balance, error) {
	var balance models.Balance
	err := r.db.
		Where("user_id = ? AND currency_code = ?", userID, currencyCode).
		First(&balance).Error
	if err == nil {
		return &balance, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}

	balance = models.Balance{UserID: userID, CurrencyCode: currencyCode, Amount: 0}
	// Two callers can race on the first reference to a key; the unique
	// index makes one insert lose, so fall back to reading the winner.
	if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&balance).Error; err != nil {
		return nil, fmt.Errorf("failed to create balance: %w", err)
	}
	if balance.ID == 0 {
		if err := r.db.
			Where("user_id = ? AND currency_code = ?", userID, currencyCode).
			First(&balance).Error; err != nil {
			return nil, fmt.Errorf("failed to get balance: %w", err)
		}
	}
	return &balance, nil
}

func (r *balanceRepository) GetOrCreateForUpdate(userID uint, currencyCode string) (*models.Balance, error) {
	var balance models.Balance
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND currency_code = ?", userID, currencyCode).
		First(&balance).Error
	if err == nil {
		return &balance, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to lock balance: %w", err)
	}

	balance = models.Balance{UserID: userID, CurrencyCode: currencyCode, Amount: 0}
	if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&balance).Error; err != nil {
		return nil, fmt.Errorf("failed to create balance: %w", err)
	}
	// Re-read under the lock so the caller owns the row for the rest of
	// the transaction.
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND currency_code = ?", userID, currencyCode).
		First(&balance).Error; err != nil {
		return nil, fmt.Errorf("failed to lock balance: %w", err)
	}
	return &balance, nil
}

func (r *balanceRepository) CompareAndSet(userID uint, currencyCode string, expected, newAmount float64) error {
	result := r.db.Model(&models.Balance{}).
		Where("user_id = ? AND currency_code = ? AND amount = ?", userID, currencyCode, expected).
		Update("amount", newAmount)
	if result.Error != nil {
		return fmt.Errorf("failed to update balance: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrBalanceConflict
	}
	return nil
}

func (r *balanceRepository) Update(balance *models.Balance) error {
	if err := r.db.Save(balance).Error; err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	return nil
}

func (r *balanceRepository) ListForUser(userID uint) ([]models.Balance, error) {
	var balances []models.Balance
	err := r.db.
		Where("user_id = ?", userID).
		Order("currency_code ASC").
		Find(&balances).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}
	return balances, nil
}

func (r *balanceRepository) ExecuteInTransaction(fn func(BalanceRepository, TransactionRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&balanceRepository{db: tx}, &transactionRepository{db: tx})
	})
}
