package repositories

import (
	"fmt"

	"kantor/internal/models"

	"gorm.io/gorm"
)

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Append(tx *models.Transaction) error {
	if err := r.db.Create(tx).Error; err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

func (r *transactionRepository) ListForUser(userID uint) ([]models.Transaction, error) {
	var transactions []models.Transaction
	err := r.db.
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&transactions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return transactions, nil
}
