package repositories

import "kantor/internal/models"

// TransactionRepository is the append-only ledger log. Append assigns a
// monotonically increasing id; records are never updated or deleted.
type TransactionRepository interface {
	Append(tx *models.Transaction) error
	ListForUser(userID uint) ([]models.Transaction, error)
}
