package repositories

import "kantor/internal/models"

// BalanceRepository is the store contract the ledger engine runs on.
// Per (user, currency) key updates are linearizable: either through
// CompareAndSet (optimistic, RowsAffected check) or through
// GetOrCreateForUpdate inside ExecuteInTransaction (pessimistic row lock).
type BalanceRepository interface {
	GetOrCreate(userID uint, currencyCode string) (*models.Balance, error)
	GetOrCreateForUpdate(userID uint, currencyCode string) (*models.Balance, error)
	CompareAndSet(userID uint, currencyCode string, expected, newAmount float64) error
	Update(balance *models.Balance) error
	ListForUser(userID uint) ([]models.Balance, error)

	// ExecuteInTransaction runs fn against repositories bound to a single
	// database transaction. Everything fn writes commits together or not
	// at all.
	ExecuteInTransaction(fn func(balances BalanceRepository, log TransactionRepository) error) error
}
