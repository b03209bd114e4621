package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"kantor/internal/models"
	"kantor/internal/repositories"
	"kantor/internal/services/rates"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReferenceCurrency is the home currency all foreign balances trade against.
const ReferenceCurrency = "PLN"

// Service is the wallet ledger engine.
type Service interface {
	// TopUp credits the reference-currency balance and returns its new amount.
	TopUp(ctx context.Context, userID uint, amountPLN float64) (float64, error)
	// Exchange converts between PLN and a foreign currency at the current
	// quoted rate and returns the created transaction record.
	Exchange(ctx context.Context, userID uint, direction, currencyCode string, amount float64) (*models.Transaction, error)
	// GetWallet returns the user's balances; the PLN entry always exists.
	GetWallet(ctx context.Context, userID uint) ([]models.Balance, error)
	// ListTransactions returns the user's records, most recent first.
	ListTransactions(ctx context.Context, userID uint) ([]models.Transaction, error)
}

type service struct {
	balances repositories.BalanceRepository
	txLog    repositories.TransactionRepository
	rates    rates.Provider
	metrics  MetricsCollector
	logger   *zap.Logger
	config   Config
}

func NewService(
	balances repositories.BalanceRepository,
	txLog repositories.TransactionRepository,
	rateProvider rates.Provider,
	config Config,
	metrics MetricsCollector,
	logger *zap.Logger,
) Service {
	if balances == nil {
		panic("balance repository is required")
	}
	if txLog == nil {
		panic("transaction repository is required")
	}
	if rateProvider == nil {
		panic("rate provider is required")
	}
	if config.MaxConflictRetries <= 0 {
		config.MaxConflictRetries = defaultMaxConflictRetries
	}
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &service{
		balances: balances,
		txLog:    txLog,
		rates:    rateProvider,
		metrics:  metrics,
		logger:   logger,
		config:   config,
	}
}

func (s *service) TopUp(ctx context.Context, userID uint, amountPLN float64) (float64, error) {
	defer s.timeOperation("top_up")()

	if !validAmount(amountPLN) {
		s.metrics.RecordError("top_up", "invalid_amount")
		return 0, ErrInvalidAmount
	}

	// Optimistic concurrency: re-read and recompute on every attempt, never
	// re-apply an already committed write.
	for attempt := 0; attempt < s.config.MaxConflictRetries; attempt++ {
		balance, err := s.balances.GetOrCreate(userID, ReferenceCurrency)
		if err != nil {
			s.metrics.RecordError("top_up", "store")
			return 0, err
		}

		newAmount := balance.Amount + amountPLN
		err = s.balances.ExecuteInTransaction(func(b repositories.BalanceRepository, l repositories.TransactionRepository) error {
			if err := b.CompareAndSet(userID, ReferenceCurrency, balance.Amount, newAmount); err != nil {
				return err
			}
			return l.Append(&models.Transaction{
				Reference:     uuid.NewString(),
				UserID:        userID,
				Type:          models.TransactionTypeTopUp,
				CurrencyCode:  ReferenceCurrency,
				Amount:        amountPLN,
				BaseAmountPLN: amountPLN,
				Rate:          1.0,
			})
		})
		if errors.Is(err, repositories.ErrBalanceConflict) {
			s.logger.Debug("top-up lost a compare-and-set race",
				zap.Uint("user_id", userID), zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			s.metrics.RecordError("top_up", "store")
			return 0, fmt.Errorf("top-up failed: %w", err)
		}

		s.metrics.RecordTransaction(models.TransactionTypeTopUp, amountPLN)
		return newAmount, nil
	}

	s.metrics.RecordError("top_up", "conflict")
	return 0, ErrConflict
}

func (s *service) Exchange(ctx context.Context, userID uint, direction, currencyCode string, amount float64) (*models.Transaction, error) {
	defer s.timeOperation("exchange")()

	direction = strings.ToUpper(strings.TrimSpace(direction))
	currencyCode = strings.ToUpper(strings.TrimSpace(currencyCode))

	if direction != models.TransactionTypeBuy && direction != models.TransactionTypeSell {
		s.metrics.RecordError("exchange", "invalid_request")
		return nil, ErrInvalidRequest
	}
	if currencyCode == "" || currencyCode == ReferenceCurrency {
		s.metrics.RecordError("exchange", "invalid_request")
		return nil, ErrInvalidRequest
	}
	if !validAmount(amount) {
		s.metrics.RecordError("exchange", "invalid_request")
		return nil, ErrInvalidRequest
	}

	table, err := s.rates.CurrentTable(ctx)
	if err != nil {
		s.metrics.RecordError("exchange", "rate_provider")
		return nil, err
	}
	quote, ok := table.Find(currencyCode)
	if !ok {
		s.metrics.RecordError("exchange", "unknown_currency")
		return nil, ErrUnknownCurrency
	}

	// The user buys at the counterparty's sell price and sells at its buy
	// price; the spread works against the user on purpose.
	appliedRate := quote.Bid
	if direction == models.TransactionTypeBuy {
		appliedRate = quote.Ask
	}
	baseAmount := amount * appliedRate

	var record *models.Transaction
	err = s.balances.ExecuteInTransaction(func(b repositories.BalanceRepository, l repositories.TransactionRepository) error {
		reference, foreign, err := lockBalancePair(b, userID, currencyCode)
		if err != nil {
			return err
		}

		if direction == models.TransactionTypeBuy {
			if reference.Amount < baseAmount {
				return ErrInsufficientFunds
			}
			reference.Amount -= baseAmount
			foreign.Amount += amount
		} else {
			if foreign.Amount < amount {
				return ErrInsufficientFunds
			}
			foreign.Amount -= amount
			reference.Amount += baseAmount
		}

		if err := b.Update(reference); err != nil {
			return err
		}
		if err := b.Update(foreign); err != nil {
			return err
		}

		record = &models.Transaction{
			Reference:     uuid.NewString(),
			UserID:        userID,
			Type:          direction,
			CurrencyCode:  currencyCode,
			Amount:        amount,
			BaseAmountPLN: baseAmount,
			Rate:          appliedRate,
		}
		return l.Append(record)
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			s.metrics.RecordError("exchange", "insufficient_funds")
			return nil, ErrInsufficientFunds
		}
		s.metrics.RecordError("exchange", "store")
		return nil, fmt.Errorf("exchange failed: %w", err)
	}

	s.logger.Info("exchange executed",
		zap.Uint("user_id", userID),
		zap.String("direction", direction),
		zap.String("currency", currencyCode),
		zap.Float64("amount", amount),
		zap.Float64("rate", appliedRate),
	)
	s.metrics.RecordTransaction(direction, baseAmount)
	return record, nil
}

func (s *service) GetWallet(ctx context.Context, userID uint) ([]models.Balance, error) {
	// The PLN entry exists for every user that ever touched the wallet.
	if _, err := s.balances.GetOrCreate(userID, ReferenceCurrency); err != nil {
		return nil, err
	}
	return s.balances.ListForUser(userID)
}

func (s *service) ListTransactions(ctx context.Context, userID uint) ([]models.Transaction, error) {
	return s.txLog.ListForUser(userID)
}

// lockBalancePair locks the reference and foreign balance rows in
// deterministic key order so two concurrent exchanges on the same pair
// cannot deadlock.
func lockBalancePair(b repositories.BalanceRepository, userID uint, currencyCode string) (reference, foreign *models.Balance, err error) {
	first, second := ReferenceCurrency, currencyCode
	if currencyCode < ReferenceCurrency {
		first, second = currencyCode, ReferenceCurrency
	}

	firstBal, err := b.GetOrCreateForUpdate(userID, first)
	if err != nil {
		return nil, nil, err
	}
	secondBal, err := b.GetOrCreateForUpdate(userID, second)
	if err != nil {
		return nil, nil, err
	}

	if first == ReferenceCurrency {
		return firstBal, secondBal, nil
	}
	return secondBal, firstBal, nil
}

func (s *service) timeOperation(operation string) func() {
	start := time.Now()
	return func() {
		s.metrics.RecordOperationDuration(operation, time.Since(start))
	}
}

func validAmount(amount float64) bool {
	return !math.IsNaN(amount) && !math.IsInf(amount, 0) && amount > 0
}
