package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"testing"
	"time"

	"kantor/internal/models"
	"kantor/internal/repositories"
	"kantor/internal/services/rates"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory BalanceRepository + TransactionRepository with
// the same linearizability contract as the real store: every operation runs
// under the mutex, and ExecuteInTransaction commits a cloned state only when
// the closure succeeds.
type memStore struct {
	mu    sync.Mutex
	state *memState
}

type memState struct {
	balances  map[string]*models.Balance
	txs       []models.Transaction
	nextBalID uint
	nextTxID  uint
}

func newMemStore() *memStore {
	return &memStore{state: &memState{balances: make(map[string]*models.Balance)}}
}

func balKey(userID uint, code string) string {
	return fmt.Sprintf("%d:%s", userID, code)
}

func (s *memState) clone() *memState {
	cp := &memState{
		balances:  make(map[string]*models.Balance, len(s.balances)),
		txs:       make([]models.Transaction, len(s.txs)),
		nextBalID: s.nextBalID,
		nextTxID:  s.nextTxID,
	}
	for k, v := range s.balances {
		b := *v
		cp.balances[k] = &b
	}
	copy(cp.txs, s.txs)
	return cp
}

func (s *memState) getOrCreate(userID uint, code string) *models.Balance {
	key := balKey(userID, code)
	if b, ok := s.balances[key]; ok {
		return b
	}
	s.nextBalID++
	b := &models.Balance{ID: s.nextBalID, UserID: userID, CurrencyCode: code}
	s.balances[key] = b
	return b
}

func (s *memState) append(tx *models.Transaction) {
	s.nextTxID++
	tx.ID = s.nextTxID
	// Strictly increasing timestamps keep the ordering deterministic.
	tx.CreatedAt = time.Unix(0, 0).Add(time.Duration(s.nextTxID) * time.Millisecond)
	s.txs = append(s.txs, *tx)
}

func (s *memStore) GetOrCreate(userID uint, code string) (*models.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := *s.state.getOrCreate(userID, code)
	return &b, nil
}

func (s *memStore) GetOrCreateForUpdate(userID uint, code string) (*models.Balance, error) {
	return s.GetOrCreate(userID, code)
}

func (s *memStore) CompareAndSet(userID uint, code string, expected, newAmount float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.compareAndSet(userID, code, expected, newAmount)
}

func (s *memState) compareAndSet(userID uint, code string, expected, newAmount float64) error {
	b, ok := s.balances[balKey(userID, code)]
	if !ok || b.Amount != expected {
		return repositories.ErrBalanceConflict
	}
	b.Amount = newAmount
	return nil
}

func (s *memStore) Update(balance *models.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := *balance
	s.state.balances[balKey(balance.UserID, balance.CurrencyCode)] = &b
	return nil
}

func (s *memStore) ListForUser(userID uint) ([]models.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Balance
	for _, b := range s.state.balances {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CurrencyCode < out[j].CurrencyCode })
	return out, nil
}

func (s *memStore) ExecuteInTransaction(fn func(repositories.BalanceRepository, repositories.TransactionRepository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt := s.state.clone()
	if err := fn(&memTx{state: attempt}, &memTxLog{state: attempt}); err != nil {
		return err
	}
	s.state = attempt
	return nil
}

func (s *memStore) Append(tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.append(tx)
	return nil
}

func (s *memStore) listTransactions(userID uint) []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Transaction
	for _, tx := range s.state.txs {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// memTx operates on the cloned state without locking; the owning store holds
// the mutex for the whole transaction.
type memTx struct {
	state *memState
}

func (t *memTx) GetOrCreate(userID uint, code string) (*models.Balance, error) {
	return t.state.getOrCreate(userID, code), nil
}

func (t *memTx) GetOrCreateForUpdate(userID uint, code string) (*models.Balance, error) {
	return t.state.getOrCreate(userID, code), nil
}

func (t *memTx) CompareAndSet(userID uint, code string, expected, newAmount float64) error {
	return t.state.compareAndSet(userID, code, expected, newAmount)
}

func (t *memTx) Update(balance *models.Balance) error {
	b := *balance
	t.state.balances[balKey(balance.UserID, balance.CurrencyCode)] = &b
	return nil
}

func (t *memTx) ListForUser(userID uint) ([]models.Balance, error) { return nil, nil }

func (t *memTx) ExecuteInTransaction(fn func(repositories.BalanceRepository, repositories.TransactionRepository) error) error {
	return fn(t, &memTxLog{state: t.state})
}

// memTxLog is the log side of an open fake transaction.
type memTxLog struct {
	state *memState
}

func (l *memTxLog) Append(tx *models.Transaction) error {
	l.state.append(tx)
	return nil
}

func (l *memTxLog) ListForUser(userID uint) ([]models.Transaction, error) { return nil, nil }

// memLog adapts memStore to TransactionRepository.
type memLog struct {
	store *memStore
}

func (l *memLog) Append(tx *models.Transaction) error { return l.store.Append(tx) }

func (l *memLog) ListForUser(userID uint) ([]models.Transaction, error) {
	return l.store.listTransactions(userID), nil
}

// fakeRates is a deterministic Provider whose table can be swapped mid-test.
type fakeRates struct {
	mu    sync.Mutex
	table *rates.Table
	err   error
}

func (f *fakeRates) CurrentTable(ctx context.Context) (*rates.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	t := *f.table
	return &t, nil
}

func (f *fakeRates) HistoricalSeries(ctx context.Context, code string, start, end time.Time) ([]rates.HistoricalRate, error) {
	return nil, nil
}

func (f *fakeRates) setAsk(code string, ask float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.table.Rates {
		if f.table.Rates[i].Code == code {
			f.table.Rates[i].Ask = ask
		}
	}
}

func defaultTable() *rates.Table {
	return &rates.Table{
		EffectiveDate: "2026-08-28",
		Rates: []rates.Rate{
			{Currency: "euro", Code: "EUR", Bid: 4.22, Ask: 4.30},
			{Currency: "dolar amerykański", Code: "USD", Bid: 3.90, Ask: 3.98},
		},
	}
}

func newTestService(t *testing.T) (Service, *memStore, *fakeRates) {
	t.Helper()
	store := newMemStore()
	provider := &fakeRates{table: defaultTable()}
	svc := NewService(store, &memLog{store}, provider, Config{}, nil, nil)
	return svc, store, provider
}

func TestTopUp(t *testing.T) {
	tests := []struct {
		name    string
		amount  float64
		wantErr error
		want    float64
	}{
		{name: "valid amount", amount: 250.50, want: 250.50},
		{name: "zero amount", amount: 0, wantErr: ErrInvalidAmount},
		{name: "negative amount", amount: -10, wantErr: ErrInvalidAmount},
		{name: "NaN", amount: math.NaN(), wantErr: ErrInvalidAmount},
		{name: "infinity", amount: math.Inf(1), wantErr: ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _ := newTestService(t)

			newBalance, err := svc.TopUp(context.Background(), 1, tt.amount)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, store.listTransactions(1))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, newBalance)

			txs := store.listTransactions(1)
			require.Len(t, txs, 1)
			assert.Equal(t, models.TransactionTypeTopUp, txs[0].Type)
			assert.Equal(t, ReferenceCurrency, txs[0].CurrencyCode)
			assert.Equal(t, tt.amount, txs[0].Amount)
			assert.Equal(t, tt.amount, txs[0].BaseAmountPLN)
			assert.Equal(t, 1.0, txs[0].Rate)
			assert.NotEmpty(t, txs[0].Reference)
		})
	}
}

func TestTopUpAccumulates(t *testing.T) {
	svc, _, _ := newTestService(t)

	first, err := svc.TopUp(context.Background(), 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 100.0, first)

	second, err := svc.TopUp(context.Background(), 1, 50)
	require.NoError(t, err)
	assert.Equal(t, 150.0, second)
}

func TestExchangeBuy(t *testing.T) {
	svc, store, _ := newTestService(t)

	_, err := svc.TopUp(context.Background(), 1, 1000)
	require.NoError(t, err)

	record, err := svc.Exchange(context.Background(), 1, "BUY", "EUR", 100)
	require.NoError(t, err)

	assert.Equal(t, models.TransactionTypeBuy, record.Type)
	assert.Equal(t, "EUR", record.CurrencyCode)
	assert.Equal(t, 100.0, record.Amount)
	assert.InDelta(t, 430.0, record.BaseAmountPLN, 1e-9)
	assert.Equal(t, 4.30, record.Rate)
	assert.NotZero(t, record.ID)

	pln, err := store.GetOrCreate(1, ReferenceCurrency)
	require.NoError(t, err)
	eur, err := store.GetOrCreate(1, "EUR")
	require.NoError(t, err)
	assert.InDelta(t, 570.0, pln.Amount, 1e-9)
	assert.Equal(t, 100.0, eur.Amount)
}

func TestExchangeSell(t *testing.T) {
	svc, store, _ := newTestService(t)

	_, err := svc.TopUp(context.Background(), 1, 1000)
	require.NoError(t, err)
	_, err = svc.Exchange(context.Background(), 1, "BUY", "EUR", 100)
	require.NoError(t, err)

	record, err := svc.Exchange(context.Background(), 1, "SELL", "EUR", 40)
	require.NoError(t, err)

	assert.Equal(t, models.TransactionTypeSell, record.Type)
	assert.Equal(t, 4.22, record.Rate)
	assert.InDelta(t, 40*4.22, record.BaseAmountPLN, 1e-9)

	pln, _ := store.GetOrCreate(1, ReferenceCurrency)
	eur, _ := store.GetOrCreate(1, "EUR")
	assert.InDelta(t, 570.0+40*4.22, pln.Amount, 1e-9)
	assert.InDelta(t, 60.0, eur.Amount, 1e-9)
}

func TestExchangeValidation(t *testing.T) {
	tests := []struct {
		name      string
		direction string
		code      string
		amount    float64
		wantErr   error
	}{
		{name: "bad direction", direction: "SWAP", code: "EUR", amount: 10, wantErr: ErrInvalidRequest},
		{name: "empty direction", direction: "", code: "EUR", amount: 10, wantErr: ErrInvalidRequest},
		{name: "empty code", direction: "BUY", code: "", amount: 10, wantErr: ErrInvalidRequest},
		{name: "reference currency code", direction: "BUY", code: "PLN", amount: 10, wantErr: ErrInvalidRequest},
		{name: "zero amount", direction: "BUY", code: "EUR", amount: 0, wantErr: ErrInvalidRequest},
		{name: "negative amount", direction: "SELL", code: "EUR", amount: -3, wantErr: ErrInvalidRequest},
		{name: "NaN amount", direction: "BUY", code: "EUR", amount: math.NaN(), wantErr: ErrInvalidRequest},
		{name: "unknown currency", direction: "BUY", code: "XXX", amount: 10, wantErr: ErrUnknownCurrency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _ := newTestService(t)
			_, err := svc.TopUp(context.Background(), 1, 1000)
			require.NoError(t, err)

			_, err = svc.Exchange(context.Background(), 1, tt.direction, tt.code, tt.amount)
			assert.ErrorIs(t, err, tt.wantErr)

			pln, _ := store.GetOrCreate(1, ReferenceCurrency)
			assert.Equal(t, 1000.0, pln.Amount)
			assert.Len(t, store.listTransactions(1), 1) // the top-up only
		})
	}
}

func TestExchangeNormalizesInput(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.TopUp(context.Background(), 1, 1000)
	require.NoError(t, err)

	record, err := svc.Exchange(context.Background(), 1, "buy", " eur ", 10)
	require.NoError(t, err)
	assert.Equal(t, "BUY", record.Type)
	assert.Equal(t, "EUR", record.CurrencyCode)
}

func TestExchangeInsufficientFunds(t *testing.T) {
	t.Run("buy without enough PLN", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		_, err := svc.TopUp(context.Background(), 1, 100)
		require.NoError(t, err)

		_, err = svc.Exchange(context.Background(), 1, "BUY", "EUR", 100) // needs 430 PLN
		assert.ErrorIs(t, err, ErrInsufficientFunds)

		pln, _ := store.GetOrCreate(1, ReferenceCurrency)
		eur, _ := store.GetOrCreate(1, "EUR")
		assert.Equal(t, 100.0, pln.Amount)
		assert.Equal(t, 0.0, eur.Amount)
		assert.Len(t, store.listTransactions(1), 1)
	})

	t.Run("sell without enough foreign", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		_, err := svc.TopUp(context.Background(), 1, 1000)
		require.NoError(t, err)

		_, err = svc.Exchange(context.Background(), 1, "SELL", "EUR", 5)
		assert.ErrorIs(t, err, ErrInsufficientFunds)

		pln, _ := store.GetOrCreate(1, ReferenceCurrency)
		assert.Equal(t, 1000.0, pln.Amount)
		assert.Len(t, store.listTransactions(1), 1)
	})
}

func TestExchangeRateProviderUnavailable(t *testing.T) {
	svc, store, provider := newTestService(t)
	_, err := svc.TopUp(context.Background(), 1, 1000)
	require.NoError(t, err)

	provider.mu.Lock()
	provider.err = rates.ErrProviderUnavailable
	provider.mu.Unlock()

	_, err = svc.Exchange(context.Background(), 1, "BUY", "EUR", 10)
	assert.ErrorIs(t, err, rates.ErrProviderUnavailable)

	pln, _ := store.GetOrCreate(1, ReferenceCurrency)
	assert.Equal(t, 1000.0, pln.Amount)
	assert.Len(t, store.listTransactions(1), 1)
}

func TestExchangeFreezesRate(t *testing.T) {
	svc, _, provider := newTestService(t)
	_, err := svc.TopUp(context.Background(), 1, 10000)
	require.NoError(t, err)

	first, err := svc.Exchange(context.Background(), 1, "BUY", "EUR", 100)
	require.NoError(t, err)

	provider.setAsk("EUR", 4.50)

	second, err := svc.Exchange(context.Background(), 1, "BUY", "EUR", 100)
	require.NoError(t, err)

	assert.Equal(t, 4.30, first.Rate)
	assert.Equal(t, 4.50, second.Rate)
	assert.InDelta(t, 430.0, first.BaseAmountPLN, 1e-9)
	assert.InDelta(t, 450.0, second.BaseAmountPLN, 1e-9)
}

func TestGetWallet(t *testing.T) {
	svc, _, _ := newTestService(t)

	t.Run("seeds reference currency", func(t *testing.T) {
		balances, err := svc.GetWallet(context.Background(), 7)
		require.NoError(t, err)
		require.Len(t, balances, 1)
		assert.Equal(t, ReferenceCurrency, balances[0].CurrencyCode)
		assert.Equal(t, 0.0, balances[0].Amount)
	})

	t.Run("idempotent read", func(t *testing.T) {
		first, err := svc.GetWallet(context.Background(), 7)
		require.NoError(t, err)
		second, err := svc.GetWallet(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}

func TestListTransactionsOrder(t *testing.T) {
	svc, _, _ := newTestService(t)

	for i := 0; i < 3; i++ {
		_, err := svc.TopUp(context.Background(), 1, 100)
		require.NoError(t, err)
	}
	_, err := svc.Exchange(context.Background(), 1, "BUY", "USD", 10)
	require.NoError(t, err)

	txs, err := svc.ListTransactions(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, txs, 4)
	assert.Equal(t, models.TransactionTypeBuy, txs[0].Type)
	for i := 1; i < len(txs); i++ {
		assert.False(t, txs[i].CreatedAt.After(txs[i-1].CreatedAt))
	}
}

func TestConcurrentTopUps(t *testing.T) {
	svc, store, _ := newTestService(t)

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			// ErrConflict is retryable by the caller; keep going until the
			// top-up lands so every worker commits exactly once.
			for {
				_, err := svc.TopUp(context.Background(), 1, 1)
				if err == nil {
					return
				}
				if !errors.Is(err, ErrConflict) {
					t.Errorf("unexpected top-up error: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	pln, err := store.GetOrCreate(1, ReferenceCurrency)
	require.NoError(t, err)
	assert.Equal(t, float64(workers), pln.Amount)
	assert.Len(t, store.listTransactions(1), workers)
}

// conflictStore simulates a store where every optimistic write collides.
type conflictStore struct {
	*memStore
}

func (s *conflictStore) ExecuteInTransaction(fn func(repositories.BalanceRepository, repositories.TransactionRepository) error) error {
	return repositories.ErrBalanceConflict
}

func TestTopUpConflictExhaustsRetries(t *testing.T) {
	store := &conflictStore{newMemStore()}
	provider := &fakeRates{table: defaultTable()}
	svc := NewService(store, &memLog{store.memStore}, provider, Config{MaxConflictRetries: 3}, nil, nil)

	_, err := svc.TopUp(context.Background(), 1, 100)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Empty(t, store.listTransactions(1))
}

func TestConcurrentExchanges(t *testing.T) {
	svc, store, _ := newTestService(t)
	_, err := svc.TopUp(context.Background(), 1, 4300)
	require.NoError(t, err)

	const workers = 10
	var wg sync.WaitGroup
	var insufficient, succeeded int64
	var mu sync.Mutex

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := svc.Exchange(context.Background(), 1, "BUY", "EUR", 100)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if errors.Is(err, ErrInsufficientFunds) {
				insufficient++
			} else {
				t.Errorf("unexpected exchange error: %v", err)
			}
		}()
	}
	wg.Wait()

	// The pot covers roughly ten 430 PLN purchases; whatever the
	// interleaving, money is conserved and nothing goes negative.
	assert.Equal(t, int64(workers), succeeded+insufficient)
	pln, _ := store.GetOrCreate(1, ReferenceCurrency)
	eur, _ := store.GetOrCreate(1, "EUR")
	assert.InDelta(t, 4300-float64(succeeded)*430, pln.Amount, 1e-9)
	assert.InDelta(t, float64(succeeded)*100, eur.Amount, 1e-9)
	assert.GreaterOrEqual(t, pln.Amount, 0.0)
}
