package badgerstore

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bankapi/internal/domain/account"
	"bankapi/internal/domain/ledger"
	"bankapi/internal/domain/transaction"
	"bankapi/internal/shared/apperr"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

var epoch = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func createAccount(t *testing.T, repo *AccountRepository, id int64, balance string) *account.Account {
	t.Helper()
	name := "Test"
	b := decimal.RequireFromString(balance)
	acc, err := repo.Create(context.Background(), account.CreateParams{ID: id, Name: &name, Balance: &b}.NewAccount(epoch))
	require.NoError(t, err)
	return acc
}

func movement(id int64, typ transaction.Type, amount string, at time.Time) ledger.Movement {
	return ledger.Movement{
		ID:        uuid.NewString(),
		AccountID: id,
		Type:      typ,
		Amount:    decimal.RequireFromString(amount),
		At:        at,
	}
}

func TestAccountRepository_CreateGetList(t *testing.T) {
	db := openTestDB(t)
	repo := NewAccountRepository(db)
	ctx := context.Background()

	createAccount(t, repo, 2, "10")
	createAccount(t, repo, 1, "20")
	createAccount(t, repo, 10, "30")

	got, err := repo.GetByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Test", got.Name)
	assert.Equal(t, account.StatusActive, got.Status)
	assert.Equal(t, account.DefaultAddress, got.Address)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(10)))
	assert.True(t, got.OpeningBalance.Equal(decimal.NewFromInt(10)))

	_, err = repo.GetByID(ctx, 99)
	assert.ErrorIs(t, err, account.ErrAccountNotFound)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []int64{1, 2, 10}, []int64{list[0].ID, list[1].ID, list[2].ID})

	_, err = repo.Create(ctx, got)
	assert.Error(t, err, "duplicate ID must be refused")
}

func TestAccountRepository_Update(t *testing.T) {
	db := openTestDB(t)
	repo := NewAccountRepository(db)
	ctx := context.Background()
	createAccount(t, repo, 1, "10")

	name, months := "Renamed", 6
	got, err := repo.Update(ctx, 1, account.UpdateParams{Name: &name, NoOfMonths: &months})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, 6, got.NoOfMonths)
	assert.Equal(t, account.DefaultAddress, got.Address)

	_, err = repo.Update(ctx, 42, account.UpdateParams{Name: &name})
	assert.ErrorIs(t, err, account.ErrAccountNotFound)
}

func TestAccountRepository_Transition(t *testing.T) {
	db := openTestDB(t)
	repo := NewAccountRepository(db)
	ctx := context.Background()
	createAccount(t, repo, 1, "0")
	createAccount(t, repo, 2, "5")

	closeTo := account.Transition{
		From:               []account.Status{account.StatusActive, account.StatusBlocked},
		To:                 account.StatusClosed,
		RequireZeroBalance: true,
	}

	got, err := repo.Transition(ctx, 1, closeTo)
	require.NoError(t, err)
	assert.Equal(t, account.StatusClosed, got.Status)

	_, err = repo.Transition(ctx, 1, closeTo)
	assert.ErrorIs(t, err, account.ErrNoMatch, "already closed")

	_, err = repo.Transition(ctx, 2, closeTo)
	assert.ErrorIs(t, err, account.ErrNoMatch, "non-zero balance")

	_, err = repo.Transition(ctx, 3, closeTo)
	assert.ErrorIs(t, err, account.ErrNoMatch, "absent account")
}

func TestAccountRepository_DeleteCascades(t *testing.T) {
	db := openTestDB(t)
	accounts := NewAccountRepository(db)
	txs := NewTransactionRepository(db)
	store := NewLedgerStore(db)
	ctx := context.Background()

	createAccount(t, accounts, 1, "0")
	createAccount(t, accounts, 2, "0")
	_, err := store.Apply(ctx, movement(1, transaction.TypeDeposit, "50", epoch))
	require.NoError(t, err)
	_, err = store.Apply(ctx, movement(2, transaction.TypeDeposit, "5", epoch))
	require.NoError(t, err)

	err = accounts.Delete(ctx, 1)
	assert.ErrorIs(t, err, account.ErrNoMatch, "non-zero balance")

	_, err = store.Apply(ctx, movement(1, transaction.TypeWithdrawal, "50", epoch.Add(time.Second)))
	require.NoError(t, err)
	require.NoError(t, accounts.Delete(ctx, 1))

	_, err = accounts.GetByID(ctx, 1)
	assert.ErrorIs(t, err, account.ErrAccountNotFound)
	left, err := txs.ListByAccountID(ctx, 1, transaction.Ascending)
	require.NoError(t, err)
	assert.Empty(t, left)

	other, err := txs.ListByAccountID(ctx, 2, transaction.Ascending)
	require.NoError(t, err)
	assert.Len(t, other, 1, "other accounts keep their history")

	assert.ErrorIs(t, accounts.Delete(ctx, 1), account.ErrNoMatch)
}

func TestLedgerStore_Apply(t *testing.T) {
	db := openTestDB(t)
	accounts := NewAccountRepository(db)
	txs := NewTransactionRepository(db)
	store := NewLedgerStore(db)
	ctx := context.Background()
	createAccount(t, accounts, 1, "0")

	acc, err := store.Apply(ctx, movement(1, transaction.TypeDeposit, "100", epoch))
	require.NoError(t, err)
	assert.Equal(t, "100", acc.Balance.String())

	acc, err = store.Apply(ctx, movement(1, transaction.TypeWithdrawal, "30", epoch.Add(time.Minute)))
	require.NoError(t, err)
	assert.Equal(t, "70", acc.Balance.String())

	_, err = store.Apply(ctx, movement(1, transaction.TypeWithdrawal, "70.01", epoch.Add(2*time.Minute)))
	assert.ErrorIs(t, err, account.ErrNoMatch, "insufficient funds")

	_, err = store.Apply(ctx, movement(7, transaction.TypeDeposit, "1", epoch))
	assert.ErrorIs(t, err, account.ErrNoMatch, "absent account")

	desc, err := txs.ListByAccountID(ctx, 1, transaction.Descending)
	require.NoError(t, err)
	require.Len(t, desc, 2)
	assert.Equal(t, transaction.TypeWithdrawal, desc[0].Type)
	assert.Equal(t, transaction.TypeDeposit, desc[1].Type)

	stored, err := accounts.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(stored.OpeningBalance.Add(transaction.Net(desc))))
}

func TestLedgerStore_RejectsInactive(t *testing.T) {
	db := openTestDB(t)
	accounts := NewAccountRepository(db)
	store := NewLedgerStore(db)
	ctx := context.Background()
	createAccount(t, accounts, 1, "10")

	_, err := accounts.Transition(ctx, 1, account.Transition{From: []account.Status{account.StatusActive}, To: account.StatusBlocked})
	require.NoError(t, err)

	_, err = store.Apply(ctx, movement(1, transaction.TypeDeposit, "1", epoch))
	assert.ErrorIs(t, err, account.ErrNoMatch)
}

func TestTransactionRepository_OrdersByTimestampThenAppend(t *testing.T) {
	db := openTestDB(t)
	accounts := NewAccountRepository(db)
	txs := NewTransactionRepository(db)
	store := NewLedgerStore(db)
	ctx := context.Background()
	createAccount(t, accounts, 1, "0")

	later := epoch.Add(time.Hour)
	first := movement(1, transaction.TypeDeposit, "1", later)
	second := movement(1, transaction.TypeDeposit, "2", epoch)
	third := movement(1, transaction.TypeDeposit, "3", later)
	for _, m := range []ledger.Movement{first, second, third} {
		_, err := store.Apply(ctx, m)
		require.NoError(t, err)
	}

	asc, err := txs.ListByAccountID(ctx, 1, transaction.Ascending)
	require.NoError(t, err)
	require.Len(t, asc, 3)
	assert.Equal(t, []string{second.ID, first.ID, third.ID}, []string{asc[0].ID, asc[1].ID, asc[2].ID})

	desc, err := txs.ListByAccountID(ctx, 1, transaction.Descending)
	require.NoError(t, err)
	assert.Equal(t, []string{third.ID, first.ID, second.ID}, []string{desc[0].ID, desc[1].ID, desc[2].ID})
}

func TestLedgerStore_ConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	db := openTestDB(t)
	accounts := NewAccountRepository(db)
	store := NewLedgerStore(db)
	ctx := context.Background()
	createAccount(t, accounts, 1, "100")

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Apply(ctx, movement(1, transaction.TypeWithdrawal, "10", time.Now()))
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
				return
			}
			if !errors.Is(err, account.ErrNoMatch) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, accepted)
	acc, err := accounts.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.True(t, acc.Balance.IsZero(), "balance = %s", acc.Balance)
}

func TestLedgerStore_HighFanInDepositsAllApply(t *testing.T) {
	db := openTestDB(t)
	accounts := NewAccountRepository(db)
	store := NewLedgerStore(db)
	txs := NewTransactionRepository(db)
	ctx := context.Background()
	createAccount(t, accounts, 1, "0")
	createAccount(t, accounts, 2, "0")

	const n = 500
	var (
		wg     sync.WaitGroup
		failed atomic.Int32
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Every tenth movement lands on another account so writers of
			// different keys run alongside the queue on account 1.
			id := int64(1)
			if i%10 == 0 {
				id = 2
			}
			if _, err := store.Apply(ctx, movement(id, transaction.TypeDeposit, "1", time.Now())); err != nil {
				failed.Add(1)
				t.Errorf("deposit %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	require.Zero(t, failed.Load())
	acc, err := accounts.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.True(t, acc.Balance.Equal(decimal.NewFromInt(n*9/10)), "balance = %s", acc.Balance)

	logged, err := txs.ListByAccountID(ctx, 1, transaction.Ascending)
	require.NoError(t, err)
	assert.Len(t, logged, n*9/10)
}

func TestJitter(t *testing.T) {
	for i := 0; i < 100; i++ {
		d := jitter(10 * time.Millisecond)
		assert.GreaterOrEqual(t, d, 5*time.Millisecond)
		assert.Less(t, d, 15*time.Millisecond)
	}
}

func TestSequenceRepository_Next(t *testing.T) {
	db := openTestDB(t)
	seq := NewSequenceRepository(db)
	ctx := context.Background()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[int64]bool{}
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := seq.Next(ctx, "account_id")
			if err != nil {
				t.Errorf("Next: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if seen[v] {
				t.Errorf("value %d handed out twice", v)
			}
			seen[v] = true
		}()
	}
	wg.Wait()

	other, err := seq.Next(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, int64(1), other, "namespaces count independently")
}

func TestClosedDBIsUnavailable(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = NewAccountRepository(db).GetByID(context.Background(), 1)
	assert.ErrorIs(t, err, apperr.ErrUnavailable)
}
