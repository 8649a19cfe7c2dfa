package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v3"

	"bankapi/internal/domain/account"
)

// AccountRepository implements account.Repository on Badger.
type AccountRepository struct {
	db  *DB
	now func() time.Time
}

func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func loadAccount(txn *badger.Txn, id int64) (*account.Account, error) {
	var acc account.Account
	if err := getJSON(txn, accountKey(id), &acc); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, account.ErrAccountNotFound
		}
		return nil, err
	}
	acc.Normalize()
	return &acc, nil
}

// Create stores the account document, refusing to overwrite an existing ID.
func (r *AccountRepository) Create(ctx context.Context, acc *account.Account) (*account.Account, error) {
	created := *acc
	err := r.db.update(accountKey(acc.ID), func(txn *badger.Txn) error {
		_, err := txn.Get(accountKey(acc.ID))
		if err == nil {
			return fmt.Errorf("account %d already exists", acc.ID)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return setJSON(txn, accountKey(acc.ID), &created)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	created.Normalize()
	return &created, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*account.Account, error) {
	var acc *account.Account
	err := r.db.view(func(txn *badger.Txn) error {
		var err error
		acc, err = loadAccount(txn, id)
		return err
	})
	if errors.Is(err, account.ErrAccountNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return acc, nil
}

// List returns every account in ID order.
func (r *AccountRepository) List(ctx context.Context) ([]*account.Account, error) {
	accounts := []*account.Account{}
	err := r.db.view(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = accountPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var acc account.Account
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &acc)
			})
			if err != nil {
				return err
			}
			acc.Normalize()
			accounts = append(accounts, &acc)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

func (r *AccountRepository) Update(ctx context.Context, id int64, params account.UpdateParams) (*account.Account, error) {
	var updated *account.Account
	err := r.db.update(accountKey(id), func(txn *badger.Txn) error {
		acc, err := loadAccount(txn, id)
		if err != nil {
			return err
		}
		params.Apply(acc)
		acc.UpdatedAt = r.now()
		updated = acc
		return setJSON(txn, accountKey(id), acc)
	})
	if errors.Is(err, account.ErrAccountNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update account: %w", err)
	}
	return updated, nil
}

func (r *AccountRepository) Transition(ctx context.Context, id int64, t account.Transition) (*account.Account, error) {
	var updated *account.Account
	err := r.db.update(accountKey(id), func(txn *badger.Txn) error {
		acc, err := loadAccount(txn, id)
		if errors.Is(err, account.ErrAccountNotFound) {
			return account.ErrNoMatch
		}
		if err != nil {
			return err
		}
		if !t.Matches(acc) {
			return account.ErrNoMatch
		}
		acc.Status = t.To
		acc.UpdatedAt = r.now()
		updated = acc
		return setJSON(txn, accountKey(id), acc)
	})
	if errors.Is(err, account.ErrNoMatch) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to change account status: %w", err)
	}
	return updated, nil
}

// Delete removes a zero-balance account atomically, then cascades its
// transactions in batches. The cascade is not part of the same
// transaction; a failure there is returned and can be retried, and since
// IDs are never reused the leftover entries cannot attach to another account.
func (r *AccountRepository) Delete(ctx context.Context, id int64) error {
	err := r.db.update(accountKey(id), func(txn *badger.Txn) error {
		acc, err := loadAccount(txn, id)
		if errors.Is(err, account.ErrAccountNotFound) {
			return account.ErrNoMatch
		}
		if err != nil {
			return err
		}
		if !acc.Balance.IsZero() {
			return account.ErrNoMatch
		}
		if err := txn.Delete(accountKey(id)); err != nil {
			return err
		}
		return txn.Delete(txnSeqKey(id))
	})
	if errors.Is(err, account.ErrNoMatch) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	if err := r.deleteTransactions(id); err != nil {
		return fmt.Errorf("failed to delete account transactions: %w", err)
	}
	return nil
}

func (r *AccountRepository) deleteTransactions(accountID int64) error {
	var keys [][]byte
	err := r.db.view(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = txnPrefix(accountID)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	wb := r.db.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return classify(err)
		}
	}
	return classify(wb.Flush())
}
