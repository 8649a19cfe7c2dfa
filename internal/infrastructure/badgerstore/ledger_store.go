package badgerstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v3"

	"bankapi/internal/domain/account"
	"bankapi/internal/domain/ledger"
)

// LedgerStore implements ledger.Store. The account document, the log entry
// and the append counter are written in one Badger transaction; a
// concurrent movement on the same account conflicts and is replayed
// against the fresh balance.
type LedgerStore struct {
	db *DB
}

func NewLedgerStore(db *DB) *LedgerStore {
	return &LedgerStore{db: db}
}

func (s *LedgerStore) Apply(ctx context.Context, m ledger.Movement) (*account.Account, error) {
	var updated *account.Account
	err := s.db.update(accountKey(m.AccountID), func(txn *badger.Txn) error {
		acc, err := loadAccount(txn, m.AccountID)
		if errors.Is(err, account.ErrAccountNotFound) {
			return account.ErrNoMatch
		}
		if err != nil {
			return err
		}
		if !m.Permits(acc) {
			return account.ErrNoMatch
		}

		acc.Balance = acc.Balance.Add(m.Type.Signed(m.Amount))
		acc.UpdatedAt = m.At
		if err := setJSON(txn, accountKey(acc.ID), acc); err != nil {
			return err
		}
		if err := appendTransaction(txn, m.Entry()); err != nil {
			return err
		}
		updated = acc
		return nil
	})
	if errors.Is(err, account.ErrNoMatch) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to apply %s: %w", m.Type, err)
	}
	return updated, nil
}
