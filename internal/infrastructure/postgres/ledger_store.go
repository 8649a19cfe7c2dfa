package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"bankapi/internal/domain/account"
	"bankapi/internal/domain/ledger"
)

// LedgerStore implements ledger.Store. The balance update and the log
// append share one database transaction.
type LedgerStore struct {
	db *DB
}

func NewLedgerStore(db *DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// Apply adds the signed amount to an Active account whose resulting
// balance stays non-negative, then appends the entry. The row lock taken
// by the UPDATE serializes concurrent movements on the same account and
// the WHERE clause is re-checked after the lock is acquired.
func (s *LedgerStore) Apply(ctx context.Context, m ledger.Movement) (*account.Account, error) {
	query := `
		UPDATE accounts SET balance = balance + $2, updated_at = $3
		WHERE id = $1 AND status = 'Active' AND balance + $2 >= 0
		RETURNING ` + accountColumns

	var updated *account.Account
	err := s.db.WithTx(ctx, "APPLY movement", func(tx *sql.Tx) error {
		acc, err := scanAccount(tx.QueryRowContext(ctx, query, m.AccountID, m.Type.Signed(m.Amount), m.At))
		if err == sql.ErrNoRows {
			return account.ErrNoMatch
		}
		if err != nil {
			return fmt.Errorf("failed to apply %s: %w", m.Type, classify(err))
		}

		if err := insertTransaction(ctx, tx, m.Entry()); err != nil {
			return err
		}
		updated = acc
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}
