package badgerstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v3"

	"bankapi/internal/domain/transaction"
)

// TransactionRepository implements transaction.Repository on Badger.
// Entries are keyed by a per-account append counter, so a prefix scan
// yields them in append order.
type TransactionRepository struct {
	db *DB
}

func NewTransactionRepository(db *DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) ListByAccountID(ctx context.Context, accountID int64, order transaction.Order) ([]*transaction.Transaction, error) {
	txs := []*transaction.Transaction{}
	err := r.db.view(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = txnPrefix(accountID)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var t transaction.Transaction
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &t)
			})
			if err != nil {
				return err
			}
			txs = append(txs, &t)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	// Append order is the tie-breaker; a stable sort keeps it.
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Timestamp.Before(txs[j].Timestamp)
	})
	if order == transaction.Descending {
		for i, j := 0, len(txs)-1; i < j; i, j = i+1, j-1 {
			txs[i], txs[j] = txs[j], txs[i]
		}
	}
	return txs, nil
}

// appendTransaction writes t under the next append counter of its account.
func appendTransaction(txn *badger.Txn, t *transaction.Transaction) error {
	seq, err := getCounter(txn, txnSeqKey(t.AccountID))
	if err != nil {
		return err
	}
	seq++
	if err := setJSON(txn, txnKey(t.AccountID, seq), t); err != nil {
		return err
	}
	return setCounter(txn, txnSeqKey(t.AccountID), seq)
}
