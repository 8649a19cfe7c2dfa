package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"bankapi/internal/domain/transaction"
)

type TransactionRepository struct {
	db *DB
}

func NewTransactionRepository(db *DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) ListByAccountID(ctx context.Context, accountID int64, order transaction.Order) ([]*transaction.Transaction, error) {
	query := `
		SELECT id, account_id, type, amount, timestamp
		FROM transactions
		WHERE account_id = $1
		ORDER BY timestamp ASC, seq ASC
	`
	if order == transaction.Descending {
		query = `
			SELECT id, account_id, type, amount, timestamp
			FROM transactions
			WHERE account_id = $1
			ORDER BY timestamp DESC, seq DESC
		`
	}

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", classify(err))
	}
	defer rows.Close()

	transactions := []*transaction.Transaction{}
	for rows.Next() {
		var t transaction.Transaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Type, &t.Amount, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		t.Timestamp = t.Timestamp.UTC()
		transactions = append(transactions, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", classify(err))
	}

	return transactions, nil
}

// insertTransaction appends a log entry inside tx.
func insertTransaction(ctx context.Context, tx *sql.Tx, t *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (id, account_id, type, amount, timestamp)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := tx.ExecContext(ctx, query, t.ID, t.AccountID, t.Type, t.Amount, t.Timestamp); err != nil {
		return fmt.Errorf("failed to append transaction: %w", classify(err))
	}
	return nil
}
