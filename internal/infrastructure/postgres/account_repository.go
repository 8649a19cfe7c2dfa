package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"bankapi/internal/domain/account"
)

const accountColumns = `id, name, balance, opening_balance, status, no_of_months, address, created_at, updated_at`

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	db *DB
}

// NewAccountRepository creates a new PostgreSQL account repository
func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*account.Account, error) {
	var acc account.Account
	var address sql.NullString

	err := row.Scan(
		&acc.ID, &acc.Name, &acc.Balance, &acc.OpeningBalance, &acc.Status,
		&acc.NoOfMonths, &address, &acc.CreatedAt, &acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if address.Valid {
		acc.Address = address.String
	}
	acc.Normalize()

	return &acc, nil
}

// Create inserts a new account document
func (r *AccountRepository) Create(ctx context.Context, acc *account.Account) (*account.Account, error) {
	query := `
		INSERT INTO accounts (id, name, balance, opening_balance, status, no_of_months, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + accountColumns

	created, err := scanAccount(r.db.QueryRowContext(
		ctx, query,
		acc.ID, acc.Name, acc.Balance, acc.OpeningBalance, acc.Status,
		acc.NoOfMonths, nullString(acc.Address), acc.CreatedAt, acc.UpdatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", classify(err))
	}

	return created, nil
}

// GetByID retrieves an account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	acc, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, account.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", classify(err))
	}

	return acc, nil
}

// List retrieves every account
func (r *AccountRepository) List(ctx context.Context) ([]*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", classify(err))
	}
	defer rows.Close()

	accounts := []*account.Account{}
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, acc)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", classify(err))
	}

	return accounts, nil
}

// Update applies the provided fields in a single statement, so the row
// reflects either all of them or none.
func (r *AccountRepository) Update(ctx context.Context, id int64, params account.UpdateParams) (*account.Account, error) {
	query := `
		UPDATE accounts SET
			name = COALESCE($2, name),
			no_of_months = COALESCE($3, no_of_months),
			address = COALESCE($4, address),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING ` + accountColumns

	var name, address sql.NullString
	var months sql.NullInt64
	if params.Name != nil {
		name = sql.NullString{String: *params.Name, Valid: true}
	}
	if params.Address != nil {
		address = sql.NullString{String: *params.Address, Valid: true}
	}
	if params.NoOfMonths != nil {
		months = sql.NullInt64{Int64: int64(*params.NoOfMonths), Valid: true}
	}

	acc, err := scanAccount(r.db.QueryRowContext(ctx, query, id, name, months, address))
	if err == sql.ErrNoRows {
		return nil, account.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update account: %w", classify(err))
	}

	return acc, nil
}

// Transition sets the status when the current status is one of t.From
// (and the balance is zero, if required) in one conditional update.
func (r *AccountRepository) Transition(ctx context.Context, id int64, t account.Transition) (*account.Account, error) {
	query := `
		UPDATE accounts SET status = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = ANY($3) AND (NOT $4 OR balance = 0)
		RETURNING ` + accountColumns

	from := make([]string, len(t.From))
	for i, s := range t.From {
		from[i] = string(s)
	}

	acc, err := scanAccount(r.db.QueryRowContext(ctx, query, id, t.To, pq.Array(from), t.RequireZeroBalance))
	if err == sql.ErrNoRows {
		return nil, account.ErrNoMatch
	}
	if err != nil {
		return nil, fmt.Errorf("failed to change account status: %w", classify(err))
	}

	return acc, nil
}

// Delete removes a zero-balance account and its transactions in one
// database transaction.
func (r *AccountRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithTx(ctx, "DELETE account", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1 AND balance = 0`, id)
		if err != nil {
			return fmt.Errorf("failed to delete account: %w", classify(err))
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		if rows == 0 {
			return account.ErrNoMatch
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE account_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete account transactions: %w", classify(err))
		}
		return nil
	})
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
