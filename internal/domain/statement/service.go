// Package statement reconstructs an account's balance history from its
// transaction log.
package statement

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"bankapi/internal/domain/account"
	"bankapi/internal/domain/transaction"
)

// Line is a transaction annotated with the balance right after it.
type Line struct {
	transaction.Transaction
	RunningBalance decimal.Decimal `json:"running_balance"`
}

// Statement combines the opening balance, the closing balance and the
// annotated transactions in ascending timestamp order.
type Statement struct {
	AccountID      int64           `json:"account_id"`
	AccountHolder  string          `json:"account_holder"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	GeneratedAt    time.Time       `json:"statement_date"`
	Lines          []Line          `json:"transactions"`
}

// Service builds statements.
type Service struct {
	accounts account.Repository
	txs      transaction.Repository
	now      func() time.Time
}

// NewService creates a new statement service
func NewService(accounts account.Repository, txs transaction.Repository) *Service {
	return &Service{
		accounts: accounts,
		txs:      txs,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source used for the statement date.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Build loads the account and its log and derives the statement.
func (s *Service) Build(ctx context.Context, accountID int64) (*Statement, error) {
	acc, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return nil, account.NotFoundError(accountID)
		}
		return nil, err
	}

	txs, err := s.txs.ListByAccountID(ctx, accountID, transaction.Ascending)
	if err != nil {
		return nil, err
	}

	st := Derive(acc, txs)
	st.GeneratedAt = s.now()
	return st, nil
}

// Derive computes the opening balance as the current balance minus the net
// of all logged movements, then walks txs (ascending) accumulating the
// running balance. Accumulation is exact; only the opening balance is
// rounded, to two places.
func Derive(acc *account.Account, txs []*transaction.Transaction) *Statement {
	opening := acc.Balance.Sub(transaction.Net(txs)).Round(2)

	lines := make([]Line, 0, len(txs))
	running := opening
	for _, t := range txs {
		running = running.Add(t.SignedAmount())
		lines = append(lines, Line{Transaction: *t, RunningBalance: running})
	}

	return &Statement{
		AccountID:      acc.ID,
		AccountHolder:  acc.Name,
		OpeningBalance: opening,
		ClosingBalance: acc.Balance,
		Lines:          lines,
	}
}
