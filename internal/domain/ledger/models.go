// Package ledger moves money in and out of accounts. Every balance change is
// applied together with its transaction log entry through a Store.
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"bankapi/internal/domain/account"
	"bankapi/internal/domain/transaction"
)

// Movement is a single deposit or withdrawal request against an account.
type Movement struct {
	ID        string
	AccountID int64
	Type      transaction.Type
	Amount    decimal.Decimal
	At        time.Time
}

// Permits reports whether acc may take the movement: the account must be
// Active and, for withdrawals, hold at least Amount.
func (m Movement) Permits(acc *account.Account) bool {
	if acc.Status != account.StatusActive {
		return false
	}
	if m.Type == transaction.TypeWithdrawal && acc.Balance.LessThan(m.Amount) {
		return false
	}
	return true
}

// Entry returns the log entry recorded for the movement.
func (m Movement) Entry() *transaction.Transaction {
	return &transaction.Transaction{
		ID:        m.ID,
		AccountID: m.AccountID,
		Type:      m.Type,
		Amount:    m.Amount,
		Timestamp: m.At,
	}
}

// Store applies movements atomically: the conditional balance update and
// the log append either both happen or neither does.
type Store interface {
	// Apply adjusts the balance of the account when m.Permits holds and
	// appends m.Entry(), returning the updated account. It returns
	// account.ErrNoMatch when the account is absent or the condition fails.
	Apply(ctx context.Context, m Movement) (*account.Account, error)
}
