// Package interest computes simple, non-compounding interest over an
// account's configured term.
package interest

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"bankapi/internal/domain/account"
	"bankapi/internal/shared/apperr"
)

// AnnualRate is the fixed yearly rate.
var AnnualRate = decimal.RequireFromString("0.05")

var monthsPerYear = decimal.NewFromInt(12)

// Quote is the result of an interest computation. It is never applied to
// the stored balance.
type Quote struct {
	AccountID   int64
	Balance     decimal.Decimal
	NoOfMonths  int
	AnnualRate  decimal.Decimal
	MonthlyRate decimal.Decimal
	Interest    decimal.Decimal
}

// Calculate returns round(balance * annualRate/12 * months, 2). It fails
// when the account is not Active or has no positive term.
func Calculate(acc *account.Account) (*Quote, error) {
	if acc.Status != account.StatusActive {
		return nil, apperr.Precondition("Cannot calculate interest for closed or inactive account status: %s", acc.Status)
	}
	if acc.NoOfMonths <= 0 {
		return nil, apperr.Validation("Account is not configured for monthly interest calculation (no_of_months is zero or negative).").
			WithField("current_balance", acc.Balance.Round(2).InexactFloat64()).
			WithField("no_of_months", acc.NoOfMonths)
	}

	months := decimal.NewFromInt(int64(acc.NoOfMonths))
	// Multiply before dividing so 0.05/12 is never truncated.
	interest := acc.Balance.Mul(AnnualRate).Mul(months).Div(monthsPerYear).Round(2)

	return &Quote{
		AccountID:   acc.ID,
		Balance:     acc.Balance,
		NoOfMonths:  acc.NoOfMonths,
		AnnualRate:  AnnualRate,
		MonthlyRate: AnnualRate.Div(monthsPerYear),
		Interest:    interest,
	}, nil
}

// Service loads accounts and quotes interest on them.
type Service struct {
	accounts account.Repository
}

// NewService creates a new interest service
func NewService(accounts account.Repository) *Service {
	return &Service{accounts: accounts}
}

// Quote computes interest for the account with the given ID.
func (s *Service) Quote(ctx context.Context, accountID int64) (*Quote, error) {
	acc, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return nil, account.NotFoundError(accountID)
		}
		return nil, err
	}
	return Calculate(acc)
}
