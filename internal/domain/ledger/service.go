package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"bankapi/internal/domain/account"
	"bankapi/internal/domain/transaction"
	"bankapi/internal/shared/apperr"
	"bankapi/internal/shared/validation"
)

var (
	ledgerMeter        = otel.Meter("bankapi/ledger")
	movementsTotal, _  = ledgerMeter.Int64Counter("ledger.movements.total", metric.WithDescription("Deposits and withdrawals by outcome"))
	movementsAmount, _ = ledgerMeter.Float64Counter("ledger.movements.amount", metric.WithDescription("Accepted movement volume"))
)

var errTooPrecise = apperr.Validation("Amount must have at most 2 decimal places")

// Service implements deposits, withdrawals and transaction history.
type Service struct {
	store    Store
	accounts account.Repository
	txs      transaction.Repository
	now      func() time.Time
	newID    func() string
}

// NewService creates a new ledger service
func NewService(store Store, accounts account.Repository, txs transaction.Repository) *Service {
	return &Service{
		store:    store,
		accounts: accounts,
		txs:      txs,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.NewString() },
	}
}

// WithClock overrides the time source used to stamp transactions.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Deposit credits amount to an Active account and logs a Deposit.
func (s *Service) Deposit(ctx context.Context, accountID int64, amount decimal.Decimal) (*account.Account, error) {
	if !amount.IsPositive() {
		return nil, apperr.Validation("Deposit amount must be positive")
	}
	if !validation.IsCents(amount) {
		return nil, errTooPrecise
	}
	return s.apply(ctx, accountID, transaction.TypeDeposit, amount)
}

// Withdraw debits amount from an Active account holding at least amount
// and logs a Withdrawal. Status and funds are checked by the same
// conditional update that debits, so concurrent withdrawals cannot overdraw.
func (s *Service) Withdraw(ctx context.Context, accountID int64, amount decimal.Decimal) (*account.Account, error) {
	if !amount.IsPositive() {
		return nil, apperr.Validation("Withdrawal amount must be positive")
	}
	if !validation.IsCents(amount) {
		return nil, errTooPrecise
	}
	return s.apply(ctx, accountID, transaction.TypeWithdrawal, amount)
}

// History returns the account's transactions, most recent first.
func (s *Service) History(ctx context.Context, accountID int64) ([]*transaction.Transaction, error) {
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return nil, account.NotFoundError(accountID)
		}
		return nil, err
	}

	txs, err := s.txs.ListByAccountID(ctx, accountID, transaction.Descending)
	if err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []*transaction.Transaction{}
	}
	return txs, nil
}

func (s *Service) apply(ctx context.Context, accountID int64, typ transaction.Type, amount decimal.Decimal) (*account.Account, error) {
	m := Movement{
		ID:        s.newID(),
		AccountID: accountID,
		Type:      typ,
		Amount:    amount,
		At:        s.now(),
	}

	acc, err := s.store.Apply(ctx, m)
	if err == nil {
		s.record(ctx, m, "applied")
		return acc, nil
	}
	if !errors.Is(err, account.ErrNoMatch) {
		s.record(ctx, m, "error")
		return nil, err
	}

	// The conditional update matched nothing; read back to report why.
	// The account may have changed since, so this is best effort.
	s.record(ctx, m, "rejected")
	return nil, s.explainRejection(ctx, m)
}

func (s *Service) explainRejection(ctx context.Context, m Movement) error {
	acc, err := s.accounts.GetByID(ctx, m.AccountID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return account.NotFoundError(m.AccountID)
		}
		return err
	}

	if acc.Status != account.StatusActive {
		if m.Type == transaction.TypeDeposit {
			return apperr.Precondition("Cannot deposit to account status: %s", acc.Status)
		}
		return apperr.Precondition("Cannot withdraw from account status: %s", acc.Status)
	}
	if m.Type == transaction.TypeWithdrawal && acc.Balance.LessThan(m.Amount) {
		return apperr.Precondition("Insufficient balance")
	}
	return apperr.Precondition("Account with id %d was modified concurrently, retry the request", m.AccountID)
}

func (s *Service) record(ctx context.Context, m Movement, outcome string) {
	attrs := metric.WithAttributes(
		attribute.String("ledger.type", string(m.Type)),
		attribute.String("ledger.outcome", outcome),
	)
	movementsTotal.Add(ctx, 1, attrs)
	if outcome == "applied" {
		movementsAmount.Add(ctx, m.Amount.InexactFloat64(), attrs)
	}
}
