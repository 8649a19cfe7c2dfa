// Package reconcile checks that each account's stored balance equals its
// opening balance plus the signed sum of its logged transactions.
package reconcile

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"bankapi/internal/domain/account"
	"bankapi/internal/domain/transaction"
)

// Result is the outcome of checking one account.
type Result struct {
	AccountID    int64
	Status       account.Status
	Balance      decimal.Decimal
	Expected     decimal.Decimal
	Drift        decimal.Decimal
	Transactions int
}

// Consistent reports whether the stored balance matches the log.
func (r *Result) Consistent() bool {
	return r.Drift.IsZero()
}

// Check compares acc against its transactions.
func Check(acc *account.Account, txs []*transaction.Transaction) *Result {
	expected := acc.OpeningBalance.Add(transaction.Net(txs))
	return &Result{
		AccountID:    acc.ID,
		Status:       acc.Status,
		Balance:      acc.Balance,
		Expected:     expected,
		Drift:        acc.Balance.Sub(expected),
		Transactions: len(txs),
	}
}

// Service loads accounts and their logs for checking.
type Service struct {
	accounts account.Repository
	txs      transaction.Repository
}

// NewService creates a new reconcile service
func NewService(accounts account.Repository, txs transaction.Repository) *Service {
	return &Service{accounts: accounts, txs: txs}
}

// CheckAccount reconciles a single account.
func (s *Service) CheckAccount(ctx context.Context, id int64) (*Result, error) {
	acc, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return nil, account.NotFoundError(id)
		}
		return nil, err
	}

	txs, err := s.txs.ListByAccountID(ctx, id, transaction.Ascending)
	if err != nil {
		return nil, err
	}
	return Check(acc, txs), nil
}

// AccountIDs lists every stored account id.
func (s *Service) AccountIDs(ctx context.Context) ([]int64, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(accounts))
	for _, acc := range accounts {
		ids = append(ids, acc.ID)
	}
	return ids, nil
}

// Report collects results from concurrent checks. It is safe for
// concurrent use.
type Report struct {
	mu      sync.Mutex
	results []*Result
	errs    map[int64]error
}

func NewReport() *Report {
	return &Report{errs: make(map[int64]error)}
}

// Add records a completed check.
func (r *Report) Add(res *Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

// Fail records a check that could not complete.
func (r *Report) Fail(accountID int64, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs[accountID] = err
}

// Checked returns the number of completed checks.
func (r *Report) Checked() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

// Drifted returns the inconsistent results ordered by account id.
func (r *Report) Drifted() []*Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Result
	for _, res := range r.results {
		if !res.Consistent() {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out
}

// Errors returns a copy of the failed checks.
func (r *Report) Errors() map[int64]error {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[int64]error, len(r.errs))
	for id, err := range r.errs {
		out[id] = err
	}
	return out
}
