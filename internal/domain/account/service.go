package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bankapi/internal/domain/sequence"
	"bankapi/internal/shared/apperr"
	"bankapi/internal/shared/validation"
)

// Service contains the business logic for the account lifecycle
type Service struct {
	repo      Repository
	seq       sequence.Generator
	validator *validation.Validator
	now       func() time.Time
}

// NewService creates a new account service
func NewService(repo Repository, seq sequence.Generator, v *validation.Validator) *Service {
	return &Service{
		repo:      repo,
		seq:       seq,
		validator: v,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source used for timestamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// NotFoundError is the client-facing error for a missing account.
func NotFoundError(id int64) error {
	return apperr.NotFound("Account with id %d not found", id)
}

// CreateAccount validates params, assigns a fresh ID and persists an Active account.
// No transaction is logged for the opening balance.
func (s *Service) CreateAccount(ctx context.Context, params CreateParams) (*Account, error) {
	if err := params.Validate(s.validator); err != nil {
		return nil, err
	}

	id, err := s.seq.Next(ctx, sequence.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate account id: %w", err)
	}
	params.ID = id

	return s.repo.Create(ctx, params.NewAccount(s.now()))
}

// GetAccount retrieves an account by ID
func (s *Service) GetAccount(ctx context.Context, id int64) (*Account, error) {
	acc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, NotFoundError(id)
		}
		return nil, err
	}
	return acc, nil
}

// ListAccounts retrieves all accounts. Callers must not rely on ordering.
func (s *Service) ListAccounts(ctx context.Context) ([]*Account, error) {
	return s.repo.List(ctx)
}

// UpdateAccount applies the provided name, term and address atomically.
func (s *Service) UpdateAccount(ctx context.Context, id int64, params UpdateParams) (*Account, error) {
	if params.Empty() {
		return nil, apperr.Validation("No valid fields provided for update (valid fields: name, no_of_months, address)")
	}
	if err := params.Validate(s.validator); err != nil {
		return nil, err
	}

	acc, err := s.repo.Update(ctx, id, params)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, NotFoundError(id)
		}
		return nil, err
	}
	return acc, nil
}

// DeleteAccount removes a zero-balance account and all of its transactions.
func (s *Service) DeleteAccount(ctx context.Context, id int64) error {
	err := s.repo.Delete(ctx, id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNoMatch) {
		return err
	}

	acc, err := s.GetAccount(ctx, id)
	if err != nil {
		return err
	}
	return apperr.Precondition("Account must have a zero balance before deletion.").
		WithField("current_balance", acc.Balance.Round(2).InexactFloat64())
}

// BlockAccount moves an Active account to Blocked. An account that is
// already Blocked or Closed is reported with a notice instead of an error.
func (s *Service) BlockAccount(ctx context.Context, id int64) (*TransitionResult, error) {
	acc, err := s.repo.Transition(ctx, id, Transition{
		From: []Status{StatusActive},
		To:   StatusBlocked,
	})
	if err == nil {
		return &TransitionResult{Account: acc, Changed: true}, nil
	}
	if !errors.Is(err, ErrNoMatch) {
		return nil, err
	}

	current, err := s.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	return &TransitionResult{
		Account: current,
		Notice:  fmt.Sprintf("Account with id %d is already %s", id, current.Status),
	}, nil
}

// CloseAccount permanently closes a zero-balance account. Closing an
// already Closed account is reported with a notice instead of an error.
func (s *Service) CloseAccount(ctx context.Context, id int64) (*TransitionResult, error) {
	acc, err := s.repo.Transition(ctx, id, Transition{
		From:               []Status{StatusActive, StatusBlocked},
		To:                 StatusClosed,
		RequireZeroBalance: true,
	})
	if err == nil {
		return &TransitionResult{Account: acc, Changed: true}, nil
	}
	if !errors.Is(err, ErrNoMatch) {
		return nil, err
	}

	current, err := s.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case current.Status == StatusClosed:
		return &TransitionResult{
			Account: current,
			Notice:  fmt.Sprintf("Account with id %d is already %s", id, StatusClosed),
		}, nil
	case !current.Balance.IsZero():
		return nil, apperr.Precondition("Account must have a zero balance before closing.").
			WithField("current_balance", current.Balance.Round(2).InexactFloat64())
	default:
		return nil, apperr.Precondition("Account with id %d was modified concurrently, retry the request", id)
	}
}

// SeedIfEmpty creates the given accounts when the store holds none and
// returns how many were created.
func (s *Service) SeedIfEmpty(ctx context.Context, seeds []CreateParams) (int, error) {
	existing, err := s.repo.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}

	for i, params := range seeds {
		if _, err := s.CreateAccount(ctx, params); err != nil {
			return i, fmt.Errorf("failed to seed account %q: %w", *params.Name, err)
		}
	}
	return len(seeds), nil
}
