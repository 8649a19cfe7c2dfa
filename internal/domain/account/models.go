package account

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"bankapi/internal/shared/apperr"
	"bankapi/internal/shared/validation"
)

const (
	// DefaultAddress is stored when an account is created without an address.
	DefaultAddress = "Address not specified"
	// MissingAddress is reported for stored accounts that carry no address.
	MissingAddress = "N/A"
)

// Domain errors
var (
	ErrAccountNotFound = errors.New("account not found")
	// ErrNoMatch is returned by conditional store operations when the
	// account exists or not, but the condition did not hold. Callers follow
	// up with a read to find out which.
	ErrNoMatch = errors.New("no account matched the condition")
)

// Status is the lifecycle state of an account.
type Status string

const (
	StatusActive  Status = "Active"
	StatusBlocked Status = "Blocked"
	StatusClosed  Status = "Closed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusBlocked, StatusClosed:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is permitted.
// Active->Blocked, Active->Closed and Blocked->Closed are the only legal moves.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusActive:
		return next == StatusBlocked || next == StatusClosed
	case StatusBlocked:
		return next == StatusClosed
	default:
		return false
	}
}

// Account represents a bank account domain entity
type Account struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Balance        decimal.Decimal `json:"balance"`
	Status         Status          `json:"status"`
	NoOfMonths     int             `json:"no_of_months"`
	Address        string          `json:"address"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Normalize fills defaults for fields that older records may lack.
func (a *Account) Normalize() {
	if a.Address == "" {
		a.Address = MissingAddress
	}
	if a.Status == "" {
		a.Status = StatusActive
	}
	if a.NoOfMonths < 0 {
		a.NoOfMonths = 0
	}
}

// CreateParams contains parameters for creating a new account.
// Pointer fields distinguish "absent" from zero values.
type CreateParams struct {
	ID         int64            `json:"-"`
	Name       *string          `json:"name" validate:"required,min=1"`
	Balance    *decimal.Decimal `json:"balance" validate:"required,gte=0"`
	NoOfMonths *int             `json:"no_of_months" validate:"omitempty,gte=0"`
	Address    *string          `json:"address"`
}

var createMessages = validation.Messages{
	"name.required":    "Missing required fields: name and balance",
	"name.min":         "Missing required fields: name and balance",
	"balance.required": "Missing required fields: name and balance",
	"balance.gte":      "Balance cannot be negative",
	"no_of_months.gte": "no_of_months must be a non-negative integer",
}

// Validate validates the create parameters
func (p CreateParams) Validate(v *validation.Validator) error {
	if err := v.Struct(p, createMessages); err != nil {
		return err
	}
	if p.Balance.IsNegative() {
		return apperr.Validation("Balance cannot be negative")
	}
	if !validation.IsCents(*p.Balance) {
		return apperr.Validation("Balance must have at most 2 decimal places")
	}
	return nil
}

// NewAccount builds the document persisted for p once an ID is assigned.
func (p CreateParams) NewAccount(now time.Time) *Account {
	acc := &Account{
		ID:             p.ID,
		Name:           *p.Name,
		Balance:        *p.Balance,
		OpeningBalance: *p.Balance,
		Status:         StatusActive,
		Address:        DefaultAddress,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if p.NoOfMonths != nil {
		acc.NoOfMonths = *p.NoOfMonths
	}
	if p.Address != nil {
		acc.Address = *p.Address
	}
	return acc
}

// UpdateParams contains parameters for updating an account
type UpdateParams struct {
	Name       *string `json:"name" validate:"omitempty,min=1"`
	NoOfMonths *int    `json:"no_of_months" validate:"omitempty,gte=0"`
	Address    *string `json:"address" validate:"omitempty,min=1"`
}

var updateMessages = validation.Messages{
	"name.min":         "Name cannot be empty",
	"no_of_months.gte": "no_of_months must be a non-negative integer",
	"address.min":      "Address cannot be empty",
}

// Empty reports whether no recognized field was provided.
func (p UpdateParams) Empty() bool {
	return p.Name == nil && p.NoOfMonths == nil && p.Address == nil
}

// Validate validates the update parameters
func (p UpdateParams) Validate(v *validation.Validator) error {
	return v.Struct(p, updateMessages)
}

// Apply copies the provided fields onto acc.
func (p UpdateParams) Apply(acc *Account) {
	if p.Name != nil {
		acc.Name = *p.Name
	}
	if p.NoOfMonths != nil {
		acc.NoOfMonths = *p.NoOfMonths
	}
	if p.Address != nil {
		acc.Address = *p.Address
	}
}

// Transition describes a conditional status change: the store moves the
// account to To only if its current status is in From and, when
// RequireZeroBalance is set, its balance is exactly zero.
type Transition struct {
	From               []Status
	To                 Status
	RequireZeroBalance bool
}

// Matches reports whether acc satisfies the transition's condition.
func (t Transition) Matches(acc *Account) bool {
	if t.RequireZeroBalance && !acc.Balance.IsZero() {
		return false
	}
	for _, s := range t.From {
		if acc.Status == s {
			return true
		}
	}
	return false
}

// TransitionResult is the outcome of Block or Close. When Changed is false
// the account was already in a terminal state for the request and Notice
// describes it.
type TransitionResult struct {
	Account *Account
	Changed bool
	Notice  string
}
