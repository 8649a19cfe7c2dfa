package account

import "context"

// Repository defines the interface for account data access
// This interface is defined in the domain layer, but implemented in the infrastructure layer
type Repository interface {
	// Create persists a new account document
	Create(ctx context.Context, acc *Account) (*Account, error)

	// GetByID retrieves an account by its ID, or ErrAccountNotFound
	GetByID(ctx context.Context, id int64) (*Account, error)

	// List retrieves every account
	List(ctx context.Context) ([]*Account, error)

	// Update atomically applies params to the account, or ErrAccountNotFound
	Update(ctx context.Context, id int64, params UpdateParams) (*Account, error)

	// Transition atomically changes the status when t matches, returning
	// ErrNoMatch otherwise
	Transition(ctx context.Context, id int64, t Transition) (*Account, error)

	// Delete removes a zero-balance account together with its transactions,
	// returning ErrNoMatch when the account is absent or its balance is non-zero
	Delete(ctx context.Context, id int64) error
}
