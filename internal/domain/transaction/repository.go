package transaction

import "context"

// Repository defines read access to the transaction log. Entries are
// appended by the ledger store together with the balance change.
type Repository interface {
	// ListByAccountID returns every entry of the account ordered by
	// timestamp; ties keep append order
	ListByAccountID(ctx context.Context, accountID int64, order Order) ([]*Transaction, error)
}
