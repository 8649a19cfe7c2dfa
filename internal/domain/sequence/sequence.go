// Package sequence hands out monotonically increasing integer identifiers.
package sequence

import "context"

// AccountID is the namespace used for account identifiers.
const AccountID = "account_id"

// Generator atomically increments and returns the counter of a namespace,
// creating it at zero when absent. Values are never reused; gaps are allowed.
type Generator interface {
	Next(ctx context.Context, namespace string) (int64, error)
}
