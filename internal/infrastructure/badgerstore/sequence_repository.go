package badgerstore

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v3"
)

// SequenceRepository implements sequence.Generator with one counter key per
// namespace.
type SequenceRepository struct {
	db *DB
}

func NewSequenceRepository(db *DB) *SequenceRepository {
	return &SequenceRepository{db: db}
}

// Next increments the namespace counter. Two callers racing on the same
// counter conflict and one is replayed, so values are never handed out twice.
func (r *SequenceRepository) Next(ctx context.Context, namespace string) (int64, error) {
	var value uint64
	err := r.db.update(sequenceKey(namespace), func(txn *badger.Txn) error {
		n, err := getCounter(txn, sequenceKey(namespace))
		if err != nil {
			return err
		}
		value = n + 1
		return setCounter(txn, sequenceKey(namespace), value)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to advance sequence %q: %w", namespace, err)
	}
	return int64(value), nil
}
