package postgres

import (
	"context"
	"fmt"
)

// SequenceRepository implements sequence.Generator with an upserting
// counter row per namespace.
type SequenceRepository struct {
	db *DB
}

func NewSequenceRepository(db *DB) *SequenceRepository {
	return &SequenceRepository{db: db}
}

// Next increments and returns the namespace counter in one statement.
// Concurrent callers serialize on the row lock and never see the same value.
func (r *SequenceRepository) Next(ctx context.Context, namespace string) (int64, error) {
	query := `
		INSERT INTO sequences (name, value) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = sequences.value + 1
		RETURNING value
	`

	var value int64
	if err := r.db.QueryRowContext(ctx, query, namespace).Scan(&value); err != nil {
		return 0, fmt.Errorf("failed to advance sequence %q: %w", namespace, classify(err))
	}
	return value, nil
}
