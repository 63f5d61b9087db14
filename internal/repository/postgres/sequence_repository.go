package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/replenish/internal/repository"
	"github.com/andresuchdata/replenish/internal/sequence"
)

// SequenceRepository allocates PO sequence numbers with an upserted counter
// row per vendor and day, so separate processes share one sequence.
type SequenceRepository struct {
	db *DB
}

var (
	_ repository.SequenceRepository = (*SequenceRepository)(nil)
	_ sequence.Allocator            = (*SequenceRepository)(nil)
)

func NewSequenceRepository(db *DB) *SequenceRepository {
	return &SequenceRepository{db: db}
}

func (r *SequenceRepository) Next(ctx context.Context, vendorID string, day time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO po_sequences (vendor_id, day, last_value)
		VALUES ($1, $2, 1)
		ON CONFLICT (vendor_id, day) DO UPDATE
		SET last_value = po_sequences.last_value + 1
		RETURNING last_value
	`, vendorID, sequence.DayKey(day)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate po sequence: %w", err)
	}
	return n, nil
}
