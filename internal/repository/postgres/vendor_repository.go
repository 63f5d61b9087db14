package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/repository"
)

type VendorRepository struct {
	db *DB
}

var (
	_ repository.VendorRepository      = (*VendorRepository)(nil)
	_ repository.ReliabilityRepository = (*VendorRepository)(nil)
)

func NewVendorRepository(db *DB) *VendorRepository {
	return &VendorRepository{db: db}
}

func (r *VendorRepository) UpsertVendor(ctx context.Context, v domain.Vendor) error {
	if v.ID == "" {
		return domain.NewInvalidInput("vendor_id", v.ID, "must not be empty")
	}

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO vendors (id, name, seq, created_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name, seq = EXCLUDED.seq, updated_at = NOW()
		`, v.ID, v.Name, v.Seq)
		if err != nil {
			return fmt.Errorf("failed to upsert vendor: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO vendor_reliability (vendor_id)
			VALUES ($1)
			ON CONFLICT (vendor_id) DO NOTHING
		`, v.ID)
		if err != nil {
			return fmt.Errorf("failed to open reliability counters: %w", err)
		}
		return nil
	})
}

func (r *VendorRepository) GetVendor(ctx context.Context, id string) (*domain.Vendor, error) {
	var v domain.Vendor
	err := sqlx.GetContext(ctx, r.db, &v, `SELECT id, name, seq FROM vendors WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrStaleVendorData, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vendor: %w", err)
	}
	return &v, nil
}

func (r *VendorRepository) ListVendors(ctx context.Context) ([]domain.Vendor, error) {
	var vendors []domain.Vendor
	if err := sqlx.SelectContext(ctx, r.db, &vendors, `SELECT id, name, seq FROM vendors ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list vendors: %w", err)
	}
	return vendors, nil
}

func (r *VendorRepository) GetReliability(ctx context.Context, vendorID string) (*domain.VendorReliability, error) {
	var rel domain.VendorReliability
	err := sqlx.GetContext(ctx, r.db, &rel, `
		SELECT vendor_id, total_orders, on_time_deliveries, lead_time_days_sum
		FROM vendor_reliability
		WHERE vendor_id = $1
	`, vendorID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrStaleVendorData, vendorID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vendor reliability: %w", err)
	}
	rel.Recompute()
	return &rel, nil
}

func (r *VendorRepository) ListReliability(ctx context.Context) ([]domain.VendorReliability, error) {
	var rels []domain.VendorReliability
	err := sqlx.SelectContext(ctx, r.db, &rels, `
		SELECT vendor_id, total_orders, on_time_deliveries, lead_time_days_sum
		FROM vendor_reliability
		ORDER BY vendor_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list vendor reliability: %w", err)
	}
	for i := range rels {
		rels[i].Recompute()
	}
	return rels, nil
}

// ApplyDelivery increments the counters in a single statement so concurrent
// receipts for the same vendor never lose an update.
func (r *VendorRepository) ApplyDelivery(ctx context.Context, vendorID string, onTime bool, leadTimeDays float64) (*domain.VendorReliability, error) {
	var rel domain.VendorReliability
	err := r.db.QueryRowxContext(ctx, `
		UPDATE vendor_reliability
		SET total_orders = total_orders + 1,
		    on_time_deliveries = on_time_deliveries + CASE WHEN $2 THEN 1 ELSE 0 END,
		    lead_time_days_sum = lead_time_days_sum + $3,
		    updated_at = NOW()
		WHERE vendor_id = $1
		RETURNING vendor_id, total_orders, on_time_deliveries, lead_time_days_sum
	`, vendorID, onTime, leadTimeDays).StructScan(&rel)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrStaleVendorData, vendorID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to apply delivery: %w", err)
	}
	rel.Recompute()
	return &rel, nil
}
