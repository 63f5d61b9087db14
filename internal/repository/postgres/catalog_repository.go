package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/andresuchdata/replenish/internal/domain"
)

// CatalogRepository serves the catalog snapshot and sales ledger from the
// products and sales_daily tables.
type CatalogRepository struct {
	db *DB
}

func NewCatalogRepository(db *DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) CatalogSnapshot(ctx context.Context) ([]domain.ProductSnapshot, error) {
	var products []domain.ProductSnapshot
	err := sqlx.SelectContext(ctx, r.db, &products, `
		SELECT sku, product_name, category, vendor_id, current_stock,
		       cost_per_unit, lead_time_days, max_lead_days
		FROM products
		ORDER BY sku
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return products, nil
}

func (r *CatalogRepository) DailySales(ctx context.Context, sku string, since time.Time) ([]domain.SalesRecord, error) {
	var sales []domain.SalesRecord
	err := sqlx.SelectContext(ctx, r.db, &sales, `
		SELECT sku, sale_date, quantity
		FROM sales_daily
		WHERE sku = $1 AND sale_date >= $2
		ORDER BY sale_date
	`, sku, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load sales for %s: %w", sku, err)
	}
	return sales, nil
}

// Import upserts products and sales rows in one transaction. Vendors must
// already exist.
func (r *CatalogRepository) Import(ctx context.Context, catalog []domain.ProductSnapshot, sales []domain.SalesRecord) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		productStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO products (
				sku, product_name, category, vendor_id, current_stock,
				cost_per_unit, lead_time_days, max_lead_days, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
			ON CONFLICT (sku)
			DO UPDATE SET
				product_name = EXCLUDED.product_name,
				category = EXCLUDED.category,
				vendor_id = EXCLUDED.vendor_id,
				current_stock = EXCLUDED.current_stock,
				cost_per_unit = EXCLUDED.cost_per_unit,
				lead_time_days = EXCLUDED.lead_time_days,
				max_lead_days = EXCLUDED.max_lead_days,
				updated_at = NOW()
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer productStmt.Close()

		for _, p := range catalog {
			_, err := productStmt.ExecContext(ctx,
				p.SKU, p.ProductName, p.Category, p.VendorID, p.CurrentStock,
				p.CostPerUnit, p.LeadTimeDays, p.MaxLeadDays,
			)
			if err != nil {
				return fmt.Errorf("failed to upsert product %s: %w", p.SKU, err)
			}
		}

		salesStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO sales_daily (sku, sale_date, quantity)
			VALUES ($1, $2, $3)
			ON CONFLICT (sku, sale_date) DO UPDATE SET quantity = EXCLUDED.quantity
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer salesStmt.Close()

		for _, s := range sales {
			if _, err := salesStmt.ExecContext(ctx, s.SKU, s.Date, s.QuantitySold); err != nil {
				return fmt.Errorf("failed to upsert sales for %s: %w", s.SKU, err)
			}
		}
		return nil
	})
}
