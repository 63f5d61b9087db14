package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/repository"
)

const poNumberConstraint = "purchase_orders_po_number_key"

const poColumns = `
	id, po_number, run_id, vendor_id, subtotal, tax_rate, estimated_tax, total,
	status, requires_approval, approval_reasons, expected_delivery_date, created_at,
	submitted_at, approved_at, approved_by, rejected_at, rejected_by, rejection_reason,
	sent_at, received_at`

// poRow carries the array column that PurchaseOrder keeps as a plain slice.
type poRow struct {
	domain.PurchaseOrder
	Reasons pq.StringArray `db:"approval_reasons"`
}

type lineRow struct {
	POID uuid.UUID `db:"po_id"`
	domain.LineItem
}

type PORepository struct {
	db *DB
}

var _ repository.PORepository = (*PORepository)(nil)

func NewPORepository(db *DB) *PORepository {
	return &PORepository{db: db}
}

func (r *PORepository) Create(ctx context.Context, po *domain.PurchaseOrder) error {
	if po.ID == uuid.Nil {
		po.ID = uuid.New()
	}

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var runID interface{}
		if po.RunID != uuid.Nil {
			runID = po.RunID
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO purchase_orders (`+poColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			        $14, $15, $16, $17, $18, $19, $20, $21)
		`,
			po.ID, po.PONumber, runID, po.VendorID, po.Subtotal, po.TaxRate, po.EstimatedTax, po.Total,
			po.Status, po.RequiresApproval, pq.StringArray(po.ApprovalReasons), po.ExpectedDeliveryDate, po.CreatedAt,
			po.SubmittedAt, po.ApprovedAt, po.ApprovedBy, po.RejectedAt, po.RejectedBy, po.RejectionReason,
			po.SentAt, po.ReceivedAt,
		)
		if isUniqueViolation(err, poNumberConstraint) {
			return fmt.Errorf("%w: %s", domain.ErrSequenceCollision, po.PONumber)
		}
		if err != nil {
			return fmt.Errorf("failed to insert purchase order: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO purchase_order_lines (
				po_id, line_no, sku, product_name, quantity,
				unit_cost, line_total, urgency, lead_time_days
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for i, li := range po.LineItems {
			_, err := stmt.ExecContext(ctx,
				po.ID, i+1, li.SKU, li.ProductName, li.Quantity,
				li.UnitCost, li.LineTotal, li.Urgency, li.LeadTimeDays,
			)
			if err != nil {
				return fmt.Errorf("failed to insert line item %s: %w", li.SKU, err)
			}
		}

		return nil
	})
}

func (r *PORepository) Get(ctx context.Context, id uuid.UUID) (*domain.PurchaseOrder, error) {
	var row poRow
	err := sqlx.GetContext(ctx, r.db, &row, `SELECT `+poColumns+` FROM purchase_orders WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPurchaseOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase order: %w", err)
	}

	orders := []poRow{row}
	if err := r.attachLines(ctx, orders); err != nil {
		return nil, err
	}
	po := orders[0].toDomain()
	return &po, nil
}

func (r *PORepository) List(ctx context.Context, filter repository.POFilter) ([]domain.PurchaseOrder, error) {
	where, args := buildPOFilterClause(filter, "", 1)
	page, pageArgs := buildPagination(filter, len(args)+1)
	args = append(args, pageArgs...)

	query := `SELECT ` + poColumns + ` FROM purchase_orders` + where +
		` ORDER BY created_at DESC, po_number` + page

	var rows []poRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list purchase orders: %w", err)
	}
	if err := r.attachLines(ctx, rows); err != nil {
		return nil, err
	}

	out := make([]domain.PurchaseOrder, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *PORepository) UpdateStatus(ctx context.Context, po *domain.PurchaseOrder, from domain.POStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE purchase_orders
		SET status = $1, submitted_at = $2, approved_at = $3, approved_by = $4,
		    rejected_at = $5, rejected_by = $6, rejection_reason = $7,
		    sent_at = $8, received_at = $9
		WHERE id = $10 AND status = $11
	`,
		po.Status, po.SubmittedAt, po.ApprovedAt, po.ApprovedBy,
		po.RejectedAt, po.RejectedBy, po.RejectionReason,
		po.SentAt, po.ReceivedAt,
		po.ID, from,
	)
	if err != nil {
		return fmt.Errorf("failed to update purchase order status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 1 {
		return nil
	}

	var current domain.POStatus
	err = r.db.QueryRowContext(ctx, `SELECT status FROM purchase_orders WHERE id = $1`, po.ID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrPurchaseOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read purchase order status: %w", err)
	}
	return fmt.Errorf("%w: %s is now %s", domain.ErrInvalidTransition, po.PONumber, current)
}

func (r *PORepository) attachLines(ctx context.Context, orders []poRow) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	byID := make(map[uuid.UUID]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID.String()
		byID[o.ID] = i
	}

	var lines []lineRow
	err := sqlx.SelectContext(ctx, r.db, &lines, `
		SELECT po_id, sku, product_name, quantity, unit_cost, line_total, urgency, lead_time_days
		FROM purchase_order_lines
		WHERE po_id = ANY($1::uuid[])
		ORDER BY po_id, line_no
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to load line items: %w", err)
	}

	for _, l := range lines {
		i := byID[l.POID]
		orders[i].LineItems = append(orders[i].LineItems, l.LineItem)
	}
	return nil
}

func (r poRow) toDomain() domain.PurchaseOrder {
	po := r.PurchaseOrder
	if len(r.Reasons) > 0 {
		po.ApprovalReasons = []string(r.Reasons)
	}
	return po
}
