package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/migrations"
	"github.com/andresuchdata/replenish/internal/repository"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := &pq.Error{Code: "23505", Constraint: poNumberConstraint}

	assert.True(t, isUniqueViolation(dup, ""))
	assert.True(t, isUniqueViolation(fmt.Errorf("wrapped: %w", dup), poNumberConstraint))
	assert.False(t, isUniqueViolation(dup, "vendors_seq_key"))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}, ""))
	assert.False(t, isUniqueViolation(errors.New("boom"), ""))
	assert.False(t, isUniqueViolation(nil, ""))
}

func TestBuildPOFilterClause(t *testing.T) {
	runID := uuid.New()

	where, args := buildPOFilterClause(repository.POFilter{}, "", 1)
	assert.Empty(t, where)
	assert.Nil(t, args)

	where, args = buildPOFilterClause(repository.POFilter{
		Status:   domain.POPendingApproval,
		VendorID: "V1",
		RunID:    runID,
	}, "po.", 1)
	assert.Equal(t, " WHERE po.status = $1 AND po.vendor_id = $2 AND po.run_id = $3", where)
	assert.Equal(t, []interface{}{"pending_approval", "V1", runID}, args)

	page, pageArgs := buildPagination(repository.POFilter{Limit: 10, Offset: 20}, 4)
	assert.Equal(t, " LIMIT $4 OFFSET $5", page)
	assert.Equal(t, []interface{}{10, 20}, pageArgs)
}

func openTestDB(t *testing.T) *DB {
	t.Helper()

	dsn := os.Getenv("REPLENISH_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("REPLENISH_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	require.NoError(t, migrations.Up(ctx, dsn))

	raw, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })

	_, err = raw.ExecContext(ctx, `
		TRUNCATE purchase_order_lines, purchase_orders, reorder_alerts, replenishment_runs,
		         sales_daily, products, vendor_reliability, vendors, po_sequences
	`)
	require.NoError(t, err)

	return Wrap(raw)
}

func TestPostgres_PurchaseOrders(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	vendors := NewVendorRepository(db)
	require.NoError(t, vendors.UpsertVendor(ctx, domain.Vendor{ID: "V1", Name: "Alpine", Seq: 1}))

	repo := NewPORepository(db)
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	po := &domain.PurchaseOrder{
		PONumber: "PO-20260302-VEN001-0001",
		VendorID: "V1",
		LineItems: []domain.LineItem{
			{SKU: "A", Quantity: 10, UnitCost: decimal.RequireFromString("60"), LineTotal: decimal.RequireFromString("600"), Urgency: domain.UrgencyCritical, LeadTimeDays: 7},
			{SKU: "B", Quantity: 5, UnitCost: decimal.RequireFromString("20"), LineTotal: decimal.RequireFromString("100"), Urgency: domain.UrgencyLow, LeadTimeDays: 5},
		},
		Subtotal:             decimal.RequireFromString("700"),
		TaxRate:              decimal.RequireFromString("0.08"),
		EstimatedTax:         decimal.RequireFromString("56"),
		Total:                decimal.RequireFromString("756"),
		Status:               domain.PODraft,
		RequiresApproval:     true,
		ApprovalReasons:      []string{"critical line A over 500"},
		ExpectedDeliveryDate: now.AddDate(0, 0, 7),
		CreatedAt:            now,
	}
	require.NoError(t, repo.Create(ctx, po))

	dup := *po
	dup.ID = uuid.Nil
	assert.ErrorIs(t, repo.Create(ctx, &dup), domain.ErrSequenceCollision)

	got, err := repo.Get(ctx, po.ID)
	require.NoError(t, err)
	require.Len(t, got.LineItems, 2)
	assert.Equal(t, "A", got.LineItems[0].SKU)
	assert.True(t, got.Total.Equal(po.Total))
	assert.Equal(t, po.ApprovalReasons, got.ApprovalReasons)

	submitted := now.Add(time.Minute)
	got.Status = domain.POPendingApproval
	got.SubmittedAt = &submitted
	require.NoError(t, repo.UpdateStatus(ctx, got, domain.PODraft))
	assert.ErrorIs(t, repo.UpdateStatus(ctx, got, domain.PODraft), domain.ErrInvalidTransition)

	list, err := repo.List(ctx, repository.POFilter{Status: domain.POPendingApproval})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Len(t, list[0].LineItems, 2)

	_, err = repo.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrPurchaseOrderNotFound)
}

func TestPostgres_ReliabilityConcurrentDeliveries(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	repo := NewVendorRepository(db)
	require.NoError(t, repo.UpsertVendor(ctx, domain.Vendor{ID: "V1", Seq: 1}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.ApplyDelivery(ctx, "V1", i%2 == 0, 7)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	rel, err := repo.GetReliability(ctx, "V1")
	require.NoError(t, err)
	assert.Equal(t, 20, rel.TotalOrders)
	assert.Equal(t, 10, rel.OnTimeDeliveries)
	assert.InDelta(t, 50.0, rel.ReliabilityScore, 1e-9)
	assert.InDelta(t, 7.0, rel.AverageLeadTimeDays, 1e-9)

	_, err = repo.ApplyDelivery(ctx, "ghost", true, 1)
	assert.ErrorIs(t, err, domain.ErrStaleVendorData)
}

func TestPostgres_SequenceIsShared(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	seq := NewSequenceRepository(db)
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	seen := make(map[int]bool)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := seq.Next(ctx, "V1", day)
			assert.NoError(t, err)
			mu.Lock()
			seen[n] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 25)

	n, err := seq.Next(ctx, "V1", day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, n, "sequence restarts each day")
}

func TestPostgres_RunsAndCatalog(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	runs := NewRunRepository(db)
	_, err := runs.LatestRun(ctx)
	assert.ErrorIs(t, err, domain.ErrRunNotFound)

	started := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	run := &domain.RunRecord{Status: domain.RunProcessing, StartedAt: started}
	require.NoError(t, runs.CreateRun(ctx, run))

	alerts := []domain.ReorderAlert{
		{SKU: "A", Urgency: domain.UrgencyCritical, RecommendedOrderQty: 40},
		{SKU: "B", Urgency: domain.UrgencyLow, RecommendedOrderQty: 5},
	}
	require.NoError(t, runs.SaveAlerts(ctx, run.ID, alerts))

	completed := started.Add(time.Minute)
	run.Status = domain.RunCompleted
	run.CompletedAt = &completed
	run.AlertCount = 2
	require.NoError(t, runs.UpdateRun(ctx, run))

	latest, err := runs.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, run.ID, latest.ID)

	got, err := runs.ListAlerts(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].SKU)
	assert.Equal(t, 40, got[0].RecommendedOrderQty)

	vendors := NewVendorRepository(db)
	require.NoError(t, vendors.UpsertVendor(ctx, domain.Vendor{ID: "V1", Seq: 1}))

	catalog := NewCatalogRepository(db)
	require.NoError(t, catalog.Import(ctx,
		[]domain.ProductSnapshot{{SKU: "A", VendorID: "V1", CurrentStock: 3, CostPerUnit: decimal.RequireFromString("12.5"), LeadTimeDays: 7, MaxLeadDays: 10}},
		[]domain.SalesRecord{
			{SKU: "A", Date: started.AddDate(0, 0, -2), QuantitySold: 4},
			{SKU: "A", Date: started.AddDate(0, 0, -1), QuantitySold: 6},
		},
	))

	snap, err := catalog.CatalogSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Equal(t, "12.5", snap[0].CostPerUnit.String())

	sales, err := catalog.DailySales(ctx, "A", started.AddDate(0, 0, -1))
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, 6.0, sales[0].QuantitySold)
}
