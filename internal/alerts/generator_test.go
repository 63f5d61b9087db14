package alerts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/replenish/internal/config"
	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/forecast"
	"github.com/andresuchdata/replenish/internal/metrics"
	"github.com/andresuchdata/replenish/internal/reorder"
	"github.com/andresuchdata/replenish/internal/repository/memory"
	"github.com/andresuchdata/replenish/internal/seasonality"
	"github.com/andresuchdata/replenish/internal/vendor"
)

var now = time.Date(2026, 4, 15, 9, 0, 0, 0, time.UTC)

// ── stubs ────────────────────────────────────────────────────────────────────

type stubSales struct {
	bySKU map[string][]domain.SalesRecord
	err   error
}

func (s *stubSales) DailySales(_ context.Context, sku string, since time.Time) ([]domain.SalesRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []domain.SalesRecord
	for _, r := range s.bySKU[sku] {
		if !r.Date.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func constantSales(sku string, qty float64, days int) []domain.SalesRecord {
	out := make([]domain.SalesRecord, days)
	for i := range out {
		out[i] = domain.SalesRecord{SKU: sku, Date: now.AddDate(0, 0, -days+i), QuantitySold: qty}
	}
	return out
}

type countingCache struct {
	mu    sync.Mutex
	store map[string]domain.DemandForecast
	hits  int
}

func (c *countingCache) GetForecast(_ context.Context, sku string, _ []domain.SalesRecord) (domain.DemandForecast, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fc, ok := c.store[sku]
	if ok {
		c.hits++
	}
	return fc, ok, nil
}

func (c *countingCache) SetForecast(_ context.Context, sku string, _ []domain.SalesRecord, fc domain.DemandForecast) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[sku] = fc
	return nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

func newTestGenerator(t *testing.T, sales SalesSource, cache ForecastCache) *Generator {
	t.Helper()
	cfg := config.DefaultEngineConfig()
	store := memory.NewStore()
	require.NoError(t, store.UpsertVendor(context.Background(), domain.Vendor{ID: "V1", Name: "Acme", Seq: 1}))
	tracker := vendor.NewTracker(store, cfg)
	return NewGenerator(
		forecast.NewForecaster(cfg),
		reorder.NewCalculator(seasonality.NewModel()),
		sales,
		tracker,
		cache,
		cfg,
	)
}

func snapshot(sku string, stock, lead, maxLead float64, cost int64) domain.ProductSnapshot {
	return domain.ProductSnapshot{
		SKU:          sku,
		ProductName:  "Product " + sku,
		VendorID:     "V1",
		CurrentStock: stock,
		CostPerUnit:  decimal.NewFromInt(cost),
		LeadTimeDays: lead,
		MaxLeadDays:  maxLead,
	}
}

func catalogSales() *stubSales {
	return &stubSales{bySKU: map[string][]domain.SalesRecord{
		"A": constantSales("A", 10, 30),
		"B": constantSales("B", 2, 30),
		"C": constantSales("C", 0, 30),
		"D": constantSales("D", 10, 30),
		"E": constantSales("E", 10, 30),
	}}
}

// ── tests ────────────────────────────────────────────────────────────────────

func TestGenerate_CriticalAlert(t *testing.T) {
	g := newTestGenerator(t, catalogSales(), nil)

	alert, err := g.Generate(context.Background(), snapshot("A", 20, 10, 14, 5), now)
	require.NoError(t, err)
	require.NotNil(t, alert)

	assert.Equal(t, domain.StatusUrgentReorder, alert.Status)
	assert.Equal(t, domain.UrgencyCritical, alert.Urgency)
	assert.InDelta(t, 140, alert.ReorderPoint, 1e-6)
	assert.InDelta(t, 40, alert.SafetyStock, 1e-6)
	assert.InDelta(t, 2, alert.DaysOfCover, 1e-6)
	assert.Equal(t, 2, alert.DaysUntilStockout)
	assert.Equal(t, 400, alert.RecommendedOrderQty)
	assert.True(t, decimal.NewFromInt(2000).Equal(alert.EstimatedCost))
	assert.Equal(t, 541, alert.EOQQty)
	assert.Equal(t, now.AddDate(0, 0, 10), alert.EstimatedDeliveryDate)
}

func TestGenerate_HealthyAndDormantSKUsProduceNoAlert(t *testing.T) {
	g := newTestGenerator(t, catalogSales(), nil)

	healthy, err := g.Generate(context.Background(), snapshot("B", 500, 7, 7, 1), now)
	require.NoError(t, err)
	assert.Nil(t, healthy)

	dormant, err := g.Generate(context.Background(), snapshot("C", 0, 30, 45, 1), now)
	require.NoError(t, err)
	assert.Nil(t, dormant)
}

func TestGenerate_OutOfStockIsCritical(t *testing.T) {
	g := newTestGenerator(t, catalogSales(), nil)

	alert, err := g.Generate(context.Background(), snapshot("A", 0, 10, 14, 5), now)
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, domain.StatusOutOfStock, alert.Status)
	assert.Equal(t, domain.UrgencyCritical, alert.Urgency)
	assert.Zero(t, alert.DaysUntilStockout)
}

func TestGenerate_StockAtReorderPointAlerts(t *testing.T) {
	g := newTestGenerator(t, catalogSales(), nil)

	alert, err := g.Generate(context.Background(), snapshot("D", 100, 10, 10, 1), now)
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, domain.StatusLowStock, alert.Status)
}

func TestGenerate_RecommendationExceedsShortfall(t *testing.T) {
	g := newTestGenerator(t, catalogSales(), nil)

	alert, err := g.Generate(context.Background(), snapshot("D", 90, 10, 10, 1), now)
	require.NoError(t, err)
	require.NotNil(t, alert)

	shortfall := alert.ReorderPoint - alert.CurrentStock
	assert.Greater(t, float64(alert.RecommendedOrderQty), shortfall)
	assert.Equal(t, 290, alert.RecommendedOrderQty)
}

func TestGenerateAll_SortsAndSummarises(t *testing.T) {
	g := newTestGenerator(t, catalogSales(), nil)
	rec := metrics.NewRecorder()

	catalog := []domain.ProductSnapshot{
		snapshot("E", 80, 5, 15, 1),
		snapshot("B", 500, 7, 7, 1),
		snapshot("D", 90, 10, 10, 1),
		snapshot("A", 20, 10, 14, 5),
		snapshot("C", 0, 30, 45, 1),
	}

	summary, err := g.GenerateAll(context.Background(), catalog, now, rec)
	require.NoError(t, err)

	require.Len(t, summary.Alerts, 3)
	assert.Equal(t, "A", summary.Alerts[0].SKU)
	assert.Equal(t, domain.UrgencyCritical, summary.Alerts[0].Urgency)
	assert.Equal(t, "D", summary.Alerts[1].SKU)
	assert.Equal(t, domain.UrgencyHigh, summary.Alerts[1].Urgency)
	assert.Equal(t, "E", summary.Alerts[2].SKU)
	assert.Equal(t, domain.UrgencyMedium, summary.Alerts[2].Urgency)

	assert.Equal(t, 3, summary.TotalAlerts)
	assert.Equal(t, 1, summary.CriticalCount)
	assert.Equal(t, 1, summary.HighCount)
	assert.Equal(t, 1, summary.MediumCount)
	assert.True(t, decimal.NewFromInt(2000+290+350).Equal(summary.TotalEstimatedCost))
	assert.Empty(t, summary.Failures)

	assert.Equal(t, 5.0, rec.Total(metrics.SKUsEvaluated))
	assert.Equal(t, 3.0, rec.Total(metrics.AlertsGenerated))
}

func TestGenerateAll_CollectsInvalidSKUs(t *testing.T) {
	g := newTestGenerator(t, catalogSales(), nil)
	rec := metrics.NewRecorder()

	badCost := snapshot("A", 20, 10, 14, -1)
	unknownVendor := snapshot("D", 90, 10, 10, 1)
	unknownVendor.VendorID = "ghost"
	negativeLead := snapshot("E", 80, -5, 15, 1)

	summary, err := g.GenerateAll(context.Background(), []domain.ProductSnapshot{badCost, unknownVendor, negativeLead}, now, rec)
	require.NoError(t, err)
	assert.Empty(t, summary.Alerts)
	require.Len(t, summary.Failures, 3)
	assert.Equal(t, "A", summary.Failures[0].SKU)
	assert.Equal(t, 3.0, rec.Total(metrics.SKUFailed))
}

func TestGenerateAll_SourceErrorAborts(t *testing.T) {
	boom := errors.New("ledger unavailable")
	g := newTestGenerator(t, &stubSales{err: boom}, nil)

	_, err := g.GenerateAll(context.Background(), []domain.ProductSnapshot{snapshot("A", 20, 10, 14, 5)}, now, nil)
	assert.ErrorIs(t, err, boom)
}

func TestGenerateAll_CancelledContext(t *testing.T) {
	g := newTestGenerator(t, catalogSales(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.GenerateAll(ctx, []domain.ProductSnapshot{snapshot("A", 20, 10, 14, 5)}, now, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerate_UsesForecastCache(t *testing.T) {
	cache := &countingCache{store: map[string]domain.DemandForecast{}}
	g := newTestGenerator(t, catalogSales(), cache)

	first, err := g.Generate(context.Background(), snapshot("A", 20, 10, 14, 5), now)
	require.NoError(t, err)
	second, err := g.Generate(context.Background(), snapshot("A", 20, 10, 14, 5), now)
	require.NoError(t, err)

	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, first.RecommendedOrderQty, second.RecommendedOrderQty)
}

func TestSummarize_TieBreaksOnCover(t *testing.T) {
	summary := Summarize([]domain.ReorderAlert{
		{SKU: "x", Urgency: domain.UrgencyHigh, DaysOfCover: 4},
		{SKU: "y", Urgency: domain.UrgencyHigh, DaysOfCover: 1},
		{SKU: "z", Urgency: domain.UrgencyLow, DaysOfCover: 0},
	}, now)

	assert.Equal(t, []string{"y", "x", "z"}, []string{summary.Alerts[0].SKU, summary.Alerts[1].SKU, summary.Alerts[2].SKU})
	assert.Equal(t, 1, summary.LowCount)
}
