package alerts

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/andresuchdata/replenish/internal/config"
	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/forecast"
	"github.com/andresuchdata/replenish/internal/metrics"
	"github.com/andresuchdata/replenish/internal/reorder"
	"github.com/andresuchdata/replenish/internal/vendor"
)

// NoDemandDays is reported as days-until-stockout when nothing is selling.
const NoDemandDays = 999

// SalesSource returns a SKU's daily sales since a date, oldest first.
type SalesSource interface {
	DailySales(ctx context.Context, sku string, since time.Time) ([]domain.SalesRecord, error)
}

// LeadTimeResolver supplies lead time assumptions per vendor.
type LeadTimeResolver interface {
	LeadTimes(ctx context.Context, vendorID string, catalogLead, catalogMaxLead float64) (vendor.LeadTimeProfile, error)
}

// ForecastCache memoises forecasts for an identical sales history.
type ForecastCache interface {
	GetForecast(ctx context.Context, sku string, history []domain.SalesRecord) (domain.DemandForecast, bool, error)
	SetForecast(ctx context.Context, sku string, history []domain.SalesRecord, fc domain.DemandForecast) error
}

// Generator evaluates catalog SKUs against their reorder points.
type Generator struct {
	forecaster *forecast.Forecaster
	calculator *reorder.Calculator
	sales      SalesSource
	leadTimes  LeadTimeResolver
	cache      ForecastCache
	cfg        config.EngineConfig
}

func NewGenerator(
	forecaster *forecast.Forecaster,
	calculator *reorder.Calculator,
	sales SalesSource,
	leadTimes LeadTimeResolver,
	cache ForecastCache,
	cfg config.EngineConfig,
) *Generator {
	return &Generator{
		forecaster: forecaster,
		calculator: calculator,
		sales:      sales,
		leadTimes:  leadTimes,
		cache:      cache,
		cfg:        cfg.WithDefaults(),
	}
}

// Generate evaluates one SKU. It returns a nil alert when stock is healthy.
func (g *Generator) Generate(ctx context.Context, snap domain.ProductSnapshot, now time.Time) (*domain.ReorderAlert, error) {
	if err := validateSnapshot(snap); err != nil {
		return nil, err
	}

	since := now.AddDate(0, 0, -g.cfg.HistoryDays)
	history, err := g.sales.DailySales(ctx, snap.SKU, since)
	if err != nil {
		return nil, fmt.Errorf("load sales for %s: %w", snap.SKU, err)
	}

	fc, err := g.forecast(ctx, snap.SKU, history)
	if err != nil {
		return nil, err
	}

	profile := vendor.LeadTimeProfile{LeadTimeDays: snap.LeadTimeDays, MaxLeadDays: snap.MaxLeadDays}
	if g.leadTimes != nil {
		profile, err = g.leadTimes.LeadTimes(ctx, snap.VendorID, snap.LeadTimeDays, snap.MaxLeadDays)
		if err != nil {
			return nil, fmt.Errorf("resolve lead time for vendor %s: %w", snap.VendorID, err)
		}
	}

	month := int(now.Month()) - 1
	rop, err := g.calculator.Calculate(domain.ReorderPointInput{
		SKU:           snap.SKU,
		AvgDailySales: fc.DailyForecast,
		LeadTimeDays:  profile.LeadTimeDays,
		MaxDailySales: math.Max(fc.Analysis.MaxDaily, fc.DailyForecast),
		MaxLeadDays:   math.Max(profile.MaxLeadDays, profile.LeadTimeDays),
		Category:      snap.Category,
		Month:         &month,
	})
	if err != nil {
		return nil, err
	}

	// Dormant SKUs have a zero reorder point and are never flagged.
	status := reorder.ClassifyStock(snap.CurrentStock, rop.ReorderPoint)
	if status == domain.StatusInStock || rop.ReorderPoint <= 0 {
		return nil, nil
	}

	demand := rop.AdjustedDailySales
	cover := math.Max(snap.CurrentStock, 0) / math.Max(demand, g.cfg.CoverEpsilon)
	qty := g.recommendedQty(rop.ReorderPoint, demand, snap.CurrentStock)

	return &domain.ReorderAlert{
		SKU:                   snap.SKU,
		ProductName:           snap.ProductName,
		Category:              snap.Category,
		VendorID:              snap.VendorID,
		CurrentStock:          snap.CurrentStock,
		Status:                status,
		ReorderPoint:          rop.ReorderPoint,
		SafetyStock:           rop.SafetyStock,
		DailyDemand:           demand,
		DaysOfCover:           math.Round(cover*100) / 100,
		DaysUntilStockout:     g.daysUntilStockout(snap.CurrentStock, demand, cover),
		LeadTimeDays:          profile.LeadTimeDays,
		Urgency:               g.urgency(snap.CurrentStock, cover, profile.LeadTimeDays),
		RecommendedOrderQty:   qty,
		EOQQty:                g.eoq(demand, snap.CostPerUnit),
		CostPerUnit:           snap.CostPerUnit,
		EstimatedCost:         snap.CostPerUnit.Mul(decimal.NewFromInt(int64(qty))).Round(2),
		VendorReliability:     profile.ReliabilityScore,
		Forecast:              fc,
		EstimatedDeliveryDate: now.AddDate(0, 0, int(math.Ceil(profile.LeadTimeDays))),
		GeneratedAt:           now,
	}, nil
}

// GenerateAll evaluates the whole catalog on a bounded worker pool. SKUs with
// invalid data are reported in Failures and do not stop the run; any other
// error aborts it.
func (g *Generator) GenerateAll(ctx context.Context, catalog []domain.ProductSnapshot, now time.Time, sink metrics.Sink) (*domain.AlertSummary, error) {
	workerCount := g.cfg.WorkerCount
	if workerCount < 1 {
		workerCount = 1
	}

	parent := ctx
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	jobChan := make(chan domain.ProductSnapshot, len(catalog))
	errChan := make(chan error, workerCount)

	var (
		mu       sync.Mutex
		alerts   []domain.ReorderAlert
		failures []domain.SKUFailure
		wg       sync.WaitGroup
	)

	// Start workers
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for snap := range jobChan {
				if ctx.Err() != nil {
					return
				}
				alert, err := g.Generate(ctx, snap, now)
				switch {
				case err == nil:
					if alert != nil {
						mu.Lock()
						alerts = append(alerts, *alert)
						mu.Unlock()
					}
				case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrStaleVendorData):
					log.Warn().Err(err).Str("sku", snap.SKU).Int("worker", workerID).Msg("Skipping SKU with invalid data")
					metrics.Count(sink, metrics.SKUFailed, 1, map[string]string{"reason": failureReason(err)})
					mu.Lock()
					failures = append(failures, domain.SKUFailure{SKU: snap.SKU, Reason: err.Error()})
					mu.Unlock()
				default:
					log.Error().Err(err).Str("sku", snap.SKU).Int("worker", workerID).Msg("Alert generation failed")
					select {
					case errChan <- err:
					default:
					}
					cancel()
					return
				}
			}
		}(i)
	}

	// Enqueue jobs
	for _, snap := range catalog {
		jobChan <- snap
	}
	close(jobChan)

	wg.Wait()
	close(errChan)

	if err := <-errChan; err != nil {
		return nil, err
	}
	if err := parent.Err(); err != nil {
		return nil, err
	}

	metrics.Count(sink, metrics.SKUsEvaluated, float64(len(catalog)), nil)
	summary := Summarize(alerts, now)
	summary.Failures = sortFailures(failures)
	for _, a := range summary.Alerts {
		metrics.Count(sink, metrics.AlertsGenerated, 1, map[string]string{"urgency": string(a.Urgency)})
	}

	return summary, nil
}

// Summarize sorts alerts critical first, then by days of cover, and totals
// them by urgency.
func Summarize(alerts []domain.ReorderAlert, now time.Time) *domain.AlertSummary {
	sorted := append([]domain.ReorderAlert{}, alerts...)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := sorted[i].Urgency.Rank(), sorted[j].Urgency.Rank()
		if ri != rj {
			return ri < rj
		}
		if sorted[i].DaysOfCover != sorted[j].DaysOfCover {
			return sorted[i].DaysOfCover < sorted[j].DaysOfCover
		}
		return sorted[i].SKU < sorted[j].SKU
	})

	summary := &domain.AlertSummary{
		TotalAlerts:        len(sorted),
		TotalEstimatedCost: decimal.Zero,
		Alerts:             sorted,
		GeneratedAt:        now,
	}
	for _, a := range sorted {
		summary.TotalEstimatedCost = summary.TotalEstimatedCost.Add(a.EstimatedCost)
		switch a.Urgency {
		case domain.UrgencyCritical:
			summary.CriticalCount++
		case domain.UrgencyHigh:
			summary.HighCount++
		case domain.UrgencyMedium:
			summary.MediumCount++
		default:
			summary.LowCount++
		}
	}
	return summary
}

func (g *Generator) forecast(ctx context.Context, sku string, history []domain.SalesRecord) (domain.DemandForecast, error) {
	if g.cache != nil {
		fc, ok, err := g.cache.GetForecast(ctx, sku, history)
		if err != nil {
			log.Warn().Err(err).Str("sku", sku).Msg("Forecast cache read failed")
		} else if ok {
			return fc, nil
		}
	}

	fc, err := g.forecaster.Forecast(sku, history)
	if err != nil {
		return domain.DemandForecast{}, err
	}

	if g.cache != nil {
		if err := g.cache.SetForecast(ctx, sku, history, fc); err != nil {
			log.Warn().Err(err).Str("sku", sku).Msg("Forecast cache write failed")
		}
	}
	return fc, nil
}

func (g *Generator) urgency(stock, cover, leadTime float64) domain.Urgency {
	switch {
	case stock <= 0:
		return domain.UrgencyCritical
	case cover < leadTime*g.cfg.CriticalCoverRatio:
		return domain.UrgencyCritical
	case cover < leadTime*g.cfg.HighCoverRatio:
		return domain.UrgencyHigh
	case cover < leadTime*g.cfg.MediumCoverRatio:
		return domain.UrgencyMedium
	default:
		return domain.UrgencyLow
	}
}

// recommendedQty restores stock to the reorder point plus the target weeks
// of supply.
func (g *Generator) recommendedQty(reorderPoint, demand, stock float64) int {
	target := reorderPoint + g.cfg.TargetWeeksOfSupply*7*demand
	return int(math.Ceil(math.Max(0, target-stock)))
}

func (g *Generator) daysUntilStockout(stock, demand, cover float64) int {
	switch {
	case stock <= 0:
		return 0
	case demand <= g.cfg.CoverEpsilon:
		return NoDemandDays
	default:
		return int(math.Ceil(cover))
	}
}

// eoq is the classic √(2DS/H) on annualised demand. Informational only.
func (g *Generator) eoq(demand float64, unitCost decimal.Decimal) int {
	annual := demand * 365
	holding := unitCost.InexactFloat64() * g.cfg.EOQHoldingRate
	if annual <= 0 || holding <= 0 {
		return 0
	}
	return int(math.Ceil(math.Sqrt(2 * annual * g.cfg.EOQSetupCost / holding)))
}

func validateSnapshot(s domain.ProductSnapshot) error {
	if s.SKU == "" {
		return domain.NewInvalidInput("sku", s.SKU, "must not be empty")
	}
	if s.VendorID == "" {
		return domain.NewInvalidInput("vendor_id", s.VendorID, "must not be empty")
	}
	if s.CostPerUnit.IsNegative() {
		return domain.NewInvalidInput("cost_per_unit", s.CostPerUnit.String(), "must be non-negative")
	}
	if math.IsNaN(s.CurrentStock) {
		return domain.NewInvalidInput("current_stock", s.CurrentStock, "must be a number")
	}
	return nil
}

func failureReason(err error) string {
	if errors.Is(err, domain.ErrStaleVendorData) {
		return "unknown_vendor"
	}
	return "invalid_input"
}

func sortFailures(f []domain.SKUFailure) []domain.SKUFailure {
	sort.Slice(f, func(i, j int) bool { return f[i].SKU < f[j].SKU })
	return f
}
