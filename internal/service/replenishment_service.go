package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish/internal/alerts"
	"github.com/andresuchdata/replenish/internal/cache"
	"github.com/andresuchdata/replenish/internal/config"
	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/forecast"
	"github.com/andresuchdata/replenish/internal/metrics"
	"github.com/andresuchdata/replenish/internal/purchasing"
	"github.com/andresuchdata/replenish/internal/reorder"
	"github.com/andresuchdata/replenish/internal/report"
	"github.com/andresuchdata/replenish/internal/repository"
	"github.com/andresuchdata/replenish/internal/seasonality"
	"github.com/andresuchdata/replenish/internal/sequence"
	"github.com/andresuchdata/replenish/internal/source"
	"github.com/andresuchdata/replenish/internal/storage"
	"github.com/andresuchdata/replenish/internal/vendor"
)

// Dependencies wires the service. Catalog, Sales, Orders, Vendors,
// Reliability, Runs and Allocator are required.
type Dependencies struct {
	Catalog     source.CatalogSource
	Sales       source.SalesSource
	Orders      repository.PORepository
	Vendors     repository.VendorRepository
	Reliability repository.ReliabilityRepository
	Runs        repository.RunRepository
	Allocator   sequence.Allocator

	Cache       cache.ForecastCache
	Storage     storage.ObjectStorage
	Seasonality reorder.SeasonalityModel
	TaxRates    purchasing.TaxRateProvider
	Sink        metrics.Sink
	Clock       func() time.Time
}

// ReplenishmentService runs forecast → alert → purchase order cycles and
// carries the operator actions on the resulting orders.
type ReplenishmentService struct {
	catalog source.CatalogSource
	orders  repository.PORepository
	vendors repository.VendorRepository
	runs    repository.RunRepository
	storage storage.ObjectStorage
	sink    metrics.Sink
	now     func() time.Time

	generator *alerts.Generator
	engine    *purchasing.Engine
	tracker   *vendor.Tracker
}

// RunOptions tune a single run. Zero values use the service defaults.
type RunOptions struct {
	Now  time.Time
	Sink metrics.Sink
}

// RunResult is everything a run produced.
type RunResult struct {
	Run            domain.RunRecord       `json:"run"`
	Summary        *domain.AlertSummary   `json:"summary"`
	PurchaseOrders []domain.PurchaseOrder `json:"purchase_orders"`
	ReportKey      string                 `json:"report_key,omitempty"`
}

func NewReplenishmentService(deps Dependencies, cfg config.EngineConfig) (*ReplenishmentService, error) {
	switch {
	case deps.Catalog == nil:
		return nil, errors.New("catalog source is required")
	case deps.Sales == nil:
		return nil, errors.New("sales source is required")
	case deps.Orders == nil, deps.Vendors == nil, deps.Reliability == nil, deps.Runs == nil:
		return nil, errors.New("repositories are required")
	case deps.Allocator == nil:
		return nil, errors.New("po sequence allocator is required")
	}

	cfg = cfg.WithDefaults()
	if deps.Cache == nil {
		deps.Cache = cache.NewNoopForecastCache()
	}
	if deps.Seasonality == nil {
		deps.Seasonality = seasonality.NewModel()
	}
	if deps.Sink == nil {
		deps.Sink = metrics.Noop()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	tracker := vendor.NewTracker(deps.Reliability, cfg)

	opts := []purchasing.Option{purchasing.WithClock(deps.Clock)}
	if deps.TaxRates != nil {
		opts = append(opts, purchasing.WithTaxRateProvider(deps.TaxRates))
	}

	return &ReplenishmentService{
		catalog: deps.Catalog,
		orders:  deps.Orders,
		vendors: deps.Vendors,
		runs:    deps.Runs,
		storage: deps.Storage,
		sink:    deps.Sink,
		now:     deps.Clock,
		generator: alerts.NewGenerator(
			forecast.NewForecaster(cfg),
			reorder.NewCalculator(deps.Seasonality),
			deps.Sales,
			tracker,
			deps.Cache,
			cfg,
		),
		engine:  purchasing.NewEngine(deps.Allocator, deps.Vendors, cfg, opts...),
		tracker: tracker,
	}, nil
}

// Run executes one full cycle. A failed run is recorded with its error and
// the next run re-derives everything from scratch.
func (s *ReplenishmentService) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	now := opts.Now
	if now.IsZero() {
		now = s.now()
	}
	now = now.UTC()
	sink := opts.Sink
	if sink == nil {
		sink = s.sink
	}

	run := &domain.RunRecord{Status: domain.RunProcessing, StartedAt: now}
	if err := s.runs.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	logger := log.With().Str("run_id", run.ID.String()).Logger()
	started := time.Now()
	metrics.Count(sink, metrics.RunStarted, 1, nil)
	logger.Info().Time("as_of", now).Msg("Replenishment run started")

	catalog, err := s.catalog.CatalogSnapshot(ctx)
	if err != nil {
		return nil, s.fail(ctx, run, sink, &logger, fmt.Errorf("failed to load catalog: %w", err))
	}
	run.SKUCount = len(catalog)

	summary, err := s.generator.GenerateAll(ctx, catalog, now, sink)
	if err != nil {
		return nil, s.fail(ctx, run, sink, &logger, fmt.Errorf("failed to generate alerts: %w", err))
	}
	run.AlertCount = summary.TotalAlerts
	run.FailureCount = len(summary.Failures)

	if err := s.runs.SaveAlerts(ctx, run.ID, summary.Alerts); err != nil {
		return nil, s.fail(ctx, run, sink, &logger, fmt.Errorf("failed to save alerts: %w", err))
	}

	orders, err := s.engine.BuildPurchaseOrders(ctx, run.ID, summary.Alerts, sink)
	if err != nil {
		return nil, s.fail(ctx, run, sink, &logger, fmt.Errorf("failed to build purchase orders: %w", err))
	}
	for i := range orders {
		if err := s.persistOrder(ctx, &orders[i], sink); err != nil {
			return nil, s.fail(ctx, run, sink, &logger, err)
		}
	}
	run.POCount = len(orders)

	completed := s.now().UTC()
	run.Status = domain.RunCompleted
	run.CompletedAt = &completed
	if err := s.runs.UpdateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to complete run: %w", err)
	}

	result := &RunResult{Run: *run, Summary: summary, PurchaseOrders: orders}
	result.ReportKey = s.uploadAudit(ctx, result, &logger)

	metrics.Count(sink, metrics.RunCompleted, 1, nil)
	metrics.Since(sink, metrics.RunDurationSeconds, started, nil)
	logger.Info().
		Int("skus", run.SKUCount).
		Int("alerts", run.AlertCount).
		Int("failures", run.FailureCount).
		Int("purchase_orders", run.POCount).
		Dur("elapsed", time.Since(started)).
		Msg("Replenishment run completed")

	return result, nil
}

// persistOrder stores a PO, drawing one fresh number if the first collides.
func (s *ReplenishmentService) persistOrder(ctx context.Context, po *domain.PurchaseOrder, sink metrics.Sink) error {
	err := s.orders.Create(ctx, po)
	if !errors.Is(err, domain.ErrSequenceCollision) {
		if err != nil {
			return fmt.Errorf("failed to save purchase order %s: %w", po.PONumber, err)
		}
		return nil
	}

	metrics.Count(sink, metrics.SequenceCollision, 1, map[string]string{"vendor": po.VendorID})
	log.Warn().Str("po_number", po.PONumber).Str("vendor_id", po.VendorID).Msg("PO number collision, retrying with a fresh sequence")

	if err := s.engine.Renumber(ctx, po); err != nil {
		return err
	}
	if err := s.orders.Create(ctx, po); err != nil {
		return fmt.Errorf("failed to save purchase order %s after renumbering: %w", po.PONumber, err)
	}
	return nil
}

func (s *ReplenishmentService) fail(ctx context.Context, run *domain.RunRecord, sink metrics.Sink, logger *zerolog.Logger, cause error) error {
	completed := s.now().UTC()
	run.Status = domain.RunFailed
	run.CompletedAt = &completed
	run.ErrorMessage = cause.Error()

	// The caller's context may be the reason we failed.
	if err := s.runs.UpdateRun(context.WithoutCancel(ctx), run); err != nil {
		logger.Error().Err(err).Msg("Failed to record run failure")
	}
	metrics.Count(sink, metrics.RunFailed, 1, nil)
	logger.Error().Err(cause).Msg("Replenishment run failed")
	return cause
}

func (s *ReplenishmentService) uploadAudit(ctx context.Context, result *RunResult, logger *zerolog.Logger) string {
	if s.storage == nil {
		return ""
	}

	audit := report.Audit{
		Run:            result.Run,
		Summary:        result.Summary,
		PurchaseOrders: result.PurchaseOrders,
		GeneratedAt:    s.now().UTC(),
	}
	data, err := audit.JSON()
	if err != nil {
		logger.Warn().Err(err).Msg("Skipping audit report")
		return ""
	}
	key := audit.Key()
	if err := s.storage.UploadObject(ctx, key, data); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("Audit report upload failed")
		return ""
	}
	return key
}

// RegisterVendors upserts vendor directory entries.
func (s *ReplenishmentService) RegisterVendors(ctx context.Context, vendors []domain.Vendor) error {
	for _, v := range vendors {
		if err := s.vendors.UpsertVendor(ctx, v); err != nil {
			return fmt.Errorf("failed to register vendor %s: %w", v.ID, err)
		}
	}
	return nil
}

func (s *ReplenishmentService) runOrLatest(ctx context.Context, runID uuid.UUID) (*domain.RunRecord, error) {
	if runID == uuid.Nil {
		return s.runs.LatestRun(ctx)
	}
	return s.runs.GetRun(ctx, runID)
}
