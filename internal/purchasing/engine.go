package purchasing

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/andresuchdata/replenish/internal/config"
	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/metrics"
	"github.com/andresuchdata/replenish/internal/sequence"
)

// SystemApprover is recorded on purchase orders that pass the gate without
// human review.
const SystemApprover = "system"

// VendorDirectory resolves the vendor's numbering code.
type VendorDirectory interface {
	GetVendor(ctx context.Context, id string) (*domain.Vendor, error)
}

// TaxRateProvider is an optional external tax service.
type TaxRateProvider interface {
	TaxRate(ctx context.Context, vendorID string) (decimal.Decimal, error)
}

// Engine turns reorder alerts into one purchase order per vendor and decides
// which of them need human approval.
type Engine struct {
	allocator sequence.Allocator
	vendors   VendorDirectory
	tax       TaxRateProvider
	cfg       config.EngineConfig
	now       func() time.Time
}

type Option func(*Engine)

// WithTaxRateProvider plugs in an external tax service.
func WithTaxRateProvider(p TaxRateProvider) Option {
	return func(e *Engine) { e.tax = p }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(allocator sequence.Allocator, vendors VendorDirectory, cfg config.EngineConfig, opts ...Option) *Engine {
	e := &Engine{
		allocator: allocator,
		vendors:   vendors,
		cfg:       cfg.WithDefaults(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BuildPurchaseOrders groups alerts by vendor and drafts exactly one PO per
// vendor, each already moved through the approval gate. Alerts with nothing
// to order are ignored.
func (e *Engine) BuildPurchaseOrders(ctx context.Context, runID uuid.UUID, alerts []domain.ReorderAlert, sink metrics.Sink) ([]domain.PurchaseOrder, error) {
	groups := make(map[string][]domain.ReorderAlert)
	for _, a := range alerts {
		if a.RecommendedOrderQty <= 0 {
			continue
		}
		groups[a.VendorID] = append(groups[a.VendorID], a)
	}

	vendorIDs := make([]string, 0, len(groups))
	for id := range groups {
		vendorIDs = append(vendorIDs, id)
	}
	sort.Strings(vendorIDs)

	orders := make([]domain.PurchaseOrder, 0, len(vendorIDs))
	for _, vendorID := range vendorIDs {
		po, err := e.Draft(ctx, runID, vendorID, groups[vendorID])
		if err != nil {
			return nil, err
		}
		if err := e.Submit(po); err != nil {
			return nil, err
		}

		metrics.Count(sink, metrics.PurchaseOrdersDraft, 1, map[string]string{"status": string(po.Status)})
		if po.RequiresApproval {
			metrics.Count(sink, metrics.ApprovalRequired, 1, nil)
		}
		orders = append(orders, *po)
	}

	return orders, nil
}

// Draft builds a draft PO for a single vendor's alerts.
func (e *Engine) Draft(ctx context.Context, runID uuid.UUID, vendorID string, alerts []domain.ReorderAlert) (*domain.PurchaseOrder, error) {
	if vendorID == "" {
		return nil, domain.NewInvalidInput("vendor_id", vendorID, "must not be empty")
	}
	for _, a := range alerts {
		if a.VendorID != vendorID {
			return nil, domain.NewInvalidInput("vendor_id", a.VendorID, "alert does not belong to vendor "+vendorID)
		}
	}

	createdAt := e.now().UTC()
	po := &domain.PurchaseOrder{
		ID:        uuid.New(),
		RunID:     runID,
		VendorID:  vendorID,
		Status:    domain.PODraft,
		CreatedAt: createdAt,
		LineItems: buildLineItems(alerts),
	}

	maxLead := 0.0
	subtotal := decimal.Zero
	for _, li := range po.LineItems {
		subtotal = subtotal.Add(li.LineTotal)
		maxLead = math.Max(maxLead, li.LeadTimeDays)
	}

	rate := e.taxRate(ctx, vendorID)
	po.Subtotal = subtotal.Round(2)
	po.TaxRate = rate
	po.EstimatedTax = po.Subtotal.Mul(rate).Round(2)
	po.Total = po.Subtotal.Add(po.EstimatedTax)
	po.ExpectedDeliveryDate = createdAt.AddDate(0, 0, int(math.Ceil(maxLead)))
	po.RequiresApproval, po.ApprovalReasons = e.EvaluateGate(po)

	if err := e.Renumber(ctx, po); err != nil {
		return nil, err
	}

	log.Debug().
		Str("po_number", po.PONumber).
		Str("vendor_id", vendorID).
		Int("lines", len(po.LineItems)).
		Str("total", po.Total.StringFixed(2)).
		Bool("requires_approval", po.RequiresApproval).
		Msg("Drafted purchase order")

	return po, nil
}

// Renumber draws a fresh sequence number for po. It is how a numbering
// collision is retried.
func (e *Engine) Renumber(ctx context.Context, po *domain.PurchaseOrder) error {
	v, err := e.vendors.GetVendor(ctx, po.VendorID)
	if err != nil {
		return fmt.Errorf("lookup vendor %s: %w", po.VendorID, err)
	}

	seq, err := e.allocator.Next(ctx, po.VendorID, po.CreatedAt)
	if err != nil {
		return fmt.Errorf("allocate po sequence for vendor %s: %w", po.VendorID, err)
	}

	po.PONumber = FormatPONumber(po.CreatedAt, v.Seq, seq)
	return nil
}

// EvaluateGate decides whether a PO needs human approval. The PO total and
// critical line totals are independent triggers.
func (e *Engine) EvaluateGate(po *domain.PurchaseOrder) (bool, []string) {
	var reasons []string

	if po.Total.GreaterThanOrEqual(e.cfg.ApprovalTotalThreshold) {
		reasons = append(reasons, fmt.Sprintf("total %s >= %s",
			po.Total.StringFixed(2), e.cfg.ApprovalTotalThreshold.StringFixed(2)))
	}
	for _, li := range po.LineItems {
		if li.Urgency == domain.UrgencyCritical && li.LineTotal.GreaterThan(e.cfg.CriticalLineThreshold) {
			reasons = append(reasons, fmt.Sprintf("critical line %s total %s > %s",
				li.SKU, li.LineTotal.StringFixed(2), e.cfg.CriticalLineThreshold.StringFixed(2)))
		}
	}

	return len(reasons) > 0, reasons
}

// Submit moves a draft through the gate: to pending_approval when approval
// is required, otherwise straight to approved.
func (e *Engine) Submit(po *domain.PurchaseOrder) error {
	at := e.now().UTC()
	if po.RequiresApproval {
		if err := domain.CheckTransition(po.Status, domain.POPendingApproval); err != nil {
			return err
		}
		po.Status = domain.POPendingApproval
		po.SubmittedAt = &at
		return nil
	}

	if err := domain.CheckTransition(po.Status, domain.POApproved); err != nil {
		return err
	}
	po.Status = domain.POApproved
	po.ApprovedAt = &at
	po.ApprovedBy = SystemApprover
	return nil
}

// FormatPONumber renders PO-{YYYYMMDD}-VEN{vendorSeq:3}-{seq:4}.
func FormatPONumber(day time.Time, vendorSeq, seq int) string {
	return fmt.Sprintf("PO-%s-VEN%03d-%04d", sequence.DayKey(day), vendorSeq, seq)
}

func (e *Engine) taxRate(ctx context.Context, vendorID string) decimal.Decimal {
	if e.tax == nil {
		return e.cfg.DefaultTaxRate
	}
	rate, err := e.tax.TaxRate(ctx, vendorID)
	if err != nil || rate.IsNegative() {
		log.Warn().Err(err).Str("vendor_id", vendorID).Msg("Tax service unavailable, using default rate")
		return e.cfg.DefaultTaxRate
	}
	return rate
}

func buildLineItems(alerts []domain.ReorderAlert) []domain.LineItem {
	items := make([]domain.LineItem, 0, len(alerts))
	for _, a := range alerts {
		qty := decimal.NewFromInt(int64(a.RecommendedOrderQty))
		items = append(items, domain.LineItem{
			SKU:          a.SKU,
			ProductName:  a.ProductName,
			Quantity:     a.RecommendedOrderQty,
			UnitCost:     a.CostPerUnit,
			LineTotal:    a.CostPerUnit.Mul(qty).Round(2),
			Urgency:      a.Urgency,
			LeadTimeDays: a.LeadTimeDays,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		ri, rj := items[i].Urgency.Rank(), items[j].Urgency.Rank()
		if ri != rj {
			return ri < rj
		}
		return items[i].SKU < items[j].SKU
	})
	return items
}
