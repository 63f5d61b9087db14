// internal/domain/models.go
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SalesRecord is one day of observed sales for a SKU. Records are immutable
// once the sales ledger has emitted them.
type SalesRecord struct {
	SKU          string    `json:"sku" db:"sku"`
	Date         time.Time `json:"date" db:"sale_date"`
	QuantitySold float64   `json:"quantity_sold" db:"quantity"`
}

// ProductSnapshot is the catalog/inventory view of a SKU at run time.
type ProductSnapshot struct {
	SKU          string          `json:"sku" db:"sku"`
	ProductName  string          `json:"product_name" db:"product_name"`
	Category     string          `json:"category" db:"category"`
	VendorID     string          `json:"vendor_id" db:"vendor_id"`
	CurrentStock float64         `json:"current_stock" db:"current_stock"`
	CostPerUnit  decimal.Decimal `json:"cost_per_unit" db:"cost_per_unit"`
	LeadTimeDays float64         `json:"lead_time_days" db:"lead_time_days"`
	MaxLeadDays  float64         `json:"max_lead_days" db:"max_lead_days"`
}

// Trend classifies the fitted slope of a sales series.
type Trend string

const (
	TrendGrowing   Trend = "growing"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

// Confidence classifies how noisy a sales series is.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ForecastAnalysis keeps the intermediate statistics so an operator can see
// why a forecast was classified the way it was.
type ForecastAnalysis struct {
	Observations   int     `json:"observations"`
	HistoricalMean float64 `json:"historical_mean"`
	MaxDaily       float64 `json:"max_daily"`
	Slope          float64 `json:"slope"`
	Intercept      float64 `json:"intercept"`
	Variability    float64 `json:"variability"`
}

// DemandForecast is derived each run and only ever cached, never stored as
// a source of truth.
type DemandForecast struct {
	SKU           string           `json:"sku"`
	DailyForecast float64          `json:"daily_forecast"`
	Forecast30d   float64          `json:"forecast_30d"`
	Trend         Trend            `json:"trend"`
	Confidence    Confidence       `json:"confidence"`
	Analysis      ForecastAnalysis `json:"analysis"`
	GeneratedAt   time.Time        `json:"generated_at"`
}

// SeasonalityPattern is static reference data, one per category.
type SeasonalityPattern struct {
	Category        string  `json:"category"`
	PeakMonths      []int   `json:"peak_months"`
	OffSeasonMonths []int   `json:"off_season_months"`
	PeakFactor      float64 `json:"peak_factor"`
	OffSeasonFactor float64 `json:"off_season_factor"`
}

// ReorderPointInput feeds the reorder point calculation. Category is optional;
// Month is zero-based (0 = January), only read when Category is set, and
// defaults to the current month when nil.
type ReorderPointInput struct {
	SKU           string
	AvgDailySales float64
	LeadTimeDays  float64
	MaxDailySales float64
	MaxLeadDays   float64
	Category      string
	Month         *int
}

// ReorderPointResult has no lifecycle of its own.
type ReorderPointResult struct {
	SKU                string  `json:"sku"`
	ReorderPoint       float64 `json:"reorder_point"`
	SafetyStock        float64 `json:"safety_stock"`
	LeadTimeDemand     float64 `json:"lead_time_demand"`
	SeasonalityFactor  float64 `json:"seasonality_factor"`
	AdjustedDailySales float64 `json:"adjusted_daily_sales"`
}

// StockStatus is the health bucket of a SKU relative to its reorder point.
type StockStatus string

const (
	StatusOutOfStock    StockStatus = "out_of_stock"
	StatusUrgentReorder StockStatus = "urgent_reorder"
	StatusLowStock      StockStatus = "low_stock"
	StatusInStock       StockStatus = "in_stock"
)

// Urgency ranks reorder alerts.
type Urgency string

const (
	UrgencyCritical Urgency = "critical"
	UrgencyHigh     Urgency = "high"
	UrgencyMedium   Urgency = "medium"
	UrgencyLow      Urgency = "low"
)

var urgencyRank = map[Urgency]int{
	UrgencyCritical: 1,
	UrgencyHigh:     2,
	UrgencyMedium:   3,
	UrgencyLow:      4,
}

// Rank orders urgencies with critical first. Unknown values sort last.
func (u Urgency) Rank() int {
	if r, ok := urgencyRank[u]; ok {
		return r
	}
	return len(urgencyRank) + 1
}

// ReorderAlert is produced per run for every SKU below its reorder point and
// is superseded, never mutated, by the next run.
type ReorderAlert struct {
	SKU                   string          `json:"sku"`
	ProductName           string          `json:"product_name"`
	Category              string          `json:"category"`
	VendorID              string          `json:"vendor_id"`
	CurrentStock          float64         `json:"current_stock"`
	Status                StockStatus     `json:"status"`
	ReorderPoint          float64         `json:"reorder_point"`
	SafetyStock           float64         `json:"safety_stock"`
	DailyDemand           float64         `json:"daily_demand"`
	DaysOfCover           float64         `json:"days_of_cover"`
	DaysUntilStockout     int             `json:"days_until_stockout"`
	LeadTimeDays          float64         `json:"lead_time_days"`
	Urgency               Urgency         `json:"urgency"`
	RecommendedOrderQty   int             `json:"recommended_order_qty"`
	EOQQty                int             `json:"eoq_qty"`
	CostPerUnit           decimal.Decimal `json:"cost_per_unit"`
	EstimatedCost         decimal.Decimal `json:"estimated_cost"`
	VendorReliability     float64         `json:"vendor_reliability"`
	Forecast              DemandForecast  `json:"forecast"`
	EstimatedDeliveryDate time.Time       `json:"estimated_delivery_date"`
	GeneratedAt           time.Time       `json:"generated_at"`
}

// SKUFailure records a SKU the run could not evaluate, e.g. because its
// catalog data failed validation.
type SKUFailure struct {
	SKU    string `json:"sku"`
	Reason string `json:"reason"`
}

// AlertSummary is the read model handed to dashboards.
type AlertSummary struct {
	TotalAlerts        int             `json:"total_alerts"`
	CriticalCount      int             `json:"critical_count"`
	HighCount          int             `json:"high_count"`
	MediumCount        int             `json:"medium_count"`
	LowCount           int             `json:"low_count"`
	TotalEstimatedCost decimal.Decimal `json:"total_estimated_cost"`
	Alerts             []ReorderAlert  `json:"alerts"`
	Failures           []SKUFailure    `json:"failures,omitempty"`
	GeneratedAt        time.Time       `json:"generated_at"`
}

// LineItem belongs to exactly one purchase order.
type LineItem struct {
	SKU          string          `json:"sku" db:"sku"`
	ProductName  string          `json:"product_name" db:"product_name"`
	Quantity     int             `json:"quantity" db:"quantity"`
	UnitCost     decimal.Decimal `json:"unit_cost" db:"unit_cost"`
	LineTotal    decimal.Decimal `json:"line_total" db:"line_total"`
	Urgency      Urgency         `json:"urgency" db:"urgency"`
	LeadTimeDays float64         `json:"lead_time_days" db:"lead_time_days"`
}

// PurchaseOrder is one vendor's consolidated order for a run.
type PurchaseOrder struct {
	ID                   uuid.UUID       `json:"id" db:"id"`
	PONumber             string          `json:"po_number" db:"po_number"`
	RunID                uuid.UUID       `json:"run_id" db:"run_id"`
	VendorID             string          `json:"vendor_id" db:"vendor_id"`
	LineItems            []LineItem      `json:"line_items" db:"-"`
	Subtotal             decimal.Decimal `json:"subtotal" db:"subtotal"`
	TaxRate              decimal.Decimal `json:"tax_rate" db:"tax_rate"`
	EstimatedTax         decimal.Decimal `json:"estimated_tax" db:"estimated_tax"`
	Total                decimal.Decimal `json:"total" db:"total"`
	Status               POStatus        `json:"status" db:"status"`
	RequiresApproval     bool            `json:"requires_approval" db:"requires_approval"`
	ApprovalReasons      []string        `json:"approval_reasons,omitempty" db:"-"`
	ExpectedDeliveryDate time.Time       `json:"expected_delivery_date" db:"expected_delivery_date"`
	CreatedAt            time.Time       `json:"created_at" db:"created_at"`
	SubmittedAt          *time.Time      `json:"submitted_at,omitempty" db:"submitted_at"`
	ApprovedAt           *time.Time      `json:"approved_at,omitempty" db:"approved_at"`
	ApprovedBy           string          `json:"approved_by,omitempty" db:"approved_by"`
	RejectedAt           *time.Time      `json:"rejected_at,omitempty" db:"rejected_at"`
	RejectedBy           string          `json:"rejected_by,omitempty" db:"rejected_by"`
	RejectionReason      string          `json:"rejection_reason,omitempty" db:"rejection_reason"`
	SentAt               *time.Time      `json:"sent_at,omitempty" db:"sent_at"`
	ReceivedAt           *time.Time      `json:"received_at,omitempty" db:"received_at"`
}

// Vendor is the directory entry the engine needs for numbering and validation.
type Vendor struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	// Seq is the vendor's short numeric code rendered as VEN{Seq:03d}.
	Seq int `json:"seq" db:"seq"`
}

// VendorReliability is only ever mutated by the reliability tracker. The score
// is derived from the counters on read and is never stored.
type VendorReliability struct {
	VendorID            string  `json:"vendor_id" db:"vendor_id"`
	TotalOrders         int     `json:"total_orders" db:"total_orders"`
	OnTimeDeliveries    int     `json:"on_time_deliveries" db:"on_time_deliveries"`
	LeadTimeDaysSum     float64 `json:"-" db:"lead_time_days_sum"`
	ReliabilityScore    float64 `json:"reliability_score" db:"-"`
	AverageLeadTimeDays float64 `json:"average_lead_time_days" db:"-"`
}

// Recompute derives the score and running mean lead time from the counters.
func (v *VendorReliability) Recompute() {
	if v.TotalOrders <= 0 {
		v.ReliabilityScore = 0
		v.AverageLeadTimeDays = 0
		return
	}
	v.ReliabilityScore = float64(v.OnTimeDeliveries) / float64(v.TotalOrders) * 100
	v.AverageLeadTimeDays = v.LeadTimeDaysSum / float64(v.TotalOrders)
}

// DeliveryReceipt is what receipt confirmation hands to the tracker.
type DeliveryReceipt struct {
	VendorID     string
	OrderDate    time.Time
	ExpectedDate time.Time
	ActualDate   time.Time
}

// RunStatus mirrors the pipeline run states.
type RunStatus string

const (
	RunPending    RunStatus = "pending"
	RunProcessing RunStatus = "processing"
	RunCompleted  RunStatus = "completed"
	RunFailed     RunStatus = "failed"
)

// RunRecord tracks one forecast → alert → PO run.
type RunRecord struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Status       RunStatus  `json:"status" db:"status"`
	SKUCount     int        `json:"sku_count" db:"sku_count"`
	AlertCount   int        `json:"alert_count" db:"alert_count"`
	POCount      int        `json:"po_count" db:"po_count"`
	FailureCount int        `json:"failure_count" db:"failure_count"`
	StartedAt    time.Time  `json:"started_at" db:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	ErrorMessage string     `json:"error_message,omitempty" db:"error_message"`
}
