package reorder

import (
	"math"
	"time"

	"github.com/andresuchdata/replenish/internal/domain"
)

// SeasonalityModel supplies the demand multiplier for a category and month.
type SeasonalityModel interface {
	Factor(category string, month int) (float64, error)
}

// Calculator computes reorder points and safety stock.
type Calculator struct {
	seasonality SeasonalityModel
	now         func() time.Time
}

// NewCalculator creates a reorder point calculator. A nil seasonality model
// disables seasonal adjustment entirely.
func NewCalculator(seasonality SeasonalityModel) *Calculator {
	return &Calculator{
		seasonality: seasonality,
		now:         time.Now,
	}
}

// Calculate computes the reorder point for one SKU.
func (c *Calculator) Calculate(in domain.ReorderPointInput) (domain.ReorderPointResult, error) {
	if err := validate(in); err != nil {
		return domain.ReorderPointResult{}, err
	}

	// 1. Seasonality factor (neutral when no category is given)
	factor := 1.0
	if in.Category != "" && c.seasonality != nil {
		month := c.CurrentMonth()
		if in.Month != nil {
			month = *in.Month
		}
		f, err := c.seasonality.Factor(in.Category, month)
		if err != nil {
			return domain.ReorderPointResult{}, err
		}
		factor = f
	}

	// 2. Lead time demand = Daily Sales × Lead Time × seasonality
	adjustedDaily := in.AvgDailySales * factor
	leadTimeDemand := adjustedDaily * in.LeadTimeDays

	// 3. Safety stock = (Max Daily Sales × seasonality × Max Lead Time) - Lead time demand
	worstCase := in.MaxDailySales * factor * in.MaxLeadDays
	safetyStock := math.Max(0, worstCase-leadTimeDemand)

	// 4. Reorder point = Lead time demand + Safety Stock
	reorderPoint := leadTimeDemand + safetyStock

	// A dormant SKU never triggers a reorder.
	if in.AvgDailySales == 0 {
		reorderPoint = 0
		safetyStock = 0
	}

	return domain.ReorderPointResult{
		SKU:                in.SKU,
		ReorderPoint:       roundFloat(reorderPoint, 4),
		SafetyStock:        roundFloat(safetyStock, 4),
		LeadTimeDemand:     roundFloat(leadTimeDemand, 4),
		SeasonalityFactor:  factor,
		AdjustedDailySales: roundFloat(adjustedDaily, 4),
	}, nil
}

// CurrentMonth is the zero-based month used when the input carries none.
func (c *Calculator) CurrentMonth() int {
	return int(c.now().Month()) - 1
}

// ClassifyStock buckets current stock against the reorder point. Stock equal
// to the reorder point is low_stock; a zero reorder point is only breached
// when the shelf is empty.
func ClassifyStock(currentStock, reorderPoint float64) domain.StockStatus {
	switch {
	case currentStock <= 0:
		return domain.StatusOutOfStock
	case currentStock < reorderPoint*0.5:
		return domain.StatusUrgentReorder
	case reorderPoint > 0 && currentStock <= reorderPoint:
		return domain.StatusLowStock
	default:
		return domain.StatusInStock
	}
}

func validate(in domain.ReorderPointInput) error {
	fields := []struct {
		name  string
		value float64
	}{
		{"avg_daily_sales", in.AvgDailySales},
		{"lead_time_days", in.LeadTimeDays},
		{"max_daily_sales", in.MaxDailySales},
		{"max_lead_days", in.MaxLeadDays},
	}
	for _, f := range fields {
		if f.value < 0 || math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return domain.NewInvalidInput(f.name, f.value, "must be a non-negative number")
		}
	}
	return nil
}

// roundFloat rounds v to the given number of decimal places.
func roundFloat(v float64, decimals int) float64 {
	if decimals <= 0 {
		return math.Round(v)
	}

	factor := math.Pow(10, float64(decimals))
	return math.Round(v*factor) / factor
}
