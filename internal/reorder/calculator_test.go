package reorder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/seasonality"
)

func newTestCalculator() *Calculator {
	return NewCalculator(seasonality.NewModel())
}

func month(m int) *int {
	return &m
}

func TestCalculate_ClassicSafetyStock(t *testing.T) {
	res, err := newTestCalculator().Calculate(domain.ReorderPointInput{
		SKU:           "SKU-1",
		AvgDailySales: 5,
		LeadTimeDays:  10,
		MaxDailySales: 8,
		MaxLeadDays:   15,
	})
	require.NoError(t, err)

	assert.Equal(t, 50.0, res.LeadTimeDemand)
	assert.Equal(t, 70.0, res.SafetyStock)
	assert.Equal(t, 120.0, res.ReorderPoint)
	assert.Equal(t, 1.0, res.SeasonalityFactor)
}

func TestCalculate_DormantSKU(t *testing.T) {
	for _, lead := range []float64{0, 7, 30, 365} {
		res, err := newTestCalculator().Calculate(domain.ReorderPointInput{
			AvgDailySales: 0,
			LeadTimeDays:  lead,
			MaxDailySales: 3,
			MaxLeadDays:   lead * 2,
		})
		require.NoError(t, err)
		assert.Zero(t, res.ReorderPoint, "lead %v", lead)
		assert.Zero(t, res.SafetyStock)
	}
}

func TestCalculate_SafetyStockClampedAtZero(t *testing.T) {
	res, err := newTestCalculator().Calculate(domain.ReorderPointInput{
		AvgDailySales: 10,
		LeadTimeDays:  10,
		MaxDailySales: 5,
		MaxLeadDays:   5,
	})
	require.NoError(t, err)
	assert.Zero(t, res.SafetyStock)
	assert.Equal(t, 100.0, res.ReorderPoint)
}

func TestCalculate_RejectsNegativeInputs(t *testing.T) {
	inputs := []domain.ReorderPointInput{
		{AvgDailySales: -1, LeadTimeDays: 1, MaxDailySales: 1, MaxLeadDays: 1},
		{AvgDailySales: 1, LeadTimeDays: -1, MaxDailySales: 1, MaxLeadDays: 1},
		{AvgDailySales: 1, LeadTimeDays: 1, MaxDailySales: -1, MaxLeadDays: 1},
		{AvgDailySales: 1, LeadTimeDays: 1, MaxDailySales: 1, MaxLeadDays: -1},
	}
	for _, in := range inputs {
		_, err := newTestCalculator().Calculate(in)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}
}

func TestCalculate_SeasonalAdjustment(t *testing.T) {
	calc := newTestCalculator()
	base := domain.ReorderPointInput{
		AvgDailySales: 10,
		LeadTimeDays:  7,
		MaxDailySales: 15,
		MaxLeadDays:   10,
		Category:      seasonality.Snowboards,
	}

	peak := base
	peak.Month = month(11)
	peakRes, err := calc.Calculate(peak)
	require.NoError(t, err)
	assert.Equal(t, 1.3, peakRes.SeasonalityFactor)
	assert.InDelta(t, 13, peakRes.AdjustedDailySales, 1e-9)
	assert.InDelta(t, 91, peakRes.LeadTimeDemand, 1e-9)
	assert.InDelta(t, 104, peakRes.SafetyStock, 1e-9)
	assert.InDelta(t, 195, peakRes.ReorderPoint, 1e-9)

	neutral := base
	neutral.Month = month(3)
	neutralRes, err := calc.Calculate(neutral)
	require.NoError(t, err)
	assert.InDelta(t, 150, neutralRes.ReorderPoint, 1e-9)

	off := base
	off.Month = month(6)
	offRes, err := calc.Calculate(off)
	require.NoError(t, err)
	assert.Equal(t, 0.7, offRes.SeasonalityFactor)
	assert.InDelta(t, 49, offRes.LeadTimeDemand, 1e-9)
	assert.InDelta(t, 105, offRes.ReorderPoint, 1e-9)

	assert.Greater(t, peakRes.ReorderPoint, neutralRes.ReorderPoint)
	assert.Greater(t, neutralRes.ReorderPoint, offRes.ReorderPoint)

	general := base
	general.Category = seasonality.General
	withCategory, err := calc.Calculate(general)
	require.NoError(t, err)
	general.Category = ""
	without, err := calc.Calculate(general)
	require.NoError(t, err)
	assert.Equal(t, without.ReorderPoint, withCategory.ReorderPoint)
}

func TestCalculate_MonthDefaultsToCurrent(t *testing.T) {
	calc := newTestCalculator()
	calc.now = func() time.Time { return time.Date(2026, time.December, 3, 8, 0, 0, 0, time.UTC) }
	assert.Equal(t, 11, calc.CurrentMonth())

	in := domain.ReorderPointInput{
		AvgDailySales: 10,
		LeadTimeDays:  7,
		MaxDailySales: 15,
		MaxLeadDays:   10,
		Category:      seasonality.Snowboards,
	}
	res, err := calc.Calculate(in)
	require.NoError(t, err)
	assert.Equal(t, 1.3, res.SeasonalityFactor)

	in.Month = month(0)
	res, err = calc.Calculate(in)
	require.NoError(t, err)
	assert.Equal(t, 1.3, res.SeasonalityFactor, "explicit January is peak too")

	in.Month = month(6)
	res, err = calc.Calculate(in)
	require.NoError(t, err)
	assert.Equal(t, 0.7, res.SeasonalityFactor, "an explicit month overrides the clock")
}

func TestCalculate_InvalidMonthWithCategory(t *testing.T) {
	_, err := newTestCalculator().Calculate(domain.ReorderPointInput{
		AvgDailySales: 1, LeadTimeDays: 1, Category: seasonality.Snowboards, Month: month(12),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCalculate_MonotonicInLeadTime(t *testing.T) {
	calc := newTestCalculator()
	for _, m := range []int{0, 3, 6} {
		prev := -1.0
		for lead := 0.0; lead <= 40; lead += 2 {
			res, err := calc.Calculate(domain.ReorderPointInput{
				AvgDailySales: 6,
				LeadTimeDays:  lead,
				MaxDailySales: 9,
				MaxLeadDays:   20,
				Category:      seasonality.Snowboards,
				Month:         month(m),
			})
			require.NoError(t, err)
			assert.GreaterOrEqual(t, res.ReorderPoint, prev, "month %d lead %v", m, lead)
			assert.GreaterOrEqual(t, res.SafetyStock, 0.0)
			prev = res.ReorderPoint
		}
	}
}

func TestClassifyStock(t *testing.T) {
	cases := []struct {
		name  string
		stock float64
		rop   float64
		want  domain.StockStatus
	}{
		{"empty", 0, 120, domain.StatusOutOfStock},
		{"negative", -3, 120, domain.StatusOutOfStock},
		{"below half", 59, 120, domain.StatusUrgentReorder},
		{"at half", 60, 120, domain.StatusLowStock},
		{"below rop", 119, 120, domain.StatusLowStock},
		{"at rop", 120, 120, domain.StatusLowStock},
		{"above rop", 121, 120, domain.StatusInStock},
		{"dormant", 5, 0, domain.StatusInStock},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyStock(tc.stock, tc.rop))
		})
	}
}
