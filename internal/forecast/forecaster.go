package forecast

import (
	"math"
	"sort"
	"time"

	"github.com/andresuchdata/replenish/internal/config"
	"github.com/andresuchdata/replenish/internal/domain"
)

// Forecaster turns a daily sales series into a trend-classified forecast.
// It holds no mutable state and may be shared across workers.
type Forecaster struct {
	trendEpsilonRatio float64
	highConfidenceCV  float64
	lowConfidenceCV   float64
	horizonDays       int
	now               func() time.Time
}

// NewForecaster builds a forecaster from the engine thresholds.
func NewForecaster(cfg config.EngineConfig) *Forecaster {
	cfg = cfg.WithDefaults()
	return &Forecaster{
		trendEpsilonRatio: cfg.TrendEpsilonRatio,
		highConfidenceCV:  cfg.HighConfidenceCV,
		lowConfidenceCV:   cfg.LowConfidenceCV,
		horizonDays:       cfg.ForecastHorizonDays,
		now:               time.Now,
	}
}

// Forecast fits an OLS line over the series index and projects it over the
// horizon. Fewer than two observations degrade to a low confidence, stable
// forecast of the single observed value (or zero).
func (f *Forecaster) Forecast(sku string, history []domain.SalesRecord) (domain.DemandForecast, error) {
	for _, rec := range history {
		if rec.QuantitySold < 0 || math.IsNaN(rec.QuantitySold) {
			return domain.DemandForecast{}, domain.NewInvalidInput("quantity_sold", rec.QuantitySold, "must be non-negative")
		}
	}

	sorted := make([]domain.SalesRecord, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	values := make([]float64, len(sorted))
	for i, rec := range sorted {
		values[i] = rec.QuantitySold
	}

	out := domain.DemandForecast{
		SKU:         sku,
		GeneratedAt: f.now().UTC(),
	}

	if len(values) < 2 {
		daily := 0.0
		if len(values) == 1 {
			daily = values[0]
		}
		out.DailyForecast = daily
		out.Forecast30d = daily * float64(f.horizonDays)
		out.Trend = domain.TrendStable
		out.Confidence = domain.ConfidenceLow
		out.Analysis = domain.ForecastAnalysis{
			Observations:   len(values),
			HistoricalMean: daily,
			MaxDaily:       daily,
			Intercept:      daily,
		}
		return out, nil
	}

	mean, maxDaily := meanAndMax(values)
	slope, intercept := linearFit(values, mean)
	cv := coefficientOfVariation(values, mean)

	n := len(values)
	total := 0.0
	for i := 0; i < f.horizonDays; i++ {
		total += intercept + slope*float64(n+i)
	}
	total = math.Max(0, total)

	out.Forecast30d = total
	out.DailyForecast = total / float64(f.horizonDays)
	out.Trend = f.classifyTrend(slope, mean)
	out.Confidence = f.classifyConfidence(cv)
	out.Analysis = domain.ForecastAnalysis{
		Observations:   n,
		HistoricalMean: mean,
		MaxDaily:       maxDaily,
		Slope:          slope,
		Intercept:      intercept,
		Variability:    cv,
	}

	return out, nil
}

func (f *Forecaster) classifyTrend(slope, mean float64) domain.Trend {
	threshold := math.Abs(mean) * f.trendEpsilonRatio
	switch {
	case slope > threshold:
		return domain.TrendGrowing
	case slope < -threshold:
		return domain.TrendDeclining
	default:
		return domain.TrendStable
	}
}

func (f *Forecaster) classifyConfidence(cv float64) domain.Confidence {
	switch {
	case cv < f.highConfidenceCV:
		return domain.ConfidenceHigh
	case cv > f.lowConfidenceCV:
		return domain.ConfidenceLow
	default:
		return domain.ConfidenceMedium
	}
}

func meanAndMax(values []float64) (float64, float64) {
	sum, hi := 0.0, 0.0
	for _, v := range values {
		sum += v
		if v > hi {
			hi = v
		}
	}
	return sum / float64(len(values)), hi
}

// linearFit regresses values on their index 0..n-1.
func linearFit(values []float64, yMean float64) (slope, intercept float64) {
	n := float64(len(values))
	xMean := (n - 1) / 2

	var num, den float64
	for i, y := range values {
		dx := float64(i) - xMean
		num += dx * (y - yMean)
		den += dx * dx
	}
	if den == 0 {
		return 0, yMean
	}

	slope = num / den
	return slope, yMean - slope*xMean
}

// coefficientOfVariation uses the population standard deviation. A constant
// series, including all zeros, returns 0.
func coefficientOfVariation(values []float64, mean float64) float64 {
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	stdev := math.Sqrt(sq / float64(len(values)))
	if stdev == 0 || mean == 0 {
		return 0
	}
	return stdev / mean
}
