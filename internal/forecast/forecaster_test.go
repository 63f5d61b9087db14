package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/replenish/internal/config"
	"github.com/andresuchdata/replenish/internal/domain"
)

var day0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func series(values ...float64) []domain.SalesRecord {
	out := make([]domain.SalesRecord, len(values))
	for i, v := range values {
		out[i] = domain.SalesRecord{SKU: "SKU-1", Date: day0.AddDate(0, 0, i), QuantitySold: v}
	}
	return out
}

func newTestForecaster() *Forecaster {
	return NewForecaster(config.DefaultEngineConfig())
}

func TestForecast_InsufficientData(t *testing.T) {
	f := newTestForecaster()

	empty, err := f.Forecast("SKU-1", nil)
	require.NoError(t, err)
	assert.Zero(t, empty.DailyForecast)
	assert.Equal(t, domain.ConfidenceLow, empty.Confidence)
	assert.Equal(t, domain.TrendStable, empty.Trend)

	single, err := f.Forecast("SKU-1", series(9))
	require.NoError(t, err)
	assert.Equal(t, 9.0, single.DailyForecast)
	assert.Equal(t, domain.ConfidenceLow, single.Confidence)
	assert.Equal(t, domain.TrendStable, single.Trend)
}

func TestForecast_SteadySeriesIsHighConfidenceStable(t *testing.T) {
	values := make([]float64, 60)
	pattern := []float64{5, 6, 7, 6}
	for i := range values {
		values[i] = pattern[i%len(pattern)]
	}

	fc, err := newTestForecaster().Forecast("SKU-1", series(values...))
	require.NoError(t, err)

	assert.Equal(t, domain.ConfidenceHigh, fc.Confidence)
	assert.Equal(t, domain.TrendStable, fc.Trend)
	assert.InDelta(t, 6, fc.DailyForecast, 0.2)
	assert.InDelta(t, fc.Forecast30d/30, fc.DailyForecast, 1e-9)
	assert.Equal(t, 60, fc.Analysis.Observations)
	assert.Equal(t, 7.0, fc.Analysis.MaxDaily)
}

func TestForecast_ConstantSeriesIsHighConfidence(t *testing.T) {
	fc, err := newTestForecaster().Forecast("SKU-1", series(4, 4, 4, 4, 4))
	require.NoError(t, err)
	assert.Equal(t, domain.ConfidenceHigh, fc.Confidence)
	assert.Equal(t, domain.TrendStable, fc.Trend)
	assert.InDelta(t, 4, fc.DailyForecast, 1e-9)
	assert.InDelta(t, 120, fc.Forecast30d, 1e-9)
}

func TestForecast_AllZeroSeries(t *testing.T) {
	fc, err := newTestForecaster().Forecast("SKU-1", series(0, 0, 0))
	require.NoError(t, err)
	assert.Zero(t, fc.DailyForecast)
	assert.Equal(t, domain.ConfidenceHigh, fc.Confidence)
}

func TestForecast_TrendClassification(t *testing.T) {
	f := newTestForecaster()

	growing, err := f.Forecast("SKU-1", series(1, 2, 3, 4, 5, 6, 7, 8, 9, 10))
	require.NoError(t, err)
	assert.Equal(t, domain.TrendGrowing, growing.Trend)
	assert.InDelta(t, 1.0, growing.Analysis.Slope, 1e-9)

	declining, err := f.Forecast("SKU-1", series(10, 9, 8, 7, 6, 5, 4, 3, 2, 1))
	require.NoError(t, err)
	assert.Equal(t, domain.TrendDeclining, declining.Trend)
}

func TestForecast_TrendEpsilonScalesWithMagnitude(t *testing.T) {
	values := make([]float64, 30)
	for i := range values {
		values[i] = 1000 + 0.01*float64(i)
	}

	fc, err := newTestForecaster().Forecast("SKU-1", series(values...))
	require.NoError(t, err)
	assert.Equal(t, domain.TrendStable, fc.Trend)
}

func TestForecast_ClipsNegativeProjection(t *testing.T) {
	fc, err := newTestForecaster().Forecast("SKU-1", series(50, 40, 30, 20, 10, 0))
	require.NoError(t, err)
	assert.Zero(t, fc.Forecast30d)
	assert.Zero(t, fc.DailyForecast)
	assert.Equal(t, domain.TrendDeclining, fc.Trend)
}

func TestForecast_NoisySeriesIsLowConfidence(t *testing.T) {
	fc, err := newTestForecaster().Forecast("SKU-1", series(1, 20, 2, 18, 0, 25, 3, 19))
	require.NoError(t, err)
	assert.Equal(t, domain.ConfidenceLow, fc.Confidence)
}

func TestForecast_SortsByDate(t *testing.T) {
	history := series(1, 2, 3, 4, 5, 6)
	reversed := make([]domain.SalesRecord, len(history))
	for i := range history {
		reversed[len(history)-1-i] = history[i]
	}

	f := newTestForecaster()
	a, err := f.Forecast("SKU-1", history)
	require.NoError(t, err)
	b, err := f.Forecast("SKU-1", reversed)
	require.NoError(t, err)
	assert.Equal(t, a.Trend, b.Trend)
	assert.InDelta(t, a.Forecast30d, b.Forecast30d, 1e-9)
}

func TestForecast_RejectsNegativeQuantity(t *testing.T) {
	_, err := newTestForecaster().Forecast("SKU-1", series(3, -1, 4))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
