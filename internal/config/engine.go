package config

import (
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// EngineConfig holds every classification threshold the replenishment loop
// uses. Zero values are never valid; use DefaultEngineConfig as the base.
type EngineConfig struct {
	// Forecasting
	TrendEpsilonRatio   float64 // slope must exceed this fraction of mean demand to count as a trend
	HighConfidenceCV    float64 // CV below this is high confidence
	LowConfidenceCV     float64 // CV above this is low confidence
	ForecastHorizonDays int
	HistoryDays         int

	// Alerting
	CoverEpsilon        float64 // floor for the demand divisor in days-of-cover
	CriticalCoverRatio  float64 // × lead time
	HighCoverRatio      float64
	MediumCoverRatio    float64
	TargetWeeksOfSupply float64
	EOQSetupCost        float64
	EOQHoldingRate      float64

	// Purchasing
	DefaultTaxRate         decimal.Decimal
	ApprovalTotalThreshold decimal.Decimal // PO total >= this needs approval
	CriticalLineThreshold  decimal.Decimal // critical line total > this needs approval

	// Vendor reliability
	MaxEarlyDeliveryDays     int
	MinOrdersForLeadTime     int
	UnreliableScoreThreshold float64
	UnreliableLeadPadding    float64

	WorkerCount int
}

// DefaultEngineConfig returns the thresholds the engine ships with.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		TrendEpsilonRatio:   0.05,
		HighConfidenceCV:    0.15,
		LowConfidenceCV:     0.30,
		ForecastHorizonDays: 30,
		HistoryDays:         90,

		CoverEpsilon:        0.0001,
		CriticalCoverRatio:  0.5,
		HighCoverRatio:      1.0,
		MediumCoverRatio:    2.0,
		TargetWeeksOfSupply: 4,
		EOQSetupCost:        50,
		EOQHoldingRate:      0.25,

		DefaultTaxRate:         decimal.RequireFromString("0.08"),
		ApprovalTotalThreshold: decimal.NewFromInt(1000),
		CriticalLineThreshold:  decimal.NewFromInt(500),

		MaxEarlyDeliveryDays:     30,
		MinOrdersForLeadTime:     1,
		UnreliableScoreThreshold: 80,
		UnreliableLeadPadding:    1.25,

		WorkerCount: 4,
	}
}

func engineFromViper(v *viper.Viper) EngineConfig {
	def := DefaultEngineConfig()
	cfg := EngineConfig{
		TrendEpsilonRatio:   v.GetFloat64("ENGINE_TREND_EPSILON_RATIO"),
		HighConfidenceCV:    v.GetFloat64("ENGINE_HIGH_CONFIDENCE_CV"),
		LowConfidenceCV:     v.GetFloat64("ENGINE_LOW_CONFIDENCE_CV"),
		ForecastHorizonDays: v.GetInt("ENGINE_FORECAST_HORIZON_DAYS"),
		HistoryDays:         v.GetInt("ENGINE_HISTORY_DAYS"),

		CoverEpsilon:        v.GetFloat64("ENGINE_COVER_EPSILON"),
		CriticalCoverRatio:  v.GetFloat64("ENGINE_CRITICAL_COVER_RATIO"),
		HighCoverRatio:      v.GetFloat64("ENGINE_HIGH_COVER_RATIO"),
		MediumCoverRatio:    v.GetFloat64("ENGINE_MEDIUM_COVER_RATIO"),
		TargetWeeksOfSupply: v.GetFloat64("ENGINE_TARGET_WEEKS_OF_SUPPLY"),
		EOQSetupCost:        v.GetFloat64("ENGINE_EOQ_SETUP_COST"),
		EOQHoldingRate:      v.GetFloat64("ENGINE_EOQ_HOLDING_RATE"),

		DefaultTaxRate:         decimalOr(v.GetString("ENGINE_DEFAULT_TAX_RATE"), def.DefaultTaxRate),
		ApprovalTotalThreshold: decimalOr(v.GetString("ENGINE_APPROVAL_TOTAL_THRESHOLD"), def.ApprovalTotalThreshold),
		CriticalLineThreshold:  decimalOr(v.GetString("ENGINE_CRITICAL_LINE_THRESHOLD"), def.CriticalLineThreshold),

		MaxEarlyDeliveryDays:     v.GetInt("ENGINE_MAX_EARLY_DELIVERY_DAYS"),
		MinOrdersForLeadTime:     v.GetInt("ENGINE_MIN_ORDERS_FOR_LEAD_TIME"),
		UnreliableScoreThreshold: v.GetFloat64("ENGINE_UNRELIABLE_SCORE_THRESHOLD"),
		UnreliableLeadPadding:    v.GetFloat64("ENGINE_UNRELIABLE_LEAD_PADDING"),

		WorkerCount: v.GetInt("ENGINE_WORKER_COUNT"),
	}

	return cfg.WithDefaults()
}

// WithDefaults fills any non-positive field from DefaultEngineConfig.
func (c EngineConfig) WithDefaults() EngineConfig {
	def := DefaultEngineConfig()
	floatOr(&c.TrendEpsilonRatio, def.TrendEpsilonRatio)
	floatOr(&c.HighConfidenceCV, def.HighConfidenceCV)
	floatOr(&c.LowConfidenceCV, def.LowConfidenceCV)
	intOr(&c.ForecastHorizonDays, def.ForecastHorizonDays)
	intOr(&c.HistoryDays, def.HistoryDays)
	floatOr(&c.CoverEpsilon, def.CoverEpsilon)
	floatOr(&c.CriticalCoverRatio, def.CriticalCoverRatio)
	floatOr(&c.HighCoverRatio, def.HighCoverRatio)
	floatOr(&c.MediumCoverRatio, def.MediumCoverRatio)
	floatOr(&c.TargetWeeksOfSupply, def.TargetWeeksOfSupply)
	floatOr(&c.EOQSetupCost, def.EOQSetupCost)
	floatOr(&c.EOQHoldingRate, def.EOQHoldingRate)
	if !c.DefaultTaxRate.IsPositive() {
		c.DefaultTaxRate = def.DefaultTaxRate
	}
	if !c.ApprovalTotalThreshold.IsPositive() {
		c.ApprovalTotalThreshold = def.ApprovalTotalThreshold
	}
	if !c.CriticalLineThreshold.IsPositive() {
		c.CriticalLineThreshold = def.CriticalLineThreshold
	}
	intOr(&c.MaxEarlyDeliveryDays, def.MaxEarlyDeliveryDays)
	intOr(&c.MinOrdersForLeadTime, def.MinOrdersForLeadTime)
	floatOr(&c.UnreliableScoreThreshold, def.UnreliableScoreThreshold)
	floatOr(&c.UnreliableLeadPadding, def.UnreliableLeadPadding)
	intOr(&c.WorkerCount, def.WorkerCount)
	return c
}

func decimalOr(raw string, fallback decimal.Decimal) decimal.Decimal {
	if raw == "" {
		return fallback
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		log.Warn().Str("value", raw).Err(err).Msg("invalid decimal in engine config, using default")
		return fallback
	}
	return d
}

func floatOr(v *float64, fallback float64) {
	if *v <= 0 {
		*v = fallback
	}
}

func intOr(v *int, fallback int) {
	if *v <= 0 {
		*v = fallback
	}
}
