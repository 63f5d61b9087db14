package cache

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/replenish/internal/config"
	"github.com/andresuchdata/replenish/internal/domain"
)

var day0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func history(values ...float64) []domain.SalesRecord {
	out := make([]domain.SalesRecord, len(values))
	for i, v := range values {
		out[i] = domain.SalesRecord{SKU: "SKU-1", Date: day0.AddDate(0, 0, i), QuantitySold: v}
	}
	return out
}

func TestBuildForecastKey(t *testing.T) {
	params := paramsFingerprint(config.DefaultEngineConfig())
	a := buildForecastKey(params, " SKU-1 ", history(1, 2, 3))
	b := buildForecastKey(params, "sku-1", history(1, 2, 3))
	c := buildForecastKey(params, "sku-1", history(1, 2, 4))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c, "changed history must change the key")
	assert.True(t, strings.HasPrefix(a, "forecast:"+params+":sku-1:"))
	assert.Equal(t, "forecast:"+params+":sku-1:empty", buildForecastKey(params, "SKU-1", nil))
}

func TestParamsFingerprint(t *testing.T) {
	def := config.DefaultEngineConfig()
	base := paramsFingerprint(def)
	assert.Equal(t, base, paramsFingerprint(config.EngineConfig{}), "zero config resolves to defaults")

	unrelated := def
	unrelated.WorkerCount = 16
	unrelated.CoverEpsilon = 0.5
	assert.Equal(t, base, paramsFingerprint(unrelated))

	for name, mutate := range map[string]func(*config.EngineConfig){
		"trend":   func(c *config.EngineConfig) { c.TrendEpsilonRatio = 0.1 },
		"high_cv": func(c *config.EngineConfig) { c.HighConfidenceCV = 0.2 },
		"low_cv":  func(c *config.EngineConfig) { c.LowConfidenceCV = 0.4 },
		"horizon": func(c *config.EngineConfig) { c.ForecastHorizonDays = 14 },
	} {
		changed := def
		mutate(&changed)
		assert.NotEqual(t, base, paramsFingerprint(changed), name)
	}
}

func TestNoopForecastCache(t *testing.T) {
	c := NewForecastCache(nil, 0, config.DefaultEngineConfig())
	ctx := context.Background()

	require.NoError(t, c.SetForecast(ctx, "SKU-1", nil, domain.DemandForecast{SKU: "SKU-1"}))
	_, ok, err := c.GetForecast(ctx, "SKU-1", nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.InvalidateAll(ctx))
}

func TestBuildRedisOptions(t *testing.T) {
	opts, err := buildRedisOptions(config.CacheConfig{RedisHost: "cache", RedisPort: "6380", RedisDB: 2})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)

	opts, err = buildRedisOptions(config.CacheConfig{RedisURL: "redis://:secret@localhost:6379/3"})
	require.NoError(t, err)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 3, opts.DB)

	_, err = buildRedisOptions(config.CacheConfig{RedisURL: "http://nope"})
	assert.Error(t, err)
}

func TestRedisForecastCache_Integration(t *testing.T) {
	addr := os.Getenv("REPLENISH_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("REPLENISH_TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	c := NewForecastCache(client, time.Minute, config.DefaultEngineConfig())
	h := history(4, 5, 6)

	require.NoError(t, c.SetForecast(ctx, "SKU-1", h, domain.DemandForecast{SKU: "SKU-1", DailyForecast: 5}))
	fc, ok, err := c.GetForecast(ctx, "SKU-1", h)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5.0, fc.DailyForecast)

	tuned := config.DefaultEngineConfig()
	tuned.TrendEpsilonRatio = 0.2
	_, ok, err = NewForecastCache(client, time.Minute, tuned).GetForecast(ctx, "SKU-1", h)
	require.NoError(t, err)
	assert.False(t, ok, "forecasts cached under other thresholds are not served")

	require.NoError(t, c.InvalidateAll(ctx))
	_, ok, err = c.GetForecast(ctx, "SKU-1", h)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestForecastTTL(t *testing.T) {
	assert.Equal(t, time.Hour, ForecastTTL(config.CacheConfig{}))
	assert.Equal(t, 90*time.Second, ForecastTTL(config.CacheConfig{ForecastTTLSeconds: 90}))
}
