package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/replenish/internal/config"
	"github.com/andresuchdata/replenish/internal/domain"
)

const forecastKeyPrefix = "forecast"

// ForecastCache stores forecasts keyed by SKU, a fingerprint of the exact
// sales history they were derived from and a hash of the forecaster
// thresholds. A changed ledger or config never serves a stale forecast.
type ForecastCache interface {
	GetForecast(ctx context.Context, sku string, history []domain.SalesRecord) (domain.DemandForecast, bool, error)
	SetForecast(ctx context.Context, sku string, history []domain.SalesRecord, fc domain.DemandForecast) error
	InvalidateAll(ctx context.Context) error
}

type redisForecastCache struct {
	client redis.Cmdable
	ttl    time.Duration
	params string
}

type noopForecastCache struct{}

// NewForecastCache wraps an existing client. A nil client yields a no-op cache.
// engine supplies the forecaster thresholds folded into every key.
func NewForecastCache(client redis.Cmdable, ttl time.Duration, engine config.EngineConfig) ForecastCache {
	if client == nil {
		return &noopForecastCache{}
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &redisForecastCache{client: client, ttl: ttl, params: paramsFingerprint(engine)}
}

func NewNoopForecastCache() ForecastCache {
	return &noopForecastCache{}
}

func (c *redisForecastCache) GetForecast(ctx context.Context, sku string, history []domain.SalesRecord) (domain.DemandForecast, bool, error) {
	key := buildForecastKey(c.params, sku, history)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return domain.DemandForecast{}, false, nil
	}
	if err != nil {
		return domain.DemandForecast{}, false, fmt.Errorf("redis get failed: %w", err)
	}

	var fc domain.DemandForecast
	if err := json.Unmarshal(payload, &fc); err != nil {
		return domain.DemandForecast{}, false, fmt.Errorf("decode forecast cache: %w", err)
	}
	return fc, true, nil
}

func (c *redisForecastCache) SetForecast(ctx context.Context, sku string, history []domain.SalesRecord, fc domain.DemandForecast) error {
	payload, err := json.Marshal(fc)
	if err != nil {
		return fmt.Errorf("encode forecast cache: %w", err)
	}

	if err := c.client.Set(ctx, buildForecastKey(c.params, sku, history), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisForecastCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, forecastKeyPrefix+":", scanBatchSize)
}

func (n *noopForecastCache) GetForecast(context.Context, string, []domain.SalesRecord) (domain.DemandForecast, bool, error) {
	return domain.DemandForecast{}, false, nil
}

func (n *noopForecastCache) SetForecast(context.Context, string, []domain.SalesRecord, domain.DemandForecast) error {
	return nil
}

func (n *noopForecastCache) InvalidateAll(context.Context) error {
	return nil
}

func buildForecastKey(params, sku string, history []domain.SalesRecord) string {
	return fmt.Sprintf("%s:%s:%s:%s", forecastKeyPrefix, params, strings.ToLower(strings.TrimSpace(sku)), historyFingerprint(history))
}

// paramsFingerprint hashes the settings that change a forecast's output.
func paramsFingerprint(cfg config.EngineConfig) string {
	cfg = cfg.WithDefaults()
	raw := fmt.Sprintf("trend=%s|high_cv=%s|low_cv=%s|horizon=%d",
		strconv.FormatFloat(cfg.TrendEpsilonRatio, 'f', -1, 64),
		strconv.FormatFloat(cfg.HighConfidenceCV, 'f', -1, 64),
		strconv.FormatFloat(cfg.LowConfidenceCV, 'f', -1, 64),
		cfg.ForecastHorizonDays,
	)
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:4])
}

func historyFingerprint(history []domain.SalesRecord) string {
	if len(history) == 0 {
		return "empty"
	}

	var b strings.Builder
	for _, r := range history {
		b.WriteString(r.Date.UTC().Format("20060102"))
		b.WriteByte('=')
		b.WriteString(strconv.FormatFloat(r.QuantitySold, 'f', -1, 64))
		b.WriteByte('|')
	}
	sum := sha1.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
