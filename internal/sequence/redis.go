package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counters outlive their day so late retries still see the last value.
const redisKeyTTL = 48 * time.Hour

// RedisAllocator uses INCR, which is atomic across processes.
type RedisAllocator struct {
	client redis.Cmdable
}

func NewRedisAllocator(client redis.Cmdable) *RedisAllocator {
	return &RedisAllocator{client: client}
}

func (r *RedisAllocator) Next(ctx context.Context, vendorID string, day time.Time) (int, error) {
	key := Key(vendorID, day)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, redisKeyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis incr %s: %w", key, err)
	}

	return int(incr.Val()), nil
}
