package location

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"bloodlink/internal/matching"
)

const keyPrefix = "bloodlink:location:"

// RedisCache memoizes another Resolver in Redis. Cache faults are logged and
// bypassed; they never fail a lookup the delegate can answer. Unknown places
// are not cached.
type RedisCache struct {
	client  redis.Cmdable
	next    Resolver
	ttl     time.Duration
	logger  *slog.Logger
	metrics *Metrics
}

type CacheOption func(*RedisCache)

func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *RedisCache) {
		c.logger = logger
	}
}

func WithCacheMetrics(m *Metrics) CacheOption {
	return func(c *RedisCache) {
		c.metrics = m
	}
}

func NewRedisCache(client redis.Cmdable, next Resolver, ttl time.Duration, opts ...CacheOption) *RedisCache {
	c := &RedisCache{client: client, next: next, ttl: ttl, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisCache) Resolve(ctx context.Context, city, area string) (*matching.Coordinates, error) {
	key := keyPrefix + Key(city, area)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var coords matching.Coordinates
		if jsonErr := json.Unmarshal(raw, &coords); jsonErr == nil {
			c.metrics.cacheLookup("hit")
			return &coords, nil
		}
		c.logger.WarnContext(ctx, "discarding corrupt location cache entry", "key", key)
		c.metrics.cacheLookup("error")
	case errors.Is(err, redis.Nil):
		c.metrics.cacheLookup("miss")
	default:
		c.logger.WarnContext(ctx, "location cache read failed", "error", err, "key", key)
		c.metrics.cacheLookup("error")
	}

	coords, err := c.next.Resolve(ctx, city, area)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(coords)
	if err == nil {
		err = c.client.Set(ctx, key, payload, c.ttl).Err()
	}
	if err != nil {
		c.logger.WarnContext(ctx, "location cache write failed", "error", err, "key", key)
	}
	return coords, nil
}

// Invalidate drops a cached entry, e.g. after the gazetteer changes.
func (c *RedisCache) Invalidate(ctx context.Context, city, area string) error {
	return c.client.Del(ctx, keyPrefix+Key(city, area)).Err()
}
