package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultCacheTTL is how long a similarity score stays cached. Cached
// scores only change when weights or models change, and weight
// adjustment invalidates the whole cache, so a generous TTL is safe.
const DefaultCacheTTL = 24 * time.Hour

// keyPrefix namespaces similarity cache entries in Redis
const keyPrefix = "taskparse:sim:"

// Cache stores computed similarity scores keyed by text pair. A miss or
// a backend error both report !ok; similarity computation must never
// fail because the cache is down.
type Cache interface {
	Get(ctx context.Context, a, b string) (float64, bool)
	Set(ctx context.Context, a, b string, score float64)
	// Invalidate drops all cached scores
	Invalidate(ctx context.Context)
}

// RedisCache caches similarity scores in Redis
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisCache creates a Redis-backed similarity cache
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

// cacheKey is order-normalized so (a,b) and (b,a) share an entry
func cacheKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	sum := sha256.Sum256([]byte(a + "\x00" + b))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// Get implements Cache
func (c *RedisCache) Get(ctx context.Context, a, b string) (float64, bool) {
	val, err := c.client.Get(ctx, cacheKey(a, b)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && c.logger != nil {
			c.logger.Warn("similarity cache read failed", zap.Error(err))
		}
		return 0, false
	}
	score, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false
	}
	return score, true
}

// Set implements Cache
func (c *RedisCache) Set(ctx context.Context, a, b string, score float64) {
	err := c.client.Set(ctx, cacheKey(a, b), strconv.FormatFloat(score, 'f', -1, 64), c.ttl).Err()
	if err != nil && c.logger != nil {
		c.logger.Warn("similarity cache write failed", zap.Error(err))
	}
}

// Invalidate implements Cache by scanning and deleting the cache keyspace
func (c *RedisCache) Invalidate(ctx context.Context) {
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == 100 {
			c.client.Del(ctx, keys...)
			keys = keys[:0]
		}
	}
	if len(keys) > 0 {
		c.client.Del(ctx, keys...)
	}
	if err := iter.Err(); err != nil && c.logger != nil {
		c.logger.Warn("similarity cache invalidation failed", zap.Error(err))
	}
}
