// Package cache memoizes analysis results for identical requests.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/zsiec/vidqa/internal/config"
	"github.com/zsiec/vidqa/internal/metrics"
)

// Cache stores JSON-encodable results by key.
type Cache interface {
	// Get decodes the cached value for key into dst and reports whether
	// it was found.
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	// Key derives the cache key for one operation's request.
	Key(operation string, request any) (string, error)
}

// Key returns prefix + operation + ":" + the SHA-256 of the request's
// canonical JSON. Object keys are sorted, so field order does not matter.
func Key(prefix, operation string, request any) (string, error) {
	canonical, err := canonicalJSON(request)
	if err != nil {
		return "", fmt.Errorf("failed to encode cache key: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return prefix + operation + ":" + hex.EncodeToString(sum[:]), nil
}

// canonicalJSON round-trips through a generic value so that map keys come
// out sorted and numbers in one form.
func canonicalJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}

// RedisCache stores results as JSON strings with a TTL.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger *logrus.Logger
}

// NewClient creates a Redis client from the redis configuration.
func NewClient(cfg *config.RedisConfig) redis.UniversalClient {
	return redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        cfg.Addresses,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})
}

// NewRedisCache creates a Redis-backed cache.
func NewRedisCache(client redis.UniversalClient, cfg *config.CacheConfig, logger *logrus.Logger) *RedisCache {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisCache{
		client: client,
		prefix: cfg.Prefix,
		ttl:    ttl,
		logger: logger,
	}
}

// Key implements Cache.
func (c *RedisCache) Key(operation string, request any) (string, error) {
	return Key(c.prefix, operation, request)
}

// Get implements Cache. Undecodable entries are treated as misses and
// removed.
func (c *RedisCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		metrics.IncrementCacheError("get")
		return false, fmt.Errorf("failed to get cached result: %w", err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Discarding undecodable cache entry")
		c.client.Del(ctx, key)
		return false, nil
	}
	return true, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		metrics.IncrementCacheError("set")
		return fmt.Errorf("failed to cache result: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"key": key,
		"ttl": c.ttl,
	}).Debug("Cached result")
	return nil
}

// NoopCache never stores anything.
type NoopCache struct{}

// Get implements Cache.
func (NoopCache) Get(context.Context, string, any) (bool, error) { return false, nil }

// Set implements Cache.
func (NoopCache) Set(context.Context, string, any) error { return nil }

// Key implements Cache.
func (NoopCache) Key(operation string, request any) (string, error) {
	return Key("", operation, request)
}
