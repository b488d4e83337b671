package clients

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	redisWrapper "github.com/flowforge/flowcore/common/redis"
	"github.com/redis/go-redis/v9"
)

// RedisContentCache stores fetched definition bytes and resolved library
// handles in Redis, keyed by content hash. Always queries Redis for fresh
// data — no in-process caching layered on top.
type RedisContentCache struct {
	redis  *redisWrapper.Client
	logger Logger
}

// NewRedisContentCache creates a Redis-backed content cache.
func NewRedisContentCache(redis *redis.Client, logger Logger) *RedisContentCache {
	return &RedisContentCache{
		redis:  redisWrapper.NewClient(redis, logger),
		logger: logger,
	}
}

// Put stores data in Redis and returns its content hash.
func (c *RedisContentCache) Put(ctx context.Context, data []byte, contentType string) (string, error) {
	hash := fmt.Sprintf("sha256:%x", sha256.Sum256(data))
	cacheKey := fmt.Sprintf("content:%s", hash)

	if err := c.redis.SetWithExpiry(ctx, cacheKey, string(data), 0); err != nil {
		c.logger.Error("failed to store content", "hash", hash, "error", err)
		return "", fmt.Errorf("failed to store content: %w", err)
	}

	c.logger.Debug("cached content", "hash", hash, "size", len(data))
	return hash, nil
}

// Get retrieves data from Redis by content hash.
func (c *RedisContentCache) Get(ctx context.Context, hash string) (interface{}, error) {
	cacheKey := fmt.Sprintf("content:%s", hash)

	data, err := c.redis.Get(ctx, cacheKey)
	if err != nil {
		c.logger.Warn("content cache miss", "hash", hash)
		return nil, fmt.Errorf("content not cached: %s", hash)
	}

	c.logger.Debug("content cache hit", "hash", hash, "size", len(data))
	return []byte(data), nil
}

// GetByLocator retrieves content cached under the locator it was fetched
// from, for the loader's content provider (component B) — a cache hit here
// must avoid the origin fetch entirely, so it can't key by content hash.
func (c *RedisContentCache) GetByLocator(ctx context.Context, locator string) ([]byte, bool, error) {
	cacheKey := fmt.Sprintf("locator:%s", locator)
	data, err := c.redis.Get(ctx, cacheKey)
	if err != nil {
		return nil, false, nil
	}
	c.logger.Debug("locator cache hit", "locator", locator, "size", len(data))
	return []byte(data), true, nil
}

// PutByLocator caches content under the locator it was fetched from, with
// the given TTL (0 means no expiration).
func (c *RedisContentCache) PutByLocator(ctx context.Context, locator string, data []byte, ttl time.Duration) error {
	cacheKey := fmt.Sprintf("locator:%s", locator)
	if err := c.redis.SetWithExpiry(ctx, cacheKey, string(data), ttl); err != nil {
		return fmt.Errorf("failed to cache locator %s: %w", locator, err)
	}
	c.logger.Debug("cached locator", "locator", locator, "size", len(data))
	return nil
}

// Store marshals data to JSON and caches it.
func (c *RedisContentCache) Store(ctx context.Context, data interface{}) (string, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal data: %w", err)
	}
	return c.Put(ctx, jsonData, "application/json")
}
