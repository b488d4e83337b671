package clients

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// ContentCache is the interface the loader's caching content provider uses
// to avoid re-fetching the same locator twice. The implementation resolver's
// library-manifest cache does not use it; it talks to common/redis directly.
type ContentCache interface {
	Get(ctx context.Context, ref string) (interface{}, error)
	Put(ctx context.Context, data []byte, mediaType string) (string, error)
	Store(ctx context.Context, data interface{}) (string, error)

	// GetByLocator/PutByLocator cache by the locator bytes were fetched
	// from, rather than by content hash — what the loader's content
	// provider needs, since it must avoid the origin fetch entirely on a
	// cache hit (a hash is only known after fetching).
	GetByLocator(ctx context.Context, locator string) ([]byte, bool, error)
	PutByLocator(ctx context.Context, locator string, data []byte, ttl time.Duration) error
}

// NewContentCache creates a Redis-backed content cache. NO in-process
// caching layer — always queries Redis for fresh data.
func NewContentCache(redis *redis.Client, logger Logger) (ContentCache, error) {
	logger.Info("using redis content cache", "transport", "standard")
	return NewRedisContentCache(redis, logger), nil
}
