package bootstrap

import (
	"context"

	goredis "github.com/redis/go-redis/v9"

	"github.com/flowforge/flowcore/common/cache"
	"github.com/flowforge/flowcore/common/clients"
	"github.com/flowforge/flowcore/common/config"
	"github.com/flowforge/flowcore/common/db"
	"github.com/flowforge/flowcore/common/events"
	"github.com/flowforge/flowcore/common/logger"
	"github.com/flowforge/flowcore/common/ratelimit"
	"github.com/flowforge/flowcore/common/telemetry"
)

// Components holds every assembled service dependency.
type Components struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           *db.DB
	Events       *events.MemoryBus
	Cache        cache.Cache
	Redis        *goredis.Client
	ContentCache clients.ContentCache
	RateLimiter  *ratelimit.RateLimiter
	Telemetry    *telemetry.Telemetry

	cleanupFuncs []func() error
}

func (c *Components) addCleanup(fn func() error) {
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
}

// Shutdown runs every registered cleanup function in reverse (LIFO) order,
// collecting the first error encountered while still attempting the rest.
func (c *Components) Shutdown(ctx context.Context) error {
	var firstErr error
	for i := len(c.cleanupFuncs) - 1; i >= 0; i-- {
		if err := c.cleanupFuncs[i](); err != nil {
			if c.Logger != nil {
				c.Logger.Error("cleanup failed", "error", err)
			}
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Health reports whether the database, when initialized, is reachable; no
// other component is checked.
func (c *Components) Health(ctx context.Context) error {
	if c.DB != nil {
		if err := c.DB.Health(ctx); err != nil {
			return err
		}
	}
	return nil
}
