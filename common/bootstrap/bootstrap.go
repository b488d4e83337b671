package bootstrap

import (
	"context"
	"fmt"

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

// Setup initializes all service components.
// This is the entry point `flowr serve` uses; flowc does not call it.
func Setup(ctx context.Context, serviceName string, opts ...Option) (*Components, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	components := &Components{
		cleanupFuncs: make([]func() error, 0),
	}

	// 1. Load configuration
	var err error
	if options.customConfig != nil {
		components.Config = options.customConfig
	} else {
		components.Config, err = config.Load(serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	// 2. Initialize logger
	if options.customLogger != nil {
		components.Logger = options.customLogger
	} else {
		components.Logger = logger.New(
			components.Config.Service.LogLevel,
			components.Config.Service.LogFormat,
		)
	}

	components.Logger.Info("initializing service",
		"service", serviceName,
		"environment", components.Config.Service.Environment,
	)

	// 3. Initialize the submission audit database (if not skipped)
	if !options.skipDB {
		components.Logger.Info("connecting to submission audit database")
		components.DB, err = db.New(ctx, components.Config, components.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		components.addCleanup(func() error {
			components.Logger.Info("closing database connection")
			components.DB.Close()
			return nil
		})

		if options.dbInitHook != nil {
			components.Logger.Info("running database init hook")
			if err := options.dbInitHook(components.DB); err != nil {
				components.Shutdown(ctx)
				return nil, fmt.Errorf("database init hook failed: %w", err)
			}
		}
	}

	// 4. Initialize the submission event bus (if not skipped)
	if !options.skipEvents {
		components.Logger.Info("initializing event bus")
		components.Events = events.NewMemoryBus(components.Logger)

		components.addCleanup(func() error {
			components.Logger.Info("closing event bus")
			return components.Events.Close()
		})
	}

	// 5. Initialize the content/library cache (if not skipped)
	if !options.skipCache && components.Config.Cache.Enabled {
		components.Logger.Info("initializing cache",
			"backend", components.Config.Cache.Backend,
			"size_mb", components.Config.Cache.SizeMB,
		)

		components.Cache = cache.NewMemoryCache(components.Logger)

		components.addCleanup(func() error {
			components.Logger.Info("closing cache")
			return components.Cache.Close()
		})

		// A "redis" cache backend also backs the loader's content cache,
		// the resolver's library-manifest cache, and the submission
		// rate limiter, all three sharing one connection.
		if components.Config.Cache.Backend == "redis" {
			redisClient := goredis.NewClient(&goredis.Options{
				Addr:     components.Config.Redis.Addr(),
				Password: components.Config.Redis.Password,
				DB:       components.Config.Redis.DB,
			})

			if err := redisClient.Ping(ctx).Err(); err != nil {
				return nil, fmt.Errorf("failed to connect to redis: %w", err)
			}

			components.Redis = redisClient
			components.addCleanup(func() error {
				components.Logger.Info("closing redis connection")
				return redisClient.Close()
			})

			contentCache, err := clients.NewContentCache(redisClient, components.Logger)
			if err != nil {
				return nil, fmt.Errorf("failed to build content cache: %w", err)
			}
			components.ContentCache = contentCache
			components.RateLimiter = ratelimit.NewRateLimiter(redisClient, components.Logger)
		}
	}

	// 6. Initialize telemetry (if not skipped)
	if !options.skipTelemetry && components.Config.Telemetry.EnablePprof {
		components.Logger.Info("initializing telemetry")
		components.Telemetry = telemetry.New(
			components.Config.Telemetry.PprofPort,
			components.Config.Telemetry.MetricsPort,
			components.Logger,
		)

		if err := components.Telemetry.Start(ctx); err != nil {
			components.Logger.Warn("failed to start telemetry", "error", err)
		}
	}

	components.Logger.Info("service initialization complete",
		"service", serviceName,
		"db", components.DB != nil,
		"events", components.Events != nil,
		"cache", components.Cache != nil,
		"telemetry", components.Telemetry != nil,
	)

	return components, nil
}

// MustSetup is like Setup but panics on error.
func MustSetup(ctx context.Context, serviceName string, opts ...Option) *Components {
	components, err := Setup(ctx, serviceName, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to setup service %s: %v", serviceName, err))
	}
	return components
}
