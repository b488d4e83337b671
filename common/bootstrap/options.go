package bootstrap

import (
	"github.com/flowforge/flowcore/common/config"
	"github.com/flowforge/flowcore/common/db"
	"github.com/flowforge/flowcore/common/logger"
)

// Option customizes Setup.
type Option func(*options)

type options struct {
	skipDB        bool
	skipEvents    bool
	skipCache     bool
	skipTelemetry bool
	customLogger  *logger.Logger
	customConfig  *config.Config
	dbInitHook    func(*db.DB) error
}

func defaultOptions() *options {
	return &options{}
}

// WithoutDB skips the submission audit database connection, for callers
// that never record runs.
func WithoutDB() Option {
	return func(o *options) { o.skipDB = true }
}

// WithoutEvents skips the in-process event bus.
func WithoutEvents() Option {
	return func(o *options) { o.skipEvents = true }
}

// WithoutCache skips the content/library cache.
func WithoutCache() Option {
	return func(o *options) { o.skipCache = true }
}

// WithoutTelemetry skips pprof/metrics startup.
func WithoutTelemetry() Option {
	return func(o *options) { o.skipTelemetry = true }
}

// WithCustomLogger injects a pre-built logger instead of constructing one
// from configuration, useful in tests.
func WithCustomLogger(log *logger.Logger) Option {
	return func(o *options) { o.customLogger = log }
}

// WithCustomConfig injects a pre-built configuration.
func WithCustomConfig(cfg *config.Config) Option {
	return func(o *options) { o.customConfig = cfg }
}

// WithDBInitHook runs fn against the freshly opened database, e.g. to apply
// the submission_audit/run_event schema.
func WithDBInitHook(fn func(*db.DB) error) Option {
	return func(o *options) { o.dbInitHook = fn }
}
