package submission

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/flowforge/flowcore/common/ratelimit"
)

// clientIDHeader names the header a submitting client uses to identify
// itself for rate-limiting purposes. A submission carries no user identity
// (spec.md §6), so this is a bare opaque string, not an authenticated subject.
const clientIDHeader = "X-Client-ID"

// RateLimitMiddleware enforces common/ratelimit's global and per-client
// submission budgets ahead of the compile-and-dispatch work in submit().
// limiter may be nil, in which case the middleware is a no-op — rate
// limiting needs a Redis backend that isn't always configured (tests, the
// `flowr run` single-submission path).
func RateLimitMiddleware(limiter *ratelimit.RateLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if limiter == nil {
				return next(c)
			}

			ctx := c.Request().Context()

			global, err := limiter.CheckGlobalLimit(ctx, ratelimit.DefaultGlobalConfig.Limit)
			if err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "rate limit check failed")
			}
			if !global.Allowed {
				return tooManyRequests(c, global.RetryAfterSeconds)
			}

			clientID := c.Request().Header.Get(clientIDHeader)
			if clientID == "" {
				clientID = "anonymous"
			}

			perClient, err := limiter.CheckClientLimit(ctx, clientID, ratelimit.DefaultTierConfigs[ratelimit.TierStandard].Limit, ratelimit.DefaultTierConfigs[ratelimit.TierStandard].WindowSeconds)
			if err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "rate limit check failed")
			}
			if !perClient.Allowed {
				return tooManyRequests(c, perClient.RetryAfterSeconds)
			}

			c.Set("client_id", clientID)
			return next(c)
		}
	}
}

func tooManyRequests(c echo.Context, retryAfterSeconds int64) error {
	c.Response().Header().Set("Retry-After", strconv.FormatInt(retryAfterSeconds, 10))
	return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
}

// checkManifestTier applies the tiered per-flow limit once the manifest's
// function count is known (after fetch, before dispatch) — the global/
// per-client checks in RateLimitMiddleware run before the manifest is even
// fetched, so tiering needs its own call site inside submit().
func checkManifestTier(limiter *ratelimit.RateLimiter, c echo.Context, clientID string, functionCount int) error {
	if limiter == nil {
		return nil
	}
	tier := ratelimit.ClassifyTier(functionCount)
	result, err := limiter.CheckTieredLimit(c.Request().Context(), clientID, tier)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "rate limit check failed")
	}
	if !result.Allowed {
		return tooManyRequests(c, result.RetryAfterSeconds)
	}
	return nil
}
