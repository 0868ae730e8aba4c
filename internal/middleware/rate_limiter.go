// file: internal/middleware/rate_limiter.go
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"sidequest/internal/cache"
	"sidequest/internal/config"
	"sidequest/internal/contextutils"
	"sidequest/internal/response"
)

// RateLimitResult is the outcome of one limit check
type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter enforces fixed-window request limits on top of the cache
type RateLimiter struct {
	cache           cache.Cache
	config          config.RateLimitConfig
	responseBuilder *response.Builder
	logger          *zap.Logger
	now             func() time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(c cache.Cache, cfg config.RateLimitConfig, builder *response.Builder, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{
		cache:           c,
		config:          cfg,
		responseBuilder: builder,
		logger:          logger,
		now:             time.Now,
	}
}

// Global limits every request per caller
func (rl *RateLimiter) Global() func(http.Handler) http.Handler {
	return rl.Limit("api", rl.config.RequestsPerWindow, rl.config.Window)
}

// Generation limits AI generation calls per caller per hour
func (rl *RateLimiter) Generation() func(http.Handler) http.Handler {
	return rl.Limit("generate", rl.config.GenerationPerHour, time.Hour)
}

// Limit allows at most limit requests per window for each caller. Callers
// are identified by user ID when authenticated, by client IP otherwise.
func (rl *RateLimiter) Limit(scope string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !rl.config.Enabled || limit <= 0 || window <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result := rl.check(r.Context(), scope, callerKey(r), limit, window)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

			if !result.Allowed {
				contextutils.Logger(r.Context(), rl.logger).Warn("Rate limit exceeded",
					zap.String("scope", scope),
					zap.Int("limit", limit),
					zap.Duration("window", window),
				)
				retryAfter := int(result.RetryAfter.Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				rl.responseBuilder.WriteTooManyRequests(w, r, strconv.Itoa(retryAfter))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// check counts the request in the current window. Cache failures let the
// request through.
func (rl *RateLimiter) check(ctx context.Context, scope, caller string, limit int, window time.Duration) *RateLimitResult {
	now := rl.now()
	windowStart := now.Truncate(window)
	key := fmt.Sprintf("ratelimit:%s:%s:%d", scope, caller, windowStart.Unix())

	count, err := rl.cache.Increment(ctx, key, window)
	if err != nil {
		rl.logger.Warn("Rate limit check failed, allowing request",
			zap.String("scope", scope),
			zap.Error(err),
		)
		return &RateLimitResult{Allowed: true, Limit: limit, Remaining: limit}
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return &RateLimitResult{
		Allowed:    count <= int64(limit),
		Limit:      limit,
		Remaining:  remaining,
		RetryAfter: windowStart.Add(window).Sub(now),
	}
}

func callerKey(r *http.Request) string {
	if userID := contextutils.GetUserID(r.Context()); userID > 0 {
		return "user:" + strconv.FormatInt(userID, 10)
	}
	return "ip:" + getClientIP(r)
}
