package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"rwatoken/internal/logger"
	"rwatoken/internal/metrics"
)

const rateLimitPrefix = "ratelimit:"

// RateLimiter is a fixed-window counter per identity.
type RateLimiter struct {
	cache Cache
	log   *zap.SugaredLogger
}

// NewRateLimiter returns a limiter counting in c.
func NewRateLimiter(c Cache) *RateLimiter {
	return &RateLimiter{cache: c, log: logger.Named("ratelimit")}
}

// Allow counts one attempt for identity and reports whether it is within
// limit for the current window. The window starts on the first attempt.
// Cache failures let the attempt through.
func (r *RateLimiter) Allow(ctx context.Context, identity string, limit int64, window time.Duration) bool {
	key := rateLimitPrefix + identity
	count, err := r.cache.Incr(ctx, key)
	if err != nil {
		metrics.RateLimiterDegraded.Inc()
		r.log.Warnw("rate limiter degraded, allowing request",
			"identity", identity,
			"error", err,
		)
		return true
	}
	if count == 1 {
		if err := r.cache.Expire(ctx, key, window); err != nil {
			// A counter without a TTL would never reset; drop it so the
			// next attempt opens a fresh window.
			metrics.RateLimiterDegraded.Inc()
			r.log.Warnw("rate limiter could not set window expiry",
				"identity", identity,
				"error", err,
			)
			if err := r.cache.Del(ctx, key); err != nil {
				r.log.Errorw("rate limiter could not drop counter without expiry",
					"identity", identity,
					"error", err,
				)
			}
			return true
		}
	}
	if count > limit {
		metrics.RateLimited.Inc()
		return false
	}
	return true
}
