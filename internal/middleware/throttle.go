package middleware

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sethvargo/go-limiter"
	"github.com/sethvargo/go-limiter/memorystore"

	apperrors "rwatoken/internal/errors"
	"rwatoken/internal/logger"
	"rwatoken/internal/metrics"
)

// NewThrottleStore returns an in-process token bucket store allowing rate
// requests per period for each key.
func NewThrottleStore(rate uint64, period time.Duration) (limiter.Store, error) {
	return memorystore.New(&memorystore.Config{
		Tokens:   rate,
		Interval: period,
	})
}

// Throttle limits requests per client IP. It sits in front of the
// cache-backed per-user limiter and protects the process itself, so it
// fails open when the store errors. A nil store disables it.
func Throttle(store limiter.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil {
			c.Next()
			return
		}

		key := "ip:" + c.ClientIP()
		tokens, remaining, reset, ok, err := store.Take(c.Request.Context(), key)
		if err != nil {
			logger.Get().Warnw("throttle store failed, allowing request",
				"client_ip", c.ClientIP(),
				"error", err,
			)
			c.Next()
			return
		}

		resetAt := time.Unix(0, int64(reset))
		h := c.Writer.Header()
		h.Set("X-RateLimit-Limit", strconv.FormatUint(tokens, 10))
		h.Set("X-RateLimit-Remaining", strconv.FormatUint(remaining, 10))
		h.Set("X-RateLimit-Reset", resetAt.UTC().Format(time.RFC1123))

		if !ok {
			metrics.Throttled.Inc()
			retry := int(math.Ceil(time.Until(resetAt).Seconds()))
			h.Set("Retry-After", strconv.Itoa(max(retry, 1)))
			abortWithError(c, apperrors.ErrTooManyRequests)
			return
		}
		c.Next()
	}
}

// CloseThrottleStore stops the store's sweeper.
func CloseThrottleStore(ctx context.Context, store limiter.Store) {
	if store == nil {
		return
	}
	if err := store.Close(ctx); err != nil {
		logger.Get().Warnw("failed to close throttle store", "error", err)
	}
}
