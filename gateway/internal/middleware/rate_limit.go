package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"identity-server/gateway/internal/metrics"
	"identity-server/shared/constants"
	"identity-server/shared/interfaces"
	"identity-server/shared/models"
)

// RateLimiter enforces a fixed-window per-client, per-path request budget.
// Store errors fail open; a throttling layer must not become the outage.
type RateLimiter struct {
	store  interfaces.RateLimitStore
	limit  int64
	window time.Duration
	logger *zap.Logger
}

// NewRateLimiter creates the limiter.
func NewRateLimiter(store interfaces.RateLimitStore, limit int64, window time.Duration, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{
		store:  store,
		limit:  limit,
		window: window,
		logger: logger.Named("RateLimiter"),
	}
}

// Handler returns the gin middleware.
func (r *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("%s%s:%s", constants.RedisRequestRateLimPrefix, c.ClientIP(), c.Request.URL.Path)

		count, err := r.store.IncrementWindow(c.Request.Context(), key, r.window)
		if err != nil {
			metrics.RateLimitFailOpenTotal.Inc()
			r.logger.Error("Rate limit store error, allowing request through",
				zap.Error(err),
				zap.String("clientIP", c.ClientIP()),
				zap.String("path", c.Request.URL.Path),
			)
			c.Next()
			return
		}

		c.Header(constants.HeaderRateLimitLimit, strconv.FormatInt(r.limit, 10))

		if count > r.limit {
			metrics.RateLimitedTotal.Inc()
			c.Header(constants.HeaderRateLimitRemaining, "0")
			r.logger.Warn("Rate limit exceeded",
				zap.String("clientIP", c.ClientIP()),
				zap.String("path", c.Request.URL.Path),
				zap.Int64("count", count),
			)
			models.RespondError(c, http.StatusTooManyRequests, models.ErrCodeRateLimited, "Too many requests, try again later")
			return
		}

		c.Header(constants.HeaderRateLimitRemaining, strconv.FormatInt(r.limit-count, 10))
		c.Next()
	}
}
