package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kidpech/users_api/internal/infrastructure/monitoring"
	"github.com/kidpech/users_api/internal/infrastructure/ratelimit"
	"github.com/kidpech/users_api/pkg/response"
)

// RateLimit throttles by client IP. Paths listed in skip bypass the limiter.
// Limiter failures let the request through.
func RateLimit(limiter ratelimit.Limiter, logger *zap.Logger, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		if _, ok := skipped[c.Request.URL.Path]; ok {
			c.Next()
			return
		}
		info, err := limiter.Allow(c.Request.Context(), "ip:"+c.ClientIP())
		if err != nil {
			if logger != nil {
				logger.Warn("rate limiter unavailable", zap.Error(err))
			}
			c.Next()
			return
		}
		setHeaders(c, info)
		if !info.Allowed {
			monitoring.ObserveRateLimited()
			response.TooManyRequests(c, info.Reset)
			return
		}
		c.Next()
	}
}

func setHeaders(c *gin.Context, info ratelimit.RateLimitInfo) {
	c.Writer.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
	c.Writer.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
	c.Writer.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.Reset.Unix(), 10))
	if !info.Allowed {
		reset := time.Until(info.Reset)
		if reset < 0 {
			reset = 0
		}
		c.Writer.Header().Set("Retry-After", strconv.Itoa(int(reset.Seconds())))
	}
}
