package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gamevault-settlement/internal/platform/ratelimit"
)

// RateLimit throttles per authenticated account, falling back to the client IP.
// A limiter backend failure lets the request through.
func RateLimit(logger *slog.Logger, limiter ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if p, ok := PrincipalFrom(c); ok {
			key = "account:" + p.AccountID.String()
		}

		allowed, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logger.Warn("Rate limiter unavailable, allowing request", "key", key, "error", err)
			c.Next()
			return
		}
		if !allowed {
			abortWithError(c, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
			return
		}

		c.Next()
	}
}
