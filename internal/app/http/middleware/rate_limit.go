package middleware

import (
	"net/http"
	"strconv"
	"time"

	"chilljobs-api/internal/infra/ratelimit"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimit allows limit requests per window for each signed-in user (or
// client IP). Limiter errors let the request through.
func RateLimit(l *ratelimit.Limiter, scope string, limit int, window time.Duration, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Enabled() {
			c.Next()
			return
		}
		subject := c.ClientIP()
		if claims, ok := ClaimsFrom(c); ok {
			subject = claims.UserID
		}

		allowed, retryAfter, err := l.Allow(c.Request.Context(), scope, subject, limit, window)
		if err != nil {
			log.Warnw("rate limiter unavailable", "scope", scope, "error", err)
			c.Next()
			return
		}
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, try again later"})
			return
		}
		c.Next()
	}
}
