package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/motivohq/motivo-server/internal/apperr"
	"github.com/motivohq/motivo-server/internal/config"
	"github.com/motivohq/motivo-server/internal/models"
	"github.com/motivohq/motivo-server/internal/ratelimit"
)

// RateLimit enforces fixed-window request quotas. Requests with a resolved
// user key by user ID with the role's threshold; anonymous requests key by
// client IP with the lowest threshold. Registered before Authenticate on
// public routes and after it on authenticated ones.
func RateLimit(manager *ratelimit.Manager, cfg config.RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, limit := limitForRequest(c, cfg)

		result, errAllow := manager.Allow(c.Request.Context(), key, limit, cfg.Window)
		if errAllow != nil || limit <= 0 {
			// The manager fails open internally; an error here means the
			// limiter is disabled for this key.
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		if !result.Reset.IsZero() {
			c.Header("X-RateLimit-Reset", strconv.FormatInt(result.Reset.Unix(), 10))
		}

		if !result.Allowed {
			retryAfter := retryAfterSeconds(result.Reset)
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			apperr.Abort(c, apperr.RateLimited(retryAfter))
			return
		}
		c.Next()
	}
}

// RateLimitUnauthenticated throttles traffic that fails to authenticate,
// keyed by client IP with the anonymous threshold. Registered before
// Authenticate: an exhausted window rejects the request before any token
// verification or store access, and only requests that finish without a
// resolved user consume quota, so authenticated traffic is charged against
// its role window alone.
func RateLimitUnauthenticated(manager *ratelimit.Manager, cfg config.RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()

		result, errPeek := manager.Peek(c.Request.Context(), key, cfg.Anonymous, cfg.Window)
		if errPeek == nil && cfg.Anonymous > 0 && !result.Allowed {
			c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Anonymous))
			c.Header("X-RateLimit-Remaining", "0")
			if !result.Reset.IsZero() {
				c.Header("X-RateLimit-Reset", strconv.FormatInt(result.Reset.Unix(), 10))
			}
			retryAfter := retryAfterSeconds(result.Reset)
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			apperr.Abort(c, apperr.RateLimited(retryAfter))
			return
		}

		c.Next()

		if _, ok := CurrentUser(c); !ok {
			_, _ = manager.Allow(c.Request.Context(), key, cfg.Anonymous, cfg.Window)
		}
	}
}

func limitForRequest(c *gin.Context, cfg config.RateLimitConfig) (string, int) {
	if user, ok := CurrentUser(c); ok {
		limit := cfg.User
		if user.Role == models.RoleAdmin {
			limit = cfg.Admin
		}
		return fmt.Sprintf("u:%d", user.ID), limit
	}
	return "ip:" + c.ClientIP(), cfg.Anonymous
}

func retryAfterSeconds(reset time.Time) int {
	seconds := int(time.Until(reset).Seconds()) + 1
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}
