package middleware

import (
	"context"
	"fmt"
	"time"

	"hbinterface/backend/internal/util"
	"hbinterface/backend/pkg/redis"

	"github.com/gin-gonic/gin"
)

// RateLimiter counts requests per identifier in a fixed redis window
type RateLimiter struct {
	redis     *redis.Client
	limit     int
	window    time.Duration
	keyPrefix string
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(redisClient *redis.Client, limit int, window time.Duration, keyPrefix string) *RateLimiter {
	return &RateLimiter{
		redis:     redisClient,
		limit:     limit,
		window:    window,
		keyPrefix: keyPrefix,
	}
}

// Limit returns a middleware that limits requests
func (rl *RateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.limit <= 0 {
			c.Next()
			return
		}

		identifier := c.ClientIP()
		if userID, exists := c.Get(ContextUserID); exists {
			identifier = fmt.Sprintf("user:%v", userID)
		}

		allowed, err := rl.allow(c.Request.Context(), redis.RateLimitKey(identifier, rl.keyPrefix))
		if err != nil {
			// redis trouble never blocks traffic
			_ = c.Error(err)
			c.Next()
			return
		}

		if !allowed {
			util.AbortWithError(c, util.ErrRateLimit("Rate limit exceeded. Please try again later."))
			return
		}

		c.Next()
	}
}

func (rl *RateLimiter) allow(ctx context.Context, key string) (bool, error) {
	count, err := rl.redis.Incr(ctx, key)
	if err != nil {
		return false, err
	}

	if count == 1 {
		if err := rl.redis.Expire(ctx, key, rl.window); err != nil {
			return false, err
		}
	}

	return count <= int64(rl.limit), nil
}

// RateLimit creates a rate limiting middleware with default settings (per IP)
func RateLimit(redisClient *redis.Client, limit int) gin.HandlerFunc {
	return NewRateLimiter(redisClient, limit, time.Minute, "general").Limit()
}

// AuthRateLimit creates a rate limiting middleware for auth endpoints
func AuthRateLimit(redisClient *redis.Client, limit int) gin.HandlerFunc {
	return NewRateLimiter(redisClient, limit, time.Minute, "auth").Limit()
}
