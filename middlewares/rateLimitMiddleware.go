package middlewares

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/barstock_backend/config"
	"github.com/redis/go-redis/v9"
)

type RateLimiter struct {
	client *redis.Client
	cfg    config.RateLimitConfig
}

func NewRateLimiter(client *redis.Client, cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{client: client, cfg: cfg}
}

// Middleware counts requests per client IP in a fixed window.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.client == nil {
			c.Next()
			return
		}
		key := "RateLimit:" + c.ClientIP()
		ctx := c.Request.Context()

		count, err := rl.client.Incr(ctx, key).Result()
		if err != nil {
			// fail open
			c.Next()
			return
		}
		if count == 1 {
			rl.client.Expire(ctx, key, rl.cfg.Window)
		}
		if count > rl.cfg.MaxRequests {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.cfg.Window.Seconds())),
			})
			return
		}
		c.Next()
	}
}
