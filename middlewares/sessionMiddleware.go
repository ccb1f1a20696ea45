package middlewares

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mmdatafocus/barstock_backend/config"
	"github.com/mmdatafocus/barstock_backend/utils"
)

const correlationHeader = "x-correlation-id"

// CorrelationMiddleware reuses the caller's correlation id or generates one.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := c.GetHeader(correlationHeader)
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Header(correlationHeader, cid)
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	}
}

// StoreSession records a freshly issued token so that logout can revoke it.
func StoreSession(ctx context.Context, cache *config.RedisStore, token, userId string, ttl time.Duration) error {
	return cache.SetObject(ctx, utils.SessionCacheKey(token), userId, ttl)
}

func DropSession(ctx context.Context, cache *config.RedisStore, token string) error {
	return cache.RemoveKey(ctx, utils.SessionCacheKey(token))
}

// sessionLive reports whether the token has not been logged out. Without redis
// the signature and expiry of the token are all that is checked.
func sessionLive(ctx context.Context, cache *config.RedisStore, token string) bool {
	if cache.Client() == nil {
		return true
	}
	var userId string
	exists, err := cache.GetObject(ctx, utils.SessionCacheKey(token), &userId)
	if err != nil {
		// redis trouble should not lock everyone out
		return true
	}
	return exists
}
