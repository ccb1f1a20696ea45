package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/barstock_backend/config"
	"github.com/mmdatafocus/barstock_backend/models"
	"github.com/mmdatafocus/barstock_backend/utils"
	"gorm.io/gorm"
)

const (
	AccessTokenCookie = "access_token"
	currentUserKey    = "current_user"
)

// bearerToken reads the Authorization header and falls back to the session cookie.
func bearerToken(c *gin.Context) string {
	auth := c.Request.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(auth[len("Bearer "):])
	}
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil {
		return cookie
	}
	return ""
}

// AuthMiddleware authenticates the request and puts the user's bar, id, name
// and role on the request context. Requests without a valid session are rejected.
func AuthMiddleware(issuer *utils.TokenIssuer, db *gorm.DB, cache *config.RedisStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		claim, err := issuer.Validate(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		ctx := c.Request.Context()
		if !sessionLive(ctx, cache, token) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		}

		user, err := models.GetActiveUser(ctx, db, cache, claim.UserId)
		if err != nil {
			status := http.StatusUnauthorized
			if errors.Is(err, models.ErrUserInactive) {
				status = http.StatusForbidden
			}
			c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
			return
		}
		if user.BarId != claim.BarId {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ctx = utils.SetTokenInContext(ctx, token)
		ctx = utils.SetBarIdInContext(ctx, user.BarId)
		ctx = utils.SetUserIdInContext(ctx, user.ID)
		ctx = utils.SetUserNameInContext(ctx, user.FullName)
		ctx = utils.SetUserRoleInContext(ctx, string(user.Role))
		c.Request = c.Request.WithContext(ctx)
		c.Set(currentUserKey, user)
		c.Next()
	}
}

// CurrentUser is the user AuthMiddleware loaded for this request.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

func RequireManager() gin.HandlerFunc {
	return requireRole(func(r models.UserRole) bool { return r.AtLeastManager() })
}

func RequireOwner() gin.HandlerFunc {
	return requireRole(func(r models.UserRole) bool { return r == models.UserRoleOwner })
}

func requireRole(allowed func(models.UserRole) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := utils.GetUserRoleFromContext(c.Request.Context())
		if !allowed(models.UserRole(role)) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
			return
		}
		c.Next()
	}
}
