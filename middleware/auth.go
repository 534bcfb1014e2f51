package middleware

import (
	"errors"
	"net/http"
	"strings"

	"membercrm/logger"
	"membercrm/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const claimsKey = "claims"

// AuthRequired accepts a Bearer token or the session cookie and exposes the
// caller as userID, userEmail, userName and userRole on the context.
func AuthRequired(sessions *services.Sessions, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""

		authHeader := c.GetHeader("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenString = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		}

		if tokenString == "" {
			if cookie, err := c.Cookie(cookieName); err == nil {
				tokenString = cookie
			}
		}

		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		claims, err := sessions.Parse(c.Request.Context(), tokenString)
		switch {
		case errors.Is(err, services.ErrRevokedToken):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session has ended"})
			return
		case errors.Is(err, services.ErrInvalidToken):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		case err != nil:
			logger.FromGin(c).Error("session lookup failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("userEmail", claims.Email)
		c.Set("userName", claims.Name)
		c.Set("userRole", claims.Role)
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequirePermission must run after AuthRequired.
func RequirePermission(action services.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !services.Can(c.GetString("userRole"), action) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}
		c.Next()
	}
}

// Claims returns the parsed session of the current request, if any.
func Claims(c *gin.Context) *services.Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*services.Claims)
	return claims
}
