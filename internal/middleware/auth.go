package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/proplens/backend/internal/api"
	"github.com/proplens/backend/internal/service"
)

// TokenValidator validates access tokens.
type TokenValidator interface {
	ValidateToken(token string) (*service.TokenClaims, error)
}

// Auth rejects requests without a valid bearer token and stores the
// claims in the gin context.
func Auth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			api.AbortError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing authorization header")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			api.AbortError(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid authorization header format")
			return
		}

		claims, err := validator.ValidateToken(parts[1])
		if err != nil {
			api.AbortError(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
			return
		}

		c.Set(api.CtxUserID, claims.UserID)
		c.Set(api.CtxUsername, claims.Username)
		c.Set(api.CtxEmail, claims.Email)
		c.Set(api.CtxSubscriptionTier, claims.SubscriptionTier)
		c.Next()
	}
}
