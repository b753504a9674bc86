package middleware

import (
	"context"
	"net/http"
	"strings"

	"hbinterface/backend/internal/model"
	"hbinterface/backend/internal/util"
	"hbinterface/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
)

// Context keys set by AuthMiddleware
const (
	ContextUserID    = "user_id"
	ContextUserEmail = "user_email"
	ContextUserRole  = "user_role"
	ContextClaims    = "claims"
)

// TokenValidator resolves a bearer token to its claims
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*jwt.Claims, error)
}

// AuthMiddleware creates authentication middleware
func AuthMiddleware(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			util.AbortWithCustomError(c, http.StatusUnauthorized, util.ErrCodeUnauthorized, "Missing authorization header")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			util.AbortWithCustomError(c, http.StatusUnauthorized, util.ErrCodeUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := tokens.ValidateToken(c.Request.Context(), parts[1])
		if err != nil {
			util.AbortWithError(c, err)
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserEmail, claims.Email)
		c.Set(ContextUserRole, claims.Role)
		c.Set(ContextClaims, claims)

		c.Next()
	}
}

// RequireAdmin middleware requires admin role
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ContextUserRole)
		if !exists {
			util.AbortWithCustomError(c, http.StatusUnauthorized, util.ErrCodeUnauthorized, "Authentication required")
			return
		}

		if role != model.RoleAdmin {
			util.AbortWithError(c, util.ErrForbidden("Admin access required"))
			return
		}

		c.Next()
	}
}

// UserID returns the authenticated user id, or "" outside AuthMiddleware
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// Claims returns the validated token claims, or nil outside AuthMiddleware
func Claims(c *gin.Context) *jwt.Claims {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*jwt.Claims)
	return claims
}
