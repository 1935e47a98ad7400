package middlewares

import (
	"net/http"
	"strings"

	"checkout-service/utils"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserID  = "userID"
	ContextIsAdmin = "isAdmin"
)

// AbortWithError writes the standard error envelope and stops the chain.
func AbortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{"message": message, "status": status}})
}

// AuthMiddleware requires a Bearer token and stores the caller's id and admin flag in the
// request context.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			AbortWithError(c, http.StatusUnauthorized, "Authorization token required")
			return
		}

		claims, err := utils.ParseToken(secret, tokenString)
		if err != nil {
			AbortWithError(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextIsAdmin, claims.IsAdmin)
		c.Next()
	}
}

// CurrentUser returns the authenticated caller set by AuthMiddleware.
func CurrentUser(c *gin.Context) (userID int64, isAdmin bool, ok bool) {
	id, exists := c.Get(ContextUserID)
	if !exists {
		return 0, false, false
	}
	userID, ok = id.(int64)
	return userID, c.GetBool(ContextIsAdmin), ok
}
