package middleware

import (
	"net/http"

	"github.com/Plvkssh/SmartLodge/pkg/response"
	"github.com/gin-gonic/gin"
)

const (
	// UserIDHeader carries the authenticated user's ID, set by the edge gateway
	UserIDHeader = "X-User-ID"
	// ContextKeyUserID is the context key for the user ID
	ContextKeyUserID = "user_id"
)

// UserID reads the user ID from the X-User-ID header and stores it in the
// request context. Authentication itself happens upstream; this service
// trusts the gateway-injected header. The fallback keeps local testing easy.
func UserID(fallback string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(UserIDHeader)
		if userID == "" {
			userID = fallback
		}
		c.Set(ContextKeyUserID, userID)
		c.Next()
	}
}

// RequireUserID rejects requests without an X-User-ID header
func RequireUserID() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(UserIDHeader)
		if userID == "" {
			response.Error(c, http.StatusUnauthorized, "MISSING_USER_ID", "X-User-ID header is required", "")
			c.Abort()
			return
		}
		c.Set(ContextKeyUserID, userID)
		c.Next()
	}
}

// GetUserID extracts the user ID from gin context
func GetUserID(c *gin.Context) (string, bool) {
	value, exists := c.Get(ContextKeyUserID)
	if !exists {
		return "", false
	}
	userID, ok := value.(string)
	return userID, ok
}
