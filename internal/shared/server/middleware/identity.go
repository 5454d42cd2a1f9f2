package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"labreport-backend/internal/shared/server/respond"
)

const (
	ownerIDKey = "ownerId"
	guestKey   = "isGuest"
)

// Identity resolves the request owner from headers set by the upstream
// auth gateway. Authenticated traffic carries X-User-Id; anonymous
// traffic carries X-Guest-Id. Requests without either are rejected.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		path := c.Request.URL.Path
		if path == "/api/v1/health" || path == "/api/v1/metrics" {
			c.Next()
			return
		}

		if userID := strings.TrimSpace(c.GetHeader("X-User-Id")); userID != "" {
			c.Set(ownerIDKey, userID)
			c.Set(guestKey, false)
			c.Next()
			return
		}

		guestID := strings.TrimSpace(c.GetHeader("X-Guest-Id"))
		if guestID == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
			return
		}

		c.Set(ownerIDKey, "guest:"+guestID)
		c.Set(guestKey, true)
		c.Next()
	}
}

// OwnerIDFromContext fetches the owner ID set by the identity middleware.
func OwnerIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(ownerIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// IsGuest reports whether the identity middleware marked this request as guest traffic.
func IsGuest(c *gin.Context) bool {
	if c == nil {
		return false
	}
	val, _ := c.Get(guestKey)
	guest, ok := val.(bool)
	return ok && guest
}
