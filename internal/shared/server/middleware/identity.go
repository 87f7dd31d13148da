package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-typeset/internal/shared/server/respond"
)

const userIDKey = "userId"

// Identity extracts the caller identity injected by the upstream gateway.
// Authentication itself happens outside this service; requests arriving here
// carry a trusted X-User-Id header. In dev-like environments a missing header
// falls back to a fixed local identity for convenience.
func Identity(env string) gin.HandlerFunc {
	devFallback := env == "dev" || env == "local"
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		userID := strings.TrimSpace(c.GetHeader("X-User-Id"))
		if userID == "" {
			if !devFallback {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing caller identity", nil)
				return
			}
			userID = "local-dev-user"
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserIDFromContext fetches the user ID stored by Identity middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}
