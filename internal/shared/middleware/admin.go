package middleware

import (
	"github.com/gin-gonic/gin"

	"commerce-backend/internal/shared/response"
)

// Admin gates admin-only routes. Requires Auth to have run first.
func Admin() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := c.Get("role")
		if !ok {
			response.Forbidden(c, "admin role required")
			c.Abort()
			return
		}

		if roleStr, ok := role.(string); !ok || roleStr != "admin" {
			response.Forbidden(c, "admin role required")
			c.Abort()
			return
		}

		c.Next()
	}
}
