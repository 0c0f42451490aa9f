package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	RoleHeader = "X-Basewatch-Role"
	// RoleKey is the gin context key holding the caller's role label.
	RoleKey = "role"
)

// Role copies the role label from the header, or the "role" query parameter,
// into the context. The label is trusted as given.
func Role() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := strings.TrimSpace(c.GetHeader(RoleHeader))
		if role == "" {
			role = strings.TrimSpace(c.Query("role"))
		}
		if role != "" {
			c.Set(RoleKey, strings.ToLower(role))
		}
		c.Next()
	}
}

// GetRole returns the label set by Role, or "".
func GetRole(c *gin.Context) string {
	return c.GetString(RoleKey)
}
