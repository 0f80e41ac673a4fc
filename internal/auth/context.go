package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"

	ctxUserID = "user_id"
	ctxRole   = "user_role"
)

// Identity reads the caller identity the gateway forwarded. Token
// verification happens upstream; this service only trusts the headers.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ctxUserID, c.GetHeader("X-User-ID"))
		c.Set(ctxRole, c.GetHeader("X-User-Role"))
		c.Next()
	}
}

// RequireRole aborts the request unless the caller carries the given role.
// Admins pass every check.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetString(ctxRole)
		if got != role && got != RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "Forbidden",
				"message": "insufficient role",
			})
			return
		}
		c.Next()
	}
}

// ActorID returns the id of the user behind the request, or "" for
// unauthenticated/internal calls.
func ActorID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}
