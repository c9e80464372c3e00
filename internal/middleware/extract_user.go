package middleware

import (
	"net/http"

	"picktrack/internal/shared/contextutil"
	"picktrack/internal/shared/response"

	"github.com/gin-gonic/gin"
)

// ExtractUser reads the caller identity from the X-Username and X-Role
// headers set by the warehouse terminal gateway. Requests without a username
// are rejected; role defaults to "picker".
func ExtractUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.GetHeader("X-Username")
		if username == "" {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing X-Username header", nil)
			c.Abort()
			return
		}

		role := c.GetHeader("X-Role")
		if role == "" {
			role = "picker"
		}

		c.Set("username_validated", username)
		c.Set("role_validated", role)

		ctx := c.Request.Context()
		ctx = contextutil.WithUsername(ctx, username)
		ctx = contextutil.WithRole(ctx, role)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequireRole aborts with 403 unless the caller's role is one of the allowed
// roles. It must run after ExtractUser.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("role_validated")
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Insufficient role for this operation", nil)
		c.Abort()
	}
}
