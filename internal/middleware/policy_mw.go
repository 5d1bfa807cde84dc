package middleware

import (
	"net/http"

	"donation_tracker/internal/policy"

	"github.com/gin-gonic/gin"
)

// RequirePermission aborts with 403 unless the authenticated role may
// perform action. It must run after JWTAuthMiddleware.
func RequirePermission(p *policy.Policy, action policy.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := c.Get(AuthRoleKey)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "not authenticated"})
			return
		}
		roleStr, _ := role.(string)
		if !p.Can(roleStr, action) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "you do not have permission to access this resource"})
			return
		}
		c.Next()
	}
}
