package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mailforge/internal/domain/access"
)

// RequireCapability aborts with 403 unless the current user's access policy
// grants capability. Needs LoadCurrentUser upstream.
func RequireCapability(capability string, betaEnabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		policy := access.ComputePolicy(time.Now(), user, betaEnabled)
		if !access.Has(policy.Capabilities, capability) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":      "Your plan does not include this feature",
				"code":       "upgrade_required",
				"capability": capability,
				"state":      policy.State,
			})
			return
		}
		c.Next()
	}
}
