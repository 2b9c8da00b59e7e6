package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireBetaAccess blocks users without a redeemed code while the beta wall
// is enabled. Admins always pass. Needs LoadCurrentUser upstream.
func RequireBetaAccess(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.Next()
			return
		}

		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		if user.BetaAccess || user.IsAdmin() {
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "Beta access required",
			"code":  "beta_required",
		})
	}
}
