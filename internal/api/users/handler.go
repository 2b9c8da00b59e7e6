// Package users serves the signed-in user's profile with plan, beta and
// access policy.
package users

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mailforge/internal/app/http/middleware"
	"mailforge/internal/domain/access"
)

type Handler struct {
	betaEnabled bool
	now         func() time.Time
}

func NewHandler(betaEnabled bool) *Handler {
	return &Handler{betaEnabled: betaEnabled, now: time.Now}
}

// GET /me, needs LoadCurrentUser upstream.
func (h *Handler) GetCurrentUser(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	now := h.now()
	policy := access.ComputePolicy(now, user, h.betaEnabled)

	c.JSON(http.StatusOK, MeResponse{
		User:    BuildUserDTO(user),
		Billing: BuildBillingDTO(user, policy),
		Beta:    BuildBetaDTO(user, h.betaEnabled),
		Access:  BuildAccessDTO(policy),
	})
}
