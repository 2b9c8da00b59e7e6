// Package billing starts Stripe checkout and portal sessions, cancels
// subscriptions and lists a user's payments. Subscription state itself is
// written by the Stripe webhook.
package billing

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"mailforge/internal/domain/billing"
	"mailforge/internal/domain/plans"
	"mailforge/internal/domain/users"
	"mailforge/internal/infra/stripe"
)

type UserStore interface {
	FindByID(ctx context.Context, id uint) (users.User, error)
	Update(ctx context.Context, id uint, updates map[string]any) error
}

type PlanFinder interface {
	FindByPriceID(ctx context.Context, priceID string) (plans.Plan, error)
}

type PaymentLister interface {
	ListForUser(ctx context.Context, userID uint) ([]billing.Payment, error)
}

type Handler struct {
	users       UserStore
	plans       PlanFinder
	payments    PaymentLister
	stripe      stripe.Gateway
	frontendURL string
	appEnv      string
}

// NewHandler accepts a nil gateway; Stripe endpoints then answer 503.
func NewHandler(us UserStore, pf PlanFinder, pl PaymentLister, gw stripe.Gateway, frontendURL, appEnv string) *Handler {
	return &Handler{
		users:       us,
		plans:       pf,
		payments:    pl,
		stripe:      gw,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		appEnv:      appEnv,
	}
}

func (h *Handler) configured(c *gin.Context) bool {
	if h.stripe == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Billing is not configured"})
		return false
	}
	return true
}

func (h *Handler) currentUser(c *gin.Context) (users.User, bool) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return users.User{}, false
	}
	user, err := h.users.FindByID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return users.User{}, false
	}
	return user, true
}
