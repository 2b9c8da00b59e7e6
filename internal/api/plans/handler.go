// Package plans serves the pricing catalogue and syncs it from Stripe.
package plans

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"mailforge/internal/domain/plans"
	"mailforge/internal/infra/stripe"
)

type Store interface {
	ListActive(ctx context.Context) ([]plans.Plan, error)
	Upsert(ctx context.Context, p plans.Plan) (bool, error)
}

type Handler struct {
	plans  Store
	stripe stripe.Gateway
}

func NewHandler(store Store, gw stripe.Gateway) *Handler {
	return &Handler{plans: store, stripe: gw}
}

// GET /plans
func (h *Handler) ListPlans(c *gin.Context) {
	list, err := h.plans.ListActive(c.Request.Context())
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "list plans", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load plans"})
		return
	}
	if list == nil {
		list = []plans.Plan{}
	}
	c.JSON(http.StatusOK, list)
}
