package plans

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	stripeapi "github.com/stripe/stripe-go/v75"

	"mailforge/internal/domain/plans"
)

// POST /admin/sync-plans upserts every visible EUR recurring price.
func (h *Handler) SyncPlansFromStripe(c *gin.Context) {
	if h.stripe == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Billing is not configured"})
		return
	}

	ctx := c.Request.Context()
	prices, err := h.stripe.ListRecurringPrices()
	if err != nil {
		slog.ErrorContext(ctx, "list stripe prices", slog.Any("error", err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch Stripe prices"})
		return
	}

	synced, created, updated, skipped := 0, 0, 0, 0
	for _, p := range prices {
		plan, ok := planFromPrice(p)
		if !ok {
			skipped++
			continue
		}

		isNew, err := h.plans.Upsert(ctx, plan)
		if err != nil {
			slog.ErrorContext(ctx, "upsert plan", slog.String("price_id", p.ID), slog.Any("error", err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store plan"})
			return
		}
		if isNew {
			created++
		} else {
			updated++
		}
		synced++
	}

	c.JSON(http.StatusOK, gin.H{
		"synced":  synced,
		"created": created,
		"updated": updated,
		"skipped": skipped,
	})
}

func planFromPrice(p *stripeapi.Price) (plans.Plan, bool) {
	if p == nil || !p.Active || p.Recurring == nil || p.Product == nil || !p.Product.Active {
		return plans.Plan{}, false
	}
	if string(p.Currency) != "eur" {
		return plans.Plan{}, false
	}
	if p.Metadata != nil && p.Metadata["visible"] == "false" {
		return plans.Plan{}, false
	}

	priceID := p.ID
	return plans.Plan{
		Key:           plans.KeyFromMetadata(p.Metadata),
		Name:          p.Product.Name,
		PriceEUR:      float64(p.UnitAmount) / 100.0,
		StripePriceID: &priceID,
		Interval:      string(p.Recurring.Interval),
		Active:        true,
	}, true
}
