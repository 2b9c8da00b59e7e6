package billing

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"mailforge/internal/infra/stripe"
)

// POST /billing/cancel cancels the Stripe subscription. The user keeps pro
// until current_period_end; the webhook confirms the final state.
func (h *Handler) CancelSubscription(c *gin.Context) {
	if !h.configured(c) {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	if user.SubscriptionID == nil || *user.SubscriptionID == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "No subscription to cancel"})
		return
	}
	if stripe.NormalizeStripeStatus(user.StripeSubscriptionStatus) == "canceled" {
		c.JSON(http.StatusOK, gin.H{"message": "Subscription already cancelled"})
		return
	}

	subID := *user.SubscriptionID
	ctx := c.Request.Context()
	if err := h.stripe.CancelSubscription(subID); err != nil {
		slog.ErrorContext(ctx, "cancel subscription", slog.String("subscription_id", subID), slog.Any("error", err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to cancel Stripe subscription"})
		return
	}

	if err := h.users.Update(ctx, user.ID, map[string]any{"stripe_subscription_status": "canceled"}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store subscription status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":            "Subscription cancelled",
		"subscription_id":    subID,
		"current_period_end": user.CurrentPeriodEnd,
	})
}
