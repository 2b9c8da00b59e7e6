package billing

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	stripeapi "github.com/stripe/stripe-go/v75"

	"mailforge/internal/domain/plans"
	"mailforge/internal/infra/stripe"
)

// POST /billing/checkout
func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	var body struct {
		PriceID string `json:"price_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.PriceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid price_id"})
		return
	}
	if !h.configured(c) {
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	// allow-list price id
	plan, err := h.plans.FindByPriceID(ctx, body.PriceID)
	if errors.Is(err, plans.ErrNotFound) || (err == nil && (!plan.Active || plan.Key != plans.KeyPro)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown plan/price_id"})
		return
	}
	if err != nil {
		slog.ErrorContext(ctx, "find plan", slog.String("price_id", body.PriceID), slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load plan"})
		return
	}

	if !user.IsVerified {
		c.JSON(http.StatusForbidden, gin.H{"error": "Please verify your email first"})
		return
	}
	if user.SubscriptionID != nil && *user.SubscriptionID != "" {
		switch stripe.NormalizeStripeStatus(user.StripeSubscriptionStatus) {
		case "active", "trialing", "past_due":
			c.JSON(http.StatusConflict, gin.H{"error": "Already subscribed, use the billing portal to manage it"})
			return
		}
	}

	// ensure stripe customer
	if user.StripeCustomerID == nil || *user.StripeCustomerID == "" {
		customerID, err := h.stripe.CreateCustomer(&stripeapi.CustomerParams{
			Email: stripeapi.String(user.Email),
			Metadata: map[string]string{
				"user_id": fmt.Sprint(user.ID),
				"app_env": h.appEnv,
			},
		})
		if err != nil {
			slog.ErrorContext(ctx, "create stripe customer", slog.Uint64("user_id", uint64(user.ID)), slog.Any("error", err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to create Stripe customer"})
			return
		}
		if err := h.users.Update(ctx, user.ID, map[string]any{"stripe_customer_id": customerID}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store Stripe customer"})
			return
		}
		user.StripeCustomerID = &customerID
	}

	params := &stripeapi.CheckoutSessionParams{
		SuccessURL: stripeapi.String(h.frontendURL + "/account?checkout=success"),
		CancelURL:  stripeapi.String(h.frontendURL + "/account?canceled=1"),
		Mode:       stripeapi.String(string(stripeapi.CheckoutSessionModeSubscription)),
		Customer:   stripeapi.String(*user.StripeCustomerID),
		LineItems: []*stripeapi.CheckoutSessionLineItemParams{
			{Price: stripeapi.String(body.PriceID), Quantity: stripeapi.Int64(1)},
		},
		ClientReferenceID: stripeapi.String(fmt.Sprint(user.ID)),
		SubscriptionData: &stripeapi.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				"user_id": fmt.Sprint(user.ID),
				"plan":    plan.Key,
			},
		},
	}

	s, err := h.stripe.CreateCheckoutSession(params)
	if err != nil {
		slog.ErrorContext(ctx, "create checkout session", slog.Uint64("user_id", uint64(user.ID)), slog.Any("error", err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to create checkout session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": s.URL, "id": s.ID})
}

// POST /billing/portal
func (h *Handler) CreateBillingPortal(c *gin.Context) {
	if !h.configured(c) {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	if user.StripeCustomerID == nil || *user.StripeCustomerID == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "No Stripe customer yet (subscribe first)"})
		return
	}

	url, err := h.stripe.CreatePortalSession(*user.StripeCustomerID, h.frontendURL+"/account")
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "create portal session", slog.Uint64("user_id", uint64(user.ID)), slog.Any("error", err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Could not create billing portal session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}
