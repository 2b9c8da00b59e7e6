// Package stripewebhooks applies Stripe subscription events to users and
// records completed checkouts as payments.
package stripewebhooks

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	stripeapi "github.com/stripe/stripe-go/v75"

	"mailforge/internal/domain/billing"
	"mailforge/internal/domain/plans"
	"mailforge/internal/domain/users"
	"mailforge/internal/infra/stripe"
)

const maxBodyBytes = 65536

type UserStore interface {
	FindByID(ctx context.Context, id uint) (users.User, error)
	FindBySubscriptionID(ctx context.Context, subID string) (users.User, error)
	Update(ctx context.Context, id uint, updates map[string]any) error
}

type PlanFinder interface {
	FindByPriceID(ctx context.Context, priceID string) (plans.Plan, error)
}

type PaymentRecorder interface {
	Record(ctx context.Context, p *billing.Payment) error
}

type Handler struct {
	users    UserStore
	plans    PlanFinder
	payments PaymentRecorder
	stripe   stripe.Gateway
	now      func() time.Time
}

func NewHandler(us UserStore, pf PlanFinder, pr PaymentRecorder, gw stripe.Gateway) *Handler {
	return &Handler{users: us, plans: pf, payments: pr, stripe: gw, now: time.Now}
}

// POST /stripe/webhook
func (h *Handler) StripeWebhook(c *gin.Context) {
	if h.stripe == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Billing is not configured"})
		return
	}

	payload, err := readStripeBody(c, maxBodyBytes)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error reading request body"})
		return
	}

	ctx := c.Request.Context()
	event, err := h.stripe.ConstructEvent(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		slog.WarnContext(ctx, "stripe signature verification failed", slog.Any("error", err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Signature verification failed"})
		return
	}
	if event.Data == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Event has no data"})
		return
	}

	var handle func(context.Context, json.RawMessage) error
	switch event.Type {
	case "checkout.session.completed":
		handle = h.handleCheckoutSessionCompleted
	case "customer.subscription.updated":
		handle = h.handleSubscriptionUpdated
	case "customer.subscription.deleted":
		handle = h.handleSubscriptionDeleted
	default:
		// acknowledge unknown events to avoid retries
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	if err := handle(ctx, event.Data.Raw); err != nil {
		slog.ErrorContext(ctx, "stripe webhook", slog.String("event_id", event.ID), slog.String("type", string(event.Type)), slog.Any("error", err))
		// 500 makes Stripe retry
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

func readStripeBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	return io.ReadAll(c.Request.Body)
}

// planKey maps the subscription's price to free|pro. Prices missing from the
// local catalogue fall back to their Stripe metadata.
func (h *Handler) planKey(ctx context.Context, price *stripeapi.Price) string {
	if price == nil {
		return plans.KeyPro
	}
	if p, err := h.plans.FindByPriceID(ctx, price.ID); err == nil {
		return plans.NormalizeKey(p.Key)
	}
	return plans.KeyFromMetadata(price.Metadata)
}

func firstPrice(sub *stripeapi.Subscription) *stripeapi.Price {
	if sub == nil || sub.Items == nil || len(sub.Items.Data) == 0 {
		return nil
	}
	return sub.Items.Data[0].Price
}
