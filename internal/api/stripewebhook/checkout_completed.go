package stripewebhooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	stripeapi "github.com/stripe/stripe-go/v75"

	"mailforge/internal/domain/billing"
)

func (h *Handler) handleCheckoutSessionCompleted(ctx context.Context, raw json.RawMessage) error {
	var session stripeapi.CheckoutSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return fmt.Errorf("parse checkout session: %w", err)
	}

	fullSession, err := h.stripe.GetCheckoutSession(session.ID)
	if err != nil {
		return fmt.Errorf("failed to fetch expanded checkout session: %w", err)
	}
	if fullSession.Subscription == nil || fullSession.Subscription.ID == "" {
		return errors.New("checkout session missing subscription")
	}
	subscriptionID := fullSession.Subscription.ID

	subData, err := h.stripe.GetSubscription(subscriptionID)
	if err != nil {
		return fmt.Errorf("failed to fetch subscription: %w", err)
	}
	price := firstPrice(subData)
	if price == nil {
		return errors.New("subscription has no price item")
	}

	// metadata.user_id preferred, else ClientReferenceID
	userID, err := userIDFromSubscriptionOrRef(subData, fullSession.ClientReferenceID)
	if err != nil {
		return err
	}
	user, err := h.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("user not found: %w", err)
	}

	planKey := h.planKey(ctx, price)
	periodEnd := time.Unix(subData.CurrentPeriodEnd, 0).UTC()

	updates := map[string]any{
		"plan":                       planKey,
		"subscription_id":            subscriptionID,
		"current_period_end":         periodEnd,
		"stripe_subscription_status": string(subData.Status),
	}
	if fullSession.Customer != nil && fullSession.Customer.ID != "" {
		updates["stripe_customer_id"] = fullSession.Customer.ID
	}

	// one subscription per user
	if user.SubscriptionID != nil && *user.SubscriptionID != "" && *user.SubscriptionID != subscriptionID {
		if err := h.stripe.CancelSubscription(*user.SubscriptionID); err != nil {
			slog.WarnContext(ctx, "cancel replaced subscription", slog.String("subscription_id", *user.SubscriptionID), slog.Any("error", err))
		}
	}

	if err := h.users.Update(ctx, user.ID, updates); err != nil {
		return fmt.Errorf("failed to update user after checkout: %w", err)
	}

	return h.payments.Record(ctx, &billing.Payment{
		UserID:               user.ID,
		PlanKey:              planKey,
		StripeSessionID:      fullSession.ID,
		StripeSubscriptionID: &subscriptionID,
		AmountEUR:            float64(fullSession.AmountTotal) / 100.0,
		Currency:             string(fullSession.Currency),
		Status:               string(fullSession.PaymentStatus),
	})
}

func userIDFromSubscriptionOrRef(sub *stripeapi.Subscription, clientRef string) (uint, error) {
	userIDStr := ""
	if sub.Metadata != nil {
		userIDStr = sub.Metadata["user_id"]
	}
	if userIDStr == "" {
		userIDStr = clientRef
	}
	if userIDStr == "" {
		return 0, errors.New("missing user_id (metadata.user_id or client_reference_id)")
	}

	uid64, err := strconv.ParseUint(userIDStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user_id %q: %w", userIDStr, err)
	}
	return uint(uid64), nil
}
