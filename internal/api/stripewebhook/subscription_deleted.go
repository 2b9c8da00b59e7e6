package stripewebhooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	stripeapi "github.com/stripe/stripe-go/v75"

	"mailforge/internal/domain/plans"
	"mailforge/internal/domain/users"
)

// Pro stays effective until current_period_end; past that the user is free.
func (h *Handler) handleSubscriptionDeleted(ctx context.Context, raw json.RawMessage) error {
	var sub stripeapi.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return fmt.Errorf("parse subscription: %w", err)
	}
	if sub.ID == "" {
		return nil
	}

	user, err := h.findUser(ctx, &sub)
	if errors.Is(err, users.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	periodEnd := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
	updates := map[string]any{
		"stripe_subscription_status": "canceled",
		"current_period_end":         periodEnd,
	}
	if !periodEnd.After(h.now()) {
		updates["plan"] = plans.KeyFree
	}

	return h.users.Update(ctx, user.ID, updates)
}
