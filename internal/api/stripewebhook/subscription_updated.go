package stripewebhooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	stripeapi "github.com/stripe/stripe-go/v75"

	"mailforge/internal/domain/users"
)

func (h *Handler) handleSubscriptionUpdated(ctx context.Context, raw json.RawMessage) error {
	var sub stripeapi.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return fmt.Errorf("parse subscription: %w", err)
	}
	price := firstPrice(&sub)
	if sub.ID == "" || price == nil {
		return errors.New("subscription missing id/items/price")
	}

	user, err := h.findUser(ctx, &sub)
	if errors.Is(err, users.ErrNotFound) {
		// acknowledge so Stripe stops retrying for deleted users
		return nil
	}
	if err != nil {
		return err
	}

	return h.users.Update(ctx, user.ID, map[string]any{
		"plan":                       h.planKey(ctx, price),
		"current_period_end":         time.Unix(sub.CurrentPeriodEnd, 0).UTC(),
		"stripe_subscription_status": string(sub.Status),
		"subscription_id":            sub.ID,
	})
}

// findUser tries metadata.user_id first, then the stored subscription id.
func (h *Handler) findUser(ctx context.Context, sub *stripeapi.Subscription) (users.User, error) {
	if id := userIDFromMetadata(sub.Metadata); id != 0 {
		user, err := h.users.FindByID(ctx, id)
		if err == nil || !errors.Is(err, users.ErrNotFound) {
			return user, err
		}
	}
	return h.users.FindBySubscriptionID(ctx, sub.ID)
}

func userIDFromMetadata(md map[string]string) uint {
	if md == nil {
		return 0
	}
	s := md["user_id"]
	if s == "" {
		return 0
	}
	uid, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return uint(uid)
}
