package access

import (
	"time"

	"mailforge/internal/domain/plans"
	"mailforge/internal/domain/users"
	"mailforge/internal/infra/stripe"
)

// EffectivePlan is the plan the user is entitled to right now, which can lag
// behind users.User.Plan while a cancelled subscription runs out.
func EffectivePlan(now time.Time, u users.User) string {
	if plans.NormalizeKey(u.Plan) != plans.KeyPro {
		return plans.KeyFree
	}
	switch stripe.NormalizeStripeStatus(u.StripeSubscriptionStatus) {
	case "active", "trialing", "past_due":
		return plans.KeyPro
	case "canceled":
		if u.CurrentPeriodEnd != nil && now.Before(*u.CurrentPeriodEnd) {
			return plans.KeyPro
		}
		return plans.KeyFree
	case "none":
		// granted by an admin, no subscription behind it
		return plans.KeyPro
	default:
		return plans.KeyFree
	}
}

func ComputeEffectiveAccessState(now time.Time, u users.User, betaEnabled bool) AccessState {
	if betaEnabled && !u.BetaAccess && !u.IsAdmin() {
		return AccessWaitlist
	}
	if EffectivePlan(now, u) == plans.KeyFree {
		return AccessFree
	}
	if stripe.NormalizeStripeStatus(u.StripeSubscriptionStatus) == "past_due" {
		return AccessGrace
	}
	return AccessPro
}
