package users

import (
	"mailforge/internal/domain/access"
	"mailforge/internal/domain/plans"
	"mailforge/internal/domain/users"
	"mailforge/internal/infra/stripe"
)

func BuildUserDTO(u users.User) UserDTO {
	return UserDTO{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Role:         u.Role,
		IsVerified:   u.IsVerified,
		AuthProvider: u.AuthProvider,
		HasPassword:  u.HasPassword(),
		LastLoginAt:  u.LastLoginAt,
		CreatedAt:    u.CreatedAt,
	}
}

func BuildBillingDTO(u users.User, policy access.Policy) BillingDTO {
	return BillingDTO{
		Plan:          plans.NormalizeKey(u.Plan),
		EffectivePlan: policy.Plan,
		HasCustomer:   u.StripeCustomerID != nil && *u.StripeCustomerID != "",
		Subscription:  BuildSubscriptionDTO(u),
	}
}

func BuildSubscriptionDTO(u users.User) *SubscriptionDTO {
	if u.SubscriptionID == nil || *u.SubscriptionID == "" {
		return nil
	}
	status := stripe.NormalizeStripeStatus(u.StripeSubscriptionStatus)
	return &SubscriptionDTO{
		Status:               status,
		CurrentPeriodEnd:     u.CurrentPeriodEnd,
		StripeSubscriptionID: u.SubscriptionID,
		CancelsAtPeriodEnd:   status == "canceled" && u.CurrentPeriodEnd != nil,
	}
}

func BuildBetaDTO(u users.User, enabled bool) BetaDTO {
	return BetaDTO{
		Enabled:    enabled,
		HasAccess:  !enabled || u.BetaAccess || u.IsAdmin(),
		Code:       u.BetaCode,
		RedeemedAt: u.BetaRedeemedAt,
	}
}

func BuildAccessDTO(policy access.Policy) AccessDTO {
	// map limits -> dto (only when not nil)
	var limits *LimitsDTO
	if policy.Limits != nil {
		limits = &LimitsDTO{
			DailyGenerations: policy.Limits.DailyGenerations,
			MaxBookmarks:     policy.Limits.MaxBookmarks,
			ShowBranding:     policy.Limits.ShowBranding,
		}
	}
	return AccessDTO{
		State:        string(policy.State),
		Capabilities: policy.Capabilities,
		Limits:       limits,
	}
}
