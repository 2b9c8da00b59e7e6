package users

import "time"

type MeResponse struct {
	User    UserDTO    `json:"user"`
	Billing BillingDTO `json:"billing"`
	Beta    BetaDTO    `json:"beta"`
	Access  AccessDTO  `json:"access"`
}

/* ---------- USER ---------- */

type UserDTO struct {
	ID           uint       `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Role         string     `json:"role"`
	IsVerified   bool       `json:"is_verified"`
	AuthProvider string     `json:"auth_provider"`
	HasPassword  bool       `json:"has_password"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

/* ---------- BILLING ---------- */

type BillingDTO struct {
	// Plan is the stored plan; EffectivePlan is what the user gets right now.
	Plan          string           `json:"plan"`
	EffectivePlan string           `json:"effective_plan"`
	HasCustomer   bool             `json:"has_customer"`
	Subscription  *SubscriptionDTO `json:"subscription"`
}

type SubscriptionDTO struct {
	Status               string     `json:"status"`
	CurrentPeriodEnd     *time.Time `json:"current_period_end"`
	StripeSubscriptionID *string    `json:"stripe_subscription_id"`
	CancelsAtPeriodEnd   bool       `json:"cancels_at_period_end"`
}

/* ---------- BETA ---------- */

type BetaDTO struct {
	Enabled    bool       `json:"enabled"`
	HasAccess  bool       `json:"has_access"`
	Code       *string    `json:"code"`
	RedeemedAt *time.Time `json:"redeemed_at"`
}

/* ---------- ACCESS ---------- */

type AccessDTO struct {
	State        string     `json:"state"` // waitlist|free|pro|grace
	Capabilities []string   `json:"capabilities"`
	Limits       *LimitsDTO `json:"limits,omitempty"`
}

type LimitsDTO struct {
	DailyGenerations int  `json:"daily_generations"`
	MaxBookmarks     int  `json:"max_bookmarks"`
	ShowBranding     bool `json:"show_branding"`
}
