package users

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	ProviderLocal = "local"
	ProviderOIDC  = "oidc"
)

type User struct {
	ID           uint `gorm:"primaryKey"`
	Name         string
	Email        string  `gorm:"not null;uniqueIndex:idx_users_email"`
	Password     *string `gorm:""`
	AuthProvider string  `gorm:"type:varchar(20);not null;default:'local'"`
	OIDCSubject  *string `gorm:"column:oidc_subject;uniqueIndex:idx_users_oidc_subject"`
	// Latest refresh token issued by the identity provider; replaced on rotation.
	OIDCRefreshToken *string `gorm:"column:oidc_refresh_token" json:"-"`
	Role             string  `gorm:"type:varchar(20);not null;default:'user'"`
	IsVerified       bool

	// free|pro, see plans.Key*
	Plan string `gorm:"type:varchar(20);not null;default:'free'"`

	BetaAccess     bool       `gorm:"not null;default:false"`
	BetaCode       *string    `gorm:"column:beta_code"`
	BetaRedeemedAt *time.Time `gorm:"column:beta_redeemed_at"`

	StripeCustomerID         *string    `gorm:"column:stripe_customer_id;uniqueIndex:idx_users_stripe_customer_id"`
	SubscriptionID           *string    `gorm:"column:subscription_id;uniqueIndex:idx_users_subscription_id"`
	StripeSubscriptionStatus *string    `gorm:"column:stripe_subscription_status"`
	CurrentPeriodEnd         *time.Time `gorm:"column:current_period_end"`

	LastLoginAt   *time.Time `gorm:"column:last_login_at"`
	LastUserAgent string     `gorm:"column:last_user_agent"`
	LastPlatform  string     `gorm:"column:last_platform"`
	LastScreen    string     `gorm:"column:last_screen"`
	LastTimezone  string     `gorm:"column:last_timezone"`
	LastLanguage  string     `gorm:"column:last_language"`
	LastIP        string     `gorm:"column:last_ip"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

func (u User) HasPassword() bool { return u.Password != nil && *u.Password != "" }
