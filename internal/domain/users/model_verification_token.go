package users

import "time"

const (
	TokenVerifyEmail   = "verify_email"
	TokenPasswordReset = "password_reset"

	VerifyEmailTTL   = 48 * time.Hour
	PasswordResetTTL = time.Hour
)

type VerificationToken struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"index"`
	User      User   `gorm:"constraint:OnDelete:CASCADE"`
	Token     string `gorm:"uniqueIndex"`
	Type      string `gorm:"index"`
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (t VerificationToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}
