package auth

import (
	"context"
	"time"

	"mailforge/internal/domain/users"
)

// UserStore is implemented by users.Repository.
type UserStore interface {
	Create(ctx context.Context, u *users.User) error
	Save(ctx context.Context, u *users.User) error
	Update(ctx context.Context, id uint, updates map[string]any) error
	FindByID(ctx context.Context, id uint) (users.User, error)
	FindByEmail(ctx context.Context, email string) (users.User, error)
	FindByOIDCSubject(ctx context.Context, sub string) (users.User, error)
	ReplaceToken(ctx context.Context, t *users.VerificationToken) error
	FindToken(ctx context.Context, token, typ string) (users.VerificationToken, error)
	DeleteToken(ctx context.Context, id uint) error
}

type Config struct {
	JWTSecret     string
	JWTTTL        time.Duration
	PublicURL     string
	FrontendURL   string
	DeviceTTL     time.Duration
	SecureCookies bool
}
