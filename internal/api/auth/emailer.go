package auth

import (
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"mailforge/internal/domain/users"
	"mailforge/internal/infra/mailer"
)

func (h *Handler) sendVerification(c *gin.Context, user users.User) error {
	token, err := h.storeToken(c, user.ID, users.TokenVerifyEmail, users.VerifyEmailTTL)
	if err != nil {
		return err
	}
	link := strings.TrimRight(h.cfg.PublicURL, "/") + "/verify?token=" + url.QueryEscape(token)
	return h.mail.Send(c.Request.Context(), mailer.VerificationNotice(user.Email, user.Name, link).Message())
}

func (h *Handler) sendPasswordReset(c *gin.Context, user users.User) error {
	token, err := h.storeToken(c, user.ID, users.TokenPasswordReset, users.PasswordResetTTL)
	if err != nil {
		return err
	}
	link := strings.TrimRight(h.cfg.FrontendURL, "/") + "/reset-password?token=" + url.QueryEscape(token)
	return h.mail.Send(c.Request.Context(), mailer.PasswordResetNotice(user.Email, user.Name, link).Message())
}

func (h *Handler) storeToken(c *gin.Context, userID uint, typ string, ttl time.Duration) (string, error) {
	token, err := generateVerificationToken()
	if err != nil {
		return "", err
	}
	t := users.VerificationToken{
		UserID:    userID,
		Token:     token,
		Type:      typ,
		ExpiresAt: h.now().Add(ttl),
	}
	if err := h.users.ReplaceToken(c.Request.Context(), &t); err != nil {
		return "", err
	}
	return token, nil
}
