package beta

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"mailforge/internal/app/http/middleware"
	"mailforge/internal/domain/beta"
	"mailforge/internal/infra/mailer"
)

// Store is implemented by beta.Repository.
type Store interface {
	CreateCode(ctx context.Context, c *beta.Code) error
	ListCodes(ctx context.Context) ([]beta.Code, error)
	Redeem(ctx context.Context, code string, userID uint, now time.Time) error
	CreateRegistration(ctx context.Context, reg *beta.Registration) error
	FindRegistration(ctx context.Context, id uint) (beta.Registration, error)
	ListRegistrations(ctx context.Context, status string) ([]beta.Registration, error)
	SetRegistrationStatus(ctx context.Context, id uint, status string) error
	Stats(ctx context.Context) (beta.Stats, error)
}

type Handler struct {
	store       Store
	mail        mailer.Sender
	enabled     bool
	frontendURL string
	now         func() time.Time
}

func NewHandler(store Store, mail mailer.Sender, enabled bool, frontendURL string) *Handler {
	return &Handler{store: store, mail: mail, enabled: enabled, frontendURL: frontendURL, now: time.Now}
}

// POST /beta/register
func (h *Handler) Register(c *gin.Context) {
	var input struct {
		Name    string `json:"name" binding:"required,max=120"`
		Email   string `json:"email" binding:"required,email"`
		Company string `json:"company" binding:"max=120"`
		Role    string `json:"role" binding:"max=120"`
		UseCase string `json:"useCase" binding:"max=2000"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if !mailer.ValidAddress(email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email format"})
		return
	}

	ctx := c.Request.Context()
	reg := beta.Registration{
		Name:    strings.TrimSpace(input.Name),
		Email:   email,
		Company: strings.TrimSpace(input.Company),
		Role:    strings.TrimSpace(input.Role),
		UseCase: strings.TrimSpace(input.UseCase),
		Status:  beta.RegistrationPending,
	}
	if err := h.store.CreateRegistration(ctx, &reg); err != nil {
		if errors.Is(err, beta.ErrAlreadyRegistered) {
			c.JSON(http.StatusConflict, gin.H{"error": "This email is already on the beta list"})
			return
		}
		slog.ErrorContext(ctx, "beta registration", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save registration"})
		return
	}

	if err := h.mail.Send(ctx, mailer.BetaAcknowledgementNotice(reg.Email, reg.Name).Message()); err != nil {
		slog.WarnContext(ctx, "beta acknowledgement email", slog.String("email", reg.Email), slog.Any("error", err))
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Thanks! You're on the list.", "id": reg.ID})
}

// POST /beta/redeem
func (h *Handler) Redeem(c *gin.Context) {
	var input struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Access code is required"})
		return
	}

	code, err := beta.NormalizeCode(input.Code)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	if user.BetaAccess {
		c.JSON(http.StatusOK, gin.H{"beta_access": true, "message": "Beta access already granted"})
		return
	}

	ctx := c.Request.Context()
	err = h.store.Redeem(ctx, code, user.ID, h.now())
	switch {
	case err == nil:
	case errors.Is(err, beta.ErrCodeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case errors.Is(err, beta.ErrCodeInactive), errors.Is(err, beta.ErrCodeExpired), errors.Is(err, beta.ErrCodeExhausted):
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
		return
	default:
		slog.ErrorContext(ctx, "redeem beta code", slog.Uint64("user_id", uint64(user.ID)), slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to redeem code"})
		return
	}

	slog.InfoContext(ctx, "beta code redeemed", slog.Uint64("user_id", uint64(user.ID)), slog.String("code", code))
	c.JSON(http.StatusOK, gin.H{"beta_access": true})
}

// GET /beta/status
func (h *Handler) Status(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"enabled":     h.enabled,
		"has_access":  !h.enabled || user.BetaAccess || user.IsAdmin(),
		"code":        user.BetaCode,
		"redeemed_at": user.BetaRedeemedAt,
	})
}

func (h *Handler) inviteLink(code string) string {
	return strings.TrimRight(h.frontendURL, "/") + "/beta?code=" + url.QueryEscape(code)
}
