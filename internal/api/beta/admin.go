package beta

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"mailforge/internal/domain/beta"
	"mailforge/internal/infra/mailer"
)

// POST /admin/beta/codes
func (h *Handler) CreateCodes(c *gin.Context) {
	var input struct {
		Code      string     `json:"code"`
		Count     int        `json:"count" binding:"min=0,max=100"`
		MaxUses   int        `json:"max_uses" binding:"min=0"`
		ExpiresAt *time.Time `json:"expires_at"`
		Note      string     `json:"note" binding:"max=255"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.ExpiresAt != nil && !input.ExpiresAt.After(h.now()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expires_at must be in the future"})
		return
	}

	count := input.Count
	if count == 0 {
		count = 1
	}
	if input.Code != "" && count > 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "count must be 1 when code is given"})
		return
	}

	ctx := c.Request.Context()
	created := make([]beta.Code, 0, count)
	for i := 0; i < count; i++ {
		code, err := h.codeFor(input.Code)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		bc := beta.Code{
			Code:      code,
			MaxUses:   input.MaxUses,
			ExpiresAt: input.ExpiresAt,
			Active:    true,
			Note:      strings.TrimSpace(input.Note),
		}
		if err := h.store.CreateCode(ctx, &bc); err != nil {
			slog.ErrorContext(ctx, "create beta code", slog.Any("error", err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create code", "created": created})
			return
		}
		created = append(created, bc)
	}

	c.JSON(http.StatusCreated, created)
}

func (h *Handler) codeFor(requested string) (string, error) {
	if requested != "" {
		return beta.NormalizeCode(requested)
	}
	return beta.GenerateCode()
}

// GET /admin/beta/codes
func (h *Handler) ListCodes(c *gin.Context) {
	codes, err := h.store.ListCodes(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load codes"})
		return
	}
	c.JSON(http.StatusOK, codes)
}

// GET /admin/beta/registrations?status=pending
func (h *Handler) ListRegistrations(c *gin.Context) {
	status := c.Query("status")
	switch status {
	case "", beta.RegistrationPending, beta.RegistrationInvited, beta.RegistrationDeclined:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
		return
	}

	list, err := h.store.ListRegistrations(c.Request.Context(), status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load registrations"})
		return
	}
	c.JSON(http.StatusOK, list)
}

// POST /admin/beta/registrations/:id/invite mints a single-use code and mails it.
func (h *Handler) Invite(c *gin.Context) {
	reg, ok := h.registration(c)
	if !ok {
		return
	}
	if reg.Status == beta.RegistrationInvited {
		c.JSON(http.StatusConflict, gin.H{"error": "Registration was already invited"})
		return
	}

	ctx := c.Request.Context()
	code, err := beta.GenerateCode()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate code"})
		return
	}
	bc := beta.Code{Code: code, MaxUses: 1, Active: true, Note: "invite for " + reg.Email}
	if err := h.store.CreateCode(ctx, &bc); err != nil {
		slog.ErrorContext(ctx, "create invite code", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create code"})
		return
	}

	notice := mailer.BetaInviteNotice(reg.Email, reg.Name, bc.Code, h.inviteLink(bc.Code))
	if err := h.mail.Send(ctx, notice.Message()); err != nil {
		slog.ErrorContext(ctx, "send beta invite", slog.String("email", reg.Email), slog.Any("error", err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to send invite email", "code": bc.Code})
		return
	}

	if err := h.store.SetRegistrationStatus(ctx, reg.ID, beta.RegistrationInvited); err != nil {
		slog.WarnContext(ctx, "mark registration invited", slog.Uint64("id", uint64(reg.ID)), slog.Any("error", err))
	}

	c.JSON(http.StatusOK, gin.H{"code": bc.Code, "email": reg.Email})
}

// POST /admin/beta/registrations/:id/decline
func (h *Handler) Decline(c *gin.Context) {
	reg, ok := h.registration(c)
	if !ok {
		return
	}
	if err := h.store.SetRegistrationStatus(c.Request.Context(), reg.ID, beta.RegistrationDeclined); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update registration"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": reg.ID, "status": beta.RegistrationDeclined})
}

// GET /admin/beta/stats
func (h *Handler) Stats(c *gin.Context) {
	st, err := h.store.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load beta stats"})
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) registration(c *gin.Context) (beta.Registration, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid registration id"})
		return beta.Registration{}, false
	}

	reg, err := h.store.FindRegistration(c.Request.Context(), uint(id))
	if errors.Is(err, beta.ErrRegistrationNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Registration not found"})
		return beta.Registration{}, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load registration"})
		return beta.Registration{}, false
	}
	return reg, true
}
