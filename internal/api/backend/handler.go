// Package backend proxies editor calls (AI generation, bookmarks, image
// search, share links) to the external REST API on behalf of the signed-in
// user.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"mailforge/internal/app/http/middleware"
	"mailforge/internal/domain/access"
	"mailforge/internal/domain/emailblock"
	"mailforge/internal/domain/emailhtml"
	"mailforge/internal/infra/backendapi"
)

const maxPayloadBytes = 1 << 20

type API interface {
	ListBookmarks(ctx context.Context) (json.RawMessage, error)
	CreateBookmark(ctx context.Context, payload any) (json.RawMessage, error)
	DeleteBookmark(ctx context.Context, id string) (json.RawMessage, error)
	Generate(ctx context.Context, payload any) (json.RawMessage, error)
	Suggestions(ctx context.Context, payload any) (json.RawMessage, error)
	RateLimit(ctx context.Context) (json.RawMessage, error)
	SearchImages(ctx context.Context, query string, page int) (json.RawMessage, error)
	CreateShare(ctx context.Context, payload any) (json.RawMessage, error)
	GetShare(ctx context.Context, id string) (json.RawMessage, error)
}

type Handler struct {
	api         API
	betaEnabled bool
	now         func() time.Time
}

func NewHandler(api API, betaEnabled bool) *Handler {
	return &Handler{api: api, betaEnabled: betaEnabled, now: time.Now}
}

// identity attaches the caller's token, id and effective plan for the
// backend's own auth and rate limiting.
func (h *Handler) identity(c *gin.Context) context.Context {
	id := backendapi.Identity{
		Token:  c.GetString(middleware.KeyToken),
		UserID: c.GetUint(middleware.KeyUserID),
		Email:  c.GetString(middleware.KeyEmail),
	}
	if user, ok := middleware.CurrentUser(c); ok {
		id.Plan = access.ComputePolicy(h.now(), user, h.betaEnabled).Plan
		if id.Email == "" {
			id.Email = user.Email
		}
	}
	return backendapi.WithIdentity(c.Request.Context(), id)
}

// jsonObject reads the request body as an opaque JSON object.
func jsonObject(c *gin.Context) (json.RawMessage, bool) {
	raw, err := c.GetRawData()
	if err != nil || len(raw) > maxPayloadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return nil, false
	}
	trimmed := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(trimmed, "{") || !json.Valid(raw) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Request body must be a JSON object"})
		return nil, false
	}
	return json.RawMessage(raw), true
}

func (h *Handler) respond(c *gin.Context, op string, raw json.RawMessage, err error, okStatus int) {
	if err != nil {
		writeError(c, op, err)
		return
	}
	c.Data(okStatus, "application/json; charset=utf-8", raw)
}

func writeError(c *gin.Context, op string, err error) {
	ctx := c.Request.Context()
	var ue *backendapi.UpstreamError
	switch {
	case errors.As(err, &ue):
		slog.WarnContext(ctx, "backend "+op, slog.Int("upstream_status", ue.Status), slog.String("message", ue.Message))
		msg := ue.Message
		if msg == "" {
			msg = "Backend request failed"
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": msg, "upstream_status": ue.Status})
	case errors.Is(err, backendapi.ErrTimeout):
		slog.ErrorContext(ctx, "backend "+op, slog.Any("error", err))
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Backend did not respond in time"})
	case errors.Is(err, backendapi.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	default:
		slog.ErrorContext(ctx, "backend "+op, slog.Any("error", err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Backend is unreachable"})
	}
}

// GET /bookmarks
func (h *Handler) ListBookmarks(c *gin.Context) {
	raw, err := h.api.ListBookmarks(h.identity(c))
	h.respond(c, "list bookmarks", raw, err, http.StatusOK)
}

// POST /bookmarks
func (h *Handler) CreateBookmark(c *gin.Context) {
	body, ok := jsonObject(c)
	if !ok {
		return
	}
	raw, err := h.api.CreateBookmark(h.identity(c), body)
	h.respond(c, "create bookmark", raw, err, http.StatusCreated)
}

// DELETE /bookmarks/:id
func (h *Handler) DeleteBookmark(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Bookmark id is required"})
		return
	}
	if _, err := h.api.DeleteBookmark(h.identity(c), id); err != nil {
		writeError(c, "delete bookmark", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /ai/generate
func (h *Handler) Generate(c *gin.Context) {
	body, ok := jsonObject(c)
	if !ok {
		return
	}
	raw, err := h.api.Generate(h.identity(c), body)
	h.respond(c, "generate", raw, err, http.StatusOK)
}

// POST /ai/suggestions
func (h *Handler) Suggestions(c *gin.Context) {
	body, ok := jsonObject(c)
	if !ok {
		return
	}
	raw, err := h.api.Suggestions(h.identity(c), body)
	h.respond(c, "suggestions", raw, err, http.StatusOK)
}

// GET /ai/rate-limit
func (h *Handler) RateLimit(c *gin.Context) {
	raw, err := h.api.RateLimit(h.identity(c))
	h.respond(c, "rate limit", raw, err, http.StatusOK)
}

// GET /images/search?q=&page=
func (h *Handler) SearchImages(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	page := 1
	if v := c.Query("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "page must be a positive integer"})
			return
		}
		page = n
	}
	raw, err := h.api.SearchImages(h.identity(c), q, page)
	h.respond(c, "image search", raw, err, http.StatusOK)
}

// POST /shares
func (h *Handler) CreateShare(c *gin.Context) {
	body, ok := jsonObject(c)
	if !ok {
		return
	}
	raw, err := h.api.CreateShare(h.identity(c), body)
	h.respond(c, "create share", raw, err, http.StatusCreated)
}

// GET /shares/:id is public. Stored html is sanitized; a share holding only
// a block structure gets html rendered from it.
func (h *Handler) GetShare(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Share id is required"})
		return
	}

	raw, err := h.api.GetShare(c.Request.Context(), id)
	if err != nil {
		var ue *backendapi.UpstreamError
		if errors.As(err, &ue) && ue.Status == http.StatusNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Share not found"})
			return
		}
		writeError(c, "get share", err)
		return
	}

	share, err := renderShare(raw)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "render share", slog.String("id", id), slog.Any("error", err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Share could not be displayed"})
		return
	}
	c.JSON(http.StatusOK, share)
}

func renderShare(raw json.RawMessage) (map[string]json.RawMessage, error) {
	var share map[string]json.RawMessage
	if err := json.Unmarshal(raw, &share); err != nil {
		return nil, err
	}
	if share == nil {
		return nil, errors.New("empty share")
	}

	var doc string
	if v, ok := share["html"]; ok {
		_ = json.Unmarshal(v, &doc)
	}
	if strings.TrimSpace(doc) != "" {
		doc = emailhtml.SanitizeHTML(doc)
	} else {
		v, ok := share["structure"]
		if !ok {
			return nil, errors.New("share has neither html nor structure")
		}
		var s emailblock.Structure
		if err := json.Unmarshal(v, &s); err != nil {
			return nil, err
		}
		doc = emailhtml.ToHTML(s)
	}

	encoded, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	share["html"] = encoded
	return share, nil
}
