package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mailforge/internal/infra/devicecache"
)

// POST /auth/device-info
func (h *Handler) DeviceInfo(c *gin.Context) {
	var body struct {
		UserAgent string `json:"userAgent" binding:"max=512"`
		Platform  string `json:"platform" binding:"max=64"`
		Screen    string `json:"screen" binding:"max=32"`
		Timezone  string `json:"timezone" binding:"max=64"`
		Language  string `json:"language" binding:"max=32"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	info := devicecache.Info{
		UserAgent: body.UserAgent,
		Platform:  body.Platform,
		Screen:    body.Screen,
		Timezone:  body.Timezone,
		Language:  body.Language,
		IP:        c.ClientIP(),
	}
	if info.UserAgent == "" {
		info.UserAgent = c.Request.UserAgent()
	}

	key, err := h.devices.Put(c.Request.Context(), info)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "store device info", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store device info"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"device_key": key, "expires_in": int(h.cfg.DeviceTTL.Seconds())})
}

// recordLogin stamps the login time and, when deviceKey points at a stored
// entry, the device it came from. Failures are logged, never surfaced.
func (h *Handler) recordLogin(c *gin.Context, userID uint, deviceKey string) {
	recordLogin(c, h.users, h.devices, userID, deviceKey, h.now())
}

func recordLogin(c *gin.Context, store UserStore, devices devicecache.Store, userID uint, deviceKey string, now time.Time) {
	ctx := c.Request.Context()
	updates := map[string]any{"last_login_at": now, "last_ip": c.ClientIP()}

	if deviceKey != "" && devices != nil {
		info, err := devices.Take(ctx, deviceKey)
		switch {
		case err == nil:
			updates["last_user_agent"] = info.UserAgent
			updates["last_platform"] = info.Platform
			updates["last_screen"] = info.Screen
			updates["last_timezone"] = info.Timezone
			updates["last_language"] = info.Language
		case errors.Is(err, devicecache.ErrNotFound):
		default:
			slog.WarnContext(ctx, "read device info", slog.Any("error", err))
		}
	}

	if err := store.Update(ctx, userID, updates); err != nil {
		slog.WarnContext(ctx, "record login", slog.Uint64("user_id", uint64(userID)), slog.Any("error", err))
	}
}
