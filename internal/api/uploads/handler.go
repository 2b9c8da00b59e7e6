// Package uploads issues presigned URLs so the browser can PUT editor images
// straight to object storage.
package uploads

import (
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"mailforge/internal/app/http/middleware"
	"mailforge/internal/infra/storage"
)

const (
	MaxUploadSize = 10 << 20

	defaultUploadTTL = 15 * time.Minute
	// S3 SigV4 caps presigned URLs at seven days.
	readURLTTL = 7 * 24 * time.Hour
)

var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

type Handler struct {
	storage   storage.Presigner
	uploadTTL time.Duration
	publicURL string
	now       func() time.Time
}

func NewHandler(p storage.Presigner, uploadTTL time.Duration, publicURL string) *Handler {
	if uploadTTL <= 0 {
		uploadTTL = defaultUploadTTL
	}
	return &Handler{storage: p, uploadTTL: uploadTTL, publicURL: publicURL, now: time.Now}
}

// POST /uploads/presign
func (h *Handler) Presign(c *gin.Context) {
	var input struct {
		Filename    string `json:"filename" binding:"required,max=255"`
		ContentType string `json:"contentType" binding:"required"`
		Size        int64  `json:"size" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "filename, contentType and size are required"})
		return
	}

	contentType := strings.ToLower(strings.TrimSpace(input.ContentType))
	ext, ok := extensions[contentType]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PNG, JPEG, GIF and WebP images can be uploaded"})
		return
	}
	if input.Size > MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File is larger than 10 MB"})
		return
	}

	userID := c.GetUint(middleware.KeyUserID)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	ctx := c.Request.Context()
	key := objectKey(userID, input.Filename, ext)
	uploadURL, err := h.storage.PresignPut(ctx, key, contentType, h.uploadTTL)
	if err != nil {
		slog.ErrorContext(ctx, "presign upload", slog.String("key", key), slog.Any("error", err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Could not prepare upload"})
		return
	}

	publicURL, err := h.readURL(c, key)
	if err != nil {
		slog.ErrorContext(ctx, "presign read url", slog.String("key", key), slog.Any("error", err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Could not prepare upload"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"uploadUrl": uploadURL,
		"method":    http.MethodPut,
		"headers":   gin.H{"Content-Type": contentType},
		"key":       key,
		"publicUrl": publicURL,
		"expiresAt": h.now().Add(h.uploadTTL).UTC(),
	})
}

func (h *Handler) readURL(c *gin.Context, key string) (string, error) {
	if h.publicURL != "" {
		return strings.TrimRight(h.publicURL, "/") + "/" + key, nil
	}
	return h.storage.PresignGet(c.Request.Context(), key, readURLTTL)
}

// objectKey is users/<id>/<uuid><ext>. A matching extension on the client's
// filename is kept as typed (".jpeg" stays ".jpeg").
func objectKey(userID uint, filename, ext string) string {
	if fe := strings.ToLower(path.Ext(filename)); fe == ext || (ext == ".jpg" && fe == ".jpeg") {
		ext = fe
	}
	return "users/" + strconv.FormatUint(uint64(userID), 10) + "/" + uuid.NewString() + ext
}
