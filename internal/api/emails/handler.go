// Package emails serves the editor endpoints: block structure to HTML and
// back, prompt intent classification, test sends and export.
package emails

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"mailforge/internal/domain/emailblock"
	"mailforge/internal/domain/emailhtml"
	"mailforge/internal/domain/intent"
	"mailforge/internal/infra/mailer"
)

const maxPromptLength = 4000

type Handler struct {
	mail mailer.Sender
}

func NewHandler(mail mailer.Sender) *Handler {
	return &Handler{mail: mail}
}

func bindStructure(c *gin.Context) (emailblock.Structure, bool) {
	var s emailblock.Structure
	if err := c.ShouldBindJSON(&s); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email structure: " + err.Error()})
		return s, false
	}
	return s, validStructure(c, s)
}

func validStructure(c *gin.Context, s emailblock.Structure) bool {
	err := s.Validate()
	if err == nil {
		return true
	}
	var verr emailblock.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email structure is invalid", "fields": verr})
		return false
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	return false
}

// POST /emails/convert
func (h *Handler) Convert(c *gin.Context) {
	s, ok := bindStructure(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"html": emailhtml.ToHTML(s)})
}

// POST /emails/parse
func (h *Handler) Parse(c *gin.Context) {
	var input struct {
		HTML string `json:"html" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "html is required"})
		return
	}

	s, err := emailhtml.FromHTML(input.HTML)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not parse email HTML"})
		return
	}
	c.JSON(http.StatusOK, s)
}

// POST /emails/classify
func (h *Handler) Classify(c *gin.Context) {
	var input struct {
		Prompt           string `json:"prompt" binding:"required"`
		HasExistingEmail bool   `json:"hasExistingEmail"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		return
	}
	if len(input.Prompt) > maxPromptLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("prompt must be at most %d characters", maxPromptLength)})
		return
	}

	c.JSON(http.StatusOK, intent.Classify(input.Prompt, input.HasExistingEmail))
}

// POST /emails/send takes either htmlContent or a block structure.
func (h *Handler) Send(c *gin.Context) {
	var input struct {
		To          string                `json:"to" binding:"required"`
		Subject     string                `json:"subject" binding:"required,max=255"`
		HTMLContent string                `json:"htmlContent"`
		Structure   *emailblock.Structure `json:"structure"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to and subject are required"})
		return
	}

	to := strings.TrimSpace(input.To)
	if !mailer.ValidAddress(to) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email address"})
		return
	}

	var body string
	switch {
	case input.Structure != nil:
		if !validStructure(c, *input.Structure) {
			return
		}
		s := *input.Structure
		if s.Subject == "" {
			s.Subject = input.Subject
		}
		body = emailhtml.ToHTML(s)
	case strings.TrimSpace(input.HTMLContent) != "":
		body = emailhtml.SanitizeHTML(input.HTMLContent)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "htmlContent or structure is required"})
		return
	}

	msg := mailer.Message{To: to, Subject: strings.TrimSpace(input.Subject), HTML: body, Tag: "test-send"}
	if err := msg.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if err := h.mail.Send(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "send test email", slog.String("to", to), slog.Any("error", err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to send email"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Email sent", "to": to})
}

// POST /emails/export, ?download=1 returns the document as an attachment.
func (h *Handler) Export(c *gin.Context) {
	s, ok := bindStructure(c)
	if !ok {
		return
	}
	doc := emailhtml.ToHTML(s)

	if c.Query("download") == "1" {
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, exportFilename(s.Subject)))
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(doc))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"html":      doc,
		"blocks":    len(s.Blocks),
		"fragments": emailhtml.Fragments(doc),
	})
}

var (
	nonSlug   = regexp.MustCompile(`[^a-z0-9\-]+`)
	multiDash = regexp.MustCompile(`-+`)
)

// exportFilename turns the subject into a download name, "Spring Sale" ->
// "spring-sale.html".
func exportFilename(subject string) string {
	base := strings.ToLower(strings.TrimSpace(subject))
	base = strings.NewReplacer(" ", "-", "_", "-").Replace(base)
	base = nonSlug.ReplaceAllString(base, "")
	base = multiDash.ReplaceAllString(base, "-")
	if len(base) > 60 {
		base = base[:60]
	}
	base = strings.Trim(base, "-")

	if base == "" {
		base = "email"
	}
	return base + ".html"
}
