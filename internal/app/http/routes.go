package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	adminapi "mailforge/internal/api/admin"
	authapi "mailforge/internal/api/auth"
	backendapi "mailforge/internal/api/backend"
	betaapi "mailforge/internal/api/beta"
	"mailforge/internal/api/billing"
	emailsapi "mailforge/internal/api/emails"
	"mailforge/internal/api/plans"
	stripewebhooks "mailforge/internal/api/stripewebhook"
	uploadsapi "mailforge/internal/api/uploads"
	"mailforge/internal/api/users"
	"mailforge/internal/app/http/middleware"
	"mailforge/internal/domain/access"
)

// Handlers groups the API handlers. OIDC and Uploads are optional and their
// routes are skipped when nil.
type Handlers struct {
	Auth    *authapi.Handler
	OIDC    *authapi.OIDC
	Beta    *betaapi.Handler
	Emails  *emailsapi.Handler
	Uploads *uploadsapi.Handler
	Backend *backendapi.Handler
	Billing *billing.Handler
	Webhook *stripewebhooks.Handler
	Plans   *plans.Handler
	Users   *users.Handler
	Admin   *adminapi.Handler
}

type Options struct {
	JWTSecret   string
	BetaEnabled bool
	Users       middleware.UserFinder
}

// fields the input sanitizer must leave untouched
var rawFields = []string{"password", "new_password", "old_password", "token", "device_key"}

func RegisterRoutes(r *gin.Engine, h Handlers, opts Options) {
	capability := func(name string) gin.HandlerFunc {
		return middleware.RequireCapability(name, opts.BetaEnabled)
	}

	r.POST("/webhook", h.Webhook.StripeWebhook)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/shares/:id", h.Backend.GetShare)

	public := r.Group("/")
	public.Use(middleware.SanitizeAndCleanInputMiddleware(rawFields...))

	public.POST("/register", h.Auth.Register)
	public.POST("/login", h.Auth.Login)
	public.GET("/verify", h.Auth.VerifyEmail)
	public.POST("/resend-verification", h.Auth.ResendVerification)
	public.POST("/request-password-reset", h.Auth.RequestPasswordReset)
	public.POST("/reset-password", h.Auth.ResetPassword)
	public.POST("/auth/device-info", h.Auth.DeviceInfo)
	public.GET("/plans", h.Plans.ListPlans)
	public.POST("/beta/register", h.Beta.Register)

	if h.OIDC != nil {
		public.GET("/auth/oidc/start", h.OIDC.Start)
		public.GET("/auth/oidc/callback", h.OIDC.Callback)
	}

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(opts.JWTSecret), middleware.LoadCurrentUser(opts.Users))
	auth.GET("/me", h.Users.GetCurrentUser)
	auth.POST("/change-password", h.Auth.ChangePassword)
	auth.POST("/beta/redeem", h.Beta.Redeem)
	auth.GET("/beta/status", h.Beta.Status)

	auth.POST("/billing/checkout", h.Billing.CreateCheckoutSession)
	auth.POST("/billing/portal", h.Billing.CreateBillingPortal)
	auth.POST("/billing/cancel", h.Billing.CancelSubscription)
	auth.GET("/billing/payments", h.Billing.GetPaymentHistory)

	if h.OIDC != nil {
		auth.POST("/auth/oidc/refresh", h.OIDC.Refresh)
		auth.GET("/auth/oidc/session", h.OIDC.Session)
	}

	// Past the beta wall
	app := auth.Group("/")
	app.Use(middleware.RequireBetaAccess(opts.BetaEnabled))

	app.POST("/emails/convert", capability(access.CapEdit), h.Emails.Convert)
	app.POST("/emails/parse", capability(access.CapEdit), h.Emails.Parse)
	app.POST("/emails/classify", capability(access.CapEdit), h.Emails.Classify)
	app.POST("/emails/export", capability(access.CapExport), h.Emails.Export)
	app.POST("/emails/send", capability(access.CapSend), h.Emails.Send)

	if h.Uploads != nil {
		app.POST("/uploads/presign", capability(access.CapUpload), h.Uploads.Presign)
	}

	app.GET("/bookmarks", capability(access.CapBookmarks), h.Backend.ListBookmarks)
	app.POST("/bookmarks", capability(access.CapBookmarks), h.Backend.CreateBookmark)
	app.DELETE("/bookmarks/:id", capability(access.CapBookmarks), h.Backend.DeleteBookmark)
	app.POST("/ai/generate", capability(access.CapGenerate), h.Backend.Generate)
	app.POST("/ai/suggestions", capability(access.CapSuggestions), h.Backend.Suggestions)
	app.GET("/ai/rate-limit", capability(access.CapGenerate), h.Backend.RateLimit)
	app.GET("/images/search", capability(access.CapEdit), h.Backend.SearchImages)
	app.POST("/shares", capability(access.CapShare), h.Backend.CreateShare)

	// Admin routes
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(opts.JWTSecret), middleware.RequireRole("admin"))
	admin.GET("/users", h.Admin.ListAllUsers)
	admin.GET("/users/:id", h.Admin.GetUserDetails)
	admin.PATCH("/users/:id/plan", h.Admin.SetUserPlan)
	admin.GET("/payments", h.Admin.ListAllPayments)
	admin.GET("/stats", h.Admin.GetAdminStats)
	admin.POST("/sync-plans", h.Plans.SyncPlansFromStripe)

	admin.POST("/beta/codes", h.Beta.CreateCodes)
	admin.GET("/beta/codes", h.Beta.ListCodes)
	admin.GET("/beta/registrations", h.Beta.ListRegistrations)
	admin.POST("/beta/registrations/:id/invite", h.Beta.Invite)
	admin.POST("/beta/registrations/:id/decline", h.Beta.Decline)
	admin.GET("/beta/stats", h.Beta.Stats)
}
