// Package admin serves the operator dashboard: users, payments, plan grants
// and aggregate stats.
package admin

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"mailforge/internal/domain/access"
	"mailforge/internal/domain/beta"
	"mailforge/internal/domain/billing"
	"mailforge/internal/domain/plans"
	"mailforge/internal/domain/users"
)

type UserStore interface {
	List(ctx context.Context) ([]users.User, error)
	FindByID(ctx context.Context, id uint) (users.User, error)
	Update(ctx context.Context, id uint, updates map[string]any) error
	CountByPlan(ctx context.Context) (map[string]int64, error)
}

type PaymentStore interface {
	ListAll(ctx context.Context) ([]billing.Payment, error)
	ListForUser(ctx context.Context, userID uint) ([]billing.Payment, error)
	Revenue(ctx context.Context, since time.Time) (float64, error)
}

type BetaStats interface {
	Stats(ctx context.Context) (beta.Stats, error)
}

type Handler struct {
	users       UserStore
	payments    PaymentStore
	beta        BetaStats
	betaEnabled bool
	now         func() time.Time
}

func NewHandler(us UserStore, ps PaymentStore, bs BetaStats, betaEnabled bool) *Handler {
	return &Handler{users: us, payments: ps, beta: bs, betaEnabled: betaEnabled, now: time.Now}
}

type AdminUser struct {
	ID               uint       `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	Role             string     `json:"role"`
	IsVerified       bool       `json:"is_verified"`
	AuthProvider     string     `json:"auth_provider"`
	Plan             string     `json:"plan"`
	EffectivePlan    string     `json:"effective_plan"`
	AccessState      string     `json:"access_state"`
	BetaAccess       bool       `json:"beta_access"`
	StripeCustomerID *string    `json:"stripe_customer_id,omitempty"`
	StripeSubID      *string    `json:"stripe_subscription_id,omitempty"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`
	LastPlatform     string     `json:"last_platform,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

type AdminPayment struct {
	ID        uint    `json:"id"`
	UserID    uint    `json:"user_id"`
	Email     string  `json:"email"`
	Plan      string  `json:"plan"`
	AmountEUR float64 `json:"amount_eur"`
	Currency  string  `json:"currency"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"created_at"`
}

type AdminStats struct {
	TotalUsers    int64            `json:"total_users"`
	TotalRevenue  float64          `json:"total_revenue"`
	RecentRevenue float64          `json:"recent_revenue"`
	UsersPerPlan  map[string]int64 `json:"users_per_plan"`
	Beta          beta.Stats       `json:"beta"`
}

func (h *Handler) toAdminUser(u users.User) AdminUser {
	policy := access.ComputePolicy(h.now(), u, h.betaEnabled)
	return AdminUser{
		ID:               u.ID,
		Name:             u.Name,
		Email:            u.Email,
		Role:             u.Role,
		IsVerified:       u.IsVerified,
		AuthProvider:     u.AuthProvider,
		Plan:             plans.NormalizeKey(u.Plan),
		EffectivePlan:    policy.Plan,
		AccessState:      string(policy.State),
		BetaAccess:       u.BetaAccess,
		StripeCustomerID: u.StripeCustomerID,
		StripeSubID:      u.SubscriptionID,
		CurrentPeriodEnd: u.CurrentPeriodEnd,
		LastLoginAt:      u.LastLoginAt,
		LastPlatform:     u.LastPlatform,
		CreatedAt:        u.CreatedAt,
	}
}

// GET /admin/users
func (h *Handler) ListAllUsers(c *gin.Context) {
	list, err := h.users.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load users"})
		return
	}

	adminUsers := make([]AdminUser, 0, len(list))
	for _, u := range list {
		adminUsers = append(adminUsers, h.toAdminUser(u))
	}
	c.JSON(http.StatusOK, adminUsers)
}

// GET /admin/users/:id
func (h *Handler) GetUserDetails(c *gin.Context) {
	user, ok := h.userParam(c)
	if !ok {
		return
	}

	payments, err := h.payments.ListForUser(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch payments"})
		return
	}
	if payments == nil {
		payments = []billing.Payment{}
	}

	c.JSON(http.StatusOK, gin.H{
		"user":     h.toAdminUser(user),
		"payments": payments,
	})
}

// PATCH /admin/users/:id/plan grants or revokes pro by hand. A Stripe
// subscription, if any, keeps driving the plan through the webhook.
func (h *Handler) SetUserPlan(c *gin.Context) {
	var body struct {
		Plan string `json:"plan" binding:"required,oneof=free pro"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "plan must be free or pro"})
		return
	}
	user, ok := h.userParam(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := h.users.Update(ctx, user.ID, map[string]any{"plan": body.Plan}); err != nil {
		slog.ErrorContext(ctx, "admin set plan", slog.Uint64("user_id", uint64(user.ID)), slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update plan"})
		return
	}
	user.Plan = body.Plan
	slog.InfoContext(ctx, "admin set plan", slog.Uint64("user_id", uint64(user.ID)), slog.String("plan", body.Plan))

	c.JSON(http.StatusOK, h.toAdminUser(user))
}

// GET /admin/payments
func (h *Handler) ListAllPayments(c *gin.Context) {
	ctx := c.Request.Context()
	payments, err := h.payments.ListAll(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load payments"})
		return
	}
	list, err := h.users.List(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load users"})
		return
	}
	emails := make(map[uint]string, len(list))
	for _, u := range list {
		emails[u.ID] = u.Email
	}

	result := make([]AdminPayment, 0, len(payments))
	for _, p := range payments {
		result = append(result, AdminPayment{
			ID:        p.ID,
			UserID:    p.UserID,
			Email:     emails[p.UserID],
			Plan:      p.PlanKey,
			AmountEUR: p.AmountEUR,
			Currency:  p.Currency,
			Status:    p.Status,
			CreatedAt: p.CreatedAt.Format("2006-01-02 15:04"),
		})
	}

	c.JSON(http.StatusOK, result)
}

// GET /admin/stats
func (h *Handler) GetAdminStats(c *gin.Context) {
	ctx := c.Request.Context()
	var stats AdminStats
	var err error

	if stats.UsersPerPlan, err = h.users.CountByPlan(ctx); err != nil {
		h.statsFailed(c, "count users", err)
		return
	}
	for _, n := range stats.UsersPerPlan {
		stats.TotalUsers += n
	}
	if stats.TotalRevenue, err = h.payments.Revenue(ctx, time.Time{}); err != nil {
		h.statsFailed(c, "total revenue", err)
		return
	}
	if stats.RecentRevenue, err = h.payments.Revenue(ctx, h.now().AddDate(0, 0, -30)); err != nil {
		h.statsFailed(c, "recent revenue", err)
		return
	}
	if stats.Beta, err = h.beta.Stats(ctx); err != nil {
		h.statsFailed(c, "beta stats", err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) statsFailed(c *gin.Context, what string, err error) {
	slog.ErrorContext(c.Request.Context(), "admin stats: "+what, slog.Any("error", err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load stats"})
}

func (h *Handler) userParam(c *gin.Context) (users.User, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return users.User{}, false
	}
	user, err := h.users.FindByID(c.Request.Context(), uint(id))
	if errors.Is(err, users.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return users.User{}, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return users.User{}, false
	}
	return user, true
}
