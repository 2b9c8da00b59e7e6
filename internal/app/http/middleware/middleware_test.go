package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailforge/internal/domain/users"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signed(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"user_id": 42,
		"email":   "a@b.io",
		"role":    "user",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
}

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()

	expired := validClaims()
	expired["exp"] = time.Now().Add(-time.Minute).Unix()
	noUser := validClaims()
	delete(noUser, "user_id")

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "valid", header: "Bearer " + signed(t, testSecret, validClaims()), want: http.StatusOK},
		{name: "missing", header: "", want: http.StatusUnauthorized},
		{name: "no bearer prefix", header: signed(t, testSecret, validClaims()), want: http.StatusUnauthorized},
		{name: "wrong secret", header: "Bearer " + signed(t, "other", validClaims()), want: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + signed(t, testSecret, expired), want: http.StatusUnauthorized},
		{name: "no user id", header: "Bearer " + signed(t, testSecret, noUser), want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := gin.New()
			r.GET("/", AuthMiddleware(testSecret), func(c *gin.Context) {
				assert.Equal(t, uint(42), c.GetUint(KeyUserID))
				assert.Equal(t, "a@b.io", c.GetString(KeyEmail))
				assert.NotEmpty(t, c.GetString(KeyToken))
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	t.Parallel()

	admin := validClaims()
	admin["role"] = "admin"

	r := gin.New()
	r.GET("/", AuthMiddleware(testSecret), RequireRole("admin"), func(c *gin.Context) { c.Status(http.StatusOK) })

	for token, want := range map[string]int{
		signed(t, testSecret, admin):         http.StatusOK,
		signed(t, testSecret, validClaims()): http.StatusForbidden,
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code)
	}
}

type finderFunc func(ctx context.Context, id uint) (users.User, error)

func (f finderFunc) FindByID(ctx context.Context, id uint) (users.User, error) { return f(ctx, id) }

func TestLoadCurrentUserAndBetaGuard(t *testing.T) {
	t.Parallel()

	db := map[uint]users.User{
		1: {ID: 1, BetaAccess: true},
		2: {ID: 2},
		3: {ID: 3, Role: users.RoleAdmin},
	}
	finder := finderFunc(func(_ context.Context, id uint) (users.User, error) {
		if id == 99 {
			return users.User{}, errors.New("db down")
		}
		u, ok := db[id]
		if !ok {
			return users.User{}, users.ErrNotFound
		}
		return u, nil
	})

	build := func(enabled bool) *gin.Engine {
		r := gin.New()
		r.GET("/",
			func(c *gin.Context) { c.Set(KeyUserID, uint(atoiHeader(c))); c.Next() },
			LoadCurrentUser(finder),
			RequireBetaAccess(enabled),
			func(c *gin.Context) {
				u, ok := CurrentUser(c)
				assert.True(t, ok)
				c.JSON(http.StatusOK, gin.H{"id": u.ID})
			})
		return r
	}

	tests := []struct {
		uid     string
		enabled bool
		want    int
	}{
		{uid: "1", enabled: true, want: http.StatusOK},
		{uid: "2", enabled: true, want: http.StatusForbidden},
		{uid: "2", enabled: false, want: http.StatusOK},
		{uid: "3", enabled: true, want: http.StatusOK},
		{uid: "7", enabled: true, want: http.StatusUnauthorized},
		{uid: "99", enabled: true, want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Test-UID", tt.uid)
		build(tt.enabled).ServeHTTP(w, req)
		assert.Equal(t, tt.want, w.Code, "uid=%s enabled=%v", tt.uid, tt.enabled)
		if tt.want == http.StatusForbidden {
			assert.Contains(t, w.Body.String(), "beta_required")
		}
	}
}

func atoiHeader(c *gin.Context) int {
	n := 0
	for _, r := range c.GetHeader("X-Test-UID") {
		n = n*10 + int(r-'0')
	}
	return n
}

func TestSanitizeAndCleanInputMiddleware(t *testing.T) {
	t.Parallel()

	var got string
	r := gin.New()
	r.POST("/", SanitizeAndCleanInputMiddleware("password"), func(c *gin.Context) {
		b, _ := io.ReadAll(c.Request.Body)
		got = string(b)
		c.Status(http.StatusOK)
	})

	body := `{"name":"<b>Ann</b>","password":"<secret>","meta":{"company":"<script>x</script>Acme"},"tags":["<i>a</i>"],"n":3}`
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"name":"Ann","password":"<secret>","meta":{"company":"Acme"},"tags":["a"],"n":3}`, got)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{nope`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	r := gin.New()
	r.Use(RequestLogger(log))
	r.GET("/boom/:id", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom/1", nil))
	out := buf.String()
	assert.Contains(t, out, `"level":"ERROR"`)
	assert.Contains(t, out, `"path":"/boom/:id"`)
	assert.Contains(t, out, `"status":502`)
}

func TestRequireCapability(t *testing.T) {
	t.Parallel()

	active := "active"
	tests := []struct {
		name string
		user *users.User
		cap  string
		want int
	}{
		{name: "free user can export", user: &users.User{ID: 1, BetaAccess: true, Plan: "free"}, cap: "export", want: http.StatusOK},
		{name: "free user cannot share", user: &users.User{ID: 1, BetaAccess: true, Plan: "free"}, cap: "share", want: http.StatusForbidden},
		{name: "pro user can share", user: &users.User{ID: 1, BetaAccess: true, Plan: "pro", StripeSubscriptionStatus: &active}, cap: "share", want: http.StatusOK},
		{name: "waitlisted user", user: &users.User{ID: 1, Plan: "pro"}, cap: "edit", want: http.StatusForbidden},
		{name: "no user", cap: "edit", want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		r := gin.New()
		r.GET("/", func(c *gin.Context) {
			if tt.user != nil {
				SetCurrentUser(c, *tt.user)
			}
			c.Next()
		}, RequireCapability(tt.cap, true), func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, tt.want, w.Code, tt.name)
		if tt.want == http.StatusForbidden {
			assert.Contains(t, w.Body.String(), "upgrade_required")
		}
	}
}
