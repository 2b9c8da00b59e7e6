package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailforge/internal/app/http/middleware"
	"mailforge/internal/domain/users"
	"mailforge/internal/infra/backendapi"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type call struct {
	op       string
	identity backendapi.Identity
	payload  string
	arg      string
}

type fakeAPI struct {
	calls []call
	resp  json.RawMessage
	err   error
}

func (f *fakeAPI) record(ctx context.Context, op string, payload any, arg string) (json.RawMessage, error) {
	id, _ := backendapi.IdentityFrom(ctx)
	var p string
	if raw, ok := payload.(json.RawMessage); ok {
		p = string(raw)
	}
	f.calls = append(f.calls, call{op: op, identity: id, payload: p, arg: arg})
	if f.err != nil {
		return nil, f.err
	}
	if f.resp == nil {
		return json.RawMessage(`{}`), nil
	}
	return f.resp, nil
}

func (f *fakeAPI) ListBookmarks(ctx context.Context) (json.RawMessage, error) {
	return f.record(ctx, "list", nil, "")
}
func (f *fakeAPI) CreateBookmark(ctx context.Context, p any) (json.RawMessage, error) {
	return f.record(ctx, "create", p, "")
}
func (f *fakeAPI) DeleteBookmark(ctx context.Context, id string) (json.RawMessage, error) {
	return f.record(ctx, "delete", nil, id)
}
func (f *fakeAPI) Generate(ctx context.Context, p any) (json.RawMessage, error) {
	return f.record(ctx, "generate", p, "")
}
func (f *fakeAPI) Suggestions(ctx context.Context, p any) (json.RawMessage, error) {
	return f.record(ctx, "suggestions", p, "")
}
func (f *fakeAPI) RateLimit(ctx context.Context) (json.RawMessage, error) {
	return f.record(ctx, "rate-limit", nil, "")
}
func (f *fakeAPI) SearchImages(ctx context.Context, q string, page int) (json.RawMessage, error) {
	return f.record(ctx, "images", nil, q+"#"+strconv.Itoa(page))
}
func (f *fakeAPI) CreateShare(ctx context.Context, p any) (json.RawMessage, error) {
	return f.record(ctx, "share", p, "")
}
func (f *fakeAPI) GetShare(ctx context.Context, id string) (json.RawMessage, error) {
	return f.record(ctx, "get-share", nil, id)
}

func strp(s string) *string { return &s }

var proUser = users.User{
	ID: 9, Email: "ana@studio.io", Plan: "pro",
	StripeSubscriptionStatus: strp("active"), BetaAccess: true,
}

func newRouter(h *Handler, user *users.User) *gin.Engine {
	r := gin.New()
	r.GET("/shares/:id", h.GetShare)

	authed := r.Group("/", func(c *gin.Context) {
		if user != nil {
			c.Set(middleware.KeyUserID, user.ID)
			c.Set(middleware.KeyToken, "app-token")
			middleware.SetCurrentUser(c, *user)
		}
		c.Next()
	})
	authed.GET("/bookmarks", h.ListBookmarks)
	authed.POST("/bookmarks", h.CreateBookmark)
	authed.DELETE("/bookmarks/:id", h.DeleteBookmark)
	authed.POST("/ai/generate", h.Generate)
	authed.POST("/ai/suggestions", h.Suggestions)
	authed.GET("/ai/rate-limit", h.RateLimit)
	authed.GET("/images/search", h.SearchImages)
	authed.POST("/shares", h.CreateShare)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestProxy_ForwardsIdentityAndBody(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{resp: json.RawMessage(`{"subject":"Spring","blocks":[]}`)}
	r := newRouter(NewHandler(api, true), &proUser)

	w := do(r, http.MethodPost, "/ai/generate", `{"prompt":"spring sale"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"subject":"Spring","blocks":[]}`, w.Body.String())

	require.Len(t, api.calls, 1)
	got := api.calls[0]
	assert.Equal(t, "generate", got.op)
	assert.JSONEq(t, `{"prompt":"spring sale"}`, got.payload)
	assert.Equal(t, backendapi.Identity{Token: "app-token", UserID: 9, Email: "ana@studio.io", Plan: "pro"}, got.identity)
}

func TestProxy_Routes(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	r := newRouter(NewHandler(api, false), &users.User{ID: 3, Email: "f@x.io", Plan: "free"})

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/bookmarks", "").Code)
	assert.Equal(t, http.StatusCreated, do(r, http.MethodPost, "/bookmarks", `{"templateId":"t1"}`).Code)
	assert.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, "/bookmarks/b7", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/ai/suggestions", `{}`).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/ai/rate-limit", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/images/search?q=shoes&page=2", "").Code)
	assert.Equal(t, http.StatusCreated, do(r, http.MethodPost, "/shares", `{"structure":{}}`).Code)

	ops := make([]string, 0, len(api.calls))
	for _, c := range api.calls {
		ops = append(ops, c.op)
		assert.Equal(t, "free", c.identity.Plan)
	}
	assert.Equal(t, []string{"list", "create", "delete", "suggestions", "rate-limit", "images", "share"}, ops)
	assert.Equal(t, "b7", api.calls[2].arg)
	assert.Equal(t, "shoes#2", api.calls[5].arg)
}

func TestProxy_RejectsBadInput(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	r := newRouter(NewHandler(api, false), &proUser)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/ai/generate", `not json`).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/ai/generate", `["array"]`).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/images/search", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/images/search?q=x&page=0", "").Code)
	assert.Empty(t, api.calls)
}

func TestProxy_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "upstream",
			err:        &backendapi.UpstreamError{Status: http.StatusTooManyRequests, Message: "rate limit exceeded"},
			wantStatus: http.StatusBadGateway,
			wantBody:   `{"error":"rate limit exceeded","upstream_status":429}`,
		},
		{
			name:       "timeout",
			err:        errors.Join(backendapi.ErrTimeout, context.DeadlineExceeded),
			wantStatus: http.StatusGatewayTimeout,
		},
		{
			name:       "network",
			err:        errors.Join(backendapi.ErrNetwork, errors.New("connection refused")),
			wantStatus: http.StatusBadGateway,
			wantBody:   `{"error":"Backend is unreachable"}`,
		},
		{
			name:       "no identity",
			err:        backendapi.ErrUnauthenticated,
			wantStatus: http.StatusUnauthorized,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := newRouter(NewHandler(&fakeAPI{err: tt.err}, false), &proUser)
			w := do(r, http.MethodGet, "/ai/rate-limit", "")
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestGetShare(t *testing.T) {
	t.Parallel()

	t.Run("structure only", func(t *testing.T) {
		t.Parallel()

		api := &fakeAPI{resp: json.RawMessage(`{"id":"s1","structure":{"subject":"Hi","blocks":[
			{"id":"b0","blockType":"text","orderId":0,"content":{"text":"Hello"}}]}}`)}
		w := do(newRouter(NewHandler(api, false), nil), http.MethodGet, "/shares/s1", "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp struct {
			ID   string `json:"id"`
			HTML string `json:"html"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "s1", resp.ID)
		assert.Contains(t, resp.HTML, `data-block-id="b0"`)
		assert.Contains(t, resp.HTML, "Hello")

		require.Len(t, api.calls, 1)
		assert.Equal(t, "s1", api.calls[0].arg)
		assert.Empty(t, api.calls[0].identity.Token)
	})

	t.Run("stored html is sanitized", func(t *testing.T) {
		t.Parallel()

		api := &fakeAPI{resp: json.RawMessage(`{"id":"s2","html":"<p>Hi</p><script>alert(1)</script>"}`)}
		w := do(newRouter(NewHandler(api, false), nil), http.MethodGet, "/shares/s2", "")
		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			HTML string `json:"html"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Contains(t, resp.HTML, "<p>Hi</p>")
		assert.NotContains(t, resp.HTML, "alert(1)")
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()

		api := &fakeAPI{err: &backendapi.UpstreamError{Status: http.StatusNotFound}}
		w := do(newRouter(NewHandler(api, false), nil), http.MethodGet, "/shares/nope", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("nothing to render", func(t *testing.T) {
		t.Parallel()

		api := &fakeAPI{resp: json.RawMessage(`{"id":"s3"}`)}
		w := do(newRouter(NewHandler(api, false), nil), http.MethodGet, "/shares/s3", "")
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}
