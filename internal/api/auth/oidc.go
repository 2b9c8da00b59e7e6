package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	"mailforge/config"
	"mailforge/internal/app/http/middleware"
	"mailforge/internal/domain/plans"
	"mailforge/internal/domain/users"
	"mailforge/internal/infra/devicecache"
)

const (
	stateCookie     = "oidc_state"
	deviceKeyCookie = "oidc_device_key"
	cookieMaxAge    = 300
)

var errSessionExpired = errors.New("identity provider session expired")

// OIDC handles sign-in through an external identity provider using the
// authorization-code flow. The provider's refresh token is kept on the user
// so the app can renew its own token and probe the upstream session.
type OIDC struct {
	users            UserStore
	devices          devicecache.Store
	provider         *oidc.Provider
	verifier         *oidc.IDTokenVerifier
	oauth            *oauth2.Config
	cfg              Config
	frontendRedirect string
	now              func() time.Time
}

// NewOIDC runs provider discovery against the issuer.
func NewOIDC(ctx context.Context, oc config.OIDC, store UserStore, devices devicecache.Store, cfg Config) (*OIDC, error) {
	provider, err := oidc.NewProvider(ctx, oc.Issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: oc.ClientID})
	return newOIDC(provider, verifier, oauthConfig(oc, provider.Endpoint()), store, devices, cfg, oc.FrontendRedirect), nil
}

func oauthConfig(oc config.OIDC, endpoint oauth2.Endpoint) *oauth2.Config {
	scopes := oc.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "email", "profile", oidc.ScopeOfflineAccess}
	}
	return &oauth2.Config{
		ClientID:     oc.ClientID,
		ClientSecret: oc.ClientSecret,
		RedirectURL:  oc.RedirectURL,
		Scopes:       scopes,
		Endpoint:     endpoint,
	}
}

func newOIDC(provider *oidc.Provider, verifier *oidc.IDTokenVerifier, oauth *oauth2.Config, store UserStore, devices devicecache.Store, cfg Config, frontendRedirect string) *OIDC {
	return &OIDC{
		users:            store,
		devices:          devices,
		provider:         provider,
		verifier:         verifier,
		oauth:            oauth,
		cfg:              cfg,
		frontendRedirect: frontendRedirect,
		now:              time.Now,
	}
}

// GET /auth/oidc?device_key=...
func (h *OIDC) Start(c *gin.Context) {
	state, err := randomState()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate state"})
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, state, cookieMaxAge, "/", "", h.cfg.SecureCookies, true)
	if key := c.Query("device_key"); key != "" {
		c.SetCookie(deviceKeyCookie, key, cookieMaxAge, "/", "", h.cfg.SecureCookies, true)
	}

	c.Redirect(http.StatusFound, h.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline))
}

// GET /auth/oidc/callback
func (h *OIDC) Callback(c *gin.Context) {
	if e := c.Query("error"); e != "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "identity provider denied sign-in: " + e})
		return
	}

	state := c.Query("state")
	code := c.Query("code")
	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code/state"})
		return
	}

	cookieState, err := c.Cookie(stateCookie)
	if err != nil || cookieState != state {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid oauth state"})
		return
	}
	c.SetCookie(stateCookie, "", -1, "/", "", h.cfg.SecureCookies, true)

	ctx := c.Request.Context()
	tok, err := h.oauth.Exchange(ctx, code)
	if err != nil {
		slog.WarnContext(ctx, "oidc code exchange", slog.Any("error", err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "failed to exchange code"})
		return
	}

	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing id_token"})
		return
	}

	claims, err := h.verifyIDToken(ctx, rawIDToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	user, err := h.findOrCreateUser(ctx, claims)
	if err != nil {
		slog.ErrorContext(ctx, "oidc find or create user", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	if tok.RefreshToken != "" {
		if err := h.users.Update(ctx, user.ID, map[string]any{"oidc_refresh_token": tok.RefreshToken}); err != nil {
			slog.WarnContext(ctx, "store refresh token", slog.Any("error", err))
		}
	}

	deviceKey, _ := c.Cookie(deviceKeyCookie)
	if deviceKey != "" {
		c.SetCookie(deviceKeyCookie, "", -1, "/", "", h.cfg.SecureCookies, true)
	}
	recordLogin(c, h.users, h.devices, user.ID, deviceKey, h.now())

	tokenString, expiresAt, err := IssueToken(h.cfg.JWTSecret, h.cfg.JWTTTL, user, h.now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create token"})
		return
	}

	if h.frontendRedirect == "" {
		c.JSON(http.StatusOK, gin.H{"token": tokenString, "expires_at": expiresAt})
		return
	}
	c.Redirect(http.StatusFound, h.frontendRedirect+"?token="+url.QueryEscape(tokenString))
}

// POST /auth/oidc/refresh
func (h *OIDC) Refresh(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := h.users.FindByID(ctx, c.GetUint(middleware.KeyUserID))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return
	}

	_, rotated, err := h.freshToken(ctx, user)
	if errors.Is(err, errSessionExpired) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		slog.ErrorContext(ctx, "oidc refresh", slog.Any("error", err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "identity provider unavailable"})
		return
	}

	tokenString, expiresAt, err := IssueToken(h.cfg.JWTSecret, h.cfg.JWTTTL, user, h.now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tokenString, "expires_at": expiresAt, "rotated": rotated})
}

// GET /auth/oidc/session reports whether the upstream session is still alive
// by calling the provider's userinfo endpoint with a fresh access token.
func (h *OIDC) Session(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := h.users.FindByID(ctx, c.GetUint(middleware.KeyUserID))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return
	}

	tok, _, err := h.freshToken(ctx, user)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"active": false, "reason": err.Error()})
		return
	}

	info, err := h.provider.UserInfo(ctx, oauth2.StaticTokenSource(tok))
	if err != nil {
		slog.InfoContext(ctx, "oidc userinfo probe failed", slog.Any("error", err))
		c.JSON(http.StatusOK, gin.H{"active": false, "reason": "userinfo request failed"})
		return
	}
	if user.OIDCSubject != nil && info.Subject != *user.OIDCSubject {
		c.JSON(http.StatusOK, gin.H{"active": false, "reason": "subject mismatch"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"active": true, "email": info.Email, "expires_at": tok.Expiry})
}

// freshToken trades the stored refresh token for a new access token. A
// rotated refresh token replaces the stored one; a rejected one is cleared.
func (h *OIDC) freshToken(ctx context.Context, user users.User) (*oauth2.Token, bool, error) {
	if user.OIDCRefreshToken == nil || *user.OIDCRefreshToken == "" {
		return nil, false, errSessionExpired
	}
	current := *user.OIDCRefreshToken

	ts := h.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: current, Expiry: time.Unix(1, 0)})
	tok, err := ts.Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil && re.Response.StatusCode < 500 {
			_ = h.users.Update(ctx, user.ID, map[string]any{"oidc_refresh_token": nil})
			return nil, false, errSessionExpired
		}
		return nil, false, err
	}

	rotated := tok.RefreshToken != "" && tok.RefreshToken != current
	if rotated {
		if err := h.users.Update(ctx, user.ID, map[string]any{"oidc_refresh_token": tok.RefreshToken}); err != nil {
			return nil, false, err
		}
	}
	return tok, rotated, nil
}

type idClaims struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
}

func (h *OIDC) verifyIDToken(ctx context.Context, raw string) (*idClaims, error) {
	idToken, err := h.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, errors.New("invalid id_token")
	}

	var claims idClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, errors.New("failed to decode token claims")
	}
	if claims.Sub == "" || claims.Email == "" {
		return nil, errors.New("token missing required claims")
	}
	claims.Email = normalizeEmail(claims.Email)
	return &claims, nil
}

func (h *OIDC) findOrCreateUser(ctx context.Context, ic *idClaims) (users.User, error) {
	user, err := h.users.FindByOIDCSubject(ctx, ic.Sub)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, users.ErrNotFound) {
		return users.User{}, err
	}

	user, err = h.users.FindByEmail(ctx, ic.Email)
	if err == nil {
		// Link only when the provider vouches for the address.
		if !ic.EmailVerified {
			return users.User{}, errors.New("email exists and provider did not verify it")
		}
		sub := ic.Sub
		user.OIDCSubject = &sub
		user.IsVerified = true
		if err := h.users.Save(ctx, &user); err != nil {
			return users.User{}, err
		}
		return user, nil
	}
	if !errors.Is(err, users.ErrNotFound) {
		return users.User{}, err
	}

	sub := ic.Sub
	user = users.User{
		Name:         displayName(ic),
		Email:        ic.Email,
		AuthProvider: users.ProviderOIDC,
		OIDCSubject:  &sub,
		Role:         users.RoleUser,
		Plan:         plans.KeyFree,
		IsVerified:   ic.EmailVerified,
	}
	if err := h.users.Create(ctx, &user); err != nil {
		return users.User{}, err
	}
	return user, nil
}

func displayName(ic *idClaims) string {
	if ic.Name != "" {
		return ic.Name
	}
	return strings.TrimSpace(ic.GivenName + " " + ic.FamilyName)
}
