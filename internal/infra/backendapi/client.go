// Package backendapi is the thin client for the external REST API that owns AI
// generation, bookmarks, image search and share links. Payloads are opaque
// JSON; the client only adds identity headers and classifies failures.
package backendapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mailforge/config"
)

var (
	ErrUpstream        = errors.New("backendapi: upstream returned an error")
	ErrNetwork         = errors.New("backendapi: backend unreachable")
	ErrTimeout         = errors.New("backendapi: backend timed out")
	ErrUnauthenticated = errors.New("backendapi: no identity for authenticated call")
)

const maxResponseBytes = 4 << 20

// UpstreamError is a non-2xx reply from the backend.
type UpstreamError struct {
	Status  int
	Message string
	Body    json.RawMessage
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend responded %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend responded %d", e.Status)
}

func (e *UpstreamError) Unwrap() error { return ErrUpstream }

// Identity is forwarded on authenticated calls.
type Identity struct {
	Token  string
	UserID uint
	Email  string
	Plan   string
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.Token != ""
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(cfg config.Backend) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return NewWithHTTPClient(cfg.BaseURL, &http.Client{Timeout: timeout})
}

func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// Call sends payload (nil for none) to endpoint and returns the raw JSON body.
// Failures are *UpstreamError for non-2xx replies, or wrap ErrNetwork/ErrTimeout.
// Calls are never retried.
func (c *Client) Call(ctx context.Context, endpoint string, payload any, method string, headers map[string]string, useAuth bool) (json.RawMessage, error) {
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("backendapi: encode payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(endpoint), body)
	if err != nil {
		return nil, fmt.Errorf("backendapi: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	if useAuth {
		id, ok := IdentityFrom(ctx)
		if !ok {
			return nil, ErrUnauthenticated
		}
		req.Header.Set("Authorization", "Bearer "+id.Token)
		if id.UserID != 0 {
			req.Header.Set("X-User-ID", fmt.Sprint(id.UserID))
		}
		if id.Plan != "" {
			req.Header.Set("X-User-Plan", id.Plan)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, errors.Join(ErrTimeout, err)
		}
		return nil, errors.Join(ErrNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.Join(ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newUpstreamError(resp.StatusCode, raw)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(raw) {
		return nil, &UpstreamError{Status: resp.StatusCode, Message: "response is not JSON"}
	}
	return json.RawMessage(raw), nil
}

func (c *Client) url(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
}

func newUpstreamError(status int, raw []byte) *UpstreamError {
	e := &UpstreamError{Status: status}
	if json.Valid(raw) {
		e.Body = json.RawMessage(raw)
		var msg struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &msg) == nil {
			e.Message = msg.Error
			if e.Message == "" {
				e.Message = msg.Message
			}
		}
		return e
	}
	e.Message = strings.TrimSpace(string(raw))
	if len(e.Message) > 200 {
		e.Message = e.Message[:200]
	}
	return e
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}
