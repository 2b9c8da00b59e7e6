package backendapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
)

const (
	pathBookmarks   = "/bookmarks"
	pathGenerate    = "/ai/generate"
	pathSuggestions = "/ai/suggestions"
	pathRateLimit   = "/ai/rate-limit"
	pathImageSearch = "/images/search"
	pathShares      = "/shares"
)

func (c *Client) ListBookmarks(ctx context.Context) (json.RawMessage, error) {
	return c.Call(ctx, pathBookmarks, nil, http.MethodGet, nil, true)
}

func (c *Client) CreateBookmark(ctx context.Context, payload any) (json.RawMessage, error) {
	return c.Call(ctx, pathBookmarks, payload, http.MethodPost, nil, true)
}

func (c *Client) DeleteBookmark(ctx context.Context, id string) (json.RawMessage, error) {
	return c.Call(ctx, pathBookmarks+"/"+url.PathEscape(id), nil, http.MethodDelete, nil, true)
}

func (c *Client) Generate(ctx context.Context, payload any) (json.RawMessage, error) {
	return c.Call(ctx, pathGenerate, payload, http.MethodPost, nil, true)
}

func (c *Client) Suggestions(ctx context.Context, payload any) (json.RawMessage, error) {
	return c.Call(ctx, pathSuggestions, payload, http.MethodPost, nil, true)
}

func (c *Client) RateLimit(ctx context.Context) (json.RawMessage, error) {
	return c.Call(ctx, pathRateLimit, nil, http.MethodGet, nil, true)
}

func (c *Client) SearchImages(ctx context.Context, query string, page int) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("q", query)
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	return c.Call(ctx, pathImageSearch+"?"+q.Encode(), nil, http.MethodGet, nil, true)
}

func (c *Client) CreateShare(ctx context.Context, payload any) (json.RawMessage, error) {
	return c.Call(ctx, pathShares, payload, http.MethodPost, nil, true)
}

// GetShare is public: share links are viewable without an account.
func (c *Client) GetShare(ctx context.Context, id string) (json.RawMessage, error) {
	return c.Call(ctx, pathShares+"/"+url.PathEscape(id), nil, http.MethodGet, nil, false)
}
