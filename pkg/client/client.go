// Package client is a Go client for the newsd REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	v1 "github.com/fyrsmithlabs/newsd/pkg/api/v1"
)

const defaultTimeout = 30 * time.Second

// Client calls a newsd server. Sign-in methods store the returned token and
// later calls send it as a bearer token. A Client is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken starts the client with an existing session token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a Client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the current session token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the session token.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// do sends a JSON request and decodes a JSON response into out. Non-2xx
// responses are returned as *v1.Error.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		r = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &v1.Error{StatusCode: resp.StatusCode}
		data, readErr := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if readErr == nil {
			_ = json.Unmarshal(data, &apiErr.Envelope)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Health reports the server status.
func (c *Client) Health(ctx context.Context) (string, error) {
	var resp v1.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (*v1.AuthResponse, error) {
	var resp v1.AuthResponse
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}
	c.SetToken(resp.Token)
	return &resp, nil
}

// Signup creates a local account and signs in.
func (c *Client) Signup(ctx context.Context, req v1.SignupRequest) (*v1.AuthResponse, error) {
	return c.authenticate(ctx, "/api/auth/signup", req)
}

// Signin signs in with email and password.
func (c *Client) Signin(ctx context.Context, email, password string) (*v1.AuthResponse, error) {
	return c.authenticate(ctx, "/api/auth/signin", v1.SigninRequest{Email: email, Password: password})
}

// Developer signs in as the shared developer account.
func (c *Client) Developer(ctx context.Context) (*v1.AuthResponse, error) {
	return c.authenticate(ctx, "/api/auth/developer", nil)
}

// Guest signs in as a new guest account.
func (c *Client) Guest(ctx context.Context) (*v1.AuthResponse, error) {
	return c.authenticate(ctx, "/api/auth/guest", nil)
}

// Verify returns the user owning the current token.
func (c *Client) Verify(ctx context.Context) (*v1.User, error) {
	var resp v1.UserResponse
	if err := c.do(ctx, http.MethodGet, "/api/auth/verify", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

func (c *Client) feed(ctx context.Context, path string) ([]v1.Article, error) {
	var resp v1.FeedResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Articles, nil
}

// Headlines returns top headlines for the signed-in user's preferences.
func (c *Client) Headlines(ctx context.Context) ([]v1.Article, error) {
	return c.feed(ctx, "/api/news/headlines")
}

// Search returns articles matching q.
func (c *Client) Search(ctx context.Context, q string) ([]v1.Article, error) {
	return c.feed(ctx, "/api/news/search?q="+url.QueryEscape(q))
}

// Category returns articles in category.
func (c *Client) Category(ctx context.Context, category string) ([]v1.Article, error) {
	return c.feed(ctx, "/api/news/category/"+url.PathEscape(category))
}

// Source returns articles from source.
func (c *Client) Source(ctx context.Context, source string) ([]v1.Article, error) {
	return c.feed(ctx, "/api/news/source/"+url.PathEscape(source))
}

// Categories lists the selectable categories.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var resp v1.CategoriesResponse
	if err := c.do(ctx, http.MethodGet, "/api/news/categories", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Categories, nil
}

// Sources lists the known sources.
func (c *Client) Sources(ctx context.Context) ([]string, error) {
	var resp v1.SourcesResponse
	if err := c.do(ctx, http.MethodGet, "/api/news/sources", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Sources, nil
}

// Profile returns the signed-in user with saved list and history.
func (c *Client) Profile(ctx context.Context) (*v1.Profile, error) {
	var resp v1.ProfileResponse
	if err := c.do(ctx, http.MethodGet, "/api/user/profile", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// UpdatePreferences applies a partial preferences change.
func (c *Client) UpdatePreferences(ctx context.Context, req v1.PreferencesRequest) (*v1.User, error) {
	var resp v1.UserResponse
	if err := c.do(ctx, http.MethodPut, "/api/user/preferences", req, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// UpdateProfile changes the display name or avatar. Nil fields are left
// unchanged.
func (c *Client) UpdateProfile(ctx context.Context, req v1.ProfileUpdateRequest) (*v1.User, error) {
	var resp v1.UserResponse
	if err := c.do(ctx, http.MethodPut, "/api/user/profile", req, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// ChangePassword replaces the password of a local account.
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	req := v1.ChangePasswordRequest{CurrentPassword: current, NewPassword: next}
	return c.do(ctx, http.MethodPut, "/api/user/change-password", req, nil)
}

// SaveArticle adds articleID to the saved list and returns the list.
func (c *Client) SaveArticle(ctx context.Context, articleID string) ([]string, error) {
	var resp v1.SavedListResponse
	if err := c.do(ctx, http.MethodPost, "/api/user/save-article", v1.ArticleRequest{ArticleID: articleID}, &resp); err != nil {
		return nil, err
	}
	return resp.SavedArticles, nil
}

// RemoveSaved drops articleID from the saved list and returns the list.
func (c *Client) RemoveSaved(ctx context.Context, articleID string) ([]string, error) {
	var resp v1.SavedListResponse
	if err := c.do(ctx, http.MethodDelete, "/api/user/save-article/"+url.PathEscape(articleID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.SavedArticles, nil
}

// SavedArticles returns the saved articles.
func (c *Client) SavedArticles(ctx context.Context) ([]v1.Article, error) {
	var resp v1.ArticlesResponse
	if err := c.do(ctx, http.MethodGet, "/api/user/saved-articles", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Articles, nil
}

// MarkRead records articleID in the reading history and returns the history.
func (c *Client) MarkRead(ctx context.Context, articleID string) ([]v1.HistoryEntry, error) {
	var resp v1.HistoryResponse
	if err := c.do(ctx, http.MethodPost, "/api/user/reading-history", v1.ArticleRequest{ArticleID: articleID}, &resp); err != nil {
		return nil, err
	}
	return resp.ReadingHistory, nil
}

// History returns the reading history, most recent first.
func (c *Client) History(ctx context.Context) ([]v1.HistoryEntry, error) {
	var resp v1.HistoryResponse
	if err := c.do(ctx, http.MethodGet, "/api/user/reading-history", nil, &resp); err != nil {
		return nil, err
	}
	return resp.ReadingHistory, nil
}
