// Package newsapi is a client for NewsAPI v2 shaped news providers.
package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fyrsmithlabs/newsd/internal/article"
	"github.com/fyrsmithlabs/newsd/internal/logging"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	TopHeadlines = "top-headlines"
	Everything   = "everything"

	defaultBaseURL = "https://newsapi.org/v2"
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 4 << 20
)

// ErrUpstream marks any failure attributable to the provider.
var ErrUpstream = errors.New("news provider error")

// UpstreamError carries the provider's status and message.
type UpstreamError struct {
	HTTPStatus int
	Code       string
	Message    string
}

func (e *UpstreamError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.HTTPStatus)
	}
	if e.Code != "" {
		return fmt.Sprintf("news provider error (%s): %s", e.Code, msg)
	}
	return "news provider error: " + msg
}

func (e *UpstreamError) Unwrap() error { return ErrUpstream }

// Response is the provider's list envelope.
type Response struct {
	Status       string        `json:"status"`
	Code         string        `json:"code,omitempty"`
	Message      string        `json:"message,omitempty"`
	TotalResults int           `json:"totalResults"`
	Articles     []article.Raw `json:"articles"`
}

// Config configures a Client.
type Config struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	RateLimit float64 // requests per second; 0 disables limiting
	Burst     int
}

// Client issues rate-limited GETs against the provider.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logging.Logger
	metrics    *Metrics
}

// NewClient creates a Client. A nil logger discards logs.
func NewClient(cfg Config, logger *logging.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("newsapi: api key required")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(1, cfg.Burst))
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		logger:     logger.Named("newsapi"),
		metrics:    NewMetrics(),
	}, nil
}

// Get calls endpoint with params. Transport failures, non-2xx responses and
// a status other than "ok" all wrap ErrUpstream. No retry is attempted.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	u := c.baseURL + "/" + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.observe(endpoint, "transport_error", start)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.metrics.observe(endpoint, "transport_error", start)
		return nil, fmt.Errorf("%w: reading body: %v", ErrUpstream, err)
	}
	c.logger.Trace(ctx, "provider response",
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)))

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		c.metrics.observe(endpoint, "decode_error", start)
		if resp.StatusCode >= 300 {
			return nil, &UpstreamError{HTTPStatus: resp.StatusCode}
		}
		return nil, fmt.Errorf("%w: decoding response: %v", ErrUpstream, err)
	}
	if resp.StatusCode >= 300 || out.Status != "ok" {
		c.metrics.observe(endpoint, "error", start)
		return nil, &UpstreamError{HTTPStatus: resp.StatusCode, Code: out.Code, Message: out.Message}
	}

	c.metrics.observe(endpoint, "ok", start)
	return &out, nil
}
