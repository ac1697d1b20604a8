package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{BaseURL: srv.URL, APIKey: "test-key", Timeout: time.Second}, nil)
	require.NoError(t, err)
	return c
}

func TestGet_OK(t *testing.T) {
	var gotPath string
	var gotQuery url.Values
	var gotKey string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery, gotKey = r.URL.Path, r.URL.Query(), r.Header.Get("X-Api-Key")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":       "ok",
			"totalResults": 1,
			"articles": []map[string]any{{
				"source": map[string]any{"id": "techcrunch", "name": "TechCrunch"},
				"title":  "Chips",
				"url":    "https://techcrunch.com/chips",
			}},
		})
	})

	before := testutil.ToFloat64(c.metrics.RequestsTotal.WithLabelValues(TopHeadlines, "ok"))
	resp, err := c.Get(context.Background(), TopHeadlines, url.Values{"country": {"us"}, "pageSize": {"20"}})
	require.NoError(t, err)

	assert.Equal(t, "/top-headlines", gotPath)
	assert.Equal(t, "us", gotQuery.Get("country"))
	assert.Equal(t, "20", gotQuery.Get("pageSize"))
	assert.Equal(t, "test-key", gotKey)
	require.Len(t, resp.Articles, 1)
	assert.Equal(t, "TechCrunch", resp.Articles[0].Source.Name)
	assert.Equal(t, "https://techcrunch.com/chips", *resp.Articles[0].URL)
	assert.Nil(t, resp.Articles[0].Author)
	assert.Equal(t, before+1, testutil.ToFloat64(c.metrics.RequestsTotal.WithLabelValues(TopHeadlines, "ok")))
}

func TestGet_ProviderError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status":"error","code":"apiKeyInvalid","message":"Your API key is invalid."}`))
	})

	_, err := c.Get(context.Background(), Everything, url.Values{"q": {"go"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)

	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "apiKeyInvalid", ue.Code)
	assert.Equal(t, "Your API key is invalid.", ue.Message)
	assert.Equal(t, http.StatusUnauthorized, ue.HTTPStatus)
}

func TestGet_NonOKStatusWith200(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"error","message":"rate limited"}`))
	})
	_, err := c.Get(context.Background(), TopHeadlines, nil)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestGet_NonJSONFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})
	_, err := c.Get(context.Background(), TopHeadlines, nil)
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestGet_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()
	c, err := NewClient(Config{BaseURL: srv.URL, APIKey: "k", Timeout: 20 * time.Millisecond}, nil)
	require.NoError(t, err)

	_, err = c.Get(context.Background(), TopHeadlines, nil)
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestGet_ContextCanceledWhileLimited(t *testing.T) {
	c, err := NewClient(Config{BaseURL: "http://127.0.0.1:1", APIKey: "k", RateLimit: 0.001, Burst: 1}, nil)
	require.NoError(t, err)
	require.True(t, c.limiter.Allow())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Get(ctx, TopHeadlines, nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUpstream)
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(Config{}, nil)
	assert.Error(t, err)
}
