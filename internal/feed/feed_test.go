package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/newsd/internal/article"
	"github.com/fyrsmithlabs/newsd/internal/ingest"
	"github.com/fyrsmithlabs/newsd/internal/newsapi"
	"github.com/fyrsmithlabs/newsd/internal/store/memory"
	"github.com/fyrsmithlabs/newsd/internal/user"
)

func TestHeadlinesQuery(t *testing.T) {
	tests := []struct {
		name  string
		prefs user.Preferences
		want  url.Values
	}{
		{
			name:  "defaults",
			prefs: user.Preferences{},
			want:  url.Values{"country": {"us"}, "language": {"en"}, "pageSize": {"20"}},
		},
		{
			name: "first preference wins",
			prefs: user.Preferences{
				Categories: []article.Category{article.Science, article.Health},
				Languages:  []string{"fr", "en"},
				Countries:  []string{"fr", "be"},
			},
			want: url.Values{"country": {"fr"}, "language": {"fr"}, "pageSize": {"20"}, "category": {"science"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HeadlinesQuery(tt.prefs))
		})
	}
}

func TestSearchQuery(t *testing.T) {
	_, err := SearchQuery("  ", user.Preferences{})
	assert.ErrorIs(t, err, ErrQueryRequired)

	v, err := SearchQuery("golang", user.Preferences{})
	require.NoError(t, err)
	assert.Equal(t, url.Values{"q": {"golang"}, "language": {"en"}, "pageSize": {"20"}, "sortBy": {"publishedAt"}}, v)

	v, err = SearchQuery("golang", user.Preferences{Countries: []string{"gb"}})
	require.NoError(t, err)
	assert.Equal(t, "gb", v.Get("country"))
}

func TestCategoryAndSourceQuery(t *testing.T) {
	v, err := CategoryQuery("Technology")
	require.NoError(t, err)
	assert.Equal(t, url.Values{"category": {"technology"}, "country": {"us"}, "pageSize": {"20"}}, v)

	v, err = SourceQuery("bbc-news,cnn")
	require.NoError(t, err)
	assert.Equal(t, url.Values{"sources": {"bbc-news,cnn"}, "pageSize": {"20"}}, v)

	_, err = CategoryQuery("")
	assert.ErrorIs(t, err, ErrEmptySelector)
	_, err = SourceQuery(" ")
	assert.ErrorIs(t, err, ErrEmptySelector)
}

func TestCatalog(t *testing.T) {
	assert.Len(t, Categories(), 8)
	assert.NotContains(t, Categories(), article.General)
	assert.Len(t, Sources(), 10)
	assert.Equal(t, "BBC", Sources()[0])
}

// fakeProvider records calls and returns canned responses.
type fakeProvider struct {
	mu    sync.Mutex
	calls int
	resp  *newsapi.Response
	err   error
}

func (f *fakeProvider) Get(_ context.Context, _ string, _ url.Values) (*newsapi.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.resp, f.err
}

// mapCache is an in-memory cache.Cache.
type mapCache struct {
	mu sync.Mutex
	m  map[string][]byte
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.m[key]
	return b, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = value
	return nil
}

func okResponse(urls ...string) *newsapi.Response {
	resp := &newsapi.Response{Status: "ok", TotalResults: len(urls)}
	for _, u := range urls {
		u := u
		var r article.Raw
		r.URL = &u
		resp.Articles = append(resp.Articles, r)
	}
	return resp
}

func newIngester(t *testing.T) *ingest.Service {
	t.Helper()
	svc, err := ingest.NewService(memory.New(), nil)
	require.NoError(t, err)
	return svc
}

func TestService_PreservesProviderOrder(t *testing.T) {
	p := &fakeProvider{resp: okResponse("https://x/3", "https://x/1", "https://x/2")}
	svc := NewService(p, newIngester(t), nil)

	got, err := svc.Headlines(context.Background(), user.Preferences{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "https://x/3", got[0].ExternalID)
	assert.Equal(t, "https://x/1", got[1].ExternalID)
	assert.Equal(t, "https://x/2", got[2].ExternalID)
}

func TestService_SearchRejectsEmptyBeforeUpstream(t *testing.T) {
	p := &fakeProvider{resp: okResponse()}
	svc := NewService(p, newIngester(t), nil)

	_, err := svc.Search(context.Background(), "", user.Preferences{})
	assert.ErrorIs(t, err, ErrQueryRequired)
	assert.Zero(t, p.calls)
}

func TestService_UpstreamError(t *testing.T) {
	p := &fakeProvider{err: &newsapi.UpstreamError{Message: "apiKeyMissing"}}
	svc := NewService(p, newIngester(t), nil)

	_, err := svc.ByCategory(context.Background(), "sports")
	require.Error(t, err)
	assert.ErrorIs(t, err, newsapi.ErrUpstream)
	assert.Equal(t, 1, p.calls)
}

func TestService_CacheHitSkipsProviderButStillIngests(t *testing.T) {
	p := &fakeProvider{resp: okResponse("https://x/1")}
	c := &mapCache{m: map[string][]byte{}}
	svc := NewService(p, newIngester(t), nil, WithCache(c))
	ctx := context.Background()

	first, err := svc.BySource(ctx, "techcrunch")
	require.NoError(t, err)
	second, err := svc.BySource(ctx, "techcrunch")
	require.NoError(t, err)

	assert.Equal(t, 1, p.calls)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
}

func TestService_CorruptCacheEntryFallsBack(t *testing.T) {
	p := &fakeProvider{resp: okResponse("https://x/1")}
	c := &mapCache{m: map[string][]byte{}}
	params, _ := SourceQuery("cnn")
	c.m[newsapi.TopHeadlines+"?"+params.Encode()] = []byte("{not json")

	svc := NewService(p, newIngester(t), nil, WithCache(c))
	got, err := svc.BySource(context.Background(), "cnn")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 1, p.calls)
}

func TestService_AgainstHTTPProvider(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"articles": []map[string]any{
				{"url": "https://www.bloomberg.com/a", "title": "Rates", "source": map[string]any{"name": "Bloomberg"}},
			},
		})
	}))
	defer srv.Close()

	client, err := newsapi.NewClient(newsapi.Config{BaseURL: srv.URL, APIKey: "k", Timeout: time.Second}, nil)
	require.NoError(t, err)
	svc := NewService(client, newIngester(t), nil)

	got, err := svc.Search(context.Background(), "rates", user.Preferences{Languages: []string{"en"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, article.Business, got[0].Category)
	assert.Equal(t, "publishedAt", gotQuery.Get("sortBy"))
	assert.Equal(t, "rates", gotQuery.Get("q"))
}

func TestService_ProviderTransportError(t *testing.T) {
	p := &fakeProvider{err: errors.Join(newsapi.ErrUpstream, errors.New("dial tcp: refused"))}
	svc := NewService(p, newIngester(t), nil)
	_, err := svc.Headlines(context.Background(), user.Preferences{})
	assert.ErrorIs(t, err, newsapi.ErrUpstream)
}
