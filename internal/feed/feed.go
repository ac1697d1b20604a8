// Package feed assembles article lists for a user from the news provider.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/newsd/internal/article"
	"github.com/fyrsmithlabs/newsd/internal/cache"
	"github.com/fyrsmithlabs/newsd/internal/logging"
	"github.com/fyrsmithlabs/newsd/internal/newsapi"
	"github.com/fyrsmithlabs/newsd/internal/user"
)

const (
	instrumentationName = "github.com/fyrsmithlabs/newsd/internal/feed"

	// PageSize is the number of articles requested per feed.
	PageSize = 20
)

var (
	ErrQueryRequired = errors.New("search query is required")
	ErrEmptySelector = errors.New("category or source is required")
)

// Provider fetches raw article lists.
type Provider interface {
	Get(ctx context.Context, endpoint string, params url.Values) (*newsapi.Response, error)
}

// Ingester persists raw records and returns the stored articles.
type Ingester interface {
	Ingest(ctx context.Context, raws []article.Raw, opts article.Options) []article.Article
}

// Service builds provider queries and runs the results through ingestion.
// Provider order is preserved; there is no local ranking.
type Service struct {
	provider Provider
	ingester Ingester
	cache    cache.Cache
	logger   *logging.Logger
	tracer   trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithCache caches raw provider responses.
func WithCache(c cache.Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// NewService creates a feed Service.
func NewService(provider Provider, ingester Ingester, logger *logging.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Service{
		provider: provider,
		ingester: ingester,
		cache:    cache.Noop{},
		logger:   logger.Named("feed"),
		tracer:   otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Headlines returns top headlines shaped by prefs.
func (s *Service) Headlines(ctx context.Context, prefs user.Preferences) ([]article.Article, error) {
	return s.fetch(ctx, "headlines", newsapi.TopHeadlines, HeadlinesQuery(prefs))
}

// Search returns articles matching q, newest first.
func (s *Service) Search(ctx context.Context, q string, prefs user.Preferences) ([]article.Article, error) {
	params, err := SearchQuery(q, prefs)
	if err != nil {
		return nil, err
	}
	return s.fetch(ctx, "search", newsapi.Everything, params)
}

// ByCategory returns US headlines for category.
func (s *Service) ByCategory(ctx context.Context, category string) ([]article.Article, error) {
	params, err := CategoryQuery(category)
	if err != nil {
		return nil, err
	}
	return s.fetch(ctx, "category", newsapi.TopHeadlines, params)
}

// BySource returns headlines from the given provider source ids.
func (s *Service) BySource(ctx context.Context, source string) ([]article.Article, error) {
	params, err := SourceQuery(source)
	if err != nil {
		return nil, err
	}
	return s.fetch(ctx, "source", newsapi.TopHeadlines, params)
}

func (s *Service) fetch(ctx context.Context, kind, endpoint string, params url.Values) ([]article.Article, error) {
	ctx, span := s.tracer.Start(ctx, "feed."+kind,
		trace.WithAttributes(attribute.String("feed.endpoint", endpoint)))
	defer span.End()

	resp, hit, err := s.load(ctx, endpoint, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	articles := s.ingester.Ingest(ctx, resp.Articles, article.Options{
		Language: params.Get("language"),
		Country:  params.Get("country"),
	})
	span.SetAttributes(
		attribute.Bool("feed.cache_hit", hit),
		attribute.Int("feed.count", len(articles)),
	)
	return articles, nil
}

// load returns the provider response for endpoint and params, consulting the
// cache first. Cache failures degrade to a provider call.
func (s *Service) load(ctx context.Context, endpoint string, params url.Values) (*newsapi.Response, bool, error) {
	key := endpoint + "?" + params.Encode()

	if b, ok, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn(ctx, "cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		var cached newsapi.Response
		if err := json.Unmarshal(b, &cached); err == nil {
			return &cached, true, nil
		}
		s.logger.Warn(ctx, "discarding undecodable cache entry", zap.String("key", key))
	}

	resp, err := s.provider.Get(ctx, endpoint, params)
	if err != nil {
		return nil, false, fmt.Errorf("fetching %s: %w", endpoint, err)
	}

	if b, err := json.Marshal(resp); err == nil {
		if err := s.cache.Set(ctx, key, b); err != nil {
			s.logger.Warn(ctx, "cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return resp, false, nil
}

// HeadlinesQuery builds top-headlines parameters from the first preferred
// country, language and category.
func HeadlinesQuery(prefs user.Preferences) url.Values {
	v := url.Values{}
	v.Set("country", first(prefs.Countries, article.DefaultCountry))
	v.Set("language", first(prefs.Languages, article.DefaultLanguage))
	v.Set("pageSize", strconv.Itoa(PageSize))
	if len(prefs.Categories) > 0 {
		v.Set("category", strings.ToLower(string(prefs.Categories[0])))
	}
	return v
}

// SearchQuery builds everything-endpoint parameters. q must be non-blank.
func SearchQuery(q string, prefs user.Preferences) (url.Values, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, ErrQueryRequired
	}
	v := url.Values{}
	v.Set("q", q)
	v.Set("language", first(prefs.Languages, article.DefaultLanguage))
	v.Set("pageSize", strconv.Itoa(PageSize))
	v.Set("sortBy", "publishedAt")
	if len(prefs.Countries) > 0 {
		v.Set("country", prefs.Countries[0])
	}
	return v, nil
}

// CategoryQuery builds US top-headlines parameters for category.
func CategoryQuery(category string) (url.Values, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, ErrEmptySelector
	}
	v := url.Values{}
	v.Set("category", strings.ToLower(category))
	v.Set("country", article.DefaultCountry)
	v.Set("pageSize", strconv.Itoa(PageSize))
	return v, nil
}

// SourceQuery builds top-headlines parameters for sources, passed verbatim.
func SourceQuery(source string) (url.Values, error) {
	if strings.TrimSpace(source) == "" {
		return nil, ErrEmptySelector
	}
	v := url.Values{}
	v.Set("sources", source)
	v.Set("pageSize", strconv.Itoa(PageSize))
	return v, nil
}

func first(values []string, def string) string {
	if len(values) == 0 || values[0] == "" {
		return def
	}
	return values[0]
}
