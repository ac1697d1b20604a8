// Package ingest turns raw provider records into stored articles.
//
// Each record is normalized and persisted with insert-if-absent semantics, so
// the first write of an externalId wins and later ingestions return the
// stored copy unchanged. Failures are isolated per record: the record is
// logged, counted and skipped while the rest of the batch continues.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/newsd/internal/article"
	"github.com/fyrsmithlabs/newsd/internal/events"
	"github.com/fyrsmithlabs/newsd/internal/logging"
)

const instrumentationName = "github.com/fyrsmithlabs/newsd/internal/ingest"

const (
	resultCreated  = "created"
	resultExisting = "existing"
	resultFailed   = "failed"
)

// Service ingests provider records into an article.Store.
type Service struct {
	store     article.Store
	publisher events.Publisher
	logger    *logging.Logger
	now       func() time.Time

	tracer  trace.Tracer
	counter metric.Int64Counter
	metrics *Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher emits an article.ingested event for each new article.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// WithMeter overrides the global meter.
func WithMeter(m metric.Meter) Option {
	return func(s *Service) { s.counter = newCounter(m) }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service.
func NewService(store article.Store, logger *logging.Logger, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("article store is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Service{
		store:     store,
		publisher: events.Noop{},
		logger:    logger.Named("ingest"),
		now:       func() time.Time { return time.Now().UTC() },
		tracer:    otel.Tracer(instrumentationName),
		metrics:   NewMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.counter == nil {
		s.counter = newCounter(otel.Meter(instrumentationName))
	}
	return s, nil
}

func newCounter(m metric.Meter) metric.Int64Counter {
	c, err := m.Int64Counter(
		"newsd.ingest.articles",
		metric.WithDescription("Articles processed by ingestion"),
		metric.WithUnit("{article}"),
	)
	if err != nil {
		return nil
	}
	return c
}

// Ingest resolves every record in raws to a stored article, in input order.
// Records that fail to persist are omitted.
func (s *Service) Ingest(ctx context.Context, raws []article.Raw, opts article.Options) []article.Article {
	ctx, span := s.tracer.Start(ctx, "ingest.batch",
		trace.WithAttributes(attribute.Int("ingest.batch_size", len(raws))))
	defer span.End()

	out := make([]article.Article, 0, len(raws))
	failed := 0
	for i := range raws {
		a, err := s.IngestOne(ctx, raws[i], opts)
		if err != nil {
			failed++
			s.logger.Warn(ctx, "article persist failed",
				zap.Int("index", i),
				zap.String("title", deref(raws[i].Title)),
				zap.Error(err))
			continue
		}
		out = append(out, *a)
	}

	span.SetAttributes(
		attribute.Int("ingest.resolved", len(out)),
		attribute.Int("ingest.failed", failed),
	)
	if failed > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d of %d articles failed", failed, len(raws)))
	}
	return out
}

// IngestOne normalizes raw and stores it unless its externalId already exists.
func (s *Service) IngestOne(ctx context.Context, raw article.Raw, opts article.Options) (*article.Article, error) {
	if opts.Now.IsZero() {
		opts.Now = s.now()
	}
	candidate := article.Normalize(raw, article.ExternalID(raw), opts)

	stored, created, err := s.store.InsertIfAbsent(ctx, candidate)
	if err != nil {
		s.record(ctx, resultFailed)
		return nil, fmt.Errorf("storing %q: %w", candidate.ExternalID, err)
	}
	if !created {
		s.record(ctx, resultExisting)
		return stored, nil
	}

	s.record(ctx, resultCreated)
	s.logger.Debug(ctx, "article ingested",
		zap.String("article.id", stored.ID),
		zap.String("category", string(stored.Category)))

	err = s.publisher.Publish(ctx, events.TypeArticleIngested, events.ArticleIngested{
		ArticleID:  stored.ID,
		ExternalID: stored.ExternalID,
		Category:   string(stored.Category),
		Source:     stored.Source.Name,
	})
	if err != nil {
		s.logger.Warn(ctx, "publish article.ingested failed",
			zap.String("article.id", stored.ID), zap.Error(err))
	}
	return stored, nil
}

func (s *Service) record(ctx context.Context, result string) {
	s.metrics.ArticlesTotal.WithLabelValues(result).Inc()
	if s.counter != nil {
		s.counter.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
	}
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
