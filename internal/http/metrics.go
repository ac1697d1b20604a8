package http

import (
	"errors"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const httpInstrumentationName = "github.com/fyrsmithlabs/newsd/internal/http"

var durationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}

// requestMetrics records one set of instruments per request, labelled by the
// matched route template rather than the raw path.
type requestMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	size     metric.Int64Histogram
	inFlight metric.Int64UpDownCounter
}

// newRequestMetrics creates the instruments. Instruments that fail to register
// are left as no-ops and the failures are returned together.
func newRequestMetrics(meter metric.Meter) (*requestMetrics, error) {
	var m requestMetrics
	var errs []error

	requests, e := meter.Int64Counter("newsd.http.requests_total",
		metric.WithDescription("HTTP requests by method, route and status."),
		metric.WithUnit("{request}"))
	errs = append(errs, e)
	m.requests = requests

	duration, e := meter.Float64Histogram("newsd.http.request_duration_seconds",
		metric.WithDescription("HTTP request latency by method, route and status."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...))
	errs = append(errs, e)
	m.duration = duration

	size, e := meter.Int64Histogram("newsd.http.response_size_bytes",
		metric.WithDescription("HTTP response body size."),
		metric.WithUnit("By"))
	errs = append(errs, e)
	m.size = size

	inFlight, e := meter.Int64UpDownCounter("newsd.http.active_requests",
		metric.WithDescription("Requests currently being served."),
		metric.WithUnit("{request}"))
	errs = append(errs, e)
	m.inFlight = inFlight

	return &m, errors.Join(errs...)
}

func (m *requestMetrics) middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		start := time.Now()
		if m.inFlight != nil {
			m.inFlight.Add(ctx, 1)
			defer m.inFlight.Add(ctx, -1)
		}

		err := next(c)

		res := c.Response()
		route := routeLabel(c.Path())
		attrs := metric.WithAttributes(
			attribute.String("method", c.Request().Method),
			attribute.String("endpoint", route),
			attribute.String("group", routeGroup(route)),
			attribute.Int("status", res.Status),
		)
		if m.requests != nil {
			m.requests.Add(ctx, 1, attrs)
		}
		if m.duration != nil {
			m.duration.Record(ctx, time.Since(start).Seconds(), attrs)
		}
		if m.size != nil {
			m.size.Record(ctx, res.Size, attrs)
		}
		return err
	}
}

// routeLabel keeps path parameters out of label values. Unrouted requests
// share one label.
func routeLabel(route string) string {
	if route == "" {
		return "unmatched"
	}
	return route
}

// routeGroup is the API area a route belongs to: auth, news, user or other.
func routeGroup(route string) string {
	rest, ok := strings.CutPrefix(route, "/api/")
	if !ok {
		return "other"
	}
	group, _, _ := strings.Cut(rest, "/")
	switch group {
	case "auth", "news", "user":
		return group
	}
	return "other"
}
