package server

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsConfig configures the request metrics middleware.
type MetricsConfig struct {
	// MeterProvider defaults to otel.GetMeterProvider().
	MeterProvider metric.MeterProvider

	// serviceName is set by New.
	serviceName string

	// SkipPaths are not recorded.
	SkipPaths []string

	// DurationBuckets are the request duration boundaries in seconds.
	DurationBuckets []float64
}

var defaultDurationBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// Metrics records request duration, in-flight requests and response
// status counts.
type Metrics struct {
	serviceName     string
	skip            map[string]bool
	requestDuration metric.Float64Histogram
	activeRequests  metric.Int64UpDownCounter
	requestTotal    metric.Int64Counter
}

// NewMetrics creates the instruments.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = otel.GetMeterProvider()
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = defaultDurationBuckets
	}

	meter := cfg.MeterProvider.Meter(instrumentationScope)

	requestDuration, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("Duration of HTTP requests in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(cfg.DurationBuckets...),
	)
	if err != nil {
		return nil, err
	}

	activeRequests, err := meter.Int64UpDownCounter(
		"http.server.active_requests",
		metric.WithDescription("Number of active HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestTotal, err := meter.Int64Counter(
		"http.server.request.total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		serviceName:     cfg.serviceName,
		skip:            pathSet(cfg.SkipPaths),
		requestDuration: requestDuration,
		activeRequests:  activeRequests,
		requestTotal:    requestTotal,
	}, nil
}

// Middleware records every request not in SkipPaths. The route pattern is
// not known at this layer, so url.path is the raw path.
func (m *Metrics) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			ctx := r.Context()
			attrs := []attribute.KeyValue{
				attribute.String("service.name", m.serviceName),
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
			}

			m.activeRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
			defer m.activeRequests.Add(ctx, -1, metric.WithAttributes(attrs...))

			wrapped := wrapResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			withStatus := append(attrs[:len(attrs):len(attrs)],
				attribute.Int("http.response.status_code", wrapped.Status()))

			m.requestDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(withStatus...))
			m.requestTotal.Add(ctx, 1, metric.WithAttributes(withStatus...))
		})
	}
}
