package neo4j

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationScope is the OpenTelemetry instrumentation scope of every
// span and metric emitted by this package.
const InstrumentationScope = "github.com/kroma-labs/sentinel-neo4j/neo4j"

// dbSystem is the db.system attribute value.
const dbSystem = "neo4j"

// options holds the per-registration customizations.
type options struct {
	// settings are applied in order after configuration is read.
	settings []SettingsFunc

	// driverConfig are applied in order to the driver configuration,
	// after the logger bridge is installed.
	driverConfig []func(*neo4j.Config)

	// TracerProvider defaults to otel.GetTracerProvider().
	TracerProvider trace.TracerProvider

	// MeterProvider defaults to otel.GetMeterProvider().
	MeterProvider metric.MeterProvider

	// QuerySanitizer rewrites Cypher before it is added to spans.
	QuerySanitizer func(query string) string

	// DisableQuery omits db.statement from spans.
	DisableQuery bool

	// instance is the registration key, recorded as db.instance.
	instance string
}

func newOptions(opts ...Option) *options {
	o := &options{
		TracerProvider: otel.GetTracerProvider(),
		MeterProvider:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option customizes a driver registration.
type Option func(*options)

// WithSettings appends fn to the settings pipeline. It runs after the
// settings have been read from configuration, so it has the final say.
//
// Example:
//
//	registry.AddDriver(src, "neo4j",
//	    sentinelneo4j.WithSettings(func(s sentinelneo4j.Settings) sentinelneo4j.Settings {
//	        s.Metrics = true
//	        return s
//	    }),
//	)
func WithSettings(fn SettingsFunc) Option {
	return func(o *options) {
		o.settings = append(o.settings, fn)
	}
}

// WithDriverConfig appends fn to the driver configuration callbacks.
//
// Example:
//
//	sentinelneo4j.WithDriverConfig(func(c *neo4j.Config) {
//	    c.MaxConnectionPoolSize = 50
//	})
func WithDriverConfig(fn func(*neo4j.Config)) Option {
	return func(o *options) {
		o.driverConfig = append(o.driverConfig, fn)
	}
}

// WithTracerProvider sets the tracer provider used when tracing is enabled.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.TracerProvider = tp
	}
}

// WithMeterProvider sets the meter provider used when metrics are enabled.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.MeterProvider = mp
	}
}

// WithQuerySanitizer sets a function that rewrites Cypher before it is
// recorded as db.statement. See DefaultQuerySanitizer.
func WithQuerySanitizer(fn func(string) string) Option {
	return func(o *options) {
		o.QuerySanitizer = fn
	}
}

// WithDisableQuery stops recording db.statement on spans. db.operation is
// still recorded.
func WithDisableQuery() Option {
	return func(o *options) {
		o.DisableQuery = true
	}
}

// withInstanceName records the registration key on spans and metrics.
func withInstanceName(name string) Option {
	return func(o *options) {
		o.instance = name
	}
}
