package server

import (
	"net/http"

	"github.com/rs/zerolog"
)

// Option configures a Server.
type Option func(*Config)

// WithConfig replaces the whole configuration. Apply it before the other
// options, which modify single fields.
func WithConfig(cfg Config) Option {
	return func(c *Config) {
		*c = cfg
	}
}

// WithServiceName sets the service name shared by logs, spans, metrics and
// health responses.
func WithServiceName(name string) Option {
	return func(c *Config) {
		c.ServiceName = name
	}
}

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(c *Config) {
		c.Addr = addr
	}
}

// WithHandler sets the handler. Required.
func WithHandler(h http.Handler) Option {
	return func(c *Config) {
		c.Handler = h
	}
}

// WithLogger sets the lifecycle logger. Request logs are configured with
// WithLogging.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithMiddleware appends middleware. The first one given is the outermost.
func WithMiddleware(ms ...Middleware) Option {
	return func(c *Config) {
		c.Middleware = append(c.Middleware, ms...)
	}
}

// WithTracing enables the tracing middleware.
func WithTracing(cfg TracingConfig) Option {
	return func(c *Config) {
		c.TracingConfig = &cfg
	}
}

// WithMetrics enables the request metrics middleware.
func WithMetrics(cfg MetricsConfig) Option {
	return func(c *Config) {
		c.MetricsConfig = &cfg
	}
}

// WithLogging enables request logging.
//
//	server.WithLogging(server.LoggerConfig{
//	    Logger:    logger,
//	    SkipPaths: []string{"/livez", "/readyz", "/ping"},
//	})
func WithLogging(cfg LoggerConfig) Option {
	return func(c *Config) {
		c.LoggerConfig = &cfg
	}
}

// WithRateLimit enables a rate limit in front of every route.
func WithRateLimit(cfg RateLimitConfig) Option {
	return func(c *Config) {
		c.RateLimitConfig = &cfg
	}
}
