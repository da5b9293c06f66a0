package server

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Config holds the listener settings of one Server.
//
// Start from DefaultConfig or DevelopmentConfig and override fields:
//
//	cfg := server.DefaultConfig()
//	cfg.Addr = ":9090"
//
//	srv := server.New(
//	    server.WithConfig(cfg),
//	    server.WithHandler(router),
//	)
type Config struct {
	// Addr is the TCP address to listen on. Default: ":8080".
	Addr string

	// ServiceName is attached to request logs, spans, metrics and health
	// responses. Default: "friendsapi".
	ServiceName string

	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration

	// MaxHeaderBytes defaults to 1MB.
	MaxHeaderBytes int

	// ShutdownTimeout bounds the wait for in-flight requests once the
	// serve context is cancelled.
	ShutdownTimeout time.Duration

	// Logger receives lifecycle events (start, stop, listener errors).
	Logger zerolog.Logger

	// Handler serves every request. Required.
	Handler http.Handler

	// Middleware wraps Handler after the built-in middleware.
	Middleware []Middleware

	TracingConfig   *TracingConfig
	MetricsConfig   *MetricsConfig
	LoggerConfig    *LoggerConfig
	RateLimitConfig *RateLimitConfig
}

// DefaultConfig returns timeouts suited to a JSON API backed by a database.
//
//   - ReadTimeout: 15s
//   - WriteTimeout: 15s
//   - IdleTimeout: 60s
//   - ShutdownTimeout: 10s
func DefaultConfig() Config {
	return Config{
		Addr:              ":8080",
		ServiceName:       "friendsapi",
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
		ShutdownTimeout:   10 * time.Second,
	}
}

// DevelopmentConfig drops the read and write timeouts so a debugger can
// hold a request, and shortens shutdown for fast restarts.
func DevelopmentConfig() Config {
	cfg := DefaultConfig()
	cfg.ReadTimeout = 0
	cfg.ReadHeaderTimeout = 0
	cfg.WriteTimeout = 0
	cfg.IdleTimeout = 120 * time.Second
	cfg.ShutdownTimeout = 3 * time.Second
	return cfg
}
