package server

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/rs/zerolog"
)

// ErrNoHandler is returned by ListenAndServe when no handler was configured.
var ErrNoHandler = errors.New("server: handler is required (use WithHandler)")

// Server is an http.Server with lifecycle logging and context-driven
// graceful shutdown.
//
//	srv := server.New(
//	    server.WithServiceName("friendsapi"),
//	    server.WithHandler(router),
//	    server.WithLogging(server.LoggerConfig{Logger: logger}),
//	)
//
//	// returns once ctx is cancelled and in-flight requests have drained
//	err := srv.ListenAndServe(ctx)
type Server struct {
	httpServer *http.Server
	config     Config
	logger     zerolog.Logger
}

// New builds a Server. The built-in middleware run in this order:
// tracing, metrics, request logging, rate limit, then WithMiddleware.
func New(opts ...Option) *Server {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.ServiceName == "" {
		cfg.ServiceName = "friendsapi"
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}

	var middlewares []Middleware

	if cfg.TracingConfig != nil {
		tracingCfg := *cfg.TracingConfig
		tracingCfg.serviceName = cfg.ServiceName
		middlewares = append(middlewares, Tracing(tracingCfg))
	}

	if cfg.MetricsConfig != nil {
		metricsCfg := *cfg.MetricsConfig
		metricsCfg.serviceName = cfg.ServiceName
		m, err := NewMetrics(metricsCfg)
		if err != nil {
			cfg.Logger.Warn().Err(err).Msg("request metrics disabled")
		} else {
			middlewares = append(middlewares, m.Middleware())
		}
	}

	if cfg.LoggerConfig != nil {
		loggerCfg := *cfg.LoggerConfig
		loggerCfg.serviceName = cfg.ServiceName
		middlewares = append(middlewares, Logger(loggerCfg))
	}

	if cfg.RateLimitConfig != nil {
		middlewares = append(middlewares, RateLimit(*cfg.RateLimitConfig))
	}

	middlewares = append(middlewares, cfg.Middleware...)

	handler := cfg.Handler
	if handler != nil && len(middlewares) > 0 {
		handler = Chain(middlewares...)(handler)
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
			MaxHeaderBytes:    cfg.MaxHeaderBytes,
		},
		config: cfg,
		logger: cfg.Logger.With().Str("service", cfg.ServiceName).Logger(),
	}
}

// ListenAndServe listens on the configured address and serves until ctx
// is cancelled. A clean shutdown returns nil.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.config.Handler == nil {
		return ErrNoHandler
	}

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled. Serve takes
// ownership of ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.config.Handler == nil {
		_ = ln.Close()
		return ErrNoHandler
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("server starting")

		err := s.httpServer.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			s.logger.Error().Err(err).Msg("server error")
			return err
		}
		return nil
	case <-ctx.Done():
		s.logger.Info().Err(ctx.Err()).Msg("context cancelled, shutting down")
	}

	return s.shutdown()
}

// shutdown drains in-flight requests, forcing close after ShutdownTimeout.
// The serve context is already cancelled, so the drain gets a fresh one.
func (s *Server) shutdown() error {
	s.logger.Info().Dur("timeout", s.config.ShutdownTimeout).Msg("starting graceful shutdown")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error().Err(err).Msg("graceful shutdown failed, forcing close")
		if closeErr := s.httpServer.Close(); closeErr != nil {
			s.logger.Error().Err(closeErr).Msg("force close failed")
		}
		return err
	}

	s.logger.Info().Msg("server stopped gracefully")
	return nil
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// ServiceName returns the configured service name.
func (s *Server) ServiceName() string {
	return s.config.ServiceName
}

// Handler returns the handler wrapped in the configured middleware.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
