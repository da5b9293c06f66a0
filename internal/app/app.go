// Package app assembles the friends API: telemetry, the Neo4j driver
// registry, the person store and the API and metrics servers.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-chi/chi/v5"
	"github.com/kroma-labs/sentinel-neo4j/config"
	"github.com/kroma-labs/sentinel-neo4j/internal/person"
	"github.com/kroma-labs/sentinel-neo4j/internal/server"
	"github.com/kroma-labs/sentinel-neo4j/internal/telemetry"
	sentinelneo4j "github.com/kroma-labs/sentinel-neo4j/neo4j"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var probePaths = []string{"/ping", "/livez", "/readyz"}

// App is an assembled friends API.
type App struct {
	cfg    Config
	logger zerolog.Logger

	telemetry *telemetry.Providers
	registry  *sentinelneo4j.Registry
	driver    *sentinelneo4j.Driver
	store     *person.Store

	api     *server.Server
	metrics *server.Server
}

// New wires the application. src is read twice: by LoadConfig for cfg and
// by the driver registry for the Neo4j connection.
func New(ctx context.Context, cfg Config, src config.Source, logger zerolog.Logger) (*App, error) {
	providers, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.Service.Version,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure:   cfg.Telemetry.OTLPInsecure,
	})
	if err != nil {
		return nil, fmt.Errorf("setup telemetry: %w", err)
	}

	a := &App{
		cfg:       cfg,
		logger:    logger,
		telemetry: providers,
		registry:  sentinelneo4j.NewRegistry(sentinelneo4j.WithRegistryLogger(logger)),
	}

	err = a.registry.AddDriver(src, cfg.API.Connection,
		sentinelneo4j.WithTracerProvider(providers.TracerProvider),
		sentinelneo4j.WithMeterProvider(providers.MeterProvider),
	)
	if err != nil {
		_ = providers.Shutdown(ctx)
		return nil, fmt.Errorf("register neo4j driver: %w", err)
	}

	a.driver, err = a.registry.Driver()
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	if cfg.API.Database != "" {
		a.driver = a.driver.WithDatabase(cfg.API.Database)
	}

	a.store = person.NewStore(a.driver, person.WithLogger(logger))

	health := server.NewHealthHandler(
		server.WithHealthServiceName(cfg.Service.Name),
		server.WithVersion(cfg.Service.Version),
	)
	for _, hc := range a.registry.HealthChecks() {
		health.AddReadinessCheck(hc.Name, hc.Check.Check)
	}

	a.api = server.New(
		server.WithAddr(cfg.API.Addr),
		server.WithServiceName(cfg.Service.Name),
		server.WithLogger(logger),
		server.WithHandler(a.router(health)),
		server.WithTracing(server.TracingConfig{
			TracerProvider: providers.TracerProvider,
			SkipPaths:      probePaths,
		}),
		server.WithMetrics(server.MetricsConfig{
			MeterProvider: providers.MeterProvider,
			SkipPaths:     probePaths,
		}),
		server.WithLogging(server.LoggerConfig{
			Logger:    logger,
			SkipPaths: probePaths,
		}),
		server.WithRateLimit(server.RateLimitConfig{
			Limit: cfg.API.RateLimit,
			Burst: cfg.API.RateBurst,
		}),
		server.WithMiddleware(a.apiMiddleware()...),
	)

	metricsRouter := chi.NewRouter()
	metricsRouter.Method(http.MethodGet, "/metrics", server.MetricsHandler(providers.Registry))
	if cfg.Metrics.Pprof {
		metricsRouter.Mount(server.PprofPrefix, server.PprofHandler(server.PprofConfig{
			Username: cfg.Metrics.PprofUsername,
			Password: cfg.Metrics.PprofPassword,
		}))
	}
	a.metrics = server.New(
		server.WithAddr(cfg.Metrics.Addr),
		server.WithServiceName(cfg.Service.Name+"-metrics"),
		server.WithLogger(logger),
		server.WithHandler(metricsRouter),
	)

	return a, nil
}

func (a *App) apiMiddleware() []server.Middleware {
	ms := []server.Middleware{
		server.Recovery(a.logger),
		server.RequestID(),
	}
	if len(a.cfg.API.CORSOrigins) > 0 {
		ms = append(ms, server.CORS(server.CORSConfig{AllowedOrigins: a.cfg.API.CORSOrigins}))
	}
	return append(ms, server.Timeout(a.cfg.API.RequestTimeout))
}

func (a *App) router(health *server.HealthHandler) http.Handler {
	r := chi.NewRouter()
	health.Register(r)
	person.NewHandler(a.store, a.logger).Routes(r)
	return r
}

// Handler returns the API handler with its full middleware chain.
func (a *App) Handler() http.Handler {
	return a.api.Handler()
}

// MetricsHandler returns the handler of the metrics listener.
func (a *App) MetricsHandler() http.Handler {
	return a.metrics.Handler()
}

// Store returns the person store backed by the unkeyed driver.
func (a *App) Store() *person.Store {
	return a.store
}

// Run serves the API and metrics listeners until ctx is cancelled or
// either listener fails. With Seed:OnStart the sample graph is seeded
// first.
func (a *App) Run(ctx context.Context) error {
	if a.cfg.Seed.OnStart {
		if err := a.Seed(ctx); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.api.ListenAndServe(gctx)
	})
	g.Go(func() error {
		return a.metrics.ListenAndServe(gctx)
	})
	return g.Wait()
}

// Seed waits for the database to accept connections, for at most
// Seed:WaitTimeout, and then loads the sample graph.
func (a *App) Seed(ctx context.Context) error {
	if err := a.WaitForDatabase(ctx); err != nil {
		return err
	}
	if err := a.store.Seed(ctx); err != nil {
		return fmt.Errorf("seed sample graph: %w", err)
	}
	a.logger.Info().Strs("people", person.SeedNames).Msg("sample graph seeded")
	return nil
}

// WaitForDatabase retries VerifyConnectivity with exponential backoff.
func (a *App) WaitForDatabase(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, a.driver.VerifyConnectivity(ctx)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(a.cfg.Seed.WaitTimeout),
		backoff.WithNotify(func(err error, next time.Duration) {
			a.logger.Warn().
				Err(err).
				Str("target", a.driver.Target()).
				Dur("retry_in", next).
				Msg("neo4j not reachable yet")
		}),
	)
	if err != nil {
		return fmt.Errorf("wait for neo4j at %s: %w", a.driver.Target(), err)
	}
	return nil
}

// Close closes every registered driver and flushes telemetry.
func (a *App) Close(ctx context.Context) error {
	return errors.Join(
		a.registry.Close(ctx),
		a.telemetry.Shutdown(ctx),
	)
}
