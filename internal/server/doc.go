// Package server is the HTTP layer of the friends API: an http.Server with
// context-driven graceful shutdown, the middleware stack, health probes,
// the Prometheus endpoint and the JSON response envelope.
//
// # Middleware
//
// New installs the observability middleware from its options; the rest
// are composed with Chain:
//
//	srv := server.New(
//	    server.WithServiceName("friendsapi"),
//	    server.WithTracing(server.TracingConfig{SkipPaths: probes}),
//	    server.WithMetrics(server.MetricsConfig{SkipPaths: probes}),
//	    server.WithLogging(server.LoggerConfig{Logger: logger, SkipPaths: probes}),
//	    server.WithRateLimit(server.DefaultRateLimitConfig()),
//	    server.WithMiddleware(
//	        server.Recovery(logger),
//	        server.RequestID(),
//	        server.Timeout(10*time.Second),
//	    ),
//	    server.WithHandler(router),
//	)
//
// # Responses
//
// Handlers answer with the {data, errors, message} envelope through
// WriteSuccess and WriteError.
package server
