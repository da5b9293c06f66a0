package server

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// LoggerConfig configures request logging.
type LoggerConfig struct {
	Logger zerolog.Logger

	// serviceName is set by New.
	serviceName string

	// SkipPaths are not logged. Probe endpoints are the usual candidates.
	SkipPaths []string
}

// Logger logs one event per request. 4xx responses log at warn and 5xx
// at error.
func Logger(cfg LoggerConfig) Middleware {
	skip := pathSet(cfg.SkipPaths)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			wrapped := wrapResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			status := wrapped.Status()
			event := cfg.Logger.Info()
			switch {
			case status >= 500:
				event = cfg.Logger.Error()
			case status >= 400:
				event = cfg.Logger.Warn()
			}

			event.
				Str("service", cfg.serviceName).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Dur("duration", time.Since(start)).
				Int("bytes", wrapped.BytesWritten()).
				Str("remote_addr", r.RemoteAddr)

			// RequestID usually runs inside this middleware, so the id is
			// only visible on the response.
			id := RequestIDFromContext(r.Context())
			if id == "" {
				id = wrapped.Header().Get(RequestIDHeader)
			}
			if id != "" {
				event.Str("request_id", id)
			}

			event.Msg("request completed")
		})
	}
}

func pathSet(paths []string) map[string]bool {
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		set[p] = true
	}
	return set
}
