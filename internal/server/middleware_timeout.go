package server

import (
	"context"
	"net/http"
	"time"
)

// Timeout bounds the request context. Handlers that pass the context on to
// their queries are cancelled at the deadline; if the handler has not
// written anything by then, a 503 is sent.
func Timeout(timeout time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			wrapped := wrapResponseWriter(w)
			next.ServeHTTP(wrapped, r.WithContext(ctx))

			if !wrapped.wroteHeader && ctx.Err() == context.DeadlineExceeded {
				WriteError(w, http.StatusServiceUnavailable,
					"request timeout",
					Error{Field: "server", Message: "request processing timed out"},
				)
			}
		})
	}
}
