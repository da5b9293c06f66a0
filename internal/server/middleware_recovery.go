package server

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"
)

// Recovery turns a panic in a handler into a 500 response and logs the
// stack trace.
func Recovery(logger zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error().
					Interface("panic", rec).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("request_id", RequestIDFromContext(r.Context())).
					Str("stack", string(debug.Stack())).
					Msg("panic recovered")

				WriteError(w, http.StatusInternalServerError,
					"internal server error",
					Error{Field: "server", Message: "an unexpected error occurred"},
				)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
