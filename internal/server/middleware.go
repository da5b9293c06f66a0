package server

import "net/http"

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain composes middleware. The first one given is the outermost: it sees
// the request first and the response last.
//
//	handler := server.Chain(
//	    server.Recovery(logger),
//	    server.RequestID(),
//	    server.Timeout(10*time.Second),
//	)(router)
func Chain(middlewares ...Middleware) Middleware {
	return func(next http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
