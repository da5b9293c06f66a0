package server

import (
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// KeyFunc selects the rate limit bucket of a request.
type KeyFunc func(r *http.Request) string

// RateLimitConfig configures the token bucket rate limiter.
type RateLimitConfig struct {
	// Limit is the sustained rate in requests per second.
	Limit rate.Limit

	// Burst is the bucket capacity.
	Burst int

	// KeyFunc enables one bucket per key. Nil means a single global bucket.
	KeyFunc KeyFunc
}

// DefaultRateLimitConfig allows 100 requests per second with bursts of 200.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Limit: 100, Burst: 200}
}

// RateLimit rejects requests over the limit with 429.
func RateLimit(cfg RateLimitConfig) Middleware {
	if cfg.KeyFunc == nil {
		limiter := rate.NewLimiter(cfg.Limit, cfg.Burst)
		return limitWith(func(*http.Request) *rate.Limiter { return limiter })
	}

	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	return limitWith(func(r *http.Request) *rate.Limiter {
		key := cfg.KeyFunc(r)

		mu.Lock()
		defer mu.Unlock()

		limiter, ok := limiters[key]
		if !ok {
			limiter = rate.NewLimiter(cfg.Limit, cfg.Burst)
			limiters[key] = limiter
		}
		return limiter
	})
}

func limitWith(limiterFor func(*http.Request) *rate.Limiter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiterFor(r).Allow() {
				WriteError(w, http.StatusTooManyRequests, "rate limit exceeded",
					Error{Field: "rate_limit", Message: "too many requests"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// KeyByIP buckets requests by client IP, without the port.
func KeyByIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
