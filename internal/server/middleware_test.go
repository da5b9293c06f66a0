package server_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kroma-labs/sentinel-neo4j/internal/server"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func statusHandler(code int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(code)
	})
}

func TestChain(t *testing.T) {
	t.Parallel()

	t.Run("given two middleware, then the first is outermost", func(t *testing.T) {
		var order []string
		mark := func(name string) server.Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name+"-before")
					next.ServeHTTP(w, r)
					order = append(order, name+"-after")
				})
			}
		}

		handler := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			order = append(order, "handler")
		})

		server.Chain(mark("m1"), mark("m2"))(handler).
			ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, []string{"m1-before", "m2-before", "handler", "m2-after", "m1-after"}, order)
	})
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		incomingID string
	}{
		{name: "given no request id, then generates one"},
		{name: "given request id, then forwards it", incomingID: "req-123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured string
			handler := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				captured = server.RequestIDFromContext(r.Context())
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incomingID != "" {
				req.Header.Set(server.RequestIDHeader, tt.incomingID)
			}
			rec := httptest.NewRecorder()

			server.RequestID()(handler).ServeHTTP(rec, req)

			assert.NotEmpty(t, captured)
			assert.Equal(t, captured, rec.Header().Get(server.RequestIDHeader))
			if tt.incomingID != "" {
				assert.Equal(t, tt.incomingID, captured)
			}
		})
	}

	t.Run("given context without id, then returns empty", func(t *testing.T) {
		assert.Empty(t, server.RequestIDFromContext(context.Background()))
	})
}

func TestRecovery(t *testing.T) {
	t.Parallel()

	t.Run("given handler panics, then returns 500 envelope and logs", func(t *testing.T) {
		var buf bytes.Buffer
		handler := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		})

		rec := httptest.NewRecorder()
		require.NotPanics(t, func() {
			server.Recovery(zerolog.New(&buf))(handler).
				ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/person", nil))
		})

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), `"message":"internal server error"`)
		assert.Contains(t, buf.String(), "panic recovered")
		assert.Contains(t, buf.String(), "boom")
	})
}

func TestLogger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		path      string
		status    int
		wantLevel string
		wantEmpty bool
	}{
		{name: "given 200, then logs info", path: "/person", status: http.StatusOK, wantLevel: `"level":"info"`},
		{name: "given 404, then logs warn", path: "/person/x", status: http.StatusNotFound, wantLevel: `"level":"warn"`},
		{name: "given 500, then logs error", path: "/person", status: http.StatusInternalServerError, wantLevel: `"level":"error"`},
		{name: "given skipped path, then logs nothing", path: "/readyz", status: http.StatusOK, wantEmpty: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			mw := server.Chain(
				server.Logger(server.LoggerConfig{Logger: zerolog.New(&buf), SkipPaths: []string{"/readyz"}}),
				server.RequestID(),
			)

			mw(statusHandler(tt.status)).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))

			if tt.wantEmpty {
				assert.Empty(t, buf.String())
				return
			}
			assert.Contains(t, buf.String(), tt.wantLevel)
			assert.Contains(t, buf.String(), `"path":"`+tt.path+`"`)
			assert.Contains(t, buf.String(), `"request_id":`)
		})
	}
}

func TestTimeout(t *testing.T) {
	t.Parallel()

	t.Run("given handler exceeding the deadline without writing, then returns 503", func(t *testing.T) {
		handler := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		})

		rec := httptest.NewRecorder()
		server.Timeout(10*time.Millisecond)(handler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("given fast handler, then passes its response through", func(t *testing.T) {
		rec := httptest.NewRecorder()
		server.Timeout(time.Second)(statusHandler(http.StatusCreated)).
			ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("given zero timeout, then leaves the handler alone", func(t *testing.T) {
		rec := httptest.NewRecorder()
		server.Timeout(0)(statusHandler(http.StatusAccepted)).
			ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusAccepted, rec.Code)
	})
}

func TestTracing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		path      string
		status    int
		wantSpans int
		wantError bool
	}{
		{name: "given request, then records server span", path: "/person", status: http.StatusOK, wantSpans: 1},
		{name: "given 5xx, then marks span as error", path: "/person", status: http.StatusInternalServerError, wantSpans: 1, wantError: true},
		{name: "given skipped path, then records nothing", path: "/livez", status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter := tracetest.NewInMemoryExporter()
			tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
			defer tp.Shutdown(context.Background())

			mw := server.Tracing(server.TracingConfig{TracerProvider: tp, SkipPaths: []string{"/livez"}})
			mw(statusHandler(tt.status)).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))

			spans := exporter.GetSpans()
			require.Len(t, spans, tt.wantSpans)
			if tt.wantSpans == 0 {
				return
			}
			assert.Equal(t, "HTTP GET "+tt.path, spans[0].Name)
			assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind)
			if tt.wantError {
				assert.Equal(t, codes.Error, spans[0].Status.Code)
			}
		})
	}
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	t.Run("given metrics middleware, then records request instruments", func(t *testing.T) {
		reader := sdkmetric.NewManualReader()
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		defer mp.Shutdown(context.Background())

		m, err := server.NewMetrics(server.MetricsConfig{MeterProvider: mp})
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		m.Middleware()(statusHandler(http.StatusOK)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/person", nil))
		assert.Equal(t, http.StatusOK, rec.Code)

		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(context.Background(), &rm))
		require.Len(t, rm.ScopeMetrics, 1)

		names := make([]string, 0, len(rm.ScopeMetrics[0].Metrics))
		for _, metric := range rm.ScopeMetrics[0].Metrics {
			names = append(names, metric.Name)
		}
		assert.ElementsMatch(t, []string{
			"http.server.request.duration",
			"http.server.active_requests",
			"http.server.request.total",
		}, names)
	})
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	do := func(h http.Handler, remote string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	t.Run("given global limit exceeded, then returns 429", func(t *testing.T) {
		h := server.RateLimit(server.RateLimitConfig{Limit: 1, Burst: 1})(statusHandler(http.StatusOK))

		assert.Equal(t, http.StatusOK, do(h, "10.0.0.1:1000"))
		assert.Equal(t, http.StatusTooManyRequests, do(h, "10.0.0.2:1000"))
	})

	t.Run("given per-IP limit, then buckets are independent", func(t *testing.T) {
		h := server.RateLimit(server.RateLimitConfig{Limit: 1, Burst: 1, KeyFunc: server.KeyByIP})(statusHandler(http.StatusOK))

		assert.Equal(t, http.StatusOK, do(h, "10.0.0.1:1000"))
		assert.Equal(t, http.StatusTooManyRequests, do(h, "10.0.0.1:2000"))
		assert.Equal(t, http.StatusOK, do(h, "10.0.0.2:1000"))
	})
}

func TestWriteEnvelope(t *testing.T) {
	t.Parallel()

	t.Run("given success, then writes data and message", func(t *testing.T) {
		rec := httptest.NewRecorder()
		server.WriteSuccess(rec, http.StatusCreated, map[string]string{"name": "Alice"}, "person created")

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"data":{"name":"Alice"},"message":"person created"}`, rec.Body.String())
	})

	t.Run("given error, then writes errors and message", func(t *testing.T) {
		rec := httptest.NewRecorder()
		server.WriteError(rec, http.StatusBadRequest, "validation failed",
			server.Error{Field: "name", Message: "must not be blank"})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t,
			`{"errors":[{"field":"name","message":"must not be blank"}],"message":"validation failed"}`,
			rec.Body.String())
	})
}

func TestMetricsHandler(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	server.MetricsHandler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestCORS(t *testing.T) {
	t.Parallel()

	cors := server.CORS(server.CORSConfig{AllowedOrigins: []string{"https://friends.example"}})
	h := cors(statusHandler(http.StatusOK))

	tests := []struct {
		name        string
		method      string
		origin      string
		preflight   bool
		wantCode    int
		wantOrigin  string
		wantMethods string
	}{
		{
			name:       "given an allowed origin, then the origin is echoed",
			method:     http.MethodGet,
			origin:     "https://friends.example",
			wantCode:   http.StatusOK,
			wantOrigin: "https://friends.example",
		},
		{
			name:     "given another origin, then no CORS headers are set",
			method:   http.MethodGet,
			origin:   "https://evil.example",
			wantCode: http.StatusOK,
		},
		{
			name:     "given no origin, then the request passes through",
			method:   http.MethodGet,
			wantCode: http.StatusOK,
		},
		{
			name:        "given a preflight from an allowed origin, then 204 with allowed methods",
			method:      http.MethodOptions,
			origin:      "https://friends.example",
			preflight:   true,
			wantCode:    http.StatusNoContent,
			wantOrigin:  "https://friends.example",
			wantMethods: "GET, POST, OPTIONS",
		},
		{
			name:      "given a preflight from another origin, then it reaches the handler",
			method:    http.MethodOptions,
			origin:    "https://evil.example",
			preflight: true,
			wantCode:  http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/person", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantMethods, rec.Header().Get("Access-Control-Allow-Methods"))
			assert.Equal(t, "Origin", rec.Header().Get("Vary"))
		})
	}

	t.Run("given a wildcard with credentials, then credentials are allowed", func(t *testing.T) {
		h := server.CORS(server.CORSConfig{
			AllowedOrigins:   []string{"*"},
			AllowCredentials: true,
		})(statusHandler(http.StatusOK))

		req := httptest.NewRequest(http.MethodGet, "/person", nil)
		req.Header.Set("Origin", "https://any.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "https://any.example", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
		assert.Equal(t, server.RequestIDHeader, rec.Header().Get("Access-Control-Expose-Headers"))
	})
}

func TestPprofHandler(t *testing.T) {
	t.Parallel()

	t.Run("given no credentials, then the index is open", func(t *testing.T) {
		rec := httptest.NewRecorder()
		server.PprofHandler(server.PprofConfig{}).
			ServeHTTP(rec, httptest.NewRequest(http.MethodGet, server.PprofPrefix+"/", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "goroutine")
	})

	cfg := server.PprofConfig{Username: "ops", Password: "s3cret"}

	tests := []struct {
		name     string
		user     string
		pass     string
		noAuth   bool
		wantCode int
	}{
		{name: "given no auth header, then 401", noAuth: true, wantCode: http.StatusUnauthorized},
		{name: "given a wrong password, then 401", user: "ops", pass: "nope", wantCode: http.StatusUnauthorized},
		{name: "given a wrong user, then 401", user: "root", pass: "s3cret", wantCode: http.StatusUnauthorized},
		{name: "given valid credentials, then 200", user: "ops", pass: "s3cret", wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, server.PprofPrefix+"/", nil)
			if !tt.noAuth {
				req.SetBasicAuth(tt.user, tt.pass)
			}
			rec := httptest.NewRecorder()

			server.PprofHandler(cfg).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusUnauthorized {
				assert.Equal(t, `Basic realm="pprof"`, rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}
