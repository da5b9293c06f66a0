package server

import (
	"context"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// HealthCheck probes one dependency. It returns nil when the dependency is
// usable.
type HealthCheck func(ctx context.Context) error

// CheckResult is the outcome of one check in a health response.
type CheckResult struct {
	Status              string `json:"status"`
	Latency             string `json:"latency"`
	Message             string `json:"message,omitempty"`
	LastChecked         string `json:"last_checked"`
	ConsecutiveSuccess  int    `json:"consecutive_successes,omitempty"`
	ConsecutiveFailures int    `json:"consecutive_failures,omitempty"`
}

// HealthResponse is the data of /livez and /readyz responses.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime,omitempty"`
	Hostname  string                 `json:"hostname,omitempty"`
	Timestamp string                 `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// PingResponse is the data of /ping responses.
type PingResponse struct {
	Status string `json:"status"`
}

type checkState struct {
	check               HealthCheck
	consecutiveSuccess  int
	consecutiveFailures int
}

// HealthHandler serves the probe endpoints.
//
//	health := server.NewHealthHandler(
//	    server.WithHealthServiceName("friendsapi"),
//	    server.WithVersion(version),
//	)
//	for _, hc := range registry.HealthChecks() {
//	    health.AddReadinessCheck(hc.Name, hc.Check.Check)
//	}
//	health.Register(router)
//
// Checks of one probe run concurrently.
type HealthHandler struct {
	serviceName string
	version     string
	startTime   time.Time
	hostname    string

	mu              sync.Mutex
	livenessChecks  map[string]*checkState
	readinessChecks map[string]*checkState
}

// HealthOption configures a HealthHandler.
type HealthOption func(*HealthHandler)

// WithHealthServiceName sets the service field of health responses.
func WithHealthServiceName(name string) HealthOption {
	return func(h *HealthHandler) {
		h.serviceName = name
	}
}

// WithVersion sets the version field of health responses.
func WithVersion(version string) HealthOption {
	return func(h *HealthHandler) {
		h.version = version
	}
}

// NewHealthHandler creates a HealthHandler without checks.
func NewHealthHandler(opts ...HealthOption) *HealthHandler {
	hostname, _ := os.Hostname()

	h := &HealthHandler{
		serviceName:     "unknown",
		version:         "0.0.0",
		startTime:       time.Now(),
		hostname:        hostname,
		livenessChecks:  make(map[string]*checkState),
		readinessChecks: make(map[string]*checkState),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// AddLivenessCheck adds a check to /livez. A failing liveness probe gets
// the process restarted, so keep these to in-process conditions.
func (h *HealthHandler) AddLivenessCheck(name string, check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.livenessChecks[name] = &checkState{check: check}
}

// AddReadinessCheck adds a check to /readyz. Database connectivity
// belongs here.
func (h *HealthHandler) AddReadinessCheck(name string, check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readinessChecks[name] = &checkState{check: check}
}

// Register mounts /ping, /livez and /readyz on mux.
func (h *HealthHandler) Register(mux interface {
	Handle(pattern string, handler http.Handler)
}) {
	mux.Handle("/ping", h.PingHandler())
	mux.Handle("/livez", h.LiveHandler())
	mux.Handle("/readyz", h.ReadyHandler())
}

// PingHandler always answers 200 without running checks.
func (h *HealthHandler) PingHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		WriteSuccess(w, http.StatusOK, PingResponse{Status: "pong"}, "")
	})
}

// LiveHandler answers 200 when every liveness check passes, 503 otherwise.
func (h *HealthHandler) LiveHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.serveChecks(w, r, h.livenessChecks)
	})
}

// ReadyHandler answers 200 when every readiness check passes, 503 otherwise.
func (h *HealthHandler) ReadyHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.serveChecks(w, r, h.readinessChecks)
	})
}

type checkOutcome struct {
	name    string
	err     error
	latency time.Duration
}

func (h *HealthHandler) serveChecks(w http.ResponseWriter, r *http.Request, checks map[string]*checkState) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	outcomes := runChecks(r.Context(), checks)

	results := make(map[string]CheckResult, len(outcomes))
	var errs []Error

	for _, o := range outcomes {
		state := checks[o.name]
		result := CheckResult{
			Latency:     o.latency.String(),
			LastChecked: now.Format(time.RFC3339),
		}

		if o.err != nil {
			state.consecutiveFailures++
			state.consecutiveSuccess = 0

			result.Status = "fail"
			result.Message = o.err.Error()
			result.ConsecutiveFailures = state.consecutiveFailures
			errs = append(errs, Error{Field: o.name, Message: o.err.Error()})
		} else {
			state.consecutiveSuccess++
			state.consecutiveFailures = 0

			result.Status = "ok"
			result.Message = "connected"
			result.ConsecutiveSuccess = state.consecutiveSuccess
		}

		results[o.name] = result
	}

	status, statusCode, message := "ok", http.StatusOK, "all checks passed"
	if len(errs) > 0 {
		status, statusCode, message = "fail", http.StatusServiceUnavailable, "one or more checks failed"
	}

	WriteJSON(w, statusCode, Response[HealthResponse]{
		Data: HealthResponse{
			Status:    status,
			Service:   h.serviceName,
			Version:   h.version,
			Uptime:    time.Since(h.startTime).Round(time.Second).String(),
			Hostname:  h.hostname,
			Timestamp: now.Format(time.RFC3339),
			Checks:    results,
		},
		Errors:  errs,
		Message: message,
	})
}

// runChecks runs every check concurrently and returns the outcomes sorted
// by name. A failing check does not cancel the others.
func runChecks(ctx context.Context, checks map[string]*checkState) []checkOutcome {
	outcomes := make([]checkOutcome, 0, len(checks))
	var mu sync.Mutex

	var g errgroup.Group
	for name, state := range checks {
		g.Go(func() error {
			start := time.Now()
			err := state.check(ctx)

			mu.Lock()
			outcomes = append(outcomes, checkOutcome{name: name, err: err, latency: time.Since(start)})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].name < outcomes[j].name
	})
	return outcomes
}
