package neo4j

import (
	"context"
	"time"
)

// DefaultHealthCheckTimeout bounds a single connectivity check.
const DefaultHealthCheckTimeout = 5 * time.Second

// HealthStatus is the outcome of a health check.
type HealthStatus int

const (
	Healthy HealthStatus = iota
	Unhealthy
)

func (s HealthStatus) String() string {
	if s == Healthy {
		return "healthy"
	}
	return "unhealthy"
}

// HealthResult is the outcome of one check. Err is set when Unhealthy.
type HealthResult struct {
	Status HealthStatus
	Err    error
}

// connectivityVerifier is the part of Driver a health check needs.
type connectivityVerifier interface {
	VerifyConnectivity(ctx context.Context) error
}

// HealthCheck reports whether a driver can reach its server.
type HealthCheck struct {
	driver  connectivityVerifier
	timeout time.Duration
}

// NewHealthCheck creates a health check for driver.
func NewHealthCheck(driver *Driver) *HealthCheck {
	return &HealthCheck{driver: driver, timeout: DefaultHealthCheckTimeout}
}

// CheckHealth verifies connectivity. Failures are reported as Unhealthy,
// never returned.
func (h *HealthCheck) CheckHealth(ctx context.Context) HealthResult {
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	if err := h.driver.VerifyConnectivity(ctx); err != nil {
		return HealthResult{Status: Unhealthy, Err: err}
	}
	return HealthResult{Status: Healthy}
}

// Check adapts CheckHealth to the func(ctx) error shape used by readiness
// probes: nil when healthy, the cause otherwise.
func (h *HealthCheck) Check(ctx context.Context) error {
	return h.CheckHealth(ctx).Err
}

// NamedHealthCheck pairs a health check with its registration name.
type NamedHealthCheck struct {
	Name  string
	Check *HealthCheck
}

// healthCheckName returns "neo4j" for the unkeyed driver and "neo4j_{key}"
// for keyed drivers.
func healthCheckName(key string) string {
	if key == "" {
		return dbSystem
	}
	return dbSystem + "_" + key
}
