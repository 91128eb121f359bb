// Package health provides health check functionality for liveness and readiness probes.
package health

import (
	"context"
	"sync"
	"time"
)

// ReadinessChecker is implemented by remote adapters to verify the remote
// compute backend is reachable.
type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

// Status represents the health status of a component.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult contains the result of a health check.
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Response is the health check response.
type Response struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

// IsHealthy returns true if the overall status is healthy.
func (r *Response) IsHealthy() bool {
	return r.Status == StatusHealthy
}

// Checker performs health checks on the remote backend.
type Checker struct {
	remote   ReadinessChecker
	timeout  time.Duration
	cacheTTL time.Duration

	mu           sync.RWMutex
	lastCheck    time.Time
	cachedReady  *Response
	shuttingDown bool
}

// NewChecker creates a new health checker.
func NewChecker(remote ReadinessChecker) *Checker {
	return &Checker{
		remote:   remote,
		timeout:  5 * time.Second,
		cacheTTL: time.Second,
	}
}

// Liveness reports whether the process is alive. It never touches the
// remote backend; failing this probe should trigger a restart.
func (c *Checker) Liveness(ctx context.Context) *Response {
	return &Response{Status: StatusHealthy}
}

// Readiness reports whether the service can accept traffic, probing the
// remote backend. Results are cached briefly so probes do not hammer the
// remote API. Failing this probe should remove the instance from rotation.
func (c *Checker) Readiness(ctx context.Context) *Response {
	c.mu.RLock()
	if c.shuttingDown {
		c.mu.RUnlock()
		return &Response{
			Status: StatusUnhealthy,
			Checks: map[string]CheckResult{
				"shutdown": {Status: StatusUnhealthy, Message: "service is shutting down"},
			},
		}
	}
	if c.cachedReady != nil && time.Since(c.lastCheck) < c.cacheTTL {
		cached := c.cachedReady
		c.mu.RUnlock()
		return cached
	}
	c.mu.RUnlock()

	remoteCheck := c.checkRemote(ctx)
	response := &Response{
		Status: remoteCheck.Status,
		Checks: map[string]CheckResult{"remote": remoteCheck},
	}

	c.mu.Lock()
	c.cachedReady = response
	c.lastCheck = time.Now()
	c.mu.Unlock()

	return response
}

// SetShuttingDown marks the service as shutting down so readiness turns
// unhealthy and load balancers stop sending new traffic.
func (c *Checker) SetShuttingDown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shuttingDown = true
	c.cachedReady = nil
}

func (c *Checker) checkRemote(ctx context.Context) CheckResult {
	if c.remote == nil {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: "remote backend not configured",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.remote.Ready(ctx); err != nil {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: err.Error(),
		}
	}
	return CheckResult{Status: StatusHealthy}
}
