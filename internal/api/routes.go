package api

import (
	"net/http"

	"computegw/internal/gateway"
	"computegw/internal/health"
	"computegw/internal/observability"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	Gateway       *gateway.Gateway
	Metrics       *observability.Metrics
	HealthChecker *health.Checker
}

// NewRouter creates a new HTTP router with all routes configured.
// Credential verification is not a route concern here: the gateway verifies
// the caller on every tool invocation, and health probes are unauthenticated.
func NewRouter(cfg RouterConfig) http.Handler {
	handler := NewHandler(cfg.Gateway, cfg.HealthChecker)

	mux := http.NewServeMux()

	// Health check endpoints (liveness/readiness probes)
	mux.HandleFunc("GET /livez", handler.Livez)
	mux.HandleFunc("GET /readyz", handler.Readyz)

	// Tool invocation
	mux.HandleFunc("POST /v1/tools/{tool}", handler.InvokeTool)

	// Apply middleware chain (order matters: outermost first)
	var h http.Handler = mux
	h = ContentTypeMiddleware()(h)
	h = CORSMiddleware()(h)
	if cfg.Metrics != nil {
		h = MetricsMiddleware(cfg.Metrics)(h)
	}
	h = LoggingMiddleware()(h)
	h = RequestIDMiddleware()(h)
	h = RecoveryMiddleware()(h)

	return h
}
