// Package api provides the HTTP surface of the gateway: tool invocation plus
// health probes.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"computegw/internal/apperrors"
	"computegw/internal/gateway"
	"computegw/internal/health"
)

// maxRequestBodySize limits request body to 1MB to prevent memory exhaustion
const maxRequestBodySize = 1 << 20 // 1 MB

// Handler contains the HTTP handlers.
type Handler struct {
	gw     *gateway.Gateway
	health *health.Checker
}

// NewHandler creates a new API handler.
func NewHandler(gw *gateway.Gateway, healthChecker *health.Checker) *Handler {
	return &Handler{gw: gw, health: healthChecker}
}

// InvokeTool handles POST /v1/tools/{tool}.
//
// The caller credential is carried as a bearer token. This layer only
// extracts it; verification happens inside the gateway so a missing or
// malformed header is indistinguishable from a wrong credential.
func (h *Handler) InvokeTool(w http.ResponseWriter, r *http.Request) {
	tool := r.PathValue("tool")

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	params, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	result, err := h.gw.Invoke(r.Context(), tool, bearerToken(r), json.RawMessage(params))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// Livez handles GET /livez - liveness probe.
// Returns 200 if the process is alive. Does not check dependencies.
func (h *Handler) Livez(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.health.Liveness(r.Context()))
}

// Readyz handles GET /readyz - readiness probe.
// Returns 200 if the service is ready to accept traffic.
// Returns 503 if the remote backend is unavailable.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	response := h.health.Readiness(r.Context())

	status := http.StatusOK
	if !response.IsHealthy() {
		status = http.StatusServiceUnavailable
	}

	h.writeJSON(w, status, response)
}

// bearerToken extracts the bearer token from the Authorization header.
// Returns "" for missing or malformed headers; the verifier rejects empty
// credentials, so these fail authentication like any wrong credential.
func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// handleError maps gateway errors onto HTTP status codes. The response body
// carries only the error's caller-facing message; the underlying cause of a
// remote failure goes to the log, never to the caller.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)

	if status >= 500 {
		logAttrs := []any{"error", err, "path", r.URL.Path}
		var appErr *apperrors.Error
		if errors.As(err, &appErr) && appErr.Cause != nil {
			logAttrs = append(logAttrs, "cause", appErr.Cause)
		}
		slog.ErrorContext(r.Context(), "Upstream error", logAttrs...)
	} else {
		slog.WarnContext(r.Context(), "Client error", "error", err, "path", r.URL.Path, "status", status)
	}

	h.writeError(w, status, err.Error())
}
