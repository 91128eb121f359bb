package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds all application metrics implementing the golden 4 signals:
// - Latency: How long requests/tool invocations/remote calls take
// - Traffic: Request and invocation throughput
// - Errors: Rate of failures, including authentication rejections
// - Saturation: Remote-call concurrency is bounded by the adapter; the
//   gateway itself holds no queues, so no saturation gauge is needed here
type Metrics struct {
	meter metric.Meter

	// HTTP metrics (Latency, Traffic, Errors)
	HTTPRequestDuration metric.Float64Histogram
	HTTPRequestsTotal   metric.Int64Counter
	HTTPErrorsTotal     metric.Int64Counter

	// Tool metrics (Latency, Traffic, Errors)
	ToolDuration    metric.Float64Histogram
	ToolInvocations metric.Int64Counter
	ToolErrorsTotal metric.Int64Counter

	// Authentication metrics (Errors)
	AuthFailuresTotal metric.Int64Counter

	// Job lifecycle metrics (Traffic)
	JobsSubmittedTotal metric.Int64Counter
	JobsCancelledTotal metric.Int64Counter

	// Remote call metrics (Latency, Traffic, Errors)
	RemoteCallDuration metric.Float64Histogram
	RemoteCallsTotal   metric.Int64Counter
	RemoteErrorsTotal  metric.Int64Counter
}

// NewMetrics creates and registers all metrics with a Prometheus exporter.
func NewMetrics(ctx context.Context) (*Metrics, http.Handler, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter("computegw")
	m := &Metrics{meter: meter}

	// HTTP metrics
	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, nil, err
	}

	m.HTTPRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.HTTPErrorsTotal, err = meter.Int64Counter(
		"http_errors_total",
		metric.WithDescription("Total number of HTTP errors (4xx and 5xx)"),
	)
	if err != nil {
		return nil, nil, err
	}

	// Tool metrics
	m.ToolDuration, err = meter.Float64Histogram(
		"tool_invocation_duration_seconds",
		metric.WithDescription("Tool invocation latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	)
	if err != nil {
		return nil, nil, err
	}

	m.ToolInvocations, err = meter.Int64Counter(
		"tool_invocations_total",
		metric.WithDescription("Total number of tool invocations"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.ToolErrorsTotal, err = meter.Int64Counter(
		"tool_errors_total",
		metric.WithDescription("Total number of failed tool invocations"),
	)
	if err != nil {
		return nil, nil, err
	}

	// Authentication metrics
	m.AuthFailuresTotal, err = meter.Int64Counter(
		"auth_failures_total",
		metric.WithDescription("Total number of rejected caller credentials"),
	)
	if err != nil {
		return nil, nil, err
	}

	// Job lifecycle metrics
	m.JobsSubmittedTotal, err = meter.Int64Counter(
		"jobs_submitted_total",
		metric.WithDescription("Total number of jobs submitted through the gateway"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.JobsCancelledTotal, err = meter.Int64Counter(
		"jobs_cancelled_total",
		metric.WithDescription("Total number of jobs cancelled through the gateway"),
	)
	if err != nil {
		return nil, nil, err
	}

	// Remote call metrics
	m.RemoteCallDuration, err = meter.Float64Histogram(
		"remote_call_duration_seconds",
		metric.WithDescription("Remote compute API call latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	)
	if err != nil {
		return nil, nil, err
	}

	m.RemoteCallsTotal, err = meter.Int64Counter(
		"remote_calls_total",
		metric.WithDescription("Total number of remote compute API calls"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.RemoteErrorsTotal, err = meter.Int64Counter(
		"remote_errors_total",
		metric.WithDescription("Total number of failed remote compute API calls"),
	)
	if err != nil {
		return nil, nil, err
	}

	return m, promhttp.Handler(), nil
}

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, durationSeconds float64) {
	attrs := metric.WithAttributes(
		methodAttr(method),
		pathAttr(path),
		statusAttr(statusCode),
	)

	m.HTTPRequestDuration.Record(ctx, durationSeconds, attrs)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)

	if statusCode >= 400 {
		m.HTTPErrorsTotal.Add(ctx, 1, attrs)
	}
}

// RecordToolInvocation records one tool invocation with its outcome.
func (m *Metrics) RecordToolInvocation(ctx context.Context, tool string, success bool, durationSeconds float64) {
	attrs := metric.WithAttributes(toolAttr(tool), successAttr(success))

	m.ToolDuration.Record(ctx, durationSeconds, attrs)
	m.ToolInvocations.Add(ctx, 1, attrs)

	if !success {
		m.ToolErrorsTotal.Add(ctx, 1, attrs)
	}
}

// RecordAuthFailure records a rejected caller credential.
func (m *Metrics) RecordAuthFailure(ctx context.Context) {
	m.AuthFailuresTotal.Add(ctx, 1)
}

// RecordJobSubmitted records a job accepted by the remote service.
func (m *Metrics) RecordJobSubmitted(ctx context.Context, resourceType string) {
	m.JobsSubmittedTotal.Add(ctx, 1, metric.WithAttributes(resourceAttr(resourceType)))
}

// RecordJobCancelled records a confirmed cancellation.
func (m *Metrics) RecordJobCancelled(ctx context.Context) {
	m.JobsCancelledTotal.Add(ctx, 1)
}

// RecordRemoteCall records one remote compute API call with its outcome.
func (m *Metrics) RecordRemoteCall(ctx context.Context, op string, success bool, durationSeconds float64) {
	attrs := metric.WithAttributes(opAttr(op), successAttr(success))

	m.RemoteCallDuration.Record(ctx, durationSeconds, attrs)
	m.RemoteCallsTotal.Add(ctx, 1, attrs)

	if !success {
		m.RemoteErrorsTotal.Add(ctx, 1, attrs)
	}
}
