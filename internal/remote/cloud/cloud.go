// Package cloud implements the remote job port against the managed compute
// service's HTTP API. It holds the remote-facing credential and the resilience
// policy (retries, circuit breaking) so neither leaks into the use-case layer.
package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"computegw/internal/apperrors"
	"computegw/internal/job"
	"computegw/internal/observability"
	"computegw/pkg/backoff"
	"computegw/pkg/circuitbreaker"
)

// Client talks to the remote compute API and adapts its wire protocol to the
// gateway's job entities. It is safe for concurrent use.
type Client struct {
	baseURL    string
	credential string
	httpClient *http.Client
	breaker    *circuitbreaker.Breaker
	retries    int
	retryCfg   *backoff.Config
	metrics    *observability.Metrics
}

// New creates a cloud adapter. The metrics recorder may be nil.
func New(cfg Config, metrics *observability.Metrics) (*Client, error) {
	cfg = cfg.withDefaults()
	if cfg.BaseURL == "" {
		return nil, errors.New("cloud: base URL is required")
	}
	if cfg.Credential == "" {
		return nil, errors.New("cloud: credential is required")
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		credential: cfg.Credential,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		breaker:  circuitbreaker.New(cfg.Breaker),
		retries:  cfg.MaxRetries,
		retryCfg: &backoff.Config{Initial: 200 * time.Millisecond, Max: 3 * time.Second, Jitter: 0.2},
		metrics:  metrics,
	}, nil
}

// wireJob mirrors the remote API's job representation.
type wireJob struct {
	ID            string         `json:"job_id"`
	Name          string         `json:"name"`
	Status        string         `json:"status"`
	InstanceCount int            `json:"instance_count"`
	ResourceType  string         `json:"resource_type"`
	Priority      int            `json:"priority"`
	Tags          []string       `json:"tags"`
	Config        map[string]any `json:"config"`
	Progress      float64        `json:"progress"`
	CreatedAt     time.Time      `json:"created_at"`
	StartedAt     *time.Time     `json:"started_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	CompletedAt   *time.Time     `json:"completed_at"`
	ErrorMessage  string         `json:"error_message"`
}

type wireResult struct {
	JobID       string `json:"job_id"`
	Status      string `json:"status"`
	ResultsURL  string `json:"results_url"`
	SizeBytes   int64  `json:"file_size_bytes"`
	FileCount   int    `json:"file_count"`
	DownloadURL string `json:"download_url"`
	Checksum    string `json:"checksum"`
}

type wireList struct {
	Jobs       []wireJob `json:"jobs"`
	TotalCount int       `json:"total_count"`
}

type wireError struct {
	Error string `json:"error"`
}

// httpError carries a non-2xx response until the call site maps it onto the
// error taxonomy.
type httpError struct {
	StatusCode int
	Message    string
}

func (e *httpError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (c *Client) toJob(op string, w wireJob) (*job.Job, error) {
	status, err := job.ParseStatus(w.Status)
	if err != nil {
		// An unrecognized lifecycle state must not flow through the gateway.
		return nil, apperrors.Remote(op, err)
	}
	resource, err := job.ParseResourceType(w.ResourceType)
	if err != nil {
		return nil, apperrors.Remote(op, err)
	}
	return &job.Job{
		ID:            w.ID,
		Name:          w.Name,
		Status:        status,
		InstanceCount: w.InstanceCount,
		ResourceType:  resource,
		Priority:      w.Priority,
		Tags:          w.Tags,
		Config:        w.Config,
		Progress:      w.Progress,
		CreatedAt:     w.CreatedAt,
		StartedAt:     w.StartedAt,
		UpdatedAt:     w.UpdatedAt,
		CompletedAt:   w.CompletedAt,
		ErrorMessage:  w.ErrorMessage,
	}, nil
}

// Submit submits a new job. Submission is not idempotent, so it is never
// retried here.
func (c *Client) Submit(ctx context.Context, spec job.SubmitSpec) (*job.Job, error) {
	body := map[string]any{
		"name":           spec.Name,
		"config":         spec.Config,
		"instance_count": spec.InstanceCount,
		"resource_type":  string(spec.ResourceType),
		"priority":       spec.Priority,
		"tags":           spec.Tags,
	}

	var w wireJob
	if err := c.do(ctx, "cloud.submit", http.MethodPost, "/v1/jobs", body, &w, false); err != nil {
		return nil, c.mapError("cloud.submit", "", err)
	}
	return c.toJob("cloud.submit", w)
}

// Status returns the current snapshot of a job.
func (c *Client) Status(ctx context.Context, jobID string) (*job.Job, error) {
	var w wireJob
	if err := c.do(ctx, "cloud.status", http.MethodGet, "/v1/jobs/"+url.PathEscape(jobID), nil, &w, true); err != nil {
		return nil, c.mapError("cloud.status", jobID, err)
	}
	return c.toJob("cloud.status", w)
}

// Results returns the outcome metadata of a completed job.
func (c *Client) Results(ctx context.Context, jobID string) (*job.Result, error) {
	var w wireResult
	if err := c.do(ctx, "cloud.results", http.MethodGet, "/v1/jobs/"+url.PathEscape(jobID)+"/results", nil, &w, true); err != nil {
		return nil, c.mapError("cloud.results", jobID, err)
	}

	status, err := job.ParseStatus(w.Status)
	if err != nil {
		return nil, apperrors.Remote("cloud.results", err)
	}
	return &job.Result{
		JobID:       w.JobID,
		Status:      status,
		ResultsURL:  w.ResultsURL,
		SizeBytes:   w.SizeBytes,
		FileCount:   w.FileCount,
		DownloadURL: w.DownloadURL,
		Checksum:    w.Checksum,
	}, nil
}

// Cancel requests cancellation of a job. The remote service treats cancelling
// an already-cancelled job as a success and returns the unchanged snapshot, so
// no special casing is needed here.
func (c *Client) Cancel(ctx context.Context, jobID, reason string) (*job.Job, error) {
	body := map[string]any{}
	if reason != "" {
		body["reason"] = reason
	}

	var w wireJob
	if err := c.do(ctx, "cloud.cancel", http.MethodPost, "/v1/jobs/"+url.PathEscape(jobID)+"/cancel", body, &w, false); err != nil {
		return nil, c.mapError("cloud.cancel", jobID, err)
	}
	return c.toJob("cloud.cancel", w)
}

// List returns one page of jobs. Filtering and pagination happen server-side.
func (c *Client) List(ctx context.Context, q job.ListQuery) (*job.Page, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("offset", strconv.Itoa(q.Offset))
	if q.StatusFilter != "" {
		params.Set("status", string(q.StatusFilter))
	}

	var w wireList
	if err := c.do(ctx, "cloud.list", http.MethodGet, "/v1/jobs?"+params.Encode(), nil, &w, true); err != nil {
		return nil, c.mapError("cloud.list", "", err)
	}

	jobs := make([]job.Job, 0, len(w.Jobs))
	for _, wj := range w.Jobs {
		j, err := c.toJob("cloud.list", wj)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return &job.Page{Jobs: jobs, TotalCount: w.TotalCount}, nil
}

// Ready checks if the remote API is reachable.
func (c *Client) Ready(ctx context.Context) error {
	if err := c.do(ctx, "cloud.ready", http.MethodGet, "/health", nil, nil, false); err != nil {
		return c.mapError("cloud.ready", "", err)
	}
	return nil
}

// Close releases idle connections. Remote jobs are unaffected.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// do performs one logical remote call. Idempotent calls are retried on
// transport failures and 5xx responses with exponential backoff; every
// attempt goes through the circuit breaker.
func (c *Client) do(ctx context.Context, op, method, path string, body any, out any, idempotent bool) error {
	attempts := 1
	if idempotent {
		attempts += c.retries
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := backoff.Sleep(ctx, attempt-1, c.retryCfg); err != nil {
				return err
			}
			slog.DebugContext(ctx, "Retrying remote call", "op", op, "attempt", attempt)
		}

		start := time.Now()
		err := c.breaker.Do(func() error {
			return c.attempt(ctx, method, path, body, out)
		})
		c.record(ctx, op, err == nil, time.Since(start))

		if err == nil {
			return nil
		}
		lastErr = err

		if !retryable(err) {
			return err
		}
	}
	return lastErr
}

// attempt performs a single HTTP exchange.
func (c *Client) attempt(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.credential)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var we wireError
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(data, &we)
		return &httpError{StatusCode: resp.StatusCode, Message: we.Error}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// retryable reports whether an attempt error is worth retrying. 4xx responses
// and an open circuit are not; transport failures and 5xx are.
func retryable(err error) bool {
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var he *httpError
	if errors.As(err, &he) {
		return he.StatusCode >= 500
	}
	return true
}

// mapError translates a transport-level failure into the gateway's error
// taxonomy. A 401 or 403 from the remote service means the SERVICE credential
// is bad, which is an internal fault, never the caller's authentication error.
func (c *Client) mapError(op, jobID string, err error) error {
	var he *httpError
	if errors.As(err, &he) {
		switch he.StatusCode {
		case http.StatusNotFound:
			return apperrors.NotFound("job", jobID)
		case http.StatusConflict:
			msg := he.Message
			if msg == "" {
				msg = "operation not permitted in the job's current state"
			}
			return apperrors.InvalidState("job", jobID, msg)
		case http.StatusBadRequest:
			msg := he.Message
			if msg == "" {
				msg = "remote service rejected the request"
			}
			return apperrors.Validation("", msg)
		}
	}
	return apperrors.Remote(op, err)
}

func (c *Client) record(ctx context.Context, op string, success bool, d time.Duration) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordRemoteCall(ctx, op, success, d.Seconds())
}
