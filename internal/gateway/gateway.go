// Package gateway provides the single entry point that authenticates a
// caller and dispatches a named tool invocation to the matching use case.
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"computegw/internal/apperrors"
	"computegw/internal/auth"
	"computegw/internal/job"
	"computegw/internal/observability"
)

// Tool names exposed to callers. Each maps 1:1 to a use case.
const (
	ToolSubmitJob          = "submit_job"
	ToolGetJobStatus       = "get_job_status"
	ToolRetrieveJobResults = "retrieve_job_results"
	ToolCancelJob          = "cancel_job"
	ToolListJobs           = "list_jobs"
)

// defaultListLimit applies when list_jobs params omit the limit.
const defaultListLimit = 10

// Gateway authenticates callers and dispatches tool invocations.
//
// The credential gate runs before anything else: a failed verification is
// reported without revealing whether the tool or any job exists, and
// without touching the use-case layer. Beyond the gate the gateway adds no
// error semantics of its own; use-case failures pass through unchanged.
type Gateway struct {
	verifier *auth.Verifier
	svc      *job.Service
	metrics  *observability.Metrics
}

// New creates a gateway over the given verifier and job service.
func New(verifier *auth.Verifier, svc *job.Service, metrics *observability.Metrics) *Gateway {
	return &Gateway{
		verifier: verifier,
		svc:      svc,
		metrics:  metrics,
	}
}

// Invoke verifies the caller credential and runs the named tool with the
// given JSON params. The returned value is the tool's response DTO.
func (g *Gateway) Invoke(ctx context.Context, tool, credential string, params json.RawMessage) (any, error) {
	if !g.verifier.Verify(credential) {
		if g.metrics != nil {
			g.metrics.RecordAuthFailure(ctx)
		}
		slog.WarnContext(ctx, "Authentication failed", "tool", tool)
		return nil, apperrors.Authentication()
	}

	start := time.Now()
	result, err := g.dispatch(ctx, tool, params)
	if g.metrics != nil {
		g.metrics.RecordToolInvocation(ctx, tool, err == nil, time.Since(start).Seconds())
	}
	return result, err
}

func (g *Gateway) dispatch(ctx context.Context, tool string, params json.RawMessage) (any, error) {
	switch tool {
	case ToolSubmitJob:
		return g.submitJob(ctx, params)
	case ToolGetJobStatus:
		return g.getJobStatus(ctx, params)
	case ToolRetrieveJobResults:
		return g.retrieveJobResults(ctx, params)
	case ToolCancelJob:
		return g.cancelJob(ctx, params)
	case ToolListJobs:
		return g.listJobs(ctx, params)
	default:
		return nil, apperrors.NotFound("tool", tool)
	}
}

// SubmitJobParams are the caller-supplied parameters of submit_job.
type SubmitJobParams struct {
	JobName       string         `json:"job_name"`
	JobConfig     map[string]any `json:"job_config"`
	InstanceCount int            `json:"instance_count"`
	ResourceType  string         `json:"resource_type"`
	Priority      int            `json:"priority"`
	Tags          []string       `json:"tags"`
}

// JobSubmitted is the response of submit_job.
type JobSubmitted struct {
	JobID         string    `json:"job_id"`
	Status        string    `json:"status"`
	Name          string    `json:"name"`
	CreatedAt     time.Time `json:"created_at"`
	InstanceCount int       `json:"instance_count"`
	ResourceType  string    `json:"resource_type"`
}

func (g *Gateway) submitJob(ctx context.Context, params json.RawMessage) (any, error) {
	var p SubmitJobParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	j, err := g.svc.Submit(ctx, job.SubmitSpec{
		Name:          p.JobName,
		Config:        p.JobConfig,
		InstanceCount: p.InstanceCount,
		ResourceType:  job.ResourceType(p.ResourceType),
		Priority:      p.Priority,
		Tags:          p.Tags,
	})
	if err != nil {
		return nil, err
	}

	return &JobSubmitted{
		JobID:         j.ID,
		Status:        string(j.Status),
		Name:          j.Name,
		CreatedAt:     j.CreatedAt,
		InstanceCount: j.InstanceCount,
		ResourceType:  string(j.ResourceType),
	}, nil
}

// GetJobStatusParams are the caller-supplied parameters of get_job_status.
type GetJobStatusParams struct {
	JobID string `json:"job_id"`
}

// JobStatus is the response of get_job_status.
type JobStatus struct {
	JobID        string     `json:"job_id"`
	Status       string     `json:"status"`
	Progress     float64    `json:"progress"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

func (g *Gateway) getJobStatus(ctx context.Context, params json.RawMessage) (any, error) {
	var p GetJobStatusParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	j, err := g.svc.Status(ctx, p.JobID)
	if err != nil {
		return nil, err
	}

	return &JobStatus{
		JobID:        j.ID,
		Status:       string(j.Status),
		Progress:     j.Progress,
		StartedAt:    j.StartedAt,
		UpdatedAt:    j.UpdatedAt,
		ErrorMessage: j.ErrorMessage,
	}, nil
}

// RetrieveJobResultsParams are the caller-supplied parameters of
// retrieve_job_results.
type RetrieveJobResultsParams struct {
	JobID string `json:"job_id"`
}

// JobResults is the response of retrieve_job_results.
type JobResults struct {
	JobID         string `json:"job_id"`
	Status        string `json:"status"`
	ResultsURL    string `json:"results_url"`
	FileSizeBytes int64  `json:"file_size_bytes"`
	FileCount     int    `json:"file_count"`
	DownloadURL   string `json:"download_url,omitempty"`
	Checksum      string `json:"checksum,omitempty"`
}

func (g *Gateway) retrieveJobResults(ctx context.Context, params json.RawMessage) (any, error) {
	var p RetrieveJobResultsParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	res, err := g.svc.Results(ctx, p.JobID)
	if err != nil {
		return nil, err
	}

	return &JobResults{
		JobID:         res.JobID,
		Status:        string(res.Status),
		ResultsURL:    res.ResultsURL,
		FileSizeBytes: res.SizeBytes,
		FileCount:     res.FileCount,
		DownloadURL:   res.DownloadURL,
		Checksum:      res.Checksum,
	}, nil
}

// CancelJobParams are the caller-supplied parameters of cancel_job.
type CancelJobParams struct {
	JobID  string `json:"job_id"`
	Reason string `json:"reason"`
}

// JobCancelled is the response of cancel_job.
type JobCancelled struct {
	JobID       string    `json:"job_id"`
	Status      string    `json:"status"`
	CancelledAt time.Time `json:"cancelled_at"`
	Reason      string    `json:"reason,omitempty"`
}

func (g *Gateway) cancelJob(ctx context.Context, params json.RawMessage) (any, error) {
	var p CancelJobParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	j, err := g.svc.Cancel(ctx, p.JobID, p.Reason)
	if err != nil {
		return nil, err
	}

	return &JobCancelled{
		JobID:       j.ID,
		Status:      string(j.Status),
		CancelledAt: j.UpdatedAt,
		Reason:      p.Reason,
	}, nil
}

// ListJobsParams are the caller-supplied parameters of list_jobs.
type ListJobsParams struct {
	Limit        int    `json:"limit"`
	Offset       int    `json:"offset"`
	StatusFilter string `json:"status_filter"`
}

// JobSummary is one entry of a jobs listing.
type JobSummary struct {
	JobID     string    `json:"job_id"`
	Status    string    `json:"status"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// JobsList is the response of list_jobs. NextOffset is absent on the last
// page; callers must not compute pagination themselves.
type JobsList struct {
	TotalCount int          `json:"total_count"`
	Jobs       []JobSummary `json:"jobs"`
	NextOffset *int         `json:"next_offset,omitempty"`
}

func (g *Gateway) listJobs(ctx context.Context, params json.RawMessage) (any, error) {
	p := ListJobsParams{Limit: defaultListLimit}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	page, err := g.svc.List(ctx, job.ListQuery{
		Limit:        p.Limit,
		Offset:       p.Offset,
		StatusFilter: job.Status(p.StatusFilter),
	})
	if err != nil {
		return nil, err
	}

	summaries := make([]JobSummary, 0, len(page.Jobs))
	for _, j := range page.Jobs {
		summaries = append(summaries, JobSummary{
			JobID:     j.ID,
			Status:    string(j.Status),
			Name:      j.Name,
			CreatedAt: j.CreatedAt,
		})
	}

	return &JobsList{
		TotalCount: page.TotalCount,
		Jobs:       summaries,
		NextOffset: page.NextOffset,
	}, nil
}

// decodeParams unmarshals tool params. Empty params decode to the defaults
// already set on dst; malformed JSON is a validation error.
func decodeParams(params json.RawMessage, dst any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, dst); err != nil {
		return apperrors.Validation("params", "malformed tool params: "+err.Error())
	}
	return nil
}
