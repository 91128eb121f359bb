package job

import (
	"context"
	"fmt"
	"log/slog"

	"computegw/internal/apperrors"
	"computegw/internal/observability"
)

// Validation limits
const (
	maxNameLength   = 100
	maxJobIDLength  = 128
	maxReasonLength = 500
	maxTags         = 32
	maxTagLength    = 64
)

// Limits holds the configurable validation bounds of the use-case layer.
// Zero values fall back to defaults.
type Limits struct {
	MaxInstanceCount int // default: 10000
	MinPriority      int // default: -100
	MaxPriority      int // default: 100
	MaxPageSize      int // default: 100
}

func (l Limits) withDefaults() Limits {
	if l.MaxInstanceCount <= 0 {
		l.MaxInstanceCount = 10000
	}
	if l.MinPriority == 0 && l.MaxPriority == 0 {
		l.MinPriority = -100
		l.MaxPriority = 100
	}
	if l.MaxPageSize <= 0 {
		l.MaxPageSize = 100
	}
	return l
}

// Service implements the five job use cases over an injected Remote.
//
// The Service is stateless - all job state lives in the remote compute
// service. Each method validates its parameters, invokes exactly one port
// operation, and maps the outcome into the gateway's error taxonomy.
// Concurrent calls are independent; there is no shared mutable state.
type Service struct {
	remote  Remote
	metrics *observability.Metrics
	limits  Limits
}

// NewService creates a new job service.
func NewService(remote Remote, metrics *observability.Metrics, limits Limits) *Service {
	return &Service{
		remote:  remote,
		metrics: metrics,
		limits:  limits.withDefaults(),
	}
}

// Submit validates the spec and submits a new job.
// Validation failures are reported before any remote call is made, so a
// rejected submission leaves no partial state behind.
func (s *Service) Submit(ctx context.Context, spec SubmitSpec) (*Job, error) {
	if err := s.validateSubmit(spec); err != nil {
		return nil, err
	}

	logger := slog.With("name", spec.Name, "resourceType", spec.ResourceType)

	j, err := s.remote.Submit(ctx, spec)
	if err != nil {
		logger.Error("Job submission failed", "error", err)
		return nil, translate("submit", err)
	}

	if s.metrics != nil {
		s.metrics.RecordJobSubmitted(ctx, string(spec.ResourceType))
	}

	logger.Info("Job submitted", "jobId", j.ID)
	return j, nil
}

// Status returns the current snapshot of a job.
func (s *Service) Status(ctx context.Context, jobID string) (*Job, error) {
	if err := validateJobID(jobID); err != nil {
		return nil, err
	}

	j, err := s.remote.Status(ctx, jobID)
	if err != nil {
		return nil, translate("status", err)
	}
	return j, nil
}

// Results returns the outcome metadata of a terminal-successful job.
// A job that has not completed successfully yields an invalid-state error,
// never an empty or placeholder result.
func (s *Service) Results(ctx context.Context, jobID string) (*Result, error) {
	if err := validateJobID(jobID); err != nil {
		return nil, err
	}

	res, err := s.remote.Results(ctx, jobID)
	if err != nil {
		return nil, translate("results", err)
	}
	return res, nil
}

// Cancel requests cancellation of a job. Cancelling an already-cancelled
// job succeeds as a no-op; cancelling a completed or failed job is an
// invalid-state error. The transition counts only once the remote service
// confirms it.
func (s *Service) Cancel(ctx context.Context, jobID, reason string) (*Job, error) {
	if err := validateJobID(jobID); err != nil {
		return nil, err
	}
	if len(reason) > maxReasonLength {
		return nil, apperrors.Validation("reason", fmt.Sprintf("reason exceeds maximum length of %d", maxReasonLength))
	}

	logger := slog.With("jobId", jobID)

	j, err := s.remote.Cancel(ctx, jobID, reason)
	if err != nil {
		logger.Error("Job cancellation failed", "error", err)
		return nil, translate("cancel", err)
	}

	if s.metrics != nil {
		s.metrics.RecordJobCancelled(ctx)
	}

	logger.Info("Job cancelled", "status", j.Status)
	return j, nil
}

// ListResult is one page of jobs plus the pagination cursor. NextOffset is
// nil when no results remain; callers must not compute pagination
// themselves.
type ListResult struct {
	Jobs       []Job
	TotalCount int
	NextOffset *int
}

// List returns a page of jobs with the total count and the next offset.
func (s *Service) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	if q.Limit <= 0 {
		return nil, apperrors.Validation("limit", "limit must be positive")
	}
	if q.Limit > s.limits.MaxPageSize {
		return nil, apperrors.Validation("limit", fmt.Sprintf("limit exceeds maximum page size of %d", s.limits.MaxPageSize))
	}
	if q.Offset < 0 {
		return nil, apperrors.Validation("offset", "offset must not be negative")
	}
	if q.StatusFilter != "" {
		if _, err := ParseStatus(string(q.StatusFilter)); err != nil {
			return nil, apperrors.Validation("status_filter", err.Error())
		}
	}

	page, err := s.remote.List(ctx, q)
	if err != nil {
		return nil, translate("list", err)
	}

	result := &ListResult{
		Jobs:       page.Jobs,
		TotalCount: page.TotalCount,
	}
	if q.Offset+len(page.Jobs) < page.TotalCount {
		next := q.Offset + len(page.Jobs)
		result.NextOffset = &next
	}
	return result, nil
}

// validateSubmit validates a submission spec. Does not modify the spec.
func (s *Service) validateSubmit(spec SubmitSpec) error {
	if spec.Name == "" {
		return apperrors.Validation("job_name", "job name is required")
	}
	if len(spec.Name) > maxNameLength {
		return apperrors.Validation("job_name", fmt.Sprintf("job name exceeds maximum length of %d", maxNameLength))
	}

	if spec.InstanceCount < 1 {
		return apperrors.Validation("instance_count", "instance count must be at least 1")
	}
	if spec.InstanceCount > s.limits.MaxInstanceCount {
		return apperrors.Validation("instance_count", fmt.Sprintf("instance count exceeds maximum of %d", s.limits.MaxInstanceCount))
	}

	if _, err := ParseResourceType(string(spec.ResourceType)); err != nil {
		return apperrors.Validation("resource_type", err.Error())
	}

	if spec.Priority < s.limits.MinPriority || spec.Priority > s.limits.MaxPriority {
		return apperrors.Validation("priority", fmt.Sprintf("priority must be between %d and %d", s.limits.MinPriority, s.limits.MaxPriority))
	}

	if len(spec.Tags) > maxTags {
		return apperrors.Validation("tags", fmt.Sprintf("tags exceed maximum of %d", maxTags))
	}
	for _, tag := range spec.Tags {
		if tag == "" {
			return apperrors.Validation("tags", "tags must not be empty")
		}
		if len(tag) > maxTagLength {
			return apperrors.Validation("tags", fmt.Sprintf("tag exceeds maximum length of %d", maxTagLength))
		}
	}

	return nil
}

func validateJobID(jobID string) error {
	if jobID == "" {
		return apperrors.Validation("job_id", "job ID is required")
	}
	if len(jobID) > maxJobIDLength {
		return apperrors.Validation("job_id", fmt.Sprintf("job ID exceeds maximum length of %d", maxJobIDLength))
	}
	return nil
}

// translate maps a port failure into the gateway's taxonomy. Errors the
// adapter already classified pass through unchanged; anything else becomes
// a remote service error with the cause preserved.
func translate(op string, err error) error {
	if apperrors.Classified(err) {
		return err
	}
	return apperrors.Remote(op, err)
}
