package job

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"computegw/internal/apperrors"
)

// mockRemote implements Remote and records every invocation.
type mockRemote struct {
	submitCalls int
	statusCalls int
	resultCalls int
	cancelCalls int
	listCalls   int

	submitFn func(SubmitSpec) (*Job, error)
	statusFn func(string) (*Job, error)
	resultFn func(string) (*Result, error)
	cancelFn func(string, string) (*Job, error)
	listFn   func(ListQuery) (*Page, error)
}

func (m *mockRemote) Submit(_ context.Context, spec SubmitSpec) (*Job, error) {
	m.submitCalls++
	return m.submitFn(spec)
}

func (m *mockRemote) Status(_ context.Context, jobID string) (*Job, error) {
	m.statusCalls++
	return m.statusFn(jobID)
}

func (m *mockRemote) Results(_ context.Context, jobID string) (*Result, error) {
	m.resultCalls++
	return m.resultFn(jobID)
}

func (m *mockRemote) Cancel(_ context.Context, jobID, reason string) (*Job, error) {
	m.cancelCalls++
	return m.cancelFn(jobID, reason)
}

func (m *mockRemote) List(_ context.Context, q ListQuery) (*Page, error) {
	m.listCalls++
	return m.listFn(q)
}

func (m *mockRemote) Ready(context.Context) error { return nil }
func (m *mockRemote) Close() error                { return nil }

func (m *mockRemote) totalCalls() int {
	return m.submitCalls + m.statusCalls + m.resultCalls + m.cancelCalls + m.listCalls
}

func acceptingRemote() *mockRemote {
	return &mockRemote{
		submitFn: func(spec SubmitSpec) (*Job, error) {
			now := time.Now().UTC()
			return &Job{
				ID:            "job-abc123",
				Name:          spec.Name,
				Status:        StatusSubmitted,
				InstanceCount: spec.InstanceCount,
				ResourceType:  spec.ResourceType,
				Priority:      spec.Priority,
				Tags:          spec.Tags,
				CreatedAt:     now,
				UpdatedAt:     now,
			}, nil
		},
	}
}

func TestSubmit_ValidationFailsBeforeRemoteCall(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		spec   SubmitSpec
		errMsg string
	}{
		{
			name:   "zero instance count",
			spec:   SubmitSpec{Name: "test-job", InstanceCount: 0, ResourceType: ResourceCPU},
			errMsg: "instance count must be at least 1",
		},
		{
			name:   "missing name",
			spec:   SubmitSpec{InstanceCount: 1, ResourceType: ResourceCPU},
			errMsg: "job name is required",
		},
		{
			name:   "unknown resource type",
			spec:   SubmitSpec{Name: "test-job", InstanceCount: 1, ResourceType: "TPU"},
			errMsg: "unrecognized resource type",
		},
		{
			name:   "priority out of bounds",
			spec:   SubmitSpec{Name: "test-job", InstanceCount: 1, ResourceType: ResourceCPU, Priority: 101},
			errMsg: "priority must be between -100 and 100",
		},
		{
			name:   "instance count over limit",
			spec:   SubmitSpec{Name: "test-job", InstanceCount: 10001, ResourceType: ResourceGPU},
			errMsg: "instance count exceeds maximum",
		},
		{
			name:   "empty tag",
			spec:   SubmitSpec{Name: "test-job", InstanceCount: 1, ResourceType: ResourceCPU, Tags: []string{""}},
			errMsg: "tags must not be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			remote := acceptingRemote()
			svc := NewService(remote, nil, Limits{})

			_, err := svc.Submit(context.Background(), tt.spec)
			if err == nil {
				t.Fatalf("expected error containing %q", tt.errMsg)
			}
			if !errors.Is(err, apperrors.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("expected error containing %q, got %q", tt.errMsg, err.Error())
			}
			if remote.totalCalls() != 0 {
				t.Errorf("expected zero remote calls, got %d", remote.totalCalls())
			}
		})
	}
}

func TestSubmit_ReturnsSubmittedJob(t *testing.T) {
	t.Parallel()
	remote := acceptingRemote()
	svc := NewService(remote, nil, Limits{})

	j, err := svc.Submit(context.Background(), SubmitSpec{
		Name:          "test-job",
		InstanceCount: 1,
		ResourceType:  ResourceCPU,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if j.ID == "" {
		t.Error("expected non-empty job ID")
	}
	if j.Status != StatusSubmitted {
		t.Errorf("status = %s, want submitted", j.Status)
	}
	if remote.submitCalls != 1 {
		t.Errorf("submit calls = %d, want 1", remote.submitCalls)
	}
}

func TestStatus_ReflectsRemoteSnapshot(t *testing.T) {
	t.Parallel()
	started := time.Date(2025, 1, 15, 10, 5, 0, 0, time.UTC)
	remote := &mockRemote{
		statusFn: func(jobID string) (*Job, error) {
			return &Job{
				ID:        jobID,
				Name:      "test-job",
				Status:    StatusRunning,
				Progress:  45.5,
				StartedAt: &started,
				UpdatedAt: started.Add(25 * time.Minute),
			}, nil
		},
	}
	svc := NewService(remote, nil, Limits{})

	j, err := svc.Status(context.Background(), "job-abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if j.Status != StatusRunning {
		t.Errorf("status = %s, want running", j.Status)
	}
	if j.Progress != 45.5 {
		t.Errorf("progress = %v, want 45.5", j.Progress)
	}
}

func TestStatus_UnknownJob(t *testing.T) {
	t.Parallel()
	remote := &mockRemote{
		statusFn: func(jobID string) (*Job, error) {
			return nil, apperrors.NotFound("job", jobID)
		},
	}
	svc := NewService(remote, nil, Limits{})

	_, err := svc.Status(context.Background(), "job-missing")
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestStatus_EmptyID(t *testing.T) {
	t.Parallel()
	remote := &mockRemote{}
	svc := NewService(remote, nil, Limits{})

	_, err := svc.Status(context.Background(), "")
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if remote.totalCalls() != 0 {
		t.Errorf("expected zero remote calls, got %d", remote.totalCalls())
	}
}

func TestResults_RunningJobIsInvalidState(t *testing.T) {
	t.Parallel()
	remote := &mockRemote{
		resultFn: func(jobID string) (*Result, error) {
			return nil, apperrors.InvalidState("job", jobID, "job has not completed yet, current status: running")
		},
	}
	svc := NewService(remote, nil, Limits{})

	res, err := svc.Results(context.Background(), "job-abc123")
	if !errors.Is(err, apperrors.ErrInvalidState) {
		t.Errorf("expected invalid state error, got %v", err)
	}
	if res != nil {
		t.Error("expected nil result, not a placeholder")
	}
}

func TestResults_CompletedJob(t *testing.T) {
	t.Parallel()
	remote := &mockRemote{
		resultFn: func(jobID string) (*Result, error) {
			return &Result{
				JobID:      jobID,
				Status:     StatusCompleted,
				ResultsURL: "https://storage.example.com/results/" + jobID,
				SizeBytes:  1048576,
				FileCount:  5,
			}, nil
		},
	}
	svc := NewService(remote, nil, Limits{})

	res, err := svc.Results(context.Background(), "job-abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FileCount != 5 || res.SizeBytes != 1048576 {
		t.Errorf("unexpected result metadata: %+v", res)
	}
}

func TestCancel_IdempotentOnCancelledJob(t *testing.T) {
	t.Parallel()
	status := StatusRunning
	remote := &mockRemote{}
	remote.cancelFn = func(jobID, reason string) (*Job, error) {
		// First call transitions to cancelled; the second finds the job
		// already cancelled and reports success without a new mutation.
		status = StatusCancelled
		return &Job{ID: jobID, Status: status}, nil
	}
	svc := NewService(remote, nil, Limits{})

	first, err := svc.Cancel(context.Background(), "job-abc123", "no longer needed")
	if err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	if first.Status != StatusCancelled {
		t.Errorf("first cancel status = %s, want cancelled", first.Status)
	}

	second, err := svc.Cancel(context.Background(), "job-abc123", "")
	if err != nil {
		t.Fatalf("second cancel should be a no-op success, got %v", err)
	}
	if second.Status != StatusCancelled {
		t.Errorf("second cancel status = %s, want cancelled", second.Status)
	}
}

func TestCancel_CompletedJobIsInvalidState(t *testing.T) {
	t.Parallel()
	remote := &mockRemote{
		cancelFn: func(jobID, reason string) (*Job, error) {
			return nil, apperrors.InvalidState("job", jobID, "cannot cancel a completed job")
		},
	}
	svc := NewService(remote, nil, Limits{})

	_, err := svc.Cancel(context.Background(), "job-abc123", "")
	if !errors.Is(err, apperrors.ErrInvalidState) {
		t.Errorf("expected invalid state error, got %v", err)
	}
}

// listRemote serves pages from a fixed set of n jobs.
func listRemote(n int) *mockRemote {
	jobs := make([]Job, n)
	for i := range jobs {
		jobs[i] = Job{ID: fmt.Sprintf("job-%03d", i), Status: StatusRunning}
	}
	return &mockRemote{
		listFn: func(q ListQuery) (*Page, error) {
			start := min(q.Offset, n)
			end := min(start+q.Limit, n)
			return &Page{Jobs: jobs[start:end], TotalCount: n}, nil
		},
	}
}

func TestList_Pagination(t *testing.T) {
	t.Parallel()
	svc := NewService(listRemote(45), nil, Limits{})

	// Full first page out of 45 jobs.
	page, err := svc.List(context.Background(), ListQuery{Limit: 20, Offset: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Jobs) != 20 {
		t.Errorf("page size = %d, want 20", len(page.Jobs))
	}
	if page.TotalCount != 45 {
		t.Errorf("total = %d, want 45", page.TotalCount)
	}
	if page.NextOffset == nil || *page.NextOffset != 20 {
		t.Errorf("next offset = %v, want 20", page.NextOffset)
	}

	// Final partial page: 5 jobs, no next offset.
	page, err = svc.List(context.Background(), ListQuery{Limit: 20, Offset: 40})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Jobs) != 5 {
		t.Errorf("page size = %d, want 5", len(page.Jobs))
	}
	if page.NextOffset != nil {
		t.Errorf("next offset = %v, want nil", *page.NextOffset)
	}
}

func TestList_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query ListQuery
	}{
		{"zero limit", ListQuery{Limit: 0}},
		{"negative limit", ListQuery{Limit: -5}},
		{"limit over page size", ListQuery{Limit: 101}},
		{"negative offset", ListQuery{Limit: 10, Offset: -1}},
		{"unknown status filter", ListQuery{Limit: 10, StatusFilter: "paused"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			remote := listRemote(3)
			svc := NewService(remote, nil, Limits{})

			_, err := svc.List(context.Background(), tt.query)
			if !errors.Is(err, apperrors.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
			if remote.totalCalls() != 0 {
				t.Errorf("expected zero remote calls, got %d", remote.totalCalls())
			}
		})
	}
}

func TestTranslate_WrapsUnclassifiedErrors(t *testing.T) {
	t.Parallel()
	remote := &mockRemote{
		statusFn: func(string) (*Job, error) {
			return nil, errors.New("dial tcp: connection refused")
		},
	}
	svc := NewService(remote, nil, Limits{})

	_, err := svc.Status(context.Background(), "job-abc123")
	if !errors.Is(err, apperrors.ErrRemote) {
		t.Fatalf("expected remote service error, got %v", err)
	}
	// The raw transport detail must not leak into the caller-facing message.
	if strings.Contains(err.Error(), "dial tcp") {
		t.Errorf("caller-facing message leaks transport detail: %q", err.Error())
	}
}

func TestParseStatus(t *testing.T) {
	t.Parallel()
	for _, s := range Statuses {
		if got, err := ParseStatus(string(s)); err != nil || got != s {
			t.Errorf("ParseStatus(%q) = %v, %v", s, got, err)
		}
	}
	if _, err := ParseStatus("queued-forever"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestStatusTerminal(t *testing.T) {
	t.Parallel()
	terminal := map[Status]bool{
		StatusSubmitted: false,
		StatusRunning:   false,
		StatusCompleted: true,
		StatusFailed:    true,
		StatusCancelled: true,
	}
	for s, want := range terminal {
		if s.Terminal() != want {
			t.Errorf("%s.Terminal() = %v, want %v", s, s.Terminal(), want)
		}
	}
}
