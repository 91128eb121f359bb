// Package job defines the Remote port contract and the use-case service
// that orchestrates it.
package job

import "context"

// SubmitSpec carries the validated parameters of a job submission.
type SubmitSpec struct {
	Name          string
	Config        map[string]any
	InstanceCount int
	ResourceType  ResourceType
	Priority      int
	Tags          []string
}

// ListQuery carries pagination and filtering parameters for List.
// StatusFilter of "" means no filtering.
type ListQuery struct {
	Limit        int
	Offset       int
	StatusFilter Status
}

// Page is one page of a job listing. TotalCount is the size of the full
// (filtered) set, not the page.
type Page struct {
	Jobs       []Job
	TotalCount int
}

// Remote defines the capability set a concrete remote-compute client must
// implement. The use-case layer treats this purely as an interface: it
// performs no retries of its own (retry/backoff policy belongs to the
// adapter, which knows its transport's failure modes) and it translates
// every fault raised across this boundary into the gateway's error taxonomy.
//
// The remote service is the SOURCE OF TRUTH for job state. Adapters hold the
// remote-facing credential; it never crosses this interface.
type Remote interface {
	// Submit submits a new job and returns it with status "submitted".
	Submit(ctx context.Context, spec SubmitSpec) (*Job, error)

	// Status returns the current snapshot of a job.
	// Unknown IDs surface as a not-found error.
	Status(ctx context.Context, jobID string) (*Job, error)

	// Results returns the outcome metadata of a terminal-successful job.
	// Non-terminal or unsuccessful jobs surface as an invalid-state error,
	// never as a partial result.
	Results(ctx context.Context, jobID string) (*Result, error)

	// Cancel requests cancellation and returns the job as reported by the
	// remote service after the request. Cancelling an already-cancelled job
	// is a no-op success; cancelling a completed or failed job is an
	// invalid-state error.
	Cancel(ctx context.Context, jobID, reason string) (*Job, error)

	// List returns one page of jobs plus the total count of the filtered
	// set. Filtering and pagination are applied by the adapter.
	List(ctx context.Context, q ListQuery) (*Page, error)

	// Ready checks if the remote backend is reachable.
	Ready(ctx context.Context) error

	// Close releases resources held by the adapter. Remote jobs are not
	// affected; they continue independently.
	Close() error
}
