package job

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a job. The set is closed: adapters must
// parse remote values through ParseStatus so an unrecognized state surfaces
// as an error instead of flowing through the gateway.
type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Statuses lists every valid lifecycle state.
var Statuses = []Status{
	StatusSubmitted,
	StatusRunning,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

// ParseStatus converts a raw status string into a Status.
// Returns an error for values outside the closed set.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	for _, known := range Statuses {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("unrecognized job status %q", raw)
}

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// ResourceType is the compute resource class a job runs on.
type ResourceType string

const (
	ResourceCPU ResourceType = "CPU"
	ResourceGPU ResourceType = "GPU"
)

// ParseResourceType converts a raw resource string into a ResourceType.
func ParseResourceType(raw string) (ResourceType, error) {
	switch ResourceType(raw) {
	case ResourceCPU:
		return ResourceCPU, nil
	case ResourceGPU:
		return ResourceGPU, nil
	}
	return "", fmt.Errorf("unrecognized resource type %q", raw)
}

// Job is a snapshot of one unit of remote work. The remote service is the
// system of record: the gateway only re-derives these snapshots from remote
// state and never mutates them locally.
type Job struct {
	ID            string         `json:"job_id"`
	Name          string         `json:"name"`
	Status        Status         `json:"status"`
	InstanceCount int            `json:"instance_count"`
	ResourceType  ResourceType   `json:"resource_type"`
	Priority      int            `json:"priority"`
	Tags          []string       `json:"tags,omitempty"`
	Config        map[string]any `json:"config,omitempty"`
	Progress      float64        `json:"progress"`
	CreatedAt     time.Time      `json:"created_at"`
	StartedAt     *time.Time     `json:"started_at,omitempty"`
	UpdatedAt     time.Time      `json:"updated_at"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
	ErrorMessage  string         `json:"error_message,omitempty"`
}

// Result holds the outcome metadata of a terminal-successful job. The
// artifact bytes themselves stay in the remote service's storage; this
// entity only carries retrievable addresses.
type Result struct {
	JobID       string `json:"job_id"`
	Status      Status `json:"status"`
	ResultsURL  string `json:"results_url"`
	SizeBytes   int64  `json:"file_size_bytes"`
	FileCount   int    `json:"file_count"`
	DownloadURL string `json:"download_url,omitempty"`
	Checksum    string `json:"checksum,omitempty"`
}
