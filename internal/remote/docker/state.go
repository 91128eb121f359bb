package docker

import (
	"sort"
	"sync"
	"time"

	"computegw/internal/job"
)

// record is the locally tracked half of a job: the submission metadata plus
// the container backing it. Lifecycle state is NOT stored here; it is derived
// from the container on every read so the daemon stays the source of truth.
type record struct {
	ContainerID   string
	Name          string
	InstanceCount int
	ResourceType  job.ResourceType
	Priority      int
	Tags          []string
	Config        map[string]any
	CreatedAt     time.Time

	// Cancellation is an instruction this adapter issued, not something the
	// daemon reports, so it is tracked here.
	CancelledAt  *time.Time
	CancelReason string
}

// recordRepo is a concurrency-safe store of job records.
type recordRepo struct {
	mu      sync.RWMutex
	records map[string]*record
}

func newRecordRepo() *recordRepo {
	return &recordRepo{records: make(map[string]*record)}
}

func (r *recordRepo) put(jobID string, rec *record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[jobID] = rec
}

func (r *recordRepo) get(jobID string) (*record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[jobID]
	return rec, ok
}

func (r *recordRepo) markCancelled(jobID, reason string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[jobID]; ok {
		rec.CancelledAt = &at
		rec.CancelReason = reason
	}
}

// ids returns all job IDs ordered by creation time, newest first, with the
// job ID as a tiebreaker so pagination is stable.
func (r *recordRepo) ids() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.records))
	for id := range r.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := r.records[ids[i]], r.records[ids[j]]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return ids[i] < ids[j]
	})
	return ids
}

// containerState is the subset of a container inspection that lifecycle
// derivation needs.
type containerState struct {
	Status   string // created, running, exited, dead, ...
	Running  bool
	ExitCode int
	Error    string
	Started  *time.Time
	Finished *time.Time
}

// deriveStatus maps a container's state onto the job lifecycle. A cancelled
// record wins over whatever the container reports: stopping a container makes
// it look failed (non-zero exit), and that must not masquerade as a crash.
func deriveStatus(rec *record, cs containerState) (job.Status, int, string) {
	if rec.CancelledAt != nil {
		return job.StatusCancelled, 0, rec.CancelReason
	}

	switch {
	case cs.Running:
		return job.StatusRunning, 0, ""
	case cs.Status == "created":
		return job.StatusSubmitted, 0, ""
	case cs.ExitCode == 0:
		return job.StatusCompleted, 0, ""
	default:
		msg := cs.Error
		if msg == "" {
			msg = "job process exited with a non-zero code"
		}
		return job.StatusFailed, cs.ExitCode, msg
	}
}

// snapshot assembles a job entity from a record and its container state.
func snapshot(jobID string, rec *record, cs containerState) *job.Job {
	status, _, errMsg := deriveStatus(rec, cs)

	j := &job.Job{
		ID:            jobID,
		Name:          rec.Name,
		Status:        status,
		InstanceCount: rec.InstanceCount,
		ResourceType:  rec.ResourceType,
		Priority:      rec.Priority,
		Tags:          rec.Tags,
		Config:        rec.Config,
		CreatedAt:     rec.CreatedAt,
		StartedAt:     cs.Started,
		UpdatedAt:     rec.CreatedAt,
		ErrorMessage:  errMsg,
	}

	if cs.Started != nil {
		j.UpdatedAt = *cs.Started
	}
	if status.Terminal() {
		j.Progress = 100
		if rec.CancelledAt != nil {
			j.CompletedAt = rec.CancelledAt
		} else if cs.Finished != nil {
			j.CompletedAt = cs.Finished
		}
		if j.CompletedAt != nil {
			j.UpdatedAt = *j.CompletedAt
		}
	}
	return j
}

// paginate applies a status filter and an offset/limit window to an ordered
// job slice, returning the page and the filtered total.
func paginate(jobs []job.Job, q job.ListQuery) ([]job.Job, int) {
	filtered := jobs
	if q.StatusFilter != "" {
		filtered = make([]job.Job, 0, len(jobs))
		for _, j := range jobs {
			if j.Status == q.StatusFilter {
				filtered = append(filtered, j)
			}
		}
	}

	total := len(filtered)
	if q.Offset >= total {
		return []job.Job{}, total
	}
	end := q.Offset + q.Limit
	if end > total {
		end = total
	}
	return filtered[q.Offset:end], total
}
