// Package docker implements the remote job port against a local Docker
// daemon. It exists for development and integration testing: each job runs as
// one container, submission metadata travels in container labels, and
// lifecycle state is derived from the daemon on every read. It is not a
// production compute backend.
package docker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/google/uuid"

	"computegw/internal/apperrors"
	"computegw/internal/job"
)

const (
	managedByLabel = "managed-by"
	managedByValue = "computegw"

	labelJobID     = "computegw.job.id"
	labelJobName   = "computegw.job.name"
	labelInstances = "computegw.job.instances"
	labelResource  = "computegw.job.resource"
	labelPriority  = "computegw.job.priority"
	labelTags      = "computegw.job.tags"
	labelConfig    = "computegw.job.config"
	labelCreated   = "computegw.job.created"

	containerResultsPath = "/results"
)

// Backend implements job.Remote using Docker.
type Backend struct {
	client     *client.Client
	image      string
	command    string
	resultsDir string
	state      *recordRepo
}

// New creates a Docker backend and reconciles any job containers that
// survived a restart. Cancellation marks do not survive restarts, so a job
// cancelled before a restart reappears as failed.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	cfg = cfg.withDefaults()

	dockerClient, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	if err := os.MkdirAll(cfg.ResultsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}

	b := &Backend{
		client:     dockerClient,
		image:      cfg.Image,
		command:    cfg.Command,
		resultsDir: cfg.ResultsDir,
		state:      newRecordRepo(),
	}

	if err := b.reconcile(ctx); err != nil {
		slog.Warn("Failed to reconcile job containers", "error", err)
	}
	return b, nil
}

// reconcile scans Docker for containers this backend created and rebuilds
// job records from their labels.
func (b *Backend) reconcile(ctx context.Context) error {
	containers, err := b.client.ContainerList(ctx, container.ListOptions{
		All: true,
		Filters: filters.NewArgs(
			filters.Arg("label", managedByLabel+"="+managedByValue),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to list containers: %w", err)
	}

	var recovered int
	for i := range containers {
		c := &containers[i]
		jobID := c.Labels[labelJobID]
		if jobID == "" {
			continue
		}

		rec := &record{
			ContainerID: c.ID,
			Name:        c.Labels[labelJobName],
		}
		rec.InstanceCount, _ = strconv.Atoi(c.Labels[labelInstances])
		rec.Priority, _ = strconv.Atoi(c.Labels[labelPriority])
		if resource, err := job.ParseResourceType(c.Labels[labelResource]); err == nil {
			rec.ResourceType = resource
		} else {
			rec.ResourceType = job.ResourceCPU
		}
		if tags := c.Labels[labelTags]; tags != "" {
			rec.Tags = strings.Split(tags, ",")
		}
		if cfgJSON := c.Labels[labelConfig]; cfgJSON != "" {
			_ = json.Unmarshal([]byte(cfgJSON), &rec.Config)
		}
		if created, err := time.Parse(time.RFC3339Nano, c.Labels[labelCreated]); err == nil {
			rec.CreatedAt = created
		} else {
			rec.CreatedAt = time.Unix(c.Created, 0).UTC()
		}

		b.state.put(jobID, rec)
		recovered++
	}

	if recovered > 0 {
		slog.Info("Recovered job containers", "count", recovered)
	}
	return nil
}

// Submit creates and starts one container for the job.
func (b *Backend) Submit(ctx context.Context, spec job.SubmitSpec) (*job.Job, error) {
	jobID := "job-" + uuid.NewString()
	createdAt := time.Now().UTC()

	jobResultsDir := filepath.Join(b.resultsDir, jobID)
	if err := os.MkdirAll(jobResultsDir, 0o755); err != nil {
		return nil, apperrors.Remote("docker.submit", err)
	}

	// Pull with a detached context so a caller timeout does not abort a
	// large image download halfway.
	if err := b.pullImageIfNeeded(context.WithoutCancel(ctx)); err != nil {
		return nil, apperrors.Remote("docker.submit", err)
	}

	labels := map[string]string{
		managedByLabel: managedByValue,
		labelJobID:     jobID,
		labelJobName:   spec.Name,
		labelInstances: strconv.Itoa(spec.InstanceCount),
		labelResource:  string(spec.ResourceType),
		labelPriority:  strconv.Itoa(spec.Priority),
		labelCreated:   createdAt.Format(time.RFC3339Nano),
	}
	if len(spec.Tags) > 0 {
		labels[labelTags] = strings.Join(spec.Tags, ",")
	}
	if len(spec.Config) > 0 {
		if cfgJSON, err := json.Marshal(spec.Config); err == nil {
			labels[labelConfig] = string(cfgJSON)
		}
	}

	containerConfig := &container.Config{
		Image: b.image,
		Cmd:   []string{"/bin/sh", "-c", b.command},
		Env: []string{
			"JOB_ID=" + jobID,
			"JOB_NAME=" + spec.Name,
			"RESULTS_DIR=" + containerResultsPath,
		},
		Labels: labels,
	}
	hostConfig := &container.HostConfig{
		Mounts: []mount.Mount{
			{
				Type:   mount.TypeBind,
				Source: jobResultsDir,
				Target: containerResultsPath,
			},
		},
	}

	resp, err := b.client.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, jobID)
	if err != nil {
		return nil, apperrors.Remote("docker.submit", err)
	}
	if err := b.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		_ = b.client.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return nil, apperrors.Remote("docker.submit", err)
	}

	rec := &record{
		ContainerID:   resp.ID,
		Name:          spec.Name,
		InstanceCount: spec.InstanceCount,
		ResourceType:  spec.ResourceType,
		Priority:      spec.Priority,
		Tags:          spec.Tags,
		Config:        spec.Config,
		CreatedAt:     createdAt,
	}
	b.state.put(jobID, rec)

	slog.InfoContext(ctx, "Job container started", "jobId", jobID, "container", resp.ID[:12])
	return snapshot(jobID, rec, containerState{Status: "created"}), nil
}

// Status returns the current snapshot of a job.
func (b *Backend) Status(ctx context.Context, jobID string) (*job.Job, error) {
	rec, ok := b.state.get(jobID)
	if !ok {
		return nil, apperrors.NotFound("job", jobID)
	}

	cs, err := b.inspect(ctx, rec.ContainerID)
	if err != nil {
		return nil, apperrors.Remote("docker.status", err)
	}
	return snapshot(jobID, rec, cs), nil
}

// Results returns the outcome metadata of a completed job, measured from the
// job's results directory on the host.
func (b *Backend) Results(ctx context.Context, jobID string) (*job.Result, error) {
	j, err := b.Status(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j.Status != job.StatusCompleted {
		return nil, apperrors.InvalidState("job", jobID,
			fmt.Sprintf("results are only available for completed jobs, job is %s", j.Status))
	}

	jobResultsDir := filepath.Join(b.resultsDir, jobID)
	entries, err := os.ReadDir(jobResultsDir)
	if err != nil {
		return nil, apperrors.Remote("docker.results", err)
	}

	var size int64
	var count int
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil || entry.IsDir() {
			continue
		}
		size += info.Size()
		count++
	}

	return &job.Result{
		JobID:      jobID,
		Status:     job.StatusCompleted,
		ResultsURL: "file://" + jobResultsDir,
		SizeBytes:  size,
		FileCount:  count,
	}, nil
}

// Cancel stops the job's container. Cancelling an already-cancelled job is a
// no-op success; cancelling a completed or failed job is an error.
func (b *Backend) Cancel(ctx context.Context, jobID, reason string) (*job.Job, error) {
	rec, ok := b.state.get(jobID)
	if !ok {
		return nil, apperrors.NotFound("job", jobID)
	}

	cs, err := b.inspect(ctx, rec.ContainerID)
	if err != nil {
		return nil, apperrors.Remote("docker.cancel", err)
	}

	status, _, _ := deriveStatus(rec, cs)
	switch status {
	case job.StatusCancelled:
		return snapshot(jobID, rec, cs), nil
	case job.StatusCompleted, job.StatusFailed:
		return nil, apperrors.InvalidState("job", jobID,
			fmt.Sprintf("cannot cancel a job that is already %s", status))
	}

	stopTimeout := 10
	if err := b.client.ContainerStop(ctx, rec.ContainerID, container.StopOptions{Timeout: &stopTimeout}); err != nil {
		return nil, apperrors.Remote("docker.cancel", err)
	}
	b.state.markCancelled(jobID, reason, time.Now().UTC())

	rec, _ = b.state.get(jobID)
	cs, err = b.inspect(ctx, rec.ContainerID)
	if err != nil {
		return nil, apperrors.Remote("docker.cancel", err)
	}
	slog.InfoContext(ctx, "Job cancelled", "jobId", jobID)
	return snapshot(jobID, rec, cs), nil
}

// List pages through all tracked jobs, newest first. Filtering and
// pagination happen here since the daemon has no notion of them.
func (b *Backend) List(ctx context.Context, q job.ListQuery) (*job.Page, error) {
	ids := b.state.ids()
	jobs := make([]job.Job, 0, len(ids))
	for _, id := range ids {
		j, err := b.Status(ctx, id)
		if err != nil {
			continue
		}
		jobs = append(jobs, *j)
	}

	page, total := paginate(jobs, q)
	return &job.Page{Jobs: page, TotalCount: total}, nil
}

// Ready checks if the Docker daemon is reachable.
func (b *Backend) Ready(ctx context.Context) error {
	_, err := b.client.Ping(ctx)
	return err
}

// Close releases the Docker client. Job containers keep running.
func (b *Backend) Close() error {
	return b.client.Close()
}

func (b *Backend) inspect(ctx context.Context, containerID string) (containerState, error) {
	inspect, err := b.client.ContainerInspect(ctx, containerID)
	if err != nil {
		return containerState{}, err
	}

	cs := containerState{
		Status:   inspect.State.Status,
		Running:  inspect.State.Running,
		ExitCode: inspect.State.ExitCode,
		Error:    inspect.State.Error,
	}
	if t, err := time.Parse(time.RFC3339Nano, inspect.State.StartedAt); err == nil && !t.IsZero() {
		cs.Started = &t
	}
	if t, err := time.Parse(time.RFC3339Nano, inspect.State.FinishedAt); err == nil && !t.IsZero() {
		cs.Finished = &t
	}
	return cs, nil
}

func (b *Backend) pullImageIfNeeded(ctx context.Context) error {
	_, err := b.client.ImageInspect(ctx, b.image)
	if err == nil {
		return nil
	}

	reader, err := b.client.ImagePull(ctx, b.image, image.PullOptions{})
	if err != nil {
		return err
	}
	defer reader.Close()

	_, err = io.Copy(io.Discard, reader)
	return err
}

var _ job.Remote = (*Backend)(nil)
