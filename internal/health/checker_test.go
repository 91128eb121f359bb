package health

import (
	"context"
	"errors"
	"testing"
)

type stubRemote struct {
	err   error
	calls int
}

func (s *stubRemote) Ready(context.Context) error {
	s.calls++
	return s.err
}

func TestLiveness_AlwaysHealthy(t *testing.T) {
	t.Parallel()
	c := NewChecker(nil)
	if resp := c.Liveness(context.Background()); !resp.IsHealthy() {
		t.Error("liveness should always be healthy")
	}
}

func TestReadiness_NoRemote(t *testing.T) {
	t.Parallel()
	c := NewChecker(nil)
	if resp := c.Readiness(context.Background()); resp.IsHealthy() {
		t.Error("readiness should be unhealthy without a remote backend")
	}
}

func TestReadiness_RemoteUnreachable(t *testing.T) {
	t.Parallel()
	c := NewChecker(&stubRemote{err: errors.New("connection refused")})

	resp := c.Readiness(context.Background())
	if resp.IsHealthy() {
		t.Error("readiness should be unhealthy when remote probe fails")
	}
	if resp.Checks["remote"].Message == "" {
		t.Error("expected failure message in remote check")
	}
}

func TestReadiness_CachesResult(t *testing.T) {
	t.Parallel()
	remote := &stubRemote{}
	c := NewChecker(remote)

	c.Readiness(context.Background())
	c.Readiness(context.Background())

	if remote.calls != 1 {
		t.Errorf("remote probed %d times within cache TTL, want 1", remote.calls)
	}
}

func TestReadiness_ShuttingDown(t *testing.T) {
	t.Parallel()
	remote := &stubRemote{}
	c := NewChecker(remote)
	c.SetShuttingDown()

	resp := c.Readiness(context.Background())
	if resp.IsHealthy() {
		t.Error("readiness should be unhealthy during shutdown")
	}
	if remote.calls != 0 {
		t.Error("remote must not be probed during shutdown")
	}
}
