package circuitbreaker

import (
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func failing() error { return errBoom }
func succeeding() error { return nil }

func TestDo_StaysClosedOnSuccess(t *testing.T) {
	t.Parallel()
	b := New(Config{Threshold: 3})

	for range 10 {
		if err := b.Do(succeeding); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if b.State() != Closed {
		t.Errorf("state = %v, want closed", b.State())
	}
}

func TestDo_OpensAtThreshold(t *testing.T) {
	t.Parallel()
	b := New(Config{Threshold: 3, Cooldown: time.Hour})

	for range 3 {
		if err := b.Do(failing); !errors.Is(err, errBoom) {
			t.Fatalf("expected fn error, got %v", err)
		}
	}
	if b.State() != Open {
		t.Fatalf("state = %v, want open after 3 failures", b.State())
	}

	// Open circuit rejects without calling fn.
	called := false
	err := b.Do(func() error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrOpen) {
		t.Errorf("expected ErrOpen, got %v", err)
	}
	if called {
		t.Error("fn must not run while circuit is open")
	}
}

func TestDo_SuccessResetsFailureCount(t *testing.T) {
	t.Parallel()
	b := New(Config{Threshold: 3})

	b.Do(failing)
	b.Do(failing)
	b.Do(succeeding)

	if b.Failures() != 0 {
		t.Errorf("failures = %d, want 0 after success", b.Failures())
	}
	if b.State() != Closed {
		t.Errorf("state = %v, want closed", b.State())
	}
}

func TestDo_HalfOpenAfterCooldown(t *testing.T) {
	t.Parallel()
	b := New(Config{Threshold: 1, Cooldown: 10 * time.Millisecond})

	b.Do(failing)
	if b.State() != Open {
		t.Fatalf("state = %v, want open", b.State())
	}

	time.Sleep(20 * time.Millisecond)

	// The probe request is allowed through; success closes the circuit.
	if err := b.Do(succeeding); err != nil {
		t.Fatalf("probe request rejected: %v", err)
	}
	if b.State() != Closed {
		t.Errorf("state = %v, want closed after successful probe", b.State())
	}
}

func TestDo_FailedProbeReopens(t *testing.T) {
	t.Parallel()
	b := New(Config{Threshold: 1, Cooldown: 10 * time.Millisecond})

	b.Do(failing)
	time.Sleep(20 * time.Millisecond)

	if err := b.Do(failing); !errors.Is(err, errBoom) {
		t.Fatalf("expected fn error on probe, got %v", err)
	}
	if b.State() != Open {
		t.Errorf("state = %v, want open after failed probe", b.State())
	}
}

func TestReset(t *testing.T) {
	t.Parallel()
	b := New(Config{Threshold: 1, Cooldown: time.Hour})

	b.Do(failing)
	b.Reset()

	if b.State() != Closed {
		t.Errorf("state = %v, want closed after reset", b.State())
	}
	if err := b.Do(succeeding); err != nil {
		t.Errorf("unexpected error after reset: %v", err)
	}
}
