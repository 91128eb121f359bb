package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"authentication", Authentication(), ErrAuthentication},
		{"validation", Validation("instance_count", "instance count must be at least 1"), ErrValidation},
		{"not found", NotFound("job", "job-123"), ErrNotFound},
		{"invalid state", InvalidState("job", "job-123", "job already completed"), ErrInvalidState},
		{"remote", Remote("cloud.list", errors.New("connection refused")), ErrRemote},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false, want true", tt.err, tt.sentinel)
			}
			if !Classified(tt.err) {
				t.Errorf("Classified(%v) = false, want true", tt.err)
			}
		})
	}
}

func TestClassified_PlainError(t *testing.T) {
	t.Parallel()
	if Classified(errors.New("socket closed")) {
		t.Error("plain error should not be classified")
	}
	if Classified(fmt.Errorf("wrap: %w", errors.New("inner"))) {
		t.Error("wrapped plain error should not be classified")
	}
}

func TestAuthentication_FixedMessage(t *testing.T) {
	t.Parallel()
	err := Authentication()
	if err.Error() != "invalid credential" {
		t.Errorf("authentication message = %q, want %q", err.Error(), "invalid credential")
	}
}

func TestRemote_PreservesCause(t *testing.T) {
	t.Parallel()
	cause := errors.New("tls handshake timeout")
	err := Remote("cloud.status", cause)

	var appErr *Error
	if !errors.As(err, &appErr) {
		t.Fatal("expected *Error")
	}
	if appErr.Cause != cause {
		t.Error("cause not preserved")
	}
	if appErr.Op != "cloud.status" {
		t.Errorf("op = %q, want cloud.status", appErr.Op)
	}
	// The caller-facing message must not leak the cause.
	if err.Error() != "remote service failure during cloud.status" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestHTTPStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{Authentication(), http.StatusUnauthorized},
		{Validation("limit", "limit must be positive"), http.StatusBadRequest},
		{NotFound("job", "job-404"), http.StatusNotFound},
		{InvalidState("job", "job-1", "cannot cancel a completed job"), http.StatusConflict},
		{Remote("cloud.submit", errors.New("boom")), http.StatusBadGateway},
		{errors.New("unclassified"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
