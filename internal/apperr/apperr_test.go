package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/serroba/opsportal/internal/apperr"
)

func TestError_IsKind(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("wrapped: %w", apperr.NotFound("folder not found"))

	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if errors.Is(err, apperr.ErrOwnership) {
		t.Error("did not expect ErrOwnership")
	}
}

func TestDependency_HidesCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	err := apperr.Dependency("failed to create folder", cause)

	if err.Error() != "failed to create folder" {
		t.Errorf("expected user-safe message, got %q", err.Error())
	}

	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable through Unwrap")
	}

	if !errors.Is(err, apperr.ErrDependency) {
		t.Error("expected ErrDependency kind")
	}
}

func TestOwnership_Message(t *testing.T) {
	t.Parallel()

	err := apperr.Ownership("delete", "folder")

	if err.Error() != "you don't have permission to delete this folder" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"structured", apperr.Invalid("bad"), apperr.ErrInvalid},
		{"bare sentinel", fmt.Errorf("x: %w", apperr.ErrNotAuthorized), apperr.ErrNotAuthorized},
		{"raw error", errors.New("boom"), apperr.ErrDependency},
	}

	for _, tt := range tests {
		if got := apperr.KindOf(tt.err); !errors.Is(got, tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestMessage_RawErrorIsGeneric(t *testing.T) {
	t.Parallel()

	if msg := apperr.Message(errors.New("pq: relation does not exist")); msg != "operation failed" {
		t.Errorf("expected generic message, got %q", msg)
	}
}
