package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dalemusser/clubhub/internal/app/system/apperr"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("connection refused")
	tests := []struct {
		name string
		err  error
		want apperr.Kind
	}{
		{"validation", apperr.Validation("Missing required fields"), apperr.KindValidation},
		{"not found", apperr.NotFound("Club not found"), apperr.KindNotFound},
		{"conflict", apperr.Conflict("Event is full"), apperr.KindConflict},
		{"forbidden", apperr.Forbidden("Insufficient permissions"), apperr.KindForbidden},
		{"unauthorized", apperr.Unauthorized("Invalid credentials"), apperr.KindUnauthorized},
		{"internal", apperr.Internal("Failed to join club", cause), apperr.KindInternal},
		{"wrapped", fmt.Errorf("outer: %w", apperr.Conflict("x")), apperr.KindConflict},
		{"plain error", cause, apperr.KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := apperr.KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInternal_MessageIncludesCause(t *testing.T) {
	cause := errors.New("server selection timeout")
	err := apperr.Internal("Failed to get clubs", cause)

	if got, want := apperr.Message(err), "Failed to get clubs: server selection timeout"; got != want {
		t.Errorf("Message() = %q, want %q", got, want)
	}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to reach the cause")
	}
}

func TestSentinelIdentity(t *testing.T) {
	errFull := apperr.Conflict("Event is full")
	wrapped := fmt.Errorf("register: %w", errFull)

	if !errors.Is(wrapped, errFull) {
		t.Error("expected wrapped sentinel to match")
	}
	if errors.Is(wrapped, apperr.Conflict("Event is full")) {
		t.Error("distinct values with the same reason should not match")
	}
}

func TestMessage_Nil(t *testing.T) {
	if got := apperr.Message(nil); got != "" {
		t.Errorf("Message(nil) = %q, want empty", got)
	}
}
