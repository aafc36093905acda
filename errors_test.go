package droned

import (
	"errors"
	"testing"
)

func TestStructuredError(t *testing.T) {
	err := NewError("bind", CodeBindFailed, "address already in use")

	if err.Op != "bind" {
		t.Errorf("Expected Op=bind, got %s", err.Op)
	}

	if err.Code != CodeBindFailed {
		t.Errorf("Expected Code=CodeBindFailed, got %s", err.Code)
	}

	expected := "droned: address already in use (op=bind)"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
}

func TestActorError(t *testing.T) {
	err := NewActorError("transition", "flight", CodeUnknownAction, "unrecognized action tag")

	if err.Role != "flight" {
		t.Errorf("Expected Role=flight, got %s", err.Role)
	}

	expected := "droned: unrecognized action tag (op=transition)"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
}

func TestWrapError(t *testing.T) {
	inner := errors.New("write: broken pipe")
	err := WrapError("send", "telemetry", inner)

	if err.Role != "telemetry" {
		t.Errorf("Expected Role=telemetry, got %s", err.Role)
	}

	if errors.Unwrap(err) != inner {
		t.Error("expected Unwrap to return the original error")
	}
}

func TestWrapErrorPreservesStructuredCode(t *testing.T) {
	inner := NewActorError("bind", "flight", CodeBindFailed, "retry gated")
	err := WrapError("retry", "flight", inner)

	if err.Code != CodeBindFailed {
		t.Errorf("expected wrapped structured error to keep its code, got %s", err.Code)
	}
}

func TestIsCode(t *testing.T) {
	err := NewError("tick", CodeSemTimeout, "ring wait timed out")

	if !IsCode(err, CodeSemTimeout) {
		t.Error("IsCode should return true for matching code")
	}

	if IsCode(err, CodeDeadlock) {
		t.Error("IsCode should return false for non-matching code")
	}

	if IsCode(nil, CodeSemTimeout) {
		t.Error("IsCode should return false for nil error")
	}
}

func TestErrorIsBySentinel(t *testing.T) {
	wrapped := WrapError("drain", "telemetry", ErrRingTimeout)
	if !errors.Is(wrapped, ErrRingTimeout) {
		t.Error("expected wrapped sentinel to satisfy errors.Is")
	}
}
