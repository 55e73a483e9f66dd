package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"
)

func TestWrapKeepsCauseAndCode(t *testing.T) {
	cause := stdErrors.New("connection refused")
	err := Wrap(CodeUpstreamFailure, cause, "mirror node unavailable", WithMetadata("host", "mirror"))

	if !stdErrors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable through errors.Is")
	}
	if !stdErrors.Is(err, New(CodeUpstreamFailure, "")) {
		t.Fatalf("expected code comparison to match")
	}
	if stdErrors.Is(err, New(CodeStorageFailure, "")) {
		t.Fatalf("unexpected match against a different code")
	}
	if got := err.Metadata()["host"]; got != "mirror" {
		t.Fatalf("unexpected metadata %q", got)
	}
	if got := err.Error(); got != "[UPSTREAM_FAILURE] mirror node unavailable: connection refused" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestAttributesFallbackAndOverrides(t *testing.T) {
	const custom Code = "TEST_CUSTOM"
	Register(custom, Attributes{Message: "custom", Severity: SeverityWarning, Retryable: true})

	err := New(custom, "")
	if err.Message() != "custom" {
		t.Fatalf("expected registered default message, got %q", err.Message())
	}
	if !err.Retryable() {
		t.Fatalf("expected registered retryable attribute")
	}
	if New(custom, "", WithRetryable(false)).Retryable() {
		t.Fatalf("expected override to win")
	}

	unknown := New("NEVER_REGISTERED", "")
	if unknown.Severity() != SeverityCritical {
		t.Fatalf("expected UNKNOWN severity fallback, got %s", unknown.Severity())
	}
}

func TestCodeHelpers(t *testing.T) {
	inner := New(CodeTimeout, "rpc timeout")
	outer := fmt.Errorf("quote: %w", Wrap(CodeUpstreamFailure, inner, "call failed"))

	if CodeOf(outer) != CodeUpstreamFailure {
		t.Fatalf("expected outermost code, got %s", CodeOf(outer))
	}
	if !HasCode(outer, CodeTimeout) {
		t.Fatalf("expected nested code to be found")
	}
	if !RetryableError(outer) {
		t.Fatalf("expected upstream failure to be retryable")
	}
	if CodeOf(stdErrors.New("plain")) != CodeUnknown {
		t.Fatalf("expected plain errors to map to UNKNOWN")
	}
	if SeverityOf(nil) != SeverityCritical {
		t.Fatalf("expected UNKNOWN severity for nil")
	}
}
