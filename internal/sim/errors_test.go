package sim

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"unexpected", errors.New("boom"), ExitUnexpected},
		{"configuration", NewConfigurationError("queue", "no queue given"), ExitConfiguration},
		{"wrapped configuration", fmt.Errorf("load: %w", NewConfigurationError("", "bad")), ExitConfiguration},
		{"resolution", &ResolutionError{Raw: "p pi0 [", Err: errors.New("missing ]")}, ExitResolution},
		{"empty batch", fmt.Errorf("%w: nothing to do", ErrEmptyBatch), ExitEmptyBatch},
		{"validation", &ValidationError{Stage: "tag", ExitCode: 1}, ExitValidation},
		{"submissions failed", ErrSubmissionsFailed, ExitSubmission},
		{"interrupted", fmt.Errorf("submission interrupted: %w", context.Canceled), ExitInterrupted},
		{"interrupt wins over failures", errors.Join(context.Canceled, ErrSubmissionsFailed), ExitInterrupted},
		{"failures joined with flush error", errors.Join(ErrSubmissionsFailed, errors.New("disk full")), ExitSubmission},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestConfigurationErrorMessage(t *testing.T) {
	err := NewConfigurationError("priority", "must be between 0 and %d", 63)
	if got := err.Error(); got != "configuration error: priority: must be between 0 and 63" {
		t.Errorf("unexpected message %q", got)
	}
	err = NewConfigurationError("", "no settings")
	if got := err.Error(); got != "configuration error: no settings" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestResolutionErrorUnwrap(t *testing.T) {
	inner := errors.New("malformed decay string")
	err := &ResolutionError{Raw: "p eta [g", Err: inner}
	if !errors.Is(err, inner) {
		t.Error("ResolutionError does not unwrap to its cause")
	}
	if !strings.Contains(err.Error(), `"p eta [g"`) {
		t.Errorf("message does not name the channel: %q", err.Error())
	}
}

func TestValidationErrorDetails(t *testing.T) {
	err := &ValidationError{
		Stage:    "simulate",
		Command:  "runGeant.sh a b",
		ExitCode: 3,
		Stdout:   "G4 started\n",
		Stderr:   "segmentation fault",
	}
	if got := err.Error(); got != "test job failed in simulate stage (exit status 3): runGeant.sh a b" {
		t.Errorf("unexpected message %q", got)
	}
	want := "error output:\nsegmentation fault\nstandard output:\nG4 started\n"
	if got := err.Details(); got != want {
		t.Errorf("Details() = %q, want %q", got, want)
	}
}

func TestAdvisoryString(t *testing.T) {
	if got := (Advisory{Message: "no setup"}).String(); got != "no setup" {
		t.Errorf("got %q", got)
	}
	if got := (Advisory{Channel: "eta [g g]", Message: "recoil proton missing"}).String(); got != "eta [g g]: recoil proton missing" {
		t.Errorf("got %q", got)
	}
}
