// Package sim holds the error taxonomy and exit codes shared by the simulation
// planning and submission packages.
package sim

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyBatch is returned when there is nothing to validate or submit.
var ErrEmptyBatch = errors.New("no simulation jobs to run")

// ErrSubmissionsFailed is returned after the manifest is flushed when at least
// one queue submission failed.
var ErrSubmissionsFailed = errors.New("one or more job submissions failed")

// Exit codes reported to the invoking shell.
const (
	ExitOK            = 0
	ExitUnexpected    = 1
	ExitConfiguration = 2
	ExitResolution    = 3
	ExitEmptyBatch    = 4
	ExitValidation    = 5
	ExitSubmission    = 6
	ExitInterrupted   = 130
)

// ConfigurationError reports an invalid or contradictory setting.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "configuration error: " + e.Reason
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// NewConfigurationError creates a ConfigurationError for field.
func NewConfigurationError(field, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ResolutionError reports a channel string that could not be turned into a
// canonical channel id.
type ResolutionError struct {
	Raw string
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve channel %q: %v", e.Raw, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// ValidationError reports the pipeline stage that failed during the local test run.
type ValidationError struct {
	Stage    string
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("test job failed in %s stage (exit status %d): %s", e.Stage, e.ExitCode, e.Command)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Details returns the captured output of the failed stage.
func (e *ValidationError) Details() string {
	var sb strings.Builder
	sb.WriteString("error output:\n")
	sb.WriteString(e.Stderr)
	if !strings.HasSuffix(e.Stderr, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString("standard output:\n")
	sb.WriteString(e.Stdout)
	return sb.String()
}

// ExitCode maps an error returned by a run to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var cfgErr *ConfigurationError
	var resErr *ResolutionError
	var valErr *ValidationError

	switch {
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.As(err, &cfgErr):
		return ExitConfiguration
	case errors.As(err, &resErr):
		return ExitResolution
	case errors.Is(err, ErrEmptyBatch):
		return ExitEmptyBatch
	case errors.As(err, &valErr):
		return ExitValidation
	case errors.Is(err, ErrSubmissionsFailed):
		return ExitSubmission
	default:
		return ExitUnexpected
	}
}
