// Package validate runs the pipeline of the first planned channel once,
// locally, with a single event before anything is sent to the queue.
package validate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/a2mainz/simblaster/internal/logging"
	"github.com/a2mainz/simblaster/internal/models"
	"github.com/a2mainz/simblaster/internal/progress"
	"github.com/a2mainz/simblaster/internal/sim"
	"github.com/a2mainz/simblaster/internal/sim/pipeline"
)

// Runner executes one shell command.
type Runner interface {
	Run(ctx context.Context, command string) (stdout, stderr string, exitCode int, err error)
}

// ShellRunner runs commands with /bin/sh -c.
type ShellRunner struct{}

// Run executes command and returns its separate output streams. A non-zero
// exit status is reported through exitCode and a non-nil err.
func (ShellRunner) Run(ctx context.Context, command string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	code := 0
	if err != nil {
		code = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
	}
	return stdout.String(), stderr.String(), code, err
}

// Validator performs the local test run.
type Validator struct {
	Builder     pipeline.Builder
	Runner      Runner
	ScratchRoot string // parent of the scratch directory, "" = os.TempDir()
	Progress    progress.Reporter
	Logger      *logging.Logger
}

type stage struct {
	name    string
	command string
}

// Validate runs generate, tag and simulate for the first plan in a scratch
// directory which is removed on every exit path. The first failing stage
// stops the run and is returned as *sim.ValidationError.
func (v *Validator) Validate(ctx context.Context, plans []models.SimulationPlan) error {
	if len(plans) == 0 {
		return fmt.Errorf("%w: nothing to validate", sim.ErrEmptyBatch)
	}

	scratch, err := os.MkdirTemp(v.ScratchRoot, "simblaster-test-")
	if err != nil {
		return fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	ch := plans[0].Channel
	cmd := v.Builder.BuildScratch(ch, scratch)
	stages := []stage{
		{"generate", cmd.Generate},
		{"tag", cmd.Tag},
		{"simulate", cmd.Simulate},
	}

	logger := v.logger()
	reporter := v.reporter()
	runner := v.Runner
	if runner == nil {
		runner = ShellRunner{}
	}

	logger.Info().Str("channel", ch.ID).Str("scratch", scratch).Msg("Running test job")
	reporter.Start(int64(len(stages)), "test job")

	for i, s := range stages {
		if err := ctx.Err(); err != nil {
			reporter.Finish()
			return fmt.Errorf("test job interrupted: %w", err)
		}

		reporter.SetDescription(s.name)
		logger.Debug().Str("stage", s.name).Str("command", s.command).Msg("Running stage")

		stdout, stderr, code, err := runner.Run(ctx, s.command)
		if err != nil {
			reporter.Error(err)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fmt.Errorf("test job interrupted in %s stage: %w", s.name, ctxErr)
			}
			if sim.ChildInterrupted(err) {
				return fmt.Errorf("test job interrupted in %s stage: %w", s.name, context.Canceled)
			}
			return &sim.ValidationError{
				Stage:    s.name,
				Command:  s.command,
				ExitCode: code,
				Stdout:   stdout,
				Stderr:   stderr,
				Err:      err,
			}
		}
		reporter.Update(int64(i + 1))
	}

	reporter.Finish()
	logger.Info().Str("channel", ch.ID).Msg("Test job completed successfully")
	return nil
}

func (v *Validator) logger() *logging.Logger {
	if v.Logger == nil {
		return logging.NewNopLogger()
	}
	return v.Logger
}

func (v *Validator) reporter() progress.Reporter {
	if v.Progress == nil {
		return progress.NewNoOpProgress()
	}
	return v.Progress
}
