// Package submit fans a validated batch out to the cluster queue, one job per
// output file, and records every attempt in the run manifest.
package submit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/a2mainz/simblaster/internal/logging"
	"github.com/a2mainz/simblaster/internal/models"
	"github.com/a2mainz/simblaster/internal/progress"
	"github.com/a2mainz/simblaster/internal/sim"
	"github.com/a2mainz/simblaster/internal/sim/pipeline"
	"github.com/a2mainz/simblaster/internal/sim/plan"
	"github.com/a2mainz/simblaster/internal/sim/queue"
)

// DefaultTag is the queue label prefix.
const DefaultTag = "Sim"

// SubmissionFailure is one job the queue did not accept.
type SubmissionFailure struct {
	Label string
	Err   error
}

func (f SubmissionFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.Label, f.Err)
}

// Result summarizes a SubmitAll call.
type Result struct {
	Manifest     *Manifest
	ManifestPath string
	Submitted    int
	Failures     []SubmissionFailure
}

// Submitter submits planned jobs one at a time.
type Submitter struct {
	Builder      pipeline.Builder
	Client       queue.Client
	QueueCommand string // recorded in the manifest header
	Tag          string
	OutputDir    string // manifest directory
	Progress     io.Writer
	Interactive  bool // render every progress step, not only the last one
	Logger       *logging.Logger
	Now          func() time.Time
	NewRunID     func() string
}

// submission is the state of one SubmitAll call. It owns the job index and
// the manifest for the duration of the loop.
type submission struct {
	index    int
	total    int
	manifest *Manifest
	failures []SubmissionFailure
	bar      *progress.JobBar
}

// SubmitAll submits every file of every plan: channels in plan order and
// sequence numbers ascending. A rejected job is logged and collected, the
// loop continues. The manifest is flushed on every exit path. The returned
// error wraps sim.ErrSubmissionsFailed when any job failed and
// context.Canceled when the run was interrupted.
func (s *Submitter) SubmitAll(ctx context.Context, plans []models.SimulationPlan) (*Result, error) {
	files, events := plan.Totals(plans)
	if files == 0 {
		return nil, fmt.Errorf("%w: nothing to submit", sim.ErrEmptyBatch)
	}

	logger := s.logger()
	runID := s.runID()
	logger = logger.WithStr("run", runID)

	sub := &submission{
		total:    int(files),
		manifest: NewManifest(runID, s.now(), plans, s.QueueCommand),
		bar:      progress.NewJobBarMode(s.progressWriter(), int(files), s.Interactive),
	}

	logger.Info().
		Int64("jobs", files).
		Str("events", humanize.Comma(events)).
		Msg("Submitting jobs")

	loopErr := s.loop(ctx, sub, plans, logger)

	result := &Result{
		Manifest:  sub.manifest,
		Submitted: sub.index - len(sub.failures),
		Failures:  sub.failures,
	}

	path, flushErr := sub.manifest.Flush(s.OutputDir)
	if flushErr != nil {
		logger.Error().Err(flushErr).Msg("Failed to write submission manifest")
	} else {
		result.ManifestPath = path
		logger.Info().Str("manifest", path).Msg("Submission manifest written")
	}

	var errs []error
	if loopErr != nil {
		errs = append(errs, loopErr)
	}
	if len(sub.failures) > 0 {
		errs = append(errs, fmt.Errorf("%w: %d of %d jobs rejected",
			sim.ErrSubmissionsFailed, len(sub.failures), sub.index))
	}
	if flushErr != nil {
		errs = append(errs, flushErr)
	}
	return result, errors.Join(errs...)
}

func (s *Submitter) loop(ctx context.Context, sub *submission, plans []models.SimulationPlan, logger *logging.Logger) error {
	tag := s.Tag
	if tag == "" {
		tag = DefaultTag
	}

	for _, p := range plans {
		for _, seq := range p.Sequences() {
			if err := ctx.Err(); err != nil {
				sub.bar.Finish(sub.index)
				logger.Warn().Int("submitted", sub.index).Int("total", sub.total).Msg("Submission interrupted")
				return fmt.Errorf("submission interrupted after %d of %d jobs: %w", sub.index, sub.total, err)
			}

			sub.index++
			cmd := s.Builder.Build(p.Channel, seq, p.Events)
			cmd.Label = pipeline.Label(tag, sub.index)
			compound := cmd.Compound()

			job := queue.Job{Label: cmd.Label, LogFile: cmd.LogFile, Script: compound}
			logger.Debug().Str("label", job.Label).Str("qsub", s.Client.CommandLine(job)).Msg("Submitting job")

			if _, err := s.Client.Submit(ctx, job); err != nil {
				if ctx.Err() != nil || sim.ChildInterrupted(err) {
					// the killed qsub counts as not attempted
					sub.index--
					sub.bar.Finish(sub.index)
					logger.Warn().Str("label", cmd.Label).Int("submitted", sub.index).Int("total", sub.total).
						Msg("Submission interrupted, check the queue for a partially submitted job")
					return fmt.Errorf("submission interrupted after %d of %d jobs: %w", sub.index, sub.total, context.Canceled)
				}
				failure := SubmissionFailure{Label: cmd.Label, Err: err}
				sub.failures = append(sub.failures, failure)
				logger.Error().Str("label", cmd.Label).Str("channel", p.Channel.ID).Err(err).Msg("Job submission failed")
			}
			sub.manifest.Record(compound)
			sub.bar.Update(sub.index)
		}
	}
	return nil
}

func (s *Submitter) logger() *logging.Logger {
	if s.Logger == nil {
		return logging.NewNopLogger()
	}
	return s.Logger
}

func (s *Submitter) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Submitter) runID() string {
	if s.NewRunID == nil {
		return uuid.NewString()
	}
	return s.NewRunID()
}

func (s *Submitter) progressWriter() io.Writer {
	if s.Progress == nil {
		return io.Discard
	}
	return s.Progress
}
