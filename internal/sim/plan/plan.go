// Package plan turns channel requests into per-channel simulation plans,
// continuing the file numbering found in the output directories.
package plan

import (
	"fmt"

	"github.com/a2mainz/simblaster/internal/logging"
	"github.com/a2mainz/simblaster/internal/models"
	"github.com/a2mainz/simblaster/internal/sim"
	"github.com/a2mainz/simblaster/internal/sim/filescan"
)

// ResolveFunc classifies a raw channel request. channel.Resolve satisfies it.
type ResolveFunc func(raw string, level int) (models.ResolvedChannel, []sim.Advisory, error)

// Planner builds simulation plans.
type Planner struct {
	GeneratedDir string
	SimulatedDir string
	Level        int // decay detail level passed to the resolver
	Resolve      ResolveFunc
	Logger       *logging.Logger
}

// Result is the outcome of Build.
type Result struct {
	Plans      []models.SimulationPlan // in request order
	Advisories []sim.Advisory
	Mismatches []filescan.Mismatch
}

// Build resolves every request and derives its starting offset from the files
// already on disk. Any resolution failure aborts the whole batch. Advisories
// and generated/simulated mismatches are logged at warn level and returned.
func (p *Planner) Build(requests []models.ChannelRequest) (*Result, error) {
	if len(requests) == 0 {
		return nil, fmt.Errorf("%w: no channels requested", sim.ErrEmptyBatch)
	}

	result := &Result{}
	// highest sequence already claimed in this run, per canonical id
	claimed := make(map[string]int)

	for _, req := range requests {
		if req.Files <= 0 || req.Events <= 0 {
			return nil, fmt.Errorf("%w: channel %q requests %d files with %d events each",
				sim.ErrEmptyBatch, req.Raw, req.Files, req.Events)
		}

		ch, advisories, err := p.Resolve(req.Raw, p.Level)
		for _, a := range advisories {
			p.warn(a)
		}
		result.Advisories = append(result.Advisories, advisories...)
		if err != nil {
			return nil, err
		}

		offset, ok := claimed[ch.ID]
		if !ok {
			genMax, err := filescan.MaxSequence(p.GeneratedDir, filescan.GeneratedPrefix, ch.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to scan generated files: %w", err)
			}
			simMax, err := filescan.MaxSequence(p.SimulatedDir, filescan.SimulatedPrefix, ch.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to scan simulated files: %w", err)
			}
			if m := filescan.CheckConsistency(genMax, simMax, ch.ID); m != nil {
				p.logger().Warn().Str("channel", ch.ID).Msg(m.String())
				result.Mismatches = append(result.Mismatches, *m)
			}
			offset = max(genMax, simMax)
		}

		plan := models.SimulationPlan{Channel: ch, Files: req.Files, Events: req.Events, Offset: offset}
		claimed[ch.ID] = offset + req.Files
		result.Plans = append(result.Plans, plan)

		p.logger().Debug().
			Str("channel", ch.ID).
			Str("kind", ch.Kind.String()).
			Int("offset", offset).
			Int("files", req.Files).
			Msg("Planned channel")
	}

	return result, nil
}

// KindAdvisories reports plans whose channel kind does not match the
// generator backend of the run. The generator is still invoked for them.
func KindAdvisories(plans []models.SimulationPlan, backend models.ChannelKind) []sim.Advisory {
	var advisories []sim.Advisory
	for _, p := range plans {
		if p.Channel.Kind == backend {
			continue
		}
		advisories = append(advisories, sim.Advisory{
			Channel: p.Channel.ID,
			Message: fmt.Sprintf("%s channel used with a %s generator", p.Channel.Kind, backend),
		})
	}
	return advisories
}

// Totals returns the number of files and events of plans.
func Totals(plans []models.SimulationPlan) (files, events int64) {
	for _, p := range plans {
		files += int64(p.Files)
		events += int64(p.TotalEvents())
	}
	return files, events
}

func (p *Planner) warn(a sim.Advisory) {
	p.logger().Warn().Str("channel", a.Channel).Msg(a.Message)
}

func (p *Planner) logger() *logging.Logger {
	if p.Logger == nil {
		return logging.NewNopLogger()
	}
	return p.Logger
}
