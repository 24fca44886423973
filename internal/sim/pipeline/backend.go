// Package pipeline builds the generate, tag and detector-simulation commands
// for one simulation output file.
package pipeline

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/a2mainz/simblaster/internal/models"
	"github.com/a2mainz/simblaster/internal/sim"
)

// Backend builds the generator invocation for one generator family.
// It is chosen once per run by NewBackend.
type Backend interface {
	Kind() models.ChannelKind
	GenerateCommand(out string, events int, ch models.ResolvedChannel) string
}

// Options carries the generator settings of a run.
type Options struct {
	Generator string  // generator binary path
	Emin      float64 // beam energy range in MeV
	Emax      float64
	Setup     string // spectrum: named detector setup
	Binning   int    // spectrum: number of beam energy bins, 0 = unset
	AddFlags  string // appended verbatim to every generator command
}

// generator name fragments, matched case-insensitively against the binary name
var generatorKinds = []struct {
	fragment string
	kind     models.ChannelKind
}{
	{"cocktail", models.KindSpectrum},
	{"mcgun", models.KindGun},
	{"pluto", models.KindReaction},
}

// KindFromGenerator derives the backend kind from the generator binary name,
// e.g. Ant-cocktail, Ant-mcgun or Ant-pluto.
func KindFromGenerator(generator string) (models.ChannelKind, error) {
	base := strings.ToLower(filepath.Base(generator))
	for _, g := range generatorKinds {
		if strings.Contains(base, g.fragment) {
			return g.kind, nil
		}
	}
	return 0, sim.NewConfigurationError("generator", "unknown MC generator %q, expected Ant-pluto, Ant-cocktail or Ant-mcgun", generator)
}

// ParseKind parses a generator kind name as used in the settings file.
func ParseKind(name string) (models.ChannelKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "reaction", "pluto":
		return models.KindReaction, nil
	case "spectrum", "cocktail":
		return models.KindSpectrum, nil
	case "gun", "mcgun":
		return models.KindGun, nil
	default:
		return 0, sim.NewConfigurationError("generator_kind", "unknown generator kind %q", name)
	}
}

// NewBackend selects the backend for kind. The spectrum backend requires
// exactly one of a detector setup or an energy binning.
func NewBackend(kind models.ChannelKind, opts Options) (Backend, []sim.Advisory, error) {
	switch kind {
	case models.KindSpectrum:
		return newSpectrumBackend(opts)
	case models.KindGun:
		return &gunBackend{opts: opts}, nil, nil
	case models.KindReaction:
		return &reactionBackend{opts: opts}, nil, nil
	default:
		return nil, nil, sim.NewConfigurationError("generator_kind", "unsupported kind %v", kind)
	}
}

type spectrumBackend struct {
	opts Options
}

func newSpectrumBackend(opts Options) (Backend, []sim.Advisory, error) {
	if opts.Binning < 0 {
		return nil, nil, sim.NewConfigurationError("cocktail_binning", "must not be negative, got %d", opts.Binning)
	}

	hasSetup := opts.Setup != ""
	hasBinning := opts.Binning > 0

	if hasSetup && hasBinning {
		return nil, nil, sim.NewConfigurationError("cocktail_setup",
			"both a setup and an energy binning are given for the cocktail, provide only one of them")
	}
	if !hasSetup && !hasBinning {
		return nil, nil, sim.NewConfigurationError("cocktail_setup",
			"neither a setup nor an energy binning is given for the cocktail, provide one of them")
	}

	var advisories []sim.Advisory
	if hasSetup && !strings.HasPrefix(opts.Setup, "Setup_") {
		advisories = append(advisories, sim.Advisory{
			Message: fmt.Sprintf("the detector setup %q does not start with 'Setup_'", opts.Setup),
		})
	}
	return &spectrumBackend{opts: opts}, advisories, nil
}

func (b *spectrumBackend) Kind() models.ChannelKind { return models.KindSpectrum }

func (b *spectrumBackend) GenerateCommand(out string, events int, _ models.ResolvedChannel) string {
	args := []string{shellQuote(b.opts.Generator), "-o", shellQuote(out)}
	if b.opts.Setup != "" {
		args = append(args, "-s", shellQuote(b.opts.Setup))
	} else {
		args = append(args,
			"--Emin", formatFloat(b.opts.Emin),
			"--Emax", formatFloat(b.opts.Emax),
			"-N", strconv.Itoa(b.opts.Binning),
			"-n", strconv.Itoa(events))
	}
	return withFlags(args, b.opts.AddFlags)
}

type gunBackend struct {
	opts Options
}

func (b *gunBackend) Kind() models.ChannelKind { return models.KindGun }

func (b *gunBackend) GenerateCommand(out string, events int, _ models.ResolvedChannel) string {
	args := []string{shellQuote(b.opts.Generator), "-o", shellQuote(out), "-n", strconv.Itoa(events)}
	return withFlags(args, b.opts.AddFlags)
}

type reactionBackend struct {
	opts Options
}

func (b *reactionBackend) Kind() models.ChannelKind { return models.KindReaction }

// GenerateCommand disables the generator's internal batching (--no-bulk) so
// that every queue job produces exactly one output file.
func (b *reactionBackend) GenerateCommand(out string, events int, ch models.ResolvedChannel) string {
	args := []string{
		shellQuote(b.opts.Generator),
		"--reaction", shellQuote(ch.Reaction),
		"-o", shellQuote(out),
		"-n", strconv.Itoa(events),
		"--Emin", formatFloat(b.opts.Emin),
		"--Emax", formatFloat(b.opts.Emax),
		"--no-bulk",
	}
	return withFlags(args, b.opts.AddFlags)
}

// withFlags appends the extra flags last so they can override earlier ones.
func withFlags(args []string, extra string) string {
	if extra != "" {
		args = append(args, extra)
	}
	return strings.Join(args, " ")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
