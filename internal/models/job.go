package models

import (
	"fmt"
	"strings"
)

// ChannelKind selects which generator pipeline a channel belongs to.
type ChannelKind int

const (
	// KindReaction is an explicit Pluto reaction string ("p pi0 [g g]").
	KindReaction ChannelKind = iota
	// KindSpectrum is the composite cocktail spectrum.
	KindSpectrum
	// KindGun is a fixed-momentum particle gun ("gun: pi0").
	KindGun
)

// String returns the name used in logs and the plan table.
func (k ChannelKind) String() string {
	switch k {
	case KindSpectrum:
		return "spectrum"
	case KindGun:
		return "gun"
	case KindReaction:
		return "reaction"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ChannelRequest is one requested channel as read from the settings file,
// a channel list or the interactive dialogue.
type ChannelRequest struct {
	Raw    string `yaml:"channel"`
	Files  int    `yaml:"files"`
	Events int    `yaml:"events"`
}

// ResolvedChannel is a channel request classified and normalized to the
// canonical id used in file names.
type ResolvedChannel struct {
	ID       string
	Kind     ChannelKind
	Reaction string // raw reaction without surrounding quotes, passed to the generator
}

// SimulationPlan is the per-channel work for one run.
// New files use sequence numbers Offset+1 .. Offset+Files.
type SimulationPlan struct {
	Channel ResolvedChannel
	Files   int
	Events  int
	Offset  int
}

// Sequences returns the sequence numbers this plan will produce, ascending.
func (p SimulationPlan) Sequences() []int {
	seqs := make([]int, 0, p.Files)
	for i := 1; i <= p.Files; i++ {
		seqs = append(seqs, p.Offset+i)
	}
	return seqs
}

// TotalEvents returns the number of events the plan generates.
func (p SimulationPlan) TotalEvents() int {
	return p.Files * p.Events
}

// PipelineCommand is the generate/tag/simulate triple for one output file.
type PipelineCommand struct {
	Generate string
	Tag      string
	Simulate string
	LogFile  string
	Label    string
	Sequence int
}

// Compound joins the three stages into one shell instruction executed in order.
func (c PipelineCommand) Compound() string {
	return strings.Join([]string{c.Generate, c.Tag, c.Simulate}, "; ")
}
