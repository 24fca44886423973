package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/a2mainz/simblaster/internal/models"
	"github.com/a2mainz/simblaster/internal/sim/filescan"
)

// Paths are the directories the stages write to.
type Paths struct {
	Generated string
	Simulated string
	Logs      string
}

// ScratchPaths places every stage output in dir.
func ScratchPaths(dir string) Paths {
	return Paths{Generated: dir, Simulated: dir, Logs: dir}
}

// Builder assembles PipelineCommands. It never touches the filesystem or
// starts processes.
type Builder struct {
	Backend   Backend
	TagTool   string // bookkeeping tool applied to the generated file (Ant-addTID)
	SimBinary string // detector simulation wrapper (runGeant.sh)
	Paths     Paths
}

// WithPaths returns a copy of b writing to paths.
func (b Builder) WithPaths(paths Paths) Builder {
	b.Paths = paths
	return b
}

// Build returns the three stage commands producing sequence number seq of
// channel ch with the given number of events.
func (b Builder) Build(ch models.ResolvedChannel, seq, events int) models.PipelineCommand {
	generated := filepath.Join(b.Paths.Generated, filescan.FileName(filescan.GeneratedPrefix, ch.ID, seq, "root"))
	simulated := filepath.Join(b.Paths.Simulated, filescan.FileName(filescan.SimulatedPrefix, ch.ID, seq, "root"))
	logFile := filepath.Join(b.Paths.Logs, filescan.FileName(filescan.LogPrefix, ch.ID, seq, "log"))

	return models.PipelineCommand{
		Generate: b.Backend.GenerateCommand(generated, events, ch),
		Tag:      join(b.TagTool, generated),
		Simulate: join(b.SimBinary, generated, simulated),
		LogFile:  logFile,
		Sequence: seq,
	}
}

// BuildScratch returns the single-event test command for ch with every output
// placed in dir. It uses sequence number 0, which real runs never produce.
func (b Builder) BuildScratch(ch models.ResolvedChannel, dir string) models.PipelineCommand {
	return b.WithPaths(ScratchPaths(dir)).Build(ch, 0, 1)
}

// Label returns the queue job label "<tag>/<index>".
func Label(tag string, index int) string {
	return fmt.Sprintf("%s/%d", tag, index)
}

func join(args ...string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = shellQuote(a)
	}
	return strings.Join(quoted, " ")
}
