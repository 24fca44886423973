package submit

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"

	"github.com/a2mainz/simblaster/internal/models"
	"github.com/a2mainz/simblaster/internal/sim/plan"
	ustrings "github.com/a2mainz/simblaster/internal/util/strings"
)

const (
	headerTimeLayout = "%Y-%m-%d %H:%M:%S"
	fileNameLayout   = "submit_%Y-%m-%d_%H.%M.%S.log"
)

// Manifest is the audit record of one run: a header describing the batch
// followed by one line per attempted submission, in submission order.
type Manifest struct {
	RunID    string
	Started  time.Time
	header   []string
	commands []string
}

// NewManifest creates the manifest header for plans.
func NewManifest(runID string, started time.Time, plans []models.SimulationPlan, queueCommand string) *Manifest {
	files, events := plan.Totals(plans)

	header := []string{
		fmt.Sprintf("Submitting %d jobs on %s", files, strftime.Format(headerTimeLayout, started)),
		"",
		"Run id: " + runID,
	}
	for _, p := range plans {
		header = append(header, fmt.Sprintf("  %-30s %4d files per %4s events (total %4s events)",
			strings.ReplaceAll(p.Channel.ID, "_", " --> "),
			p.Files,
			ustrings.FormatCount(int64(p.Events)),
			ustrings.FormatCount(int64(p.TotalEvents()))))
	}
	header = append(header,
		fmt.Sprintf(" Total %s events in %d files", ustrings.FormatCount(events), files),
		"",
		"Used qsub command: "+queueCommand,
		"",
	)

	return &Manifest{RunID: runID, Started: started, header: header}
}

// Record appends one attempted submission.
func (m *Manifest) Record(command string) {
	m.commands = append(m.commands, command)
}

// Commands returns the recorded submissions.
func (m *Manifest) Commands() []string {
	return m.commands
}

// Header returns the header lines.
func (m *Manifest) Header() []string {
	return m.header
}

// FileName returns the manifest file name derived from the run start time.
func (m *Manifest) FileName() string {
	return strftime.Format(fileNameLayout, m.Started)
}

// WriteTo writes the manifest text to w.
func (m *Manifest) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, lines := range [][]string{m.header, m.commands} {
		for _, line := range lines {
			n, err := io.WriteString(w, line+"\n")
			total += int64(n)
			if err != nil {
				return total, err
			}
		}
	}
	return total, nil
}

// Flush writes the manifest into dir through a temporary file and an atomic
// rename, so an interrupted run never leaves a truncated manifest behind.
// It returns the path written.
func (m *Manifest) Flush(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create manifest directory: %w", err)
	}

	path := filepath.Join(dir, m.FileName())
	file, err := os.CreateTemp(dir, ".submit-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp manifest file: %w", err)
	}
	tempFile := file.Name()

	success := false
	defer func() {
		if !success {
			file.Close()
			os.Remove(tempFile)
		}
	}()

	if err := file.Chmod(0644); err != nil {
		return "", fmt.Errorf("failed to set manifest permissions: %w", err)
	}
	if _, err := m.WriteTo(file); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp manifest file: %w", err)
	}
	if err := os.Rename(tempFile, path); err != nil {
		return "", fmt.Errorf("failed to rename manifest file: %w", err)
	}

	success = true
	return path, nil
}
