package progress

import (
	"fmt"
	"io"
	"strings"
)

// JobBarWidth is the number of glyphs of a full job bar.
const JobBarWidth = 20

// JobBar renders "\r[=====     ]  25%" after every submitted job.
// On non-terminal writers only the final state is written.
type JobBar struct {
	out         io.Writer
	total       int
	interactive bool
}

// NewJobBar creates a bar for total jobs writing to out.
func NewJobBar(out io.Writer, total int) *JobBar {
	return &JobBar{out: out, total: total, interactive: IsTerminal(out)}
}

// NewJobBarMode is NewJobBar with explicit terminal behavior.
func NewJobBarMode(out io.Writer, total int, interactive bool) *JobBar {
	return &JobBar{out: out, total: total, interactive: interactive}
}

// Update renders the bar for job (1-based). The percentage is rounded up.
func (b *JobBar) Update(job int) {
	if b.total <= 0 {
		return
	}
	if !b.interactive && job < b.total {
		return
	}
	fmt.Fprint(b.out, RenderJobBar(job, b.total))
	if job >= b.total {
		fmt.Fprint(b.out, "\n")
	}
}

// Finish terminates the bar line after an interrupted loop.
func (b *JobBar) Finish(done int) {
	if done < b.total && done > 0 {
		if !b.interactive {
			fmt.Fprint(b.out, RenderJobBar(done, b.total))
		}
		fmt.Fprint(b.out, "\n")
	}
}

// RenderJobBar returns the bar line for job of total.
func RenderJobBar(job, total int) string {
	if job > total {
		job = total
	}
	fill := job * JobBarWidth / total
	pct := (job*100 + total - 1) / total
	return fmt.Sprintf("\r[%s%s] %3d%%", strings.Repeat("=", fill), strings.Repeat(" ", JobBarWidth-fill), pct)
}
