// Package queue submits jobs to a PBS/Torque style batch queue with qsub.
package queue

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Job is one queue submission: a shell script run under the given label with
// its output joined into LogFile.
type Job struct {
	Label   string
	LogFile string
	Script  string
}

// Client submits jobs to the cluster queue.
type Client interface {
	// Submit hands job to the queue and returns the queue's response.
	Submit(ctx context.Context, job Job) (string, error)
	// CommandLine returns the submission command used for job.
	CommandLine(job Job) string
}

// Options are the queue parameters of a run.
type Options struct {
	Binary   string // qsub
	Mail     string // mail policy, e.g. "n" or "ae"
	User     string
	Domain   string // mail domain appended to User
	Queue    string
	Priority int    // 0..63
	Walltime string // HH:MM:SS
}

// QsubClient submits jobs by running qsub with the script on stdin.
type QsubClient struct {
	opts Options
}

// NewQsubClient creates a client. An empty Binary defaults to "qsub".
func NewQsubClient(opts Options) *QsubClient {
	if opts.Binary == "" {
		opts.Binary = "qsub"
	}
	return &QsubClient{opts: opts}
}

// Args returns the qsub arguments for job.
func (c *QsubClient) Args(job Job) []string {
	return []string{
		"-m", c.opts.Mail,
		"-M", c.opts.User + "@" + c.opts.Domain,
		"-N", job.Label,
		"-j", "oe",
		"-o", job.LogFile,
		"-z",
		"-q", c.opts.Queue,
		"-V",
		"-p", fmt.Sprint(c.opts.Priority),
		"-l", "ncpus=1,walltime=" + c.opts.Walltime,
	}
}

// CommandLine returns the qsub invocation for job as a single line.
func (c *QsubClient) CommandLine(job Job) string {
	return c.opts.Binary + " " + strings.Join(c.Args(job), " ")
}

// Template returns the submission command with placeholder label and log
// file, as recorded in the manifest header.
func (c *QsubClient) Template() string {
	return c.CommandLine(Job{Label: "<tag>/<job>", LogFile: "<log file>"})
}

// Submit runs qsub and returns its combined output. The output is included
// in the error when qsub fails.
func (c *QsubClient) Submit(ctx context.Context, job Job) (string, error) {
	cmd := exec.CommandContext(ctx, c.opts.Binary, c.Args(job)...)
	cmd.Stdin = strings.NewReader(job.Script)

	output, err := cmd.CombinedOutput()
	out := strings.TrimSpace(string(output))
	if err != nil {
		if out == "" {
			return "", fmt.Errorf("qsub failed for %s: %w", job.Label, err)
		}
		return out, fmt.Errorf("qsub failed for %s: %w: %s", job.Label, err, out)
	}
	return out, nil
}
