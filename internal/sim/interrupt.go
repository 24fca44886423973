package sim

import (
	"errors"
	"os/exec"
	"syscall"
)

// ChildInterrupted reports whether err is the exit of a child process killed
// by SIGINT or SIGTERM. A Ctrl+C on the terminal reaches the whole process
// group, so the child may die before the root context is cancelled. A shell
// reports such a death as exit status 128+signal.
func ChildInterrupted(err error) bool {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return ws.Signal() == syscall.SIGINT || ws.Signal() == syscall.SIGTERM
	}
	switch exitErr.ExitCode() {
	case 128 + int(syscall.SIGINT), 128 + int(syscall.SIGTERM):
		return true
	}
	return false
}
