// Package diskspace checks the free space of the filesystems the simulation
// output is written to.
package diskspace

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"
)

// InsufficientSpaceError indicates that a filesystem has less free space than required.
type InsufficientSpaceError struct {
	Path           string
	RequiredBytes  uint64
	AvailableBytes uint64
}

func (e *InsufficientSpaceError) Error() string {
	return fmt.Sprintf("insufficient disk space in %s: %s free, at least %s recommended",
		e.Path, humanize.Bytes(e.AvailableBytes), humanize.Bytes(e.RequiredBytes))
}

// Available returns the space in bytes available to unprivileged users on the
// filesystem containing dir.
func Available(dir string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		return 0, fmt.Errorf("failed to stat filesystem of %s: %w", dir, err)
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}

// Check returns an *InsufficientSpaceError when the filesystem containing dir
// has less than required bytes free. A filesystem that cannot be queried
// (network mounts, virtual filesystems) passes.
func Check(dir string, required uint64) error {
	available, err := Available(dir)
	if err != nil {
		return nil
	}
	if available < required {
		return &InsufficientSpaceError{Path: dir, RequiredBytes: required, AvailableBytes: available}
	}
	return nil
}
