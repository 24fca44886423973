package diskspace

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestAvailable(t *testing.T) {
	free, err := Available(t.TempDir())
	if err != nil {
		t.Fatalf("Available failed: %v", err)
	}
	if free == 0 {
		t.Error("expected free space in the temp directory")
	}
}

func TestAvailableMissingDirectory(t *testing.T) {
	if _, err := Available("/nonexistent/simblaster/dir"); err == nil {
		t.Error("expected an error for a missing directory")
	}
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()

	if err := Check(dir, 1); err != nil {
		t.Errorf("Check(1 byte) = %v", err)
	}

	err := Check(dir, math.MaxUint64)
	var spaceErr *InsufficientSpaceError
	if !errors.As(err, &spaceErr) {
		t.Fatalf("expected InsufficientSpaceError, got %v", err)
	}
	if spaceErr.Path != dir {
		t.Errorf("Path = %q, want %q", spaceErr.Path, dir)
	}
	if !strings.Contains(err.Error(), "insufficient disk space") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestCheckUnqueryableFilesystemPasses(t *testing.T) {
	if err := Check("/nonexistent/simblaster/dir", math.MaxUint64); err != nil {
		t.Errorf("Check on a missing directory = %v, want nil", err)
	}
}
