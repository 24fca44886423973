// Package validation checks directories and executables before a run.
package validation

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/a2mainz/simblaster/internal/sim"
)

// MinTargetLength is the usual liquid hydrogen target length in cm.
const MinTargetLength = 10.0

// CheckDirectory verifies that path is a readable directory, writable too when
// write is set. A missing directory is created when create is set.
// It reports whether the directory was created.
func CheckDirectory(path string, create, write bool) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		if !create {
			return false, sim.NewConfigurationError("directory", "%s does not exist, use --force to create it", path)
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return false, sim.NewConfigurationError("directory", "cannot create %s: %v", path, err)
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check directory %s: %w", path, err)
	}
	if !info.IsDir() {
		return false, sim.NewConfigurationError("directory", "%s is not a directory", path)
	}

	if unix.Access(path, unix.R_OK|unix.X_OK) != nil {
		return false, sim.NewConfigurationError("directory", "%s is not readable", path)
	}
	if write && unix.Access(path, unix.W_OK) != nil {
		return false, sim.NewConfigurationError("directory", "%s is not writable", path)
	}
	return false, nil
}

// CheckBinary verifies that dir/name exists and is executable and returns its
// absolute path.
func CheckBinary(dir, name string) (string, error) {
	path, err := filepath.Abs(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", name, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", sim.NewConfigurationError("binary", "%s does not exist", path)
	}
	if info.IsDir() || unix.Access(path, unix.X_OK) != nil {
		return "", sim.NewConfigurationError("binary", "%s is not executable", path)
	}
	return path, nil
}

// FindExecutable looks name up in $PATH and returns its absolute path.
func FindExecutable(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", sim.NewConfigurationError("binary", "%s not found in $PATH", name)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	return abs, nil
}

// Geant describes a checked A2 Geant4 installation.
type Geant struct {
	Binary       string  // A2
	RunScript    string  // runGeant.sh, the simulate command
	TargetLength float64 // from macros/DetectorSetup.mac, 0 when unknown
	Warnings     []string
}

// CheckGeant verifies an A2 Geant4 installation in dir. The installation must
// read Pluto files directly, so a pluto2mkin converter is rejected. A short or
// missing target length in the detector setup macro is only a warning.
func CheckGeant(dir string) (*Geant, error) {
	binary, err := CheckBinary(dir, "A2")
	if err != nil {
		return nil, err
	}
	script, err := CheckBinary(dir, "runGeant.sh")
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(filepath.Join(dir, "pluto2mkin")); err == nil {
		return nil, sim.NewConfigurationError("a2_geant_path",
			"pluto2mkin converter found in %s, use a Geant version that reads Pluto files", dir)
	}

	g := &Geant{Binary: binary, RunScript: script}

	macro := filepath.Join(dir, "macros", "DetectorSetup.mac")
	length, err := TargetLength(macro)
	switch {
	case err != nil:
		g.Warnings = append(g.Warnings, fmt.Sprintf("cannot determine the target length: %v", err))
	case length < MinTargetLength:
		g.TargetLength = length
		g.Warnings = append(g.Warnings, fmt.Sprintf(
			"the target length in %s is smaller than the usual lH2 target: %g cm, make sure it is correct when using a smeared z vertex",
			macro, length))
	default:
		g.TargetLength = length
	}
	return g, nil
}

// TargetLength reads the /A2/det/setTargetLength value from a Geant macro.
func TargetLength(macro string) (float64, error) {
	f, err := os.Open(macro)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	value := ""
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "#") || !strings.Contains(line, "/A2/det/setTargetLength") {
			continue
		}
		if fields := strings.Fields(line); len(fields) > 1 {
			value = fields[1]
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	if value == "" {
		return 0, fmt.Errorf("no /A2/det/setTargetLength in %s", macro)
	}
	length, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid target length %q in %s", value, macro)
	}
	return length, nil
}
