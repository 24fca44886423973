package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/a2mainz/simblaster/internal/sim"
)

// DefaultFileName is the settings file name searched for by FindConfig.
const DefaultFileName = "sim_settings"

// SearchPaths returns the default settings file locations in lookup order:
// the working directory, the home directory and ~/.config/simblaster.
func SearchPaths() []string {
	paths := []string{DefaultFileName}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, "."+DefaultFileName),
			filepath.Join(home, ".config", "simblaster", DefaultFileName),
		)
	}
	return paths
}

// FindConfig returns the settings file to use. An explicit path must exist.
// Without one the default locations are tried; "" means none was found and
// the defaults apply.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		info, err := os.Stat(explicit)
		if err != nil {
			return "", sim.NewConfigurationError("config", "settings file %s: %v", explicit, err)
		}
		if info.IsDir() {
			return "", sim.NewConfigurationError("config", "settings file %s is a directory", explicit)
		}
		return explicit, nil
	}

	for _, path := range SearchPaths() {
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("failed to check settings file %s: %w", path, err)
		}
	}
	return "", nil
}
