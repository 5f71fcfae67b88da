package config

import (
	"os"
	"path/filepath"
)

// FileName is the configuration file name searched in standard locations.
const FileName = "botstrap.yaml"

// ResolvePath searches for a config file in standard locations and returns
// "" when none exists, in which case Default applies.
// Search order: <workdir>/botstrap.yaml → $XDG_CONFIG_HOME/botstrap/botstrap.yaml → ~/.config/botstrap/botstrap.yaml
func ResolvePath(workDir string) string {
	for _, path := range Candidates(workDir) {
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path
		}
	}
	return ""
}

// Candidates returns the locations ResolvePath checks, in order.
func Candidates(workDir string) []string {
	candidates := []string{filepath.Join(workDir, FileName)}

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "botstrap", FileName))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "botstrap", FileName))
	}

	return candidates
}
