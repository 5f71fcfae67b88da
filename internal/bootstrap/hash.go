// Package bootstrap runs the environment setup pipeline: create a virtual
// environment, select its activation path, install the declared packages
// and scaffold the entry-point file.
package bootstrap

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"

	"github.com/flemzord/botstrap/internal/pip"
)

// MarkerFile is written inside the environment after a successful install.
const MarkerFile = ".botstrap.json"

// Fingerprint returns a deterministic BLAKE3 hex digest of the package set.
// Names are normalized and sorted first, so order and spelling variants
// (google_auth vs google-auth) do not change the result.
func Fingerprint(packages []string) string {
	h := blake3.New()
	for _, p := range pip.Canonical(packages) {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Marker describes the last successful install into an environment.
type Marker struct {
	Fingerprint string    `json:"fingerprint"`
	Packages    []string  `json:"packages"`
	InstalledAt time.Time `json:"installed_at"`
}

// ReadMarker loads envDir's marker. A missing marker returns (nil, nil).
func ReadMarker(envDir string) (*Marker, error) {
	raw, err := os.ReadFile(filepath.Join(envDir, MarkerFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("bootstrap: reading marker: %w", err)
	}
	var m Marker
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("bootstrap: parsing marker: %w", err)
	}
	return &m, nil
}

// WriteMarker records packages as installed in envDir.
func WriteMarker(envDir string, packages []string, now time.Time) error {
	m := Marker{
		Fingerprint: Fingerprint(packages),
		Packages:    packages,
		InstalledAt: now.UTC(),
	}
	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("bootstrap: encoding marker: %w", err)
	}
	return os.WriteFile(filepath.Join(envDir, MarkerFile), raw, 0o644)
}

// NeedsInstall reports whether packages differ from the set recorded in
// envDir's marker. An unreadable or missing marker always needs an install.
// A matching marker is not proof the packages are still present; callers
// confirm with pip before skipping.
func NeedsInstall(envDir string, packages []string) bool {
	m, err := ReadMarker(envDir)
	if err != nil || m == nil {
		return true
	}
	return m.Fingerprint != Fingerprint(packages)
}
