package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/flemzord/botstrap/internal/config"
)

// ErrConfigExists is returned by WriteConfig when path already exists.
var ErrConfigExists = errors.New("configuration file already exists")

const configHeader = "# botstrap configuration. Values may reference ${VAR} or ${VAR:-default}.\n"

// WriteConfig validates cfg and writes it to path. An existing file is
// never overwritten.
func WriteConfig(path string, cfg *config.Config) error {
	if err := config.Validate(cfg); err != nil {
		return err
	}
	out, err := config.Marshal(cfg)
	if err != nil {
		return err
	}

	//nolint:gosec // path is chosen by the operator.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("app: %s: %w", path, ErrConfigExists)
		}
		return fmt.Errorf("app: create %s: %w", path, err)
	}
	if _, err := f.WriteString(configHeader); err != nil {
		_ = f.Close()
		return fmt.Errorf("app: write %s: %w", path, err)
	}
	if _, err := f.Write(out); err != nil {
		_ = f.Close()
		return fmt.Errorf("app: write %s: %w", path, err)
	}
	return f.Close()
}
