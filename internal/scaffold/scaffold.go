// Package scaffold creates the bot's entry-point file without ever
// overwriting existing work.
package scaffold

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultEntryPoint is the bot source file created in the working directory.
const DefaultEntryPoint = "property_bot.py"

// ErrNotRegular is returned when the entry-point path exists but is not a
// regular file (for example a directory).
var ErrNotRegular = errors.New("scaffold: entry point exists and is not a regular file")

// Result reports what EnsureFile did.
type Result struct {
	Path    string
	Created bool
	Size    int64
}

// EnsureFile creates an empty file at path unless something already exists
// there. Creation uses O_EXCL, so a file that appears concurrently is left
// intact rather than truncated. Idempotent.
func EnsureFile(path string) (Result, error) {
	res := Result{Path: path}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return res, fmt.Errorf("scaffold: create directory %s: %w", dir, err)
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	switch {
	case err == nil:
		if err := f.Close(); err != nil {
			return res, fmt.Errorf("scaffold: closing %s: %w", path, err)
		}
		res.Created = true
		return res, nil
	case errors.Is(err, fs.ErrExist):
		info, statErr := os.Stat(path)
		if statErr != nil {
			return res, fmt.Errorf("scaffold: stat %s: %w", path, statErr)
		}
		if !info.Mode().IsRegular() {
			return res, fmt.Errorf("%w: %s", ErrNotRegular, path)
		}
		res.Size = info.Size()
		return res, nil
	default:
		return res, fmt.Errorf("scaffold: creating %s: %w", path, err)
	}
}
