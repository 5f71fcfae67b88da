// Package venv creates Python virtual environments with whichever launcher
// is available on PATH.
package venv

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/flemzord/botstrap/internal/execx"
)

// DefaultLaunchers are tried in order. "py" is the Windows launcher; all of
// them accept the same "-m venv <dir>" invocation.
var DefaultLaunchers = []string{"python3", "python", "py"}

// ErrLauncherNotFound is returned when none of the launchers is on PATH.
var ErrLauncherNotFound = errors.New("venv: no python launcher found on PATH")

// markerFile is written by the venv module into every environment it creates.
const markerFile = "pyvenv.cfg"

// Creator runs "<launcher> -m venv".
type Creator struct {
	Runner    execx.Runner
	Launchers []string

	// Env is the subprocess environment. Nil inherits the parent's.
	Env []string
}

// NewCreator returns a Creator trying launchers in order. An empty list
// means DefaultLaunchers.
func NewCreator(runner execx.Runner, launchers []string, env []string) *Creator {
	if len(launchers) == 0 {
		launchers = DefaultLaunchers
	}
	return &Creator{Runner: runner, Launchers: launchers, Env: env}
}

// Exists reports whether dir already holds a virtual environment.
func Exists(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, markerFile))
	return err == nil && info.Mode().IsRegular()
}

// Launcher returns the resolved path of the first launcher found on PATH.
func (c *Creator) Launcher() (string, error) {
	for _, name := range c.Launchers {
		if path, err := c.Runner.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w (tried %s)", ErrLauncherNotFound, strings.Join(c.Launchers, ", "))
}

// Create builds a virtual environment in dir and returns the launcher used.
func (c *Creator) Create(ctx context.Context, dir string) (string, error) {
	launcher, err := c.Launcher()
	if err != nil {
		return "", err
	}
	cmd := execx.Cmd{
		Path: launcher,
		Args: []string{"-m", "venv", dir},
		Env:  c.Env,
	}
	if err := c.Runner.Run(ctx, cmd); err != nil {
		return launcher, fmt.Errorf("venv: creating %s: %w", dir, err)
	}
	return launcher, nil
}

// ReadConfig parses dir/pyvenv.cfg into its key/value pairs.
func ReadConfig(dir string) (map[string]string, error) {
	f, err := os.Open(filepath.Join(dir, markerFile))
	if err != nil {
		return nil, fmt.Errorf("venv: %w", err)
	}
	defer func() { _ = f.Close() }()

	cfg := make(map[string]string)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), "=")
		if !ok {
			continue
		}
		cfg[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("venv: reading %s: %w", markerFile, err)
	}
	return cfg, nil
}

// PythonVersion returns the interpreter version recorded in dir/pyvenv.cfg,
// or "" when it cannot be read.
func PythonVersion(dir string) string {
	cfg, err := ReadConfig(dir)
	if err != nil {
		return ""
	}
	if v := cfg["version"]; v != "" {
		return v
	}
	return cfg["version_info"]
}
