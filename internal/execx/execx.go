// Package execx runs external tools (interpreters, package managers) on behalf
// of the bootstrap pipeline. The Runner interface lets tests substitute a fake
// for real subprocesses.
package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Cmd describes a single subprocess invocation.
type Cmd struct {
	// Path is the executable, either absolute or resolved through PATH.
	Path string
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env replaces the subprocess environment when non-nil.
	Env []string
}

// String renders the command line for logs and errors.
func (c Cmd) String() string {
	if len(c.Args) == 0 {
		return c.Path
	}
	return c.Path + " " + strings.Join(c.Args, " ")
}

// Runner executes commands.
type Runner interface {
	// Run executes cmd with its output streamed to the runner's writers.
	Run(ctx context.Context, cmd Cmd) error

	// Output executes cmd and returns its stdout. Stderr is still streamed.
	Output(ctx context.Context, cmd Cmd) ([]byte, error)

	// LookPath resolves an executable name through PATH.
	LookPath(name string) (string, error)
}

// OSRunner runs real subprocesses.
type OSRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Compile-time check.
var _ Runner = (*OSRunner)(nil)

// NewOSRunner returns a runner that passes tool output through to the
// process's stdout and stderr.
func NewOSRunner() *OSRunner {
	return &OSRunner{Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run implements Runner.
func (r *OSRunner) Run(ctx context.Context, c Cmd) error {
	cmd := r.command(ctx, c)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", c.String(), err)
	}
	return nil
}

// Output implements Runner.
func (r *OSRunner) Output(ctx context.Context, c Cmd) ([]byte, error) {
	var out bytes.Buffer
	cmd := r.command(ctx, c)
	cmd.Stdout = &out
	cmd.Stderr = r.Stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w", c.String(), err)
	}
	return out.Bytes(), nil
}

// LookPath implements Runner.
func (r *OSRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func (r *OSRunner) command(ctx context.Context, c Cmd) *exec.Cmd {
	//nolint:gosec // paths come from operator configuration, not remote input.
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	if c.Env != nil {
		cmd.Env = c.Env
	}
	return cmd
}

// ExitCode returns the exit status carried by err when it wraps an
// *exec.ExitError, and false otherwise.
func ExitCode(err error) (int, bool) {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), true
	}
	return 0, false
}
