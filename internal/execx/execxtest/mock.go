// Package execxtest provides a scriptable fake for execx.Runner.
package execxtest

import (
	"context"
	"fmt"
	"os/exec"
	"sync"

	"github.com/flemzord/botstrap/internal/execx"
)

// MockRunner records every command and delegates to optional hooks.
// Without hooks, Run and Output succeed and LookPath resolves only the
// names present in Paths.
type MockRunner struct {
	RunFunc    func(ctx context.Context, cmd execx.Cmd) error
	OutputFunc func(ctx context.Context, cmd execx.Cmd) ([]byte, error)

	// Paths maps executable names to resolved paths for LookPath.
	Paths map[string]string

	mu    sync.Mutex
	calls []execx.Cmd
}

// Compile-time check.
var _ execx.Runner = (*MockRunner)(nil)

// Run implements execx.Runner.
func (m *MockRunner) Run(ctx context.Context, cmd execx.Cmd) error {
	m.record(cmd)
	if m.RunFunc != nil {
		return m.RunFunc(ctx, cmd)
	}
	return nil
}

// Output implements execx.Runner.
func (m *MockRunner) Output(ctx context.Context, cmd execx.Cmd) ([]byte, error) {
	m.record(cmd)
	if m.OutputFunc != nil {
		return m.OutputFunc(ctx, cmd)
	}
	return nil, nil
}

// LookPath implements execx.Runner.
func (m *MockRunner) LookPath(name string) (string, error) {
	if p, ok := m.Paths[name]; ok {
		return p, nil
	}
	return "", fmt.Errorf("%s: %w", name, exec.ErrNotFound)
}

// Calls returns a copy of the recorded commands in invocation order.
func (m *MockRunner) Calls() []execx.Cmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]execx.Cmd, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MockRunner) record(cmd execx.Cmd) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, cmd)
}
