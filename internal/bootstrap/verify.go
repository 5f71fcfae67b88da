package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/flemzord/botstrap/internal/pip"
	"github.com/flemzord/botstrap/internal/venv"
)

// ErrNoEnvironment is returned by Verify when the environment is absent.
var ErrNoEnvironment = errors.New("environment not found")

// Verification is the drift state of a bootstrapped directory.
type Verification struct {
	EnvDir     string
	EntryPoint string

	// PythonVersion is read from the environment's pyvenv.cfg.
	PythonVersion string

	Installed  []pip.Package
	Missing    []string
	EntryFound bool
	CheckedAt  time.Time
}

// OK reports whether every declared package is installed and the entry
// point exists.
func (v *Verification) OK() bool {
	return len(v.Missing) == 0 && v.EntryFound
}

// Verify lists the environment's packages through its own interpreter and
// compares them with the declared set. It never installs anything.
func (b *Bootstrapper) Verify(ctx context.Context) (*Verification, error) {
	ctx, span := b.cfg.Tracer.Start(ctx, "bootstrap.verify")
	defer span.End()

	if !venv.Exists(b.envPath) {
		return nil, fmt.Errorf("bootstrap: verify %s: %w", b.envPath, ErrNoEnvironment)
	}

	inst := &pip.Installer{
		Runner:      b.cfg.Runner,
		Interpreter: b.Activation().Interpreter,
		Env:         b.cfg.Env,
	}
	installed, err := inst.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: verify: %w", err)
	}

	v := &Verification{
		EnvDir:        b.envPath,
		EntryPoint:    b.entry,
		PythonVersion: venv.PythonVersion(b.envPath),
		Installed:     installed,
		Missing:       pip.Missing(installed, b.cfg.Packages),
		CheckedAt:     b.cfg.Now(),
	}
	if fi, err := os.Stat(b.entry); err == nil && fi.Mode().IsRegular() {
		v.EntryFound = true
	}

	b.cfg.Logger.DebugContext(ctx, "verify finished",
		"installed", len(installed),
		"missing", len(v.Missing),
		"entry_found", v.EntryFound,
	)
	return v, nil
}
