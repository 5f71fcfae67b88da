package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/flemzord/botstrap/internal/execx"
	"github.com/flemzord/botstrap/internal/pip"
	"github.com/flemzord/botstrap/internal/scaffold"
	"github.com/flemzord/botstrap/internal/shell"
	"github.com/flemzord/botstrap/internal/venv"
)

// DefaultEnvDir is the environment directory created in the working directory.
const DefaultEnvDir = "telegram_bot_env"

// Step names a pipeline stage.
type Step string

// Pipeline steps, in execution order.
const (
	StepCreateEnv Step = "create_env"
	StepActivate  Step = "activate"
	StepInstall   Step = "install"
	StepScaffold  Step = "scaffold"
)

// Steps lists every step in execution order.
var Steps = []Step{StepCreateEnv, StepActivate, StepInstall, StepScaffold}

// Outcome is the result of one step.
type Outcome string

// Step outcomes.
const (
	OutcomeDone    Outcome = "done"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// StepResult is reported to observers after every step.
type StepResult struct {
	Step     Step
	Outcome  Outcome
	Duration time.Duration
	Detail   string
	Err      error
}

// Observer receives step results as the pipeline progresses.
type Observer interface {
	StepFinished(ctx context.Context, res StepResult)
}

// Config configures a Bootstrapper.
type Config struct {
	// WorkDir is where the environment and entry point are created.
	// Empty means the current directory.
	WorkDir string

	// EnvDir is the environment directory, relative to WorkDir unless absolute.
	EnvDir string

	// EntryPoint is the scaffolded file, relative to WorkDir unless absolute.
	EntryPoint string

	// Packages are installed with a single pip call.
	Packages []string

	// PipArgs are extra arguments for pip install.
	PipArgs []string

	// Launchers are tried in order to create the environment.
	Launchers []string

	// Shell forces the activation variant. Empty means detect from Host.
	Shell shell.Variant
	Host  shell.Host

	// Rollback removes an environment created by this run when a later step
	// fails. A pre-existing environment is never removed.
	Rollback bool

	// ForceInstall runs pip even when the marker matches the package set.
	ForceInstall bool

	// Env is the environment of every subprocess. Nil inherits the parent's.
	Env []string

	Runner    execx.Runner
	Logger    *slog.Logger
	Tracer    trace.Tracer
	Observers []Observer

	// Now overrides time.Now for testing.
	Now func() time.Time
}

// Report summarizes a run.
type Report struct {
	EnvDir     string
	EntryPoint string
	Activation shell.Activation
	Steps      []StepResult
	RolledBack bool
}

// Completed reports whether every step finished without error.
func (r *Report) Completed() bool {
	if len(r.Steps) != len(Steps) {
		return false
	}
	for _, s := range r.Steps {
		if s.Outcome == OutcomeFailed {
			return false
		}
	}
	return true
}

// Bootstrapper runs the setup pipeline.
type Bootstrapper struct {
	cfg     Config
	envPath string
	entry   string
}

// New validates cfg, fills defaults, and returns a Bootstrapper.
func New(cfg Config) (*Bootstrapper, error) {
	if cfg.EnvDir == "" {
		cfg.EnvDir = DefaultEnvDir
	}
	if cfg.EntryPoint == "" {
		cfg.EntryPoint = scaffold.DefaultEntryPoint
	}
	if len(cfg.Packages) == 0 {
		return nil, errors.New("bootstrap: at least one package is required")
	}
	if cfg.Runner == nil {
		return nil, errors.New("bootstrap: runner is required")
	}
	if cfg.Host.GOOS == "" {
		cfg.Host = shell.CurrentHost()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = noop.NewTracerProvider().Tracer("")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Bootstrapper{
		cfg:     cfg,
		envPath: resolve(cfg.WorkDir, cfg.EnvDir),
		entry:   resolve(cfg.WorkDir, cfg.EntryPoint),
	}, nil
}

// EnvPath returns the environment directory as used on disk.
func (b *Bootstrapper) EnvPath() string { return b.envPath }

// EntryPath returns the entry-point path as used on disk.
func (b *Bootstrapper) EntryPath() string { return b.entry }

// Activation returns the activation chosen for the configured or detected
// shell without running anything.
func (b *Bootstrapper) Activation() shell.Activation {
	variant := b.cfg.Shell
	if variant == "" {
		variant = shell.Detect(b.cfg.Host)
	}
	return shell.Activate(variant, b.envPath, b.cfg.Host.GOOS)
}

// Run executes the four steps in order and stops at the first failure.
// The returned report always lists the steps that ran.
func (b *Bootstrapper) Run(ctx context.Context) (*Report, error) {
	ctx, span := b.cfg.Tracer.Start(ctx, "bootstrap.run", trace.WithAttributes(
		attribute.String("env_dir", b.envPath),
		attribute.String("entry_point", b.entry),
		attribute.Int("packages", len(b.cfg.Packages)),
	))
	defer span.End()

	report := &Report{EnvDir: b.envPath, EntryPoint: b.entry}
	envExisted := pathExists(b.envPath)

	steps := []struct {
		step Step
		kind error
		fn   func(ctx context.Context, report *Report) (Outcome, string, error)
	}{
		{StepCreateEnv, ErrEnvironmentCreation, b.createEnv},
		{StepActivate, ErrEnvironmentCreation, b.activate},
		{StepInstall, ErrDependencyInstall, b.install},
		{StepScaffold, ErrFileCreation, b.scaffold},
	}

	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return report, b.fail(ctx, span, report, envExisted, &StepError{Step: s.step, Kind: s.kind, Err: err})
		}
		res := b.runStep(ctx, s.step, func(ctx context.Context) (Outcome, string, error) {
			return s.fn(ctx, report)
		})
		report.Steps = append(report.Steps, res)
		if res.Err != nil {
			return report, b.fail(ctx, span, report, envExisted, &StepError{Step: s.step, Kind: s.kind, Err: res.Err})
		}
	}

	b.cfg.Logger.Info("bootstrap complete",
		"env_dir", b.envPath,
		"entry_point", b.entry,
		"shell", string(report.Activation.Variant),
	)
	return report, nil
}

func (b *Bootstrapper) runStep(ctx context.Context, step Step, fn func(context.Context) (Outcome, string, error)) StepResult {
	ctx, span := b.cfg.Tracer.Start(ctx, "bootstrap."+string(step))
	defer span.End()

	b.cfg.Logger.Debug("step started", "step", string(step))
	start := b.cfg.Now()
	outcome, detail, err := fn(ctx)
	res := StepResult{
		Step:     step,
		Outcome:  outcome,
		Duration: b.cfg.Now().Sub(start),
		Detail:   detail,
		Err:      err,
	}
	if err != nil {
		res.Outcome = OutcomeFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		b.cfg.Logger.Error("step failed", "step", string(step), "error", err)
	} else {
		b.cfg.Logger.Info("step finished", "step", string(step), "outcome", string(res.Outcome), "detail", detail)
	}
	span.SetAttributes(attribute.String("outcome", string(res.Outcome)))

	for _, o := range b.cfg.Observers {
		o.StepFinished(ctx, res)
	}
	return res
}

func (b *Bootstrapper) fail(ctx context.Context, span trace.Span, report *Report, envExisted bool, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	if b.cfg.Rollback && !envExisted && pathExists(b.envPath) {
		if rmErr := os.RemoveAll(b.envPath); rmErr != nil {
			b.cfg.Logger.WarnContext(ctx, "rollback failed", "env_dir", b.envPath, "error", rmErr)
		} else {
			report.RolledBack = true
			b.cfg.Logger.InfoContext(ctx, "rolled back environment", "env_dir", b.envPath)
		}
	}
	return err
}

func (b *Bootstrapper) createEnv(ctx context.Context, _ *Report) (Outcome, string, error) {
	if venv.Exists(b.envPath) {
		return OutcomeSkipped, "environment already exists", nil
	}
	creator := venv.NewCreator(b.cfg.Runner, b.cfg.Launchers, b.cfg.Env)
	launcher, err := creator.Create(ctx, b.envPath)
	if err != nil {
		return OutcomeFailed, "", err
	}
	return OutcomeDone, "created with " + launcher, nil
}

func (b *Bootstrapper) activate(_ context.Context, report *Report) (Outcome, string, error) {
	act := b.Activation()
	report.Activation = act
	if _, err := os.Stat(act.Interpreter); err != nil {
		return OutcomeFailed, "", fmt.Errorf("environment interpreter: %w", err)
	}
	return OutcomeDone, fmt.Sprintf("%s shell via %s", act.Variant, act.Script), nil
}

func (b *Bootstrapper) install(ctx context.Context, report *Report) (Outcome, string, error) {
	inst := &pip.Installer{
		Runner:      b.cfg.Runner,
		Interpreter: report.Activation.Interpreter,
		Args:        b.cfg.PipArgs,
		Env:         b.cfg.Env,
	}
	if !b.cfg.ForceInstall && !NeedsInstall(b.envPath, b.cfg.Packages) {
		// The marker only says what was installed; the skip needs pip to
		// confirm every declared package is still there.
		installed, err := inst.List(ctx)
		missing := pip.Missing(installed, b.cfg.Packages)
		if err == nil && len(missing) == 0 {
			return OutcomeSkipped, fmt.Sprintf("all %d packages already installed", len(b.cfg.Packages)), nil
		}
		b.cfg.Logger.InfoContext(ctx, "installed packages drifted from marker, reinstalling",
			"missing", missing,
			"list_error", err,
		)
	}
	if err := inst.Install(ctx, b.cfg.Packages); err != nil {
		return OutcomeFailed, "", err
	}
	if err := WriteMarker(b.envPath, b.cfg.Packages, b.cfg.Now()); err != nil {
		b.cfg.Logger.Warn("could not record installed package set", "error", err)
	}
	return OutcomeDone, fmt.Sprintf("installed %d packages", len(b.cfg.Packages)), nil
}

func (b *Bootstrapper) scaffold(_ context.Context, _ *Report) (Outcome, string, error) {
	res, err := scaffold.EnsureFile(b.entry)
	if err != nil {
		return OutcomeFailed, "", err
	}
	if !res.Created {
		return OutcomeSkipped, fmt.Sprintf("already exists (%d bytes), left untouched", res.Size), nil
	}
	return OutcomeDone, "created empty file", nil
}

func resolve(workDir, p string) string {
	if filepath.IsAbs(p) || workDir == "" || workDir == "." {
		return p
	}
	return filepath.Join(workDir, p)
}

func pathExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
