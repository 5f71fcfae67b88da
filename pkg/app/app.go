// Package app wires configuration, logging, persistence and observability
// around the bootstrap pipeline for the botstrap CLI.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/botstrap/internal/bootstrap"
	"github.com/flemzord/botstrap/internal/config"
	"github.com/flemzord/botstrap/internal/execx"
	"github.com/flemzord/botstrap/internal/journal"
	"github.com/flemzord/botstrap/internal/security"
	"github.com/flemzord/botstrap/internal/shell"
	"github.com/flemzord/botstrap/internal/telemetry"
	"github.com/flemzord/botstrap/internal/ui"
)

// Options configures an App. Zero values fall back to the config file,
// then to defaults.
type Options struct {
	// ConfigPath is an explicit configuration file. Empty searches the
	// standard locations and uses defaults when none exists.
	ConfigPath string

	// WorkDir is the directory being bootstrapped. Empty means the current
	// directory.
	WorkDir string

	// Shell overrides environment.shell.
	Shell string

	// Rollback enables environment.rollback_on_failure.
	Rollback bool

	// ForceInstall runs pip even when the installed package set is current.
	ForceInstall bool

	// LogLevel overrides log.level.
	LogLevel string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	Stdout io.Writer
	Stderr io.Writer

	// Runner replaces the subprocess runner. Nil runs real processes.
	Runner execx.Runner

	// Host replaces the detected host for shell detection.
	Host shell.Host

	// Terminal reports whether Stderr is a terminal. Nil inspects os.Stderr.
	Terminal *bool
}

// App holds the resolved configuration and the process-wide services built
// from it.
type App struct {
	Config     *config.Config
	ConfigPath string
	WorkDir    string
	Logger     *slog.Logger

	opts     Options
	store    *security.CredentialStore
	redactor *security.Redactor
	runner   execx.Runner
	host     shell.Host
	stdout   io.Writer
	now      func() time.Time
}

// New loads and validates configuration, applies overrides, and builds the
// logger.
func New(opts Options) (*App, error) {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	workDir := opts.WorkDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("app: resolve working directory: %w", err)
		}
		workDir = wd
	}
	workDir, err := filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("app: resolve working directory: %w", err)
	}

	cfgPath := opts.ConfigPath
	if cfgPath == "" {
		cfgPath = config.ResolvePath(workDir)
	}
	cfg, err := loadConfig(cfgPath, opts)
	if err != nil {
		return nil, err
	}
	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	store := security.NewCredentialStore()
	if cfg.Sentry.DSN != "" {
		store.Set("sentry.dsn", cfg.Sentry.DSN)
	}
	if cfg.Watch.Token != "" {
		store.Set("watch.token", cfg.Watch.Token)
	}
	redactor := security.NewRedactor()
	redactor.SyncCredentials(store)

	isTerminal := ui.IsTerminal(os.Stderr)
	if opts.Terminal != nil {
		isTerminal = *opts.Terminal
	}
	logger := NewLogger(opts.Stderr, cfg.Log.Format, isTerminal, level, redactor)

	runner := opts.Runner
	if runner == nil {
		runner = &execx.OSRunner{Stdout: opts.Stdout, Stderr: opts.Stderr}
	}
	host := opts.Host
	if host.GOOS == "" {
		host = shell.CurrentHost()
	}

	logger.Debug("configuration resolved", "path", cfgPath, "workdir", workDir)

	return &App{
		Config:     cfg,
		ConfigPath: cfgPath,
		WorkDir:    workDir,
		Logger:     logger,
		opts:       opts,
		store:      store,
		redactor:   redactor,
		runner:     runner,
		host:       host,
		stdout:     opts.Stdout,
		now:        time.Now,
	}, nil
}

// loadConfig reads path, or the defaults when path is empty, applies the
// flag overrides in opts, and validates the result.
func loadConfig(path string, opts Options) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	if opts.Shell != "" {
		cfg.Environment.Shell = opts.Shell
	}
	if opts.Rollback {
		cfg.Environment.RollbackOnFailure = true
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Printer returns a styled printer on the app's stdout.
func (a *App) Printer() *ui.Printer {
	return ui.NewPrinter(a.stdout)
}

// Bootstrapper builds the pipeline from the resolved configuration.
func (a *App) Bootstrapper(tracer trace.Tracer, observers ...bootstrap.Observer) (*bootstrap.Bootstrapper, error) {
	return a.bootstrapperFor(a.Config, tracer, observers...)
}

func (a *App) bootstrapperFor(cfg *config.Config, tracer trace.Tracer, observers ...bootstrap.Observer) (*bootstrap.Bootstrapper, error) {
	variant, err := shell.ParseVariant(cfg.Environment.Shell)
	if err != nil {
		return nil, err
	}
	return bootstrap.New(bootstrap.Config{
		WorkDir:      a.WorkDir,
		EnvDir:       cfg.Environment.Dir,
		EntryPoint:   cfg.EntryPoint,
		Packages:     cfg.Packages,
		PipArgs:      cfg.Pip.Args,
		Launchers:    cfg.Environment.Launchers,
		Shell:        variant,
		Host:         a.host,
		Rollback:     cfg.Environment.RollbackOnFailure,
		ForceInstall: a.opts.ForceInstall,
		Env:          security.ProcessEnv(a.store),
		Runner:       a.runner,
		Logger:       a.Logger,
		Tracer:       tracer,
		Observers:    observers,
		Now:          a.now,
	})
}

// Activation returns the activation for the configured or detected shell
// and whether it was detected.
func (a *App) Activation() (shell.Activation, bool, error) {
	b, err := a.Bootstrapper(nil)
	if err != nil {
		return shell.Activation{}, false, err
	}
	variant, _ := shell.ParseVariant(a.Config.Environment.Shell)
	return b.Activation(), variant == "", nil
}

// loadDotEnvSecrets registers the bot's .env values with the redactor so
// they never reach logs or subprocess environments. A missing file is fine.
func (a *App) loadDotEnvSecrets() {
	path := a.path(a.Config.Doctor.DotEnv)
	if path == "" {
		return
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if !os.IsNotExist(err) {
			a.Logger.Debug("dotenv not loaded", "path", path, "error", err)
		}
		return
	}
	for k, v := range values {
		if k != a.Config.Doctor.CredentialsKey {
			a.store.Set(k, v)
		}
	}
	a.redactor.SyncCredentials(a.store)
}

// telemetry sets up tracing and returns a shutdown func that is safe to
// defer.
func (a *App) telemetry(ctx context.Context) (*telemetry.Provider, func()) {
	provider, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:       a.Config.Telemetry.OTLPEndpoint,
		Insecure:       a.Config.Telemetry.Insecure,
		ServiceName:    a.Config.Telemetry.ServiceName,
		ServiceVersion: a.opts.Version,
	})
	if err != nil {
		a.Logger.Warn("tracing disabled", "error", err)
		provider, _ = telemetry.Setup(ctx, telemetry.Config{})
	}
	return provider, func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			a.Logger.Warn("tracing shutdown failed", "error", err)
		}
	}
}

// openJournal returns nil without error when the journal is disabled.
func (a *App) openJournal(ctx context.Context) (*journal.Journal, error) {
	if a.Config.Journal.Disabled {
		return nil, nil
	}
	path := a.path(a.Config.Journal.Path)
	if path == "" {
		var err error
		if path, err = journal.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return journal.Open(ctx, path)
}

// path resolves p against the working directory.
func (a *App) path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(a.WorkDir, p)
}
