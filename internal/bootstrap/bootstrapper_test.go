package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/flemzord/botstrap/internal/execx"
	"github.com/flemzord/botstrap/internal/execx/execxtest"
	"github.com/flemzord/botstrap/internal/pip"
	"github.com/flemzord/botstrap/internal/shell"
	"github.com/flemzord/botstrap/internal/venv"
)

// fakePython returns a runner that behaves like a python launcher: "-m venv
// <dir>" lays out a minimal environment, "-m pip install" fails with
// installErr when set.
func fakePython(t *testing.T, installErr error) *execxtest.MockRunner {
	t.Helper()
	return &execxtest.MockRunner{
		Paths: map[string]string{"python3": "/usr/bin/python3"},
		RunFunc: func(_ context.Context, cmd execx.Cmd) error {
			if len(cmd.Args) >= 3 && cmd.Args[1] == "venv" {
				dir := cmd.Args[2]
				if err := os.MkdirAll(filepath.Join(dir, "bin"), 0o755); err != nil {
					return err
				}
				if err := os.WriteFile(filepath.Join(dir, "pyvenv.cfg"), []byte("version = 3.12.3\n"), 0o644); err != nil {
					return err
				}
				return os.WriteFile(filepath.Join(dir, "bin", "python"), nil, 0o755)
			}
			if len(cmd.Args) >= 3 && cmd.Args[1] == "pip" && cmd.Args[2] == "install" {
				return installErr
			}
			return nil
		},
	}
}

func newTestBootstrapper(t *testing.T, dir string, runner execx.Runner, mutate func(*Config)) *Bootstrapper {
	t.Helper()
	cfg := Config{
		WorkDir:  dir,
		Packages: pip.DefaultPackages,
		Runner:   runner,
		Shell:    shell.Posix,
		Host:     shell.Host{GOOS: "linux"},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	b, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b
}

func TestRun_FreshDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	runner := fakePython(t, nil)
	b := newTestBootstrapper(t, dir, runner, nil)

	report, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Completed() {
		t.Fatalf("report not completed: %+v", report.Steps)
	}

	envDir := filepath.Join(dir, DefaultEnvDir)
	if !venv.Exists(envDir) {
		t.Errorf("environment not created at %s", envDir)
	}

	info, err := os.Stat(filepath.Join(dir, "property_bot.py"))
	if err != nil {
		t.Fatalf("entry point missing: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("entry point size = %d, want 0", info.Size())
	}

	calls := runner.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected venv + pip calls, got %d: %v", len(calls), calls)
	}
	wantPython := filepath.Join(envDir, "bin", "python")
	if calls[1].Path != wantPython {
		t.Errorf("pip ran with %q, want environment interpreter %q", calls[1].Path, wantPython)
	}
	wantArgs := append([]string{"-m", "pip", "install"}, pip.DefaultPackages...)
	if !slices.Equal(calls[1].Args, wantArgs) {
		t.Errorf("pip args = %v, want %v", calls[1].Args, wantArgs)
	}
}

func TestRun_ActivationPerVariant(t *testing.T) {
	t.Parallel()

	for _, v := range []shell.Variant{shell.Modern, shell.Legacy, shell.Posix} {
		t.Run(string(v), func(t *testing.T) {
			dir := t.TempDir()
			b := newTestBootstrapper(t, dir, fakePython(t, nil), func(c *Config) { c.Shell = v })

			report, err := b.Run(context.Background())
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			want := shell.Activate(v, filepath.Join(dir, DefaultEnvDir), "linux")
			if report.Activation.Script != want.Script {
				t.Errorf("Script = %q, want %q", report.Activation.Script, want.Script)
			}

			entries, err := os.ReadDir(dir)
			if err != nil {
				t.Fatal(err)
			}
			var dirs int
			for _, e := range entries {
				if e.IsDir() {
					dirs++
				}
			}
			if dirs != 1 {
				t.Errorf("expected exactly one environment directory, found %d", dirs)
			}
		})
	}
}

func TestRun_DetectsShellWhenUnset(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	b := newTestBootstrapper(t, dir, fakePython(t, nil), func(c *Config) {
		c.Shell = ""
		c.Host = shell.Host{GOOS: "linux", LookupEnv: func(string) (string, bool) { return "", false }}
	})
	report, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Activation.Variant != shell.Posix {
		t.Errorf("Variant = %q, want posix fallback", report.Activation.Variant)
	}
}

func TestRun_PreservesExistingEntryPoint(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	entry := filepath.Join(dir, "property_bot.py")
	content := []byte("from telegram import Update\n")
	if err := os.WriteFile(entry, content, 0o644); err != nil {
		t.Fatal(err)
	}

	for i := range 2 {
		b := newTestBootstrapper(t, dir, fakePython(t, nil), nil)
		report, err := b.Run(context.Background())
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		last := report.Steps[len(report.Steps)-1]
		if last.Step != StepScaffold || last.Outcome != OutcomeSkipped {
			t.Errorf("run %d: scaffold = %+v, want skipped", i, last)
		}
	}

	got, err := os.ReadFile(entry)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("entry point changed: %q", got)
	}
}

func TestRun_SecondRunSkipsCompletedSteps(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	runner := fakePython(t, nil)
	runner.OutputFunc = pipList(pipListAll)

	if _, err := newTestBootstrapper(t, dir, runner, nil).Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	report, err := newTestBootstrapper(t, dir, runner, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	want := map[Step]Outcome{
		StepCreateEnv: OutcomeSkipped,
		StepActivate:  OutcomeDone,
		StepInstall:   OutcomeSkipped,
		StepScaffold:  OutcomeSkipped,
	}
	for _, s := range report.Steps {
		if s.Outcome != want[s.Step] {
			t.Errorf("%s = %s, want %s", s.Step, s.Outcome, want[s.Step])
		}
	}

	calls := runner.Calls()
	if len(calls) != 3 {
		t.Fatalf("expected venv, install and list calls, got %d: %v", len(calls), calls)
	}
	if !slices.Contains(calls[2].Args, "list") {
		t.Errorf("second run should only list packages, got %v", calls[2].Args)
	}
}

func TestRun_ReinstallsWhenPackageRemoved(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	runner := fakePython(t, nil)
	runner.OutputFunc = pipList(pipListAll)
	if _, err := newTestBootstrapper(t, dir, runner, nil).Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}

	// python-telegram-bot was uninstalled behind our back.
	runner.OutputFunc = pipList(pipListWithoutTelegram)
	report, err := newTestBootstrapper(t, dir, runner, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	for _, s := range report.Steps {
		if s.Step == StepInstall && s.Outcome != OutcomeDone {
			t.Errorf("install = %s, want done", s.Outcome)
		}
	}

	var installs int
	for _, c := range runner.Calls() {
		if slices.Contains(c.Args, "install") {
			installs++
			if !slices.Contains(c.Args, "python-telegram-bot") {
				t.Errorf("install args = %v, want every declared package", c.Args)
			}
		}
	}
	if installs != 2 {
		t.Errorf("pip install calls = %d, want 2", installs)
	}
}

func TestRun_ListFailureFallsBackToInstall(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	runner := fakePython(t, nil)
	if _, err := newTestBootstrapper(t, dir, runner, nil).Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	runner.OutputFunc = func(context.Context, execx.Cmd) ([]byte, error) {
		return nil, errors.New("pip is broken")
	}
	if _, err := newTestBootstrapper(t, dir, runner, nil).Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	last := runner.Calls()[len(runner.Calls())-1]
	if !slices.Contains(last.Args, "install") {
		t.Errorf("last call = %v, want pip install", last.Args)
	}
}

func TestRun_ForceInstall(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	runner := fakePython(t, nil)
	if _, err := newTestBootstrapper(t, dir, runner, nil).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	b := newTestBootstrapper(t, dir, runner, func(c *Config) { c.ForceInstall = true })
	if _, err := b.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := len(runner.Calls()); n != 3 {
		t.Errorf("forced install should call pip again, total calls = %d", n)
	}
}

func TestRun_InstallFailureHaltsBeforeScaffold(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	boom := errors.New("No matching distribution found for not-a-package")
	b := newTestBootstrapper(t, dir, fakePython(t, boom), nil)

	report, err := b.Run(context.Background())
	if !errors.Is(err, ErrDependencyInstall) {
		t.Fatalf("err = %v, want ErrDependencyInstall", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, should wrap the cause", err)
	}
	var stepErr *StepError
	if !errors.As(err, &stepErr) || stepErr.Step != StepInstall {
		t.Errorf("StepError = %+v, want step install", stepErr)
	}

	if _, statErr := os.Stat(filepath.Join(dir, "property_bot.py")); !os.IsNotExist(statErr) {
		t.Error("entry point must not be created after an install failure")
	}
	if len(report.Steps) != 3 {
		t.Errorf("steps run = %d, want 3", len(report.Steps))
	}
	if report.RolledBack {
		t.Error("rollback is opt-in")
	}
	if !venv.Exists(filepath.Join(dir, DefaultEnvDir)) {
		t.Error("environment should be kept without rollback")
	}
}

func TestRun_RollbackRemovesCreatedEnvironment(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	b := newTestBootstrapper(t, dir, fakePython(t, errors.New("offline")), func(c *Config) { c.Rollback = true })

	report, err := b.Run(context.Background())
	if !errors.Is(err, ErrDependencyInstall) {
		t.Fatalf("err = %v, want ErrDependencyInstall", err)
	}
	if !report.RolledBack {
		t.Error("expected RolledBack = true")
	}
	if _, statErr := os.Stat(filepath.Join(dir, DefaultEnvDir)); !os.IsNotExist(statErr) {
		t.Error("environment created by the failed run should be removed")
	}
}

func TestRun_RollbackKeepsPreexistingEnvironment(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if _, err := newTestBootstrapper(t, dir, fakePython(t, nil), nil).Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	b := newTestBootstrapper(t, dir, fakePython(t, errors.New("offline")), func(c *Config) {
		c.Rollback = true
		c.ForceInstall = true
	})
	report, err := b.Run(context.Background())
	if err == nil {
		t.Fatal("expected install failure")
	}
	if report.RolledBack {
		t.Error("pre-existing environment must not be rolled back")
	}
	if !venv.Exists(filepath.Join(dir, DefaultEnvDir)) {
		t.Error("pre-existing environment was removed")
	}
}

func TestRun_NoLauncher(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	b := newTestBootstrapper(t, dir, &execxtest.MockRunner{}, nil)

	report, err := b.Run(context.Background())
	if !errors.Is(err, ErrEnvironmentCreation) {
		t.Fatalf("err = %v, want ErrEnvironmentCreation", err)
	}
	if !errors.Is(err, venv.ErrLauncherNotFound) {
		t.Errorf("err = %v, want wrapped ErrLauncherNotFound", err)
	}
	if len(report.Steps) != 1 {
		t.Errorf("steps run = %d, want 1", len(report.Steps))
	}
}

func TestRun_MissingInterpreter(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	envDir := filepath.Join(dir, DefaultEnvDir)
	if err := os.MkdirAll(envDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(envDir, "pyvenv.cfg"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := newTestBootstrapper(t, dir, fakePython(t, nil), nil).Run(context.Background())
	var stepErr *StepError
	if !errors.As(err, &stepErr) || stepErr.Step != StepActivate {
		t.Fatalf("err = %v, want activate step error", err)
	}
	if !errors.Is(err, ErrEnvironmentCreation) {
		t.Errorf("err = %v, want ErrEnvironmentCreation", err)
	}
}

func TestRun_EntryPointCreationFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "property_bot.py"), 0o755); err != nil {
		t.Fatal(err)
	}
	_, err := newTestBootstrapper(t, dir, fakePython(t, nil), nil).Run(context.Background())
	if !errors.Is(err, ErrFileCreation) {
		t.Errorf("err = %v, want ErrFileCreation", err)
	}
}

func TestRun_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := fakePython(t, nil)
	_, err := newTestBootstrapper(t, t.TempDir(), runner, nil).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if n := len(runner.Calls()); n != 0 {
		t.Errorf("no tool should run after cancellation, got %d calls", n)
	}
}

type recordingObserver struct {
	mu      sync.Mutex
	results []StepResult
}

func (o *recordingObserver) StepFinished(_ context.Context, res StepResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results = append(o.results, res)
}

func TestRun_NotifiesObservers(t *testing.T) {
	t.Parallel()

	obs := &recordingObserver{}
	b := newTestBootstrapper(t, t.TempDir(), fakePython(t, nil), func(c *Config) {
		c.Observers = []Observer{obs}
	})
	if _, err := b.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(obs.results) != len(Steps) {
		t.Fatalf("observed %d steps, want %d", len(obs.results), len(Steps))
	}
	for i, s := range Steps {
		if obs.results[i].Step != s {
			t.Errorf("result[%d].Step = %s, want %s", i, obs.results[i].Step, s)
		}
	}
}

func TestNew_RequiresPackagesAndRunner(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{Runner: &execxtest.MockRunner{}}); err == nil {
		t.Error("expected error without packages")
	}
	if _, err := New(Config{Packages: []string{"x"}}); err == nil {
		t.Error("expected error without runner")
	}
}

func TestNew_AbsolutePathsIgnoreWorkDir(t *testing.T) {
	t.Parallel()

	abs := filepath.Join(t.TempDir(), "env")
	b, err := New(Config{WorkDir: "/elsewhere", EnvDir: abs, Packages: []string{"x"}, Runner: &execxtest.MockRunner{}})
	if err != nil {
		t.Fatal(err)
	}
	if b.EnvPath() != abs {
		t.Errorf("EnvPath = %q, want %q", b.EnvPath(), abs)
	}
	if b.EntryPath() != filepath.Join("/elsewhere", "property_bot.py") {
		t.Errorf("EntryPath = %q", b.EntryPath())
	}
}
