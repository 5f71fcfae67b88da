package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/flemzord/botstrap/internal/config"
	"github.com/flemzord/botstrap/internal/shell"
)

// ErrAborted is returned when the operator cancels the wizard.
var ErrAborted = errors.New("ui: wizard aborted")

// WizardOptions controls where the wizard reads and writes.
type WizardOptions struct {
	In  io.Reader
	Out io.Writer

	// Accessible renders plain prompts instead of the full-screen form,
	// for screen readers and dumb terminals.
	Accessible bool
}

// answers holds the wizard's editable fields as plain values.
type answers struct {
	envDir     string
	entryPoint string
	shell      string
	rollback   bool
	packages   string
	dotenv     string
}

func answersFrom(cfg *config.Config) answers {
	return answers{
		envDir:     cfg.Environment.Dir,
		entryPoint: cfg.EntryPoint,
		shell:      cfg.Environment.Shell,
		rollback:   cfg.Environment.RollbackOnFailure,
		packages:   strings.Join(cfg.Packages, "\n"),
		dotenv:     cfg.Doctor.DotEnv,
	}
}

func (a answers) apply(cfg *config.Config) {
	cfg.Environment.Dir = strings.TrimSpace(a.envDir)
	cfg.EntryPoint = strings.TrimSpace(a.entryPoint)
	cfg.Environment.Shell = a.shell
	cfg.Environment.RollbackOnFailure = a.rollback
	cfg.Packages = splitPackages(a.packages)
	cfg.Doctor.DotEnv = strings.TrimSpace(a.dotenv)
}

// splitPackages accepts one requirement per line or comma separated.
func splitPackages(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '\n' || r == ',' || r == '\r'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func notBlank(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func validatePackages(s string) error {
	if len(splitPackages(s)) == 0 {
		return errors.New("at least one package is required")
	}
	return nil
}

// RunWizard prompts for the settings an operator usually changes and writes
// the answers into cfg. cfg is left untouched when the wizard is aborted.
func RunWizard(ctx context.Context, cfg *config.Config, opts WizardOptions) error {
	a := answersFrom(cfg)

	shells := []huh.Option[string]{
		huh.NewOption("auto (detect at run time)", "auto"),
		huh.NewOption("PowerShell (Activate.ps1)", string(shell.Modern)),
		huh.NewOption("cmd.exe (activate.bat)", string(shell.Legacy)),
		huh.NewOption("POSIX sh (activate)", string(shell.Posix)),
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Environment directory").
				Value(&a.envDir).
				Validate(notBlank("environment directory")),
			huh.NewInput().
				Title("Bot entry point").
				Value(&a.entryPoint).
				Validate(notBlank("entry point")),
			huh.NewSelect[string]().
				Title("Activation shell").
				Options(shells...).
				Value(&a.shell),
			huh.NewConfirm().
				Title("Remove a freshly created environment when setup fails?").
				Value(&a.rollback),
		),
		huh.NewGroup(
			huh.NewText().
				Title("Packages").
				Description("One requirement per line.").
				Value(&a.packages).
				Validate(validatePackages),
			huh.NewInput().
				Title("Bot environment file").
				Value(&a.dotenv),
		),
	).WithAccessible(opts.Accessible)
	if opts.In != nil {
		form = form.WithInput(opts.In)
	}
	if opts.Out != nil {
		form = form.WithOutput(opts.Out)
	}

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return ErrAborted
		}
		return fmt.Errorf("ui: wizard: %w", err)
	}
	a.apply(cfg)
	return nil
}
