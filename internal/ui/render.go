package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/flemzord/botstrap/internal/bootstrap"
	"github.com/flemzord/botstrap/internal/doctor"
	"github.com/flemzord/botstrap/internal/journal"
	"github.com/flemzord/botstrap/internal/shell"
)

// SuccessMessage is printed once, only after every step has finished.
const SuccessMessage = "Setup complete! You can now start coding your bot in"

// Printer writes styled output to a single writer.
type Printer struct {
	w     io.Writer
	theme Theme
}

// NewPrinter creates a Printer for w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, theme: NewTheme(w)}
}

func (p *Printer) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.w, format, args...)
}

func (p *Printer) outcome(o bootstrap.Outcome) string {
	label := fmt.Sprintf("%-7s", o)
	switch o {
	case bootstrap.OutcomeDone:
		return p.theme.Pass.Render(label)
	case bootstrap.OutcomeSkipped:
		return p.theme.Skip.Render(label)
	default:
		return p.theme.Fail.Render(label)
	}
}

// Report prints one line per step. The success message and activation hint
// follow only when the run completed.
func (p *Printer) Report(r *bootstrap.Report) {
	for _, s := range r.Steps {
		detail := s.Detail
		if s.Err != nil {
			detail = s.Err.Error()
		}
		p.printf("  %s %-11s %s\n", p.outcome(s.Outcome), s.Step, p.theme.Faint.Render(detail))
	}
	if r.RolledBack {
		p.printf("%s removed %s\n", p.theme.Warn.Render("rollback:"), r.EnvDir)
	}
	if !r.Completed() {
		return
	}
	p.printf("\n%s %s\n", p.theme.Header.Render(SuccessMessage), r.EntryPoint)
	if r.Activation.Script != "" {
		p.printf("Activate the environment in your shell with: %s\n", p.theme.Code.Render(r.Activation.Command()))
	}
}

// Detection prints the chosen activation.
func (p *Printer) Detection(a shell.Activation, detected bool) {
	source := "configured"
	if detected {
		source = "detected"
	}
	p.printf("%s %s (%s)\n", p.theme.Header.Render("shell:"), a.Variant, source)
	p.printf("%s %s\n", p.theme.Header.Render("script:"), a.Script)
	p.printf("%s %s\n", p.theme.Header.Render("interpreter:"), a.Interpreter)
	p.printf("%s %s\n", p.theme.Header.Render("activate:"), p.theme.Code.Render(a.Command()))
}

// Verification prints the drift state.
func (p *Printer) Verification(v *bootstrap.Verification) {
	p.printf("%s %s (%d packages installed)\n", p.theme.Header.Render("environment:"), v.EnvDir, len(v.Installed))
	if v.PythonVersion != "" {
		p.printf("  %s %s\n", p.theme.Faint.Render("python"), v.PythonVersion)
	}
	if len(v.Missing) == 0 {
		p.printf("  %s all declared packages present\n", p.theme.Pass.Render("ok"))
	} else {
		p.printf("  %s missing: %s\n", p.theme.Fail.Render("drift"), strings.Join(v.Missing, ", "))
	}
	if v.EntryFound {
		p.printf("  %s %s present\n", p.theme.Pass.Render("ok"), v.EntryPoint)
	} else {
		p.printf("  %s %s not found\n", p.theme.Fail.Render("drift"), v.EntryPoint)
	}
}

// Doctor prints the readiness checks.
func (p *Printer) Doctor(r *doctor.Report) {
	for _, c := range r.Checks {
		var label string
		switch c.Status {
		case doctor.StatusPass:
			label = p.theme.Pass.Render("pass")
		case doctor.StatusWarn:
			label = p.theme.Warn.Render("warn")
		default:
			label = p.theme.Fail.Render("fail")
		}
		p.printf("  %s %s: %s\n", label, c.Name, c.Detail)
	}
}

// History prints journaled runs, newest first.
func (p *Printer) History(runs []journal.RunRecord) {
	if len(runs) == 0 {
		p.printf("No runs recorded.\n")
		return
	}
	for i, run := range runs {
		if i > 0 {
			p.printf("\n")
		}
		status := p.theme.Pass.Render(run.Status)
		if run.Status == journal.StatusFailed {
			status = p.theme.Fail.Render(run.Status)
		}
		p.printf("%s %s %s %s\n",
			p.theme.Header.Render(run.ID),
			run.StartedAt.Local().Format(time.DateTime),
			status,
			p.theme.Faint.Render(run.WorkDir),
		)
		for _, s := range run.Steps {
			p.printf("  %s %-11s %6s %s\n",
				p.outcome(bootstrap.Outcome(s.Outcome)), s.Name,
				s.Duration.Round(time.Millisecond), p.theme.Faint.Render(s.Detail))
		}
		if run.Error != "" {
			p.printf("  %s\n", p.theme.Fail.Render(run.Error))
		}
	}
}
