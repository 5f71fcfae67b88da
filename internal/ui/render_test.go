package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/flemzord/botstrap/internal/bootstrap"
	"github.com/flemzord/botstrap/internal/doctor"
	"github.com/flemzord/botstrap/internal/journal"
	"github.com/flemzord/botstrap/internal/shell"
)

func completedReport() *bootstrap.Report {
	r := &bootstrap.Report{
		EnvDir:     "telegram_bot_env",
		EntryPoint: "property_bot.py",
		Activation: shell.Activate(shell.Posix, "telegram_bot_env", "linux"),
	}
	for _, s := range bootstrap.Steps {
		r.Steps = append(r.Steps, bootstrap.StepResult{Step: s, Outcome: bootstrap.OutcomeDone})
	}
	return r
}

func TestPrinterReport_Completed(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewPrinter(&buf).Report(completedReport())

	out := buf.String()
	if strings.Count(out, SuccessMessage) != 1 {
		t.Errorf("success message count != 1:\n%s", out)
	}
	if !strings.Contains(out, "property_bot.py") {
		t.Errorf("entry point missing:\n%s", out)
	}
	if !strings.Contains(out, "telegram_bot_env/bin/activate") {
		t.Errorf("activation hint missing:\n%s", out)
	}
	for _, s := range bootstrap.Steps {
		if !strings.Contains(out, string(s)) {
			t.Errorf("step %s not listed", s)
		}
	}
}

func TestPrinterReport_FailedHasNoSuccessMessage(t *testing.T) {
	t.Parallel()

	r := &bootstrap.Report{
		EnvDir: "telegram_bot_env",
		Steps: []bootstrap.StepResult{
			{Step: bootstrap.StepCreateEnv, Outcome: bootstrap.OutcomeDone},
			{Step: bootstrap.StepActivate, Outcome: bootstrap.OutcomeDone},
			{Step: bootstrap.StepInstall, Outcome: bootstrap.OutcomeFailed, Err: errors.New("exit status 1")},
		},
		RolledBack: true,
	}

	var buf bytes.Buffer
	NewPrinter(&buf).Report(r)

	out := buf.String()
	if strings.Contains(out, SuccessMessage) {
		t.Errorf("success message printed for failed run:\n%s", out)
	}
	if !strings.Contains(out, "exit status 1") {
		t.Errorf("step error missing:\n%s", out)
	}
	if !strings.Contains(out, "rollback:") {
		t.Errorf("rollback notice missing:\n%s", out)
	}
}

func TestPrinterVerification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		v    *bootstrap.Verification
		want []string
	}{
		{
			name: "clean",
			v:    &bootstrap.Verification{EnvDir: "env", EntryPoint: "bot.py", EntryFound: true, PythonVersion: "3.12.3"},
			want: []string{"all declared packages present", "bot.py present", "python 3.12.3"},
		},
		{
			name: "drift",
			v:    &bootstrap.Verification{EnvDir: "env", EntryPoint: "bot.py", Missing: []string{"google-auth", "gspread"}},
			want: []string{"missing: google-auth, gspread", "bot.py not found"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewPrinter(&buf).Verification(tt.v)
			for _, w := range tt.want {
				if !strings.Contains(buf.String(), w) {
					t.Errorf("output missing %q:\n%s", w, buf.String())
				}
			}
		})
	}
}

func TestPrinterDoctor(t *testing.T) {
	t.Parallel()

	r := &doctor.Report{Checks: []doctor.Check{
		{Name: "dotenv", Status: doctor.StatusPass, Detail: ".env loaded"},
		{Name: "welcome_image.jpg", Status: doctor.StatusWarn, Detail: "not found"},
		{Name: "credentials", Status: doctor.StatusFail, Detail: "missing private_key"},
	}}

	var buf bytes.Buffer
	NewPrinter(&buf).Doctor(r)

	for _, w := range []string{"pass dotenv", "warn welcome_image.jpg", "fail credentials: missing private_key"} {
		if !strings.Contains(buf.String(), w) {
			t.Errorf("output missing %q:\n%s", w, buf.String())
		}
	}
}

func TestPrinterHistory(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewPrinter(&buf).History(nil)
	if !strings.Contains(buf.String(), "No runs recorded.") {
		t.Errorf("empty history output = %q", buf.String())
	}

	buf.Reset()
	NewPrinter(&buf).History([]journal.RunRecord{{
		ID:        "01JABCDEF",
		StartedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		WorkDir:   "/srv/bot",
		Status:    journal.StatusFailed,
		Error:     "install: dependency install failed",
		Steps: []journal.StepRecord{
			{Name: "create_env", Outcome: "done", Duration: 2 * time.Second},
			{Name: "install", Outcome: "failed", Detail: "exit status 1"},
		},
	}})
	out := buf.String()
	for _, w := range []string{"01JABCDEF", "/srv/bot", "create_env", "exit status 1", "dependency install failed"} {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q:\n%s", w, out)
		}
	}
}

func TestPrinterDetection(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewPrinter(&buf).Detection(shell.Activate(shell.Legacy, "env", "windows"), true)

	out := buf.String()
	if !strings.Contains(out, "legacy (detected)") {
		t.Errorf("variant line missing:\n%s", out)
	}
	if !strings.Contains(out, `env\Scripts\activate.bat`) {
		t.Errorf("script missing:\n%s", out)
	}
}
