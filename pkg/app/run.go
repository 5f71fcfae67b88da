package app

import (
	"context"
	"errors"

	"github.com/flemzord/botstrap/internal/bootstrap"
	"github.com/flemzord/botstrap/internal/doctor"
	"github.com/flemzord/botstrap/internal/journal"
	"github.com/flemzord/botstrap/internal/metrics"
	"github.com/flemzord/botstrap/internal/reporting"
)

// Run executes the bootstrap pipeline once. Every step is journaled and
// counted; a failure is reported to Sentry when configured. The report is
// returned even on failure.
func (a *App) Run(ctx context.Context) (*bootstrap.Report, error) {
	a.loadDotEnvSecrets()

	provider, shutdown := a.telemetry(ctx)
	defer shutdown()

	reporter, err := reporting.New(reporting.Config{
		DSN:         a.Config.Sentry.DSN,
		Environment: a.Config.Sentry.Environment,
		Release:     a.opts.Version,
	}, a.redactor.Redact)
	if err != nil {
		a.Logger.Warn("failure reporting disabled", "error", err)
		reporter = &reporting.Reporter{}
	}
	defer reporter.Flush()

	m := metrics.New()
	observers := []bootstrap.Observer{m}

	activation, _, err := a.Activation()
	if err != nil {
		return nil, err
	}

	var run *journal.Run
	j, err := a.openJournal(ctx)
	switch {
	case err != nil:
		a.Logger.Warn("journal unavailable, run will not be recorded", "error", err)
	case j != nil:
		defer func() { _ = j.Close() }()
		if run, err = j.Begin(ctx, a.WorkDir, string(activation.Variant)); err != nil {
			a.Logger.Warn("journal unavailable, run will not be recorded", "error", err)
		} else {
			observers = append(observers, run)
		}
	}

	b, err := a.Bootstrapper(provider.Tracer(), observers...)
	if err != nil {
		return nil, err
	}
	report, runErr := b.Run(ctx)

	if run != nil {
		if err := run.Finish(context.WithoutCancel(ctx), runErr); err != nil {
			a.Logger.Warn("journal write failed", "run", run.ID, "error", err)
		}
	}

	m.RunFinished(runErr, a.now())
	if path := a.path(a.Config.Metrics.Textfile); path != "" {
		if err := m.WriteTextfile(path); err != nil {
			a.Logger.Warn("metrics textfile not written", "error", err)
		}
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		tags := map[string]string{"shell": string(activation.Variant)}
		var stepErr *bootstrap.StepError
		if errors.As(runErr, &stepErr) {
			tags["step"] = string(stepErr.Step)
		}
		if run != nil {
			tags["run_id"] = run.ID
		}
		reporter.CaptureError(runErr, tags)
	}

	return report, runErr
}

// Verify checks the environment for drift without changing it.
func (a *App) Verify(ctx context.Context) (*bootstrap.Verification, error) {
	provider, shutdown := a.telemetry(ctx)
	defer shutdown()

	b, err := a.Bootstrapper(provider.Tracer())
	if err != nil {
		return nil, err
	}
	return b.Verify(ctx)
}

// Doctor runs the bot readiness checks against the configured .env file.
func (a *App) Doctor(ctx context.Context, online bool) *doctor.Report {
	report := doctor.Run(ctx, doctor.Options{
		DotEnv:         a.path(a.Config.Doctor.DotEnv),
		Required:       a.Config.Doctor.Required,
		CredentialsKey: a.Config.Doctor.CredentialsKey,
		TokenKey:       a.Config.Doctor.TokenKey,
		OptionalFiles:  doctor.DefaultOptionalFiles,
		Online:         online,
		Store:          a.store,
	})
	a.redactor.SyncCredentials(a.store)
	for _, c := range report.Checks {
		a.Logger.Debug("doctor check", "name", c.Name, "status", string(c.Status), "detail", c.Detail)
	}
	return report
}

// History returns the n most recent journaled runs.
func (a *App) History(ctx context.Context, n int) ([]journal.RunRecord, error) {
	if a.Config.Journal.Disabled {
		return nil, errors.New("app: journal is disabled in configuration")
	}
	j, err := a.openJournal(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = j.Close() }()
	return j.Recent(ctx, n)
}
