package cron

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flemzord/botstrap/internal/bootstrap"
)

// Verifier is the subset of bootstrap.Bootstrapper needed by DriftCheckJob.
type Verifier interface {
	Verify(ctx context.Context) (*bootstrap.Verification, error)
}

// DriftCheckJob re-verifies the environment and publishes the outcome.
type DriftCheckJob struct {
	Verifier Verifier
	Logger   *slog.Logger

	// Publish receives every result, including failures to verify.
	Publish func(v *bootstrap.Verification, err error)

	ScheduleExpr string // empty = default "*/15 * * * *"
}

// Compile-time interface check.
var _ Job = (*DriftCheckJob)(nil)

// Name implements Job.
func (j *DriftCheckJob) Name() string { return "drift_check" }

// Schedule implements Job.
func (j *DriftCheckJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "*/15 * * * *"
}

// Run verifies once. Drift is not an error; only a failed check is.
func (j *DriftCheckJob) Run(ctx context.Context) error {
	v, err := j.Verifier.Verify(ctx)
	if j.Publish != nil {
		j.Publish(v, err)
	}
	if err != nil {
		return fmt.Errorf("cron: drift check: %w", err)
	}
	if !v.OK() {
		j.Logger.Warn("cron: environment drift detected",
			"missing", v.Missing,
			"entry_found", v.EntryFound,
		)
	}
	return nil
}

// Pruner is the subset of journal.Journal needed by JournalPruneJob.
type Pruner interface {
	Prune(ctx context.Context, keep int) (int, error)
}

// JournalPruneJob keeps the run journal bounded.
type JournalPruneJob struct {
	Journal      Pruner
	Keep         int
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "0 3 * * *"
}

// Compile-time interface check.
var _ Job = (*JournalPruneJob)(nil)

// Name implements Job.
func (j *JournalPruneJob) Name() string { return "journal_prune" }

// Schedule implements Job.
func (j *JournalPruneJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "0 3 * * *"
}

// Run deletes all but the newest Keep runs.
func (j *JournalPruneJob) Run(ctx context.Context) error {
	if ctx.Err() != nil {
		return fmt.Errorf("cron: journal prune cancelled: %w", ctx.Err())
	}
	pruned, err := j.Journal.Prune(ctx, j.Keep)
	if err != nil {
		return fmt.Errorf("cron: journal prune: %w", err)
	}
	if pruned > 0 {
		j.Logger.Info("cron: pruned journal runs", "count", pruned, "keep", j.Keep)
	}
	return nil
}
