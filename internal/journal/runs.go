package journal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/flemzord/botstrap/internal/bootstrap"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

const timeLayout = time.RFC3339Nano

// RunRecord is one journaled run.
type RunRecord struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	WorkDir    string
	Shell      string
	Status     string
	Error      string
	Steps      []StepRecord
}

// StepRecord is one journaled step outcome.
type StepRecord struct {
	Seq      int
	Name     string
	Outcome  string
	Duration time.Duration
	Detail   string
}

// Run is an open journal entry. It implements bootstrap.Observer so it can
// be handed to the pipeline directly.
type Run struct {
	ID string

	j   *Journal
	mu  sync.Mutex
	seq int
	err error
}

var _ bootstrap.Observer = (*Run)(nil)

// Begin inserts a new run in the running state.
func (j *Journal) Begin(ctx context.Context, workDir, shell string) (*Run, error) {
	now := j.now().UTC()
	id := ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, workdir, shell, status) VALUES (?, ?, ?, ?, ?)`,
		id, now.Format(timeLayout), workDir, shell, StatusRunning,
	)
	if err != nil {
		return nil, fmt.Errorf("journal: begin run: %w", err)
	}
	return &Run{ID: id, j: j}, nil
}

// StepFinished records a step outcome. Write errors are kept and returned
// by Finish since the observer contract has no error return.
func (r *Run) StepFinished(ctx context.Context, res bootstrap.StepResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	_, err := r.j.db.ExecContext(ctx,
		`INSERT INTO steps (run_id, seq, name, outcome, duration_ms, detail) VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.seq, string(res.Step), string(res.Outcome), res.Duration.Milliseconds(), stepDetail(res),
	)
	if err != nil {
		r.err = errors.Join(r.err, fmt.Errorf("journal: record step %s: %w", res.Step, err))
	}
}

// Finish closes the run as succeeded, or failed when runErr is non-nil.
func (r *Run) Finish(ctx context.Context, runErr error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	status, msg := StatusSucceeded, ""
	if runErr != nil {
		status, msg = StatusFailed, runErr.Error()
	}

	_, err := r.j.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ?, error = ? WHERE id = ?`,
		r.j.now().UTC().Format(timeLayout), status, msg, r.ID,
	)
	if err != nil {
		return errors.Join(r.err, fmt.Errorf("journal: finish run: %w", err))
	}
	return r.err
}

func stepDetail(res bootstrap.StepResult) string {
	if res.Err != nil {
		return res.Err.Error()
	}
	return res.Detail
}

// Recent returns the n most recent runs, newest first, with their steps.
func (j *Journal) Recent(ctx context.Context, n int) ([]RunRecord, error) {
	if n <= 0 {
		return nil, nil
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, workdir, shell, status, error
		FROM runs
		ORDER BY id DESC
		LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("journal: recent runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []RunRecord
	for rows.Next() {
		var (
			rec               RunRecord
			started, finished string
		)
		if err := rows.Scan(&rec.ID, &started, &finished, &rec.WorkDir, &rec.Shell, &rec.Status, &rec.Error); err != nil {
			return nil, fmt.Errorf("journal: scan run: %w", err)
		}
		rec.StartedAt = parseTime(started)
		rec.FinishedAt = parseTime(finished)
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: recent runs rows: %w", err)
	}

	for i := range runs {
		steps, err := j.steps(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Steps = steps
	}
	return runs, nil
}

func (j *Journal) steps(ctx context.Context, runID string) ([]StepRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, name, outcome, duration_ms, detail
		FROM steps
		WHERE run_id = ?
		ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("journal: steps for %s: %w", runID, err)
	}
	defer func() { _ = rows.Close() }()

	var steps []StepRecord
	for rows.Next() {
		var (
			s  StepRecord
			ms int64
		)
		if err := rows.Scan(&s.Seq, &s.Name, &s.Outcome, &ms, &s.Detail); err != nil {
			return nil, fmt.Errorf("journal: scan step: %w", err)
		}
		s.Duration = time.Duration(ms) * time.Millisecond
		steps = append(steps, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: steps rows: %w", err)
	}
	return steps, nil
}

// parseTime returns the zero time for unset columns.
func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Prune deletes all but the newest keep runs and their steps, returning the
// number of runs removed. keep <= 0 disables pruning.
func (j *Journal) Prune(ctx context.Context, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("journal: prune: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const stale = `SELECT id FROM runs ORDER BY id DESC LIMIT -1 OFFSET ?`

	if _, err := tx.ExecContext(ctx, `DELETE FROM steps WHERE run_id IN (`+stale+`)`, keep); err != nil {
		return 0, fmt.Errorf("journal: prune steps: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id IN (`+stale+`)`, keep)
	if err != nil {
		return 0, fmt.Errorf("journal: prune runs: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("journal: prune commit: %w", err)
	}

	n, _ := res.RowsAffected()
	return int(n), nil
}
