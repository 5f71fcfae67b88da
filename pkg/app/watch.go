package app

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"sync"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/botstrap/internal/bootstrap"
	"github.com/flemzord/botstrap/internal/cron"
	"github.com/flemzord/botstrap/internal/filewatch"
	"github.com/flemzord/botstrap/internal/gateway"
	"github.com/flemzord/botstrap/internal/metrics"
)

const driftJobName = "drift_check"

// Watcher is a running watch mode: a cron-driven drift check behind the
// health and metrics server, re-run early when a watched file changes.
type Watcher struct {
	app       *App
	state     *gateway.DriftState
	metrics   *metrics.Metrics
	scheduler *cron.Scheduler
	gateway   *gateway.Gateway
	verifier  *liveVerifier
	tracer    trace.Tracer

	filesMu      sync.Mutex
	files        *filewatch.Watcher
	paths        []string
	pollInterval time.Duration
	filesCtx     context.Context
	swapped      chan struct{}

	schedule string
	listen   string

	cancel   context.CancelFunc
	loopDone chan struct{}
	shutdown func()
	closeJ   func()
}

// WatchOptions tunes watch mode.
type WatchOptions struct {
	// PollInterval is how often watched files are checked. Zero uses the
	// filewatch default.
	PollInterval time.Duration
}

// StartWatch schedules the drift check and the journal prune job, starts
// the HTTP server, runs one check immediately, and begins watching the
// configuration file, install marker and entry point. Call Stop to release
// everything.
func (a *App) StartWatch(ctx context.Context, opts WatchOptions) (*Watcher, error) {
	a.loadDotEnvSecrets()

	provider, shutdown := a.telemetry(ctx)
	w := &Watcher{
		app:       a,
		state:     &gateway.DriftState{},
		metrics:   metrics.New(),
		scheduler: cron.NewScheduler(a.Logger),
		verifier:  &liveVerifier{},
		tracer:    provider.Tracer(),

		pollInterval: opts.PollInterval,
		swapped:      make(chan struct{}, 1),
		schedule:  a.Config.Watch.Schedule,
		listen:    a.Config.Watch.Listen,
		loopDone:  make(chan struct{}),
		shutdown:  shutdown,
		closeJ:    func() {},
	}

	b, err := a.Bootstrapper(w.tracer)
	if err != nil {
		shutdown()
		return nil, err
	}
	w.verifier.current.Store(b)

	if err := w.scheduler.RegisterJob(&cron.DriftCheckJob{
		Verifier:     w.verifier,
		Logger:       a.Logger,
		Publish:      w.publish,
		ScheduleExpr: a.Config.Watch.Schedule,
	}); err != nil {
		shutdown()
		return nil, err
	}

	gwOpts := gateway.Options{
		State:   w.state,
		Metrics: w.metrics.Handler(),
		Logger:  a.Logger,
	}

	j, err := a.openJournal(ctx)
	switch {
	case err != nil:
		a.Logger.Warn("journal unavailable, pruning disabled", "error", err)
	case j != nil:
		w.closeJ = func() { _ = j.Close() }
		gwOpts.Runs = j
		if a.Config.Journal.Keep > 0 {
			if err := w.scheduler.RegisterJob(&cron.JournalPruneJob{
				Journal: j,
				Keep:    a.Config.Journal.Keep,
				Logger:  a.Logger,
			}); err != nil {
				w.release()
				return nil, err
			}
		}
	}

	gw, err := gateway.New(gateway.Config{
		Listen: a.Config.Watch.Listen,
		Token:  a.Config.Watch.Token,
	}, gwOpts)
	if err != nil {
		w.release()
		return nil, err
	}
	w.gateway = gw

	if err := gw.Start(ctx); err != nil {
		w.release()
		return nil, fmt.Errorf("app: start watch server: %w", err)
	}
	if err := w.scheduler.Start(ctx); err != nil {
		_ = gw.Stop(context.WithoutCancel(ctx))
		w.release()
		return nil, err
	}

	a.Logger.Info("watch mode started",
		"listen", gw.Addr().String(),
		"schedule", a.Config.Watch.Schedule,
	)
	w.scheduler.RunNow(ctx, driftJobName)

	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.filesCtx = loopCtx
	w.watchFiles(w.watchedPaths(b))
	go w.loop(loopCtx)

	return w, nil
}

// watchedPaths are the files whose change makes the last check stale.
func (w *Watcher) watchedPaths(b *bootstrap.Bootstrapper) []string {
	paths := []string{
		filepath.Join(b.EnvPath(), bootstrap.MarkerFile),
		b.EntryPath(),
	}
	if w.app.ConfigPath != "" {
		paths = append(paths, w.app.ConfigPath)
	}
	return paths
}

// watchFiles starts polling paths, replacing the current file watcher when
// the set differs.
func (w *Watcher) watchFiles(paths []string) {
	w.filesMu.Lock()
	defer w.filesMu.Unlock()

	if w.files != nil && slices.Equal(paths, w.paths) {
		return
	}
	old := w.files
	w.files = filewatch.NewWatcher(filewatch.Config{
		Paths:        paths,
		PollInterval: w.pollInterval,
	})
	w.paths = paths
	w.files.Start(w.filesCtx)
	if old != nil {
		old.Stop()
		w.app.Logger.Info("watched files updated", "paths", paths)
	}
	select {
	case w.swapped <- struct{}{}:
	default:
	}
}

func (w *Watcher) currentFiles() (*filewatch.Watcher, []string) {
	w.filesMu.Lock()
	defer w.filesMu.Unlock()
	return w.files, w.paths
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.loopDone)
	for {
		files, _ := w.currentFiles()
		select {
		case <-ctx.Done():
			return
		case <-w.swapped:
		case evt := <-files.Events():
			w.app.Logger.Info("watched file changed", "path", evt.Path, "change", string(evt.Type))
			if evt.Path == w.app.ConfigPath {
				if err := w.Reload(ctx); err != nil {
					w.app.Logger.Error("reload failed", "error", err)
				}
				continue
			}
			w.scheduler.RunNow(ctx, driftJobName)
		}
	}
}

// Addr is the address the HTTP server listens on.
func (w *Watcher) Addr() net.Addr {
	return w.gateway.Addr()
}

// State is the latest drift-check result holder.
func (w *Watcher) State() *gateway.DriftState {
	return w.state
}

// Stop shuts down the file watcher, the server and the scheduler, then
// releases the journal and flushes traces.
func (w *Watcher) Stop(ctx context.Context) error {
	w.cancel()
	<-w.loopDone
	files, _ := w.currentFiles()
	files.Stop()

	gwErr := w.gateway.Stop(ctx)
	schedErr := w.scheduler.Stop(ctx)
	w.release()
	w.app.Logger.Info("watch mode stopped")
	if gwErr != nil {
		return gwErr
	}
	return schedErr
}

func (w *Watcher) release() {
	w.closeJ()
	w.shutdown()
}

func (w *Watcher) publish(v *bootstrap.Verification, err error) {
	w.state.Publish(v, err)
	switch {
	case err != nil:
		w.metrics.CheckFinished(metrics.CheckError, 0, w.app.now())
	case v.OK():
		w.metrics.CheckFinished(metrics.CheckOK, 0, v.CheckedAt)
	default:
		w.metrics.CheckFinished(metrics.CheckDrift, len(v.Missing), v.CheckedAt)
	}
}

// Watch runs watch mode until ctx is canceled. SIGHUP reloads the
// configuration file.
func (a *App) Watch(ctx context.Context) error {
	w, err := a.StartWatch(ctx, WatchOptions{})
	if err != nil {
		return err
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-hup:
			a.Logger.Info("SIGHUP received, reloading configuration")
			if err := w.Reload(ctx); err != nil {
				a.Logger.Error("reload failed", "error", err)
			}
		case <-ctx.Done():
			a.Logger.Info("shutdown signal received")
			return w.Stop(context.WithoutCancel(ctx))
		}
	}
}
