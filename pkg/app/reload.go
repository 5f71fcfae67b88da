package app

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/flemzord/botstrap/internal/bootstrap"
	"github.com/flemzord/botstrap/internal/cron"
)

// liveVerifier lets the drift job pick up a reloaded configuration without
// re-registering it.
type liveVerifier struct {
	current atomic.Pointer[bootstrap.Bootstrapper]
}

var _ cron.Verifier = (*liveVerifier)(nil)

func (v *liveVerifier) Verify(ctx context.Context) (*bootstrap.Verification, error) {
	return v.current.Load().Verify(ctx)
}

// Reload re-reads the configuration file, validates it, and swaps the
// drift check and the file watcher over to the new package set and paths.
// The schedule and listen address only change on restart. An invalid file
// leaves the running configuration in place.
func (w *Watcher) Reload(ctx context.Context) error {
	a := w.app
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("app: reload cancelled: %w", err)
	}
	if a.ConfigPath == "" {
		return nil
	}

	cfg, err := loadConfig(a.ConfigPath, a.opts)
	if err != nil {
		return fmt.Errorf("app: reload: %w", err)
	}
	b, err := a.bootstrapperFor(cfg, w.tracer)
	if err != nil {
		return fmt.Errorf("app: reload: %w", err)
	}

	if cfg.Watch.Schedule != w.schedule || cfg.Watch.Listen != w.listen {
		a.Logger.Warn("watch schedule and listen address apply on restart",
			"schedule", cfg.Watch.Schedule,
			"listen", cfg.Watch.Listen,
		)
	}
	w.verifier.current.Store(b)
	w.watchFiles(w.watchedPaths(b))
	a.Logger.Info("configuration reloaded", "path", a.ConfigPath, "packages", len(cfg.Packages))

	w.scheduler.RunNow(ctx, driftJobName)
	return nil
}
