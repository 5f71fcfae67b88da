// Package filewatch reports changes to a fixed set of files by polling.
// Watch mode uses it to re-check the environment as soon as the
// configuration, the install marker or the entry point changes.
package filewatch

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const defaultPollInterval = 5 * time.Second

// Config configures the watcher.
type Config struct {
	// Paths are the files to watch. They need not exist yet.
	Paths []string

	// PollInterval is how often to check for file changes.
	// Defaults to 5 seconds if zero.
	PollInterval time.Duration
}

func (c Config) pollIntervalOrDefault() time.Duration {
	if c.PollInterval > 0 {
		return c.PollInterval
	}
	return defaultPollInterval
}

// EventType describes the type of file change event.
type EventType string

const (
	EventCreated  EventType = "created"
	EventModified EventType = "modified"
	EventRemoved  EventType = "removed"
)

// Event represents a file change notification.
type Event struct {
	Type EventType
	Path string
}

// fileState is what a poll observes about one path.
type fileState struct {
	exists  bool
	modTime time.Time
	size    int64
}

// Watcher polls files for creation, modification and removal.
type Watcher struct {
	cfg     Config
	events  chan Event
	stop    chan struct{}
	stopped chan struct{}

	started   atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewWatcher creates a new file watcher.
func NewWatcher(cfg Config) *Watcher {
	return &Watcher{
		cfg:     cfg,
		events:  make(chan Event, len(cfg.Paths)+1),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start begins polling. Safe to call multiple times; only the first call
// starts the goroutine.
func (w *Watcher) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		w.started.Store(true)
		go w.poll(ctx)
	})
}

// Events returns the channel of file change events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Stop stops the watcher. Safe to call multiple times and before Start.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
	})
	if w.started.Load() {
		<-w.stopped
	}
}

func (w *Watcher) poll(ctx context.Context) {
	defer close(w.stopped)

	ticker := time.NewTicker(w.cfg.pollIntervalOrDefault())
	defer ticker.Stop()

	last := make([]fileState, len(w.cfg.Paths))
	for i, p := range w.cfg.Paths {
		last[i] = stat(p)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-ticker.C:
			for i, p := range w.cfg.Paths {
				current := stat(p)
				typ, changed := compare(last[i], current)
				last[i] = current
				if !changed {
					continue
				}
				select {
				case w.events <- Event{Type: typ, Path: p}:
				default:
					// Full channel: a check is already pending.
				}
			}
		}
	}
}

func compare(prev, cur fileState) (EventType, bool) {
	switch {
	case !prev.exists && cur.exists:
		return EventCreated, true
	case prev.exists && !cur.exists:
		return EventRemoved, true
	case cur.exists && (!cur.modTime.Equal(prev.modTime) || cur.size != prev.size):
		return EventModified, true
	}
	return "", false
}

func stat(path string) fileState {
	info, err := os.Stat(path)
	if err != nil {
		return fileState{}
	}
	return fileState{exists: true, modTime: info.ModTime(), size: info.Size()}
}
