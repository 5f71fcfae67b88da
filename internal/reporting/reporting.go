// Package reporting sends failed runs to Sentry when a DSN is configured.
package reporting

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

const flushTimeout = 2 * time.Second

// Config controls the Sentry client.
type Config struct {
	DSN         string
	Environment string
	Release     string
}

// Reporter captures errors on a private hub. A zero Reporter, or one built
// from an empty DSN, drops everything.
type Reporter struct {
	hub    *sentry.Hub
	redact func(string) string

	// observe sees each event after scrubbing; returning false drops it.
	observe func(*sentry.Event) bool
}

// New creates a Reporter. redact is applied to every message and exception
// value before the event leaves the process; nil leaves them as-is.
func New(cfg Config, redact func(string) string) (*Reporter, error) {
	r := &Reporter{redact: redact}
	if cfg.DSN == "" {
		return r, nil
	}

	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
		BeforeSend:  r.beforeSend,
	})
	if err != nil {
		return nil, fmt.Errorf("reporting: init sentry: %w", err)
	}
	r.hub = sentry.NewHub(client, sentry.NewScope())
	return r, nil
}

// Enabled reports whether events are sent anywhere.
func (r *Reporter) Enabled() bool {
	return r != nil && r.hub != nil
}

// CaptureError reports err with the given tags.
func (r *Reporter) CaptureError(err error, tags map[string]string) {
	if err == nil || !r.Enabled() {
		return
	}
	r.hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		r.hub.CaptureException(err)
	})
}

// Flush waits briefly for queued events.
func (r *Reporter) Flush() {
	if r.Enabled() {
		r.hub.Flush(flushTimeout)
	}
}

func (r *Reporter) beforeSend(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""
	if r.redact != nil {
		event.Message = r.redact(event.Message)
		for i := range event.Exception {
			event.Exception[i].Value = r.redact(event.Exception[i].Value)
		}
	}
	if r.observe != nil && !r.observe(event) {
		return nil
	}
	return event
}
