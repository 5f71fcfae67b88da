package reporting

import (
	"errors"
	"strings"
	"testing"

	"github.com/getsentry/sentry-go"
)

func TestReporter_DisabledWithoutDSN(t *testing.T) {
	t.Parallel()

	r, err := New(Config{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if r.Enabled() {
		t.Fatal("expected reporter to be disabled")
	}
	// Must not panic.
	r.CaptureError(errors.New("boom"), nil)
	r.Flush()

	var nilReporter *Reporter
	if nilReporter.Enabled() {
		t.Fatal("nil reporter should be disabled")
	}
}

func TestReporter_InvalidDSN(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{DSN: "not a dsn"}, nil); err == nil {
		t.Fatal("expected error for invalid DSN")
	}
}

func TestReporter_CaptureError(t *testing.T) {
	t.Parallel()

	redact := func(s string) string {
		return strings.ReplaceAll(s, "secret-token-value", "***REDACTED***")
	}
	r, err := New(Config{DSN: "https://public@sentry.example.com/1", Environment: "test"}, redact)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var captured []*sentry.Event
	r.observe = func(e *sentry.Event) bool {
		captured = append(captured, e)
		return false
	}

	r.CaptureError(errors.New("pip failed with secret-token-value"), map[string]string{"step": "install"})
	r.CaptureError(nil, nil)

	if len(captured) != 1 {
		t.Fatalf("expected 1 event, got %d", len(captured))
	}
	ev := captured[0]
	if ev.Tags["step"] != "install" {
		t.Errorf("tags = %v, want step=install", ev.Tags)
	}
	if ev.Environment != "test" {
		t.Errorf("environment = %q", ev.Environment)
	}
	for _, ex := range ev.Exception {
		if strings.Contains(ex.Value, "secret-token-value") {
			t.Errorf("secret leaked in exception: %q", ex.Value)
		}
	}
	if ev.ServerName != "" {
		t.Errorf("server name not scrubbed: %q", ev.ServerName)
	}
}
