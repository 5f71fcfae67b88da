// Package metrics exposes Prometheus collectors for bootstrap runs and
// verify checks. One-shot runs write them to a node_exporter textfile;
// watch mode serves them over HTTP.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flemzord/botstrap/internal/bootstrap"
)

const namespace = "botstrap"

// Metrics holds the collectors and the registry they are registered with.
type Metrics struct {
	Registry *prometheus.Registry

	steps        *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	runs         *prometheus.CounterVec
	lastSuccess  prometheus.Gauge
	checks       *prometheus.CounterVec
	missing      prometheus.Gauge
}

var _ bootstrap.Observer = (*Metrics)(nil)

// New creates the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),

		steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "step_total",
				Help:      "Pipeline steps by name and outcome (done/skipped/failed).",
			},
			[]string{"step", "outcome"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "step_duration_seconds",
				Help:      "Pipeline step duration in seconds.",
				Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
			},
			[]string{"step"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Bootstrap runs by final status.",
			},
			[]string{"status"},
		),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run or check.",
		}),
		checks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "verify_checks_total",
				Help:      "Verify checks by result (ok/drift/error).",
			},
			[]string{"result"},
		),
		missing: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "missing_packages",
			Help:      "Declared packages absent from the environment at the last check.",
		}),
	}

	m.Registry.MustRegister(
		m.steps, m.stepDuration, m.runs,
		m.lastSuccess, m.checks, m.missing,
	)
	return m
}

// StepFinished implements bootstrap.Observer.
func (m *Metrics) StepFinished(_ context.Context, res bootstrap.StepResult) {
	m.steps.WithLabelValues(string(res.Step), string(res.Outcome)).Inc()
	m.stepDuration.WithLabelValues(string(res.Step)).Observe(res.Duration.Seconds())
}

// RunFinished counts a run and, on success, stamps the last-success gauge.
func (m *Metrics) RunFinished(err error, at time.Time) {
	if err != nil {
		m.runs.WithLabelValues("failed").Inc()
		return
	}
	m.runs.WithLabelValues("succeeded").Inc()
	m.lastSuccess.Set(float64(at.Unix()))
}

// Check results.
const (
	CheckOK    = "ok"
	CheckDrift = "drift"
	CheckError = "error"
)

// CheckFinished records one verify check.
func (m *Metrics) CheckFinished(result string, missing int, at time.Time) {
	m.checks.WithLabelValues(result).Inc()
	if result == CheckError {
		return
	}
	m.missing.Set(float64(missing))
	if result == CheckOK {
		m.lastSuccess.Set(float64(at.Unix()))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// WriteTextfile atomically writes the registry to path for the
// node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("metrics: write textfile %s: %w", path, err)
	}
	return nil
}
