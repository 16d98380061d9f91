// Package metrics exposes Prometheus collectors for build runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gmahomarf/msbuild-runner/internal/runner"
)

// Metrics holds the build collectors. It implements runner.Observer.
type Metrics struct {
	BuildsTotal   *prometheus.CounterVec
	BuildDuration *prometheus.HistogramVec
	LastExitCode  prometheus.Gauge

	registry *prometheus.Registry
}

var _ runner.Observer = (*Metrics)(nil)

// New creates the collectors and registers them on registry.
// A nil registry gets a fresh one.
func New(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := &Metrics{
		BuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "msbuild_runner_builds_total",
				Help: "Total number of build runs by outcome",
			},
			[]string{"outcome"},
		),
		BuildDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "msbuild_runner_build_duration_seconds",
				Help:    "Build run duration in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
			},
			[]string{"outcome"},
		),
		LastExitCode: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "msbuild_runner_last_exit_code",
				Help: "Exit code of the most recent build that reported one",
			},
		),
		registry: registry,
	}

	registry.MustRegister(m.BuildsTotal, m.BuildDuration, m.LastExitCode)
	return m
}

// Observe records one outcome.
func (m *Metrics) Observe(out *runner.Outcome) {
	outcome := string(out.Kind)
	m.BuildsTotal.WithLabelValues(outcome).Inc()
	m.BuildDuration.WithLabelValues(outcome).Observe(out.Duration.Seconds())
	if out.Kind != runner.FailedToSpawn {
		m.LastExitCode.Set(float64(out.Code))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
