// Package metrics holds the Prometheus collectors of the engine on a private registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Submission outcomes
const (
	OutcomeAccepted   = "accepted"
	OutcomeInvalid    = "invalid"
	OutcomeNavigation = "navigation"
	OutcomeFailed     = "failed"
)

// Statistics task states
const (
	StatsApplied  = "applied"
	StatsRetried  = "retried"
	StatsDropped  = "dropped"
	StatsRejected = "rejected"
)

// Metrics wraps the collectors with their own registry
type Metrics struct {
	registry *prometheus.Registry

	Submissions    *prometheus.CounterVec
	StatsTasks     *prometheus.CounterVec
	StatsQueueSize prometheus.Gauge
	LivePushes     prometheus.Counter
	Completions    prometheus.Counter
}

// New registers all collectors under namespace
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Answer submissions by outcome",
		}, []string{"action", "outcome"}),
		StatsTasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "statistics_tasks_total",
			Help:      "Statistic bucket updates by state",
		}, []string{"state"}),
		StatsQueueSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "statistics_queue_size",
			Help:      "Statistic bucket updates waiting for a worker",
		}),
		LivePushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_pushes_total",
			Help:      "Statistics deltas pushed to dashboards",
		}),
		Completions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completions_total",
			Help:      "Responses that reached the end of a survey",
		}),
	}
	reg.MustRegister(m.Submissions, m.StatsTasks, m.StatsQueueSize, m.LivePushes, m.Completions)
	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
