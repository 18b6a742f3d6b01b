// Package metrics exposes Prometheus collectors for network mutations and
// command-log replays.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "socialnet"

// Mutation outcome labels
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Replay line outcome labels
const (
	LineApplied = "applied"
	LineSkipped = "skipped"
	LineFailed  = "failed"
)

// Metrics holds the collectors registered for one process
type Metrics struct {
	mutations      *prometheus.CounterVec
	users          prometheus.Gauge
	friendships    prometheus.Gauge
	replayDuration prometheus.Histogram
	replayLines    *prometheus.CounterVec
}

// New registers the collectors on reg. Tests pass prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Labels: op (add_user, remove_user, add_friend, remove_friend), result (ok, error)
		mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Network mutations by operation and result",
		}, []string{"op", "result"}),

		users: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "users",
			Help:      "Current number of users",
		}),

		friendships: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "friendships",
			Help:      "Current number of friendships",
		}),

		replayDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "duration_seconds",
			Help:      "Command-log replay duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		}),

		// Labels: outcome (applied, skipped, failed)
		replayLines: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "lines_total",
			Help:      "Command-log lines processed by outcome",
		}, []string{"outcome"}),
	}
}

// RecordMutation counts one mutation attempt
func (m *Metrics) RecordMutation(op string, err error) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.mutations.WithLabelValues(op, result).Inc()
}

// SetSize publishes the current user and friendship counts
func (m *Metrics) SetSize(users, friendships int) {
	if m == nil {
		return
	}
	m.users.Set(float64(users))
	m.friendships.Set(float64(friendships))
}

// RecordReplay observes a finished replay
func (m *Metrics) RecordReplay(elapsed time.Duration, applied, skipped int, failed bool) {
	if m == nil {
		return
	}
	m.replayDuration.Observe(elapsed.Seconds())
	m.replayLines.WithLabelValues(LineApplied).Add(float64(applied))
	m.replayLines.WithLabelValues(LineSkipped).Add(float64(skipped))
	if failed {
		m.replayLines.WithLabelValues(LineFailed).Inc()
	}
}
