// Package metrics holds the Prometheus instruments of the capture and
// comparison pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "normatrack"

// Metrics groups the instruments. A nil *Metrics records nothing.
type Metrics struct {
	captures        *prometheus.CounterVec
	captureDuration prometheus.Histogram
	degenerate      prometheus.Counter
	retries         prometheus.Counter
	comparisons     prometheus.Counter
	changedLines    *prometheus.CounterVec
}

// New registers the instruments with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		captures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "recorder",
			Name:      "captures_total",
			Help:      "Captures by outcome (first_capture, unchanged, changed, error)",
		}, []string{"outcome"}),
		captureDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "recorder",
			Name:      "capture_duration_seconds",
			Help:      "Time to normalize, compare and persist one capture",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		degenerate: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "normalize",
			Name:      "degenerate_total",
			Help:      "Captures whose normalized text was empty or near-empty",
		}),
		retries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "recorder",
			Name:      "concurrent_retries_total",
			Help:      "Capture cycles restarted after a concurrent append",
		}),
		comparisons: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "diff",
			Name:      "comparisons_total",
			Help:      "Snapshot comparisons computed",
		}),
		changedLines: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "diff",
			Name:      "lines_total",
			Help:      "Lines reported by comparisons by kind (added, removed)",
		}, []string{"kind"}),
	}
}

// ObserveCapture records one capture attempt.
func (m *Metrics) ObserveCapture(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.captures.WithLabelValues(outcome).Inc()
	m.captureDuration.Observe(elapsed.Seconds())
}

// IncDegenerate counts a degenerate normalization.
func (m *Metrics) IncDegenerate() {
	if m == nil {
		return
	}
	m.degenerate.Inc()
}

// IncRetry counts a restarted capture cycle.
func (m *Metrics) IncRetry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

// ObserveComparison records a computed comparison.
func (m *Metrics) ObserveComparison(added, removed int) {
	if m == nil {
		return
	}
	m.comparisons.Inc()
	m.changedLines.WithLabelValues("added").Add(float64(added))
	m.changedLines.WithLabelValues("removed").Add(float64(removed))
}
