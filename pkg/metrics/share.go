package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ShareMetrics instruments share provisioning runs. Pass nil to disable
// collection entirely.
type ShareMetrics struct {
	runsTotal    *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	itemOutcomes *prometheus.CounterVec
	lockFailures prometheus.Counter
	unhealthy    *prometheus.GaugeVec
}

// NewShareMetrics creates share run metrics bound to the active registry.
// Returns nil when metrics are disabled.
func NewShareMetrics() *ShareMetrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()

	return &ShareMetrics{
		runsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "lakegate_share_runs_total",
				Help: "Total share provisioning runs by handler and result",
			},
			[]string{"handler", "result"}, // result: "success", "failure"
		),
		runDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lakegate_share_run_duration_seconds",
				Help:    "Duration of share provisioning runs by handler",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
			},
			[]string{"handler"},
		),
		itemOutcomes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "lakegate_share_item_outcomes_total",
				Help: "Per-item grant and revoke outcomes by item type and result",
			},
			[]string{"item_type", "operation", "result"},
		),
		lockFailures: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "lakegate_share_lock_failures_total",
				Help: "Share runs skipped because the advisory lock was held",
			},
		),
		unhealthy: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "lakegate_share_unhealthy_items",
				Help: "Items whose last verification found drift, by item type",
			},
			[]string{"item_type"},
		),
	}
}

// RecordRun records a completed share run.
func (m *ShareMetrics) RecordRun(handler string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	m.runsTotal.WithLabelValues(handler, result).Inc()
	m.runDuration.WithLabelValues(handler).Observe(duration.Seconds())
}

// RecordItemOutcome records one item's grant/revoke result.
func (m *ShareMetrics) RecordItemOutcome(itemType, operation string, success bool) {
	if m == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	m.itemOutcomes.WithLabelValues(itemType, operation, result).Inc()
}

// RecordLockFailure records a run skipped due to lock contention.
func (m *ShareMetrics) RecordLockFailure() {
	if m == nil {
		return
	}
	m.lockFailures.Inc()
}

// SetUnhealthyItems records the unhealthy item count found by a
// verification sweep.
func (m *ShareMetrics) SetUnhealthyItems(itemType string, count int) {
	if m == nil {
		return
	}
	m.unhealthy.WithLabelValues(itemType).Set(float64(count))
}
