package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type opsMetrics struct {
	submissions      *prometheus.CounterVec
	confirmations    *prometheus.GaugeVec
	pending          *prometheus.GaugeVec
	distributionRows *prometheus.CounterVec
	checks           *prometheus.CounterVec
	watchCycles      prometheus.Counter
}

var (
	metricsOnce sync.Once
	registry    *opsMetrics
)

func get() *opsMetrics {
	metricsOnce.Do(func() {
		registry = &opsMetrics{
			submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "sovops",
				Subsystem: "multisig",
				Name:      "submissions_total",
				Help:      "Multisig transactions submitted by this process.",
			}, []string{"network", "method"}),
			confirmations: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "sovops",
				Subsystem: "multisig",
				Name:      "confirmations",
				Help:      "Confirmation count of a pending multisig transaction at the last watch cycle.",
			}, []string{"wallet", "tx_id"}),
			pending: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "sovops",
				Subsystem: "multisig",
				Name:      "pending_transactions",
				Help:      "Number of non-executed multisig transactions.",
			}, []string{"wallet"}),
			distributionRows: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "sovops",
				Subsystem: "distribution",
				Name:      "rows_total",
				Help:      "Distribution rows processed, by kind and outcome.",
			}, []string{"kind", "status"}),
			checks: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "sovops",
				Subsystem: "verify",
				Name:      "checks_total",
				Help:      "Verification checks evaluated, by name and result.",
			}, []string{"name", "result"}),
			watchCycles: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "sovops",
				Subsystem: "watch",
				Name:      "cycles_total",
				Help:      "Completed watch cycles.",
			}),
		}
		prometheus.MustRegister(
			registry.submissions,
			registry.confirmations,
			registry.pending,
			registry.distributionRows,
			registry.checks,
			registry.watchCycles,
		)
	})
	return registry
}

func ObserveSubmission(network, method string) {
	if method == "" {
		method = "unknown"
	}
	get().submissions.WithLabelValues(network, method).Inc()
}

func SetConfirmations(wallet, txID string, confirmations int) {
	get().confirmations.WithLabelValues(wallet, txID).Set(float64(confirmations))
}

// ClearConfirmations drops the gauge of a transaction that is no longer pending.
func ClearConfirmations(wallet, txID string) {
	get().confirmations.DeleteLabelValues(wallet, txID)
}

func SetPending(wallet string, count int) {
	get().pending.WithLabelValues(wallet).Set(float64(count))
}

func ObserveDistributionRow(kind, status string) {
	get().distributionRows.WithLabelValues(kind, status).Inc()
}

// ObserveCheck counts a check as "passed", "failed" or "skipped".
func ObserveCheck(name string, passed, skipped bool) {
	result := "passed"
	switch {
	case skipped:
		result = "skipped"
	case !passed:
		result = "failed"
	}
	get().checks.WithLabelValues(name, result).Inc()
}

func IncWatchCycle() {
	get().watchCycles.Inc()
}

// Register creates and registers the collectors so /metrics lists them before first use.
func Register() {
	get()
}
