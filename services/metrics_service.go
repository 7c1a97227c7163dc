package services

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keeper_request_total",
			Help: "Total HTTP requests received by the keeper",
		},
		[]string{"route"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "keeper_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	errorCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keeper_request_errors_total",
			Help: "Total HTTP requests that returned an error status",
		},
		[]string{"route"},
	)

	installAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keeper_install_attempts_total",
			Help: "Install procedure runs by resulting action",
		},
		[]string{"action"},
	)

	reconcilePasses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "keeper_reconcile_passes_total",
			Help: "Reconciliation passes performed by the background loop",
		},
	)

	dispatchedCommands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keeper_commands_total",
			Help: "Dispatcher commands by name",
		},
		[]string{"command"},
	)
)

// Plain counters mirrored for the healthz endpoint, which reports totals
// without scraping the prometheus registry.
var (
	totalRequests        int64
	totalErrors          int64
	totalInstallAttempts int64
)

func init() {
	prometheus.MustRegister(requestCount)
	prometheus.MustRegister(requestDuration)
	prometheus.MustRegister(errorCount)
	prometheus.MustRegister(installAttempts)
	prometheus.MustRegister(reconcilePasses)
	prometheus.MustRegister(dispatchedCommands)
}

func IncrementRequestCount(route string) {
	requestCount.WithLabelValues(route).Inc()
	atomic.AddInt64(&totalRequests, 1)
}

func RecordRequestDuration(route string, seconds float64) {
	requestDuration.WithLabelValues(route).Observe(seconds)
}

func IncrementErrorCount(route string) {
	errorCount.WithLabelValues(route).Inc()
	atomic.AddInt64(&totalErrors, 1)
}

func recordInstallAttempt(action string) {
	installAttempts.WithLabelValues(action).Inc()
	atomic.AddInt64(&totalInstallAttempts, 1)
}

func recordReconcilePass() {
	reconcilePasses.Inc()
}

func recordCommand(name string) {
	dispatchedCommands.WithLabelValues(name).Inc()
}

func GetTotalRequests() int64 {
	return atomic.LoadInt64(&totalRequests)
}

func GetTotalErrors() int64 {
	return atomic.LoadInt64(&totalErrors)
}

func GetTotalInstallAttempts() int64 {
	return atomic.LoadInt64(&totalInstallAttempts)
}
