package services

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"paritybit-setup/internal/models"
)

var (
	requestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paritybit_setup_http_requests_total",
			Help: "Total status server requests",
		},
		[]string{"path"},
	)

	requestErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paritybit_setup_http_request_errors_total",
			Help: "Status server requests answered with a status >= 400",
		},
		[]string{"path"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "paritybit_setup_http_request_duration_seconds",
			Help:    "Duration of status server requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	stepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "paritybit_setup_step_duration_seconds",
			Help:    "Duration of provisioning steps",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"step"},
	)

	stepTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paritybit_setup_steps_total",
			Help: "Provisioning steps by result",
		},
		[]string{"step", "status"},
	)

	serviceActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "paritybit_setup_service_active",
			Help: "1 when the unit was active at the end of the last run",
		},
		[]string{"unit"},
	)

	lastRunTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "paritybit_setup_last_run_timestamp_seconds",
		Help: "Finish time of the last provisioning run",
	})

	lastRunSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "paritybit_setup_last_run_success",
		Help: "1 when the last provisioning run had no fatal step",
	})

	lastRunWarnings = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "paritybit_setup_last_run_warnings",
		Help: "Warnings collected by the last provisioning run",
	})

	totalRequests int64
	totalErrors   int64
)

func init() {
	prometheus.MustRegister(requestCount)
	prometheus.MustRegister(requestErrors)
	prometheus.MustRegister(requestDuration)
	prometheus.MustRegister(stepDuration)
	prometheus.MustRegister(stepTotal)
	prometheus.MustRegister(serviceActive)
	prometheus.MustRegister(lastRunTimestamp)
	prometheus.MustRegister(lastRunSuccess)
	prometheus.MustRegister(lastRunWarnings)
}

func IncrementRequestCount(path string) {
	requestCount.WithLabelValues(path).Inc()
	atomic.AddInt64(&totalRequests, 1)
}

func IncrementErrorCount(path string) {
	requestErrors.WithLabelValues(path).Inc()
	atomic.AddInt64(&totalErrors, 1)
}

func RecordRequestDuration(path string, seconds float64) {
	requestDuration.WithLabelValues(path).Observe(seconds)
}

// GetTotalRequestCount is the request total since start, kept locally for /healthz.
func GetTotalRequestCount() int64 {
	return atomic.LoadInt64(&totalRequests)
}

func GetTotalErrorCount() int64 {
	return atomic.LoadInt64(&totalErrors)
}

func ObserveStep(step string, status models.StepStatus, d time.Duration) {
	stepDuration.WithLabelValues(step).Observe(d.Seconds())
	stepTotal.WithLabelValues(step, string(status)).Inc()
}

// RecordOutcome publishes the last-run gauges and per-unit activity.
func RecordOutcome(o *models.RunOutcome) {
	lastRunTimestamp.Set(float64(o.FinishedAt.Unix()))
	if o.Succeeded() {
		lastRunSuccess.Set(1)
	} else {
		lastRunSuccess.Set(0)
	}
	lastRunWarnings.Set(float64(len(o.Warnings)))
	RecordServiceStates(o.Services)
}

func RecordServiceStates(states []models.ServiceState) {
	for _, s := range states {
		v := 0.0
		if s.Active {
			v = 1
		}
		serviceActive.WithLabelValues(s.Name).Set(v)
	}
}

/**
 * Write all registered metrics for the node_exporter textfile collector
 * @param {string} path - destination .prom file, empty does nothing
 * @returns {error} Write error
 */
func WriteMetricsTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
