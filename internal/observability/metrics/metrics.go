// Package metrics registers and updates the service's Prometheus
// metrics. All helpers are nil-safe so instrumented code paths work in
// tests that never call Init.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "rateintel_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	alertSaves         *prometheus.CounterVec
	alertMutations     *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	compiledRows       *prometheus.CounterVec
	droppedRows        prometheus.Counter
	noticesRaised      prometheus.Counter
	historyPruned      prometheus.Counter

	bootstrapLatency *prometheus.HistogramVec
	requestLatency   *prometheus.HistogramVec
)

// Init registers the alerting metrics with the default registry.
func Init() {
	registerOnce.Do(func() {
		alertSaves = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alert_saves_total",
				Help: "Total alert rule save attempts by type and result",
			},
			[]string{"alert_type", "result"},
		)
		alertMutations = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alert_mutations_total",
				Help: "Total alert rule state mutations by action",
			},
			[]string{"action"},
		)
		validationFailures = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "validation_failures_total",
				Help: "Total rejected alert drafts by type",
			},
			[]string{"alert_type"},
		)
		compiledRows = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "compiled_rows_total",
				Help: "Total alert rows compiled for display by type",
			},
			[]string{"alert_type"},
		)
		droppedRows = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "dropped_rows_total",
				Help: "Total persisted records skipped during compilation for an unknown alert type",
			},
		)
		noticesRaised = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "notices_raised_total",
				Help: "Total transient notices raised",
			},
		)
		historyPruned = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "history_entries_pruned_total",
				Help: "Total change-history entries removed by retention cleanup",
			},
		)

		bootstrapLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "bootstrap_latency_seconds",
				Help:    "Form bootstrap latency in seconds by result",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		requestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_latency_seconds",
				Help:    "HTTP request latency in seconds by route and status class",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "status"},
		)

		prometheus.MustRegister(
			alertSaves,
			alertMutations,
			validationFailures,
			compiledRows,
			droppedRows,
			noticesRaised,
			historyPruned,
			bootstrapLatency,
			requestLatency,
		)
	})
}

// IncAlertSave counts one alert rule save attempt.
func IncAlertSave(alertType string, err error) {
	if alertSaves == nil {
		return
	}
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	alertSaves.WithLabelValues(alertType, result).Inc()
}

// IncAlertMutation counts a toggle or delete.
func IncAlertMutation(action string) {
	if action == "" {
		action = "unknown"
	}
	if alertMutations != nil {
		alertMutations.WithLabelValues(action).Inc()
	}
}

// IncValidationFailure counts one rejected draft.
func IncValidationFailure(alertType string) {
	if validationFailures != nil {
		validationFailures.WithLabelValues(alertType).Inc()
	}
}

// AddCompiledRows counts rows rendered for one list call.
func AddCompiledRows(alertType string, count int) {
	if count <= 0 {
		return
	}
	if compiledRows != nil {
		compiledRows.WithLabelValues(alertType).Add(float64(count))
	}
}

// IncDroppedRow counts a record skipped for an unknown alert type.
func IncDroppedRow() {
	if droppedRows != nil {
		droppedRows.Inc()
	}
}

// IncNoticeRaised counts one transient notice.
func IncNoticeRaised() {
	if noticesRaised != nil {
		noticesRaised.Inc()
	}
}

// AddHistoryPruned counts history entries removed by retention cleanup.
func AddHistoryPruned(count int64) {
	if count <= 0 {
		return
	}
	if historyPruned != nil {
		historyPruned.Add(float64(count))
	}
}

// ObserveBootstrap records one form bootstrap round trip.
func ObserveBootstrap(err error, duration time.Duration) {
	if bootstrapLatency == nil {
		return
	}
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	bootstrapLatency.WithLabelValues(result).Observe(duration.Seconds())
}

// ObserveRequest records one HTTP request.
func ObserveRequest(route, status string, duration time.Duration) {
	if route == "" {
		route = "unknown"
	}
	if requestLatency != nil {
		requestLatency.WithLabelValues(route, status).Observe(duration.Seconds())
	}
}
