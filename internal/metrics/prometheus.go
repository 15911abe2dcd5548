package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Worker metrics
	WorkerExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockwatch_worker_executions_total",
			Help: "Total number of worker executions",
		},
		[]string{"worker", "status"}, // status: success|error
	)

	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stockwatch_worker_duration_seconds",
			Help:    "Worker execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"worker"},
	)

	WorkerLastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stockwatch_worker_last_run_timestamp",
			Help: "Unix timestamp of last worker execution",
		},
		[]string{"worker"},
	)

	// Pipeline metrics
	PipelineRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockwatch_pipeline_runs_total",
			Help: "Total analysis pipeline runs by final status",
		},
		[]string{"status"}, // completed|completed_with_partial_failure|failed|cached
	)

	PipelineDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stockwatch_pipeline_duration_seconds",
			Help:    "End-to-end analysis pipeline duration",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	BranchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockwatch_pipeline_branch_failures_total",
			Help: "Analysis branches replaced by an error stub",
		},
		[]string{"branch"},
	)

	// Alert metrics
	AlertSweeps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockwatch_alert_sweeps_total",
			Help: "Alert sweeps by kind and outcome",
		},
		[]string{"kind", "status"}, // kind: threshold|smart, status: success|error|skipped
	)

	AlertsTriggered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockwatch_alerts_triggered_total",
			Help: "Alerts transitioned to TRIGGERED",
		},
		[]string{"kind", "alert_type"},
	)

	AlertsRearmed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stockwatch_alerts_rearmed_total",
			Help: "Acknowledged alerts re-armed to PENDING",
		},
	)

	NotificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockwatch_notifications_total",
			Help: "Triggered alert notifications by outcome",
		},
		[]string{"channel", "status"},
	)

	// Provider metrics
	ProviderCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockwatch_provider_calls_total",
			Help: "Outbound provider calls",
		},
		[]string{"provider", "endpoint", "status"}, // status: success|error
	)

	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stockwatch_provider_latency_seconds",
			Help:    "Outbound provider call latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"provider", "endpoint"},
	)

	// Database metrics
	DBQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockwatch_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"database", "operation", "status"}, // database: postgres|clickhouse|influx
	)

	DBQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stockwatch_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"database", "operation"},
	)

	KafkaMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockwatch_kafka_messages_total",
			Help: "Total Kafka messages produced",
		},
		[]string{"topic", "status"},
	)
)

var registerOnce sync.Once

// Init registers all metrics with the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			WorkerExecutions, WorkerDuration, WorkerLastRun,
			PipelineRuns, PipelineDuration, BranchFailures,
			AlertSweeps, AlertsTriggered, AlertsRearmed, NotificationsSent,
			ProviderCalls, ProviderLatency,
			DBQueries, DBQueryDuration,
			KafkaMessages,
		)
	})
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordWorkerExecution records a worker execution
func RecordWorkerExecution(worker string, duration time.Duration, err error) {
	WorkerExecutions.WithLabelValues(worker, status(err)).Inc()
	WorkerDuration.WithLabelValues(worker).Observe(duration.Seconds())
	WorkerLastRun.WithLabelValues(worker).SetToCurrentTime()
}

// RecordPipelineRun records one pipeline outcome and its duration
func RecordPipelineRun(outcome string, duration time.Duration) {
	PipelineRuns.WithLabelValues(outcome).Inc()
	PipelineDuration.Observe(duration.Seconds())
}

func RecordBranchFailure(branch string) {
	BranchFailures.WithLabelValues(branch).Inc()
}

// RecordSweep records a finished (or refused) alert sweep
func RecordSweep(kind, outcome string) {
	AlertSweeps.WithLabelValues(kind, outcome).Inc()
}

func RecordAlertTriggered(kind, alertType string) {
	AlertsTriggered.WithLabelValues(kind, alertType).Inc()
}

func RecordNotification(channel string, err error) {
	NotificationsSent.WithLabelValues(channel, status(err)).Inc()
}

// RecordProviderCall records an outbound market data, news or AI call
func RecordProviderCall(provider, endpoint string, latency time.Duration, err error) {
	ProviderCalls.WithLabelValues(provider, endpoint, status(err)).Inc()
	ProviderLatency.WithLabelValues(provider, endpoint).Observe(latency.Seconds())
}

// RecordDBQuery records a database query
func RecordDBQuery(database, operation string, duration time.Duration, err error) {
	DBQueries.WithLabelValues(database, operation, status(err)).Inc()
	DBQueryDuration.WithLabelValues(database, operation).Observe(duration.Seconds())
}

func RecordKafkaMessage(topic string, err error) {
	KafkaMessages.WithLabelValues(topic, status(err)).Inc()
}
