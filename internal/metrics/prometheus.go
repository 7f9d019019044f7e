package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Worker metrics
	WorkerExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "augur_worker_executions_total",
			Help: "Total number of worker executions",
		},
		[]string{"worker", "status"}, // status: success|error
	)

	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "augur_worker_duration_seconds",
			Help:    "Worker execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"worker"},
	)

	WorkerLastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "augur_worker_last_run_timestamp",
			Help: "Unix timestamp of last worker execution",
		},
		[]string{"worker"},
	)

	// Engine metrics
	Evaluations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "augur_evaluations_total",
			Help: "Total number of sentiment evaluations",
		},
		[]string{"symbol", "status"}, // status: success|error
	)

	EvaluationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "augur_evaluation_duration_seconds",
			Help:    "Full multi-timeframe evaluation duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"symbol"},
	)

	SentimentGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "augur_sentiment_direction",
			Help: "Latest dominant sentiment direction per symbol (-1, 0, +1)",
		},
		[]string{"symbol"},
	)

	SentimentConfidence = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "augur_sentiment_confidence",
			Help: "Latest aggregated confidence per symbol",
		},
		[]string{"symbol"},
	)

	ActiveElements = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "augur_smc_elements_active",
			Help: "Active SMC elements per symbol and timeframe",
		},
		[]string{"symbol", "timeframe", "kind"},
	)

	// Prediction metrics
	PredictionsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "augur_predictions_recorded_total",
			Help: "Total predictions recorded",
		},
		[]string{"symbol", "timeframe", "sentiment"},
	)

	PredictionsVerified = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "augur_predictions_verified_total",
			Help: "Total predictions verified",
		},
		[]string{"symbol", "timeframe", "result"}, // result: correct|incorrect
	)

	PredictionAccuracy = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "augur_prediction_accuracy",
			Help: "Trailing-window prediction accuracy per symbol",
		},
		[]string{"symbol"},
	)

	// Learning metrics
	Retrainings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "augur_retrainings_total",
			Help: "Total model retraining runs",
		},
		[]string{"symbol", "trigger", "status"}, // status: success|error|cancelled
	)

	RetrainingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "augur_retraining_duration_seconds",
			Help:    "Model retraining duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"symbol"},
	)

	// Database metrics
	DBQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "augur_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"database", "operation", "status"}, // database: postgres|clickhouse|redis
	)

	DBQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "augur_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"database", "operation"},
	)

	// System metrics
	KafkaMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "augur_kafka_messages_total",
			Help: "Total Kafka messages produced",
		},
		[]string{"topic", "status"},
	)
)

// Init registers all metrics with Prometheus
func Init() {
	// Worker metrics
	prometheus.MustRegister(WorkerExecutions)
	prometheus.MustRegister(WorkerDuration)
	prometheus.MustRegister(WorkerLastRun)

	// Engine metrics
	prometheus.MustRegister(Evaluations)
	prometheus.MustRegister(EvaluationDuration)
	prometheus.MustRegister(SentimentGauge)
	prometheus.MustRegister(SentimentConfidence)
	prometheus.MustRegister(ActiveElements)

	// Prediction metrics
	prometheus.MustRegister(PredictionsRecorded)
	prometheus.MustRegister(PredictionsVerified)
	prometheus.MustRegister(PredictionAccuracy)

	// Learning metrics
	prometheus.MustRegister(Retrainings)
	prometheus.MustRegister(RetrainingDuration)

	// Database metrics
	prometheus.MustRegister(DBQueries)
	prometheus.MustRegister(DBQueryDuration)

	// System metrics
	prometheus.MustRegister(KafkaMessages)
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordWorkerExecution records a worker execution
func RecordWorkerExecution(worker string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	WorkerExecutions.WithLabelValues(worker, status).Inc()
	WorkerDuration.WithLabelValues(worker).Observe(duration.Seconds())
	WorkerLastRun.WithLabelValues(worker).SetToCurrentTime()
}

// RecordEvaluation records one full symbol evaluation
func RecordEvaluation(symbol string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	Evaluations.WithLabelValues(symbol, status).Inc()
	EvaluationDuration.WithLabelValues(symbol).Observe(duration.Seconds())
}

// RecordSentiment records the latest aggregated verdict
func RecordSentiment(symbol string, direction, confidence float64) {
	SentimentGauge.WithLabelValues(symbol).Set(direction)
	SentimentConfidence.WithLabelValues(symbol).Set(confidence)
}

// RecordVerification records one prediction verification
func RecordVerification(symbol, timeframe string, correct bool) {
	result := "incorrect"
	if correct {
		result = "correct"
	}
	PredictionsVerified.WithLabelValues(symbol, timeframe, result).Inc()
}

// RecordDBQuery records a database query
func RecordDBQuery(database, operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	DBQueries.WithLabelValues(database, operation, status).Inc()
	DBQueryDuration.WithLabelValues(database, operation).Observe(duration.Seconds())
}
