// Package metrics provides Prometheus metrics for the Thistle service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChecksTotal tracks completed checks by kind and resulting label
	ChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thistle",
			Subsystem: "matching",
			Name:      "checks_total",
			Help:      "Total number of completed checks by kind and label",
		},
		[]string{"kind", "label"},
	)

	// CheckErrorsTotal tracks failed checks by kind and error code
	CheckErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thistle",
			Subsystem: "matching",
			Name:      "check_errors_total",
			Help:      "Total number of failed checks by kind and error code",
		},
		[]string{"kind", "code"},
	)

	// CheckDuration tracks check duration in seconds
	CheckDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "thistle",
			Subsystem: "matching",
			Name:      "check_duration_seconds",
			Help:      "Duration of checks in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"kind"},
	)

	// CascadeDependentsTotal tracks re-evaluated dependents by outcome
	CascadeDependentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thistle",
			Subsystem: "cascade",
			Name:      "dependents_total",
			Help:      "Total number of re-evaluated dependents by kind and status",
		},
		[]string{"kind", "status"},
	)

	// SavesTotal tracks persisted records by kind, operation and status
	SavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thistle",
			Subsystem: "disposition",
			Name:      "saves_total",
			Help:      "Total number of record saves by kind, operation and status",
		},
		[]string{"kind", "operation", "status"},
	)

	// LockWaitDuration tracks time spent acquiring key locks
	LockWaitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "thistle",
			Subsystem: "lock",
			Name:      "wait_seconds",
			Help:      "Time spent acquiring dedupe key locks in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"status"},
	)

	// KafkaMessagesPublished tracks Kafka messages published
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thistle",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)
)

// RecordCheck records a completed check
func RecordCheck(kind, label string, durationSeconds float64) {
	ChecksTotal.WithLabelValues(kind, label).Inc()
	CheckDuration.WithLabelValues(kind).Observe(durationSeconds)
}

// RecordCheckError records a failed check
func RecordCheckError(kind, code string, durationSeconds float64) {
	CheckErrorsTotal.WithLabelValues(kind, code).Inc()
	CheckDuration.WithLabelValues(kind).Observe(durationSeconds)
}

// RecordCascadeDependent records the outcome of one re-evaluated dependent
func RecordCascadeDependent(kind, status string) {
	CascadeDependentsTotal.WithLabelValues(kind, status).Inc()
}

// RecordSave records a create or update of a labeled record
func RecordSave(kind, operation, status string) {
	SavesTotal.WithLabelValues(kind, operation, status).Inc()
}

// RecordLockWait records how long a key lock acquisition took
func RecordLockWait(status string, durationSeconds float64) {
	LockWaitDuration.WithLabelValues(status).Observe(durationSeconds)
}

// RecordKafkaPublish records a Kafka publish attempt
func RecordKafkaPublish(topic, status string) {
	KafkaMessagesPublished.WithLabelValues(topic, status).Inc()
}
