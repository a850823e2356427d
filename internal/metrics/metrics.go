// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Backup Metrics
	BackupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifeboat_backups_total",
			Help: "Total number of finished backups",
		},
		[]string{"kind", "status"}, // status: completed, failed
	)

	BackupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lifeboat_backup_duration_seconds",
			Help:    "Wall time of backup runs",
			Buckets: []float64{.1, .5, 1, 5, 15, 60, 300, 900, 3600},
		},
		[]string{"kind"},
	)

	BackupSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lifeboat_backup_size_bytes",
			Help:    "Stored size of completed backups",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 12), // 1KiB .. 4GiB
		},
		[]string{"kind"},
	)

	BackupsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lifeboat_backups_in_flight",
			Help: "Number of backups currently running",
		},
	)

	// Restore Metrics
	RestoresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifeboat_restores_total",
			Help: "Total number of restore attempts",
		},
		[]string{"result"}, // success, not_restorable, integrity_failed, failed
	)

	RestoreDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lifeboat_restore_duration_seconds",
			Help:    "Wall time of successful restores",
			Buckets: []float64{.1, .5, 1, 5, 15, 60, 300, 900, 3600},
		},
	)

	IntegrityChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifeboat_integrity_checks_total",
			Help: "Total number of backup integrity checks",
		},
		[]string{"result"}, // valid, invalid
	)

	// Retention Metrics
	RetentionDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lifeboat_retention_deleted_total",
			Help: "Backups removed by retention",
		},
	)

	RetentionSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifeboat_retention_skipped_total",
			Help: "Expired backups kept by retention, by reason",
		},
		[]string{"reason"},
	)

	RetentionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lifeboat_retention_errors_total",
			Help: "Per-record failures during retention passes",
		},
	)

	// Storage Metrics
	StorageOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifeboat_storage_operations_total",
			Help: "Storage collaborator calls",
		},
		[]string{"backend", "operation", "result"},
	)

	StorageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lifeboat_storage_operation_duration_seconds",
			Help:    "Storage collaborator call latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	StorageRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifeboat_storage_retries_total",
			Help: "Storage calls retried after a transient failure",
		},
		[]string{"operation"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // success, failure, rejected
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Schedule Metrics
	ScheduleRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifeboat_schedule_runs_total",
			Help: "Schedule triggers",
		},
		[]string{"kind", "result"},
	)

	// DR Drill Metrics
	DrillsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifeboat_drills_total",
			Help: "DR plan drills",
		},
		[]string{"result"}, // success, issues
	)

	DrillSteps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifeboat_drill_steps_total",
			Help: "DR drill steps by outcome",
		},
		[]string{"status"},
	)

	// Health Metrics
	HealthStatus = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lifeboat_health_status",
			Help: "Backup health (0=healthy, 1=warning, 2=critical)",
		},
	)

	AlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifeboat_alerts_total",
			Help: "Alerts raised",
		},
		[]string{"kind"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifeboat_notifications_total",
			Help: "Notifications sent per sink",
		},
		[]string{"sink", "result"}, // success, failure, dropped
	)

	// HTTP Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordBackup records a finished backup.
func RecordBackup(kind, status string, duration time.Duration, size int64) {
	BackupsTotal.WithLabelValues(kind, status).Inc()
	BackupDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if status == "completed" {
		BackupSize.WithLabelValues(kind).Observe(float64(size))
	}
}

// RecordRestore records a restore attempt. Duration is only observed on
// success.
func RecordRestore(result string, duration time.Duration) {
	RestoresTotal.WithLabelValues(result).Inc()
	if result == "success" {
		RestoreDuration.Observe(duration.Seconds())
	}
}

// RecordIntegrityCheck records one checksum verification.
func RecordIntegrityCheck(valid bool) {
	if valid {
		IntegrityChecksTotal.WithLabelValues("valid").Inc()
		return
	}
	IntegrityChecksTotal.WithLabelValues("invalid").Inc()
}

// RecordStorageOperation records one storage call.
func RecordStorageOperation(backend, operation string, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	StorageOperations.WithLabelValues(backend, operation, result).Inc()
	StorageDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
}

// SetHealthStatus maps a status name to the gauge value.
func SetHealthStatus(status string) {
	switch status {
	case "critical":
		HealthStatus.Set(2)
	case "warning":
		HealthStatus.Set(1)
	default:
		HealthStatus.Set(0)
	}
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
