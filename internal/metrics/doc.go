// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

/*
Package metrics exposes Lifeboat's Prometheus collectors.

Every collector is registered on the default registry through promauto and
served by the /metrics route of the HTTP API:

	curl http://localhost:8480/metrics

Backup metrics:
  - lifeboat_backups_total{kind,status}: finished backups (counter)
  - lifeboat_backup_duration_seconds{kind}: backup wall time (histogram)
  - lifeboat_backup_size_bytes{kind}: stored payload size (histogram)
  - lifeboat_backups_in_flight: running backups (gauge)

Restore and integrity metrics:
  - lifeboat_restores_total{result}
  - lifeboat_restore_duration_seconds
  - lifeboat_integrity_checks_total{result}

Retention metrics:
  - lifeboat_retention_deleted_total
  - lifeboat_retention_skipped_total{reason}
  - lifeboat_retention_errors_total

Storage metrics:
  - lifeboat_storage_operations_total{backend,operation,result}
  - lifeboat_storage_operation_duration_seconds{backend,operation}
  - lifeboat_storage_retries_total{operation}
  - circuit_breaker_state{name}, circuit_breaker_requests_total{name,result},
    circuit_breaker_state_transitions_total{name,from_state,to_state}

Scheduling, drills and health:
  - lifeboat_schedule_runs_total{kind,result}
  - lifeboat_drills_total{result}, lifeboat_drill_steps_total{status}
  - lifeboat_health_status (0 healthy, 1 warning, 2 critical)
  - lifeboat_alerts_total{kind}, lifeboat_notifications_total{sink,result}

HTTP:
  - http_requests_total{method,endpoint,status}
  - http_request_duration_seconds{method,endpoint}
*/
package metrics
