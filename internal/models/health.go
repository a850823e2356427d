// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package models

import "time"

// HealthStatus is the overall backup health.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthWarning  HealthStatus = "warning"
	HealthCritical HealthStatus = "critical"
)

// Severity orders statuses so a report can only be raised, never lowered.
func (s HealthStatus) Severity() int {
	switch s {
	case HealthCritical:
		return 2
	case HealthWarning:
		return 1
	default:
		return 0
	}
}

// HealthReport is the result of one health check.
type HealthReport struct {
	Status              HealthStatus `json:"status"`
	Issues              []string     `json:"issues"`
	Recommendations     []string     `json:"recommendations"`
	CheckedAt           time.Time    `json:"checked_at"`
	LastCompletedBackup *time.Time   `json:"last_completed_backup,omitempty"`
	FailedBackups       int          `json:"failed_backups"`
	TotalSizeBytes      int64        `json:"total_size_bytes"`
	CapacityBytes       int64        `json:"capacity_bytes,omitempty"`
}

// Raise moves the report to status if it is more severe than the current one.
func (r *HealthReport) Raise(status HealthStatus) {
	if status.Severity() > r.Status.Severity() {
		r.Status = status
	}
}

// AlertKind classifies alerts.
type AlertKind string

const (
	AlertBackupFailed       AlertKind = "backup_failed"
	AlertBackupStale        AlertKind = "backup_stale"
	AlertStoragePressure    AlertKind = "storage_pressure"
	AlertStorageUnavailable AlertKind = "storage_unavailable"
	AlertHealthDegraded     AlertKind = "health_degraded"
	AlertDrillFailed        AlertKind = "drill_failed"
	AlertScheduleRun        AlertKind = "schedule_run"
)

// Alert is a queued operator notification. Alerts are acknowledged, never
// removed.
type Alert struct {
	ID             string     `json:"id"`
	Kind           AlertKind  `json:"kind"`
	Message        string     `json:"message"`
	CreatedAt      time.Time  `json:"created_at"`
	Acknowledged   bool       `json:"acknowledged"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
}

// Clone returns a deep copy.
func (a *Alert) Clone() *Alert {
	if a == nil {
		return nil
	}
	c := *a
	c.AcknowledgedAt = cloneTime(a.AcknowledgedAt)
	return &c
}
