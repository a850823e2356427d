// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

/*
Package models defines the records Lifeboat keeps in its catalog and the
error kinds every component reports.

Record types:

  - BackupRecord: one full, incremental or differential backup and its
    lifecycle status (pending, in_progress, completed, failed)
  - RestorePoint: audit record written after a successful restore
  - BackupSchedule: a recurring backup with its derived next run
  - DisasterRecoveryPlan, RecoveryStep, TestResult: DR plans and drills
  - Alert, HealthReport: health monitor output
  - BackupStats: catalog aggregates

Status transitions on a BackupRecord are monotonic. Use
BackupStatus.CanTransitionTo before persisting a new status; the catalog
enforces the same rule and rejects regressions with ErrInvalidTransition.

The sentinel errors in errors.go are wrapped with fmt.Errorf and %w by the
components and mapped to stable codes with ErrorCode for the HTTP API.
*/
package models
