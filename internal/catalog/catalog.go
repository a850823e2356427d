// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

// Package catalog is the durable record store behind every Lifeboat
// component: backups, restore points, schedules, DR plans and alerts.
//
// Two implementations are provided. Memory keeps everything in process and
// is used by tests and single-shot runs. Badger persists records in a
// BadgerDB directory, one JSON value per key under a per-type prefix.
//
// Reads return copies, so callers always see a consistent snapshot of a
// record and can never mutate catalog state by accident. Writes to a
// single backup record go through UpdateBackup, which applies the mutation
// atomically and refuses status regressions.
package catalog

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/tomtom215/lifeboat/internal/models"
)

// ErrExists is returned when creating a record whose id is already taken.
var ErrExists = errors.New("catalog: record already exists")

// ErrClosed is returned after Close.
var ErrClosed = errors.New("catalog: closed")

// Catalog stores every record type the engine owns.
type Catalog interface {
	CreateBackup(ctx context.Context, rec *models.BackupRecord) error
	GetBackup(ctx context.Context, id string) (*models.BackupRecord, error)
	ListBackups(ctx context.Context, filter BackupFilter) ([]*models.BackupRecord, error)

	// UpdateBackup applies fn to a copy of the record and stores the result
	// atomically. A status change must be allowed by
	// BackupStatus.CanTransitionTo, otherwise models.ErrInvalidTransition is
	// returned and nothing is written.
	UpdateBackup(ctx context.Context, id string, fn func(*models.BackupRecord) error) (*models.BackupRecord, error)
	DeleteBackup(ctx context.Context, id string) error

	CreateRestorePoint(ctx context.Context, rp *models.RestorePoint) error
	GetRestorePoint(ctx context.Context, id string) (*models.RestorePoint, error)
	ListRestorePoints(ctx context.Context, backupID string) ([]*models.RestorePoint, error)

	PutSchedule(ctx context.Context, s *models.BackupSchedule) error
	GetSchedule(ctx context.Context, id string) (*models.BackupSchedule, error)
	ListSchedules(ctx context.Context) ([]*models.BackupSchedule, error)
	UpdateSchedule(ctx context.Context, id string, fn func(*models.BackupSchedule) error) (*models.BackupSchedule, error)
	DeleteSchedule(ctx context.Context, id string) error

	CreatePlan(ctx context.Context, p *models.DisasterRecoveryPlan) error
	GetPlan(ctx context.Context, id string) (*models.DisasterRecoveryPlan, error)
	ListPlans(ctx context.Context) ([]*models.DisasterRecoveryPlan, error)
	UpdatePlan(ctx context.Context, id string, fn func(*models.DisasterRecoveryPlan) error) (*models.DisasterRecoveryPlan, error)

	CreateAlert(ctx context.Context, a *models.Alert) error
	ListAlerts(ctx context.Context, unacknowledgedOnly bool) ([]*models.Alert, error)
	UpdateAlert(ctx context.Context, id string, fn func(*models.Alert) error) (*models.Alert, error)

	// Ping reports whether the catalog can serve requests.
	Ping(ctx context.Context) error
	Close() error
}

// BackupFilter narrows ListBackups. Zero values match everything.
type BackupFilter struct {
	Kind         models.BackupKind
	Statuses     []models.BackupStatus
	Tag          string
	BaseBackupID string
	ScheduleID   string
	Since        time.Time
	Until        time.Time

	// Ascending sorts oldest first. The default is newest first.
	Ascending bool
	Limit     int
	Offset    int
}

// Matches reports whether rec passes every set criterion.
func (f *BackupFilter) Matches(rec *models.BackupRecord) bool {
	if f.Kind != "" && rec.Kind != f.Kind {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if rec.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Tag != "" && !rec.HasTag(f.Tag) {
		return false
	}
	if f.BaseBackupID != "" && rec.BaseBackupID != f.BaseBackupID {
		return false
	}
	if f.ScheduleID != "" && rec.ScheduleID != f.ScheduleID {
		return false
	}
	if !f.Since.IsZero() && rec.CreatedAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && rec.CreatedAt.After(f.Until) {
		return false
	}
	return true
}

// sortAndPage orders by creation time (id breaks ties) and applies
// offset and limit.
func sortAndPage(recs []*models.BackupRecord, f *BackupFilter) []*models.BackupRecord {
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.CreatedAt.Equal(b.CreatedAt) {
			if f.Ascending {
				return a.ID < b.ID
			}
			return a.ID > b.ID
		}
		if f.Ascending {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})

	if f.Offset > 0 {
		if f.Offset >= len(recs) {
			return []*models.BackupRecord{}
		}
		recs = recs[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(recs) {
		recs = recs[:f.Limit]
	}
	return recs
}

// checkTransition validates the move from before to after.
func checkTransition(before, after *models.BackupRecord) error {
	if after.ID != before.ID {
		return errors.New("catalog: backup id is immutable")
	}
	if after.Status != before.Status && !before.Status.CanTransitionTo(after.Status) {
		return &TransitionError{ID: before.ID, From: before.Status, To: after.Status}
	}
	return nil
}

// TransitionError reports a refused status change.
type TransitionError struct {
	ID       string
	From, To models.BackupStatus
}

func (e *TransitionError) Error() string {
	return "catalog: backup " + e.ID + ": cannot move from " + string(e.From) + " to " + string(e.To)
}

func (e *TransitionError) Unwrap() error { return models.ErrInvalidTransition }
