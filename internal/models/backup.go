// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package models

import (
	"slices"
	"time"
)

// BackupKind is the shape of a backup relative to its chain.
type BackupKind string

const (
	// KindFull is a complete copy of the protected data.
	KindFull BackupKind = "full"

	// KindIncremental holds the changes since its base, which may itself be
	// incremental.
	KindIncremental BackupKind = "incremental"

	// KindDifferential holds the changes since a full base.
	KindDifferential BackupKind = "differential"
)

// Valid reports whether k is a known kind.
func (k BackupKind) Valid() bool {
	switch k {
	case KindFull, KindIncremental, KindDifferential:
		return true
	}
	return false
}

// NeedsBase reports whether records of kind k must reference a base backup.
func (k BackupKind) NeedsBase() bool {
	return k == KindIncremental || k == KindDifferential
}

// BackupStatus is the lifecycle state of a backup record.
type BackupStatus string

const (
	StatusPending    BackupStatus = "pending"
	StatusInProgress BackupStatus = "in_progress"
	StatusCompleted  BackupStatus = "completed"
	StatusFailed     BackupStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed.
func (s BackupStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo reports whether s may move to next.
//
//	pending     -> in_progress | failed
//	in_progress -> completed | failed
func (s BackupStatus) CanTransitionTo(next BackupStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusInProgress || next == StatusFailed
	case StatusInProgress:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

// Retention is the keep window of a backup.
type Retention struct {
	KeepDays  int       `json:"keep_days"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewRetention returns a retention window of keepDays calendar days
// starting at createdAt.
func NewRetention(createdAt time.Time, keepDays int) Retention {
	return Retention{
		KeepDays:  keepDays,
		ExpiresAt: createdAt.AddDate(0, 0, keepDays),
	}
}

// BackupRecord is the catalog entry for one backup.
type BackupRecord struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Kind        BackupKind   `json:"kind"`
	Status      BackupStatus `json:"status"`
	SizeBytes   int64        `json:"size_bytes"`
	CreatedAt   time.Time    `json:"created_at"`
	CreatedBy   string       `json:"created_by"`
	Location    string       `json:"location,omitempty"`
	Checksum    string       `json:"checksum,omitempty"`
	Encrypted   bool         `json:"encrypted"`
	Retention   Retention    `json:"retention"`
	Tags        []string     `json:"tags,omitempty"`
	Description string       `json:"description,omitempty"`

	// BaseBackupID is set for incremental and differential backups.
	BaseBackupID string `json:"base_backup_id,omitempty"`

	// ChangesSince is the lower bound of the captured delta.
	ChangesSince *time.Time `json:"changes_since,omitempty"`

	// SourceVersion is the data source version marker at capture time.
	SourceVersion string `json:"source_version,omitempty"`

	// ScheduleID is set when a schedule triggered the backup.
	ScheduleID string `json:"schedule_id,omitempty"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	DurationMS  int64      `json:"duration_ms,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// IsExpired reports whether now is at or past the retention expiry.
func (r *BackupRecord) IsExpired(now time.Time) bool {
	return !now.Before(r.Retention.ExpiresAt)
}

// HasTag reports whether the record carries tag.
func (r *BackupRecord) HasTag(tag string) bool {
	return slices.Contains(r.Tags, tag)
}

// Clone returns a deep copy.
func (r *BackupRecord) Clone() *BackupRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.Tags = slices.Clone(r.Tags)
	c.ChangesSince = cloneTime(r.ChangesSince)
	c.StartedAt = cloneTime(r.StartedAt)
	c.CompletedAt = cloneTime(r.CompletedAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
