// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package models

import "time"

// Frequency is how often a schedule fires.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// BackupSchedule is a recurring backup.
type BackupSchedule struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Kind      BackupKind `json:"kind"`
	Frequency Frequency  `json:"frequency"`

	// Time is the local time of day as HH:MM.
	Time string `json:"time"`

	// Weekday applies to weekly schedules only.
	Weekday time.Weekday `json:"weekday"`

	Enabled       bool       `json:"enabled"`
	RetentionDays int        `json:"retention_days"`
	Notify        bool       `json:"notify"`
	CreatedAt     time.Time  `json:"created_at"`
	LastRun       *time.Time `json:"last_run,omitempty"`
	NextRun       time.Time  `json:"next_run"`

	// LastFullBackupID is the base used by incremental schedules.
	LastFullBackupID string `json:"last_full_backup_id,omitempty"`

	// LastBackupID and LastError describe the most recent trigger.
	LastBackupID string `json:"last_backup_id,omitempty"`
	LastError    string `json:"last_error,omitempty"`
}

// IsDue reports whether an enabled schedule should fire at now.
func (s *BackupSchedule) IsDue(now time.Time) bool {
	return s.Enabled && !now.Before(s.NextRun)
}

// Clone returns a deep copy.
func (s *BackupSchedule) Clone() *BackupSchedule {
	if s == nil {
		return nil
	}
	c := *s
	c.LastRun = cloneTime(s.LastRun)
	return &c
}

// ScheduleSpec is the operator input for a new schedule.
type ScheduleSpec struct {
	Name          string     `json:"name" validate:"required,max=128"`
	Kind          BackupKind `json:"kind" validate:"required,oneof=full incremental"`
	Frequency     Frequency  `json:"frequency" validate:"required,oneof=daily weekly monthly"`
	Time          string     `json:"time" validate:"required,timeofday"`
	Weekday       *int       `json:"weekday,omitempty" validate:"omitempty,min=0,max=6"`
	Enabled       *bool      `json:"enabled,omitempty"`
	RetentionDays int        `json:"retention_days,omitempty" validate:"omitempty,min=1,max=3650"`
	Notify        bool       `json:"notify"`
}
