// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package models

import (
	"slices"
	"time"
)

// RestorePoint records one successful restore. It is never modified after
// it is written.
type RestorePoint struct {
	ID             string    `json:"id"`
	BackupID       string    `json:"backup_id"`
	RestoredAt     time.Time `json:"restored_at"`
	Version        string    `json:"version"`
	DataIntegrity  bool      `json:"data_integrity"`
	Dependencies   []string  `json:"dependencies"`
	TargetLocation string    `json:"target_location,omitempty"`
	DurationMS     int64     `json:"duration_ms"`
}

// Clone returns a deep copy.
func (p *RestorePoint) Clone() *RestorePoint {
	if p == nil {
		return nil
	}
	c := *p
	c.Dependencies = slices.Clone(p.Dependencies)
	return &c
}
