// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package models

import "time"

// BackupStats aggregates the backup catalog.
type BackupStats struct {
	Total            int                  `json:"total"`
	TotalSizeBytes   int64                `json:"total_size_bytes"`
	Oldest           *time.Time           `json:"oldest,omitempty"`
	Newest           *time.Time           `json:"newest,omitempty"`
	ByKind           map[BackupKind]int   `json:"by_kind"`
	ByStatus         map[BackupStatus]int `json:"by_status"`
	AverageSizeBytes int64                `json:"average_size_bytes"`
	SuccessRate      float64              `json:"success_rate"`
	LastCompleted    *time.Time           `json:"last_completed,omitempty"`
	Encrypted        int                  `json:"encrypted"`
}
