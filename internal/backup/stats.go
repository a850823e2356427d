// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package backup

import (
	"context"
	"fmt"

	"github.com/tomtom215/lifeboat/internal/catalog"
	"github.com/tomtom215/lifeboat/internal/models"
)

// GetStatistics aggregates every record in the catalog.
func GetStatistics(ctx context.Context, cat catalog.Catalog) (*models.BackupStats, error) {
	recs, err := cat.ListBackups(ctx, catalog.BackupFilter{Ascending: true})
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}

	stats := &models.BackupStats{
		Total:    len(recs),
		ByKind:   make(map[models.BackupKind]int),
		ByStatus: make(map[models.BackupStatus]int),
	}
	var finished, succeeded int
	for _, rec := range recs {
		stats.TotalSizeBytes += rec.SizeBytes
		stats.ByKind[rec.Kind]++
		stats.ByStatus[rec.Status]++
		if rec.Encrypted {
			stats.Encrypted++
		}
		updateOldestNewest(stats, rec)

		if rec.Status.IsTerminal() {
			finished++
		}
		if rec.Status == models.StatusCompleted {
			succeeded++
			if rec.CompletedAt != nil && (stats.LastCompleted == nil || rec.CompletedAt.After(*stats.LastCompleted)) {
				t := *rec.CompletedAt
				stats.LastCompleted = &t
			}
		}
	}

	if stats.Total > 0 {
		stats.AverageSizeBytes = stats.TotalSizeBytes / int64(stats.Total)
	}
	if finished > 0 {
		stats.SuccessRate = float64(succeeded) / float64(finished)
	}
	return stats, nil
}

func updateOldestNewest(stats *models.BackupStats, rec *models.BackupRecord) {
	created := rec.CreatedAt
	if stats.Oldest == nil || created.Before(*stats.Oldest) {
		t := created
		stats.Oldest = &t
	}
	if stats.Newest == nil || created.After(*stats.Newest) {
		t := created
		stats.Newest = &t
	}
}
