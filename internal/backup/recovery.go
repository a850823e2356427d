// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package backup

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/lifeboat/internal/catalog"
	"github.com/tomtom215/lifeboat/internal/logging"
	"github.com/tomtom215/lifeboat/internal/metrics"
	"github.com/tomtom215/lifeboat/internal/models"
)

// ErrInterrupted is recorded on backups that were still running when the
// previous process stopped.
var ErrInterrupted = errors.New("backup interrupted: process stopped before it finished")

// RecoverInterrupted marks every pending or in-progress backup as failed and
// removes any payload it may have written. It must run before the executor
// starts new work, since every non-terminal record at that point belongs to
// a process that no longer exists. It returns the number of records
// recovered and is safe to call repeatedly.
func (e *Executor) RecoverInterrupted(ctx context.Context) (int, error) {
	stuck, err := e.catalog.ListBackups(ctx, catalog.BackupFilter{
		Statuses: []models.BackupStatus{models.StatusPending, models.StatusInProgress},
	})
	if err != nil {
		return 0, fmt.Errorf("list interrupted backups: %w", err)
	}
	if len(stuck) == 0 {
		logging.Debug().Msg("Backup recovery: no interrupted backups")
		return 0, nil
	}

	recovered := 0
	var errs []error
	for _, rec := range stuck {
		if err := ctx.Err(); err != nil {
			return recovered, err
		}
		ok, err := e.recoverOne(ctx, rec)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			recovered++
		}
	}

	logging.Info().
		Int("found", len(stuck)).
		Int("recovered", recovered).
		Int("failed", len(errs)).
		Msg("Backup recovery complete")
	return recovered, errors.Join(errs...)
}

func (e *Executor) recoverOne(ctx context.Context, rec *models.BackupRecord) (bool, error) {
	log := logging.Ctx(ctx).With().
		Str("backup_id", rec.ID).
		Str("kind", string(rec.Kind)).
		Str("status", string(rec.Status)).
		Logger()

	location := rec.Location
	if location == "" {
		location = e.store.Locate(storageKey(rec.ID))
	}

	done := e.now().UTC()
	_, err := e.catalog.UpdateBackup(ctx, rec.ID, func(r *models.BackupRecord) error {
		r.Status = models.StatusFailed
		r.Error = ErrInterrupted.Error()
		r.Location = ""
		r.SizeBytes = 0
		r.Checksum = ""
		r.CompletedAt = &done
		if r.StartedAt != nil {
			r.DurationMS = done.Sub(*r.StartedAt).Milliseconds()
		}
		return nil
	})
	switch {
	case errors.Is(err, models.ErrInvalidTransition), errors.Is(err, models.ErrBackupNotFound):
		// Finished or removed since the listing.
		return false, nil
	case err != nil:
		return false, fmt.Errorf("mark %s failed: %w", rec.ID, err)
	}

	metrics.RecordBackup(string(rec.Kind), string(models.StatusFailed), 0, 0)
	log.Warn().Msg("Interrupted backup marked failed")

	// The write may have landed before the process stopped.
	if err := e.store.Delete(ctx, location); err != nil {
		log.Warn().Err(err).Str("location", location).Msg("Failed to remove partial payload")
	}
	return true, nil
}
