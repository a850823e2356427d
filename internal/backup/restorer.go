// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package backup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/lifeboat/internal/catalog"
	"github.com/tomtom215/lifeboat/internal/crypto"
	"github.com/tomtom215/lifeboat/internal/logging"
	"github.com/tomtom215/lifeboat/internal/metrics"
	"github.com/tomtom215/lifeboat/internal/models"
	"github.com/tomtom215/lifeboat/internal/source"
	"github.com/tomtom215/lifeboat/internal/storage"
)

// RestoreOptions configure one restore. ValidateIntegrity defaults to true.
type RestoreOptions struct {
	TargetLocation    string
	Overwrite         bool
	ValidateIntegrity *bool
}

func (o RestoreOptions) validate() bool {
	return o.ValidateIntegrity == nil || *o.ValidateIntegrity
}

// Restorer replays backup chains into a restore target.
type Restorer struct {
	catalog   catalog.Catalog
	store     storage.Storage
	target    source.RestoreTarget
	enc       crypto.Encryptor
	validator *Validator
	retention *Retention
	now       func() time.Time

	wg sync.WaitGroup
}

// NewRestorer wires a restorer. enc may be nil when no backup is
// encrypted.
func NewRestorer(cat catalog.Catalog, store storage.Storage, target source.RestoreTarget, enc crypto.Encryptor, validator *Validator, retention *Retention) *Restorer {
	if retention == nil {
		retention = NewRetention(cat, store, 0)
	}
	if validator == nil {
		validator = NewValidator(store)
	}
	return &Restorer{
		catalog:   cat,
		store:     store,
		target:    target,
		enc:       enc,
		validator: validator,
		retention: retention,
		now:       time.Now,
	}
}

// StartRestore runs Restore in the background.
func (r *Restorer) StartRestore(ctx context.Context, backupID string, opts RestoreOptions) *Task[*models.RestorePoint] {
	task := newTask[*models.RestorePoint](uuid.New().String())
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		task.finish(r.Restore(ctx, backupID, opts))
	}()
	return task
}

// Wait blocks until background restores finish.
func (r *Restorer) Wait() { r.wg.Wait() }

// Restore reconstructs backupID at the target location and records a
// RestorePoint. Integrity failures abort before the target is touched.
func (r *Restorer) Restore(ctx context.Context, backupID string, opts RestoreOptions) (*models.RestorePoint, error) {
	started := r.now()
	log := logging.Ctx(ctx).With().Str("backup_id", backupID).Logger()

	rec, err := r.catalog.GetBackup(ctx, backupID)
	if err != nil {
		metrics.RecordRestore("not_found", 0)
		return nil, err
	}
	if rec.Status != models.StatusCompleted {
		metrics.RecordRestore("not_restorable", 0)
		return nil, fmt.Errorf("backup %s is %s: %w", backupID, rec.Status, models.ErrBackupNotRestorable)
	}

	chain, release, err := r.retention.PinChain(ctx, backupID)
	if err != nil {
		metrics.RecordRestore("not_restorable", 0)
		if errors.Is(err, models.ErrBackupNotRestorable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", models.ErrBackupNotRestorable, err)
	}
	defer release()

	log.Info().Int("chain_length", len(chain)).Msg("Restore started")

	layers, err := r.loadLayers(ctx, chain, opts.validate())
	if err != nil {
		if errors.Is(err, models.ErrIntegrityCheckFailed) {
			metrics.RecordRestore("integrity_failed", 0)
		} else {
			metrics.RecordRestore("failed", 0)
		}
		log.Error().Err(err).Msg("Restore aborted before touching target")
		return nil, err
	}

	location := opts.TargetLocation
	if location == "" {
		location = r.target.DefaultLocation()
	}
	if err := r.target.Apply(ctx, location, layers, opts.Overwrite); err != nil {
		metrics.RecordRestore("failed", 0)
		log.Error().Err(err).Str("target", location).Msg("Restore failed")
		return nil, fmt.Errorf("%w: %w", models.ErrRestoreFailed, err)
	}

	ids := chainIDs(chain)
	duration := r.now().Sub(started)
	rp := &models.RestorePoint{
		ID:             uuid.New().String(),
		BackupID:       rec.ID,
		RestoredAt:     r.now().UTC(),
		Version:        rec.SourceVersion,
		DataIntegrity:  opts.validate(),
		Dependencies:   ids[:len(ids)-1],
		TargetLocation: location,
		DurationMS:     duration.Milliseconds(),
	}
	if err := r.catalog.CreateRestorePoint(context.WithoutCancel(ctx), rp); err != nil {
		metrics.RecordRestore("failed", 0)
		return nil, fmt.Errorf("%w: record restore point: %w", models.ErrRestoreFailed, err)
	}

	metrics.RecordRestore("success", duration)
	log.Info().
		Str("restore_point_id", rp.ID).
		Str("target", location).
		Strs("dependencies", rp.Dependencies).
		Int64("duration_ms", rp.DurationMS).
		Msg("Restore completed")
	return rp, nil
}

// loadLayers reads, optionally validates, and decrypts every chain member.
func (r *Restorer) loadLayers(ctx context.Context, chain []*models.BackupRecord, validate bool) ([][]byte, error) {
	layers := make([][]byte, 0, len(chain))
	for _, member := range chain {
		var payload []byte
		if validate {
			res, data := r.validator.validate(ctx, member)
			if !res.Valid {
				return nil, fmt.Errorf("backup %s: %v: %w", member.ID, res.Errors, models.ErrIntegrityCheckFailed)
			}
			payload = data
		} else {
			data, err := r.store.Read(ctx, member.Location)
			if err != nil {
				return nil, fmt.Errorf("%w: read %s: %w", models.ErrRestoreFailed, member.ID, err)
			}
			payload = data
		}

		if member.Encrypted {
			if r.enc == nil {
				return nil, fmt.Errorf("%w: backup %s: %w", models.ErrRestoreFailed, member.ID, ErrEncryptionUnavailable)
			}
			plain, err := crypto.Open(r.enc, payload)
			if err != nil {
				return nil, fmt.Errorf("%w: decrypt %s: %w", models.ErrRestoreFailed, member.ID, err)
			}
			payload = plain
		}
		layers = append(layers, payload)
	}
	return layers, nil
}
