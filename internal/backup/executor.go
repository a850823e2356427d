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

// DefaultRetentionDays applies when neither Options nor Config set one.
const DefaultRetentionDays = 30

// ErrEncryptionUnavailable is returned when encryption is requested and no
// key is configured.
var ErrEncryptionUnavailable = errors.New("encryption requested but no key is configured")

// Config holds executor defaults.
type Config struct {
	DefaultRetentionDays int
	Encrypt              bool
	Creator              string
}

// Options describe one backup run. Zero values take the Config defaults.
type Options struct {
	Name          string
	Description   string
	Tags          []string
	Encrypt       *bool
	RetentionDays int
	CreatedBy     string
	ScheduleID    string
}

// Executor runs backups.
type Executor struct {
	cfg       Config
	catalog   catalog.Catalog
	store     storage.Storage
	source    source.DataSource
	enc       crypto.Encryptor
	retention *Retention
	now       func() time.Time

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	hooksMu    sync.RWMutex
	onComplete func(*models.BackupRecord)
	onFailed   func(*models.BackupRecord, error)
}

// NewExecutor wires an executor. enc may be nil when encryption is not
// configured. retention may be nil to disable the post-backup prune.
func NewExecutor(cfg Config, cat catalog.Catalog, store storage.Storage, src source.DataSource, enc crypto.Encryptor, retention *Retention) *Executor {
	if cfg.DefaultRetentionDays <= 0 {
		cfg.DefaultRetentionDays = DefaultRetentionDays
	}
	if cfg.Creator == "" {
		cfg.Creator = "lifeboat"
	}
	base, cancel := context.WithCancel(context.Background())
	return &Executor{
		cfg:       cfg,
		catalog:   cat,
		store:     store,
		source:    src,
		enc:       enc,
		retention: retention,
		now:       time.Now,
		base:      base,
		cancel:    cancel,
	}
}

// SetOnBackupComplete registers a callback for completed backups.
func (e *Executor) SetOnBackupComplete(fn func(*models.BackupRecord)) {
	e.hooksMu.Lock()
	defer e.hooksMu.Unlock()
	e.onComplete = fn
}

// SetOnBackupFailed registers a callback for failed backups.
func (e *Executor) SetOnBackupFailed(fn func(*models.BackupRecord, error)) {
	e.hooksMu.Lock()
	defer e.hooksMu.Unlock()
	e.onFailed = fn
}

// Shutdown cancels running backups and waits for them to record their
// final status, or for ctx to expire.
func (e *Executor) Shutdown(ctx context.Context) error {
	e.cancel()
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CreateFull runs a full backup and waits for it.
func (e *Executor) CreateFull(ctx context.Context, opts Options) (*models.BackupRecord, error) {
	task, err := e.StartFull(ctx, opts)
	if err != nil {
		return nil, err
	}
	return task.Wait(ctx)
}

// CreateIncremental runs an incremental backup against baseID and waits.
func (e *Executor) CreateIncremental(ctx context.Context, baseID string, opts Options) (*models.BackupRecord, error) {
	task, err := e.StartIncremental(ctx, baseID, opts)
	if err != nil {
		return nil, err
	}
	return task.Wait(ctx)
}

// CreateDifferential runs a differential backup against the full backup
// baseID and waits.
func (e *Executor) CreateDifferential(ctx context.Context, baseID string, opts Options) (*models.BackupRecord, error) {
	task, err := e.StartDifferential(ctx, baseID, opts)
	if err != nil {
		return nil, err
	}
	return task.Wait(ctx)
}

// StartFull persists a pending full backup and runs it in the background.
func (e *Executor) StartFull(ctx context.Context, opts Options) (*Task[*models.BackupRecord], error) {
	return e.start(ctx, models.KindFull, "", opts)
}

// StartIncremental persists a pending incremental backup capturing changes
// since the base was created. The base may be any completed backup.
func (e *Executor) StartIncremental(ctx context.Context, baseID string, opts Options) (*Task[*models.BackupRecord], error) {
	return e.start(ctx, models.KindIncremental, baseID, opts)
}

// StartDifferential is StartIncremental restricted to a full base.
func (e *Executor) StartDifferential(ctx context.Context, baseID string, opts Options) (*Task[*models.BackupRecord], error) {
	return e.start(ctx, models.KindDifferential, baseID, opts)
}

func (e *Executor) start(ctx context.Context, kind models.BackupKind, baseID string, opts Options) (*Task[*models.BackupRecord], error) {
	encrypt := e.cfg.Encrypt
	if opts.Encrypt != nil {
		encrypt = *opts.Encrypt
	}
	if encrypt && e.enc == nil {
		return nil, fmt.Errorf("%w: %w", models.ErrBackupCreationFailed, ErrEncryptionUnavailable)
	}

	rec := e.newRecord(kind, opts, encrypt)

	// The base check and the pending insert happen under a pin so a prune
	// cannot delete the base in between. Once the pending record exists it
	// protects the base by reference.
	var base *models.BackupRecord
	release := e.pin(baseID)
	err := func() error {
		defer release()
		if kind.NeedsBase() {
			b, err := e.resolveBase(ctx, kind, baseID)
			if err != nil {
				return err
			}
			base = b
			rec.BaseBackupID = b.ID
			since := b.CreatedAt
			rec.ChangesSince = &since
		}
		if err := e.catalog.CreateBackup(ctx, rec); err != nil {
			return fmt.Errorf("%w: persist record: %w", models.ErrBackupCreationFailed, err)
		}
		return nil
	}()
	if err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Info().
		Str("backup_id", rec.ID).
		Str("kind", string(kind)).
		Str("base_backup_id", rec.BaseBackupID).
		Msg("Backup pending")

	task := newTask[*models.BackupRecord](rec.ID)
	runCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(e.base, cancel)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer cancel()
		defer stop()
		task.finish(e.run(runCtx, rec, base))
	}()
	return task, nil
}

func (e *Executor) newRecord(kind models.BackupKind, opts Options, encrypt bool) *models.BackupRecord {
	now := e.now().UTC()
	id := uuid.New().String()

	days := opts.RetentionDays
	if days <= 0 {
		days = e.cfg.DefaultRetentionDays
	}
	name := opts.Name
	if name == "" {
		name = fmt.Sprintf("%s-%s", kind, now.Format("20060102-150405"))
	}
	creator := opts.CreatedBy
	if creator == "" {
		creator = e.cfg.Creator
	}

	return &models.BackupRecord{
		ID:          id,
		Name:        name,
		Kind:        kind,
		Status:      models.StatusPending,
		CreatedAt:   now,
		CreatedBy:   creator,
		Encrypted:   encrypt,
		Retention:   models.NewRetention(now, days),
		Tags:        append([]string(nil), opts.Tags...),
		Description: opts.Description,
		ScheduleID:  opts.ScheduleID,
	}
}

func (e *Executor) pin(id string) func() {
	if e.retention == nil || id == "" {
		return func() {}
	}
	return e.retention.Pin(id)
}

// resolveBase returns the base record or ErrBaseBackupNotFound.
func (e *Executor) resolveBase(ctx context.Context, kind models.BackupKind, baseID string) (*models.BackupRecord, error) {
	if baseID == "" {
		return nil, fmt.Errorf("%s backup needs a base: %w", kind, models.ErrBaseBackupNotFound)
	}
	base, err := e.catalog.GetBackup(ctx, baseID)
	if errors.Is(err, models.ErrBackupNotFound) {
		return nil, fmt.Errorf("base %s: %w", baseID, models.ErrBaseBackupNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load base %s: %w", baseID, err)
	}
	if base.Status != models.StatusCompleted {
		return nil, fmt.Errorf("base %s is %s: %w", baseID, base.Status, models.ErrBaseBackupNotFound)
	}
	if kind == models.KindDifferential && base.Kind != models.KindFull {
		return nil, fmt.Errorf("differential base %s is %s, not full: %w", baseID, base.Kind, models.ErrBaseBackupNotFound)
	}
	return base, nil
}

// run performs the backup. It owns every status transition of rec.
func (e *Executor) run(ctx context.Context, rec *models.BackupRecord, base *models.BackupRecord) (*models.BackupRecord, error) {
	log := logging.Ctx(ctx).With().Str("backup_id", rec.ID).Str("kind", string(rec.Kind)).Logger()
	started := e.now().UTC()

	metrics.BackupsInFlight.Inc()
	defer metrics.BackupsInFlight.Dec()

	if _, err := e.catalog.UpdateBackup(ctx, rec.ID, func(r *models.BackupRecord) error {
		r.Status = models.StatusInProgress
		r.StartedAt = &started
		return nil
	}); err != nil {
		return e.fail(rec, started, fmt.Errorf("mark in progress: %w", err))
	}
	log.Info().Msg("Backup in progress")

	obj, err := e.capture(ctx, rec, base)
	if err != nil {
		return e.fail(rec, started, err)
	}

	done := e.now().UTC()
	updated, err := e.catalog.UpdateBackup(ctx, rec.ID, func(r *models.BackupRecord) error {
		r.Status = models.StatusCompleted
		r.SizeBytes = obj.Size
		r.Location = obj.Location
		r.Checksum = obj.Checksum
		r.SourceVersion = e.source.Version()
		r.CompletedAt = &done
		r.DurationMS = done.Sub(started).Milliseconds()
		return nil
	})
	if err != nil {
		if delErr := e.store.Delete(context.WithoutCancel(ctx), obj.Location); delErr != nil {
			log.Warn().Err(delErr).Str("location", obj.Location).Msg("Failed to remove orphaned payload")
		}
		return e.fail(rec, started, fmt.Errorf("mark completed: %w", err))
	}

	metrics.RecordBackup(string(updated.Kind), string(models.StatusCompleted), done.Sub(started), updated.SizeBytes)
	log.Info().
		Int64("size_bytes", updated.SizeBytes).
		Str("location", updated.Location).
		Int64("duration_ms", updated.DurationMS).
		Msg("Backup completed")

	e.hooksMu.RLock()
	onComplete := e.onComplete
	e.hooksMu.RUnlock()
	if onComplete != nil {
		onComplete(updated.Clone())
	}

	if updated.Kind == models.KindFull && e.retention != nil {
		if _, err := e.retention.CleanupExpired(context.WithoutCancel(ctx)); err != nil {
			log.Warn().Err(err).Msg("Post-backup retention pass failed")
		}
	}
	return updated, nil
}

// capture reads the source, encrypts if requested and writes the payload.
// The storage key is derived from the record id so a retried write
// replaces rather than duplicates.
func (e *Executor) capture(ctx context.Context, rec, base *models.BackupRecord) (*storage.Object, error) {
	var (
		payload []byte
		err     error
	)
	if base == nil {
		payload, err = e.source.Snapshot(ctx)
	} else {
		var basePayload []byte
		basePayload, err = e.readBase(ctx, base)
		if err != nil {
			return nil, err
		}
		payload, err = e.source.ChangesSince(ctx, base.CreatedAt, basePayload)
	}
	if err != nil {
		return nil, fmt.Errorf("capture source: %w", err)
	}

	if rec.Encrypted {
		payload, err = crypto.Seal(e.enc, payload)
		if err != nil {
			return nil, fmt.Errorf("encrypt payload: %w", err)
		}
	}

	obj, err := e.store.Write(ctx, storageKey(rec.ID), payload)
	if err != nil {
		return nil, fmt.Errorf("write payload: %w", err)
	}
	return obj, nil
}

// readBase returns the plaintext payload of base so the delta can be
// computed against what base actually holds.
func (e *Executor) readBase(ctx context.Context, base *models.BackupRecord) ([]byte, error) {
	data, err := e.store.Read(ctx, base.Location)
	if err != nil {
		return nil, fmt.Errorf("read base %s: %w", base.ID, err)
	}
	if !base.Encrypted {
		return data, nil
	}
	if e.enc == nil {
		return nil, fmt.Errorf("base %s: %w", base.ID, ErrEncryptionUnavailable)
	}
	plain, err := crypto.Open(e.enc, data)
	if err != nil {
		return nil, fmt.Errorf("decrypt base %s: %w", base.ID, err)
	}
	return plain, nil
}

// fail records the failure and returns the cause wrapped as
// ErrBackupCreationFailed.
func (e *Executor) fail(rec *models.BackupRecord, started time.Time, cause error) (*models.BackupRecord, error) {
	// The failure must be recorded even when ctx was canceled.
	ctx := context.Background()
	done := e.now().UTC()

	updated, err := e.catalog.UpdateBackup(ctx, rec.ID, func(r *models.BackupRecord) error {
		r.Status = models.StatusFailed
		r.Error = cause.Error()
		r.CompletedAt = &done
		r.DurationMS = done.Sub(started).Milliseconds()
		return nil
	})
	if err != nil {
		logging.Error().Err(err).Str("backup_id", rec.ID).Msg("Failed to record backup failure")
		updated = rec.Clone()
		updated.Status = models.StatusFailed
		updated.Error = cause.Error()
	}

	metrics.RecordBackup(string(rec.Kind), string(models.StatusFailed), done.Sub(started), 0)
	logging.Error().
		Err(cause).
		Str("backup_id", rec.ID).
		Str("kind", string(rec.Kind)).
		Msg("Backup failed")

	e.hooksMu.RLock()
	onFailed := e.onFailed
	e.hooksMu.RUnlock()
	if onFailed != nil {
		onFailed(updated.Clone(), cause)
	}
	return updated, fmt.Errorf("%w: %w", models.ErrBackupCreationFailed, cause)
}

func storageKey(id string) string {
	return "backups/" + id + ".lbk"
}
