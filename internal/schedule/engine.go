// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

// Package schedule fires recurring backups.
//
// An Engine stores BackupSchedules in the catalog and, on every Tick,
// dispatches the ones whose NextRun has passed. Tick does not wait for the
// backups: each run is watched by an engine goroutine that records the
// outcome on the schedule. A schedule still running from an earlier tick
// is skipped. Each tick ends with a retention pass.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/lifeboat/internal/backup"
	"github.com/tomtom215/lifeboat/internal/catalog"
	"github.com/tomtom215/lifeboat/internal/logging"
	"github.com/tomtom215/lifeboat/internal/metrics"
	"github.com/tomtom215/lifeboat/internal/models"
	"github.com/tomtom215/lifeboat/internal/notify"
	"github.com/tomtom215/lifeboat/internal/validation"
)

// Run is a dispatched backup.
type Run interface {
	Wait(ctx context.Context) (*models.BackupRecord, error)
}

// Backuper starts backups without waiting for them.
type Backuper interface {
	StartFull(ctx context.Context, opts backup.Options) (Run, error)
	StartIncremental(ctx context.Context, baseID string, opts backup.Options) (Run, error)
}

type executorBackuper struct {
	exec *backup.Executor
}

// ExecutorBackups adapts exec to Backuper.
func ExecutorBackups(exec *backup.Executor) Backuper {
	return executorBackuper{exec: exec}
}

func (b executorBackuper) StartFull(ctx context.Context, opts backup.Options) (Run, error) {
	task, err := b.exec.StartFull(ctx, opts)
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (b executorBackuper) StartIncremental(ctx context.Context, baseID string, opts backup.Options) (Run, error) {
	task, err := b.exec.StartIncremental(ctx, baseID, opts)
	if err != nil {
		return nil, err
	}
	return task, nil
}

// Pruner runs a retention pass.
type Pruner interface {
	CleanupExpired(ctx context.Context) (*backup.CleanupResult, error)
}

// Config holds engine defaults.
type Config struct {
	// DefaultWeekday applies to weekly schedules that name none.
	DefaultWeekday time.Weekday

	// Location is the zone schedule times are read in. Defaults to Local.
	Location *time.Location

	// MaxConcurrent bounds scheduled backups in flight. Due schedules over
	// the limit wait for a later tick. Zero means 4.
	MaxConcurrent int
}

// Engine owns schedules and fires them.
type Engine struct {
	cfg      Config
	catalog  catalog.Catalog
	backups  Backuper
	pruner   Pruner
	notifier notify.Notifier
	now      func() time.Time

	mu      sync.Mutex
	running map[string]bool
	wg      sync.WaitGroup
}

// TickResult lists the schedules a tick dispatched. Failed holds those
// whose backup could not be started; runs that fail later are recorded on
// the schedule.
type TickResult struct {
	Fired  []string `json:"fired"`
	Failed []string `json:"failed"`
}

// New returns an engine. pruner and notifier may be nil.
func New(cfg Config, cat catalog.Catalog, backups Backuper, pruner Pruner, notifier notify.Notifier) *Engine {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	if notifier == nil {
		notifier = notify.Nop
	}
	return &Engine{
		cfg:      cfg,
		catalog:  cat,
		backups:  backups,
		pruner:   pruner,
		notifier: notifier,
		now:      time.Now,
		running:  make(map[string]bool),
	}
}

func (e *Engine) clock() time.Time {
	return e.now().In(e.cfg.Location)
}

// Schedule validates spec and stores a new schedule with its first NextRun.
func (e *Engine) Schedule(ctx context.Context, spec models.ScheduleSpec) (*models.BackupSchedule, error) {
	if verr := validation.ValidateStruct(&spec); verr != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrScheduleInvalid, verr)
	}

	weekday := e.cfg.DefaultWeekday
	if spec.Weekday != nil {
		weekday = time.Weekday(*spec.Weekday)
	}
	enabled := true
	if spec.Enabled != nil {
		enabled = *spec.Enabled
	}

	now := e.clock()
	next, err := NextRun(spec.Frequency, spec.Time, weekday, now)
	if err != nil {
		return nil, err
	}

	s := &models.BackupSchedule{
		ID:            uuid.New().String(),
		Name:          spec.Name,
		Kind:          spec.Kind,
		Frequency:     spec.Frequency,
		Time:          spec.Time,
		Weekday:       weekday,
		Enabled:       enabled,
		RetentionDays: spec.RetentionDays,
		Notify:        spec.Notify,
		CreatedAt:     now.UTC(),
		NextRun:       next,
	}
	if err := e.catalog.PutSchedule(ctx, s); err != nil {
		return nil, fmt.Errorf("store schedule: %w", err)
	}

	logging.Ctx(ctx).Info().
		Str("schedule_id", s.ID).
		Str("name", s.Name).
		Str("frequency", string(s.Frequency)).
		Time("next_run", s.NextRun).
		Msg("Schedule created")
	return s, nil
}

// Get returns the schedule with id.
func (e *Engine) Get(ctx context.Context, id string) (*models.BackupSchedule, error) {
	return e.catalog.GetSchedule(ctx, id)
}

// List returns every stored schedule.
func (e *Engine) List(ctx context.Context) ([]*models.BackupSchedule, error) {
	return e.catalog.ListSchedules(ctx)
}

// Delete removes a schedule. A run already dispatched for it finishes.
func (e *Engine) Delete(ctx context.Context, id string) error {
	return e.catalog.DeleteSchedule(ctx, id)
}

// SetEnabled toggles a schedule. Enabling recomputes NextRun from now so a
// long-disabled schedule does not fire immediately.
func (e *Engine) SetEnabled(ctx context.Context, id string, enabled bool) (*models.BackupSchedule, error) {
	now := e.clock()
	return e.catalog.UpdateSchedule(ctx, id, func(s *models.BackupSchedule) error {
		if enabled && !s.Enabled {
			next, err := NextRun(s.Frequency, s.Time, s.Weekday, now)
			if err != nil {
				return err
			}
			s.NextRun = next
		}
		s.Enabled = enabled
		return nil
	})
}

// Tick dispatches every due schedule, then runs retention. It returns once
// the backups are started.
func (e *Engine) Tick(ctx context.Context) (*TickResult, error) {
	now := e.clock()
	schedules, err := e.catalog.ListSchedules(ctx)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}

	result := &TickResult{Fired: make([]string, 0), Failed: make([]string, 0)}
	for _, s := range schedules {
		if !s.IsDue(now) || !e.claim(s.ID) {
			continue
		}
		// A run that finished after the listing has already moved NextRun.
		cur, err := e.catalog.GetSchedule(ctx, s.ID)
		if err != nil || !cur.IsDue(now) {
			e.release(s.ID)
			continue
		}
		result.Fired = append(result.Fired, cur.ID)
		if err := e.fire(ctx, cur, now); err != nil {
			result.Failed = append(result.Failed, cur.ID)
		}
	}

	if e.pruner != nil {
		if _, err := e.pruner.CleanupExpired(ctx); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("Scheduled retention pass failed")
		}
	}
	return result, nil
}

// Wait blocks until every dispatched run has recorded its outcome or ctx
// is done.
func (e *Engine) Wait(ctx context.Context) error {
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

func (e *Engine) claim(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running[id] || len(e.running) >= e.cfg.MaxConcurrent {
		return false
	}
	e.running[id] = true
	return true
}

func (e *Engine) release(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.running, id)
}

// fire starts one claimed schedule. The claim is released once the outcome
// is recorded. A start error is recorded and returned immediately.
func (e *Engine) fire(ctx context.Context, s *models.BackupSchedule, now time.Time) error {
	log := logging.Ctx(ctx).With().Str("schedule_id", s.ID).Str("schedule", s.Name).Logger()
	log.Info().Str("kind", string(s.Kind)).Msg("Schedule firing")

	opts := backup.Options{
		Name:          fmt.Sprintf("%s-%s", s.Name, now.UTC().Format("20060102-1504")),
		Tags:          []string{"scheduled"},
		RetentionDays: s.RetentionDays,
		CreatedBy:     "scheduler:" + s.Name,
		ScheduleID:    s.ID,
	}

	run, err := e.start(ctx, s, opts)
	if err != nil {
		defer e.release(s.ID)
		return e.finish(ctx, s, now, nil, err)
	}

	bg := context.WithoutCancel(ctx)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.release(s.ID)
		rec, runErr := run.Wait(bg)
		_ = e.finish(bg, s, now, rec, runErr)
	}()
	return nil
}

// finish records the outcome of a run on its schedule.
func (e *Engine) finish(ctx context.Context, s *models.BackupSchedule, now time.Time, rec *models.BackupRecord, runErr error) error {
	log := logging.Ctx(ctx).With().Str("schedule_id", s.ID).Str("schedule", s.Name).Logger()

	next, nextErr := NextRun(s.Frequency, s.Time, s.Weekday, now)
	if nextErr != nil {
		// Stored schedules were validated on create; this only happens if
		// the catalog was edited by hand.
		next = now.Add(24 * time.Hour)
	}
	_, err := e.catalog.UpdateSchedule(context.WithoutCancel(ctx), s.ID, func(cur *models.BackupSchedule) error {
		ran := now.UTC()
		cur.LastRun = &ran
		cur.NextRun = next
		cur.LastError = ""
		if rec != nil {
			cur.LastBackupID = rec.ID
		}
		if runErr != nil {
			cur.LastError = runErr.Error()
		} else if rec != nil && rec.Kind == models.KindFull {
			cur.LastFullBackupID = rec.ID
		}
		return nil
	})
	if err != nil && !errors.Is(err, models.ErrScheduleNotFound) {
		log.Error().Err(err).Msg("Failed to record schedule run")
	}

	result := "success"
	if runErr != nil {
		result = "failure"
	}
	metrics.ScheduleRuns.WithLabelValues(string(s.Kind), result).Inc()

	if runErr != nil {
		log.Error().Err(runErr).Msg("Scheduled backup failed")
		if s.Notify {
			e.notify(ctx, models.AlertBackupFailed, fmt.Sprintf("scheduled backup %q failed: %v", s.Name, runErr))
		}
		return runErr
	}

	log.Info().Str("backup_id", rec.ID).Time("next_run", next).Msg("Scheduled backup completed")
	if s.Notify {
		e.notify(ctx, models.AlertScheduleRun, fmt.Sprintf("scheduled %s backup %q completed as %s", rec.Kind, s.Name, rec.ID))
	}
	return nil
}

// start dispatches the backup. An incremental schedule without a usable
// full base runs a full backup instead.
func (e *Engine) start(ctx context.Context, s *models.BackupSchedule, opts backup.Options) (Run, error) {
	if s.Kind != models.KindIncremental {
		return e.backups.StartFull(ctx, opts)
	}
	if s.LastFullBackupID == "" {
		logging.Ctx(ctx).Info().Str("schedule_id", s.ID).Msg("No full base yet, running full backup")
		return e.backups.StartFull(ctx, opts)
	}
	run, err := e.backups.StartIncremental(ctx, s.LastFullBackupID, opts)
	if errors.Is(err, models.ErrBaseBackupNotFound) {
		logging.Ctx(ctx).Warn().
			Str("schedule_id", s.ID).
			Str("base_backup_id", s.LastFullBackupID).
			Msg("Full base unusable, running full backup")
		return e.backups.StartFull(ctx, opts)
	}
	return run, err
}

func (e *Engine) notify(ctx context.Context, kind models.AlertKind, msg string) {
	if err := e.notifier.Send(ctx, kind, msg); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("alert_kind", string(kind)).Msg("Schedule notification failed")
	}
}
