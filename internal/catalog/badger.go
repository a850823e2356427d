// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/goccy/go-json"

	"github.com/tomtom215/lifeboat/internal/logging"
	"github.com/tomtom215/lifeboat/internal/models"
)

// Key prefixes, one per record type.
const (
	prefixBackup       = "backup:"
	prefixRestorePoint = "restore:"
	prefixSchedule     = "schedule:"
	prefixPlan         = "plan:"
	prefixAlert        = "alert:"
)

// maxConflictRetries bounds retries of an update that lost a badger
// optimistic concurrency race.
const maxConflictRetries = 5

// BadgerOptions configures the persistent catalog.
type BadgerOptions struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path       string
	InMemory   bool
	SyncWrites bool
}

// Badger is a Catalog persisted in BadgerDB.
type Badger struct {
	db     *badger.DB
	closed atomic.Bool

	// writeMu serializes read-modify-write transactions so conflicting
	// updates queue instead of exhausting conflict retries.
	writeMu sync.Mutex
}

var _ Catalog = (*Badger)(nil)

// OpenBadger opens (or creates) the catalog database.
func OpenBadger(opts BadgerOptions) (*Badger, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Path == "" {
			return nil, errors.New("catalog: badger path is required")
		}
		bopts = badger.DefaultOptions(opts.Path)
	}
	bopts.SyncWrites = opts.SyncWrites
	bopts.Compression = options.Snappy
	bopts.Logger = nil

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().
		Str("path", opts.Path).
		Bool("in_memory", opts.InMemory).
		Bool("sync_writes", opts.SyncWrites).
		Msg("Catalog opened")
	return &Badger{db: db}, nil
}

func (b *Badger) checkNotClosed() error {
	if b.closed.Load() {
		return ErrClosed
	}
	return nil
}

// update runs fn in a read-write transaction, retrying on write conflicts.
func (b *Badger) update(fn func(txn *badger.Txn) error) error {
	if err := b.checkNotClosed(); err != nil {
		return err
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	var err error
	for attempt := 0; attempt <= maxConflictRetries; attempt++ {
		err = b.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

func (b *Badger) view(fn func(txn *badger.Txn) error) error {
	if err := b.checkNotClosed(); err != nil {
		return err
	}
	return b.db.View(fn)
}

func readJSON[T any](txn *badger.Txn, key string, notFound error) (*T, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, notFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	var v T
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &v)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return &v, nil
}

func writeJSON(txn *badger.Txn, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return txn.Set([]byte(key), data)
}

func createJSON(txn *badger.Txn, key string, v interface{}) error {
	_, err := txn.Get([]byte(key))
	if err == nil {
		return fmt.Errorf("%s: %w", key, ErrExists)
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("get %s: %w", key, err)
	}
	return writeJSON(txn, key, v)
}

func deleteKey(txn *badger.Txn, key string, notFound error) error {
	if _, err := txn.Get([]byte(key)); errors.Is(err, badger.ErrKeyNotFound) {
		return notFound
	} else if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	return txn.Delete([]byte(key))
}

// scan decodes every value under prefix. Undecodable values are logged and
// skipped so one bad record does not hide the rest.
func scan[T any](ctx context.Context, b *Badger, prefix string, keep func(*T) bool) ([]*T, error) {
	var out []*T
	err := b.view(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			item := it.Item()
			var v T
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &v)
			}); err != nil {
				logging.Warn().Err(err).Str("key", string(item.Key())).Msg("Catalog skipped undecodable record")
				continue
			}
			if keep == nil || keep(&v) {
				out = append(out, &v)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", prefix, err)
	}
	return out, nil
}

func (b *Badger) CreateBackup(_ context.Context, rec *models.BackupRecord) error {
	return b.update(func(txn *badger.Txn) error {
		return createJSON(txn, prefixBackup+rec.ID, rec)
	})
}

func (b *Badger) GetBackup(_ context.Context, id string) (*models.BackupRecord, error) {
	var rec *models.BackupRecord
	err := b.view(func(txn *badger.Txn) error {
		var err error
		rec, err = readJSON[models.BackupRecord](txn, prefixBackup+id, fmt.Errorf("backup %s: %w", id, models.ErrBackupNotFound))
		return err
	})
	return rec, err
}

func (b *Badger) ListBackups(ctx context.Context, filter BackupFilter) ([]*models.BackupRecord, error) {
	recs, err := scan(ctx, b, prefixBackup, filter.Matches)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []*models.BackupRecord{}
	}
	return sortAndPage(recs, &filter), nil
}

func (b *Badger) UpdateBackup(_ context.Context, id string, fn func(*models.BackupRecord) error) (*models.BackupRecord, error) {
	var out *models.BackupRecord
	err := b.update(func(txn *badger.Txn) error {
		cur, err := readJSON[models.BackupRecord](txn, prefixBackup+id, fmt.Errorf("backup %s: %w", id, models.ErrBackupNotFound))
		if err != nil {
			return err
		}
		next := cur.Clone()
		if err := fn(next); err != nil {
			return err
		}
		if err := checkTransition(cur, next); err != nil {
			return err
		}
		out = next
		return writeJSON(txn, prefixBackup+id, next)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (b *Badger) DeleteBackup(_ context.Context, id string) error {
	return b.update(func(txn *badger.Txn) error {
		return deleteKey(txn, prefixBackup+id, fmt.Errorf("backup %s: %w", id, models.ErrBackupNotFound))
	})
}

func (b *Badger) CreateRestorePoint(_ context.Context, rp *models.RestorePoint) error {
	return b.update(func(txn *badger.Txn) error {
		return createJSON(txn, prefixRestorePoint+rp.ID, rp)
	})
}

func (b *Badger) GetRestorePoint(_ context.Context, id string) (*models.RestorePoint, error) {
	var rp *models.RestorePoint
	err := b.view(func(txn *badger.Txn) error {
		var err error
		rp, err = readJSON[models.RestorePoint](txn, prefixRestorePoint+id, fmt.Errorf("restore point %s: %w", id, models.ErrRestorePointNotFound))
		return err
	})
	return rp, err
}

func (b *Badger) ListRestorePoints(ctx context.Context, backupID string) ([]*models.RestorePoint, error) {
	rps, err := scan(ctx, b, prefixRestorePoint, func(rp *models.RestorePoint) bool {
		return backupID == "" || rp.BackupID == backupID
	})
	if err != nil {
		return nil, err
	}
	if rps == nil {
		rps = []*models.RestorePoint{}
	}
	sortRestorePoints(rps)
	return rps, nil
}

func (b *Badger) PutSchedule(_ context.Context, s *models.BackupSchedule) error {
	return b.update(func(txn *badger.Txn) error {
		return writeJSON(txn, prefixSchedule+s.ID, s)
	})
}

func (b *Badger) GetSchedule(_ context.Context, id string) (*models.BackupSchedule, error) {
	var s *models.BackupSchedule
	err := b.view(func(txn *badger.Txn) error {
		var err error
		s, err = readJSON[models.BackupSchedule](txn, prefixSchedule+id, fmt.Errorf("schedule %s: %w", id, models.ErrScheduleNotFound))
		return err
	})
	return s, err
}

func (b *Badger) ListSchedules(ctx context.Context) ([]*models.BackupSchedule, error) {
	ss, err := scan[models.BackupSchedule](ctx, b, prefixSchedule, nil)
	if err != nil {
		return nil, err
	}
	if ss == nil {
		ss = []*models.BackupSchedule{}
	}
	sortSchedules(ss)
	return ss, nil
}

func (b *Badger) UpdateSchedule(_ context.Context, id string, fn func(*models.BackupSchedule) error) (*models.BackupSchedule, error) {
	var out *models.BackupSchedule
	err := b.update(func(txn *badger.Txn) error {
		cur, err := readJSON[models.BackupSchedule](txn, prefixSchedule+id, fmt.Errorf("schedule %s: %w", id, models.ErrScheduleNotFound))
		if err != nil {
			return err
		}
		if err := fn(cur); err != nil {
			return err
		}
		cur.ID = id
		out = cur
		return writeJSON(txn, prefixSchedule+id, cur)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (b *Badger) DeleteSchedule(_ context.Context, id string) error {
	return b.update(func(txn *badger.Txn) error {
		return deleteKey(txn, prefixSchedule+id, fmt.Errorf("schedule %s: %w", id, models.ErrScheduleNotFound))
	})
}

func (b *Badger) CreatePlan(_ context.Context, p *models.DisasterRecoveryPlan) error {
	return b.update(func(txn *badger.Txn) error {
		return createJSON(txn, prefixPlan+p.ID, p)
	})
}

func (b *Badger) GetPlan(_ context.Context, id string) (*models.DisasterRecoveryPlan, error) {
	var p *models.DisasterRecoveryPlan
	err := b.view(func(txn *badger.Txn) error {
		var err error
		p, err = readJSON[models.DisasterRecoveryPlan](txn, prefixPlan+id, fmt.Errorf("plan %s: %w", id, models.ErrPlanNotFound))
		return err
	})
	return p, err
}

func (b *Badger) ListPlans(ctx context.Context) ([]*models.DisasterRecoveryPlan, error) {
	ps, err := scan[models.DisasterRecoveryPlan](ctx, b, prefixPlan, nil)
	if err != nil {
		return nil, err
	}
	if ps == nil {
		ps = []*models.DisasterRecoveryPlan{}
	}
	sortPlans(ps)
	return ps, nil
}

func (b *Badger) UpdatePlan(_ context.Context, id string, fn func(*models.DisasterRecoveryPlan) error) (*models.DisasterRecoveryPlan, error) {
	var out *models.DisasterRecoveryPlan
	err := b.update(func(txn *badger.Txn) error {
		cur, err := readJSON[models.DisasterRecoveryPlan](txn, prefixPlan+id, fmt.Errorf("plan %s: %w", id, models.ErrPlanNotFound))
		if err != nil {
			return err
		}
		if err := fn(cur); err != nil {
			return err
		}
		cur.ID = id
		out = cur
		return writeJSON(txn, prefixPlan+id, cur)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (b *Badger) CreateAlert(_ context.Context, a *models.Alert) error {
	return b.update(func(txn *badger.Txn) error {
		return createJSON(txn, prefixAlert+a.ID, a)
	})
}

func (b *Badger) ListAlerts(ctx context.Context, unacknowledgedOnly bool) ([]*models.Alert, error) {
	as, err := scan(ctx, b, prefixAlert, func(a *models.Alert) bool {
		return !unacknowledgedOnly || !a.Acknowledged
	})
	if err != nil {
		return nil, err
	}
	if as == nil {
		as = []*models.Alert{}
	}
	sortAlerts(as)
	return as, nil
}

func (b *Badger) UpdateAlert(_ context.Context, id string, fn func(*models.Alert) error) (*models.Alert, error) {
	var out *models.Alert
	err := b.update(func(txn *badger.Txn) error {
		cur, err := readJSON[models.Alert](txn, prefixAlert+id, fmt.Errorf("alert %s: %w", id, models.ErrAlertNotFound))
		if err != nil {
			return err
		}
		if err := fn(cur); err != nil {
			return err
		}
		cur.ID = id
		out = cur
		return writeJSON(txn, prefixAlert+id, cur)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (b *Badger) Ping(_ context.Context) error {
	if err := b.checkNotClosed(); err != nil {
		return err
	}
	if b.db.IsClosed() {
		return ErrClosed
	}
	return nil
}

// RunGC reclaims value log space until badger reports nothing to rewrite.
func (b *Badger) RunGC() error {
	if err := b.checkNotClosed(); err != nil {
		return err
	}
	for {
		err := b.db.RunValueLogGC(0.5)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run value log GC: %w", err)
		}
	}
}

func (b *Badger) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("close BadgerDB: %w", err)
	}
	logging.Info().Msg("Catalog closed")
	return nil
}
