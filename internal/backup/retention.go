// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package backup

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/lifeboat/internal/catalog"
	"github.com/tomtom215/lifeboat/internal/logging"
	"github.com/tomtom215/lifeboat/internal/metrics"
	"github.com/tomtom215/lifeboat/internal/models"
	"github.com/tomtom215/lifeboat/internal/storage"
)

// Reasons reported by Preview.
const (
	ReasonExpired        = "expired"
	ReasonInProgress     = "in_progress"
	ReasonChainProtected = "chain_protected"
	ReasonPinned         = "pinned"
	ReasonMinFullFloor   = "min_full_floor"
	ReasonDeleteFailed   = "delete_failed"
)

// RetentionDecision explains what a pass would do with one record.
type RetentionDecision struct {
	BackupID  string            `json:"backup_id"`
	Name      string            `json:"name"`
	Kind      models.BackupKind `json:"kind"`
	ExpiresAt time.Time         `json:"expires_at"`
	Delete    bool              `json:"delete"`
	Reason    string            `json:"reason"`

	// Round is the pass in which the record becomes deletable. Leaves of a
	// chain go in round 0, their bases in round 1, and so on.
	Round int `json:"round,omitempty"`
}

// CleanupResult summarizes a CleanupExpired pass.
type CleanupResult struct {
	Deleted []string `json:"deleted"`
	Kept    int      `json:"kept"`
	Errors  int      `json:"errors"`
}

// Retention prunes expired backups.
type Retention struct {
	catalog        catalog.Catalog
	store          storage.Storage
	minFullBackups int
	now            func() time.Time

	// mu is held for a whole prune pass and while pins change.
	mu   sync.Mutex
	pins map[string]int
}

// NewRetention returns a retention manager. The newest minFullBackups
// completed full backups are never pruned.
func NewRetention(cat catalog.Catalog, store storage.Storage, minFullBackups int) *Retention {
	if minFullBackups < 0 {
		minFullBackups = 0
	}
	return &Retention{
		catalog:        cat,
		store:          store,
		minFullBackups: minFullBackups,
		now:            time.Now,
		pins:           make(map[string]int),
	}
}

// Pin protects ids from pruning until the returned release is called.
// Pins nest.
func (r *Retention) Pin(ids ...string) (release func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pinLocked(ids)
	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.unpinLocked(ids)
		})
	}
}

func (r *Retention) pinLocked(ids []string) {
	for _, id := range ids {
		r.pins[id]++
	}
}

func (r *Retention) unpinLocked(ids []string) {
	for _, id := range ids {
		if r.pins[id] <= 1 {
			delete(r.pins, id)
			continue
		}
		r.pins[id]--
	}
}

// PinChain resolves the chain ending at id and pins every member in one
// step, so no prune can run between the lookup and the pin.
func (r *Retention) PinChain(ctx context.Context, id string) ([]*models.BackupRecord, func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	chain, err := ResolveChain(ctx, r.catalog, id)
	if err != nil {
		return nil, nil, err
	}
	ids := chainIDs(chain)
	r.pinLocked(ids)

	var once sync.Once
	release := func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.unpinLocked(ids)
		})
	}
	return chain, release, nil
}

// Preview reports the decision for every expired record without deleting
// anything.
func (r *Retention) Preview(ctx context.Context) ([]RetentionDecision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	recs, err := r.catalog.ListBackups(ctx, catalog.BackupFilter{Ascending: true})
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	return r.plan(recs, r.now(), nil), nil
}

// CleanupExpired deletes every expired backup that is safe to delete.
// Deletion goes leaves first. A record whose deletion fails stays in the
// catalog and keeps protecting its base. Single-record failures are
// logged and counted, not returned.
func (r *Retention) CleanupExpired(ctx context.Context) (*CleanupResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := &CleanupResult{Deleted: make([]string, 0)}
	failed := make(map[string]bool)
	now := r.now()

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		recs, err := r.catalog.ListBackups(ctx, catalog.BackupFilter{Ascending: true})
		if err != nil {
			return result, fmt.Errorf("list backups: %w", err)
		}

		decisions := r.plan(recs, now, failed)
		byID := make(map[string]*models.BackupRecord, len(recs))
		for _, rec := range recs {
			byID[rec.ID] = rec
		}

		progressed := false
		result.Kept = 0
		for _, d := range decisions {
			switch {
			case d.Delete && d.Round == 0:
				if err := r.deleteOne(ctx, byID[d.BackupID]); err != nil {
					failed[d.BackupID] = true
					result.Errors++
					metrics.RetentionErrors.Inc()
					logging.Warn().Err(err).Str("backup_id", d.BackupID).Msg("Retention failed to delete backup")
					continue
				}
				result.Deleted = append(result.Deleted, d.BackupID)
				progressed = true
			case !d.Delete:
				result.Kept++
			}
		}
		if !progressed {
			break
		}
	}

	for _, d := range r.finalSkips(ctx, now, failed) {
		metrics.RetentionSkipped.WithLabelValues(d.Reason).Inc()
	}
	if len(result.Deleted) > 0 || result.Errors > 0 {
		logging.Info().
			Int("deleted", len(result.Deleted)).
			Int("kept", result.Kept).
			Int("errors", result.Errors).
			Msg("Retention pass finished")
	}
	return result, nil
}

// finalSkips reports the expired records that survived the pass.
func (r *Retention) finalSkips(ctx context.Context, now time.Time, failed map[string]bool) []RetentionDecision {
	recs, err := r.catalog.ListBackups(ctx, catalog.BackupFilter{Ascending: true})
	if err != nil {
		return nil
	}
	var skipped []RetentionDecision
	for _, d := range r.plan(recs, now, failed) {
		if !d.Delete {
			skipped = append(skipped, d)
		}
	}
	return skipped
}

func (r *Retention) deleteOne(ctx context.Context, rec *models.BackupRecord) error {
	if rec.Location != "" {
		if err := r.store.Delete(ctx, rec.Location); err != nil {
			return fmt.Errorf("delete payload %s: %w", rec.Location, err)
		}
	}
	if err := r.catalog.DeleteBackup(ctx, rec.ID); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	metrics.RetentionDeleted.Inc()
	logging.Info().
		Str("backup_id", rec.ID).
		Str("kind", string(rec.Kind)).
		Time("expires_at", rec.Retention.ExpiresAt).
		Msg("Expired backup deleted")
	return nil
}

// plan simulates pruning to a fixed point. Each round deletes the expired
// records nothing remaining refers to, which may free their bases for the
// next round. Only expired records are reported.
func (r *Retention) plan(recs []*models.BackupRecord, now time.Time, failed map[string]bool) []RetentionDecision {
	floor := r.fullFloor(recs)

	remaining := make(map[string]*models.BackupRecord, len(recs))
	for _, rec := range recs {
		remaining[rec.ID] = rec
	}
	refs := func(id string) bool {
		for _, rec := range remaining {
			if rec.BaseBackupID == id {
				return true
			}
		}
		return false
	}

	decided := make(map[string]RetentionDecision, len(recs))
	for round := 0; ; round++ {
		var wave []string
		for _, rec := range recs {
			if _, ok := remaining[rec.ID]; !ok {
				continue
			}
			if !rec.IsExpired(now) {
				continue
			}
			reason := r.blockReason(rec, floor, failed, refs)
			if reason != "" {
				decided[rec.ID] = newDecision(rec, false, reason, 0)
				continue
			}
			wave = append(wave, rec.ID)
			decided[rec.ID] = newDecision(rec, true, ReasonExpired, round)
		}
		if len(wave) == 0 {
			break
		}
		for _, id := range wave {
			delete(remaining, id)
		}
	}

	out := make([]RetentionDecision, 0, len(decided))
	for _, d := range decided {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Round != out[j].Round {
			return out[i].Round < out[j].Round
		}
		return out[i].BackupID < out[j].BackupID
	})
	return out
}

func (r *Retention) blockReason(rec *models.BackupRecord, floor, failed map[string]bool, referenced func(string) bool) string {
	switch {
	case !rec.Status.IsTerminal():
		return ReasonInProgress
	case r.pins[rec.ID] > 0:
		return ReasonPinned
	case floor[rec.ID]:
		return ReasonMinFullFloor
	case failed[rec.ID]:
		return ReasonDeleteFailed
	case referenced(rec.ID):
		return ReasonChainProtected
	}
	return ""
}

// fullFloor returns the newest minFullBackups completed full backups.
func (r *Retention) fullFloor(recs []*models.BackupRecord) map[string]bool {
	fulls := make([]*models.BackupRecord, 0)
	for _, rec := range recs {
		if rec.Kind == models.KindFull && rec.Status == models.StatusCompleted {
			fulls = append(fulls, rec)
		}
	}
	sort.Slice(fulls, func(i, j int) bool {
		return fulls[i].CreatedAt.After(fulls[j].CreatedAt)
	})
	keep := make(map[string]bool, r.minFullBackups)
	for i := 0; i < r.minFullBackups && i < len(fulls); i++ {
		keep[fulls[i].ID] = true
	}
	return keep
}

func newDecision(rec *models.BackupRecord, del bool, reason string, round int) RetentionDecision {
	return RetentionDecision{
		BackupID:  rec.ID,
		Name:      rec.Name,
		Kind:      rec.Kind,
		ExpiresAt: rec.Retention.ExpiresAt,
		Delete:    del,
		Reason:    reason,
		Round:     round,
	}
}
