// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package backup

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/tomtom215/lifeboat/internal/models"
)

func fixedNow(r *Retention, now time.Time) {
	r.now = func() time.Time { return now }
}

func TestRetention_ChainSafety(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	old := now.AddDate(0, 0, -40)

	tests := []struct {
		name        string
		seed        func(t *testing.T, env *testEnv)
		minFull     int
		wantDeleted []string
		wantKept    []string
	}{
		{
			name: "expired base of live incremental is kept",
			seed: func(t *testing.T, env *testEnv) {
				seedBackup(t, env, "A", models.KindFull, models.StatusCompleted, "", old, 30)
				seedBackup(t, env, "B", models.KindIncremental, models.StatusCompleted, "A", now.AddDate(0, 0, -1), 30)
			},
			wantKept: []string{"A", "B"},
		},
		{
			name: "fully expired chain goes leaves first",
			seed: func(t *testing.T, env *testEnv) {
				seedBackup(t, env, "A", models.KindFull, models.StatusCompleted, "", old, 30)
				seedBackup(t, env, "B", models.KindIncremental, models.StatusCompleted, "A", old.Add(time.Hour), 30)
				seedBackup(t, env, "C", models.KindIncremental, models.StatusCompleted, "B", old.Add(2*time.Hour), 30)
				seedBackup(t, env, "D", models.KindFull, models.StatusCompleted, "", now, 30)
			},
			wantDeleted: []string{"C", "B", "A"},
			wantKept:    []string{"D"},
		},
		{
			name: "in-flight records are never removed",
			seed: func(t *testing.T, env *testEnv) {
				seedBackup(t, env, "P", models.KindFull, models.StatusPending, "", old, 30)
				seedBackup(t, env, "R", models.KindFull, models.StatusInProgress, "", old, 30)
			},
			wantKept: []string{"P", "R"},
		},
		{
			name: "failed expired records are removed",
			seed: func(t *testing.T, env *testEnv) {
				seedBackup(t, env, "F", models.KindFull, models.StatusFailed, "", old, 30)
			},
			wantDeleted: []string{"F"},
		},
		{
			name: "min full floor keeps the newest full",
			seed: func(t *testing.T, env *testEnv) {
				seedBackup(t, env, "A", models.KindFull, models.StatusCompleted, "", old, 30)
				seedBackup(t, env, "B", models.KindFull, models.StatusCompleted, "", old.Add(time.Hour), 30)
			},
			minFull:     1,
			wantDeleted: []string{"A"},
			wantKept:    []string{"B"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ret := NewRetention(env.cat, env.store, tt.minFull)
			fixedNow(ret, now)
			tt.seed(t, env)

			res, err := ret.CleanupExpired(context.Background())
			if err != nil {
				t.Fatalf("CleanupExpired: %v", err)
			}
			if !slices.Equal(res.Deleted, tt.wantDeleted) {
				t.Errorf("Deleted = %v, want %v", res.Deleted, tt.wantDeleted)
			}
			for _, id := range tt.wantKept {
				if _, err := env.cat.GetBackup(context.Background(), id); err != nil {
					t.Errorf("%s should be kept: %v", id, err)
				}
			}
			for _, id := range tt.wantDeleted {
				if _, err := env.cat.GetBackup(context.Background(), id); !errors.Is(err, models.ErrBackupNotFound) {
					t.Errorf("%s should be deleted, got %v", id, err)
				}
				if _, err := env.store.Read(context.Background(), storageKey(id)); err == nil && id != "F" {
					t.Errorf("payload for %s should be deleted", id)
				}
			}
		})
	}
}

func TestRetention_PinnedRecordSurvives(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now().UTC()
	ret := NewRetention(env.cat, env.store, 0)
	seedBackup(t, env, "A", models.KindFull, models.StatusCompleted, "", now.AddDate(0, 0, -40), 30)

	release := ret.Pin("A")
	res, err := ret.CleanupExpired(context.Background())
	if err != nil {
		t.Fatalf("CleanupExpired: %v", err)
	}
	if len(res.Deleted) != 0 {
		t.Fatalf("pinned record deleted: %v", res.Deleted)
	}

	release()
	release()
	res, err = ret.CleanupExpired(context.Background())
	if err != nil {
		t.Fatalf("CleanupExpired: %v", err)
	}
	if !slices.Equal(res.Deleted, []string{"A"}) {
		t.Errorf("Deleted = %v, want [A]", res.Deleted)
	}
}

func TestRetention_DeleteFailureProtectsBase(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now().UTC()
	old := now.AddDate(0, 0, -40)
	store := &faultyStore{Storage: env.store, failDelete: map[string]bool{storageKey("B"): true}}
	ret := NewRetention(env.cat, store, 0)

	seedBackup(t, env, "A", models.KindFull, models.StatusCompleted, "", old, 30)
	seedBackup(t, env, "B", models.KindIncremental, models.StatusCompleted, "A", old.Add(time.Hour), 30)
	seedBackup(t, env, "X", models.KindFull, models.StatusCompleted, "", old, 30)

	res, err := ret.CleanupExpired(context.Background())
	if err != nil {
		t.Fatalf("CleanupExpired: %v", err)
	}
	if res.Errors != 1 {
		t.Errorf("Errors = %d, want 1", res.Errors)
	}
	if !slices.Equal(res.Deleted, []string{"X"}) {
		t.Errorf("Deleted = %v, want [X]", res.Deleted)
	}
	for _, id := range []string{"A", "B"} {
		if _, err := env.cat.GetBackup(context.Background(), id); err != nil {
			t.Errorf("%s should remain: %v", id, err)
		}
	}
}

func TestRetention_Preview(t *testing.T) {
	env := newTestEnv(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	old := now.AddDate(0, 0, -40)
	ret := NewRetention(env.cat, env.store, 0)
	fixedNow(ret, now)

	seedBackup(t, env, "A", models.KindFull, models.StatusCompleted, "", old, 30)
	seedBackup(t, env, "B", models.KindIncremental, models.StatusCompleted, "A", old.Add(time.Hour), 30)
	seedBackup(t, env, "K", models.KindFull, models.StatusCompleted, "", old, 30)
	seedBackup(t, env, "L", models.KindIncremental, models.StatusCompleted, "K", now, 30)
	seedBackup(t, env, "P", models.KindFull, models.StatusInProgress, "", old, 30)

	decisions, err := ret.Preview(context.Background())
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	got := make(map[string]RetentionDecision)
	for _, d := range decisions {
		got[d.BackupID] = d
	}

	want := map[string]struct {
		del    bool
		reason string
		round  int
	}{
		"A": {true, ReasonExpired, 1},
		"B": {true, ReasonExpired, 0},
		"K": {false, ReasonChainProtected, 0},
		"P": {false, ReasonInProgress, 0},
	}
	if len(got) != len(want) {
		t.Errorf("decisions = %+v", decisions)
	}
	for id, w := range want {
		d, ok := got[id]
		if !ok {
			t.Errorf("no decision for %s", id)
			continue
		}
		if d.Delete != w.del || d.Reason != w.reason || d.Round != w.round {
			t.Errorf("%s: got delete=%v reason=%s round=%d, want %v %s %d", id, d.Delete, d.Reason, d.Round, w.del, w.reason, w.round)
		}
	}

	if n := countBackups(t, env.cat); n != 5 {
		t.Errorf("Preview deleted records: %d left", n)
	}
}

func TestRetention_PinChainBlocksPrune(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now().UTC()
	old := now.AddDate(0, 0, -40)
	ret := NewRetention(env.cat, env.store, 0)

	seedBackup(t, env, "A", models.KindFull, models.StatusCompleted, "", old, 30)
	seedBackup(t, env, "B", models.KindIncremental, models.StatusCompleted, "A", old.Add(time.Hour), 30)

	chain, release, err := ret.PinChain(context.Background(), "B")
	if err != nil {
		t.Fatalf("PinChain: %v", err)
	}
	if len(chain) != 2 || chain[0].ID != "A" || chain[1].ID != "B" {
		t.Fatalf("chain = %v", chainIDs(chain))
	}

	res, err := ret.CleanupExpired(context.Background())
	if err != nil {
		t.Fatalf("CleanupExpired: %v", err)
	}
	if len(res.Deleted) != 0 {
		t.Errorf("deleted pinned chain members: %v", res.Deleted)
	}
	release()
}
