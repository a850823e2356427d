// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/lifeboat/internal/catalog"
	"github.com/tomtom215/lifeboat/internal/models"
)

func TestExecutor_CreateFullThenRestore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rec, err := env.exec.CreateFull(ctx, Options{Name: "nightly", RetentionDays: 7})
	if err != nil {
		t.Fatalf("CreateFull: %v", err)
	}

	if rec.Kind != models.KindFull {
		t.Errorf("Kind = %s, want full", rec.Kind)
	}
	if rec.Status != models.StatusCompleted {
		t.Errorf("Status = %s, want completed", rec.Status)
	}
	if rec.SizeBytes <= 0 {
		t.Errorf("SizeBytes = %d, want > 0", rec.SizeBytes)
	}
	if rec.Checksum == "" {
		t.Error("Checksum is empty")
	}
	if !rec.Encrypted {
		t.Error("backup should be encrypted by default")
	}
	if want := rec.CreatedAt.AddDate(0, 0, 7); !rec.Retention.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", rec.Retention.ExpiresAt, want)
	}
	if rec.SourceVersion != "schema-7" {
		t.Errorf("SourceVersion = %q", rec.SourceVersion)
	}
	if rec.CreatedBy != "tester" {
		t.Errorf("CreatedBy = %q", rec.CreatedBy)
	}

	rp, err := env.restorer.Restore(ctx, rec.ID, RestoreOptions{})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !rp.DataIntegrity {
		t.Error("DataIntegrity = false, want true")
	}
	if rp.BackupID != rec.ID {
		t.Errorf("BackupID = %s, want %s", rp.BackupID, rec.ID)
	}
	if len(rp.Dependencies) != 0 {
		t.Errorf("Dependencies = %v, want none for a full backup", rp.Dependencies)
	}
	if got := readRestored(t, env.restoreDir, "data/users.db"); got != "users v1" {
		t.Errorf("restored users.db = %q", got)
	}

	points, err := env.cat.ListRestorePoints(ctx, rec.ID)
	if err != nil {
		t.Fatalf("ListRestorePoints: %v", err)
	}
	if len(points) != 1 {
		t.Errorf("restore points = %d, want 1", len(points))
	}
}

func TestExecutor_BaseValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()

	seedBackup(t, env, "pending-base", models.KindFull, models.StatusPending, "", now, 30)
	seedBackup(t, env, "failed-base", models.KindFull, models.StatusFailed, "", now, 30)
	full := seedBackup(t, env, "full-base", models.KindFull, models.StatusCompleted, "", now, 30)
	seedBackup(t, env, "incr-base", models.KindIncremental, models.StatusCompleted, full.ID, now, 30)

	tests := []struct {
		name   string
		kind   models.BackupKind
		baseID string
	}{
		{"unknown base", models.KindIncremental, "does-not-exist"},
		{"empty base", models.KindIncremental, ""},
		{"pending base", models.KindIncremental, "pending-base"},
		{"failed base", models.KindIncremental, "failed-base"},
		{"differential on incremental", models.KindDifferential, "incr-base"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := countBackups(t, env.cat)

			var err error
			if tt.kind == models.KindDifferential {
				_, err = env.exec.CreateDifferential(ctx, tt.baseID, Options{})
			} else {
				_, err = env.exec.CreateIncremental(ctx, tt.baseID, Options{})
			}
			if !errors.Is(err, models.ErrBaseBackupNotFound) {
				t.Fatalf("err = %v, want ErrBaseBackupNotFound", err)
			}
			if after := countBackups(t, env.cat); after != before {
				t.Errorf("catalog grew from %d to %d", before, after)
			}
		})
	}
}

func TestExecutor_IncrementalChainRestore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	full, err := env.exec.CreateFull(ctx, Options{Name: "base"})
	if err != nil {
		t.Fatalf("CreateFull: %v", err)
	}

	writeSourceFile(t, env.srcDir, "data/users.db", "users v2")
	touchFuture(t, env.srcDir, "data/users.db")
	incr, err := env.exec.CreateIncremental(ctx, full.ID, Options{Name: "delta-1"})
	if err != nil {
		t.Fatalf("CreateIncremental: %v", err)
	}
	if incr.BaseBackupID != full.ID {
		t.Errorf("BaseBackupID = %s, want %s", incr.BaseBackupID, full.ID)
	}
	if incr.ChangesSince == nil || !incr.ChangesSince.Equal(full.CreatedAt) {
		t.Errorf("ChangesSince = %v, want %v", incr.ChangesSince, full.CreatedAt)
	}

	writeSourceFile(t, env.srcDir, "data/orders.db", "orders v1")
	touchFuture(t, env.srcDir, "data/orders.db")
	incr2, err := env.exec.CreateIncremental(ctx, incr.ID, Options{Name: "delta-2"})
	if err != nil {
		t.Fatalf("second CreateIncremental: %v", err)
	}

	rp, err := env.restorer.Restore(ctx, incr2.ID, RestoreOptions{})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	wantDeps := []string{full.ID, incr.ID}
	if strings.Join(rp.Dependencies, ",") != strings.Join(wantDeps, ",") {
		t.Errorf("Dependencies = %v, want %v", rp.Dependencies, wantDeps)
	}
	if got := readRestored(t, env.restoreDir, "data/users.db"); got != "users v2" {
		t.Errorf("users.db = %q, want users v2", got)
	}
	if got := readRestored(t, env.restoreDir, "data/orders.db"); got != "orders v1" {
		t.Errorf("orders.db = %q, want orders v1", got)
	}
	if got := readRestored(t, env.restoreDir, "config.yaml"); got != "mode: primary" {
		t.Errorf("config.yaml = %q", got)
	}
}

func TestExecutor_IncrementalCapturesRenamedFile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(filepath.Join(env.srcDir, "config.yaml"), old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	full, err := env.exec.CreateFull(ctx, Options{Name: "base"})
	if err != nil {
		t.Fatalf("CreateFull: %v", err)
	}

	if err := os.Rename(filepath.Join(env.srcDir, "config.yaml"), filepath.Join(env.srcDir, "config-renamed.yaml")); err != nil {
		t.Fatalf("rename: %v", err)
	}
	incr, err := env.exec.CreateIncremental(ctx, full.ID, Options{Name: "after-rename"})
	if err != nil {
		t.Fatalf("CreateIncremental: %v", err)
	}

	rp, err := env.restorer.Restore(ctx, incr.ID, RestoreOptions{})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !rp.DataIntegrity {
		t.Error("DataIntegrity = false, want true")
	}
	if got := readRestored(t, env.restoreDir, "config-renamed.yaml"); got != "mode: primary" {
		t.Errorf("config-renamed.yaml = %q, want mode: primary", got)
	}
	if _, err := os.Stat(filepath.Join(env.restoreDir, "config.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("config.yaml should not survive the rename, stat err = %v", err)
	}
}

func TestExecutor_IncrementalNeedsReadableBase(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	full, err := env.exec.CreateFull(ctx, Options{})
	if err != nil {
		t.Fatalf("CreateFull: %v", err)
	}
	if err := env.store.Delete(ctx, full.Location); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	rec, err := env.exec.CreateIncremental(ctx, full.ID, Options{})
	if !errors.Is(err, models.ErrBackupCreationFailed) {
		t.Fatalf("err = %v, want ErrBackupCreationFailed", err)
	}
	if rec == nil || rec.Status != models.StatusFailed {
		t.Errorf("record = %+v, want a failed record", rec)
	}
}

func TestExecutor_Differential(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	full, err := env.exec.CreateFull(ctx, Options{})
	if err != nil {
		t.Fatalf("CreateFull: %v", err)
	}
	writeSourceFile(t, env.srcDir, "config.yaml", "mode: replica")
	touchFuture(t, env.srcDir, "config.yaml")

	diff, err := env.exec.CreateDifferential(ctx, full.ID, Options{Encrypt: boolPtr(false)})
	if err != nil {
		t.Fatalf("CreateDifferential: %v", err)
	}
	if diff.Kind != models.KindDifferential || diff.Encrypted {
		t.Errorf("got kind=%s encrypted=%v", diff.Kind, diff.Encrypted)
	}

	target := t.TempDir()
	if _, err := env.restorer.Restore(ctx, diff.ID, RestoreOptions{TargetLocation: target, Overwrite: true}); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if got := readRestored(t, target, "config.yaml"); got != "mode: replica" {
		t.Errorf("config.yaml = %q", got)
	}
}

func TestExecutor_StorageFailureMarksFailed(t *testing.T) {
	env := newTestEnv(t)
	store := &faultyStore{Storage: env.store, writeErr: errInjected}
	exec := NewExecutor(Config{}, env.cat, store, env.src, nil, nil)

	var failedID atomic.Value
	exec.SetOnBackupFailed(func(rec *models.BackupRecord, _ error) { failedID.Store(rec.ID) })

	rec, err := exec.CreateFull(context.Background(), Options{})
	if !errors.Is(err, models.ErrBackupCreationFailed) {
		t.Fatalf("err = %v, want ErrBackupCreationFailed", err)
	}
	if !errors.Is(err, errInjected) {
		t.Errorf("err = %v, should wrap the storage cause", err)
	}
	if rec == nil {
		t.Fatal("expected the failed record to be returned")
	}

	stored, err := env.cat.GetBackup(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("GetBackup: %v", err)
	}
	if stored.Status != models.StatusFailed {
		t.Errorf("Status = %s, want failed", stored.Status)
	}
	if !strings.Contains(stored.Error, errInjected.Error()) {
		t.Errorf("Error = %q", stored.Error)
	}
	if failedID.Load() != rec.ID {
		t.Errorf("failure hook saw %v, want %s", failedID.Load(), rec.ID)
	}
}

func TestExecutor_EncryptionWithoutKey(t *testing.T) {
	env := newTestEnv(t)
	exec := NewExecutor(Config{Encrypt: true}, env.cat, env.store, env.src, nil, nil)

	_, err := exec.CreateFull(context.Background(), Options{})
	if !errors.Is(err, ErrEncryptionUnavailable) {
		t.Fatalf("err = %v, want ErrEncryptionUnavailable", err)
	}
	if n := countBackups(t, env.cat); n != 0 {
		t.Errorf("catalog has %d records, want 0", n)
	}
}

func TestExecutor_StartIsAsync(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var completed atomic.Int32
	env.exec.SetOnBackupComplete(func(*models.BackupRecord) { completed.Add(1) })

	task, err := env.exec.StartFull(ctx, Options{Tags: []string{"manual"}})
	if err != nil {
		t.Fatalf("StartFull: %v", err)
	}
	if task.ID == "" {
		t.Fatal("task has no id")
	}

	// The record exists as soon as Start returns.
	if _, err := env.cat.GetBackup(ctx, task.ID); err != nil {
		t.Fatalf("GetBackup right after start: %v", err)
	}

	select {
	case <-task.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("backup did not finish")
	}
	rec, err := task.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !rec.HasTag("manual") {
		t.Errorf("Tags = %v", rec.Tags)
	}
	if completed.Load() != 1 {
		t.Errorf("completion hook ran %d times", completed.Load())
	}

	completedRecs, err := env.cat.ListBackups(ctx, catalog.BackupFilter{Statuses: []models.BackupStatus{models.StatusCompleted}})
	if err != nil {
		t.Fatalf("ListBackups: %v", err)
	}
	if len(completedRecs) != 1 {
		t.Errorf("completed backups = %d, want 1", len(completedRecs))
	}
}

func TestExecutor_CanceledContext(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.exec.CreateFull(ctx, Options{})
	if err == nil {
		t.Fatal("expected error with canceled context")
	}
}

func TestTask_WaitHonorsContext(t *testing.T) {
	task := newTask[int]("t1")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := task.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want DeadlineExceeded", err)
	}

	task.finish(42, nil)
	task.finish(7, errInjected)
	got, err := task.Wait(context.Background())
	if err != nil || got != 42 {
		t.Errorf("Wait = %d, %v; want 42, nil", got, err)
	}
}
