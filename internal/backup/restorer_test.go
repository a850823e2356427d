// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package backup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/lifeboat/internal/models"
)

func TestRestorer_NotRestorable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()

	tests := []struct {
		id     string
		status models.BackupStatus
	}{
		{"rec-pending", models.StatusPending},
		{"rec-in-progress", models.StatusInProgress},
		{"rec-failed", models.StatusFailed},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			seedBackup(t, env, tt.id, models.KindFull, tt.status, "", now, 30)

			rp, err := env.restorer.Restore(ctx, tt.id, RestoreOptions{})
			if !errors.Is(err, models.ErrBackupNotRestorable) {
				t.Fatalf("err = %v, want ErrBackupNotRestorable", err)
			}
			if rp != nil {
				t.Errorf("unexpected restore point %+v", rp)
			}
			points, err := env.cat.ListRestorePoints(ctx, tt.id)
			if err != nil {
				t.Fatalf("ListRestorePoints: %v", err)
			}
			if len(points) != 0 {
				t.Errorf("restore points = %d, want 0", len(points))
			}
		})
	}
}

func TestRestorer_UnknownBackup(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.restorer.Restore(context.Background(), "missing", RestoreOptions{})
	if !errors.Is(err, models.ErrBackupNotFound) {
		t.Fatalf("err = %v, want ErrBackupNotFound", err)
	}
}

func TestRestorer_IntegrityFailureLeavesTargetUntouched(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rec, err := env.exec.CreateFull(ctx, Options{})
	if err != nil {
		t.Fatalf("CreateFull: %v", err)
	}
	env.store.Corrupt(rec.Location, []byte("bit rot"))

	target := t.TempDir()
	writeSourceFile(t, target, "live.db", "production data")

	_, err = env.restorer.Restore(ctx, rec.ID, RestoreOptions{TargetLocation: target, Overwrite: true})
	if !errors.Is(err, models.ErrIntegrityCheckFailed) {
		t.Fatalf("err = %v, want ErrIntegrityCheckFailed", err)
	}
	if got := readRestored(t, target, "live.db"); got != "production data" {
		t.Errorf("target was modified: %q", got)
	}
	points, err := env.cat.ListRestorePoints(ctx, rec.ID)
	if err != nil {
		t.Fatalf("ListRestorePoints: %v", err)
	}
	if len(points) != 0 {
		t.Errorf("restore points = %d, want 0", len(points))
	}
}

func TestRestorer_CorruptBaseFailsIncrementalRestore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	full, err := env.exec.CreateFull(ctx, Options{})
	if err != nil {
		t.Fatalf("CreateFull: %v", err)
	}
	incr, err := env.exec.CreateIncremental(ctx, full.ID, Options{})
	if err != nil {
		t.Fatalf("CreateIncremental: %v", err)
	}
	env.store.Corrupt(full.Location, []byte("bit rot"))

	if _, err := env.restorer.Restore(ctx, incr.ID, RestoreOptions{}); !errors.Is(err, models.ErrIntegrityCheckFailed) {
		t.Fatalf("err = %v, want ErrIntegrityCheckFailed", err)
	}
}

func TestRestorer_MissingBaseInChain(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now().UTC()
	seedBackup(t, env, "orphan", models.KindIncremental, models.StatusCompleted, "gone", now, 30)

	_, err := env.restorer.Restore(context.Background(), "orphan", RestoreOptions{})
	if !errors.Is(err, models.ErrBackupNotRestorable) {
		t.Errorf("err = %v, want ErrBackupNotRestorable", err)
	}
	if !errors.Is(err, models.ErrBaseBackupNotFound) {
		t.Errorf("err = %v, want it to wrap ErrBaseBackupNotFound", err)
	}
}

func TestRestorer_SkipValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rec, err := env.exec.CreateFull(ctx, Options{Encrypt: boolPtr(false)})
	if err != nil {
		t.Fatalf("CreateFull: %v", err)
	}
	rp, err := env.restorer.Restore(ctx, rec.ID, RestoreOptions{ValidateIntegrity: boolPtr(false)})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if rp.DataIntegrity {
		t.Error("DataIntegrity should be false when validation was skipped")
	}
}

func TestRestorer_RefusesNonEmptyTarget(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rec, err := env.exec.CreateFull(ctx, Options{})
	if err != nil {
		t.Fatalf("CreateFull: %v", err)
	}
	target := t.TempDir()
	writeSourceFile(t, target, "live.db", "production data")

	if _, err := env.restorer.Restore(ctx, rec.ID, RestoreOptions{TargetLocation: target}); !errors.Is(err, models.ErrRestoreFailed) {
		t.Fatalf("err = %v, want ErrRestoreFailed", err)
	}
}

func TestRestorer_StartRestore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rec, err := env.exec.CreateFull(ctx, Options{})
	if err != nil {
		t.Fatalf("CreateFull: %v", err)
	}
	task := env.restorer.StartRestore(ctx, rec.ID, RestoreOptions{})
	rp, err := task.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if rp.BackupID != rec.ID {
		t.Errorf("BackupID = %s", rp.BackupID)
	}
}

func TestValidator(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rec, err := env.exec.CreateFull(ctx, Options{})
	if err != nil {
		t.Fatalf("CreateFull: %v", err)
	}

	if !env.validator.Verify(ctx, rec) {
		t.Fatal("fresh backup should verify")
	}
	res := env.validator.Validate(ctx, rec)
	if res.ActualChecksum != rec.Checksum || res.SizeBytes != rec.SizeBytes {
		t.Errorf("result = %+v", res)
	}

	tests := []struct {
		name   string
		mutate func(r *models.BackupRecord)
	}{
		{"wrong checksum", func(r *models.BackupRecord) { r.Checksum = "deadbeef" }},
		{"no location", func(r *models.BackupRecord) { r.Location = "" }},
		{"missing object", func(r *models.BackupRecord) { r.Location = "backups/nope.lbk" }},
		{"no checksum", func(r *models.BackupRecord) { r.Checksum = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := rec.Clone()
			tt.mutate(c)
			res := env.validator.Validate(ctx, c)
			if res.Valid {
				t.Fatal("expected invalid")
			}
			if len(res.Errors) == 0 {
				t.Error("expected an error message")
			}
		})
	}

	stored, err := env.cat.GetBackup(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetBackup: %v", err)
	}
	if stored.Checksum != rec.Checksum || stored.Status != rec.Status {
		t.Error("validation must not mutate the catalog")
	}
}
