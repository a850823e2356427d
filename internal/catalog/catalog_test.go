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
	"testing"
	"time"

	"github.com/tomtom215/lifeboat/internal/models"
)

type factory func(t *testing.T) Catalog

func implementations() map[string]factory {
	return map[string]factory{
		"memory": func(t *testing.T) Catalog {
			t.Helper()
			return NewMemory()
		},
		"badger": func(t *testing.T) Catalog {
			t.Helper()
			c, err := OpenBadger(BadgerOptions{Path: t.TempDir()})
			if err != nil {
				t.Fatalf("OpenBadger: %v", err)
			}
			t.Cleanup(func() { _ = c.Close() })
			return c
		},
	}
}

var base = time.Date(2026, 4, 1, 3, 0, 0, 0, time.UTC)

func newRecord(id string, kind models.BackupKind, offset time.Duration) *models.BackupRecord {
	created := base.Add(offset)
	return &models.BackupRecord{
		ID:        id,
		Name:      "backup " + id,
		Kind:      kind,
		Status:    models.StatusPending,
		CreatedAt: created,
		Retention: models.NewRetention(created, 7),
		Tags:      []string{"nightly"},
	}
}

func TestCatalogBackups(t *testing.T) {
	for name, newCatalog := range implementations() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := newCatalog(t)

			if err := c.CreateBackup(ctx, newRecord("b1", models.KindFull, 0)); err != nil {
				t.Fatalf("CreateBackup: %v", err)
			}
			if err := c.CreateBackup(ctx, newRecord("b1", models.KindFull, 0)); !errors.Is(err, ErrExists) {
				t.Fatalf("duplicate CreateBackup error = %v, want ErrExists", err)
			}

			got, err := c.GetBackup(ctx, "b1")
			if err != nil {
				t.Fatalf("GetBackup: %v", err)
			}
			if got.Name != "backup b1" || !got.CreatedAt.Equal(base) {
				t.Errorf("GetBackup = %+v", got)
			}

			got.Name = "mutated"
			again, _ := c.GetBackup(ctx, "b1")
			if again.Name != "backup b1" {
				t.Error("caller mutation leaked into catalog")
			}

			if _, err := c.GetBackup(ctx, "missing"); !errors.Is(err, models.ErrBackupNotFound) {
				t.Errorf("GetBackup(missing) error = %v", err)
			}

			if err := c.DeleteBackup(ctx, "b1"); err != nil {
				t.Fatalf("DeleteBackup: %v", err)
			}
			if err := c.DeleteBackup(ctx, "b1"); !errors.Is(err, models.ErrBackupNotFound) {
				t.Errorf("second DeleteBackup error = %v", err)
			}
		})
	}
}

func TestCatalogUpdateBackupTransitions(t *testing.T) {
	for name, newCatalog := range implementations() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := newCatalog(t)
			if err := c.CreateBackup(ctx, newRecord("b1", models.KindFull, 0)); err != nil {
				t.Fatal(err)
			}

			setStatus := func(s models.BackupStatus) error {
				_, err := c.UpdateBackup(ctx, "b1", func(r *models.BackupRecord) error {
					r.Status = s
					return nil
				})
				return err
			}

			if err := setStatus(models.StatusCompleted); !errors.Is(err, models.ErrInvalidTransition) {
				t.Fatalf("pending->completed error = %v, want ErrInvalidTransition", err)
			}
			if err := setStatus(models.StatusInProgress); err != nil {
				t.Fatalf("pending->in_progress: %v", err)
			}
			if err := setStatus(models.StatusCompleted); err != nil {
				t.Fatalf("in_progress->completed: %v", err)
			}
			if err := setStatus(models.StatusFailed); !errors.Is(err, models.ErrInvalidTransition) {
				t.Fatalf("completed->failed error = %v, want ErrInvalidTransition", err)
			}

			got, _ := c.GetBackup(ctx, "b1")
			if got.Status != models.StatusCompleted {
				t.Errorf("status = %s, want completed", got.Status)
			}

			boom := errors.New("boom")
			_, err := c.UpdateBackup(ctx, "b1", func(r *models.BackupRecord) error {
				r.Name = "never stored"
				return boom
			})
			if !errors.Is(err, boom) {
				t.Errorf("UpdateBackup error = %v, want boom", err)
			}
			got, _ = c.GetBackup(ctx, "b1")
			if got.Name == "never stored" {
				t.Error("failed update was persisted")
			}
		})
	}
}

func TestCatalogConcurrentUpdates(t *testing.T) {
	for name, newCatalog := range implementations() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := newCatalog(t)
			if err := c.CreateBackup(ctx, newRecord("b1", models.KindFull, 0)); err != nil {
				t.Fatal(err)
			}

			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := c.UpdateBackup(ctx, "b1", func(r *models.BackupRecord) error {
						r.SizeBytes++
						return nil
					})
					if err != nil {
						t.Errorf("UpdateBackup: %v", err)
					}
				}()
			}
			wg.Wait()

			got, _ := c.GetBackup(ctx, "b1")
			if got.SizeBytes != 20 {
				t.Errorf("SizeBytes = %d, want 20", got.SizeBytes)
			}
		})
	}
}

func TestCatalogListBackups(t *testing.T) {
	for name, newCatalog := range implementations() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := newCatalog(t)

			for i := 0; i < 5; i++ {
				kind := models.KindFull
				if i%2 == 1 {
					kind = models.KindIncremental
				}
				rec := newRecord(fmt.Sprintf("b%d", i), kind, time.Duration(i)*time.Hour)
				if kind == models.KindIncremental {
					rec.BaseBackupID = "b0"
				}
				if err := c.CreateBackup(ctx, rec); err != nil {
					t.Fatal(err)
				}
			}

			tests := []struct {
				name    string
				filter  BackupFilter
				wantIDs []string
			}{
				{"all newest first", BackupFilter{}, []string{"b4", "b3", "b2", "b1", "b0"}},
				{"ascending", BackupFilter{Ascending: true}, []string{"b0", "b1", "b2", "b3", "b4"}},
				{"kind", BackupFilter{Kind: models.KindIncremental}, []string{"b3", "b1"}},
				{"base", BackupFilter{BaseBackupID: "b0"}, []string{"b3", "b1"}},
				{"since", BackupFilter{Since: base.Add(3 * time.Hour)}, []string{"b4", "b3"}},
				{"limit offset", BackupFilter{Limit: 2, Offset: 1}, []string{"b3", "b2"}},
				{"offset past end", BackupFilter{Offset: 10}, []string{}},
				{"status", BackupFilter{Statuses: []models.BackupStatus{models.StatusCompleted}}, []string{}},
				{"tag", BackupFilter{Tag: "nightly", Limit: 1}, []string{"b4"}},
			}
			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					got, err := c.ListBackups(ctx, tt.filter)
					if err != nil {
						t.Fatalf("ListBackups: %v", err)
					}
					if len(got) != len(tt.wantIDs) {
						t.Fatalf("got %d records, want %d", len(got), len(tt.wantIDs))
					}
					for i, rec := range got {
						if rec.ID != tt.wantIDs[i] {
							t.Errorf("position %d = %s, want %s", i, rec.ID, tt.wantIDs[i])
						}
					}
				})
			}
		})
	}
}

func TestCatalogRestorePointsAreImmutable(t *testing.T) {
	for name, newCatalog := range implementations() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := newCatalog(t)
			rp := &models.RestorePoint{ID: "rp1", BackupID: "b1", RestoredAt: base, DataIntegrity: true, Dependencies: []string{"b0"}}
			if err := c.CreateRestorePoint(ctx, rp); err != nil {
				t.Fatal(err)
			}
			if err := c.CreateRestorePoint(ctx, rp); !errors.Is(err, ErrExists) {
				t.Errorf("overwrite error = %v, want ErrExists", err)
			}
			list, err := c.ListRestorePoints(ctx, "b1")
			if err != nil || len(list) != 1 {
				t.Fatalf("ListRestorePoints = %v, %v", list, err)
			}
			if list[0].Dependencies[0] != "b0" {
				t.Errorf("dependencies = %v", list[0].Dependencies)
			}
			other, _ := c.ListRestorePoints(ctx, "b9")
			if len(other) != 0 {
				t.Errorf("filter by backup returned %d points", len(other))
			}
		})
	}
}

func TestCatalogSchedulesPlansAlerts(t *testing.T) {
	for name, newCatalog := range implementations() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := newCatalog(t)

			s := &models.BackupSchedule{ID: "s1", Name: "nightly", Kind: models.KindFull, Frequency: models.FrequencyDaily, Time: "02:00", Enabled: true, CreatedAt: base}
			if err := c.PutSchedule(ctx, s); err != nil {
				t.Fatal(err)
			}
			updated, err := c.UpdateSchedule(ctx, "s1", func(s *models.BackupSchedule) error {
				s.LastFullBackupID = "b1"
				return nil
			})
			if err != nil || updated.LastFullBackupID != "b1" {
				t.Fatalf("UpdateSchedule = %+v, %v", updated, err)
			}
			if err := c.DeleteSchedule(ctx, "s1"); err != nil {
				t.Fatal(err)
			}
			if _, err := c.GetSchedule(ctx, "s1"); !errors.Is(err, models.ErrScheduleNotFound) {
				t.Errorf("GetSchedule after delete error = %v", err)
			}

			p := &models.DisasterRecoveryPlan{ID: "p1", Name: "db outage", Priority: models.PriorityCritical, CreatedAt: base}
			if err := c.CreatePlan(ctx, p); err != nil {
				t.Fatal(err)
			}
			_, err = c.UpdatePlan(ctx, "p1", func(p *models.DisasterRecoveryPlan) error {
				p.TestHistory = append(p.TestHistory, models.TestResult{ID: "t1", Success: true, Issues: []string{}})
				return nil
			})
			if err != nil {
				t.Fatal(err)
			}
			got, _ := c.GetPlan(ctx, "p1")
			if len(got.TestHistory) != 1 {
				t.Errorf("history length = %d, want 1", len(got.TestHistory))
			}
			if _, err := c.GetPlan(ctx, "nope"); !errors.Is(err, models.ErrPlanNotFound) {
				t.Errorf("GetPlan(nope) error = %v", err)
			}

			for i, id := range []string{"a1", "a2"} {
				a := &models.Alert{ID: id, Kind: models.AlertBackupFailed, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
				if err := c.CreateAlert(ctx, a); err != nil {
					t.Fatal(err)
				}
			}
			if _, err := c.UpdateAlert(ctx, "a1", func(a *models.Alert) error {
				a.Acknowledged = true
				return nil
			}); err != nil {
				t.Fatal(err)
			}
			all, _ := c.ListAlerts(ctx, false)
			open, _ := c.ListAlerts(ctx, true)
			if len(all) != 2 || len(open) != 1 || open[0].ID != "a2" {
				t.Errorf("alerts all=%d open=%v", len(all), open)
			}
			if _, err := c.UpdateAlert(ctx, "zz", func(*models.Alert) error { return nil }); !errors.Is(err, models.ErrAlertNotFound) {
				t.Errorf("UpdateAlert(zz) error = %v", err)
			}
		})
	}
}

func TestCatalogClosed(t *testing.T) {
	for name, newCatalog := range implementations() {
		t.Run(name, func(t *testing.T) {
			c := newCatalog(t)
			if err := c.Ping(context.Background()); err != nil {
				t.Fatalf("Ping: %v", err)
			}
			if err := c.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}
			if err := c.Ping(context.Background()); !errors.Is(err, ErrClosed) {
				t.Errorf("Ping after Close = %v, want ErrClosed", err)
			}
		})
	}
}

func TestBadgerPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	c, err := OpenBadger(BadgerOptions{Path: dir, SyncWrites: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.CreateBackup(ctx, newRecord("b1", models.KindFull, 0)); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	c, err = OpenBadger(BadgerOptions{Path: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if _, err := c.GetBackup(ctx, "b1"); err != nil {
		t.Errorf("record lost across reopen: %v", err)
	}
	if err := c.RunGC(); err != nil {
		t.Errorf("RunGC: %v", err)
	}
}
