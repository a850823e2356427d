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
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/lifeboat/internal/catalog"
	"github.com/tomtom215/lifeboat/internal/crypto"
	"github.com/tomtom215/lifeboat/internal/models"
	"github.com/tomtom215/lifeboat/internal/source"
	"github.com/tomtom215/lifeboat/internal/storage"
)

// testEnv wires every component against in-memory collaborators and a
// temporary source directory.
type testEnv struct {
	srcDir     string
	restoreDir string

	cat       *catalog.Memory
	store     *storage.Memory
	src       *source.Directory
	enc       *crypto.AESGCM
	retention *Retention
	validator *Validator
	exec      *Executor
	restorer  *Restorer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		srcDir:     t.TempDir(),
		restoreDir: filepath.Join(t.TempDir(), "restore"),
		cat:        catalog.NewMemory(),
		store:      storage.NewMemory(),
	}
	writeSourceFile(t, env.srcDir, "data/users.db", "users v1")
	writeSourceFile(t, env.srcDir, "config.yaml", "mode: primary")

	src, err := source.NewDirectory(env.srcDir, "schema-7", env.restoreDir)
	if err != nil {
		t.Fatalf("NewDirectory: %v", err)
	}
	env.src = src

	enc, err := crypto.NewAESGCM("correct horse battery staple", "test-key")
	if err != nil {
		t.Fatalf("NewAESGCM: %v", err)
	}
	env.enc = enc

	env.retention = NewRetention(env.cat, env.store, 1)
	env.validator = NewValidator(env.store)
	env.exec = NewExecutor(Config{Encrypt: true, Creator: "tester"}, env.cat, env.store, env.src, env.enc, env.retention)
	env.restorer = NewRestorer(env.cat, env.store, env.src, env.enc, env.validator, env.retention)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = env.exec.Shutdown(ctx)
		env.restorer.Wait()
	})
	return env
}

func writeSourceFile(t *testing.T, root, name, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

// touchFuture pushes a file's mtime past any backup created so far.
func touchFuture(t *testing.T, root, name string) {
	t.Helper()
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(filepath.Join(root, filepath.FromSlash(name)), future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
}

func readRestored(t *testing.T, root, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(name)))
	if err != nil {
		t.Fatalf("read restored %s: %v", name, err)
	}
	return string(data)
}

func countBackups(t *testing.T, cat catalog.Catalog) int {
	t.Helper()
	recs, err := cat.ListBackups(context.Background(), catalog.BackupFilter{})
	if err != nil {
		t.Fatalf("ListBackups: %v", err)
	}
	return len(recs)
}

// seedBackup inserts a record directly, bypassing the executor.
func seedBackup(t *testing.T, env *testEnv, id string, kind models.BackupKind, status models.BackupStatus, base string, created time.Time, keepDays int) *models.BackupRecord {
	t.Helper()
	rec := &models.BackupRecord{
		ID:           id,
		Name:         id,
		Kind:         kind,
		Status:       status,
		CreatedAt:    created,
		Retention:    models.NewRetention(created, keepDays),
		BaseBackupID: base,
	}
	if status == models.StatusCompleted {
		obj, err := env.store.Write(context.Background(), storageKey(id), []byte("payload-"+id))
		if err != nil {
			t.Fatalf("store write: %v", err)
		}
		rec.Location = obj.Location
		rec.Checksum = obj.Checksum
		rec.SizeBytes = obj.Size
	}
	if err := env.cat.CreateBackup(context.Background(), rec); err != nil {
		t.Fatalf("CreateBackup(%s): %v", id, err)
	}
	return rec
}

// faultyStore fails selected operations.
type faultyStore struct {
	storage.Storage

	mu         sync.Mutex
	writeErr   error
	failDelete map[string]bool
}

var errInjected = errors.New("injected storage failure")

func (f *faultyStore) Write(ctx context.Context, key string, payload []byte) (*storage.Object, error) {
	f.mu.Lock()
	err := f.writeErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.Storage.Write(ctx, key, payload)
}

func (f *faultyStore) Delete(ctx context.Context, location string) error {
	f.mu.Lock()
	fail := f.failDelete[location]
	f.mu.Unlock()
	if fail {
		return errInjected
	}
	return f.Storage.Delete(ctx, location)
}

func boolPtr(b bool) *bool { return &b }
