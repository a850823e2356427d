// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/lifeboat/internal/backup"
	"github.com/tomtom215/lifeboat/internal/catalog"
	"github.com/tomtom215/lifeboat/internal/crypto"
	"github.com/tomtom215/lifeboat/internal/drplan"
	"github.com/tomtom215/lifeboat/internal/health"
	"github.com/tomtom215/lifeboat/internal/models"
	"github.com/tomtom215/lifeboat/internal/schedule"
	"github.com/tomtom215/lifeboat/internal/source"
	"github.com/tomtom215/lifeboat/internal/storage"
)

// testServer wires the real components against in-memory catalog and
// storage plus a temporary source directory.
type testServer struct {
	cat        *catalog.Memory
	exec       *backup.Executor
	monitor    *health.Monitor
	restoreDir string
	handler    http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	srcDir := t.TempDir()
	restoreDir := filepath.Join(t.TempDir(), "restore")
	if err := os.WriteFile(filepath.Join(srcDir, "app.db"), []byte("rows v1"), 0o600); err != nil {
		t.Fatalf("write source: %v", err)
	}

	cat := catalog.NewMemory()
	store := storage.NewMemory()
	src, err := source.NewDirectory(srcDir, "schema-1", restoreDir)
	if err != nil {
		t.Fatalf("NewDirectory: %v", err)
	}
	enc, err := crypto.NewAESGCM("api test secret", "k1")
	if err != nil {
		t.Fatalf("NewAESGCM: %v", err)
	}

	retention := backup.NewRetention(cat, store, 1)
	validator := backup.NewValidator(store)
	exec := backup.NewExecutor(backup.Config{DefaultRetentionDays: 30, Encrypt: true, Creator: "api-test"}, cat, store, src, enc, retention)
	restorer := backup.NewRestorer(cat, store, src, enc, validator, retention)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = exec.Shutdown(ctx)
		restorer.Wait()
	})

	monitor := health.New(health.Config{}, cat, store, nil)
	h := NewHandler(Deps{
		Catalog:   cat,
		Executor:  exec,
		Restorer:  restorer,
		Validator: validator,
		Retention: retention,
		Scheduler: schedule.New(schedule.Config{Location: time.UTC}, cat, schedule.ExecutorBackups(exec), retention, nil),
		Planner: drplan.New(drplan.Config{}, cat, nil, drplan.Builtins{
			Backups:  exec,
			Verifier: validator,
			Restorer: restorer,
		}, nil),
		Monitor: monitor,
	})

	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitDisabled = true
	return &testServer{
		cat:        cat,
		exec:       exec,
		monitor:    monitor,
		restoreDir: restoreDir,
		handler:    NewRouter(h, cfg).SetupChi(),
	}
}

// envelope mirrors models.APIResponse with Data left raw for decoding
// into the expected type.
type envelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") == "application/json" {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s %s: %v\n%s", method, path, err, w.Body.String())
		}
	}
	return w, env
}

func decodeData(t *testing.T, env envelope, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data: %v\n%s", err, env.Data)
	}
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d; body %s", w.Code, want, w.Body.String())
	}
}

func expectErrorCode(t *testing.T, env envelope, want string) {
	t.Helper()
	if env.Status != "error" || env.Error == nil {
		t.Fatalf("expected error envelope, got status %q", env.Status)
	}
	if env.Error.Code != want {
		t.Errorf("error code = %q, want %q (%s)", env.Error.Code, want, env.Error.Message)
	}
}

// createFull creates a full backup through the API and waits for it.
func (s *testServer) createFull(t *testing.T) *models.BackupRecord {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/v1/backups", CreateBackupRequest{Name: "nightly", Wait: true})
	expectStatus(t, w, http.StatusCreated)
	var rec models.BackupRecord
	decodeData(t, env, &rec)
	return &rec
}
