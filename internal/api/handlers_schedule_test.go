// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package api

import (
	"net/http"
	"testing"

	"github.com/tomtom215/lifeboat/internal/models"
)

func TestScheduleLifecycle(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodPost, "/api/v1/schedules", map[string]interface{}{
		"name":      "nightly",
		"kind":      "full",
		"frequency": "daily",
		"time":      "02:30",
	})
	expectStatus(t, w, http.StatusCreated)
	var created models.BackupSchedule
	decodeData(t, env, &created)
	if !created.Enabled || created.NextRun.IsZero() {
		t.Fatalf("new schedule should be enabled with a next run: %+v", created)
	}

	w, env = s.do(t, http.MethodPost, "/api/v1/schedules/"+created.ID+"/disable", nil)
	expectStatus(t, w, http.StatusOK)
	var disabled models.BackupSchedule
	decodeData(t, env, &disabled)
	if disabled.Enabled {
		t.Error("schedule still enabled after disable")
	}

	w, _ = s.do(t, http.MethodPost, "/api/v1/schedules/"+created.ID+"/enable", nil)
	expectStatus(t, w, http.StatusOK)

	w, env = s.do(t, http.MethodGet, "/api/v1/schedules", nil)
	expectStatus(t, w, http.StatusOK)
	if env.Metadata.Total == nil || *env.Metadata.Total != 1 {
		t.Errorf("total = %v, want 1", env.Metadata.Total)
	}

	w, _ = s.do(t, http.MethodDelete, "/api/v1/schedules/"+created.ID, nil)
	expectStatus(t, w, http.StatusNoContent)

	w, env = s.do(t, http.MethodGet, "/api/v1/schedules/"+created.ID, nil)
	expectStatus(t, w, http.StatusNotFound)
	expectErrorCode(t, env, models.CodeScheduleNotFound)
}

func TestCreateSchedule_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing name", map[string]interface{}{"kind": "full", "frequency": "daily", "time": "02:00"}},
		{"bad time", map[string]interface{}{"name": "x", "kind": "full", "frequency": "daily", "time": "25:00"}},
		{"bad frequency", map[string]interface{}{"name": "x", "kind": "full", "frequency": "hourly", "time": "02:00"}},
		{"differential kind", map[string]interface{}{"name": "x", "kind": "differential", "frequency": "daily", "time": "02:00"}},
		{"bad weekday", map[string]interface{}{"name": "x", "kind": "full", "frequency": "weekly", "time": "02:00", "weekday": 9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			w, env := s.do(t, http.MethodPost, "/api/v1/schedules", tt.body)
			expectStatus(t, w, http.StatusBadRequest)
			expectErrorCode(t, env, models.CodeScheduleInvalid)
		})
	}
}

func TestScheduleNotFound(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/v1/schedules/nope/enable", "/api/v1/schedules/nope/disable"} {
		w, env := s.do(t, http.MethodPost, path, nil)
		expectStatus(t, w, http.StatusNotFound)
		expectErrorCode(t, env, models.CodeScheduleNotFound)
	}
	w, env := s.do(t, http.MethodDelete, "/api/v1/schedules/nope", nil)
	expectStatus(t, w, http.StatusNotFound)
	expectErrorCode(t, env, models.CodeScheduleNotFound)
}
