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

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodGet, "/api/v1/health", nil)
	expectStatus(t, w, http.StatusOK)
	var report models.HealthReport
	decodeData(t, env, &report)
	if report.Status != models.HealthCritical {
		t.Errorf("status with no backups = %s, want critical", report.Status)
	}

	s.createFull(t)
	w, env = s.do(t, http.MethodGet, "/api/v1/health", nil)
	expectStatus(t, w, http.StatusOK)
	decodeData(t, env, &report)
	if report.Status != models.HealthHealthy {
		t.Errorf("status after a fresh backup = %s, want healthy (issues %v)", report.Status, report.Issues)
	}
}

func TestAlerts(t *testing.T) {
	s := newTestServer(t)

	alert, err := s.monitor.SendAlert(t.Context(), models.AlertBackupFailed, "nightly failed")
	if err != nil {
		t.Fatalf("SendAlert: %v", err)
	}

	w, env := s.do(t, http.MethodGet, "/api/v1/alerts?unacknowledged=true", nil)
	expectStatus(t, w, http.StatusOK)
	var alerts []models.Alert
	decodeData(t, env, &alerts)
	if len(alerts) != 1 || alerts[0].ID != alert.ID {
		t.Fatalf("unacknowledged alerts = %+v", alerts)
	}

	w, env = s.do(t, http.MethodPost, "/api/v1/alerts/"+alert.ID+"/ack", nil)
	expectStatus(t, w, http.StatusOK)
	var acked models.Alert
	decodeData(t, env, &acked)
	if !acked.Acknowledged || acked.AcknowledgedAt == nil {
		t.Errorf("alert not acknowledged: %+v", acked)
	}

	w, env = s.do(t, http.MethodGet, "/api/v1/alerts?unacknowledged=true", nil)
	expectStatus(t, w, http.StatusOK)
	if env.Metadata.Total == nil || *env.Metadata.Total != 0 {
		t.Errorf("unacknowledged total = %v, want 0", env.Metadata.Total)
	}

	w, env = s.do(t, http.MethodGet, "/api/v1/alerts", nil)
	expectStatus(t, w, http.StatusOK)
	if env.Metadata.Total == nil || *env.Metadata.Total != 1 {
		t.Errorf("total = %v, want 1", env.Metadata.Total)
	}

	w, env = s.do(t, http.MethodPost, "/api/v1/alerts/nope/ack", nil)
	expectStatus(t, w, http.StatusNotFound)
	expectErrorCode(t, env, models.CodeAlertNotFound)
}

func TestLiveness(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(t, http.MethodGet, "/healthz", nil)
	expectStatus(t, w, http.StatusOK)
	if env.Status != "success" {
		t.Errorf("envelope status = %q", env.Status)
	}
}
