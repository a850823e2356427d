// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Health handles GET /api/v1/health. Degraded health is reported in the
// body with a 200.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, h.monitor.CheckHealth(r.Context()))
}

// Live handles GET /healthz.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// ListAlerts handles GET /api/v1/alerts.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.monitor.ListAlerts(r.Context(), getBoolParam(r, "unacknowledged", false))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondList(w, r, alerts, len(alerts))
}

// AcknowledgeAlert handles POST /api/v1/alerts/{id}/ack.
func (h *Handler) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	alert, err := h.monitor.AcknowledgeAlert(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, alert)
}
