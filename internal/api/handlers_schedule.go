// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/lifeboat/internal/models"
)

// CreateSchedule handles POST /api/v1/schedules.
func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var spec models.ScheduleSpec
	if !decodeJSON(w, r, &spec, false) {
		return
	}
	s, err := h.scheduler.Schedule(r.Context(), spec)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusCreated, s)
}

// ListSchedules handles GET /api/v1/schedules.
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	list, err := h.scheduler.List(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondList(w, r, list, len(list))
}

// GetSchedule handles GET /api/v1/schedules/{id}.
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	s, err := h.scheduler.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, s)
}

// DeleteSchedule handles DELETE /api/v1/schedules/{id}.
func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	if err := h.scheduler.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EnableSchedule handles POST /api/v1/schedules/{id}/enable.
func (h *Handler) EnableSchedule(w http.ResponseWriter, r *http.Request) {
	h.setScheduleEnabled(w, r, true)
}

// DisableSchedule handles POST /api/v1/schedules/{id}/disable.
func (h *Handler) DisableSchedule(w http.ResponseWriter, r *http.Request) {
	h.setScheduleEnabled(w, r, false)
}

func (h *Handler) setScheduleEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	s, err := h.scheduler.SetEnabled(r.Context(), chi.URLParam(r, "id"), enabled)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, s)
}
