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

// CreatePlan handles POST /api/v1/plans.
func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var spec models.PlanSpec
	if !decodeJSON(w, r, &spec, false) {
		return
	}
	plan, err := h.planner.CreatePlan(r.Context(), spec)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusCreated, plan)
}

// ListPlans handles GET /api/v1/plans.
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.planner.List(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondList(w, r, plans, len(plans))
}

// GetPlan handles GET /api/v1/plans/{id}.
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.planner.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, plan)
}

// TestPlan handles POST /api/v1/plans/{id}/test. It runs the drill
// synchronously; a drill that finds issues is still a 200.
func (h *Handler) TestPlan(w http.ResponseWriter, r *http.Request) {
	result, err := h.planner.TestPlan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, result)
}
