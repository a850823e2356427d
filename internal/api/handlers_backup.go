// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/lifeboat/internal/backup"
	"github.com/tomtom215/lifeboat/internal/catalog"
	"github.com/tomtom215/lifeboat/internal/models"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// CreateBackupRequest is the request body for creating a backup.
// An empty body creates a full backup with the configured defaults.
type CreateBackupRequest struct {
	Kind          string   `json:"kind" validate:"omitempty,oneof=full incremental differential"`
	BaseBackupID  string   `json:"base_backup_id,omitempty"`
	Name          string   `json:"name,omitempty" validate:"max=128"`
	Description   string   `json:"description,omitempty" validate:"max=1024"`
	Tags          []string `json:"tags,omitempty" validate:"max=32,dive,required,max=64"`
	Encrypt       *bool    `json:"encrypt,omitempty"`
	RetentionDays int      `json:"retention_days,omitempty" validate:"omitempty,min=1,max=3650"`

	// Wait blocks the request until the backup finishes.
	Wait bool `json:"wait,omitempty"`
}

// RestoreRequest is the request body for restoring a backup.
type RestoreRequest struct {
	TargetLocation    string `json:"target_location,omitempty"`
	Overwrite         bool   `json:"overwrite"`
	ValidateIntegrity *bool  `json:"validate_integrity,omitempty"`

	// Async returns 202 with a task id instead of waiting for the restore.
	Async bool `json:"async,omitempty"`
}

// RestoreAccepted is returned for asynchronous restores.
type RestoreAccepted struct {
	TaskID   string `json:"task_id"`
	BackupID string `json:"backup_id"`
}

// CreateBackup handles POST /api/v1/backups.
func (h *Handler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	var req CreateBackupRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, r, http.StatusBadRequest, apiErr, nil)
		return
	}

	kind := models.BackupKind(req.Kind)
	if kind == "" {
		kind = models.KindFull
	}
	if kind.NeedsBase() && req.BaseBackupID == "" {
		respondError(w, r, http.StatusBadRequest, models.CodeValidation,
			"base_backup_id is required for "+string(kind)+" backups", nil)
		return
	}

	opts := backup.Options{
		Name:          req.Name,
		Description:   req.Description,
		Tags:          req.Tags,
		Encrypt:       req.Encrypt,
		RetentionDays: req.RetentionDays,
		CreatedBy:     "api",
	}

	// The run outlives the request unless the caller waits for it.
	ctx := context.WithoutCancel(r.Context())
	var (
		task *backup.Task[*models.BackupRecord]
		err  error
	)
	switch kind {
	case models.KindIncremental:
		task, err = h.executor.StartIncremental(ctx, req.BaseBackupID, opts)
	case models.KindDifferential:
		task, err = h.executor.StartDifferential(ctx, req.BaseBackupID, opts)
	default:
		task, err = h.executor.StartFull(ctx, opts)
	}
	if err != nil {
		respondErr(w, r, err)
		return
	}

	if req.Wait {
		rec, err := task.Wait(r.Context())
		if err != nil {
			respondErr(w, r, err)
			return
		}
		respondSuccess(w, r, http.StatusCreated, rec)
		return
	}

	rec, err := h.catalog.GetBackup(r.Context(), task.ID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusAccepted, rec)
}

// parseBackupFilter extracts list filters from query parameters.
func parseBackupFilter(r *http.Request) (catalog.BackupFilter, *models.APIError) {
	q := r.URL.Query()
	f := catalog.BackupFilter{
		Kind:         models.BackupKind(q.Get("kind")),
		Tag:          q.Get("tag"),
		BaseBackupID: q.Get("base_backup_id"),
		ScheduleID:   q.Get("schedule_id"),
		Ascending:    q.Get("sort") == "asc",
		Limit:        getIntParam(r, "limit", defaultListLimit),
		Offset:       getIntParam(r, "offset", 0),
	}
	for _, s := range q["status"] {
		f.Statuses = append(f.Statuses, models.BackupStatus(s))
	}

	switch f.Kind {
	case "", models.KindFull, models.KindIncremental, models.KindDifferential:
	default:
		return f, &models.APIError{Code: models.CodeValidation, Message: "kind must be one of: full incremental differential"}
	}
	if f.Limit < 1 || f.Limit > maxListLimit {
		return f, &models.APIError{Code: models.CodeValidation, Message: "limit must be between 1 and 1000"}
	}
	if f.Offset < 0 {
		return f, &models.APIError{Code: models.CodeValidation, Message: "offset must be at least 0"}
	}
	for _, name := range []string{"since", "until"} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, &models.APIError{Code: models.CodeValidation, Message: name + " must be an RFC 3339 timestamp"}
		}
		if name == "since" {
			f.Since = ts
		} else {
			f.Until = ts
		}
	}
	return f, nil
}

// ListBackups handles GET /api/v1/backups.
func (h *Handler) ListBackups(w http.ResponseWriter, r *http.Request) {
	filter, apiErr := parseBackupFilter(r)
	if apiErr != nil {
		respondAPIError(w, r, http.StatusBadRequest, apiErr, nil)
		return
	}
	recs, err := h.catalog.ListBackups(r.Context(), filter)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondList(w, r, recs, len(recs))
}

// GetBackup handles GET /api/v1/backups/{id}.
func (h *Handler) GetBackup(w http.ResponseWriter, r *http.Request) {
	rec, err := h.catalog.GetBackup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, rec)
}

// BackupStats handles GET /api/v1/backups/stats.
func (h *Handler) BackupStats(w http.ResponseWriter, r *http.Request) {
	stats, err := backup.GetStatistics(r.Context(), h.catalog)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, stats)
}

// VerifyBackup handles POST /api/v1/backups/{id}/verify. A failed check
// is still a 200; the result says what went wrong.
func (h *Handler) VerifyBackup(w http.ResponseWriter, r *http.Request) {
	rec, err := h.catalog.GetBackup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, h.validator.Validate(r.Context(), rec))
}

// RestoreBackup handles POST /api/v1/backups/{id}/restore.
func (h *Handler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	var req RestoreRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	id := chi.URLParam(r, "id")
	opts := backup.RestoreOptions{
		TargetLocation:    req.TargetLocation,
		Overwrite:         req.Overwrite,
		ValidateIntegrity: req.ValidateIntegrity,
	}

	if req.Async {
		if _, err := h.catalog.GetBackup(r.Context(), id); err != nil {
			respondErr(w, r, err)
			return
		}
		task := h.restorer.StartRestore(context.WithoutCancel(r.Context()), id, opts)
		respondSuccess(w, r, http.StatusAccepted, RestoreAccepted{TaskID: task.ID, BackupID: id})
		return
	}

	point, err := h.restorer.Restore(r.Context(), id, opts)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusCreated, point)
}

// ListRestorePoints handles GET /api/v1/backups/{id}/restore-points.
func (h *Handler) ListRestorePoints(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.catalog.GetBackup(r.Context(), id); err != nil {
		respondErr(w, r, err)
		return
	}
	points, err := h.catalog.ListRestorePoints(r.Context(), id)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondList(w, r, points, len(points))
}

// GetRestorePoint handles GET /api/v1/restore-points/{id}.
func (h *Handler) GetRestorePoint(w http.ResponseWriter, r *http.Request) {
	point, err := h.catalog.GetRestorePoint(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, point)
}

// RetentionPreview handles GET /api/v1/retention/preview.
func (h *Handler) RetentionPreview(w http.ResponseWriter, r *http.Request) {
	decisions, err := h.retention.Preview(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondList(w, r, decisions, len(decisions))
}

// RetentionCleanup handles POST /api/v1/retention/cleanup.
func (h *Handler) RetentionCleanup(w http.ResponseWriter, r *http.Request) {
	result, err := h.retention.CleanupExpired(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, result)
}
