// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package api

import (
	"github.com/tomtom215/lifeboat/internal/backup"
	"github.com/tomtom215/lifeboat/internal/catalog"
	"github.com/tomtom215/lifeboat/internal/drplan"
	"github.com/tomtom215/lifeboat/internal/health"
	"github.com/tomtom215/lifeboat/internal/schedule"
)

// Deps are the components the handlers drive.
type Deps struct {
	Catalog   catalog.Catalog
	Executor  *backup.Executor
	Restorer  *backup.Restorer
	Validator *backup.Validator
	Retention *backup.Retention
	Scheduler *schedule.Engine
	Planner   *drplan.Planner
	Monitor   *health.Monitor
}

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files by resource:
//   - handlers_backup.go: backups, restores, retention
//   - handlers_schedule.go: backup schedules
//   - handlers_plan.go: recovery plans and drills
//   - handlers_health.go: health report and alerts
type Handler struct {
	catalog   catalog.Catalog
	executor  *backup.Executor
	restorer  *backup.Restorer
	validator *backup.Validator
	retention *backup.Retention
	scheduler *schedule.Engine
	planner   *drplan.Planner
	monitor   *health.Monitor
}

// NewHandler creates a Handler.
func NewHandler(d Deps) *Handler {
	return &Handler{
		catalog:   d.Catalog,
		executor:  d.Executor,
		restorer:  d.Restorer,
		validator: d.Validator,
		retention: d.Retention,
		scheduler: d.Scheduler,
		planner:   d.Planner,
		monitor:   d.Monitor,
	}
}
