// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router configures HTTP routes.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a Router. A nil config uses DefaultChiMiddlewareConfig.
func NewRouter(handler *Handler, config *ChiMiddlewareConfig) *Router {
	return &Router{
		handler:       handler,
		chiMiddleware: NewChiMiddleware(config),
	}
}

// SetupChi configures all HTTP routes using Chi router.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(Metrics)

	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	r.Get("/healthz", router.handler.Live)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(chimiddleware.NoCache)

		r.Get("/health", router.handler.Health)

		r.Route("/backups", func(r chi.Router) {
			r.Post("/", router.handler.CreateBackup)
			r.Get("/", router.handler.ListBackups)
			r.Get("/stats", router.handler.BackupStats)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", router.handler.GetBackup)
				r.Post("/verify", router.handler.VerifyBackup)
				r.Post("/restore", router.handler.RestoreBackup)
				r.Get("/restore-points", router.handler.ListRestorePoints)
			})
		})
		r.Get("/restore-points/{id}", router.handler.GetRestorePoint)

		r.Route("/retention", func(r chi.Router) {
			r.Get("/preview", router.handler.RetentionPreview)
			r.Post("/cleanup", router.handler.RetentionCleanup)
		})

		r.Route("/schedules", func(r chi.Router) {
			r.Post("/", router.handler.CreateSchedule)
			r.Get("/", router.handler.ListSchedules)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", router.handler.GetSchedule)
				r.Delete("/", router.handler.DeleteSchedule)
				r.Post("/enable", router.handler.EnableSchedule)
				r.Post("/disable", router.handler.DisableSchedule)
			})
		})

		r.Route("/plans", func(r chi.Router) {
			r.Post("/", router.handler.CreatePlan)
			r.Get("/", router.handler.ListPlans)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", router.handler.GetPlan)
				r.Post("/test", router.handler.TestPlan)
			})
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", router.handler.ListAlerts)
			r.Post("/{id}/ack", router.handler.AcknowledgeAlert)
		})
	})

	return r
}
