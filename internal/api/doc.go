// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

// Package api exposes Lifeboat over HTTP with the chi router.
//
// Every route lives under /api/v1 and answers with the models.APIResponse
// envelope. Failures carry a stable code from models.ErrorCode, and the
// HTTP status is derived from that code:
//
//	BACKUP_NOT_FOUND, PLAN_NOT_FOUND, ...     404
//	VALIDATION_ERROR, SCHEDULE_INVALID, ...   400
//	BACKUP_NOT_RESTORABLE, INVALID_TRANSITION 409
//	INTEGRITY_CHECK_FAILED                    422
//	STORAGE_UNAVAILABLE                       503
//
// Routes:
//
//	POST   /api/v1/backups                      create (kind full|incremental|differential)
//	GET    /api/v1/backups                      list with kind, status, tag, base_backup_id filters
//	GET    /api/v1/backups/stats                aggregate statistics
//	GET    /api/v1/backups/{id}                 one record
//	POST   /api/v1/backups/{id}/verify          checksum verification
//	POST   /api/v1/backups/{id}/restore         restore the chain ending at id
//	GET    /api/v1/backups/{id}/restore-points  restores of this backup
//	GET    /api/v1/restore-points/{id}
//	GET    /api/v1/retention/preview            what a cleanup pass would do
//	POST   /api/v1/retention/cleanup
//	POST   /api/v1/schedules                    GET, GET /{id}, DELETE /{id}
//	POST   /api/v1/schedules/{id}/enable        and /disable
//	POST   /api/v1/plans                        GET, GET /{id}
//	POST   /api/v1/plans/{id}/test              run a recovery drill
//	GET    /api/v1/health
//	GET    /api/v1/alerts                       ?unacknowledged=true
//	POST   /api/v1/alerts/{id}/ack
//	GET    /metrics                             Prometheus exposition
//	GET    /healthz                             liveness
package api
