// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

// Package logging is the zerolog-backed structured logger shared by every
// Lifeboat component.
//
// A single global logger is configured once from main via Init and is then
// reached through the package-level level helpers:
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("backup_id", id).Msg("Backup completed")
//	logging.Err(err).Str("plan_id", planID).Msg("Drill step failed")
//
// Request and task scoped logging goes through Ctx, which copies the
// correlation id carried by the context onto every event:
//
//	ctx = logging.ContextWithNewCorrelationID(ctx)
//	logging.Ctx(ctx).Info().Msg("Restore started")
//
// Components that want a fixed field on every event take a child logger:
//
//	log := logging.WithComponent("retention")
//
// NewSlogLogger bridges the global logger into log/slog for libraries that
// only speak slog, such as sutureslog.
//
// Always terminate an event with Msg or Send; an unterminated event is
// never written.
package logging
