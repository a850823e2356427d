// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

// Package validation validates operator input with go-playground/validator.
//
// A single validator instance is shared by the process. It reports field
// names from json tags, so messages match what API clients sent, and adds
// one custom tag:
//
//	timeofday  "HH:MM" on a 24 hour clock, e.g. "09:00" or "23:59"
//
// ValidateStruct returns a *RequestValidationError that wraps
// models.ErrValidation and converts to the API error shape:
//
//	if verr := validation.ValidateStruct(&spec); verr != nil {
//	    return fmt.Errorf("%w: %w", models.ErrScheduleInvalid, verr)
//	}
//
// Messages for common tags:
//
//	required   -> "name is required"
//	oneof=a b  -> "kind must be one of: a b"
//	min=1      -> "retention_days must be at least 1"
//	timeofday  -> "time must be a time of day in HH:MM format"
package validation
