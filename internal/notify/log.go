// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package notify

import (
	"context"

	"github.com/tomtom215/lifeboat/internal/logging"
	"github.com/tomtom215/lifeboat/internal/models"
)

// LogNotifier writes notifications to the structured log.
type LogNotifier struct{}

func (LogNotifier) Send(ctx context.Context, kind models.AlertKind, message string) error {
	logging.Ctx(ctx).Warn().
		Str("alert_kind", string(kind)).
		Str("alert_message", message).
		Msg("Alert")
	return nil
}
