// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

// Package notify delivers alert notifications.
//
// A Notifier receives (kind, message) pairs from the health monitor, the
// scheduler and the drill runner. Sinks are the zerolog logger, an
// in-process Watermill GoChannel, and a Watermill NATS publisher. Fanout
// sends to several sinks behind a token-bucket rate limit.
package notify

import (
	"context"
	"time"

	"github.com/tomtom215/lifeboat/internal/models"
)

// Notifier delivers one alert.
type Notifier interface {
	Send(ctx context.Context, kind models.AlertKind, message string) error
}

// Event is the wire form of a notification published to a message bus.
type Event struct {
	ID            string           `json:"id"`
	Kind          models.AlertKind `json:"kind"`
	Message       string           `json:"message"`
	CreatedAt     time.Time        `json:"created_at"`
	CorrelationID string           `json:"correlation_id,omitempty"`
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, kind models.AlertKind, message string) error

func (f NotifierFunc) Send(ctx context.Context, kind models.AlertKind, message string) error {
	return f(ctx, kind, message)
}

// Nop discards every notification.
var Nop Notifier = NotifierFunc(func(context.Context, models.AlertKind, string) error { return nil })
