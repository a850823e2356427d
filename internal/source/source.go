// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

// Package source captures and restores the protected data set.
//
// A DataSource produces opaque payloads: a full snapshot, or the changes
// since a point in time. A RestoreTarget applies an ordered chain of those
// payloads, base first, to a location.
//
// Directory implements both for a directory tree. Payloads are gzip
// compressed tar archives that carry a manifest of every file present at
// capture time, so replaying a chain also removes files deleted between
// the base and the last incremental.
package source

import (
	"context"
	"errors"
	"time"
)

// ErrTargetNotEmpty is returned when a restore would overwrite existing data
// without the overwrite option.
var ErrTargetNotEmpty = errors.New("source: restore target is not empty")

// ErrIncompleteChain is returned when the replayed layers do not carry every
// file the last layer's manifest lists.
var ErrIncompleteChain = errors.New("source: backup chain is missing files")

// DataSource is the data store being protected.
type DataSource interface {
	// Snapshot captures the complete data set.
	Snapshot(ctx context.Context) ([]byte, error)

	// ChangesSince captures what changed after since. base is the plaintext
	// payload the delta builds on; anything absent from or different in
	// base is captured regardless of its timestamps. A nil base falls back
	// to timestamps alone.
	ChangesSince(ctx context.Context, since time.Time, base []byte) ([]byte, error)

	// Version is the schema/version marker recorded on backups.
	Version() string
}

// RestoreTarget receives restored data.
type RestoreTarget interface {
	// Apply replays layers in order into location. Nothing at location is
	// modified unless every layer applies cleanly.
	Apply(ctx context.Context, location string, layers [][]byte, overwrite bool) error

	// DefaultLocation is used when a restore names no target.
	DefaultLocation() string
}
