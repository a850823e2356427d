// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

// Package storage holds the byte-level backends backups are written to.
//
// The engine only ever sees the Storage interface. Objects are addressed by
// a caller-chosen key derived from the backup id, so writing the same key
// twice replaces the object and a retried write is safe. Delete of a missing
// object succeeds for the same reason.
//
// Backends:
//   - FS: a directory tree, writes are staged to a temp file and renamed
//   - S3: any S3 compatible object store through aws-sdk-go-v2
//   - Memory: process-local, for tests and dry runs
//
// Resilient wraps any backend with a per-call deadline, bounded retry with
// exponential backoff, and a circuit breaker.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrNotFound is returned by Read when the location holds no object.
var ErrNotFound = errors.New("storage: object not found")

// Object describes a stored payload.
type Object struct {
	Location string `json:"location"`
	Size     int64  `json:"size"`
	Checksum string `json:"checksum"`
}

// Storage is the collaborator that holds backup payloads.
type Storage interface {
	// Write stores payload under key, replacing any existing object.
	Write(ctx context.Context, key string, payload []byte) (*Object, error)
	Read(ctx context.Context, location string) ([]byte, error)

	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, location string) error

	// Locate returns the location Write(key) stores its object at.
	Locate(key string) string

	// Backend names the implementation for logs and metrics.
	Backend() string
}

// Pinger is implemented by backends that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checksum returns the hex SHA-256 of data. Every backend reports payload
// checksums in this form so integrity checks are backend independent.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func newObject(location string, payload []byte) *Object {
	return &Object{
		Location: location,
		Size:     int64(len(payload)),
		Checksum: Checksum(payload),
	}
}
