// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package backup

import (
	"context"
	"sync"
)

// Task is a handle on an operation running in the background.
type Task[T any] struct {
	// ID identifies the work. For backups it is the BackupRecord ID.
	ID string

	done   chan struct{}
	once   sync.Once
	result T
	err    error
}

func newTask[T any](id string) *Task[T] {
	return &Task[T]{ID: id, done: make(chan struct{})}
}

func (t *Task[T]) finish(result T, err error) {
	t.once.Do(func() {
		t.result = result
		t.err = err
		close(t.done)
	})
}

// Done is closed when the operation has finished.
func (t *Task[T]) Done() <-chan struct{} { return t.done }

// Wait blocks until the operation finishes or ctx is done. Giving up on
// the wait does not cancel the operation.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
