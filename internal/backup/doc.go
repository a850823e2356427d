// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

/*
Package backup creates, prunes, verifies and restores backups.

The package holds four cooperating components that share a catalog.Catalog
and a storage.Storage:

  - Executor: full, incremental and differential backups. Each run moves a
    BackupRecord through pending, in_progress and then completed or failed.
    Runs are asynchronous; Start* returns a Task and Create* waits on it.
  - Retention: deletes expired backups without breaking a chain. A record is
    kept while it is in flight, pinned by a restore, referenced as the base
    of a remaining record, or among the newest MinFullBackups full backups.
  - Validator: recomputes payload checksums. It never mutates state.
  - Restorer: resolves the chain for a backup, validates every member,
    decrypts and replays the payloads into a source.RestoreTarget, then
    records a RestorePoint.

Chain Layout:

	full(A) <- incremental(B, base A) <- incremental(C, base B)
	full(A) <- differential(D, base A)

Restoring C replays A, B and C in that order. Restoring D replays A and D.

Concurrency:

Only the goroutine running a backup transitions that record. The catalog
serializes updates per record. Retention takes one mutex for a whole pass
and restores pin their chain under the same mutex, so a prune never
removes a backup that an in-flight restore is reading.
*/
package backup
