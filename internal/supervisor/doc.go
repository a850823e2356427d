// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

// Package supervisor runs Lifeboat's long-lived services under a suture
// supervisor tree.
//
// The tree has three layers so a crash in one cannot take down another:
//
//	lifeboat
//	├── engine-layer   scheduler tick loop, executor drain
//	├── monitor-layer  periodic health checks
//	└── api-layer      HTTP API
//
// Supervisor events are logged through sutureslog. The service wrappers
// that adapt components to suture.Service live in the services
// subpackage.
package supervisor
