// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

// Package services adapts Lifeboat components to suture.Service.
//
//   - HTTPServerService runs an *http.Server with graceful shutdown.
//   - TickerService calls a function on a fixed interval; the scheduler
//     tick and the health check both run this way.
//   - DrainService waits for shutdown and then drains in-flight work,
//     such as running backups and restores.
//
// Every wrapper implements fmt.Stringer so supervisor events name it.
package services
