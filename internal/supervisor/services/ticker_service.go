// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package services

import (
	"context"
	"time"

	"github.com/tomtom215/lifeboat/internal/logging"
)

// TickFunc is one unit of periodic work.
type TickFunc func(ctx context.Context) error

// TickerService calls fn every interval. An error from fn is logged and
// the loop continues; only a panic restarts the service.
type TickerService struct {
	name       string
	interval   time.Duration
	fn         TickFunc
	runOnStart bool
}

// NewTickerService builds a periodic service. With runOnStart the first
// call happens immediately instead of after one interval.
func NewTickerService(name string, interval time.Duration, runOnStart bool, fn TickFunc) *TickerService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &TickerService{
		name:       name,
		interval:   interval,
		fn:         fn,
		runOnStart: runOnStart,
	}
}

// Serve implements suture.Service.
func (s *TickerService) Serve(ctx context.Context) error {
	log := logging.WithComponent(s.name)
	log.Info().Dur("interval", s.interval).Msg("Periodic service started")

	if s.runOnStart {
		s.run(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Periodic service stopped")
			return ctx.Err()
		case <-ticker.C:
			s.run(ctx)
		}
	}
}

func (s *TickerService) run(ctx context.Context) {
	ctx = logging.ContextWithNewCorrelationID(ctx)
	started := time.Now()
	if err := s.fn(ctx); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("service", s.name).Msg("Periodic run failed")
		return
	}
	logging.Ctx(ctx).Debug().
		Str("service", s.name).
		Dur("duration", time.Since(started)).
		Msg("Periodic run finished")
}

func (s *TickerService) String() string {
	return s.name
}
