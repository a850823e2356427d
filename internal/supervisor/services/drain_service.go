// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package services

import (
	"context"
	"fmt"
	"time"
)

// DrainFunc finishes in-flight work before ctx expires.
type DrainFunc func(ctx context.Context) error

// DrainService idles until shutdown and then runs its drain function with
// a fresh deadline. It lets running backups and restores record their
// outcome before the process exits.
type DrainService struct {
	name    string
	timeout time.Duration
	drain   DrainFunc
}

func NewDrainService(name string, timeout time.Duration, drain DrainFunc) *DrainService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &DrainService{name: name, timeout: timeout, drain: drain}
}

// Serve implements suture.Service.
func (d *DrainService) Serve(ctx context.Context) error {
	<-ctx.Done()

	drainCtx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	if err := d.drain(drainCtx); err != nil {
		return fmt.Errorf("%s drain failed: %w", d.name, err)
	}
	return ctx.Err()
}

func (d *DrainService) String() string {
	return d.name
}
