// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/lifeboat/internal/logging"
	"github.com/tomtom215/lifeboat/internal/metrics"
	"github.com/tomtom215/lifeboat/internal/models"
)

// ResilientConfig bounds every storage call.
type ResilientConfig struct {
	// CallTimeout is the deadline of a single attempt.
	CallTimeout time.Duration

	// MaxRetries is the number of extra attempts after the first failure.
	MaxRetries  int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration

	// FailureThreshold consecutive failures open the breaker for OpenTimeout.
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// DefaultResilientConfig suits a local disk or a nearby object store.
func DefaultResilientConfig() ResilientConfig {
	return ResilientConfig{
		CallTimeout:      2 * time.Minute,
		MaxRetries:       3,
		BaseBackoff:      500 * time.Millisecond,
		MaxBackoff:       30 * time.Second,
		FailureThreshold: 5,
		OpenTimeout:      time.Minute,
	}
}

// Resilient decorates a Storage with deadlines, retries and a breaker.
type Resilient struct {
	inner Storage
	cfg   ResilientConfig
	cb    *gobreaker.CircuitBreaker[interface{}]
	name  string
}

var _ Storage = (*Resilient)(nil)

// NewResilient wraps inner.
func NewResilient(inner Storage, cfg ResilientConfig) *Resilient {
	name := "storage-" + inner.Backend()
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		// A missing object or a caller cancellation says nothing about
		// backend health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Storage circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &Resilient{inner: inner, cfg: cfg, cb: cb, name: name}
}

func (r *Resilient) Backend() string { return r.inner.Backend() }

func (r *Resilient) Locate(key string) string { return r.inner.Locate(key) }

// Available reports whether the breaker lets calls through.
func (r *Resilient) Available() bool {
	return r.cb.State() != gobreaker.StateOpen
}

// State returns the breaker state name.
func (r *Resilient) State() string {
	return r.cb.State().String()
}

func (r *Resilient) Write(ctx context.Context, key string, payload []byte) (*Object, error) {
	v, err := r.do(ctx, "write", func(ctx context.Context) (interface{}, error) {
		return r.inner.Write(ctx, key, payload)
	})
	if err != nil {
		return nil, err
	}
	obj, ok := v.(*Object)
	if !ok {
		return nil, fmt.Errorf("storage: unexpected write result %T", v)
	}
	return obj, nil
}

func (r *Resilient) Read(ctx context.Context, location string) ([]byte, error) {
	v, err := r.do(ctx, "read", func(ctx context.Context) (interface{}, error) {
		return r.inner.Read(ctx, location)
	})
	if err != nil {
		return nil, err
	}
	data, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("storage: unexpected read result %T", v)
	}
	return data, nil
}

func (r *Resilient) Delete(ctx context.Context, location string) error {
	_, err := r.do(ctx, "delete", func(ctx context.Context) (interface{}, error) {
		return nil, r.inner.Delete(ctx, location)
	})
	return err
}

// Ping probes the backend directly so a health check can see recovery
// before the breaker half-opens.
func (r *Resilient) Ping(ctx context.Context) error {
	p, ok := r.inner.(Pinger)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
	defer cancel()
	return p.Ping(ctx)
}

func (r *Resilient) do(ctx context.Context, op string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	backend := r.inner.Backend()
	for attempt := 0; ; attempt++ {
		v, err := r.cb.Execute(func() (interface{}, error) {
			callCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
			defer cancel()
			start := time.Now()
			v, err := fn(callCtx)
			metrics.RecordStorageOperation(backend, op, time.Since(start), err)
			return v, err
		})
		if err == nil {
			metrics.CircuitBreakerRequests.WithLabelValues(r.name, "success").Inc()
			return v, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(r.name, "rejected").Inc()
			return nil, fmt.Errorf("storage %s %s: %w: %w", backend, op, models.ErrStorageUnavailable, err)
		}
		metrics.CircuitBreakerRequests.WithLabelValues(r.name, "failure").Inc()

		if errors.Is(err, ErrNotFound) || ctx.Err() != nil || attempt >= r.cfg.MaxRetries {
			return nil, err
		}

		wait := r.backoff(attempt)
		metrics.StorageRetries.WithLabelValues(op).Inc()
		logging.Warn().Err(err).
			Str("backend", backend).
			Str("operation", op).
			Int("attempt", attempt+1).
			Dur("backoff", wait).
			Msg("Storage call failed, retrying")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// backoff returns base * 2^attempt capped at MaxBackoff.
func (r *Resilient) backoff(attempt int) time.Duration {
	d := time.Duration(float64(r.cfg.BaseBackoff) * math.Pow(2, float64(attempt)))
	if r.cfg.MaxBackoff > 0 && d > r.cfg.MaxBackoff {
		return r.cfg.MaxBackoff
	}
	return d
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
