// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/lifeboat/internal/logging"
	"github.com/tomtom215/lifeboat/internal/metrics"
	"github.com/tomtom215/lifeboat/internal/models"
)

// ErrRateLimited is returned when a notification is dropped by the limiter.
var ErrRateLimited = errors.New("notify: rate limited")

// Sink is a named Notifier.
type Sink struct {
	Name     string
	Notifier Notifier
}

// Fanout delivers each notification to every sink. One failing sink does
// not stop delivery to the others.
type Fanout struct {
	sinks   []Sink
	limiter *rate.Limiter
}

// NewFanout limits delivery to perMinute notifications with a burst of the
// same size. perMinute <= 0 disables the limit.
func NewFanout(perMinute int, sinks ...Sink) *Fanout {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if perMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	}
	return &Fanout{sinks: sinks, limiter: limiter}
}

func (f *Fanout) Send(ctx context.Context, kind models.AlertKind, message string) error {
	if !f.limiter.Allow() {
		metrics.NotificationsTotal.WithLabelValues("fanout", "rate_limited").Inc()
		logging.Ctx(ctx).Warn().Str("alert_kind", string(kind)).Msg("Notification dropped by rate limit")
		return ErrRateLimited
	}

	var errs []error
	for _, s := range f.sinks {
		if err := s.Notifier.Send(ctx, kind, message); err != nil {
			metrics.NotificationsTotal.WithLabelValues(s.Name, "failure").Inc()
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
			continue
		}
		metrics.NotificationsTotal.WithLabelValues(s.Name, "success").Inc()
	}
	return errors.Join(errs...)
}

// Close closes every sink that implements io.Closer.
func (f *Fanout) Close() error {
	var errs []error
	for _, s := range f.sinks {
		if c, ok := s.Notifier.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
			}
		}
	}
	return errors.Join(errs...)
}

// Config selects the notification sinks.
type Config struct {
	// Driver is log, gochannel or nats. The log sink is always present.
	Driver        string
	NATSURL       string
	Topic         string
	RatePerMinute int
}

// New builds a Fanout from cfg.
func New(cfg Config) (*Fanout, error) {
	sinks := []Sink{{Name: "log", Notifier: LogNotifier{}}}

	switch cfg.Driver {
	case "", "log":
	case "gochannel":
		sinks = append(sinks, Sink{Name: "gochannel", Notifier: NewWatermillNotifier(NewGoChannel(0), cfg.Topic)})
	case "nats":
		pub, err := NewNATSPublisher(NATSConfig{URL: cfg.NATSURL})
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, Sink{Name: "nats", Notifier: NewWatermillNotifier(pub, cfg.Topic)})
	default:
		return nil, fmt.Errorf("notify: unknown driver %q", cfg.Driver)
	}
	return NewFanout(cfg.RatePerMinute, sinks...), nil
}
