// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/lifeboat/internal/logging"
	"github.com/tomtom215/lifeboat/internal/models"
)

// DefaultTopic is the topic alerts are published on.
const DefaultTopic = "lifeboat.alerts"

// ErrPublisherClosed is returned by Send after Close.
var ErrPublisherClosed = errors.New("notify: publisher is closed")

// WatermillNotifier publishes alerts as JSON Events on a Watermill
// publisher.
type WatermillNotifier struct {
	publisher message.Publisher
	topic     string

	mu     sync.RWMutex
	closed bool
}

// NewWatermillNotifier publishes on topic, or DefaultTopic when empty.
func NewWatermillNotifier(pub message.Publisher, topic string) *WatermillNotifier {
	if topic == "" {
		topic = DefaultTopic
	}
	return &WatermillNotifier{publisher: pub, topic: topic}
}

func (w *WatermillNotifier) Send(ctx context.Context, kind models.AlertKind, text string) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrPublisherClosed
	}

	event := Event{
		ID:            uuid.New().String(),
		Kind:          kind,
		Message:       text,
		CreatedAt:     time.Now().UTC(),
		CorrelationID: logging.CorrelationIDFromContext(ctx),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("kind", string(kind))
	if event.CorrelationID != "" {
		msg.Metadata.Set("correlation_id", event.CorrelationID)
	}
	msg.SetContext(ctx)

	if err := w.publisher.Publish(w.topic, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", w.topic, err)
	}
	return nil
}

// Close closes the underlying publisher.
func (w *WatermillNotifier) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.publisher.Close()
}

// DecodeEvent parses a message published by WatermillNotifier.
func DecodeEvent(msg *message.Message) (*Event, error) {
	var e Event
	if err := json.Unmarshal(msg.Payload, &e); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &e, nil
}

// NewGoChannel returns an in-process pub/sub. Subscribers receive every
// alert published after they subscribe.
func NewGoChannel(buffer int64) *gochannel.GoChannel {
	if buffer <= 0 {
		buffer = 64
	}
	return gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: buffer}, NewWatermillLogger())
}

// NATSConfig configures the NATS alert publisher.
type NATSConfig struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
}

// NewNATSPublisher connects a core NATS publisher. JetStream is not used:
// alerts are fire-and-forget and the catalog is the durable record.
func NewNATSPublisher(cfg NATSConfig) (message.Publisher, error) {
	if cfg.URL == "" {
		return nil, errors.New("notify: nats url is required")
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = 10
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = 2 * time.Second
	}
	logger := NewWatermillLogger()

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create nats publisher: %w", err)
	}
	return pub, nil
}
