package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/conductor/internal/conductor/events"
)

// externalSink is an event sink backed by a broker connection.
type externalSink interface {
	events.Sink
	Close() error
}

// buildSink fans lifecycle events out to the in-process hub and, depending on
// the configured driver, to Redis or NATS. The external sink is returned so
// the caller can close it on shutdown; it is nil for the memory driver.
func buildSink(cfg Config, hub *events.Hub) (events.Sink, externalSink, error) {
	var ext externalSink

	switch cfg.EventsDriver {
	case "", "memory":
		return hub, nil, nil

	case "redis":
		if cfg.RedisURL == "" {
			return nil, nil, errors.New("REDIS_URL is required for the redis events driver")
		}
		sink, err := events.NewRedisSink(cfg.RedisURL, cfg.EventsPrefix)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create redis sink: %w", err)
		}
		ext = sink

	case "nats":
		if cfg.NATSURL == "" {
			return nil, nil, errors.New("NATS_URL is required for the nats events driver")
		}
		sink, err := events.DialNATS(cfg.NATSURL, cfg.EventsPrefix)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to nats: %w", err)
		}
		ext = sink

	default:
		return nil, nil, fmt.Errorf("unknown events driver %q", cfg.EventsDriver)
	}

	return events.Multi{hub, ext}, ext, nil
}

// sinkCheck returns the readiness check of an external sink, if it has one.
func sinkCheck(ext externalSink) func(context.Context) error {
	if p, ok := ext.(interface{ Ping(context.Context) error }); ok {
		return p.Ping
	}
	return nil
}
