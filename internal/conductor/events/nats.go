package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/aussiebroadwan/conductor/internal/conductor/domain"
)

// publisher is the subset of *nats.Conn the sink needs.
type publisher interface {
	Publish(subj string, data []byte) error
}

// NATSSink publishes events on "<prefix>.peers.<kind>.<type>" subjects.
type NATSSink struct {
	conn   publisher
	nc     *nats.Conn
	prefix string
}

func DialNATS(url, prefix string) (*NATSSink, error) {
	nc, err := nats.Connect(url,
		nats.Name("conductor"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &NATSSink{conn: nc, nc: nc, prefix: prefix}, nil
}

func (s *NATSSink) Publish(_ context.Context, e domain.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := s.conn.Publish(subject(s.prefix, e), data); err != nil {
		return fmt.Errorf("publish event to nats: %w", err)
	}
	return nil
}

// Close drains pending messages before closing the connection.
func (s *NATSSink) Close() error {
	if s.nc == nil {
		return nil
	}
	return s.nc.Drain()
}
