// Package events publishes peer lifecycle events.
package events

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/conductor/internal/conductor/domain"
)

// Sink receives lifecycle events after each peer mutation.
type Sink interface {
	Publish(ctx context.Context, e domain.Event) error
}

// Multi fans an event out to every sink and joins their errors.
type Multi []Sink

func (m Multi) Publish(ctx context.Context, e domain.Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) Publish(context.Context, domain.Event) error { return nil }

func subject(prefix string, e domain.Event) string {
	return prefix + ".peers." + string(e.Kind) + "." + string(e.Type)
}
