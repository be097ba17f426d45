package service

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/conductor/internal/conductor/domain"
	"github.com/aussiebroadwan/conductor/internal/conductor/peer"
)

// SubscribeStatus attaches o to the polling loop of the peer, starting the
// loop for the first observer.
func (s *PeerService) SubscribeStatus(ctx context.Context, kind domain.PeerKind, id string, o peer.Observer) error {
	client, err := s.Client(ctx, kind, id)
	if err != nil {
		return err
	}
	if err := client.Subscribe(o); err != nil {
		// The peer was removed between lookup and subscribe.
		if errors.Is(err, peer.ErrClosed) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// UnsubscribeStatus detaches o. Unknown peers and observers are ignored.
func (s *PeerService) UnsubscribeStatus(id string, o peer.Observer) {
	if client, ok := s.Registry.Lookup(id); ok {
		client.Unsubscribe(o)
	}
}
