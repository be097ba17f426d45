package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/aussiebroadwan/conductor/internal/conductor/domain"
)

// Hub is the in-process sink. Subscribers either follow every event or one
// peer's topic.
type Hub struct {
	mu     sync.RWMutex
	all    map[*Subscription]struct{}
	topics map[string]map[*Subscription]struct{}
	logger *slog.Logger
}

type Subscription struct {
	id     uuid.UUID
	peerID string
	ch     chan domain.Event
	hub    *Hub
	once   sync.Once
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		all:    make(map[*Subscription]struct{}),
		topics: make(map[string]map[*Subscription]struct{}),
		logger: logger,
	}
}

// Subscribe follows every event.
func (h *Hub) Subscribe(buffer int) *Subscription {
	s := h.newSubscription("", buffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.all[s] = struct{}{}
	return s
}

// SubscribePeer follows the topic of one peer. The topic exists while it has
// at least one subscriber.
func (h *Hub) SubscribePeer(peerID string, buffer int) *Subscription {
	s := h.newSubscription(peerID, buffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.topics[peerID]
	if !ok {
		subs = make(map[*Subscription]struct{})
		h.topics[peerID] = subs
	}
	subs[s] = struct{}{}
	return s
}

func (h *Hub) newSubscription(peerID string, buffer int) *Subscription {
	if buffer < 1 {
		buffer = 1
	}
	return &Subscription{
		id:     uuid.New(),
		peerID: peerID,
		ch:     make(chan domain.Event, buffer),
		hub:    h,
	}
}

// Publish delivers e to the process-wide subscribers.
func (h *Hub) Publish(_ context.Context, e domain.Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.all {
		h.deliver(s, e)
	}
	return nil
}

// PublishPeer delivers e to the topic of e.PeerID and reports whether the
// topic existed.
func (h *Hub) PublishPeer(e domain.Event) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	subs, ok := h.topics[e.PeerID]
	for s := range subs {
		h.deliver(s, e)
	}
	return ok
}

func (h *Hub) HasTopic(peerID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.topics[peerID]
	return ok
}

func (h *Hub) deliver(s *Subscription, e domain.Event) {
	select {
	case s.ch <- e:
	default:
		h.logger.Warn("dropping lifecycle event for slow subscriber",
			slog.String("subscription", s.id.String()),
			slog.String("peer_id", e.PeerID),
			slog.String("type", string(e.Type)))
	}
}

func (s *Subscription) ID() uuid.UUID { return s.id }

func (s *Subscription) C() <-chan domain.Event { return s.ch }

// Close detaches the subscription. Its channel is closed.
func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		defer h.mu.Unlock()

		if s.peerID == "" {
			delete(h.all, s)
		} else if subs, ok := h.topics[s.peerID]; ok {
			delete(subs, s)
			if len(subs) == 0 {
				delete(h.topics, s.peerID)
			}
		}
		close(s.ch)
	})
}
