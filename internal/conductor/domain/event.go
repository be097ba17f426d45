package domain

import "time"

// EventType is the lifecycle change published after each peer mutation.
type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventRenamed EventType = "renamed"
	EventRemoved EventType = "removed"
)

// Event is the lifecycle payload published to sinks. It never carries the
// peer credential.
type Event struct {
	Type     EventType `json:"type"`
	Kind     PeerKind  `json:"kind"`
	PeerID   string    `json:"peer_id"`
	Name     string    `json:"name"`
	Address  string    `json:"address"`
	Disabled bool      `json:"disabled"`
	Actor    string    `json:"actor,omitempty"`
	At       time.Time `json:"at"`
}

// NewEvent snapshots p into an event of type t.
func NewEvent(t EventType, p Peer, actor string, at time.Time) Event {
	return Event{
		Type:     t,
		Kind:     p.Kind,
		PeerID:   p.ID,
		Name:     p.Name,
		Address:  p.Address,
		Disabled: p.DisabledAt != nil,
		Actor:    actor,
		At:       at,
	}
}
