package peer

import (
	"time"

	"github.com/google/uuid"
)

// Snapshot is one poll tick. Failed ticks are delivered too, with Err set
// and Status nil, so observers keep receiving a heartbeat.
type Snapshot struct {
	Address string
	Status  *Status
	Err     error
	At      time.Time
}

func (s Snapshot) OK() bool { return s.Err == nil && s.Status != nil }

// Observer receives snapshots from a polling loop. Deliver is called with
// the client's read lock held: it must not block and must not call back
// into the Client. Implementations are map keys, so use pointer types.
type Observer interface {
	Deliver(Snapshot)
}

// Watcher is a channel-backed Observer. When the consumer falls behind the
// oldest buffered snapshot is dropped.
type Watcher struct {
	id uuid.UUID
	ch chan Snapshot
}

func NewWatcher(buffer int) *Watcher {
	if buffer < 1 {
		buffer = 1
	}
	return &Watcher{id: uuid.New(), ch: make(chan Snapshot, buffer)}
}

func (w *Watcher) ID() uuid.UUID { return w.id }

func (w *Watcher) C() <-chan Snapshot { return w.ch }

func (w *Watcher) Deliver(s Snapshot) {
	for {
		select {
		case w.ch <- s:
			return
		default:
		}
		select {
		case <-w.ch:
		default:
		}
	}
}

// ObserverFunc adapts a function. Its pointer is the subscription handle.
type ObserverFunc func(Snapshot)

func (f *ObserverFunc) Deliver(s Snapshot) { (*f)(s) }
