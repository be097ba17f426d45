package peer

import (
	"context"
	"log/slog"
	"time"
)

type poller struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Subscribe adds o to the observer set and starts the polling loop when o is
// the first observer. Subscribing the same observer twice has no effect.
func (c *Client) Subscribe(o Observer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	c.observers[o] = struct{}{}
	if c.poller == nil {
		ctx, cancel := context.WithCancel(context.Background())
		c.poller = &poller{cancel: cancel, done: make(chan struct{})}
		go c.poll(ctx, c.poller)
	}
	return nil
}

// Unsubscribe removes o. The loop stops when the last observer leaves; no
// snapshot is delivered after Unsubscribe returns.
func (c *Client) Unsubscribe(o Observer) {
	c.mu.Lock()
	delete(c.observers, o)
	var p *poller
	if len(c.observers) == 0 && c.poller != nil {
		p, c.poller = c.poller, nil
	}
	c.mu.Unlock()

	if p != nil {
		p.cancel()
	}
}

// Polling reports whether a loop is running.
func (c *Client) Polling() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.poller != nil
}

func (c *Client) Observers() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.observers)
}

// Close stops polling regardless of remaining observers and waits for the
// loop to exit. Observers are dropped without notice. Later Subscribe calls
// fail with ErrClosed.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	p := c.poller
	c.poller = nil
	clear(c.observers)
	c.mu.Unlock()

	if p != nil {
		p.cancel()
		<-p.done
	}
}

// poll runs one tick at a time: the next timer is armed only after the
// previous snapshot has been delivered.
func (c *Client) poll(ctx context.Context, p *poller) {
	defer close(p.done)

	timer := time.NewTimer(c.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		status, err := c.Status(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			c.logger.Debug("peer status poll failed",
				slog.String("peer_address", c.Address()),
				slog.Any("error", err))
		}

		snap := Snapshot{Address: c.Address(), Status: status, Err: err, At: time.Now()}
		if !c.broadcast(p, snap) {
			return
		}
		timer.Reset(c.interval)
	}
}

func (c *Client) broadcast(p *poller, snap Snapshot) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.poller != p {
		return false
	}
	for o := range c.observers {
		o.Deliver(snap)
	}
	return true
}
