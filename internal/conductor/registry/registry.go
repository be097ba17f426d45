// Package registry owns the live peer clients of the process. It is the only
// place clients are constructed, so at most one client polls a given peer.
package registry

import (
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/aussiebroadwan/conductor/internal/conductor/domain"
	"github.com/aussiebroadwan/conductor/internal/conductor/peer"
)

var ErrDeletedPeer = errors.New("registry: peer is deleted")

// Registry maps peer ids to clients. Removed ids are remembered so a
// record read before the removal cannot bring a client back.
type Registry struct {
	mu      sync.Mutex
	clients map[string]*peer.Client
	removed map[string]struct{}
	opts    []peer.Option
	logger  *slog.Logger
}

// New returns an empty registry. opts are applied to every client it builds.
func New(logger *slog.Logger, opts ...peer.Option) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		clients: make(map[string]*peer.Client),
		removed: make(map[string]struct{}),
		opts:    append([]peer.Option{peer.WithLogger(logger)}, opts...),
		logger:  logger,
	}
}

// GetOrCreate returns the client cached for rec.ID, building it from the
// record's address and credential on first use. The check and insert happen
// under one lock. Records of removed peers are refused even when stale.
func (r *Registry) GetOrCreate(rec domain.Peer) (*peer.Client, error) {
	if rec.DeletedAt != nil {
		return nil, ErrDeletedPeer
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, gone := r.removed[rec.ID]; gone {
		return nil, ErrDeletedPeer
	}
	if c, ok := r.clients[rec.ID]; ok {
		return c, nil
	}

	c := peer.New(rec.Address, rec.Credential, r.options(rec.Kind)...)
	r.clients[rec.ID] = c
	r.logger.Debug("peer client created",
		slog.String("peer_id", rec.ID),
		slog.String("peer_address", rec.Address))
	return c, nil
}

// Lookup returns the cached client without creating one.
func (r *Registry) Lookup(id string) (*peer.Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	return c, ok
}

// NewTransient builds a client that is not registered. Registration uses it
// for the handshake and hands it to Insert once the record is persisted.
func (r *Registry) NewTransient(kind domain.PeerKind, address, credential string) *peer.Client {
	return peer.New(address, credential, r.options(kind)...)
}

func (r *Registry) options(kind domain.PeerKind) []peer.Option {
	if !kind.RemoteIdentity() {
		return r.opts
	}
	return append(slices.Clip(r.opts), peer.WithRequiredCredential())
}

// Insert registers c under id, closing any client it replaces. A removed id
// is not revived; c is closed instead.
func (r *Registry) Insert(id string, c *peer.Client) {
	r.mu.Lock()
	if _, gone := r.removed[id]; gone {
		r.mu.Unlock()
		c.Close()
		return
	}
	old, ok := r.clients[id]
	r.clients[id] = c
	r.mu.Unlock()

	if ok && old != c {
		old.Close()
	}
}

// Remove stops the client's polling, even with observers attached, and
// forgets it. The id is never served again. Removing an unknown id only
// records the removal.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	c, ok := r.clients[id]
	delete(r.clients, id)
	r.removed[id] = struct{}{}
	r.mu.Unlock()

	if ok {
		c.Close()
		r.logger.Debug("peer client removed", slog.String("peer_id", id))
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Close disposes every client.
func (r *Registry) Close() {
	r.mu.Lock()
	clients := r.clients
	r.clients = make(map[string]*peer.Client)
	r.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
}
