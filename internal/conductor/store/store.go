package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/conductor/internal/conductor/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers implement it and
// expose sub-repositories so transactions cannot nest.
type Store interface {
	Peers() Peers

	ApplyMigrations() error

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transaction-scoped Store.
type Tx interface {
	Peers() Peers
}

// ListFilter narrows ListPeers. Soft-deleted peers are never listed.
type ListFilter struct {
	IncludeDisabled bool
	ManagerID       string // gateways of one manager
	InitialOnly     bool
	NewestFirst     bool // default is oldest first
}

type Peers interface {
	// GetPeer returns a non-deleted peer of the given kind.
	GetPeer(ctx context.Context, kind domain.PeerKind, id string) (domain.Peer, error)

	// GetPeerByAddress returns the non-deleted peer of kind at address.
	GetPeerByAddress(ctx context.Context, kind domain.PeerKind, address string) (domain.Peer, error)

	// GetPeerByName returns the non-deleted peer of kind named name.
	GetPeerByName(ctx context.Context, kind domain.PeerKind, name string) (domain.Peer, error)

	ListPeers(ctx context.Context, kind domain.PeerKind, f ListFilter) ([]domain.Peer, error)

	// ListEligibleManagers returns enabled managers with at least one enabled
	// gateway, newest first.
	ListEligibleManagers(ctx context.Context) ([]domain.Peer, error)

	// CreatePeer inserts p. Returns ErrAlreadyExists when the address or name
	// collides with a non-deleted peer of the same kind.
	CreatePeer(ctx context.Context, p domain.Peer) error

	UpdatePeerName(ctx context.Context, id, name, by string) error
	UpdatePeerAddress(ctx context.Context, id, address, by string) error
	UpdatePeerCredential(ctx context.Context, id, credential, by string) error

	// SetPeerDisabled sets or clears disabled_at. A nil at enables the peer.
	SetPeerDisabled(ctx context.Context, id string, at *time.Time, by string) error

	TouchPeerLastSeen(ctx context.Context, id string, at time.Time) error

	// SoftDeletePeer stamps deleted_at. Deleted peers release their address
	// and name for reuse.
	SoftDeletePeer(ctx context.Context, id, by string, at time.Time) error
}
