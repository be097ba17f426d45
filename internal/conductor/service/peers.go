package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/aussiebroadwan/conductor/internal/conductor/domain"
	"github.com/aussiebroadwan/conductor/internal/conductor/events"
	"github.com/aussiebroadwan/conductor/internal/conductor/peer"
	"github.com/aussiebroadwan/conductor/internal/conductor/registry"
	"github.com/aussiebroadwan/conductor/internal/conductor/store"
	"github.com/aussiebroadwan/conductor/pkg/cryptox"
	"github.com/aussiebroadwan/conductor/pkg/idx"
	"github.com/aussiebroadwan/conductor/pkg/slogx"
)

// PeerService registers, mutates and selects remote peers. Every mutation
// updates the record, then the live client, then publishes an event.
type PeerService struct {
	Store    store.Store
	Registry *registry.Registry

	// Events is the process-wide sink. PeerEvents carries per-peer topics
	// and may be nil.
	Events     events.Sink
	PeerEvents *events.Hub

	Now func() time.Time
}

type RegisterRequest struct {
	Address    string
	Name       string // ignored for kinds that are named by the peer
	Credential string // ignored for kinds that issue one on claim
	ManagerID  string // gateways only
	Actor      string
	IsInitial  bool
}

func (s *PeerService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Register turns an address into a persisted peer. Nothing is persisted
// unless the peer answered the handshake. For claimed kinds the name check
// runs after the claim, so a rejected registration may still have consumed
// the peer's claim.
func (s *PeerService) Register(ctx context.Context, kind domain.PeerKind, req RegisterRequest) (domain.Peer, error) {
	l := slogx.FromContext(ctx)

	if !kind.Valid() {
		return domain.Peer{}, ErrInvalidKind
	}
	address, err := validateAddress(req.Address)
	if err != nil {
		return domain.Peer{}, err
	}

	if err := s.ensureAddressFree(ctx, kind, address); err != nil {
		return domain.Peer{}, err
	}

	var (
		name   string
		client *peer.Client
	)
	if kind.RemoteIdentity() {
		client = s.Registry.NewTransient(kind, address, "")
		identity, err := client.Claim(ctx)
		if err != nil {
			l.Warn("peer claim failed", slog.String("address", address), slog.Any("error", err))
			return domain.Peer{}, err
		}
		name = identity
		if err := s.ensureNameFree(ctx, kind, name); err != nil {
			l.Warn("claimed peer identity already registered",
				slog.String("address", address), slog.String("name", name))
			return domain.Peer{}, err
		}
	} else {
		name = strings.TrimSpace(req.Name)
		if name == "" {
			name = domain.SlugAddress(address)
		}
		if name == "" {
			return domain.Peer{}, ErrInvalidName
		}
		if err := s.ensureNameFree(ctx, kind, name); err != nil {
			return domain.Peer{}, err
		}
		if err := s.validateManager(ctx, kind, req.ManagerID); err != nil {
			return domain.Peer{}, err
		}

		client = s.Registry.NewTransient(kind, address, req.Credential)
		if _, err := client.Status(ctx); err != nil {
			l.Warn("peer status check failed", slog.String("address", address), slog.Any("error", err))
			return domain.Peer{}, fmt.Errorf("%w: %s: %w", ErrNotReachable, address, err)
		}
	}

	now := s.now()
	rec := domain.Peer{
		ID:         idx.NewAt(now).String(),
		Kind:       kind,
		Name:       name,
		Address:    address,
		Credential: client.Credential(),
		ManagerID:  req.ManagerID,
		IsInitial:  req.IsInitial,
		LastSeenAt: &now,
		CreatedBy:  req.Actor,
		UpdatedBy:  req.Actor,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Store.Peers().CreatePeer(ctx, rec); err != nil {
		client.Close()
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Peer{}, fmt.Errorf("%w: %s", ErrAlreadyRegistered, address)
		}
		l.Error("failed to persist peer", slog.String("address", address), slog.Any("error", err))
		return domain.Peer{}, err
	}

	s.Registry.Insert(rec.ID, client)
	s.publish(ctx, domain.EventCreated, rec, req.Actor)

	l.Info("peer registered",
		slogx.Peer(rec.ID, string(kind), address),
		slog.String("name", name),
		slog.String("credential_fp", cryptox.Fingerprint(rec.Credential)),
	)
	return rec, nil
}

// Release soft-deletes the peer and disposes its client. The remote release
// of a claimed peer is best effort: a peer that is already gone must still be
// removable.
func (s *PeerService) Release(ctx context.Context, kind domain.PeerKind, id, actor string) error {
	l := slogx.FromContext(ctx)

	rec, err := s.Get(ctx, kind, id)
	if err != nil {
		return err
	}

	if kind.RemoteIdentity() && rec.Credential != "" {
		client, err := s.Registry.GetOrCreate(rec)
		if err == nil {
			err = client.Release(ctx)
		}
		if err != nil {
			l.Warn("remote release failed, removing peer anyway",
				slogx.Peer(rec.ID, string(kind), rec.Address), slog.Any("error", err))
		}
	}

	now := s.now()
	if err := s.Store.Peers().SoftDeletePeer(ctx, rec.ID, actor, now); err != nil {
		return s.mapStoreErr(err)
	}
	s.Registry.Remove(rec.ID)

	rec.DeletedAt = &now
	rec.DeletedBy = actor
	s.publish(ctx, domain.EventRemoved, rec, actor)

	l.Info("peer released", slogx.Peer(rec.ID, string(kind), rec.Address))
	return nil
}

func (s *PeerService) Rename(ctx context.Context, kind domain.PeerKind, id, name, actor string) (domain.Peer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Peer{}, ErrInvalidName
	}

	rec, err := s.Get(ctx, kind, id)
	if err != nil {
		return domain.Peer{}, err
	}
	if rec.Name == name {
		return rec, nil
	}
	if err := s.ensureNameFree(ctx, kind, name); err != nil {
		return domain.Peer{}, err
	}

	if err := s.Store.Peers().UpdatePeerName(ctx, rec.ID, name, actor); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Peer{}, fmt.Errorf("%w: %s", ErrNameTaken, name)
		}
		return domain.Peer{}, s.mapStoreErr(err)
	}

	rec = s.reload(ctx, rec)
	s.publish(ctx, domain.EventRenamed, rec, actor)
	return rec, nil
}

// Enable fails with ErrAlreadyEnabled when the peer is not disabled.
func (s *PeerService) Enable(ctx context.Context, kind domain.PeerKind, id, actor string) (domain.Peer, error) {
	rec, err := s.Get(ctx, kind, id)
	if err != nil {
		return domain.Peer{}, err
	}
	if rec.DisabledAt == nil {
		return domain.Peer{}, ErrAlreadyEnabled
	}

	if err := s.Store.Peers().SetPeerDisabled(ctx, rec.ID, nil, actor); err != nil {
		return domain.Peer{}, s.mapStoreErr(err)
	}

	rec = s.reload(ctx, rec)
	s.publish(ctx, domain.EventUpdated, rec, actor)
	return rec, nil
}

// Disable fails with ErrAlreadyDisabled, leaving disabledAt untouched, when
// the peer is already disabled.
func (s *PeerService) Disable(ctx context.Context, kind domain.PeerKind, id, actor string) (domain.Peer, error) {
	rec, err := s.Get(ctx, kind, id)
	if err != nil {
		return domain.Peer{}, err
	}
	if rec.DisabledAt != nil {
		return domain.Peer{}, ErrAlreadyDisabled
	}

	now := s.now()
	if err := s.Store.Peers().SetPeerDisabled(ctx, rec.ID, &now, actor); err != nil {
		return domain.Peer{}, s.mapStoreErr(err)
	}

	rec = s.reload(ctx, rec)
	s.publish(ctx, domain.EventUpdated, rec, actor)
	return rec, nil
}

// UpdateAddress moves the peer. A cached client follows immediately.
func (s *PeerService) UpdateAddress(
	ctx context.Context,
	kind domain.PeerKind,
	id, address, actor string,
) (domain.Peer, error) {
	address, err := validateAddress(address)
	if err != nil {
		return domain.Peer{}, err
	}

	rec, err := s.Get(ctx, kind, id)
	if err != nil {
		return domain.Peer{}, err
	}
	if rec.Address == address {
		return rec, nil
	}
	if err := s.ensureAddressFree(ctx, kind, address); err != nil {
		return domain.Peer{}, err
	}

	if err := s.Store.Peers().UpdatePeerAddress(ctx, rec.ID, address, actor); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Peer{}, fmt.Errorf("%w: %s", ErrAlreadyRegistered, address)
		}
		return domain.Peer{}, s.mapStoreErr(err)
	}
	if c, ok := s.Registry.Lookup(rec.ID); ok {
		c.SetAddress(address)
	}

	rec = s.reload(ctx, rec)
	s.publish(ctx, domain.EventUpdated, rec, actor)
	return rec, nil
}

// UpdateCredential replaces the credential of a locally named peer.
func (s *PeerService) UpdateCredential(
	ctx context.Context,
	kind domain.PeerKind,
	id, credential, actor string,
) (domain.Peer, error) {
	if kind.RemoteIdentity() {
		return domain.Peer{}, ErrCredentialManaged
	}

	rec, err := s.Get(ctx, kind, id)
	if err != nil {
		return domain.Peer{}, err
	}

	if err := s.Store.Peers().UpdatePeerCredential(ctx, rec.ID, credential, actor); err != nil {
		return domain.Peer{}, s.mapStoreErr(err)
	}
	if c, ok := s.Registry.Lookup(rec.ID); ok {
		c.SetCredential(credential)
	}

	slogx.FromContext(ctx).Info("peer credential updated",
		slogx.Peer(rec.ID, string(kind), rec.Address),
		slog.String("credential_fp", cryptox.Fingerprint(credential)),
	)

	rec = s.reload(ctx, rec)
	s.publish(ctx, domain.EventUpdated, rec, actor)
	return rec, nil
}

func (s *PeerService) Get(ctx context.Context, kind domain.PeerKind, id string) (domain.Peer, error) {
	if !kind.Valid() {
		return domain.Peer{}, ErrInvalidKind
	}
	rec, err := s.Store.Peers().GetPeer(ctx, kind, id)
	if err != nil {
		return domain.Peer{}, s.mapStoreErr(err)
	}
	return rec, nil
}

func (s *PeerService) List(ctx context.Context, kind domain.PeerKind, f store.ListFilter) ([]domain.Peer, error) {
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}
	return s.Store.Peers().ListPeers(ctx, kind, f)
}

// Client returns the live client of a peer, creating it on first use.
func (s *PeerService) Client(ctx context.Context, kind domain.PeerKind, id string) (*peer.Client, error) {
	rec, err := s.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	client, err := s.Registry.GetOrCreate(rec)
	if errors.Is(err, registry.ErrDeletedPeer) {
		return nil, ErrNotFound
	}
	return client, err
}

// reload re-reads rec after a write. On failure the caller's copy is kept.
func (s *PeerService) reload(ctx context.Context, rec domain.Peer) domain.Peer {
	fresh, err := s.Store.Peers().GetPeer(ctx, rec.Kind, rec.ID)
	if err != nil {
		slogx.FromContext(ctx).Warn("failed to reload peer", slog.String("peer_id", rec.ID), slog.Any("error", err))
		return rec
	}
	return fresh
}

func (s *PeerService) publish(ctx context.Context, t domain.EventType, rec domain.Peer, actor string) {
	e := domain.NewEvent(t, rec, actor, s.now())

	if s.Events != nil {
		if err := s.Events.Publish(ctx, e); err != nil {
			slogx.FromContext(ctx).Warn("failed to publish lifecycle event",
				slog.String("type", string(t)),
				slog.String("peer_id", rec.ID),
				slog.Any("error", err))
		}
	}
	if s.PeerEvents != nil {
		s.PeerEvents.PublishPeer(e)
	}
}

func (s *PeerService) ensureAddressFree(ctx context.Context, kind domain.PeerKind, address string) error {
	_, err := s.Store.Peers().GetPeerByAddress(ctx, kind, address)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, address)
	case errors.Is(err, store.ErrNotFound):
		return nil
	default:
		return err
	}
}

func (s *PeerService) ensureNameFree(ctx context.Context, kind domain.PeerKind, name string) error {
	_, err := s.Store.Peers().GetPeerByName(ctx, kind, name)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", ErrNameTaken, name)
	case errors.Is(err, store.ErrNotFound):
		return nil
	default:
		return err
	}
}

func (s *PeerService) validateManager(ctx context.Context, kind domain.PeerKind, managerID string) error {
	if managerID == "" {
		return nil
	}
	if kind != domain.KindGateway {
		return fmt.Errorf("%w: only gateways belong to a manager", ErrInvalidManager)
	}
	if _, err := s.Store.Peers().GetPeer(ctx, domain.KindManager, managerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrInvalidManager, managerID)
		}
		return err
	}
	return nil
}

func (s *PeerService) mapStoreErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func validateAddress(raw string) (string, error) {
	address := domain.NormalizeAddress(raw)
	u, err := url.Parse(address)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, raw)
	}
	return address, nil
}
