package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aussiebroadwan/conductor/internal/conductor/domain"
	"github.com/aussiebroadwan/conductor/internal/conductor/store"
)

const seedActor = "system"

// InitialPeer is a peer provisioned from configuration.
type InitialPeer struct {
	Name    string
	Address string
}

type SeedResult struct {
	Registered int
	Pruned     int
	Failed     []SoftFailure
}

// SeedService reconciles configured peers with the store on startup.
type SeedService struct {
	Peers  *PeerService
	Logger *slog.Logger
}

// Seed registers configured peers that are missing and releases initial
// peers whose address is no longer configured. Peers registered through the
// API are never pruned. Registration failures are collected, not returned.
func (s *SeedService) Seed(ctx context.Context, kind domain.PeerKind, peers []InitialPeer) (SeedResult, error) {
	var res SeedResult
	wanted := make(map[string]struct{}, len(peers))

	for _, ip := range peers {
		address, err := validateAddress(ip.Address)
		if err != nil {
			res.Failed = append(res.Failed, SoftFailure{Address: ip.Address, Err: err})
			continue
		}
		wanted[address] = struct{}{}

		_, err = s.Peers.Store.Peers().GetPeerByAddress(ctx, kind, address)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return res, err
		}

		rec, err := s.Peers.Register(ctx, kind, RegisterRequest{
			Address:   address,
			Name:      ip.Name,
			Actor:     seedActor,
			IsInitial: true,
		})
		if err != nil {
			s.Logger.Warn("failed to register initial peer",
				slog.String("kind", string(kind)),
				slog.String("address", address),
				slog.Any("error", err))
			res.Failed = append(res.Failed, SoftFailure{Name: ip.Name, Address: address, Err: err})
			continue
		}
		res.Registered++
		s.Logger.Info("registered initial peer",
			slog.String("kind", string(kind)),
			slog.String("peer_id", rec.ID),
			slog.String("name", rec.Name))
	}

	initial, err := s.Peers.Store.Peers().ListPeers(ctx, kind, store.ListFilter{
		IncludeDisabled: true,
		InitialOnly:     true,
	})
	if err != nil {
		return res, err
	}
	for _, rec := range initial {
		if _, ok := wanted[rec.Address]; ok {
			continue
		}
		if err := s.Peers.Release(ctx, kind, rec.ID, seedActor); err != nil {
			s.Logger.Warn("failed to prune initial peer",
				slog.String("peer_id", rec.ID), slog.Any("error", err))
			res.Failed = append(res.Failed, SoftFailure{PeerID: rec.ID, Name: rec.Name, Address: rec.Address, Err: err})
			continue
		}
		res.Pruned++
		s.Logger.Info("pruned initial peer",
			slog.String("kind", string(kind)),
			slog.String("peer_id", rec.ID),
			slog.String("address", rec.Address))
	}

	return res, nil
}
