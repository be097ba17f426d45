package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/conductor/internal/conductor/domain"
	"github.com/aussiebroadwan/conductor/internal/conductor/peer"
	"github.com/aussiebroadwan/conductor/internal/conductor/registry"
	"github.com/aussiebroadwan/conductor/internal/conductor/store"
	"github.com/aussiebroadwan/conductor/pkg/slogx"
)

type RunnerSelection struct {
	Client *peer.Client
	Peer   domain.Peer
	Load   float64
}

type ManagerSelection struct {
	Client  *peer.Client
	Peer    domain.Peer
	Gateway domain.Peer

	// Skipped lists the candidates whose status checks failed before a manager
	// was found.
	Skipped []SoftFailure
}

// SelectRunner returns the runner owning the least loaded worker across all
// enabled runners. On equal loads the runner examined last wins. A runner
// whose status cannot be fetched aborts the selection since the load picture
// would be incomplete. Runners without a usable credential are left out.
func (s *PeerService) SelectRunner(ctx context.Context) (RunnerSelection, error) {
	runners, err := s.Store.Peers().ListPeers(ctx, domain.KindRunner, store.ListFilter{})
	if err != nil {
		return RunnerSelection{}, err
	}
	if len(runners) == 0 {
		return RunnerSelection{}, ErrNoPeersAvailable
	}

	var (
		best  RunnerSelection
		found bool
	)
	for _, rec := range runners {
		if rec.CredentialUnreadable {
			slogx.FromContext(ctx).Warn("runner needs to be re-claimed, skipping",
				slogx.Peer(rec.ID, string(rec.Kind), rec.Address))
			continue
		}

		client, err := s.Registry.GetOrCreate(rec)
		if errors.Is(err, registry.ErrDeletedPeer) {
			// Released after the listing.
			continue
		}
		if err != nil {
			return RunnerSelection{}, err
		}

		status, err := client.Status(ctx)
		if err != nil {
			return RunnerSelection{}, fmt.Errorf("runner %s: %w", rec.Name, err)
		}

		for _, w := range status.Workers() {
			load := w.Load()
			if !found || !(load > best.Load) {
				best = RunnerSelection{Client: client, Peer: rec, Load: load}
				found = true
			}
		}
	}

	if !found {
		return RunnerSelection{}, fmt.Errorf("%w: no runner reported workers", ErrNoPeersAvailable)
	}
	return best, nil
}

// SelectManager returns the newest manager that answers a status request and
// has at least one answering gateway. Failed checks are recorded in
// Skipped and never abort the search.
func (s *PeerService) SelectManager(ctx context.Context) (ManagerSelection, error) {
	l := slogx.FromContext(ctx)

	managers, err := s.Store.Peers().ListEligibleManagers(ctx)
	if err != nil {
		return ManagerSelection{}, err
	}

	var skipped []SoftFailure
	skip := func(rec domain.Peer, err error) {
		l.Debug("skipping peer during manager selection",
			slogx.Peer(rec.ID, string(rec.Kind), rec.Address), slog.Any("error", err))
		skipped = append(skipped, SoftFailure{PeerID: rec.ID, Name: rec.Name, Address: rec.Address, Err: err})
	}

	for _, m := range managers {
		if err := ctx.Err(); err != nil {
			return ManagerSelection{Skipped: skipped}, err
		}

		client, err := s.Registry.GetOrCreate(m)
		if err != nil {
			skip(m, err)
			continue
		}
		if _, err := client.Status(ctx); err != nil {
			skip(m, err)
			continue
		}

		gateways, err := s.Store.Peers().ListPeers(ctx, domain.KindGateway, store.ListFilter{ManagerID: m.ID})
		if err != nil {
			return ManagerSelection{Skipped: skipped}, err
		}
		for _, g := range gateways {
			gc, err := s.Registry.GetOrCreate(g)
			if err == nil {
				_, err = gc.Status(ctx)
			}
			if err != nil {
				skip(g, err)
				continue
			}
			return ManagerSelection{Client: client, Peer: m, Gateway: g, Skipped: skipped}, nil
		}
	}

	return ManagerSelection{Skipped: skipped}, ErrNoEligiblePeer
}
