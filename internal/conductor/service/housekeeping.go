package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/conductor/internal/conductor/domain"
	"github.com/aussiebroadwan/conductor/internal/conductor/store"
)

// HousekeepingService periodically pings every enabled peer and records the
// last successful contact.
type HousekeepingService struct {
	Peers    *PeerService
	Logger   *slog.Logger
	Interval time.Duration
	Timeout  time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService defaults a non-positive interval to one minute.
func NewHousekeepingService(peers *PeerService, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Minute
	}

	return &HousekeepingService{
		Peers:    peers,
		Logger:   logger,
		Interval: interval,
		Timeout:  5 * time.Second,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start is non-blocking. Call Stop to shut the worker down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until an in-progress sweep has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Sweep(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Sweep(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Sweep pings every enabled peer once and returns how many answered.
// Failures are logged and do not stop the sweep.
func (s *HousekeepingService) Sweep(ctx context.Context) int {
	var seen, total int

	for _, kind := range []domain.PeerKind{domain.KindRunner, domain.KindGateway, domain.KindManager} {
		peers, err := s.Peers.Store.Peers().ListPeers(ctx, kind, store.ListFilter{})
		if err != nil {
			s.Logger.Error("failed to list peers", "kind", kind, "error", err)
			continue
		}

		for _, rec := range peers {
			total++
			if s.ping(ctx, rec) {
				seen++
			}
		}
	}

	s.Logger.Debug("housekeeping sweep completed", "peers", total, "reachable", seen)
	return seen
}

func (s *HousekeepingService) ping(ctx context.Context, rec domain.Peer) bool {
	client, err := s.Peers.Registry.GetOrCreate(rec)
	if err != nil {
		return false
	}

	pctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	if err := client.Ping(pctx); err != nil {
		s.Logger.Debug("peer did not answer ping", "peer_id", rec.ID, "error", err)
		return false
	}

	if err := s.Peers.Store.Peers().TouchPeerLastSeen(ctx, rec.ID, s.Peers.now()); err != nil {
		s.Logger.Warn("failed to record peer contact", "peer_id", rec.ID, "error", err)
		return false
	}
	return true
}
