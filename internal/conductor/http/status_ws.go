package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aussiebroadwan/conductor/internal/conductor/domain"
	"github.com/aussiebroadwan/conductor/internal/conductor/events"
	"github.com/aussiebroadwan/conductor/internal/conductor/peer"
	"github.com/aussiebroadwan/conductor/internal/conductor/service"
	"github.com/aussiebroadwan/conductor/pkg/conductorsdk"
	"github.com/aussiebroadwan/conductor/pkg/slogx"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	wsBufferSize   = 1024

	snapshotBuffer = 4
	eventBuffer    = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  wsBufferSize,
	WriteBufferSize: wsBufferSize,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StatusHandler streams a peer's polled status over a websocket. The socket
// is an observer of the peer client: the first socket starts polling and the
// last one to close stops it. Lifecycle events of the peer are relayed on
// the same socket, which closes when the peer is removed.
type StatusHandler struct {
	Peers *service.PeerService
	Hub   *events.Hub
	Kind  domain.PeerKind
}

// ServeHTTP handles GET /v1/{kind}/{id}/status
//
//	@Summary		Watch Peer Status
//	@Description	Websocket. Sends a status frame per poll tick, failed ticks included, and an event frame per lifecycle change.
//	@Tags			Peers
//	@Security		BearerAuth
//	@Param			kind			path		string	true	"runners, gateways or managers"
//	@Param			id				path		string	true	"Peer ID"
//	@Param			access_token	query		string	false	"Bearer token for browsers that cannot set headers"
//	@Success		101				{object}	conductorsdk.StatusMessage
//	@Failure		404				{object}	conductorsdk.ErrorResponse
//	@Router			/v1/{kind}/{id}/status [get].
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	id := r.PathValue("id")

	// Fail before upgrading so unknown peers get a plain 404.
	if _, err := h.Peers.Get(ctx, h.Kind, id); err != nil {
		writeServiceError(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	s := &statusSession{
		conn:    conn,
		peerID:  id,
		watcher: peer.NewWatcher(snapshotBuffer),
		log:     log,
	}
	if h.Hub != nil {
		s.events = h.Hub.SubscribePeer(id, eventBuffer)
	}

	if err := h.Peers.SubscribeStatus(ctx, h.Kind, id, s.watcher); err != nil {
		log.Warn("status subscription failed", slog.String("peer_id", id), slog.Any("error", err))
		s.close(websocket.CloseGoingAway, "peer unavailable")
		return
	}
	defer h.Peers.UnsubscribeStatus(id, s.watcher)

	log.Debug("status watcher attached", slog.String("peer_id", id), slog.String("watcher", s.watcher.ID().String()))
	s.run()
}

type statusSession struct {
	conn    *websocket.Conn
	peerID  string
	watcher *peer.Watcher
	events  *events.Subscription
	log     *slog.Logger
}

func (s *statusSession) run() {
	defer s.release()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	gone := make(chan struct{})
	go s.discardIncoming(gone)

	var lifecycle <-chan domain.Event
	if s.events != nil {
		lifecycle = s.events.C()
	}

	for {
		select {
		case <-gone:
			return

		case snap := <-s.watcher.C():
			if !s.write(snapshotMessage(s.peerID, snap)) {
				return
			}

		case e, ok := <-lifecycle:
			if !ok {
				return
			}
			if !s.write(conductorsdk.StatusMessage{
				Type:    "event",
				PeerID:  s.peerID,
				Address: e.Address,
				OK:      true,
				Event:   string(e.Type),
				At:      e.At,
			}) {
				return
			}
			if e.Type == domain.EventRemoved {
				s.close(websocket.CloseNormalClosure, "peer removed")
				return
			}

		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// discardIncoming drains client frames so pongs and close frames are
// processed.
func (s *statusSession) discardIncoming(gone chan<- struct{}) {
	defer close(gone)
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *statusSession) write(msg conductorsdk.StatusMessage) bool {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(msg); err != nil {
		s.log.Debug("status watcher write failed", slog.String("peer_id", s.peerID), slog.Any("error", err))
		return false
	}
	return true
}

func (s *statusSession) close(code int, reason string) {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
	s.release()
}

func (s *statusSession) release() {
	if s.events != nil {
		s.events.Close()
	}
	_ = s.conn.Close()
}

func snapshotMessage(peerID string, snap peer.Snapshot) conductorsdk.StatusMessage {
	msg := conductorsdk.StatusMessage{
		Type:    "status",
		PeerID:  peerID,
		Address: snap.Address,
		OK:      snap.OK(),
		At:      snap.At,
	}
	if snap.Status != nil {
		msg.Status = snap.Status.Raw()
	}
	if snap.Err != nil {
		msg.Error = snap.Err.Error()
	}
	return msg
}
