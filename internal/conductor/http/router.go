package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/conductor/internal/conductor/events"
	"github.com/aussiebroadwan/conductor/internal/conductor/service"
	"github.com/aussiebroadwan/conductor/internal/conductor/store"
	"github.com/aussiebroadwan/conductor/pkg/conductorsdk"
	"github.com/aussiebroadwan/conductor/pkg/httpx"
	"github.com/aussiebroadwan/conductor/pkg/jwtx"
	"github.com/aussiebroadwan/conductor/pkg/slogx"

	_ "github.com/aussiebroadwan/conductor/api/conductor" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

const (
	ScopePeersRead  = "peers:read"
	ScopePeersWrite = "peers:write"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store       store.Store
	PeerService *service.PeerService
	Hub         *events.Hub

	// EventsCheck reports the health of an external event sink. Optional.
	EventsCheck func(context.Context) error
}

// NewRouter builds a router. A nil verifier disables authentication.
func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerPeers()
	r.registerSelection()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Conductor Peer Registry API
//	@version		0.1.0
//	@description	Registers remote runners, gateways and managers, streams their status and selects
//	@description	which peer should service new work.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/conductor
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token with peers:read or peers:write. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) secured(h http.Handler, limit httpx.RateLimitConfig, scopes ...string) http.Handler {
	return httpx.Chain(h,
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireAnyScope(scopes...),
		httpx.RateLimitByUser(limit),
	)
}

func (r *Router) registerPeers() {
	for _, segment := range []string{conductorsdk.Runners, conductorsdk.Gateways, conductorsdk.Managers} {
		kind := kindFromPath(segment)
		h := &PeersHandler{Peers: r.PeerService, Kind: kind}
		status := &StatusHandler{Peers: r.PeerService, Hub: r.Hub, Kind: kind}
		base := "/v1/" + segment

		// Registration and release reach out to the peer.
		r.Mux.Handle("POST "+base,
			r.secured(http.HandlerFunc(h.HandleRegister), httpx.WriteLimit, ScopePeersWrite))
		r.Mux.Handle("DELETE "+base+"/{id}",
			r.secured(http.HandlerFunc(h.HandleRelease), httpx.WriteLimit, ScopePeersWrite))

		r.Mux.Handle("PATCH "+base+"/{id}",
			r.secured(http.HandlerFunc(h.HandleUpdate), httpx.WriteLimit, ScopePeersWrite))
		r.Mux.Handle("POST "+base+"/{id}/enable",
			r.secured(http.HandlerFunc(h.HandleEnable), httpx.WriteLimit, ScopePeersWrite))
		r.Mux.Handle("POST "+base+"/{id}/disable",
			r.secured(http.HandlerFunc(h.HandleDisable), httpx.WriteLimit, ScopePeersWrite))

		r.Mux.Handle("GET "+base,
			r.secured(http.HandlerFunc(h.HandleList), httpx.ReadLimit, ScopePeersRead, ScopePeersWrite))
		r.Mux.Handle("GET "+base+"/{id}",
			r.secured(http.HandlerFunc(h.HandleGet), httpx.ReadLimit, ScopePeersRead, ScopePeersWrite))
		r.Mux.Handle("GET "+base+"/{id}/status",
			r.secured(status, httpx.ReadLimit, ScopePeersRead, ScopePeersWrite))
	}
}

func (r *Router) registerSelection() {
	h := &SelectionHandler{Peers: r.PeerService}

	r.Mux.Handle("POST /v1/runners/select",
		r.secured(http.HandlerFunc(h.HandleSelectRunner), httpx.WriteLimit, ScopePeersWrite))
	r.Mux.Handle("POST /v1/managers/select",
		r.secured(http.HandlerFunc(h.HandleSelectManager), httpx.WriteLimit, ScopePeersWrite))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.HealthLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.PeerService, r.EventsCheck),
			httpx.RateLimitByIP(httpx.HealthLimit),
		),
	)
}
