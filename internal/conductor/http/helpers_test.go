package http

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/conductor/internal/conductor/events"
	"github.com/aussiebroadwan/conductor/internal/conductor/peer"
	"github.com/aussiebroadwan/conductor/internal/conductor/registry"
	"github.com/aussiebroadwan/conductor/internal/conductor/service"
	"github.com/aussiebroadwan/conductor/internal/conductor/store/drivers/sqlite"
	"github.com/aussiebroadwan/conductor/pkg/conductorsdk"
	"github.com/aussiebroadwan/conductor/pkg/jwtx"
)

// remotePeer is a minimal peer API. Runners require the credential they
// hand out on claim; gateways accept any caller.
type remotePeer struct {
	*httptest.Server

	identity   string
	credential string

	mu     sync.Mutex
	status string
}

func newRunner(t *testing.T, identity string, load float64) *remotePeer {
	t.Helper()
	p := &remotePeer{
		identity:   identity,
		credential: "cred-" + identity,
		status:     `{"workerPool":[{"cpuUsage":{"user":` + strconv.FormatFloat(load, 'f', -1, 64) + `,"system":0}}]}`,
	}
	p.start(t)
	return p
}

func newGateway(t *testing.T) *remotePeer {
	t.Helper()
	p := &remotePeer{status: `{"ok":true,"version":"2.1.0"}`}
	p.start(t)
	return p
}

func (p *remotePeer) start(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /claim", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"identity":"` + p.identity + `","credential":"` + p.credential + `"}`))
	})
	mux.HandleFunc("POST /release", p.authed(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	mux.HandleFunc("GET /ping", p.authed(func(w http.ResponseWriter, r *http.Request) {}))
	mux.HandleFunc("GET /status", p.authed(func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()
		_, _ = w.Write([]byte(p.status))
	}))
	p.Server = httptest.NewServer(mux)
	t.Cleanup(p.Close)
}

func (p *remotePeer) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p.credential != "" && r.Header.Get("Authorization") != "Bearer "+p.credential {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

type testServer struct {
	*httptest.Server
	sdk *conductorsdk.Client
	reg *registry.Registry
}

// newTestServer serves a fully wired router. A nil verifier disables auth.
func newTestServer(t *testing.T, verifier jwtx.Verifier) *testServer {
	t.Helper()

	st, err := sqlite.NewStore("file:" + filepath.Join(t.TempDir(), "conductor.db") + "?_pragma=busy_timeout(5000)")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	reg := registry.New(nil, peer.WithPollInterval(20*time.Millisecond))
	t.Cleanup(reg.Close)

	hub := events.NewHub(nil)

	router := NewRouter(verifier, "test", st, nil)
	router.PeerService = &service.PeerService{
		Store:      st,
		Registry:   reg,
		Events:     hub,
		PeerEvents: hub,
	}
	router.Hub = hub
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{
		Server: srv,
		sdk:    conductorsdk.NewClient(srv.URL, ""),
		reg:    reg,
	}
}

func (s *testServer) wsURL(path string) string {
	return "ws" + strings.TrimPrefix(s.URL, "http") + path
}
