package service

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/conductor/internal/conductor/events"
	"github.com/aussiebroadwan/conductor/internal/conductor/registry"
	"github.com/aussiebroadwan/conductor/internal/conductor/store/drivers/sqlite"
)

// fakePeer serves the remote peer API. With an identity it behaves like a
// runner and requires the credential it issued; without one it behaves like
// a gateway and accepts any caller.
type fakePeer struct {
	*httptest.Server

	identity   string
	credential string

	mu     sync.Mutex
	status string

	claims   atomic.Int32
	releases atomic.Int32
	pings    atomic.Int32
	statuses atomic.Int32
}

func newRunnerPeer(t *testing.T, identity string, loads ...float64) *fakePeer {
	t.Helper()
	f := &fakePeer{identity: identity, credential: "cred-" + identity}
	f.setLoads(loads...)
	f.start(t)
	return f
}

func newGatewayPeer(t *testing.T) *fakePeer {
	t.Helper()
	f := &fakePeer{status: `{"ok":true,"version":"1.0.0","uptime":1}`}
	f.start(t)
	return f
}

func (f *fakePeer) start(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /claim", func(w http.ResponseWriter, r *http.Request) {
		f.claims.Add(1)
		_, _ = w.Write([]byte(`{"identity":"` + f.identity + `","credential":"` + f.credential + `"}`))
	})
	mux.HandleFunc("POST /release", f.authed(func(w http.ResponseWriter, r *http.Request) {
		f.releases.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	mux.HandleFunc("GET /ping", f.authed(func(w http.ResponseWriter, r *http.Request) {
		f.pings.Add(1)
	}))
	mux.HandleFunc("GET /status", f.authed(func(w http.ResponseWriter, r *http.Request) {
		f.statuses.Add(1)
		f.mu.Lock()
		defer f.mu.Unlock()
		_, _ = w.Write([]byte(f.status))
	}))
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
}

func (f *fakePeer) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if f.credential != "" && r.Header.Get("Authorization") != "Bearer "+f.credential {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (f *fakePeer) setStatus(body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = body
}

func (f *fakePeer) setLoads(loads ...float64) {
	body := `{"workerPool":[`
	for i, l := range loads {
		if i > 0 {
			body += ","
		}
		body += `{"cpuUsage":{"user":` + formatFloat(l) + `,"system":0}}`
	}
	f.setStatus(body + `]}`)
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

type testEnv struct {
	svc   *PeerService
	store *sqlite.Store
	hub   *events.Hub
	all   *events.Subscription
}

// newTestEnv wires a service against a fresh sqlite file. The clock advances
// one second per call so creation order is deterministic.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	s, err := sqlite.NewStore("file:" + filepath.Join(t.TempDir(), "conductor.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())

	reg := registry.New(nil)
	t.Cleanup(reg.Close)

	hub := events.NewHub(nil)
	all := hub.Subscribe(64)

	var (
		mu    sync.Mutex
		clock = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	)
	return &testEnv{
		svc: &PeerService{
			Store:      s,
			Registry:   reg,
			Events:     hub,
			PeerEvents: hub,
			Now: func() time.Time {
				mu.Lock()
				defer mu.Unlock()
				clock = clock.Add(time.Second)
				return clock
			},
		},
		store: s,
		hub:   hub,
		all:   all,
	}
}

func (e *testEnv) nextEvent(t *testing.T) string {
	t.Helper()
	select {
	case ev := <-e.all.C():
		return string(ev.Type) + ":" + ev.PeerID
	case <-time.After(time.Second):
		t.Fatal("no lifecycle event published")
		return ""
	}
}
