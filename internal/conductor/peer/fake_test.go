package peer

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
)

// fakePeer stands in for a remote runner or gateway.
type fakePeer struct {
	*httptest.Server

	identity   string
	credential string

	mu      sync.Mutex
	claimed bool
	status  string

	claims   atomic.Int32
	releases atomic.Int32
	pings    atomic.Int32
	statuses atomic.Int32
}

func newFakePeer(t *testing.T, identity string) *fakePeer {
	t.Helper()

	f := &fakePeer{
		identity:   identity,
		credential: "cred-" + identity,
		status:     `{"workerPool":[{"cpuUsage":{"user":0.25,"system":0.5}}]}`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /claim", func(w http.ResponseWriter, r *http.Request) {
		f.claims.Add(1)
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.claimed {
			w.WriteHeader(http.StatusConflict)
			return
		}
		f.claimed = true
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"identity":"` + f.identity + `","credential":"` + f.credential + `"}`))
	})
	mux.HandleFunc("POST /release", f.authed(func(w http.ResponseWriter, r *http.Request) {
		f.releases.Add(1)
		f.mu.Lock()
		f.claimed = false
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	mux.HandleFunc("GET /ping", f.authed(func(w http.ResponseWriter, r *http.Request) {
		f.pings.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	mux.HandleFunc("GET /status", f.authed(func(w http.ResponseWriter, r *http.Request) {
		f.statuses.Add(1)
		f.mu.Lock()
		body := f.status
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakePeer) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+f.credential {
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
