package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/conductor/internal/conductor/domain"
	"github.com/aussiebroadwan/conductor/internal/conductor/peer"
	"github.com/stretchr/testify/require"
)

func statusServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestGetOrCreateReusesClient(t *testing.T) {
	t.Parallel()

	r := New(nil)
	rec := domain.Peer{ID: "p1", Address: "http://one", Credential: "c"}

	a, err := r.GetOrCreate(rec)
	require.NoError(t, err)
	b, err := r.GetOrCreate(rec)
	require.NoError(t, err)

	require.Same(t, a, b)
	require.Equal(t, "http://one", a.Address())
	require.Equal(t, "c", a.Credential())
	require.Equal(t, 1, r.Len())
}

func TestGetOrCreateConcurrent(t *testing.T) {
	t.Parallel()

	r := New(nil)
	rec := domain.Peer{ID: "p1", Address: "http://one"}

	const n = 64
	clients := make([]*peer.Client, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := r.GetOrCreate(rec)
			if err == nil {
				clients[i] = c
			}
		}()
	}
	wg.Wait()

	for _, c := range clients {
		require.Same(t, clients[0], c)
	}
	require.Equal(t, 1, r.Len())
}

func TestGetOrCreateRejectsDeleted(t *testing.T) {
	t.Parallel()

	r := New(nil)
	now := time.Now()
	_, err := r.GetOrCreate(domain.Peer{ID: "gone", DeletedAt: &now})
	require.ErrorIs(t, err, ErrDeletedPeer)
	require.Zero(t, r.Len())
}

func TestRemoveStopsPolling(t *testing.T) {
	t.Parallel()

	srv, hits := statusServer(t)
	r := New(nil, peer.WithPollInterval(10*time.Millisecond))

	c, err := r.GetOrCreate(domain.Peer{ID: "p1", Address: srv.URL})
	require.NoError(t, err)

	w := peer.NewWatcher(1)
	require.NoError(t, c.Subscribe(w))
	<-w.C()

	r.Remove("p1")
	require.False(t, c.Polling())
	_, ok := r.Lookup("p1")
	require.False(t, ok)

	stopped := hits.Load()
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, stopped, hits.Load())

	// Unknown ids are ignored.
	r.Remove("p1")
	r.Remove("never")
}

func TestInsertReplacesTransient(t *testing.T) {
	t.Parallel()

	r := New(nil)
	old, err := r.GetOrCreate(domain.Peer{ID: "p1", Address: "http://old"})
	require.NoError(t, err)

	c := r.NewTransient(domain.KindGateway, "http://new", "cred")
	require.Equal(t, 1, r.Len())

	r.Insert("p1", c)
	got, ok := r.Lookup("p1")
	require.True(t, ok)
	require.Same(t, c, got)
	require.ErrorIs(t, old.Subscribe(peer.NewWatcher(1)), peer.ErrClosed)
}

func TestClose(t *testing.T) {
	t.Parallel()

	r := New(nil)
	c, err := r.GetOrCreate(domain.Peer{ID: "a", Address: "http://a"})
	require.NoError(t, err)
	_, err = r.GetOrCreate(domain.Peer{ID: "b", Address: "http://b"})
	require.NoError(t, err)

	r.Close()
	require.Zero(t, r.Len())
	require.ErrorIs(t, c.Subscribe(peer.NewWatcher(1)), peer.ErrClosed)
}

func TestRemovedPeerIsNotRevived(t *testing.T) {
	t.Parallel()

	r := New(nil)
	stale := domain.Peer{ID: "p1", Kind: domain.KindGateway, Address: "http://p1"}

	_, err := r.GetOrCreate(stale)
	require.NoError(t, err)

	r.Remove("p1")

	// A record read before the removal carries no DeletedAt.
	c, err := r.GetOrCreate(stale)
	require.ErrorIs(t, err, ErrDeletedPeer)
	require.Nil(t, c)
	_, ok := r.Lookup("p1")
	require.False(t, ok)
	require.Zero(t, r.Len())

	late := r.NewTransient(domain.KindGateway, "http://p1", "")
	r.Insert("p1", late)
	_, ok = r.Lookup("p1")
	require.False(t, ok)
	require.ErrorIs(t, late.Subscribe(peer.NewWatcher(1)), peer.ErrClosed)
}

func TestRemoveBeforeCreateIsRemembered(t *testing.T) {
	t.Parallel()

	r := New(nil)
	r.Remove("p1")

	_, err := r.GetOrCreate(domain.Peer{ID: "p1", Address: "http://p1"})
	require.ErrorIs(t, err, ErrDeletedPeer)
}

func TestRunnerClientsRequireCredential(t *testing.T) {
	t.Parallel()

	srv, hits := statusServer(t)
	r := New(nil)

	runner, err := r.GetOrCreate(domain.Peer{ID: "r1", Kind: domain.KindRunner, Address: srv.URL})
	require.NoError(t, err)
	_, err = runner.Status(context.Background())
	require.ErrorIs(t, err, peer.ErrUnauthorized)
	require.Zero(t, hits.Load())

	gateway, err := r.GetOrCreate(domain.Peer{ID: "g1", Kind: domain.KindGateway, Address: srv.URL})
	require.NoError(t, err)
	_, err = gateway.Status(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(1), hits.Load())
}
