package peer

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// closedAddress returns an address nothing listens on.
func closedAddress(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return "http://" + addr
}

func TestClaim(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("stores the issued credential", func(t *testing.T) {
		fp := newFakePeer(t, "runner-1")
		c := New(fp.URL, "")

		identity, err := c.Claim(ctx)
		require.NoError(t, err)
		require.Equal(t, "runner-1", identity)
		require.Equal(t, fp.credential, c.Credential())
		require.NoError(t, c.Ping(ctx))
	})

	t.Run("second claim fails and keeps the first credential", func(t *testing.T) {
		fp := newFakePeer(t, "runner-2")
		c := New(fp.URL, "")

		_, err := c.Claim(ctx)
		require.NoError(t, err)

		_, err = c.Claim(ctx)
		require.ErrorIs(t, err, ErrAlreadyClaimed)
		require.Equal(t, int32(1), fp.claims.Load())
		require.Equal(t, fp.credential, c.Credential())
		require.NoError(t, c.Ping(ctx))
	})

	t.Run("peer claimed elsewhere", func(t *testing.T) {
		fp := newFakePeer(t, "runner-3")
		_, err := New(fp.URL, "").Claim(ctx)
		require.NoError(t, err)

		_, err = New(fp.URL, "").Claim(ctx)
		require.ErrorIs(t, err, ErrAlreadyClaimed)
	})

	t.Run("unreachable peer", func(t *testing.T) {
		addr := closedAddress(t)
		_, err := New(addr, "").Claim(ctx)

		require.ErrorIs(t, err, ErrPeerUnreachable)
		var ue *UnreachableError
		require.True(t, errors.As(err, &ue))
		require.Equal(t, addr, ue.Address)
		require.NotNil(t, ue.Cause)
	})
}

func TestRelease(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	fp := newFakePeer(t, "runner")
	c := New(fp.URL, "")

	require.NoError(t, c.Release(ctx))
	require.Equal(t, int32(0), fp.releases.Load())

	_, err := c.Claim(ctx)
	require.NoError(t, err)

	require.NoError(t, c.Release(ctx))
	require.False(t, c.Claimed())
	require.Equal(t, int32(1), fp.releases.Load())

	require.NoError(t, c.Release(ctx))
	require.Equal(t, int32(1), fp.releases.Load())
}

func TestAuthenticatedRequests(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	fp := newFakePeer(t, "runner")

	t.Run("missing credential", func(t *testing.T) {
		err := New(fp.URL, "").Ping(ctx)
		require.ErrorIs(t, err, ErrUnauthorized)
		require.NotErrorIs(t, err, ErrPeerUnreachable)
	})

	t.Run("missing credential fails locally when required", func(t *testing.T) {
		c := New(closedAddress(t), "", WithRequiredCredential())

		err := c.Ping(ctx)
		require.ErrorIs(t, err, ErrUnauthorized)
		require.NotErrorIs(t, err, ErrPeerUnreachable)

		_, err = c.Status(ctx)
		require.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("released runner no longer calls the peer", func(t *testing.T) {
		c := New(fp.URL, fp.credential, WithRequiredCredential())
		require.NoError(t, c.Ping(ctx))
		pings := fp.pings.Load()

		c.SetCredential("")
		require.ErrorIs(t, c.Ping(ctx), ErrUnauthorized)
		require.Equal(t, pings, fp.pings.Load())
	})

	t.Run("wrong credential", func(t *testing.T) {
		_, err := New(fp.URL, "nope").Status(ctx)
		require.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("status", func(t *testing.T) {
		st, err := New(fp.URL, fp.credential).Status(ctx)
		require.NoError(t, err)
		require.Len(t, st.Workers(), 1)
		require.InDelta(t, 0.75, st.Workers()[0].Load(), 1e-9)
	})

	t.Run("down peer", func(t *testing.T) {
		err := New(closedAddress(t), "x").Ping(ctx)
		require.ErrorIs(t, err, ErrPeerUnreachable)
	})

	t.Run("unexpected status code", func(t *testing.T) {
		c := New(fp.URL+"/missing", fp.credential)
		err := c.Ping(ctx)
		var se *StatusError
		require.ErrorAs(t, err, &se)
		require.Equal(t, 404, se.Code)
	})
}

func TestSetAddressRedirectsNextRequest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	old := newFakePeer(t, "a")
	moved := newFakePeer(t, "a")

	c := New(old.URL, old.credential)
	require.NoError(t, c.Ping(ctx))

	c.SetAddress(moved.URL)
	require.NoError(t, c.Ping(ctx))

	require.Equal(t, int32(1), old.pings.Load())
	require.Equal(t, int32(1), moved.pings.Load())
}

func TestRequestTimeout(t *testing.T) {
	t.Parallel()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	// Accepts connections but never answers.
	go func() {
		var conns []net.Conn
		for {
			conn, err := l.Accept()
			if err != nil {
				for _, c := range conns {
					_ = c.Close()
				}
				return
			}
			conns = append(conns, conn)
		}
	}()

	c := New("http://"+l.Addr().String(), "x", WithRequestTimeout(50*time.Millisecond))
	err = c.Ping(context.Background())
	require.ErrorIs(t, err, ErrPeerUnreachable)
}

func TestCallerCancellationIsNotUnreachable(t *testing.T) {
	t.Parallel()

	fp := newFakePeer(t, "r")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New(fp.URL, fp.credential).Ping(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.NotErrorIs(t, err, ErrPeerUnreachable)
}
