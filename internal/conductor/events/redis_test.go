package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/conductor/internal/conductor/domain"
)

func TestRedisSink(t *testing.T) {
	ctx := context.Background()

	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	sink, err := NewRedisSink("redis://"+server.Addr(), "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })
	require.NoError(t, sink.Ping(ctx))

	reader := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = reader.Close() })

	sub := reader.Subscribe(ctx, "test.peers.runner.created")
	t.Cleanup(func() { _ = sub.Close() })
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	e := domain.Event{
		Type:    domain.EventCreated,
		Kind:    domain.KindRunner,
		PeerID:  "01J0000000000000000000000",
		Name:    "runner-1",
		Address: "http://runner-1",
		At:      time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, sink.Publish(ctx, e))

	select {
	case msg := <-sub.Channel():
		var got domain.Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		require.Equal(t, e.PeerID, got.PeerID)
		require.Equal(t, e.Type, got.Type)
		require.True(t, e.At.Equal(got.At))
	case <-time.After(2 * time.Second):
		t.Fatal("no message on channel")
	}

	entries, err := reader.XRange(ctx, sink.Stream(), "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "created", entries[0].Values["type"])
	require.Equal(t, e.PeerID, entries[0].Values["peer_id"])
}

func TestRedisSinkBadURL(t *testing.T) {
	_, err := NewRedisSink("not-a-url", "test")
	require.Error(t, err)
}

func TestRedisSinkUnavailable(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)

	sink, err := NewRedisSink("redis://"+server.Addr(), "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })
	server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.Error(t, sink.Publish(ctx, testEvent(domain.EventCreated, "p")))
}
