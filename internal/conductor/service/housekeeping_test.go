package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/conductor/internal/conductor/domain"
)

func TestHousekeepingSweep(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	up, upRec := registerRunner(t, env, "up", 0.1)
	down, downRec := registerRunner(t, env, "down", 0.1)
	down.Close()

	hk := NewHousekeepingService(env.svc, slog.Default(), time.Hour)
	require.Equal(t, 1, hk.Sweep(ctx))
	require.Equal(t, int32(1), up.pings.Load())

	before := *downRec.LastSeenAt
	after, err := env.svc.Get(ctx, domain.KindRunner, upRec.ID)
	require.NoError(t, err)
	require.True(t, after.LastSeenAt.After(*upRec.LastSeenAt))

	stale, err := env.svc.Get(ctx, domain.KindRunner, downRec.ID)
	require.NoError(t, err)
	require.True(t, stale.LastSeenAt.Equal(before))
}

func TestHousekeepingStartStop(t *testing.T) {
	env := newTestEnv(t)
	fp, _ := registerRunner(t, env, "r", 0.1)

	hk := NewHousekeepingService(env.svc, slog.Default(), time.Hour)
	hk.Start()
	require.Eventually(t, func() bool { return fp.pings.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	hk.Stop()
}
