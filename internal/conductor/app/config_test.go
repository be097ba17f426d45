package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/conductor/internal/conductor/service"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"CONDUCTOR_DATABASE_FILE", "CONDUCTOR_JWT_SECRET", "PORT", "HOUSEKEEPING_INTERVAL",
		"PEER_POLL_INTERVAL", "INITIAL_RUNNERS", "INITIAL_GATEWAYS", "EVENTS_DRIVER",
	} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()
	assert.Equal(t, "conductor.db", cfg.DatabaseFile)
	assert.Empty(t, cfg.JWTSecret)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, time.Minute, cfg.HousekeepingInterval)
	assert.Equal(t, time.Second, cfg.PeerPollInterval)
	assert.Equal(t, 5*time.Second, cfg.PeerRequestTimeout)
	assert.Equal(t, "memory", cfg.EventsDriver)
	assert.Equal(t, "conductor", cfg.EventsPrefix)
	assert.Empty(t, cfg.InitialRunners)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("PEER_POLL_INTERVAL", "250ms")
	t.Setenv("HOUSEKEEPING_INTERVAL", "30")
	t.Setenv("EVENTS_DRIVER", "Redis")
	t.Setenv("INITIAL_RUNNERS", "http://r1:7000, http://r2:7000")
	t.Setenv("INITIAL_GATEWAYS", "edge=http://gw:9000")

	cfg := LoadConfig()
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.PeerPollInterval)
	assert.Equal(t, 30*time.Second, cfg.HousekeepingInterval)
	assert.Equal(t, "redis", cfg.EventsDriver)
	assert.Equal(t, []service.InitialPeer{
		{Address: "http://r1:7000"},
		{Address: "http://r2:7000"},
	}, cfg.InitialRunners)
	assert.Equal(t, []service.InitialPeer{{Name: "edge", Address: "http://gw:9000"}}, cfg.InitialGateways)
}

func TestParseInitialPeers(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  []service.InitialPeer
	}{
		{name: "empty", value: "", want: nil},
		{name: "blank entries", value: " , ,", want: nil},
		{name: "bare address", value: "http://a:1", want: []service.InitialPeer{{Address: "http://a:1"}}},
		{name: "named", value: "a=http://a:1", want: []service.InitialPeer{{Name: "a", Address: "http://a:1"}}},
		{
			name:  "query string is not a name",
			value: "http://a:1/?x=y",
			want:  []service.InitialPeer{{Address: "http://a:1/?x=y"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, parseInitialPeers(tt.value))
		})
	}
}

func TestBuildSinkRejectsUnknownDriver(t *testing.T) {
	_, _, err := buildSink(Config{EventsDriver: "kafka"}, nil)
	require.Error(t, err)
}

func TestBuildSinkRequiresURL(t *testing.T) {
	_, _, err := buildSink(Config{EventsDriver: "redis"}, nil)
	require.Error(t, err)

	_, _, err = buildSink(Config{EventsDriver: "nats"}, nil)
	require.Error(t, err)
}
