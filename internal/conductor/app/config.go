package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/conductor/internal/conductor/service"
)

type Config struct {
	DatabaseFile  string // Optional: path to SQLite database file (default: ./conductor.db)
	MasterKeyPath string // Optional: path to master key material sealing peer credentials

	JWTSecret string // Optional: HS256 secret for operator tokens; empty disables API auth
	JWTIssuer string // Optional: expected token issuer (default: bartab-auth)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Liveness sweep interval (default: 1m)

	PeerPollInterval   time.Duration // Status poll period for observed peers (default: 1s)
	PeerRequestTimeout time.Duration // Timeout of a single peer request (default: 5s)

	InitialRunners  []service.InitialPeer // INITIAL_RUNNERS, comma separated addresses
	InitialGateways []service.InitialPeer // INITIAL_GATEWAYS, comma separated name=address or address

	EventsDriver string // memory, redis or nats (default: memory)
	RedisURL     string // Required for the redis driver
	NATSURL      string // Required for the nats driver
	EventsPrefix string // Channel, stream and subject prefix (default: conductor)
}

func LoadConfig() Config {
	return Config{
		DatabaseFile:         getEnvOrDefault("CONDUCTOR_DATABASE_FILE", "conductor.db"),
		MasterKeyPath:        os.Getenv("CONDUCTOR_MASTER_KEY_PATH"),
		JWTSecret:            os.Getenv("CONDUCTOR_JWT_SECRET"),
		JWTIssuer:            getEnvOrDefault("CONDUCTOR_JWT_ISSUER", "bartab-auth"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Minute),
		PeerPollInterval:     getEnvDurationOrDefault("PEER_POLL_INTERVAL", 1*time.Second),
		PeerRequestTimeout:   getEnvDurationOrDefault("PEER_REQUEST_TIMEOUT", 5*time.Second),
		InitialRunners:       parseInitialPeers(os.Getenv("INITIAL_RUNNERS")),
		InitialGateways:      parseInitialPeers(os.Getenv("INITIAL_GATEWAYS")),
		EventsDriver:         strings.ToLower(getEnvOrDefault("EVENTS_DRIVER", "memory")),
		RedisURL:             os.Getenv("REDIS_URL"),
		NATSURL:              os.Getenv("NATS_URL"),
		EventsPrefix:         getEnvOrDefault("EVENTS_PREFIX", "conductor"),
	}
}

// parseInitialPeers reads a comma separated list of "name=address" or bare
// "address" entries. Bare entries leave the name to registration.
func parseInitialPeers(value string) []service.InitialPeer {
	var peers []service.InitialPeer
	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		var p service.InitialPeer
		// A query string may contain '='; a name never contains a scheme.
		if name, address, ok := strings.Cut(entry, "="); ok && !strings.Contains(name, "://") {
			p.Name = strings.TrimSpace(name)
			p.Address = strings.TrimSpace(address)
		} else {
			p.Address = entry
		}
		peers = append(peers, p)
	}
	return peers
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are seconds.
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
