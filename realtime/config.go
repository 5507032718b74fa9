package realtime

import (
	"time"

	"github.com/google/uuid"
)

// Config holds tunable parameters for the realtime client.
type Config struct {
	BrokerURL string // broker URI, e.g. "ssl://broker.murmur.im:1885"
	ClientID  string // broker client identifier; must be stable per device
	StoreDir  string // optional on-disk store for in-flight messages; "" keeps them in memory

	ConnectTimeout      time.Duration // max time for a single connect attempt
	RetryPeriod         time.Duration // backoff increment between reconnect attempts
	FallbackPeriod      time.Duration // stall watchdog check interval
	HeartbeatPeriod     time.Duration // presence publish interval
	MaxPendingPublishes int           // unacknowledged publishes before a forced restart
	MaxOfflineTicks     int           // extra offline publishes allowed while backgrounded
	OutboundBufferSize  int           // disconnected-publish buffer capacity
}

// DefaultConfig returns a Config with production defaults and a fresh
// random client ID.
func DefaultConfig() Config {
	return Config{
		BrokerURL:           "ssl://broker.murmur.im:1885",
		ClientID:            "murmur-" + uuid.NewString(),
		ConnectTimeout:      30 * time.Second,
		RetryPeriod:         2 * time.Second,
		FallbackPeriod:      5 * time.Second,
		HeartbeatPeriod:     10 * time.Second,
		MaxPendingPublishes: 10,
		MaxOfflineTicks:     2,
		OutboundBufferSize:  100,
	}
}
