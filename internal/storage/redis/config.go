package redis

import "time"

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// TTL settings. Rooms and tickets are ephemeral; the TTLs are a
	// backstop against leaked keys, not the primary expiry mechanism
	// (the presence monitor and matchmaking sweep are).
	RoomTTL   time.Duration
	TicketTTL time.Duration
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:          "redis://localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		RoomTTL:      6 * time.Hour,
		TicketTTL:    time.Hour,
	}
}
