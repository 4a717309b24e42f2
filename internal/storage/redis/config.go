package redis

import "time"

// Config holds Redis connection and expiry settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379/0)
	URL string

	PoolSize     int
	MinIdleConns int

	// GuestPlayerTTL expires guest profiles; registered players never expire
	GuestPlayerTTL time.Duration

	// RoomTTL expires finished and abandoned room records left behind when a
	// delete fails. Active rooms are kept until they end.
	RoomTTL time.Duration
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:            "redis://localhost:6379",
		PoolSize:       10,
		MinIdleConns:   2,
		GuestPlayerTTL: 24 * time.Hour,
		RoomTTL:        7 * 24 * time.Hour,
	}
}
