package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the process configuration, read entirely from environment
// variables so the same binary runs in every deployment.
type Config struct {
	Port      int
	LogLevel  string
	LogFormat string

	// StorageType selects "memory" or "redis".
	StorageType string
	RedisURL    string

	// DatabaseURL enables match history recording when set.
	DatabaseURL string

	MatchTicketTimeout time.Duration
	PresenceTimeout    time.Duration
}

// Load reads configuration from the environment, falling back to
// defaults suitable for local development.
func Load() *Config {
	return &Config{
		Port:               getEnvInt("PORT", 8080),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
		StorageType:        getEnv("STORAGE_TYPE", "memory"),
		RedisURL:           getEnv("REDIS_URL", ""),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		MatchTicketTimeout: getEnvDuration("MATCH_TICKET_TIMEOUT", 60*time.Second),
		PresenceTimeout:    getEnvDuration("PRESENCE_TIMEOUT", 30*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
