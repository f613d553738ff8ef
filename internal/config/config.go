package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port          int
	DatabaseURL   string
	NatsURL       string
	NatsToken     string
	LogLevel      string
	APIToken      string
	MaxSessions   int
	RubricVersion string
}

func Load() Config {
	return Config{
		Port:          envInt("CADENCE_PORT", 8760),
		DatabaseURL:   envStr("DATABASE_URL", ""),
		NatsURL:       envStr("NATS_URL", ""),
		NatsToken:     envStr("NATS_TOKEN", ""),
		LogLevel:      envStr("LOG_LEVEL", "info"),
		APIToken:      envStr("CADENCE_API_TOKEN", ""),
		MaxSessions:   envInt("CADENCE_MAX_SESSIONS", 50),
		RubricVersion: envStr("CADENCE_RUBRIC_VERSION", "v1"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
