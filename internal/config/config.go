package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Storage drivers
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// AppConfig holds the service settings read from the environment
type AppConfig struct {
	AppEnv             string
	ServerPort         string
	JWTSecret          string
	JWTExpirationHours int64
	StorageDriver      string
	LeaderboardSize    int
	CORSAllowedOrigins []string
	AuthRateLimit      int
	TrustedProxies     []string
}

// Load reads AppConfig from environment variables, applying defaults
func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		AppEnv:             getEnv("APP_ENV", "development"),
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		JWTSecret:          os.Getenv("JWT_SECRET_KEY"),
		JWTExpirationHours: int64(getEnvInt("JWT_EXPIRATION_HOURS", 1)),
		StorageDriver:      strings.ToLower(getEnv("STORAGE_DRIVER", StoragePostgres)),
		LeaderboardSize:    getEnvInt("LEADERBOARD_SIZE", 5),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		AuthRateLimit:      getEnvInt("AUTH_RATE_LIMIT_PER_MINUTE", 20),
		TrustedProxies:     splitList(os.Getenv("TRUSTED_PROXIES")),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY not set in environment")
	}
	if cfg.JWTExpirationHours <= 0 {
		return nil, fmt.Errorf("JWT_EXPIRATION_HOURS must be positive, got %d", cfg.JWTExpirationHours)
	}
	if cfg.StorageDriver != StoragePostgres && cfg.StorageDriver != StorageMemory {
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q (want %s or %s)", cfg.StorageDriver, StoragePostgres, StorageMemory)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
