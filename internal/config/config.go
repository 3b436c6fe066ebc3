package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	LogLevel         string
	HTTPListenAddr   string
	DatabaseURL      string
	SQLitePath       string
	OllamaAPIURL     string
	OllamaModel      string
	OllamaAttempts   int
	OllamaBackoff    time.Duration
	OllamaTimeout    time.Duration
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	MetricsNamespace string
	HistoryLimit     int
	SessionLockTTL   time.Duration
	RandSeed         int64
}

// Load returns configuration populated from environment variables with
// fallbacks. DATABASE_URL is optional; without it the local SQLite store is
// used.
func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:           getenvDefault("APP_ENV", "development"),
		LogLevel:         getenvDefault("LOG_LEVEL", "info"),
		HTTPListenAddr:   getenvDefault("HTTP_LISTEN_ADDR", ":8080"),
		DatabaseURL:      trimmedEnv("DATABASE_URL"),
		SQLitePath:       getenvDefault("SQLITE_PATH", "data/bankchat.db"),
		OllamaAPIURL:     strings.TrimRight(getenvDefault("OLLAMA_API_URL", "http://localhost:11434"), "/"),
		OllamaModel:      getenvDefault("OLLAMA_MODEL", "gemma2:2b"),
		RedisAddr:        trimmedEnv("REDIS_ADDR"),
		RedisPassword:    trimmedEnv("REDIS_PASSWORD"),
		MetricsNamespace: getenvDefault("METRICS_NAMESPACE", "bankchat"),
	}

	var err error
	if cfg.OllamaAttempts, err = intEnv("OLLAMA_RETRY_ATTEMPTS", 3); err != nil {
		return nil, err
	}
	if cfg.OllamaAttempts <= 0 {
		return nil, fmt.Errorf("OLLAMA_RETRY_ATTEMPTS must be positive")
	}
	if cfg.OllamaBackoff, err = durationEnv("OLLAMA_RETRY_BACKOFF", "1s"); err != nil {
		return nil, err
	}
	if cfg.OllamaTimeout, err = durationEnv("OLLAMA_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = intEnv("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.HistoryLimit, err = intEnv("HISTORY_LIMIT", 10); err != nil {
		return nil, err
	}
	if cfg.SessionLockTTL, err = durationEnv("SESSION_LOCK_TTL", "30s"); err != nil {
		return nil, err
	}

	seed, err := intEnv("RAND_SEED", 0)
	if err != nil {
		return nil, err
	}
	cfg.RandSeed = int64(seed)

	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		if trimmed := strings.TrimSpace(val); trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func intEnv(key string, fallback int) (int, error) {
	val := trimmedEnv(key)
	if val == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %w", key, err)
	}
	return n, nil
}

func durationEnv(key, fallback string) (time.Duration, error) {
	val := getenvDefault(key, fallback)
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}
