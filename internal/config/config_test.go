package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"APP_ENV", "LOG_LEVEL", "HTTP_LISTEN_ADDR", "DATABASE_URL", "SQLITE_PATH",
		"OLLAMA_API_URL", "OLLAMA_MODEL", "OLLAMA_RETRY_ATTEMPTS", "OLLAMA_RETRY_BACKOFF",
		"OLLAMA_TIMEOUT", "REDIS_ADDR", "HISTORY_LIMIT", "SESSION_LOCK_TTL", "RAND_SEED",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, ":8080", cfg.HTTPListenAddr)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, "http://localhost:11434", cfg.OllamaAPIURL)
	assert.Equal(t, "gemma2:2b", cfg.OllamaModel)
	assert.Equal(t, 3, cfg.OllamaAttempts)
	assert.Equal(t, time.Second, cfg.OllamaBackoff)
	assert.Equal(t, 30*time.Second, cfg.OllamaTimeout)
	assert.Equal(t, 10, cfg.HistoryLimit)
	assert.Equal(t, 30*time.Second, cfg.SessionLockTTL)
	assert.Zero(t, cfg.RandSeed)
}

func TestLoadOverridesAndTrimming(t *testing.T) {
	t.Setenv("OLLAMA_API_URL", "http://llm.internal:11434/")
	t.Setenv("OLLAMA_RETRY_ATTEMPTS", " 5 ")
	t.Setenv("OLLAMA_RETRY_BACKOFF", "250ms")
	t.Setenv("HISTORY_LIMIT", "25")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://llm.internal:11434", cfg.OllamaAPIURL, "trailing slash is stripped")
	assert.Equal(t, 5, cfg.OllamaAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.OllamaBackoff)
	assert.Equal(t, 25, cfg.HistoryLimit)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("OLLAMA_RETRY_ATTEMPTS", "many")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("OLLAMA_RETRY_ATTEMPTS", "0")
	_, err = Load()
	require.Error(t, err)

	t.Setenv("OLLAMA_RETRY_ATTEMPTS", "3")
	t.Setenv("OLLAMA_TIMEOUT", "soon")
	_, err = Load()
	require.Error(t, err)
}
