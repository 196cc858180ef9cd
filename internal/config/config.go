package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/gandalf/internal/domain"
)

// providerKeyEnv maps providers to the environment variables checked for
// their API keys, in order.
var providerKeyEnv = map[string][]string{
	"claude": {"GANDALF_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"},
	"openai": {"GANDALF_OPENAI_API_KEY", "OPENAI_API_KEY"},
	"gemini": {"GANDALF_GEMINI_API_KEY", "GEMINI_API_KEY"},
}

// ApplyEnv overrides cfg from GANDALF_* environment variables. API keys
// also fall back to each vendor's conventional variable.
func ApplyEnv(cfg *LocalConfig) {
	cfg.Daemon.Port = getEnvInt("GANDALF_PORT", cfg.Daemon.Port)
	cfg.Daemon.Bind = getEnv("GANDALF_BIND", cfg.Daemon.Bind)
	cfg.Daemon.LogLevel = getEnv("GANDALF_LOG_LEVEL", cfg.Daemon.LogLevel)
	cfg.Daemon.RateLimitPerMinute = getEnvInt("GANDALF_RATE_LIMIT", cfg.Daemon.RateLimitPerMinute)

	cfg.LLM.DefaultProvider = getEnv("GANDALF_LLM_PROVIDER", cfg.LLM.DefaultProvider)
	for name, vars := range providerKeyEnv {
		p, ok := cfg.LLM.Providers[name]
		if !ok {
			continue
		}
		for _, v := range vars {
			if key := os.Getenv(v); key != "" {
				p.APIKey = key
				break
			}
		}
	}
	if p, ok := cfg.LLM.Providers["ollama"]; ok {
		p.URL = getEnv("GANDALF_OLLAMA_URL", p.URL)
	}

	cfg.Tutor.DefaultDifficulty = domain.Difficulty(getEnv("GANDALF_DIFFICULTY", string(cfg.Tutor.DefaultDifficulty)))
	cfg.Tutor.DefaultLanguage = domain.Language(getEnv("GANDALF_LANGUAGE", string(cfg.Tutor.DefaultLanguage)))
	cfg.Tutor.HintTemperature = getEnvFloat("GANDALF_HINT_TEMPERATURE", cfg.Tutor.HintTemperature)

	cfg.Client.DaemonURL = getEnv("GANDALF_DAEMON_URL", cfg.Client.DaemonURL)
	cfg.Client.Storage.Backend = strings.ToLower(getEnv("GANDALF_STORAGE", cfg.Client.Storage.Backend))
	cfg.Client.Storage.Dir = getEnv("GANDALF_DATA_DIR", cfg.Client.Storage.Dir)
	cfg.Client.Storage.RedisAddr = getEnv("GANDALF_REDIS_ADDR", cfg.Client.Storage.RedisAddr)
	cfg.Client.Storage.RedisPassword = getEnv("GANDALF_REDIS_PASSWORD", cfg.Client.Storage.RedisPassword)
	cfg.Client.Storage.RedisDB = getEnvInt("GANDALF_REDIS_DB", cfg.Client.Storage.RedisDB)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
