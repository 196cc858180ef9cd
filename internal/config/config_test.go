package config

import (
	"testing"

	"github.com/felixgeelhaar/gandalf/internal/domain"
)

func TestApplyEnv(t *testing.T) {
	useHome(t)
	t.Setenv("GANDALF_PORT", "7500")
	t.Setenv("GANDALF_LLM_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "vendor-key")
	t.Setenv("GANDALF_CLAUDE_API_KEY", "gandalf-key")
	t.Setenv("ANTHROPIC_API_KEY", "vendor-claude")
	t.Setenv("GANDALF_OLLAMA_URL", "http://gpu-box:11434")
	t.Setenv("GANDALF_LANGUAGE", "ja")
	t.Setenv("GANDALF_STORAGE", "REDIS")
	t.Setenv("GANDALF_REDIS_DB", "3")

	cfg := DefaultLocalConfig()
	ApplyEnv(cfg)

	if cfg.Daemon.Port != 7500 {
		t.Errorf("Port = %d; want 7500", cfg.Daemon.Port)
	}
	if cfg.LLM.DefaultProvider != "gemini" {
		t.Errorf("DefaultProvider = %q", cfg.LLM.DefaultProvider)
	}
	if cfg.LLM.Providers["gemini"].APIKey != "vendor-key" {
		t.Errorf("gemini key = %q", cfg.LLM.Providers["gemini"].APIKey)
	}
	if cfg.LLM.Providers["claude"].APIKey != "gandalf-key" {
		t.Errorf("GANDALF_* key should win, got %q", cfg.LLM.Providers["claude"].APIKey)
	}
	if cfg.LLM.Providers["ollama"].URL != "http://gpu-box:11434" {
		t.Errorf("ollama URL = %q", cfg.LLM.Providers["ollama"].URL)
	}
	if cfg.Tutor.DefaultLanguage != domain.LanguageJapanese {
		t.Errorf("DefaultLanguage = %q", cfg.Tutor.DefaultLanguage)
	}
	if cfg.Client.Storage.Backend != "redis" || cfg.Client.Storage.RedisDB != 3 {
		t.Errorf("storage = %+v", cfg.Client.Storage)
	}
}

func TestApplyEnv_IgnoresMalformedNumbers(t *testing.T) {
	useHome(t)
	t.Setenv("GANDALF_PORT", "not-a-port")
	t.Setenv("GANDALF_HINT_TEMPERATURE", "warm")

	cfg := DefaultLocalConfig()
	ApplyEnv(cfg)

	if cfg.Daemon.Port != 7437 || cfg.Tutor.HintTemperature != 0.7 {
		t.Errorf("malformed values should keep defaults: port %d temp %v", cfg.Daemon.Port, cfg.Tutor.HintTemperature)
	}
}
