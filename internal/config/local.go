package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/felixgeelhaar/gandalf/internal/domain"
	"github.com/felixgeelhaar/gandalf/internal/storage/backend"
	"gopkg.in/yaml.v3"
)

// LocalConfig holds configuration for the daemon and the CLI
type LocalConfig struct {
	Daemon DaemonConfig `yaml:"daemon"`
	LLM    LLMConfig    `yaml:"llm"`
	Tutor  TutorConfig  `yaml:"tutor"`
	Client ClientConfig `yaml:"client"`
}

// DaemonConfig holds daemon server settings
type DaemonConfig struct {
	Port     int    `yaml:"port"`
	Bind     string `yaml:"bind"`
	LogLevel string `yaml:"log_level"`
	// RateLimitPerMinute caps requests per client address; 0 disables it.
	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`
}

// LLMConfig holds LLM provider settings
type LLMConfig struct {
	DefaultProvider string                     `yaml:"default_provider"`
	Providers       map[string]*ProviderConfig `yaml:"providers"`
}

// ProviderConfig holds settings for a single LLM provider
type ProviderConfig struct {
	Enabled bool   `yaml:"enabled"`
	Model   string `yaml:"model"`
	URL     string `yaml:"url,omitempty"` // For Ollama
	APIKey  string `yaml:"-"`             // Loaded from secrets.yaml or the environment
}

// TutorConfig holds tutoring defaults
type TutorConfig struct {
	DefaultDifficulty domain.Difficulty `yaml:"default_difficulty"`
	DefaultLanguage   domain.Language   `yaml:"default_language"`
	HintTemperature   float64           `yaml:"hint_temperature"`
	ChatTemperature   float64           `yaml:"chat_temperature"`
	ContextMessages   int               `yaml:"context_messages"`
}

// ClientConfig holds CLI settings
type ClientConfig struct {
	DaemonURL string        `yaml:"daemon_url"`
	Storage   StorageConfig `yaml:"storage"`
}

// StorageConfig selects where conversations, hints and whiteboards live.
type StorageConfig struct {
	Backend       string `yaml:"backend"` // memory, file, sqlite or redis
	Dir           string `yaml:"dir,omitempty"`
	RedisAddr     string `yaml:"redis_addr,omitempty"`
	RedisPassword string `yaml:"-"`
	RedisDB       int    `yaml:"redis_db,omitempty"`
	RedisPrefix   string `yaml:"redis_prefix,omitempty"`
}

// BackendConfig returns the storage opener configuration. An empty Dir
// resolves to <base>/data.
func (s StorageConfig) BackendConfig(base string) backend.Config {
	dir := s.Dir
	if dir == "" {
		dir = filepath.Join(base, "data")
	}
	return backend.Config{
		Backend:       s.Backend,
		Dir:           dir,
		RedisAddr:     s.RedisAddr,
		RedisPassword: s.RedisPassword,
		RedisDB:       s.RedisDB,
		RedisPrefix:   s.RedisPrefix,
	}
}

// SecretsConfig holds API keys loaded from secrets.yaml
type SecretsConfig struct {
	Providers map[string]struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"providers"`
	RedisPassword string `yaml:"redis_password,omitempty"`
}

// GandalfDir returns the path to ~/.gandalf, or $GANDALF_HOME when set.
func GandalfDir() (string, error) {
	if dir := os.Getenv("GANDALF_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".gandalf"), nil
}

// EnsureGandalfDir creates the gandalf directory and its subdirectories
// if they don't exist
func EnsureGandalfDir() (string, error) {
	dir, err := GandalfDir()
	if err != nil {
		return "", err
	}

	for _, subdir := range []string{"", "logs", "data"} {
		path := filepath.Join(dir, subdir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", fmt.Errorf("create dir %s: %w", path, err)
		}
	}

	return dir, nil
}

// DefaultLocalConfig returns sensible defaults for local mode
func DefaultLocalConfig() *LocalConfig {
	return &LocalConfig{
		Daemon: DaemonConfig{
			Port:               7437,
			Bind:               "127.0.0.1",
			LogLevel:           "info",
			RateLimitPerMinute: 30,
		},
		LLM: LLMConfig{
			DefaultProvider: "auto",
			Providers: map[string]*ProviderConfig{
				"claude": {
					Enabled: true,
					Model:   "claude-sonnet-4-20250514",
				},
				"openai": {
					Enabled: true,
					Model:   "gpt-4o",
				},
				"gemini": {
					Enabled: false,
					Model:   "gemini-2.0-flash",
				},
				"ollama": {
					Enabled: false,
					URL:     "http://localhost:11434",
					Model:   "llava",
				},
			},
		},
		Tutor: TutorConfig{
			DefaultDifficulty: domain.DefaultDifficulty,
			DefaultLanguage:   domain.DefaultLanguage,
			HintTemperature:   0.7,
			ChatTemperature:   0.7,
			ContextMessages:   15,
		},
		Client: ClientConfig{
			DaemonURL: "http://127.0.0.1:7437",
			Storage: StorageConfig{
				Backend:     backend.File,
				RedisAddr:   "localhost:6379",
				RedisPrefix: "gandalf:",
			},
		},
	}
}

// Validate rejects settings the daemon and CLI cannot run with.
func (c *LocalConfig) Validate() error {
	if c.Daemon.Port <= 0 || c.Daemon.Port > 65535 {
		return fmt.Errorf("daemon.port %d out of range", c.Daemon.Port)
	}
	if !c.Tutor.DefaultDifficulty.Valid() {
		return fmt.Errorf("tutor.default_difficulty: %w: %q", domain.ErrInvalidDifficulty, c.Tutor.DefaultDifficulty)
	}
	if !c.Tutor.DefaultLanguage.Valid() {
		return fmt.Errorf("tutor.default_language: %w: %q", domain.ErrInvalidLanguage, c.Tutor.DefaultLanguage)
	}
	switch c.Client.Storage.Backend {
	case backend.Memory, backend.File, backend.SQLite, backend.Redis:
	default:
		return fmt.Errorf("client.storage.backend %q is not one of memory, file, sqlite, redis", c.Client.Storage.Backend)
	}
	return nil
}

// LoadLocalConfig loads configuration from config.yaml in the gandalf
// directory, then secrets.yaml, then GANDALF_* environment overrides.
func LoadLocalConfig() (*LocalConfig, error) {
	dir, err := GandalfDir()
	if err != nil {
		return nil, err
	}

	cfg := DefaultLocalConfig()
	configPath := filepath.Join(dir, "config.yaml")

	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadSecrets(dir, cfg); err != nil {
		return nil, fmt.Errorf("load secrets: %w", err)
	}
	ApplyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// loadSecrets loads API keys from secrets.yaml
func loadSecrets(dir string, cfg *LocalConfig) error {
	secretsPath := filepath.Join(dir, "secrets.yaml")

	data, err := os.ReadFile(secretsPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read secrets: %w", err)
	}

	var secrets SecretsConfig
	if err := yaml.Unmarshal(data, &secrets); err != nil {
		return fmt.Errorf("parse secrets: %w", err)
	}

	for name, secret := range secrets.Providers {
		if provider, ok := cfg.LLM.Providers[name]; ok {
			provider.APIKey = secret.APIKey
		}
	}
	if secrets.RedisPassword != "" {
		cfg.Client.Storage.RedisPassword = secrets.RedisPassword
	}

	return nil
}

// SaveLocalConfig saves configuration to config.yaml
func SaveLocalConfig(cfg *LocalConfig) error {
	dir, err := EnsureGandalfDir()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// SaveSecrets saves provider API keys to secrets.yaml
func SaveSecrets(secrets map[string]string) error {
	dir, err := EnsureGandalfDir()
	if err != nil {
		return err
	}

	secretsCfg := SecretsConfig{
		Providers: make(map[string]struct {
			APIKey string `yaml:"api_key"`
		}),
	}
	for name, key := range secrets {
		secretsCfg.Providers[name] = struct {
			APIKey string `yaml:"api_key"`
		}{APIKey: key}
	}

	data, err := yaml.Marshal(secretsCfg)
	if err != nil {
		return fmt.Errorf("marshal secrets: %w", err)
	}

	// Owner read/write only
	if err := os.WriteFile(filepath.Join(dir, "secrets.yaml"), data, 0600); err != nil {
		return fmt.Errorf("write secrets: %w", err)
	}

	return nil
}
