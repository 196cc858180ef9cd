package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/felixgeelhaar/gandalf/internal/domain"
	"github.com/felixgeelhaar/gandalf/internal/storage/backend"
	"gopkg.in/yaml.v3"
)

func useHome(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), ".gandalf")
	t.Setenv("GANDALF_HOME", dir)
	for _, vars := range providerKeyEnv {
		for _, v := range vars {
			t.Setenv(v, "")
		}
	}
	return dir
}

func TestGandalfDir(t *testing.T) {
	t.Setenv("GANDALF_HOME", "")
	dir, err := GandalfDir()
	if err != nil {
		t.Fatalf("GandalfDir() error = %v", err)
	}
	if filepath.Base(dir) != ".gandalf" || !filepath.IsAbs(dir) {
		t.Errorf("GandalfDir() = %q; want absolute path ending in .gandalf", dir)
	}

	want := useHome(t)
	if got, _ := GandalfDir(); got != want {
		t.Errorf("GandalfDir() = %q; want GANDALF_HOME %q", got, want)
	}
}

func TestEnsureGandalfDir(t *testing.T) {
	home := useHome(t)

	dir, err := EnsureGandalfDir()
	if err != nil {
		t.Fatalf("EnsureGandalfDir() error = %v", err)
	}
	if dir != home {
		t.Errorf("dir = %q; want %q", dir, home)
	}
	for _, sub := range []string{"logs", "data"} {
		if info, err := os.Stat(filepath.Join(dir, sub)); err != nil || !info.IsDir() {
			t.Errorf("subdirectory %s not created", sub)
		}
	}
}

func TestDefaultLocalConfig(t *testing.T) {
	cfg := DefaultLocalConfig()

	if cfg.Daemon.Port != 7437 || cfg.Daemon.Bind != "127.0.0.1" {
		t.Errorf("daemon = %+v", cfg.Daemon)
	}
	if cfg.LLM.DefaultProvider != "auto" {
		t.Errorf("DefaultProvider = %q; want auto", cfg.LLM.DefaultProvider)
	}
	for _, name := range []string{"claude", "openai", "gemini", "ollama"} {
		if _, ok := cfg.LLM.Providers[name]; !ok {
			t.Errorf("missing provider %s", name)
		}
	}
	if cfg.Tutor.HintTemperature != 0.7 || cfg.Tutor.ContextMessages != 15 {
		t.Errorf("tutor = %+v", cfg.Tutor)
	}
	if cfg.Client.Storage.Backend != backend.File {
		t.Errorf("storage backend = %q; want file", cfg.Client.Storage.Backend)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadLocalConfig_Defaults(t *testing.T) {
	useHome(t)

	cfg, err := LoadLocalConfig()
	if err != nil {
		t.Fatalf("LoadLocalConfig() error = %v", err)
	}
	if cfg.Daemon.Port != 7437 {
		t.Errorf("Port = %d; want default", cfg.Daemon.Port)
	}
}

func TestLoadLocalConfig_FileAndSecrets(t *testing.T) {
	home := useHome(t)
	if err := os.MkdirAll(home, 0755); err != nil {
		t.Fatal(err)
	}

	config := `
daemon:
  port: 9000
  log_level: debug
tutor:
  default_difficulty: college
  default_language: de
client:
  storage:
    backend: sqlite
`
	secrets := `
providers:
  claude:
    api_key: sk-ant-test
redis_password: hunter2
`
	if err := os.WriteFile(filepath.Join(home, "config.yaml"), []byte(config), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(home, "secrets.yaml"), []byte(secrets), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadLocalConfig()
	if err != nil {
		t.Fatalf("LoadLocalConfig() error = %v", err)
	}
	if cfg.Daemon.Port != 9000 || cfg.Daemon.LogLevel != "debug" {
		t.Errorf("daemon = %+v", cfg.Daemon)
	}
	if cfg.Daemon.Bind != "127.0.0.1" {
		t.Errorf("unset Bind should keep default, got %q", cfg.Daemon.Bind)
	}
	if cfg.Tutor.DefaultDifficulty != domain.DifficultyCollege || cfg.Tutor.DefaultLanguage != domain.LanguageGerman {
		t.Errorf("tutor = %+v", cfg.Tutor)
	}
	if cfg.LLM.Providers["claude"].APIKey != "sk-ant-test" {
		t.Errorf("claude APIKey = %q", cfg.LLM.Providers["claude"].APIKey)
	}
	if cfg.Client.Storage.Backend != backend.SQLite || cfg.Client.Storage.RedisPassword != "hunter2" {
		t.Errorf("storage = %+v", cfg.Client.Storage)
	}
}

func TestLoadLocalConfig_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		config string
	}{
		{"bad yaml", "daemon: [unclosed"},
		{"bad difficulty", "tutor:\n  default_difficulty: kindergarten\n"},
		{"bad language", "tutor:\n  default_language: tlh\n"},
		{"bad backend", "client:\n  storage:\n    backend: floppy\n"},
		{"bad port", "daemon:\n  port: 70000\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			home := useHome(t)
			_ = os.MkdirAll(home, 0755)
			_ = os.WriteFile(filepath.Join(home, "config.yaml"), []byte(tt.config), 0644)

			if _, err := LoadLocalConfig(); err == nil {
				t.Error("LoadLocalConfig() error = nil; want error")
			}
		})
	}
}

func TestValidate_WrapsDomainErrors(t *testing.T) {
	cfg := DefaultLocalConfig()
	cfg.Tutor.DefaultLanguage = "xx"
	if err := cfg.Validate(); !errors.Is(err, domain.ErrInvalidLanguage) {
		t.Errorf("Validate() error = %v; want ErrInvalidLanguage", err)
	}
}

func TestSaveLocalConfigAndSecrets(t *testing.T) {
	home := useHome(t)

	cfg := DefaultLocalConfig()
	cfg.Daemon.Port = 8123
	if err := SaveLocalConfig(cfg); err != nil {
		t.Fatalf("SaveLocalConfig() error = %v", err)
	}
	if err := SaveSecrets(map[string]string{"openai": "sk-openai"}); err != nil {
		t.Fatalf("SaveSecrets() error = %v", err)
	}

	info, err := os.Stat(filepath.Join(home, "secrets.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("secrets.yaml mode = %v; want 0600", info.Mode().Perm())
	}

	data, _ := os.ReadFile(filepath.Join(home, "config.yaml"))
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadLocalConfig()
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Daemon.Port != 8123 || loaded.LLM.Providers["openai"].APIKey != "sk-openai" {
		t.Errorf("round trip = %+v, key %q", loaded.Daemon, loaded.LLM.Providers["openai"].APIKey)
	}
}

func TestStorageConfig_BackendConfig(t *testing.T) {
	s := StorageConfig{Backend: backend.Redis, RedisAddr: "cache:6379", RedisPrefix: "g:"}
	got := s.BackendConfig("/home/u/.gandalf")
	if got.Dir != filepath.Join("/home/u/.gandalf", "data") || got.RedisAddr != "cache:6379" || got.Backend != backend.Redis {
		t.Errorf("BackendConfig() = %+v", got)
	}

	s.Dir = "/srv/gandalf"
	if got := s.BackendConfig("/ignored"); got.Dir != "/srv/gandalf" {
		t.Errorf("Dir = %q; want explicit dir", got.Dir)
	}
}
