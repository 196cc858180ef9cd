package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/gandalf/internal/config"
	"github.com/felixgeelhaar/gandalf/internal/hints"
	"github.com/felixgeelhaar/gandalf/internal/llm"
	"github.com/felixgeelhaar/gandalf/internal/mathtext"
	"github.com/felixgeelhaar/gandalf/internal/tutor"
)

const rateLimitMessage = "Rate limit exceeded. Please try again in a moment."

// Tutor is the generation surface the handlers depend on.
type Tutor interface {
	GenerateHint(ctx context.Context, req hints.Request) (*hints.Response, error)
	Levels() tutor.LevelCatalog
	Chat(ctx context.Context, req tutor.ChatRequest) (*tutor.ChatResponse, error)
	ChatStream(ctx context.Context, req tutor.ChatRequest) (<-chan tutor.StreamChunk, error)
}

// Server represents the gandalf daemon HTTP server
type Server struct {
	cfg     *config.LocalConfig
	server  *http.Server
	router  *http.ServeMux
	handler http.Handler
	logger  *slog.Logger
	version string

	llmRegistry llm.Providers
	tutor       Tutor
	renderer    *mathtext.Renderer
	limiter     *clientLimiter
}

// ServerConfig holds configuration for creating a new server
type ServerConfig struct {
	Config *config.LocalConfig

	// Registry replaces the providers built from Config when set.
	Registry llm.Providers

	// Tutor replaces the tutor service built over the registry when set.
	Tutor Tutor

	Logger  *slog.Logger
	Version string
}

// NewServer creates a new daemon server
func NewServer(ctx context.Context, cfg ServerConfig) (*Server, error) {
	if cfg.Config == nil {
		cfg.Config = config.DefaultLocalConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	s := &Server{
		cfg:     cfg.Config,
		router:  http.NewServeMux(),
		logger:  cfg.Logger,
		version: cfg.Version,
	}

	registry := cfg.Registry
	if registry == nil {
		registry = NewRegistry(cfg.Config, s.logger)
	}
	s.llmRegistry = registry

	if len(registry.List()) == 0 {
		s.logger.Warn("no LLM providers configured; hint and chat requests will fail")
	}

	s.tutor = cfg.Tutor
	if s.tutor == nil {
		s.tutor = tutor.NewService(registry, TutorConfig(cfg.Config), s.logger)
	}

	s.renderer = mathtext.NewRenderer(mathtext.HTMLTypesetter{}, mathtext.WithLogger(s.logger))
	s.limiter = newClientLimiter(cfg.Config.Daemon.RateLimitPerMinute, s.logger)

	s.setupRoutes()

	s.handler = correlationIDMiddleware(loggingMiddleware(s.logger, recoveryMiddleware(s.logger, s.router)))
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Config.Daemon.Bind, cfg.Config.Daemon.Port),
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // Long for SSE
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// NewRegistry registers every enabled provider in cfg wrapped in the
// resilience layer. Claude, OpenAI and Gemini are skipped without an API
// key. A configured default that is not registered falls back to the
// first provider by name.
func NewRegistry(cfg *config.LocalConfig, logger *slog.Logger) *llm.Registry {
	if logger == nil {
		logger = slog.Default()
	}
	policy := llm.DefaultPolicy()
	policy.Logger = logger

	registry := llm.NewRegistry()
	for name, providerCfg := range cfg.LLM.Providers {
		if !providerCfg.Enabled {
			continue
		}

		var provider llm.Provider
		switch name {
		case "claude":
			if providerCfg.APIKey == "" {
				logger.Debug("Claude provider enabled but no API key set")
				continue
			}
			provider = llm.NewClaudeProvider(llm.ClaudeConfig{
				APIKey: providerCfg.APIKey,
				Model:  providerCfg.Model,
			})
		case "openai":
			if providerCfg.APIKey == "" {
				logger.Debug("OpenAI provider enabled but no API key set")
				continue
			}
			provider = llm.NewOpenAIProvider(llm.OpenAIConfig{
				APIKey: providerCfg.APIKey,
				Model:  providerCfg.Model,
			})
		case "gemini":
			if providerCfg.APIKey == "" {
				logger.Debug("Gemini provider enabled but no API key set")
				continue
			}
			provider = llm.NewGeminiProvider(llm.GeminiConfig{
				APIKey: providerCfg.APIKey,
				Model:  providerCfg.Model,
			})
		case "ollama":
			provider = llm.NewOllamaProvider(llm.OllamaConfig{
				BaseURL: providerCfg.URL,
				Model:   providerCfg.Model,
			})
		default:
			logger.Warn("unknown LLM provider in config", "name", name)
			continue
		}

		registry.Register(name, llm.NewResilientProvider(provider, policy))
		logger.Info("registered LLM provider", "name", name, "model", providerCfg.Model)
	}

	if def := cfg.LLM.DefaultProvider; def != "" {
		if err := registry.SetDefault(def); err != nil {
			logger.Warn("default LLM provider unavailable, falling back", "provider", def, "error", err)
		}
	}
	return registry
}

// TutorConfig applies the configured tutor settings over the defaults.
func TutorConfig(cfg *config.LocalConfig) tutor.Config {
	tc := tutor.DefaultConfig()
	if cfg.Tutor.HintTemperature > 0 {
		tc.HintTemperature = cfg.Tutor.HintTemperature
	}
	if cfg.Tutor.ChatTemperature > 0 {
		tc.ChatTemperature = cfg.Tutor.ChatTemperature
	}
	if cfg.Tutor.ContextMessages > 0 {
		tc.ContextMessages = cfg.Tutor.ContextMessages
	}
	return tc
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /v1/health", s.handleHealth)
	s.router.HandleFunc("GET /v1/status", s.handleStatus)

	s.router.HandleFunc("GET /v1/hints", s.handleListLevels)
	s.router.Handle("POST /v1/hints", s.limiter.wrap(http.HandlerFunc(s.handleGenerateHint)))
	s.router.Handle("POST /v1/chat", s.limiter.wrap(http.HandlerFunc(s.handleChat)))
	s.router.HandleFunc("POST /v1/render", s.handleRender)
}

// Handler returns the full middleware chain, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting gandalf daemon",
		"addr", s.server.Addr,
		"version", s.version,
		"llm_providers", s.llmRegistry.List(),
	)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down daemon...")

	err := s.server.Shutdown(ctx)
	if cerr := s.limiter.Close(); cerr != nil {
		s.logger.Warn("failed to close rate limiter", "error", cerr)
	}
	if closer, ok := s.llmRegistry.(interface{ Close() error }); ok {
		if cerr := closer.Close(); cerr != nil {
			s.logger.Warn("failed to close LLM providers", "error", cerr)
		}
	}
	return err
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	writeJSON(s.logger, w, status, data)
}

func (s *Server) jsonError(w http.ResponseWriter, status int, message string, err error) {
	writeJSONError(s.logger, w, status, message, err)
}

func writeJSON(logger *slog.Logger, w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func writeJSONError(logger *slog.Logger, w http.ResponseWriter, status int, message string, err error) {
	response := map[string]any{
		"error":  message,
		"status": status,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	writeJSON(logger, w, status, response)
}

// serviceStatus maps tutor failures to a status and learner-facing message.
func serviceStatus(err error) (int, string, bool) {
	var se *hints.ServiceError
	if errors.As(err, &se) {
		return se.StatusCode, se.Message, true
	}
	var ce *tutor.ChatError
	if errors.As(err, &ce) {
		return ce.StatusCode, ce.Message, true
	}
	return 0, "", false
}
