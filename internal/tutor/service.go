// Package tutor generates leveled hints and Socratic chat replies with an
// LLM provider.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/felixgeelhaar/gandalf/internal/domain"
	"github.com/felixgeelhaar/gandalf/internal/hints"
	"github.com/felixgeelhaar/gandalf/internal/llm"
	"github.com/felixgeelhaar/gandalf/internal/prompt"
	"github.com/felixgeelhaar/gandalf/internal/whiteboard"
)

const (
	rateLimitMessage    = "Rate limit exceeded. Please try again in a moment."
	hintFailureMessage  = "Failed to generate hint. Please try again."
	chatFailureMessage  = "Internal server error"
	defaultContextLimit = 15
)

// ErrNoMessages is returned for a chat request without a message list.
var ErrNoMessages = errors.New("messages are required")

// Config tunes generation.
type Config struct {
	// Provider names the registry entry to use; empty uses the default.
	Provider        string
	HintTemperature float64
	ChatTemperature float64
	HintMaxTokens   int
	ChatMaxTokens   int
	// ContextMessages caps how many recent messages a chat turn sends.
	ContextMessages int
}

// DefaultConfig returns the generation settings used by the daemon.
func DefaultConfig() Config {
	return Config{
		HintTemperature: 0.7,
		ChatTemperature: 0.7,
		HintMaxTokens:   1024,
		ChatMaxTokens:   2048,
		ContextMessages: defaultContextLimit,
	}
}

// Service handles hint and chat generation
type Service struct {
	registry llm.Providers
	prompter *prompt.Prompter
	cfg      Config
	logger   *slog.Logger
}

// NewService creates a tutor service. A nil logger uses slog.Default().
func NewService(registry llm.Providers, cfg Config, logger *slog.Logger) *Service {
	def := DefaultConfig()
	if cfg.HintTemperature <= 0 {
		cfg.HintTemperature = def.HintTemperature
	}
	if cfg.ChatTemperature <= 0 {
		cfg.ChatTemperature = def.ChatTemperature
	}
	if cfg.HintMaxTokens <= 0 {
		cfg.HintMaxTokens = def.HintMaxTokens
	}
	if cfg.ChatMaxTokens <= 0 {
		cfg.ChatMaxTokens = def.ChatMaxTokens
	}
	if cfg.ContextMessages <= 0 {
		cfg.ContextMessages = def.ContextMessages
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		registry: registry,
		prompter: prompt.NewPrompter(),
		cfg:      cfg,
		logger:   logger,
	}
}

func (s *Service) provider() (llm.Provider, error) {
	if s.cfg.Provider != "" {
		return s.registry.Get(s.cfg.Provider)
	}
	return s.registry.Default()
}

// GenerateHint validates req and produces a hint at exactly the requested
// level. Validation failures return the domain sentinel errors. Provider
// failures return a *hints.ServiceError carrying a learner-facing message.
func (s *Service) GenerateHint(ctx context.Context, req hints.Request) (*hints.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	s.logger.Info("generating hint",
		"level", int(req.Level),
		"difficulty", req.Difficulty,
		"language", req.Language,
		"problem_length", len(req.Problem),
		"context_length", len(req.Context))

	provider, err := s.provider()
	if err != nil {
		s.logger.Error("no LLM provider for hint", "error", err)
		return nil, &hints.ServiceError{StatusCode: http.StatusInternalServerError, Message: hintFailureMessage}
	}

	text := s.prompter.HintPrompt(prompt.HintRequest{
		Language:   req.Language,
		Level:      req.Level,
		Difficulty: req.Difficulty,
		Problem:    req.Problem,
		Context:    req.Context,
	})

	resp, err := provider.Generate(ctx, &llm.Request{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: text}},
		MaxTokens:   s.cfg.HintMaxTokens,
		Temperature: s.cfg.HintTemperature,
	})
	if err != nil {
		return nil, s.hintError(ctx, err)
	}

	out := &hints.Response{
		Hint:    resp.Content,
		Level:   req.Level,
		HasNext: req.Level < domain.MaxHintLevel,
	}
	s.logger.Info("hint generated",
		"provider", provider.Name(),
		"level", int(out.Level),
		"has_next", out.HasNext,
		"hint_length", len(out.Hint),
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"finish_reason", resp.FinishReason)
	return out, nil
}

// Hint lets the service back a hints.Engine in-process.
func (s *Service) Hint(ctx context.Context, req hints.Request) (*hints.Response, error) {
	return s.GenerateHint(ctx, req)
}

var _ hints.Service = (*Service)(nil)

func (s *Service) hintError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if llm.IsRateLimited(err) {
		s.logger.Warn("hint generation rate limited", "error", err)
		return &hints.ServiceError{StatusCode: http.StatusTooManyRequests, Message: rateLimitMessage}
	}
	s.logger.Error("hint generation failed", "error", err)
	return &hints.ServiceError{StatusCode: http.StatusInternalServerError, Message: hintFailureMessage}
}

// LevelInfo describes one hint level.
type LevelInfo struct {
	Level       domain.HintLevel `json:"level"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
}

// LevelCatalog lists every hint level.
type LevelCatalog struct {
	MaxLevel domain.HintLevel `json:"maxLevel"`
	Levels   []LevelInfo      `json:"levels"`
}

// Levels returns the hint level catalog.
func (s *Service) Levels() LevelCatalog {
	levels := domain.HintLevels()
	out := LevelCatalog{MaxLevel: domain.MaxHintLevel, Levels: make([]LevelInfo, 0, len(levels))}
	for _, l := range levels {
		out.Levels = append(out.Levels, LevelInfo{Level: l, Name: l.String(), Description: l.Description()})
	}
	return out
}

// ChatError is a chat failure with the status the daemon should return.
type ChatError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *ChatError) Error() string {
	return fmt.Sprintf("chat (status %d): %v", e.StatusCode, e.Err)
}

func (e *ChatError) Unwrap() error { return e.Err }

func (s *Service) chatError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if llm.IsRateLimited(err) {
		s.logger.Warn("chat rate limited", "error", err)
		return &ChatError{StatusCode: http.StatusTooManyRequests, Message: rateLimitMessage, Err: err}
	}
	s.logger.Error("chat generation failed", "error", err)
	return &ChatError{StatusCode: http.StatusInternalServerError, Message: chatFailureMessage, Err: err}
}

// whiteboardDescription serializes a drawing for the system prompt.
func whiteboardDescription(wb *domain.Whiteboard) string {
	if !whiteboard.HasContent(wb) {
		return ""
	}
	return whiteboard.Describe(wb.Elements)
}
