package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/felixgeelhaar/gandalf/internal/domain"
	"github.com/felixgeelhaar/gandalf/internal/hints"
	"github.com/felixgeelhaar/gandalf/internal/mathtext"
	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/server"
)

// ErrNoHintService is returned by gandalf_hint when the server was built
// without a hint service.
var ErrNoHintService = errors.New("hint service not configured")

// Server exposes gandalf tutoring over MCP
type Server struct {
	mcpServer *server.Server
	hints     hints.Service
	renderer  *mathtext.Renderer
	defaults  Defaults
	logger    *slog.Logger
}

// Defaults fill in hint requests that omit difficulty or language.
type Defaults struct {
	Difficulty domain.Difficulty
	Language   domain.Language
}

// Config contains configuration for the MCP server
type Config struct {
	// Hints generates hints, either a daemon client or an in-process tutor.
	Hints    hints.Service
	Defaults Defaults
	Version  string
	Logger   *slog.Logger
}

// NewServer creates a new MCP server for gandalf
func NewServer(cfg Config) *Server {
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if !cfg.Defaults.Difficulty.Valid() {
		cfg.Defaults.Difficulty = domain.DefaultDifficulty
	}
	if !cfg.Defaults.Language.Valid() {
		cfg.Defaults.Language = domain.DefaultLanguage
	}

	s := &Server{
		hints:    cfg.Hints,
		renderer: mathtext.NewRenderer(mathtext.UnicodeTypesetter{}, mathtext.WithLogger(cfg.Logger)),
		defaults: cfg.Defaults,
		logger:   cfg.Logger,
	}

	s.mcpServer = server.New(server.Info{
		Name:    "gandalf",
		Version: cfg.Version,
	}, server.WithInstructions(`
Gandalf is a Socratic math tutor. It guides learners toward answers
instead of giving them away.

Available tools:
- gandalf_hint: Get a hint for a math problem at a given level
- gandalf_levels: List the hint levels
- gandalf_render: Typeset LaTeX math in text as Unicode

Hint levels, least to most revealing:
- 0: Gentle nudge
- 1: Direction
- 2: Specific method
- 3: Partial step
- 4: Full worked example
Start at level 0 and only move up when the learner is still stuck.
`))

	s.registerTools()
	return s
}

// registerTools registers all gandalf MCP tools
func (s *Server) registerTools() {
	s.mcpServer.Tool("gandalf_hint").
		Description("Get a Socratic hint for a math problem. Levels run 0 (gentle nudge) to 4 (full worked example).").
		Handler(s.handleHint)

	s.mcpServer.Tool("gandalf_levels").
		Description("List the hint levels with their names and descriptions.").
		Handler(s.handleLevels)

	s.mcpServer.Tool("gandalf_render").
		Description(fmt.Sprintf("Typeset $...$, $$...$$, \\(...\\) and \\[...\\] math in text as Unicode. Supported macros: %s.",
			strings.Join(mathtext.MacroNames(mathtext.DefaultMacros), ", "))).
		Handler(s.handleRender)
}

type HintInput struct {
	Problem    string   `json:"problem" jsonschema:"description=The math problem the learner is working on"`
	Context    []string `json:"context,omitempty" jsonschema:"description=Recent conversation lines for context"`
	Level      int      `json:"level" jsonschema:"description=Hint level from 0 to 4,minimum=0,maximum=4"`
	Difficulty string   `json:"difficulty,omitempty" jsonschema:"description=Learner level,enum=elementary,enum=middle-school,enum=high-school,enum=college"`
	Language   string   `json:"language,omitempty" jsonschema:"description=Response language code such as en or de"`
}

type HintOutput struct {
	Hint      string `json:"hint"`
	Level     int    `json:"level"`
	LevelName string `json:"level_name"`
	HasNext   bool   `json:"has_next"`
}

type LevelsInput struct{}

type LevelOutput struct {
	Level       int    `json:"level"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LevelsOutput struct {
	MaxLevel int           `json:"max_level"`
	Levels   []LevelOutput `json:"levels"`
}

type RenderInput struct {
	Text string `json:"text" jsonschema:"description=Text containing LaTeX math"`
}

type RenderedSegment struct {
	Type   string `json:"type"`
	Source string `json:"source"`
	Output string `json:"output"`
	Error  string `json:"error,omitempty"`
}

type RenderOutput struct {
	Text     string            `json:"text"`
	HasLatex bool              `json:"has_latex"`
	Segments []RenderedSegment `json:"segments"`
}

// Tool handlers

func (s *Server) handleHint(ctx context.Context, input HintInput) (HintOutput, error) {
	if s.hints == nil {
		return HintOutput{}, ErrNoHintService
	}

	level, err := domain.ParseHintLevel(input.Level)
	if err != nil {
		return HintOutput{}, err
	}
	req := hints.Request{
		Problem:    input.Problem,
		Context:    input.Context,
		Level:      level,
		Difficulty: s.defaults.Difficulty,
		Language:   s.defaults.Language,
	}
	if input.Difficulty != "" {
		req.Difficulty = domain.Difficulty(input.Difficulty)
	}
	if input.Language != "" {
		req.Language = domain.Language(input.Language)
	}
	if err := req.Validate(); err != nil {
		return HintOutput{}, err
	}

	resp, err := s.hints.Hint(ctx, req)
	if err != nil {
		s.logger.Warn("mcp hint failed", "level", input.Level, "error", err)
		return HintOutput{}, fmt.Errorf("%s: %w", hints.Message(err), err)
	}

	return HintOutput{
		Hint:      resp.Hint,
		Level:     int(resp.Level),
		LevelName: resp.Level.String(),
		HasNext:   resp.HasNext,
	}, nil
}

func (s *Server) handleLevels(ctx context.Context, _ LevelsInput) (LevelsOutput, error) {
	out := LevelsOutput{MaxLevel: int(domain.MaxHintLevel)}
	for _, l := range domain.HintLevels() {
		out.Levels = append(out.Levels, LevelOutput{
			Level:       int(l),
			Name:        l.String(),
			Description: l.Description(),
		})
	}
	return out, nil
}

func (s *Server) handleRender(ctx context.Context, input RenderInput) (RenderOutput, error) {
	out := RenderOutput{
		HasLatex: mathtext.HasLatex(input.Text),
		Segments: []RenderedSegment{},
	}

	for _, r := range s.renderer.Render(input.Text) {
		seg := RenderedSegment{
			Type:   string(r.Type),
			Source: r.Source(),
			Output: r.Output,
		}
		if r.Err != nil {
			seg.Error = r.Err.Error()
		}
		out.Segments = append(out.Segments, seg)
	}
	out.Text = s.renderer.Text(input.Text)
	return out, nil
}

// ServeStdio starts the MCP server on stdio for editor integrations
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// ServeHTTP starts the MCP server on HTTP (alternative transport)
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr)
}

// GetMCPServer returns the underlying MCP server (for testing)
func (s *Server) GetMCPServer() *server.Server {
	return s.mcpServer
}
