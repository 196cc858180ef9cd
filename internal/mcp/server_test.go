package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/felixgeelhaar/gandalf/internal/domain"
	"github.com/felixgeelhaar/gandalf/internal/hints"
)

// mockHints records the last request and replies from its fields.
type mockHints struct {
	resp *hints.Response
	err  error
	last hints.Request
}

func (m *mockHints) Hint(_ context.Context, req hints.Request) (*hints.Response, error) {
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	return m.resp, nil
}

func TestNewServer(t *testing.T) {
	s := NewServer(Config{})
	if s.GetMCPServer() == nil {
		t.Fatal("expected non-nil underlying MCP server")
	}
	if s.defaults.Difficulty != domain.DefaultDifficulty || s.defaults.Language != domain.DefaultLanguage {
		t.Errorf("defaults = %+v", s.defaults)
	}
}

func TestHandleHint(t *testing.T) {
	m := &mockHints{resp: &hints.Response{Hint: "What is being added to x?", Level: domain.HintDirection, HasNext: true}}
	s := NewServer(Config{Hints: m, Defaults: Defaults{Difficulty: domain.DifficultyCollege, Language: domain.LanguageGerman}})

	out, err := s.handleHint(context.Background(), HintInput{Problem: "x + 3 = 5", Level: 1, Language: "fr"})
	if err != nil {
		t.Fatalf("handleHint() error = %v", err)
	}
	if out.Hint != "What is being added to x?" || out.Level != 1 || !out.HasNext {
		t.Errorf("output = %+v", out)
	}
	if out.LevelName != "Direction" {
		t.Errorf("LevelName = %q", out.LevelName)
	}
	if m.last.Difficulty != domain.DifficultyCollege {
		t.Errorf("difficulty = %q; want configured default", m.last.Difficulty)
	}
	if m.last.Language != domain.LanguageFrench {
		t.Errorf("language = %q; want explicit fr", m.last.Language)
	}
}

func TestHandleHint_Errors(t *testing.T) {
	tests := []struct {
		name    string
		svc     hints.Service
		input   HintInput
		wantErr error
	}{
		{"no service", nil, HintInput{Problem: "x=1"}, ErrNoHintService},
		{"bad level", &mockHints{}, HintInput{Problem: "x=1", Level: 9}, domain.ErrInvalidLevel},
		{"empty problem", &mockHints{}, HintInput{Problem: " "}, domain.ErrEmptyProblem},
		{"bad language", &mockHints{}, HintInput{Problem: "x=1", Language: "tlh"}, domain.ErrInvalidLanguage},
		{"rate limited", &mockHints{err: &hints.ServiceError{StatusCode: 429, Message: "slow down"}}, HintInput{Problem: "x=1"}, hints.ErrRateLimited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s *Server
			if tt.svc == nil {
				s = NewServer(Config{})
			} else {
				s = NewServer(Config{Hints: tt.svc})
			}
			if _, err := s.handleHint(context.Background(), tt.input); !errors.Is(err, tt.wantErr) {
				t.Errorf("handleHint() error = %v; want %v", err, tt.wantErr)
			}
		})
	}
}

func TestHandleHint_ErrorCarriesLearnerMessage(t *testing.T) {
	s := NewServer(Config{Hints: &mockHints{err: &hints.ServiceError{StatusCode: 500, Message: "Failed to generate hint. Please try again."}}})
	_, err := s.handleHint(context.Background(), HintInput{Problem: "x=1"})
	if err == nil || !strings.HasPrefix(err.Error(), "Failed to generate hint.") {
		t.Errorf("error = %v", err)
	}
}

func TestHandleLevels(t *testing.T) {
	out, err := NewServer(Config{}).handleLevels(context.Background(), LevelsInput{})
	if err != nil {
		t.Fatal(err)
	}
	if out.MaxLevel != 4 || len(out.Levels) != 5 {
		t.Fatalf("levels = %+v", out)
	}
	if out.Levels[0].Name != "Gentle Nudge" || out.Levels[0].Description == "" {
		t.Errorf("level 0 = %+v", out.Levels[0])
	}
}

func TestHandleRender(t *testing.T) {
	s := NewServer(Config{})
	out, err := s.handleRender(context.Background(), RenderInput{Text: `Area: $\pi r^2$, set $x \in \RR$, bad $\frac{1$`})
	if err != nil {
		t.Fatal(err)
	}
	if !out.HasLatex {
		t.Error("HasLatex = false")
	}
	if !strings.Contains(out.Text, "π r²") || !strings.Contains(out.Text, "x ∈ ℝ") {
		t.Errorf("Text = %q", out.Text)
	}
	last := out.Segments[len(out.Segments)-1]
	if last.Error == "" || last.Output != `$\frac{1$` {
		t.Errorf("failed segment = %+v", last)
	}
	if !strings.HasSuffix(out.Text, `bad $\frac{1$`) {
		t.Errorf("failed math should fall back to source, got %q", out.Text)
	}
}

func TestHandleRender_DisplayOnOwnLine(t *testing.T) {
	out, _ := NewServer(Config{}).handleRender(context.Background(), RenderInput{Text: "so $$x^2$$ done"})
	if out.Text != "so \n  x²\n done" {
		t.Errorf("Text = %q", out.Text)
	}
}

func TestHandleRender_Empty(t *testing.T) {
	out, _ := NewServer(Config{}).handleRender(context.Background(), RenderInput{})
	if out.HasLatex || len(out.Segments) != 0 || out.Text != "" {
		t.Errorf("empty render = %+v", out)
	}
}
