package tutor

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/felixgeelhaar/gandalf/internal/domain"
	"github.com/felixgeelhaar/gandalf/internal/hints"
	"github.com/felixgeelhaar/gandalf/internal/llm"
)

// mockProvider records the last request and replies from fields.
type mockProvider struct {
	content   string
	err       error
	streaming bool
	chunks    []llm.StreamChunk

	mu   sync.Mutex
	last *llm.Request
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) SupportsStreaming() bool { return m.streaming }

func (m *mockProvider) Generate(_ context.Context, req *llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	m.last = req
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return &llm.Response{Content: m.content}, nil
}

func (m *mockProvider) GenerateStream(_ context.Context, req *llm.Request) (<-chan llm.StreamChunk, error) {
	m.mu.Lock()
	m.last = req
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	ch := make(chan llm.StreamChunk, len(m.chunks))
	for _, c := range m.chunks {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func (m *mockProvider) request() *llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

func newService(p llm.Provider) *Service {
	reg := llm.NewRegistry()
	if p != nil {
		reg.Register("mock", p)
	}
	return NewService(reg, Config{}, nil)
}

func validHintRequest(level domain.HintLevel) hints.Request {
	return hints.Request{
		Problem:    "Solve 2x + 3 = 11",
		Context:    []string{"user: Solve 2x + 3 = 11"},
		Level:      level,
		Difficulty: domain.DifficultyMiddleSchool,
		Language:   domain.LanguageEnglish,
	}
}

func TestGenerateHint(t *testing.T) {
	p := &mockProvider{content: "What operation undoes adding 3?"}
	s := newService(p)

	resp, err := s.GenerateHint(context.Background(), validHintRequest(domain.HintDirection))
	if err != nil {
		t.Fatalf("GenerateHint() error = %v", err)
	}
	if resp.Hint != "What operation undoes adding 3?" || resp.Level != domain.HintDirection || !resp.HasNext {
		t.Errorf("GenerateHint() = %+v", resp)
	}

	req := p.request()
	if req.Temperature != 0.7 {
		t.Errorf("Temperature = %v; want 0.7", req.Temperature)
	}
	if len(req.Messages) != 1 || !strings.Contains(req.Messages[0].Content, "Solve 2x + 3 = 11") {
		t.Errorf("prompt = %+v", req.Messages)
	}
}

func TestGenerateHint_LastLevelHasNoNext(t *testing.T) {
	s := newService(&mockProvider{content: "Consider 3x + 5 = 20..."})
	resp, err := s.GenerateHint(context.Background(), validHintRequest(domain.HintFullExample))
	if err != nil {
		t.Fatal(err)
	}
	if resp.HasNext {
		t.Error("HasNext = true at level 4")
	}
}

func TestGenerateHint_Validation(t *testing.T) {
	s := newService(&mockProvider{content: "unused"})

	tests := []struct {
		name   string
		mutate func(*hints.Request)
		want   error
	}{
		{"empty problem", func(r *hints.Request) { r.Problem = "   " }, domain.ErrEmptyProblem},
		{"level too high", func(r *hints.Request) { r.Level = 5 }, domain.ErrInvalidLevel},
		{"negative level", func(r *hints.Request) { r.Level = -1 }, domain.ErrInvalidLevel},
		{"bad difficulty", func(r *hints.Request) { r.Difficulty = "phd" }, domain.ErrInvalidDifficulty},
		{"bad language", func(r *hints.Request) { r.Language = "it" }, domain.ErrInvalidLanguage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validHintRequest(domain.HintGentleNudge)
			tt.mutate(&req)
			if _, err := s.GenerateHint(context.Background(), req); !errors.Is(err, tt.want) {
				t.Errorf("GenerateHint() error = %v; want %v", err, tt.want)
			}
		})
	}
}

func TestGenerateHint_ProviderErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
		wantIs     error
	}{
		{"rate limited", &llm.StatusError{Provider: "mock", StatusCode: 429}, http.StatusTooManyRequests, "Rate limit exceeded. Please try again in a moment.", hints.ErrRateLimited},
		{"local limiter", llm.ErrRateLimited, http.StatusTooManyRequests, "Rate limit exceeded. Please try again in a moment.", hints.ErrRateLimited},
		{"server error", &llm.StatusError{Provider: "mock", StatusCode: 500}, http.StatusInternalServerError, "Failed to generate hint. Please try again.", hints.ErrServiceUnavailable},
		{"network", errors.New("connection refused"), http.StatusInternalServerError, "Failed to generate hint. Please try again.", hints.ErrServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newService(&mockProvider{err: tt.err})
			_, err := s.GenerateHint(context.Background(), validHintRequest(0))

			var se *hints.ServiceError
			if !errors.As(err, &se) {
				t.Fatalf("GenerateHint() error = %v; want *hints.ServiceError", err)
			}
			if se.StatusCode != tt.wantStatus || se.Message != tt.wantMsg {
				t.Errorf("ServiceError = %+v", se)
			}
			if !errors.Is(err, tt.wantIs) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.wantIs)
			}
			if got := hints.Message(err); got != tt.wantMsg {
				t.Errorf("hints.Message() = %q", got)
			}
		})
	}
}

func TestGenerateHint_NoProvider(t *testing.T) {
	s := newService(nil)
	_, err := s.GenerateHint(context.Background(), validHintRequest(0))
	if !errors.Is(err, hints.ErrServiceUnavailable) {
		t.Errorf("GenerateHint() error = %v; want ErrServiceUnavailable", err)
	}
}

func TestGenerateHint_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := newService(&mockProvider{err: context.Canceled})
	if _, err := s.GenerateHint(ctx, validHintRequest(0)); !errors.Is(err, context.Canceled) {
		t.Errorf("GenerateHint() error = %v; want context.Canceled", err)
	}
}

func TestLevels(t *testing.T) {
	cat := newService(nil).Levels()
	if cat.MaxLevel != 4 || len(cat.Levels) != 5 {
		t.Fatalf("Levels() = %+v", cat)
	}
	if cat.Levels[0].Name != "Gentle Nudge" || cat.Levels[4].Name != "Full Example" {
		t.Errorf("names = %q, %q", cat.Levels[0].Name, cat.Levels[4].Name)
	}
}

func TestService_BacksHintEngine(t *testing.T) {
	var svc hints.Service = newService(&mockProvider{content: "Think about inverse operations."})
	resp, err := svc.Hint(context.Background(), validHintRequest(2))
	if err != nil || resp.Level != 2 {
		t.Errorf("Hint() = %+v, %v", resp, err)
	}
}
