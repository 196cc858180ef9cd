package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/gandalf/internal/domain"
)

func sampleConversation() domain.Conversation {
	return domain.Conversation{
		ID:        "conv-1",
		Title:     "Area of a circle",
		Timestamp: 1700000000000,
		UpdatedAt: 1700000060000,
		Messages: []domain.Message{
			domain.NewTextMessage("m1", domain.RoleUser, "What is the area of a circle?"),
			domain.NewTextMessage("m2", domain.RoleAssistant, "What do you know about $\\pi$?"),
		},
	}
}

func TestExportConversation(t *testing.T) {
	conv := sampleConversation()

	t.Run("markdown", func(t *testing.T) {
		var buf bytes.Buffer
		if err := exportConversation(&buf, conv, "markdown"); err != nil {
			t.Fatalf("export error = %v", err)
		}
		if !strings.HasPrefix(buf.String(), "# Area of a circle") || !strings.Contains(buf.String(), "What is the area") {
			t.Errorf("markdown = %q", buf.String())
		}
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := exportConversation(&buf, conv, "json"); err != nil {
			t.Fatalf("export error = %v", err)
		}
		var got domain.Conversation
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("output is not a conversation: %v", err)
		}
		if got.ID != conv.ID || len(got.Messages) != 2 || got.Messages[1].Text() != conv.Messages[1].Text() {
			t.Errorf("exported = %+v", got)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		if err := exportConversation(&bytes.Buffer{}, conv, "pdf"); err == nil {
			t.Error("expected an error for an unknown format")
		}
	})
}

func TestPrintHintSummary(t *testing.T) {
	var buf bytes.Buffer
	printHintSummary(&buf, []domain.HintState{{
		ProblemID:      "p1",
		CurrentLevel:   2,
		HintsRequested: 3,
		HintHistory: []domain.HintEntry{
			{Level: 2}, {Level: 0}, {Level: 2},
		},
	}})
	out := buf.String()
	if !strings.Contains(out, "p1") || !strings.Contains(out, "Level 2/4") || !strings.Contains(out, "levels shown [0 2]") {
		t.Errorf("summary = %q", out)
	}

	buf.Reset()
	printHintSummary(&buf, nil)
	if buf.Len() != 0 {
		t.Errorf("empty summary = %q", buf.String())
	}
}

func TestTailLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gandalfd.log")
	content := "first line\nsecond line\nthird line\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		n    int64
		want string
	}{
		{"whole file", 4096, content},
		{"skips partial line", 15, "third line\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := os.Open(path)
			if err != nil {
				t.Fatal(err)
			}
			defer f.Close()

			var buf bytes.Buffer
			if err := tailLines(&buf, f, tt.n); err != nil {
				t.Fatalf("tailLines() error = %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("tailLines() = %q; want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestReadPID(t *testing.T) {
	path := filepath.Join(t.TempDir(), pidFile)
	if err := os.WriteFile(path, []byte("4242\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	pid, err := readPID(path)
	if err != nil || pid != 4242 {
		t.Errorf("readPID() = %d, %v; want 4242", pid, err)
	}

	if err := os.WriteFile(path, []byte("nope"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := readPID(path); err == nil {
		t.Error("expected a parse error")
	}
}

func TestPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	printStatus(&buf, "http://127.0.0.1:7437", daemonStatus{
		Status:            "ok",
		Version:           "1.2.0",
		LLMProviders:      []string{"claude", "ollama"},
		DefaultProvider:   "claude",
		DefaultDifficulty: "high-school",
		DefaultLanguage:   "en",
		RateLimit:         10,
	})
	out := buf.String()
	for _, want := range []string{"1.2.0", "claude, ollama", "Default:    claude", "10/min per client", "http://127.0.0.1:7437"} {
		if !strings.Contains(out, want) {
			t.Errorf("status missing %q:\n%s", want, out)
		}
	}
}

func TestRootCommandTree(t *testing.T) {
	want := []string{"chat", "hint", "levels", "render", "conversations", "whiteboard", "prefs",
		"mcp", "init", "doctor", "config", "provider", "start", "stop", "status", "logs", "version"}
	have := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		have[c.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("missing command %q", name)
		}
	}
	if f := rootCmd.PersistentFlags().Lookup("mode"); f == nil || f.DefValue != modeAuto {
		t.Errorf("--mode flag = %+v", f)
	}
}

func TestRenderCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"render", `Angle $\alpha$ and $\beta$`})
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	}()

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("render error = %v", err)
	}
	if got := strings.TrimSpace(out.String()); !strings.Contains(got, "α") || !strings.Contains(got, "β") || strings.Contains(got, "$") {
		t.Errorf("render output = %q", got)
	}
}

func TestHintRequestFromConversation(t *testing.T) {
	a, _, _ := newTestApp(t)
	ctx := context.Background()

	conv, err := a.conversations.Save(ctx, sampleConversation())
	if err != nil {
		t.Fatal(err)
	}

	hintFrom, hintLevel, hintContext = conv.ID, 2, []string{"user: I know the radius"}
	defer func() { hintFrom, hintLevel, hintContext = "", 0, nil }()

	cmd := &cobra.Command{}
	cmd.SetContext(ctx)
	req, err := hintRequest(a, cmd, "")
	if err != nil {
		t.Fatalf("hintRequest() error = %v", err)
	}
	if req.Problem != "What is the area of a circle?" || req.Level != 2 {
		t.Errorf("request = %+v", req)
	}
	want := []string{"What is the area of a circle?", "What do you know about $\\pi$?", "user: I know the radius"}
	if strings.Join(req.Context, "|") != strings.Join(want, "|") {
		t.Errorf("context = %q; want %q", req.Context, want)
	}
	if req.Difficulty != domain.DefaultDifficulty || req.Language != domain.DefaultLanguage {
		t.Errorf("preferences = %s, %s", req.Difficulty, req.Language)
	}
}

func TestHintRequestValidation(t *testing.T) {
	a, _, _ := newTestApp(t)
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	if _, err := hintRequest(a, cmd, "  "); !errors.Is(err, domain.ErrEmptyProblem) {
		t.Errorf("empty problem error = %v", err)
	}

	hintLevel = 7
	defer func() { hintLevel = 0 }()
	if _, err := hintRequest(a, cmd, "Solve x"); !errors.Is(err, domain.ErrInvalidLevel) {
		t.Errorf("level 7 error = %v", err)
	}
}
