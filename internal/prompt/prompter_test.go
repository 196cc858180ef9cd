package prompt

import (
	"strings"
	"testing"

	"github.com/felixgeelhaar/gandalf/internal/domain"
)

func TestPrompter_HintPrompt(t *testing.T) {
	p := NewPrompter()

	got := p.HintPrompt(HintRequest{
		Language:   domain.LanguageEnglish,
		Level:      2,
		Difficulty: domain.DifficultyMiddleSchool,
		Problem:    "Solve $2x + 3 = 7$",
		Context:    []string{"a", "b", "c", "d", "e", "f"},
	})

	wantParts := []string{
		"You are providing hint level 2 (0=gentlest, 4=most direct) for a math problem.\n\nHINT LEVEL 2 INSTRUCTIONS:\nSuggest a specific mathematical method",
		"DIFFICULTY LEVEL: middle-school\nUse clear language appropriate for grades 6-8.",
		"RESPOND IN: en\n\n",
		"STUDENT'S CURRENT PROBLEM:\nSolve $2x + 3 = 7$\n\n",
		"CONVERSATION CONTEXT:\nb\nc\nd\ne\nf\n\n",
		"- Stay in character for hint level 2\n",
		`- Format math with LaTeX: $x^2$ or $$\frac{a}{b}$$`,
	}
	for _, w := range wantParts {
		if !strings.Contains(got, w) {
			t.Errorf("HintPrompt() missing %q", w)
		}
	}
	if !strings.HasSuffix(got, "Now provide hint level 2:") {
		t.Errorf("HintPrompt() suffix = %q", got[len(got)-30:])
	}
	if strings.Contains(got, "\na\n") {
		t.Error("HintPrompt() should keep only the last five context lines")
	}
}

func TestPrompter_HintPromptLocalized(t *testing.T) {
	p := NewPrompter()

	tests := []struct {
		lang    domain.Language
		contain []string
	}{
		{domain.LanguageSpanish, []string{"NIVEL DE PISTA 0 INSTRUCTIONS:", "(Sin contexto previo)", "Ahora proporcione el nivel de pista 0:"}},
		{domain.LanguageFrench, []string{"NIVEAU D'INDICE 0", "(Aucun contexte précédent)"}},
		{domain.LanguageGerman, []string{"HINWEISSTUFE 0", "(Kein vorheriger Kontext)"}},
		{domain.LanguageChinese, []string{"提示级别 0", "(无先前上下文)", "保持提示级别0的角色"}},
		{domain.LanguageJapanese, []string{"ヒントレベル 0", "(以前のコンテキストはありません)"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.lang), func(t *testing.T) {
			got := p.HintPrompt(HintRequest{Language: tt.lang, Difficulty: domain.DifficultyCollege, Problem: "p"})
			for _, c := range tt.contain {
				if !strings.Contains(got, c) {
					t.Errorf("HintPrompt(%s) missing %q", tt.lang, c)
				}
			}
		})
	}
}

func TestPrompter_HintPromptFallbacks(t *testing.T) {
	got := NewPrompter().HintPrompt(HintRequest{Language: "xx", Difficulty: "phd", Level: 9, Problem: "p"})
	if !strings.Contains(got, "HINT LEVEL 4 INSTRUCTIONS") || !strings.Contains(got, "DIFFICULTY LEVEL: high-school") {
		t.Errorf("HintPrompt() did not fall back to defaults:\n%s", got)
	}
}

func TestPrompter_SocraticPrompt(t *testing.T) {
	p := NewPrompter()

	got := p.SocraticPrompt(domain.LanguageEnglish, domain.DifficultyElementary)
	diffIdx := strings.Index(got, "🎯 DIFFICULTY LEVEL: ELEMENTARY")
	flowIdx := strings.Index(got, "📋 CONVERSATION FLOW STRUCTURE")
	if diffIdx < 0 || flowIdx < 0 || diffIdx > flowIdx {
		t.Fatalf("difficulty section at %d, flow at %d; want difficulty first", diffIdx, flowIdx)
	}
	for _, w := range []string{
		"NEVER give direct answers or solutions",
		"Grades K-5: Simple language, frequent hints, encouraging",
		"**Language Level: Elementary (Grades K-5)**",
		"**Questioning Approach: Gentle & Encouraging**",
		"After 1 consecutive turn without progress",
		`$$\frac{-b \pm \sqrt{b^2 - 4ac}}{2a}$$`,
	} {
		if !strings.Contains(got, w) {
			t.Errorf("SocraticPrompt() missing %q", w)
		}
	}
	if strings.Contains(got, "Respond ONLY in") {
		t.Error("English prompt should not carry a language directive")
	}

	college := p.SocraticPrompt(domain.LanguageEnglish, domain.DifficultyCollege)
	if !strings.Contains(college, "After 4 consecutive turns without progress") {
		t.Error("college prompt should pluralize turns")
	}
}

func TestPrompter_SocraticPromptLanguage(t *testing.T) {
	got := NewPrompter().SocraticPrompt(domain.LanguageGerman, domain.DifficultyHighSchool)
	if !strings.Contains(got, "🎯 SCHWIERIGKEITSSTUFE: HIGH SCHOOL") {
		t.Error("missing localized difficulty header")
	}
	if !strings.Contains(got, "Respond ONLY in Deutsch (German)") {
		t.Error("missing language directive")
	}
}

func TestPrompter_SystemPrompt(t *testing.T) {
	p := NewPrompter()

	plain := p.SystemPrompt(ChatRequest{Difficulty: domain.DifficultyHighSchool, Language: domain.LanguageEnglish})
	if !strings.Contains(plain, "🎨 WHITEBOARD AWARENESS") {
		t.Error("SystemPrompt() missing whiteboard awareness")
	}
	if strings.Contains(plain, "STUDENT'S WHITEBOARD") {
		t.Error("SystemPrompt() without drawing should omit the whiteboard section")
	}

	drawn := p.SystemPrompt(ChatRequest{Whiteboard: "[Whiteboard contains 1 element: circle at center ]"})
	if !strings.Contains(drawn, "📋 STUDENT'S WHITEBOARD") || !strings.Contains(drawn, "circle at center") {
		t.Error("SystemPrompt() missing drawing description")
	}
}

func TestShouldSuggestWhiteboard(t *testing.T) {
	tests := []struct {
		problem string
		want    bool
	}{
		{"Find the AREA of a rectangle", true},
		{"What is the radius?", true},
		{"Solve 2x + 3 = 7", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ShouldSuggestWhiteboard(tt.problem); got != tt.want {
			t.Errorf("ShouldSuggestWhiteboard(%q) = %v; want %v", tt.problem, got, tt.want)
		}
	}
}

func TestWhiteboardSuggestion(t *testing.T) {
	if s, ok := WhiteboardSuggestion(" Triangles "); !ok || !strings.Contains(s, "sketch the triangle") {
		t.Errorf("WhiteboardSuggestion(triangles) = %q, %v", s, ok)
	}
	if _, ok := WhiteboardSuggestion("calculus"); ok {
		t.Error("WhiteboardSuggestion(calculus) should not exist")
	}
	if n := len(WhiteboardTopics()); n != 10 {
		t.Errorf("len(WhiteboardTopics()) = %d; want 10", n)
	}
	if WhiteboardContext("") != "" {
		t.Error("WhiteboardContext(\"\") should be empty")
	}
}
