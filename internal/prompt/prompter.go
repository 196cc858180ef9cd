// Package prompt builds the system prompts sent to the language model.
package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/gandalf/internal/domain"
)

//go:embed templates/socratic.txt
var socraticBase string

//go:embed templates/whiteboard.txt
var whiteboardAwareness string

const (
	rule       = "═══════════════════════════════════════════════════════════════════"
	flowMarker = rule + "\n📋 CONVERSATION FLOW STRUCTURE"
)

var difficultyHeaders = map[domain.Language]string{
	domain.LanguageEnglish:  "DIFFICULTY LEVEL",
	domain.LanguageSpanish:  "NIVEL DE DIFICULTAD",
	domain.LanguageFrench:   "NIVEAU DE DIFFICULTÉ",
	domain.LanguageGerman:   "SCHWIERIGKEITSSTUFE",
	domain.LanguageChinese:  "难度级别",
	domain.LanguageJapanese: "難易度レベル",
}

// Prompter builds prompts for the LLM
type Prompter struct{}

// NewPrompter creates a new prompter
func NewPrompter() *Prompter {
	return &Prompter{}
}

// ChatRequest contains data for building the tutoring system prompt.
type ChatRequest struct {
	Difficulty domain.Difficulty
	Language   domain.Language
	// Whiteboard is a serialized description of the learner's drawing.
	Whiteboard string
}

// SystemPrompt returns the Socratic tutoring prompt for a grade band and
// language, followed by whiteboard guidance and the learner's drawing.
func (p *Prompter) SystemPrompt(req ChatRequest) string {
	var sb strings.Builder
	sb.WriteString(p.SocraticPrompt(req.Language, req.Difficulty))
	sb.WriteString("\n\n")
	sb.WriteString(WhiteboardAwareness())
	if wb := WhiteboardContext(req.Whiteboard); wb != "" {
		sb.WriteString("\n\n")
		sb.WriteString(wb)
	}
	return sb.String()
}

// SocraticPrompt returns the base tutoring prompt with a difficulty
// section inserted ahead of the conversation flow.
func (p *Prompter) SocraticPrompt(lang domain.Language, difficulty domain.Difficulty) string {
	if !lang.Valid() {
		lang = domain.DefaultLanguage
	}
	cfg := difficulty.Config()

	var section strings.Builder
	section.WriteString(rule + "\n")
	section.WriteString(fmt.Sprintf("🎯 %s: %s\n", difficultyHeaders[lang], strings.ToUpper(cfg.Name)))
	section.WriteString(rule + "\n\n")
	section.WriteString(cfg.Description + "\n\n")
	section.WriteString(complexityInstructions(cfg.LanguageComplexity) + "\n")
	section.WriteString(intensityInstructions(cfg.QuestioningIntensity) + "\n")
	section.WriteString(hintFrequencyInstructions(cfg.HintFrequency))

	before, after, _ := strings.Cut(socraticBase, flowMarker)
	out := before + section.String() + "\n\n" + flowMarker + after

	if lang != domain.LanguageEnglish {
		c := lang.Config()
		out += fmt.Sprintf("\n%s\n🌐 LANGUAGE\n%s\n\nRespond ONLY in %s (%s). Keep LaTeX math notation unchanged.\n",
			rule, rule, c.NativeName, c.Name)
	}
	return out
}

func complexityInstructions(c domain.LanguageComplexity) string {
	switch c {
	case domain.ComplexitySimple:
		return `
**Language Level: Elementary (Grades K-5)**
- Use very simple, everyday language
- Avoid technical math terms when possible
- Use concrete examples and visuals descriptions
- Keep sentences short and clear
- Examples: "How many do we have?" instead of "What's the sum?"
`
	case domain.ComplexityModerate:
		return `
**Language Level: Middle School (Grades 6-8)**
- Use clear, standard math terminology
- Define technical terms when introducing them
- Balance formal language with accessibility
- Examples: "sum", "difference", "quotient", "variable"
`
	case domain.ComplexityTechnical:
		return `
**Language Level: College/University**
- Use precise mathematical terminology
- Reference theorems, proofs, and formal definitions
- Assume strong mathematical foundation
- Examples: "parametric equations", "eigenvalues", "differential equations"
`
	default:
		return `
**Language Level: High School (Grades 9-12)**
- Use standard mathematical terminology freely
- Assume familiarity with algebra, geometry concepts
- Use formal mathematical language
- Examples: "coefficient", "quadratic", "polynomial", "derivative"
`
	}
}

func intensityInstructions(i domain.QuestioningIntensity) string {
	switch i {
	case domain.IntensityGentle:
		return `
**Questioning Approach: Gentle & Encouraging**
- Ask very leading questions that guide closely
- Provide lots of positive reinforcement
- Break down steps into tiny increments
- Be extra patient with struggling
- Example: "If we have 5 apples and add 3 more, how many do we have now?"
`
	case domain.IntensityModerate:
		return `
**Questioning Approach: Moderate Guidance**
- Ask guiding questions with reasonable hints
- Provide regular encouragement
- Break steps into manageable pieces
- Be patient and supportive
- Example: "What operation should we use to combine these terms?"
`
	case domain.IntensityRigorous:
		return `
**Questioning Approach: Rigorous & Analytical**
- Ask probing questions requiring formal reasoning
- Expect precise explanations and proofs
- Challenge assumptions and generalizations
- Encourage exploration of edge cases
- Example: "Can you prove this holds for all cases? What are the constraints?"
`
	default:
		return `
**Questioning Approach: Challenging & Thought-Provoking**
- Ask questions that require deeper thinking
- Encourage independent problem-solving
- Let students struggle productively before hinting
- Push for justification of reasoning
- Example: "Why does this method work? Can you explain the underlying principle?"
`
	}
}

func hintFrequencyInstructions(n int) string {
	plural := ""
	if n > 1 {
		plural = "s"
	}
	return fmt.Sprintf(`
**Hint Escalation Timing:**
After %d consecutive turn%s without progress, begin escalating hints.

Track when student is stuck (%d+ consecutive turns without progress).

**First Hint (Concept Level):**
- Point to relevant concept without giving method
- "Think about the properties of [concept]"
- "Remember what we know about [topic]"

**Second Hint (Method Level):**
- Suggest specific approach without doing it
- "What if we tried [general method]?"
- "Have you considered [technique]?"

**Third Hint (Example Level):**
- Show similar example with DIFFERENT numbers
- "Let's look at a similar problem: If we had [different scenario]..."
- Never use same numbers as original problem
`, n, plural, n)
}
