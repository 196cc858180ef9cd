package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/gandalf/internal/domain"
	"github.com/felixgeelhaar/gandalf/internal/hints"
	"github.com/felixgeelhaar/gandalf/internal/mathtext"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("147"))
	userStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	tutorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	keyStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffd166"))
	hintBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#ffd166")).
			Padding(0, 1)
)

// markdown renders tutor replies for the terminal. Math is typeset to
// Unicode before the markdown pass.
type markdown struct {
	math *mathtext.Renderer
	term *glamour.TermRenderer
}

func newMarkdown(math *mathtext.Renderer, width int) *markdown {
	term, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		term = nil
	}
	return &markdown{math: math, term: term}
}

func (m *markdown) Render(text string) string {
	text = m.math.Text(text)
	if m.term == nil {
		return text
	}
	out, err := m.term.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

func levelLabel(level domain.HintLevel) string {
	return fmt.Sprintf("Level %d/%d · %s", int(level), int(domain.MaxHintLevel), level)
}

// renderHintView draws the hint panel with the commands that apply to it.
func renderHintView(math *mathtext.Renderer, v hints.View) string {
	var sb strings.Builder

	switch v.Phase {
	case hints.PhaseClosed:
		if len(v.History()) > 0 {
			sb.WriteString(mutedStyle.Render("Hints hidden. " + keyStyle.Render("/reopen") + " to show them again."))
		}
		return sb.String()
	case hints.PhaseLoading:
		sb.WriteString(mutedStyle.Render(fmt.Sprintf("Fetching a hint (%s)...", levelLabel(v.TargetLevel))))
	case hints.PhaseError:
		sb.WriteString(errorStyle.Render(v.Err))
	}

	if v.Displaying {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		body := titleStyle.Render("Hint · "+levelLabel(v.ViewingLevel)) + "\n\n" + math.Text(v.Hint)
		sb.WriteString(hintBoxStyle.Render(body))
	}

	if cues := hintCues(v); cues != "" {
		sb.WriteString("\n" + cues)
	}
	return sb.String()
}

func hintCues(v hints.View) string {
	if v.Loading() {
		return ""
	}
	var cues []string
	if v.HasPrevious() {
		cues = append(cues, keyStyle.Render("/prev")+" earlier hint")
	}
	if v.HasNextInHistory() {
		cues = append(cues, keyStyle.Render("/fwd")+" later hint")
	}
	switch {
	case v.Phase == hints.PhaseError:
		cues = append(cues, keyStyle.Render("/hint")+" try again")
	case v.CanRequestNew() && v.HasNext():
		cues = append(cues, keyStyle.Render("/next")+" more specific hint")
	case !v.CanRequestNew():
		cues = append(cues, "this is the most detailed hint")
	}
	cues = append(cues, keyStyle.Render("/close")+" hide")
	return mutedStyle.Render(strings.Join(cues, " · "))
}
