package mathtext

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrUnbalanced     = errors.New("unbalanced braces")
	ErrEmptyMath      = errors.New("empty math expression")
)

// DefaultMacros aliases the common number sets.
var DefaultMacros = map[string]string{
	`\RR`: `\mathbb{R}`,
	`\NN`: `\mathbb{N}`,
	`\ZZ`: `\mathbb{Z}`,
	`\QQ`: `\mathbb{Q}`,
	`\CC`: `\mathbb{C}`,
}

// Options controls a single typesetting call.
type Options struct {
	Display bool
	Macros  map[string]string
}

// Typesetter turns one LaTeX expression into output markup.
type Typesetter interface {
	Typeset(tex string, opts Options) (string, error)
}

// Rendered is a segment paired with its typeset output. Failed math
// segments carry their delimited source as Output and the cause in Err.
type Rendered struct {
	Segment
	Output string
	Err    error
}

// Failed reports whether typesetting fell back to source text.
func (r Rendered) Failed() bool {
	return r.Err != nil
}

// Renderer typesets each math segment independently.
type Renderer struct {
	typesetter Typesetter
	macros     map[string]string
	logger     *slog.Logger
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithMacros replaces the macro dictionary.
func WithMacros(m map[string]string) RendererOption {
	return func(r *Renderer) { r.macros = m }
}

// WithLogger sets the logger used for typesetting failures.
func WithLogger(l *slog.Logger) RendererOption {
	return func(r *Renderer) { r.logger = l }
}

// NewRenderer creates a renderer over the given typesetter.
func NewRenderer(t Typesetter, opts ...RendererOption) *Renderer {
	r := &Renderer{
		typesetter: t,
		macros:     DefaultMacros,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render parses text and typesets every math segment. A failure on one
// segment falls back to its source and never affects its siblings.
func (r *Renderer) Render(text string) []Rendered {
	segments := Parse(text)
	out := make([]Rendered, 0, len(segments))
	for _, seg := range segments {
		out = append(out, r.RenderSegment(seg))
	}
	return out
}

// Text renders text for a terminal. Typeset display math goes on its own
// line.
func (r *Renderer) Text(text string) string {
	var b strings.Builder
	for _, seg := range r.Render(text) {
		if seg.Type == SegmentDisplayMath && !seg.Failed() {
			b.WriteString("\n" + seg.Output + "\n")
			continue
		}
		b.WriteString(seg.Output)
	}
	return b.String()
}

// RenderSegment typesets a single segment.
func (r *Renderer) RenderSegment(seg Segment) (rendered Rendered) {
	rendered = Rendered{Segment: seg}
	if !seg.IsMath() {
		rendered.Output = seg.Content
		return rendered
	}

	defer func() {
		if p := recover(); p != nil {
			rendered.Output = seg.Source()
			rendered.Err = fmt.Errorf("typesetter panic: %v", p)
			r.logger.Warn("math typesetting panicked", "content", seg.Content, "panic", p)
		}
	}()

	out, err := r.typesetter.Typeset(seg.Content, Options{
		Display: seg.Type == SegmentDisplayMath,
		Macros:  r.macros,
	})
	if err != nil {
		r.logger.Debug("math typesetting failed", "content", seg.Content, "error", err)
		rendered.Output = seg.Source()
		rendered.Err = err
		return rendered
	}
	rendered.Output = out
	return rendered
}

var commandName = regexp.MustCompile(`\\[A-Za-z]+`)

// ExpandMacros replaces whole macro commands in tex with their expansion.
// Expansion is not recursive.
func ExpandMacros(tex string, macros map[string]string) string {
	if len(macros) == 0 {
		return tex
	}
	return commandName.ReplaceAllStringFunc(tex, func(cmd string) string {
		if exp, ok := macros[cmd]; ok {
			return exp
		}
		return cmd
	})
}

// checkBraces returns ErrUnbalanced when { and } do not pair up.
// Escaped braces are ignored.
func checkBraces(tex string) error {
	depth := 0
	for i := 0; i < len(tex); i++ {
		switch tex[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return fmt.Errorf("%w: unexpected } at offset %d", ErrUnbalanced, i)
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("%w: %d unclosed {", ErrUnbalanced, depth)
	}
	return nil
}

// MacroNames returns the macro commands in sorted order.
func MacroNames(macros map[string]string) []string {
	names := make([]string, 0, len(macros))
	for k := range macros {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
