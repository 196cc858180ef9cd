package mathtext

import (
	"fmt"
	"html"
	"strings"
)

// HTMLTypesetter emits escaped LaTeX inside marked-up spans for a
// client-side KaTeX pass. Macros are expanded server-side so clients need
// no macro table.
type HTMLTypesetter struct{}

func (HTMLTypesetter) Typeset(tex string, opts Options) (string, error) {
	tex = ExpandMacros(tex, opts.Macros)
	if strings.TrimSpace(tex) == "" {
		return "", ErrEmptyMath
	}
	if err := checkBraces(tex); err != nil {
		return "", err
	}
	class, display := "math math-inline", "false"
	if opts.Display {
		class, display = "math math-display", "true"
	}
	return fmt.Sprintf(`<span class="%s" data-display="%s">%s</span>`, class, display, html.EscapeString(tex)), nil
}

// HTML renders text into a single HTML fragment. Plain text is escaped
// with whitespace preserved, failed math is shown as source with an error
// class.
func (r *Renderer) HTML(text string) string {
	var b strings.Builder
	for _, seg := range r.Render(text) {
		switch {
		case !seg.IsMath():
			b.WriteString(`<span class="text">`)
			b.WriteString(html.EscapeString(seg.Output))
			b.WriteString(`</span>`)
		case seg.Failed():
			b.WriteString(`<span class="math-error">`)
			b.WriteString(html.EscapeString(seg.Output))
			b.WriteString(`</span>`)
		default:
			b.WriteString(seg.Output)
		}
	}
	return b.String()
}
