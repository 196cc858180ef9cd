// Package mathtext splits prose containing LaTeX math into typed segments
// and drives a typesetter over the math parts.
package mathtext

import (
	"regexp"
	"strings"
)

// SegmentType classifies a run of text.
type SegmentType string

const (
	SegmentText        SegmentType = "text"
	SegmentInlineMath  SegmentType = "inline-math"
	SegmentDisplayMath SegmentType = "display-math"
)

// Segment is a contiguous run of plain text or a single math expression.
type Segment struct {
	Type    SegmentType `json:"type"`
	Content string      `json:"content"`
}

// IsMath reports whether the segment holds a math expression.
func (s Segment) IsMath() bool {
	return s.Type == SegmentInlineMath || s.Type == SegmentDisplayMath
}

// Source returns the segment as delimited source text: math is re-wrapped
// in $ or $$, text is returned as is.
func (s Segment) Source() string {
	switch s.Type {
	case SegmentInlineMath:
		return "$" + s.Content + "$"
	case SegmentDisplayMath:
		return "$$" + s.Content + "$$"
	default:
		return s.Content
	}
}

// delimiters matches, in priority order, $$...$$, \[...\], $...$ and \(...\).
// Dollar bodies may not contain a dollar sign, so "$$$$" and a lone "$" are
// plain text.
var delimiters = regexp.MustCompile(`\$\$([^$]+?)\$\$|\\\[(.+?)\\\]|\$([^$]+?)\$|\\\((.+?)\\\)`)

// Parse splits text into segments in source order. Math content is
// trimmed; text content is kept verbatim. Empty input yields no segments.
func Parse(text string) []Segment {
	if text == "" {
		return nil
	}

	matches := delimiters.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return []Segment{{Type: SegmentText, Content: text}}
	}

	segments := make([]Segment, 0, 2*len(matches)+1)
	pos := 0
	for _, m := range matches {
		if m[0] > pos {
			segments = append(segments, Segment{Type: SegmentText, Content: text[pos:m[0]]})
		}
		segments = append(segments, mathSegment(text, m))
		pos = m[1]
	}
	if pos < len(text) {
		segments = append(segments, Segment{Type: SegmentText, Content: text[pos:]})
	}
	return segments
}

func mathSegment(text string, m []int) Segment {
	// m holds the full match followed by one index pair per group.
	for group := 1; group <= 4; group++ {
		start, end := m[2*group], m[2*group+1]
		if start < 0 {
			continue
		}
		typ := SegmentInlineMath
		if group <= 2 {
			typ = SegmentDisplayMath
		}
		return Segment{Type: typ, Content: strings.TrimSpace(text[start:end])}
	}
	return Segment{Type: SegmentText, Content: text[m[0]:m[1]]}
}

// HasLatex reports whether text contains at least one delimited math
// expression. It uses the same pattern as Parse.
func HasLatex(text string) bool {
	return delimiters.MatchString(text)
}

// Join concatenates the delimited source of each segment.
func Join(segments []Segment) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(s.Source())
	}
	return b.String()
}
