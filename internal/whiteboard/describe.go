// Package whiteboard describes learner drawings for the language model and
// persists them per conversation.
package whiteboard

import (
	"fmt"
	"math"
	"strings"

	"github.com/felixgeelhaar/gandalf/internal/domain"
)

const (
	// MaxDescriptionLength caps the element descriptions, in characters.
	MaxDescriptionLength = 800

	canvasWidth  = 800.0
	canvasHeight = 600.0
)

// Describe serializes elements into a short text the model can read, such
// as `[Whiteboard contains 2 elements: large rectangle at top-left; arrow
// at center pointing right ]`. No elements yields "".
func Describe(elements []domain.WhiteboardElement) string {
	if len(elements) == 0 {
		return ""
	}

	descs := make([]string, 0, len(elements))
	for _, el := range elements {
		if d := describeElement(el); d != "" {
			descs = append(descs, d)
		}
	}
	description := strings.Join(descs, "; ")
	if r := []rune(description); len(r) > MaxDescriptionLength {
		description = string(r[:MaxDescriptionLength]) + "... (drawing continues)"
	}

	plural := ""
	if len(elements) > 1 {
		plural = "s"
	}
	parts := []string{fmt.Sprintf("[Whiteboard contains %d element%s:", len(elements), plural)}
	if description != "" {
		parts = append(parts, description)
	}
	parts = append(parts, "]")
	return strings.Join(parts, " ")
}

func describeElement(el domain.WhiteboardElement) string {
	pos := position(el.X, el.Y)
	var parts []string

	switch el.Type {
	case domain.ElementRectangle, domain.ElementEllipse, domain.ElementDiamond:
		shape := string(el.Type)
		if el.Type == domain.ElementEllipse {
			shape = "circle"
		}
		if s := size(el.Width, el.Height); s != "" {
			shape = s + " " + shape
		}
		parts = append(parts, shape, "at "+pos)
		if el.Label != "" {
			parts = append(parts, fmt.Sprintf("labeled %q", el.Label))
		}
		if el.Text != "" {
			parts = append(parts, fmt.Sprintf("with text %q", el.Text))
		}
	case domain.ElementLine, domain.ElementArrow:
		parts = append(parts, string(el.Type), "at "+pos)
		if d := direction(el.Points); d != "" {
			parts = append(parts, d)
		}
		if el.Label != "" {
			parts = append(parts, fmt.Sprintf("labeled %q", el.Label))
		}
	case domain.ElementText:
		if el.Text != "" {
			parts = append(parts, fmt.Sprintf("text at %s: %q", pos, el.Text))
		}
	case domain.ElementFreedraw:
		parts = append(parts, "hand-drawn sketch at "+pos)
		if el.Label != "" {
			parts = append(parts, "("+el.Label+")")
		}
	default:
		parts = append(parts, fmt.Sprintf("%s at %s", el.Type, pos))
	}
	return strings.Join(parts, " ")
}

// position names the canvas third a point falls in.
func position(x, y float64) string {
	h := "center"
	switch {
	case x < canvasWidth/3:
		h = "left"
	case x > 2*canvasWidth/3:
		h = "right"
	}
	v := "middle"
	switch {
	case y < canvasHeight/3:
		v = "top"
	case y > 2*canvasHeight/3:
		v = "bottom"
	}
	if h == "center" && v == "middle" {
		return "center"
	}
	return v + "-" + h
}

func size(width, height float64) string {
	if width == 0 && height == 0 {
		return ""
	}
	avg := (width + height) / 2
	switch {
	case avg < 50:
		return "small"
	case avg < 150:
		return "medium"
	default:
		return "large"
	}
}

// direction names the octant from the first to the last point. Canvas y
// grows downward.
func direction(points []domain.Point) string {
	if len(points) < 2 {
		return ""
	}
	start, end := points[0], points[len(points)-1]
	angle := math.Atan2(end.Y-start.Y, end.X-start.X) * 180 / math.Pi

	switch {
	case angle >= -22.5 && angle < 22.5:
		return "pointing right"
	case angle >= 22.5 && angle < 67.5:
		return "pointing down-right"
	case angle >= 67.5 && angle < 112.5:
		return "pointing down"
	case angle >= 112.5 && angle < 157.5:
		return "pointing down-left"
	case angle >= 157.5 || angle < -157.5:
		return "pointing left"
	case angle >= -157.5 && angle < -112.5:
		return "pointing up-left"
	case angle >= -112.5 && angle < -67.5:
		return "pointing up"
	default:
		return "pointing up-right"
	}
}

// HasContent reports whether a whiteboard has any elements.
func HasContent(wb *domain.Whiteboard) bool {
	return wb != nil && len(wb.Elements) > 0
}

// HasGeometricShapes reports whether any element is a shape or connector.
func HasGeometricShapes(elements []domain.WhiteboardElement) bool {
	for _, el := range elements {
		if el.Type.IsGeometric() {
			return true
		}
	}
	return false
}

// ExtractText returns every text and label, in element order.
func ExtractText(elements []domain.WhiteboardElement) []string {
	var out []string
	for _, el := range elements {
		if el.Text != "" {
			out = append(out, el.Text)
		}
		if el.Label != "" {
			out = append(out, el.Label)
		}
	}
	return out
}
