package domain

// ElementType is the kind of a whiteboard drawing element.
type ElementType string

const (
	ElementRectangle ElementType = "rectangle"
	ElementEllipse   ElementType = "ellipse"
	ElementDiamond   ElementType = "diamond"
	ElementLine      ElementType = "line"
	ElementArrow     ElementType = "arrow"
	ElementText      ElementType = "text"
	ElementFreedraw  ElementType = "freedraw"
)

// IsGeometric reports whether the element is a shape or connector.
func (t ElementType) IsGeometric() bool {
	switch t {
	case ElementRectangle, ElementEllipse, ElementDiamond, ElementLine, ElementArrow:
		return true
	}
	return false
}

// Point is a canvas coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// WhiteboardElement is one shape, connector, label or sketch drawn by the
// learner.
type WhiteboardElement struct {
	ID              string      `json:"id"`
	Type            ElementType `json:"type"`
	X               float64     `json:"x"`
	Y               float64     `json:"y"`
	Width           float64     `json:"width,omitempty"`
	Height          float64     `json:"height,omitempty"`
	Points          []Point     `json:"points,omitempty"`
	Text            string      `json:"text,omitempty"`
	Label           string      `json:"label,omitempty"`
	StrokeColor     string      `json:"strokeColor,omitempty"`
	BackgroundColor string      `json:"backgroundColor,omitempty"`
	StrokeWidth     float64     `json:"strokeWidth,omitempty"`
}

// Whiteboard is a persisted drawing for one conversation.
type Whiteboard struct {
	Elements  []WhiteboardElement `json:"elements"`
	AppState  map[string]any      `json:"appState"`
	Timestamp int64               `json:"timestamp"`
}

// WhiteboardIndexEntry lists a stored whiteboard.
type WhiteboardIndexEntry struct {
	ConversationID string `json:"conversationId"`
	Timestamp      int64  `json:"timestamp"`
	ElementCount   int    `json:"elementCount"`
}
