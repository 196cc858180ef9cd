package prompt

import (
	"sort"
	"strings"
)

// WhiteboardAwareness explains to the model how drawings are described
// and how to refer to them.
func WhiteboardAwareness() string {
	return whiteboardAwareness
}

// WhiteboardContext wraps a drawing description for the system prompt.
// An empty description yields an empty section.
func WhiteboardContext(description string) string {
	if description == "" {
		return ""
	}
	return "\n" + rule + "\n📋 STUDENT'S WHITEBOARD\n" + rule + "\n\n" +
		description + "\n\n**Reference this drawing naturally in your questions and guidance.**\n"
}

var suggestionsByTopic = map[string]string{
	"geometry":    "Drawing the shape will help visualize the problem. Can you sketch it on the whiteboard?",
	"area":        "Let me suggest drawing the shape. Can you sketch a rectangle/triangle on the whiteboard?",
	"perimeter":   "Would you like to draw the shape first? It often makes finding the perimeter easier.",
	"angles":      "Try drawing the angles on the whiteboard so we can see them clearly.",
	"triangles":   "Can you sketch the triangle on the whiteboard? Label what we know.",
	"circles":     "Drawing a circle might help here. Want to sketch it on the whiteboard?",
	"graphing":    "Would it help to draw a coordinate plane or number line on the whiteboard?",
	"fractions":   "Let me suggest drawing this. Can you sketch a circle or rectangle to divide?",
	"distance":    "Drawing a diagram could help visualize this. Want to sketch it?",
	"measurement": "Visual learners find this easier with a diagram. Try drawing it on the whiteboard.",
}

// WhiteboardSuggestion returns the drawing suggestion for a topic.
func WhiteboardSuggestion(topic string) (string, bool) {
	s, ok := suggestionsByTopic[strings.ToLower(strings.TrimSpace(topic))]
	return s, ok
}

// WhiteboardTopics lists the topics with a drawing suggestion.
func WhiteboardTopics() []string {
	topics := make([]string, 0, len(suggestionsByTopic))
	for t := range suggestionsByTopic {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}

var visualKeywords = []string{
	"triangle", "rectangle", "square", "circle", "angle",
	"shape", "area", "perimeter", "diagram", "draw",
	"sketch", "graph", "coordinate", "distance", "length",
	"width", "height", "base", "radius", "diameter",
}

// ShouldSuggestWhiteboard reports whether a problem likely benefits from
// a drawing. Matching is a case-insensitive substring test.
func ShouldSuggestWhiteboard(problem string) bool {
	lower := strings.ToLower(problem)
	for _, kw := range visualKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
