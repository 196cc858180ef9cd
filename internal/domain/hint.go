package domain

import "fmt"

// HintLevel ranks how revealing a hint is, from a conceptual nudge (0)
// to a fully worked example (4).
type HintLevel int

const (
	HintGentleNudge HintLevel = iota
	HintDirection
	HintSpecificMethod
	HintPartialStep
	HintFullExample
)

// MaxHintLevel is the most revealing tier; no level exceeds it.
const MaxHintLevel = HintFullExample

var hintLevelNames = [...]string{
	"Gentle Nudge",
	"Direction",
	"Specific Method",
	"Partial Step",
	"Full Example",
}

var hintLevelDescriptions = [...]string{
	"Conceptual question to get you thinking",
	"General direction or approach",
	"Specific method or formula to use",
	"First step shown",
	"Similar worked example",
}

// Valid reports whether the level is within [0, MaxHintLevel].
func (l HintLevel) Valid() bool {
	return l >= 0 && l <= MaxHintLevel
}

// Next returns the following level, clamped at MaxHintLevel.
func (l HintLevel) Next() HintLevel {
	if l >= MaxHintLevel {
		return MaxHintLevel
	}
	if l < 0 {
		return 0
	}
	return l + 1
}

func (l HintLevel) String() string {
	if !l.Valid() {
		return fmt.Sprintf("HintLevel(%d)", int(l))
	}
	return hintLevelNames[l]
}

// Description returns a short learner-facing summary of the level.
func (l HintLevel) Description() string {
	if !l.Valid() {
		return ""
	}
	return hintLevelDescriptions[l]
}

// HintLevels returns every level in ascending order.
func HintLevels() []HintLevel {
	return []HintLevel{HintGentleNudge, HintDirection, HintSpecificMethod, HintPartialStep, HintFullExample}
}

// ParseHintLevel validates an integer as a HintLevel.
func ParseHintLevel(n int) (HintLevel, error) {
	l := HintLevel(n)
	if !l.Valid() {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidLevel, n)
	}
	return l, nil
}

// HintType categorizes a hint's content.
type HintType string

const (
	HintTypeText    HintType = "text"
	HintTypeVisual  HintType = "visual"
	HintTypeExample HintType = "example"
)

// HintEntry is one successfully fetched hint. Entries are never mutated
// after creation.
type HintEntry struct {
	Level      HintLevel `json:"level"`
	Timestamp  int64     `json:"timestamp"`
	Content    string    `json:"content"`
	Type       HintType  `json:"type"`
	WasHelpful *bool     `json:"wasHelpful,omitempty"`
}

// HintState is the persisted hint progress for one problem within a
// conversation.
type HintState struct {
	ConversationID string      `json:"conversationId"`
	ProblemID      string      `json:"problemId"`
	CurrentLevel   HintLevel   `json:"currentLevel"`
	HintsRequested int         `json:"hintsRequested"`
	HintHistory    []HintEntry `json:"hintHistory"`
}

// NewHintState returns the default state for a problem that has no
// recorded hints.
func NewHintState(conversationID, problemID string) HintState {
	return HintState{
		ConversationID: conversationID,
		ProblemID:      problemID,
		CurrentLevel:   0,
		HintHistory:    []HintEntry{},
	}
}

// Latest returns the most recently appended entry for a level.
func (s HintState) Latest(level HintLevel) (HintEntry, bool) {
	for i := len(s.HintHistory) - 1; i >= 0; i-- {
		if s.HintHistory[i].Level == level {
			return s.HintHistory[i], true
		}
	}
	return HintEntry{}, false
}
