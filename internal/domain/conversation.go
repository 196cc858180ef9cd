package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Part is one piece of a message body. The set of implementations is
// closed: TextPart and FilePart.
type Part interface {
	partType() string
}

// TextPart carries plain text, possibly with LaTeX math.
type TextPart struct {
	Text string `json:"text"`
}

// FilePart carries an attachment, typically an image of a handwritten
// problem, as a data URL.
type FilePart struct {
	MediaType string `json:"mediaType"`
	URL       string `json:"url"`
	Filename  string `json:"filename,omitempty"`
}

func (TextPart) partType() string { return "text" }
func (FilePart) partType() string { return "file" }

// IsImage reports whether the attachment is an image.
func (p FilePart) IsImage() bool {
	return strings.HasPrefix(p.MediaType, "image/")
}

// Message is a single chat turn.
type Message struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	Parts     []Part `json:"-"`
	CreatedAt int64  `json:"createdAt,omitempty"`
}

// Text concatenates the message's text parts.
func (m Message) Text() string {
	var b strings.Builder
	for _, p := range m.Parts {
		switch p := p.(type) {
		case TextPart:
			b.WriteString(p.Text)
		case FilePart:
		}
	}
	return b.String()
}

// Images returns the message's image attachments.
func (m Message) Images() []FilePart {
	var out []FilePart
	for _, p := range m.Parts {
		if fp, ok := p.(FilePart); ok && fp.IsImage() {
			out = append(out, fp)
		}
	}
	return out
}

type wirePart struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	MediaType string `json:"mediaType,omitempty"`
	URL       string `json:"url,omitempty"`
	Filename  string `json:"filename,omitempty"`
}

type wireMessage struct {
	ID        string     `json:"id"`
	Role      Role       `json:"role"`
	Parts     []wirePart `json:"parts"`
	CreatedAt int64      `json:"createdAt,omitempty"`
}

// MarshalJSON encodes parts with a "type" tag.
func (m Message) MarshalJSON() ([]byte, error) {
	w := wireMessage{ID: m.ID, Role: m.Role, CreatedAt: m.CreatedAt, Parts: make([]wirePart, 0, len(m.Parts))}
	for _, p := range m.Parts {
		switch p := p.(type) {
		case TextPart:
			w.Parts = append(w.Parts, wirePart{Type: "text", Text: p.Text})
		case FilePart:
			w.Parts = append(w.Parts, wirePart{Type: "file", MediaType: p.MediaType, URL: p.URL, Filename: p.Filename})
		default:
			return nil, fmt.Errorf("%w: %T", ErrInvalidPart, p)
		}
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes tagged parts. Unknown part types are rejected.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	parts := make([]Part, 0, len(w.Parts))
	for _, p := range w.Parts {
		switch p.Type {
		case "text":
			parts = append(parts, TextPart{Text: p.Text})
		case "file":
			parts = append(parts, FilePart{MediaType: p.MediaType, URL: p.URL, Filename: p.Filename})
		default:
			return fmt.Errorf("%w: type %q", ErrInvalidPart, p.Type)
		}
	}
	*m = Message{ID: w.ID, Role: w.Role, Parts: parts, CreatedAt: w.CreatedAt}
	return nil
}

// NewTextMessage builds a single-part text message.
func NewTextMessage(id string, role Role, text string) Message {
	return Message{ID: id, Role: role, Parts: []Part{TextPart{Text: text}}}
}

// Conversation is a persisted chat thread.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	Timestamp int64     `json:"timestamp"`
	UpdatedAt int64     `json:"updatedAt"`
}

// ConversationMetadata summarizes a conversation for listings.
type ConversationMetadata struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Timestamp    int64  `json:"timestamp"`
	UpdatedAt    int64  `json:"updatedAt"`
	MessageCount int    `json:"messageCount"`
}

// Metadata returns the listing summary.
func (c Conversation) Metadata() ConversationMetadata {
	return ConversationMetadata{
		ID:           c.ID,
		Title:        c.Title,
		Timestamp:    c.Timestamp,
		UpdatedAt:    c.UpdatedAt,
		MessageCount: len(c.Messages),
	}
}

// LastMessage returns the newest message, if any.
func (c Conversation) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}
