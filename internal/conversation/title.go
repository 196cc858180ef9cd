package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/gandalf/internal/domain"
)

// DefaultTitle names a conversation without a user question.
const DefaultTitle = "New Conversation"

const maxTitleLength = 50

// Title derives a title from the first text part of the first user
// message, shortened to 50 characters.
func Title(messages []domain.Message) string {
	for _, m := range messages {
		if m.Role != domain.RoleUser {
			continue
		}
		for _, p := range m.Parts {
			if tp, ok := p.(domain.TextPart); ok {
				r := []rune(tp.Text)
				if len(r) > maxTitleLength {
					return string(r[:maxTitleLength-3]) + "..."
				}
				return tp.Text
			}
		}
		return DefaultTitle
	}
	return DefaultTitle
}

// RecentContext returns the text of the last n messages, oldest first.
func RecentContext(conv domain.Conversation, n int) []string {
	msgs := conv.Messages
	if n >= 0 && len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Text())
	}
	return out
}

// Markdown renders a conversation transcript for export.
func Markdown(conv domain.Conversation) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n\n", conv.Title))
	if conv.Timestamp > 0 {
		sb.WriteString(fmt.Sprintf("_Started %s_\n\n", time.UnixMilli(conv.Timestamp).UTC().Format(time.RFC1123)))
	}
	for _, m := range conv.Messages {
		name := "Student"
		switch m.Role {
		case domain.RoleAssistant:
			name = "Tutor"
		case domain.RoleSystem:
			name = "System"
		}
		sb.WriteString(fmt.Sprintf("**%s:**\n\n", name))
		if text := m.Text(); text != "" {
			sb.WriteString(text + "\n\n")
		}
		for _, img := range m.Images() {
			label := img.Filename
			if label == "" {
				label = "image"
			}
			sb.WriteString(fmt.Sprintf("_[attached %s]_\n\n", label))
		}
	}
	return sb.String()
}
