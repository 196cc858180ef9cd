package tutor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/felixgeelhaar/gandalf/internal/domain"
	"github.com/felixgeelhaar/gandalf/internal/llm"
)

func conversation(n int) []domain.Message {
	msgs := make([]domain.Message, 0, n)
	for i := 0; i < n; i++ {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		msgs = append(msgs, domain.NewTextMessage(fmt.Sprintf("m%d", i), role, fmt.Sprintf("turn %d", i)))
	}
	return msgs
}

func TestChat_KeepsLastFifteenMessages(t *testing.T) {
	p := &mockProvider{content: "What do you notice?"}
	s := newService(p)

	resp, err := s.Chat(context.Background(), ChatRequest{Messages: conversation(20)})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if resp.Content != "What do you notice?" {
		t.Errorf("Content = %q", resp.Content)
	}

	req := p.request()
	if len(req.Messages) != 15 {
		t.Fatalf("sent %d messages; want 15", len(req.Messages))
	}
	if req.Messages[0].Content != "turn 5" || req.Messages[14].Content != "turn 19" {
		t.Errorf("window = %q .. %q", req.Messages[0].Content, req.Messages[14].Content)
	}
	if req.Temperature != 0.7 {
		t.Errorf("Temperature = %v", req.Temperature)
	}
}

func TestChat_DefaultsAndWhiteboard(t *testing.T) {
	p := &mockProvider{content: "ok"}
	s := newService(p)

	wb := &domain.Whiteboard{Elements: []domain.WhiteboardElement{
		{ID: "r1", Type: domain.ElementRectangle, X: 10, Y: 10, Width: 200, Height: 100},
		{ID: "t1", Type: domain.ElementText, X: 20, Y: 20, Text: "x = 5"},
	}}
	_, err := s.Chat(context.Background(), ChatRequest{
		Messages:   conversation(1),
		Difficulty: "unknown",
		Whiteboard: wb,
	})
	if err != nil {
		t.Fatal(err)
	}

	sys := p.request().System
	if !strings.Contains(sys, "x = 5") {
		t.Error("system prompt should describe the whiteboard")
	}
	if strings.Contains(sys, "Respond ONLY in") {
		t.Error("missing language should default to English")
	}
}

func TestChat_LocalizedSystemPrompt(t *testing.T) {
	p := &mockProvider{content: "ok"}
	s := newService(p)
	_, _ = s.Chat(context.Background(), ChatRequest{Messages: conversation(1), Language: domain.LanguageFrench})
	if !strings.Contains(p.request().System, "Français") {
		t.Error("French chat should carry a French language directive")
	}
}

func TestChat_ImagesAndRoles(t *testing.T) {
	p := &mockProvider{content: "ok"}
	s := newService(p)

	msgs := []domain.Message{
		{ID: "sys", Role: domain.RoleSystem, Parts: []domain.Part{domain.TextPart{Text: "ignore me"}}},
		{ID: "u1", Role: domain.RoleUser, Parts: []domain.Part{
			domain.TextPart{Text: "Help with this"},
			domain.FilePart{MediaType: "image/png", URL: "data:image/png;base64,cG5n"},
			domain.FilePart{MediaType: "image/png", URL: "https://example.com/not-inline.png"},
		}},
		{ID: "u2", Role: domain.RoleUser, Parts: []domain.Part{domain.FilePart{MediaType: "application/pdf", URL: "data:application/pdf;base64,cGRm"}}},
	}
	if _, err := s.Chat(context.Background(), ChatRequest{Messages: msgs}); err != nil {
		t.Fatal(err)
	}

	sent := p.request().Messages
	if len(sent) != 1 {
		t.Fatalf("sent %d messages; want only the user turn with content", len(sent))
	}
	if len(sent[0].Images) != 1 || string(sent[0].Images[0].Data) != "png" {
		t.Errorf("images = %+v", sent[0].Images)
	}
}

func TestChat_Errors(t *testing.T) {
	s := newService(&mockProvider{})
	if _, err := s.Chat(context.Background(), ChatRequest{}); !errors.Is(err, ErrNoMessages) {
		t.Errorf("Chat() without messages error = %v", err)
	}

	s = newService(&mockProvider{err: &llm.StatusError{Provider: "mock", StatusCode: 429}})
	_, err := s.Chat(context.Background(), ChatRequest{Messages: conversation(1)})
	var ce *ChatError
	if !errors.As(err, &ce) || ce.StatusCode != http.StatusTooManyRequests {
		t.Errorf("Chat() error = %v; want 429 ChatError", err)
	}

	s = newService(&mockProvider{err: errors.New("boom")})
	_, err = s.Chat(context.Background(), ChatRequest{Messages: conversation(1)})
	if !errors.As(err, &ce) || ce.StatusCode != http.StatusInternalServerError {
		t.Errorf("Chat() error = %v; want 500 ChatError", err)
	}
}

func TestChatStream(t *testing.T) {
	p := &mockProvider{
		streaming: true,
		chunks:    []llm.StreamChunk{{Content: "What is "}, {Content: "x?"}, {Done: true}},
	}
	s := newService(p)

	ch, err := s.ChatStream(context.Background(), ChatRequest{Messages: conversation(2)})
	if err != nil {
		t.Fatalf("ChatStream() error = %v", err)
	}
	var text strings.Builder
	var last string
	for c := range ch {
		text.WriteString(c.Content)
		last = c.Type
	}
	if text.String() != "What is x?" || last != "done" {
		t.Errorf("stream = %q, last type %q", text.String(), last)
	}
}

func TestChatStream_ErrorChunk(t *testing.T) {
	p := &mockProvider{streaming: true, chunks: []llm.StreamChunk{{Content: "a"}, {Error: errors.New("reset")}}}
	ch, err := newService(p).ChatStream(context.Background(), ChatRequest{Messages: conversation(1)})
	if err != nil {
		t.Fatal(err)
	}
	var types []string
	for c := range ch {
		types = append(types, c.Type)
	}
	if strings.Join(types, ",") != "content,error" {
		t.Errorf("chunk types = %v", types)
	}
}

func TestChatStream_NonStreamingProvider(t *testing.T) {
	p := &mockProvider{content: "whole reply"}
	ch, err := newService(p).ChatStream(context.Background(), ChatRequest{Messages: conversation(1)})
	if err != nil {
		t.Fatal(err)
	}
	var got []StreamChunk
	for c := range ch {
		got = append(got, c)
	}
	if len(got) != 2 || got[0].Content != "whole reply" || got[1].Type != "done" {
		t.Errorf("chunks = %+v", got)
	}
}
