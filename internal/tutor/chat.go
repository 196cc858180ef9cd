package tutor

import (
	"context"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/gandalf/internal/domain"
	"github.com/felixgeelhaar/gandalf/internal/llm"
	"github.com/felixgeelhaar/gandalf/internal/prompt"
)

// ChatRequest is one Socratic chat turn. Empty or unknown difficulty and
// language fall back to the defaults.
type ChatRequest struct {
	Messages   []domain.Message   `json:"messages"`
	Difficulty domain.Difficulty  `json:"difficulty,omitempty"`
	Language   domain.Language    `json:"language,omitempty"`
	Whiteboard *domain.Whiteboard `json:"whiteboardData,omitempty"`
}

// ChatResponse is a complete tutor reply.
type ChatResponse struct {
	Content string `json:"content"`
}

// StreamChunk represents a streaming chunk
type StreamChunk struct {
	Type    string // "content", "done" or "error"
	Content string
	Error   error
}

// buildChat prepares the provider request for a chat turn.
func (s *Service) buildChat(req ChatRequest) (*llm.Request, error) {
	if req.Messages == nil {
		return nil, ErrNoMessages
	}

	difficulty := req.Difficulty
	if !difficulty.Valid() {
		difficulty = domain.DefaultDifficulty
	}
	language := req.Language
	if !language.Valid() {
		language = domain.DefaultLanguage
	}

	msgs := req.Messages
	if len(msgs) > s.cfg.ContextMessages {
		msgs = msgs[len(msgs)-s.cfg.ContextMessages:]
	}

	wb := whiteboardDescription(req.Whiteboard)
	s.logger.Debug("chat turn",
		"language", language,
		"difficulty", difficulty,
		"messages", len(msgs),
		"whiteboard", wb != "")

	return &llm.Request{
		System: s.prompter.SystemPrompt(prompt.ChatRequest{
			Difficulty: difficulty,
			Language:   language,
			Whiteboard: wb,
		}),
		Messages:    s.toLLMMessages(msgs),
		MaxTokens:   s.cfg.ChatMaxTokens,
		Temperature: s.cfg.ChatTemperature,
	}, nil
}

// toLLMMessages keeps text and decodable image attachments. System
// messages from clients are dropped.
func (s *Service) toLLMMessages(msgs []domain.Message) []llm.Message {
	out := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		var role llm.Role
		switch m.Role {
		case domain.RoleUser:
			role = llm.RoleUser
		case domain.RoleAssistant:
			role = llm.RoleAssistant
		default:
			continue
		}

		lm := llm.Message{Role: role, Content: m.Text()}
		for _, fp := range m.Images() {
			img, err := llm.ParseDataURL(fp.URL)
			if err != nil {
				s.logger.Warn("skipping unreadable image attachment", "message_id", m.ID, "error", err)
				continue
			}
			if img.MediaType == "application/octet-stream" {
				img.MediaType = fp.MediaType
			}
			lm.Images = append(lm.Images, img)
		}
		if strings.TrimSpace(lm.Content) == "" && len(lm.Images) == 0 {
			continue
		}
		out = append(out, lm)
	}
	return out
}

// Chat returns the full tutor reply for a turn.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	llmReq, err := s.buildChat(req)
	if err != nil {
		return nil, err
	}
	provider, err := s.provider()
	if err != nil {
		return nil, s.chatError(ctx, fmt.Errorf("get LLM provider: %w", err))
	}

	resp, err := provider.Generate(ctx, llmReq)
	if err != nil {
		return nil, s.chatError(ctx, err)
	}
	s.logger.Debug("chat reply",
		"provider", provider.Name(),
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"finish_reason", resp.FinishReason)
	return &ChatResponse{Content: resp.Content}, nil
}

// ChatStream streams the tutor reply. Providers without streaming send the
// full reply as one content chunk.
func (s *Service) ChatStream(ctx context.Context, req ChatRequest) (<-chan StreamChunk, error) {
	llmReq, err := s.buildChat(req)
	if err != nil {
		return nil, err
	}
	provider, err := s.provider()
	if err != nil {
		return nil, s.chatError(ctx, fmt.Errorf("get LLM provider: %w", err))
	}

	outCh := make(chan StreamChunk, 100)

	if !provider.SupportsStreaming() {
		resp, err := provider.Generate(ctx, llmReq)
		if err != nil {
			return nil, s.chatError(ctx, err)
		}
		outCh <- StreamChunk{Type: "content", Content: resp.Content}
		outCh <- StreamChunk{Type: "done"}
		close(outCh)
		return outCh, nil
	}

	llmStream, err := provider.GenerateStream(ctx, llmReq)
	if err != nil {
		return nil, s.chatError(ctx, err)
	}

	go func() {
		defer close(outCh)
		send := func(c StreamChunk) bool {
			select {
			case outCh <- c:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for chunk := range llmStream {
			switch {
			case chunk.Error != nil:
				s.logger.Error("chat stream failed", "error", chunk.Error)
				send(StreamChunk{Type: "error", Error: chunk.Error})
				return
			case chunk.Done:
				send(StreamChunk{Type: "done"})
				return
			case chunk.Content != "":
				if !send(StreamChunk{Type: "content", Content: chunk.Content}) {
					return
				}
			}
		}
		send(StreamChunk{Type: "done"})
	}()

	return outCh, nil
}
