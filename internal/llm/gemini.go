package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GeminiProvider implements the Provider interface for Google's Gemini
// models through the generative-ai-go SDK.
type GeminiProvider struct {
	apiKey string
	model  string
	opts   []option.ClientOption

	mu     sync.Mutex
	client *genai.Client
}

// GeminiConfig holds configuration for the Gemini provider
type GeminiConfig struct {
	APIKey  string
	Model   string // default: gemini-2.0-flash
	Options []option.ClientOption
}

// NewGeminiProvider creates a new Gemini provider. The SDK client is
// created on first use.
func NewGeminiProvider(cfg GeminiConfig) *GeminiProvider {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	return &GeminiProvider{
		apiKey: strings.TrimSpace(cfg.APIKey),
		model:  strings.TrimSpace(cfg.Model),
		opts:   cfg.Options,
	}
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}

func (p *GeminiProvider) SupportsStreaming() bool {
	return true
}

// Close releases the SDK client.
func (p *GeminiProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	return err
}

func (p *GeminiProvider) getClient(ctx context.Context) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}
	opts := p.opts
	if p.apiKey != "" {
		opts = append([]option.ClientOption{option.WithAPIKey(p.apiKey)}, opts...)
	}
	cl, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	p.client = cl
	return cl, nil
}

// session prepares a chat whose history holds every message except the
// last, which is returned as the parts to send.
func (p *GeminiProvider) session(ctx context.Context, req *Request) (*genai.ChatSession, []genai.Part, error) {
	cl, err := p.getClient(ctx)
	if err != nil {
		return nil, nil, err
	}

	name := req.Model
	if name == "" {
		name = p.model
	}
	m := cl.GenerativeModel(name)
	if req.Temperature > 0 {
		m.SetTemperature(float32(req.Temperature))
	}
	if req.MaxTokens > 0 {
		m.SetMaxOutputTokens(int32(req.MaxTokens))
	}

	system := req.System
	history := make([]*genai.Content, 0, len(req.Messages))
	for _, msg := range req.Messages {
		if msg.Role == RoleSystem {
			if system == "" {
				system = msg.Content
			}
			continue
		}
		history = append(history, geminiContent(msg))
	}
	if system != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	if len(history) == 0 {
		return nil, nil, errors.New("gemini: request has no messages")
	}

	cs := m.StartChat()
	last := history[len(history)-1]
	cs.History = history[:len(history)-1]
	return cs, last.Parts, nil
}

func geminiContent(msg Message) *genai.Content {
	role := "user"
	if msg.Role == RoleAssistant {
		role = "model"
	}
	parts := make([]genai.Part, 0, len(msg.Images)+1)
	if msg.Content != "" {
		parts = append(parts, genai.Text(msg.Content))
	}
	for _, img := range msg.Images {
		parts = append(parts, &genai.Blob{MIMEType: img.MediaType, Data: img.Data})
	}
	if len(parts) == 0 {
		parts = append(parts, genai.Text(""))
	}
	return &genai.Content{Role: role, Parts: parts}
}

func (p *GeminiProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	cs, parts, err := p.session(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := cs.SendMessage(ctx, parts...)
	if err != nil {
		return nil, p.wrapError(err)
	}

	out := &Response{Content: geminiText(resp)}
	if len(resp.Candidates) > 0 {
		out.FinishReason = strings.ToLower(resp.Candidates[0].FinishReason.String())
	}
	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return out, nil
}

func (p *GeminiProvider) GenerateStream(ctx context.Context, req *Request) (<-chan StreamChunk, error) {
	cs, parts, err := p.session(ctx, req)
	if err != nil {
		return nil, err
	}

	iter := cs.SendMessageStream(ctx, parts...)
	ch := make(chan StreamChunk, 100)

	go func() {
		defer close(ch)

		send := func(c StreamChunk) bool {
			select {
			case ch <- c:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			resp, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				send(StreamChunk{Done: true})
				return
			}
			if err != nil {
				send(StreamChunk{Error: p.wrapError(err)})
				return
			}
			if text := geminiText(resp); text != "" && !send(StreamChunk{Content: text}) {
				return
			}
		}
	}()

	return ch, nil
}

// wrapError maps SDK HTTP failures onto StatusError.
func (p *GeminiProvider) wrapError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &StatusError{Provider: p.Name(), StatusCode: gerr.Code, Body: gerr.Message}
	}
	return fmt.Errorf("gemini: %w", err)
}

func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	c := resp.Candidates[0]
	if c.Content == nil {
		return ""
	}
	for _, part := range c.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String()
}
