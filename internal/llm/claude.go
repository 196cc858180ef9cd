package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// ClaudeProvider implements the Provider interface for Anthropic's Claude
type ClaudeProvider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// ClaudeConfig holds configuration for the Claude provider
type ClaudeConfig struct {
	APIKey     string
	BaseURL    string // default: https://api.anthropic.com
	Model      string // default: claude-sonnet-4-20250514
	HTTPClient *http.Client
}

// NewClaudeProvider creates a new Claude provider
func NewClaudeProvider(cfg ClaudeConfig) *ClaudeProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
	}
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-20250514"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = newLLMHTTPClient()
	}

	return &ClaudeProvider{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: cfg.HTTPClient,
	}
}

func (p *ClaudeProvider) Name() string {
	return "claude"
}

func (p *ClaudeProvider) SupportsStreaming() bool {
	return true
}

type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	Messages    []claudeMessage `json:"messages"`
	System      string          `json:"system,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
	Stream      bool            `json:"stream,omitempty"`
}

type claudeMessage struct {
	Role    string        `json:"role"`
	Content []claudeBlock `json:"content"`
}

type claudeBlock struct {
	Type   string             `json:"type"`
	Text   string             `json:"text,omitempty"`
	Source *claudeImageSource `json:"source,omitempty"`
}

type claudeImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (p *ClaudeProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	resp, err := postJSON(ctx, p.httpClient, p.Name(), p.baseURL+"/v1/messages", p.headers(), p.buildRequest(req, false))
	if err != nil {
		return nil, err
	}

	var claudeResp claudeResponse
	if err := decodeJSON(resp, &claudeResp); err != nil {
		return nil, err
	}

	var content strings.Builder
	for _, c := range claudeResp.Content {
		if c.Type == "text" {
			content.WriteString(c.Text)
		}
	}

	return &Response{
		Content:      content.String(),
		FinishReason: claudeResp.StopReason,
		Usage: Usage{
			InputTokens:  claudeResp.Usage.InputTokens,
			OutputTokens: claudeResp.Usage.OutputTokens,
		},
	}, nil
}

func (p *ClaudeProvider) GenerateStream(ctx context.Context, req *Request) (<-chan StreamChunk, error) {
	resp, err := postJSON(ctx, p.httpClient, p.Name(), p.baseURL+"/v1/messages", p.headers(), p.buildRequest(req, true))
	if err != nil {
		return nil, err
	}

	return streamLines(ctx, resp.Body, func(line string) (string, bool) {
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			return "", false
		}
		if data == "[DONE]" {
			return "", true
		}

		var event struct {
			Type  string `json:"type"`
			Delta struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"delta"`
		}
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			return "", false
		}

		if event.Type == "content_block_delta" && event.Delta.Type == "text_delta" {
			return event.Delta.Text, false
		}
		return "", event.Type == "message_stop"
	}), nil
}

func (p *ClaudeProvider) buildRequest(req *Request, stream bool) *claudeRequest {
	model := req.Model
	if model == "" {
		model = p.model
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	system := req.System
	messages := make([]claudeMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == RoleSystem {
			if system == "" {
				system = m.Content
			}
			continue
		}

		blocks := make([]claudeBlock, 0, len(m.Images)+1)
		for _, img := range m.Images {
			blocks = append(blocks, claudeBlock{
				Type: "image",
				Source: &claudeImageSource{
					Type:      "base64",
					MediaType: img.MediaType,
					Data:      img.Base64(),
				},
			})
		}
		if m.Content != "" || len(blocks) == 0 {
			blocks = append(blocks, claudeBlock{Type: "text", Text: m.Content})
		}
		messages = append(messages, claudeMessage{Role: string(m.Role), Content: blocks})
	}

	return &claudeRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Messages:    messages,
		System:      system,
		Temperature: req.Temperature,
		Stream:      stream,
	}
}

func (p *ClaudeProvider) headers() map[string]string {
	return map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": "2023-06-01",
	}
}
