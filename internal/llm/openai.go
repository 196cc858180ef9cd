package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// OpenAIProvider implements the Provider interface for OpenAI-compatible APIs
type OpenAIProvider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// OpenAIConfig holds configuration for the OpenAI provider
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string // default: https://api.openai.com
	Model      string // default: gpt-4o
	HTTPClient *http.Client
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = newLLMHTTPClient()
	}

	return &OpenAIProvider{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: cfg.HTTPClient,
	}
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

func (p *OpenAIProvider) SupportsStreaming() bool {
	return true
}

type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
	Stream      bool            `json:"stream,omitempty"`
}

// openaiMessage carries either plain string content or, when images are
// attached, a list of typed parts.
type openaiMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type openaiPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openaiImageURL `json:"image_url,omitempty"`
}

type openaiImageURL struct {
	URL string `json:"url"`
}

type openaiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (p *OpenAIProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	resp, err := postJSON(ctx, p.httpClient, p.Name(), p.baseURL+"/v1/chat/completions", p.headers(), p.buildRequest(req, false))
	if err != nil {
		return nil, err
	}

	var openaiResp openaiResponse
	if err := decodeJSON(resp, &openaiResp); err != nil {
		return nil, err
	}
	if len(openaiResp.Choices) == 0 {
		return &Response{}, nil
	}

	return &Response{
		Content:      openaiResp.Choices[0].Message.Content,
		FinishReason: openaiResp.Choices[0].FinishReason,
		Usage: Usage{
			InputTokens:  openaiResp.Usage.PromptTokens,
			OutputTokens: openaiResp.Usage.CompletionTokens,
		},
	}, nil
}

func (p *OpenAIProvider) GenerateStream(ctx context.Context, req *Request) (<-chan StreamChunk, error) {
	resp, err := postJSON(ctx, p.httpClient, p.Name(), p.baseURL+"/v1/chat/completions", p.headers(), p.buildRequest(req, true))
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
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
				FinishReason *string `json:"finish_reason"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(data), &event); err != nil || len(event.Choices) == 0 {
			return "", false
		}
		choice := event.Choices[0]
		return choice.Delta.Content, choice.FinishReason != nil
	}), nil
}

func (p *OpenAIProvider) buildRequest(req *Request, stream bool) *openaiRequest {
	model := req.Model
	if model == "" {
		model = p.model
	}

	messages := make([]openaiMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openaiMessage{Role: "system", Content: req.System})
	}

	for _, m := range req.Messages {
		if len(m.Images) == 0 {
			messages = append(messages, openaiMessage{Role: string(m.Role), Content: m.Content})
			continue
		}
		parts := make([]openaiPart, 0, len(m.Images)+1)
		if m.Content != "" {
			parts = append(parts, openaiPart{Type: "text", Text: m.Content})
		}
		for _, img := range m.Images {
			parts = append(parts, openaiPart{Type: "image_url", ImageURL: &openaiImageURL{URL: img.DataURL()}})
		}
		messages = append(messages, openaiMessage{Role: string(m.Role), Content: parts})
	}

	return &openaiRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      stream,
	}
}

func (p *OpenAIProvider) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + p.apiKey}
}
