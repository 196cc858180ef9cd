package tutor

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrDaemonFailed wraps chat failures reported by the daemon.
var ErrDaemonFailed = errors.New("daemon chat failed")

// Client calls the daemon's chat endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientConfig holds configuration for the chat client
type ClientConfig struct {
	BaseURL string        // default: http://127.0.0.1:7437
	Timeout time.Duration // default: 120s, covers the whole stream
}

// NewClient creates a chat client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://127.0.0.1:7437"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) post(ctx context.Context, req ChatRequest, stream bool) (*http.Response, error) {
	if req.Messages == nil {
		return nil, ErrNoMessages
	}
	body, err := json.Marshal(struct {
		ChatRequest
		Stream bool `json:"stream"`
	}{req, stream})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		var errBody struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		_ = json.Unmarshal(data, &errBody)
		return nil, &ChatError{StatusCode: resp.StatusCode, Message: errBody.Error, Err: ErrDaemonFailed}
	}
	return resp, nil
}

// Chat returns the full reply.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	resp, err := c.post(ctx, req, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// ChatStream reads the daemon's server-sent events into chunks. The
// channel closes after a done or error chunk, or when the body ends.
func (c *Client) ChatStream(ctx context.Context, req ChatRequest) (<-chan StreamChunk, error) {
	resp, err := c.post(ctx, req, true)
	if err != nil {
		return nil, err
	}

	out := make(chan StreamChunk, 100)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		send := func(chunk StreamChunk) bool {
			select {
			case out <- chunk:
				return true
			case <-ctx.Done():
				return false
			}
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 64<<10), 1<<20)

		var event string
		var data strings.Builder
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "event:"):
				event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
				continue
			case strings.HasPrefix(line, "data:"):
				data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
				continue
			case line != "":
				continue
			}

			// Blank line dispatches the event.
			chunk, final := decodeEvent(event, data.String())
			event = ""
			data.Reset()
			if chunk.Type == "" {
				continue
			}
			if !send(chunk) || final {
				return
			}
		}

		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			send(StreamChunk{Type: "error", Error: fmt.Errorf("read stream: %w", err)})
			return
		}
		send(StreamChunk{Type: "done"})
	}()
	return out, nil
}

// decodeEvent maps one server-sent event to a chunk. Unknown events
// yield an empty chunk.
func decodeEvent(event, data string) (StreamChunk, bool) {
	switch event {
	case "content":
		var payload struct {
			Content string `json:"content"`
		}
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			return StreamChunk{Type: "error", Error: fmt.Errorf("decode event: %w", err)}, true
		}
		return StreamChunk{Type: "content", Content: payload.Content}, false
	case "error":
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal([]byte(data), &payload)
		return StreamChunk{Type: "error", Error: &ChatError{
			StatusCode: http.StatusInternalServerError,
			Message:    payload.Error,
			Err:        ErrDaemonFailed,
		}}, true
	case "done":
		return StreamChunk{Type: "done"}, true
	}
	return StreamChunk{}, false
}
