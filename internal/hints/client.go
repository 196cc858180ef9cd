package hints

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/felixgeelhaar/gandalf/internal/domain"
)

var (
	ErrRateLimited        = errors.New("hint service rate limited")
	ErrServiceUnavailable = errors.New("hint service failed")
	ErrInvalidResponse    = errors.New("invalid hint response")
)

// Request asks the hint service for a hint at a level.
type Request struct {
	Problem    string            `json:"currentProblem"`
	Context    []string          `json:"conversationContext"`
	Level      domain.HintLevel  `json:"currentLevel"`
	Difficulty domain.Difficulty `json:"difficulty"`
	Language   domain.Language   `json:"language"`
}

// Validate rejects requests before they reach the network.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Problem) == "" {
		return domain.ErrEmptyProblem
	}
	if !r.Level.Valid() {
		return fmt.Errorf("%w: got %d", domain.ErrInvalidLevel, r.Level)
	}
	if !r.Difficulty.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidDifficulty, r.Difficulty)
	}
	if !r.Language.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidLanguage, r.Language)
	}
	return nil
}

// Response is a generated hint.
type Response struct {
	Hint    string           `json:"hint"`
	Level   domain.HintLevel `json:"level"`
	HasNext bool             `json:"hasNext"`
}

// Service generates hints.
type Service interface {
	Hint(ctx context.Context, req Request) (*Response, error)
}

// ServiceError is a non-success reply from the hint service.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("hint service (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("hint service (status %d)", e.StatusCode)
}

// Is maps 429 to ErrRateLimited and everything else to
// ErrServiceUnavailable.
func (e *ServiceError) Is(target error) bool {
	if e.StatusCode == http.StatusTooManyRequests {
		return target == ErrRateLimited
	}
	return target == ErrServiceUnavailable
}

// Client calls the daemon's hint endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientConfig holds configuration for the hint client
type ClientConfig struct {
	BaseURL string        // default: http://127.0.0.1:7437
	Timeout time.Duration // default: 60s
}

// NewClient creates a hint service client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://127.0.0.1:7437"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) Hint(ctx context.Context, req Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Context == nil {
		req.Context = []string{}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/hints", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errBody struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		_ = json.Unmarshal(data, &errBody)
		return nil, &ServiceError{StatusCode: resp.StatusCode, Message: errBody.Error}
	}

	var raw struct {
		Hint    *string `json:"hint"`
		Level   *int    `json:"level"`
		HasNext *bool   `json:"hasNext"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if raw.Hint == nil || raw.Level == nil || raw.HasNext == nil {
		return nil, fmt.Errorf("%w: missing fields", ErrInvalidResponse)
	}
	level, err := domain.ParseHintLevel(*raw.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	return &Response{Hint: *raw.Hint, Level: level, HasNext: *raw.HasNext}, nil
}

var _ Service = (*Client)(nil)
