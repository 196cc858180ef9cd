package llm

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrRateLimited is returned when a request is refused before reaching the
// provider, or when the provider answers 429.
var ErrRateLimited = errors.New("rate limit exceeded")

// StatusError is a non-success HTTP reply from a provider API.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Body)
}

// Is matches ErrRateLimited for 429 replies.
func (e *StatusError) Is(target error) bool {
	return target == ErrRateLimited && e.StatusCode == http.StatusTooManyRequests
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// IsRateLimited reports whether err means the caller should wait.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

func readStatusError(provider string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &StatusError{Provider: provider, StatusCode: resp.StatusCode, Body: string(body)}
}
