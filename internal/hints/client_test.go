package hints

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/felixgeelhaar/gandalf/internal/domain"
)

func validRequest() Request {
	return Request{
		Problem:    "x + 1 = 2",
		Context:    []string{"user: x + 1 = 2"},
		Level:      1,
		Difficulty: domain.DifficultyMiddleSchool,
		Language:   domain.LanguageFrench,
	}
}

func TestClient_Hint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/hints" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["currentProblem"] != "x + 1 = 2" || body["currentLevel"] != float64(1) ||
			body["difficulty"] != "middle-school" || body["language"] != "fr" {
			t.Errorf("body = %v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"hint":"Que peux-tu soustraire ?","level":1,"hasNext":true}`))
	}))
	defer server.Close()

	c := NewClient(ClientConfig{BaseURL: server.URL})
	resp, err := c.Hint(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Hint() error = %v", err)
	}
	if resp.Hint != "Que peux-tu soustraire ?" || resp.Level != 1 || !resp.HasNext {
		t.Errorf("Hint() = %+v", resp)
	}
}

func TestClient_ValidatesBeforeCall(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()
	c := NewClient(ClientConfig{BaseURL: server.URL})

	tests := []struct {
		name   string
		mutate func(*Request)
		want   error
	}{
		{"empty problem", func(r *Request) { r.Problem = "" }, domain.ErrEmptyProblem},
		{"level too high", func(r *Request) { r.Level = 5 }, domain.ErrInvalidLevel},
		{"negative level", func(r *Request) { r.Level = -1 }, domain.ErrInvalidLevel},
		{"unknown difficulty", func(r *Request) { r.Difficulty = "graduate" }, domain.ErrInvalidDifficulty},
		{"unknown language", func(r *Request) { r.Language = "it" }, domain.ErrInvalidLanguage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			if _, err := c.Hint(context.Background(), req); !errors.Is(err, tt.want) {
				t.Errorf("Hint() error = %v; want %v", err, tt.want)
			}
		})
	}
	if called {
		t.Error("server called for invalid requests")
	}
}

func TestClient_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    error
		message string
	}{
		{"rate limited", 429, `{"error":"Rate limit exceeded. Please try again in a moment."}`, ErrRateLimited, "Rate limit exceeded. Please try again in a moment."},
		{"server error", 500, `{"error":"Failed to generate hint. Please try again."}`, ErrServiceUnavailable, "Failed to generate hint. Please try again."},
		{"no body", 502, ``, ErrServiceUnavailable, "Failed to fetch hint (502)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewClient(ClientConfig{BaseURL: server.URL}).Hint(context.Background(), validRequest())
			if !errors.Is(err, tt.want) {
				t.Errorf("Hint() error = %v; want %v", err, tt.want)
			}
			if got := Message(err); got != tt.message {
				t.Errorf("Message() = %q; want %q", got, tt.message)
			}
		})
	}
}

func TestClient_InvalidResponses(t *testing.T) {
	for _, body := range []string{
		`not json`,
		`{"hint":"x","level":1}`,
		`{"level":1,"hasNext":true}`,
		`{"hint":"x","level":9,"hasNext":false}`,
	} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		_, err := NewClient(ClientConfig{BaseURL: server.URL}).Hint(context.Background(), validRequest())
		server.Close()
		if !errors.Is(err, ErrInvalidResponse) {
			t.Errorf("Hint(%s) error = %v; want ErrInvalidResponse", body, err)
		}
	}
}

func TestClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient(ClientConfig{BaseURL: url}).Hint(context.Background(), validRequest())
	if err == nil {
		t.Fatal("Hint() should fail against a closed server")
	}
	if got := Message(err); got != "Could not reach the hint service. Please try again." {
		t.Errorf("Message() = %q", got)
	}
}
