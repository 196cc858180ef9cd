package daemon

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/felixgeelhaar/gandalf/internal/domain"
	"github.com/felixgeelhaar/gandalf/internal/hints"
	"github.com/felixgeelhaar/gandalf/internal/mathtext"
	"github.com/felixgeelhaar/gandalf/internal/tutor"
)

const (
	invalidBodyMessage   = "Invalid request body"
	hintFailureMessage   = "Failed to generate hint. Please try again."
	chatFailureMessage   = "Internal server error"
	maxRequestBodyBytes  = 8 << 20
	maxRenderInputLength = 64 << 10
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	defaultProvider := ""
	if p, err := s.llmRegistry.Default(); err == nil {
		defaultProvider = p.Name()
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":             "running",
		"version":            s.version,
		"llm_providers":      s.llmRegistry.List(),
		"default_provider":   defaultProvider,
		"default_difficulty": s.cfg.Tutor.DefaultDifficulty,
		"default_language":   s.cfg.Tutor.DefaultLanguage,
		"rate_limit":         s.cfg.Daemon.RateLimitPerMinute,
	})
}

func (s *Server) handleListLevels(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.tutor.Levels())
}

// hintRequestBody keeps currentLevel a pointer so a missing level is
// distinguishable from level 0.
type hintRequestBody struct {
	CurrentProblem      string   `json:"currentProblem"`
	ConversationContext []string `json:"conversationContext"`
	CurrentLevel        *int     `json:"currentLevel"`
	Difficulty          string   `json:"difficulty"`
	Language            string   `json:"language"`
}

// toRequest validates the body in the order learners see the messages.
func (b hintRequestBody) toRequest(defaults tutorDefaults) (hints.Request, string) {
	if strings.TrimSpace(b.CurrentProblem) == "" {
		return hints.Request{}, "currentProblem is required"
	}
	if b.CurrentLevel == nil {
		return hints.Request{}, "currentLevel is required"
	}
	level, err := domain.ParseHintLevel(*b.CurrentLevel)
	if err != nil {
		return hints.Request{}, fmt.Sprintf("Invalid hint level. Must be between 0 and %d", int(domain.MaxHintLevel))
	}

	difficulty := defaults.difficulty
	if b.Difficulty != "" {
		difficulty = domain.Difficulty(b.Difficulty)
		if !difficulty.Valid() {
			return hints.Request{}, "Invalid difficulty level"
		}
	}
	language := defaults.language
	if b.Language != "" {
		language = domain.Language(b.Language)
		if !language.Valid() {
			return hints.Request{}, "Invalid language"
		}
	}

	ctxLines := b.ConversationContext
	if ctxLines == nil {
		ctxLines = []string{}
	}
	return hints.Request{
		Problem:    b.CurrentProblem,
		Context:    ctxLines,
		Level:      level,
		Difficulty: difficulty,
		Language:   language,
	}, ""
}

type tutorDefaults struct {
	difficulty domain.Difficulty
	language   domain.Language
}

func (s *Server) defaults() tutorDefaults {
	d := tutorDefaults{difficulty: s.cfg.Tutor.DefaultDifficulty, language: s.cfg.Tutor.DefaultLanguage}
	if !d.difficulty.Valid() {
		d.difficulty = domain.DefaultDifficulty
	}
	if !d.language.Valid() {
		d.language = domain.DefaultLanguage
	}
	return d
}

func (s *Server) handleGenerateHint(w http.ResponseWriter, r *http.Request) {
	var body hintRequestBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(&body); err != nil {
		s.jsonError(w, http.StatusBadRequest, invalidBodyMessage, err)
		return
	}

	req, msg := body.toRequest(s.defaults())
	if msg != "" {
		s.jsonError(w, http.StatusBadRequest, msg, nil)
		return
	}

	resp, err := s.tutor.GenerateHint(r.Context(), req)
	if err != nil {
		if r.Context().Err() != nil {
			s.logger.Debug("hint request cancelled by client", "correlation_id", GetCorrelationID(r.Context()))
			return
		}
		if status, message, ok := serviceStatus(err); ok {
			s.jsonError(w, status, message, nil)
			return
		}
		s.logger.Error("hint generation failed", "correlation_id", GetCorrelationID(r.Context()), "error", err)
		s.jsonError(w, http.StatusInternalServerError, hintFailureMessage, nil)
		return
	}

	s.jsonResponse(w, http.StatusOK, resp)
}

// chatRequestBody is a chat turn plus the transport choice.
type chatRequestBody struct {
	tutor.ChatRequest
	Stream bool `json:"stream"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var body chatRequestBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(&body); err != nil {
		s.jsonError(w, http.StatusBadRequest, invalidBodyMessage, err)
		return
	}
	if body.Messages == nil {
		s.jsonError(w, http.StatusBadRequest, invalidBodyMessage, nil)
		return
	}

	if body.Stream {
		s.handleChatStream(w, r, body.ChatRequest)
		return
	}

	resp, err := s.tutor.Chat(r.Context(), body.ChatRequest)
	if err != nil {
		s.chatFailed(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) chatFailed(w http.ResponseWriter, r *http.Request, err error) {
	if r.Context().Err() != nil {
		s.logger.Debug("chat request cancelled by client", "correlation_id", GetCorrelationID(r.Context()))
		return
	}
	if status, message, ok := serviceStatus(err); ok {
		s.jsonError(w, status, message, nil)
		return
	}
	s.logger.Error("chat failed", "correlation_id", GetCorrelationID(r.Context()), "error", err)
	s.jsonError(w, http.StatusInternalServerError, chatFailureMessage, nil)
}

// handleChatStream relays the tutor reply as server-sent events:
// content events carry {"content": ...}, then one done or error event.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request, req tutor.ChatRequest) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.jsonError(w, http.StatusInternalServerError, "streaming not supported", nil)
		return
	}

	stream, err := s.tutor.ChatStream(r.Context(), req)
	if err != nil {
		s.chatFailed(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for chunk := range stream {
		switch chunk.Type {
		case "content":
			s.writeEvent(w, "content", map[string]string{"content": chunk.Content})
		case "error":
			s.logger.Warn("chat stream error", "correlation_id", GetCorrelationID(r.Context()), "error", chunk.Error)
			s.writeEvent(w, "error", map[string]string{"error": chatFailureMessage})
		case "done":
			s.writeEvent(w, "done", map[string]string{})
		}
		flusher.Flush()
	}
}

func (s *Server) writeEvent(w http.ResponseWriter, event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("failed to encode event", "event", event, "error", err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
}

type renderRequest struct {
	Text string `json:"text"`
}

type renderedSegment struct {
	Type    mathtext.SegmentType `json:"type"`
	Content string               `json:"content"`
	Output  string               `json:"output"`
	Failed  bool                 `json:"failed,omitempty"`
	Error   string               `json:"error,omitempty"`
}

type renderResponse struct {
	HasLatex bool              `json:"hasLatex"`
	Segments []renderedSegment `json:"segments"`
	HTML     string            `json:"html"`
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(&req); err != nil {
		s.jsonError(w, http.StatusBadRequest, invalidBodyMessage, err)
		return
	}
	if len(req.Text) > maxRenderInputLength {
		s.jsonError(w, http.StatusBadRequest, "text too long", nil)
		return
	}

	rendered := s.renderer.Render(req.Text)
	resp := renderResponse{
		HasLatex: mathtext.HasLatex(req.Text),
		Segments: make([]renderedSegment, 0, len(rendered)),
		HTML:     s.renderer.HTML(req.Text),
	}
	for _, seg := range rendered {
		out := renderedSegment{
			Type:    seg.Type,
			Content: seg.Content,
			Output:  seg.Output,
			Failed:  seg.Failed(),
		}
		if seg.Err != nil {
			out.Error = seg.Err.Error()
		}
		resp.Segments = append(resp.Segments, out)
	}
	s.jsonResponse(w, http.StatusOK, resp)
}
