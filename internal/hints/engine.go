package hints

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/gandalf/internal/domain"
)

var (
	ErrRequestInFlight = errors.New("hint request already in flight")
	ErrStaleResponse   = errors.New("hint response discarded: problem changed")
)

// MaxContextLines is how many trailing context lines are sent with a
// hint request.
const MaxContextLines = 5

// Problem identifies the question hints are requested for.
type Problem struct {
	ConversationID string
	ProblemID      string
	Text           string
	Context        []string
	Difficulty     domain.Difficulty
	Language       domain.Language
}

func (p Problem) sameIdentity(o Problem) bool {
	return p.ConversationID == o.ConversationID && p.ProblemID == o.ProblemID
}

// Engine drives hint requests for the active problem. It is safe for
// concurrent use; at most one fetch runs at a time.
type Engine struct {
	service      Service
	repo         *Repository
	logger       *slog.Logger
	now          func() time.Time
	newProblemID func() string

	mu              sync.Mutex
	problem         Problem
	view            View
	generation      uint64
	inFlight        bool
	lastUserMessage string
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock overrides the time source used for hint timestamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithProblemIDs overrides problem ID generation.
func WithProblemIDs(gen func() string) EngineOption {
	return func(e *Engine) { e.newProblemID = gen }
}

// NewEngine creates an engine for p, starting at its persisted level.
func NewEngine(ctx context.Context, service Service, repo *Repository, p Problem, opts ...EngineOption) *Engine {
	e := &Engine{
		service:      service,
		repo:         repo,
		logger:       slog.Default(),
		now:          time.Now,
		newProblemID: domain.NewProblemID,
		problem:      normalize(p),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.view = initialView(e.persistedLevel(ctx))
	return e
}

func normalize(p Problem) Problem {
	if p.Difficulty == "" {
		p.Difficulty = domain.DefaultDifficulty
	}
	if p.Language == "" {
		p.Language = domain.DefaultLanguage
	}
	return p
}

func (e *Engine) persistedLevel(ctx context.Context) domain.HintLevel {
	if e.problem.ConversationID == "" || e.problem.ProblemID == "" {
		return 0
	}
	level, err := e.repo.CurrentLevel(ctx, e.problem.ConversationID, e.problem.ProblemID)
	if err != nil {
		e.logger.Warn("failed to read hint level", "conversation_id", e.problem.ConversationID, "error", err)
		return 0
	}
	return level
}

// Snapshot returns the current view.
func (e *Engine) Snapshot() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view
}

// Problem returns the active problem.
func (e *Engine) Problem() Problem {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.problem
	p.Context = append([]string(nil), p.Context...)
	return p
}

type ticket struct {
	generation uint64
	problem    Problem
	request    Request
}

// RequestHint fetches, or re-fetches, the hint at the current level.
func (e *Engine) RequestHint(ctx context.Context) (View, error) {
	t, v, err := e.begin(ctx, false)
	if err != nil {
		return v, err
	}
	return e.fetch(ctx, t)
}

// RequestNextHint advances the persisted level, clamped at the maximum,
// and fetches the hint at the new level. The advance is kept when the
// fetch fails, so a retry with RequestHint fetches the advanced level.
func (e *Engine) RequestNextHint(ctx context.Context) (View, error) {
	t, v, err := e.begin(ctx, true)
	if err != nil {
		return v, err
	}
	return e.fetch(ctx, t)
}

func (e *Engine) begin(ctx context.Context, advance bool) (ticket, View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.inFlight {
		return ticket{}, e.view, ErrRequestInFlight
	}

	p := e.problem
	req := Request{
		Problem:    p.Text,
		Context:    lastN(p.Context, MaxContextLines),
		Level:      e.view.CurrentLevel,
		Difficulty: p.Difficulty,
		Language:   p.Language,
	}
	if err := req.Validate(); err != nil {
		return ticket{}, e.view, err
	}

	if advance {
		req.Level = e.advanceLocked(ctx)
	}

	e.inFlight = true
	e.view = e.view.beginLoading(req.Level)
	return ticket{generation: e.generation, problem: p, request: req}, e.view, nil
}

func (e *Engine) advanceLocked(ctx context.Context) domain.HintLevel {
	p := e.problem
	if p.ConversationID == "" || p.ProblemID == "" {
		return e.view.CurrentLevel.Next()
	}
	level, err := e.repo.IncrementLevel(ctx, p.ConversationID, p.ProblemID)
	if err != nil {
		e.logger.Warn("failed to persist hint level, continuing in memory",
			"conversation_id", p.ConversationID,
			"problem_id", p.ProblemID,
			"error", err,
		)
		return e.view.CurrentLevel.Next()
	}
	return level
}

func (e *Engine) fetch(ctx context.Context, t ticket) (View, error) {
	resp, err := e.call(ctx, t.request)

	e.mu.Lock()
	defer e.mu.Unlock()

	if t.generation != e.generation {
		e.logger.Debug("discarding stale hint response",
			"conversation_id", t.problem.ConversationID,
			"problem_id", t.problem.ProblemID,
		)
		return e.view, ErrStaleResponse
	}
	e.inFlight = false

	if err == nil {
		err = checkResponse(resp)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			e.view = e.view.cancelled()
			return e.view, err
		}
		e.logger.Warn("hint request failed", "level", int(t.request.Level), "error", err)
		e.view = e.view.failed(Message(err))
		return e.view, fmt.Errorf("request hint: %w", err)
	}

	if t.problem.ConversationID != "" && t.problem.ProblemID != "" {
		entry := domain.HintEntry{
			Level:     resp.Level,
			Timestamp: e.now().UnixMilli(),
			Content:   resp.Hint,
			Type:      domain.HintTypeText,
		}
		if err := e.repo.Record(context.WithoutCancel(ctx), t.problem.ConversationID, t.problem.ProblemID, entry); err != nil {
			e.logger.Warn("failed to persist hint, keeping it in memory",
				"conversation_id", t.problem.ConversationID,
				"problem_id", t.problem.ProblemID,
				"error", err,
			)
		}
	}

	e.view = e.view.loaded(resp.Level, resp.Hint, resp.HasNext)
	return e.view, nil
}

// call invokes the service, converting a panic into an error.
func (e *Engine) call(ctx context.Context, req Request) (resp *Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("hint service panicked", "panic", r)
			resp, err = nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, r)
		}
	}()
	return e.service.Hint(ctx, req)
}

func checkResponse(resp *Response) error {
	if resp == nil {
		return fmt.Errorf("%w: empty response", ErrInvalidResponse)
	}
	if strings.TrimSpace(resp.Hint) == "" {
		return fmt.Errorf("%w: empty hint", ErrInvalidResponse)
	}
	if !resp.Level.Valid() {
		return fmt.Errorf("%w: level %d", ErrInvalidResponse, resp.Level)
	}
	return nil
}

// Message converts a hint failure into text suitable for a learner.
func Message(err error) string {
	var se *ServiceError
	switch {
	case errors.Is(err, ErrRateLimited):
		if errors.As(err, &se) && se.Message != "" {
			return se.Message
		}
		return "Too many hint requests. Please wait a moment and try again."
	case errors.As(err, &se):
		if se.Message != "" {
			return se.Message
		}
		return fmt.Sprintf("Failed to fetch hint (%d)", se.StatusCode)
	case errors.Is(err, ErrInvalidResponse):
		return "The hint service returned an unexpected response. Please try again."
	case errors.Is(err, context.DeadlineExceeded):
		return "The hint took too long to arrive. Please try again."
	default:
		return "Could not reach the hint service. Please try again."
	}
}

// ViewPreviousHint shows the previously fetched level, if any.
func (e *Engine) ViewPreviousHint() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.view.HasPrevious() {
		e.view = e.view.navigate(e.view.ViewingLevel - 1)
	}
	return e.view
}

// ViewNextHint shows the next fetched level, if any. It never fetches.
func (e *Engine) ViewNextHint() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.view.HasNextInHistory() {
		e.view = e.view.navigate(e.view.ViewingLevel + 1)
	}
	return e.view
}

// ReopenHints redisplays the current level's hint, or the highest
// fetched one.
func (e *Engine) ReopenHints() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.view = e.view.reopened()
	return e.view
}

// CloseHint hides the panel without touching levels or history.
func (e *Engine) CloseHint() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.view = e.view.closed()
	return e.view
}

// ResetHints clears persisted and in-memory state for the active problem.
// A fetch in flight is discarded when it completes.
func (e *Engine) ResetHints(ctx context.Context) View {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked(ctx, e.problem)
	e.view = initialView(0)
	return e.view
}

func (e *Engine) resetLocked(ctx context.Context, p Problem) {
	e.generation++
	e.inFlight = false
	if p.ConversationID == "" || p.ProblemID == "" {
		return
	}
	if err := e.repo.ClearProblem(ctx, p.ConversationID, p.ProblemID); err != nil {
		e.logger.Warn("failed to clear hint state",
			"conversation_id", p.ConversationID,
			"problem_id", p.ProblemID,
			"error", err,
		)
	}
}

// SetProblem switches to p. A change of identity drops the in-memory view
// and reloads the persisted level; otherwise only text, context and
// preferences are refreshed.
func (e *Engine) SetProblem(ctx context.Context, p Problem) View {
	e.mu.Lock()
	defer e.mu.Unlock()

	p = normalize(p)
	if p.sameIdentity(e.problem) {
		e.problem = p
		return e.view
	}
	e.generation++
	e.inFlight = false
	e.problem = p
	e.view = initialView(e.persistedLevel(ctx))
	return e.view
}

// ObserveMessages follows a conversation. When its newest message is a
// user message not seen before, a new problem starts with a fresh problem
// ID. The old problem's hints are cleared only when it belongs to the same
// conversation.
func (e *Engine) ObserveMessages(ctx context.Context, conv domain.Conversation) View {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := e.problem
	p.ConversationID = conv.ID
	p.Text = ProblemText(conv)
	p.Context = ContextLines(conv, 10)

	last, ok := conv.LastMessage()
	if !ok || last.Role != domain.RoleUser || last.ID == e.lastUserMessage {
		if p.ConversationID != e.problem.ConversationID {
			e.generation++
			e.inFlight = false
			e.problem = p
			e.view = initialView(e.persistedLevel(ctx))
			return e.view
		}
		e.problem = p
		return e.view
	}

	e.lastUserMessage = last.ID
	if e.problem.ConversationID == conv.ID {
		e.resetLocked(ctx, e.problem)
	} else {
		// Another conversation's hints stay persisted.
		e.generation++
		e.inFlight = false
	}
	p.ProblemID = e.newProblemID()
	e.problem = p
	e.view = initialView(0)
	e.logger.Debug("new problem started", "conversation_id", p.ConversationID, "problem_id", p.ProblemID)
	return e.view
}

// ProblemText returns the first text part of the newest user message.
func ProblemText(conv domain.Conversation) string {
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		m := conv.Messages[i]
		if m.Role != domain.RoleUser {
			continue
		}
		for _, part := range m.Parts {
			if tp, ok := part.(domain.TextPart); ok {
				return tp.Text
			}
		}
		return ""
	}
	return ""
}

// ContextLines formats the last n messages as "role: text".
func ContextLines(conv domain.Conversation, n int) []string {
	msgs := conv.Messages
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, fmt.Sprintf("%s: %s", m.Role, m.Text()))
	}
	return lines
}

func lastN(lines []string, n int) []string {
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return append([]string{}, lines...)
}
