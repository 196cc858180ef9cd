// Package hints implements progressive hint levels for a tutoring problem:
// persistence, an explicit view state machine, the engine driving the hint
// service, and an HTTP client for that service.
package hints

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/felixgeelhaar/gandalf/internal/domain"
	"github.com/felixgeelhaar/gandalf/internal/storage"
)

// StorageKey holds every hint state, keyed conversation -> problem.
const StorageKey = "gandalf_hints"

type document map[string]map[string]domain.HintState

// Repository persists hint states as one JSON document. Every mutation
// re-reads the latest document immediately before writing; across
// processes the last write wins.
type Repository struct {
	kv     storage.KV
	logger *slog.Logger
	mu     sync.Mutex
}

// NewRepository creates a repository over kv. A nil logger uses
// slog.Default().
func NewRepository(kv storage.KV, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{kv: kv, logger: logger}
}

func (r *Repository) read(ctx context.Context) (document, error) {
	raw, ok, err := r.kv.Get(ctx, StorageKey)
	if err != nil {
		return nil, fmt.Errorf("read hints: %w", err)
	}
	doc := document{}
	if !ok || raw == "" {
		return doc, nil
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		r.logger.Warn("discarding unreadable hint storage", "error", err)
		return document{}, nil
	}
	return doc, nil
}

func (r *Repository) write(ctx context.Context, doc document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode hints: %w", err)
	}
	if err := r.kv.Set(ctx, StorageKey, string(data)); err != nil {
		return fmt.Errorf("write hints: %w", err)
	}
	return nil
}

// update runs fn on the latest document and writes it back when fn
// reports a change.
func (r *Repository) update(ctx context.Context, fn func(doc document) bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.read(ctx)
	if err != nil {
		return err
	}
	if !fn(doc) {
		return nil
	}
	return r.write(ctx, doc)
}

func stateFor(doc document, conversationID, problemID string) domain.HintState {
	if byProblem, ok := doc[conversationID]; ok {
		if s, ok := byProblem[problemID]; ok {
			if s.HintHistory == nil {
				s.HintHistory = []domain.HintEntry{}
			}
			s.ConversationID, s.ProblemID = conversationID, problemID
			return s
		}
	}
	return domain.NewHintState(conversationID, problemID)
}

func put(doc document, s domain.HintState) {
	if doc[s.ConversationID] == nil {
		doc[s.ConversationID] = map[string]domain.HintState{}
	}
	doc[s.ConversationID][s.ProblemID] = s
}

// Load returns the stored state, or the default state with ok=false.
func (r *Repository) Load(ctx context.Context, conversationID, problemID string) (domain.HintState, bool, error) {
	doc, err := r.read(ctx)
	if err != nil {
		return domain.NewHintState(conversationID, problemID), false, err
	}
	_, ok := doc[conversationID][problemID]
	return stateFor(doc, conversationID, problemID), ok, nil
}

// CurrentLevel returns the stored level, defaulting to 0.
func (r *Repository) CurrentLevel(ctx context.Context, conversationID, problemID string) (domain.HintLevel, error) {
	s, _, err := r.Load(ctx, conversationID, problemID)
	return s.CurrentLevel, err
}

// IncrementLevel advances the stored level by one, clamped at
// MaxHintLevel, and returns the new level.
func (r *Repository) IncrementLevel(ctx context.Context, conversationID, problemID string) (domain.HintLevel, error) {
	var next domain.HintLevel
	err := r.update(ctx, func(doc document) bool {
		s := stateFor(doc, conversationID, problemID)
		next = s.CurrentLevel.Next()
		s.CurrentLevel = next
		put(doc, s)
		return true
	})
	return next, err
}

// Record appends a fetched hint and counts the request in a single write.
// The current level is raised to the entry's level, never lowered.
func (r *Repository) Record(ctx context.Context, conversationID, problemID string, entry domain.HintEntry) error {
	if !entry.Level.Valid() {
		return fmt.Errorf("%w: got %d", domain.ErrInvalidLevel, entry.Level)
	}
	return r.update(ctx, func(doc document) bool {
		s := stateFor(doc, conversationID, problemID)
		s.HintHistory = append(s.HintHistory, entry)
		s.HintsRequested++
		if entry.Level > s.CurrentLevel {
			s.CurrentLevel = entry.Level
		}
		put(doc, s)
		return true
	})
}

// ClearProblem removes a problem's state, and its conversation entry
// when no problems remain.
func (r *Repository) ClearProblem(ctx context.Context, conversationID, problemID string) error {
	return r.update(ctx, func(doc document) bool {
		byProblem, ok := doc[conversationID]
		if !ok {
			return false
		}
		if _, ok := byProblem[problemID]; !ok {
			return false
		}
		delete(byProblem, problemID)
		if len(byProblem) == 0 {
			delete(doc, conversationID)
		}
		return true
	})
}

// ConversationHints returns every problem state in a conversation,
// ordered by problem ID.
func (r *Repository) ConversationHints(ctx context.Context, conversationID string) ([]domain.HintState, error) {
	doc, err := r.read(ctx)
	if err != nil {
		return nil, err
	}
	byProblem := doc[conversationID]
	ids := make([]string, 0, len(byProblem))
	for id := range byProblem {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	states := make([]domain.HintState, 0, len(ids))
	for _, id := range ids {
		states = append(states, stateFor(doc, conversationID, id))
	}
	return states, nil
}

// DeleteConversation removes all hint state for a conversation.
func (r *Repository) DeleteConversation(ctx context.Context, conversationID string) error {
	return r.update(ctx, func(doc document) bool {
		if _, ok := doc[conversationID]; !ok {
			return false
		}
		delete(doc, conversationID)
		return true
	})
}

// ClearAll removes every stored hint.
func (r *Repository) ClearAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.kv.Remove(ctx, StorageKey); err != nil {
		return fmt.Errorf("clear hints: %w", err)
	}
	return nil
}
