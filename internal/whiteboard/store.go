package whiteboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/felixgeelhaar/gandalf/internal/domain"
	"github.com/felixgeelhaar/gandalf/internal/storage"
)

const (
	KeyPrefix = "gandalf_whiteboard_"
	IndexKey  = "gandalf_whiteboard_index"
)

var (
	ErrInvalidConversation = errors.New("invalid conversation ID")
	ErrInvalidData         = errors.New("invalid whiteboard data")
)

// Store keeps one whiteboard per conversation plus an index of them.
type Store struct {
	kv     storage.KV
	logger *slog.Logger
	now    func() time.Time
	mu     sync.Mutex
}

// NewStore creates a whiteboard store over kv. A nil logger uses
// slog.Default().
func NewStore(kv storage.KV, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{kv: kv, logger: logger, now: time.Now}
}

func key(conversationID string) string {
	return KeyPrefix + conversationID
}

// unsaved reports IDs that never have a stored whiteboard.
func unsaved(conversationID string) bool {
	return conversationID == "" || conversationID == "new"
}

// Save stores the drawing and refreshes the index.
func (s *Store) Save(ctx context.Context, conversationID string, elements []domain.WhiteboardElement, appState map[string]any) (*domain.Whiteboard, error) {
	if unsaved(conversationID) {
		return nil, ErrInvalidConversation
	}
	if elements == nil {
		elements = []domain.WhiteboardElement{}
	}
	wb := &domain.Whiteboard{Elements: elements, AppState: appState, Timestamp: s.now().UnixMilli()}

	data, err := json.Marshal(wb)
	if err != nil {
		return nil, fmt.Errorf("encode whiteboard: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Set(ctx, key(conversationID), string(data)); err != nil {
		return nil, fmt.Errorf("save whiteboard: %w", err)
	}
	s.updateIndex(ctx, func(index []domain.WhiteboardIndexEntry) []domain.WhiteboardIndexEntry {
		entry := domain.WhiteboardIndexEntry{
			ConversationID: conversationID,
			Timestamp:      wb.Timestamp,
			ElementCount:   len(elements),
		}
		for i := range index {
			if index[i].ConversationID == conversationID {
				index[i] = entry
				return index
			}
		}
		return append(index, entry)
	})
	return wb, nil
}

// Load returns the stored drawing, or nil when none exists.
func (s *Store) Load(ctx context.Context, conversationID string) (*domain.Whiteboard, error) {
	if unsaved(conversationID) {
		return nil, nil
	}
	raw, ok, err := s.kv.Get(ctx, key(conversationID))
	if err != nil {
		return nil, fmt.Errorf("load whiteboard: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var probe struct {
		Elements json.RawMessage `json:"elements"`
	}
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if len(probe.Elements) == 0 || probe.Elements[0] != '[' {
		return nil, fmt.Errorf("%w: missing elements", ErrInvalidData)
	}

	var wb domain.Whiteboard
	if err := json.Unmarshal([]byte(raw), &wb); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return &wb, nil
}

// Clear removes a conversation's drawing.
func (s *Store) Clear(ctx context.Context, conversationID string) error {
	if unsaved(conversationID) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Remove(ctx, key(conversationID)); err != nil {
		return fmt.Errorf("clear whiteboard: %w", err)
	}
	s.updateIndex(ctx, func(index []domain.WhiteboardIndexEntry) []domain.WhiteboardIndexEntry {
		out := index[:0]
		for _, e := range index {
			if e.ConversationID != conversationID {
				out = append(out, e)
			}
		}
		return out
	})
	return nil
}

// List returns the index, most recently saved first. An unreadable index
// reads as empty.
func (s *Store) List(ctx context.Context) ([]domain.WhiteboardIndexEntry, error) {
	raw, ok, err := s.kv.Get(ctx, IndexKey)
	if err != nil {
		return nil, fmt.Errorf("read whiteboard index: %w", err)
	}
	if !ok || raw == "" {
		return []domain.WhiteboardIndexEntry{}, nil
	}
	var index []domain.WhiteboardIndexEntry
	if err := json.Unmarshal([]byte(raw), &index); err != nil {
		s.logger.Warn("discarding unreadable whiteboard index", "error", err)
		return []domain.WhiteboardIndexEntry{}, nil
	}
	return index, nil
}

// updateIndex rewrites the index. Failures are logged; the drawing itself
// is already stored.
func (s *Store) updateIndex(ctx context.Context, fn func([]domain.WhiteboardIndexEntry) []domain.WhiteboardIndexEntry) {
	index, err := s.List(ctx)
	if err != nil {
		s.logger.Warn("failed to read whiteboard index", "error", err)
		return
	}
	index = fn(index)
	sort.SliceStable(index, func(i, j int) bool { return index[i].Timestamp > index[j].Timestamp })

	data, err := json.Marshal(index)
	if err != nil {
		s.logger.Warn("failed to encode whiteboard index", "error", err)
		return
	}
	if err := s.kv.Set(ctx, IndexKey, string(data)); err != nil {
		s.logger.Warn("failed to update whiteboard index", "error", err)
	}
}

// ClearAll removes every indexed drawing and the index, returning how many
// drawings were removed.
func (s *Store) ClearAll(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	cleared := 0
	for _, e := range index {
		if err := s.kv.Remove(ctx, key(e.ConversationID)); err != nil {
			return cleared, fmt.Errorf("clear whiteboard %s: %w", e.ConversationID, err)
		}
		cleared++
	}
	if err := s.kv.Remove(ctx, IndexKey); err != nil {
		return cleared, fmt.Errorf("clear whiteboard index: %w", err)
	}
	return cleared, nil
}

// Size returns the approximate stored size of all indexed drawings in bytes.
func (s *Store) Size(ctx context.Context) (int, error) {
	index, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, e := range index {
		raw, ok, err := s.kv.Get(ctx, key(e.ConversationID))
		if err != nil {
			return 0, fmt.Errorf("read whiteboard %s: %w", e.ConversationID, err)
		}
		if ok {
			total += len(raw)
		}
	}
	return total, nil
}
