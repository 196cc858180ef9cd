// Package conversation persists chat threads and learner preferences.
package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/felixgeelhaar/gandalf/internal/domain"
	"github.com/felixgeelhaar/gandalf/internal/storage"
)

const (
	ConversationsKey = "gandalf-conversations"
	CurrentKey       = "gandalf-current-conversation"
	DifficultyKey    = "gandalf-difficulty-preference"
	LanguageKey      = "gandalf-language-preference"
)

// Cleaner removes state owned by a conversation when it is deleted.
type Cleaner func(ctx context.Context, conversationID string) error

// Store keeps all conversations in one JSON list, most recently updated
// first.
type Store struct {
	kv       storage.KV
	logger   *slog.Logger
	now      func() time.Time
	cleaners []Cleaner
	mu       sync.Mutex

	defaultDifficulty domain.Difficulty
	defaultLanguage   domain.Language
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCleaners registers cleanup run on Delete, such as hint and
// whiteboard removal.
func WithCleaners(cleaners ...Cleaner) Option {
	return func(s *Store) { s.cleaners = append(s.cleaners, cleaners...) }
}

// WithDefaults sets the preferences returned when none are stored.
// Invalid values are ignored.
func WithDefaults(d domain.Difficulty, l domain.Language) Option {
	return func(s *Store) {
		if d.Valid() {
			s.defaultDifficulty = d
		}
		if l.Valid() {
			s.defaultLanguage = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a conversation store over kv.
func NewStore(kv storage.KV, opts ...Option) *Store {
	s := &Store{
		kv:                kv,
		logger:            slog.Default(),
		now:               time.Now,
		defaultDifficulty: domain.DefaultDifficulty,
		defaultLanguage:   domain.DefaultLanguage,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) readAll(ctx context.Context) ([]domain.Conversation, error) {
	raw, ok, err := s.kv.Get(ctx, ConversationsKey)
	if err != nil {
		return nil, fmt.Errorf("read conversations: %w", err)
	}
	if !ok || raw == "" {
		return []domain.Conversation{}, nil
	}
	var convs []domain.Conversation
	if err := json.Unmarshal([]byte(raw), &convs); err != nil {
		s.logger.Warn("discarding unreadable conversations", "error", err)
		return []domain.Conversation{}, nil
	}
	return convs, nil
}

func (s *Store) writeAll(ctx context.Context, convs []domain.Conversation) error {
	data, err := json.Marshal(convs)
	if err != nil {
		return fmt.Errorf("encode conversations: %w", err)
	}
	if err := s.kv.Set(ctx, ConversationsKey, string(data)); err != nil {
		return fmt.Errorf("write conversations: %w", err)
	}
	return nil
}

// New returns an empty conversation with fresh identity and timestamps.
// It is not stored until Save.
func (s *Store) New() domain.Conversation {
	now := s.now().UnixMilli()
	return domain.Conversation{
		ID:        domain.NewConversationID(),
		Title:     DefaultTitle,
		Messages:  []domain.Message{},
		Timestamp: now,
		UpdatedAt: now,
	}
}

// Save inserts or replaces conv, stamping UpdatedAt and deriving a title
// from the first user message.
func (s *Store) Save(ctx context.Context, conv domain.Conversation) (domain.Conversation, error) {
	if conv.ID == "" {
		return conv, fmt.Errorf("%w: conversation ID is required", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	convs, err := s.readAll(ctx)
	if err != nil {
		return conv, err
	}
	return s.upsertLocked(ctx, convs, conv)
}

// AppendMessage adds msg to a stored conversation and saves it. The
// conversation is read and written under the store lock.
func (s *Store) AppendMessage(ctx context.Context, conversationID string, msg domain.Message) (domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	convs, err := s.readAll(ctx)
	if err != nil {
		return domain.Conversation{}, err
	}
	i := slices.IndexFunc(convs, func(c domain.Conversation) bool { return c.ID == conversationID })
	if i < 0 {
		return domain.Conversation{}, fmt.Errorf("%w: %s", domain.ErrConversationNotFound, conversationID)
	}

	if msg.ID == "" {
		msg.ID = domain.NewMessageID()
	}
	if msg.CreatedAt == 0 {
		msg.CreatedAt = s.now().UnixMilli()
	}
	conv := convs[i]
	conv.Messages = append(conv.Messages, msg)
	return s.upsertLocked(ctx, convs, conv)
}

// upsertLocked stamps conv, replaces or adds it in convs and writes the
// list back. The caller holds s.mu.
func (s *Store) upsertLocked(ctx context.Context, convs []domain.Conversation, conv domain.Conversation) (domain.Conversation, error) {
	now := s.now().UnixMilli()
	if conv.Timestamp == 0 {
		conv.Timestamp = now
	}
	conv.UpdatedAt = now
	conv.Title = Title(conv.Messages)
	if conv.Messages == nil {
		conv.Messages = []domain.Message{}
	}

	replaced := false
	for i := range convs {
		if convs[i].ID == conv.ID {
			convs[i] = conv
			replaced = true
			break
		}
	}
	if !replaced {
		convs = append(convs, conv)
	}
	sort.SliceStable(convs, func(i, j int) bool { return convs[i].UpdatedAt > convs[j].UpdatedAt })

	return conv, s.writeAll(ctx, convs)
}

// Load returns a conversation by ID.
func (s *Store) Load(ctx context.Context, id string) (domain.Conversation, error) {
	convs, err := s.readAll(ctx)
	if err != nil {
		return domain.Conversation{}, err
	}
	for _, c := range convs {
		if c.ID == id {
			return c, nil
		}
	}
	return domain.Conversation{}, fmt.Errorf("%w: %s", domain.ErrConversationNotFound, id)
}

// List returns all conversations, most recently updated first.
func (s *Store) List(ctx context.Context) ([]domain.Conversation, error) {
	return s.readAll(ctx)
}

// ListMetadata returns listing summaries, most recently updated first.
func (s *Store) ListMetadata(ctx context.Context) ([]domain.ConversationMetadata, error) {
	convs, err := s.readAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ConversationMetadata, 0, len(convs))
	for _, c := range convs {
		out = append(out, c.Metadata())
	}
	return out, nil
}

// Delete removes a conversation, its owned state, and the current pointer
// when it points at the conversation.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	convs, err := s.readAll(ctx)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	kept := convs[:0]
	for _, c := range convs {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	err = s.writeAll(ctx, kept)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	current, ok, err := s.Current(ctx)
	if err != nil {
		return err
	}
	if ok && current == id {
		if err := s.ClearCurrent(ctx); err != nil {
			return err
		}
	}

	for _, clean := range s.cleaners {
		if err := clean(ctx, id); err != nil {
			s.logger.Warn("failed to clean conversation state", "conversation_id", id, "error", err)
		}
	}
	return nil
}

// SetCurrent records the active conversation.
func (s *Store) SetCurrent(ctx context.Context, id string) error {
	if err := s.kv.Set(ctx, CurrentKey, id); err != nil {
		return fmt.Errorf("set current conversation: %w", err)
	}
	return nil
}

// Current returns the active conversation ID.
func (s *Store) Current(ctx context.Context) (string, bool, error) {
	id, ok, err := s.kv.Get(ctx, CurrentKey)
	if err != nil {
		return "", false, fmt.Errorf("get current conversation: %w", err)
	}
	return id, ok && id != "", nil
}

// ClearCurrent forgets the active conversation.
func (s *Store) ClearCurrent(ctx context.Context) error {
	if err := s.kv.Remove(ctx, CurrentKey); err != nil {
		return fmt.Errorf("clear current conversation: %w", err)
	}
	return nil
}

// ClearAll removes every conversation and the current pointer.
// Preferences are kept.
func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Remove(ctx, ConversationsKey); err != nil {
		return fmt.Errorf("clear conversations: %w", err)
	}
	return s.ClearCurrent(ctx)
}

// SetDifficulty stores the difficulty preference.
func (s *Store) SetDifficulty(ctx context.Context, d domain.Difficulty) error {
	if !d.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidDifficulty, d)
	}
	if err := s.kv.Set(ctx, DifficultyKey, string(d)); err != nil {
		return fmt.Errorf("save difficulty: %w", err)
	}
	return nil
}

// Difficulty returns the stored preference, or the store default when
// unset or unrecognized.
func (s *Store) Difficulty(ctx context.Context) domain.Difficulty {
	raw, ok, err := s.kv.Get(ctx, DifficultyKey)
	if err != nil {
		s.logger.Warn("failed to read difficulty preference", "error", err)
		return s.defaultDifficulty
	}
	if d := domain.Difficulty(raw); ok && d.Valid() {
		return d
	}
	return s.defaultDifficulty
}

// SetLanguage stores the language preference.
func (s *Store) SetLanguage(ctx context.Context, l domain.Language) error {
	if !l.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidLanguage, l)
	}
	if err := s.kv.Set(ctx, LanguageKey, string(l)); err != nil {
		return fmt.Errorf("save language: %w", err)
	}
	return nil
}

// Language returns the stored preference, or the store default when
// unset or unrecognized.
func (s *Store) Language(ctx context.Context) domain.Language {
	raw, ok, err := s.kv.Get(ctx, LanguageKey)
	if err != nil {
		s.logger.Warn("failed to read language preference", "error", err)
		return s.defaultLanguage
	}
	if l := domain.Language(raw); ok && l.Valid() {
		return l
	}
	return s.defaultLanguage
}
