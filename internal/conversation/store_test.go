package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/gandalf/internal/domain"
	"github.com/felixgeelhaar/gandalf/internal/storage/memory"
)

func newTestStore(t *testing.T, opts ...Option) (*Store, *memory.Store) {
	t.Helper()
	kv := memory.NewStore()
	var tick int64
	clock := func() time.Time {
		tick++
		return time.UnixMilli(1700000000000 + tick)
	}
	return NewStore(kv, append([]Option{WithClock(clock)}, opts...)...), kv
}

func userMsg(id, text string) domain.Message {
	return domain.NewTextMessage(id, domain.RoleUser, text)
}

func TestStore_SaveLoadList(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	a := s.New()
	a.Messages = []domain.Message{userMsg("m1", "What is 2 plus 2?")}
	a, err := s.Save(ctx, a)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if a.Title != "What is 2 plus 2?" {
		t.Errorf("Title = %q", a.Title)
	}

	b := s.New()
	if _, err := s.Save(ctx, b); err != nil {
		t.Fatal(err)
	}

	list, err := s.ListMetadata(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != b.ID || list[1].ID != a.ID {
		t.Fatalf("ListMetadata() = %+v; want b then a", list)
	}
	if list[1].MessageCount != 1 || list[0].Title != DefaultTitle {
		t.Errorf("metadata = %+v", list)
	}

	// Updating a moves it to the front.
	a, err = s.AppendMessage(ctx, a.ID, domain.NewTextMessage("", domain.RoleAssistant, "What does plus mean?"))
	if err != nil {
		t.Fatal(err)
	}
	if a.Messages[1].ID == "" || a.Messages[1].CreatedAt == 0 {
		t.Error("AppendMessage() should assign ID and CreatedAt")
	}
	convs, _ := s.List(ctx)
	if convs[0].ID != a.ID {
		t.Errorf("List()[0] = %s; want %s", convs[0].ID, a.ID)
	}

	got, err := s.Load(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Messages) != 2 || got.Messages[1].Text() != "What does plus mean?" {
		t.Errorf("Load() messages = %+v", got.Messages)
	}
}

func TestStore_ConcurrentAppendsKeepEveryMessage(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	conv, err := s.Save(ctx, s.New())
	if err != nil {
		t.Fatal(err)
	}

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := s.AppendMessage(ctx, conv.ID, userMsg(fmt.Sprint("m", i), fmt.Sprint("question ", i))); err != nil {
				t.Errorf("AppendMessage(%d) error = %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	got, err := s.Load(ctx, conv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Messages) != n {
		t.Errorf("len(Messages) = %d; want %d", len(got.Messages), n)
	}
	if _, err := s.AppendMessage(ctx, "missing", userMsg("x", "hi")); !errors.Is(err, domain.ErrConversationNotFound) {
		t.Errorf("AppendMessage(missing) error = %v; want ErrConversationNotFound", err)
	}
}

func TestStore_LoadMissing(t *testing.T) {
	s, _ := newTestStore(t)
	if _, err := s.Load(context.Background(), "conv_missing"); !errors.Is(err, domain.ErrConversationNotFound) {
		t.Errorf("Load() error = %v; want ErrConversationNotFound", err)
	}
	if _, err := s.Save(context.Background(), domain.Conversation{}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Save() without ID error = %v; want ErrInvalidInput", err)
	}
}

func TestStore_DeleteRunsCleanersAndClearsCurrent(t *testing.T) {
	ctx := context.Background()
	var cleaned []string
	cleaner := func(_ context.Context, id string) error {
		cleaned = append(cleaned, id)
		return nil
	}
	failing := func(context.Context, string) error { return errors.New("disk gone") }
	s, _ := newTestStore(t, WithCleaners(cleaner, failing))

	c := s.New()
	if _, err := s.Save(ctx, c); err != nil {
		t.Fatal(err)
	}
	if err := s.SetCurrent(ctx, c.ID); err != nil {
		t.Fatal(err)
	}

	if err := s.Delete(ctx, c.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok, _ := s.Current(ctx); ok {
		t.Error("current pointer should be cleared")
	}
	if len(cleaned) != 1 || cleaned[0] != c.ID {
		t.Errorf("cleaned = %v", cleaned)
	}
	if list, _ := s.List(ctx); len(list) != 0 {
		t.Errorf("List() = %d conversations; want 0", len(list))
	}
}

func TestStore_DeleteKeepsOtherCurrent(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	a, b := s.New(), s.New()
	_, _ = s.Save(ctx, a)
	_, _ = s.Save(ctx, b)
	_ = s.SetCurrent(ctx, b.ID)

	if err := s.Delete(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	if id, ok, _ := s.Current(ctx); !ok || id != b.ID {
		t.Errorf("Current() = %q, %v; want %q", id, ok, b.ID)
	}
}

func TestStore_ClearAll(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	c := s.New()
	_, _ = s.Save(ctx, c)
	_ = s.SetCurrent(ctx, c.ID)
	_ = s.SetLanguage(ctx, domain.LanguageGerman)

	if err := s.ClearAll(ctx); err != nil {
		t.Fatal(err)
	}
	if list, _ := s.List(ctx); len(list) != 0 {
		t.Error("ClearAll() left conversations")
	}
	if _, ok, _ := s.Current(ctx); ok {
		t.Error("ClearAll() left the current pointer")
	}
	if s.Language(ctx) != domain.LanguageGerman {
		t.Error("ClearAll() should keep preferences")
	}
}

func TestStore_CorruptListReadsEmpty(t *testing.T) {
	ctx := context.Background()
	s, kv := newTestStore(t)
	_ = kv.Set(ctx, ConversationsKey, "[{")
	list, err := s.List(ctx)
	if err != nil || len(list) != 0 {
		t.Errorf("List() = %v, %v; want empty", list, err)
	}
}

func TestStore_Preferences(t *testing.T) {
	ctx := context.Background()
	s, kv := newTestStore(t)

	if s.Difficulty(ctx) != domain.DefaultDifficulty || s.Language(ctx) != domain.DefaultLanguage {
		t.Error("unset preferences should use defaults")
	}
	if err := s.SetDifficulty(ctx, domain.DifficultyCollege); err != nil {
		t.Fatal(err)
	}
	if err := s.SetLanguage(ctx, domain.LanguageJapanese); err != nil {
		t.Fatal(err)
	}
	if s.Difficulty(ctx) != domain.DifficultyCollege || s.Language(ctx) != domain.LanguageJapanese {
		t.Error("preferences not persisted")
	}

	if err := s.SetDifficulty(ctx, "kindergarten"); !errors.Is(err, domain.ErrInvalidDifficulty) {
		t.Errorf("SetDifficulty() error = %v", err)
	}
	if err := s.SetLanguage(ctx, "klingon"); !errors.Is(err, domain.ErrInvalidLanguage) {
		t.Errorf("SetLanguage() error = %v", err)
	}

	_ = kv.Set(ctx, LanguageKey, "xx")
	if s.Language(ctx) != domain.DefaultLanguage {
		t.Error("unrecognized stored language should fall back to default")
	}
}

func TestStore_ConfiguredDefaults(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, WithDefaults(domain.DifficultyCollege, domain.LanguageGerman))

	if s.Difficulty(ctx) != domain.DifficultyCollege || s.Language(ctx) != domain.LanguageGerman {
		t.Errorf("defaults = %s, %s; want configured", s.Difficulty(ctx), s.Language(ctx))
	}
	if err := s.SetLanguage(ctx, domain.LanguageFrench); err != nil {
		t.Fatal(err)
	}
	if s.Language(ctx) != domain.LanguageFrench {
		t.Error("stored preference should win over the configured default")
	}

	s2, _ := newTestStore(t, WithDefaults("graduate", "it"))
	if s2.Difficulty(ctx) != domain.DefaultDifficulty || s2.Language(ctx) != domain.DefaultLanguage {
		t.Error("invalid configured defaults should be ignored")
	}
}

func TestTitle(t *testing.T) {
	long := strings.Repeat("a", 60)
	tests := []struct {
		name     string
		messages []domain.Message
		want     string
	}{
		{"no messages", nil, DefaultTitle},
		{"assistant only", []domain.Message{domain.NewTextMessage("1", domain.RoleAssistant, "hi")}, DefaultTitle},
		{"short", []domain.Message{userMsg("1", "Solve x")}, "Solve x"},
		{"exactly fifty", []domain.Message{userMsg("1", strings.Repeat("b", 50))}, strings.Repeat("b", 50)},
		{"long", []domain.Message{userMsg("1", long)}, strings.Repeat("a", 47) + "..."},
		{"image only", []domain.Message{{ID: "1", Role: domain.RoleUser, Parts: []domain.Part{domain.FilePart{MediaType: "image/png"}}}}, DefaultTitle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Title(tt.messages); got != tt.want {
				t.Errorf("Title() = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestRecentContextAndMarkdown(t *testing.T) {
	conv := domain.Conversation{Title: "Fractions", Messages: []domain.Message{
		userMsg("1", "What is $\\frac{1}{2} + \\frac{1}{4}$?"),
		domain.NewTextMessage("2", domain.RoleAssistant, "What do the denominators tell us?"),
		{ID: "3", Role: domain.RoleUser, Parts: []domain.Part{domain.FilePart{MediaType: "image/png", Filename: "work.png"}}},
	}}

	ctx := RecentContext(conv, 2)
	if len(ctx) != 2 || ctx[0] != "What do the denominators tell us?" {
		t.Errorf("RecentContext() = %q", ctx)
	}

	md := Markdown(conv)
	for _, want := range []string{"# Fractions", "**Student:**", "**Tutor:**", "_[attached work.png]_"} {
		if !strings.Contains(md, want) {
			t.Errorf("Markdown() missing %q", want)
		}
	}
}
