package hints

import (
	"context"
	"errors"
	"testing"

	"github.com/felixgeelhaar/gandalf/internal/domain"
	"github.com/felixgeelhaar/gandalf/internal/storage"
	"github.com/felixgeelhaar/gandalf/internal/storage/memory"
)

func TestRepository_DefaultsWhenAbsent(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(memory.NewStore(), nil)

	s, ok, err := repo.Load(ctx, "conv", "prob")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if ok {
		t.Error("Load() ok = true for absent state")
	}
	if s.CurrentLevel != 0 || s.HintsRequested != 0 || len(s.HintHistory) != 0 {
		t.Errorf("Load() = %+v; want default state", s)
	}

	level, err := repo.CurrentLevel(ctx, "conv", "prob")
	if err != nil || level != 0 {
		t.Errorf("CurrentLevel() = %d, %v; want 0, nil", level, err)
	}
}

func TestRepository_IncrementLevelClamps(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(memory.NewStore(), nil)

	want := []domain.HintLevel{1, 2, 3, 4, 4, 4}
	for i, w := range want {
		got, err := repo.IncrementLevel(ctx, "conv", "prob")
		if err != nil {
			t.Fatalf("IncrementLevel() error = %v", err)
		}
		if got != w {
			t.Errorf("IncrementLevel() call %d = %d; want %d", i+1, got, w)
		}
	}
}

func TestRepository_Record(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(memory.NewStore(), nil)

	entries := []domain.HintEntry{
		{Level: 0, Timestamp: 1, Content: "a", Type: domain.HintTypeText},
		{Level: 0, Timestamp: 2, Content: "b", Type: domain.HintTypeText},
		{Level: 2, Timestamp: 3, Content: "c", Type: domain.HintTypeText},
	}
	for _, e := range entries {
		if err := repo.Record(ctx, "conv", "prob", e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	s, ok, err := repo.Load(ctx, "conv", "prob")
	if err != nil || !ok {
		t.Fatalf("Load() = %v, %v", ok, err)
	}
	if s.HintsRequested != 3 {
		t.Errorf("HintsRequested = %d; want 3", s.HintsRequested)
	}
	if len(s.HintHistory) != 3 {
		t.Errorf("len(HintHistory) = %d; want 3", len(s.HintHistory))
	}
	if s.CurrentLevel != 2 {
		t.Errorf("CurrentLevel = %d; want 2", s.CurrentLevel)
	}

	// A lower entry never lowers the level.
	if err := repo.Record(ctx, "conv", "prob", domain.HintEntry{Level: 1, Content: "d"}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if level, _ := repo.CurrentLevel(ctx, "conv", "prob"); level != 2 {
		t.Errorf("CurrentLevel() after lower entry = %d; want 2", level)
	}

	latest, ok := s.Latest(0)
	if !ok || latest.Content != "b" {
		t.Errorf("Latest(0) = %q, %v; want %q", latest.Content, ok, "b")
	}
}

func TestRepository_RecordRejectsInvalidLevel(t *testing.T) {
	repo := NewRepository(memory.NewStore(), nil)
	err := repo.Record(context.Background(), "conv", "prob", domain.HintEntry{Level: 5})
	if !errors.Is(err, domain.ErrInvalidLevel) {
		t.Errorf("Record() error = %v; want ErrInvalidLevel", err)
	}
}

func TestRepository_ClearProblem(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(memory.NewStore(), nil)

	for _, prob := range []string{"p1", "p2"} {
		if _, err := repo.IncrementLevel(ctx, "conv", prob); err != nil {
			t.Fatal(err)
		}
	}

	if err := repo.ClearProblem(ctx, "conv", "p1"); err != nil {
		t.Fatalf("ClearProblem() error = %v", err)
	}
	states, err := repo.ConversationHints(ctx, "conv")
	if err != nil {
		t.Fatal(err)
	}
	if len(states) != 1 || states[0].ProblemID != "p2" {
		t.Errorf("ConversationHints() = %+v; want only p2", states)
	}

	if err := repo.ClearProblem(ctx, "conv", "p2"); err != nil {
		t.Fatal(err)
	}
	doc, err := repo.read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := doc["conv"]; ok {
		t.Error("empty conversation entry should be dropped")
	}

	// Clearing an absent problem is a no-op.
	if err := repo.ClearProblem(ctx, "missing", "p"); err != nil {
		t.Errorf("ClearProblem() absent error = %v", err)
	}
}

func TestRepository_DeleteConversationAndClearAll(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewStore()
	repo := NewRepository(kv, nil)

	for _, conv := range []string{"c1", "c2"} {
		if _, err := repo.IncrementLevel(ctx, conv, "p"); err != nil {
			t.Fatal(err)
		}
	}
	if err := repo.DeleteConversation(ctx, "c1"); err != nil {
		t.Fatalf("DeleteConversation() error = %v", err)
	}
	if states, _ := repo.ConversationHints(ctx, "c1"); len(states) != 0 {
		t.Errorf("ConversationHints(c1) = %d states; want 0", len(states))
	}
	if level, _ := repo.CurrentLevel(ctx, "c2", "p"); level != 1 {
		t.Errorf("CurrentLevel(c2) = %d; want 1", level)
	}

	if err := repo.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll() error = %v", err)
	}
	if kv.Len() != 0 {
		t.Errorf("store has %d keys after ClearAll; want 0", kv.Len())
	}
}

func TestRepository_CorruptDocumentReadsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewStore()
	if err := kv.Set(ctx, StorageKey, "{not json"); err != nil {
		t.Fatal(err)
	}
	repo := NewRepository(kv, nil)

	level, err := repo.CurrentLevel(ctx, "conv", "prob")
	if err != nil || level != 0 {
		t.Errorf("CurrentLevel() = %d, %v; want 0, nil", level, err)
	}
	if _, err := repo.IncrementLevel(ctx, "conv", "prob"); err != nil {
		t.Errorf("IncrementLevel() over corrupt document error = %v", err)
	}
}

func TestRepository_ReadsLatestBeforeWrite(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewStore()
	a := NewRepository(kv, nil)
	b := NewRepository(kv, nil)

	if _, err := a.IncrementLevel(ctx, "conv", "p1"); err != nil {
		t.Fatal(err)
	}
	if _, err := b.IncrementLevel(ctx, "conv", "p2"); err != nil {
		t.Fatal(err)
	}
	states, err := a.ConversationHints(ctx, "conv")
	if err != nil {
		t.Fatal(err)
	}
	if len(states) != 2 {
		t.Errorf("ConversationHints() = %d states; want 2", len(states))
	}
}

func TestRepository_WriteFailureWrapsStorageError(t *testing.T) {
	repo := NewRepository(memory.NewStoreWithQuota(10), nil)
	_, err := repo.IncrementLevel(context.Background(), "conversation", "problem")
	if !errors.Is(err, storage.ErrQuotaExceeded) {
		t.Errorf("IncrementLevel() error = %v; want ErrQuotaExceeded", err)
	}
}
