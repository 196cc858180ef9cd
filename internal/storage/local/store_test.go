package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestNewStore_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	newDir := filepath.Join(tmpDir, "subdir", "nested")

	store, err := NewStore(newDir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if store.basePath != newDir {
		t.Errorf("basePath = %v, want %v", store.basePath, newDir)
	}

	info, err := os.Stat(newDir)
	if err != nil {
		t.Fatalf("directory not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("expected directory, got file")
	}
}

func TestStore_SetGet(t *testing.T) {
	ctx := context.Background()
	store, _ := NewStore(t.TempDir())

	if err := store.Set(ctx, "gandalf_hints", `{"c":{}}`); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, ok, err := store.Get(ctx, "gandalf_hints")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok || got != `{"c":{}}` {
		t.Errorf("Get() = %q, %v; want stored value", got, ok)
	}
}

func TestStore_Get_NotFound(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	_, ok, err := store.Get(context.Background(), "nonexistent")
	if err != nil {
		t.Errorf("Get() error = %v, want nil", err)
	}
	if ok {
		t.Error("Get() should report missing key")
	}
}

func TestStore_KeyEscaping(t *testing.T) {
	ctx := context.Background()
	store, _ := NewStore(t.TempDir())

	key := "gandalf_whiteboard_conv/../1 2"
	if err := store.Set(ctx, key, "v"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	entries, _ := os.ReadDir(store.basePath)
	if len(entries) != 1 {
		t.Fatalf("expected one file in store root, got %d", len(entries))
	}

	keys, err := store.Keys(ctx, "gandalf_whiteboard_")
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	if len(keys) != 1 || keys[0] != key {
		t.Errorf("Keys() = %v; want [%q]", keys, key)
	}
}

func TestStore_Remove(t *testing.T) {
	ctx := context.Background()
	store, _ := NewStore(t.TempDir())

	store.Set(ctx, "to-delete", "x")
	if err := store.Remove(ctx, "to-delete"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, ok, _ := store.Get(ctx, "to-delete"); ok {
		t.Error("Get() should report missing after Remove()")
	}
	if err := store.Remove(ctx, "to-delete"); err != nil {
		t.Errorf("Remove() of absent key error = %v, want nil", err)
	}
}

func TestStore_Keys_SkipsTempFiles(t *testing.T) {
	ctx := context.Background()
	store, _ := NewStore(t.TempDir())

	store.Set(ctx, "a", "1")
	os.WriteFile(filepath.Join(store.basePath, ".tmp-123.json"), []byte("x"), 0644)

	keys, err := store.Keys(ctx, "")
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	if len(keys) != 1 || keys[0] != "a" {
		t.Errorf("Keys() = %v; want [a]", keys)
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store, _ := NewStore(t.TempDir())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := fmt.Sprintf("item%d", id)
			if err := store.Set(ctx, key, fmt.Sprint(id)); err != nil {
				t.Errorf("Set(%s) error = %v", key, err)
			}
			if _, _, err := store.Get(ctx, key); err != nil {
				t.Errorf("Get(%s) error = %v", key, err)
			}
		}(i)
	}
	wg.Wait()

	keys, _ := store.Keys(ctx, "item")
	if len(keys) != 10 {
		t.Errorf("Keys() returned %d items, want 10", len(keys))
	}
}
