// Package memory provides an in-process storage backend.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/felixgeelhaar/gandalf/internal/storage"
)

// Store keeps values in a map. A positive quota caps the total size of
// keys plus values in bytes.
type Store struct {
	mu    sync.RWMutex
	data  map[string]string
	quota int
	used  int
}

// NewStore creates an unbounded store.
func NewStore() *Store {
	return &Store{data: make(map[string]string)}
}

// NewStoreWithQuota creates a store that rejects writes past quota bytes.
func NewStoreWithQuota(quota int) *Store {
	return &Store{data: make(map[string]string), quota: quota}
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	used := s.used
	if old, ok := s.data[key]; ok {
		used -= len(key) + len(old)
	}
	used += len(key) + len(value)
	if s.quota > 0 && used > s.quota {
		return fmt.Errorf("%w: %d of %d bytes", storage.ErrQuotaExceeded, used, s.quota)
	}
	s.data[key] = value
	s.used = used
	return nil
}

func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.data[key]; ok {
		s.used -= len(key) + len(old)
		delete(s.data, key)
	}
	return nil
}

func (s *Store) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

var _ storage.KV = (*Store)(nil)
