// Package storage defines the key-value port that all client-side state
// is persisted through.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrQuotaExceeded is returned when a backend refuses a write for size.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	// ErrInvalidKey is returned for empty keys.
	ErrInvalidKey = errors.New("invalid storage key")
)

// KV is a string key-value store. Get reports absent keys with ok=false
// and a nil error. Values are opaque strings, usually JSON documents.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	// Keys lists stored keys starting with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// ValidateKey rejects keys no backend can store.
func ValidateKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	return nil
}
