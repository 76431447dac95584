// Package store is the key-value persistence adapter behind every brdflow
// collection. Values are whole JSON documents; callers read a collection,
// mutate it, and write it back.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Store is a string-keyed persistent store.
type Store interface {
	// Get returns the raw value for key; ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set replaces the value for key.
	Set(ctx context.Context, key, value string) error
}

// Load decodes the JSON value stored under key into a T. Missing, empty,
// null or malformed values yield fallback; only backend failures are errors.
func Load[T any](ctx context.Context, s Store, key string, fallback T) (T, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		return fallback, fmt.Errorf("store: get %s: %w", key, err)
	}
	trimmed := bytes.TrimSpace([]byte(raw))
	if !ok || len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return fallback, nil
	}
	var v T
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return fallback, nil
	}
	return v, nil
}

// Save encodes v as JSON and stores it under key.
func Save(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", key, err)
	}
	if err := s.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("store: set %s: %w", key, err)
	}
	return nil
}
