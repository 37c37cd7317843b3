// Package memory provides a process-local persistence.Store used by tests and
// by the "memory" store driver.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/example/shikkhajar/internal/persistence"
)

// Storage keeps collection documents in a map guarded by a mutex.
type Storage struct {
	mu     sync.RWMutex
	values map[persistence.Key][]byte
}

// Open returns an empty Storage.
func Open() *Storage {
	return &Storage{values: make(map[persistence.Key][]byte)}
}

// Close releases resources held by the storage. No-op for the in-memory implementation.
func (s *Storage) Close() error {
	return nil
}

// Migrate initialises the storage. No-op for the in-memory implementation.
func (s *Storage) Migrate(context.Context) error {
	return nil
}

// Get returns a copy of the stored value.
func (s *Storage) Get(ctx context.Context, key persistence.Key) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return nil, persistence.ErrNotFound
	}
	return cloneBytes(value), nil
}

// SetMany stores every entry under a single lock.
func (s *Storage) SetMany(ctx context.Context, entries map[persistence.Key][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range entries {
		s.values[key] = cloneBytes(value)
	}
	return nil
}

// Delete removes the given keys. Missing keys are ignored.
func (s *Storage) Delete(ctx context.Context, keys ...persistence.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

// Keys lists the stored keys in lexical order.
func (s *Storage) Keys() []persistence.Key {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]persistence.Key, 0, len(s.values))
	for key := range s.values {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func cloneBytes(value []byte) []byte {
	if value == nil {
		return nil
	}
	clone := make([]byte, len(value))
	copy(clone, value)
	return clone
}
