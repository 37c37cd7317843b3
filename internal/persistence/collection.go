package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Collection is a typed view over one key of a Store holding a JSON array.
type Collection[T any] struct {
	store Store
	key   Key
}

// NewCollection binds a collection of T to the given key.
func NewCollection[T any](store Store, key Key) Collection[T] {
	return Collection[T]{store: store, key: key}
}

// Key returns the key the collection is stored under.
func (c Collection[T]) Key() Key {
	return c.key
}

// All returns every stored item. A key that was never written yields an empty slice.
func (c Collection[T]) All(ctx context.Context) ([]T, error) {
	if c.store == nil {
		return nil, fmt.Errorf("persistence: store not configured for %s", c.key)
	}
	raw, err := c.store.Get(ctx, c.key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return []T{}, nil
		}
		return nil, err
	}
	items := make([]T, 0)
	if len(raw) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, c.key, err)
	}
	return items, nil
}

// Replace overwrites the stored collection with items.
func (c Collection[T]) Replace(ctx context.Context, items []T) error {
	batch := NewBatch()
	if err := c.Stage(batch, items); err != nil {
		return err
	}
	return batch.Commit(ctx, c.store)
}

// Stage encodes items into the batch without writing them.
func (c Collection[T]) Stage(batch *Batch, items []T) error {
	if items == nil {
		items = []T{}
	}
	encoded, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("persistence: encode %s: %w", c.key, err)
	}
	batch.entries[c.key] = encoded
	return nil
}

// Document is a typed view over one key holding a single JSON object.
type Document[T any] struct {
	store Store
	key   Key
}

// NewDocument binds a single-object document of T to the given key.
func NewDocument[T any](store Store, key Key) Document[T] {
	return Document[T]{store: store, key: key}
}

// Load decodes the stored document. It returns ErrNotFound when the key is absent.
func (d Document[T]) Load(ctx context.Context) (T, error) {
	var value T
	if d.store == nil {
		return value, fmt.Errorf("persistence: store not configured for %s", d.key)
	}
	raw, err := d.store.Get(ctx, d.key)
	if err != nil {
		return value, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return value, ErrNotFound
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return value, fmt.Errorf("%w: %s: %v", ErrCorrupt, d.key, err)
	}
	return value, nil
}

// Save overwrites the stored document.
func (d Document[T]) Save(ctx context.Context, value T) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("persistence: encode %s: %w", d.key, err)
	}
	batch := NewBatch()
	batch.entries[d.key] = encoded
	return batch.Commit(ctx, d.store)
}

// Batch accumulates collection writes that must land together.
type Batch struct {
	entries map[Key][]byte
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{entries: make(map[Key][]byte)}
}

// Len reports how many keys are staged.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.entries)
}

// Commit writes every staged entry atomically. An empty batch is a no-op.
func (b *Batch) Commit(ctx context.Context, store Store) error {
	if b == nil || len(b.entries) == 0 {
		return nil
	}
	if store == nil {
		return errors.New("persistence: store not configured")
	}
	return store.SetMany(ctx, b.entries)
}
