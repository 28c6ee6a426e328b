// Package store binds typed values to named slots in a key-value storage.
// Values are stored as JSON documents and replaced whole on every write.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/bobmcallan/coin-portal/internal/common"
	"github.com/bobmcallan/coin-portal/internal/interfaces"
)

// Load reads the slot named key and decodes it into a T.
// A missing slot, an unreadable slot or undecodable content yields def.
// Load never fails; problems other than a missing slot are logged.
func Load[T any](ctx context.Context, kv interfaces.KeyValueStorage, key string, def T, logger *common.Logger) T {
	raw, err := kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, interfaces.ErrNotFound) && logger != nil {
			logger.Warn().Err(err).Str("key", key).Msg("Failed to read slot, using default")
		}
		return def
	}

	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		if logger != nil {
			logger.Warn().Err(err).Str("key", key).Int("bytes", len(raw)).Msg("Slot content is not valid, using default")
		}
		return def
	}
	return v
}

// Save serialises v and writes it to the slot named key.
func Save[T any](ctx context.Context, kv interfaces.KeyValueStorage, key string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode slot %s: %w", key, err)
	}
	if err := kv.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("failed to save slot %s: %w", key, err)
	}
	return nil
}

// Binding keeps an in-memory value in step with one slot.
// Set writes through before the new value becomes visible.
type Binding[T any] struct {
	mu     sync.RWMutex
	kv     interfaces.KeyValueStorage
	key    string
	value  T
	logger *common.Logger
}

// Bind loads the slot (falling back to def) and returns a binding over it.
func Bind[T any](ctx context.Context, kv interfaces.KeyValueStorage, key string, def T, logger *common.Logger) *Binding[T] {
	return &Binding[T]{
		kv:     kv,
		key:    key,
		value:  Load(ctx, kv, key, def, logger),
		logger: logger,
	}
}

// Key returns the slot name.
func (b *Binding[T]) Key() string {
	return b.key
}

// Get returns the current value.
func (b *Binding[T]) Get() T {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.value
}

// Set persists v and, on success, makes it the current value.
// On failure the previous value is kept.
func (b *Binding[T]) Set(ctx context.Context, v T) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := Save(ctx, b.kv, b.key, v); err != nil {
		return err
	}
	b.value = v
	return nil
}
