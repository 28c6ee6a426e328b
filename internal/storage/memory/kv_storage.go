// Package memory provides an in-process KeyValueStorage used by tests and
// by the CLI when no database path is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/bobmcallan/coin-portal/internal/interfaces"
)

// KVStorage is a map-backed interfaces.KeyValueStorage.
type KVStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewKVStorage creates an empty store.
func NewKVStorage() *KVStorage {
	return &KVStorage{values: make(map[string]string)}
}

// Get returns the value for key or an error wrapping interfaces.ErrNotFound.
func (s *KVStorage) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return "", fmt.Errorf("get %s: %w", key, interfaces.ErrNotFound)
	}
	return v, nil
}

// Set stores value under key.
func (s *KVStorage) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Delete removes key.
func (s *KVStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// GetAll returns a copy of every pair.
func (s *KVStorage) GetAll(_ context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out, nil
}

// Manager is an interfaces.StorageManager over a KVStorage.
type Manager struct {
	kv *KVStorage
}

// NewManager returns a manager with an empty store.
func NewManager() *Manager {
	return &Manager{kv: NewKVStorage()}
}

// KeyValueStorage returns the store.
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

// Close is a no-op.
func (m *Manager) Close() error { return nil }
