package interfaces

import (
	"context"
	"errors"
)

// ErrNotFound is returned (wrapped) by KeyValueStorage.Get when the key has no value.
var ErrNotFound = errors.New("key not found")

// StorageManager provides access to domain-specific storage interfaces.
// Implementations can be swapped (BadgerDB on disk, in-memory for tests).
type StorageManager interface {
	KeyValueStorage() KeyValueStorage
	Close() error
}

// KeyValueStorage provides basic key-value operations.
type KeyValueStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	GetAll(ctx context.Context) (map[string]string, error)
}
