package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/bobmcallan/coin-portal/internal/common"
	"github.com/bobmcallan/coin-portal/internal/interfaces"
	"github.com/timshannon/badgerhold/v4"
)

// slot is one persisted value. Values are opaque strings (JSON documents
// written by the store package).
type slot struct {
	Key   string `badgerhold:"key"`
	Value string
}

// KVStorage implements interfaces.KeyValueStorage using BadgerDB.
type KVStorage struct {
	db     *BadgerDB
	logger *common.Logger
}

// NewKVStorage creates a key-value storage backed by db.
func NewKVStorage(db *BadgerDB, logger *common.Logger) *KVStorage {
	return &KVStorage{db: db, logger: logger}
}

// Get retrieves a value by key. A missing key wraps interfaces.ErrNotFound.
func (s *KVStorage) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var entry slot
	if err := s.db.Store().Get(key, &entry); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return "", fmt.Errorf("get %s: %w", key, interfaces.ErrNotFound)
		}
		return "", fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return entry.Value, nil
}

// Set stores value under key, replacing any previous value.
func (s *KVStorage) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.Store().Upsert(key, &slot{Key: key, Value: value}); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	s.logger.Debug().Str("key", key).Int("bytes", len(value)).Msg("Slot written")
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *KVStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.Store().Delete(key, slot{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// GetAll retrieves all key-value pairs.
func (s *KVStorage) GetAll(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var entries []slot
	if err := s.db.Store().Find(&entries, nil); err != nil {
		return nil, fmt.Errorf("failed to get all keys: %w", err)
	}

	result := make(map[string]string, len(entries))
	for _, entry := range entries {
		result[entry.Key] = entry.Value
	}
	return result, nil
}
