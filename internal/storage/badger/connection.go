package badger

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bobmcallan/coin-portal/internal/common"
	"github.com/bobmcallan/coin-portal/internal/config"
	"github.com/timshannon/badgerhold/v4"
)

// BadgerDB manages the Badger database connection.
type BadgerDB struct {
	store  *badgerhold.Store
	logger *common.Logger
	path   string
}

// NewBadgerDB opens (or creates) the database directory named in cfg.
func NewBadgerDB(logger *common.Logger, cfg *config.BadgerConfig) (*BadgerDB, error) {
	if cfg == nil || cfg.Path == "" {
		return nil, fmt.Errorf("badger path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	logger.Debug().Str("path", cfg.Path).Msg("Opening Badger database")

	options := badgerhold.DefaultOptions
	options.Dir = cfg.Path
	options.ValueDir = cfg.Path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", cfg.Path, err)
	}

	logger.Info().Str("path", cfg.Path).Msg("Badger database ready")

	return &BadgerDB{store: store, logger: logger, path: cfg.Path}, nil
}

// Store returns the underlying badgerhold store.
func (b *BadgerDB) Store() *badgerhold.Store {
	return b.store
}

// Path returns the directory the database lives in.
func (b *BadgerDB) Path() string {
	return b.path
}

// Close closes the database connection.
func (b *BadgerDB) Close() error {
	if b.store == nil {
		return nil
	}
	err := b.store.Close()
	b.store = nil
	return err
}
