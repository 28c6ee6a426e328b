package badger

import (
	"github.com/bobmcallan/coin-portal/internal/common"
	"github.com/bobmcallan/coin-portal/internal/config"
	"github.com/bobmcallan/coin-portal/internal/interfaces"
)

// Manager implements interfaces.StorageManager for Badger.
type Manager struct {
	db     *BadgerDB
	kv     interfaces.KeyValueStorage
	logger *common.Logger
}

// NewManager opens the database and returns a storage manager over it.
func NewManager(logger *common.Logger, cfg *config.BadgerConfig) (*Manager, error) {
	db, err := NewBadgerDB(logger, cfg)
	if err != nil {
		return nil, err
	}

	return &Manager{
		db:     db,
		kv:     NewKVStorage(db, logger),
		logger: logger,
	}, nil
}

// KeyValueStorage returns the key-value storage.
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

// Close closes the database connection.
func (m *Manager) Close() error {
	if m.db == nil {
		return nil
	}
	m.logger.Debug().Str("path", m.db.Path()).Msg("Closing Badger database")
	return m.db.Close()
}
