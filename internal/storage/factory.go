package storage

import (
	"github.com/bobmcallan/coin-portal/internal/common"
	"github.com/bobmcallan/coin-portal/internal/config"
	"github.com/bobmcallan/coin-portal/internal/interfaces"
	"github.com/bobmcallan/coin-portal/internal/storage/badger"
	"github.com/bobmcallan/coin-portal/internal/storage/memory"
)

// NewStorageManager creates a storage manager based on config.
// The path ":memory:" selects the in-process store.
func NewStorageManager(logger *common.Logger, cfg *config.Config) (interfaces.StorageManager, error) {
	if cfg.Storage.Badger.Path == MemoryPath {
		logger.Warn().Msg("Using in-memory storage; the portfolio will not survive a restart")
		return memory.NewManager(), nil
	}
	return badger.NewManager(logger, &cfg.Storage.Badger)
}

// MemoryPath is the badger path value that selects in-memory storage.
const MemoryPath = ":memory:"
