package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/bobmcallan/coin-portal/internal/common"
	"github.com/bobmcallan/coin-portal/internal/config"
)

func TestNewStorageManager_Memory(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Storage.Badger.Path = MemoryPath

	m, err := NewStorageManager(common.NewSilentLogger(), cfg)
	if err != nil {
		t.Fatalf("NewStorageManager failed: %v", err)
	}
	defer m.Close()

	if err := m.KeyValueStorage().Set(context.Background(), "k", "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
}

func TestNewStorageManager_Badger(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Storage.Badger.Path = filepath.Join(t.TempDir(), "db")

	m, err := NewStorageManager(common.NewSilentLogger(), cfg)
	if err != nil {
		t.Fatalf("NewStorageManager failed: %v", err)
	}
	defer m.Close()

	ctx := context.Background()
	if err := m.KeyValueStorage().Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if v, err := m.KeyValueStorage().Get(ctx, "k"); err != nil || v != "v" {
		t.Errorf("Get = %q, %v", v, err)
	}
}
