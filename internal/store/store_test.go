package store

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/bobmcallan/coin-portal/internal/common"
	"github.com/bobmcallan/coin-portal/internal/interfaces"
	"github.com/bobmcallan/coin-portal/internal/storage/memory"
)

// failingKV wraps a store and rejects writes while fail is set.
type failingKV struct {
	interfaces.KeyValueStorage
	fail atomic.Bool
}

func (f *failingKV) Set(ctx context.Context, key, value string) error {
	if f.fail.Load() {
		return fmt.Errorf("failed to set key %s: disk full", key)
	}
	return f.KeyValueStorage.Set(ctx, key, value)
}

type item struct {
	ID     string  `json:"id"`
	Amount float64 `json:"amount"`
}

func TestLoad_MissingSlotReturnsDefault(t *testing.T) {
	kv := memory.NewKVStorage()
	got := Load(context.Background(), kv, "portfolio", []item{}, common.NewSilentLogger())
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty default, got %v", got)
	}
}

func TestLoad_CorruptSlotReturnsDefault(t *testing.T) {
	kv := memory.NewKVStorage()
	ctx := context.Background()
	kv.Set(ctx, "portfolio", "{not json")

	got := Load(ctx, kv, "portfolio", []item{{ID: "default"}}, common.NewSilentLogger())
	if len(got) != 1 || got[0].ID != "default" {
		t.Errorf("expected default, got %v", got)
	}
}

func TestLoad_WrongShapeReturnsDefault(t *testing.T) {
	kv := memory.NewKVStorage()
	ctx := context.Background()
	kv.Set(ctx, "portfolio", `{"id":"bitcoin"}`)

	got := Load(ctx, kv, "portfolio", []item{}, nil)
	if len(got) != 0 {
		t.Errorf("expected empty default for object content, got %v", got)
	}
}

func TestSaveThenLoad(t *testing.T) {
	kv := memory.NewKVStorage()
	ctx := context.Background()

	want := []item{{ID: "bitcoin", Amount: 0.5}, {ID: "ethereum", Amount: 2}}
	if err := Save(ctx, kv, "portfolio", want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got := Load(ctx, kv, "portfolio", []item{}, nil)
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("round trip mismatch: got %v", got)
	}

	raw, _ := kv.Get(ctx, "portfolio")
	if raw != `[{"id":"bitcoin","amount":0.5},{"id":"ethereum","amount":2}]` {
		t.Errorf("unexpected stored JSON: %s", raw)
	}
}

func TestSave_StorageError(t *testing.T) {
	kv := &failingKV{KeyValueStorage: memory.NewKVStorage()}
	kv.fail.Store(true)
	if err := Save(context.Background(), kv, "portfolio", []item{}); err == nil {
		t.Error("expected error from failing storage")
	}
}

func TestBinding_SetPersistsBeforeVisible(t *testing.T) {
	kv := memory.NewKVStorage()
	ctx := context.Background()

	b := Bind(ctx, kv, "portfolio", []item{}, common.NewSilentLogger())
	if b.Key() != "portfolio" {
		t.Errorf("expected key portfolio, got %s", b.Key())
	}
	if len(b.Get()) != 0 {
		t.Fatalf("expected empty initial value")
	}

	if err := b.Set(ctx, []item{{ID: "bitcoin", Amount: 1}}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if len(b.Get()) != 1 {
		t.Errorf("expected one item after Set")
	}

	// A fresh binding over the same slot sees the written value.
	reloaded := Bind(ctx, kv, "portfolio", []item{}, nil)
	if got := reloaded.Get(); len(got) != 1 || got[0].ID != "bitcoin" {
		t.Errorf("reload mismatch: %v", got)
	}
}

func TestBinding_FailedSetKeepsPreviousValue(t *testing.T) {
	kv := &failingKV{KeyValueStorage: memory.NewKVStorage()}
	ctx := context.Background()

	b := Bind(ctx, kv, "portfolio", []item{{ID: "bitcoin"}}, nil)
	kv.fail.Store(true)

	if err := b.Set(ctx, []item{}); err == nil {
		t.Fatal("expected Set to fail")
	}
	if got := b.Get(); len(got) != 1 || got[0].ID != "bitcoin" {
		t.Errorf("previous value should be kept, got %v", got)
	}
}
