package portfolio

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/bobmcallan/coin-portal/internal/common"
	"github.com/bobmcallan/coin-portal/internal/interfaces"
	"github.com/bobmcallan/coin-portal/internal/store"
)

// DefaultStorageKey is the slot the ledger is persisted under.
const DefaultStorageKey = "portfolio"

// Ledger is the persisted collection of holdings, unique by coin id.
// Every mutation builds a new collection, persists it and only then makes
// it visible, so readers never observe a partial change.
type Ledger struct {
	mu      sync.Mutex
	binding *store.Binding[[]Holding]
	logger  *common.Logger
	clock   func() time.Time
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithClock sets the clock used to stamp purchase dates.
func WithClock(clock func() time.Time) LedgerOption {
	return func(l *Ledger) { l.clock = clock }
}

// NewLedger loads the ledger from the slot named key. Missing or corrupt
// content yields an empty ledger.
func NewLedger(ctx context.Context, kv interfaces.KeyValueStorage, key string, logger *common.Logger, opts ...LedgerOption) *Ledger {
	if key == "" {
		key = DefaultStorageKey
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	l := &Ledger{logger: logger, clock: time.Now}
	for _, opt := range opts {
		opt(l)
	}

	l.binding = store.Bind(ctx, kv, key, []Holding{}, logger)
	loaded := l.binding.Get()
	if loaded == nil {
		loaded = []Holding{}
	}
	if deduped := dedupe(loaded); len(deduped) != len(loaded) {
		logger.Warn().Str("key", key).Int("stored", len(loaded)).Int("kept", len(deduped)).Msg("Collapsed duplicate holdings in persisted ledger")
		if err := l.binding.Set(ctx, deduped); err != nil {
			logger.Warn().Err(err).Msg("Failed to rewrite deduplicated ledger")
		}
	}
	logger.Debug().Str("key", key).Int("holdings", len(l.binding.Get())).Msg("Ledger loaded")
	return l
}

// dedupe keeps the first holding per coin id.
func dedupe(holdings []Holding) []Holding {
	seen := make(map[string]bool, len(holdings))
	out := make([]Holding, 0, len(holdings))
	for _, h := range holdings {
		if seen[h.CoinID] {
			continue
		}
		seen[h.CoinID] = true
		out = append(out, h)
	}
	return out
}

// Holdings returns a copy of the ledger in insertion order.
func (l *Ledger) Holdings() []Holding {
	return slices.Clone(l.current())
}

func (l *Ledger) current() []Holding {
	h := l.binding.Get()
	if h == nil {
		return []Holding{}
	}
	return h
}

// Get returns the holding for coinID.
func (l *Ledger) Get(coinID string) (Holding, bool) {
	for _, h := range l.current() {
		if h.CoinID == coinID {
			return h, true
		}
	}
	return Holding{}, false
}

// IsMember reports whether coinID is held.
func (l *Ledger) IsMember(coinID string) bool {
	_, ok := l.Get(coinID)
	return ok
}

// Len returns the number of holdings.
func (l *Ledger) Len() int {
	return len(l.current())
}

// Add stamps the entry with the current time and appends it. Adding a coin
// that is already held changes nothing and reports AlreadyExists.
func (l *Ledger) Add(ctx context.Context, entry NewEntry) (AddResult, error) {
	if err := entry.validate(); err != nil {
		return Rejected, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	prev := l.current()
	if slices.ContainsFunc(prev, func(h Holding) bool { return h.CoinID == entry.CoinID }) {
		return AlreadyExists, nil
	}

	holding := Holding{
		CoinID:        entry.CoinID,
		Symbol:        entry.Symbol,
		Name:          entry.Name,
		Image:         entry.Image,
		Amount:        entry.Amount,
		PurchasePrice: entry.PurchasePrice,
		PurchaseDate:  l.clock().UTC().Format(PurchaseDateLayout),
	}

	next := make([]Holding, 0, len(prev)+1)
	next = append(next, prev...)
	next = append(next, holding)
	if err := l.binding.Set(ctx, next); err != nil {
		return Rejected, fmt.Errorf("failed to persist ledger: %w", err)
	}

	l.logger.Info().Str("coin_id", entry.CoinID).Float64("amount", entry.Amount).Float64("purchase_price", entry.PurchasePrice).Msg("Holding added")
	return Added, nil
}

// Remove deletes the holding for coinID. Removing an absent coin is a no-op
// and reports false.
func (l *Ledger) Remove(ctx context.Context, coinID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev := l.current()
	next := slices.DeleteFunc(slices.Clone(prev), func(h Holding) bool { return h.CoinID == coinID })
	if len(next) == len(prev) {
		return false, nil
	}
	if err := l.binding.Set(ctx, next); err != nil {
		return false, fmt.Errorf("failed to persist ledger: %w", err)
	}

	l.logger.Info().Str("coin_id", coinID).Msg("Holding removed")
	return true, nil
}

// Update merges the non-nil fields of u into the holding for coinID.
// An invalid amount is rejected with ErrInvalidAmount and nothing is
// applied. Updating an absent coin is a no-op and reports false.
func (l *Ledger) Update(ctx context.Context, coinID string, u HoldingUpdate) (bool, error) {
	if err := u.validate(); err != nil {
		l.logger.Warn().Str("coin_id", coinID).Msg("Rejected holding update with invalid amount")
		return false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	prev := l.current()
	i := slices.IndexFunc(prev, func(h Holding) bool { return h.CoinID == coinID })
	if i < 0 {
		return false, nil
	}

	next := slices.Clone(prev)
	next[i] = next[i].apply(u)
	if err := l.binding.Set(ctx, next); err != nil {
		return false, fmt.Errorf("failed to persist ledger: %w", err)
	}

	l.logger.Info().Str("coin_id", coinID).Float64("amount", next[i].Amount).Msg("Holding updated")
	return true, nil
}
