package market

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bobmcallan/coin-portal/internal/common"
)

// Snapshot is a committed point-in-time listing of the first page of
// records by market cap.
type Snapshot struct {
	Coins     []Coin    `json:"coins"`
	Size      int       `json:"size"`
	Seq       uint64    `json:"-"`
	FetchedAt time.Time `json:"fetched_at"`
	// Stale is set when the latest fetch failed and an older (or empty)
	// snapshot is served in its place.
	Stale bool `json:"stale"`
}

// FeedOptions configures a Feed.
type FeedOptions struct {
	// RefreshInterval is how long a committed snapshot is served before
	// it is fetched again. Zero disables the background refresher and
	// makes every Snapshot call fetch.
	RefreshInterval time.Duration
	// ListingSize is the page size refreshed in the background.
	ListingSize int
	// Clock overrides time.Now in tests.
	Clock func() time.Time
}

// Feed serves market snapshots per page size, fetching on demand and in
// the background. Only the most recently issued fetch for a size commits.
type Feed struct {
	source  Source
	seq     *Sequencer
	opts    FeedOptions
	logger  *common.Logger
	refresh sync.Mutex

	mu        sync.RWMutex
	snapshots map[int]Snapshot
}

// NewFeed creates a feed over source. A nil logger discards output.
func NewFeed(source Source, opts FeedOptions, logger *common.Logger) *Feed {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.ListingSize <= 0 {
		opts.ListingSize = 100
	}
	return &Feed{
		source:    source,
		seq:       NewSequencer(),
		opts:      opts,
		logger:    logger,
		snapshots: make(map[int]Snapshot),
	}
}

func snapshotView(size int) string {
	return fmt.Sprintf("snapshot:%d", size)
}

// Committed returns the last committed snapshot for size without fetching.
func (f *Feed) Committed(size int) (Snapshot, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	snap, ok := f.snapshots[size]
	return snap, ok
}

// Snapshot returns the committed snapshot for size while it is fresh and
// fetches a new one otherwise. When the fetch fails the previous snapshot
// (or an empty one) is returned marked stale, together with the error.
func (f *Feed) Snapshot(ctx context.Context, size int) (Snapshot, error) {
	if snap, ok := f.Committed(size); ok && f.isFresh(snap) {
		return snap, nil
	}
	return f.Refresh(ctx, size)
}

func (f *Feed) isFresh(snap Snapshot) bool {
	if f.opts.RefreshInterval <= 0 {
		return false
	}
	return !snap.Stale && common.IsFreshAt(snap.FetchedAt, f.opts.RefreshInterval, f.opts.Clock())
}

// Refresh fetches the first page of size records and commits it unless a
// newer fetch for the same size was issued in the meantime.
func (f *Feed) Refresh(ctx context.Context, size int) (Snapshot, error) {
	tok := f.seq.Next(snapshotView(size))

	coins, err := f.source.FetchCoins(ctx, 1, size)
	if err != nil {
		f.logger.Warn().Err(err).Int("size", size).Msg("Market snapshot fetch failed, serving previous snapshot")
		prev, ok := f.Committed(size)
		if !ok {
			prev = Snapshot{Coins: []Coin{}, Size: size}
		}
		prev.Stale = true
		return prev, err
	}

	fetched := Snapshot{
		Coins:     coins,
		Size:      size,
		Seq:       tok.Seq,
		FetchedAt: f.opts.Clock(),
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.seq.IsLatest(tok) {
		f.logger.Debug().Int("size", size).Int64("seq", int64(tok.Seq)).Msg("Discarding superseded market snapshot")
		if current, ok := f.snapshots[size]; ok {
			return current, nil
		}
		return fetched, nil
	}
	f.snapshots[size] = fetched
	f.logger.Debug().Int("size", size).Int("coins", len(coins)).Msg("Market snapshot committed")
	return fetched, nil
}

// Lookup finds a record by id in the listing snapshot.
func (f *Feed) Lookup(ctx context.Context, id string) (Coin, bool) {
	snap, _ := f.Snapshot(ctx, f.opts.ListingSize)
	for _, c := range snap.Coins {
		if c.ID == id {
			return c, true
		}
	}
	return Coin{}, false
}

// Start refreshes the listing snapshot every RefreshInterval until ctx is
// cancelled. It returns immediately; a zero interval starts nothing.
func (f *Feed) Start(ctx context.Context) {
	if f.opts.RefreshInterval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(f.opts.RefreshInterval)
		defer ticker.Stop()

		f.backgroundRefresh(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				f.backgroundRefresh(ctx)
			}
		}
	}()
	f.logger.Info().Dur("interval", f.opts.RefreshInterval).Int("size", f.opts.ListingSize).Msg("Market snapshot refresher started")
}

func (f *Feed) backgroundRefresh(ctx context.Context) {
	// Skip a tick rather than queue behind a slow fetch.
	if !f.refresh.TryLock() {
		return
	}
	defer f.refresh.Unlock()
	_, _ = f.Refresh(ctx, f.opts.ListingSize)
}
