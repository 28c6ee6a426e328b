package market

import (
	"context"
	"errors"
	"sync"
)

// fakeSource serves canned data. Calls to FetchCoinHistory for a range
// listed in gates block until that gate is closed. The next FetchCoins call
// takes coinsGate, captures the current coins and then blocks on it.
type fakeSource struct {
	mu        sync.Mutex
	coins     []Coin
	err       error
	calls     int
	coinsGate chan struct{}
	gates     map[int]chan struct{}
	histories map[int]*PriceHistory
}

func (f *fakeSource) FetchCoins(ctx context.Context, page, perPage int) ([]Coin, error) {
	f.mu.Lock()
	f.calls++
	gate := f.coinsGate
	f.coinsGate = nil
	err := f.err
	n := perPage
	if n > len(f.coins) {
		n = len(f.coins)
	}
	out := make([]Coin, n)
	copy(out, f.coins[:n])
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (f *fakeSource) FetchCoinDetail(ctx context.Context, id string) (*CoinDetail, error) {
	for _, c := range f.coins {
		if c.ID == id {
			return &CoinDetail{Coin: c}, nil
		}
	}
	return nil, errors.New("not found")
}

func (f *fakeSource) FetchCoinHistory(ctx context.Context, id string, days int) (*PriceHistory, error) {
	f.mu.Lock()
	gate := f.gates[days]
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if h, ok := f.histories[days]; ok {
		return h, nil
	}
	return &PriceHistory{CoinID: id, Days: days, Interval: HistoryInterval(days)}, nil
}

func (f *fakeSource) Search(ctx context.Context, query string) ([]SearchResult, error) {
	return nil, nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeSource) setCoins(coins []Coin) {
	f.mu.Lock()
	f.coins = coins
	f.mu.Unlock()
}

func (f *fakeSource) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}
