package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bobmcallan/coin-portal/internal/common"
	"github.com/bobmcallan/coin-portal/internal/market"
	"github.com/bobmcallan/coin-portal/internal/portfolio"
	"github.com/bobmcallan/coin-portal/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	mu         sync.Mutex
	coins      []market.Coin
	details    map[string]*market.CoinDetail
	err        error
	historyErr error
	perPage    []int
	results    []market.SearchResult
}

func (s *stubSource) FetchCoins(ctx context.Context, page, perPage int) ([]market.Coin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.perPage = append(s.perPage, perPage)
	if s.err != nil {
		return nil, s.err
	}
	n := min(perPage, len(s.coins))
	return append([]market.Coin(nil), s.coins[:n]...), nil
}

func (s *stubSource) FetchCoinDetail(ctx context.Context, id string) (*market.CoinDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.details[id]; ok {
		return d, nil
	}
	return nil, errors.New("coin not found")
}

func (s *stubSource) FetchCoinHistory(ctx context.Context, id string, days int) (*market.PriceHistory, error) {
	if s.historyErr != nil {
		return nil, s.historyErr
	}
	return &market.PriceHistory{
		CoinID:   id,
		Days:     days,
		Interval: market.HistoryInterval(days),
		Prices:   []market.PricePoint{{Timestamp: 1, Price: 1}, {Timestamp: 2, Price: 2}},
	}, nil
}

func (s *stubSource) Search(ctx context.Context, query string) ([]market.SearchResult, error) {
	return s.results, nil
}

func (s *stubSource) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func listing() []market.Coin {
	return []market.Coin{
		{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin", Image: "btc.png", CurrentPrice: 25000, MarketCap: 500, PriceChangePercentage24h: 2.5},
		{ID: "ethereum", Symbol: "eth", Name: "Ethereum", Image: "eth.png", CurrentPrice: 1500, MarketCap: 200, PriceChangePercentage24h: -1.2},
		{ID: "tether", Symbol: "usdt", Name: "Tether", CurrentPrice: 1, MarketCap: 90, PriceChangePercentage24h: 0},
		{ID: "solana", Symbol: "sol", Name: "Solana", CurrentPrice: 30, MarketCap: 50, PriceChangePercentage24h: 5},
		{ID: "cardano", Symbol: "ada", Name: "Cardano", CurrentPrice: 0.3, MarketCap: 10, PriceChangePercentage24h: -3},
	}
}

func newTestService(t *testing.T, src *stubSource) *Service {
	t.Helper()
	logger := common.NewSilentLogger()
	feed := market.NewFeed(src, market.FeedOptions{ListingSize: 100}, logger)
	charts := market.NewCharts(src, logger)
	ledger := portfolio.NewLedger(context.Background(), memory.NewKVStorage(), "", logger,
		portfolio.WithClock(func() time.Time { return time.Date(2025, 7, 18, 0, 0, 0, 0, time.UTC) }))
	return NewService(src, feed, charts, ledger, Options{}, logger)
}

func TestHome_TopAndMovers(t *testing.T) {
	src := &stubSource{coins: listing()}
	svc := newTestService(t, src)

	view := svc.Home(context.Background())

	require.Len(t, view.Top, TopCount)
	assert.Equal(t, "bitcoin", view.Top[0].ID)
	require.Len(t, view.Gainers, 2)
	assert.Equal(t, "bitcoin", view.Gainers[0].ID)
	assert.Equal(t, "solana", view.Gainers[1].ID)
	require.Len(t, view.Losers, 2)
	assert.Equal(t, "ethereum", view.Losers[0].ID)
	assert.False(t, view.Stale)
	assert.Equal(t, []int{50}, src.perPage)
}

func TestHome_FailureIsStaleAndEmpty(t *testing.T) {
	src := &stubSource{err: errors.New("upstream down")}
	svc := newTestService(t, src)

	view := svc.Home(context.Background())

	assert.True(t, view.Stale)
	assert.Empty(t, view.Top)
	assert.Empty(t, view.Gainers)
	assert.Empty(t, view.Losers)
}

func TestMarket_FilterAndSort(t *testing.T) {
	svc := newTestService(t, &stubSource{coins: listing()})

	view := svc.Market(context.Background(), "  A ", market.SortState{Key: market.SortPrice, Direction: market.Asc})

	assert.Equal(t, 5, view.Total)
	assert.Equal(t, "A", view.Query)
	var got []string
	for _, c := range view.Coins {
		got = append(got, c.ID)
	}
	assert.Equal(t, []string{"cardano", "solana"}, got)
	assert.Equal(t, len(got), view.Shown)
}

func TestCoin_DetailHistoryAndMembership(t *testing.T) {
	src := &stubSource{
		coins:   listing(),
		details: map[string]*market.CoinDetail{"bitcoin": {Coin: listing()[0], Description: "Digital gold"}},
	}
	svc := newTestService(t, src)
	ctx := context.Background()

	view, err := svc.Coin(ctx, "bitcoin", 0)
	require.NoError(t, err)
	assert.Equal(t, "Digital gold", view.Coin.Description)
	assert.Equal(t, market.DefaultDays, view.History.Days)
	assert.False(t, view.InPortfolio)

	_, _, err = svc.AddHolding(ctx, "bitcoin", 1)
	require.NoError(t, err)

	view, err = svc.Coin(ctx, "bitcoin", 30)
	require.NoError(t, err)
	assert.Equal(t, 30, view.History.Days)
	assert.True(t, view.InPortfolio)

	// Zero days keeps the last selected range.
	view, err = svc.Coin(ctx, "bitcoin", 0)
	require.NoError(t, err)
	assert.Equal(t, 30, view.History.Days)
}

func TestCoin_InvalidInput(t *testing.T) {
	svc := newTestService(t, &stubSource{})

	_, err := svc.Coin(context.Background(), "bitcoin", 14)
	assert.ErrorIs(t, err, market.ErrInvalidDays)
	assert.True(t, IsUserError(err))

	_, err = svc.Coin(context.Background(), " ", 7)
	assert.ErrorIs(t, err, ErrCoinIDRequired)
}

func TestCoin_HistoryFailureKeepsDetail(t *testing.T) {
	src := &stubSource{
		details:    map[string]*market.CoinDetail{"bitcoin": {Coin: listing()[0]}},
		historyErr: errors.New("timeout"),
	}
	svc := newTestService(t, src)

	view, err := svc.Coin(context.Background(), "bitcoin", 90)
	require.NoError(t, err)
	assert.Equal(t, "bitcoin", view.Coin.ID)
	assert.Equal(t, 90, view.History.Days)
	assert.Empty(t, view.History.Prices)
}

func TestAddHolding_CopiesSnapshotMetadata(t *testing.T) {
	svc := newTestService(t, &stubSource{coins: listing()})

	h, result, err := svc.AddHolding(context.Background(), "ethereum", 2)
	require.NoError(t, err)
	assert.Equal(t, portfolio.Added, result)
	assert.Equal(t, "eth", h.Symbol)
	assert.Equal(t, "Ethereum", h.Name)
	assert.Equal(t, "eth.png", h.Image)
	assert.Equal(t, 1500.0, h.PurchasePrice)
	assert.Equal(t, 2.0, h.Amount)
	assert.Equal(t, "2025-07-18T00:00:00.000Z", h.PurchaseDate)
}

func TestAddHolding_FallsBackToDetail(t *testing.T) {
	src := &stubSource{
		coins:   listing(),
		details: map[string]*market.CoinDetail{"pepe": {Coin: market.Coin{ID: "pepe", Symbol: "pepe", Name: "Pepe", CurrentPrice: 0.00001}}},
	}
	svc := newTestService(t, src)

	h, _, err := svc.AddHolding(context.Background(), "pepe", 0)
	require.NoError(t, err)
	assert.Equal(t, "Pepe", h.Name)
	assert.Equal(t, 0.00001, h.PurchasePrice)

	_, _, err = svc.AddHolding(context.Background(), "unknown-coin", 0)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.False(t, svc.Ledger().IsMember("unknown-coin"))
}

func TestAddHolding_ExistingIsUnchanged(t *testing.T) {
	src := &stubSource{coins: listing()}
	svc := newTestService(t, src)
	ctx := context.Background()

	_, _, err := svc.AddHolding(ctx, "bitcoin", 1)
	require.NoError(t, err)
	h, result, err := svc.AddHolding(ctx, "bitcoin", 5)
	require.NoError(t, err)
	assert.Equal(t, portfolio.AlreadyExists, result)
	assert.Equal(t, 1.0, h.Amount)
	assert.Equal(t, 1, svc.Ledger().Len())
}

func TestAddHolding_RejectsInvalidInput(t *testing.T) {
	svc := newTestService(t, &stubSource{coins: listing()})

	_, result, err := svc.AddHolding(context.Background(), "bitcoin", -1)
	assert.ErrorIs(t, err, portfolio.ErrInvalidAmount)
	assert.Equal(t, portfolio.Rejected, result)
	_, _, err = svc.AddHolding(context.Background(), "", 1)
	assert.ErrorIs(t, err, ErrCoinIDRequired)
	assert.Zero(t, svc.Ledger().Len())
}

func TestUpdateAndRemoveHolding(t *testing.T) {
	svc := newTestService(t, &stubSource{coins: listing()})
	ctx := context.Background()

	_, err := svc.UpdateHolding(ctx, "bitcoin", 2)
	assert.ErrorIs(t, err, portfolio.ErrNotInPortfolio)

	_, _, err = svc.AddHolding(ctx, "bitcoin", 1)
	require.NoError(t, err)

	h, err := svc.UpdateHolding(ctx, "bitcoin", 3)
	require.NoError(t, err)
	assert.Equal(t, 3.0, h.Amount)

	_, err = svc.UpdateHolding(ctx, "bitcoin", -3)
	assert.ErrorIs(t, err, portfolio.ErrInvalidAmount)

	removed, err := svc.RemoveHolding(ctx, "bitcoin")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = svc.RemoveHolding(ctx, "bitcoin")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestToggle(t *testing.T) {
	svc := newTestService(t, &stubSource{coins: listing()})
	ctx := context.Background()

	held, err := svc.Toggle(ctx, "solana")
	require.NoError(t, err)
	assert.True(t, held)
	h, ok := svc.Ledger().Get("solana")
	require.True(t, ok)
	assert.Zero(t, h.Amount)
	assert.Equal(t, 30.0, h.PurchasePrice)

	held, err = svc.Toggle(ctx, "solana")
	require.NoError(t, err)
	assert.False(t, held)
	assert.False(t, svc.Ledger().IsMember("solana"))
}

func TestPortfolio_EndToEnd(t *testing.T) {
	src := &stubSource{coins: []market.Coin{{ID: "btc", Symbol: "btc", Name: "Bitcoin", CurrentPrice: 20000}}}
	svc := newTestService(t, src)
	ctx := context.Background()

	_, _, err := svc.AddHolding(ctx, "btc", 1)
	require.NoError(t, err)

	src.mu.Lock()
	src.coins[0].CurrentPrice = 25000
	src.mu.Unlock()

	view := svc.Portfolio(ctx)
	assert.InDelta(t, 25000, view.TotalValue, 1e-9)
	assert.InDelta(t, 5000, view.TotalPnL, 1e-9)
	assert.InDelta(t, 25, view.TotalPnLPercentage, 1e-9)
	assert.False(t, view.Stale)
}

func TestPortfolio_EmptyLedgerDoesNotFetch(t *testing.T) {
	src := &stubSource{coins: listing()}
	svc := newTestService(t, src)

	view := svc.Portfolio(context.Background())
	assert.Empty(t, view.Holdings)
	assert.Zero(t, view.TotalValue)
	assert.Empty(t, src.perPage)
}

func TestPortfolio_UpstreamFailureIsStale(t *testing.T) {
	src := &stubSource{coins: listing()}
	svc := newTestService(t, src)
	ctx := context.Background()

	_, _, err := svc.AddHolding(ctx, "bitcoin", 1)
	require.NoError(t, err)
	src.setErr(errors.New("rate limited"))

	view := svc.Portfolio(ctx)
	assert.True(t, view.Stale)
	require.Len(t, view.Holdings, 1)
	assert.False(t, view.Holdings[0].Priced)
	assert.Equal(t, 1, view.UnpricedCount)
}

func TestSearch_NilResultsBecomeEmpty(t *testing.T) {
	svc := newTestService(t, &stubSource{})

	results, err := svc.Search(context.Background(), "btc")
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}
