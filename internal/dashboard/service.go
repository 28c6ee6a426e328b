// Package dashboard composes the market feed, chart ranges and portfolio
// ledger into the views served by the portal, the MCP tools and coinctl.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bobmcallan/coin-portal/internal/common"
	"github.com/bobmcallan/coin-portal/internal/market"
	"github.com/bobmcallan/coin-portal/internal/portfolio"
)

// Home page card counts.
const (
	TopCount   = 4
	MoverCount = 3
)

var (
	// ErrCoinIDRequired is returned when a coin id is blank.
	ErrCoinIDRequired = errors.New("coin id is required")
	// ErrUpstream wraps failures of the market-data API.
	ErrUpstream = errors.New("market data unavailable")
)

// Options sets the page size fetched for each view and the valuation policy.
type Options struct {
	HomeSize      int
	ListingSize   int
	PortfolioSize int
	Policy        portfolio.UnpricedPolicy
}

func (o Options) withDefaults() Options {
	if o.HomeSize <= 0 {
		o.HomeSize = 50
	}
	if o.ListingSize <= 0 {
		o.ListingSize = 100
	}
	if o.PortfolioSize <= 0 {
		o.PortfolioSize = 250
	}
	return o
}

// Service answers every dashboard view. It is safe for concurrent use.
type Service struct {
	source  market.Source
	feed    *market.Feed
	charts  *market.Charts
	ledger  *portfolio.Ledger
	deriver market.Deriver
	opts    Options
	logger  *common.Logger
}

// NewService creates the dashboard service.
func NewService(source market.Source, feed *market.Feed, charts *market.Charts, ledger *portfolio.Ledger, opts Options, logger *common.Logger) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Service{
		source: source,
		feed:   feed,
		charts: charts,
		ledger: ledger,
		opts:   opts.withDefaults(),
		logger: logger,
	}
}

// Ledger returns the portfolio ledger.
func (s *Service) Ledger() *portfolio.Ledger {
	return s.ledger
}

// HomeView is the landing page: headline coins and the day's movers.
type HomeView struct {
	Top     []market.Coin `json:"top"`
	Gainers []market.Coin `json:"gainers"`
	Losers  []market.Coin `json:"losers"`
	Stale   bool          `json:"stale"`
}

// Home builds the landing view from the home-size snapshot.
func (s *Service) Home(ctx context.Context) HomeView {
	snap, err := s.feed.Snapshot(ctx, s.opts.HomeSize)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Home view served from stale snapshot")
	}
	gainers, losers := market.TopMovers(snap.Coins, MoverCount)
	return HomeView{
		Top:     market.TopCoins(snap.Coins, TopCount),
		Gainers: gainers,
		Losers:  losers,
		Stale:   snap.Stale,
	}
}

// MarketView is the filtered and sorted listing.
type MarketView struct {
	Coins []market.Coin    `json:"coins"`
	Total int              `json:"total"`
	Shown int              `json:"shown"`
	Query string           `json:"query"`
	Sort  market.SortState `json:"sort"`
	Stale bool             `json:"stale"`
}

// Market derives the listing for query and state from the listing snapshot.
func (s *Service) Market(ctx context.Context, query string, state market.SortState) MarketView {
	snap, err := s.feed.Snapshot(ctx, s.opts.ListingSize)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Market view served from stale snapshot")
	}
	coins := s.deriver.Derive(snap, query, state)
	return MarketView{
		Coins: coins,
		Total: len(snap.Coins),
		Shown: len(coins),
		Query: strings.TrimSpace(query),
		Sort:  state,
		Stale: snap.Stale,
	}
}

// CoinView is one coin's detail with its chart for the selected range.
type CoinView struct {
	Coin        *market.CoinDetail   `json:"coin"`
	History     *market.PriceHistory `json:"history"`
	InPortfolio bool                 `json:"in_portfolio"`
}

// Coin fetches detail and history concurrently. Zero days keeps the range
// last selected for the coin. A failed history fetch still returns the
// detail with an empty series.
func (s *Service) Coin(ctx context.Context, id string, days int) (*CoinView, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrCoinIDRequired
	}
	if days != 0 && !market.IsValidDays(days) {
		return nil, fmt.Errorf("%w: %d (valid: %v)", market.ErrInvalidDays, days, market.ValidDays)
	}

	var (
		wg         sync.WaitGroup
		detail     *market.CoinDetail
		history    *market.PriceHistory
		detailErr  error
		historyErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		detail, detailErr = s.source.FetchCoinDetail(ctx, id)
	}()
	go func() {
		defer wg.Done()
		history, historyErr = s.charts.Load(ctx, id, days)
	}()
	wg.Wait()

	if detailErr != nil {
		return nil, fmt.Errorf("%w: coin %s: %w", ErrUpstream, id, detailErr)
	}
	if historyErr != nil {
		s.logger.Warn().Err(historyErr).Str("coin_id", id).Int("days", days).Msg("Price history fetch failed")
		if days == 0 {
			days = s.charts.CurrentDays(id)
		}
		history = &market.PriceHistory{CoinID: id, Days: days, Interval: market.HistoryInterval(days), Prices: []market.PricePoint{}}
	}

	return &CoinView{
		Coin:        detail,
		History:     history,
		InPortfolio: s.ledger.IsMember(id),
	}, nil
}

// Search looks coins up by name or symbol.
func (s *Service) Search(ctx context.Context, query string) ([]market.SearchResult, error) {
	results, err := s.source.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: search %q: %w", ErrUpstream, query, err)
	}
	if results == nil {
		results = []market.SearchResult{}
	}
	return results, nil
}

// PortfolioView is the ledger valued against the portfolio-size snapshot.
type PortfolioView struct {
	portfolio.Valuation
	Stale bool `json:"stale"`
}

// Portfolio values the ledger. An unavailable snapshot values every
// holding as unpriced and marks the view stale.
func (s *Service) Portfolio(ctx context.Context) PortfolioView {
	holdings := s.ledger.Holdings()
	if len(holdings) == 0 {
		return PortfolioView{Valuation: portfolio.Value(holdings, nil, s.opts.Policy)}
	}

	snap, err := s.feed.Snapshot(ctx, s.opts.PortfolioSize)
	if err != nil {
		s.logger.Warn().Err(err).Int("holdings", len(holdings)).Msg("Portfolio valued against stale snapshot")
	}
	index := portfolio.NewPriceIndex(snap.Coins)
	return PortfolioView{
		Valuation: portfolio.Value(holdings, index, s.opts.Policy),
		Stale:     snap.Stale,
	}
}

// AddHolding adds coinID with amount, copying symbol, name, image and the
// current price from the listing snapshot, or from the coin detail when
// the coin is outside the listing. An existing holding is returned
// unchanged with AlreadyExists. Errors come with Rejected.
func (s *Service) AddHolding(ctx context.Context, coinID string, amount float64) (portfolio.Holding, portfolio.AddResult, error) {
	coinID = strings.TrimSpace(coinID)
	if coinID == "" {
		return portfolio.Holding{}, portfolio.Rejected, ErrCoinIDRequired
	}
	if !portfolio.ValidAmount(amount) {
		return portfolio.Holding{}, portfolio.Rejected, portfolio.ErrInvalidAmount
	}
	if h, ok := s.ledger.Get(coinID); ok {
		return h, portfolio.AlreadyExists, nil
	}

	coin, ok := s.feed.Lookup(ctx, coinID)
	if !ok {
		detail, err := s.source.FetchCoinDetail(ctx, coinID)
		if err != nil {
			return portfolio.Holding{}, portfolio.Rejected, fmt.Errorf("%w: coin %s: %w", ErrUpstream, coinID, err)
		}
		coin = detail.Coin
	}

	result, err := s.ledger.Add(ctx, portfolio.NewEntry{
		CoinID:        coinID,
		Symbol:        coin.Symbol,
		Name:          coin.Name,
		Image:         coin.Image,
		Amount:        amount,
		PurchasePrice: coin.CurrentPrice,
	})
	if err != nil {
		return portfolio.Holding{}, result, err
	}
	h, _ := s.ledger.Get(coinID)
	return h, result, nil
}

// UpdateHolding sets the amount held of coinID.
func (s *Service) UpdateHolding(ctx context.Context, coinID string, amount float64) (portfolio.Holding, error) {
	ok, err := s.ledger.Update(ctx, coinID, portfolio.HoldingUpdate{Amount: &amount})
	if err != nil {
		return portfolio.Holding{}, err
	}
	if !ok {
		return portfolio.Holding{}, fmt.Errorf("%w: %s", portfolio.ErrNotInPortfolio, coinID)
	}
	h, _ := s.ledger.Get(coinID)
	return h, nil
}

// RemoveHolding removes coinID. Removing an absent coin reports false.
func (s *Service) RemoveHolding(ctx context.Context, coinID string) (bool, error) {
	return s.ledger.Remove(ctx, coinID)
}

// Toggle adds coinID with a zero amount when absent and removes it when
// present. It reports whether the coin is held afterwards.
func (s *Service) Toggle(ctx context.Context, coinID string) (bool, error) {
	if s.ledger.IsMember(coinID) {
		if _, err := s.ledger.Remove(ctx, coinID); err != nil {
			return true, err
		}
		return false, nil
	}
	_, _, err := s.AddHolding(ctx, coinID, 0)
	if err != nil {
		return false, err
	}
	return true, nil
}

// IsUserError reports whether err was caused by the request rather than
// by storage or the upstream API.
func IsUserError(err error) bool {
	return errors.Is(err, ErrCoinIDRequired) ||
		errors.Is(err, portfolio.ErrInvalidAmount) ||
		errors.Is(err, portfolio.ErrInvalidHolding) ||
		errors.Is(err, market.ErrInvalidDays)
}
