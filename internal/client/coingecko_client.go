package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bobmcallan/coin-portal/internal/cache"
	"github.com/bobmcallan/coin-portal/internal/common"
	"github.com/bobmcallan/coin-portal/internal/config"
	"github.com/bobmcallan/coin-portal/internal/market"
)

var (
	// ErrCoinNotFound is returned when the API does not know a coin id.
	ErrCoinNotFound = errors.New("coin not found")
	// ErrRateLimited is returned when the API rejects a request with 429.
	ErrRateLimited = errors.New("market API rate limit exceeded")
)

// maxBodySize bounds how much of a response is read.
const maxBodySize = 4 << 20

// apiKeyHeader carries the demo-plan API key.
const apiKeyHeader = "x-cg-demo-api-key"

// CoinGeckoClient reads market data from the CoinGecko v3 REST API.
type CoinGeckoClient struct {
	baseURL    *url.URL
	apiKey     string
	vsCurrency string
	httpClient *http.Client
	cache      *cache.ResponseCache
	logger     *common.Logger
}

// Option configures a CoinGeckoClient.
type Option func(*CoinGeckoClient)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *CoinGeckoClient) { c.httpClient = hc }
}

// WithCache sets the response cache. A nil cache disables caching.
func WithCache(rc *cache.ResponseCache) Option {
	return func(c *CoinGeckoClient) { c.cache = rc }
}

// NewCoinGeckoClient creates a client from the market config.
func NewCoinGeckoClient(cfg *config.MarketConfig, logger *common.Logger, opts ...Option) (*CoinGeckoClient, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid market base URL %q", cfg.BaseURL)
	}
	vs := strings.ToLower(strings.TrimSpace(cfg.VsCurrency))
	if vs == "" {
		vs = "usd"
	}

	c := &CoinGeckoClient{
		baseURL:    base,
		apiKey:     cfg.APIKey,
		vsCurrency: vs,
		httpClient: &http.Client{Timeout: cfg.GetTimeout()},
		cache:      cache.New(cfg.GetCacheTTL(), cfg.CacheMaxEntries),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// VsCurrency returns the quote currency prices are requested in.
func (c *CoinGeckoClient) VsCurrency() string {
	return c.vsCurrency
}

func (c *CoinGeckoClient) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	u.RawQuery = query.Encode()
	return u.String()
}

// get performs a GET and returns the body of a 2xx response.
func (c *CoinGeckoClient) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	target := c.endpoint(path, query)
	key := cache.MakeKey(http.MethodGet, target)
	if cached, ok := c.cache.Get(key); ok {
		return cached.Body, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach market API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug().Str("path", path).Int("status", resp.StatusCode).Dur("elapsed", time.Since(start)).Msg("Market API request")

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrCoinNotFound, path)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("market API returned %d: %s", resp.StatusCode, truncate(body, 200))
	}

	c.cache.Set(key, &cache.CachedResponse{StatusCode: resp.StatusCode, Body: body})
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// FetchCoins returns one page of records ordered by market cap.
// GET /coins/markets?vs_currency&order=market_cap_desc&per_page&page&sparkline=true&price_change_percentage=24h
func (c *CoinGeckoClient) FetchCoins(ctx context.Context, page, perPage int) ([]market.Coin, error) {
	if page < 1 {
		page = 1
	}
	q := url.Values{}
	q.Set("vs_currency", c.vsCurrency)
	q.Set("order", "market_cap_desc")
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("page", strconv.Itoa(page))
	q.Set("sparkline", "true")
	q.Set("price_change_percentage", "24h")

	body, err := c.get(ctx, "/coins/markets", q)
	if err != nil {
		return nil, fmt.Errorf("fetch coins: %w", err)
	}

	var coins []market.Coin
	if err := json.Unmarshal(body, &coins); err != nil {
		return nil, fmt.Errorf("failed to parse coins response: %w", err)
	}
	if coins == nil {
		coins = []market.Coin{}
	}
	return coins, nil
}

// FetchCoinDetail returns one coin with its market data resolved to the
// configured currency.
// GET /coins/{id}?localization=false&tickers=false&market_data=true&community_data=false&developer_data=false&sparkline=true
func (c *CoinGeckoClient) FetchCoinDetail(ctx context.Context, id string) (*market.CoinDetail, error) {
	q := url.Values{}
	q.Set("localization", "false")
	q.Set("tickers", "false")
	q.Set("market_data", "true")
	q.Set("community_data", "false")
	q.Set("developer_data", "false")
	q.Set("sparkline", "true")

	body, err := c.get(ctx, "/coins/"+url.PathEscape(id), q)
	if err != nil {
		return nil, fmt.Errorf("fetch coin %s: %w", id, err)
	}
	detail, err := decodeCoinDetail(body, c.vsCurrency)
	if err != nil {
		return nil, fmt.Errorf("failed to parse coin %s: %w", id, err)
	}
	return detail, nil
}

// FetchCoinHistory returns the price series of id over days.
// GET /coins/{id}/market_chart?vs_currency&days&interval
func (c *CoinGeckoClient) FetchCoinHistory(ctx context.Context, id string, days int) (*market.PriceHistory, error) {
	interval := market.HistoryInterval(days)
	q := url.Values{}
	q.Set("vs_currency", c.vsCurrency)
	q.Set("days", strconv.Itoa(days))
	q.Set("interval", interval)

	body, err := c.get(ctx, "/coins/"+url.PathEscape(id)+"/market_chart", q)
	if err != nil {
		return nil, fmt.Errorf("fetch history %s: %w", id, err)
	}

	var raw struct {
		Prices [][2]float64 `json:"prices"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse history for %s: %w", id, err)
	}

	history := &market.PriceHistory{
		CoinID:   id,
		Days:     days,
		Interval: interval,
		Prices:   make([]market.PricePoint, 0, len(raw.Prices)),
	}
	for _, p := range raw.Prices {
		history.Prices = append(history.Prices, market.PricePoint{Timestamp: int64(p[0]), Price: p[1]})
	}
	return history, nil
}

// Search returns coins whose name or symbol matches query.
// GET /search?query=
func (c *CoinGeckoClient) Search(ctx context.Context, query string) ([]market.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []market.SearchResult{}, nil
	}
	q := url.Values{}
	q.Set("query", query)

	body, err := c.get(ctx, "/search", q)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	var raw struct {
		Coins []market.SearchResult `json:"coins"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}
	if raw.Coins == nil {
		raw.Coins = []market.SearchResult{}
	}
	return raw.Coins, nil
}
