// Package market holds the market-data model and the pure list derivations
// (filter, sort, movers) applied to a snapshot, plus the snapshot feed and
// chart-range tracking that order concurrent fetches.
package market

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidDays is returned for a chart range outside ValidDays.
var ErrInvalidDays = errors.New("invalid chart range")

// ValidDays are the selectable chart ranges.
var ValidDays = []int{1, 7, 30, 90, 365}

// DefaultDays is the chart range used until one is selected.
const DefaultDays = 7

// Coin is one market record as returned by /coins/markets.
type Coin struct {
	ID                       string     `json:"id"`
	Symbol                   string     `json:"symbol"`
	Name                     string     `json:"name"`
	Image                    string     `json:"image"`
	CurrentPrice             float64    `json:"current_price"`
	MarketCap                float64    `json:"market_cap"`
	MarketCapRank            int        `json:"market_cap_rank"`
	TotalVolume              float64    `json:"total_volume"`
	PriceChangePercentage24h float64    `json:"price_change_percentage_24h"`
	High24h                  float64    `json:"high_24h"`
	Low24h                   float64    `json:"low_24h"`
	Sparkline                *Sparkline `json:"sparkline_in_7d,omitempty"`
}

// Sparkline is the optional 7-day price series attached to a record.
type Sparkline struct {
	Price []float64 `json:"price"`
}

// CoinDetail is a single coin with its descriptive and supply fields.
// Currency-keyed values are already resolved to the configured currency.
type CoinDetail struct {
	Coin
	Description       string   `json:"description"`
	Homepage          string   `json:"homepage,omitempty"`
	Blockchain        string   `json:"blockchain,omitempty"`
	Categories        []string `json:"categories,omitempty"`
	GenesisDate       string   `json:"genesis_date,omitempty"`
	ATH               float64  `json:"ath"`
	ATHDate           string   `json:"ath_date,omitempty"`
	ATHChange         float64  `json:"ath_change_percentage"`
	ATL               float64  `json:"atl"`
	ATLDate           string   `json:"atl_date,omitempty"`
	PriceChange7d     float64  `json:"price_change_percentage_7d"`
	PriceChange30d    float64  `json:"price_change_percentage_30d"`
	CirculatingSupply float64  `json:"circulating_supply"`
	TotalSupply       float64  `json:"total_supply"`
	MaxSupply         float64  `json:"max_supply"`
}

// PricePoint is one sample of a price history.
type PricePoint struct {
	Timestamp int64   `json:"timestamp"` // unix milliseconds
	Price     float64 `json:"price"`
}

// Time returns the sample time in UTC.
func (p PricePoint) Time() time.Time {
	return time.UnixMilli(p.Timestamp).UTC()
}

// PriceHistory is a coin's price series over a chart range.
type PriceHistory struct {
	CoinID   string       `json:"coin_id"`
	Days     int          `json:"days"`
	Interval string       `json:"interval"`
	Prices   []PricePoint `json:"prices"`
}

// SearchResult is one coin match from the search endpoint.
type SearchResult struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	MarketCapRank int    `json:"market_cap_rank"`
	Thumb         string `json:"thumb"`
	Large         string `json:"large"`
}

// Source fetches market data from the upstream API.
type Source interface {
	FetchCoins(ctx context.Context, page, perPage int) ([]Coin, error)
	FetchCoinDetail(ctx context.Context, id string) (*CoinDetail, error)
	FetchCoinHistory(ctx context.Context, id string, days int) (*PriceHistory, error)
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// IsValidDays reports whether days is a selectable chart range.
func IsValidDays(days int) bool {
	for _, d := range ValidDays {
		if d == days {
			return true
		}
	}
	return false
}

// HistoryInterval returns the sampling interval requested for a range:
// hourly up to one day, daily beyond.
func HistoryInterval(days int) string {
	if days <= 1 {
		return "hourly"
	}
	return "daily"
}

// IndexByID maps each record's id to the record. The first record wins
// when a snapshot repeats an id.
func IndexByID(coins []Coin) map[string]Coin {
	index := make(map[string]Coin, len(coins))
	for _, c := range coins {
		if _, ok := index[c.ID]; !ok {
			index[c.ID] = c
		}
	}
	return index
}
