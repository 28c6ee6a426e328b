package market

import (
	"slices"
	"strings"
	"sync"
)

// SortKey selects the numeric field a listing is ordered by.
type SortKey string

const (
	SortMarketCap SortKey = "market_cap"
	SortPrice     SortKey = "price"
	SortVolume    SortKey = "volume"
	SortChange    SortKey = "change"
)

// Direction is the sort order.
type Direction string

const (
	Desc Direction = "desc"
	Asc  Direction = "asc"
)

// SortState is the active key and direction of a listing.
type SortState struct {
	Key       SortKey   `json:"key"`
	Direction Direction `json:"direction"`
}

// DefaultSort orders by market cap, largest first.
var DefaultSort = SortState{Key: SortMarketCap, Direction: Desc}

// ParseSortKey parses a key name. Unknown or empty names yield the default key.
func ParseSortKey(s string) (SortKey, bool) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case SortMarketCap, SortPrice, SortVolume, SortChange:
		return k, true
	}
	return SortMarketCap, false
}

// ParseDirection parses a direction. Anything other than asc is desc.
func ParseDirection(s string) (Direction, bool) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case Asc:
		return Asc, true
	case Desc:
		return Desc, true
	}
	return Desc, false
}

// Select applies a click on key: the active key flips direction, any other
// key becomes active in descending order.
func (s SortState) Select(key SortKey) SortState {
	if s.Key == key {
		if s.Direction == Desc {
			return SortState{Key: key, Direction: Asc}
		}
		return SortState{Key: key, Direction: Desc}
	}
	return SortState{Key: key, Direction: Desc}
}

func (k SortKey) value(c Coin) float64 {
	switch k {
	case SortPrice:
		return c.CurrentPrice
	case SortVolume:
		return c.TotalVolume
	case SortChange:
		return c.PriceChangePercentage24h
	default:
		return c.MarketCap
	}
}

// Filter keeps records whose name or symbol contains query, ignoring case.
// A blank query returns the input unchanged.
func Filter(coins []Coin, query string) []Coin {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return coins
	}
	out := make([]Coin, 0, len(coins))
	for _, c := range coins {
		if strings.Contains(strings.ToLower(c.Name), q) || strings.Contains(strings.ToLower(c.Symbol), q) {
			out = append(out, c)
		}
	}
	return out
}

// Sort returns a new slice ordered by state. Equal values keep input order.
func Sort(coins []Coin, state SortState) []Coin {
	out := slices.Clone(coins)
	slices.SortStableFunc(out, func(a, b Coin) int {
		va, vb := state.Key.value(a), state.Key.value(b)
		if state.Direction == Asc {
			return compare(va, vb)
		}
		return compare(vb, va)
	})
	return out
}

func compare(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Derive filters then sorts.
func Derive(coins []Coin, query string, state SortState) []Coin {
	return Sort(Filter(coins, query), state)
}

// Deriver memoises the last Derive call per snapshot sequence.
type Deriver struct {
	mu     sync.Mutex
	seq    uint64
	query  string
	state  SortState
	result []Coin
	valid  bool
}

// Derive returns the listing for snap, reusing the previous result when
// the snapshot, query and sort state are unchanged.
func (d *Deriver) Derive(snap Snapshot, query string, state SortState) []Coin {
	query = strings.TrimSpace(query)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.valid && d.seq == snap.Seq && d.query == query && d.state == state {
		return d.result
	}
	d.result = Derive(snap.Coins, query, state)
	d.seq, d.query, d.state, d.valid = snap.Seq, query, state, true
	return d.result
}
