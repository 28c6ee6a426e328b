package market

import (
	"context"
	"fmt"
	"sync"

	"github.com/bobmcallan/coin-portal/internal/common"
)

// ChartState is the committed chart range and series for one coin.
type ChartState struct {
	Days    int
	History *PriceHistory
}

// Charts tracks the selected chart range per coin. Each Load is tagged;
// a completion that is not the latest request for its coin is returned
// to its caller but never becomes the coin's current range.
type Charts struct {
	source Source
	seq    *Sequencer
	logger *common.Logger

	mu     sync.RWMutex
	states map[string]ChartState
}

// NewCharts creates a chart tracker over source. A nil logger discards output.
func NewCharts(source Source, logger *common.Logger) *Charts {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Charts{
		source: source,
		seq:    NewSequencer(),
		logger: logger,
		states: make(map[string]ChartState),
	}
}

// CurrentDays returns the committed range for id, or DefaultDays.
func (c *Charts) CurrentDays(id string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if st, ok := c.states[id]; ok {
		return st.Days
	}
	return DefaultDays
}

// Current returns the committed range and series for id.
func (c *Charts) Current(id string) (ChartState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st, ok := c.states[id]
	return st, ok
}

// Load fetches the price history of id over days. Zero days means the
// coin's current range. The result is committed as the current range only
// if no later Load for the same coin was issued while it was in flight.
func (c *Charts) Load(ctx context.Context, id string, days int) (*PriceHistory, error) {
	if days == 0 {
		days = c.CurrentDays(id)
	}
	if !IsValidDays(days) {
		return nil, fmt.Errorf("%w: %d (valid: %v)", ErrInvalidDays, days, ValidDays)
	}

	tok := c.seq.Next("chart:" + id)
	history, err := c.source.FetchCoinHistory(ctx, id, days)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.seq.IsLatest(tok) {
		c.logger.Debug().Str("coin_id", id).Int("days", days).Int64("seq", int64(tok.Seq)).Msg("Discarding superseded chart range")
		return history, nil
	}
	c.states[id] = ChartState{Days: days, History: history}
	return history, nil
}
